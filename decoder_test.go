// Copyright 2017-25 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package osmgraph

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmgraph/model"
)

var fixtureTime = time.Date(2024, time.March, 14, 15, 9, 26, 0, time.UTC)

func fixtureInfo(version int32) *model.Info {
	return &model.Info{
		Version:   version,
		UID:       42,
		Timestamp: fixtureTime,
		Changeset: 1001,
		User:      "mapper",
		Visible:   true,
	}
}

// fixture returns a small, fully attributed area: three tagged nodes, a way
// across them and a relation holding the way and a node.
func fixture() []model.Entity {
	return []model.Entity{
		&model.Node{ID: 1, Lat: 51.5, Lon: -0.125, Info: fixtureInfo(1), Tags: model.Tags{"highway": "crossing"}},
		&model.Node{ID: 2, Lat: 51.25, Lon: -0.25, Info: fixtureInfo(2)},
		&model.Node{ID: 3, Lat: 51.75, Lon: 0.5, Info: fixtureInfo(3)},
		&model.Way{ID: 10, NodeIDs: []model.ID{1, 2, 3}, Info: fixtureInfo(4), Tags: model.Tags{"highway": "residential", "name": "Mill Lane"}},
		&model.Relation{
			ID:   100,
			Info: fixtureInfo(5),
			Tags: model.Tags{"type": "route"},
			Members: []model.Member{
				{ID: 10, Type: model.WAY, Role: "forward"},
				{ID: 1, Type: model.NODE, Role: "stop"},
			},
		},
	}
}

// encodeFixture encodes entities as a PBF stream.
func encodeFixture(t testing.TB, entities []model.Entity, opts ...EncoderOption) []byte {
	t.Helper()

	var buf bytes.Buffer

	enc, err := NewEncoder(&buf, append([]EncoderOption{WithStorePath(t.TempDir())}, opts...)...)
	require.NoError(t, err)
	require.NoError(t, enc.EncodeBatch(entities))
	require.NoError(t, enc.Close())

	return buf.Bytes()
}

// decodeAll decodes every entity of data, keyed by entity key.
func decodeAll(t *testing.T, data []byte, opts ...DecoderOption) (model.Header, map[model.Key]model.Entity) {
	t.Helper()

	d, err := NewDecoder(context.Background(), bytes.NewReader(data), opts...)
	require.NoError(t, err)

	defer d.Close()

	result := make(map[model.Key]model.Entity)

	for {
		entities, err := d.Decode()
		if errors.Is(err, io.EOF) {
			break
		}

		require.NoError(t, err)

		for _, e := range entities {
			result[e.GetKey()] = e
		}
	}

	return d.Header, result
}

func assertSameEntity(t *testing.T, expected, actual model.Entity) {
	t.Helper()

	require.NotNil(t, actual, "missing %s", expected.GetKey())
	assert.True(t, expected.Equal(actual) || nodesWithin(expected, actual), "%s differs", expected.GetKey())

	ei, ai := expected.GetInfo(), actual.GetInfo()
	require.NotNil(t, ai)
	assert.Equal(t, ei.Version, ai.Version)
	assert.Equal(t, ei.UID, ai.UID)
	assert.Equal(t, ei.Changeset, ai.Changeset)
	assert.Equal(t, ei.User, ai.User)
	assert.Equal(t, ei.Visible, ai.Visible)
	assert.True(t, ei.Timestamp.Equal(ai.Timestamp), "timestamp %v != %v", ei.Timestamp, ai.Timestamp)
}

// nodesWithin reports whether both are nodes with equal tags and locations
// equal to within the precision of the encoding.
func nodesWithin(expected, actual model.Entity) bool {
	en, ok1 := expected.(*model.Node)
	an, ok2 := actual.(*model.Node)

	return ok1 && ok2 && en.ID == an.ID && en.Tags.Equal(an.Tags) &&
		en.Lat.EqualWithin(an.Lat, model.E7) && en.Lon.EqualWithin(an.Lon, model.E7)
}

func TestDecoder_RoundTrip(t *testing.T) {
	entities := fixture()

	for _, c := range []BlobCompression{RAW, ZLIB, LZMA, LZ4, ZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			hdr, decoded := decodeAll(t, encodeFixture(t, entities, WithCompression(c)))

			assert.Equal(t, []string{FeatureOsmSchema, FeatureDenseNodes}, hdr.RequiredFeatures)
			require.NotNil(t, hdr.BoundingBox)
			assert.True(t, hdr.BoundingBox.EqualWithin(&model.BoundingBox{
				Top: 51.75, Left: -0.25, Bottom: 51.25, Right: 0.5,
			}, model.E7), "bounding box %s", hdr.BoundingBox)

			require.Len(t, decoded, len(entities))

			for _, e := range entities {
				assertSameEntity(t, e, decoded[e.GetKey()])
			}
		})
	}
}

func TestDecoder_Options(t *testing.T) {
	data := encodeFixture(t, fixture())

	_, decoded := decodeAll(t, data, WithProtoBatchSize(1), WithNCpus(1))
	assert.Len(t, decoded, 5)

	_, decoded = decodeAll(t, data, WithProtoBatchSize(0), WithNCpus(0))
	assert.Len(t, decoded, 5)
}

func TestDecoder_ManyBlocks(t *testing.T) {
	var entities []model.Entity
	for i := 1; i <= 20_000; i++ {
		entities = append(entities, &model.Node{ID: model.ID(i), Lat: 1, Lon: 2})
	}

	_, decoded := decodeAll(t, encodeFixture(t, entities, WithCompression(ZSTD)))
	assert.Len(t, decoded, len(entities))

	n, ok := decoded[model.NodeKey(20_000)].(*model.Node)
	require.True(t, ok)
	assert.True(t, n.Info.Visible)
}

func TestDecoder_Close(t *testing.T) {
	d, err := NewDecoder(context.Background(), bytes.NewReader(encodeFixture(t, fixture())))
	require.NoError(t, err)

	d.Close()
	d.Close()

	_, err = d.Decode()
	assert.ErrorIs(t, err, io.EOF)
}

func TestNewDecoder_Errors(t *testing.T) {
	_, err := NewDecoder(context.Background(), bytes.NewReader(nil))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = NewDecoder(context.Background(), bytes.NewReader([]byte{0, 0, 0, 2, 0xff}))
	assert.Error(t, err)
}

func TestDecoder_Truncated(t *testing.T) {
	data := encodeFixture(t, fixture())

	d, err := NewDecoder(context.Background(), bytes.NewReader(data[:len(data)-3]))
	require.NoError(t, err)

	defer d.Close()

	for {
		_, err = d.Decode()
		if err != nil {
			break
		}
	}

	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = d.Decode()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoder_UnknownBlobType(t *testing.T) {
	data := bytes.Replace(encodeFixture(t, fixture()), []byte("OSMData"), []byte("OSMDump"), 1)

	d, err := NewDecoder(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)

	defer d.Close()

	_, err = d.Decode()
	assert.ErrorIs(t, err, ErrUnknownBlobType)
}
