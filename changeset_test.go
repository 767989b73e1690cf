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
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmgraph/model"
)

func TestWriteChangeset(t *testing.T) {
	base, _, err := Load(context.Background(), bytes.NewReader(encodeFixture(t, fixture())))
	require.NoError(t, err)

	n2, err := base.Node(2)
	require.NoError(t, err)

	r100, err := base.Relation(100)
	require.NoError(t, err)

	head := base.Update(func(ed *Editor) {
		ed.Replace(n2.Move(51.3, -0.3))
		ed.Remove(r100)
		ed.Replace(&model.Node{ID: -1, Lat: 51.4, Lon: -0.2, Tags: model.Tags{"amenity": "bench"}})
	})

	var buf bytes.Buffer

	require.NoError(t, WriteChangeset(&buf, NewDifference(base, head), WithStorePath(t.TempDir())))

	hdr, decoded := decodeAll(t, buf.Bytes())
	assert.Equal(t,
		[]string{FeatureOsmSchema, FeatureDenseNodes, FeatureHistoricalInformation},
		hdr.RequiredFeatures)

	assert.Equal(t, []model.Key{
		model.NodeKey(-1),
		model.NodeKey(1),
		model.NodeKey(2),
		model.WayKey(10),
		model.RelationKey(100),
	}, slices.SortedFunc(maps.Keys(decoded), model.Key.Compare))

	moved, ok := decoded[model.NodeKey(2)].(*model.Node)
	require.True(t, ok)
	assert.True(t, moved.Lat.EqualWithin(51.3, model.E7))
	assert.True(t, moved.Info.Visible)

	deleted, ok := decoded[model.RelationKey(100)].(*model.Relation)
	require.True(t, ok)
	assert.False(t, deleted.Info.Visible)
	assert.Equal(t, int32(6), deleted.Info.Version)
	assert.Equal(t, r100.Members, deleted.Members)

	// the base entity is left untouched
	assert.True(t, r100.Info.Visible)
	assert.Equal(t, int32(5), r100.Info.Version)
}

func TestWriteChangeset_Empty(t *testing.T) {
	g := NewGraph(node(1))

	var buf bytes.Buffer

	require.NoError(t, WriteChangeset(&buf, NewDifference(g, g), WithStorePath(t.TempDir())))

	_, decoded := decodeAll(t, buf.Bytes())
	assert.Empty(t, decoded)
}

func TestTombstone(t *testing.T) {
	w := way(1, 1, 2)

	gone, ok := tombstone(w).(*model.Way)
	require.True(t, ok)
	assert.Equal(t, int32(1), gone.Info.Version)
	assert.False(t, gone.Info.Visible)
	assert.Equal(t, w.NodeIDs, gone.NodeIDs)
	assert.Nil(t, w.Info)

	assert.Nil(t, tombstone(nil))
}
