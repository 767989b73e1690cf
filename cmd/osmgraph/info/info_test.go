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

package info

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmgraph"
	"m4o.io/osmgraph/model"
)

var replicated = time.Date(2014, time.March, 24, 21, 55, 2, 0, time.UTC)

func extract(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer

	enc, err := osmgraph.NewEncoder(&buf,
		osmgraph.WithStorePath(t.TempDir()),
		osmgraph.WithWritingProgram("osmgraph-test"),
		osmgraph.WithOsmosisReplicationTimestamp(replicated))
	require.NoError(t, err)

	gone := &model.Info{Version: 2, Visible: false}

	require.NoError(t, enc.EncodeBatch([]model.Entity{
		&model.Node{ID: 1, Lat: 51.28554, Lon: -0.511482},
		&model.Node{ID: 2, Lat: 51.69344, Lon: 0.335437},
		&model.Node{ID: 3, Lat: 51.5, Lon: 0, Info: gone},
		&model.Way{ID: 1, NodeIDs: []model.ID{1, 2}},
		&model.Relation{ID: 1, Members: []model.Member{{ID: 1, Type: model.WAY}}},
	}))
	require.NoError(t, enc.Close())

	return buf.Bytes()
}

func TestRunInfo(t *testing.T) {
	for _, extended := range []bool{false, true} {
		info, err := runInfo(context.Background(), bytes.NewReader(extract(t)), 2, extended)
		require.NoError(t, err)

		bbox := &model.BoundingBox{Left: -0.511482, Right: 0.335437, Top: 51.69344, Bottom: 51.28554}

		require.NotNil(t, info.BoundingBox)
		assert.True(t, info.BoundingBox.EqualWithin(bbox, model.E6))
		assert.Equal(t, []string{"OsmSchema-V0.6", "DenseNodes"}, info.RequiredFeatures)
		assert.Equal(t, "osmgraph-test", info.WritingProgram)
		assert.True(t, replicated.Equal(info.OsmosisReplicationTimestamp))

		if extended {
			assert.Equal(t, int64(2), info.NodeCount)
			assert.Equal(t, int64(1), info.WayCount)
			assert.Equal(t, int64(1), info.RelationCount)
		} else {
			assert.Zero(t, info.NodeCount)
		}
	}
}

func TestRunInfo_Invalid(t *testing.T) {
	_, err := runInfo(context.Background(), bytes.NewReader([]byte("not a pbf")), 1, false)
	assert.Error(t, err)
}

func sampleHeader() *extendedHeader {
	return &extendedHeader{
		Header: model.Header{
			BoundingBox:                 &model.BoundingBox{Left: -0.511482, Right: 0.335437, Top: 51.69344, Bottom: 51.28554},
			RequiredFeatures:            []string{"OsmSchema-V0.6", "DenseNodes"},
			OptionalFeatures:            []string{"Pbf"},
			WritingProgram:              "Osmium (http://wiki.openstreetmap.org/wiki/Osmium)",
			Source:                      "pbf",
			OsmosisReplicationTimestamp: replicated,
			OsmosisReplicationBaseURL:   "https://planet.openstreetmap.org/replication/minute",
		},
		NodeCount:     int64(2729006),
		WayCount:      int64(459055),
		RelationCount: int64(12833),
	}
}

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()

	buf := &bytes.Buffer{}
	saved := out
	out = buf

	t.Cleanup(func() { out = saved })

	return buf
}

func TestRenderJSON(t *testing.T) {
	buf := capture(t)

	require.NoError(t, renderJSON(sampleHeader(), true))

	info := &extendedHeader{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), info))

	expected := sampleHeader()
	assert.True(t, info.BoundingBox.EqualWithin(expected.BoundingBox, model.E6))
	assert.Equal(t, expected.RequiredFeatures, info.RequiredFeatures)
	assert.Equal(t, expected.WritingProgram, info.WritingProgram)
	assert.True(t, replicated.Equal(info.OsmosisReplicationTimestamp))
	assert.Equal(t, int64(2729006), info.NodeCount)
	assert.Equal(t, int64(459055), info.WayCount)
	assert.Equal(t, int64(12833), info.RelationCount)
}

func TestRenderJSON_HeaderOnly(t *testing.T) {
	buf := capture(t)

	require.NoError(t, renderJSON(sampleHeader(), false))
	assert.NotContains(t, buf.String(), "node_count")
}

func TestRenderText(t *testing.T) {
	buf := capture(t)

	renderTxt(sampleHeader(), true)

	assert.Equal(t, `BoundingBox: [(51.69344, -0.511482) (51.28554, 0.335437)]
RequiredFeatures: OsmSchema-V0.6, DenseNodes
OptionalFeatures: Pbf
WritingProgram: Osmium (http://wiki.openstreetmap.org/wiki/Osmium)
Source: pbf
OsmosisReplicationTimestamp: 2014-03-24T21:55:02Z
OsmosisReplicationSequenceNumber: 0
OsmosisReplicationBaseURL: https://planet.openstreetmap.org/replication/minute
NodeCount: 2,729,006
WayCount: 459,055
RelationCount: 12,833
`, buf.String())
}
