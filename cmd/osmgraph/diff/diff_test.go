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

package diff

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmgraph"
	"m4o.io/osmgraph/cmd/osmgraph/cli"
	"m4o.io/osmgraph/model"
)

func baseEntities() []model.Entity {
	return []model.Entity{
		&model.Node{ID: 1, Lat: 0, Lon: 0},
		&model.Node{ID: 2, Lat: 0, Lon: 0.001},
		&model.Node{ID: 3, Lat: 1, Lon: 1, Tags: model.Tags{"amenity": "bench"}},
		&model.Way{ID: 1, NodeIDs: []model.ID{1, 2}, Tags: model.Tags{"highway": "residential", "name": "Mill Lane"}},
	}
}

func headEntities() []model.Entity {
	return []model.Entity{
		&model.Node{ID: 1, Lat: 0, Lon: 0},
		&model.Node{ID: 2, Lat: 0, Lon: 0.002},
		&model.Node{ID: 4, Lat: 1, Lon: 2, Tags: model.Tags{"shop": "bakery", "name": "Bakery"}},
		&model.Way{ID: 1, NodeIDs: []model.ID{1, 2}, Tags: model.Tags{"highway": "residential", "name": "Mill Lane"}},
	}
}

func difference() *osmgraph.Difference {
	base := osmgraph.NewGraph(baseEntities()...)

	return osmgraph.NewDifference(base, derive(base, osmgraph.NewGraph(headEntities()...)))
}

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()

	buf := &bytes.Buffer{}
	saved := out
	out = buf

	t.Cleanup(func() { out = saved })

	return buf
}

func TestDerive(t *testing.T) {
	base := osmgraph.NewGraph(baseEntities()...)
	head := derive(base, osmgraph.NewGraph(headEntities()...))

	assert.Same(t, base, head.Base())
	assert.Equal(t, 4, head.Len())
	assert.False(t, head.HasEntity(model.NodeKey(3)))

	n1, err := head.Node(1)
	require.NoError(t, err)

	orig, err := base.Node(1)
	require.NoError(t, err)
	assert.Same(t, orig, n1, "unchanged entities keep their base state")

	diff := osmgraph.NewDifference(base, head)
	assert.Equal(t, []model.Key{model.NodeKey(2), model.NodeKey(3), model.NodeKey(4)}, diff.Keys())
}

func TestSummaryRows(t *testing.T) {
	rows := summaryRows(difference())

	assert.Equal(t, []row{
		{Key: "n3", Change: osmgraph.Deleted, Name: "amenity=bench"},
		{Key: "n4", Change: osmgraph.Created, Name: "Bakery"},
		{Key: "w1", Change: osmgraph.Modified, Name: "Mill Lane"},
	}, rows)
}

func TestCompleteRows(t *testing.T) {
	rows := completeRows(difference())
	require.Len(t, rows, 4)

	assert.Equal(t, "n2", rows[0].Key)
	assert.Equal(t, osmgraph.Modified, rows[0].Change)
	assert.InDelta(t, 111.2, rows[0].Moved, 0.1)

	assert.Equal(t, row{Key: "n3", Change: osmgraph.Deleted, Name: "amenity=bench"}, rows[1])
	assert.Equal(t, row{Key: "n4", Change: osmgraph.Created, Name: "Bakery"}, rows[2])
	assert.Equal(t, row{Key: "w1", Change: osmgraph.Modified, Context: true, Name: "Mill Lane"}, rows[3])
}

func TestRenderJSON(t *testing.T) {
	buf := capture(t)

	require.NoError(t, renderJSON(summaryRows(difference())))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, "n3", decoded[0]["key"])
	assert.Equal(t, "deleted", decoded[0]["change"])
	assert.NotContains(t, decoded[0], "moved_meters")
}

func TestRenderJSON_Empty(t *testing.T) {
	buf := capture(t)

	require.NoError(t, renderJSON(nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestRenderTable(t *testing.T) {
	buf := capture(t)

	diff := difference()
	require.NoError(t, renderTable(diff, completeRows(diff)))

	s := buf.String()
	assert.Contains(t, s, "Mill Lane")
	assert.Contains(t, s, "context")
	assert.Contains(t, s, "111.2 m")
	assert.Contains(t, s, "created: 1, modified: 1, deleted: 1\n")
}

func writeExtract(t *testing.T, name string, entities []model.Entity) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)

	f, err := os.Create(path)
	require.NoError(t, err)

	defer f.Close()

	enc, err := osmgraph.NewEncoder(f, osmgraph.WithStorePath(t.TempDir()))
	require.NoError(t, err)
	require.NoError(t, enc.EncodeBatch(entities))
	require.NoError(t, enc.Close())

	return path
}

func TestLoadDiff(t *testing.T) {
	viper.Set(cli.KeyQuiet, true)

	base := writeExtract(t, "base.osm.pbf", baseEntities())
	head := writeExtract(t, "head.osm.pbf", headEntities())

	diff, err := loadDiff(context.Background(), base, head)
	require.NoError(t, err)
	assert.Equal(t, 3, diff.Len())

	_, err = loadDiff(context.Background(), base, filepath.Join(t.TempDir(), "missing.osm.pbf"))
	assert.Error(t, err)
}

func TestDiffCommand(t *testing.T) {
	viper.Set(cli.KeyQuiet, true)
	buf := capture(t)

	base := writeExtract(t, "base.osm.pbf", baseEntities())
	head := writeExtract(t, "head.osm.pbf", headEntities())
	changes := filepath.Join(t.TempDir(), "changes.osm.pbf")

	cli.RootCmd.SetArgs([]string{"diff", "--json", "--compression", "zstd", "--out", changes, base, head})
	require.NoError(t, cli.RootCmd.Execute())

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded, 3)

	f, err := os.Open(changes)
	require.NoError(t, err)

	defer f.Close()

	d, err := osmgraph.NewDecoder(context.Background(), f)
	require.NoError(t, err)

	defer d.Close()

	assert.Contains(t, d.Header.RequiredFeatures, osmgraph.FeatureHistoricalInformation)

	var n int

	for {
		entities, err := d.Decode()
		if errors.Is(err, io.EOF) {
			break
		}

		require.NoError(t, err)

		n += len(entities)
	}

	assert.Equal(t, 4, n)
}
