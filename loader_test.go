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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmgraph/model"
)

func TestLoad(t *testing.T) {
	g, hdr, err := Load(context.Background(), bytes.NewReader(encodeFixture(t, fixture())))
	require.NoError(t, err)

	assert.Equal(t, 5, g.Len())
	assert.Nil(t, g.Base())
	assert.Contains(t, hdr.RequiredFeatures, FeatureDenseNodes)

	w, err := g.Way(10)
	require.NoError(t, err)
	assert.Equal(t, "Mill Lane", w.Tags["name"])

	nodes, err := g.ChildNodes(w)
	require.NoError(t, err)
	assert.Len(t, nodes, 3)

	assert.Equal(t, []model.Key{model.WayKey(10)}, g.ParentWayKeys(model.NodeKey(2)))
	assert.Equal(t, []model.Key{model.RelationKey(100)}, g.ParentRelationKeys(model.WayKey(10)))
}

func TestLoad_History(t *testing.T) {
	gone := fixtureInfo(2)
	gone.Visible = false

	entities := []model.Entity{
		&model.Node{ID: 1, Lat: 1, Lon: 1, Info: fixtureInfo(2)},
		&model.Node{ID: 1, Lat: 5, Lon: 5, Info: fixtureInfo(1)},
		&model.Node{ID: 2, Lat: 2, Lon: 2, Info: fixtureInfo(1)},
		&model.Node{ID: 2, Lat: 2, Lon: 2, Info: gone},
		&model.Way{ID: 3, NodeIDs: []model.ID{1, 2}, Info: fixtureInfo(1)},
		&model.Way{ID: 3, NodeIDs: []model.ID{1}, Info: fixtureInfo(3)},
	}

	g, _, err := Load(context.Background(), bytes.NewReader(encodeFixture(t, entities)))
	require.NoError(t, err)

	assert.Equal(t, 2, g.Len())

	n, err := g.Node(1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), n.Info.Version)
	assert.True(t, n.Lat.EqualWithin(1, model.E7))

	assert.False(t, g.HasEntity(model.NodeKey(2)))

	w, err := g.Way(3)
	require.NoError(t, err)
	assert.Equal(t, []model.ID{1}, w.NodeIDs)
}

func TestLoad_Errors(t *testing.T) {
	_, _, err := Load(context.Background(), bytes.NewReader([]byte{1, 2, 3}))
	assert.Error(t, err)

	data := encodeFixture(t, fixture())

	_, _, err = Load(context.Background(), bytes.NewReader(data[:len(data)-1]))
	assert.Error(t, err)
}
