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

package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"m4o.io/osmgraph/model"
)

func TestNode_Move(t *testing.T) {
	n := &model.Node{ID: 1, Lat: 1, Lon: 2}

	moved := n.Move(3, 4)
	assert.NotSame(t, n, moved)
	assert.Equal(t, model.Degrees(1), n.Lat, "receiver must not be mutated")
	assert.Equal(t, model.Degrees(3), moved.Lat)
	assert.Equal(t, model.Degrees(4), moved.Lon)
	assert.True(t, n.Moved(moved))

	assert.Same(t, n, n.Move(1, 2))
}

func TestNode_Tags(t *testing.T) {
	n := &model.Node{ID: 1, Tags: model.Tags{"crossing": "marked"}}

	merged := n.MergeTags(model.Tags{"highway": "crossing"})
	assert.Equal(t, model.Tags{"crossing": "marked", "highway": "crossing"}, merged.Tags)
	assert.Equal(t, model.Tags{"crossing": "marked"}, n.Tags)

	assert.Same(t, n, n.MergeTags(model.Tags{"crossing": "marked"}))
	assert.Same(t, n, n.WithTags(model.Tags{"crossing": "marked"}))

	bare := &model.Node{ID: 2}
	assert.Same(t, bare, bare.WithTags(model.Tags{}))
}

func TestNode_Equal(t *testing.T) {
	n := &model.Node{ID: 1, Lat: 1, Lon: 2, Tags: model.Tags{"a": "b"}, Info: &model.Info{Version: 1}}
	c := &model.Node{ID: 1, Lat: 1, Lon: 2, Tags: model.Tags{"a": "b"}, Info: &model.Info{Version: 2}}

	assert.True(t, n.Equal(n))
	assert.True(t, n.Equal(c), "metadata does not take part in equality")
	assert.False(t, n.Equal(n.Move(1, 3)))
	assert.False(t, n.Equal(n.MergeTags(model.Tags{"a": "c"})))
	assert.False(t, n.Equal(&model.Way{ID: 1}))
	assert.False(t, n.Equal((*model.Node)(nil)))
}

func TestWay_AddNode(t *testing.T) {
	w := &model.Way{ID: 1, NodeIDs: []model.ID{1, 2}}

	added := w.AddNode(3)
	assert.Equal(t, []model.ID{1, 2, 3}, added.NodeIDs)
	assert.Equal(t, []model.ID{1, 2}, w.NodeIDs)

	ring := &model.Way{ID: 2, NodeIDs: []model.ID{1, 2, 3, 1}}
	assert.Equal(t, []model.ID{1, 2, 3, 4, 1}, ring.AddNode(4).NodeIDs)

	assert.Equal(t, []model.ID{9, 1, 2}, w.AddNodeAt(-5, 9).NodeIDs)
	assert.Equal(t, []model.ID{1, 9, 2}, w.AddNodeAt(1, 9).NodeIDs)
	assert.Equal(t, []model.ID{1, 2, 9}, w.AddNodeAt(50, 9).NodeIDs)
}

func TestWay_RemoveNode(t *testing.T) {
	test_cases := []struct {
		name     string
		nodes    []model.ID
		remove   model.ID
		expected []model.ID
	}{
		{"middle", []model.ID{1, 2, 3}, 2, []model.ID{1, 3}},
		{"end", []model.ID{1, 2}, 2, []model.ID{1}},
		{"every occurrence", []model.ID{1, 2, 3, 2, 4}, 2, []model.ID{1, 3, 4}},
		{"adjacent duplicates collapse", []model.ID{1, 2, 1, 3}, 2, []model.ID{1, 3}},
		{"closing node reclosed", []model.ID{1, 2, 3, 1}, 1, []model.ID{2, 3, 2}},
		{"ring interior", []model.ID{1, 2, 3, 4, 1}, 3, []model.ID{1, 2, 4, 1}},
	}

	for _, tc := range test_cases {
		t.Run(tc.name, func(t *testing.T) {
			w := &model.Way{ID: 1, NodeIDs: tc.nodes}
			assert.Equal(t, tc.expected, w.RemoveNode(tc.remove).NodeIDs)
		})
	}

	w := &model.Way{ID: 1, NodeIDs: []model.ID{1, 2}}
	assert.Same(t, w, w.RemoveNode(7))
}

func TestWay_Equal(t *testing.T) {
	w := &model.Way{ID: 1, NodeIDs: []model.ID{1, 2}}

	assert.True(t, w.Equal(&model.Way{ID: 1, NodeIDs: []model.ID{1, 2}, Tags: model.Tags{}}))
	assert.False(t, w.Equal(w.AddNode(3)))
	assert.False(t, w.Equal(w.MergeTags(model.Tags{"highway": "primary"})))
	assert.True(t, w.IsClosed() == false)
	assert.Same(t, w, w.WithNodes([]model.ID{1, 2}))
}

func TestWay_Refs(t *testing.T) {
	w := &model.Way{ID: 1, NodeIDs: []model.ID{1, 2}}

	assert.Equal(t, []model.Key{model.NodeKey(1), model.NodeKey(2)}, w.Refs())
	assert.Equal(t, model.WayKey(1), w.GetKey())
}

func TestRelation_Members(t *testing.T) {
	r := &model.Relation{
		ID:   1,
		Tags: model.Tags{"type": "multipolygon"},
		Members: []model.Member{
			{ID: 1, Type: model.WAY, Role: "outer"},
			{ID: 2, Type: model.WAY, Role: ""},
		},
	}

	assert.True(t, r.IsMultipolygon())

	updated := r.UpdateMember(model.Member{ID: 2, Type: model.WAY, Role: "inner"}, 1)
	assert.NotSame(t, r, updated)
	assert.Equal(t, "", r.Members[1].Role)
	assert.Equal(t, "inner", updated.Members[1].Role)
	assert.False(t, r.Equal(updated))

	assert.Same(t, r, r.UpdateMember(model.Member{ID: 2, Type: model.WAY}, 1))
	assert.Same(t, r, r.UpdateMember(model.Member{ID: 2, Type: model.WAY}, 5))

	added := r.AddMember(model.Member{ID: 3, Type: model.NODE, Role: "label"})
	assert.Len(t, added.Members, 3)
	assert.Len(t, r.Members, 2)

	removed := added.RemoveMember(0)
	assert.Equal(t, []model.Key{model.WayKey(2), model.NodeKey(3)}, removed.Refs())
	assert.Same(t, added, added.RemoveMember(-1))
}

func TestEntityType_String(t *testing.T) {
	assert.Equal(t, "node", model.NODE.String())
	assert.Equal(t, "way", model.WAY.String())
	assert.Equal(t, "relation", model.RELATION.String())
	assert.Equal(t, "unknown", model.EntityType(7).String())
}
