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

// Package model contains the OpenStreetMap entity values shared by the
// graph, the difference engine and the PBF encoders/decoders.
//
// Entities are immutable once constructed. Every update method returns a
// new value, or the receiver itself when the update would not change the
// entity's state. Callers must never assign to the fields of an entity
// that has been handed to a Graph.
package model

import (
	"slices"
	"time"
)

// UID is the primary key for a user.
type UID int32

// Info represents information common to Node, Way, and Relation entities.
type Info struct {
	Version   int32
	UID       UID
	Timestamp time.Time
	Changeset int64
	User      string
	Visible   bool
}

// Entity is implemented by *Node, *Way and *Relation.
type Entity interface {
	isEntity() // prevents extensions

	GetID() ID

	GetKey() Key

	GetType() EntityType

	GetTags() Tags

	GetInfo() *Info

	// Refs returns the keys of the entities this entity references: the
	// nodes of a way or the members of a relation.
	Refs() []Key

	// Equal reports whether both entities have the same semantic state.
	// Metadata held in Info does not take part in the comparison.
	Equal(o Entity) bool
}

// Node represents a specific point on the earth's surface defined by its
// latitude and longitude. Each node comprises at least an id number and a
// pair of coordinates.
type Node struct {
	ID   ID
	Tags Tags
	Info *Info
	Lat  Degrees
	Lon  Degrees
}

var _ Entity = (*Node)(nil)

func (n *Node) isEntity() {}

func (n *Node) GetID() ID {
	return n.ID
}

func (n *Node) GetKey() Key {
	return Key{Type: NODE, ID: n.ID}
}

func (n *Node) GetType() EntityType {
	return NODE
}

func (n *Node) GetTags() Tags {
	return n.Tags
}

func (n *Node) GetInfo() *Info {
	return n.Info
}

func (n *Node) Refs() []Key {
	return nil
}

func (n *Node) Equal(o Entity) bool {
	other, ok := o.(*Node)
	if !ok || other == nil {
		return false
	}

	if n == other {
		return true
	}

	return n.ID == other.ID && n.Lat == other.Lat && n.Lon == other.Lon && n.Tags.Equal(other.Tags)
}

// Moved reports whether o sits at a different location than n.
func (n *Node) Moved(o *Node) bool {
	return n.Lat != o.Lat || n.Lon != o.Lon
}

// Move returns the node relocated to lat, lon.
func (n *Node) Move(lat, lon Degrees) *Node {
	if n.Lat == lat && n.Lon == lon {
		return n
	}

	c := *n
	c.Lat = lat
	c.Lon = lon

	return &c
}

// WithTags returns the node carrying exactly tags.
func (n *Node) WithTags(tags Tags) *Node {
	if n.Tags.Equal(tags) {
		return n
	}

	c := *n
	c.Tags = tags.Clone()

	return &c
}

// MergeTags returns the node with tags added to, or overriding, its own.
func (n *Node) MergeTags(tags Tags) *Node {
	return n.WithTags(n.Tags.Merge(tags))
}

// Way is an ordered list of between 2 and 2,000 nodes that define a polyline.
// A way whose last node repeats its first node is a closed ring.
type Way struct {
	ID      ID
	Tags    Tags
	Info    *Info
	NodeIDs []ID
}

var _ Entity = (*Way)(nil)

func (w *Way) isEntity() {}

func (w *Way) GetID() ID {
	return w.ID
}

func (w *Way) GetKey() Key {
	return Key{Type: WAY, ID: w.ID}
}

func (w *Way) GetType() EntityType {
	return WAY
}

func (w *Way) GetTags() Tags {
	return w.Tags
}

func (w *Way) GetInfo() *Info {
	return w.Info
}

func (w *Way) Refs() []Key {
	keys := make([]Key, len(w.NodeIDs))
	for i, id := range w.NodeIDs {
		keys[i] = Key{Type: NODE, ID: id}
	}

	return keys
}

func (w *Way) Equal(o Entity) bool {
	other, ok := o.(*Way)
	if !ok || other == nil {
		return false
	}

	if w == other {
		return true
	}

	return w.ID == other.ID && slices.Equal(w.NodeIDs, other.NodeIDs) && w.Tags.Equal(other.Tags)
}

// IsClosed reports whether the way forms a ring.
func (w *Way) IsClosed() bool {
	return len(w.NodeIDs) > 1 && w.NodeIDs[0] == w.NodeIDs[len(w.NodeIDs)-1]
}

// Contains reports whether the way references the node id.
func (w *Way) Contains(id ID) bool {
	return slices.Contains(w.NodeIDs, id)
}

// WithTags returns the way carrying exactly tags.
func (w *Way) WithTags(tags Tags) *Way {
	if w.Tags.Equal(tags) {
		return w
	}

	c := *w
	c.Tags = tags.Clone()

	return &c
}

// MergeTags returns the way with tags added to, or overriding, its own.
func (w *Way) MergeTags(tags Tags) *Way {
	return w.WithTags(w.Tags.Merge(tags))
}

// WithNodes returns the way referencing exactly ids.
func (w *Way) WithNodes(ids []ID) *Way {
	if slices.Equal(w.NodeIDs, ids) {
		return w
	}

	c := *w
	c.NodeIDs = slices.Clone(ids)

	return &c
}

// AddNode returns the way with id appended. On a closed way the node is
// inserted before the closing node so the ring stays closed.
func (w *Way) AddNode(id ID) *Way {
	if w.IsClosed() {
		return w.AddNodeAt(len(w.NodeIDs)-1, id)
	}

	return w.AddNodeAt(len(w.NodeIDs), id)
}

// AddNodeAt returns the way with id inserted at index. An out of range
// index is clamped to the ends of the node list.
func (w *Way) AddNodeAt(index int, id ID) *Way {
	index = max(0, min(index, len(w.NodeIDs)))

	nodes := make([]ID, 0, len(w.NodeIDs)+1)
	nodes = append(nodes, w.NodeIDs[:index]...)
	nodes = append(nodes, id)
	nodes = append(nodes, w.NodeIDs[index:]...)

	c := *w
	c.NodeIDs = nodes

	return &c
}

// RemoveNode returns the way with every occurrence of id removed. A closed
// way that loses its closing node is closed again on its new first node.
func (w *Way) RemoveNode(id ID) *Way {
	if !w.Contains(id) {
		return w
	}

	closed := w.IsClosed()

	nodes := make([]ID, 0, len(w.NodeIDs))
	for _, n := range w.NodeIDs {
		if n != id {
			nodes = append(nodes, n)
		}
	}

	// collapse consecutive duplicates left behind by the removal
	nodes = slices.Compact(nodes)

	if closed && len(nodes) > 1 && nodes[0] != nodes[len(nodes)-1] {
		nodes = append(nodes, nodes[0])
	}

	return w.WithNodes(nodes)
}

// Relation is a multipurpose data structure that documents a relationship
// between two or more data entities (nodes, ways, and/or other relations).
type Relation struct {
	ID      ID
	Tags    Tags
	Info    *Info
	Members []Member
}

var _ Entity = (*Relation)(nil)

func (r *Relation) isEntity() {}

func (r *Relation) GetID() ID {
	return r.ID
}

func (r *Relation) GetKey() Key {
	return Key{Type: RELATION, ID: r.ID}
}

func (r *Relation) GetType() EntityType {
	return RELATION
}

func (r *Relation) GetTags() Tags {
	return r.Tags
}

func (r *Relation) GetInfo() *Info {
	return r.Info
}

func (r *Relation) Refs() []Key {
	keys := make([]Key, len(r.Members))
	for i, m := range r.Members {
		keys[i] = m.Key()
	}

	return keys
}

func (r *Relation) Equal(o Entity) bool {
	other, ok := o.(*Relation)
	if !ok || other == nil {
		return false
	}

	if r == other {
		return true
	}

	return r.ID == other.ID && slices.Equal(r.Members, other.Members) && r.Tags.Equal(other.Tags)
}

// IsMultipolygon reports whether the relation is tagged type=multipolygon.
func (r *Relation) IsMultipolygon() bool {
	return r.Tags["type"] == "multipolygon"
}

// WithTags returns the relation carrying exactly tags.
func (r *Relation) WithTags(tags Tags) *Relation {
	if r.Tags.Equal(tags) {
		return r
	}

	c := *r
	c.Tags = tags.Clone()

	return &c
}

// MergeTags returns the relation with tags added to, or overriding, its own.
func (r *Relation) MergeTags(tags Tags) *Relation {
	return r.WithTags(r.Tags.Merge(tags))
}

// WithMembers returns the relation with exactly members.
func (r *Relation) WithMembers(members []Member) *Relation {
	if slices.Equal(r.Members, members) {
		return r
	}

	c := *r
	c.Members = slices.Clone(members)

	return &c
}

// AddMember returns the relation with m appended.
func (r *Relation) AddMember(m Member) *Relation {
	return r.WithMembers(append(slices.Clone(r.Members), m))
}

// UpdateMember returns the relation with the member at index replaced by m.
// An out of range index returns the receiver.
func (r *Relation) UpdateMember(m Member, index int) *Relation {
	if index < 0 || index >= len(r.Members) {
		return r
	}

	members := slices.Clone(r.Members)
	members[index] = m

	return r.WithMembers(members)
}

// RemoveMember returns the relation without the member at index.
func (r *Relation) RemoveMember(index int) *Relation {
	if index < 0 || index >= len(r.Members) {
		return r
	}

	return r.WithMembers(slices.Delete(slices.Clone(r.Members), index, index+1))
}

// EntityType is an enumeration of OSM entity types.
type EntityType int32

const (
	// NODE denotes that the member is a node.
	NODE EntityType = iota

	// WAY denotes that the member is a way.
	WAY

	// RELATION denotes that the member is a relation.
	RELATION
)

func (t EntityType) String() string {
	switch t {
	case NODE:
		return "node"
	case WAY:
		return "way"
	case RELATION:
		return "relation"
	default:
		return "unknown"
	}
}

// Member represents an entity that belongs to a relation, in a given role.
type Member struct {
	ID   ID
	Type EntityType
	Role string
}

// Key returns the key of the member entity.
func (m Member) Key() Key {
	return Key{Type: m.Type, ID: m.ID}
}
