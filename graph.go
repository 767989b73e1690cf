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

// Package osmgraph provides a versioned, immutable graph of OpenStreetMap
// entities and the Difference engine that compares two of its versions.
//
// # Versions
//
// A Graph is never modified once it has been returned. Replace, Remove,
// Revert and Update each return a new Graph derived from the receiver,
// which stays valid to query. Keeping a reference to an older Graph is
// all that undo requires.
//
// Entities, and the indices of the ways and relations that reference an
// entity, are held in persistent hash array mapped tries. Deriving a new
// version copies only the trie paths of the keys it touches, so the cost
// of an edit depends on the size of the edit, not the size of the graph,
// and lookups do not slow down as the edit history grows.
//
// # Ownership
//
// Entities are stored by pointer and are not copied. They MUST NOT be
// mutated after being handed to a Graph; use the update methods of the
// model package, which return new values.
//
// # Thread Safety
//
// Graphs and Differences are safe for concurrent reads. Editing is
// synchronous and, being copy-on-write, needs no locking.
package osmgraph

import (
	"fmt"
	"iter"
	"slices"

	"github.com/benbjohnson/immutable"

	"m4o.io/osmgraph/model"
)

type (
	entityMap = immutable.Map[model.Key, model.Entity]
	parentMap = immutable.Map[model.Key, []model.Key]
)

// Graph is an immutable snapshot of entities plus the derived indices of
// parent ways and parent relations.
type Graph struct {
	base   *Graph
	origin *Graph
	gen    uint64
	live   int

	// touched holds the keys written by the edit that produced this
	// version. It is empty for an origin graph, whose keys are those of
	// its entities.
	touched map[model.Key]struct{}

	// entities maps keys to entities. A nil entity is a tombstone left by
	// Remove.
	entities   *entityMap
	parentWays *parentMap
	parentRels *parentMap
}

// NewGraph returns the first version of a graph, seeded with entities.
func NewGraph(entities ...model.Entity) *Graph {
	eb := immutable.NewMapBuilder[model.Key, model.Entity](keyHasher{})
	ways := make(map[model.Key][]model.Key)
	rels := make(map[model.Key][]model.Key)

	for _, e := range entities {
		key := e.GetKey()
		if old, ok := eb.Get(key); ok {
			// a later entity with the same key wins
			unlink(ways, rels, key, old)
		}

		eb.Set(key, e)
		link(ways, rels, key, e)
	}

	g := &Graph{
		entities:   eb.Map(),
		parentWays: buildParentMap(ways),
		parentRels: buildParentMap(rels),
	}
	g.origin = g
	g.live = g.entities.Len()

	return g
}

func link(ways, rels map[model.Key][]model.Key, key model.Key, e model.Entity) {
	index := ways
	if key.Type == model.RELATION {
		index = rels
	}

	for _, ref := range uniqueRefs(e) {
		index[ref] = append(index[ref], key)
	}
}

func unlink(ways, rels map[model.Key][]model.Key, key model.Key, e model.Entity) {
	index := ways
	if key.Type == model.RELATION {
		index = rels
	}

	for _, ref := range uniqueRefs(e) {
		index[ref] = slices.DeleteFunc(index[ref], func(k model.Key) bool { return k == key })
	}
}

func buildParentMap(index map[model.Key][]model.Key) *parentMap {
	b := immutable.NewMapBuilder[model.Key, []model.Key](keyHasher{})

	for k, parents := range index {
		if len(parents) > 0 {
			b.Set(k, parents)
		}
	}

	return b.Map()
}

// Base returns the version this graph was derived from, nil for the first
// version of a history.
func (g *Graph) Base() *Graph {
	return g.base
}

// Origin returns the first version of this graph's history. Revert restores
// entities to their state in the origin.
func (g *Graph) Origin() *Graph {
	return g.origin
}

// Generation returns the number of edits between the origin and this
// version.
func (g *Graph) Generation() uint64 {
	return g.gen
}

// Len returns the number of entities, not counting deleted ones.
func (g *Graph) Len() int {
	return g.live
}

// Entity returns the entity stored under key. It fails with ErrDeleted if
// the entity was removed and with ErrNotFound if the key is unknown.
func (g *Graph) Entity(key model.Key) (model.Entity, error) {
	e, ok := g.entities.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrDeleted, key)
	}

	return e, nil
}

// HasEntity reports whether an entity is stored under key.
func (g *Graph) HasEntity(key model.Key) bool {
	return g.lookup(key) != nil
}

// Node returns the node id.
func (g *Graph) Node(id model.ID) (*model.Node, error) {
	e, err := g.Entity(model.NodeKey(id))
	if err != nil {
		return nil, err
	}

	return e.(*model.Node), nil
}

// Way returns the way id.
func (g *Graph) Way(id model.ID) (*model.Way, error) {
	e, err := g.Entity(model.WayKey(id))
	if err != nil {
		return nil, err
	}

	return e.(*model.Way), nil
}

// Relation returns the relation id.
func (g *Graph) Relation(id model.ID) (*model.Relation, error) {
	e, err := g.Entity(model.RelationKey(id))
	if err != nil {
		return nil, err
	}

	return e.(*model.Relation), nil
}

// lookup returns the entity stored under key, or nil if it is missing.
func (g *Graph) lookup(key model.Key) model.Entity {
	e, _ := g.entities.Get(key)

	return e
}

// Entities iterates over every entity of the graph in no particular order.
func (g *Graph) Entities() iter.Seq[model.Entity] {
	return func(yield func(model.Entity) bool) {
		itr := g.entities.Iterator()
		for !itr.Done() {
			_, e, _ := itr.Next()
			if e == nil {
				continue
			}

			if !yield(e) {
				return
			}
		}
	}
}

// ChildNodes returns the nodes of the way, in order, as of this version.
func (g *Graph) ChildNodes(w *model.Way) ([]*model.Node, error) {
	nodes := make([]*model.Node, len(w.NodeIDs))

	for i, id := range w.NodeIDs {
		e := g.lookup(model.NodeKey(id))
		if e == nil {
			return nil, fmt.Errorf("%w: way %s references missing node %s",
				ErrDanglingReference, w.GetKey(), model.NodeKey(id))
		}

		nodes[i] = e.(*model.Node)
	}

	return nodes, nil
}

// ParentWayKeys returns the keys of the ways that reference key.
func (g *Graph) ParentWayKeys(key model.Key) []model.Key {
	parents, _ := g.parentWays.Get(key)

	return slices.Clone(parents)
}

// ParentRelationKeys returns the keys of the relations that have key as a
// member.
func (g *Graph) ParentRelationKeys(key model.Key) []model.Key {
	parents, _ := g.parentRels.Get(key)

	return slices.Clone(parents)
}

// ParentWays returns the ways that reference the entity.
func (g *Graph) ParentWays(e model.Entity) []*model.Way {
	keys, _ := g.parentWays.Get(e.GetKey())
	ways := make([]*model.Way, 0, len(keys))

	for _, k := range keys {
		ways = append(ways, g.mustLookup(k).(*model.Way))
	}

	return ways
}

// ParentRelations returns the relations that have the entity as a member.
func (g *Graph) ParentRelations(e model.Entity) []*model.Relation {
	keys, _ := g.parentRels.Get(e.GetKey())
	relations := make([]*model.Relation, 0, len(keys))

	for _, k := range keys {
		relations = append(relations, g.mustLookup(k).(*model.Relation))
	}

	return relations
}

// mustLookup resolves a key read from a parent index. The indices only hold
// keys of live entities.
func (g *Graph) mustLookup(key model.Key) model.Entity {
	e := g.lookup(key)
	if e == nil {
		panic(fmt.Errorf("parent index references missing entity %s", key))
	}

	return e
}

// IsVertex reports whether the entity is a node referenced by a way.
func (g *Graph) IsVertex(e model.Entity) bool {
	if e.GetType() != model.NODE {
		return false
	}

	parents, _ := g.parentWays.Get(e.GetKey())

	return len(parents) > 0
}

// Replace returns a new version in which entity is stored under its key.
func (g *Graph) Replace(entity model.Entity) *Graph {
	return g.Update(func(ed *Editor) { ed.Replace(entity) })
}

// Remove returns a new version in which the entity is deleted. References
// to it from ways or relations are left for the caller to fix up.
func (g *Graph) Remove(entity model.Entity) *Graph {
	return g.Update(func(ed *Editor) { ed.Remove(entity) })
}

// Revert returns a new version in which the entity stored under key has
// its state in Origin(). If the origin did not hold the key, the key
// becomes unknown again.
func (g *Graph) Revert(key model.Key) *Graph {
	return g.Update(func(ed *Editor) { ed.Revert(key) })
}

// Update returns a new version holding every edit fn makes through the
// Editor. The Editor must not be retained after fn returns.
func (g *Graph) Update(fn func(ed *Editor)) *Graph {
	next := &Graph{
		base:       g,
		origin:     g.origin,
		gen:        g.gen + 1,
		live:       g.live,
		touched:    make(map[model.Key]struct{}),
		entities:   g.entities,
		parentWays: g.parentWays,
		parentRels: g.parentRels,
	}

	ed := &Editor{g: next}
	fn(ed)
	ed.g = nil

	return next
}

// Editor applies edits to a version of a Graph that has not yet been
// published.
type Editor struct {
	g *Graph
}

// Entity returns the entity stored under key, including the edits made so
// far.
func (ed *Editor) Entity(key model.Key) (model.Entity, error) {
	return ed.g.Entity(key)
}

// Replace stores entity under its key.
func (ed *Editor) Replace(entity model.Entity) {
	g := ed.g
	key := entity.GetKey()

	old, ok := g.entities.Get(key)
	if ok && old == entity {
		return
	}

	g.relink(key, old, entity)
	g.entities = g.entities.Set(key, entity)
	g.touched[key] = struct{}{}

	if old == nil {
		g.live++
	}
}

// Remove deletes the entity, leaving a tombstone.
func (ed *Editor) Remove(entity model.Entity) {
	g := ed.g
	key := entity.GetKey()

	old, ok := g.entities.Get(key)
	if ok && old == nil {
		return
	}

	if old != nil {
		g.relink(key, old, nil)
		g.live--
	} else {
		g.relink(key, entity, nil)
	}

	g.entities = g.entities.Set(key, nil)
	g.touched[key] = struct{}{}
}

// Revert restores the entity stored under key to its state in the origin.
func (ed *Editor) Revert(key model.Key) {
	g := ed.g

	if original, ok := g.origin.entities.Get(key); ok && original != nil {
		ed.Replace(original)

		return
	}

	old, ok := g.entities.Get(key)
	if !ok {
		return
	}

	if old != nil {
		g.relink(key, old, nil)
		g.live--
	}

	g.entities = g.entities.Delete(key)
	g.touched[key] = struct{}{}
}

// relink updates the parent index for the references key drops and gains
// when its entity changes from old to current. Either may be nil.
func (g *Graph) relink(key model.Key, old, current model.Entity) {
	var index **parentMap

	switch key.Type {
	case model.WAY:
		index = &g.parentWays
	case model.RELATION:
		index = &g.parentRels
	default:
		return
	}

	before := refSet(old)
	after := refSet(current)

	for ref := range before {
		if _, ok := after[ref]; !ok {
			*index = removeParent(*index, ref, key)
		}
	}

	for _, ref := range uniqueRefs(current) {
		if _, ok := before[ref]; !ok {
			*index = addParent(*index, ref, key)
		}
	}
}

func addParent(index *parentMap, child, parent model.Key) *parentMap {
	parents, _ := index.Get(child)
	if slices.Contains(parents, parent) {
		return index
	}

	next := make([]model.Key, len(parents), len(parents)+1)
	copy(next, parents)

	return index.Set(child, append(next, parent))
}

func removeParent(index *parentMap, child, parent model.Key) *parentMap {
	parents, _ := index.Get(child)

	i := slices.Index(parents, parent)
	if i < 0 {
		return index
	}

	if len(parents) == 1 {
		return index.Delete(child)
	}

	return index.Set(child, slices.Delete(slices.Clone(parents), i, i+1))
}

func refSet(e model.Entity) map[model.Key]struct{} {
	refs := uniqueRefs(e)
	set := make(map[model.Key]struct{}, len(refs))

	for _, r := range refs {
		set[r] = struct{}{}
	}

	return set
}

// uniqueRefs returns the distinct references of the entity, in order.
func uniqueRefs(e model.Entity) []model.Key {
	if e == nil {
		return nil
	}

	refs := e.Refs()
	if len(refs) == 0 {
		return nil
	}

	seen := make(map[model.Key]struct{}, len(refs))
	unique := refs[:0]

	for _, r := range refs {
		if _, ok := seen[r]; !ok {
			seen[r] = struct{}{}
			unique = append(unique, r)
		}
	}

	return unique
}
