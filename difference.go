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
	"log/slog"
	"maps"
	"slices"

	"m4o.io/osmgraph/model"
)

// ChangeType classifies an entry of a Difference summary.
type ChangeType int

const (
	// Created denotes an entity present only in the head graph.
	Created ChangeType = iota

	// Modified denotes an entity present in both graphs.
	Modified

	// Deleted denotes an entity present only in the base graph.
	Deleted
)

func (c ChangeType) String() string {
	switch c {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// MarshalText renders the change type in JSON output.
func (c ChangeType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Change holds both states of a changed entity. Base is nil for a created
// entity and Head is nil for a deleted one.
type Change struct {
	Base model.Entity
	Head model.Entity
}

// SummaryEntry describes one entity worth reporting to a user. Entity and
// Graph refer to the head graph unless the entity was deleted.
type SummaryEntry struct {
	ChangeType ChangeType
	Entity     model.Entity
	Graph      *Graph
}

// Difference is the set of entities whose state differs between a base
// graph and a head graph derived from it.
//
// Comparing graphs that do not share a history is allowed but compares
// every entity either of them was seeded with.
type Difference struct {
	base    *Graph
	head    *Graph
	changes map[model.Key]Change
	keys    []model.Key
}

// NewDifference computes the difference from base to head.
func NewDifference(base, head *Graph) *Difference {
	d := &Difference{
		base:    base,
		head:    head,
		changes: make(map[model.Key]Change),
	}

	if base == head {
		return d
	}

	for key := range candidates(base, head) {
		b := base.lookup(key)
		h := head.lookup(key)

		if b == h {
			continue
		}

		if b == nil || h == nil || !h.Equal(b) {
			d.changes[key] = Change{Base: b, Head: h}
		}
	}

	d.keys = slices.SortedFunc(maps.Keys(d.changes), model.Key.Compare)

	slog.Debug("computed difference",
		"base", base.gen, "head", head.gen, "changes", len(d.keys))

	return d
}

// candidates returns every key written on the paths from both graphs back
// to their closest common version.
func candidates(a, b *Graph) map[model.Key]struct{} {
	keys := make(map[model.Key]struct{})

	for a != b {
		if b == nil || (a != nil && a.gen >= b.gen) {
			a.collectTouched(keys)
			a = a.base
		} else {
			b.collectTouched(keys)
			b = b.base
		}
	}

	return keys
}

func (g *Graph) collectTouched(keys map[model.Key]struct{}) {
	if g.base != nil {
		for k := range g.touched {
			keys[k] = struct{}{}
		}

		return
	}

	itr := g.entities.Iterator()
	for !itr.Done() {
		k, _, _ := itr.Next()
		keys[k] = struct{}{}
	}
}

// Base returns the graph the difference starts from.
func (d *Difference) Base() *Graph {
	return d.base
}

// Head returns the graph the difference ends at.
func (d *Difference) Head() *Graph {
	return d.head
}

// Len returns the number of changed entities.
func (d *Difference) Len() int {
	return len(d.keys)
}

// Keys returns the keys of the changed entities, ordered.
func (d *Difference) Keys() []model.Key {
	return slices.Clone(d.keys)
}

// Changes returns the base and head state of every changed entity.
func (d *Difference) Changes() map[model.Key]Change {
	return maps.Clone(d.changes)
}

// Change returns the change recorded for key, if any.
func (d *Difference) Change(key model.Key) (Change, bool) {
	c, ok := d.changes[key]

	return c, ok
}

// Created returns the entities present in head but not in base.
func (d *Difference) Created() []model.Entity {
	var created []model.Entity

	for _, k := range d.keys {
		if c := d.changes[k]; c.Base == nil {
			created = append(created, c.Head)
		}
	}

	return created
}

// Modified returns the head state of entities present in both graphs.
func (d *Difference) Modified() []model.Entity {
	var modified []model.Entity

	for _, k := range d.keys {
		if c := d.changes[k]; c.Base != nil && c.Head != nil {
			modified = append(modified, c.Head)
		}
	}

	return modified
}

// Deleted returns the entities present in base but not in head.
func (d *Difference) Deleted() []model.Entity {
	var deleted []model.Entity

	for _, k := range d.keys {
		if c := d.changes[k]; c.Head == nil {
			deleted = append(deleted, c.Base)
		}
	}

	return deleted
}

// Summary returns the changes worth reporting to a user. Ways whose vertices
// moved are reported as modified. Vertices are reported on their own only
// when their tags changed, or when they carry interesting tags.
func (d *Difference) Summary() map[model.Key]SummaryEntry {
	relevant := make(map[model.Key]SummaryEntry)

	add := func(e model.Entity, g *Graph, ct ChangeType) {
		relevant[e.GetKey()] = SummaryEntry{ChangeType: ct, Entity: e, Graph: g}
	}

	addParents := func(e model.Entity) {
		for _, w := range d.head.ParentWays(e) {
			if _, ok := relevant[w.GetKey()]; !ok {
				add(w, d.head, Modified)
			}
		}
	}

	for _, k := range d.keys {
		c := d.changes[k]

		switch {
		case c.Head != nil && !d.head.IsVertex(c.Head):
			if c.Base == nil {
				add(c.Head, d.head, Created)
			} else {
				add(c.Head, d.head, Modified)
			}

		case c.Base != nil && !d.base.IsVertex(c.Base):
			add(c.Base, d.base, Deleted)

		case c.Base != nil && c.Head != nil:
			moved := c.Base.(*model.Node).Moved(c.Head.(*model.Node))
			retagged := !c.Base.GetTags().Equal(c.Head.GetTags())

			if moved {
				addParents(c.Head)
			}

			if retagged || (moved && c.Head.GetTags().HasInterestingTags()) {
				add(c.Head, d.head, Modified)
			}

		case c.Head != nil && c.Head.GetTags().HasInterestingTags():
			add(c.Head, d.head, Created)

		case c.Base != nil && c.Base.GetTags().HasInterestingTags():
			add(c.Base, d.base, Deleted)
		}
	}

	return relevant
}

// Complete returns every entity needed to describe the difference for
// upload, keyed to its head state, or to nil if it was deleted.
//
// Besides the changed entities it holds the nodes of changed ways and the
// members of changed relations, from both their base and head states, and,
// transitively, every way and relation that contains any of those.
func (d *Difference) Complete() map[model.Key]model.Entity {
	result := make(map[model.Key]model.Entity, len(d.keys))
	queue := make([]model.Key, 0, len(d.keys))

	add := func(k model.Key, e model.Entity) {
		if _, ok := result[k]; !ok {
			result[k] = e
			queue = append(queue, k)
		}
	}

	// resolve returns the head state of k, nil if it was deleted, and false
	// if neither graph knows about it.
	resolve := func(k model.Key) (model.Entity, bool) {
		if e := d.head.lookup(k); e != nil {
			return e, true
		}

		return nil, d.base.lookup(k) != nil
	}

	var pending []model.Key

	for _, k := range d.keys {
		add(k, d.changes[k].Head)

		if k.Type != model.NODE {
			pending = append(pending, k)
		}
	}

	// children of changed ways and relations, recursing into member relations
	expanded := make(map[model.Key]struct{})

	for len(pending) > 0 {
		k := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		if _, ok := expanded[k]; ok {
			continue
		}

		expanded[k] = struct{}{}

		for _, ref := range d.refs(k) {
			e, ok := resolve(ref)
			if !ok {
				continue
			}

			add(ref, e)

			if k.Type == model.RELATION && ref.Type == model.RELATION {
				pending = append(pending, ref)
			}
		}
	}

	// parents, up to a fixed point
	for i := 0; i < len(queue); i++ {
		k := queue[i]

		for _, g := range [...]*Graph{d.head, d.base} {
			for _, p := range g.ParentWayKeys(k) {
				if e, ok := resolve(p); ok {
					add(p, e)
				}
			}

			for _, p := range g.ParentRelationKeys(k) {
				if e, ok := resolve(p); ok {
					add(p, e)
				}
			}
		}
	}

	return result
}

// refs returns the union of the references of k in both graphs.
func (d *Difference) refs(k model.Key) []model.Key {
	var refs []model.Key

	seen := make(map[model.Key]struct{})

	for _, e := range [...]model.Entity{d.base.lookup(k), d.head.lookup(k)} {
		for _, r := range uniqueRefs(e) {
			if _, ok := seen[r]; !ok {
				seen[r] = struct{}{}
				refs = append(refs, r)
			}
		}
	}

	return refs
}
