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

package model

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
)

// ErrInvalidKey is returned when a string cannot be parsed as a Key.
var ErrInvalidKey = errors.New("invalid entity key")

// ID is the primary key of an entity within its type. Negative IDs denote
// entities created locally that have not yet been assigned a permanent ID
// by the remote store.
type ID int64

// IsNew reports whether the ID is a local, not yet uploaded, ID.
func (id ID) IsNew() bool {
	return id < 0
}

// Key is the globally unique identifier of an entity. OpenStreetMap IDs
// are unique only within an entity type, so the type is part of the key.
type Key struct {
	Type EntityType
	ID   ID
}

// NodeKey returns the key of the node id.
func NodeKey(id ID) Key { return Key{Type: NODE, ID: id} }

// WayKey returns the key of the way id.
func WayKey(id ID) Key { return Key{Type: WAY, ID: id} }

// RelationKey returns the key of the relation id.
func RelationKey(id ID) Key { return Key{Type: RELATION, ID: id} }

// String renders the key as a type prefix followed by the ID, e.g. n42 or w-1.
func (k Key) String() string {
	return k.Type.prefix() + strconv.FormatInt(int64(k.ID), 10)
}

// Compare orders keys by type and then by ID.
func (k Key) Compare(o Key) int {
	switch {
	case k.Type < o.Type:
		return -1
	case k.Type > o.Type:
		return 1
	case k.ID < o.ID:
		return -1
	case k.ID > o.ID:
		return 1
	default:
		return 0
	}
}

// ParseKey parses the String form of a Key.
func ParseKey(s string) (Key, error) {
	if len(s) < 2 {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}

	var t EntityType

	switch s[0] {
	case 'n':
		t = NODE
	case 'w':
		t = WAY
	case 'r':
		t = RELATION
	default:
		return Key{}, fmt.Errorf("%w: %q has unknown type prefix", ErrInvalidKey, s)
	}

	id, err := strconv.ParseInt(s[1:], 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q: %w", ErrInvalidKey, s, err)
	}

	return Key{Type: t, ID: ID(id)}, nil
}

func (t EntityType) prefix() string {
	switch t {
	case NODE:
		return "n"
	case WAY:
		return "w"
	case RELATION:
		return "r"
	default:
		return "?"
	}
}

// IDGenerator hands out local IDs for newly created entities. Each entity
// type counts down independently from -1. It is safe for concurrent use.
type IDGenerator struct {
	next [3]atomic.Int64
}

// Next returns a fresh local ID for the entity type t.
func (g *IDGenerator) Next(t EntityType) ID {
	return ID(-g.next[t].Add(1))
}
