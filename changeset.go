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
	"io"
	"maps"
	"slices"

	"m4o.io/osmgraph/model"
)

// WriteChangeset encodes the complete set of entities of diff to w as PBF
// data with historical information. Created and modified entities are
// written in their head state; deleted entities are written in their base
// state, marked invisible, with their version bumped.
func WriteChangeset(w io.Writer, diff *Difference, opts ...EncoderOption) error {
	opts = append(slices.Clone(opts), WithRequiredFeatures(FeatureHistoricalInformation))

	enc, err := NewEncoder(w, opts...)
	if err != nil {
		return err
	}

	complete := diff.Complete()
	keys := slices.SortedFunc(maps.Keys(complete), model.Key.Compare)
	entities := make([]model.Entity, 0, len(keys))

	for _, k := range keys {
		e := complete[k]
		if e == nil {
			e = tombstone(diff.Base().lookup(k))
		}

		if e != nil {
			entities = append(entities, e)
		}
	}

	if err = enc.EncodeBatch(entities); err != nil {
		_ = enc.Close()

		return err
	}

	return enc.Close()
}

// tombstone returns a copy of e describing its deletion.
func tombstone(e model.Entity) model.Entity {
	if e == nil {
		return nil
	}

	info := model.Info{}
	if i := e.GetInfo(); i != nil {
		info = *i
	}

	info.Version++
	info.Visible = false

	switch v := e.(type) {
	case *model.Node:
		c := *v
		c.Info = &info

		return &c
	case *model.Way:
		c := *v
		c.Info = &info

		return &c
	case *model.Relation:
		c := *v
		c.Info = &info

		return &c
	default:
		return nil
	}
}
