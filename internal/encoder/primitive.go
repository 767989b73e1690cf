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

package encoder

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/destel/rill"
	"golang.org/x/exp/constraints"

	"m4o.io/osmgraph/internal/osmpb"
	"m4o.io/osmgraph/model"
)

const (
	DateGranularityMs = 1000
	Granularity       = 100
	LatOffset         = 0
	LonOffset         = 0

	// EntityLimit is the max number of entities in an osmpb.PrimitiveBlock.
	// Certain programs (e.g. osmosis 0.38) limit the number of entities in
	// each block to 8000 when writing PBF format.
	EntityLimit = 8000
)

// SaveBlock writes a packed primitive block as an OSMData blob.
func SaveBlock(w io.Writer, bb rill.Try[[]byte]) error {
	if bb.Error != nil {
		return bb.Error
	}

	return writeBlob(w, osmpb.TypeOSMData, bb.Value)
}

type blockContext struct {
	table    *Table
	entities []model.Entity
}

func newBlockContext(entities []model.Entity) *blockContext {
	strings := NewStrings()

	for _, e := range entities {
		extractTagsAndInfo(strings, e)

		if r, ok := e.(*model.Relation); ok {
			extractMemberRoles(strings, r)
		}
	}

	return &blockContext{
		table:    strings.CalcTable(),
		entities: entities,
	}
}

func (bc *blockContext) extractPrimitiveBlock() (*osmpb.PrimitiveBlock, error) {
	pg := &osmpb.PrimitiveGroup{}

	switch bc.entities[0].(type) {
	case *model.Node:
		pg.Dense = bc.extractDenseNodes()
	case *model.Way:
		pg.Ways = bc.extractWays()
	case *model.Relation:
		pg.Relations = bc.extractRelations()
	default:
		return nil, fmt.Errorf("unknown entity type %T", bc.entities[0])
	}

	b := &osmpb.PrimitiveBlock{
		StringTable:     bc.table.AsArray(),
		PrimitiveGroup:  []*osmpb.PrimitiveGroup{pg},
		Granularity:     Granularity,
		LatOffset:       LatOffset,
		LonOffset:       LonOffset,
		DateGranularity: DateGranularityMs,
	}

	return b, nil
}

func (bc *blockContext) extractDenseNodes() *osmpb.DenseNodes {
	var (
		ids, lats, lons []int64
		keyValIDs       []int32
		withInfo        bool
		historical      bool
	)

	for _, e := range bc.entities {
		n := e.(*model.Node)

		ids = append(ids, int64(n.ID))
		lats = append(lats, model.ToCoordinate(LatOffset, Granularity, n.Lat))
		lons = append(lons, model.ToCoordinate(LonOffset, Granularity, n.Lon))

		kIDs, vIDs := calcTagIDs(n.Tags, bc.table)
		for i, k := range kIDs {
			keyValIDs = append(keyValIDs, int32(k), int32(vIDs[i]))
		}

		keyValIDs = append(keyValIDs, 0)

		if info := n.Info; info != nil {
			withInfo = true
			historical = historical || !info.Visible
		}
	}

	dn := &osmpb.DenseNodes{
		ID:  calcDeltas(ids),
		Lat: calcDeltas(lats),
		Lon: calcDeltas(lons),
	}

	// a block of untagged nodes may omit the column
	if slices.ContainsFunc(keyValIDs, func(id int32) bool { return id != 0 }) {
		dn.KeysVals = keyValIDs
	}

	if withInfo {
		dn.DenseInfo = bc.extractDenseInfo(historical)
	}

	return dn
}

func (bc *blockContext) extractDenseInfo(historical bool) *osmpb.DenseInfo {
	n := len(bc.entities)

	versions := make([]int32, 0, n)
	uids := make([]int32, 0, n)
	ts := make([]int64, 0, n)
	cs := make([]int64, 0, n)
	usids := make([]int32, 0, n)

	var visible []bool
	if historical {
		visible = make([]bool, 0, n)
	}

	for _, e := range bc.entities {
		info := e.GetInfo()
		if info == nil {
			info = &model.Info{Visible: true}
		}

		versions = append(versions, info.Version)
		uids = append(uids, int32(info.UID))
		ts = append(ts, fromTimestamp(DateGranularityMs, info.Timestamp))
		cs = append(cs, info.Changeset)
		usids = append(usids, bc.table.IndexOf(info.User))

		if historical {
			visible = append(visible, info.Visible)
		}
	}

	return &osmpb.DenseInfo{
		Version:   versions,
		Timestamp: calcDeltas(ts),
		Changeset: calcDeltas(cs),
		UID:       calcDeltas(uids),
		UserSID:   calcDeltas(usids),
		Visible:   visible,
	}
}

func (bc *blockContext) extractWays() []*osmpb.Way {
	ways := make([]*osmpb.Way, 0, len(bc.entities))

	for _, e := range bc.entities {
		w := e.(*model.Way)

		refs := make([]int64, len(w.NodeIDs))
		for i, r := range w.NodeIDs {
			refs[i] = int64(r)
		}

		keyIDs, valIDs := calcTagIDs(w.Tags, bc.table)

		ways = append(ways, &osmpb.Way{
			ID:   int64(w.ID),
			Keys: keyIDs,
			Vals: valIDs,
			Info: toInfoPb(w.Info, bc.table),
			Refs: calcDeltas(refs),
		})
	}

	return ways
}

func (bc *blockContext) extractRelations() []*osmpb.Relation {
	relations := make([]*osmpb.Relation, 0, len(bc.entities))

	for _, e := range bc.entities {
		r := e.(*model.Relation)

		keyIDs, valIDs := calcTagIDs(r.Tags, bc.table)
		memids := make([]int64, len(r.Members))
		roleids := make([]int32, len(r.Members))
		types := make([]osmpb.MemberType, len(r.Members))

		for i, m := range r.Members {
			memids[i] = int64(m.ID)
			roleids[i] = bc.table.IndexOf(m.Role)
			types[i] = encodeMemberType(m.Type)
		}

		relations = append(relations, &osmpb.Relation{
			ID:       int64(r.ID),
			Keys:     keyIDs,
			Vals:     valIDs,
			Info:     toInfoPb(r.Info, bc.table),
			RolesSID: roleids,
			MemIDs:   calcDeltas(memids),
			Types:    types,
		})
	}

	return relations
}

func extractMemberRoles(strings *Strings, r *model.Relation) {
	for _, m := range r.Members {
		strings.Add(m.Role)
	}
}

func extractTagsAndInfo(strings *Strings, e model.Entity) {
	for k, v := range e.GetTags() {
		strings.Add(k)
		strings.Add(v)
	}

	if info := e.GetInfo(); info != nil {
		strings.Add(info.User)
	}
}

// calcDeltas calculates the delta-encoding of the values.
func calcDeltas[T interface {
	constraints.Integer | constraints.Float
}](values []T) []T {
	prev := T(0)
	deltas := make([]T, len(values))

	for i, id := range values {
		deltas[i] = id - prev
		prev = id
	}

	return deltas
}

func calcTagIDs(tags model.Tags, table *Table) (keyIDs []uint32, valIDs []uint32) {
	keys := make([]string, 0, len(tags))

	for k := range tags {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	for _, k := range keys {
		keyIDs = append(keyIDs, uint32(table.IndexOf(k)))
		valIDs = append(valIDs, uint32(table.IndexOf(tags[k])))
	}

	return keyIDs, valIDs
}

func toInfoPb(info *model.Info, table *Table) *osmpb.Info {
	if info == nil {
		return nil
	}

	visible := info.Visible

	return &osmpb.Info{
		Version:   info.Version,
		Timestamp: fromTimestamp(DateGranularityMs, info.Timestamp),
		Changeset: info.Changeset,
		UID:       int32(info.UID),
		UserSID:   uint32(table.IndexOf(info.User)),
		Visible:   &visible,
	}
}

// encodeMemberType converts an EntityType to its PBF member type.
func encodeMemberType(t model.EntityType) osmpb.MemberType {
	switch t {
	case model.WAY:
		return osmpb.MemberWay
	case model.RELATION:
		return osmpb.MemberRelation
	default:
		return osmpb.MemberNode
	}
}

// fromTimestamp converts a timestamp to a count of units of granularity
// milliseconds since the epoch. The zero Time maps to 0.
func fromTimestamp(granularity int32, timestamp time.Time) int64 {
	if timestamp.IsZero() {
		return 0
	}

	millis := timestamp.UnixMilli()

	return millis / int64(granularity)
}
