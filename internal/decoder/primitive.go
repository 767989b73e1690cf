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

package decoder

import (
	"errors"
	"fmt"
	"time"

	"m4o.io/osmgraph/internal/osmpb"
	"m4o.io/osmgraph/model"
)

var ErrMalformedBlock = errors.New("malformed primitive block")

func parsePrimitiveBlock(buf []byte) ([]model.Entity, error) {
	blk := &osmpb.PrimitiveBlock{}
	if err := blk.Unmarshal(buf); err != nil {
		return nil, fmt.Errorf("unable to unmarshal primitive block: %w", err)
	}

	c := newBlockContext(blk)

	entities := make([]model.Entity, 0)
	for _, pg := range blk.PrimitiveGroup {
		entities = append(entities, c.decodeNodes(pg.Nodes)...)
		entities = append(entities, c.decodeDenseNodes(pg.Dense)...)
		entities = append(entities, c.decodeWays(pg.Ways)...)
		entities = append(entities, c.decodeRelations(pg.Relations)...)

		if c.err != nil {
			return nil, c.err
		}
	}

	return entities, nil
}

type blockContext struct {
	strings         []string
	granularity     int32
	latOffset       int64
	lonOffset       int64
	dateGranularity int32

	// err records the first inconsistency found while decoding.
	err error
}

func newBlockContext(blk *osmpb.PrimitiveBlock) *blockContext {
	return &blockContext{
		strings:         blk.StringTable,
		granularity:     blk.Granularity,
		latOffset:       blk.LatOffset,
		lonOffset:       blk.LonOffset,
		dateGranularity: blk.DateGranularity,
	}
}

func (c *blockContext) fail(format string, args ...any) {
	if c.err == nil {
		c.err = fmt.Errorf("%w: "+format, append([]any{ErrMalformedBlock}, args...)...)
	}
}

// str returns the string at index i of the string table.
func (c *blockContext) str(i int64) string {
	if i < 0 || i >= int64(len(c.strings)) {
		c.fail("string index %d out of range [0, %d)", i, len(c.strings))

		return ""
	}

	return c.strings[i]
}

func (c *blockContext) decodeNodes(nodes []*osmpb.Node) (entities []model.Entity) {
	entities = make([]model.Entity, len(nodes))

	for i, node := range nodes {
		entities[i] = &model.Node{
			ID:   model.ID(node.ID),
			Tags: c.decodeTags(node.Keys, node.Vals),
			Info: c.decodeInfo(node.Info),
			Lat:  model.ToDegrees(c.latOffset, c.granularity, node.Lat),
			Lon:  model.ToDegrees(c.lonOffset, c.granularity, node.Lon),
		}
	}

	return entities
}

func (c *blockContext) decodeDenseNodes(nodes *osmpb.DenseNodes) []model.Entity {
	if nodes == nil {
		return nil
	}

	ids := nodes.ID
	lats := nodes.Lat
	lons := nodes.Lon

	if len(lats) != len(ids) || len(lons) != len(ids) {
		c.fail("dense nodes have %d ids, %d lats and %d lons", len(ids), len(lats), len(lons))

		return nil
	}

	tic := c.newTagsContext(nodes.KeysVals)

	dic := c.newDenseInfoContext(nodes.DenseInfo, len(ids))
	if dic == nil {
		return nil
	}

	entities := make([]model.Entity, len(ids))

	var id, lat, lon int64
	for i := range ids {
		id += ids[i]
		lat += lats[i]
		lon += lons[i]

		entities[i] = &model.Node{
			ID:   model.ID(id),
			Tags: tic.decodeTags(),
			Info: dic.decodeInfo(i),
			Lat:  model.ToDegrees(c.latOffset, c.granularity, lat),
			Lon:  model.ToDegrees(c.lonOffset, c.granularity, lon),
		}
	}

	return entities
}

func (c *blockContext) decodeWays(ways []*osmpb.Way) []model.Entity {
	entities := make([]model.Entity, len(ways))

	for i, way := range ways {
		nodeIDs := make([]model.ID, len(way.Refs))

		var nodeID int64

		for j, delta := range way.Refs {
			nodeID = delta + nodeID
			nodeIDs[j] = model.ID(nodeID)
		}

		entities[i] = &model.Way{
			ID:      model.ID(way.ID),
			Tags:    c.decodeTags(way.Keys, way.Vals),
			NodeIDs: nodeIDs,
			Info:    c.decodeInfo(way.Info),
		}
	}

	return entities
}

func (c *blockContext) decodeRelations(relations []*osmpb.Relation) []model.Entity {
	entities := make([]model.Entity, len(relations))

	for i, relation := range relations {
		entities[i] = &model.Relation{
			ID:      model.ID(relation.ID),
			Tags:    c.decodeTags(relation.Keys, relation.Vals),
			Info:    c.decodeInfo(relation.Info),
			Members: c.decodeMembers(relation),
		}
	}

	return entities
}

func (c *blockContext) decodeMembers(relation *osmpb.Relation) []model.Member {
	memids := relation.MemIDs
	memtypes := relation.Types
	memroles := relation.RolesSID

	if len(memtypes) != len(memids) || len(memroles) != len(memids) {
		c.fail("relation %d has %d member ids, %d types and %d roles",
			relation.ID, len(memids), len(memtypes), len(memroles))

		return nil
	}

	members := make([]model.Member, len(memids))

	var memid int64

	for i := range memids {
		memid = memids[i] + memid
		members[i] = model.Member{
			ID:   model.ID(memid),
			Type: c.decodeMemberType(memtypes[i]),
			Role: c.str(int64(memroles[i])),
		}
	}

	return members
}

func (c *blockContext) decodeTags(keyIDs, valIDs []uint32) model.Tags {
	if len(keyIDs) != len(valIDs) {
		c.fail("%d tag keys but %d values", len(keyIDs), len(valIDs))

		return nil
	}

	tags := make(model.Tags, len(keyIDs))

	for i, keyID := range keyIDs {
		tags[c.str(int64(keyID))] = c.str(int64(valIDs[i]))
	}

	return tags
}

func (c *blockContext) decodeInfo(info *osmpb.Info) *model.Info {
	i := &model.Info{Visible: true}
	if info != nil {
		i.Version = info.Version
		i.Timestamp = toTimestamp(c.dateGranularity, info.Timestamp)
		i.Changeset = info.Changeset
		i.UID = model.UID(info.UID)
		i.User = c.str(int64(info.UserSID))

		if info.Visible != nil {
			i.Visible = *info.Visible
		}
	}

	return i
}

// newDenseInfoContext returns nil, after recording the failure, if the
// columns of di do not all hold n values.
func (c *blockContext) newDenseInfoContext(di *osmpb.DenseInfo, n int) *denseInfoContext {
	dic := &denseInfoContext{
		ctx:             c,
		dateGranularity: c.dateGranularity,
	}

	if di == nil {
		return dic
	}

	if len(di.Version) != n || len(di.UID) != n || len(di.Timestamp) != n ||
		len(di.Changeset) != n || len(di.UserSID) != n {
		c.fail("dense info columns do not match %d nodes", n)

		return nil
	}

	if len(di.Visible) != 0 && len(di.Visible) != n {
		c.fail("dense info has %d visibilities for %d nodes", len(di.Visible), n)

		return nil
	}

	dic.present = true
	dic.versions = di.Version
	dic.uids = di.UID
	dic.timestamps = di.Timestamp
	dic.changesets = di.Changeset
	dic.userSids = di.UserSID

	if len(di.Visible) != 0 {
		dic.visibilities = di.Visible
	}

	return dic
}

type denseInfoContext struct {
	timestamp int64
	changeset int64
	uid       int32
	userSid   int32

	ctx             *blockContext
	dateGranularity int32
	present         bool
	versions        []int32
	uids            []int32
	timestamps      []int64
	changesets      []int64
	userSids        []int32
	visibilities    []bool
}

func (dic *denseInfoContext) decodeInfo(i int) *model.Info {
	if !dic.present {
		return &model.Info{Visible: true}
	}

	dic.uid += dic.uids[i]
	dic.timestamp += dic.timestamps[i]
	dic.changeset += dic.changesets[i]
	dic.userSid += dic.userSids[i]

	info := &model.Info{
		Version:   dic.versions[i],
		UID:       model.UID(dic.uid),
		Timestamp: toTimestamp(dic.dateGranularity, dic.timestamp),
		Changeset: dic.changeset,
		User:      dic.ctx.str(int64(dic.userSid)),
	}

	if dic.visibilities == nil {
		info.Visible = true
	} else {
		info.Visible = dic.visibilities[i]
	}

	return info
}

type tagsContext struct {
	ctx     *blockContext
	i       int
	keyVals []int32
}

func (c *blockContext) newTagsContext(keyVals []int32) *tagsContext {
	tc := &tagsContext{ctx: c}

	if len(keyVals) != 0 {
		tc.keyVals = keyVals
	}

	return tc
}

func (tic *tagsContext) decodeTags() model.Tags {
	if tic.keyVals == nil {
		return model.Tags{}
	}

	tags := make(model.Tags)
	i := tic.i

	for i < len(tic.keyVals) && tic.keyVals[i] > 0 {
		if i+1 >= len(tic.keyVals) {
			tic.ctx.fail("dense tags end with a key and no value")

			break
		}

		tags[tic.ctx.str(int64(tic.keyVals[i]))] = tic.ctx.str(int64(tic.keyVals[i+1]))
		i += 2
	}

	tic.i = i + 1

	return tags
}

// decodeMemberType converts the PBF member type to an EntityType.
func (c *blockContext) decodeMemberType(mt osmpb.MemberType) model.EntityType {
	switch mt {
	case osmpb.MemberNode:
		return model.NODE
	case osmpb.MemberWay:
		return model.WAY
	case osmpb.MemberRelation:
		return model.RELATION
	default:
		c.fail("unrecognized member type %d", mt)

		return model.NODE
	}
}

// toTimestamp converts a timestamp with a specific granularity, in units of
// milliseconds, to a UTC timestamp of type Time. A missing timestamp, 0,
// maps to the zero Time.
func toTimestamp(granularity int32, timestamp int64) time.Time {
	if timestamp == 0 {
		return time.Time{}
	}

	return time.UnixMilli(timestamp * int64(granularity)).UTC()
}
