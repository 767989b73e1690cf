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

package osmpb

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// HeaderBBox is a bounding box in nanodegrees.
type HeaderBBox struct {
	Left   int64
	Right  int64
	Top    int64
	Bottom int64
}

func (bb *HeaderBBox) Marshal() []byte {
	var b []byte

	b = appendVarint(b, 1, encSint64(bb.Left))
	b = appendVarint(b, 2, encSint64(bb.Right))
	b = appendVarint(b, 3, encSint64(bb.Top))

	return appendVarint(b, 4, encSint64(bb.Bottom))
}

func (bb *HeaderBBox) Unmarshal(buf []byte) error {
	*bb = HeaderBBox{}

	return unmarshal("HeaderBBox", buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var dst *int64

		switch num {
		case 1:
			dst = &bb.Left
		case 2:
			dst = &bb.Right
		case 3:
			dst = &bb.Top
		case 4:
			dst = &bb.Bottom
		default:
			return 0, nil
		}

		return consumeVarint(typ, b, func(v uint64) { *dst = decSint64(v) })
	})
}

// HeaderBlock is the content of the OSMHeader blob.
type HeaderBlock struct {
	BBox                             *HeaderBBox
	RequiredFeatures                 []string
	OptionalFeatures                 []string
	WritingProgram                   string
	Source                           string
	OsmosisReplicationTimestamp      int64
	OsmosisReplicationSequenceNumber int64
	OsmosisReplicationBaseURL        string
}

func (h *HeaderBlock) Marshal() []byte {
	var b []byte

	if h.BBox != nil {
		b = appendMessage(b, 1, h.BBox)
	}

	for _, f := range h.RequiredFeatures {
		b = appendString(b, 4, f)
	}

	for _, f := range h.OptionalFeatures {
		b = appendString(b, 5, f)
	}

	if h.WritingProgram != "" {
		b = appendString(b, 16, h.WritingProgram)
	}

	if h.Source != "" {
		b = appendString(b, 17, h.Source)
	}

	if h.OsmosisReplicationTimestamp != 0 {
		b = appendVarint(b, 32, uint64(h.OsmosisReplicationTimestamp))
	}

	if h.OsmosisReplicationSequenceNumber != 0 {
		b = appendVarint(b, 33, uint64(h.OsmosisReplicationSequenceNumber))
	}

	if h.OsmosisReplicationBaseURL != "" {
		b = appendString(b, 34, h.OsmosisReplicationBaseURL)
	}

	return b
}

func (h *HeaderBlock) Unmarshal(buf []byte) error {
	*h = HeaderBlock{}

	return unmarshal("HeaderBlock", buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeBytes(typ, b, func(v []byte) error {
				h.BBox = &HeaderBBox{}

				return h.BBox.Unmarshal(v)
			})
		case 4:
			return consumeBytes(typ, b, func(v []byte) error {
				h.RequiredFeatures = append(h.RequiredFeatures, string(v))

				return nil
			})
		case 5:
			return consumeBytes(typ, b, func(v []byte) error {
				h.OptionalFeatures = append(h.OptionalFeatures, string(v))

				return nil
			})
		case 16:
			return consumeBytes(typ, b, func(v []byte) error { h.WritingProgram = string(v); return nil })
		case 17:
			return consumeBytes(typ, b, func(v []byte) error { h.Source = string(v); return nil })
		case 32:
			return consumeVarint(typ, b, func(v uint64) { h.OsmosisReplicationTimestamp = int64(v) })
		case 33:
			return consumeVarint(typ, b, func(v uint64) { h.OsmosisReplicationSequenceNumber = int64(v) })
		case 34:
			return consumeBytes(typ, b, func(v []byte) error { h.OsmosisReplicationBaseURL = string(v); return nil })
		default:
			return 0, nil
		}
	})
}

// Default values of PrimitiveBlock fields that a file may omit.
const (
	DefaultGranularity     = 100
	DefaultDateGranularity = 1000
)

// PrimitiveBlock is the content of an OSMData blob.
type PrimitiveBlock struct {
	StringTable     []string
	PrimitiveGroup  []*PrimitiveGroup
	Granularity     int32
	DateGranularity int32
	LatOffset       int64
	LonOffset       int64
}

func (p *PrimitiveBlock) Marshal() []byte {
	var st []byte
	for _, s := range p.StringTable {
		st = appendString(st, 1, s)
	}

	b := appendBytes(nil, 1, st)

	for _, pg := range p.PrimitiveGroup {
		b = appendMessage(b, 2, pg)
	}

	b = appendVarint(b, 17, encInt32(p.Granularity))
	b = appendVarint(b, 18, encInt32(p.DateGranularity))

	if p.LatOffset != 0 {
		b = appendVarint(b, 19, uint64(p.LatOffset))
	}

	if p.LonOffset != 0 {
		b = appendVarint(b, 20, uint64(p.LonOffset))
	}

	return b
}

func (p *PrimitiveBlock) Unmarshal(buf []byte) error {
	*p = PrimitiveBlock{
		Granularity:     DefaultGranularity,
		DateGranularity: DefaultDateGranularity,
	}

	return unmarshal("PrimitiveBlock", buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeBytes(typ, b, p.unmarshalStringTable)
		case 2:
			return consumeBytes(typ, b, func(v []byte) error {
				pg := &PrimitiveGroup{}
				p.PrimitiveGroup = append(p.PrimitiveGroup, pg)

				return pg.Unmarshal(v)
			})
		case 17:
			return consumeVarint(typ, b, func(v uint64) { p.Granularity = int32(v) })
		case 18:
			return consumeVarint(typ, b, func(v uint64) { p.DateGranularity = int32(v) })
		case 19:
			return consumeVarint(typ, b, func(v uint64) { p.LatOffset = int64(v) })
		case 20:
			return consumeVarint(typ, b, func(v uint64) { p.LonOffset = int64(v) })
		default:
			return 0, nil
		}
	})
}

func (p *PrimitiveBlock) unmarshalStringTable(buf []byte) error {
	return unmarshal("StringTable", buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return 0, nil
		}

		return consumeBytes(typ, b, func(v []byte) error {
			p.StringTable = append(p.StringTable, string(v))

			return nil
		})
	})
}

// PrimitiveGroup holds entities of a single kind.
type PrimitiveGroup struct {
	Nodes     []*Node
	Dense     *DenseNodes
	Ways      []*Way
	Relations []*Relation
}

func (pg *PrimitiveGroup) Marshal() []byte {
	var b []byte

	for _, n := range pg.Nodes {
		b = appendMessage(b, 1, n)
	}

	if pg.Dense != nil {
		b = appendMessage(b, 2, pg.Dense)
	}

	for _, w := range pg.Ways {
		b = appendMessage(b, 3, w)
	}

	for _, r := range pg.Relations {
		b = appendMessage(b, 4, r)
	}

	return b
}

func (pg *PrimitiveGroup) Unmarshal(buf []byte) error {
	*pg = PrimitiveGroup{}

	return unmarshal("PrimitiveGroup", buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeBytes(typ, b, func(v []byte) error {
				n := &Node{}
				pg.Nodes = append(pg.Nodes, n)

				return n.Unmarshal(v)
			})
		case 2:
			return consumeBytes(typ, b, func(v []byte) error {
				pg.Dense = &DenseNodes{}

				return pg.Dense.Unmarshal(v)
			})
		case 3:
			return consumeBytes(typ, b, func(v []byte) error {
				w := &Way{}
				pg.Ways = append(pg.Ways, w)

				return w.Unmarshal(v)
			})
		case 4:
			return consumeBytes(typ, b, func(v []byte) error {
				r := &Relation{}
				pg.Relations = append(pg.Relations, r)

				return r.Unmarshal(v)
			})
		default:
			return 0, nil
		}
	})
}

// Info is the optional metadata of a non-dense entity.
type Info struct {
	Version   int32
	Timestamp int64
	Changeset int64
	UID       int32
	UserSID   uint32

	// Visible is nil when the file does not carry historical information.
	Visible *bool
}

func (i *Info) Marshal() []byte {
	var b []byte

	b = appendVarint(b, 1, encInt32(i.Version))
	b = appendVarint(b, 2, uint64(i.Timestamp))
	b = appendVarint(b, 3, uint64(i.Changeset))
	b = appendVarint(b, 4, encInt32(i.UID))
	b = appendVarint(b, 5, encUint32(i.UserSID))

	if i.Visible != nil {
		b = appendVarint(b, 6, encBool(*i.Visible))
	}

	return b
}

func (i *Info) Unmarshal(buf []byte) error {
	*i = Info{Version: -1}

	return unmarshal("Info", buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeVarint(typ, b, func(v uint64) { i.Version = int32(v) })
		case 2:
			return consumeVarint(typ, b, func(v uint64) { i.Timestamp = int64(v) })
		case 3:
			return consumeVarint(typ, b, func(v uint64) { i.Changeset = int64(v) })
		case 4:
			return consumeVarint(typ, b, func(v uint64) { i.UID = int32(v) })
		case 5:
			return consumeVarint(typ, b, func(v uint64) { i.UserSID = uint32(v) })
		case 6:
			return consumeVarint(typ, b, func(v uint64) {
				visible := protowire.DecodeBool(v)
				i.Visible = &visible
			})
		default:
			return 0, nil
		}
	})
}

// DenseInfo is the column-oriented metadata of DenseNodes. Every column
// except Version is delta coded.
type DenseInfo struct {
	Version   []int32
	Timestamp []int64
	Changeset []int64
	UID       []int32
	UserSID   []int32
	Visible   []bool
}

func (di *DenseInfo) Marshal() []byte {
	var b []byte

	b = appendPacked(b, 1, di.Version, encInt32)
	b = appendPacked(b, 2, di.Timestamp, encSint64)
	b = appendPacked(b, 3, di.Changeset, encSint64)
	b = appendPacked(b, 4, di.UID, encSint32)
	b = appendPacked(b, 5, di.UserSID, encSint32)

	return appendPacked(b, 6, di.Visible, encBool)
}

func (di *DenseInfo) Unmarshal(buf []byte) error {
	*di = DenseInfo{}

	return unmarshal("DenseInfo", buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeRepeated(typ, b, func(v uint64) { di.Version = append(di.Version, int32(v)) })
		case 2:
			return consumeRepeated(typ, b, func(v uint64) { di.Timestamp = append(di.Timestamp, decSint64(v)) })
		case 3:
			return consumeRepeated(typ, b, func(v uint64) { di.Changeset = append(di.Changeset, decSint64(v)) })
		case 4:
			return consumeRepeated(typ, b, func(v uint64) { di.UID = append(di.UID, decSint32(v)) })
		case 5:
			return consumeRepeated(typ, b, func(v uint64) { di.UserSID = append(di.UserSID, decSint32(v)) })
		case 6:
			return consumeRepeated(typ, b, func(v uint64) {
				di.Visible = append(di.Visible, protowire.DecodeBool(v))
			})
		default:
			return 0, nil
		}
	})
}

// Node is a node stored outside of DenseNodes.
type Node struct {
	ID   int64
	Keys []uint32
	Vals []uint32
	Info *Info
	Lat  int64
	Lon  int64
}

func (n *Node) Marshal() []byte {
	var b []byte

	b = appendVarint(b, 1, encSint64(n.ID))
	b = appendPacked(b, 2, n.Keys, encUint32)
	b = appendPacked(b, 3, n.Vals, encUint32)

	if n.Info != nil {
		b = appendMessage(b, 4, n.Info)
	}

	b = appendVarint(b, 8, encSint64(n.Lat))

	return appendVarint(b, 9, encSint64(n.Lon))
}

func (n *Node) Unmarshal(buf []byte) error {
	*n = Node{}

	return unmarshal("Node", buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeVarint(typ, b, func(v uint64) { n.ID = decSint64(v) })
		case 2:
			return consumeRepeated(typ, b, func(v uint64) { n.Keys = append(n.Keys, uint32(v)) })
		case 3:
			return consumeRepeated(typ, b, func(v uint64) { n.Vals = append(n.Vals, uint32(v)) })
		case 4:
			return consumeBytes(typ, b, func(v []byte) error {
				n.Info = &Info{}

				return n.Info.Unmarshal(v)
			})
		case 8:
			return consumeVarint(typ, b, func(v uint64) { n.Lat = decSint64(v) })
		case 9:
			return consumeVarint(typ, b, func(v uint64) { n.Lon = decSint64(v) })
		default:
			return 0, nil
		}
	})
}

// DenseNodes stores nodes column by column. IDs and coordinates are delta
// coded, KeysVals holds key and value string indices of every node in turn,
// each node's run terminated by a 0.
type DenseNodes struct {
	ID        []int64
	DenseInfo *DenseInfo
	Lat       []int64
	Lon       []int64
	KeysVals  []int32
}

func (dn *DenseNodes) Marshal() []byte {
	var b []byte

	b = appendPacked(b, 1, dn.ID, encSint64)

	if dn.DenseInfo != nil {
		b = appendMessage(b, 5, dn.DenseInfo)
	}

	b = appendPacked(b, 8, dn.Lat, encSint64)
	b = appendPacked(b, 9, dn.Lon, encSint64)

	return appendPacked(b, 10, dn.KeysVals, encInt32)
}

func (dn *DenseNodes) Unmarshal(buf []byte) error {
	*dn = DenseNodes{}

	return unmarshal("DenseNodes", buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeRepeated(typ, b, func(v uint64) { dn.ID = append(dn.ID, decSint64(v)) })
		case 5:
			return consumeBytes(typ, b, func(v []byte) error {
				dn.DenseInfo = &DenseInfo{}

				return dn.DenseInfo.Unmarshal(v)
			})
		case 8:
			return consumeRepeated(typ, b, func(v uint64) { dn.Lat = append(dn.Lat, decSint64(v)) })
		case 9:
			return consumeRepeated(typ, b, func(v uint64) { dn.Lon = append(dn.Lon, decSint64(v)) })
		case 10:
			return consumeRepeated(typ, b, func(v uint64) { dn.KeysVals = append(dn.KeysVals, int32(v)) })
		default:
			return 0, nil
		}
	})
}

// Way references its nodes by delta coded IDs.
type Way struct {
	ID   int64
	Keys []uint32
	Vals []uint32
	Info *Info
	Refs []int64
}

func (w *Way) Marshal() []byte {
	var b []byte

	b = appendVarint(b, 1, uint64(w.ID))
	b = appendPacked(b, 2, w.Keys, encUint32)
	b = appendPacked(b, 3, w.Vals, encUint32)

	if w.Info != nil {
		b = appendMessage(b, 4, w.Info)
	}

	return appendPacked(b, 8, w.Refs, encSint64)
}

func (w *Way) Unmarshal(buf []byte) error {
	*w = Way{}

	return unmarshal("Way", buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeVarint(typ, b, func(v uint64) { w.ID = int64(v) })
		case 2:
			return consumeRepeated(typ, b, func(v uint64) { w.Keys = append(w.Keys, uint32(v)) })
		case 3:
			return consumeRepeated(typ, b, func(v uint64) { w.Vals = append(w.Vals, uint32(v)) })
		case 4:
			return consumeBytes(typ, b, func(v []byte) error {
				w.Info = &Info{}

				return w.Info.Unmarshal(v)
			})
		case 8:
			return consumeRepeated(typ, b, func(v uint64) { w.Refs = append(w.Refs, decSint64(v)) })
		default:
			return 0, nil
		}
	})
}

// MemberType is the kind of entity a relation member refers to.
type MemberType int32

const (
	MemberNode     MemberType = 0
	MemberWay      MemberType = 1
	MemberRelation MemberType = 2
)

// Relation references its members by delta coded IDs.
type Relation struct {
	ID       int64
	Keys     []uint32
	Vals     []uint32
	Info     *Info
	RolesSID []int32
	MemIDs   []int64
	Types    []MemberType
}

func (r *Relation) Marshal() []byte {
	var b []byte

	b = appendVarint(b, 1, uint64(r.ID))
	b = appendPacked(b, 2, r.Keys, encUint32)
	b = appendPacked(b, 3, r.Vals, encUint32)

	if r.Info != nil {
		b = appendMessage(b, 4, r.Info)
	}

	b = appendPacked(b, 8, r.RolesSID, encInt32)
	b = appendPacked(b, 9, r.MemIDs, encSint64)

	return appendPacked(b, 10, r.Types, func(t MemberType) uint64 { return uint64(t) })
}

func (r *Relation) Unmarshal(buf []byte) error {
	*r = Relation{}

	return unmarshal("Relation", buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeVarint(typ, b, func(v uint64) { r.ID = int64(v) })
		case 2:
			return consumeRepeated(typ, b, func(v uint64) { r.Keys = append(r.Keys, uint32(v)) })
		case 3:
			return consumeRepeated(typ, b, func(v uint64) { r.Vals = append(r.Vals, uint32(v)) })
		case 4:
			return consumeBytes(typ, b, func(v []byte) error {
				r.Info = &Info{}

				return r.Info.Unmarshal(v)
			})
		case 8:
			return consumeRepeated(typ, b, func(v uint64) { r.RolesSID = append(r.RolesSID, int32(v)) })
		case 9:
			return consumeRepeated(typ, b, func(v uint64) { r.MemIDs = append(r.MemIDs, decSint64(v)) })
		case 10:
			return consumeRepeated(typ, b, func(v uint64) { r.Types = append(r.Types, MemberType(v)) })
		default:
			return 0, nil
		}
	})
}
