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
	"bytes"

	"google.golang.org/protobuf/encoding/protowire"
)

// Blob types named by BlobHeader.Type.
const (
	TypeOSMHeader = "OSMHeader"
	TypeOSMData   = "OSMData"
)

// BlobHeader precedes every blob of a PBF file.
type BlobHeader struct {
	Type      string
	IndexData []byte
	DataSize  int32
}

func (h *BlobHeader) Marshal() []byte {
	var b []byte

	b = appendString(b, 1, h.Type)

	if len(h.IndexData) > 0 {
		b = appendBytes(b, 2, h.IndexData)
	}

	return appendVarint(b, 3, encInt32(h.DataSize))
}

func (h *BlobHeader) Unmarshal(buf []byte) error {
	*h = BlobHeader{}

	return unmarshal("BlobHeader", buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeBytes(typ, b, func(v []byte) error { h.Type = string(v); return nil })
		case 2:
			return consumeBytes(typ, b, func(v []byte) error { h.IndexData = bytes.Clone(v); return nil })
		case 3:
			return consumeVarint(typ, b, func(v uint64) { h.DataSize = int32(v) })
		default:
			return 0, nil
		}
	})
}

// Compression identifies how the data of a Blob is stored. The values are
// the field numbers of the Blob message.
type Compression protowire.Number

const (
	Raw  Compression = 1
	Zlib Compression = 3
	Lzma Compression = 4
	// Bzip2 is obsolete and never written.
	Bzip2 Compression = 5
	Lz4   Compression = 6
	Zstd  Compression = 7
)

func (c Compression) String() string {
	switch c {
	case Raw:
		return "raw"
	case Zlib:
		return "zlib"
	case Lzma:
		return "lzma"
	case Bzip2:
		return "bzip2"
	case Lz4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// Blob holds the, possibly compressed, bytes of a HeaderBlock or a
// PrimitiveBlock.
type Blob struct {
	RawSize     int32
	Compression Compression
	Data        []byte
}

func (bl *Blob) Marshal() []byte {
	var b []byte

	b = appendBytes(b, protowire.Number(bl.Compression), bl.Data)

	if bl.Compression != Raw {
		b = appendVarint(b, 2, encInt32(bl.RawSize))
	}

	return b
}

func (bl *Blob) Unmarshal(buf []byte) error {
	*bl = Blob{}

	return unmarshal("Blob", buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch c := Compression(num); c {
		case Raw, Zlib, Lzma, Bzip2, Lz4, Zstd:
			return consumeBytes(typ, b, func(v []byte) error {
				bl.Compression = c
				bl.Data = bytes.Clone(v)

				return nil
			})
		case 2:
			return consumeVarint(typ, b, func(v uint64) { bl.RawSize = int32(v) })
		default:
			return 0, nil
		}
	})
}
