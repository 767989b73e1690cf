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

	"m4o.io/osmgraph/internal/osmpb"
)

// BlobCompression is an enumeration of the ways a blob can be compressed.
type BlobCompression int

const (
	RAW BlobCompression = iota
	ZLIB
	LZMA
	LZ4
	ZSTD
)

// DefaultBlobCompression is understood by every PBF reader.
const DefaultBlobCompression = ZLIB

func (c BlobCompression) String() string {
	return c.wire().String()
}

func (c BlobCompression) wire() osmpb.Compression {
	switch c {
	case RAW:
		return osmpb.Raw
	case ZLIB:
		return osmpb.Zlib
	case LZMA:
		return osmpb.Lzma
	case LZ4:
		return osmpb.Lz4
	case ZSTD:
		return osmpb.Zstd
	default:
		return 0
	}
}

// ParseBlobCompression returns the compression named s, as printed by
// String.
func ParseBlobCompression(s string) (BlobCompression, error) {
	for _, c := range []BlobCompression{RAW, ZLIB, LZMA, LZ4, ZSTD} {
		if c.String() == s {
			return c, nil
		}
	}

	return 0, fmt.Errorf("unknown compression %q", s)
}
