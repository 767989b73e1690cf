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
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
	"github.com/ulikunitz/xz/lzma"

	"m4o.io/osmgraph/internal/core"
	"m4o.io/osmgraph/internal/osmpb"
)

var ErrUnknownCompressionType = errors.New("unknown blob compression type")

// unpack uncompresses the blob.
//
// This method is not "buried" within the readBlob function so that decompression
// of blobs can be performed concurrently.
func unpack(buf *core.PooledBuffer, blob *osmpb.Blob) ([]byte, error) {
	var factory func(data []byte) (io.Reader, error)

	switch blob.Compression {
	case osmpb.Raw:
		return blob.Data, nil
	case osmpb.Zlib:
		factory = func(data []byte) (io.Reader, error) {
			return zlib.NewReader(bytes.NewReader(data))
		}
	case osmpb.Lzma:
		factory = func(data []byte) (io.Reader, error) {
			return lzma.NewReader(bytes.NewReader(data))
		}
	case osmpb.Lz4:
		factory = func(data []byte) (io.Reader, error) {
			return lz4.NewReader(bytes.NewReader(data)), nil
		}
	case osmpb.Zstd:
		factory = func(data []byte) (io.Reader, error) {
			d, err := zstd.NewReader(bytes.NewReader(data))
			if err != nil {
				return nil, err
			}

			return d.IOReadCloser(), nil
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCompressionType, blob.Compression)
	}

	rawBufferSize := int(blob.RawSize) + bytes.MinRead
	if rawBufferSize > buf.Cap() {
		buf.Grow(rawBufferSize)
	}

	rdr, err := factory(blob.Data)
	if err != nil {
		return nil, fmt.Errorf("unpacker factory error: %w", err)
	}

	if c, ok := rdr.(io.Closer); ok {
		defer c.Close()
	}

	if n, err := buf.ReadFrom(rdr); err != nil {
		return nil, fmt.Errorf("unpacker read error: %w", err)
	} else if n != int64(blob.RawSize) {
		return nil, fmt.Errorf("raw blob data size %d but expected %d", n, blob.RawSize)
	}

	return buf.Bytes(), nil
}
