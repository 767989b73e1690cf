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

	"m4o.io/osmgraph/internal/encoder/packers"
	"m4o.io/osmgraph/internal/osmpb"
)

// Packer is the interface that groups methods for packing the contents of a
// PBF blob and saving the packed data in the correct place.
type Packer interface {
	// WriteCloser is used to write the contents of the blob to be packed.
	// Be sure to call the Close method to ensure that all the contents are
	// packed.
	io.WriteCloser

	// SaveTo will save the packed contents to the blob, recording the
	// compression used.
	SaveTo(blob *osmpb.Blob)
}

// Pack marshals and compresses the message into the bytes of a blob.
func Pack(msg osmpb.Message, c BlobCompression) ([]byte, error) {
	p, err := newPacker(c)
	if err != nil {
		return nil, err
	}

	b := msg.Marshal()

	if _, err = p.Write(b); err != nil {
		return nil, fmt.Errorf("could not compress message: %w", err)
	}

	if err = p.Close(); err != nil {
		return nil, fmt.Errorf("could not close writer: %w", err)
	}

	blob := &osmpb.Blob{
		RawSize: int32(len(b)),
	}

	p.SaveTo(blob)

	return blob.Marshal(), nil
}

// newPacker creates the appropriate Packer for the compression.
func newPacker(c BlobCompression) (Packer, error) {
	switch c {
	case RAW:
		return packers.NewRawPacker(), nil
	case ZLIB:
		return packers.NewZlibPacker(), nil
	case LZMA:
		return packers.NewLzmaPacker(), nil
	case LZ4:
		return packers.NewLz4Packer(), nil
	case ZSTD:
		return packers.NewZstdPacker(), nil
	default:
		return nil, fmt.Errorf("unknown compression type: %d", c)
	}
}
