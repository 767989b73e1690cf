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
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"m4o.io/osmgraph/internal/core"
	"m4o.io/osmgraph/internal/osmpb"
)

const (
	// MaxBlobHeaderSize is the largest blob header a reader accepts.
	MaxBlobHeaderSize = 64 * 1024

	// MaxBlobSize is the largest blob, compressed or not, a reader accepts.
	MaxBlobSize = 32 * 1024 * 1024
)

var (
	ErrUnknownBlobType = errors.New("unknown blob type")
	ErrBlobTooLarge    = errors.New("blob exceeds maximum size")
)

// GenerateBlobReader creates an iterator that returns primitive blobs read
// off of the reader. It stops at the end of the reader, on the first error
// or when ctx is done.
func GenerateBlobReader(ctx context.Context, reader io.Reader) iter.Seq2[*osmpb.Blob, error] {
	return func(yield func(enc *osmpb.Blob, err error) bool) {
		for {
			select {
			case <-ctx.Done():
				yield(nil, ctx.Err())

				return
			default:
			}

			h, blob, err := readBlob(reader)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					slog.Error("unable to read blob", "error", err)
					yield(nil, err)
				}

				return
			}

			if h.Type != osmpb.TypeOSMData {
				err = fmt.Errorf("%w: expected %s but got %q", ErrUnknownBlobType, osmpb.TypeOSMData, h.Type)
				slog.Error("unable to read blob", "error", err)
				yield(nil, err)

				return
			}

			if !yield(blob, nil) {
				return
			}
		}
	}
}

// readBlob reads a PBF blob, and the header that precedes it, from the rdr.
// A clean end of input is reported as io.EOF.
func readBlob(rdr io.Reader) (*osmpb.BlobHeader, *osmpb.Blob, error) {
	h, err := readBlobHeader(rdr)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, err
		}

		return nil, nil, fmt.Errorf("error reading blob header: %w", err)
	}

	b, err := readBlobData(rdr, int64(h.DataSize))
	if err != nil {
		return nil, nil, fmt.Errorf("error reading blob: %w", err)
	}

	return h, b, nil
}

// readBlobHeader unmarshals a header from an array of protobuf encoded bytes.
// The header is used when decoding blobs into OSM entities.
func readBlobHeader(rdr io.Reader) (*osmpb.BlobHeader, error) {
	buf := core.NewPooledBuffer()
	defer buf.Close()

	var size uint32

	if err := binary.Read(rdr, binary.BigEndian, &size); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("error reading blob header size: %w", err)
		}

		return nil, err
	}

	if size > MaxBlobHeaderSize {
		return nil, fmt.Errorf("%w: header of %d bytes", ErrBlobTooLarge, size)
	}

	if _, err := io.CopyN(buf, rdr, int64(size)); err != nil {
		return nil, fmt.Errorf("error reading blob header: %w", unexpected(err))
	}

	header := &osmpb.BlobHeader{}

	if err := header.Unmarshal(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("error unmarshalling blob header: %w", err)
	}

	return header, nil
}

// readBlobData unmarshals a blob from an array of protobuf encoded bytes. The
// blob still needs to be unpacked and parsed into OSM entities.
func readBlobData(rdr io.Reader, size int64) (*osmpb.Blob, error) {
	if size < 0 || size > MaxBlobSize {
		return nil, fmt.Errorf("%w: blob of %d bytes", ErrBlobTooLarge, size)
	}

	buf := core.NewPooledBuffer()
	defer buf.Close()

	if _, err := io.CopyN(buf, rdr, size); err != nil {
		return nil, unexpected(err)
	}

	blob := &osmpb.Blob{}

	if err := blob.Unmarshal(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("error unmarshalling blob: %w", err)
	}

	return blob, nil
}

// unexpected turns an io.EOF in the middle of a blob into an
// io.ErrUnexpectedEOF.
func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}

	return err
}
