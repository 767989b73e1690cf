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
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/destel/rill"

	"m4o.io/osmgraph/internal/decoder"
	"m4o.io/osmgraph/model"
)

// Decoder reads and decodes OpenStreetMap PBF data from an input stream.
// Blobs are unpacked and parsed concurrently, but entities are returned in
// file order.
type Decoder struct {
	Header model.Header

	entities <-chan rill.Try[[]model.Entity]
	cancel   context.CancelFunc
	closed   atomic.Bool
	close    sync.Once
}

// NewDecoder returns a new decoder, configured with options, that reads from
// reader. The decoder is initialized with the OSM header.
func NewDecoder(ctx context.Context, reader io.Reader, opts ...DecoderOption) (*Decoder, error) {
	cfg := defaultDecoderConfig

	for _, opt := range opts {
		opt(&cfg)
	}

	hdr, err := decoder.LoadHeader(reader)
	if err != nil {
		return nil, fmt.Errorf("unable to load header: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)

	blobs := rill.FromSeq2(decoder.GenerateBlobReader(ctx, reader))
	batches := rill.Batch(blobs, cfg.protoBatchSize, -1)
	entities := rill.OrderedFlatMap(batches, int(cfg.nCPU), decoder.DecodeBatch)

	return &Decoder{
		Header:   hdr,
		entities: entities,
		cancel:   cancel,
	}, nil
}

// Decode returns the entities of the next primitive block, or the error
// encountered. The end of the input stream, or a closed decoder, is
// reported by an io.EOF error.
func (d *Decoder) Decode() ([]model.Entity, error) {
	if d.closed.Load() {
		return nil, io.EOF
	}

	entities, ok := <-d.entities
	if !ok {
		return nil, io.EOF
	}

	if entities.Error != nil {
		if d.closed.Load() {
			return nil, io.EOF
		}

		d.Close()

		return nil, entities.Error
	}

	return entities.Value, nil
}

// Close cancels the background decoding pipeline. It is safe to call more
// than once.
func (d *Decoder) Close() {
	d.close.Do(func() {
		d.closed.Store(true)
		d.cancel()
		rill.DrainNB(d.entities)
	})
}
