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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/destel/rill"

	"m4o.io/osmgraph/internal/encoder"
	"m4o.io/osmgraph/model"
)

const (
	numConsumers = 2

	// encoderConcurrency is the number of blocks encoded, and packed, at
	// the same time.
	encoderConcurrency = 4
)

var (
	ErrCreateTempFile = errors.New("cannot create temporary file")
	ErrEncoderClosed  = errors.New("encoder is closed")
)

// Encoder encodes OpenStreetMap entities as PBF data written to an output
// stream.
//
// The header of a PBF file carries the bounding box of its nodes, so the
// encoded blocks are spooled to a temporary file and copied to the output
// stream, after the header, when the Encoder is closed.
type Encoder struct {
	Header model.Header

	entities chan []model.Entity
	cfg      *encoderOptions
	wrtr     io.Writer

	mu       sync.Mutex
	isClosed bool

	errMu sync.Mutex
	err   error

	completed sync.WaitGroup
}

// NewEncoder returns a new encoder, configured with options, that writes to
// wrtr. Nothing is written until Close is called.
func NewEncoder(wrtr io.Writer, opts ...EncoderOption) (*Encoder, error) {
	cfg := defaultEncoderConfig

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := initializeTempStore(&cfg); err != nil {
		return nil, err
	}

	e := &Encoder{
		Header: model.Header{
			BoundingBox:                      model.InitialBoundingBox(),
			RequiredFeatures:                 cfg.requiredFeatures,
			OptionalFeatures:                 cfg.optionalFeatures,
			WritingProgram:                   cfg.writingProgram,
			Source:                           cfg.source,
			OsmosisReplicationTimestamp:      cfg.osmosisReplicationTimestamp,
			OsmosisReplicationSequenceNumber: cfg.osmosisReplicationSequenceNumber,
			OsmosisReplicationBaseURL:        cfg.osmosisReplicationBaseURL,
		},

		entities: make(chan []model.Entity),
		cfg:      &cfg,
		wrtr:     wrtr,
	}

	coalesced := encoder.Coalesce(e.entities, encoder.EntityLimit)
	inspected, bboxes := encoder.ExtractBoundingBoxes(coalesced)
	encoded := rill.OrderedMap(inspected, encoderConcurrency, encoder.EncodeBatch)
	packed := rill.OrderedMap(encoded, encoderConcurrency, encoder.GenerateBatchPacker(cfg.compression))
	statuses := encoder.SavePacked(cfg.wrtr, packed)

	// Close() will wait for these two consumers to complete
	e.completed.Add(numConsumers)

	go e.consumeBBoxes(bboxes)
	go e.consumeStatuses(statuses)

	return e, nil
}

// Encode writes an entity into a PBF Blob.
func (e *Encoder) Encode(entity model.Entity) error {
	return e.EncodeBatch([]model.Entity{entity})
}

// EncodeBatch writes an array of entities into PBF Blobs. It reports the
// first error the background pipeline has run into so far.
func (e *Encoder) EncodeBatch(entities []model.Entity) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isClosed {
		return ErrEncoderClosed
	}

	if err := e.firstErr(); err != nil {
		return err
	}

	e.entities <- entities

	return nil
}

// Close flushes the background encoding pipeline and writes the header and
// the encoded blocks to the output stream.
func (e *Encoder) Close() error {
	e.mu.Lock()

	if e.isClosed {
		e.mu.Unlock()

		return ErrEncoderClosed
	}

	e.isClosed = true
	close(e.entities)
	e.mu.Unlock()

	e.completed.Wait()

	defer e.removeTempStore()

	if err := e.firstErr(); err != nil {
		return err
	}

	return e.writeHeaderAndBody()
}

func (e *Encoder) setErr(err error) {
	e.errMu.Lock()
	defer e.errMu.Unlock()

	if e.err == nil {
		e.err = err
	}
}

func (e *Encoder) firstErr() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()

	return e.err
}

func (e *Encoder) consumeBBoxes(bboxes <-chan rill.Try[*model.BoundingBox]) {
	defer e.completed.Done()

	for bbox := range bboxes {
		e.Header.BoundingBox.ExpandWithBoundingBox(bbox.Value)
	}
}

func (e *Encoder) consumeStatuses(statuses <-chan rill.Try[struct{}]) {
	defer e.completed.Done()

	for status := range statuses {
		if status.Error != nil {
			slog.Error("unable to encode block", "error", status.Error)
			e.setErr(status.Error)
		}
	}
}

func (e *Encoder) writeHeaderAndBody() error {
	if err := e.cfg.wrtr.Sync(); err != nil {
		return fmt.Errorf("cannot sync entities file: %w", err)
	}

	if _, err := e.cfg.wrtr.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("cannot seek to beginning of entities file: %w", err)
	}

	if err := encoder.SaveHeader(e.wrtr, e.Header, e.cfg.compression); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	if _, err := io.Copy(e.wrtr, e.cfg.wrtr); err != nil {
		return fmt.Errorf("error copying entities file: %w", err)
	}

	return nil
}

func (e *Encoder) removeTempStore() {
	name := e.cfg.wrtr.Name()

	if err := e.cfg.wrtr.Close(); err != nil {
		slog.Error("error closing temp store", "error", err)
	}

	target := name
	if e.cfg.ownStore {
		target = e.cfg.store
	}

	if err := os.RemoveAll(target); err != nil {
		slog.Error("error removing temp store", "error", err)
	}
}
