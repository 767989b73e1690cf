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
	"fmt"
	"os"
	"path"
	"slices"
	"time"

	"m4o.io/osmgraph/internal/encoder"
)

// BlobCompression is an enumeration of the compressions an Encoder can
// apply to PBF blobs.
type BlobCompression = encoder.BlobCompression

const (
	RAW  = encoder.RAW
	ZLIB = encoder.ZLIB
	LZMA = encoder.LZMA
	LZ4  = encoder.LZ4
	ZSTD = encoder.ZSTD

	DefaultBlobCompression = encoder.DefaultBlobCompression
)

// ParseBlobCompression returns the compression named s: raw, zlib, lzma,
// lz4 or zstd.
func ParseBlobCompression(s string) (BlobCompression, error) {
	return encoder.ParseBlobCompression(s)
}

// PBF header features.
const (
	FeatureOsmSchema             = "OsmSchema-V0.6"
	FeatureDenseNodes            = "DenseNodes"
	FeatureHistoricalInformation = "HistoricalInformation"
)

const (
	tempFileName = "entities.pbf"
)

// encoderOptions provides optional configuration parameters for Encoder construction.
type encoderOptions struct {
	compression encoder.BlobCompression

	store    string
	ownStore bool
	wrtr     *os.File

	requiredFeatures                 []string
	optionalFeatures                 []string
	writingProgram                   string
	source                           string
	osmosisReplicationTimestamp      time.Time
	osmosisReplicationSequenceNumber int64
	osmosisReplicationBaseURL        string
}

// EncoderOption configures how we set up the encoder.
type EncoderOption func(*encoderOptions)

// WithCompression specifies the compression algorithm to use when encoding
// PBF blobs.  The default is ZLIB.
func WithCompression(compression encoder.BlobCompression) EncoderOption {
	return func(o *encoderOptions) {
		o.compression = compression
	}
}

// WithStorePath lets you specify the directory where entities are
// temporarily stored.
func WithStorePath(path string) EncoderOption {
	return func(o *encoderOptions) {
		o.store = path
	}
}

// WithRequiredFeatures adds to the required features of the PBF header.
func WithRequiredFeatures(features ...string) EncoderOption {
	return func(o *encoderOptions) {
		o.requiredFeatures = appendFeatures(o.requiredFeatures, features)
	}
}

// WithOptionalFeatures adds to the optional features of the PBF header.
func WithOptionalFeatures(features ...string) EncoderOption {
	return func(o *encoderOptions) {
		o.optionalFeatures = appendFeatures(o.optionalFeatures, features)
	}
}

// WithWritingProgram sets the writing program of the PBF header.
func WithWritingProgram(program string) EncoderOption {
	return func(o *encoderOptions) {
		o.writingProgram = program
	}
}

// WithSource sets the source of the PBF header.
func WithSource(source string) EncoderOption {
	return func(o *encoderOptions) {
		o.source = source
	}
}

// WithOsmosisReplicationTimestamp sets the Osmosis replication timestamp of
// the PBF header.
func WithOsmosisReplicationTimestamp(timestamp time.Time) EncoderOption {
	return func(o *encoderOptions) {
		o.osmosisReplicationTimestamp = timestamp
	}
}

// WithOsmosisReplicationSequenceNumber sets the Osmosis replication sequence
// number of the PBF header.
func WithOsmosisReplicationSequenceNumber(sequenceNumber int64) EncoderOption {
	return func(o *encoderOptions) {
		o.osmosisReplicationSequenceNumber = sequenceNumber
	}
}

// WithOsmosisReplicationBaseURL sets the Osmosis replication base URL of the
// PBF header.
func WithOsmosisReplicationBaseURL(url string) EncoderOption {
	return func(o *encoderOptions) {
		o.osmosisReplicationBaseURL = url
	}
}

// defaultEncoderConfig provides a default configuration for encoders.
var defaultEncoderConfig = encoderOptions{
	compression:      DefaultBlobCompression,
	requiredFeatures: []string{FeatureOsmSchema, FeatureDenseNodes},
	writingProgram:   "osmgraph",
}

// appendFeatures returns features with every one of added that it does not
// already hold. The result never shares storage with features.
func appendFeatures(features, added []string) []string {
	result := make([]string, len(features), len(features)+len(added))
	copy(result, features)

	for _, f := range added {
		if !slices.Contains(result, f) {
			result = append(result, f)
		}
	}

	return result
}

// initializeTempStore initializes the temporary file that entities are stored
// before being copied, after the header, to the io.Writer passed to the encoder.
func initializeTempStore(o *encoderOptions) error {
	if o.store == "" {
		tmpdir, err := os.MkdirTemp("", "osmgraph")
		if err != nil {
			return fmt.Errorf("%w: cannot create temporary directory: %w", ErrCreateTempFile, err)
		}

		o.store = tmpdir
		o.ownStore = true
	}

	name := path.Join(o.store, tempFileName)

	wrtr, err := os.CreateTemp(o.store, tempFileName+".*")
	if err != nil {
		if o.ownStore {
			_ = os.RemoveAll(o.store)
		}

		return fmt.Errorf("%w %s: %w", ErrCreateTempFile, name, err)
	}

	o.wrtr = wrtr

	return nil
}
