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
	"runtime"
)

const (
	// DefaultBatchSize is the default batch size for unprocessed blobs.
	DefaultBatchSize = 16
)

// DefaultNCpu provides the default number of CPUs.
func DefaultNCpu() uint16 {
	cpus := uint16(runtime.GOMAXPROCS(-1))

	return max(cpus-1, 1)
}

// decoderOptions provides optional configuration parameters for Decoder construction.
type decoderOptions struct {
	protoBatchSize int    // number of blobs handed to a worker at once
	nCPU           uint16 // the number of CPUs to use for background processing
}

// DecoderOption configures how we set up the decoder.
type DecoderOption func(*decoderOptions)

// WithProtoBatchSize lets you set the number of blobs a worker unpacks in
// one go. Values below 1 select DefaultBatchSize.
func WithProtoBatchSize(s int) DecoderOption {
	return func(o *decoderOptions) {
		if s < 1 {
			s = DefaultBatchSize
		}

		o.protoBatchSize = s
	}
}

// WithNCpus lets you set the number of CPUs to use for background
// processing. Zero selects DefaultNCpu.
func WithNCpus(n uint16) DecoderOption {
	return func(o *decoderOptions) {
		if n == 0 {
			n = DefaultNCpu()
		}

		o.nCPU = n
	}
}

// defaultDecoderConfig provides a default configuration for decoders.
var defaultDecoderConfig = decoderOptions{
	protoBatchSize: DefaultBatchSize,
	nCPU:           DefaultNCpu(),
}
