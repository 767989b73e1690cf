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

	"m4o.io/osmgraph/internal/decoder"
)

// Sentinel errors for graph lookups.
var (
	// ErrNotFound is returned when a key was never part of the graph's
	// history. It usually indicates a dangling reference in the caller.
	ErrNotFound = errors.New("entity not found")

	// ErrDeleted is returned when the entity was removed from the graph.
	// Deletion is a valid state that a Difference reports on.
	ErrDeleted = errors.New("entity deleted")

	// ErrDanglingReference is returned when a way references a node that
	// is missing from the graph.
	ErrDanglingReference = errors.New("dangling reference")
)

// Errors reported while decoding PBF data.
var (
	ErrUnknownBlobType        = decoder.ErrUnknownBlobType
	ErrUnknownCompressionType = decoder.ErrUnknownCompressionType
	ErrMalformedBlock         = decoder.ErrMalformedBlock
	ErrBlobTooLarge           = decoder.ErrBlobTooLarge
)
