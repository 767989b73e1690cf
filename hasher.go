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
	"m4o.io/osmgraph/model"
)

const goldenRatio64 = 0x9E3779B97F4A7C15

// keyHasher hashes entity keys for the persistent maps backing a Graph.
type keyHasher struct{}

func (keyHasher) Hash(k model.Key) uint32 {
	h := uint64(k.ID)*goldenRatio64 + uint64(k.Type)
	h ^= h >> 32

	return uint32(h)
}

func (keyHasher) Equal(a, b model.Key) bool {
	return a == b
}
