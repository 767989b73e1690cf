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

package model

import (
	"maps"
	"strings"
)

// Tags is the key/value mapping attached to every entity.
type Tags map[string]string

// uninterestingKeys do not, by themselves, make an entity worth reporting.
var uninterestingKeys = map[string]struct{}{
	"attribution": {},
	"created_by":  {},
	"source":      {},
	"odbl":        {},
}

var uninterestingPrefixes = []string{"source:", "source_ref", "tiger:"}

// Equal reports whether both mappings hold the same pairs. A nil mapping
// equals an empty one.
func (t Tags) Equal(o Tags) bool {
	return maps.Equal(t, o)
}

// Clone returns a copy of the mapping.
func (t Tags) Clone() Tags {
	if t == nil {
		return nil
	}

	return maps.Clone(t)
}

// Merge returns a copy of t with the pairs of o added or overridden.
func (t Tags) Merge(o Tags) Tags {
	merged := make(Tags, len(t)+len(o))
	maps.Copy(merged, t)
	maps.Copy(merged, o)

	return merged
}

// HasInterestingTags reports whether any tag describes the feature itself,
// rather than its provenance.
func (t Tags) HasInterestingTags() bool {
	for k := range t {
		if isInteresting(k) {
			return true
		}
	}

	return false
}

func isInteresting(key string) bool {
	if _, ok := uninterestingKeys[key]; ok {
		return false
	}

	for _, p := range uninterestingPrefixes {
		if strings.HasPrefix(key, p) {
			return false
		}
	}

	return true
}
