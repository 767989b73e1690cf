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

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPooledBuffer(t *testing.T) {
	buf := NewPooledBuffer()
	assert.Zero(t, buf.Len())
	assert.GreaterOrEqual(t, buf.Cap(), 0)

	buf.WriteString("osm")
	assert.Equal(t, "osm", buf.String())

	buf.Close()
	assert.Nil(t, buf.Buffer)
	assert.NotPanics(t, buf.Close)

	again := NewPooledBuffer()
	defer again.Close()

	assert.Zero(t, again.Len(), "buffers are reset when borrowed")
}
