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
	"errors"
	"fmt"
	"io"
	"log/slog"

	"m4o.io/osmgraph/model"
)

// Load decodes a PBF stream into a new base graph. When the stream carries
// more than one version of an entity, the highest version wins. Entities
// whose latest version is not visible are left out of the graph.
func Load(ctx context.Context, r io.Reader, opts ...DecoderOption) (*Graph, model.Header, error) {
	d, err := NewDecoder(ctx, r, opts...)
	if err != nil {
		return nil, model.Header{}, err
	}

	defer d.Close()

	latest := make(map[model.Key]model.Entity)

	for {
		entities, err := d.Decode()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, d.Header, fmt.Errorf("unable to decode entities: %w", err)
		}

		for _, e := range entities {
			k := e.GetKey()
			if cur, ok := latest[k]; !ok || version(e) >= version(cur) {
				latest[k] = e
			}
		}
	}

	entities := make([]model.Entity, 0, len(latest))
	hidden := 0

	for _, e := range latest {
		if info := e.GetInfo(); info != nil && !info.Visible {
			hidden++

			continue
		}

		entities = append(entities, e)
	}

	g := NewGraph(entities...)

	slog.Debug("loaded graph", "entities", g.Len(), "hidden", hidden)

	return g, d.Header, nil
}

func version(e model.Entity) int32 {
	if info := e.GetInfo(); info != nil {
		return info.Version
	}

	return 0
}
