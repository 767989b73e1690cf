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

package encoder

import (
	"io"

	"github.com/destel/rill"

	"m4o.io/osmgraph/internal/osmpb"
	"m4o.io/osmgraph/model"
)

// Coalesce regroups the incoming entities into batches of at most size
// entities of a single type.
func Coalesce(in <-chan []model.Entity, size int) <-chan rill.Try[[]model.Entity] {
	nch := make(chan rill.Try[model.Entity])
	rch := make(chan rill.Try[model.Entity])
	wch := make(chan rill.Try[model.Entity])

	go func() {
		defer close(nch)
		defer close(rch)
		defer close(wch)

		for entities := range in {
			for _, e := range entities {
				o := rill.Try[model.Entity]{Value: e}
				nch <- o
				rch <- o
				wch <- o
			}
		}
	}()

	bn := batchEntities[*model.Node](nch, size)
	br := batchEntities[*model.Relation](rch, size)
	bw := batchEntities[*model.Way](wch, size)

	return rill.Merge(bn, br, bw)
}

// ExtractBoundingBoxes passes batches through unchanged while reporting the
// bounding box of the nodes of each batch.
func ExtractBoundingBoxes(
	in <-chan rill.Try[[]model.Entity],
) (
	<-chan rill.Try[[]model.Entity],
	<-chan rill.Try[*model.BoundingBox],
) {
	ech := make(chan rill.Try[[]model.Entity])
	bch := make(chan rill.Try[*model.BoundingBox])

	go func() {
		defer close(ech)
		defer close(bch)

		for entities := range in {
			ech <- entities

			bbox := model.InitialBoundingBox()

			for _, e := range entities.Value {
				if n, ok := e.(*model.Node); ok {
					bbox.ExpandWithLatLng(n.Lat, n.Lon)
				}
			}

			bch <- rill.Wrap(bbox, nil)
		}
	}()

	return ech, bch
}

func batchEntities[T model.Entity](in <-chan rill.Try[model.Entity], size int) <-chan rill.Try[[]model.Entity] {
	filtered := rill.OrderedFilter(in, 1, func(e model.Entity) (bool, error) {
		_, ok := e.(T)

		return ok, nil
	})

	return rill.Batch(filtered, size, -1)
}

// EncodeBatch converts a batch of entities of one type into a primitive
// block.
func EncodeBatch(batch []model.Entity) (*osmpb.PrimitiveBlock, error) {
	return newBlockContext(batch).extractPrimitiveBlock()
}

// SavePacked writes every packed block to w, reporting the outcome of each.
func SavePacked(w io.Writer, ch <-chan rill.Try[[]byte]) <-chan rill.Try[struct{}] {
	out := make(chan rill.Try[struct{}])

	go func() {
		defer close(out)

		for buf := range ch {
			out <- rill.Wrap(struct{}{}, SaveBlock(w, buf))
		}
	}()

	return out
}

func GenerateBatchPacker(c BlobCompression) func(block *osmpb.PrimitiveBlock) ([]byte, error) {
	return func(block *osmpb.PrimitiveBlock) ([]byte, error) {
		return Pack(block, c)
	}
}
