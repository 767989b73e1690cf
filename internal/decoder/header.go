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

package decoder

import (
	"fmt"
	"io"
	"time"

	"m4o.io/osmgraph/internal/core"
	"m4o.io/osmgraph/internal/osmpb"
	"m4o.io/osmgraph/model"
)

// LoadHeader reads the OSMHeader blob that starts every PBF file.
func LoadHeader(reader io.Reader) (model.Header, error) {
	h, blob, err := readBlob(reader)
	if err != nil {
		return model.Header{}, fmt.Errorf("unable to read header blob: %w", unexpected(err))
	}

	if h.Type != osmpb.TypeOSMHeader {
		return model.Header{}, fmt.Errorf("%w: expected %s but got %q", ErrUnknownBlobType, osmpb.TypeOSMHeader, h.Type)
	}

	buf := core.NewPooledBuffer()
	defer buf.Close()

	unpacked, err := unpack(buf, blob)
	if err != nil {
		return model.Header{}, err
	}

	hb := &osmpb.HeaderBlock{}
	if err := hb.Unmarshal(unpacked); err != nil {
		return model.Header{}, fmt.Errorf("unable to unmarshal header block: %w", err)
	}

	return parseHeaderBlock(hb), nil
}

func parseHeaderBlock(hb *osmpb.HeaderBlock) model.Header {
	header := model.Header{
		RequiredFeatures:                 hb.RequiredFeatures,
		OptionalFeatures:                 hb.OptionalFeatures,
		WritingProgram:                   hb.WritingProgram,
		Source:                           hb.Source,
		OsmosisReplicationSequenceNumber: hb.OsmosisReplicationSequenceNumber,
		OsmosisReplicationBaseURL:        hb.OsmosisReplicationBaseURL,
	}

	if bbox := hb.BBox; bbox != nil {
		header.BoundingBox = &model.BoundingBox{
			Left:   model.ToDegrees(0, 1, bbox.Left),
			Right:  model.ToDegrees(0, 1, bbox.Right),
			Top:    model.ToDegrees(0, 1, bbox.Top),
			Bottom: model.ToDegrees(0, 1, bbox.Bottom),
		}
	}

	if hb.OsmosisReplicationTimestamp != 0 {
		header.OsmosisReplicationTimestamp = time.Unix(hb.OsmosisReplicationTimestamp, 0).UTC()
	}

	return header
}
