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
	"encoding/binary"
	"fmt"
	"io"

	"m4o.io/osmgraph/internal/osmpb"
)

// writeBlob writes the blob header for data, a marshalled osmpb.Blob,
// followed by data itself.
func writeBlob(wrtr io.Writer, blobType string, data []byte) error {
	hdr := &osmpb.BlobHeader{
		Type:     blobType,
		DataSize: int32(len(data)),
	}

	hb := hdr.Marshal()

	if err := binary.Write(wrtr, binary.BigEndian, uint32(len(hb))); err != nil {
		return fmt.Errorf("could not write header size: %w", err)
	}

	if _, err := wrtr.Write(hb); err != nil {
		return fmt.Errorf("could not write blob header: %w", err)
	}

	if _, err := wrtr.Write(data); err != nil {
		return fmt.Errorf("could not write blob data: %w", err)
	}

	return nil
}
