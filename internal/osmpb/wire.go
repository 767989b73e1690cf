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

// Package osmpb holds the messages of the OpenStreetMap PBF file format
// (fileformat.proto and osmformat.proto) and their protobuf wire encoding.
//
// Only the fields read or written by the decoder and encoder are modelled.
// Unknown fields are skipped when unmarshalling.
package osmpb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Message is implemented by every message of the package.
type Message interface {
	Marshal() []byte
	Unmarshal(b []byte) error
}

// field is called for every field of a message being unmarshalled. It
// returns the number of bytes consumed from b, or a negative protowire
// error code. Returning 0 skips the field.
type field func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// unmarshal walks the fields of a message, handing each one to fn.
func unmarshal(name string, b []byte, fn field) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%s: %w", name, protowire.ParseError(n))
		}

		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return fmt.Errorf("%s: field %d: %w", name, num, err)
		}

		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}

		if m < 0 {
			return fmt.Errorf("%s: field %d: %w", name, num, protowire.ParseError(m))
		}

		b = b[m:]
	}

	return nil
}

func consumeVarint(typ protowire.Type, b []byte, fn func(v uint64)) (int, error) {
	if typ != protowire.VarintType {
		return 0, nil
	}

	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		fn(v)
	}

	return n, nil
}

func consumeBytes(typ protowire.Type, b []byte, fn func(v []byte) error) (int, error) {
	if typ != protowire.BytesType {
		return 0, nil
	}

	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, nil
	}

	return n, fn(v)
}

// consumeRepeated reads a repeated scalar field, whether packed or not.
func consumeRepeated(typ protowire.Type, b []byte, fn func(v uint64)) (int, error) {
	switch typ {
	case protowire.VarintType:
		return consumeVarint(typ, b, fn)
	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}

		for len(packed) > 0 {
			v, m := protowire.ConsumeVarint(packed)
			if m < 0 {
				return m, nil
			}

			fn(v)
			packed = packed[m:]
		}

		return n, nil
	default:
		return 0, nil
	}
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)

	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendString(b, v)
}

func appendMessage(b []byte, num protowire.Number, m Message) []byte {
	return appendBytes(b, num, m.Marshal())
}

// appendPacked writes values as a packed repeated field. Nothing is written
// for an empty slice.
func appendPacked[T any](b []byte, num protowire.Number, values []T, enc func(T) uint64) []byte {
	if len(values) == 0 {
		return b
	}

	var packed []byte
	for _, v := range values {
		packed = protowire.AppendVarint(packed, enc(v))
	}

	return appendBytes(b, num, packed)
}

func encInt32(v int32) uint64   { return uint64(int64(v)) }
func encUint32(v uint32) uint64 { return uint64(v) }
func encSint32(v int32) uint64  { return protowire.EncodeZigZag(int64(v)) }
func encSint64(v int64) uint64  { return protowire.EncodeZigZag(v) }
func encBool(v bool) uint64     { return protowire.EncodeBool(v) }

func decSint64(v uint64) int64 { return protowire.DecodeZigZag(v) }
func decSint32(v uint64) int32 { return int32(protowire.DecodeZigZag(v & 0xFFFFFFFF)) }
