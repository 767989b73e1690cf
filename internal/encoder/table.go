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

import "slices"

const (
	notUsed = ""
)

// Strings collects the strings of a block before its Table is built.
type Strings struct {
	valid bool
	tbl   map[string]struct{}
}

// Table maps strings to their index in a block's string table.
type Table struct {
	valid   bool
	tbl     map[string]int32
	strings []string
}

func NewStrings() *Strings {
	s := &Strings{
		valid: true,
		tbl:   make(map[string]struct{}),
	}

	return s
}

func (s *Strings) Add(value string) {
	if !s.valid {
		panic("Strings in an invalid state")
	}

	s.tbl[value] = struct{}{}
}

// CalcTable sorts the collected strings into a Table. The Strings may not
// be used afterwards.
func (s *Strings) CalcTable() *Table {
	if !s.valid {
		panic("Strings in an invalid state")
	}

	s.valid = false

	// Index 0 is the delimiter of DenseNodes tags; the empty string sorts
	// first so it lands there.
	delete(s.tbl, notUsed)

	strings := make([]string, 0, len(s.tbl)+1)
	strings = append(strings, notUsed)

	for k := range s.tbl {
		strings = append(strings, k)
	}

	slices.Sort(strings)

	tbl := make(map[string]int32, len(strings))
	for i, k := range strings {
		tbl[k] = int32(i)
	}

	return &Table{
		valid:   true,
		tbl:     tbl,
		strings: strings,
	}
}

func (t *Table) IndexOf(value string) int32 {
	if !t.valid {
		panic("Table is in an invalid state")
	}

	index, ok := t.tbl[value]
	if !ok {
		panic("Index does not exist")
	}

	return index
}

func (t *Table) AsArray() []string {
	if !t.valid {
		panic("Table is in an invalid state")
	}

	return t.strings
}
