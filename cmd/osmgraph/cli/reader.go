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

package cli

import (
	"os"

	"github.com/spf13/pflag"
)

// -- *os.File Value
type fileValue struct {
	value    **os.File
	typename string
	open     func(string) (*os.File, error)
}

// NewReaderValue creates a cobra Value object for an *os.File opened for
// reading.
func NewReaderValue(def *os.File, p **os.File, typename string) pflag.Value {
	return newFileValue(def, p, typename, os.Open)
}

// NewWriterValue creates a cobra Value object for an *os.File created, or
// truncated, for writing.
func NewWriterValue(def *os.File, p **os.File, typename string) pflag.Value {
	return newFileValue(def, p, typename, os.Create)
}

func newFileValue(def *os.File, p **os.File, typename string, open func(string) (*os.File, error)) *fileValue {
	fv := &fileValue{
		value:    p,
		typename: typename,
		open:     open,
	}
	*fv.value = def

	return fv
}

func (f *fileValue) Set(val string) error {
	file, err := f.open(val)
	if err != nil {
		return err
	}

	if *f.value != nil && *f.value != os.Stdin && *f.value != os.Stdout {
		_ = (*f.value).Close()
	}

	*f.value = file

	return nil
}

func (f *fileValue) Type() string {
	return f.typename
}

func (f *fileValue) String() string {
	if *f.value == nil {
		return ""
	}

	return (*f.value).Name()
}
