// Copyright 2024 The ordsync Authors.
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

package atomiccell

import (
	"fmt"
	"reflect"
)

// podKind reports whether t consists solely of plain-old-data kinds:
// booleans, integers, floats, complex numbers, and arrays and structs of
// those. Anything the garbage collector needs to see (pointers, maps, chans,
// slices, strings, interfaces, funcs) is rejected, since cell storage is
// opaque to the collector.
func podKind(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return nil
	case reflect.Array:
		return podKind(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if err := podKind(t.Field(i).Type); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("kind %s is not plain old data", t.Kind())
	}
}

// dataBytes returns the number of bytes of t that carry value data. If it is
// less than t.Size(), the difference is padding.
func dataBytes(t reflect.Type) uintptr {
	switch t.Kind() {
	case reflect.Array:
		return uintptr(t.Len()) * dataBytes(t.Elem())
	case reflect.Struct:
		var n uintptr
		for i := 0; i < t.NumField(); i++ {
			n += dataBytes(t.Field(i).Type)
		}
		return n
	default:
		return t.Size()
	}
}

// wordRepresentable reports whether values of type t may back a Cell: plain
// old data, between 1 and 8 bytes, with no padding. Padding bytes are
// rejected because the cell compares whole words; two equal values differing
// only in padding garbage would spuriously compare unequal.
func wordRepresentable(t reflect.Type) error {
	if err := podKind(t); err != nil {
		return err
	}
	size := t.Size()
	if size == 0 {
		return fmt.Errorf("zero-size type carries no value")
	}
	if size > wordBytes {
		return fmt.Errorf("size %d exceeds the %d-byte word", size, wordBytes)
	}
	if pad := size - dataBytes(t); pad != 0 {
		return fmt.Errorf("%d padding byte(s) make whole-word comparison ambiguous", pad)
	}
	return nil
}
