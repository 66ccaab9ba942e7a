// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package extent provides an ordered index of disjoint source extents.
package extent

import (
	"fmt"

	"github.com/tidwall/btree"
	"golang.org/x/exp/constraints" //nolint:exptostd // Tries to replace w/ cmp.
)

// Endpoint is a type that may be used as an extent endpoint.
type Endpoint = constraints.Integer

// Entry is a single extent in an [Index], along with its value.
type Entry[K Endpoint, V any] struct {
	Start, End K // Inclusive.
	Value      V
}

// Contains returns whether an entry contains a given point.
func (e Entry[K, V]) Contains(point K) bool {
	return e.Start <= point && point <= e.End
}

// Index maps disjoint, inclusive extents to values.
//
// A zero value is ready to use.
type Index[K Endpoint, V any] struct {
	// Keys in this map are the ends of extents in the index.
	tree btree.Map[K, Entry[K, V]]
}

// Len returns the number of extents in the index.
func (x *Index[K, V]) Len() int {
	return x.tree.Len()
}

// Insert adds [start, end] to the index.
//
// If the extent overlaps one already present, nothing is inserted and the
// overlapping entry with the least start is returned with ok set to false.
func (x *Index[K, V]) Insert(start, end K, value V) (overlap Entry[K, V], ok bool) {
	if start > end {
		panic(fmt.Sprintf("extent: start (%#v) > end (%#v)", start, end))
	}

	// The least entry whose end is at or after start is the only one that
	// can overlap: every entry before it ends before start, and every entry
	// after it starts after its end.
	iter := x.tree.Iter()
	if iter.Seek(start) && iter.Value().Start <= end {
		return iter.Value(), false
	}

	x.tree.Set(end, Entry[K, V]{Start: start, End: end, Value: value})
	return Entry[K, V]{}, true
}

// Get looks up the extent which contains point.
func (x *Index[K, V]) Get(point K) (Entry[K, V], bool) {
	iter := x.tree.Iter()
	if !iter.Seek(point) || !iter.Value().Contains(point) {
		return Entry[K, V]{}, false
	}
	return iter.Value(), true
}

