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

package arena_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bufbuild/syntree/internal/arena"
)

// alloc stores v in a fresh slot.
func alloc(a *arena.Arena[int], v int) arena.Pointer[int] {
	p, slot := a.Alloc()
	*slot = v
	return p
}

func TestSlotsSurviveGrowth(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	var a arena.Arena[int]
	first := alloc(&a, 100)
	slot := a.At(first)

	// Cross the boundaries of the first two backing slices (16 and 48 slots).
	var ptrs []arena.Pointer[int]
	for i := range 60 {
		ptrs = append(ptrs, alloc(&a, i))
	}
	assert.Equal(61, a.Len())
	assert.Same(slot, a.At(first))
	assert.Equal(100, *slot)
	for i, p := range ptrs {
		assert.Equal(arena.Pointer[int](i+2), p)
		assert.Equal(i, *a.At(p))
	}

	// Release a run that straddles a boundary; the survivors do not move.
	before := a.At(ptrs[20])
	for _, p := range ptrs[10:18] {
		a.Free(p)
	}
	assert.Equal(53, a.Len())
	assert.Same(before, a.At(ptrs[20]))
	assert.Same(slot, a.At(first))
}

func TestFreeListReuse(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	var a arena.Arena[int]
	var ptrs []arena.Pointer[int]
	for i := range 20 {
		ptrs = append(ptrs, alloc(&a, i))
	}
	addr := a.At(ptrs[15])

	// Slots 16 and 17 sit on either side of the first slice boundary.
	a.Free(ptrs[15])
	a.Free(ptrs[16])
	a.Free(ptrs[3])
	assert.Equal(17, a.Len())

	for _, want := range []arena.Pointer[int]{ptrs[3], ptrs[16], ptrs[15]} {
		p, slot := a.Alloc()
		assert.Equal(want, p)
		assert.Same(a.At(want), slot)
	}
	assert.Same(addr, a.At(ptrs[15]))
	assert.Equal(20, a.Len())

	// Only once the free list is empty does the arena grow.
	assert.Equal(arena.Pointer[int](21), alloc(&a, 20))
	assert.Equal(21, a.Len())
}

func TestFree(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	var a arena.Arena[int]
	x := alloc(&a, 1)
	y := alloc(&a, 2)
	z := alloc(&a, 3)
	assert.Equal(3, a.Len())

	a.Free(y)
	a.Free(x)
	a.Free(0)
	assert.Equal(1, a.Len())

	// Most recently freed first, and the old contents are still there.
	p, slot := a.Alloc()
	assert.Equal(x, p)
	assert.Equal(1, *slot)

	assert.Equal(y, alloc(&a, 20))
	assert.Equal(20, *a.At(y))

	w := alloc(&a, 4)
	assert.Equal(arena.Pointer[int](4), w)
	assert.Equal(3, *a.At(z))
	assert.Equal(4, a.Len())
}

func TestReserve(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	var a arena.Arena[int]
	a.Reserve(100)
	assert.Equal(0, a.Len())
	assert.Panics(func() { a.At(1) })

	var slots []*int
	for i := range 100 {
		slots = append(slots, a.At(alloc(&a, i)))
	}
	for i, slot := range slots {
		assert.Same(slot, a.At(arena.Pointer[int](i+1)))
		assert.Equal(i, *slot)
	}
}

func TestOutOfRange(t *testing.T) {
	t.Parallel()

	var a arena.Arena[int]
	alloc(&a, 1)
	assert.Panics(t, func() { a.At(2) })
	assert.Panics(t, func() { a.At(0) })
}
