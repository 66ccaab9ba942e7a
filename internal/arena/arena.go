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

// Package arena defines an [Arena] of reusable slots addressed by compressed
// pointers.
//
// Slots never move once allocated, so a *T obtained from [Arena.At] stays
// valid until the slot is handed back with [Arena.Free]. Freed slots are
// recycled by later calls to [Arena.Alloc], most recently freed first.
package arena

import (
	"fmt"
	"math/bits"
)

// pointersMinLenShift is the log2 of the size of the smallest slice in
// an Arena[T].
const (
	pointersMinLenShift = 4
	pointersMinLen      = 1 << pointersMinLenShift
)

// A compressed arena pointer.
//
// The pointer value of a slot is one plus its index in the arena, so the
// zero value is nil. Cannot be dereferenced directly; see [Arena.At].
type Pointer[T any] uint32

// Nil returns whether this pointer is nil.
func (p Pointer[T]) Nil() bool {
	return p == 0
}

// Arena is a slot allocator that offers compressed pointers.
//
// Internally, it is a table of logarithmically-growing slices that mimic the
// resizing behavior of an ordinary slice, which guarantees that slots are
// never moved. Lookup is O(1), at the cost of two pointer loads.
//
// An Arena is not safe for concurrent use; callers must provide their own
// synchronization.
//
// A zero Arena[T] is empty and ready to use.
type Arena[T any] struct {
	// Invariants:
	// 1. cap(table[0]) == 1<<pointersMinLenShift.
	// 2. cap(table[n]) == 2*cap(table[n-1]).
	// 3. cap(table[n]) == len(table[n]) for every n before the slice that
	//    holds the most recently handed out slot.
	//
	// These invariants are needed for lookup to be O(1).
	table [][]T

	next int          // Number of slots ever handed out.
	free []Pointer[T] // Slots released by Free, reused LIFO.
}

// Alloc allocates a slot without initializing it.
//
// If a freed slot is available it is reused, and still holds whatever it held
// when it was freed; otherwise the arena grows and the slot is zero.
func (a *Arena[T]) Alloc() (Pointer[T], *T) {
	if n := len(a.free); n > 0 {
		p := a.free[n-1]
		a.free = a.free[:n-1]
		return p, a.At(p)
	}

	slice, _ := a.locate(a.next)
	for len(a.table) <= slice {
		a.table = append(a.table, make([]T, 0, a.lenOfNthSlice(len(a.table))))
	}
	var zero T
	a.table[slice] = append(a.table[slice], zero)
	a.next++

	p := Pointer[T](a.next)
	return p, a.At(p)
}

// Free makes the slot p points to available to Alloc.
//
// The slot's contents are left as they are; callers that need it cleared
// must do so themselves. Freeing a nil pointer is a no-op. Freeing the same
// slot twice without an intervening Alloc corrupts the free list; callers are
// expected to guard against this.
func (a *Arena[T]) Free(p Pointer[T]) {
	if p.Nil() {
		return
	}
	a.free = append(a.free, p)
}

// At dereferences a compressed pointer.
//
// p must have been allocated by a, otherwise this will either return an
// arbitrary slot or panic. If p is nil, this panics.
func (a *Arena[T]) At(p Pointer[T]) *T {
	if p.Nil() {
		a = nil // Trigger an ordinary nil dereference on purpose.
	}
	slice, idx := a.coordinates(int(p) - 1)
	return &a.table[slice][idx]
}

// Len returns the number of slots currently allocated and not freed.
func (a *Arena[T]) Len() int {
	return a.cap() - len(a.free)
}

// Reserve grows the arena so that at least n slots exist without further
// allocation of backing slices.
func (a *Arena[T]) Reserve(n int) {
	for a.lenOfFirstNSlices(len(a.table)) < n {
		a.table = append(a.table, make([]T, 0, a.lenOfNthSlice(len(a.table))))
	}
}

// cap returns the number of slots ever handed out, freed or not.
func (a *Arena[T]) cap() int {
	return a.next
}

// lenOfNthSlice returns the length of the nth slice, even if it isn't
// allocated yet.
func (*Arena[T]) lenOfNthSlice(n int) int {
	return pointersMinLen << n
}

// lenOfFirstNSlices returns the length of the first n slices.
func (a *Arena[T]) lenOfFirstNSlices(n int) int {
	// Note the following identity:
	//
	// 2^m + 2^(m+1) + ... + 2^n = 2^(n+1) - 2^m
	//
	// This tells us that the sum of a.lenOfNthSlice(m) from 0 to n-1 (the first
	// n slices) is
	return max(0, a.lenOfNthSlice(n)-a.lenOfNthSlice(0))
}

// coordinates calculates the coordinates of the given index in table. It
// also performs a bounds check.
func (a *Arena[T]) coordinates(idx int) (int, int) {
	if idx >= a.cap() || idx < 0 {
		panic(fmt.Sprintf("arena: pointer out of range: %#x", idx))
	}
	return a.locate(idx)
}

// locate maps an index to its slice and offset, whether or not that slice
// has been allocated yet.
func (a *Arena[T]) locate(idx int) (int, int) {
	// Given pointersMinLenShift == n, the cumulative starting index of each
	// slice is
	//
	// 0b0 << n, 0b1 << n, 0b11 << n, 0b111 << n
	//
	// Adding 0b1 << n gives 0b1 << n, 0b10 << n, 0b100 << n, ...; the
	// one-indexed high order bit of that maps to 1+n, 2+n, 3+n, so
	// subtracting n+1 yields the slice index.
	slice := bits.UintSize - bits.LeadingZeros(uint(idx)+pointersMinLen)
	slice -= pointersMinLenShift + 1

	idx -= a.lenOfFirstNSlices(slice)
	return slice, idx
}
