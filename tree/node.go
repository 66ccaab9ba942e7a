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

package tree

import (
	"fmt"
	"iter"
	"slices"
	"sync/atomic"

	"github.com/bufbuild/syntree/internal/arena"
)

// Node is a handle to a node in a [Store].
//
// Copying a Node does not add an owner; use [Node.Retain] for that. The zero
// Node is the absent node: it is only valid for [Node.IsZero], [Node.Live],
// [Equal] and [String].
//
// Any other method called on a node that has been released by its last owner
// panics.
type Node struct {
	store *Store
	ptr   arena.Pointer[rawNode]
	gen   uint32
}

// IsZero returns whether this is the absent node.
func (n Node) IsZero() bool {
	return n.store == nil
}

// Live returns whether n refers to a node that has not been freed.
func (n Node) Live() bool {
	if n.IsZero() {
		return false
	}
	raw := n.store.at(n.ptr)
	return raw.gen == n.gen && atomic.LoadInt32(&raw.refs) > 0
}

// Store returns the store n lives in.
func (n Node) Store() *Store {
	return n.store
}

// Retain adds an owner to n and returns it.
func (n Node) Retain() Node {
	atomic.AddInt32(&n.raw().refs, 1)
	return n
}

// Release drops an owner of n.
//
// When the last owner is dropped, each of n's children is released in turn
// and n's storage is reclaimed; n and every copy of it become invalid.
// Children still owned elsewhere are not affected beyond losing n as an
// owner.
func (n Node) Release() {
	if atomic.AddInt32(&n.raw().refs, -1) == 0 {
		n.store.teardown(n.ptr)
	}
}

// RefCount returns the number of owners n currently has.
func (n Node) RefCount() int {
	return int(atomic.LoadInt32(&n.raw().refs))
}

// Symbol returns n's symbol. Error nodes always have [SymbolError].
func (n Node) Symbol() Symbol {
	return n.raw().symbol
}

// Variant returns which kind of node n is.
func (n Node) Variant() Variant {
	return n.raw().variant
}

// Attrs returns n's extent and hidden flag.
func (n Node) Attrs() Attrs {
	return n.raw().attrs
}

// NumChildren returns the number of children of n. Leaves and error nodes
// have none.
func (n Node) NumChildren() int {
	return len(n.raw().children)
}

// Child returns the ith child of n. The result is owned by n; retain it to
// keep it beyond n's lifetime.
func (n Node) Child(i int) Node {
	return n.child(n.raw(), i)
}

// Children returns an iterator over n's children, left to right.
func (n Node) Children() iter.Seq[Node] {
	raw := n.raw()
	return func(yield func(Node) bool) {
		for i := range raw.children {
			if !yield(n.child(raw, i)) {
				return
			}
		}
	}
}

// Lookahead returns the character an error node was created for, or zero if
// n is not an error node.
func (n Node) Lookahead() rune {
	return n.raw().lookahead
}

// Expected returns the symbols an error node records as expected, or nil if
// n is not an error node.
func (n Node) Expected() []Symbol {
	return slices.Clone(n.raw().expected)
}

// String implements [fmt.Stringer].
//
// This does not print the tree; see [String] for that.
func (n Node) String() string {
	if n.IsZero() {
		return "tree.Node(<nil>)"
	}
	return fmt.Sprintf("tree.Node(%d.%d)", n.ptr, n.gen)
}

// raw resolves n, checking that it is still live.
func (n Node) raw() *rawNode {
	if n.IsZero() {
		panic("syntree/tree: use of the absent node")
	}
	raw := n.store.at(n.ptr)
	if raw.gen != n.gen || atomic.LoadInt32(&raw.refs) <= 0 {
		panic(fmt.Sprintf("syntree/tree: use of released node %v", n))
	}
	return raw
}

func (n Node) child(raw *rawNode, i int) Node {
	p := raw.children[i]
	return Node{store: n.store, ptr: p, gen: n.store.at(p).gen}
}
