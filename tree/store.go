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
	"os"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/bufbuild/syntree/internal/arena"
)

// Set to true to trace allocation and teardown on stderr.
const debugStore = false

// StoreOptions configures a [Store] created with [NewStore].
type StoreOptions struct {
	// Number of nodes to make room for up front.
	Capacity int
}

// Store owns the memory for a family of nodes.
//
// Nodes from the same store may be freely combined; a node can only be the
// child of a node from its own store. Trees that share subtrees, such as the
// successive versions produced by an incremental parser, must therefore live
// in the same store.
//
// A Store may be used by multiple goroutines concurrently. The zero Store is
// empty and ready to use.
type Store struct {
	mu    sync.RWMutex
	nodes arena.Arena[rawNode]
}

// rawNode is the storage for a node. Everything except refs is immutable
// between allocation and teardown.
type rawNode struct {
	refs    int32  // Accessed atomically. Zero once freed.
	gen     uint32 // Bumped each time the slot is freed.
	symbol  Symbol
	variant Variant
	attrs   Attrs

	children []arena.Pointer[rawNode]

	lookahead rune
	expected  []Symbol
}

// NewStore returns a new, empty store.
func NewStore(options StoreOptions) *Store {
	s := new(Store)
	if options.Capacity > 0 {
		s.nodes.Reserve(options.Capacity)
	}
	return s
}

// Len returns the number of live nodes in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes.Len()
}

// NewLeaf creates a node with no children.
//
// sym must not be [SymbolError]; use [Store.NewError] for error nodes.
func (s *Store) NewLeaf(sym Symbol, attrs Attrs) Node {
	checkSymbol(sym)
	return s.alloc(rawNode{
		symbol:  sym,
		variant: VariantLeaf,
		attrs:   attrs,
	})
}

// NewInternal creates a node over the given children, in order.
//
// Each child is retained once, so the caller's references to the children
// remain valid and must still be released by the caller. children may be
// empty. Every child must be live and belong to s; the slice itself is not
// retained.
func (s *Store) NewInternal(sym Symbol, children []Node, attrs Attrs) Node {
	checkSymbol(sym)

	ptrs := make([]arena.Pointer[rawNode], len(children))
	for i, child := range children {
		switch {
		case child.IsZero():
			panic(fmt.Sprintf("syntree/tree: child %d of %v is the absent node", i, sym))
		case child.store != s:
			panic(fmt.Sprintf("syntree/tree: child %d of %v belongs to another store", i, sym))
		}
		child.raw() // Validate before retaining anything.
		ptrs[i] = child.ptr
	}
	for _, child := range children {
		child.Retain()
	}

	return s.alloc(rawNode{
		symbol:   sym,
		variant:  VariantInternal,
		attrs:    attrs,
		children: ptrs,
	})
}

// NewError creates an error node recording that the parser saw lookahead
// where it expected one of expected.
//
// The node's symbol is [SymbolError]. expected is copied and not validated;
// it may be empty.
func (s *Store) NewError(lookahead rune, expected []Symbol, attrs Attrs) Node {
	return s.alloc(rawNode{
		symbol:    SymbolError,
		variant:   VariantError,
		attrs:     attrs,
		lookahead: lookahead,
		expected:  slices.Clone(expected),
	})
}

func checkSymbol(sym Symbol) {
	if sym == SymbolError {
		panic("syntree/tree: SymbolError is reserved for error nodes")
	}
}

// alloc places node in a slot with a reference count of one.
func (s *Store) alloc(node rawNode) Node {
	s.mu.Lock()
	p, slot := s.nodes.Alloc()
	node.gen = slot.gen
	node.refs = 1
	*slot = node
	s.mu.Unlock()

	if debugStore {
		fmt.Fprintf(os.Stderr, "syntree/tree: alloc %d.%d %v %v\n", p, node.gen, node.variant, node.symbol)
	}
	return Node{store: s, ptr: p, gen: node.gen}
}

// at dereferences p. The caller must hold a reference that keeps p alive.
func (s *Store) at(p arena.Pointer[rawNode]) *rawNode {
	s.mu.RLock()
	raw := s.nodes.At(p)
	s.mu.RUnlock()
	return raw
}

// teardown frees the node at p, whose count has just reached zero, along
// with every descendant whose count reaches zero as a result.
//
// This uses an explicit work list, so its stack usage does not depend on the
// depth of the tree.
func (s *Store) teardown(p arena.Pointer[rawNode]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := []arena.Pointer[rawNode]{p}
	for len(work) > 0 {
		p := work[len(work)-1]
		work = work[:len(work)-1]

		raw := s.nodes.At(p)
		for _, child := range raw.children {
			if atomic.AddInt32(&s.nodes.At(child).refs, -1) == 0 {
				work = append(work, child)
			}
		}

		if debugStore {
			fmt.Fprintf(os.Stderr, "syntree/tree: free %d.%d %v %v\n", p, raw.gen, raw.variant, raw.symbol)
		}

		// Keep only the bumped generation, so stale handles are caught
		// even after the slot is reused.
		*raw = rawNode{gen: raw.gen + 1}
		s.nodes.Free(p)
	}
}
