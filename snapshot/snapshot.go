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

// Package snapshot provides versions of a syntax tree that share structure.
//
// An incremental parser produces a new tree for every edit, reusing the
// subtrees the edit did not touch. Each [Snapshot] owns a reference to its
// root, so a subtree shared by two snapshots stays alive until both are
// closed.
package snapshot

import (
	"iter"
	"slices"
	"sync"

	"github.com/bufbuild/syntree/internal/extent"
	"github.com/bufbuild/syntree/tree"
)

// Snapshot is one version of a tree.
//
// A Snapshot may be used by multiple goroutines concurrently, but must not be
// used after it is closed.
type Snapshot struct {
	root tree.Node

	closeOnce sync.Once

	indexOnce sync.Once
	leaves    []tree.Node
	index     extent.Index[uint32, tree.Node]
}

// New returns a snapshot of the tree rooted at root, which it retains. The
// caller keeps its own reference to root.
//
// root may be the absent node, giving an empty snapshot.
func New(root tree.Node) *Snapshot {
	if !root.IsZero() {
		root.Retain()
	}
	return &Snapshot{root: root}
}

// Root returns the root of this snapshot. It is owned by the snapshot.
func (s *Snapshot) Root() tree.Node {
	return s.root
}

// Close releases this snapshot's reference to its root. Nodes that other
// snapshots still share are unaffected.
//
// Calling Close more than once has no further effect.
func (s *Snapshot) Close() {
	s.closeOnce.Do(func() {
		if !s.root.IsZero() {
			s.root.Release()
		}
	})
}

// Equal returns whether two snapshots have structurally equal trees, as
// defined by [tree.Equal].
func (s *Snapshot) Equal(other *Snapshot) bool {
	return tree.Equal(s.root, other.root)
}

// String renders this snapshot's tree; see [tree.String].
func (s *Snapshot) String(names tree.Names) string {
	return tree.String(s.root, names)
}

// Leaves returns an iterator over the nodes of this snapshot that have no
// children, error nodes included, from left to right.
func (s *Snapshot) Leaves() iter.Seq[tree.Node] {
	s.buildIndex()
	return slices.Values(s.leaves)
}

// LeafAt returns the leaf whose extent contains offset.
//
// Leaves with a size of zero are never found. If several leaves overlap, which
// a well-formed tree never does, the leftmost one wins.
func (s *Snapshot) LeafAt(offset uint32) (tree.Node, bool) {
	s.buildIndex()
	e, ok := s.index.Get(offset)
	return e.Value, ok
}

func (s *Snapshot) buildIndex() {
	s.indexOnce.Do(func() {
		if s.root.IsZero() {
			return
		}

		work := []tree.Node{s.root}
		for len(work) > 0 {
			n := work[len(work)-1]
			work = work[:len(work)-1]

			if count := n.NumChildren(); count > 0 {
				for i := count - 1; i >= 0; i-- {
					work = append(work, n.Child(i))
				}
				continue
			}

			s.leaves = append(s.leaves, n)
			if attrs := n.Attrs(); attrs.Size > 0 {
				end := attrs.Offset + (attrs.Size - 1)
				if end < attrs.Offset {
					end = ^uint32(0) // Saturate extents that run off the end.
				}
				s.index.Insert(attrs.Offset, end, n)
			}
		}
	})
}
