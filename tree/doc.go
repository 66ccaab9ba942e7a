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

// Package tree is the node store for syntax trees built by an incremental
// parser.
//
// Nodes are immutable and reference counted, which allows a subtree to be
// shared between several versions of a tree without copying it. A parser
// builds trees bottom-up: leaves and error nodes first, then internal nodes
// over them. Building an internal node retains each of its children, so the
// caller's references and the new parent are both owners afterwards.
//
// # Ownership
//
// Every factory on [Store] returns a [Node] with a reference count of one,
// owned by the caller. [Node.Retain] adds an owner and [Node.Release] drops
// one; when the last owner lets go, the node releases each of its children
// and its slot is reclaimed. Children that are still owned elsewhere, for
// example by another tree version, stay alive.
//
// A [Node] is a handle rather than a pointer. Handles carry a generation, so
// using a node after its last release panics instead of reading whatever now
// occupies its slot.
//
// # Equality and printing
//
// [Equal] compares trees structurally, ignoring extents and hidden flags, and
// [String] renders a tree as an S-expression such as
//
//	(program (identifier) (number))
//
// Both are read-only and may run concurrently with each other, but the caller
// must hold a reference to the root for as long as they run.
package tree
