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

import "slices"

// Equal returns whether a and b are structurally equal.
//
// Two nodes are equal when their symbols match and, for leaves and internal
// nodes, they have the same number of children and each pair of children is
// equal, in order. Extents and hidden flags are ignored, so identical
// subtrees at different source positions are equal.
//
// Error nodes are compared by symbol only: any two error nodes are equal,
// whatever their lookahead or expected symbols. Use [StrictEqual] to compare
// those too.
//
// The absent node is only equal to itself. Equal does not change any
// reference counts.
func Equal(a, b Node) bool {
	return equal(a, b, false)
}

// StrictEqual is like [Equal], but error nodes must also agree on their
// lookahead and their expected symbols, in order.
func StrictEqual(a, b Node) bool {
	return equal(a, b, true)
}

func equal(a, b Node, strict bool) bool {
	if a.IsZero() || b.IsZero() {
		return a.IsZero() && b.IsZero()
	}

	type pair struct{ a, b Node }
	work := []pair{{a, b}}
	for len(work) > 0 {
		p := work[len(work)-1]
		work = work[:len(work)-1]

		if p.a == p.b {
			continue // Shared subtree.
		}

		x, y := p.a.raw(), p.b.raw()
		if x.symbol != y.symbol {
			return false
		}

		switch x.variant {
		case VariantError:
			// TODO: decide with the parser whether Equal should look at the
			// error payload, and fold StrictEqual into it if so.
			if strict && (x.lookahead != y.lookahead || !slices.Equal(x.expected, y.expected)) {
				return false
			}

		case VariantLeaf, VariantInternal:
			if len(x.children) != len(y.children) {
				return false
			}
			for i := len(x.children) - 1; i >= 0; i-- {
				work = append(work, pair{p.a.child(x, i), p.b.child(y, i)})
			}
		}
	}
	return true
}
