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

import "fmt"

// Symbol identifies a grammar construct or token type.
//
// Symbols are assigned by the grammar; the tree store attaches no meaning to
// them other than [SymbolError].
type Symbol uint16

// SymbolError is the reserved symbol carried by every error node. No grammar
// symbol may use this value.
const SymbolError Symbol = 1<<16 - 1

// String implements [fmt.Stringer].
func (s Symbol) String() string {
	if s == SymbolError {
		return "Symbol(ERROR)"
	}
	return fmt.Sprintf("Symbol(%d)", uint16(s))
}

// Names maps symbols to printable names, for use by [String] and [Dump].
//
// The tree store never validates a Names; looking up a symbol the table does
// not know about is up to the implementation, which may panic.
type Names interface {
	Name(Symbol) string
}

// NameTable is a [Names] backed by a slice indexed by symbol.
type NameTable []string

// Name implements [Names].
func (t NameTable) Name(s Symbol) string {
	return t[s]
}

// NamesFunc adapts a function to [Names].
type NamesFunc func(Symbol) string

// Name implements [Names].
func (f NamesFunc) Name(s Symbol) string {
	return f(s)
}

// Variant is the shape of a node.
type Variant uint8

const (
	// VariantLeaf is a node with no children, typically a token.
	VariantLeaf Variant = iota + 1
	// VariantInternal is a node with an ordered list of children.
	VariantInternal
	// VariantError is a node marking a parse failure. It has no children,
	// and carries the lookahead character and the symbols the parser
	// expected instead.
	VariantError
)

// String implements [fmt.Stringer].
func (v Variant) String() string {
	switch v {
	case VariantLeaf:
		return "leaf"
	case VariantInternal:
		return "internal"
	case VariantError:
		return "error"
	default:
		return fmt.Sprintf("Variant(%d)", uint8(v))
	}
}

// Attrs are the attributes of a node that do not take part in equality.
type Attrs struct {
	// The node's extent in the source text. The unit and origin are up to the
	// lexer; the store only keeps them.
	Size, Offset uint32

	// Hidden nodes are left out of [String]; their children are printed in
	// their place.
	Hidden bool
}
