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

// Package codec converts trees to and from a compact binary form.
//
// The encoding is the Protobuf wire format for the following message:
//
//	message Node {
//	  uint32 symbol = 1;
//	  uint32 size = 2;
//	  uint32 offset = 3;
//	  bool hidden = 4;
//	  uint32 variant = 5;  // tree.Variant; always present.
//	  repeated Node children = 6;
//	  uint32 lookahead = 7;
//	  repeated uint32 expected = 8 [packed = true];
//	}
//
// The absent node encodes as zero bytes.
package codec

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/bufbuild/syntree/tree"
)

const (
	fieldSymbol    protowire.Number = 1
	fieldSize      protowire.Number = 2
	fieldOffset    protowire.Number = 3
	fieldHidden    protowire.Number = 4
	fieldVariant   protowire.Number = 5
	fieldChild     protowire.Number = 6
	fieldLookahead protowire.Number = 7
	fieldExpected  protowire.Number = 8
)

// DefaultMaxDepth is the nesting limit used by [Marshal] and [Unmarshal]
// when Options.MaxDepth is zero. It matches the Protobuf runtime's default
// recursion limit.
const DefaultMaxDepth = 10000

var (
	// ErrMalformed is returned, wrapped, for input that is not a valid encoding.
	ErrMalformed = errors.New("syntree/codec: malformed input")

	// ErrTooDeep is returned, wrapped, for a tree nested deeper than
	// Options.MaxDepth. Decoding errors wrap ErrMalformed as well.
	ErrTooDeep = errors.New("syntree/codec: tree too deep")
)

// Options configures [Options.Marshal] and [Options.Unmarshal].
type Options struct {
	// The deepest tree Marshal will encode and Unmarshal will decode.
	// Defaults to DefaultMaxDepth.
	MaxDepth int
}

func (o Options) maxDepth() int {
	if o.MaxDepth == 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

// Marshal encodes the tree rooted at n with default options.
func Marshal(n tree.Node) ([]byte, error) {
	return Options{}.Marshal(n)
}

// Marshal encodes the tree rooted at n. The absent node encodes as zero
// bytes.
//
// A tree that Unmarshal with the same options would reject for its depth is
// rejected here too.
func (o Options) Marshal(n tree.Node) ([]byte, error) {
	if n.IsZero() {
		return nil, nil
	}
	e := encoder{sizes: make(map[tree.Node]measured)}
	if err := e.measure(n, o.maxDepth()); err != nil {
		return nil, err
	}

	size := e.sizes[n].size
	b := e.appendNode(make([]byte, 0, size), n)
	if len(b) != size {
		panic(fmt.Sprintf("syntree/codec: measured %d bytes but wrote %d", size, len(b)))
	}
	return b, nil
}

type encoder struct {
	sizes map[tree.Node]measured
}

type measured struct {
	size   int // Encoded length of the node's message body.
	height int // Number of levels in the subtree, counting the node itself.
}

// measure computes the encoded size of every node under root, post-order,
// without recursing. Subtrees shared by several parents are measured once.
func (e *encoder) measure(root tree.Node, maxDepth int) error {
	type frame struct {
		node     tree.Node
		depth    int
		expanded bool
	}
	tooDeep := func() error {
		return fmt.Errorf("%w: deeper than %d", ErrTooDeep, maxDepth)
	}

	work := []frame{{node: root, depth: 1}}
	for len(work) > 0 {
		top := &work[len(work)-1]
		if m, ok := e.sizes[top.node]; ok && !top.expanded {
			// Seen under another parent, perhaps at a shallower depth.
			if top.depth+m.height-1 > maxDepth {
				return tooDeep()
			}
			work = work[:len(work)-1]
			continue
		}
		if top.depth > maxDepth {
			return tooDeep()
		}

		if !top.expanded {
			top.expanded = true
			node, depth := top.node, top.depth
			for child := range node.Children() {
				work = append(work, frame{node: child, depth: depth + 1})
			}
			continue
		}

		work = work[:len(work)-1]
		e.sizes[top.node] = e.measureNode(top.node)
	}
	return nil
}

// measureNode sizes a node whose children have all been measured. It must
// agree field for field with appendNode.
func (e *encoder) measureNode(n tree.Node) measured {
	attrs := n.Attrs()
	variant := n.Variant()
	m := measured{height: 1}

	if variant != tree.VariantError {
		m.size += protowire.SizeTag(fieldSymbol) + protowire.SizeVarint(uint64(n.Symbol()))
	}
	if attrs.Size != 0 {
		m.size += protowire.SizeTag(fieldSize) + protowire.SizeVarint(uint64(attrs.Size))
	}
	if attrs.Offset != 0 {
		m.size += protowire.SizeTag(fieldOffset) + protowire.SizeVarint(uint64(attrs.Offset))
	}
	if attrs.Hidden {
		m.size += protowire.SizeTag(fieldHidden) + protowire.SizeVarint(protowire.EncodeBool(true))
	}
	m.size += protowire.SizeTag(fieldVariant) + protowire.SizeVarint(uint64(variant))

	for child := range n.Children() {
		c := e.sizes[child]
		m.size += protowire.SizeTag(fieldChild) + protowire.SizeBytes(c.size)
		m.height = max(m.height, c.height+1)
	}

	if variant == tree.VariantError {
		if r := n.Lookahead(); r != 0 {
			m.size += protowire.SizeTag(fieldLookahead) + protowire.SizeVarint(uint64(r))
		}
		if expected := n.Expected(); len(expected) > 0 {
			packed := 0
			for _, sym := range expected {
				packed += protowire.SizeVarint(uint64(sym))
			}
			m.size += protowire.SizeTag(fieldExpected) + protowire.SizeBytes(packed)
		}
	}
	return m
}

// appendNode writes n's message body. Child messages are written in place
// after their measured length, so nothing is copied. Recursion is bounded by
// the depth check in measure.
func (e *encoder) appendNode(b []byte, n tree.Node) []byte {
	attrs := n.Attrs()
	variant := n.Variant()

	if variant != tree.VariantError {
		b = protowire.AppendTag(b, fieldSymbol, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(n.Symbol()))
	}
	if attrs.Size != 0 {
		b = protowire.AppendTag(b, fieldSize, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(attrs.Size))
	}
	if attrs.Offset != 0 {
		b = protowire.AppendTag(b, fieldOffset, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(attrs.Offset))
	}
	if attrs.Hidden {
		b = protowire.AppendTag(b, fieldHidden, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	b = protowire.AppendTag(b, fieldVariant, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(variant))

	for child := range n.Children() {
		b = protowire.AppendTag(b, fieldChild, protowire.BytesType)
		b = protowire.AppendVarint(b, uint64(e.sizes[child].size))
		b = e.appendNode(b, child)
	}

	if variant == tree.VariantError {
		if r := n.Lookahead(); r != 0 {
			b = protowire.AppendTag(b, fieldLookahead, protowire.VarintType)
			b = protowire.AppendVarint(b, uint64(r))
		}
		if expected := n.Expected(); len(expected) > 0 {
			packed := 0
			for _, sym := range expected {
				packed += protowire.SizeVarint(uint64(sym))
			}
			b = protowire.AppendTag(b, fieldExpected, protowire.BytesType)
			b = protowire.AppendVarint(b, uint64(packed))
			for _, sym := range expected {
				b = protowire.AppendVarint(b, uint64(sym))
			}
		}
	}
	return b
}

// Unmarshal decodes a tree into store with default options.
func Unmarshal(store *tree.Store, data []byte) (tree.Node, error) {
	return Options{}.Unmarshal(store, data)
}

// Unmarshal decodes a tree into store and returns its root, owned by the
// caller. Empty input decodes to the absent node.
//
// On error, no nodes are left behind in store.
func (o Options) Unmarshal(store *tree.Store, data []byte) (tree.Node, error) {
	if len(data) == 0 {
		return tree.Node{}, nil
	}
	d := decoder{store: store, maxDepth: o.maxDepth()}
	return d.node(data, 1)
}

type decoder struct {
	store    *tree.Store
	maxDepth int
}

// node decodes a single Node message. Children are decoded first, so the
// tree is built bottom-up.
func (d *decoder) node(data []byte, depth int) (_ tree.Node, err error) {
	if depth > d.maxDepth {
		return tree.Node{}, fmt.Errorf("%w: %w: deeper than %d", ErrMalformed, ErrTooDeep, d.maxDepth)
	}

	var (
		symbol    uint64
		variant   uint64
		lookahead uint64
		attrs     tree.Attrs
		children  []tree.Node
		expected  []tree.Symbol
	)
	// The new node, if any, holds its own references to the children.
	defer func() {
		for _, child := range children {
			child.Release()
		}
	}()

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return tree.Node{}, malformed(protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fieldChild, fieldExpected:
			if typ != protowire.BytesType {
				return tree.Node{}, wrongType(num, typ)
			}
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return tree.Node{}, malformed(protowire.ParseError(n))
			}
			data = data[n:]

			if num == fieldExpected {
				if expected, err = appendPacked(expected, v); err != nil {
					return tree.Node{}, err
				}
				continue
			}
			child, err := d.node(v, depth+1)
			if err != nil {
				return tree.Node{}, err
			}
			children = append(children, child)

		case fieldSymbol, fieldSize, fieldOffset, fieldHidden, fieldVariant, fieldLookahead:
			if typ != protowire.VarintType {
				return tree.Node{}, wrongType(num, typ)
			}
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return tree.Node{}, malformed(protowire.ParseError(n))
			}
			data = data[n:]

			switch num {
			case fieldSymbol:
				symbol = v
			case fieldSize:
				attrs.Size, err = narrow(num, v)
			case fieldOffset:
				attrs.Offset, err = narrow(num, v)
			case fieldHidden:
				attrs.Hidden = protowire.DecodeBool(v)
			case fieldVariant:
				variant = v
			case fieldLookahead:
				lookahead = v
			}
			if err != nil {
				return tree.Node{}, err
			}

		default:
			// Skip unknown fields.
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return tree.Node{}, malformed(protowire.ParseError(n))
			}
			data = data[n:]
		}
	}

	if symbol >= uint64(tree.SymbolError) {
		return tree.Node{}, fmt.Errorf("%w: symbol %d out of range", ErrMalformed, symbol)
	}

	switch tree.Variant(variant) {
	case tree.VariantLeaf:
		if len(children) > 0 {
			return tree.Node{}, fmt.Errorf("%w: leaf with children", ErrMalformed)
		}
		return d.store.NewLeaf(tree.Symbol(symbol), attrs), nil

	case tree.VariantInternal:
		return d.store.NewInternal(tree.Symbol(symbol), children, attrs), nil

	case tree.VariantError:
		switch {
		case len(children) > 0:
			return tree.Node{}, fmt.Errorf("%w: error node with children", ErrMalformed)
		case lookahead > utf8.MaxRune:
			return tree.Node{}, fmt.Errorf("%w: lookahead %#x is not a character", ErrMalformed, lookahead)
		}
		return d.store.NewError(rune(lookahead), expected, attrs), nil

	default:
		return tree.Node{}, fmt.Errorf("%w: unknown variant %d", ErrMalformed, variant)
	}
}

func appendPacked(out []tree.Symbol, data []byte) ([]tree.Symbol, error) {
	for len(data) > 0 {
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return nil, malformed(protowire.ParseError(n))
		}
		data = data[n:]
		if v >= uint64(tree.SymbolError) {
			return nil, fmt.Errorf("%w: expected symbol %d out of range", ErrMalformed, v)
		}
		out = append(out, tree.Symbol(v))
	}
	return out, nil
}

func narrow(num protowire.Number, v uint64) (uint32, error) {
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("%w: field %d value %d overflows uint32", ErrMalformed, num, v)
	}
	return uint32(v), nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: %w", ErrMalformed, err)
}

func wrongType(num protowire.Number, typ protowire.Type) error {
	return fmt.Errorf("%w: field %d has wire type %d", ErrMalformed, num, typ)
}
