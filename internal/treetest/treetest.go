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

// Package treetest builds trees from YAML descriptions, for tests.
//
// A description looks like this:
//
//	names: [program, id, num, wrapper]
//	tree:
//	  name: program
//	  size: 6
//	  children:
//	    - {name: wrapper, hidden: true, children: [{name: id, size: 2}]}
//	    - {name: num, offset: 3, size: 3}
//	    - error: {lookahead: "%", expected: [id]}
//
// A node without children is a leaf unless it sets internal: true. Omitting
// tree describes the absent node.
package treetest

import (
	"fmt"
	"slices"
	"strconv"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/bufbuild/syntree/tree"
)

// Case is a parsed description.
type Case struct {
	Names []string `yaml:"names"`
	Tree  *Node    `yaml:"tree"`
}

// Node describes one node of a tree.
type Node struct {
	Name     string `yaml:"name"`
	Internal bool   `yaml:"internal"`
	Hidden   bool   `yaml:"hidden"`
	Offset   uint32 `yaml:"offset"`
	Size     uint32 `yaml:"size"`
	Children []Node `yaml:"children"`
	Error    *Error `yaml:"error"`
}

// Error is the payload of an error node.
type Error struct {
	Lookahead string   `yaml:"lookahead"`
	Expected  []string `yaml:"expected"`
}

// Parse parses a description.
func Parse(text string) (*Case, error) {
	c := new(Case)
	if err := yaml.Unmarshal([]byte(text), c); err != nil {
		return nil, err
	}
	return c, nil
}

// Build parses text and builds the tree it describes in store. The returned
// root is owned by the caller; every other node is owned only by its parent.
//
// The returned names cover the case's symbol list, and render any other
// symbol as its number, so trees decoded from elsewhere can still be printed.
func Build(store *tree.Store, text string) (tree.Node, tree.Names, error) {
	c, err := Parse(text)
	if err != nil {
		return tree.Node{}, nil, err
	}
	names := tree.NamesFunc(c.name)
	if c.Tree == nil {
		return tree.Node{}, names, nil
	}
	root, err := c.build(store, c.Tree)
	return root, names, err
}

func (c *Case) name(sym tree.Symbol) string {
	if int(sym) < len(c.Names) {
		return c.Names[sym]
	}
	return "#" + strconv.Itoa(int(sym))
}

func (c *Case) symbol(name string) (tree.Symbol, error) {
	idx := slices.Index(c.Names, name)
	if idx < 0 {
		return 0, fmt.Errorf("treetest: unknown symbol %q", name)
	}
	return tree.Symbol(idx), nil
}

func (c *Case) build(store *tree.Store, n *Node) (tree.Node, error) {
	attrs := tree.Attrs{Size: n.Size, Offset: n.Offset, Hidden: n.Hidden}

	if n.Error != nil {
		lookahead, _ := utf8.DecodeRuneInString(n.Error.Lookahead)
		if n.Error.Lookahead == "" {
			lookahead = 0
		}
		expected := make([]tree.Symbol, len(n.Error.Expected))
		for i, name := range n.Error.Expected {
			sym, err := c.symbol(name)
			if err != nil {
				return tree.Node{}, err
			}
			expected[i] = sym
		}
		return store.NewError(lookahead, expected, attrs), nil
	}

	sym, err := c.symbol(n.Name)
	if err != nil {
		return tree.Node{}, err
	}
	if len(n.Children) == 0 && !n.Internal {
		return store.NewLeaf(sym, attrs), nil
	}

	children := make([]tree.Node, 0, len(n.Children))
	defer func() {
		for _, child := range children {
			child.Release()
		}
	}()
	for i := range n.Children {
		child, err := c.build(store, &n.Children[i])
		if err != nil {
			return tree.Node{}, err
		}
		children = append(children, child)
	}
	return store.NewInternal(sym, children, attrs), nil
}
