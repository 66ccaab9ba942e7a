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

// String renders the tree rooted at n as an S-expression.
//
// Each visible node prints as its name followed by its children, all in
// parentheses and separated by single spaces:
//
//	(program (identifier) (number))
//
// A hidden node prints nothing of its own; its children appear in its place.
// Error nodes print as (ERROR) whether or not they are hidden, and the absent
// node prints as (NULL). The result has no trailing newline.
//
// The string is built in two passes over the tree: the first measures it, and
// the second writes it into a buffer of exactly that size.
func String(n Node, names Names) string {
	size := Measure(n, names)

	buf := buffer{buf: make([]byte, 0, size)}
	emit(&buf, n, names)
	if len(buf.buf) != size {
		panic(fmt.Sprintf("syntree/tree: measured %d bytes but wrote %d", size, len(buf.buf)))
	}
	return string(buf.buf)
}

// Measure returns the length in bytes of String(n, names), without building
// the string.
func Measure(n Node, names Names) int {
	var c counter
	emit(&c, n, names)
	return int(c)
}

// sink is the destination of emit.
type sink interface {
	WriteString(string)
}

// counter is a sink that only keeps track of how much was written to it.
type counter int

func (c *counter) WriteString(s string) {
	*c += counter(len(s))
}

// buffer is a sink that writes into a fixed-capacity buffer, dropping
// whatever does not fit.
type buffer struct {
	buf []byte
}

func (b *buffer) WriteString(s string) {
	n := min(len(s), cap(b.buf)-len(b.buf))
	b.buf = append(b.buf, s[:n]...)
}

// emit writes the S-expression for n to w. Both passes of [String] go through
// here, so they cannot disagree about the format.
func emit(w sink, n Node, names Names) {
	if n.IsZero() {
		w.WriteString("(NULL)")
		return
	}

	// A nil node in the work list stands for a closing parenthesis.
	work := []Node{n}
	first := true
	for len(work) > 0 {
		n := work[len(work)-1]
		work = work[:len(work)-1]

		if n.IsZero() {
			w.WriteString(")")
			continue
		}

		raw := n.raw()
		if raw.variant == VariantError {
			if !first {
				w.WriteString(" ")
			}
			first = false
			w.WriteString("(ERROR)")
			continue
		}

		if !raw.attrs.Hidden {
			if !first {
				w.WriteString(" ")
			}
			first = false
			w.WriteString("(")
			w.WriteString(names.Name(raw.symbol))
			work = append(work, Node{})
		}

		for i := len(raw.children) - 1; i >= 0; i-- {
			work = append(work, n.child(raw, i))
		}
	}
}
