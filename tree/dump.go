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
	"strings"

	"github.com/rivo/uniseg"
)

// DumpOptions configures [Dump].
type DumpOptions struct {
	// Print each node's extent as [offset, offset+size).
	Extents bool
	// Print each node's reference count.
	RefCounts bool
	// The indentation for each level of nesting. Defaults to two spaces.
	Indent string
}

// Dump renders the tree rooted at n one node per line, indented by depth.
//
// Unlike [String], Dump shows every node, including hidden ones, and the
// payload of error nodes. Columns after the names are aligned by display
// width, so symbol names outside of ASCII line up in a terminal. Every line,
// including the last, ends in a newline.
func Dump(n Node, names Names, options DumpOptions) string {
	if n.IsZero() {
		return "(NULL)\n"
	}
	if options.Indent == "" {
		options.Indent = "  "
	}

	type row struct {
		label, detail string
		width         int
	}
	var rows []row
	width := 0

	type item struct {
		node  Node
		depth int
	}
	work := []item{{node: n}}
	for len(work) > 0 {
		it := work[len(work)-1]
		work = work[:len(work)-1]
		raw := it.node.raw()

		var label strings.Builder
		label.WriteString(strings.Repeat(options.Indent, it.depth))
		var detail []string
		switch raw.variant {
		case VariantError:
			label.WriteString("ERROR")
			expected := make([]string, len(raw.expected))
			for i, sym := range raw.expected {
				expected[i] = names.Name(sym)
			}
			detail = append(detail, fmt.Sprintf("lookahead=%q expected=[%s]", raw.lookahead, strings.Join(expected, " ")))
		default:
			label.WriteString(names.Name(raw.symbol))
		}
		if raw.attrs.Hidden {
			label.WriteString(" (hidden)")
		}
		if options.Extents {
			detail = append(detail, fmt.Sprintf("[%d, %d)", raw.attrs.Offset, uint64(raw.attrs.Offset)+uint64(raw.attrs.Size)))
		}
		if options.RefCounts {
			detail = append(detail, fmt.Sprintf("refs=%d", it.node.RefCount()))
		}

		r := row{label: label.String(), detail: strings.Join(detail, " ")}
		r.width = uniseg.StringWidth(r.label)
		width = max(width, r.width)
		rows = append(rows, r)

		for i := len(raw.children) - 1; i >= 0; i-- {
			work = append(work, item{node: it.node.child(raw, i), depth: it.depth + 1})
		}
	}

	var out strings.Builder
	for _, r := range rows {
		out.WriteString(r.label)
		if r.detail != "" {
			out.WriteString(strings.Repeat(" ", width-r.width+1))
			out.WriteString(r.detail)
		}
		out.WriteByte('\n')
	}
	return out.String()
}
