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

// Package syntree holds the in-memory representation of syntax trees built by
// an incremental parser.
//
// The packages are:
//
//   - [github.com/bufbuild/syntree/tree]: the node store. Immutable,
//     reference-counted nodes, structural equality and S-expression printing.
//   - [github.com/bufbuild/syntree/snapshot]: tree versions that share
//     subtrees, with lookup of leaves by source offset.
//   - [github.com/bufbuild/syntree/codec]: a binary encoding of trees.
//
// The lexer, the parse tables and the re-parsing logic live elsewhere; this
// module only stores what they produce.
package syntree
