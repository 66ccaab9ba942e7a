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

package codec_test

import (
	"testing"

	"github.com/protocolbuffers/protoscope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bufbuild/syntree/codec"
	"github.com/bufbuild/syntree/internal/golden"
	"github.com/bufbuild/syntree/internal/treetest"
	"github.com/bufbuild/syntree/tree"
)

// TestRoundTrip round-trips every tree in the serializer's corpus.
func TestRoundTrip(t *testing.T) {
	t.Parallel()

	corpus := golden.Corpus{
		Root:       "../tree/testdata",
		Extensions: []string{"yaml"},
	}

	corpus.Run(t, func(t *testing.T, path, text string, _ []string) {
		var s tree.Store
		root, names, err := treetest.Build(&s, text)
		require.NoError(t, err, "building %q", path)

		data, err := codec.Marshal(root)
		require.NoError(t, err)
		t.Logf("encoding:\n%s", protoscope.Write(data, protoscope.WriterOptions{}))

		var out tree.Store
		got, err := codec.Unmarshal(&out, data)
		require.NoError(t, err)

		assert.True(t, tree.StrictEqual(root, got))
		assert.Equal(t, tree.String(root, names), tree.String(got, names))
		opts := tree.DumpOptions{Extents: true}
		assert.Equal(t, tree.Dump(root, names, opts), tree.Dump(got, names, opts))

		if !root.IsZero() {
			root.Release()
			got.Release()
		}
		assert.Equal(t, 0, s.Len())
		assert.Equal(t, 0, out.Len())
	})
}

func TestEncoding(t *testing.T) {
	t.Parallel()

	var s tree.Store
	id := s.NewLeaf(1, tree.Attrs{Size: 2})
	bad := s.NewError('%', []tree.Symbol{1, 2}, tree.Attrs{Offset: 3, Size: 1, Hidden: true})
	root := s.NewInternal(0, []tree.Node{id, bad}, tree.Attrs{Size: 4})
	id.Release()
	bad.Release()
	defer root.Release()

	want, err := protoscope.NewScanner(`
		1: 0
		2: 4
		5: 2
		6: {1: 1 2: 2 5: 1}
		6: {2: 1 3: 3 4: 1 5: 3 7: 37 8: {1 2}}
	`).Exec()
	require.NoError(t, err)

	got, err := codec.Marshal(root)
	require.NoError(t, err)
	assert.Equal(t, want, got, "got:\n%s", protoscope.Write(got, protoscope.WriterOptions{}))

	got, err = codec.Marshal(tree.Node{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEncodingShared(t *testing.T) {
	t.Parallel()

	var s tree.Store
	leaf := s.NewLeaf(2, tree.Attrs{Size: 1})
	wrapper := s.NewInternal(1, []tree.Node{leaf, leaf}, tree.Attrs{Size: 2})
	root := s.NewInternal(0, []tree.Node{wrapper, leaf, wrapper}, tree.Attrs{Size: 5})
	leaf.Release()
	wrapper.Release()
	defer root.Release()

	want, err := protoscope.NewScanner(`
		1: 0 2: 5 5: 2
		6: {1: 1 2: 2 5: 2 6: {1: 2 2: 1 5: 1} 6: {1: 2 2: 1 5: 1}}
		6: {1: 2 2: 1 5: 1}
		6: {1: 1 2: 2 5: 2 6: {1: 2 2: 1 5: 1} 6: {1: 2 2: 1 5: 1}}
	`).Exec()
	require.NoError(t, err)

	got, err := codec.Marshal(root)
	require.NoError(t, err)
	assert.Equal(t, want, got, "got:\n%s", protoscope.Write(got, protoscope.WriterOptions{}))
}

func TestUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string // Protoscope.
		want  string
	}{
		{name: "leaf", input: `1: 2 5: 1`, want: "(num)"},
		{name: "unknown-field", input: `1: 2 5: 1 99: {"ignored"} 98: 7`, want: "(num)"},
		{name: "internal", input: `5: 2 6: {5: 1 1: 1} 6: {1: 2 5: 1 4: 1} 6: {5: 3}`, want: "(program (id) (ERROR))"},
		{name: "empty-internal", input: `1: 1 5: 2`, want: "(id)"},
	}

	names := tree.NameTable{"program", "id", "num"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := protoscope.NewScanner(tt.input).Exec()
			require.NoError(t, err)

			var s tree.Store
			got, err := codec.Unmarshal(&s, data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tree.String(got, names))
			got.Release()
			assert.Equal(t, 0, s.Len())
		})
	}

	var s tree.Store
	got, err := codec.Unmarshal(&s, nil)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string // Protoscope.
	}{
		{name: "no-variant", input: `1: 1`},
		{name: "bad-variant", input: `1: 1 5: 9`},
		{name: "leaf-children", input: `5: 1 6: {5: 1}`},
		{name: "error-children", input: `5: 3 6: {5: 1}`},
		{name: "reserved-symbol", input: `1: 65535 5: 1`},
		{name: "big-symbol", input: `1: 70000 5: 1`},
		{name: "big-expected", input: `5: 3 8: {1 65535}`},
		{name: "big-size", input: `2: 4294967296 5: 1`},
		{name: "bad-lookahead", input: `5: 3 7: 1114112`},
		{name: "wrong-type", input: `1: {"x"} 5: 1`},
		{name: "wrong-type-child", input: `5: 2 6: 1`},
		{name: "empty-child", input: `5: 2 6: {}`},
		{name: "bad-grandchild", input: `5: 2 6: {5: 1} 6: {5: 2 6: {5: 1} 6: {5: 7}}`},
		{name: "truncated", input: `5: 2 6: {5: 1}` + "\n" + `0x32 0x10 0x28`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := protoscope.NewScanner(tt.input).Exec()
			require.NoError(t, err)

			var s tree.Store
			got, err := codec.Unmarshal(&s, data)
			require.ErrorIs(t, err, codec.ErrMalformed)
			assert.True(t, got.IsZero())
			assert.Equal(t, 0, s.Len(), "decoding leaked nodes")
		})
	}
}

func TestMaxDepth(t *testing.T) {
	t.Parallel()

	var s tree.Store
	node := s.NewLeaf(1, tree.Attrs{})
	for range 9 {
		parent := s.NewInternal(0, []tree.Node{node}, tree.Attrs{})
		node.Release()
		node = parent
	}
	data, err := codec.Marshal(node)
	require.NoError(t, err)

	_, err = codec.Options{MaxDepth: 9}.Marshal(node)
	require.ErrorIs(t, err, codec.ErrTooDeep)
	node.Release()

	_, err = codec.Options{MaxDepth: 9}.Unmarshal(&s, data)
	require.ErrorIs(t, err, codec.ErrMalformed)
	require.ErrorIs(t, err, codec.ErrTooDeep)
	assert.Equal(t, 0, s.Len())

	got, err := codec.Options{MaxDepth: 10}.Unmarshal(&s, data)
	require.NoError(t, err)
	got.Release()
	assert.Equal(t, 0, s.Len())
}

func TestMaxDepthShared(t *testing.T) {
	t.Parallel()

	// The leaf sits at depth 2 directly under the root and at depth 4
	// under the chain of wrappers.
	var s tree.Store
	leaf := s.NewLeaf(1, tree.Attrs{})
	inner := s.NewInternal(2, []tree.Node{leaf}, tree.Attrs{})
	outer := s.NewInternal(2, []tree.Node{inner}, tree.Attrs{})
	root := s.NewInternal(0, []tree.Node{outer, leaf}, tree.Attrs{})
	leaf.Release()
	inner.Release()
	outer.Release()
	defer root.Release()

	_, err := codec.Options{MaxDepth: 3}.Marshal(root)
	require.ErrorIs(t, err, codec.ErrTooDeep)

	data, err := codec.Options{MaxDepth: 4}.Marshal(root)
	require.NoError(t, err)

	got, err := codec.Options{MaxDepth: 4}.Unmarshal(&s, data)
	require.NoError(t, err)
	defer got.Release()
	assert.True(t, tree.StrictEqual(root, got))
}

func TestDefaultMaxDepth(t *testing.T) {
	t.Parallel()

	var s tree.Store
	node := s.NewLeaf(1, tree.Attrs{Size: 1})
	for range codec.DefaultMaxDepth - 1 {
		parent := s.NewInternal(0, []tree.Node{node}, tree.Attrs{Size: 1})
		node.Release()
		node = parent
	}

	data, err := codec.Marshal(node)
	require.NoError(t, err)
	got, err := codec.Unmarshal(&s, data)
	require.NoError(t, err)
	assert.True(t, tree.Equal(node, got))
	got.Release()

	deeper := s.NewInternal(0, []tree.Node{node}, tree.Attrs{Size: 1})
	node.Release()
	defer deeper.Release()

	_, err = codec.Marshal(deeper)
	require.ErrorIs(t, err, codec.ErrTooDeep)
}
