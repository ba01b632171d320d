// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutGetHasDel(t *testing.T) {
	s := New[string, int, string]()
	require.False(t, s.Has("a", 1))

	s.Put("a", 1, "x")
	v, ok := s.Get("a", 1)
	require.True(t, ok)
	require.Equal(t, "x", v)
	require.True(t, s.Has("a", 1))
	require.Equal(t, 1, s.Count())

	s.Del("a", 1)
	require.False(t, s.Has("a", 1))
	require.Equal(t, 0, s.Count())
}

func TestCompoundKeyUniqueness(t *testing.T) {
	s := New[string, int, string]()
	s.Put("a", 1, "x")
	s.Put("a", 2, "y")
	s.Put("b", 1, "z")
	require.Equal(t, 3, s.Count())

	s.Del("a", 1)
	require.Equal(t, 2, s.Count())
	require.True(t, s.Has("a", 2))
	require.True(t, s.Has("b", 1))
}

func TestClone(t *testing.T) {
	s := New[string, int, string]()
	s.Put("a", 1, "x")

	clone := s.Clone()
	clone.Put("a", 2, "y")

	require.Equal(t, 1, s.Count())
	require.Equal(t, 2, clone.Count())
}

func TestEmptyInnerMapPruned(t *testing.T) {
	s := New[string, int, string]()
	s.Put("a", 1, "x")
	s.Del("a", 1)

	// After pruning, ForEachOuter over "a" should see nothing and Count
	// should not include a phantom outer key.
	seen := 0
	s.ForEachOuter("a", func(b int, v string) { seen++ })
	require.Equal(t, 0, seen)
	require.Equal(t, 0, s.Count())
}
