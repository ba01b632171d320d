// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hashable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashDeterministic(t *testing.T) {
	n := Tuple(Leaf(1), Leaf(2), Tuple(Leaf(3)))
	require.Equal(t, Hash(n), Hash(n))
}

func TestHashDistinguishesShape(t *testing.T) {
	flat := Tuple(Leaf(1), Leaf(2), Leaf(3))
	nested := Tuple(Leaf(1), Tuple(Leaf(2), Leaf(3)))
	require.NotEqual(t, Hash(flat), Hash(nested))
}

func TestHashDistinguishesLeafFromHash(t *testing.T) {
	var d [32]byte
	d[31] = 1
	leaf := Tuple(Leaf(1))
	hashNode := Tuple(HashDigest(d))
	require.NotEqual(t, Hash(leaf), Hash(hashNode))
}

func TestHashEmptyTuple(t *testing.T) {
	require.NotPanics(t, func() {
		Hash(Tuple())
	})
}

func TestLeafOutOfRangePanics(t *testing.T) {
	require.Panics(t, func() {
		Leaf(18446744069414584321)
	})
}

func TestMapEntriesOrderIndependent(t *testing.T) {
	m1 := map[uint64]uint64{3: 30, 1: 10, 2: 20}
	m2 := map[uint64]uint64{1: 10, 2: 20, 3: 30}

	less := func(a, b uint64) bool { return a < b }
	encode := func(v uint64) Node { return Leaf(v) }

	n1 := MapEntries(m1, less, encode, encode)
	n2 := MapEntries(m2, less, encode, encode)
	require.Equal(t, Hash(n1), Hash(n2))
}

func TestMapEntriesSensitiveToContent(t *testing.T) {
	less := func(a, b uint64) bool { return a < b }
	encode := func(v uint64) Node { return Leaf(v) }

	a := MapEntries(map[uint64]uint64{1: 10}, less, encode, encode)
	b := MapEntries(map[uint64]uint64{1: 11}, less, encode, encode)
	require.NotEqual(t, Hash(a), Hash(b))
}

func TestBytes32DistinctDigestsHashDistinct(t *testing.T) {
	var d1, d2 [32]byte
	d1[0] = 0xAB
	d2[0] = 0xAC
	require.NotEqual(t, Hash(Bytes32(d1)), Hash(Bytes32(d2)))
}
