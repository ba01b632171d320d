// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package proposer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/nockbridge/config"
)

func fiveNodes() []config.Node {
	nodes := make([]config.Node, 5)
	for i := range nodes {
		nodes[i].NockKey[0] = byte(5 - i) // reverse order so sort is non-trivial
	}
	return nodes
}

func TestProposerDeterministic(t *testing.T) {
	nodes := fiveNodes()
	p1, err := Proposer(17, nodes)
	require.NoError(t, err)
	p2, err := Proposer(17, nodes)
	require.NoError(t, err)
	require.Equal(t, p1, p2)
}

func TestProposerRotatesWithHeight(t *testing.T) {
	nodes := fiveNodes()
	seen := make(map[[32]byte]bool)
	for h := uint64(0); h < 5; h++ {
		p, err := Proposer(h, nodes)
		require.NoError(t, err)
		seen[p.NockKey] = true
	}
	require.Len(t, seen, 5)
}

func TestVerifiersExcludeProposer(t *testing.T) {
	nodes := fiveNodes()
	height := uint64(3)
	p, err := Proposer(height, nodes)
	require.NoError(t, err)
	vs, err := Verifiers(height, nodes)
	require.NoError(t, err)
	require.NotEqual(t, p.NockKey, vs[0].NockKey)
	require.NotEqual(t, p.NockKey, vs[1].NockKey)
	require.NotEqual(t, vs[0].NockKey, vs[1].NockKey)
}

func TestNoNodesErrors(t *testing.T) {
	_, err := Proposer(0, nil)
	require.ErrorIs(t, err, ErrNoNodes)
}
