// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package proposer deterministically picks the block proposer and its two
// verifiers for a given height, per spec §4.7: sort the configured nodes
// by base58(pubkey-hash) ascending, then `sorted[height mod N]` proposes
// and the next two nodes in rotation verify.
//
// Sorting is on the base58-encoded string, not the raw hash bytes (spec §9,
// "Proposer determinism") — this matters because base58 is not
// order-preserving with respect to the underlying bytes, and every node
// must reproduce the exact same ordering to agree on who proposes.
package proposer

import (
	"errors"
	"sort"

	"github.com/mr-tron/base58"

	"github.com/luxfi/nockbridge/config"
)

// ErrNoNodes is returned when the rotator is asked to pick a proposer over
// an empty node set.
var ErrNoNodes = errors.New("proposer: no configured nodes")

// sortedNodes returns nodes ordered by the base58 encoding of their Nock
// public key (the pubkey hash the spec refers to), ascending as strings.
func sortedNodes(nodes []config.Node) []config.Node {
	out := make([]config.Node, len(nodes))
	copy(out, nodes)
	sort.Slice(out, func(i, j int) bool {
		return base58.Encode(out[i].NockKey[:]) < base58.Encode(out[j].NockKey[:])
	})
	return out
}

// Proposer returns the node that proposes at the given height.
func Proposer(height uint64, nodes []config.Node) (config.Node, error) {
	if len(nodes) == 0 {
		return config.Node{}, ErrNoNodes
	}
	sorted := sortedNodes(nodes)
	return sorted[height%uint64(len(sorted))], nil
}

// Verifiers returns the two nodes that verify at the given height: the
// next two in rotation after the proposer.
func Verifiers(height uint64, nodes []config.Node) ([2]config.Node, error) {
	var out [2]config.Node
	if len(nodes) == 0 {
		return out, ErrNoNodes
	}
	sorted := sortedNodes(nodes)
	n := uint64(len(sorted))
	out[0] = sorted[(height+1)%n]
	out[1] = sorted[(height+2)%n]
	return out, nil
}

// IsProposer reports whether nodeID is the proposer at the given height.
func IsProposer(height uint64, nodes []config.Node, nodeID config.Node) (bool, error) {
	p, err := Proposer(height, nodes)
	if err != nil {
		return false, err
	}
	return p.NodeID == nodeID.NodeID, nil
}
