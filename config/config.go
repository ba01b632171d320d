// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config holds the two admin-submitted parameter structs the kernel
// accepts: NodeConfig (this node's identity and its peers') and
// BridgeConstants (the bridge-wide thresholds and chunk sizes). Loading
// policy — where these values come from — is out of scope; this package
// only validates and defaults them once they arrive as a cause.
package config

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/luxfi/nockbridge/utils/ids"
)

// Error variables for BridgeConstants validation (spec §4.6.2).
var (
	ErrBadVersion         = errors.New("unsupported constants version")
	ErrBadSignerThreshold = errors.New("min_signers must be between 1 and total_signers")
	ErrBadMinimumEvent    = errors.New("minimum_event_nocks must be > 0")
	ErrBadChunkSize       = errors.New("base_blocks_chunk must be > 0")
)

// Node is one federated signer: its network identity plus the two public
// keys it signs with — the Nock-side key (for note spend conditions, and
// the key whose base58 encoding the proposer rotator sorts on) and the
// Base-side ECDSA key's address.
type Node struct {
	NodeID    ids.NodeID
	EthPubkey common.Address
	NockKey   [32]byte
}

// NodeConfig is the optional payload of a CfgLoad cause: `{node_id,
// nodes[5], my_eth_key, my_nock_key}` per spec §6.
type NodeConfig struct {
	NodeID   ids.NodeID
	Nodes    []Node
	MyEthKey common.Address
	MyNockKey [32]byte
}

// BridgeConstants is the payload of a SetConstants cause: `{version,
// min_signers, total_signers, minimum_event_nocks, nicks_fee_per_nock,
// base_blocks_chunk, base_start_height, nockchain_start_height}` per
// spec §6.
type BridgeConstants struct {
	Version               uint32
	MinSigners            uint32
	TotalSigners          uint32
	MinimumEventNocks     uint64
	NicksFeePerNock       uint64
	NicksPerNock          uint64
	BaseBlocksChunk       uint64
	BaseStartHeight       uint64
	NockchainStartHeight  uint64
}

// DefaultBridgeConstants returns the constants defaults listed in spec §6.
func DefaultBridgeConstants() BridgeConstants {
	return BridgeConstants{
		Version:              0,
		MinSigners:           3,
		TotalSigners:         5,
		MinimumEventNocks:    100_000,
		NicksFeePerNock:      195,
		NicksPerNock:         65_536,
		BaseBlocksChunk:      100,
		BaseStartHeight:      0,
		NockchainStartHeight: 0,
	}
}

// Valid checks the new constants per spec §4.6.2: version must be 0,
// 1 <= min_signers <= total_signers, minimum_event_nocks > 0,
// base_blocks_chunk > 0. It returns the first violated invariant rather
// than collecting every violation, matching the spec's short-circuit
// accept/reject contract.
func (c BridgeConstants) Valid() error {
	if c.Version != 0 {
		return ErrBadVersion
	}
	if c.MinSigners < 1 || c.MinSigners > c.TotalSigners {
		return ErrBadSignerThreshold
	}
	if c.MinimumEventNocks == 0 {
		return ErrBadMinimumEvent
	}
	if c.BaseBlocksChunk == 0 {
		return ErrBadChunkSize
	}
	return nil
}
