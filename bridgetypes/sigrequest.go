// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridgetypes

import "math/big"

// SignatureRequest is the bit-level record the kernel emits every time a
// proposer confirms a deposit, per spec §6:
//
//	{tx_id: 32B, name: (first: 32B, last: 32B), recipient: 20B EVM,
//	 amount: uint256, block_height: uint64, as_of: 32B NockBlock
//	 structural hash, nonce: uint64}
//
// as_of is always a NockBlock structural hash (spec §4.4, "Critical identity
// rule"). The raw Block carries no digest of its own, so the Nock advancer
// stores that same structural hash as NockBlock.BlockID.
type SignatureRequest struct {
	TxID        NockHash
	Name        Name
	Recipient   EvmAddr
	Amount      *big.Int
	BlockHeight uint64
	AsOf        NockHash
	Nonce       uint64
}
