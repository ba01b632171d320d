// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sigrequest computes the keccak256(abi.encode(...)) preimage the
// Base contract expects for a SignatureRequest, per spec §6. It performs no
// signing and no submission — an external signer consumes the returned
// digest; aggregation and broadcast are explicit non-goals of the kernel.
package sigrequest

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/luxfi/nockbridge/bridgetypes"
)

var preimageArgs abi.Arguments

func init() {
	bytes32, err := abi.NewType("bytes32", "", nil)
	if err != nil {
		panic(err)
	}
	addr, err := abi.NewType("address", "", nil)
	if err != nil {
		panic(err)
	}
	u256, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	u64, err := abi.NewType("uint64", "", nil)
	if err != nil {
		panic(err)
	}
	preimageArgs = abi.Arguments{
		{Type: bytes32}, // tx_id
		{Type: bytes32}, // name.first
		{Type: bytes32}, // name.last
		{Type: addr},    // recipient
		{Type: u256},    // amount
		{Type: u64},     // block_height
		{Type: bytes32}, // as_of
	}
}

// Preimage returns keccak256(abi.encode(tx_id, name, recipient, amount,
// block_height, as_of)) — deliberately excluding nonce, matching the
// preimage fields spec §6 lists. The nonce still travels on the wire as
// part of the SignatureRequest; it is not part of what gets signed.
func Preimage(sr bridgetypes.SignatureRequest) ([32]byte, error) {
	amount := sr.Amount
	if amount == nil {
		amount = new(big.Int)
	}
	packed, err := preimageArgs.Pack(
		[32]byte(sr.TxID),
		[32]byte(sr.Name.First),
		[32]byte(sr.Name.Last),
		sr.Recipient,
		amount,
		sr.BlockHeight,
		[32]byte(sr.AsOf),
	)
	if err != nil {
		return [32]byte{}, err
	}
	return crypto.Keccak256Hash(packed), nil
}
