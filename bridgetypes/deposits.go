// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridgetypes

import "github.com/luxfi/nockbridge/hashable"

// Deposit records one bridge-bound Nock output. A nil Dest marks a
// malformed recipient: funds stay in the bridge wallet and no signature
// request is ever emitted for this deposit, but it is still recorded so an
// operator can see it was observed.
type Deposit struct {
	TxID          NockHash
	Name          Name
	Dest          *EvmAddr
	AmountToMint  uint64
	Fee           uint64
}

func (d Deposit) Encode() hashable.Node {
	var destNode hashable.Node
	if d.Dest == nil {
		destNode = hashable.Tuple(hashable.LeafBool(false))
	} else {
		destNode = hashable.Tuple(hashable.LeafBool(true), evmAddrNode(*d.Dest))
	}
	return hashable.Tuple(
		d.TxID.Encode(),
		d.Name.Encode(),
		destNode,
		hashable.Leaf(d.AmountToMint),
		hashable.Leaf(d.Fee),
	)
}

func evmAddrNode(a EvmAddr) hashable.Node {
	children := make([]hashable.Node, len(a))
	for i, b := range a {
		children[i] = hashable.Leaf(uint64(b))
	}
	return hashable.Tuple(children...)
}

// DepositSettlement is one Base-side event confirming a deposit's mint.
type DepositSettlement struct {
	EventID         BaseEventId
	CounterpartName Name
	AsOf            NockHash
	NockHeight      uint64
	Dest            EvmAddr
	SettledAmount   uint64
	Nonce           uint64
}

func (s DepositSettlement) Encode() hashable.Node {
	return hashable.Tuple(
		hashable.BasedList(s.EventID),
		s.CounterpartName.Encode(),
		s.AsOf.Encode(),
		hashable.Leaf(s.NockHeight),
		evmAddrNode(s.Dest),
		hashable.Leaf(s.SettledAmount),
		hashable.Leaf(s.Nonce),
	)
}

// Withdrawal mirrors Deposit in the Base-to-Nock direction. A withdrawal tx
// on Nock is a stop condition (spec §4.4 step 6); a burn observed in a Base
// batch is recorded in UnsettledWithdrawals without stopping (spec §4.5
// step 7), and nothing in this release releases funds for it.
type Withdrawal struct {
	EventID BaseEventId
	Name    Name
	Amount  uint64
}

func (w Withdrawal) Encode() hashable.Node {
	return hashable.Tuple(
		hashable.BasedList(w.EventID),
		w.Name.Encode(),
		hashable.Leaf(w.Amount),
	)
}

// WithdrawalSettlement mirrors DepositSettlement in the opposite direction;
// its presence in a Nock block is always a stop condition (spec §4.4 step 10).
type WithdrawalSettlement struct {
	EventID    BaseEventId
	Name       Name
	AsOf       BaseHash
	BaseHeight uint64
	Amount     uint64
}

func (s WithdrawalSettlement) Encode() hashable.Node {
	return hashable.Tuple(
		hashable.BasedList(s.EventID),
		s.Name.Encode(),
		s.AsOf.Encode(),
		hashable.Leaf(s.BaseHeight),
		hashable.Leaf(s.Amount),
	)
}
