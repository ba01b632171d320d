// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridgetypes

import (
	"github.com/luxfi/nockbridge/config"
	"github.com/luxfi/nockbridge/ledger"
)

// Hold is the single-slot parking state pausing one chain's advancement
// until a named block lands on the other chain. NockHold targets a Base
// batch hash; BaseHold targets a Nock block hash — the same shape serves
// both directions (spec §3).
type Hold struct {
	Hash   [32]byte
	Height uint64
}

// HashState is the hashchain ledger: both chains' append-only histories,
// their next-expected heights, the single-slot holds, and the four
// compound-key quadrants tracking deposit/withdrawal lifecycle.
type HashState struct {
	NockHashchain  map[NockHash]NockBlock
	LastNockBlock  NockHash
	NockNextHeight uint64

	BaseHashchain  map[BaseHash]BaseBlockBatch
	LastBaseBlocks BaseHash
	BaseNextHeight uint64

	NockHold *Hold
	BaseHold *Hold

	UnsettledDeposits           *ledger.Store[NockHash, Name, Deposit]
	UnconfirmedSettledDeposits  *ledger.Store[NockHash, Name, Deposit]
	UnsettledWithdrawals        *ledger.Store[BaseHash, string, Withdrawal]
	UnconfirmedSettledWithdrawals *ledger.Store[BaseHash, string, Withdrawal]
}

// NewHashState returns an empty HashState ready to accept the genesis block
// of either chain.
func NewHashState() *HashState {
	return &HashState{
		NockHashchain:                 make(map[NockHash]NockBlock),
		BaseHashchain:                 make(map[BaseHash]BaseBlockBatch),
		UnsettledDeposits:             ledger.New[NockHash, Name, Deposit](),
		UnconfirmedSettledDeposits:    ledger.New[NockHash, Name, Deposit](),
		UnsettledWithdrawals:          ledger.New[BaseHash, string, Withdrawal](),
		UnconfirmedSettledWithdrawals: ledger.New[BaseHash, string, Withdrawal](),
	}
}

// Clone returns a value deep enough for the dispatcher's rollback-on-stop
// semantics: every mutable quadrant and map is independently copied so a
// later mutation of the clone (or the original) never leaks across the two.
func (h *HashState) Clone() *HashState {
	out := &HashState{
		NockHashchain:  make(map[NockHash]NockBlock, len(h.NockHashchain)),
		LastNockBlock:  h.LastNockBlock,
		NockNextHeight: h.NockNextHeight,

		BaseHashchain:  make(map[BaseHash]BaseBlockBatch, len(h.BaseHashchain)),
		LastBaseBlocks: h.LastBaseBlocks,
		BaseNextHeight: h.BaseNextHeight,

		UnsettledDeposits:             h.UnsettledDeposits.Clone(),
		UnconfirmedSettledDeposits:    h.UnconfirmedSettledDeposits.Clone(),
		UnsettledWithdrawals:          h.UnsettledWithdrawals.Clone(),
		UnconfirmedSettledWithdrawals: h.UnconfirmedSettledWithdrawals.Clone(),
	}
	for k, v := range h.NockHashchain {
		out.NockHashchain[k] = v
	}
	for k, v := range h.BaseHashchain {
		out.BaseHashchain[k] = v
	}
	if h.NockHold != nil {
		hold := *h.NockHold
		out.NockHold = &hold
	}
	if h.BaseHold != nil {
		hold := *h.BaseHold
		out.BaseHold = &hold
	}
	return out
}

// CheckPoint is the last-known-good position on one chain, captured at the
// moment a stop is raised.
type CheckPoint struct {
	Hash   [32]byte
	Height uint64
}

// StopInfo is embedded in every Stop effect: the human-readable reason plus
// the checkpoint of both chains at the moment the kernel entered the
// terminal state.
type StopInfo struct {
	Reason string
	Base   CheckPoint
	Nock   CheckPoint
}

// BridgeState is the kernel's entire owned state. Every advancer and the
// dispatcher operate as pure functions (state, cause) -> (effects, state'):
// state is never mutated in place across a fault-barrier boundary (spec §9,
// "Pervasive mutable state").
type BridgeState struct {
	Config         config.NodeConfig
	Constants      config.BridgeConstants
	HashState      *HashState
	NextNonce      uint64
	LastBlock      NockBlock
	BridgeLockRoot NockHash
	Stop           *StopInfo
}

// Clone returns a value deep enough for full rollback: each handler applies
// its changes to a Clone, and when a handler returns an error the dispatcher
// discards that Clone and builds the stopped state from the untouched
// pre-cause state (the "entire handler rolls back" rule in spec §4.6.1).
func (s *BridgeState) Clone() *BridgeState {
	out := *s
	out.HashState = s.HashState.Clone()
	if s.Stop != nil {
		stop := *s.Stop
		out.Stop = &stop
	}
	return &out
}
