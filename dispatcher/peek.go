// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dispatcher

import (
	"github.com/luxfi/nockbridge/bridgetypes"
	"github.com/luxfi/nockbridge/config"
)

// Peeks are pure reads over a BridgeState: spec §4.6.3 lists state,
// hash_state, constants, stop_info, hold-membership tests, and the
// three-way proposed_deposit vetting query. None of these take a clone or
// mutate anything — a peek never races a mutation because the dispatcher is
// single-threaded and never interleaves a peek with a Dispatch call.

// PeekState returns the entire owned state, as-is.
func PeekState(state *bridgetypes.BridgeState) *bridgetypes.BridgeState { return state }

// PeekHashState returns the hashchain ledger.
func PeekHashState(state *bridgetypes.BridgeState) *bridgetypes.HashState { return state.HashState }

// PeekConstants returns the currently active bridge constants.
func PeekConstants(state *bridgetypes.BridgeState) config.BridgeConstants { return state.Constants }

// PeekStopInfo returns the kernel's stop record, or nil if it has not
// stopped.
func PeekStopInfo(state *bridgetypes.BridgeState) *bridgetypes.StopInfo { return state.Stop }

// PeekNockHoldSatisfied reports whether a pending nock_hold's target (a Base
// batch hash) has landed in the Base hashchain yet — the condition the
// driver checks before re-delivering the blocked batch.
func PeekNockHoldSatisfied(state *bridgetypes.BridgeState) bool {
	h := state.HashState.NockHold
	if h == nil {
		return false
	}
	_, ok := state.HashState.BaseHashchain[bridgetypes.BaseHash(h.Hash)]
	return ok
}

// PeekBaseHoldSatisfied reports whether a pending base_hold's target (a Nock
// block hash) has landed in the Nock hashchain yet.
func PeekBaseHoldSatisfied(state *bridgetypes.BridgeState) bool {
	h := state.HashState.BaseHold
	if h == nil {
		return false
	}
	_, ok := state.HashState.NockHashchain[bridgetypes.NockHash(h.Hash)]
	return ok
}

// ProposedDepositVerdict is the three-way answer spec §4.6.3's
// proposed_deposit query returns: True (matches, safe to co-sign), False
// (stop-signal — a peer proposed something wrong), or None (not found yet,
// soft — this node simply hasn't synced the deposit).
type ProposedDepositVerdict int

const (
	ProposedDepositTrue ProposedDepositVerdict = iota
	ProposedDepositFalse
	ProposedDepositNone
)

// PeekProposedDeposit implements spec §4.6.3's proposed_deposit vetting
// query, in the exact order the spec lists: double-proposal check first,
// then not-found-soft, then nonce, then the full field match.
func PeekProposedDeposit(
	state *bridgetypes.BridgeState,
	txID bridgetypes.NockHash,
	asOf bridgetypes.NockHash,
	name bridgetypes.Name,
	recipient bridgetypes.EvmAddr,
	amount uint64,
	nonce uint64,
) ProposedDepositVerdict {
	if state.HashState.UnconfirmedSettledDeposits.Has(asOf, name) {
		return ProposedDepositFalse
	}

	dep, ok := state.HashState.UnsettledDeposits.Get(asOf, name)
	if !ok {
		return ProposedDepositNone
	}

	if nonce >= state.NextNonce {
		return ProposedDepositFalse
	}

	if dep.Dest != nil && *dep.Dest == recipient && dep.AmountToMint == amount && dep.TxID == txID {
		return ProposedDepositTrue
	}
	return ProposedDepositFalse
}
