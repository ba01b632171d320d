// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package basechain implements the Base-side chain advancer, spec §4.5: it
// validates and appends one fixed-size batch of Base blocks, matches
// deposit-settlement events against unsettled deposits recorded by the
// Nock advancer, enforces nonce ordering, and may install a hold when a
// settlement references a Nock block this node has not yet observed.
package basechain

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/luxfi/log"

	"github.com/luxfi/nockbridge/bridgetypes"
	nblog "github.com/luxfi/nockbridge/log"
)

// Sentinel errors, one per driver-malfunction/policy-violation/settlement-
// malfeasance row of spec §7's error taxonomy this advancer can raise.
var (
	ErrWrongChunkSize  = errors.New("base batch is not exactly chunk_size blocks")
	ErrWrongHeight     = errors.New("base batch first_height is not next_height")
	ErrParentMismatch  = errors.New("base batch internal parent pointer mismatch")
	ErrNonceTooHigh    = errors.New("nonce in deposit settlement is not less than next nonce")
	ErrUnknownDeposit  = errors.New("settled deposit has no matching unsettled/unconfirmed-settled entry")
	ErrSettlementMismatch = errors.New("deposit settlement amount or destination mismatch")
	ErrBridgeNodeUpdated  = errors.New("BridgeNodeUpdated event is not implemented")
)

// Outcome distinguishes the three terminal shapes a batch can produce:
// a clean accept, a batch that installed/left a hold pending, or (via a
// returned error, not this type) a stop.
type Outcome int

const (
	// OutcomeOK means the batch was fully processed with no pending hold.
	OutcomeOK Outcome = iota
	// OutcomeHold means a hold is pending; the caller's returned state still
	// reflects every settlement processed before the hold was installed.
	OutcomeHold
)

// Advance implements spec §4.5: encode the raw batch, validate contiguity
// against the chain, append it, then run the §4.5.1 deposit-settlement
// matching pass. On error the caller must discard the returned state and
// treat the cause as fully rolled back — this advancer never returns a
// partially-applied batch alongside an error.
func Advance(state *bridgetypes.BridgeState, raw []bridgetypes.RawBaseBlock, lg log.Logger) ([]bridgetypes.Effect, *bridgetypes.BridgeState, Outcome, error) {
	if lg == nil {
		lg = nblog.NewNoOpLogger()
	}
	if len(raw) == 0 {
		return nil, state, OutcomeOK, errors.New("empty base batch")
	}

	chunkSize := state.Constants.BaseBlocksChunk
	firstHeight := raw[0].Height
	lastHeight := raw[len(raw)-1].Height

	// Step 2: exact chunk-size check.
	if lastHeight-firstHeight+1 != chunkSize || uint64(len(raw)) != chunkSize {
		return nil, state, OutcomeOK, ErrWrongChunkSize
	}

	// Step 3: batches before the configured start height are ignored.
	if firstHeight < state.Constants.BaseStartHeight {
		lg.Debug("ignoring pre-start base batch", zap.Uint64("first_height", firstHeight))
		return nil, state, OutcomeOK, nil
	}

	// Step 4: batch must start exactly at the next expected height.
	if firstHeight != state.HashState.BaseNextHeight {
		return nil, state, OutcomeOK, ErrWrongHeight
	}

	// Step 5: every internal parent pointer must chain to its predecessor.
	for i := 1; i < len(raw); i++ {
		if !basedListEqual(raw[i].Parent, raw[i-1].BID) {
			return nil, state, OutcomeOK, ErrParentMismatch
		}
	}

	// Reject any BridgeNodeUpdated event up front (spec §4.5 input list,
	// "not yet implemented: stop").
	for _, b := range raw {
		for _, ev := range b.Events {
			if ev.Kind == bridgetypes.BaseEventBridgeNodeUpdated {
				return nil, state, OutcomeOK, ErrBridgeNodeUpdated
			}
		}
	}

	next := state.Clone()

	blocks := make(map[uint64]bridgetypes.BatchBlock, len(raw))
	settlements := make(map[string]bridgetypes.DepositSettlement)
	withdrawals := make(map[string]bridgetypes.Withdrawal)
	var settlementOrder []string
	for _, b := range raw {
		blocks[b.Height] = bridgetypes.BatchBlock{BID: b.BID, Parent: b.Parent}
		for _, ev := range b.Events {
			switch ev.Kind {
			case bridgetypes.BaseEventDepositProcessed:
				key := bridgetypes.BasedListKey(ev.Settlement.EventID)
				settlements[key] = ev.Settlement
				settlementOrder = append(settlementOrder, key)
			case bridgetypes.BaseEventBurnForWithdrawal:
				withdrawals[bridgetypes.BasedListKey(ev.Withdrawal.EventID)] = ev.Withdrawal
			}
		}
	}
	sort.Strings(settlementOrder)

	batch := bridgetypes.BaseBlockBatch{
		FirstHeight:        firstHeight,
		LastHeight:         lastHeight,
		Blocks:             blocks,
		Withdrawals:        withdrawals,
		DepositSettlements: settlements,
		Prev:               next.HashState.LastBaseBlocks,
	}
	batchHash := batch.Hash()

	// Step 6: append.
	next.HashState.BaseHashchain[batchHash] = batch
	next.HashState.LastBaseBlocks = batchHash
	next.HashState.BaseNextHeight = firstHeight + chunkSize

	// Step 7: record any observed withdrawals as unsettled. Withdrawal
	// proposal/execution itself is rejected elsewhere (ProposedNockTx
	// always aborts, spec §9 OQ3) — this release only ever records that a
	// burn was seen, it never attempts to release funds on Nock.
	for key, w := range withdrawals {
		next.HashState.UnsettledWithdrawals.Put(batchHash, key, w)
	}

	// §4.5.1: process deposit settlements in ascending byte order of their
	// BasedListKey strings (not numeric event-id order), in a single forward
	// pass: every settlement's nonce is checked, every settlement with an
	// unseen as_of is a hold candidate (the greatest height wins), and once a
	// hold is pending no further known settlement is processed (Open
	// Question 1).
	var holdPending bool
	var hold *bridgetypes.Hold
	for _, key := range settlementOrder {
		s := settlements[key]

		// Step 1: nonce must be strictly less than next_nonce.
		if s.Nonce >= next.NextNonce {
			return nil, state, OutcomeOK, ErrNonceTooHigh
		}

		// Step 2: unknown as_of installs/upgrades a hold rather than
		// failing; keep the greatest height seen among pending candidates.
		if _, known := next.HashState.NockHashchain[s.AsOf]; !known {
			if hold == nil || s.NockHeight > hold.Height {
				hold = &bridgetypes.Hold{Hash: s.AsOf, Height: s.NockHeight}
			}
			holdPending = true
			continue
		}

		// Step 3: once a hold is pending, later settlements are not processed.
		if holdPending {
			continue
		}

		// Step 4/5/6: the deposit must exist in the originating Nock block
		// and still be tracked in one of the two deposit quadrants.
		nb := next.HashState.NockHashchain[s.AsOf]
		dep, ok := nb.Deposits[s.CounterpartName]
		if !ok {
			return nil, state, OutcomeOK, ErrUnknownDeposit
		}
		_, inUnsettled := next.HashState.UnsettledDeposits.Get(s.AsOf, s.CounterpartName)
		_, inConfirmed := next.HashState.UnconfirmedSettledDeposits.Get(s.AsOf, s.CounterpartName)
		if !inUnsettled && !inConfirmed {
			return nil, state, OutcomeOK, ErrUnknownDeposit
		}

		if dep.Dest == nil || *dep.Dest != s.Dest || dep.AmountToMint != s.SettledAmount {
			return nil, state, OutcomeOK, ErrSettlementMismatch
		}

		// Step 7: settlement complete, remove from both quadrants.
		next.HashState.UnsettledDeposits.Del(s.AsOf, s.CounterpartName)
		next.HashState.UnconfirmedSettledDeposits.Del(s.AsOf, s.CounterpartName)
	}

	if holdPending {
		next.HashState.BaseHold = hold
		lg.Warn("base settlement referenced unseen nock block, holding",
			zap.Uint64("hold_height", hold.Height))
		return nil, next, OutcomeHold, nil
	}

	// Step 9: clear nock_hold if this batch is the block it was waiting for.
	if next.HashState.NockHold != nil && next.HashState.NockHold.Hash == batchHash {
		next.HashState.NockHold = nil
	}

	lg.Debug("advanced base batch",
		zap.Uint64("first_height", firstHeight),
		zap.Uint64("last_height", lastHeight),
		zap.Int("settlements", len(settlements)),
	)

	return nil, next, OutcomeOK, nil
}

func basedListEqual(a, b bridgetypes.BaseBlockId) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
