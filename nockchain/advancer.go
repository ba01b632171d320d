// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package nockchain implements the Nock-side chain advancer, spec §4.4: it
// validates and appends one Nock block, extracts bridge deposits from its
// transactions, updates the ledger, and — when the proposal step applies —
// emits signature requests for the dispatcher to broadcast.
//
// Advance is a pure function: (state, block, txs) -> (effects, state') or an
// error that the dispatcher converts into a Stop effect. It never mutates
// its input state in place; callers that need rollback-on-error semantics
// simply discard the returned state and keep their own clone, mirroring the
// "pervasive mutable state" design note (spec §9).
package nockchain

import (
	"errors"
	"math/big"
	"sort"

	"go.uber.org/zap"

	"github.com/luxfi/log"

	"github.com/luxfi/nockbridge/basedlist"
	"github.com/luxfi/nockbridge/bridgetypes"
	"github.com/luxfi/nockbridge/config"
	nblog "github.com/luxfi/nockbridge/log"
	mathutil "github.com/luxfi/nockbridge/utils/math"
)

// Sentinel errors, one per driver-malfunction/reorg/policy-violation row of
// spec §7's error taxonomy that this advancer can raise. The dispatcher logs
// Error() immediately before turning any of these into a Stop effect.
var (
	ErrTxIDsMismatch      = errors.New("tx-ids mismatch")
	ErrWrongHeight        = errors.New("received block with height not equal to next height")
	ErrReorg              = errors.New("hashchain reorg")
	ErrWithdrawalDetected = errors.New("fatal: withdrawal tx detected but withdrawals are not permitted")
	ErrWithdrawalSettlement = errors.New("withdrawal settlement detected but withdrawals are not permitted")
)

const bridgeEntryKey = "bridge"
const baBlkKey = "ba-blk"
const baEidKey = "ba-eid"

// bridgeEntryLen is version byte + 3 based-list chunks of 8 bytes each, the
// wire shape for `{version=0, [%base, addr: BasedList×3]}` (spec §4.4 step 7).
const bridgeEntryLen = 1 + 3*8

// Advance implements the twelve-step contract of spec §4.4 for one raw
// block plus its referenced transactions. The returned state is a new
// value; on any error the caller must discard it and treat the cause as
// rolled back (the dispatcher's fault barrier does this uniformly).
func Advance(state *bridgetypes.BridgeState, block bridgetypes.Block, txs map[bridgetypes.NockHash]bridgetypes.Tx, lg log.Logger) ([]bridgetypes.Effect, *bridgetypes.BridgeState, error) {
	if lg == nil {
		lg = nblog.NewNoOpLogger()
	}

	// Step 1: V0 blocks are silently ignored.
	if block.IsV0() {
		lg.Debug("ignoring V0 block", zap.Uint64("height", block.Height))
		return nil, state, nil
	}

	// Step 2: tx-id set must match the supplied tx map exactly.
	if !txIDsMatch(block.TxIDs, txs) {
		return nil, state, ErrTxIDsMismatch
	}

	// Step 3: blocks before the bridge's configured start height are ignored.
	if block.Height < state.Constants.NockchainStartHeight {
		lg.Debug("ignoring pre-start block", zap.Uint64("height", block.Height))
		return nil, state, nil
	}

	// Step 4: height must equal the next expected height.
	if block.Height != state.HashState.NockNextHeight {
		return nil, state, ErrWrongHeight
	}

	// Step 5: reorg check, skipped at the bridge's genesis block — the block
	// whose height equals the configured start height, which step 4 above
	// already confirms matches next-height (spec.md line 52).
	isGenesisForBridge := block.Height == state.Constants.NockchainStartHeight
	if !isGenesisForBridge {
		if block.Prev != state.HashState.LastNockBlock {
			return nil, state, ErrReorg
		}
	}

	next := state.Clone()

	// Step 6: partition transactions, in ascending tx-id order so the
	// resulting deposit set (and hence every later decision) is independent
	// of the order txs happened to arrive on the wire.
	deposits := make(map[bridgetypes.Name]bridgetypes.Deposit)
	for _, txID := range sortedTxIDs(txs) {
		tx := txs[txID]
		if !tx.IsV1() {
			continue
		}

		// A tx must not satisfy both tests; whenever the withdrawal test
		// passes the advancer stops immediately regardless of the deposit
		// test's result, since withdrawals are disabled in this release
		// (spec §4.4 step 6).
		if isBridgeWithdrawal(tx, next.BridgeLockRoot) {
			lg.Error("withdrawal tx detected", zap.Stringer("txID", hashStringer(txID)))
			return nil, state, ErrWithdrawalDetected
		}
		if !isBridgeDeposit(tx) {
			continue
		}

		dep, ok := extractDeposit(tx, next.BridgeLockRoot, next.Constants)
		if !ok {
			continue
		}
		deposits[dep.Name] = dep
	}

	// Step 8: build and append the canonical NockBlock record.
	nb := bridgetypes.NockBlock{
		Height:                block.Height,
		Deposits:              deposits,
		WithdrawalSettlements: map[bridgetypes.Name]bridgetypes.WithdrawalSettlement{},
		Prev:                  next.HashState.LastNockBlock,
	}
	nb.BlockID = nb.Hash()
	blockHash := nb.BlockID

	next.HashState.NockHashchain[blockHash] = nb
	next.HashState.LastNockBlock = blockHash
	next.HashState.NockNextHeight = block.Height + 1
	next.LastBlock = nb

	// Step 9: every observed deposit starts unsettled.
	for name, dep := range deposits {
		next.HashState.UnsettledDeposits.Put(blockHash, name, dep)
	}

	// Step 10: a non-empty WithdrawalSettlements map is always a stop; in
	// this advancer it can only be non-empty if a future extension starts
	// populating it, so this is a defensive invariant check, not a path any
	// current code takes.
	if len(nb.WithdrawalSettlements) > 0 {
		return nil, state, ErrWithdrawalSettlement
	}

	// Step 11: propose signature requests for every deposit with a decoded
	// destination, in ascending Name order so nonces come out monotone.
	var effects []bridgetypes.Effect
	var requests []bridgetypes.SignatureRequest
	for _, name := range sortedNames(deposits) {
		dep := deposits[name]
		if dep.Dest == nil {
			continue
		}
		next.HashState.UnconfirmedSettledDeposits.Put(blockHash, name, dep)
		next.HashState.UnsettledDeposits.Del(blockHash, name)

		requests = append(requests, bridgetypes.SignatureRequest{
			TxID:        dep.TxID,
			Name:        dep.Name,
			Recipient:   *dep.Dest,
			Amount:      new(big.Int).SetUint64(dep.AmountToMint),
			BlockHeight: block.Height,
			AsOf:        blockHash,
			Nonce:       next.NextNonce,
		})
		next.NextNonce++
	}
	// The assembled list is already ascending-nonce because it was built by
	// iterating ascending Name order while nonces increment monotonically;
	// spec §4.4 step 11's explicit "reverse" instruction describes undoing a
	// cons-list build order this implementation never introduces.
	if len(requests) > 0 {
		effects = append(effects, bridgetypes.ProposeBaseCallEffect{Requests: requests})
	}

	// Step 12: clear either hold if its target equals the freshly appended
	// Nock block hash (spec §4.4 step 12, literal text — in practice only
	// BaseHold, which is keyed by a NockHash, can ever match here).
	if next.HashState.NockHold != nil && next.HashState.NockHold.Hash == blockHash {
		next.HashState.NockHold = nil
	}
	if next.HashState.BaseHold != nil && next.HashState.BaseHold.Hash == blockHash {
		next.HashState.BaseHold = nil
	}

	lg.Debug("advanced nock block",
		zap.Uint64("height", block.Height),
		zap.Int("deposits", len(deposits)),
		zap.Int("proposed", len(requests)),
	)

	return effects, next, nil
}

func txIDsMatch(ids []bridgetypes.NockHash, txs map[bridgetypes.NockHash]bridgetypes.Tx) bool {
	if len(ids) != len(txs) {
		return false
	}
	for _, id := range ids {
		if _, ok := txs[id]; !ok {
			return false
		}
	}
	return true
}

func sortedTxIDs(txs map[bridgetypes.NockHash]bridgetypes.Tx) []bridgetypes.NockHash {
	out := make([]bridgetypes.NockHash, 0, len(txs))
	for id := range txs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return lessHash(out[i], out[j]) })
	return out
}

func sortedNames(m map[bridgetypes.Name]bridgetypes.Deposit) []bridgetypes.Name {
	out := make([]bridgetypes.Name, 0, len(m))
	for n := range m {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func lessHash(a, b bridgetypes.NockHash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// isBridgeDeposit implements spec §4.4 step 6's deposit test: a V1 tx with
// at least one output note carrying a "bridge" note-data entry.
func isBridgeDeposit(tx bridgetypes.Tx) bool {
	for _, out := range tx.Outputs {
		if out.HasEntry(bridgeEntryKey) {
			return true
		}
	}
	return false
}

// isBridgeWithdrawal implements spec §4.4 step 6's withdrawal test: every
// spent note's first-name equals bridge_lock_root, and at least one output
// carries both "ba-blk" and "ba-eid" entries.
func isBridgeWithdrawal(tx bridgetypes.Tx, lockRoot bridgetypes.NockHash) bool {
	if len(tx.SpentNames) == 0 {
		return false
	}
	for _, n := range tx.SpentNames {
		if n.First != lockRoot {
			return false
		}
	}
	for _, out := range tx.Outputs {
		if out.HasEntry(baBlkKey) && out.HasEntry(baEidKey) {
			return true
		}
	}
	return false
}

// extractDeposit implements spec §4.4 step 7: find the first output
// meeting the bridge/lock-root/minimum-assets criteria, decode its
// recipient under a fault barrier, compute the fee and the minted amount,
// and report ok=false if the tx yields no deposit at all (no qualifying
// output, or a zero mint amount after fees).
func extractDeposit(tx bridgetypes.Tx, lockRoot bridgetypes.NockHash, c config.BridgeConstants) (bridgetypes.Deposit, bool) {
	minimum := c.MinimumEventNocks * c.NicksPerNock

	for _, out := range tx.Outputs {
		if !out.HasEntry(bridgeEntryKey) {
			continue
		}
		if out.FirstName.First != lockRoot {
			continue
		}
		if out.Assets < minimum {
			continue
		}

		fee, err := mathutil.CeilDiv64(out.Assets, c.NicksPerNock)
		if err != nil {
			return bridgetypes.Deposit{}, false
		}
		fee *= c.NicksFeePerNock
		amountToMint, err := mathutil.Sub64(out.Assets, fee)
		if err != nil || amountToMint == 0 {
			return bridgetypes.Deposit{}, false
		}

		dest, _ := decodeBridgeEntry(out.NoteData[bridgeEntryKey])
		return bridgetypes.Deposit{
			TxID:         tx.ID,
			Name:         out.FirstName,
			Dest:         dest,
			AmountToMint: amountToMint,
			Fee:          fee,
		}, true
	}
	return bridgetypes.Deposit{}, false
}

// decodeBridgeEntry decodes the wire shape `{version=0, [%base, addr:
// BasedList×3]}` under a fault barrier (spec §4.4 step 7): a parse failure
// of any kind — wrong length, bad version, an out-of-range chunk, or an
// address that doesn't fit in 160 bits — yields (nil, false) rather than
// propagating, exactly as the spec prescribes for a malformed recipient.
func decodeBridgeEntry(raw []byte) (dest *bridgetypes.EvmAddr, ok bool) {
	defer func() {
		if recover() != nil {
			dest, ok = nil, false
		}
	}()

	if len(raw) != bridgeEntryLen {
		return nil, false
	}
	if raw[0] != 0 {
		return nil, false
	}

	chunks := make(basedlist.List, 3)
	for i := 0; i < 3; i++ {
		chunks[i] = beUint64(raw[1+i*8 : 1+(i+1)*8])
	}
	if !chunks.Valid() {
		return nil, false
	}

	addr, err := bridgetypes.EvmAddrFromBased(chunks)
	if err != nil {
		return nil, false
	}
	return &addr, true
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, by := range b {
		v = v<<8 | uint64(by)
	}
	return v
}

type hashStringer bridgetypes.NockHash

func (h hashStringer) String() string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(h)*2)
	for i, b := range h {
		out[i*2] = hexDigits[b>>4]
		out[i*2+1] = hexDigits[b&0x0f]
	}
	return string(out)
}

