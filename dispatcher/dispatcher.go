// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package dispatcher implements the kernel's single entry point, spec §4.6:
// gating (stop check, then hold check, then per-cause routing), a fault
// barrier that converts any uncaught panic into a Stop effect, the
// ProposedBaseCall double-proposal handler, and the SetConstants validator
// with its conditional start-height rebase. Dispatch funnels every cause
// through one entry point the way the teacher's consensus engines funnel
// every event through a single Initialize/Start lifecycle call, with a
// Hoon-style mule fault barrier (spec §9) standing in for the engine's own
// setup/teardown error handling.
package dispatcher

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/luxfi/log"

	"github.com/luxfi/nockbridge/basechain"
	"github.com/luxfi/nockbridge/bridgetypes"
	nblog "github.com/luxfi/nockbridge/log"
	"github.com/luxfi/nockbridge/metrics"
	"github.com/luxfi/nockbridge/nockchain"
)

// Errors a cause handler can return; the dispatcher converts every one of
// these into a Stop effect, never propagates them to its caller.
var (
	ErrProposalNonceTooHigh  = errors.New("nonce in proposed base call is greater than or equal to next-nonce")
	ErrProposalUnknownDeposit = errors.New("proposed deposit not in unsettled-deposits")
	ErrDoubleProposal        = errors.New("encountered double proposal for the same (as_of, name)")
	ErrNockTxNotSupported    = errors.New("ProposedNockTx is not supported")
)

// Dispatch is the kernel's one entry point. It never returns a Go error: any
// failure, whether a handler's explicit rejection or a recovered panic, is
// folded into the returned state's Stop field and surfaced as a StopEffect
// in the returned effect list, per spec §4.6 and §9's "fault barrier" note.
func Dispatch(state *bridgetypes.BridgeState, cause bridgetypes.Cause, lg log.Logger, mx *metrics.BridgeMetrics) ([]bridgetypes.Effect, *bridgetypes.BridgeState) {
	if lg == nil {
		lg = nblog.NewNoOpLogger()
	}

	// Gate 1: once stopped, every cause is a no-op (spec §4.6, "If
	// state.stop.is_some(), log and return (∅, state) for any cause").
	if state.Stop != nil {
		lg.Debug("dropping cause, kernel already stopped", zap.String("reason", state.Stop.Reason))
		return nil, state
	}

	// Gate 2: a pending hold on either chain is terminal in this release.
	if state.HashState.NockHold != nil || state.HashState.BaseHold != nil {
		next := stopState(state, "pending hold: this release treats holds as unrecoverable")
		observeStop(mx, next)
		return []bridgetypes.Effect{stopEffect(next)}, next
	}

	effects, next, err := recoverRoute(state, cause, lg)
	if err != nil {
		lg.Error("cause stopped kernel", zap.String("cause", causeName(cause)), zap.Error(err))
		stopped := stopState(state, fmt.Sprintf("%s: %s", causeName(cause), err.Error()))
		observeStop(mx, stopped)
		return []bridgetypes.Effect{stopEffect(stopped)}, stopped
	}

	observeAccepted(mx, cause, next)
	return effects, next
}

// recoverRoute wraps route in the fault barrier: any panic inside a handler
// becomes an error instead of unwinding past Dispatch.
func recoverRoute(state *bridgetypes.BridgeState, cause bridgetypes.Cause, lg log.Logger) (effects []bridgetypes.Effect, next *bridgetypes.BridgeState, err error) {
	defer func() {
		if r := recover(); r != nil {
			effects, next, err = nil, nil, fmt.Errorf("fault barrier caught: %v", r)
		}
	}()
	return route(state, cause, lg)
}

func route(state *bridgetypes.BridgeState, cause bridgetypes.Cause, lg log.Logger) ([]bridgetypes.Effect, *bridgetypes.BridgeState, error) {
	switch c := cause.(type) {
	case bridgetypes.CfgLoad:
		return handleCfgLoad(state, c)
	case bridgetypes.SetConstants:
		return handleSetConstants(state, c)
	case bridgetypes.StopCause:
		return handleStopCause(state, c)
	case bridgetypes.Start:
		return handleStart(state)
	case bridgetypes.BaseBlocks:
		return handleBaseBlocks(state, c, lg)
	case bridgetypes.NockchainBlock:
		return handleNockchainBlock(state, c, lg)
	case bridgetypes.ProposedBaseCall:
		return handleProposedBaseCall(state, c)
	case bridgetypes.ProposedNockTx:
		return nil, state, ErrNockTxNotSupported
	default:
		return nil, state, fmt.Errorf("unrecognized cause %T", cause)
	}
}

func handleCfgLoad(state *bridgetypes.BridgeState, c bridgetypes.CfgLoad) ([]bridgetypes.Effect, *bridgetypes.BridgeState, error) {
	if c.Config == nil {
		return nil, state, nil
	}
	next := state.Clone()
	next.Config = *c.Config
	return nil, next, nil
}

// handleSetConstants implements spec §4.6.2: validate, then rebase either
// next-height counter to the new start height only if it still equals the
// old start height — i.e. only while the corresponding chain has not yet
// begun processing.
func handleSetConstants(state *bridgetypes.BridgeState, c bridgetypes.SetConstants) ([]bridgetypes.Effect, *bridgetypes.BridgeState, error) {
	if err := c.Constants.Valid(); err != nil {
		return nil, state, err
	}

	old := state.Constants
	next := state.Clone()
	next.Constants = c.Constants

	if next.HashState.NockNextHeight == old.NockchainStartHeight {
		next.HashState.NockNextHeight = c.Constants.NockchainStartHeight
	}
	if next.HashState.BaseNextHeight == old.BaseStartHeight {
		next.HashState.BaseNextHeight = c.Constants.BaseStartHeight
	}
	return nil, next, nil
}

func handleStopCause(state *bridgetypes.BridgeState, c bridgetypes.StopCause) ([]bridgetypes.Effect, *bridgetypes.BridgeState, error) {
	next := state.Clone()
	info := c.Info
	next.Stop = &info
	return []bridgetypes.Effect{bridgetypes.StopEffect{Reason: info.Reason, Last: info}}, next, nil
}

func handleStart(state *bridgetypes.BridgeState) ([]bridgetypes.Effect, *bridgetypes.BridgeState, error) {
	next := state.Clone()
	next.Stop = nil
	return nil, next, nil
}

func handleBaseBlocks(state *bridgetypes.BridgeState, c bridgetypes.BaseBlocks, lg log.Logger) ([]bridgetypes.Effect, *bridgetypes.BridgeState, error) {
	effects, next, _, err := basechain.Advance(state, c.Blocks, lg)
	if err != nil {
		return nil, state, err
	}
	return effects, next, nil
}

func handleNockchainBlock(state *bridgetypes.BridgeState, c bridgetypes.NockchainBlock, lg log.Logger) ([]bridgetypes.Effect, *bridgetypes.BridgeState, error) {
	effects, next, err := nockchain.Advance(state, c.Block, c.Txs, lg)
	if err != nil {
		return nil, state, err
	}
	return effects, next, nil
}

// handleProposedBaseCall implements spec §4.6.1: iterate the proposal list
// in order, moving each (as_of, name) from unsettled to unconfirmed-settled.
// Any violation rolls back the entire batch, not just the offending entry —
// the caller always receives the pre-cause state on error.
func handleProposedBaseCall(state *bridgetypes.BridgeState, c bridgetypes.ProposedBaseCall) ([]bridgetypes.Effect, *bridgetypes.BridgeState, error) {
	next := state.Clone()

	for _, req := range c.Requests {
		if req.Nonce >= next.NextNonce {
			return nil, state, ErrProposalNonceTooHigh
		}

		if next.HashState.UnconfirmedSettledDeposits.Has(req.AsOf, req.Name) {
			return nil, state, ErrDoubleProposal
		}

		dep, ok := next.HashState.UnsettledDeposits.Get(req.AsOf, req.Name)
		if !ok {
			return nil, state, ErrProposalUnknownDeposit
		}

		next.HashState.UnsettledDeposits.Del(req.AsOf, req.Name)
		next.HashState.UnconfirmedSettledDeposits.Put(req.AsOf, req.Name, dep)
	}

	return nil, next, nil
}

func stopEffect(state *bridgetypes.BridgeState) bridgetypes.Effect {
	return bridgetypes.StopEffect{Reason: state.Stop.Reason, Last: *state.Stop}
}

// stopState clones state, attaches a StopInfo built from reason plus the
// last-known-good checkpoint of both chains, and returns the clone. The
// caller discards the un-stopped original, matching the rollback-on-Stop
// contract every handler above follows.
func stopState(state *bridgetypes.BridgeState, reason string) *bridgetypes.BridgeState {
	next := state.Clone()
	next.Stop = &bridgetypes.StopInfo{
		Reason: reason,
		Nock: bridgetypes.CheckPoint{
			Hash:   state.HashState.LastNockBlock,
			Height: priorHeight(state.HashState.NockNextHeight),
		},
		Base: bridgetypes.CheckPoint{
			Hash:   state.HashState.LastBaseBlocks,
			Height: priorHeight(state.HashState.BaseNextHeight),
		},
	}
	return next
}

func priorHeight(next uint64) uint64 {
	if next == 0 {
		return 0
	}
	return next - 1
}

func causeName(cause bridgetypes.Cause) string {
	return fmt.Sprintf("%T", cause)
}

func observeStop(mx *metrics.BridgeMetrics, state *bridgetypes.BridgeState) {
	if mx == nil {
		return
	}
	mx.StopsTotal.Inc()
	observeCommon(mx, state)
}

func observeAccepted(mx *metrics.BridgeMetrics, cause bridgetypes.Cause, state *bridgetypes.BridgeState) {
	if mx == nil {
		return
	}
	switch cause.(type) {
	case bridgetypes.NockchainBlock:
		mx.NockBlocksProcessedTotal.Inc()
	case bridgetypes.BaseBlocks:
		mx.BaseChunksProcessedTotal.Inc()
	}
	observeCommon(mx, state)
}

func observeCommon(mx *metrics.BridgeMetrics, state *bridgetypes.BridgeState) {
	holdsActive := 0.0
	if state.HashState.NockHold != nil {
		holdsActive++
	}
	if state.HashState.BaseHold != nil {
		holdsActive++
	}
	mx.HoldsActive.Set(holdsActive)
	mx.NextNonce.Set(float64(state.NextNonce))
	mx.DepositsUnsettled.Set(float64(state.HashState.UnsettledDeposits.Count()))
	mx.DepositsUnconfirmedSettled.Set(float64(state.HashState.UnconfirmedSettledDeposits.Count()))
}
