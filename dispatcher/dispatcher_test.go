// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/nockbridge/bridgetypes"
	"github.com/luxfi/nockbridge/config"
)

func freshState() *bridgetypes.BridgeState {
	return &bridgetypes.BridgeState{
		Constants: config.DefaultBridgeConstants(),
		HashState: bridgetypes.NewHashState(),
		NextNonce: 1,
	}
}

func TestStoppedKernelDropsEveryCause(t *testing.T) {
	state := freshState()
	state.Stop = &bridgetypes.StopInfo{Reason: "already stopped"}

	effects, next := Dispatch(state, bridgetypes.Start{}, nil, nil)
	require.Nil(t, effects)
	require.Same(t, state, next)
	require.Equal(t, "already stopped", next.Stop.Reason)
}

func TestPendingHoldStopsDispatch(t *testing.T) {
	state := freshState()
	state.HashState.BaseHold = &bridgetypes.Hold{Hash: [32]byte{0x01}, Height: 3}

	effects, next := Dispatch(state, bridgetypes.Start{}, nil, nil)
	require.Len(t, effects, 1)
	_, ok := effects[0].(bridgetypes.StopEffect)
	require.True(t, ok)
	require.NotNil(t, next.Stop)
}

func TestProposedNockTxAlwaysStops(t *testing.T) {
	state := freshState()
	effects, next := Dispatch(state, bridgetypes.ProposedNockTx{RawTx: []byte{1, 2, 3}}, nil, nil)
	require.Len(t, effects, 1)
	require.NotNil(t, next.Stop)
}

func TestDoubleProposalRollsBackEntireBatch(t *testing.T) {
	state := freshState()
	state.NextNonce = 3
	asOf := bridgetypes.NockHash{0xAA}
	name := bridgetypes.Name{First: bridgetypes.NockHash{0x01}}
	dep := bridgetypes.Deposit{Name: name, AmountToMint: 10}
	state.HashState.UnsettledDeposits.Put(asOf, name, dep)

	cause := bridgetypes.ProposedBaseCall{
		Requests: []bridgetypes.SignatureRequest{
			{Name: name, AsOf: asOf, Nonce: 0},
			{Name: name, AsOf: asOf, Nonce: 1}, // same (as_of, name) again -> double proposal
		},
	}

	effects, next := Dispatch(state, cause, nil, nil)
	require.Len(t, effects, 1)
	_, ok := effects[0].(bridgetypes.StopEffect)
	require.True(t, ok)
	// Full rollback: the original unsettled entry is untouched by the stop.
	require.NotNil(t, next.Stop)
	require.True(t, next.HashState.UnsettledDeposits.Has(asOf, name))
	require.False(t, next.HashState.UnconfirmedSettledDeposits.Has(asOf, name))
}

func TestProposedBaseCallHappyPathMovesEntry(t *testing.T) {
	state := freshState()
	state.NextNonce = 3
	asOf := bridgetypes.NockHash{0xAA}
	name := bridgetypes.Name{First: bridgetypes.NockHash{0x01}}
	dep := bridgetypes.Deposit{Name: name, AmountToMint: 10}
	state.HashState.UnsettledDeposits.Put(asOf, name, dep)

	cause := bridgetypes.ProposedBaseCall{
		Requests: []bridgetypes.SignatureRequest{{Name: name, AsOf: asOf, Nonce: 0}},
	}

	effects, next := Dispatch(state, cause, nil, nil)
	require.Nil(t, effects)
	require.Nil(t, next.Stop)
	require.False(t, next.HashState.UnsettledDeposits.Has(asOf, name))
	require.True(t, next.HashState.UnconfirmedSettledDeposits.Has(asOf, name))
}

func TestSetConstantsRebasesStartHeightsOnlyBeforeProcessing(t *testing.T) {
	state := freshState()
	state.HashState.NockNextHeight = state.Constants.NockchainStartHeight
	state.HashState.BaseNextHeight = state.Constants.BaseStartHeight

	newConstants := state.Constants
	newConstants.NockchainStartHeight = 100
	newConstants.BaseStartHeight = 200

	_, next := Dispatch(state, bridgetypes.SetConstants{Constants: newConstants}, nil, nil)
	require.Nil(t, next.Stop)
	require.Equal(t, uint64(100), next.HashState.NockNextHeight)
	require.Equal(t, uint64(200), next.HashState.BaseNextHeight)
}

func TestSetConstantsDoesNotRebaseOnceProcessingStarted(t *testing.T) {
	state := freshState()
	state.HashState.NockNextHeight = 5 // already advanced past start height 0
	state.HashState.BaseNextHeight = state.Constants.BaseStartHeight

	newConstants := state.Constants
	newConstants.NockchainStartHeight = 100

	_, next := Dispatch(state, bridgetypes.SetConstants{Constants: newConstants}, nil, nil)
	require.Nil(t, next.Stop)
	require.Equal(t, uint64(5), next.HashState.NockNextHeight)
}

func TestSetConstantsRejectsInvalid(t *testing.T) {
	state := freshState()
	bad := state.Constants
	bad.MinSigners = 0

	effects, next := Dispatch(state, bridgetypes.SetConstants{Constants: bad}, nil, nil)
	require.Len(t, effects, 1)
	require.NotNil(t, next.Stop)
	require.Equal(t, state.Constants, next.Constants) // unchanged, not partially applied
}

func TestPeekProposedDepositThreeWay(t *testing.T) {
	state := freshState()
	state.NextNonce = 5
	asOf := bridgetypes.NockHash{0xAA}
	name := bridgetypes.Name{First: bridgetypes.NockHash{0x01}}
	dest := bridgetypes.EvmAddr{0xBB}
	dep := bridgetypes.Deposit{TxID: bridgetypes.NockHash{0x02}, Name: name, Dest: &dest, AmountToMint: 10}

	// Not found yet: soft None.
	require.Equal(t, ProposedDepositNone, PeekProposedDeposit(state, dep.TxID, asOf, name, dest, 10, 1))

	state.HashState.UnsettledDeposits.Put(asOf, name, dep)

	// Matches: True.
	require.Equal(t, ProposedDepositTrue, PeekProposedDeposit(state, dep.TxID, asOf, name, dest, 10, 1))

	// Nonce too high: False.
	require.Equal(t, ProposedDepositFalse, PeekProposedDeposit(state, dep.TxID, asOf, name, dest, 10, 5))

	// Amount mismatch: False.
	require.Equal(t, ProposedDepositFalse, PeekProposedDeposit(state, dep.TxID, asOf, name, dest, 999, 1))

	// Already proposed: double-proposal False, takes precedence over match.
	state.HashState.UnconfirmedSettledDeposits.Put(asOf, name, dep)
	require.Equal(t, ProposedDepositFalse, PeekProposedDeposit(state, dep.TxID, asOf, name, dest, 10, 1))
}

func TestPeekHoldSatisfied(t *testing.T) {
	state := freshState()
	require.False(t, PeekBaseHoldSatisfied(state))

	nockBlockHash := bridgetypes.NockHash{0xCC}
	state.HashState.NockHashchain[nockBlockHash] = bridgetypes.NockBlock{BlockID: nockBlockHash}
	state.HashState.BaseHold = &bridgetypes.Hold{Hash: [32]byte(nockBlockHash)}

	require.True(t, PeekBaseHoldSatisfied(state))
}
