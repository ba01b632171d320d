// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package nockchain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/nockbridge/basedlist"
	"github.com/luxfi/nockbridge/bridgetypes"
	"github.com/luxfi/nockbridge/config"
	mathutil "github.com/luxfi/nockbridge/utils/math"
)

var lockRoot = bridgetypes.NockHash{0xAB}

func freshState() *bridgetypes.BridgeState {
	return &bridgetypes.BridgeState{
		Constants:      config.DefaultBridgeConstants(),
		HashState:      bridgetypes.NewHashState(),
		NextNonce:      1,
		BridgeLockRoot: lockRoot,
	}
}

// encodeBridgeEntry builds the wire shape decodeBridgeEntry expects:
// version byte + 3 big-endian 8-byte based-list chunks.
func encodeBridgeEntry(t *testing.T, addr bridgetypes.EvmAddr) []byte {
	t.Helper()
	chunks, err := basedlist.EvmToBased([20]byte(addr))
	require.NoError(t, err)
	out := make([]byte, bridgeEntryLen)
	for i, c := range chunks {
		for j := 0; j < 8; j++ {
			out[1+i*8+j] = byte(c >> (8 * (7 - j)))
		}
	}
	return out
}

func depositTx(t *testing.T, assets uint64, bridgeEntry []byte) bridgetypes.Tx {
	t.Helper()
	noteData := bridgetypes.NoteData{}
	if bridgeEntry != nil {
		noteData[bridgeEntryKey] = bridgeEntry
	}
	return bridgetypes.Tx{
		ID:      bridgetypes.NockHash{0x01},
		Version: 1,
		Outputs: []bridgetypes.NockOutput{
			{
				FirstName: bridgetypes.Name{First: lockRoot},
				Assets:    assets,
				NoteData:  noteData,
			},
		},
	}
}

func TestHappyDeposit(t *testing.T) {
	state := freshState()
	assets := state.Constants.MinimumEventNocks * state.Constants.NicksPerNock
	addr := bridgetypes.EvmAddr{0xCD}
	tx := depositTx(t, assets, encodeBridgeEntry(t, addr))

	block := bridgetypes.Block{
		Version: 1,
		Height:  0,
		TxIDs:   []bridgetypes.NockHash{tx.ID},
	}
	txs := map[bridgetypes.NockHash]bridgetypes.Tx{tx.ID: tx}

	effects, next, err := Advance(state, block, txs, nil)
	require.NoError(t, err)
	require.Len(t, effects, 1)

	propose, ok := effects[0].(bridgetypes.ProposeBaseCallEffect)
	require.True(t, ok)
	require.Len(t, propose.Requests, 1)
	require.Equal(t, uint64(1), propose.Requests[0].Nonce)

	fee, err := mathutil.CeilDiv64(assets, state.Constants.NicksPerNock)
	require.NoError(t, err)
	fee *= state.Constants.NicksFeePerNock
	require.Equal(t, assets-fee, propose.Requests[0].Amount.Uint64())

	require.Equal(t, uint64(2), next.NextNonce)
	name := bridgetypes.Name{First: lockRoot}
	require.True(t, next.HashState.UnconfirmedSettledDeposits.Has(next.LastBlock.BlockID, name))
	require.False(t, next.HashState.UnsettledDeposits.Has(next.LastBlock.BlockID, name))
}

func TestMalformedRecipient(t *testing.T) {
	state := freshState()
	assets := state.Constants.MinimumEventNocks * state.Constants.NicksPerNock
	tx := depositTx(t, assets, []byte{0xFF, 0xFF}) // wrong length, not a valid entry

	block := bridgetypes.Block{
		Version: 1,
		Height:  0,
		TxIDs:   []bridgetypes.NockHash{tx.ID},
	}
	txs := map[bridgetypes.NockHash]bridgetypes.Tx{tx.ID: tx}

	effects, next, err := Advance(state, block, txs, nil)
	require.NoError(t, err)
	require.Empty(t, effects)
	require.Equal(t, uint64(1), next.NextNonce)

	name := bridgetypes.Name{First: lockRoot}
	dep, ok := next.HashState.UnsettledDeposits.Get(next.LastBlock.BlockID, name)
	require.True(t, ok)
	require.Nil(t, dep.Dest)
}

func TestReorg(t *testing.T) {
	state := freshState()

	block1 := bridgetypes.Block{Version: 1, Height: 0, TxIDs: nil}
	_, state, err := Advance(state, block1, map[bridgetypes.NockHash]bridgetypes.Tx{}, nil)
	require.NoError(t, err)

	block2 := bridgetypes.Block{Version: 1, Height: 1, Prev: state.HashState.LastNockBlock}
	_, state, err = Advance(state, block2, map[bridgetypes.NockHash]bridgetypes.Tx{}, nil)
	require.NoError(t, err)

	before := state
	block3 := bridgetypes.Block{Version: 1, Height: 2, Prev: bridgetypes.NockHash{0xDE, 0xAD}}
	_, _, err = Advance(state, block3, map[bridgetypes.NockHash]bridgetypes.Tx{}, nil)
	require.ErrorIs(t, err, ErrReorg)
	require.Equal(t, before.HashState.LastNockBlock, state.HashState.LastNockBlock)
}

func TestWithdrawalRejection(t *testing.T) {
	state := freshState()
	tx := bridgetypes.Tx{
		ID:         bridgetypes.NockHash{0x02},
		Version:    1,
		SpentNames: []bridgetypes.Name{{First: lockRoot}},
		Outputs: []bridgetypes.NockOutput{
			{
				NoteData: bridgetypes.NoteData{
					baBlkKey: []byte{1},
					baEidKey: []byte{2},
				},
			},
		},
	}
	block := bridgetypes.Block{
		Version: 1,
		Height:  0,
		TxIDs:   []bridgetypes.NockHash{tx.ID},
	}
	txs := map[bridgetypes.NockHash]bridgetypes.Tx{tx.ID: tx}

	_, _, err := Advance(state, block, txs, nil)
	require.ErrorIs(t, err, ErrWithdrawalDetected)
}

func TestV0Ignored(t *testing.T) {
	state := freshState()
	block := bridgetypes.Block{Version: 0, Height: 0}
	effects, next, err := Advance(state, block, map[bridgetypes.NockHash]bridgetypes.Tx{}, nil)
	require.NoError(t, err)
	require.Nil(t, effects)
	require.Same(t, state, next)
}

func TestWrongHeightStops(t *testing.T) {
	state := freshState()
	block := bridgetypes.Block{Version: 1, Height: 5}
	_, _, err := Advance(state, block, map[bridgetypes.NockHash]bridgetypes.Tx{}, nil)
	require.ErrorIs(t, err, ErrWrongHeight)
}

func TestTxIDsMismatchStops(t *testing.T) {
	state := freshState()
	block := bridgetypes.Block{
		Version: 1,
		Height:  0,
		TxIDs:   []bridgetypes.NockHash{{0x01}},
	}
	_, _, err := Advance(state, block, map[bridgetypes.NockHash]bridgetypes.Tx{}, nil)
	require.ErrorIs(t, err, ErrTxIDsMismatch)
}

func TestBelowMinimumSkipped(t *testing.T) {
	state := freshState()
	tx := depositTx(t, state.Constants.NicksPerNock, encodeBridgeEntry(t, bridgetypes.EvmAddr{0x01}))
	block := bridgetypes.Block{
		Version: 1,
		Height:  0,
		TxIDs:   []bridgetypes.NockHash{tx.ID},
	}
	txs := map[bridgetypes.NockHash]bridgetypes.Tx{tx.ID: tx}

	effects, next, err := Advance(state, block, txs, nil)
	require.NoError(t, err)
	require.Empty(t, effects)
	require.Equal(t, 0, next.HashState.UnsettledDeposits.Count())
}
