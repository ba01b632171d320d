// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sigrequest

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/nockbridge/bridgetypes"
)

func sampleRequest() bridgetypes.SignatureRequest {
	var txID, first, last, asOf bridgetypes.NockHash
	txID[0] = 1
	first[0] = 2
	last[0] = 3
	asOf[0] = 4
	return bridgetypes.SignatureRequest{
		TxID:        txID,
		Name:        bridgetypes.Name{First: first, Last: last},
		Recipient:   bridgetypes.EvmAddr{0xAB},
		Amount:      big.NewInt(12345),
		BlockHeight: 42,
		AsOf:        asOf,
		Nonce:       7,
	}
}

func TestPreimageDeterministic(t *testing.T) {
	sr := sampleRequest()
	a, err := Preimage(sr)
	require.NoError(t, err)
	b, err := Preimage(sr)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestPreimageIgnoresNonce(t *testing.T) {
	sr1 := sampleRequest()
	sr2 := sampleRequest()
	sr2.Nonce = 999

	a, err := Preimage(sr1)
	require.NoError(t, err)
	b, err := Preimage(sr2)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestPreimageSensitiveToAmount(t *testing.T) {
	sr1 := sampleRequest()
	sr2 := sampleRequest()
	sr2.Amount = big.NewInt(1)

	a, err := Preimage(sr1)
	require.NoError(t, err)
	b, err := Preimage(sr2)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
