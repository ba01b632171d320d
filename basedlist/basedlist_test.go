// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package basedlist

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromAtomZero(t *testing.T) {
	l := FromAtom(new(big.Int))
	require.Equal(t, List{0}, l)
}

func TestRoundTrip(t *testing.T) {
	values := []string{
		"0",
		"1",
		"18446744069414584320", // p - 1
		"18446744069414584321", // p
		"18446744069414584322", // p + 1
		"340282366920938463463374607431768211455", // 2^128 - 1
	}

	for _, v := range values {
		n, ok := new(big.Int).SetString(v, 10)
		require.True(t, ok)

		l := FromAtom(n)
		require.True(t, l.Valid())
		require.Equal(t, n, l.ToAtom())
	}
}

func TestEvmAddrRoundTrip(t *testing.T) {
	var addr [20]byte
	for i := range addr {
		addr[i] = byte(i * 7)
	}

	l, err := EvmToBased(addr)
	require.NoError(t, err)
	require.Len(t, l, 3)
	require.True(t, l.Valid())

	back, err := BasedToEvm(l)
	require.NoError(t, err)
	require.Equal(t, addr, back)
}

func TestEvmAddrZero(t *testing.T) {
	var addr [20]byte
	l, err := EvmToBased(addr)
	require.NoError(t, err)
	back, err := BasedToEvm(l)
	require.NoError(t, err)
	require.Equal(t, addr, back)
}
