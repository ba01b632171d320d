// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package persistence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/nockbridge/bridgetypes"
	"github.com/luxfi/nockbridge/config"
)

type memBatch struct {
	db  *memDB
	ops []func(*memDB)
}

func (b *memBatch) Put(key, value []byte) error {
	k, v := append([]byte(nil), key...), append([]byte(nil), value...)
	b.ops = append(b.ops, func(d *memDB) { d.m[string(k)] = v })
	return nil
}

func (b *memBatch) Delete(key []byte) error {
	k := append([]byte(nil), key...)
	b.ops = append(b.ops, func(d *memDB) { delete(d.m, string(k)) })
	return nil
}

func (b *memBatch) Size() int { return len(b.ops) }

func (b *memBatch) Write() error {
	for _, op := range b.ops {
		op(b.db)
	}
	return nil
}

func (b *memBatch) Reset() { b.ops = nil }

func (b *memBatch) Replay(w Writer) error { return nil }

type memDB struct {
	m map[string][]byte
}

func newMemDB() *memDB { return &memDB{m: make(map[string][]byte)} }

func (d *memDB) Has(key []byte) (bool, error) {
	_, ok := d.m[string(key)]
	return ok, nil
}

func (d *memDB) Get(key []byte) ([]byte, error) {
	v, ok := d.m[string(key)]
	if !ok {
		return nil, errors.New("not found")
	}
	return v, nil
}

func (d *memDB) Put(key, value []byte) error {
	d.m[string(key)] = append([]byte(nil), value...)
	return nil
}

func (d *memDB) Delete(key []byte) error {
	delete(d.m, string(key))
	return nil
}

func (d *memDB) NewBatch() Batch { return &memBatch{db: d} }

func (d *memDB) Close() error { return nil }

func sampleState() *bridgetypes.BridgeState {
	s := &bridgetypes.BridgeState{
		Config:    config.NodeConfig{},
		Constants: config.DefaultBridgeConstants(),
		HashState: bridgetypes.NewHashState(),
		NextNonce: 1,
	}
	var nockHash bridgetypes.NockHash
	nockHash[0] = 0xAA
	deposit := bridgetypes.Deposit{
		TxID:         nockHash,
		Name:         bridgetypes.Name{First: nockHash},
		AmountToMint: 100,
		Fee:          5,
	}
	s.HashState.UnsettledDeposits.Put(nockHash, deposit.Name, deposit)
	s.HashState.NockHashchain[nockHash] = bridgetypes.NockBlock{
		Height:  1,
		BlockID: nockHash,
		Deposits: map[bridgetypes.Name]bridgetypes.Deposit{
			deposit.Name: deposit,
		},
		WithdrawalSettlements: map[bridgetypes.Name]bridgetypes.WithdrawalSettlement{},
	}
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := newMemDB()
	want := sampleState()

	require.NoError(t, SaveState(db, want))
	got, err := LoadState(db)
	require.NoError(t, err)

	require.Equal(t, want.NextNonce, got.NextNonce)
	require.Equal(t, want.Constants, got.Constants)
	require.Equal(t, want.HashState.UnsettledDeposits.Count(), got.HashState.UnsettledDeposits.Count())

	var nockHash bridgetypes.NockHash
	nockHash[0] = 0xAA
	wantDep, ok := want.HashState.UnsettledDeposits.Get(nockHash, bridgetypes.Name{First: nockHash})
	require.True(t, ok)
	gotDep, ok := got.HashState.UnsettledDeposits.Get(nockHash, bridgetypes.Name{First: nockHash})
	require.True(t, ok)
	require.Equal(t, wantDep.AmountToMint, gotDep.AmountToMint)
}

func TestSaveLoadByteIdentical(t *testing.T) {
	db := newMemDB()
	want := sampleState()

	require.NoError(t, SaveState(db, want))
	first, err := db.Get(stateKey)
	require.NoError(t, err)

	got, err := LoadState(db)
	require.NoError(t, err)
	require.NoError(t, SaveState(db, got))
	second, err := db.Get(stateKey)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestLoadStateRejectsUnknownVersion(t *testing.T) {
	db := newMemDB()
	require.NoError(t, SaveState(db, sampleState()))

	raw, err := db.Get(stateKey)
	require.NoError(t, err)
	corrupted := append([]byte{0xFF}, raw[1:]...)
	require.NoError(t, db.Put(stateKey, corrupted))

	_, err = LoadState(db)
	require.Error(t, err)
}
