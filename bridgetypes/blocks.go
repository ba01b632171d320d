// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridgetypes

import (
	"github.com/luxfi/nockbridge/hashable"
	"github.com/luxfi/nockbridge/utils/constants"
)

// NoteData holds the raw entries a Nock output note carries — the kernel
// only ever looks for a handful of well-known keys ("bridge", "ba-blk",
// "ba-eid") and treats everything else as opaque.
type NoteData map[string][]byte

// NockOutput is one output note of a Nock transaction.
type NockOutput struct {
	FirstName Name
	Assets    uint64
	NoteData  NoteData
}

// HasEntry reports whether the output carries the named note-data entry.
func (o NockOutput) HasEntry(key string) bool {
	_, ok := o.NoteData[key]
	return ok
}

// Tx is a Nock transaction as observed by the advancer: enough of its shape
// to run the bridge-deposit and bridge-withdrawal tests (spec §4.4 step 6),
// not a full UTXO model.
type Tx struct {
	ID         NockHash
	Version    uint8
	Outputs    []NockOutput
	SpentNames []Name
}

const nockVersion1 uint8 = 1

// IsV1 reports whether the transaction is a V1 transaction, the only
// version the bridge-deposit/withdrawal tests apply to.
func (t Tx) IsV1() bool { return t.Version == nockVersion1 }

// Block is the raw V1/V0 Nock block the driver hands to the advancer,
// before it becomes a canonical NockBlock record.
type Block struct {
	Version uint8
	Height  uint64
	Prev    NockHash
	TxIDs   []NockHash
}

// IsV0 mirrors Block.Version's meaning for readability at call sites.
func (b Block) IsV0() bool { return b.Version == 0 }

// NockBlock is the canonical record appended to the hashchain once a raw
// Block has been validated and its bridge-relevant transactions extracted.
type NockBlock struct {
	Height                 uint64
	BlockID                NockHash
	Deposits               map[Name]Deposit
	WithdrawalSettlements  map[Name]WithdrawalSettlement
	Prev                   NockHash
}

// Encode produces the canonical Hashable tree used to compute the block's
// structural hash (the "as_of" identity the spec requires in every
// signature request). BlockID is not part of the encoding.
func (b NockBlock) Encode() hashable.Node {
	depositEntries := hashable.MapEntries(b.Deposits, Name.Less,
		func(n Name) hashable.Node { return n.Encode() },
		func(d Deposit) hashable.Node { return d.Encode() },
	)
	settlementEntries := hashable.MapEntries(b.WithdrawalSettlements, Name.Less,
		func(n Name) hashable.Node { return n.Encode() },
		func(s WithdrawalSettlement) hashable.Node { return s.Encode() },
	)
	return hashable.Tuple(
		hashable.Leaf(uint64(constants.DomainNockBlock)),
		hashable.Leaf(b.Height),
		depositEntries,
		settlementEntries,
		b.Prev.Encode(),
	)
}

// Hash returns the block's structural hash, i.e. TIP5(canonical encoding).
func (b NockBlock) Hash() NockHash {
	return NockHash(hashable.Hash(b.Encode()))
}

// BatchBlock is one height's worth of Base block identity inside a batch.
type BatchBlock struct {
	BID    BaseBlockId
	Parent BaseBlockId
}

// BaseEvent is the sum type for the three kinds of events a Base batch can
// carry; exactly one of the three typed fields is meaningful per instance,
// discriminated by Kind.
type BaseEventKind int

const (
	BaseEventDepositProcessed BaseEventKind = iota
	BaseEventBridgeNodeUpdated
	BaseEventBurnForWithdrawal
)

// BaseEvent wraps one raw Base transaction event as the advancer receives
// it, before it is partitioned into Withdrawals/DepositSettlements.
type BaseEvent struct {
	Kind       BaseEventKind
	EventID    BaseEventId
	Settlement DepositSettlement
	Withdrawal Withdrawal
}

// RawBaseBlock is one element of the raw batch the driver delivers, prior
// to encoding into a BaseBlockBatch.
type RawBaseBlock struct {
	Height   uint64
	BID      BaseBlockId
	Parent   BaseBlockId
	Events   []BaseEvent
}

// BaseBlockBatch is the canonical record appended to the Base hashchain.
type BaseBlockBatch struct {
	FirstHeight        uint64
	LastHeight         uint64
	Blocks             map[uint64]BatchBlock
	Withdrawals        map[string]Withdrawal // keyed by BasedListKey(EventID)
	DepositSettlements map[string]DepositSettlement
	Prev               BaseHash
}

// Encode produces the canonical Hashable tree for the batch's structural
// hash.
func (b BaseBlockBatch) Encode() hashable.Node {
	blockEntries := hashable.MapEntries(b.Blocks, func(a, c uint64) bool { return a < c },
		func(h uint64) hashable.Node { return hashable.Leaf(h) },
		func(bb BatchBlock) hashable.Node {
			return hashable.Tuple(hashable.BasedList(bb.BID), hashable.BasedList(bb.Parent))
		},
	)
	withdrawalEntries := hashable.MapEntries(b.Withdrawals, stringLess,
		func(k string) hashable.Node { return stringKeyNode(k) },
		func(w Withdrawal) hashable.Node { return w.Encode() },
	)
	settlementEntries := hashable.MapEntries(b.DepositSettlements, stringLess,
		func(k string) hashable.Node { return stringKeyNode(k) },
		func(s DepositSettlement) hashable.Node { return s.Encode() },
	)
	return hashable.Tuple(
		hashable.Leaf(uint64(constants.DomainBaseBlockBatch)),
		hashable.Leaf(b.FirstHeight),
		hashable.Leaf(b.LastHeight),
		blockEntries,
		withdrawalEntries,
		settlementEntries,
		b.Prev.Encode(),
	)
}

// Hash returns the batch's structural hash.
func (b BaseBlockBatch) Hash() BaseHash {
	return BaseHash(hashable.Hash(b.Encode()))
}

func stringLess(a, b string) bool { return a < b }

func stringKeyNode(s string) hashable.Node {
	children := make([]hashable.Node, 0, len(s))
	for i := 0; i < len(s); i++ {
		children = append(children, hashable.Leaf(uint64(s[i])))
	}
	return hashable.Tuple(children...)
}
