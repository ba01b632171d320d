// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bridgetypes holds the kernel's core data model: block records,
// deposit/withdrawal records, the hashchain ledger scalars, and the
// cause/effect sum types the dispatcher routes between. Nothing in this
// package performs I/O; every type here is a plain value.
package bridgetypes

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/luxfi/nockbridge/basedlist"
	"github.com/luxfi/nockbridge/hashable"
	"github.com/luxfi/nockbridge/utils/constants"
)

// NockHash is the structural hash of a NockBlock's canonical encoding.
type NockHash [32]byte

// BaseHash is the structural hash of a BaseBlockBatch's canonical encoding.
// Kept as a distinct type from NockHash even though both are bare 32-byte
// digests, so the compiler rejects ever mixing the two chains' hashes up.
type BaseHash [32]byte

// Encode tags the digest with the Nock domain before it participates as a
// leaf in a larger structure, so a NockHash and a BaseHash holding identical
// bytes never collide once embedded in an outer hash.
func (h NockHash) Encode() hashable.Node {
	return hashable.Tuple(hashable.Leaf(uint64(constants.DomainNockBlock)), hashable.Bytes32(h))
}

// Encode tags the digest with the Base domain, mirroring NockHash.Encode.
func (h BaseHash) Encode() hashable.Node {
	return hashable.Tuple(hashable.Leaf(uint64(constants.DomainBaseBlockBatch)), hashable.Bytes32(h))
}

// Name identifies a Nock note: a compound (first, last) key.
type Name struct {
	First NockHash
	Last  NockHash
}

// Less gives the ascending order used for map tap-order wherever a
// map[Name]V is hashed or iterated deterministically.
func (n Name) Less(o Name) bool {
	if n.First != o.First {
		return lessBytes(n.First[:], o.First[:])
	}
	return lessBytes(n.Last[:], o.Last[:])
}

func lessBytes(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func (n Name) Encode() hashable.Node {
	return hashable.Tuple(hashable.Bytes32([32]byte(n.First)), hashable.Bytes32([32]byte(n.Last)))
}

// EvmAddr is the 20-byte address a deposit mints to on Base.
type EvmAddr = common.Address

// EvmAddrFromBased decodes a based-list-encoded address, the form it takes
// inside a Nock note's %bridge entry.
func EvmAddrFromBased(l basedlist.List) (EvmAddr, error) {
	b, err := basedlist.BasedToEvm(l)
	if err != nil {
		return EvmAddr{}, err
	}
	return EvmAddr(b), nil
}

// BaseEventId, BaseTxId and BaseBlockId are all based-list encodings of
// whatever wide integer or hash Base uses as their natural identifier;
// the kernel never assumes they fit in a machine word.
type (
	BaseEventId = basedlist.List
	BaseTxId    = basedlist.List
	BaseBlockId = basedlist.List
)

// BasedListKey derives a stable map/string key for a based-list value,
// used wherever a BaseEventId (or other based-list) needs to be a Go map
// key — basedlist.List is a slice and cannot be a map key directly.
func BasedListKey(l basedlist.List) string {
	b := make([]byte, len(l)*8)
	for i, v := range l {
		for j := 0; j < 8; j++ {
			b[i*8+j] = byte(v >> (8 * j))
		}
	}
	return string(b)
}

// baseListLess orders two based-lists the way their ToAtom() values would
// order, without materializing the big.Int. Nothing in this module calls
// it: Base-side maps are keyed by BasedListKey strings and hashed in
// string order (see BaseBlockBatch.Encode).
func baseListLess(a, b basedlist.List) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	for i := len(a) - 1; i >= 0; i-- {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
