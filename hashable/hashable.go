// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hashable produces the canonical recursive tree the spec calls
// Hashable ::= Leaf(atom) | Hash(digest) | Tuple(list<Hashable>), and hashes
// it with a TIP5-shaped sponge (see tip5.go). Every domain struct in
// bridgetypes implements Encode() Hashable with a fixed field order so that
// hash(x) == hash(y) iff the two structs are canonically identical.
package hashable

import (
	"errors"
	"sort"

	"github.com/luxfi/nockbridge/basedlist"
	"github.com/luxfi/nockbridge/utils/constants"
)

// ErrLeafOutOfRange is returned when a caller tries to construct a Leaf from
// a value that is not strictly less than the field modulus; wide atoms must
// be routed through the based-list codec first (see basedlist.FromAtom).
var ErrLeafOutOfRange = errors.New("hashable: leaf value is not < field modulus")

type kind int

const (
	kindLeaf kind = iota
	kindHash
	kindTuple
)

// Node is one node of a Hashable tree.
type Node struct {
	kind     kind
	leaf     uint64
	digest   [32]byte
	children []Node
}

// Leaf wraps a single field element. It panics if v >= p, since every
// Leaf-producing call site in this module is expected to have already
// reduced its input via the based-list codec; a leaf this large indicates a
// programming error, not untrusted input.
func Leaf(v uint64) Node {
	if v >= constants.FieldModulus {
		panic(ErrLeafOutOfRange)
	}
	return Node{kind: kindLeaf, leaf: v}
}

// LeafBool encodes a boolean as the canonical 0/1 leaf.
func LeafBool(b bool) Node {
	if b {
		return Leaf(1)
	}
	return Leaf(0)
}

// HashDigest wraps a precomputed 32-byte digest (e.g. a previously hashed
// sub-structure, or block identity embedded inside a larger struct).
func HashDigest(d [32]byte) Node {
	return Node{kind: kindHash, digest: d}
}

// Tuple wraps an ordered list of child nodes. Field order within a Tuple is
// always the struct's declared order — callers must not reorder fields
// between encode calls, since that would change the hash.
func Tuple(children ...Node) Node {
	return Node{kind: kindTuple, children: children}
}

// Bytes32 encodes a 32-byte digest as two 64-bit leaves followed by another
// two, i.e. a Tuple of four Leaf nodes. Used for embedding a NockHash or
// BaseHash (which are themselves 32-byte digests) as hashable leaves rather
// than as an opaque Hash node, when the spec calls for the bytes to
// participate directly in a new hash's preimage.
func Bytes32(b [32]byte) Node {
	return Tuple(
		Leaf(beUint64(b[0:8])),
		Leaf(beUint64(b[8:16])),
		Leaf(beUint64(b[16:24])),
		Leaf(beUint64(b[24:32])),
	)
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, by := range b {
		v = v<<8 | uint64(by)
	}
	// A big-endian 64-bit word can exceed the field modulus; such a word is
	// reduced mod p so the leaf is always valid (two words that differ by
	// exactly p therefore encode to the same leaf). For digest bytes
	// produced by Hash (already < p per word by construction of Sponge) this
	// is a no-op; it keeps Bytes32 safe to call on arbitrary 32-byte values.
	if v >= constants.FieldModulus {
		v %= constants.FieldModulus
	}
	return v
}

// BasedList encodes a based-list.List as a Tuple of Leaf nodes, one per
// chunk, preceded by nothing — the chunk count is implicit in the Tuple's
// own length, which the Tuple encoding frames explicitly.
func BasedList(l basedlist.List) Node {
	children := make([]Node, len(l))
	for i, chunk := range l {
		children[i] = Leaf(chunk)
	}
	return Tuple(children...)
}

// Encoder is implemented by every domain struct that participates in
// hashing (NockBlock, BaseBlockBatch, Deposit, ...).
type Encoder interface {
	Encode() Node
}

// MapEntries sorts (k, v) pairs under the supplied comparator and returns a
// Tuple of Tuple(key, value) — the tap-order the spec requires: "recommended
// choice: key-ascending under the same total order the map uses internally."
// Every map-valued field hashed by this package must go through MapEntries
// so two nodes holding the same logical map always produce the same tree.
func MapEntries[K comparable, V any](m map[K]V, less func(a, b K) bool, encodeKey func(K) Node, encodeValue func(V) Node) Node {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })

	entries := make([]Node, len(keys))
	for i, k := range keys {
		entries[i] = Tuple(encodeKey(k), encodeValue(m[k]))
	}
	return Tuple(entries...)
}

// Hash is the canonical TIP5(canonical encoding) the spec refers to
// throughout: it packs the tree with a Packer-style tagged encoding and
// sponges the resulting field-element stream. Two Hashable trees encode to
// the same byte string iff they are structurally identical, and Sponge is
// total, so Hash(x) == Hash(y) iff canonical(x) == canonical(y).
func Hash(n Node) [32]byte {
	var elements []uint64
	flatten(n, &elements)
	return Sponge(elements)
}

// flatten linearizes a Hashable tree into the field-element stream the
// sponge absorbs. Each node is preceded by a small tag so that a Leaf, a
// Hash digest, and an empty Tuple can never collide in the stream even
// though all three might otherwise encode to similar-looking element runs.
func flatten(n Node, out *[]uint64) {
	switch n.kind {
	case kindLeaf:
		*out = append(*out, uint64(kindLeaf), n.leaf)
	case kindHash:
		*out = append(*out, uint64(kindHash))
		for i := 0; i < 32; i += 8 {
			*out = append(*out, beUint64(n.digest[i:i+8]))
		}
	case kindTuple:
		*out = append(*out, uint64(kindTuple), uint64(len(n.children)))
		for _, c := range n.children {
			flatten(c, out)
		}
	}
}
