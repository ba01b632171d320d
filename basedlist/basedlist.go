// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package basedlist implements the lossless radix-p little-endian encoding
// the kernel uses whenever an arbitrary-width integer must become a
// sequence of field elements safe to feed into the TIP5 sponge or to use as
// a map key. p = 2^64 - 2^32 + 1 (see utils/constants.FieldModulus); every
// element of a List is guaranteed < p.
package basedlist

import (
	"errors"
	"math/big"

	"github.com/luxfi/nockbridge/utils/constants"
)

// ErrChunkOutOfRange names a chunk that is not < p and therefore cannot be a
// valid based-list element. No function in this package returns it; Valid
// reports the same condition as a bool.
var ErrChunkOutOfRange = errors.New("based-list chunk >= field modulus")

// ErrAddressTooWide is returned by EvmToBased and BasedToEvm when an integer
// does not fit in the fixed width reserved for an EVM address.
var ErrAddressTooWide = errors.New("value does not fit in the requested chunk width")

var modulus = new(big.Int).SetUint64(constants.FieldModulus)

// List is a based (radix-p) representation of an unbounded non-negative
// integer, little-endian: List[0] is the least significant chunk.
type List []uint64

// FromAtom repeatedly divides n by p, emitting remainders, until the
// quotient is zero. FromAtom(0) == [0], never the empty list, so callers can
// always index List[0].
func FromAtom(n *big.Int) List {
	if n.Sign() == 0 {
		return List{0}
	}

	rem := new(big.Int)
	quo := new(big.Int).Set(n)
	var out List
	for quo.Sign() > 0 {
		quo.DivMod(quo, modulus, rem)
		out = append(out, rem.Uint64())
	}
	return out
}

// FromUint64 is a convenience wrapper for the common case of encoding a
// machine-width integer (e.g. a Base block height).
func FromUint64(n uint64) List {
	return FromAtom(new(big.Int).SetUint64(n))
}

// ToAtom computes sum(l[i] * p^i), the inverse of FromAtom.
func (l List) ToAtom() *big.Int {
	out := new(big.Int)
	pow := new(big.Int).SetUint64(1)
	for _, chunk := range l {
		term := new(big.Int).SetUint64(chunk)
		term.Mul(term, pow)
		out.Add(out, term)
		pow.Mul(pow, modulus)
	}
	return out
}

// Valid reports whether every chunk of l is < p, the precondition for using
// l as a hashable leaf or as a ledger map key.
func (l List) Valid() bool {
	for _, chunk := range l {
		if chunk >= constants.FieldModulus {
			return false
		}
	}
	return true
}

// EvmToBased encodes a 20-byte EVM address as exactly
// constants.EvmAddrBasedChunks field elements, left-padding with zero
// chunks so every address round-trips through a fixed-width encoding. It
// fails (asserts the high quotient is zero) if the address somehow does not
// fit, which cannot happen for any real 160-bit value but is checked rather
// than assumed.
func EvmToBased(addr [20]byte) (List, error) {
	n := new(big.Int).SetBytes(addr[:])
	l := FromAtom(n)
	if len(l) > constants.EvmAddrBasedChunks {
		return nil, ErrAddressTooWide
	}
	padded := make(List, constants.EvmAddrBasedChunks)
	copy(padded, l)
	return padded, nil
}

// BasedToEvm is the inverse of EvmToBased. It fails if the decoded integer
// does not fit in 160 bits (a malformed or adversarial input), preserving
// the round-trip property for every valid address.
func BasedToEvm(l List) ([20]byte, error) {
	atom := l.ToAtom()
	var out [20]byte
	b := atom.Bytes()
	if len(b) > 20 {
		return out, ErrAddressTooWide
	}
	copy(out[20-len(b):], b)
	return out, nil
}
