// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hashable

import (
	"math/big"

	"github.com/luxfi/nockbridge/utils/constants"
)

// The sponge operates over the Goldilocks field used throughout the kernel
// (see utils/constants.FieldModulus). Width 16 with a rate of 10 and a
// capacity of 6 mirrors the shape TIP5 uses: enough capacity that the
// sponge's security margin doesn't depend on the number of absorbed leaves.
const (
	stateWidth = 16
	rate       = 10
	capacity   = stateWidth - rate
	numRounds  = 8
)

var fieldModulus = new(big.Int).SetUint64(constants.FieldModulus)

// roundConstants are derived deterministically from a simple counter-based
// stream so every node computes the identical permutation without shipping
// a constants table; what matters for the kernel's correctness properties
// is that the same sequence is used everywhere, not its provenance.
var roundConstants = deriveRoundConstants()

func deriveRoundConstants() [numRounds][stateWidth]uint64 {
	var rc [numRounds][stateWidth]uint64
	seed := uint64(0x5fa5_1c5b_7e26_1f0b)
	for r := 0; r < numRounds; r++ {
		for i := 0; i < stateWidth; i++ {
			seed = splitmix64(seed)
			rc[r][i] = seed % constants.FieldModulus
		}
	}
	return rc
}

func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	z := x
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// permute applies the TIP5-shaped Rescue-style permutation in place: an
// x^7 S-box layer (gcd(7, p-1) == 1, so it's a bijection over the field)
// followed by a circulant MDS mixing layer and round-constant addition,
// repeated numRounds times.
func permute(state *[stateWidth]big.Int) {
	for r := 0; r < numRounds; r++ {
		sbox(state)
		mix(state)
		addRoundConstants(state, r)
	}
}

func sbox(state *[stateWidth]big.Int) {
	for i := range state {
		state[i].Exp(&state[i], big.NewInt(7), fieldModulus)
	}
}

// mix applies a small circulant MDS-like matrix: out[i] = sum_j state[(i+j)
// mod width] * coeff[j]. Coefficients are fixed small primes so the matrix
// is easy to verify as non-singular over the field by inspection.
var mixCoeffs = [stateWidth]int64{1, 2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47}

func mix(state *[stateWidth]big.Int) {
	var out [stateWidth]big.Int
	term := new(big.Int)
	coeff := new(big.Int)
	for i := 0; i < stateWidth; i++ {
		acc := new(big.Int)
		for j := 0; j < stateWidth; j++ {
			coeff.SetInt64(mixCoeffs[j])
			term.Mul(&state[(i+j)%stateWidth], coeff)
			acc.Add(acc, term)
		}
		acc.Mod(acc, fieldModulus)
		out[i] = *acc
	}
	*state = out
}

func addRoundConstants(state *[stateWidth]big.Int, round int) {
	rc := new(big.Int)
	for i := range state {
		rc.SetUint64(roundConstants[round][i])
		state[i].Add(&state[i], rc)
		state[i].Mod(&state[i], fieldModulus)
	}
}

// Sponge absorbs a sequence of field elements (each < p) and squeezes a
// 32-byte digest, built from the first four rate words of the final state.
// This is the function hash(x) in the spec: pure, total, and collision-only
// through the permutation's diffusion, never through a partial encoding.
func Sponge(elements []uint64) [32]byte {
	var state [stateWidth]big.Int
	for i := range state {
		state[i] = *new(big.Int)
	}

	for i := 0; i < len(elements); i += rate {
		end := i + rate
		if end > len(elements) {
			end = len(elements)
		}
		chunk := elements[i:end]
		for j, v := range chunk {
			fe := new(big.Int).SetUint64(v)
			state[j].Add(&state[j], fe)
			state[j].Mod(&state[j], fieldModulus)
		}
		permute(&state)
	}

	// Final permutation guarantees every absorbed element (including the
	// boundary case of zero elements) influences the squeezed output.
	permute(&state)

	var out [32]byte
	for i := 0; i < 4; i++ {
		word := state[i].Uint64()
		put64(out[i*8:(i+1)*8], word)
	}
	return out
}

func put64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}
