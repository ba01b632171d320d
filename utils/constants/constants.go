// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package constants holds the handful of protocol-wide numeric constants the
// kernel treats as fixed rather than as admin-configurable BridgeConstants.
package constants

// FieldModulus is p = 2^64 - 2^32 + 1, the Oxfoi/Goldilocks prime the
// based-list codec and the TIP5 sponge both operate over. Every leaf passed
// into the hasher, and every chunk produced by the based-list codec, must be
// strictly less than this value.
const FieldModulus uint64 = 18446744069414584321

// Domain tags distinguish a NockHash from a BaseHash even when the
// underlying 32 bytes collide; they are mixed into the sponge state before
// any struct fields so hash(x) on one chain can never equal hash(y) on the
// other by coincidence.
const (
	DomainNockBlock      byte = 0x01
	DomainBaseBlockBatch byte = 0x02
)

// EvmAddrBasedChunks is the number of field-element chunks a 20-byte EVM
// address occupies in based-list form: 160 bits fit in 3*floor(log2(p))
// bits (p is just under 2^64), so three chunks are always sufficient and
// the codec treats any address needing a fourth as a bug.
const EvmAddrBasedChunks = 3
