// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridgetypes

import "github.com/luxfi/nockbridge/config"

// Cause is the sum type the dispatcher routes, per spec §6: CfgLoad,
// SetConstants, Stop, Start, BaseBlocks, NockchainBlock, ProposedBaseCall,
// ProposedNockTx. Each variant is a distinct struct rather than a single
// interface{} + type switch, matching the module's general preference for
// small typed structs.
type Cause interface {
	isCause()
}

// CfgLoad optionally replaces the node configuration.
type CfgLoad struct {
	Config *config.NodeConfig
}

func (CfgLoad) isCause() {}

// SetConstants submits an admin parameter update for validation.
type SetConstants struct {
	Constants config.BridgeConstants
}

func (SetConstants) isCause() {}

// StopCause forcibly sets state.Stop from the supplied payload. Named
// StopCause rather than Stop to avoid colliding with bridgetypes.StopInfo
// and the StopEffect in effects.go.
type StopCause struct {
	Info StopInfo
}

func (StopCause) isCause() {}

// Start clears state.Stop only; it does not clear a pending hold.
type Start struct{}

func (Start) isCause() {}

// BaseBlocks delivers one full chunk of Base blocks.
type BaseBlocks struct {
	Blocks []RawBaseBlock
}

func (BaseBlocks) isCause() {}

// NockchainBlock delivers one Nock block plus the full transactions it
// references.
type NockchainBlock struct {
	Block Block
	Txs   map[NockHash]Tx
}

func (NockchainBlock) isCause() {}

// ProposedBaseCall delivers a peer's proposed signature-request batch for
// vetting.
type ProposedBaseCall struct {
	Requests []SignatureRequest
}

func (ProposedBaseCall) isCause() {}

// ProposedNockTx is a placeholder cause that always aborts (spec §9 OQ3):
// the withdrawal gate stays closed, so no RawTx parsing is ever attempted.
type ProposedNockTx struct {
	RawTx []byte
}

func (ProposedNockTx) isCause() {}
