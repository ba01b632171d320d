// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridgetypes

// Effect is the sum type the dispatcher and advancers emit, per spec §6:
// Stop, ProposeBaseCall, BaseCall, NockchainTx, GrpcPeek, GrpcCall.
type Effect interface {
	isEffect()
}

// StopEffect is terminal: it carries the human-readable reason plus the
// last-known-good checkpoint of both chains.
type StopEffect struct {
	Reason string
	Last   StopInfo
}

func (StopEffect) isEffect() {}

// ProposeBaseCallEffect broadcasts a batch of signature requests to peers
// for independent vetting and signing. The kernel never aggregates or
// submits signatures itself (spec §1 non-goals).
type ProposeBaseCallEffect struct {
	Requests []SignatureRequest
}

func (ProposeBaseCallEffect) isEffect() {}

// BaseCallEffect is a submit-ready Base call: aggregated signatures plus
// call data, handed to the driver for on-chain submission.
type BaseCallEffect struct {
	Sigs []byte
	Data []byte
}

func (BaseCallEffect) isEffect() {}

// NockchainTxEffect is a submit-ready Nock transaction.
type NockchainTxEffect struct {
	Tx []byte
}

func (NockchainTxEffect) isEffect() {}

// GrpcPeekEffect asks the host to perform a read-only peek against another
// process.
type GrpcPeekEffect struct {
	PID  string
	Type string
	Path string
}

func (GrpcPeekEffect) isEffect() {}

// GrpcCallEffect asks the host to perform a gRPC call.
type GrpcCallEffect struct {
	IP     string
	Method string
	Data   []byte
}

func (GrpcCallEffect) isEffect() {}
