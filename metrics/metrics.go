// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

// BridgeMetrics is the fixed set of gauges/counters the dispatcher updates
// after every cause it does not drop as already stopped: stops_total,
// holds_active, next_nonce,
// nock_blocks_processed_total, base_chunks_processed_total,
// deposits_unsettled, deposits_unconfirmed_settled.
type BridgeMetrics struct {
	StopsTotal                 Counter
	HoldsActive                Gauge
	NextNonce                  Gauge
	NockBlocksProcessedTotal   Counter
	BaseChunksProcessedTotal   Counter
	DepositsUnsettled          Gauge
	DepositsUnconfirmedSettled Gauge
}

// NewBridgeMetrics registers the bridge's named metrics against reg.
func NewBridgeMetrics(reg Registry) *BridgeMetrics {
	return &BridgeMetrics{
		StopsTotal:                 reg.NewCounter("stops_total"),
		HoldsActive:                reg.NewGauge("holds_active"),
		NextNonce:                  reg.NewGauge("next_nonce"),
		NockBlocksProcessedTotal:   reg.NewCounter("nock_blocks_processed_total"),
		BaseChunksProcessedTotal:   reg.NewCounter("base_chunks_processed_total"),
		DepositsUnsettled:          reg.NewGauge("deposits_unsettled"),
		DepositsUnconfirmedSettled: reg.NewGauge("deposits_unconfirmed_settled"),
	}
}
