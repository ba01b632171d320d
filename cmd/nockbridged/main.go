// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command nockbridged is a demonstration driver for the bridge kernel: it
// wires config defaults, a persistence round-trip, metrics registration,
// and a single-threaded Dispatch loop reading causes off a Go channel,
// mirroring the teacher's engine-loop pattern of one goroutine draining a
// channel into a sequential processing call. It performs no network I/O —
// that surface (gRPC peeks/calls, Base/Nock RPC) is the host driver's job,
// not the kernel's, per spec §1's non-goals.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/log"

	"github.com/luxfi/nockbridge/bridgetypes"
	"github.com/luxfi/nockbridge/config"
	"github.com/luxfi/nockbridge/dispatcher"
	nblog "github.com/luxfi/nockbridge/log"
	"github.com/luxfi/nockbridge/metrics"
	"github.com/luxfi/nockbridge/persistence"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "nockbridged: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	lg := nblog.NewNoOpLogger()

	// A host that wants to expose these over HTTP points a promhttp handler
	// at the same prometheus.Registry this driver registers them against.
	promReg := prometheus.NewRegistry()
	reg := metrics.NewRegistry(promReg)
	mx := metrics.NewBridgeMetrics(reg)

	db := persistence.NewMemoryDB()
	state, err := loadOrInit(db)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	causes := make(chan bridgetypes.Cause, 64)
	effects := make(chan []bridgetypes.Effect, 64)

	go dispatchLoop(state, causes, effects, lg, mx, db)

	causes <- bridgetypes.SetConstants{Constants: config.DefaultBridgeConstants()}
	causes <- bridgetypes.Start{}
	close(causes)

	for batch := range effects {
		for _, eff := range batch {
			if stop, ok := eff.(bridgetypes.StopEffect); ok {
				fmt.Fprintf(os.Stderr, "nockbridged: stopped: %s\n", stop.Reason)
			}
		}
	}

	return nil
}

// dispatchLoop is the only place in this module a goroutine reads from a
// channel and calls Dispatch: the kernel itself never spawns goroutines or
// suspends mid-cause (spec §5, "single-threaded and event-driven").
func dispatchLoop(
	state *bridgetypes.BridgeState,
	causes <-chan bridgetypes.Cause,
	effects chan<- []bridgetypes.Effect,
	lg log.Logger,
	mx *metrics.BridgeMetrics,
	db persistence.Database,
) {
	defer close(effects)

	current := state
	for cause := range causes {
		out, next := dispatcher.Dispatch(current, cause, lg, mx)
		current = next

		if err := persistence.SaveState(db, current); err != nil {
			out = append(out, bridgetypes.StopEffect{Reason: "persistence save failed: " + err.Error()})
		}
		effects <- out
	}
}

func loadOrInit(db persistence.Database) (*bridgetypes.BridgeState, error) {
	state, err := persistence.LoadState(db)
	if errors.Is(err, persistence.ErrNotFound) {
		return &bridgetypes.BridgeState{
			Constants: config.DefaultBridgeConstants(),
			HashState: bridgetypes.NewHashState(),
			NextNonce: 1,
		}, nil
	}
	return state, err
}
