// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Counter tracks a count
type Counter interface {
	Inc()
	Add(delta int64)
	Read() int64
}

// counter implements Counter, mirroring its value into a registered
// prometheus.Counter whenever the registry was built with a Registerer
// (the teacher's averager does the same dual local-value/prom-collector
// bookkeeping for its own metrics).
type counter struct {
	mu    sync.RWMutex
	value int64
	prom  prometheus.Counter
}

// NewCounter returns a new Counter with no prometheus backing.
func NewCounter() Counter {
	return &counter{}
}

// Inc increments the counter by 1
func (c *counter) Inc() {
	c.Add(1)
}

// Add adds delta to the counter
func (c *counter) Add(delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value += delta
	if c.prom != nil {
		c.prom.Add(float64(delta))
	}
}

// Read returns the current count
func (c *counter) Read() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Gauge tracks a value that can go up or down
type Gauge interface {
	Set(value float64)
	Add(delta float64)
	Read() float64
}

// gauge implements Gauge, mirroring its value into a registered
// prometheus.Gauge whenever the registry was built with a Registerer.
type gauge struct {
	mu    sync.RWMutex
	value float64
	prom  prometheus.Gauge
}

// NewGauge returns a new Gauge with no prometheus backing.
func NewGauge() Gauge {
	return &gauge{}
}

// Set sets the gauge to a specific value
func (g *gauge) Set(value float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = value
	if g.prom != nil {
		g.prom.Set(value)
	}
}

// Add adds delta to the gauge
func (g *gauge) Add(delta float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value += delta
	if g.prom != nil {
		g.prom.Add(delta)
	}
}

// Read returns the current value
func (g *gauge) Read() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.value
}

// Registry is a collection of named counters and gauges, the set
// BridgeMetrics registers its fixed metric names against.
type Registry interface {
	NewCounter(name string) Counter
	NewGauge(name string) Gauge
	GetCounter(name string) (Counter, error)
	GetGauge(name string) (Gauge, error)
}

// registry implements Registry. When built with a non-nil prometheus.Registerer
// every counter/gauge it creates is also registered there, so a host that
// wants to serve /metrics only needs to point a promhttp handler at the same
// Registerer this registry was constructed with.
type registry struct {
	mu       sync.RWMutex
	reg      prometheus.Registerer
	counters map[string]Counter
	gauges   map[string]Gauge
}

// NewRegistry returns a new Registry. reg may be nil, in which case
// counters/gauges are kept in-process only and never exposed to prometheus.
func NewRegistry(reg prometheus.Registerer) Registry {
	return &registry{
		reg:      reg,
		counters: make(map[string]Counter),
		gauges:   make(map[string]Gauge),
	}
}

// NewCounter creates and registers a new counter
func (r *registry) NewCounter(name string) Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := &counter{}
	if r.reg != nil {
		promC := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: name})
		if err := r.reg.Register(promC); err == nil {
			c.prom = promC
		}
	}
	r.counters[name] = c
	return c
}

// NewGauge creates and registers a new gauge
func (r *registry) NewGauge(name string) Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := &gauge{}
	if r.reg != nil {
		promG := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: name})
		if err := r.reg.Register(promG); err == nil {
			g.prom = promG
		}
	}
	r.gauges[name] = g
	return g
}

// GetCounter returns a counter by name
func (r *registry) GetCounter(name string) (Counter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.counters[name]
	if !ok {
		return nil, fmt.Errorf("counter %q not found", name)
	}
	return c, nil
}

// GetGauge returns a gauge by name
func (r *registry) GetGauge(name string) (Gauge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.gauges[name]
	if !ok {
		return nil, fmt.Errorf("gauge %q not found", name)
	}
	return g, nil
}
