// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package metrics exports hgraph lifecycle events as Prometheus metrics.
//
// A Collector is an hgraph.Observer. Install it on one graph:
//
//	c := metrics.NewCollector()
//	prometheus.MustRegister(c)
//	g := hgraph.NewGraph(hgraph.WithObserver(c))
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogpu/hgraph"
)

const (
	namespace = "hgraph"
	subsystem = "handle"
)

// Collector counts lifecycle events and tracks live resources by kind.
//
// A Collector observes a single graph. It is called from the graph's
// goroutine; the exported metrics are safe to scrape concurrently.
type Collector struct {
	// EventsTotal counts lifecycle events.
	// Labels: event (created, recreated, destroyed, ...), kind (texture, ...)
	EventsTotal *prometheus.CounterVec

	// Live is the number of handles currently holding a value.
	// Labels: kind
	Live *prometheus.GaugeVec

	live map[hgraph.ID]string
}

// NewCollector creates an unregistered collector.
func NewCollector() *Collector {
	return &Collector{
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "events_total",
				Help:      "Total handle lifecycle events by event and resource kind",
			},
			[]string{"event", "kind"},
		),
		Live: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "live",
				Help:      "Number of handles currently holding a resource, by kind",
			},
			[]string{"kind"},
		),
		live: make(map[hgraph.ID]string),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.EventsTotal.Describe(ch)
	c.Live.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.EventsTotal.Collect(ch)
	c.Live.Collect(ch)
}

// Observe implements hgraph.Observer.
func (c *Collector) Observe(e hgraph.Event) {
	c.EventsTotal.WithLabelValues(e.Kind.String(), e.Resource).Inc()

	switch e.Kind {
	case hgraph.EventCreated, hgraph.EventRecreated:
		// A recreated destroyable handle was released first; a recreated
		// external one never left the live set.
		if _, ok := c.live[e.ID]; !ok {
			c.live[e.ID] = e.Resource
			c.Live.WithLabelValues(e.Resource).Inc()
		}
	case hgraph.EventDestroyed, hgraph.EventClosed:
		if kind, ok := c.live[e.ID]; ok {
			delete(c.live, e.ID)
			c.Live.WithLabelValues(kind).Dec()
		}
	}
}

var (
	_ prometheus.Collector = (*Collector)(nil)
	_ hgraph.Observer      = (*Collector)(nil)
)
