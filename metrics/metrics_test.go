// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/gogpu/hgraph"
)

type thing struct{ n int }

func newThing(g *hgraph.Graph, kind string, fail *bool, opts ...hgraph.HandleOption) *hgraph.Handle[*thing] {
	hooks := hgraph.HookFuncs[*thing]{
		AllocateFunc: func() (*thing, error) {
			if fail != nil && *fail {
				return nil, errors.New("out of memory")
			}
			return &thing{}, nil
		},
	}
	return hgraph.New[*thing](g, hooks, append(opts, hgraph.WithKind(kind))...)
}

func newTestCollector(t *testing.T) (*Collector, *hgraph.Graph) {
	t.Helper()
	c := NewCollector()
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return c, hgraph.NewGraph(hgraph.WithObserver(c))
}

func TestCollectorCountsEvents(t *testing.T) {
	c, g := newTestCollector(t)
	fail := false
	dev := newThing(g, "device", nil)
	tex := newThing(g, "texture", &fail, hgraph.WithParents(dev))
	dev.Create()
	tex.Create()

	fail = true
	dev.Create() // recreate: texture rebuild fails

	tests := []struct {
		event, kind string
		want        float64
	}{
		{"created", "device", 1},
		{"created", "texture", 1},
		{"recreated", "device", 1},
		{"destroyed", "device", 1},
		{"destroyed", "texture", 1},
		{"allocate_failed", "texture", 1},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(c.EventsTotal.WithLabelValues(tt.event, tt.kind))
		if got != tt.want {
			t.Errorf("events_total{event=%q,kind=%q} = %v, want %v", tt.event, tt.kind, got, tt.want)
		}
	}
	if got := testutil.ToFloat64(c.Live.WithLabelValues("device")); got != 1 {
		t.Errorf("live{device} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Live.WithLabelValues("texture")); got != 0 {
		t.Errorf("live{texture} = %v, want 0", got)
	}
}

func TestCollectorLiveGauge(t *testing.T) {
	c, g := newTestCollector(t)
	a := newThing(g, "buffer", nil)
	b := newThing(g, "buffer", nil)
	ext := newThing(g, "surface", nil, hgraph.External())
	a.Create()
	b.Create()
	ext.Create()

	if got := testutil.ToFloat64(c.Live.WithLabelValues("buffer")); got != 2 {
		t.Errorf("live{buffer} = %v, want 2", got)
	}

	// Recreating an external handle must not count it twice.
	ext.Create()
	if got := testutil.ToFloat64(c.Live.WithLabelValues("surface")); got != 1 {
		t.Errorf("live{surface} = %v after recreate, want 1", got)
	}

	a.Destroy()
	ext.Close()
	if got := testutil.ToFloat64(c.Live.WithLabelValues("buffer")); got != 1 {
		t.Errorf("live{buffer} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Live.WithLabelValues("surface")); got != 0 {
		t.Errorf("live{surface} = %v after close, want 0", got)
	}

	g.Close()
	if got := testutil.ToFloat64(c.Live.WithLabelValues("buffer")); got != 0 {
		t.Errorf("live{buffer} = %v after graph close, want 0", got)
	}
}

func TestCollectorCollectsOneSeriesPerLabelSet(t *testing.T) {
	c, g := newTestCollector(t)
	newThing(g, "fence", nil).Create()
	if n := testutil.CollectAndCount(c); n != 2 {
		t.Errorf("CollectAndCount = %d, want 2", n)
	}
}
