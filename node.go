// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hgraph

// Node is one participant of the dependency graph, independent of the
// resource type it owns. Traversal, cascades and diagnostics work on Nodes.
//
// Node is implemented by *Handle[T]; concrete resource kinds supply hooks
// to Handle rather than implementing Node themselves.
type Node interface {
	// ID returns the node's identity in its graph.
	ID() ID

	// Label is a human-readable name used in logs and diagnostics.
	Label() string

	// Kind names the resource kind ("texture", "buffer", ...).
	Kind() string

	// Create allocates the resource, or recreates it if it already exists.
	// It reports whether the resource is present afterwards.
	Create() bool

	// Destroy releases the resource and cascades into the children.
	Destroy()

	// IsCreated reports whether the resource value is currently present.
	IsCreated() bool

	// IsDestroyable reports whether the node may release its own value.
	// It is false for values owned outside the graph, such as swapchain
	// images handed out by the platform.
	IsDestroyable() bool

	// IsClosed reports whether Close has been called.
	IsClosed() bool

	// Parents returns the parents in registration order. The returned
	// nodes are the registered handles, not any type embedding them.
	Parents() []Node

	// Children returns the children in registration order.
	Children() []Node

	// Close destroys the node and removes it from the graph. Every edge
	// touching the node is dropped.
	Close()

	graphOf() *Graph
	teardown(rc *recreation)
	rebuild(rc *recreation)
}

// parentsReady reports whether n may be rebuilt now: none of its parents is
// waiting to be rebuilt by rc.
func parentsReady(n Node, rc *recreation) bool {
	for _, p := range n.Parents() {
		if !p.IsCreated() && rc.wasTorn(p.ID()) {
			return false
		}
	}
	return true
}
