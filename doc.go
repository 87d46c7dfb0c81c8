// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package hgraph manages the lifecycle of interdependent native resource
// handles.
//
// # Overview
//
// GPU objects depend on each other: a texture view needs its texture, a
// bind group needs its layout and buffers, everything needs the device.
// Destroying or recreating one of them must reach every dependent, in the
// right order, without touching anything that does not depend on it.
//
// hgraph records these dependencies explicitly. Each resource is a
// [Handle] registered in a [Graph] with the handles it depends on as
// parents:
//
//	g := hgraph.NewGraph()
//	tex := hgraph.New[hal.Texture](g, texHooks, hgraph.WithParents(device))
//	view := hgraph.New[hal.TextureView](g, viewHooks, hgraph.WithParents(tex))
//
//	tex.Create()
//	view.Create()
//
// # Protocol
//
// Destroy releases a handle's value after destroying its created children,
// depth-first in registration order. Children that are already destroyed
// are left alone, so Destroy is idempotent.
//
// Create on an absent handle allocates it. Create on a created handle is a
// recreation: the handle tears down its subtree, releases and reallocates its
// own value, and then creates again exactly the descendants that this
// teardown destroyed. Descendants the caller had already destroyed stay
// destroyed, and nothing is rebuilt if the new allocation fails.
//
// Handles created with [External] are not destroyable: their value belongs
// to someone else (for example swapchain images owned by the platform).
// Destroying them still cascades into their children.
//
// # Hooks
//
// The graph never allocates anything itself. Each resource kind supplies
// [Hooks]: Allocate produces a value, Release frees one. Failures are
// reported through the handle state: IsCreated stays false after a failed
// Create and true after a failed release. [Handle.Err] keeps the cause.
//
// # Identity
//
// Edges are stored as generational [ID] values inside the graph's arena, so
// a closed handle can never be reached through a stale edge. Close is the
// counterpart of construction: it destroys the handle and drops every edge
// touching it.
//
// # Concurrency
//
// A Graph and its handles are not safe for concurrent use. Keep all
// lifecycle calls on one goroutine, typically the render thread.
//
// # Logging
//
// hgraph is silent by default. Use [SetLogger] to route lifecycle
// diagnostics to a [log/slog] logger, and [WithObserver] to receive
// structured [Event] values.
package hgraph
