// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hgraph

import (
	"fmt"
	"reflect"
	"slices"
)

// Hooks supplies the resource-specific half of a Handle.
//
// Allocate produces a fresh value. A non-nil error (or a nil value) leaves
// the handle absent. Release frees a value; a non-nil error means the value
// was NOT released and the handle keeps it.
type Hooks[T any] interface {
	Allocate() (T, error)
	Release(v T) error
}

// HookFuncs adapts a pair of functions to Hooks. A nil ReleaseFunc releases
// nothing and always succeeds.
type HookFuncs[T any] struct {
	AllocateFunc func() (T, error)
	ReleaseFunc  func(T) error
}

// Allocate calls AllocateFunc.
func (f HookFuncs[T]) Allocate() (T, error) { return f.AllocateFunc() }

// Release calls ReleaseFunc if set.
func (f HookFuncs[T]) Release(v T) error {
	if f.ReleaseFunc == nil {
		return nil
	}
	return f.ReleaseFunc(v)
}

// HandleOption configures a Handle during creation.
type HandleOption func(*handleOptions)

type handleOptions struct {
	parents  []Node
	label    string
	kind     string
	external bool
}

// WithParents names the nodes the handle depends on. Destroying or
// recreating any of them cascades into the handle.
func WithParents(parents ...Node) HandleOption {
	return func(o *handleOptions) {
		o.parents = append(o.parents, parents...)
	}
}

// WithLabel sets the diagnostic label.
func WithLabel(label string) HandleOption {
	return func(o *handleOptions) {
		o.label = label
	}
}

// WithKind sets the resource kind reported by Kind.
func WithKind(kind string) HandleOption {
	return func(o *handleOptions) {
		o.kind = kind
	}
}

// External marks the handle as not destroyable: its value is owned outside
// the graph and is never passed to Release. Destroy still cascades.
func External() HandleOption {
	return func(o *handleOptions) {
		o.external = true
	}
}

// Handle is a Node that owns one resource value of type T and implements
// the create/destroy/recreate protocol on top of Hooks.
//
// Create on an existing handle is a recreation: the handle tears down its
// dependents, releases and reallocates its own value, then recreates exactly
// the dependents that the teardown destroyed. Dependents that were already
// destroyed before the call stay destroyed.
type Handle[T any] struct {
	graph *Graph
	id    ID
	hooks Hooks[T]

	label       string
	kind        string
	destroyable bool

	value   T
	present bool
	closed  bool
	tearing bool // inside teardown, hooks included
	err     error
}

// New registers a handle in g. The handle starts absent; call Create to
// allocate it. New panics if a parent is nil, closed, or belongs to another
// graph.
func New[T any](g *Graph, hooks Hooks[T], opts ...HandleOption) *Handle[T] {
	o := handleOptions{kind: "handle"}
	for _, opt := range opts {
		opt(&o)
	}
	h := &Handle[T]{
		graph:       g,
		hooks:       hooks,
		label:       o.label,
		kind:        o.kind,
		destroyable: !o.external,
	}
	h.id = g.register(h, o.parents)
	if h.label == "" {
		h.label = h.kind + h.id.String()
	}
	Logger().Debug("hgraph: registered", "handle", h.label, "kind", h.kind, "parents", len(o.parents))
	return h
}

// ID returns the handle's identity in its graph.
func (h *Handle[T]) ID() ID { return h.id }

// Label returns the diagnostic label.
func (h *Handle[T]) Label() string { return h.label }

// Kind returns the resource kind.
func (h *Handle[T]) Kind() string { return h.kind }

// Graph returns the graph the handle is registered in.
func (h *Handle[T]) Graph() *Graph { return h.graph }

func (h *Handle[T]) graphOf() *Graph { return h.graph }

// Value returns the owned value, or the zero value if absent.
func (h *Handle[T]) Value() T { return h.value }

// Get returns the owned value and whether it is present.
func (h *Handle[T]) Get() (T, bool) { return h.value, h.present }

// Err returns the error of the most recent failed hook call, or nil if the
// most recent allocation succeeded.
func (h *Handle[T]) Err() error { return h.err }

// IsCreated reports whether the value is present.
func (h *Handle[T]) IsCreated() bool { return h.present }

// IsDestroyable reports whether the handle releases its own value.
func (h *Handle[T]) IsDestroyable() bool { return h.destroyable }

// IsClosed reports whether Close has been called.
func (h *Handle[T]) IsClosed() bool { return h.closed }

// Parents returns the parents in registration order. A closed handle has
// none.
func (h *Handle[T]) Parents() []Node {
	return h.graph.resolve(h.graph.parentIDs(h.id))
}

// Children returns the children in registration order. A closed handle has
// none.
func (h *Handle[T]) Children() []Node {
	return h.graph.resolve(h.graph.childIDs(h.id))
}

// Create allocates the value. If the value already exists, Create recreates
// it: dependents are torn down, the value is released and allocated again,
// and the torn-down dependents are created again if, and only if, the new
// allocation succeeded.
//
// Create reports whether the value is present afterwards. It panics with
// ErrReentrantRecreate if the handle, one of its ancestors or one of its
// descendants is already in the middle of a recreation.
func (h *Handle[T]) Create() bool {
	h.graph.checkMutable("create", h.label)
	if h.closed {
		h.err = ErrClosed
		return false
	}
	if !h.present {
		if h.allocate() {
			Logger().Debug("hgraph: created", "handle", h.label)
			h.emit(EventCreated, nil)
		}
		return h.present
	}
	return h.recreate()
}

func (h *Handle[T]) recreate() bool {
	h.graph.beginRecreate(h.id, h.label)
	defer h.graph.endRecreate(h.id)

	rc := newRecreation()
	h.teardown(rc)

	if h.present && h.destroyable {
		// Release failed and the old value is still alive. Allocate is
		// skipped because overwriting a live value leaks it; the
		// dependents are rebuilt against the retained value.
		h.err = fmt.Errorf("hgraph: recreate %s: %w: %w", h.label, ErrReleaseFailed, h.err)
		Logger().Warn("hgraph: recreate kept old value", "handle", h.label, "err", h.err)
		h.rebuild(rc)
		return true
	}

	if !h.allocate() {
		Logger().Warn("hgraph: recreate failed, dependents stay destroyed", "handle", h.label, "err", h.err)
		return h.present
	}
	Logger().Debug("hgraph: recreated", "handle", h.label)
	h.emit(EventRecreated, nil)
	h.rebuild(rc)
	return true
}

// Destroy releases the value and cascades into every created child.
// Children that are already destroyed are left alone, so calling Destroy
// twice is a no-op the second time.
func (h *Handle[T]) Destroy() {
	h.graph.checkMutable("destroy", h.label)
	if h.closed {
		return
	}
	h.teardown(nil)
}

// Close destroys the handle and removes it from the graph. Closing a
// non-destroyable handle drops the reference without releasing it.
// Close is idempotent.
func (h *Handle[T]) Close() {
	h.graph.checkMutable("close", h.label)
	if h.closed {
		return
	}
	h.Destroy()
	h.graph.unregister(h.id)
	h.closed = true
	var zero T
	h.value = zero
	h.present = false
	Logger().Debug("hgraph: closed", "handle", h.label)
	h.emit(EventClosed, nil)
}

// teardown destroys the created children in registration order, then
// releases the own value. With a recreation context, every visited child is
// recorded so that rebuild can restore it.
//
// Reaching h again before its teardown returns, from a hook further down
// the cascade or from its own release, panics with ErrReentrantTeardown.
func (h *Handle[T]) teardown(rc *recreation) {
	if h.tearing {
		panic(fmt.Errorf("hgraph: destroy %q: %w", h.label, ErrReentrantTeardown))
	}
	h.tearing = true
	defer func() { h.tearing = false }()

	// Hooks may close nodes while we walk, so iterate a snapshot.
	children := h.graph.resolve(slices.Clone(h.graph.childIDs(h.id)))
	for _, c := range children {
		if !c.IsCreated() {
			// A child with several parents may already have been torn
			// down through a sibling earlier in this recreation.
			if rc != nil && rc.wasTorn(c.ID()) {
				rc.record(h.id, c)
			}
			continue
		}
		c.teardown(rc)
		if rc == nil {
			continue
		}
		if !c.IsCreated() {
			rc.markTorn(c.ID())
		}
		rc.record(h.id, c)
	}
	h.release()
}

// rebuild creates the children that rc recorded under h, then descends.
// Non-destroyable children are never recreated, only descended into.
func (h *Handle[T]) rebuild(rc *recreation) {
	if !rc.enterRebuild(h.id) {
		return
	}
	for _, c := range rc.children(h.id) {
		if c.IsClosed() {
			continue
		}
		if !c.IsCreated() {
			if !rc.wasTorn(c.ID()) || !parentsReady(c, rc) {
				continue
			}
			if !c.Create() {
				continue
			}
		}
		c.rebuild(rc)
	}
}

func (h *Handle[T]) allocate() bool {
	v, err := h.hooks.Allocate()
	if err == nil && isNil(v) {
		err = ErrNilValue
	}
	if err != nil {
		h.err = fmt.Errorf("hgraph: allocate %s: %w", h.label, err)
		Logger().Warn("hgraph: allocate failed", "handle", h.label, "err", err)
		h.emit(EventAllocateFailed, h.err)
		return false
	}
	h.value = v
	h.present = true
	h.err = nil
	return true
}

func (h *Handle[T]) release() {
	if !h.destroyable || !h.present {
		return
	}
	if err := h.hooks.Release(h.value); err != nil {
		h.err = fmt.Errorf("hgraph: release %s: %w", h.label, err)
		Logger().Warn("hgraph: release failed", "handle", h.label, "err", err)
		h.emit(EventReleaseFailed, h.err)
		return
	}
	var zero T
	h.value = zero
	h.present = false
	Logger().Debug("hgraph: destroyed", "handle", h.label)
	h.emit(EventDestroyed, nil)
}

func (h *Handle[T]) emit(kind EventKind, err error) {
	h.graph.emit(Event{
		Kind:     kind,
		ID:       h.id,
		Label:    h.label,
		Resource: h.kind,
		Err:      err,
	})
}

// isNil reports whether v holds a nil pointer, interface, map, slice, func
// or channel.
func isNil[T any](v T) bool {
	rv := reflect.ValueOf(any(v))
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map,
		reflect.Pointer, reflect.Slice, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}

var _ Node = (*Handle[int])(nil)
