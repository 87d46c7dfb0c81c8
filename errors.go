// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hgraph

import "errors"

var (
	// ErrClosed is recorded by Create on a closed handle, and wrapped in the
	// panic raised when a closed node is named as a parent.
	ErrClosed = errors.New("hgraph: handle closed")

	// ErrForeignGraph is wrapped in the panic raised when a parent belongs
	// to a different graph.
	ErrForeignGraph = errors.New("hgraph: parent belongs to another graph")

	// ErrNilParent is wrapped in the panic raised when a nil parent is passed.
	ErrNilParent = errors.New("hgraph: nil parent")

	// ErrReentrantRecreate is wrapped in the panic raised when a handle is
	// recreated while it, or one of its ancestors, is already recreating.
	ErrReentrantRecreate = errors.New("hgraph: reentrant recreation")

	// ErrReentrantTeardown is wrapped in the panic raised when a hook
	// destroys, recreates or closes a handle that is in the middle of its
	// own teardown.
	ErrReentrantTeardown = errors.New("hgraph: reentrant teardown")

	// ErrObserverMutation is wrapped in the panic raised when an observer
	// creates, destroys, closes or registers a handle while an event is
	// being delivered.
	ErrObserverMutation = errors.New("hgraph: graph mutated from observer")

	// ErrNilValue is recorded when an allocate hook reports success but
	// returns a nil value.
	ErrNilValue = errors.New("hgraph: allocate returned nil value")

	// ErrReleaseFailed is recorded when a recreation is abandoned because
	// the old value could not be released.
	ErrReleaseFailed = errors.New("hgraph: release failed")
)
