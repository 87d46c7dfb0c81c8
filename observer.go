// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hgraph

// EventKind classifies a lifecycle event.
type EventKind uint8

const (
	// EventCreated is emitted when an absent handle gets a value.
	EventCreated EventKind = iota + 1

	// EventRecreated is emitted when an existing handle got a fresh value.
	EventRecreated

	// EventDestroyed is emitted when a release hook succeeded.
	EventDestroyed

	// EventAllocateFailed is emitted when an allocate hook failed.
	EventAllocateFailed

	// EventReleaseFailed is emitted when a release hook failed.
	EventReleaseFailed

	// EventClosed is emitted when a handle leaves the graph.
	EventClosed
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventRecreated:
		return "recreated"
	case EventDestroyed:
		return "destroyed"
	case EventAllocateFailed:
		return "allocate_failed"
	case EventReleaseFailed:
		return "release_failed"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event describes one lifecycle transition of a handle.
type Event struct {
	Kind     EventKind
	ID       ID
	Label    string
	Resource string // resource kind of the handle
	Err      error  // set for the failure kinds
}

// Observer receives lifecycle events. Observers are called synchronously
// from inside Create, Destroy and Close and must not mutate the graph:
// Create, Destroy, Close or New called from an observer panics with
// ErrObserverMutation.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) { f(e) }

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

// Observe forwards e to every observer.
func (m MultiObserver) Observe(e Event) {
	for _, o := range m {
		if o != nil {
			o.Observe(e)
		}
	}
}
