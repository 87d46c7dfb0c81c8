// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hgraph

import (
	"fmt"
	"slices"
)

// ID identifies a node inside a Graph. IDs are generational: once a node is
// closed its slot may be reused, but the old ID never resolves again.
//
// The zero ID is never assigned.
type ID struct {
	index uint32
	gen   uint32
}

// IsZero reports whether id is the zero ID.
func (id ID) IsZero() bool { return id.gen == 0 }

// String formats the ID as "#index.generation".
func (id ID) String() string {
	if id.IsZero() {
		return "#-"
	}
	return fmt.Sprintf("#%d.%d", id.index, id.gen)
}

// slot is one arena entry. Adjacency lists hold IDs, never node pointers.
type slot struct {
	node     Node
	gen      uint32
	live     bool
	parents  []ID
	children []ID
}

// Graph is the arena that owns the adjacency bookkeeping for a set of
// handles. Handles register themselves on construction and unregister on
// Close.
//
// Graph is NOT safe for concurrent use. All handles of a graph must be
// created, destroyed and closed from one goroutine, or access must be
// serialized by the caller.
type Graph struct {
	slots []slot
	free  []uint32
	order []ID // live IDs in registration order

	// recreating holds the handles whose recreation is in flight,
	// outermost first.
	recreating []ID

	observer Observer
	emitting int // observer calls in flight
}

// GraphOption configures a Graph during creation.
type GraphOption func(*Graph)

// WithObserver installs an observer that receives every lifecycle event of
// the graph's handles.
func WithObserver(o Observer) GraphOption {
	return func(g *Graph) {
		g.observer = o
	}
}

// NewGraph creates an empty graph.
func NewGraph(opts ...GraphOption) *Graph {
	g := &Graph{
		slots: make([]slot, 0, 32),
		free:  make([]uint32, 0, 8),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Len returns the number of registered (not closed) nodes.
func (g *Graph) Len() int { return len(g.order) }

// Lookup resolves id to its node. It returns false for the zero ID, for IDs
// of closed nodes and for IDs from another graph's slot range.
func (g *Graph) Lookup(id ID) (Node, bool) {
	s := g.slot(id)
	if s == nil {
		return nil, false
	}
	return s.node, true
}

// Nodes returns all registered nodes in registration order.
func (g *Graph) Nodes() []Node {
	return g.resolve(g.order)
}

// Roots returns the registered nodes without parents, in registration order.
func (g *Graph) Roots() []Node {
	var roots []Node
	for _, id := range g.order {
		s := g.slot(id)
		if len(s.parents) == 0 {
			roots = append(roots, s.node)
		}
	}
	return roots
}

// Walk visits every node depth-first starting from the roots, parents before
// children, each node once. Returning false from fn stops the walk.
func (g *Graph) Walk(fn func(n Node, depth int) bool) {
	seen := make(map[ID]bool, len(g.order))
	var visit func(id ID, depth int) bool
	visit = func(id ID, depth int) bool {
		if seen[id] {
			return true
		}
		s := g.slot(id)
		if s == nil {
			return true
		}
		seen[id] = true
		if !fn(s.node, depth) {
			return false
		}
		for _, c := range slices.Clone(s.children) {
			if !visit(c, depth+1) {
				return false
			}
		}
		return true
	}
	for _, root := range g.Roots() {
		if !visit(root.ID(), 0) {
			return
		}
	}
}

// DestroyAll destroys every root in reverse registration order. Cascades take
// care of the rest, so dependents always go before what they depend on.
func (g *Graph) DestroyAll() {
	roots := g.Roots()
	for i := len(roots) - 1; i >= 0; i-- {
		roots[i].Destroy()
	}
}

// Close destroys and closes every node, most recently registered first.
// The graph is empty afterwards and may be reused.
func (g *Graph) Close() {
	g.DestroyAll()
	for len(g.order) > 0 {
		n, _ := g.Lookup(g.order[len(g.order)-1])
		n.Close()
	}
}

// register allocates a slot for n and records the edges to parents.
// Parents must be live nodes of this graph.
func (g *Graph) register(n Node, parents []Node) ID {
	g.checkMutable("register", n.Label())
	parentIDs := make([]ID, 0, len(parents))
	for _, p := range parents {
		if p == nil {
			panic(fmt.Errorf("hgraph: register %q: %w", n.Label(), ErrNilParent))
		}
		if p.graphOf() != g {
			panic(fmt.Errorf("hgraph: register %q: parent %q: %w", n.Label(), p.Label(), ErrForeignGraph))
		}
		pid := p.ID()
		if p.IsClosed() || g.slot(pid) == nil {
			panic(fmt.Errorf("hgraph: register %q: parent %q: %w", n.Label(), p.Label(), ErrClosed))
		}
		parentIDs = append(parentIDs, pid)
	}

	var id ID
	if k := len(g.free); k > 0 {
		idx := g.free[k-1]
		g.free = g.free[:k-1]
		s := &g.slots[idx]
		s.gen++
		s.node = n
		s.live = true
		s.parents = parentIDs
		s.children = nil
		id = ID{index: idx, gen: s.gen}
	} else {
		g.slots = append(g.slots, slot{node: n, gen: 1, live: true, parents: parentIDs})
		id = ID{index: uint32(len(g.slots) - 1), gen: 1} //nolint:gosec // slot count fits uint32
	}

	for _, pid := range parentIDs {
		ps := g.slot(pid)
		ps.children = append(ps.children, id)
	}
	g.order = append(g.order, id)
	return id
}

// unregister removes every edge touching id and frees its slot.
func (g *Graph) unregister(id ID) {
	s := g.slot(id)
	if s == nil {
		return
	}
	for _, pid := range s.parents {
		if ps := g.slot(pid); ps != nil {
			ps.children = removeID(ps.children, id)
		}
	}
	for _, cid := range s.children {
		if cs := g.slot(cid); cs != nil {
			cs.parents = removeID(cs.parents, id)
		}
	}
	s.node = nil
	s.live = false
	s.parents = nil
	s.children = nil
	g.free = append(g.free, id.index)
	g.order = removeID(g.order, id)
}

func (g *Graph) slot(id ID) *slot {
	if id.IsZero() || int(id.index) >= len(g.slots) {
		return nil
	}
	s := &g.slots[id.index]
	if !s.live || s.gen != id.gen {
		return nil
	}
	return s
}

func (g *Graph) parentIDs(id ID) []ID {
	if s := g.slot(id); s != nil {
		return s.parents
	}
	return nil
}

func (g *Graph) childIDs(id ID) []ID {
	if s := g.slot(id); s != nil {
		return s.children
	}
	return nil
}

// resolve maps ids to live nodes, dropping any that no longer resolve.
func (g *Graph) resolve(ids []ID) []Node {
	if len(ids) == 0 {
		return nil
	}
	nodes := make([]Node, 0, len(ids))
	for _, id := range ids {
		if s := g.slot(id); s != nil {
			nodes = append(nodes, s.node)
		}
	}
	return nodes
}

// isAncestor reports whether anc is id itself or reachable from id by
// following parent edges.
func (g *Graph) isAncestor(anc, id ID) bool {
	if anc == id {
		return true
	}
	seen := map[ID]bool{}
	stack := slices.Clone(g.parentIDs(id))
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p == anc {
			return true
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		stack = append(stack, g.parentIDs(p)...)
	}
	return false
}

// beginRecreate marks id as recreating. Recreations may not overlap along
// a dependency path: recreating id while id, one of its ancestors or one of
// its descendants is already recreating panics.
func (g *Graph) beginRecreate(id ID, label string) {
	for _, r := range g.recreating {
		if g.isAncestor(r, id) || g.isAncestor(id, r) {
			panic(fmt.Errorf("hgraph: recreate %q: %w", label, ErrReentrantRecreate))
		}
	}
	g.recreating = append(g.recreating, id)
}

func (g *Graph) endRecreate(id ID) {
	g.recreating = removeID(g.recreating, id)
}

func (g *Graph) emit(e Event) {
	if g.observer == nil {
		return
	}
	g.emitting++
	defer func() { g.emitting-- }()
	g.observer.Observe(e)
}

// checkMutable panics if an observer is running.
func (g *Graph) checkMutable(op, label string) {
	if g.emitting > 0 {
		panic(fmt.Errorf("hgraph: %s %q: %w", op, label, ErrObserverMutation))
	}
}

func removeID(ids []ID, id ID) []ID {
	return slices.DeleteFunc(ids, func(x ID) bool { return x == id })
}
