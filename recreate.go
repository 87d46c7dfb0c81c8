// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hgraph

// recreation is the call-scoped context of one recreation. It remembers, per
// parent, which children were visited by the teardown, so that the rebuild
// touches exactly the subtree the teardown invalidated.
type recreation struct {
	pending map[ID][]Node
	torn    map[ID]bool
	rebuilt map[ID]bool
}

func newRecreation() *recreation {
	return &recreation{
		pending: make(map[ID][]Node),
		torn:    make(map[ID]bool),
		rebuilt: make(map[ID]bool),
	}
}

// record notes that child was reached from parent during teardown.
func (rc *recreation) record(parent ID, child Node) {
	rc.pending[parent] = append(rc.pending[parent], child)
}

func (rc *recreation) markTorn(id ID) { rc.torn[id] = true }

func (rc *recreation) wasTorn(id ID) bool { return rc.torn[id] }

// children returns the children recorded under parent.
func (rc *recreation) children(parent ID) []Node { return rc.pending[parent] }

// enterRebuild reports whether id still has to be rebuilt and marks it.
func (rc *recreation) enterRebuild(id ID) bool {
	if rc.rebuilt[id] {
		return false
	}
	rc.rebuilt[id] = true
	return true
}
