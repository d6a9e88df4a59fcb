// Package corpus holds lightweight, in-memory implementations of the
// gtree.Tree contract (§6 external interfaces): a CoNLL-X dependency
// reader and a bracket-notation constituent reader, enough to exercise
// package induce end to end without depending on an external treebank
// fixture format. Both are external collaborators in the sense the
// core only ever consumes them through gtree.Tree; nothing in grammar,
// partition, induce, chart, or eval imports this package.
package corpus

import (
	"fmt"
	"sort"

	"github.com/dekarrin/lcfrsdcp/gtree"
)

// MemTree is a plain, fully-materialized gtree.Tree: every node's
// parent/children/token/fringe is precomputed at construction time.
// Both readers in this package build one of these as their final step.
type MemTree struct {
	root     gtree.NodeID
	children map[gtree.NodeID][]gtree.NodeID
	parent   map[gtree.NodeID]gtree.NodeID
	hasPar   map[gtree.NodeID]bool
	tokens   map[gtree.NodeID]gtree.Token
	fringe   map[gtree.NodeID][]int
	idYield  []gtree.NodeID
	leafPos  map[gtree.NodeID]int
}

func newMemTree() *MemTree {
	return &MemTree{
		children: map[gtree.NodeID][]gtree.NodeID{},
		parent:   map[gtree.NodeID]gtree.NodeID{},
		hasPar:   map[gtree.NodeID]bool{},
		tokens:   map[gtree.NodeID]gtree.Token{},
		fringe:   map[gtree.NodeID][]int{},
		leafPos:  map[gtree.NodeID]int{},
	}
}

func (t *MemTree) Root() gtree.NodeID                  { return t.root }
func (t *MemTree) Children(id gtree.NodeID) []gtree.NodeID { return t.children[id] }
func (t *MemTree) Parent(id gtree.NodeID) (gtree.NodeID, bool) {
	p, ok := t.hasPar[id]
	if !ok || !p {
		return "", false
	}
	return t.parent[id], true
}
func (t *MemTree) NodeToken(id gtree.NodeID) gtree.Token { return t.tokens[id] }
func (t *MemTree) Fringe(id gtree.NodeID) []int          { return t.fringe[id] }
func (t *MemTree) IDYield() []gtree.NodeID               { return t.idYield }
func (t *MemTree) TokenYield() []gtree.Token {
	out := make([]gtree.Token, len(t.idYield))
	for i, id := range t.idYield {
		out[i] = t.tokens[id]
	}
	return out
}
func (t *MemTree) IsLeaf(id gtree.NodeID) bool { _, ok := t.leafPos[id]; return ok }
func (t *MemTree) LeafIndex(id gtree.NodeID) int {
	pos, ok := t.leafPos[id]
	if !ok {
		panic(fmt.Sprintf("corpus: LeafIndex called on non-leaf node %q", id))
	}
	return pos
}

// attach records parent/child linkage; fringe/idYield are computed once
// construction is complete via finalize.
func (t *MemTree) attach(parent, child gtree.NodeID) {
	t.children[parent] = append(t.children[parent], child)
	t.parent[child] = parent
	t.hasPar[child] = true
}

// finalize assigns leaf positions by ascending surface order (the
// caller decides that order -- cross-serial dependency/constituent
// structures are exactly the case where it differs from nesting order)
// and computes every node's Fringe by a post-order pass. A node's own
// yield position (if it has one -- every node does in a dependency
// tree, only true leaves do in a constituent tree) and its children's
// fringes are both folded in, since a dependency governor is
// simultaneously a yield position and an internal node with
// dependents.
func (t *MemTree) finalize(leavesInSurfaceOrder []gtree.NodeID) {
	t.idYield = leavesInSurfaceOrder
	for i, id := range leavesInSurfaceOrder {
		t.leafPos[id] = i
	}
	var walk func(id gtree.NodeID) []int
	walk = func(id gtree.NodeID) []int {
		var all []int
		if pos, ok := t.leafPos[id]; ok {
			all = append(all, pos)
		}
		for _, c := range t.children[id] {
			all = append(all, walk(c)...)
		}
		sort.Ints(all)
		t.fringe[id] = all
		return all
	}
	walk(t.root)
}
