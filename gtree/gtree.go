// Package gtree defines the Tree contract that the induction and
// partitioning components consume. Corpus readers (CoNLL, NeGra/Tiger,
// or anything else) are external collaborators that only need to
// satisfy this interface; the core never parses a corpus format
// directly.
package gtree

// NodeID addresses a node within a Tree. Corpus readers are free to use
// whatever underlying representation they like (string ids, integer
// offsets); the core only ever treats it as an opaque comparable key.
type NodeID string

// Token is the per-node payload: surface form, part of speech / category,
// the edge label connecting the node to its parent, and morphological
// features, as laid out in the Tree contract of the spec's external
// interfaces section.
type Token struct {
	Form      string
	POS       string
	Category  string
	EdgeLabel string
	Morph     string
}

// Tree is the minimal id-addressable tree contract consumed by partition
// and induce. Both constituent trees (internal nodes carry a Category,
// leaves carry Form/POS) and dependency trees (every node is a token,
// edges carry a deprel) implement it.
type Tree interface {
	// Root returns the id of the tree's root node.
	Root() NodeID

	// Children returns the ids of id's children, in surface/yield order.
	Children(id NodeID) []NodeID

	// Parent returns the id of id's parent and true, or the zero value
	// and false if id is the root.
	Parent(id NodeID) (NodeID, bool)

	// NodeToken returns the token payload attached to id.
	NodeToken(id NodeID) Token

	// Fringe returns the sorted yield positions covered by the subtree
	// rooted at id.
	Fringe(id NodeID) []int

	// IDYield returns every node id that corresponds to a leaf (yield
	// position), in position order.
	IDYield() []NodeID

	// TokenYield returns the token at each yield position, in order.
	TokenYield() []Token

	// IsLeaf reports whether id is a yield position (as opposed to an
	// internal node).
	IsLeaf(id NodeID) bool

	// LeafIndex returns id's 0-based position in the yield. Only valid
	// when IsLeaf(id) is true.
	LeafIndex(id NodeID) int
}
