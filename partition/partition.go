// Package partition builds and transforms recursive partitionings: trees
// of position-sets over a tree's yield that drive rule extraction in
// package induce. Five strategies are provided: left-branching,
// right-branching, direct extraction (mirroring a gtree.Tree's own
// structure), a fanout-k limiter (with five tie-break policies), and CFG
// (fanout-1 limit).
package partition

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/dekarrin/lcfrsdcp/gtree"
	"github.com/dekarrin/lcfrsdcp/internal/util"
)

// Span is an inclusive [Low, High] contiguous run of yield positions, as
// produced by JoinSpans.
type Span struct {
	Low  int
	High int
}

// Partitioning is one node of a recursive partitioning: Positions is the
// node's position set, Children is a (possibly empty) list of
// partitionings whose Positions are pairwise disjoint and whose union is
// exactly Positions. A singleton (len(Positions) == 1) must have no
// children.
type Partitioning struct {
	Positions util.ISet[int]
	Children  []*Partitioning

	// Label, when non-empty, names the gtree node this partitioning node
	// was built from (set by DirectExtraction); used by induce's Child
	// naming strategy to name nonterminals.
	Label gtree.NodeID
}

func leafSet(positions ...int) util.ISet[int] {
	return util.KeySetOf(positions)
}

// JoinSpans returns the sorted list of maximal contiguous spans covering
// a set of integer positions. It is idempotent: joining the low/high
// bounds of an already-joined span set returns the same spans.
func JoinSpans(positions []int) []Span {
	if len(positions) == 0 {
		return nil
	}
	sorted := append([]int(nil), positions...)
	sort.Ints(sorted)

	spans := []Span{{Low: sorted[0], High: sorted[0]}}
	for _, p := range sorted[1:] {
		last := &spans[len(spans)-1]
		if p == last.High+1 {
			last.High = p
		} else if p == last.High {
			continue
		} else {
			spans = append(spans, Span{Low: p, High: p})
		}
	}
	return spans
}

func positionsOf(p *Partitioning) []int {
	return p.Positions.Elements()
}

// LeftBranching builds ({0..n-1}, [({0},[]), ({1..n-1} left-branching)])
// recursively.
func LeftBranching(n int) *Partitioning {
	return leftBranch(0, n)
}

func leftBranch(low, high int) *Partitioning {
	positions := make([]int, 0, high-low)
	for i := low; i < high; i++ {
		positions = append(positions, i)
	}
	node := &Partitioning{Positions: leafSet(positions...)}
	if high-low <= 1 {
		return node
	}
	first := &Partitioning{Positions: leafSet(low)}
	rest := leftBranch(low+1, high)
	node.Children = []*Partitioning{first, rest}
	return node
}

// RightBranching is the mirror image of LeftBranching.
func RightBranching(n int) *Partitioning {
	return rightBranch(0, n)
}

func rightBranch(low, high int) *Partitioning {
	positions := make([]int, 0, high-low)
	for i := low; i < high; i++ {
		positions = append(positions, i)
	}
	node := &Partitioning{Positions: leafSet(positions...)}
	if high-low <= 1 {
		return node
	}
	rest := rightBranch(low, high-1)
	last := &Partitioning{Positions: leafSet(high - 1)}
	node.Children = []*Partitioning{rest, last}
	return node
}

// DirectExtraction mirrors a gtree.Tree's own children structure,
// starting at id (typically t.Root()). Each partitioning node's Label
// records the gtree node it was built from. The recursion bottoms out
// on Children(id) being empty or on a node covering a single position
// (a singleton has no children, so a preterminal over its word becomes
// one childless node), not on IsLeaf(id): a dependency governor
// is simultaneously a yield position (IsLeaf true) and an internal node
// with dependents, and those dependents still need their own
// partitioning nodes. When a node is both, its own position is split
// off into a singleton child alongside its dependents' subtrees, so
// that the children still tile the parent's full position set.
func DirectExtraction(t gtree.Tree, id gtree.NodeID) *Partitioning {
	fringe := t.Fringe(id)
	node := &Partitioning{Positions: leafSet(fringe...), Label: id}
	children := t.Children(id)
	if len(children) == 0 || len(fringe) == 1 {
		return node
	}
	var kids []*Partitioning
	if t.IsLeaf(id) {
		kids = append(kids, &Partitioning{Positions: leafSet(t.LeafIndex(id)), Label: id})
	}
	for _, child := range children {
		kids = append(kids, DirectExtraction(t, child))
	}
	sort.Slice(kids, func(i, j int) bool { return minPos(kids[i]) < minPos(kids[j]) })
	node.Children = kids
	return node
}

func minPos(p *Partitioning) int {
	min := -1
	for _, pos := range p.Positions.Elements() {
		if min == -1 || pos < min {
			min = pos
		}
	}
	return min
}

// TieBreakPolicy selects which sibling merge to perform when reducing a
// partitioning node's fanout.
type TieBreakPolicy int

const (
	// RightmostFirst merges the rightmost-indexed pair of siblings first;
	// the default policy.
	RightmostFirst TieBreakPolicy = iota
	// LeftToRight merges the leftmost-indexed pair of siblings first.
	LeftToRight
	// Argmax greedily merges the pair minimizing the resulting fanout.
	Argmax
	// Random merges a uniformly random pair, seed-parameterized.
	Random
	// NoNewNonterminal prefers a merge whose resulting label already
	// exists in Existing, falling back to Fallback when none qualifies.
	NoNewNonterminal
)

// FanoutLimitOptions configures FanoutLimit.
type FanoutLimitOptions struct {
	Policy TieBreakPolicy
	Rng    *rand.Rand
	// Existing is consulted by NoNewNonterminal: label(children) is a
	// would-be nonterminal name: if Existing(label) is true the merge
	// is preferred.
	Existing func(label string) bool
	// LabelOf names the nonterminal a set of children would induce,
	// used only by NoNewNonterminal.
	LabelOf func(children []*Partitioning) string
	// Fallback is the policy NoNewNonterminal uses when no candidate
	// merge's label exists in Existing.
	Fallback TieBreakPolicy
}

// mergeCost estimates, for a candidate merge of two adjacent children,
// how many maximal contiguous spans the merged node would have -- the
// fanout FanoutLimit is trying to bound.
func mergeCost(a, b *Partitioning) int {
	merged := append(append([]int{}, positionsOf(a)...), positionsOf(b)...)
	return len(JoinSpans(merged))
}

// FanoutLimit rewrites p into an equivalent covering whose every node's
// root-set has fanout at most k, by repeatedly merging sibling pairs
// (chosen per opts.Policy) until each node satisfies the bound.
func FanoutLimit(p *Partitioning, k int, opts FanoutLimitOptions) *Partitioning {
	if p == nil || len(p.Children) == 0 {
		return p
	}

	children := make([]*Partitioning, len(p.Children))
	for i, c := range p.Children {
		children[i] = FanoutLimit(c, k, opts)
	}

	for fanoutOf(children) > k && len(children) > 1 {
		i := chooseMerge(children, opts)
		merged := mergeChildren(children[i], children[i+1])
		next := make([]*Partitioning, 0, len(children)-1)
		next = append(next, children[:i]...)
		next = append(next, merged)
		next = append(next, children[i+2:]...)
		children = next
	}

	positions := make([]int, 0)
	for _, c := range children {
		positions = append(positions, positionsOf(c)...)
	}

	return &Partitioning{Positions: leafSet(positions...), Children: children, Label: p.Label}
}

func fanoutOf(children []*Partitioning) int {
	positions := make([]int, 0)
	for _, c := range children {
		positions = append(positions, positionsOf(c)...)
	}
	return len(JoinSpans(positions))
}

func mergeChildren(a, b *Partitioning) *Partitioning {
	positions := append(append([]int{}, positionsOf(a)...), positionsOf(b)...)
	return &Partitioning{Positions: leafSet(positions...), Children: []*Partitioning{a, b}}
}

func chooseMerge(children []*Partitioning, opts FanoutLimitOptions) int {
	n := len(children)
	switch opts.Policy {
	case LeftToRight:
		return 0
	case RightmostFirst:
		return n - 2
	case Argmax:
		best, bestCost := 0, mergeCost(children[0], children[1])
		for i := 1; i < n-1; i++ {
			c := mergeCost(children[i], children[i+1])
			if c < bestCost {
				best, bestCost = i, c
			}
		}
		return best
	case Random:
		rng := opts.Rng
		if rng == nil {
			rng = rand.New(rand.NewSource(1))
		}
		return rng.Intn(n - 1)
	case NoNewNonterminal:
		if opts.Existing != nil && opts.LabelOf != nil {
			for i := 0; i < n-1; i++ {
				label := opts.LabelOf(children[i : i+2])
				if opts.Existing(label) {
					return i
				}
			}
		}
		fallbackOpts := opts
		fallbackOpts.Policy = opts.Fallback
		return chooseMerge(children, fallbackOpts)
	default:
		return n - 2
	}
}

// CFG limits p to fanout 1: every partitioning node's root-set becomes a
// single contiguous span, as required for inducing a plain CFG.
func CFG(p *Partitioning) *Partitioning {
	return FanoutLimit(p, 1, FanoutLimitOptions{Policy: RightmostFirst})
}

func (p *Partitioning) String() string {
	return fmt.Sprintf("(%s, %d children)", p.Positions.StringOrdered(), len(p.Children))
}

// IsSingleton reports whether p covers exactly one position.
func (p *Partitioning) IsSingleton() bool {
	return p.Positions.Len() == 1
}

// Validate checks the structural invariants: a singleton must have no
// children, and children's positions must be pairwise disjoint and union
// to the parent's.
func (p *Partitioning) Validate() error {
	if p.IsSingleton() && len(p.Children) > 0 {
		return fmt.Errorf("partition: singleton %s has children", p.Positions.StringOrdered())
	}
	if len(p.Children) == 0 {
		return nil
	}
	union := util.NewKeySet[int]()
	for _, c := range p.Children {
		for _, pos := range positionsOf(c) {
			if union.Has(pos) {
				return fmt.Errorf("partition: overlapping children at position %d", pos)
			}
			union.Add(pos)
		}
		if err := c.Validate(); err != nil {
			return err
		}
	}
	if union.Len() != p.Positions.Len() {
		return fmt.Errorf("partition: children do not cover all of %s", p.Positions.StringOrdered())
	}
	return nil
}
