// Package induce implements the grammar-induction algorithm: given a gold
// tree and a recursive partitioning of its yield positions, it emits
// exactly the LCFRS+DCP rules needed to re-derive that tree. Two walks
// are provided: ConstituentInducer.Induce (fringe-term DCP emission over a
// constituent tree) and DependencyInducer.Induce (top_max/bottom_max attribute
// construction over a dependency tree).
package induce

import (
	"strings"

	"github.com/dekarrin/lcfrsdcp/grammar"
	"github.com/dekarrin/lcfrsdcp/gtree"
	"github.com/dekarrin/lcfrsdcp/partition"
	"github.com/dekarrin/lcfrsdcp/symbol"
)

// NamingStrategy selects how the inducer derives nonterminal names from
// tree structure.
type NamingStrategy int

const (
	// Strict names an arg by concatenating the labels of the tree nodes
	// whose yields exactly fill it.
	Strict NamingStrategy = iota
	// Child names an arg "children_of_<parent category>" when the arg is
	// formed by the full, contiguous set of one parent's children,
	// falling back to Strict otherwise.
	Child
)

// childSpan locates one (childIndex, spanIndex) pair at the position
// where that span begins, used to resolve LCFRS_var/DCP_var placement
// while walking a partitioning node's position span left to right.
type childSpan struct {
	childIndex int
	spanIndex  int
	low, high  int
	label      gtree.NodeID
	hasLabel   bool
}

// childInfo is everything known about one already-induced child of a
// partitioning node, before the parent's own rule is assembled.
type childInfo struct {
	nonterminal string
	spans       []partition.Span
	label       gtree.NodeID
	hasLabel    bool
}

func buildChildSpanStarts(children []*partition.Partitioning) (map[int]childSpan, []childInfo) {
	starts := map[int]childSpan{}
	infos := make([]childInfo, len(children))
	for ci, c := range children {
		spans := partition.JoinSpans(c.Positions.Elements())
		infos[ci] = childInfo{spans: spans, label: c.Label, hasLabel: c.Label != ""}
		for si, sp := range spans {
			starts[sp.Low] = childSpan{childIndex: ci, spanIndex: si, low: sp.Low, high: sp.High, label: c.Label, hasLabel: c.Label != ""}
		}
	}
	return starts, infos
}

func fringeSet(t gtree.Tree, id gtree.NodeID) map[int]bool {
	m := map[int]bool{}
	for _, p := range t.Fringe(id) {
		m[p] = true
	}
	return m
}

func spanSet(low, high int) map[int]bool {
	m := map[int]bool{}
	for i := low; i <= high; i++ {
		m[i] = true
	}
	return m
}

func setsEqual(a, b map[int]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func nameJoin(chunks []string) string {
	return strings.Join(chunks, "/")
}

func startRuleName() string { return "START" }

func startDCP() []symbol.DCPRule {
	return []symbol.DCPRule{{LHS: symbol.DCPVar{I: -1, J: 0}, RHS: []symbol.DCPElement{symbol.DCPVar{I: 0, J: 0}}}}
}

// AddStartRule wraps a top-level induced nonterminal in a fanout-1 START
// rule: START(<0,0>) -> start with DCP <-1,0> = <0,0>.
func AddStartRule(g *grammar.Grammar, inducedTop string) (*grammar.Rule, error) {
	args := []symbol.Arg{{symbol.LCFRSVar{I: 0, J: 0}}}
	return g.AddRule(startRuleName(), args, []string{inducedTop}, 1.0, startDCP())
}
