package induce

import (
	"fmt"

	"github.com/dekarrin/lcfrsdcp/grammar"
	"github.com/dekarrin/lcfrsdcp/gtree"
	"github.com/dekarrin/lcfrsdcp/ictierrors"
	"github.com/dekarrin/lcfrsdcp/labeling"
	"github.com/dekarrin/lcfrsdcp/partition"
	"github.com/dekarrin/lcfrsdcp/symbol"
)

// DependencyInducer induces LCFRS+DCP rules from a dependency gtree.Tree,
// using each induced nonterminal's single exposed top (its governing
// head, the top_max member) as attribute 0, and a single bundled
// inherited attribute 0 collecting whichever of the head's dependents
// still lie outside the partitioning node's own position set (its
// bottom_max). This is the common, CFG/fanout-1 case worked in the
// spec's dependency scenario; richer multi-component top_max/bottom_max
// grouping for cross-serial dependency fragments is not attempted (see
// DESIGN.md).
type DependencyInducer struct {
	Tree     gtree.Tree
	Labeling labeling.Labeling
	Grammar  *grammar.Grammar

	idYield []gtree.NodeID
}

func NewDependencyInducer(tree gtree.Tree, lab labeling.Labeling, g *grammar.Grammar) *DependencyInducer {
	return &DependencyInducer{Tree: tree, Labeling: lab, Grammar: g, idYield: tree.IDYield()}
}

type depNode struct {
	nonterminal  string
	head         gtree.NodeID
	hasInherited bool
}

// Induce runs the induction walk over root and wraps the result in a
// START rule.
func (ind *DependencyInducer) Induce(root *partition.Partitioning) (string, error) {
	if err := root.Validate(); err != nil {
		return "", ictierrors.WrapInductionViolation(err, "invalid partitioning")
	}
	info, err := ind.induceNode(root)
	if err != nil {
		return "", err
	}
	if info.hasInherited {
		return "", ictierrors.InductionViolation("root nonterminal %s still has an unresolved inherited attribute", info.nonterminal)
	}
	if _, err := AddStartRule(ind.Grammar, info.nonterminal); err != nil {
		return "", err
	}
	return info.nonterminal, nil
}

func (ind *DependencyInducer) induceNode(p *partition.Partitioning) (depNode, error) {
	if p.IsSingleton() && len(p.Children) == 0 {
		return ind.induceLexical(p)
	}

	positions := p.Positions
	children := make([]depNode, len(p.Children))
	for i, c := range p.Children {
		info, err := ind.induceNode(c)
		if err != nil {
			return depNode{}, err
		}
		children[i] = info
	}

	headOwner := -1
	for j, c := range children {
		if parent, ok := ind.Tree.Parent(c.head); !ok || !positions.Has(ind.Tree.LeafIndex(parent)) {
			headOwner = j
			break
		}
	}
	if headOwner == -1 {
		return depNode{}, ictierrors.InductionViolation("no exposed head found among children of partitioning node covering %s", positions.StringOrdered())
	}

	var dcpRules []symbol.DCPRule
	ownInherited := false

	for j, c := range children {
		if !c.hasInherited {
			continue
		}
		// Only the dependents of c.head that c's OWN rule left
		// unresolved (those outside c's own span) are still open here;
		// anything inside c's own span was already bound by c's rule.
		childSpan := p.Children[j].Positions
		deps := ind.Tree.Children(c.head)
		var rhs []symbol.DCPElement
		anyOutside := false
		for _, d := range deps {
			dpos := ind.Tree.LeafIndex(d)
			if childSpan.Has(dpos) {
				continue
			}
			if !positions.Has(dpos) {
				anyOutside = true
				continue
			}
			k := findCoveringChild(p.Children, dpos)
			if k == -1 || k == j {
				return depNode{}, ictierrors.InductionViolation("dependent at position %d of head %v not covered by any sibling", dpos, c.head)
			}
			rhs = append(rhs, symbol.DCPVar{I: k, J: 0})
		}
		if anyOutside {
			ownInherited = true
			rhs = append(rhs, symbol.DCPVar{I: -1, J: 0})
		}
		dcpRules = append(dcpRules, symbol.DCPRule{LHS: symbol.DCPVar{I: j, J: 0}, RHS: rhs})
	}

	dcpRules = append(dcpRules, symbol.DCPRule{
		LHS: symbol.DCPVar{I: -1, J: 0},
		RHS: []symbol.DCPElement{symbol.DCPVar{I: headOwner, J: 0}},
	})

	starts, _ := buildChildSpanStarts(p.Children)
	spans := partition.JoinSpans(positions.Elements())
	args := make([]symbol.Arg, len(spans))
	for si, sp := range spans {
		var arg symbol.Arg
		pos := sp.Low
		for pos <= sp.High {
			cs, ok := starts[pos]
			if !ok {
				return depNode{}, ictierrors.InductionViolation("position %d in non-leaf partitioning node not covered by any child", pos)
			}
			arg = append(arg, symbol.LCFRSVar{I: cs.childIndex, J: cs.spanIndex})
			pos = cs.high + 1
		}
		args[si] = arg
	}

	rhsNonts := make([]string, len(children))
	for i, c := range children {
		rhsNonts[i] = c.nonterminal
	}

	head := children[headOwner].head
	tok := ind.Tree.NodeToken(head)
	name := fmt.Sprintf("%s/%d", tok.Category, len(spans))
	if ownInherited {
		name += "*"
	}

	if _, err := ind.Grammar.AddRule(name, args, rhsNonts, 1.0, dcpRules); err != nil {
		return depNode{}, err
	}

	return depNode{nonterminal: name, head: head, hasInherited: ownInherited}, nil
}

func (ind *DependencyInducer) induceLexical(p *partition.Partitioning) (depNode, error) {
	pos := p.Positions.Elements()[0]
	id := ind.idYield[pos]
	tok := ind.Tree.NodeToken(id)
	term := ind.Labeling.Label(tok, false)

	deps := ind.Tree.Children(id)
	hasInherited := len(deps) > 0

	idx := symbol.DCPIndex{K: 0, EdgeLabel: tok.EdgeLabel}
	var termChildren []symbol.DCPElement
	if hasInherited {
		termChildren = []symbol.DCPElement{symbol.DCPVar{I: -1, J: 0}}
	}

	name := tok.POS
	if name == "" {
		name = tok.Category
	}
	if hasInherited {
		name += "*"
	}

	args := []symbol.Arg{{symbol.Terminal(term)}}
	dcp := []symbol.DCPRule{{
		LHS: symbol.DCPVar{I: -1, J: 0},
		RHS: []symbol.DCPElement{symbol.DCPTerm{HeadIndex: &idx, Children: termChildren}},
	}}
	if _, err := ind.Grammar.AddRule(name, args, nil, 1.0, dcp); err != nil {
		return depNode{}, err
	}
	return depNode{nonterminal: name, head: id, hasInherited: hasInherited}, nil
}

func findCoveringChild(children []*partition.Partitioning, pos int) int {
	for i, c := range children {
		if c.Positions.Has(pos) {
			return i
		}
	}
	return -1
}
