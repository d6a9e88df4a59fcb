package induce

import (
	"fmt"
	"strings"

	"github.com/dekarrin/lcfrsdcp/grammar"
	"github.com/dekarrin/lcfrsdcp/gtree"
	"github.com/dekarrin/lcfrsdcp/ictierrors"
	"github.com/dekarrin/lcfrsdcp/labeling"
	"github.com/dekarrin/lcfrsdcp/partition"
	"github.com/dekarrin/lcfrsdcp/symbol"
)

// ConstituentInducer walks a constituent gtree.Tree together with a
// recursive partitioning of its yield, emitting LCFRS+DCP rules into a
// Grammar so that the grammar's best derivation re-derives the tree.
type ConstituentInducer struct {
	Tree     gtree.Tree
	Labeling labeling.Labeling
	Naming   NamingStrategy
	Grammar  *grammar.Grammar

	idYield []gtree.NodeID
}

// NewConstituentInducer builds an inducer over tree, labeling terminals
// with lab and naming nonterminals per naming, writing rules into g.
func NewConstituentInducer(tree gtree.Tree, lab labeling.Labeling, naming NamingStrategy, g *grammar.Grammar) *ConstituentInducer {
	return &ConstituentInducer{Tree: tree, Labeling: lab, Naming: naming, Grammar: g, idYield: tree.IDYield()}
}

// Induce runs the induction walk over root, adds a START wrapper rule,
// and returns the nonterminal the START rule rewrites to.
func (ind *ConstituentInducer) Induce(root *partition.Partitioning) (string, error) {
	if err := root.Validate(); err != nil {
		return "", ictierrors.WrapInductionViolation(err, "invalid partitioning")
	}
	top, err := ind.induceNode(root)
	if err != nil {
		return "", err
	}
	if _, err := AddStartRule(ind.Grammar, top); err != nil {
		return "", err
	}
	return top, nil
}

func (ind *ConstituentInducer) leafAt(pos int) gtree.NodeID {
	return ind.idYield[pos]
}

// induceNode induces rules for p and all its descendants (post-order),
// returning p's nonterminal name.
func (ind *ConstituentInducer) induceNode(p *partition.Partitioning) (string, error) {
	children := make([]childInfo, len(p.Children))
	for i, c := range p.Children {
		name, err := ind.induceNode(c)
		if err != nil {
			return "", err
		}
		children[i] = childInfo{nonterminal: name, spans: partition.JoinSpans(c.Positions.Elements()), label: c.Label, hasLabel: c.Label != ""}
	}

	if p.IsSingleton() && len(p.Children) == 0 {
		return ind.induceLexical(p, children)
	}

	starts, _ := buildChildSpanStarts(p.Children)
	// re-key starts by child index using children (already induced) names
	nameOf := make([]string, len(children))
	for i, c := range children {
		nameOf[i] = c.nonterminal
	}

	spans := partition.JoinSpans(p.Positions.Elements())
	args := make([]symbol.Arg, len(spans))
	argNameChunks := make([][]string, len(spans))
	posToK := map[int]int{}
	k := 0

	for si, sp := range spans {
		var arg symbol.Arg
		var chunks []string
		pos := sp.Low
		for pos <= sp.High {
			if cs, ok := starts[pos]; ok {
				arg = append(arg, symbol.LCFRSVar{I: cs.childIndex, J: cs.spanIndex})
				chunks = append(chunks, nameOf[cs.childIndex])
				pos = cs.high + 1
				continue
			}
			leaf := ind.leafAt(pos)
			tok := ind.Tree.NodeToken(leaf)
			arg = append(arg, symbol.Terminal(ind.Labeling.Label(tok, false)))
			label := tok.Category
			if label == "" {
				label = tok.POS
			}
			chunks = append(chunks, label)
			posToK[pos] = k
			k++
			pos++
		}
		args[si] = arg
		argNameChunks[si] = chunks
	}

	nontName := ind.name(p, children, spans, argNameChunks)

	dcpRules := make([]symbol.DCPRule, len(spans))
	for si, sp := range spans {
		rhs, err := ind.fringeTerms(ind.Tree.Root(), sp, p.Children, posToK)
		if err != nil {
			return "", err
		}
		dcpRules[si] = symbol.DCPRule{LHS: symbol.DCPVar{I: -1, J: si}, RHS: rhs}
	}

	rhsNonts := nameOf
	if _, err := ind.Grammar.AddRule(nontName, args, rhsNonts, 1.0, dcpRules); err != nil {
		return "", err
	}
	return nontName, nil
}

func (ind *ConstituentInducer) induceLexical(p *partition.Partitioning, _ []childInfo) (string, error) {
	pos := p.Positions.Elements()[0]
	leaf := ind.leafAt(pos)
	tok := ind.Tree.NodeToken(leaf)
	term := ind.Labeling.Label(tok, false)
	label := tok.Category
	if label == "" {
		label = tok.POS
	}
	name := label
	args := []symbol.Arg{{symbol.Terminal(term)}}
	idx := symbol.DCPIndex{K: 0, EdgeLabel: tok.EdgeLabel}
	dcp := []symbol.DCPRule{{
		LHS: symbol.DCPVar{I: -1, J: 0},
		RHS: []symbol.DCPElement{symbol.DCPTerm{HeadIndex: &idx}},
	}}
	if _, err := ind.Grammar.AddRule(name, args, nil, 1.0, dcp); err != nil {
		return "", err
	}
	return name, nil
}

// name computes p's nonterminal name per ind.Naming.
func (ind *ConstituentInducer) name(p *partition.Partitioning, children []childInfo, spans []partition.Span, strictChunks [][]string) string {
	argNames := make([]string, len(spans))
	for si := range spans {
		if ind.Naming == Child {
			if n, ok := ind.childrenOfName(p, spans[si]); ok {
				argNames[si] = n
				continue
			}
		}
		argNames[si] = nameJoin(strictChunks[si])
	}
	return fmt.Sprintf("%s/%d", strings.Join(argNames, "-"), len(spans))
}

// childrenOfName checks whether span is formed by exactly the full,
// contiguous set of children of one tree node, returning
// "children_of_<category>" if so.
func (ind *ConstituentInducer) childrenOfName(p *partition.Partitioning, span partition.Span) (string, bool) {
	var labels []gtree.NodeID
	for _, c := range p.Children {
		cSpans := partition.JoinSpans(c.Positions.Elements())
		for _, cs := range cSpans {
			if cs.Low >= span.Low && cs.High <= span.High {
				if c.Label == "" {
					return "", false
				}
				labels = append(labels, c.Label)
			}
		}
	}
	if len(labels) == 0 {
		return "", false
	}
	parent, ok := ind.Tree.Parent(labels[0])
	if !ok {
		return "", false
	}
	siblings := ind.Tree.Children(parent)
	if len(siblings) != len(labels) {
		return "", false
	}
	for i := range siblings {
		if siblings[i] != labels[i] {
			return "", false
		}
		if pp, ok := ind.Tree.Parent(labels[i]); !ok || pp != parent {
			return "", false
		}
	}
	return "children_of_" + ind.Tree.NodeToken(parent).Category, true
}

// fringeTerms builds the DCP RHS for the given span by walking the real
// tree from root: a node whose fringe exactly equals one child's span is
// replaced by a DCP_var; a leaf becomes a DCP_index; anything else whose
// fringe lies entirely within span is expanded into a DCP_term wrapping
// the (filtered) recursive results of its own tree children.
func (ind *ConstituentInducer) fringeTerms(nodeID gtree.NodeID, span partition.Span, children []*partition.Partitioning, posToK map[int]int) ([]symbol.DCPElement, error) {
	fr := fringeSet(ind.Tree, nodeID)
	inSpan := false
	for pos := range fr {
		if pos >= span.Low && pos <= span.High {
			inSpan = true
			break
		}
	}
	if !inSpan {
		return nil, nil
	}

	if ci, si, ok := matchingChildSpan(children, fr); ok {
		return []symbol.DCPElement{symbol.DCPVar{I: ci, J: si}}, nil
	}

	if ind.Tree.IsLeaf(nodeID) {
		pos := ind.Tree.LeafIndex(nodeID)
		k, ok := posToK[pos]
		if !ok {
			return nil, ictierrors.InductionViolation("no terminal slot recorded for leaf at position %d", pos)
		}
		tok := ind.Tree.NodeToken(nodeID)
		idx := symbol.DCPIndex{K: k, EdgeLabel: tok.EdgeLabel}
		return []symbol.DCPElement{symbol.DCPTerm{HeadIndex: &idx}}, nil
	}

	fullyInside := true
	for pos := range fr {
		if pos < span.Low || pos > span.High {
			fullyInside = false
			break
		}
	}

	var collected []symbol.DCPElement
	for _, kid := range ind.Tree.Children(nodeID) {
		sub, err := ind.fringeTerms(kid, span, children, posToK)
		if err != nil {
			return nil, err
		}
		collected = append(collected, sub...)
	}

	if !fullyInside {
		return collected, nil
	}

	tok := ind.Tree.NodeToken(nodeID)
	return []symbol.DCPElement{symbol.DCPTerm{Head: tok.Category, EdgeLabel: tok.EdgeLabel, Children: collected}}, nil
}

func matchingChildSpan(children []*partition.Partitioning, fringe map[int]bool) (int, int, bool) {
	for ci, c := range children {
		spans := partition.JoinSpans(c.Positions.Elements())
		for si, sp := range spans {
			if setsEqual(fringe, spanSet(sp.Low, sp.High)) {
				return ci, si, true
			}
		}
	}
	return 0, 0, false
}
