// Package eval implements the DCP evaluator: given a successful chart
// derivation, it resolves the start rule's attribute 0 by a top-down,
// demand-driven walk carrying a stack of ancestor frames for inherited
// attribute lookups, then folds the resulting DCP_term/DCP_pos values
// into a hybridtree.Tree. Because chart.DerivationNode already carries
// each rule's concrete, matched Ranges (the chart parser computed them
// while parsing), a separate post-order span-augmentation pass over an
// abstract derivation is unnecessary here -- the spans are already
// attached (see DESIGN.md).
package eval

import (
	"fmt"

	"github.com/dekarrin/lcfrsdcp/chart"
	"github.com/dekarrin/lcfrsdcp/hybridtree"
	"github.com/dekarrin/lcfrsdcp/ictierrors"
	"github.com/dekarrin/lcfrsdcp/symbol"
)

// Value is one resolved DCP output value: a TermValue (an internal
// output node, category- or position-headed) or a PosValue (a resolved
// leaf position).
type Value interface{ isValue() }

// TermValue is an internal output node. Exactly one of Head/HeadPos is
// meaningful: Head for a constituent category, HeadPos when the term's
// own head names a resolved terminal position (the dependency/leaf
// shape DCP_term(DCP_index(k,edge), children)).
type TermValue struct {
	Head      string
	HeadPos   *PosValue
	EdgeLabel string
	Children  []Value
}

func (TermValue) isValue() {}

// PosValue is a resolved DCP_index: an absolute input position plus the
// edge label carried through from the rule that consumed it.
type PosValue struct {
	Pos       int
	EdgeLabel string
}

func (PosValue) isValue() {}

// frame is one node of the ancestor-frame stack: the derivation node
// being evaluated, its parent frame, and its index among the parent's
// RHS children (used to resolve DCP_var(-1,a) inherited lookups).
type frame struct {
	node          *chart.DerivationNode
	parent        *frame
	indexInParent int
	children      []*frame
}

func (f *frame) child(i int) *frame {
	if f.children == nil {
		f.children = make([]*frame, len(f.node.Children))
	}
	if f.children[i] == nil {
		f.children[i] = &frame{node: f.node.Children[i], parent: f, indexInParent: i}
	}
	return f.children[i]
}

// Evaluator computes DCP attributes over one derivation.
type Evaluator struct {
	root    *frame
	visited map[string]bool
}

// New builds an Evaluator for a successful parse's derivation tree.
func New(root *chart.DerivationNode) *Evaluator {
	return &Evaluator{root: &frame{node: root}, visited: map[string]bool{}}
}

// Eval resolves the start rule's attribute 0, returning the resulting
// output values (ordinarily exactly one: the whole output tree's top).
func (e *Evaluator) Eval() ([]Value, error) {
	e.visited = map[string]bool{}
	return e.evalLHS(e.root, -1, 0)
}

// evalLHS finds, in frame f's own node.Rule.DCP, the rule whose LHS is
// DCP_var(i,a) and evaluates its RHS in f. i == -1 resolves f's own
// synthesized attribute; i >= 0 (only meaningful when f is a PARENT
// frame being asked to define a child's formal parameter) resolves
// what f's rule bound for that child's inherited attribute a.
func (e *Evaluator) evalLHS(f *frame, i, a int) ([]Value, error) {
	visitKey := fmt.Sprintf("%p:%d:%d", f.node, i, a)
	if e.visited[visitKey] {
		return nil, ictierrors.EvaluationFailure("cyclic DCP attribute reference at <%d,%d>", i, a)
	}
	e.visited[visitKey] = true
	defer delete(e.visited, visitKey)

	for _, dr := range f.node.Rule.DCP {
		if dr.LHS.I == i && dr.LHS.J == a {
			return e.evalElements(f, dr.RHS)
		}
	}
	return nil, ictierrors.EvaluationFailure("no DCP rule defines attribute <%d,%d> of %s", i, a, f.node.Rule.LHS)
}

func (e *Evaluator) evalElements(f *frame, els []symbol.DCPElement) ([]Value, error) {
	var out []Value
	for _, el := range els {
		vs, err := e.evalElement(f, el)
		if err != nil {
			return nil, err
		}
		out = append(out, vs...)
	}
	return out, nil
}

func (e *Evaluator) evalElement(f *frame, el symbol.DCPElement) ([]Value, error) {
	switch x := el.(type) {
	case symbol.DCPTerm:
		children, err := e.evalElements(f, x.Children)
		if err != nil {
			return nil, err
		}
		if x.HeadIndex != nil {
			pos, err := e.evalIndex(f, *x.HeadIndex)
			if err != nil {
				return nil, err
			}
			return []Value{TermValue{HeadPos: &pos, EdgeLabel: x.EdgeLabel, Children: children}}, nil
		}
		return []Value{TermValue{Head: x.Head, EdgeLabel: x.EdgeLabel, Children: children}}, nil

	case symbol.DCPVar:
		if x.I == -1 {
			if f.parent == nil {
				return nil, ictierrors.EvaluationFailure("attribute <-1,%d> referenced with no parent frame", x.J)
			}
			return e.evalLHS(f.parent, f.indexInParent, x.J)
		}
		if x.I >= len(f.node.Children) {
			return nil, ictierrors.EvaluationFailure("DCP_var references child %d but rule has %d RHS nonterminals", x.I, len(f.node.Children))
		}
		return e.evalLHS(f.child(x.I), -1, x.J)

	case symbol.DCPIndex:
		pos, err := e.evalIndex(f, x)
		if err != nil {
			return nil, err
		}
		return []Value{pos}, nil

	default:
		return nil, ictierrors.EvaluationFailure("unexpected DCP element %T in rule %s", el, f.node.Rule.LHS)
	}
}

// evalIndex resolves a DCP_index(k, edge) against f's node: the k-th
// terminal consumed scanning f.node.Rule.Args left to right, its actual
// input position taken from f.node.Ranges (the chart's matched range
// for that arg, offset by how much of the arg precedes k). A preceding
// LCFRS_var contributes the length of the span its child actually
// matched, not one position -- an arg mixing literal terminals with
// variables (e.g. "a <0,0> b") only gets the right offset for a
// terminal following the variable if the variable's own match length is
// counted, not skipped.
func (e *Evaluator) evalIndex(f *frame, idx symbol.DCPIndex) (PosValue, error) {
	count := 0
	for ai, arg := range f.node.Rule.Args {
		offset := 0
		for _, el := range arg {
			switch x := el.(type) {
			case symbol.Terminal:
				if count == idx.K {
					if ai >= len(f.node.Ranges) {
						return PosValue{}, ictierrors.EvaluationFailure("DCP_index(%d) out of range for rule %s", idx.K, f.node.Rule.LHS)
					}
					return PosValue{Pos: f.node.Ranges[ai].Low + offset, EdgeLabel: idx.EdgeLabel}, nil
				}
				count++
				offset++
			case symbol.LCFRSVar:
				if x.I >= len(f.node.Children) {
					return PosValue{}, ictierrors.EvaluationFailure("LCFRS_var <%d,%d> references child %d but rule has %d RHS nonterminals", x.I, x.J, x.I, len(f.node.Children))
				}
				childRanges := f.node.Children[x.I].Ranges
				if x.J >= len(childRanges) {
					return PosValue{}, ictierrors.EvaluationFailure("LCFRS_var <%d,%d> out of range: child %d has %d ranges", x.I, x.J, x.I, len(childRanges))
				}
				r := childRanges[x.J]
				offset += r.High - r.Low
			}
		}
	}
	return PosValue{}, ictierrors.EvaluationFailure("DCP_index(%d) has no matching terminal in rule %s", idx.K, f.node.Rule.LHS)
}

// Fold turns the evaluator's output values into a hybridtree.Tree,
// resolving each PosValue against tokens (indexed by input position)
// and appending any position tokens never reaches as disconnected
// leaves so the full yield is preserved.
func Fold(values []Value, tokens []hybridtree.Token) (*hybridtree.Tree, error) {
	t := hybridtree.New(len(tokens))
	if len(values) != 1 {
		return nil, ictierrors.EvaluationFailure("expected exactly one top-level DCP value, got %d", len(values))
	}
	root, err := foldValue(t, values[0], tokens)
	if err != nil {
		return nil, err
	}
	t.SetRoot(root)
	for _, pos := range t.Unreached() {
		t.MarkDisconnected(tokens[pos])
	}
	return t, nil
}

func foldValue(t *hybridtree.Tree, v Value, tokens []hybridtree.Token) (hybridtree.NodeID, error) {
	switch x := v.(type) {
	case PosValue:
		tok := tokens[x.Pos]
		if x.EdgeLabel != "" {
			tok.EdgeLabel = x.EdgeLabel
		}
		return t.NewLeaf(tok), nil
	case TermValue:
		var id hybridtree.NodeID
		if x.HeadPos != nil {
			tok := tokens[x.HeadPos.Pos]
			if x.HeadPos.EdgeLabel != "" {
				tok.EdgeLabel = x.HeadPos.EdgeLabel
			}
			id = t.NewLeaf(tok)
		} else {
			id = t.NewInternal(x.Head, x.EdgeLabel)
		}
		for _, c := range x.Children {
			cid, err := foldValue(t, c, tokens)
			if err != nil {
				return 0, err
			}
			t.Attach(id, cid)
		}
		return id, nil
	default:
		return 0, ictierrors.EvaluationFailure("unknown DCP value type %T", v)
	}
}
