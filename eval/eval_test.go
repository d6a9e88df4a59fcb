package eval

import (
	"testing"

	"github.com/dekarrin/lcfrsdcp/chart"
	"github.com/dekarrin/lcfrsdcp/grammar"
	"github.com/dekarrin/lcfrsdcp/hybridtree"
	"github.com/dekarrin/lcfrsdcp/ictierrors"
	"github.com/dekarrin/lcfrsdcp/symbol"
	"github.com/stretchr/testify/assert"
)

func lexicalRule(lhs, term string) *grammar.Rule {
	return &grammar.Rule{
		LHS:  lhs,
		Args: []symbol.Arg{{symbol.Terminal(term)}},
		DCP: []symbol.DCPRule{{
			LHS: symbol.DCPVar{I: -1, J: 0},
			RHS: []symbol.DCPElement{symbol.DCPTerm{HeadIndex: &symbol.DCPIndex{K: 0}}},
		}},
	}
}

// buildDerivation builds START -> S(NP VP) over "Piet helpt", with the
// DCP wiring package induce emits for a constituent rule.
func buildDerivation() *chart.DerivationNode {
	npRule := lexicalRule("NP", "Piet")
	vpRule := lexicalRule("VP", "helpt")
	sRule := &grammar.Rule{
		LHS:  "S",
		Args: []symbol.Arg{{symbol.LCFRSVar{I: 0, J: 0}, symbol.LCFRSVar{I: 1, J: 0}}},
		RHS:  []string{"NP", "VP"},
		DCP: []symbol.DCPRule{{
			LHS: symbol.DCPVar{I: -1, J: 0},
			RHS: []symbol.DCPElement{symbol.DCPTerm{Head: "S", Children: []symbol.DCPElement{
				symbol.DCPVar{I: 0, J: 0}, symbol.DCPVar{I: 1, J: 0},
			}}},
		}},
	}
	startRule := &grammar.Rule{
		LHS:  "START",
		Args: []symbol.Arg{{symbol.LCFRSVar{I: 0, J: 0}}},
		RHS:  []string{"S"},
		DCP: []symbol.DCPRule{{
			LHS: symbol.DCPVar{I: -1, J: 0},
			RHS: []symbol.DCPElement{symbol.DCPVar{I: 0, J: 0}},
		}},
	}

	npNode := &chart.DerivationNode{Rule: npRule, Ranges: []chart.Range{{Low: 0, High: 1}}}
	vpNode := &chart.DerivationNode{Rule: vpRule, Ranges: []chart.Range{{Low: 1, High: 2}}}
	sNode := &chart.DerivationNode{Rule: sRule, Ranges: []chart.Range{{Low: 0, High: 2}}, Children: []*chart.DerivationNode{npNode, vpNode}}
	return &chart.DerivationNode{Rule: startRule, Ranges: []chart.Range{{Low: 0, High: 2}}, Children: []*chart.DerivationNode{sNode}}
}

func Test_Evaluator_Eval(t *testing.T) {
	root := buildDerivation()
	ev := New(root)

	values, err := ev.Eval()
	assert.NoError(t, err)
	assert.Len(t, values, 1)

	top, ok := values[0].(TermValue)
	assert.True(t, ok)
	assert.Equal(t, "S", top.Head)
	assert.Len(t, top.Children, 2)

	left, ok := top.Children[0].(TermValue)
	assert.True(t, ok)
	assert.Equal(t, 0, left.HeadPos.Pos)

	right, ok := top.Children[1].(TermValue)
	assert.True(t, ok)
	assert.Equal(t, 1, right.HeadPos.Pos)
}

func Test_Eval_and_Fold(t *testing.T) {
	root := buildDerivation()
	values, err := New(root).Eval()
	assert.NoError(t, err)

	tokens := []hybridtree.Token{
		{Pos: 0, Form: "Piet"},
		{Pos: 1, Form: "helpt"},
	}
	tree, err := Fold(values, tokens)
	assert.NoError(t, err)

	spans := tree.LabelledSpans()
	assert.Equal(t, []hybridtree.LabelledSpan{{Label: "S", Low: 0, High: 1}}, spans)
	assert.Empty(t, tree.Unreached())
}

func Test_Evaluator_Eval_missingAttribute(t *testing.T) {
	badRule := &grammar.Rule{LHS: "X", Args: []symbol.Arg{{symbol.Terminal("x")}}}
	node := &chart.DerivationNode{Rule: badRule, Ranges: []chart.Range{{Low: 0, High: 1}}}

	_, err := New(node).Eval()
	assert.Error(t, err)
	assert.Equal(t, ictierrors.KindEvaluationFailure, ictierrors.Kind(err))
}

func Test_Evaluator_Eval_childIndexOutOfRange(t *testing.T) {
	rule := &grammar.Rule{
		LHS: "X",
		DCP: []symbol.DCPRule{{
			LHS: symbol.DCPVar{I: -1, J: 0},
			RHS: []symbol.DCPElement{symbol.DCPVar{I: 5, J: 0}},
		}},
	}
	node := &chart.DerivationNode{Rule: rule}

	_, err := New(node).Eval()
	assert.Error(t, err)
	assert.Equal(t, ictierrors.KindEvaluationFailure, ictierrors.Kind(err))
}

func Test_Fold_wrongValueCount(t *testing.T) {
	_, err := Fold(nil, nil)
	assert.Error(t, err)

	_, err = Fold([]Value{TermValue{Head: "A"}, TermValue{Head: "B"}}, nil)
	assert.Error(t, err)
}

// Test_evalIndex_termAfterVariable covers an arg that mixes literal
// terminals with an LCFRS variable, S(a <0,0> b) -> A, where A's own
// match spans two input positions rather than one: a DCP_index past the
// variable must offset by the variable's actual matched span length,
// not by one position per preceding arg element.
func Test_evalIndex_termAfterVariable(t *testing.T) {
	child := &chart.DerivationNode{Rule: &grammar.Rule{LHS: "A"}, Ranges: []chart.Range{{Low: 1, High: 3}}}
	sRule := &grammar.Rule{
		LHS:  "S",
		Args: []symbol.Arg{{symbol.Terminal("a"), symbol.LCFRSVar{I: 0, J: 0}, symbol.Terminal("b")}},
		RHS:  []string{"A"},
	}
	node := &chart.DerivationNode{Rule: sRule, Ranges: []chart.Range{{Low: 0, High: 4}}, Children: []*chart.DerivationNode{child}}
	ev := New(node)

	pos, err := ev.evalIndex(ev.root, symbol.DCPIndex{K: 0})
	assert.NoError(t, err)
	assert.Equal(t, 0, pos.Pos)

	pos, err = ev.evalIndex(ev.root, symbol.DCPIndex{K: 1})
	assert.NoError(t, err)
	assert.Equal(t, 3, pos.Pos)
}
