package textgrammar

import (
	"strings"
	"testing"

	"github.com/dekarrin/lcfrsdcp/grammar"
	"github.com/dekarrin/lcfrsdcp/symbol"
	"github.com/stretchr/testify/assert"
)

func Test_WriteRead_roundTrip(t *testing.T) {
	g := grammar.WithStart("START")

	_, err := g.AddRule("NP", []symbol.Arg{{symbol.Terminal("Piet")}}, nil, 1.0, []symbol.DCPRule{
		{LHS: symbol.DCPVar{I: -1, J: 0}, RHS: []symbol.DCPElement{symbol.DCPTerm{HeadIndex: &symbol.DCPIndex{K: 0}}}},
	})
	assert.NoError(t, err)

	_, err = g.AddRule("VP", []symbol.Arg{{symbol.Terminal("helpt")}}, nil, 1.0, []symbol.DCPRule{
		{LHS: symbol.DCPVar{I: -1, J: 0}, RHS: []symbol.DCPElement{symbol.DCPTerm{HeadIndex: &symbol.DCPIndex{K: 0}}}},
	})
	assert.NoError(t, err)

	// S's single argument is a concatenation of NP's and VP's spans: one
	// Arg with two elements, which is where the whitespace-in-args bug
	// used to break parseRuleLine.
	_, err = g.AddRule("S",
		[]symbol.Arg{{symbol.LCFRSVar{I: 0, J: 0}, symbol.LCFRSVar{I: 1, J: 0}}},
		[]string{"NP", "VP"}, 2.5, []symbol.DCPRule{
			{LHS: symbol.DCPVar{I: -1, J: 0}, RHS: []symbol.DCPElement{symbol.DCPTerm{
				Head:     "S",
				Children: []symbol.DCPElement{symbol.DCPVar{I: 0, J: 0}, symbol.DCPVar{I: 1, J: 0}},
			}}},
		})
	assert.NoError(t, err)

	_, err = g.AddRule("START", []symbol.Arg{{symbol.LCFRSVar{I: 0, J: 0}}}, []string{"S"}, 1.0, nil)
	assert.NoError(t, err)

	var buf strings.Builder
	assert.NoError(t, Write(&buf, g))

	got, err := Read(strings.NewReader(buf.String()))
	assert.NoError(t, err)

	assert.Equal(t, "START", got.Start())
	assert.NoError(t, got.WellFormed())
	assert.Len(t, got.Rules(), 4)

	sRules := got.RulesForLHS("S")
	assert.Len(t, sRules, 1)
	assert.Equal(t, 2.5, sRules[0].Weight)
	assert.Equal(t, []string{"NP", "VP"}, sRules[0].RHS)
	assert.Len(t, sRules[0].Args, 1)
	assert.Len(t, sRules[0].Args[0], 2)
	assert.Equal(t, symbol.LCFRSVar{I: 0, J: 0}, sRules[0].Args[0][0])
	assert.Equal(t, symbol.LCFRSVar{I: 1, J: 0}, sRules[0].Args[0][1])
	assert.Len(t, sRules[0].DCP, 1)

	assert.NotEmpty(t, got.LexRules("Piet"))
	assert.NotEmpty(t, got.LexRules("helpt"))
}

func Test_Read_defaultWeight(t *testing.T) {
	src := "NP(Piet) -> \n"
	g, err := Read(strings.NewReader(src))
	assert.NoError(t, err)
	rules := g.RulesForLHS("NP")
	assert.Len(t, rules, 1)
	assert.Equal(t, 1.0, rules[0].Weight)
}

func Test_Read_dcpLineWithNoPrecedingRule(t *testing.T) {
	src := ":: <0>=[0]\n"
	_, err := Read(strings.NewReader(src))
	assert.Error(t, err)
}

func Test_Read_malformedRuleLine(t *testing.T) {
	testCases := []struct {
		name string
		line string
	}{
		{"no paren", "NP Piet -> \n"},
		{"unterminated args", "NP(Piet -> \n"},
		{"missing arrow", "NP(Piet) \n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tc.line))
			assert.Error(t, err)
		})
	}
}

func Test_parseLCFRSVarAsDCP(t *testing.T) {
	v, err := parseLCFRSVarAsDCP("<3>")
	assert.NoError(t, err)
	assert.Equal(t, symbol.DCPVar{I: -1, J: 3}, v)

	v, err = parseLCFRSVarAsDCP("<1,2>")
	assert.NoError(t, err)
	assert.Equal(t, symbol.DCPVar{I: 1, J: 2}, v)

	_, err = parseLCFRSVarAsDCP("<1,2,3>")
	assert.Error(t, err)

	_, err = parseLCFRSVarAsDCP("1,2")
	assert.Error(t, err)
}

func Test_parseDCPLHS(t *testing.T) {
	v, err := parseDCPLHS("<4>")
	assert.NoError(t, err)
	assert.Equal(t, symbol.DCPVar{I: -1, J: 4}, v)

	v, err = parseDCPLHS("7")
	assert.NoError(t, err)
	assert.Equal(t, symbol.DCPVar{I: -1, J: 7}, v)

	_, err = parseDCPLHS("not-a-number")
	assert.Error(t, err)
}

func Test_parseTerm_bareIdent(t *testing.T) {
	toks := tokenizeTerms("NP")
	el, next, err := parseTerm(toks, 0, len(toks))
	assert.NoError(t, err)
	assert.Equal(t, len(toks), next)
	assert.Equal(t, symbol.DCPTerm{Head: "NP"}, el)
}

func Test_parseTerm_headedWithChildren(t *testing.T) {
	toks := tokenizeTerms("S(<0,0> <1,0>)")
	el, next, err := parseTerm(toks, 0, len(toks))
	assert.NoError(t, err)
	assert.Equal(t, len(toks), next)

	term, ok := el.(symbol.DCPTerm)
	assert.True(t, ok)
	assert.Equal(t, "S", term.Head)
	assert.Equal(t, []symbol.DCPElement{
		symbol.DCPVar{I: 0, J: 0},
		symbol.DCPVar{I: 1, J: 0},
	}, term.Children)
}

// Test_parseTerm_edgeLabelRoundTrip covers the "Head:EdgeLabel" form
// DCPTerm.String() renders for a bare-head term carrying an edge label:
// parseTerm must split it back into Head and EdgeLabel rather than
// treating the whole colon-joined token as the head.
func Test_parseTerm_edgeLabelRoundTrip(t *testing.T) {
	term := symbol.DCPTerm{Head: "NP", EdgeLabel: "subj", Children: []symbol.DCPElement{
		symbol.DCPVar{I: 0, J: 0},
	}}
	rendered := term.String()

	toks := tokenizeTerms(rendered)
	el, next, err := parseTerm(toks, 0, len(toks))
	assert.NoError(t, err)
	assert.Equal(t, len(toks), next)
	assert.Equal(t, term, el)
}

func Test_parseTerm_indexHeadedWithChildren(t *testing.T) {
	toks := tokenizeTerms("[1](<0,0>)")
	el, next, err := parseTerm(toks, 0, len(toks))
	assert.NoError(t, err)
	assert.Equal(t, len(toks), next)

	term, ok := el.(symbol.DCPTerm)
	assert.True(t, ok)
	assert.NotNil(t, term.HeadIndex)
	assert.Equal(t, 1, term.HeadIndex.K)
	assert.Equal(t, []symbol.DCPElement{symbol.DCPVar{I: 0, J: 0}}, term.Children)
}

func Test_parseTerm_bareIndex(t *testing.T) {
	toks := tokenizeTerms("[2]")
	el, _, err := parseTerm(toks, 0, len(toks))
	assert.NoError(t, err)
	assert.Equal(t, symbol.DCPIndex{K: 2}, el)
}

func Test_parseDCPRules_multipleSeparatedBySemicolon(t *testing.T) {
	rules, err := parseDCPRules("<0>=[0]; <1>=NP([0])")
	assert.NoError(t, err)
	assert.Len(t, rules, 2)
	assert.Equal(t, symbol.DCPVar{I: -1, J: 0}, rules[0].LHS)
	assert.Equal(t, symbol.DCPVar{I: -1, J: 1}, rules[1].LHS)
}

func Test_latin1Reader_widensHighBytes(t *testing.T) {
	// 0xE9 is Latin-1 'e with acute accent', which widens to two UTF-8
	// bytes (0xC3 0xA9) rather than passing through as a single byte.
	r := &latin1Reader{r: strings.NewReader("caf\xe9")}
	out := make([]byte, 0, 8)
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			break
		}
	}
	assert.Equal(t, "café", string(out))
}
