package grammar

import (
	"testing"

	"github.com/dekarrin/lcfrsdcp/symbol"
	"github.com/stretchr/testify/assert"
)

func arg(els ...symbol.ArgElement) symbol.Arg { return symbol.Arg(els) }

func Test_New_startUnsetUntilFirstRule(t *testing.T) {
	g := New()
	assert.Equal(t, "", g.Start())
}

func Test_WithStart_fixesStartUpFront(t *testing.T) {
	g := WithStart("S")
	assert.Equal(t, "S", g.Start())
}

func Test_AddRule(t *testing.T) {
	testCases := []struct {
		name      string
		setup     func(g *Grammar) error
		expectErr bool
	}{
		{
			name: "first rule fixes start",
			setup: func(g *Grammar) error {
				_, err := g.AddRule("S", []symbol.Arg{arg(symbol.LCFRSVar{I: 0, J: 0})}, []string{"A"}, 1.0, nil)
				return err
			},
			expectErr: false,
		},
		{
			name: "zero fanout rejected",
			setup: func(g *Grammar) error {
				_, err := g.AddRule("S", nil, nil, 1.0, nil)
				return err
			},
			expectErr: true,
		},
		{
			name: "fanout mismatch rejected",
			setup: func(g *Grammar) error {
				if _, err := g.AddRule("A", []symbol.Arg{arg(symbol.Terminal("a"))}, nil, 1.0, nil); err != nil {
					return err
				}
				_, err := g.AddRule("A", []symbol.Arg{arg(symbol.Terminal("a")), arg(symbol.Terminal("b"))}, nil, 1.0, nil)
				return err
			},
			expectErr: true,
		},
		{
			name: "start nonterminal must stay fanout 1",
			setup: func(g *Grammar) error {
				if _, err := g.AddRule("S", []symbol.Arg{arg(symbol.Terminal("a"))}, nil, 1.0, nil); err != nil {
					return err
				}
				_, err := g.AddRule("S", []symbol.Arg{arg(symbol.Terminal("a")), arg(symbol.Terminal("b"))}, nil, 1.0, nil)
				return err
			},
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := New()
			err := tc.setup(g)
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_AddRule_dedupAccumulatesWeight(t *testing.T) {
	g := New()
	r1, err := g.AddRule("A", []symbol.Arg{arg(symbol.Terminal("a"))}, nil, 1.0, nil)
	assert.NoError(t, err)
	r2, err := g.AddRule("A", []symbol.Arg{arg(symbol.Terminal("a"))}, nil, 2.0, nil)
	assert.NoError(t, err)

	assert.Same(t, r1, r2)
	assert.Equal(t, 3.0, r1.Weight)
	assert.Len(t, g.Rules(), 1)
}

func Test_AddRule_indices(t *testing.T) {
	g := New()
	_, err := g.AddRule("S", []symbol.Arg{arg(symbol.LCFRSVar{I: 0, J: 0})}, []string{"A"}, 1.0, nil)
	assert.NoError(t, err)
	_, err = g.AddRule("A", []symbol.Arg{arg(symbol.Terminal("cat"))}, nil, 1.0, nil)
	assert.NoError(t, err)

	assert.Len(t, g.EpsilonRules(), 1)
	assert.Len(t, g.LexRules("cat"), 1)
	assert.Len(t, g.RulesByFirstRHSNont("A"), 1)
	assert.Equal(t, g.RulesByFirstRHSNont("A"), g.NontCornerOf("A"))

	f, ok := g.Fanout("A")
	assert.True(t, ok)
	assert.Equal(t, 1, f)

	_, ok = g.Fanout("nope")
	assert.False(t, ok)
}

func Test_Rule_FirstTerminal(t *testing.T) {
	r := &Rule{Args: []symbol.Arg{arg(symbol.LCFRSVar{I: 0, J: 0}), arg(symbol.Terminal("x"))}}
	term, ok := r.FirstTerminal()
	assert.True(t, ok)
	assert.Equal(t, "x", term)

	r2 := &Rule{Args: []symbol.Arg{arg(symbol.LCFRSVar{I: 0, J: 0})}}
	_, ok = r2.FirstTerminal()
	assert.False(t, ok)
}

func Test_Rule_Key_excludesWeight(t *testing.T) {
	r1 := &Rule{LHS: "A", Args: []symbol.Arg{arg(symbol.Terminal("a"))}, Weight: 1.0}
	r2 := &Rule{LHS: "A", Args: []symbol.Arg{arg(symbol.Terminal("a"))}, Weight: 99.0}
	assert.Equal(t, r1.Key(), r2.Key())
}

func Test_MakeProper(t *testing.T) {
	g := New()
	_, _ = g.AddRule("A", []symbol.Arg{arg(symbol.Terminal("a"))}, nil, 1.0, nil)
	_, _ = g.AddRule("A", []symbol.Arg{arg(symbol.Terminal("b"))}, nil, 3.0, nil)

	g.MakeProper()

	var sum float64
	for _, r := range g.RulesForLHS("A") {
		sum += r.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func Test_AddGram_mergesAndAccumulates(t *testing.T) {
	g1 := New()
	_, _ = g1.AddRule("A", []symbol.Arg{arg(symbol.Terminal("a"))}, nil, 1.0, nil)

	g2 := New()
	_, _ = g2.AddRule("A", []symbol.Arg{arg(symbol.Terminal("a"))}, nil, 2.0, nil)
	_, _ = g2.AddRule("B", []symbol.Arg{arg(symbol.Terminal("b"))}, nil, 1.0, nil)

	err := g1.AddGram(g2)
	assert.NoError(t, err)
	assert.Len(t, g1.Rules(), 2)
	assert.Equal(t, 3.0, g1.RulesForLHS("A")[0].Weight)
}

func Test_WellFormed(t *testing.T) {
	testCases := []struct {
		name      string
		build     func() *Grammar
		expectErr bool
	}{
		{
			name: "well formed unary rule",
			build: func() *Grammar {
				g := New()
				_, _ = g.AddRule("A", []symbol.Arg{arg(symbol.Terminal("a"))}, nil, 1.0, nil)
				_, _ = g.AddRule("S", []symbol.Arg{arg(symbol.LCFRSVar{I: 0, J: 0})}, []string{"A"}, 1.0, nil)
				return g
			},
			expectErr: false,
		},
		{
			name: "unbound variable",
			build: func() *Grammar {
				g := New()
				_, _ = g.AddRule("S", []symbol.Arg{arg(symbol.Terminal("x"))}, []string{"A"}, 1.0, nil)
				_, _ = g.AddRule("A", []symbol.Arg{arg(symbol.Terminal("a"))}, nil, 1.0, nil)
				return g
			},
			expectErr: true,
		},
		{
			name: "reference to unknown nonterminal",
			build: func() *Grammar {
				g := New()
				_, _ = g.AddRule("S", []symbol.Arg{arg(symbol.LCFRSVar{I: 0, J: 0})}, []string{"Ghost"}, 1.0, nil)
				return g
			},
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := tc.build()
			err := g.WellFormed()
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
