// Package grammar holds the LCFRS+DCP rule representation and the
// Grammar store: a rule set plus the indices the chart parser and
// inducer need (fanout table, rules-by-first-RHS-nonterminal,
// lexical-rules-by-first-terminal, epsilon rules, and a dedup map keyed
// by a canonical rule text so that re-adding an equal rule accumulates
// weight instead of duplicating).
package grammar

import (
	"fmt"
	"strings"

	"github.com/dekarrin/lcfrsdcp/ictierrors"
	"github.com/dekarrin/lcfrsdcp/symbol"
)

// Rule is one LCFRS production synchronized with its DCP term-building
// rules. Fanout is len(Args). RHS holds the rule's right-hand-side
// nonterminals in order; a rule with an empty RHS is a lexical/epsilon
// rule whose Args contain only terminals.
type Rule struct {
	ID     int
	LHS    string
	Args   []symbol.Arg
	RHS    []string
	Weight float64
	DCP    []symbol.DCPRule
}

// Fanout is the number of LCFRS string components this rule's LHS
// produces.
func (r *Rule) Fanout() int { return len(r.Args) }

// FirstTerminal returns the first literal terminal encountered scanning
// Args left to right, top to bottom, and true; or "" and false if the
// rule has no terminal at all.
func (r *Rule) FirstTerminal() (string, bool) {
	for _, arg := range r.Args {
		for _, el := range arg {
			if t, ok := el.(symbol.Terminal); ok {
				return string(t), true
			}
		}
	}
	return "", false
}

// Key is the canonical textual form two rules must share to be
// considered equal for dedup purposes: LHS, args, RHS nonterminals, and
// DCP rules must all match (weight is deliberately excluded).
func (r *Rule) Key() string {
	argParts := make([]string, len(r.Args))
	for i, a := range r.Args {
		argParts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)->%s::%s",
		r.LHS,
		strings.Join(argParts, ";"),
		strings.Join(r.RHS, " "),
		symbol.DCPRulesKey(r.DCP))
}

func (r *Rule) String() string {
	argParts := make([]string, len(r.Args))
	for i, a := range r.Args {
		argParts[i] = a.String()
	}
	return fmt.Sprintf("%.4f %s(%s) -> %s", r.Weight, r.LHS, strings.Join(argParts, "; "), strings.Join(r.RHS, " "))
}

// Grammar is a rule store plus the indices needed for induction and
// parsing. The zero value is not usable; construct with New.
type Grammar struct {
	start string

	byKey           map[string]*Rule
	all             []*Rule
	fanout          map[string]int
	byLHS           map[string][]*Rule
	byFirstRHSNont  map[string][]*Rule
	byFirstTerminal map[string][]*Rule
	epsilon         []*Rule
}

// New constructs an empty Grammar. The start symbol is fixed by whichever
// rule is added first, unless WithStart is used.
func New() *Grammar {
	return &Grammar{
		byKey:           map[string]*Rule{},
		fanout:          map[string]int{},
		byLHS:           map[string][]*Rule{},
		byFirstRHSNont:  map[string][]*Rule{},
		byFirstTerminal: map[string][]*Rule{},
	}
}

// WithStart fixes the start symbol at construction time instead of
// leaving it to be set by the first added rule.
func WithStart(start string) *Grammar {
	g := New()
	g.start = start
	return g
}

// Start returns the grammar's start nonterminal, or "" if no rule has
// been added yet and none was fixed at construction.
func (g *Grammar) Start() string { return g.start }

// AddRule adds a rule to the grammar, or, if an equal rule (same Key())
// already exists, adds weight to the existing rule instead of
// duplicating it. Returns the stored *Rule (new or pre-existing).
func (g *Grammar) AddRule(lhs string, args []symbol.Arg, rhsNonts []string, weight float64, dcp []symbol.DCPRule) (*Rule, error) {
	fanout := len(args)
	if fanout == 0 {
		return nil, ictierrors.MalformedGrammar("rule for %q has zero fanout", lhs)
	}

	if existing, ok := g.fanout[lhs]; ok && existing != fanout {
		return nil, ictierrors.MalformedGrammar("nonterminal %q used with fanout %d, previously %d", lhs, fanout, existing)
	}

	start := g.start
	if start == "" {
		start = lhs
	}
	if lhs == start && fanout != 1 {
		return nil, ictierrors.MalformedGrammar("start nonterminal %q must have fanout 1, got %d", lhs, fanout)
	}
	g.start = start

	r := &Rule{LHS: lhs, Args: args, RHS: rhsNonts, Weight: weight, DCP: dcp}
	key := r.Key()

	if existing, ok := g.byKey[key]; ok {
		existing.Weight += weight
		return existing, nil
	}

	r.ID = len(g.all)
	g.byKey[key] = r
	g.all = append(g.all, r)
	g.fanout[lhs] = fanout
	g.byLHS[lhs] = append(g.byLHS[lhs], r)

	if len(rhsNonts) == 0 {
		g.epsilon = append(g.epsilon, r)
	} else {
		g.byFirstRHSNont[rhsNonts[0]] = append(g.byFirstRHSNont[rhsNonts[0]], r)
	}

	if t, ok := r.FirstTerminal(); ok {
		g.byFirstTerminal[t] = append(g.byFirstTerminal[t], r)
	}

	return r, nil
}

// Rules returns every rule in the grammar, in the order they were first
// added.
func (g *Grammar) Rules() []*Rule { return g.all }

// RulesForLHS returns every rule whose LHS is nont.
func (g *Grammar) RulesForLHS(nont string) []*Rule { return g.byLHS[nont] }

// LexRules returns every rule whose first terminal (scanning Args left
// to right) is exactly terminal.
func (g *Grammar) LexRules(terminal string) []*Rule { return g.byFirstTerminal[terminal] }

// EpsilonRules returns every rule with no RHS nonterminals.
func (g *Grammar) EpsilonRules() []*Rule { return g.epsilon }

// RulesByFirstRHSNont returns every rule whose first RHS nonterminal is
// nont. Used by the chart parser's combine step to instantiate a fresh
// active item when a passive item for nont becomes available.
func (g *Grammar) RulesByFirstRHSNont(nont string) []*Rule { return g.byFirstRHSNont[nont] }

// NontCornerOf is an alias of RulesByFirstRHSNont: the rules for which
// nont is the left corner of the RHS.
func (g *Grammar) NontCornerOf(nont string) []*Rule { return g.RulesByFirstRHSNont(nont) }

// Fanout returns the fixed fanout of nont and whether it is known.
func (g *Grammar) Fanout(nont string) (int, bool) {
	f, ok := g.fanout[nont]
	return f, ok
}

// MakeProper normalizes, for each LHS nonterminal, the weights of its
// rules to sum to 1.
func (g *Grammar) MakeProper() {
	for lhs, rules := range g.byLHS {
		var sum float64
		for _, r := range rules {
			sum += r.Weight
		}
		if sum == 0 {
			continue
		}
		for _, r := range rules {
			r.Weight /= sum
		}
		_ = lhs
	}
}

// AddGram merges other's rules into g, applying the same dedup-by-key
// accumulation as AddRule.
func (g *Grammar) AddGram(other *Grammar) error {
	for _, r := range other.all {
		if _, err := g.AddRule(r.LHS, r.Args, r.RHS, r.Weight, r.DCP); err != nil {
			return err
		}
	}
	return nil
}

// WellFormed verifies that for every rule, each RHS nonterminal i
// contributes exactly the variables 0..fanout(rhs[i])-1 across the
// rule's args (the LCFRS coverage invariant). The order in which those
// variables appear is not checked.
func (g *Grammar) WellFormed() error {
	for _, r := range g.all {
		seen := make([]map[int]bool, len(r.RHS))
		for i := range seen {
			seen[i] = map[int]bool{}
		}
		for _, arg := range r.Args {
			for _, el := range arg {
				v, ok := el.(symbol.LCFRSVar)
				if !ok {
					continue
				}
				if v.I < 0 || v.I >= len(r.RHS) {
					return ictierrors.MalformedGrammar("rule %s references RHS index %d but has only %d RHS nonterminals", r, v.I, len(r.RHS))
				}
				seen[v.I][v.J] = true
			}
		}
		for i, rhsNont := range r.RHS {
			f, ok := g.fanout[rhsNont]
			if !ok {
				return ictierrors.MalformedGrammar("rule %s references unknown nonterminal %q", r, rhsNont)
			}
			for j := 0; j < f; j++ {
				if !seen[i][j] {
					return ictierrors.MalformedGrammar("rule %s never binds variable <%d,%d> required by fanout of %q", r, i, j, rhsNont)
				}
			}
			if len(seen[i]) != f {
				return ictierrors.MalformedGrammar("rule %s binds extra variables for RHS index %d beyond fanout %d", r, i, f)
			}
		}
	}
	return nil
}
