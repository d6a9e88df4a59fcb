package chart

import (
	"fmt"

	"github.com/dekarrin/lcfrsdcp/grammar"
	"github.com/dekarrin/lcfrsdcp/symbol"
)

// Range is a half-open [Low, High) span of input positions, the chart's
// own range algebra distinct from partition.Span: ranges here are
// always built and merged while matching a rule's arg patterns against
// concrete input, never against a tree's yield positions.
type Range struct {
	Low  int
	High int
}

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Low, r.High) }

func (r Range) adjacentTo(o Range) bool { return r.High == o.Low }

// piece is one element of an arg slot mid-match: either already resolved
// to a concrete Range, or still pending a terminal/variable match.
type piece struct {
	resolved bool
	rng      Range

	isVar bool
	v     symbol.LCFRSVar
	term  symbol.Terminal
}

// PassiveItem is a fully matched rule instance: Ranges holds exactly one
// concrete Range per rule arg, in arg order.
type PassiveItem struct {
	Nonterminal string
	Ranges      []Range
	Rule        *grammar.Rule
	Children    []*PassiveItem
	Weight      float64
	valid       bool
}

func (p *PassiveItem) key() string {
	return fmt.Sprintf("%s:%v", p.Nonterminal, p.Ranges)
}

func (p *PassiveItem) leftPos() int {
	low := p.Ranges[0].Low
	for _, r := range p.Ranges[1:] {
		if r.Low < low {
			low = r.Low
		}
	}
	return low
}

// ActiveItem is a rule instance still missing one or more RHS
// nonterminals: slots holds, per arg, the element list mid-substitution.
type ActiveItem struct {
	Rule        *grammar.Rule
	Children    []*PassiveItem
	slots       [][]piece
	Weight      float64
	NextLow     int
	NextLowMax  int
	NextNont    string
	invalid     bool
}

func (a *ActiveItem) key() string {
	return fmt.Sprintf("%d:%d:%d", a.Rule.ID, len(a.Children), a.NextLow)
}

func newActiveItem(r *grammar.Rule) *ActiveItem {
	slots := make([][]piece, len(r.Args))
	for i, arg := range r.Args {
		s := make([]piece, len(arg))
		for j, el := range arg {
			switch e := el.(type) {
			case symbol.Terminal:
				s[j] = piece{isVar: false, term: e}
			case symbol.LCFRSVar:
				s[j] = piece{isVar: true, v: e}
			}
		}
		slots[i] = s
	}
	a := &ActiveItem{Rule: r, slots: slots, Weight: logWeight(r.Weight)}
	a.NextNont = ""
	if len(r.RHS) > 0 {
		a.NextNont = r.RHS[0]
	}
	return a
}

func (a *ActiveItem) childIndex() int { return len(a.Children) }

func (a *ActiveItem) clone() *ActiveItem {
	slots := make([][]piece, len(a.slots))
	for i, s := range a.slots {
		slots[i] = append([]piece(nil), s...)
	}
	children := append([]*PassiveItem(nil), a.Children...)
	return &ActiveItem{Rule: a.Rule, Children: children, slots: slots, Weight: a.Weight, NextLow: a.NextLow, NextLowMax: a.NextLowMax, NextNont: a.NextNont}
}
