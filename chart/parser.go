// Package chart implements the bottom-up, agenda-driven chart parser:
// a global priority queue of active/passive items ordered by weight
// (summed log-probability, higher first), seeded from epsilon and
// lexical rules and driven to a goal item by repeated substitution.
// Weight convention: every item's Weight is the sum of log(rule.weight)
// over the rules used so far (negative, closer to zero is better,
// matching the agenda's "higher first" ordering). Parser.Best exposes
// the complementary sum of -log(rule.weight) (positive, lower is
// better) as required by the best-derivation property test, with
// math.Inf(1) as the "no parse" sentinel -- an unambiguous value no
// real derivation weight can ever equal, used in place of the spec
// text's literal "-1" (see DESIGN.md).
package chart

import (
	"container/heap"
	"math"

	"github.com/dekarrin/lcfrsdcp/grammar"
	"github.com/dekarrin/lcfrsdcp/ictierrors"
	"github.com/dekarrin/lcfrsdcp/symbol"
	"github.com/google/uuid"
)

func logWeight(w float64) float64 {
	if w <= 0 {
		return math.Inf(-1)
	}
	return math.Log(w)
}

// agendaEntry is one queued unit of work: exactly one of active/passive
// is set. seq breaks ties between equal-weight entries in FIFO order.
type agendaEntry struct {
	active  *ActiveItem
	passive *PassiveItem
	weight  float64
	seq     int
}

type agenda []*agendaEntry

func (q agenda) Len() int { return len(q) }
func (q agenda) Less(i, j int) bool {
	if q[i].weight != q[j].weight {
		return q[i].weight > q[j].weight
	}
	return q[i].seq < q[j].seq
}
func (q agenda) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *agenda) Push(x any)   { *q = append(*q, x.(*agendaEntry)) }
func (q *agenda) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

// DerivationNode is one node of a successful parse's derivation tree,
// consumed by package eval to compute DCP attributes.
type DerivationNode struct {
	Rule     *grammar.Rule
	Ranges   []Range
	Children []*DerivationNode
}

// Parser runs one chart-parse instance over a single token-label
// sequence against a shared, read-only Grammar. Parser instances share
// no mutable state and may be run concurrently over disjoint inputs.
type Parser struct {
	g     *grammar.Grammar
	input []string
	runID uuid.UUID

	q       agenda
	seq     int
	passive map[string][]*PassiveItem
	active  map[string][]*ActiveItem

	recognized bool
	goal       *PassiveItem
}

// New constructs a Parser for g over input, a sequence of terminal
// labels (already run through a labeling.Labeling). Each Parser gets
// its own correlation id (RunID) for tying together log lines from a
// single parse run; it plays no role in parsing itself.
func New(g *grammar.Grammar, input []string) *Parser {
	return &Parser{
		g:       g,
		input:   input,
		runID:   uuid.New(),
		passive: map[string][]*PassiveItem{},
		active:  map[string][]*ActiveItem{},
	}
}

// RunID returns this parser instance's correlation id.
func (p *Parser) RunID() string { return p.runID.String() }

func (p *Parser) pushActive(a *ActiveItem) {
	p.seq++
	heap.Push(&p.q, &agendaEntry{active: a, weight: a.Weight, seq: p.seq})
}

func (p *Parser) pushPassive(pi *PassiveItem) {
	pi.valid = true
	p.seq++
	heap.Push(&p.q, &agendaEntry{passive: pi, weight: pi.Weight, seq: p.seq})
}

func parkKey(nont string, low int) string { return nont + "@" + itoa(low) }

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// Parse runs the agenda-driven chart algorithm to exhaustion or until a
// goal item is found, whichever comes first.
func (p *Parser) Parse() error {
	n := len(p.input)
	heap.Init(&p.q)
	p.seed(n)

	for p.q.Len() > 0 {
		entry := heap.Pop(&p.q).(*agendaEntry)
		if entry.passive != nil {
			if !entry.passive.valid {
				continue
			}
			if p.combinePassive(entry.passive, n) {
				return nil
			}
		} else if entry.active != nil {
			if entry.active.invalid {
				continue
			}
			p.stepActive(entry.active, n)
		}
	}
	return nil
}

// Recognized reports whether a goal item was found.
func (p *Parser) Recognized() bool { return p.recognized }

// Best returns the sum of -log(rule.weight) over the best derivation's
// rules, or math.Inf(1) if Recognized() is false.
func (p *Parser) Best() float64 {
	if !p.recognized {
		return math.Inf(1)
	}
	return -p.goal.Weight
}

// Derivation returns the goal item's derivation tree, or an evaluation
// failure if the parse did not recognize the input.
func (p *Parser) Derivation() (*DerivationNode, error) {
	if !p.recognized {
		return nil, ictierrors.EvaluationFailure("no derivation: input not recognized")
	}
	return toDerivation(p.goal), nil
}

func toDerivation(pi *PassiveItem) *DerivationNode {
	d := &DerivationNode{Rule: pi.Rule, Ranges: pi.Ranges}
	for _, c := range pi.Children {
		d.Children = append(d.Children, toDerivation(c))
	}
	return d
}

func (p *Parser) seed(n int) {
	for _, r := range p.g.EpsilonRules() {
		for _, pi := range seedEpsilon(r, p.input) {
			p.pushPassive(pi)
		}
	}

	for pos := 0; pos < n; pos++ {
		for _, r := range p.g.LexRules(p.input[pos]) {
			if len(r.RHS) == 0 {
				continue // already handled via seedEpsilon above
			}
			a := newActiveItem(r)
			a.NextLow = pos
			a.NextLowMax = n
			p.pushActive(a)
		}
	}
}

// seedEpsilon enumerates every way to place an epsilon/lexical rule's
// purely-terminal args against input, producing one PassiveItem per
// valid monotone, non-overlapping placement.
func seedEpsilon(r *grammar.Rule, input []string) []*PassiveItem {
	return matchAllTerminalArgs(r, input)
}

func matchAllTerminalArgs(r *grammar.Rule, input []string) []*PassiveItem {
	n := len(input)
	perArg := make([][]Range, len(r.Args))
	for ai, arg := range r.Args {
		terms := make([]string, len(arg))
		ok := true
		for i, el := range arg {
			t, isTerm := termString(el)
			if !isTerm {
				ok = false
				break
			}
			terms[i] = t
		}
		if !ok {
			return nil
		}
		L := len(terms)
		var cands []Range
		for pos := 0; pos+L <= n; pos++ {
			match := true
			for i := 0; i < L; i++ {
				if input[pos+i] != terms[i] {
					match = false
					break
				}
			}
			if match {
				cands = append(cands, Range{Low: pos, High: pos + L})
			}
		}
		perArg[ai] = cands
	}

	var out []*PassiveItem
	var combo func(ai int, chosen []Range, minNext int)
	combo = func(ai int, chosen []Range, minNext int) {
		if ai == len(perArg) {
			ranges := append([]Range(nil), chosen...)
			out = append(out, &PassiveItem{Nonterminal: r.LHS, Ranges: ranges, Rule: r, Weight: logWeight(r.Weight)})
			return
		}
		for _, c := range perArg[ai] {
			if c.Low < minNext {
				continue
			}
			combo(ai+1, append(chosen, c), c.High)
		}
	}
	combo(0, nil, 0)
	return out
}

func (p *Parser) combinePassive(pi *PassiveItem, n int) (goalFound bool) {
	if pi.Nonterminal == p.g.Start() && len(pi.Ranges) == 1 && pi.Ranges[0].Low == 0 && pi.Ranges[0].High == n {
		p.recognized = true
		p.goal = pi
		return true
	}

	low := pi.leftPos()
	k := parkKey(pi.Nonterminal, low)
	p.passive[k] = append(p.passive[k], pi)

	for _, a := range p.active[k] {
		if a.invalid {
			continue
		}
		p.trySubstitute(a, pi, n)
	}

	for _, r := range p.g.RulesByFirstRHSNont(pi.Nonterminal) {
		a := newActiveItem(r)
		a.NextLow = low
		a.NextLowMax = n
		p.trySubstitute(a, pi, n)
	}
	return false
}

func (p *Parser) stepActive(a *ActiveItem, n int) {
	hi := a.NextLowMax
	if hi > n {
		hi = n
	}
	for low := a.NextLow; low <= hi; low++ {
		k := parkKey(a.NextNont, low)
		p.active[k] = append(p.active[k], a)
		for _, pi := range p.passive[k] {
			p.trySubstitute(a, pi, n)
		}
	}
}

// trySubstitute attempts to bind pi as the next unbound RHS nonterminal
// of a, producing either a new (more complete) active item or, if that
// exhausts a's RHS and every slot collapses to one range, a passive
// item -- both pushed onto the agenda. a itself is left untouched
// (substitution always operates on a fresh clone).
func (p *Parser) trySubstitute(a *ActiveItem, pi *PassiveItem, n int) {
	childIdx := a.childIndex()
	if childIdx >= len(a.Rule.RHS) || a.Rule.RHS[childIdx] != pi.Nonterminal {
		return
	}

	next := a.clone()
	next.Children = append(next.Children, pi)

	for si, slot := range next.slots {
		resolved := make([]piece, len(slot))
		copy(resolved, slot)
		for i, pc := range resolved {
			if pc.isVar && pc.v.I == childIdx {
				resolved[i] = piece{resolved: true, rng: pi.Ranges[pc.v.J]}
			}
		}
		if !p.resolveTerminals(resolved) {
			return
		}
		merged, ok := collapseAdjacent(resolved)
		if !ok {
			return
		}
		next.slots[si] = merged
	}

	next.Weight += pi.Weight

	if next.childIndex() == len(next.Rule.RHS) {
		ranges := make([]Range, len(next.slots))
		for si, s := range next.slots {
			if len(s) != 1 || !s[0].resolved {
				return
			}
			ranges[si] = s[0].rng
		}
		p.pushPassive(&PassiveItem{Nonterminal: next.Rule.LHS, Ranges: ranges, Rule: next.Rule, Children: next.Children, Weight: next.Weight})
		return
	}

	next.NextNont = next.Rule.RHS[next.childIndex()]
	frontier := 0
	for _, s := range next.slots {
		for _, pc := range s {
			if pc.resolved && pc.rng.High > frontier {
				frontier = pc.rng.High
			}
		}
	}
	next.NextLow = frontier
	next.NextLowMax = n
	p.pushActive(next)
}

// resolveTerminals fills in the Range of any still-unresolved literal
// Terminal piece in slot whose position is now pinned down by an
// adjacent resolved neighbor -- a terminal mixed into an arg alongside
// an LCFRS variable (e.g. "a <0,0> b") is never itself substituted for
// the way a variable is, so its Range can only come from propagating
// outward from whichever neighboring piece resolves first. Runs a
// left-to-right pass (terminal right after a resolved piece) and then a
// right-to-left pass (terminal right before one), so either side of a
// freshly-substituted variable gets pinned down regardless of which
// terminal in the arg was anchored first. Reports false if a pinned
// position doesn't actually match the input there, killing this
// substitution branch.
func (p *Parser) resolveTerminals(slot []piece) bool {
	for i := 1; i < len(slot); i++ {
		pc := slot[i]
		if pc.resolved || pc.isVar {
			continue
		}
		prev := slot[i-1]
		if !prev.resolved {
			continue
		}
		pos := prev.rng.High
		if pos >= len(p.input) || p.input[pos] != string(pc.term) {
			return false
		}
		slot[i] = piece{resolved: true, rng: Range{Low: pos, High: pos + 1}}
	}
	for i := len(slot) - 2; i >= 0; i-- {
		pc := slot[i]
		if pc.resolved || pc.isVar {
			continue
		}
		next := slot[i+1]
		if !next.resolved {
			continue
		}
		pos := next.rng.Low - 1
		if pos < 0 || pos >= len(p.input) || p.input[pos] != string(pc.term) {
			return false
		}
		slot[i] = piece{resolved: true, rng: Range{Low: pos, High: pos + 1}}
	}
	return true
}

// collapseAdjacent merges every textually-consecutive pair of resolved
// pieces in a slot into a single resolved piece, requiring exact
// adjacency (prev.High == next.Low); returns false if two resolved
// pieces are out of order or overlapping.
func collapseAdjacent(slot []piece) ([]piece, bool) {
	out := make([]piece, 0, len(slot))
	for _, pc := range slot {
		if len(out) > 0 && out[len(out)-1].resolved && pc.resolved {
			prev := out[len(out)-1]
			if prev.rng.High == pc.rng.Low {
				out[len(out)-1] = piece{resolved: true, rng: Range{Low: prev.rng.Low, High: pc.rng.High}}
				continue
			}
			return nil, false
		}
		out = append(out, pc)
	}
	return out, true
}

func termString(el symbol.ArgElement) (string, bool) {
	t, ok := el.(symbol.Terminal)
	if !ok {
		return "", false
	}
	return string(t), true
}
