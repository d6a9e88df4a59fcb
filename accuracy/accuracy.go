// Package accuracy implements the labelled-span precision/recall/F1
// scorer: per-sentence comparison of a found span set against a gold
// span set, with running totals across a corpus.
package accuracy

import "github.com/dekarrin/lcfrsdcp/hybridtree"

// Span is one scored unit: a label over an inclusive [Low, High] range.
// hybridtree.LabelledSpan already has this shape; Span is this
// package's own name for it so callers outside hybridtree (e.g. a gold
// treebank reader) aren't forced to depend on that package.
type Span struct {
	Label string
	Low   int
	High  int
}

// FromHybridTree converts a hybridtree.Tree's labelled spans to Spans.
func FromHybridTree(t *hybridtree.Tree) []Span {
	hs := t.LabelledSpans()
	out := make([]Span, len(hs))
	for i, s := range hs {
		out[i] = Span{Label: s.Label, Low: s.Low, High: s.High}
	}
	return out
}

// FailurePolicy controls how a sentence with no found spans (e.g. a
// parse failure) affects running totals.
type FailurePolicy int

const (
	// Silent skips a failed sentence entirely: it contributes to
	// neither numerator nor denominator.
	Silent FailurePolicy = iota
	// Penalizing counts a failed sentence as an empty found set scored
	// against its gold set (driving recall, and therefore F1, down).
	Penalizing
)

// Result is one sentence's precision/recall/F1, or the zero value with
// Skipped true when Silent policy dropped it.
type Result struct {
	Precision float64
	Recall    float64
	F1        float64
	Skipped   bool
}

// Scorer accumulates per-sentence scores into running corpus totals.
type Scorer struct {
	Policy FailurePolicy

	sentences   int
	sumP, sumR  float64
	foundTotal  int
	goldTotal   int
	matchTotal  int
}

func NewScorer(policy FailurePolicy) *Scorer {
	return &Scorer{Policy: policy}
}

func spanSet(spans []Span) map[Span]bool {
	m := make(map[Span]bool, len(spans))
	for _, s := range spans {
		m[s] = true
	}
	return m
}

// Score scores one sentence's found spans against gold, updates the
// running totals, and returns the sentence's own Result. found == nil
// with len(gold) > 0 is treated as a parse failure, subject to Policy.
func (s *Scorer) Score(found, gold []Span) Result {
	if found == nil && s.Policy == Silent {
		return Result{Skipped: true}
	}

	foundSet := spanSet(found)
	goldSet := spanSet(gold)

	matched := 0
	for sp := range foundSet {
		if goldSet[sp] {
			matched++
		}
	}

	var precision, recall float64
	if len(found) > 0 {
		precision = float64(matched) / float64(len(found))
	}
	if len(gold) > 0 {
		recall = float64(matched) / float64(len(gold))
	}
	var f1 float64
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	s.sentences++
	s.sumP += precision
	s.sumR += recall
	s.foundTotal += len(found)
	s.goldTotal += len(gold)
	s.matchTotal += matched

	return Result{Precision: precision, Recall: recall, F1: f1}
}

// Sentences returns the number of non-skipped sentences scored.
func (s *Scorer) Sentences() int { return s.sentences }

// MacroAverage returns the mean precision/recall/F1 across all scored
// sentences (unweighted by sentence length).
func (s *Scorer) MacroAverage() Result {
	if s.sentences == 0 {
		return Result{}
	}
	p := s.sumP / float64(s.sentences)
	r := s.sumR / float64(s.sentences)
	var f1 float64
	if p+r > 0 {
		f1 = 2 * p * r / (p + r)
	}
	return Result{Precision: p, Recall: r, F1: f1}
}

// MicroAverage returns precision/recall/F1 computed from the pooled
// found/gold/match totals across every scored sentence.
func (s *Scorer) MicroAverage() Result {
	var p, r float64
	if s.foundTotal > 0 {
		p = float64(s.matchTotal) / float64(s.foundTotal)
	}
	if s.goldTotal > 0 {
		r = float64(s.matchTotal) / float64(s.goldTotal)
	}
	var f1 float64
	if p+r > 0 {
		f1 = 2 * p * r / (p + r)
	}
	return Result{Precision: p, Recall: r, F1: f1}
}
