package accuracy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Scorer_Score(t *testing.T) {
	testCases := []struct {
		name      string
		found     []Span
		gold      []Span
		expected  Result
	}{
		{
			name:     "perfect match",
			found:    []Span{{Label: "NP", Low: 0, High: 1}},
			gold:     []Span{{Label: "NP", Low: 0, High: 1}},
			expected: Result{Precision: 1, Recall: 1, F1: 1},
		},
		{
			name:     "no overlap",
			found:    []Span{{Label: "NP", Low: 0, High: 1}},
			gold:     []Span{{Label: "VP", Low: 0, High: 1}},
			expected: Result{Precision: 0, Recall: 0, F1: 0},
		},
		{
			name:     "partial",
			found:    []Span{{Label: "NP", Low: 0, High: 1}, {Label: "VP", Low: 2, High: 3}},
			gold:     []Span{{Label: "NP", Low: 0, High: 1}},
			expected: Result{Precision: 0.5, Recall: 1, F1: 2.0 / 3.0},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewScorer(Penalizing)
			got := s.Score(tc.found, tc.gold)
			assert.InDelta(t, tc.expected.Precision, got.Precision, 1e-9)
			assert.InDelta(t, tc.expected.Recall, got.Recall, 1e-9)
			assert.InDelta(t, tc.expected.F1, got.F1, 1e-9)
		})
	}
}

func Test_Scorer_Score_failurePolicy(t *testing.T) {
	gold := []Span{{Label: "NP", Low: 0, High: 1}}

	silent := NewScorer(Silent)
	res := silent.Score(nil, gold)
	assert.True(t, res.Skipped)
	assert.Equal(t, 0, silent.Sentences())

	penalizing := NewScorer(Penalizing)
	res = penalizing.Score(nil, gold)
	assert.False(t, res.Skipped)
	assert.Equal(t, 0.0, res.Recall)
	assert.Equal(t, 1, penalizing.Sentences())
}

func Test_Scorer_MacroAverage(t *testing.T) {
	s := NewScorer(Penalizing)
	s.Score([]Span{{Label: "NP", Low: 0, High: 1}}, []Span{{Label: "NP", Low: 0, High: 1}})
	s.Score(nil, []Span{{Label: "NP", Low: 0, High: 1}})

	macro := s.MacroAverage()
	assert.InDelta(t, 0.5, macro.Recall, 1e-9)
}

func Test_Scorer_MicroAverage(t *testing.T) {
	s := NewScorer(Penalizing)
	s.Score([]Span{{Label: "NP", Low: 0, High: 1}}, []Span{{Label: "NP", Low: 0, High: 1}, {Label: "VP", Low: 2, High: 3}})
	s.Score([]Span{{Label: "VP", Low: 2, High: 3}}, []Span{})

	micro := s.MicroAverage()
	// found total 2, gold total 2, matched 1
	assert.InDelta(t, 0.5, micro.Precision, 1e-9)
	assert.InDelta(t, 0.5, micro.Recall, 1e-9)
}

func Test_Scorer_emptyHasZeroAverages(t *testing.T) {
	s := NewScorer(Penalizing)
	assert.Equal(t, Result{}, s.MacroAverage())
	assert.Equal(t, Result{}, s.MicroAverage())
}
