package partition

import (
	"testing"

	"github.com/dekarrin/lcfrsdcp/corpus"
	"github.com/stretchr/testify/assert"
)

func Test_JoinSpans(t *testing.T) {
	testCases := []struct {
		name      string
		positions []int
		expected  []Span
	}{
		{
			name:      "empty",
			positions: nil,
			expected:  nil,
		},
		{
			name:      "single",
			positions: []int{3},
			expected:  []Span{{Low: 3, High: 3}},
		},
		{
			name:      "contiguous",
			positions: []int{0, 1, 2},
			expected:  []Span{{Low: 0, High: 2}},
		},
		{
			name:      "discontinuous",
			positions: []int{0, 1, 4, 5, 7},
			expected:  []Span{{Low: 0, High: 1}, {Low: 4, High: 5}, {Low: 7, High: 7}},
		},
		{
			name:      "unsorted input, duplicate",
			positions: []int{5, 2, 2, 3},
			expected:  []Span{{Low: 2, High: 3}, {Low: 5, High: 5}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, JoinSpans(tc.positions))
		})
	}
}

func Test_JoinSpans_idempotent(t *testing.T) {
	spans := JoinSpans([]int{0, 1, 4, 5, 7})
	var bounds []int
	for _, s := range spans {
		bounds = append(bounds, s.Low, s.High)
	}
	again := JoinSpans(bounds)
	assert.Equal(t, append([]Span(nil), spans...), again)
}

func Test_LeftBranching(t *testing.T) {
	p := LeftBranching(3)
	assert.Equal(t, 3, p.Positions.Len())
	assert.Len(t, p.Children, 2)
	assert.True(t, p.Children[0].IsSingleton())
	assert.NoError(t, p.Validate())
}

func Test_RightBranching(t *testing.T) {
	p := RightBranching(3)
	assert.Equal(t, 3, p.Positions.Len())
	assert.Len(t, p.Children, 2)
	assert.True(t, p.Children[1].IsSingleton())
	assert.NoError(t, p.Validate())
}

func Test_LeftBranching_singleton(t *testing.T) {
	p := LeftBranching(1)
	assert.True(t, p.IsSingleton())
	assert.Empty(t, p.Children)
}

func Test_Partitioning_Validate(t *testing.T) {
	testCases := []struct {
		name      string
		build     func() *Partitioning
		expectErr bool
	}{
		{
			name:      "left branching is valid",
			build:     func() *Partitioning { return LeftBranching(4) },
			expectErr: false,
		},
		{
			name: "singleton with children is invalid",
			build: func() *Partitioning {
				p := LeftBranching(1)
				p.Children = []*Partitioning{LeftBranching(1)}
				return p
			},
			expectErr: true,
		},
		{
			name: "overlapping children invalid",
			build: func() *Partitioning {
				a := &Partitioning{Positions: leafSet(0, 1)}
				b := &Partitioning{Positions: leafSet(1, 2)}
				return &Partitioning{Positions: leafSet(0, 1, 2), Children: []*Partitioning{a, b}}
			},
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.build().Validate()
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_FanoutLimit_CFG(t *testing.T) {
	a := &Partitioning{Positions: leafSet(0)}
	b := &Partitioning{Positions: leafSet(2)}
	c := &Partitioning{Positions: leafSet(1)}
	p := &Partitioning{Positions: leafSet(0, 1, 2), Children: []*Partitioning{a, c, b}}

	limited := CFG(p)
	assert.Equal(t, 1, fanoutOf(limited.Children))
	assert.NoError(t, limited.Validate())
}

func Test_FanoutLimit_withinBound_unchanged(t *testing.T) {
	p := LeftBranching(4)
	limited := FanoutLimit(p, 2, FanoutLimitOptions{Policy: RightmostFirst})
	assert.NoError(t, limited.Validate())
	assert.LessOrEqual(t, fanoutOf(limited.Children), 2)
}

func Test_chooseMerge_policies(t *testing.T) {
	children := []*Partitioning{
		{Positions: leafSet(0)},
		{Positions: leafSet(1)},
		{Positions: leafSet(2)},
	}

	assert.Equal(t, 0, chooseMerge(children, FanoutLimitOptions{Policy: LeftToRight}))
	assert.Equal(t, 1, chooseMerge(children, FanoutLimitOptions{Policy: RightmostFirst}))
}

func Test_chooseMerge_NoNewNonterminal_fallsBack(t *testing.T) {
	children := []*Partitioning{
		{Positions: leafSet(0)},
		{Positions: leafSet(1)},
		{Positions: leafSet(2)},
	}
	opts := FanoutLimitOptions{
		Policy:   NoNewNonterminal,
		Fallback: LeftToRight,
		Existing: func(label string) bool { return false },
		LabelOf:  func(children []*Partitioning) string { return "X" },
	}
	assert.Equal(t, 0, chooseMerge(children, opts))
}

func Test_DirectExtraction(t *testing.T) {
	tree, err := corpus.ReadBracket("(S (NP Piet) (VP helpen))")
	assert.NoError(t, err)

	p := DirectExtraction(tree, tree.Root())
	assert.Equal(t, tree.Root(), p.Label)
	assert.Equal(t, 2, p.Positions.Len())
	assert.Len(t, p.Children, 2)
	for _, c := range p.Children {
		assert.True(t, c.IsSingleton())
		assert.Empty(t, c.Children)
	}
	assert.NoError(t, p.Validate())
}
