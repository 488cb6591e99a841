package regime

import (
	"testing"

	"alphatrend/internal/domain"
)

func meta(score, momentum int) *domain.MetaOutput {
	return &domain.MetaOutput{AvgCompositeScore: score, Momentum: momentum}
}

func token(composite int) *domain.TokenOutput {
	return &domain.TokenOutput{CompositeScore: composite}
}

func TestClassify_Rules(t *testing.T) {
	th := DefaultThresholds()

	cases := []struct {
		name            string
		score, momentum int
		want            domain.MarketRegime
	}{
		{"expansion", 75, 25, domain.RegimeExpansion},
		{"expansion boundary score excluded", 70, 25, domain.RegimeFragmented},
		{"expansion boundary momentum excluded", 75, 20, domain.RegimeFragmented},
		{"contraction", 75, -25, domain.RegimeContraction},
		{"contraction boundary excluded", 40, -20, domain.RegimeFragmented},
		{"rotation", 60, 5, domain.RegimeRotation},
		{"rotation negative momentum", 60, -9, domain.RegimeRotation},
		{"rotation momentum boundary excluded", 60, 10, domain.RegimeFragmented},
		{"rotation score boundary excluded", 50, 0, domain.RegimeFragmented},
		{"fragmented", 40, 15, domain.RegimeFragmented},
	}
	for _, tc := range cases {
		if got := classify(tc.score, tc.momentum, th); got != tc.want {
			t.Errorf("%s (score=%d momentum=%d): expected %s, got %s", tc.name, tc.score, tc.momentum, tc.want, got)
		}
	}
}

func TestClassify_RuleOrder(t *testing.T) {
	th := DefaultThresholds()

	// Strong score with collapsing momentum: contraction must not be
	// shadowed by the expansion rule failing through to rotation.
	if got := classify(80, -30, th); got != domain.RegimeContraction {
		t.Errorf("expected contraction, got %s", got)
	}
}

func TestClassify_ScoreFromTokenPopulation(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	// Score averages over every token, not over the published metas: a
	// token population at mean 80 with a single weak meta carrying strong
	// momentum still reads as expansion.
	tokens := []*domain.TokenOutput{token(85), token(75)}
	got := c.Classify(tokens, []*domain.MetaOutput{meta(40, 30)})
	if got != domain.RegimeExpansion {
		t.Errorf("expected expansion from token-population mean, got %s", got)
	}
}

func TestClassify_MomentumMeanOverMetas(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	// Momentum (30+14)/2 = 22 with token mean 72 -> expansion.
	tokens := []*domain.TokenOutput{token(72)}
	got := c.Classify(tokens, []*domain.MetaOutput{meta(80, 30), meta(64, 14)})
	if got != domain.RegimeExpansion {
		t.Errorf("expected expansion from meta momentum mean, got %s", got)
	}
}

func TestClassify_NoPublishedMetas(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	// With no published metas, momentum contributes 0: a strong token
	// population still lands in rotation rather than fragmented.
	if got := c.Classify([]*domain.TokenOutput{token(80)}, nil); got != domain.RegimeRotation {
		t.Errorf("expected rotation with zero momentum, got %s", got)
	}
	if got := c.Classify([]*domain.TokenOutput{token(40)}, nil); got != domain.RegimeFragmented {
		t.Errorf("expected fragmented for a weak population, got %s", got)
	}
}

func TestClassify_NoTokensReadsFragmented(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	if got := c.Classify(nil, nil); got != domain.RegimeFragmented {
		t.Errorf("expected fragmented for empty population, got %s", got)
	}
}
