// Package regime derives the single market-wide regime label for a
// snapshot from the token population and the published meta aggregates.
package regime

import (
	"math"

	"alphatrend/internal/domain"
)

// Thresholds holds the regime rule boundaries.
type Thresholds struct {
	ExpansionScore      int `mapstructure:"expansion_score"`
	ExpansionMomentum   int `mapstructure:"expansion_momentum"`
	ContractionMomentum int `mapstructure:"contraction_momentum"`
	RotationMomentumAbs int `mapstructure:"rotation_momentum_abs"`
	RotationScore       int `mapstructure:"rotation_score"`
}

// DefaultThresholds returns the production regime boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ExpansionScore:      70,
		ExpansionMomentum:   20,
		ContractionMomentum: -20,
		RotationMomentumAbs: 10,
		RotationScore:       50,
	}
}

// Classifier labels the market regime.
type Classifier struct {
	th Thresholds
}

// NewClassifier creates a regime classifier.
func NewClassifier(th Thresholds) *Classifier {
	return &Classifier{th: th}
}

// Classify applies the regime rules in order. The score side is the mean
// composite score of the whole token population; the momentum side is the
// mean momentum of the published metas, contributing 0 when none are
// published. An empty token population reads as fragmented.
func (c *Classifier) Classify(tokens []*domain.TokenOutput, metas []*domain.MetaOutput) domain.MarketRegime {
	if len(tokens) == 0 {
		return domain.RegimeFragmented
	}

	var sumScore int
	for _, t := range tokens {
		sumScore += t.CompositeScore
	}
	score := int(math.Round(float64(sumScore) / float64(len(tokens))))

	momentum := 0
	if len(metas) > 0 {
		var sumMomentum int
		for _, m := range metas {
			sumMomentum += m.Momentum
		}
		momentum = int(math.Round(float64(sumMomentum) / float64(len(metas))))
	}

	return classify(score, momentum, c.th)
}

func classify(score, momentum int, th Thresholds) domain.MarketRegime {
	switch {
	case score > th.ExpansionScore && momentum > th.ExpansionMomentum:
		return domain.RegimeExpansion
	case momentum < th.ContractionMomentum:
		return domain.RegimeContraction
	case abs(momentum) < th.RotationMomentumAbs && score > th.RotationScore:
		return domain.RegimeRotation
	default:
		return domain.RegimeFragmented
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
