// Package classify derives composite score, lifecycle phase, and integrity
// grade from feature scores. All classification is a pure function of the
// scores; lifecycle and integrity are never set independently.
package classify

import (
	"math"

	"alphatrend/internal/domain"
)

// Weights are the composite-score weights per feature dimension.
// Engineering is applied inverted (100 - engineering) since it measures
// suspicion rather than strength.
type Weights struct {
	Attention   float64 `mapstructure:"attention"`
	Liquidity   float64 `mapstructure:"liquidity"`
	Whale       float64 `mapstructure:"whale"`
	Engineering float64 `mapstructure:"engineering"`
	Coherence   float64 `mapstructure:"coherence"`
}

// DefaultWeights returns the production composite weights.
func DefaultWeights() Weights {
	return Weights{
		Attention:   0.25,
		Liquidity:   0.25,
		Whale:       0.20,
		Engineering: 0.15,
		Coherence:   0.15,
	}
}

// IntegrityBands are the engineering-score boundaries between grades.
// Bands are lower-inclusive, upper-exclusive: a score equal to a boundary
// falls into the higher (worse) band.
type IntegrityBands struct {
	OrganicMax int `mapstructure:"organic_max"` // engineering < OrganicMax -> organic
	MixedMax   int `mapstructure:"mixed_max"`   // engineering < MixedMax -> mixed
}

// DefaultIntegrityBands returns the production band boundaries.
func DefaultIntegrityBands() IntegrityBands {
	return IntegrityBands{OrganicMax: 25, MixedMax: 50}
}

// LifecycleThresholds parameterize the ordered lifecycle decision list.
type LifecycleThresholds struct {
	IgnitionAttention     int `mapstructure:"ignition_attention"`     // attention > x
	IgnitionLiquidity     int `mapstructure:"ignition_liquidity"`     // liquidity < x
	ExpansionAttention    int `mapstructure:"expansion_attention"`    // attention > x
	ExpansionLiquidity    int `mapstructure:"expansion_liquidity"`    // liquidity > x
	ExpansionWhale        int `mapstructure:"expansion_whale"`        // whale < x
	CrowdingAttention     int `mapstructure:"crowding_attention"`     // attention > x
	CrowdingWhale         int `mapstructure:"crowding_whale"`         // whale > x
	DistributionAttention int `mapstructure:"distribution_attention"` // attention < x
	DistributionWhale     int `mapstructure:"distribution_whale"`     // whale > x
}

// DefaultLifecycleThresholds returns the production decision thresholds.
func DefaultLifecycleThresholds() LifecycleThresholds {
	return LifecycleThresholds{
		IgnitionAttention:     80,
		IgnitionLiquidity:     50,
		ExpansionAttention:    60,
		ExpansionLiquidity:    60,
		ExpansionWhale:        60,
		CrowdingAttention:     75,
		CrowdingWhale:         70,
		DistributionAttention: 50,
		DistributionWhale:     60,
	}
}

// Result is one token's classification.
type Result struct {
	Composite int
	Lifecycle domain.LifecyclePhase
	Integrity domain.IntegrityGrade
}

// Classifier classifies feature scores using configured weights and
// thresholds.
type Classifier struct {
	weights    Weights
	bands      IntegrityBands
	thresholds LifecycleThresholds
}

// NewClassifier creates a classifier.
func NewClassifier(w Weights, b IntegrityBands, t LifecycleThresholds) *Classifier {
	return &Classifier{weights: w, bands: b, thresholds: t}
}

// Classify derives composite, lifecycle, and integrity from scores.
// Deterministic: identical scores always yield identical results.
func (c *Classifier) Classify(s domain.FeatureScores) Result {
	return Result{
		Composite: c.composite(s),
		Lifecycle: c.lifecycle(s),
		Integrity: c.integrity(s.Engineering),
	}
}

// composite is the weighted sum rounded to the nearest integer.
func (c *Classifier) composite(s domain.FeatureScores) int {
	v := float64(s.Attention)*c.weights.Attention +
		float64(s.Liquidity)*c.weights.Liquidity +
		float64(s.Whale)*c.weights.Whale +
		float64(100-s.Engineering)*c.weights.Engineering +
		float64(s.Coherence)*c.weights.Coherence
	return int(math.Round(v))
}

// integrity maps the engineering score onto a grade. Boundary ties fall
// into the higher band.
func (c *Classifier) integrity(engineering int) domain.IntegrityGrade {
	switch {
	case engineering < c.bands.OrganicMax:
		return domain.IntegrityOrganic
	case engineering < c.bands.MixedMax:
		return domain.IntegrityMixed
	default:
		return domain.IntegrityEngineered
	}
}

// lifecycle evaluates the ordered decision list. Rule order is the
// tie-break policy: a token matching several rules takes the first.
func (c *Classifier) lifecycle(s domain.FeatureScores) domain.LifecyclePhase {
	t := c.thresholds
	switch {
	case s.Attention > t.IgnitionAttention && s.Liquidity < t.IgnitionLiquidity:
		return domain.PhaseIgnition
	case s.Attention > t.ExpansionAttention && s.Liquidity > t.ExpansionLiquidity && s.Whale < t.ExpansionWhale:
		return domain.PhaseExpansion
	case s.Attention > t.CrowdingAttention && s.Whale > t.CrowdingWhale:
		return domain.PhaseCrowding
	case s.Attention < t.DistributionAttention && s.Whale > t.DistributionWhale:
		return domain.PhaseDistribution
	default:
		return domain.PhaseDecay
	}
}
