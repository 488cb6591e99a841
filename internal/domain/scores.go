package domain

// FeatureScores holds the five independent feature dimensions, each 0-100.
// Engineering is inverted relative to the others: it measures manipulation
// suspicion, so higher is worse.
type FeatureScores struct {
	Attention   int // social mentions, velocity, author diversity
	Liquidity   int // depth and volume quality
	Whale       int // holder concentration, smart-wallet overlap
	Engineering int // manipulation-signal strength
	Coherence   int // agreement across time windows
}

// LifecyclePhase is the categorical stage of a token's
// attention/liquidity trajectory.
type LifecyclePhase string

const (
	PhaseIgnition     LifecyclePhase = "ignition"
	PhaseExpansion    LifecyclePhase = "expansion"
	PhaseCrowding     LifecyclePhase = "crowding"
	PhaseDistribution LifecyclePhase = "distribution"
	PhaseDecay        LifecyclePhase = "decay"
)

// IntegrityGrade is the categorical manipulation-risk classification.
type IntegrityGrade string

const (
	IntegrityOrganic    IntegrityGrade = "organic"
	IntegrityMixed      IntegrityGrade = "mixed"
	IntegrityEngineered IntegrityGrade = "engineered"
)

// MarketRegime is the global label summarizing aggregate market state.
type MarketRegime string

const (
	RegimeExpansion   MarketRegime = "expansion"
	RegimeContraction MarketRegime = "contraction"
	RegimeRotation    MarketRegime = "rotation"
	RegimeFragmented  MarketRegime = "fragmented"
)
