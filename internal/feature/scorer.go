// Package feature computes the five per-token feature scores from raw
// market metrics. Scores are independent: each depends only on raw inputs
// and cross-sectional percentile rank within the current batch, never on
// another score.
package feature

import (
	"math"
	"sort"

	"alphatrend/internal/domain"
)

// Blend constants per dimension. Percentile ranks carry most of the weight
// so scores stay comparable across tokens in the same cycle regardless of
// absolute scale.
const (
	attentionRankWeight      = 0.5
	attentionVelocityWeight  = 0.3
	attentionDiversityWeight = 0.2

	liquidityDepthWeight    = 0.6
	liquidityTurnoverWeight = 0.4

	whaleConcentrationWeight = 0.6
	whaleSmartWalletWeight   = 0.4

	engineeringWashWeight  = 0.7
	engineeringSybilWeight = 0.3

	coherenceAgreementWeight = 0.7
	coherenceSpreadWeight    = 0.3

	// Turnover (24h volume / liquidity depth) above this ratio earns the
	// full turnover-quality contribution.
	fullTurnoverRatio = 2.0

	// Window-change spread (percentage points) at which the alignment
	// contribution bottoms out.
	maxCoherenceSpread = 100.0
)

// Scorer computes FeatureScores for a batch of raw metrics.
type Scorer struct{}

// NewScorer creates a feature scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// ScoreBatch computes feature scores for every token in the batch, in input
// order. Identical batches always produce identical scores.
func (s *Scorer) ScoreBatch(tokens []domain.RawTokenMetrics) []domain.FeatureScores {
	mentions := make([]float64, len(tokens))
	velocities := make([]float64, len(tokens))
	depths := make([]float64, len(tokens))
	for i, t := range tokens {
		mentions[i] = t.SocialMentions
		velocities[i] = t.SocialVelocity
		depths[i] = t.Liquidity
	}

	mentionRank := newRanker(mentions)
	velocityRank := newRanker(velocities)
	depthRank := newRanker(depths)

	scores := make([]domain.FeatureScores, len(tokens))
	for i, t := range tokens {
		scores[i] = domain.FeatureScores{
			Attention:   attentionScore(t, mentionRank, velocityRank),
			Liquidity:   liquidityScore(t, depthRank),
			Whale:       whaleScore(t),
			Engineering: engineeringScore(t),
			Coherence:   coherenceScore(t),
		}
	}
	return scores
}

// attentionScore blends mention and velocity percentile ranks with author
// diversity.
func attentionScore(t domain.RawTokenMetrics, mentionRank, velocityRank *ranker) int {
	v := attentionRankWeight*mentionRank.rank(t.SocialMentions) +
		attentionVelocityWeight*velocityRank.rank(t.SocialVelocity) +
		attentionDiversityWeight*clamp01(t.AuthorDiversity)*100
	return clampScore(v)
}

// liquidityScore blends depth rank with turnover quality. Zero or negative
// liquidity yields the minimum score, never an error.
func liquidityScore(t domain.RawTokenMetrics, depthRank *ranker) int {
	if t.Liquidity <= 0 {
		return 0
	}
	turnover := t.Volume24h / t.Liquidity
	turnoverQuality := math.Min(turnover, fullTurnoverRatio) / fullTurnoverRatio * 100
	v := liquidityDepthWeight*depthRank.rank(t.Liquidity) +
		liquidityTurnoverWeight*turnoverQuality
	return clampScore(v)
}

// whaleScore measures holder concentration and smart-wallet overlap.
// Zero holders yields the minimum score.
func whaleScore(t domain.RawTokenMetrics) int {
	if t.Holders <= 0 {
		return 0
	}
	v := 100 * (whaleConcentrationWeight*clamp01(t.TopHolderShare) +
		whaleSmartWalletWeight*clamp01(t.SmartWalletShare))
	return clampScore(v)
}

// engineeringScore measures manipulation-signal strength. Higher is worse.
func engineeringScore(t domain.RawTokenMetrics) int {
	v := 100 * (engineeringWashWeight*clamp01(t.WashTradeRatio) +
		engineeringSybilWeight*clamp01(t.SybilHolderRatio))
	return clampScore(v)
}

// coherenceScore measures agreement across the 1h/6h/24h windows: sign
// agreement across window pairs plus magnitude alignment.
func coherenceScore(t domain.RawTokenMetrics) int {
	changes := [3]float64{t.PriceChange1h, t.PriceChange6h, t.PriceChange24h}

	agreeing := 0
	pairs := [3][2]int{{0, 1}, {1, 2}, {0, 2}}
	for _, p := range pairs {
		if changes[p[0]]*changes[p[1]] >= 0 {
			agreeing++
		}
	}
	agreement := float64(agreeing) / float64(len(pairs))

	spread := maxOf3(changes) - minOf3(changes)
	alignment := 1 - math.Min(spread, maxCoherenceSpread)/maxCoherenceSpread

	v := 100 * (coherenceAgreementWeight*agreement + coherenceSpreadWeight*alignment)
	return clampScore(v)
}

// ranker computes cross-sectional percentile ranks over a fixed value set.
// Rank is order-independent: (count below + half the tied count) / n.
type ranker struct {
	sorted []float64
}

func newRanker(values []float64) *ranker {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return &ranker{sorted: sorted}
}

// rank returns the percentile rank of v in [0,100].
func (r *ranker) rank(v float64) float64 {
	n := len(r.sorted)
	if n == 0 {
		return 0
	}
	below := sort.SearchFloat64s(r.sorted, v)
	equalEnd := sort.Search(n, func(i int) bool { return r.sorted[i] > v })
	equal := equalEnd - below
	return (float64(below) + 0.5*float64(equal)) / float64(n) * 100
}

// clampScore rounds and clamps to the [0,100] score range.
func clampScore(v float64) int {
	r := int(math.Round(v))
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return r
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxOf3(v [3]float64) float64 {
	return math.Max(v[0], math.Max(v[1], v[2]))
}

func minOf3(v [3]float64) float64 {
	return math.Min(v[0], math.Min(v[1], v[2]))
}
