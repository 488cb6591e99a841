// Package chainagg computes per-chain heat rollups from classified token
// outputs. Tokens below the chain's eligibility thresholds are excluded
// before aggregation.
package chainagg

import (
	"math"

	"alphatrend/internal/domain"
)

// Eligibility is the per-chain minimum bar a token must clear to count
// toward chain heat.
type Eligibility struct {
	MinLiquidity float64 `mapstructure:"min_liquidity"`
	MinHolders   int64   `mapstructure:"min_holders"`
}

// Config holds chain aggregation settings.
type Config struct {
	// NeutralHeat is reported for a chain with zero eligible tokens.
	// Deliberately not zero: no data is not the same as a cold chain.
	NeutralHeat int `mapstructure:"neutral_heat"`

	Eligibility map[domain.Chain]Eligibility `mapstructure:"eligibility"`
}

// DefaultConfig returns the production per-chain thresholds.
func DefaultConfig() Config {
	return Config{
		NeutralHeat: 50,
		Eligibility: map[domain.Chain]Eligibility{
			domain.ChainSolana:   {MinLiquidity: 250_000, MinHolders: 500},
			domain.ChainBase:     {MinLiquidity: 200_000, MinHolders: 400},
			domain.ChainEthereum: {MinLiquidity: 500_000, MinHolders: 1000},
			domain.ChainBNB:      {MinLiquidity: 300_000, MinHolders: 600},
		},
	}
}

// Aggregator computes chain outputs.
type Aggregator struct {
	cfg Config
}

// NewAggregator creates a chain aggregator.
func NewAggregator(cfg Config) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Eligible reports whether the token clears its chain's minimum
// liquidity/holder thresholds. Chains without a configured threshold
// accept everything.
func (a *Aggregator) Eligible(t *domain.TokenOutput) bool {
	e, ok := a.cfg.Eligibility[t.Chain]
	if !ok {
		return true
	}
	return t.Liquidity >= e.MinLiquidity && t.Holders >= e.MinHolders
}

// Aggregate computes the rollup for one chain from its member tokens.
// totalCapital is the market cap sum over all eligible tokens across all
// chains, used for the capital-share percentage. Never errors: a chain
// with zero eligible tokens reports the neutral default heat.
func (a *Aggregator) Aggregate(chain domain.Chain, tokens []*domain.TokenOutput, totalCapital float64) *domain.ChainOutput {
	var eligible []*domain.TokenOutput
	for _, t := range tokens {
		if t.Chain == chain && a.Eligible(t) {
			eligible = append(eligible, t)
		}
	}

	out := &domain.ChainOutput{
		Chain:          chain,
		EligibleTokens: len(eligible),
	}

	if len(eligible) == 0 {
		out.HeatScore = a.cfg.NeutralHeat
		out.DominantDriver = domain.DriverCapital
		return out
	}

	var sumComposite int
	var sumAttention, sumLiquidity, sumEngineering, chainCapital float64
	for _, t := range eligible {
		sumComposite += t.CompositeScore
		sumAttention += float64(t.Scores.Attention)
		sumLiquidity += float64(t.Scores.Liquidity)
		sumEngineering += float64(t.Scores.Engineering)
		chainCapital += t.MarketCap
	}
	n := float64(len(eligible))

	out.HeatScore = int(math.Round(float64(sumComposite) / n))
	out.DominantDriver = dominantDriver(sumAttention/n, sumLiquidity/n, sumEngineering/n)
	if totalCapital > 0 {
		out.CapitalShare = chainCapital / totalCapital * 100
	}
	return out
}

// dominantDriver compares mean attention-weighted vs capital-weighted
// contribution; a manipulation signal exceeding both takes precedence.
// Attention/capital ties break toward capital.
func dominantDriver(attention, capital, engineering float64) domain.ChainDriver {
	if engineering > attention && engineering > capital {
		return domain.DriverEngineering
	}
	if attention > capital {
		return domain.DriverAttention
	}
	return domain.DriverCapital
}
