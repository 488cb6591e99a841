// Package metaagg aggregates member token outputs into published meta
// (narrative cluster) outputs. Cluster detection, capital flow, and momentum
// come from the ingestion batch; this package gates, validates, and
// aggregates but never invents membership.
package metaagg

import (
	"errors"
	"math"
	"sort"

	"alphatrend/internal/domain"
)

// ErrNoMembers is returned for a cluster with zero resolvable members.
// The aggregator refuses to emit such a meta rather than divide by zero.
var ErrNoMembers = errors.New("meta has no members")

// ErrNotPublishable is returned for a cluster below the publication gate:
// too few members, or not yet persisted across consecutive snapshots.
// Flash clusters seen for the first time are held back one cycle.
var ErrNotPublishable = errors.New("meta below publication gate")

// Config holds the publication gate thresholds.
type Config struct {
	MinMembers     int `mapstructure:"min_members"`
	MinPersistence int `mapstructure:"min_persistence"`
}

// DefaultConfig returns the production publication gate.
func DefaultConfig() Config {
	return Config{MinMembers: 3, MinPersistence: 2}
}

// Aggregator computes cluster-level aggregates from member token outputs.
type Aggregator struct {
	cfg Config
}

// NewAggregator creates a meta aggregator.
func NewAggregator(cfg Config) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// MinMembers returns the publication gate's member floor. A cluster below
// it does not count as detected, so its persistence counter cannot advance.
func (a *Aggregator) MinMembers() int {
	return a.cfg.MinMembers
}

// Aggregate computes the published output for one cluster. persistence is
// the cluster's consecutive-snapshot counter including the current cycle.
// Returns ErrNoMembers for an empty member set and ErrNotPublishable when
// the cluster fails the publication gate.
func (a *Aggregator) Aggregate(in domain.RawMetaInput, members []*domain.TokenOutput, persistence int) (*domain.MetaOutput, error) {
	if len(members) == 0 {
		return nil, ErrNoMembers
	}
	if len(members) < a.cfg.MinMembers || persistence < a.cfg.MinPersistence {
		return nil, ErrNotPublishable
	}

	var sumComposite, sumAttention, sumLiquidity int
	for _, m := range members {
		sumComposite += m.CompositeScore
		sumAttention += m.Scores.Attention
		sumLiquidity += m.Scores.Liquidity
	}
	n := float64(len(members))

	chains := memberChains(members)
	tokenIDs := make([]string, len(members))
	for i, m := range members {
		tokenIDs[i] = m.TokenID
	}
	sort.Strings(tokenIDs)

	return &domain.MetaOutput{
		MetaID:               in.MetaID,
		Name:                 in.Name,
		Description:          in.Description,
		TokenIDs:             tokenIDs,
		TokenCount:           len(members),
		AvgCompositeScore:    roundMean(sumComposite, n),
		AvgAttention:         roundMean(sumAttention, n),
		AvgLiquidity:         roundMean(sumLiquidity, n),
		CapitalFlow:          in.CapitalFlow,
		Momentum:             in.Momentum,
		CoherenceScore:       in.CoherenceScore,
		Lifecycle:            clusterLifecycle(members),
		Integrity:            clusterIntegrity(members),
		Chains:               chains,
		IsCrossChain:         len(chains) > 1,
		PersistenceSnapshots: persistence,
	}, nil
}

func roundMean(sum int, n float64) int {
	return int(math.Round(float64(sum) / n))
}

// memberChains returns the deduplicated chain set in stable order.
func memberChains(members []*domain.TokenOutput) []domain.Chain {
	present := make(map[domain.Chain]bool, len(members))
	for _, m := range members {
		present[m.Chain] = true
	}
	var chains []domain.Chain
	for _, c := range domain.AllChains {
		if present[c] {
			chains = append(chains, c)
		}
	}
	return chains
}

// integrityRank orders grades from best to worst for tie-breaking.
var integrityRank = map[domain.IntegrityGrade]int{
	domain.IntegrityOrganic:    0,
	domain.IntegrityMixed:      1,
	domain.IntegrityEngineered: 2,
}

// clusterIntegrity is the liquidity-score-weighted plurality of member
// grades: members with stronger liquidity carry more capital quality and
// weigh more. Ties break toward the worse grade, so a tie never upgrades
// a cluster.
func clusterIntegrity(members []*domain.TokenOutput) domain.IntegrityGrade {
	weights := make(map[domain.IntegrityGrade]float64, 3)
	for _, m := range members {
		// Weight floor of 1 keeps zero-liquidity members from vanishing
		// from the vote entirely.
		weights[m.Integrity] += 1 + float64(m.Scores.Liquidity)
	}

	best := domain.IntegrityOrganic
	bestWeight := -1.0
	for _, g := range []domain.IntegrityGrade{domain.IntegrityOrganic, domain.IntegrityMixed, domain.IntegrityEngineered} {
		w, ok := weights[g]
		if !ok {
			continue
		}
		if w > bestWeight || (w == bestWeight && integrityRank[g] > integrityRank[best]) {
			best = g
			bestWeight = w
		}
	}
	return best
}

// lifecycleRank orders phases by trajectory stage for tie-breaking.
var lifecycleRank = map[domain.LifecyclePhase]int{
	domain.PhaseIgnition:     0,
	domain.PhaseExpansion:    1,
	domain.PhaseCrowding:     2,
	domain.PhaseDistribution: 3,
	domain.PhaseDecay:        4,
}

// clusterLifecycle is the plurality phase of the members; ties break toward
// the later stage so a cluster is never reported earlier in its trajectory
// than half its members.
func clusterLifecycle(members []*domain.TokenOutput) domain.LifecyclePhase {
	counts := make(map[domain.LifecyclePhase]int, 5)
	for _, m := range members {
		counts[m.Lifecycle]++
	}

	best := domain.PhaseIgnition
	bestCount := -1
	for phase, count := range counts {
		if count > bestCount || (count == bestCount && lifecycleRank[phase] > lifecycleRank[best]) {
			best = phase
			bestCount = count
		}
	}
	return best
}
