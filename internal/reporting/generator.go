package reporting

import (
	"context"
	"time"

	"alphatrend/internal/domain"
	"alphatrend/internal/storage"
)

// Generator produces snapshot reports from stored cycle outputs.
type Generator struct {
	snapshots storage.SnapshotStore
	tokens    storage.TokenOutputStore
	metas     storage.MetaOutputStore
	chains    storage.ChainOutputStore
	now       func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator.
func NewGenerator(
	snapshots storage.SnapshotStore,
	tokens storage.TokenOutputStore,
	metas storage.MetaOutputStore,
	chains storage.ChainOutputStore,
) *Generator {
	return &Generator{
		snapshots: snapshots,
		tokens:    tokens,
		metas:     metas,
		chains:    chains,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report for one snapshot; an empty id targets the
// latest snapshot.
func (g *Generator) Generate(ctx context.Context, snapshotID string) (*Report, error) {
	var snap *domain.Snapshot
	var err error
	if snapshotID == "" {
		snap, err = g.snapshots.Latest(ctx)
	} else {
		snap, err = g.snapshots.GetByID(ctx, snapshotID)
	}
	if err != nil {
		return nil, err
	}

	tokens, err := g.tokens.GetBySnapshot(ctx, snap.SnapshotID, storage.TokenFilter{})
	if err != nil {
		return nil, err
	}
	metas, err := g.metas.GetBySnapshot(ctx, snap.SnapshotID)
	if err != nil {
		return nil, err
	}
	chains, err := g.chains.GetBySnapshot(ctx, snap.SnapshotID)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt: g.now(),
		Snapshot: SnapshotSection{
			SnapshotID:      snap.SnapshotID,
			TimestampMs:     snap.TimestampMs,
			Regime:          string(snap.Regime),
			TotalTokens:     snap.TotalTokens,
			TotalMetas:      snap.TotalMetas,
			TokensRejected:  snap.TokensRejected,
			MetasSuppressed: snap.MetasSuppressed,
			ComputeTimeMs:   snap.ComputeTimeMs,
		},
		Chains:  chainRows(chains),
		Metas:   metaRows(metas),
		Tokens:  tokenRows(tokens),
		Leaders: leaders(snap, tokens, metas),
	}, nil
}

func chainRows(chains []*domain.ChainOutput) []ChainRow {
	rows := make([]ChainRow, len(chains))
	for i, c := range chains {
		rows[i] = ChainRow{
			Chain:          string(c.Chain),
			HeatScore:      c.HeatScore,
			DominantDriver: string(c.DominantDriver),
			EligibleTokens: c.EligibleTokens,
			CapitalShare:   c.CapitalShare,
		}
	}
	return rows
}

func metaRows(metas []*domain.MetaOutput) []MetaRow {
	rows := make([]MetaRow, len(metas))
	for i, m := range metas {
		rows[i] = MetaRow{
			MetaID:               m.MetaID,
			Name:                 m.Name,
			TokenCount:           m.TokenCount,
			AvgCompositeScore:    m.AvgCompositeScore,
			Momentum:             m.Momentum,
			CapitalFlow:          m.CapitalFlow,
			Lifecycle:            string(m.Lifecycle),
			Integrity:            string(m.Integrity),
			IsCrossChain:         m.IsCrossChain,
			PersistenceSnapshots: m.PersistenceSnapshots,
		}
	}
	return rows
}

func tokenRows(tokens []*domain.TokenOutput) []TokenRow {
	rows := make([]TokenRow, len(tokens))
	for i, t := range tokens {
		rows[i] = TokenRow{
			TokenID:        t.TokenID,
			Symbol:         t.Symbol,
			Chain:          string(t.Chain),
			CompositeScore: t.CompositeScore,
			Attention:      t.Scores.Attention,
			Liquidity:      t.Scores.Liquidity,
			Whale:          t.Scores.Whale,
			Engineering:    t.Scores.Engineering,
			Coherence:      t.Scores.Coherence,
			Lifecycle:      string(t.Lifecycle),
			Integrity:      string(t.Integrity),
			PriceChange24h: t.PriceChange24h,
			FirstSeen:      t.FirstSeen,
		}
	}
	return rows
}

// leaders resolves leaderboard ids to display rows. Unresolvable ids keep
// the id as label so a report never drops a leaderboard entry.
func leaders(snap *domain.Snapshot, tokens []*domain.TokenOutput, metas []*domain.MetaOutput) LeadersSection {
	tokByID := make(map[string]*domain.TokenOutput, len(tokens))
	for _, t := range tokens {
		tokByID[t.TokenID] = t
	}
	metaByID := make(map[string]*domain.MetaOutput, len(metas))
	for _, m := range metas {
		metaByID[m.MetaID] = m
	}

	tokenRows := func(ids []string) []LeaderRow {
		rows := make([]LeaderRow, 0, len(ids))
		for _, id := range ids {
			row := LeaderRow{ID: id, Label: id}
			if t, ok := tokByID[id]; ok {
				row.Label = t.Symbol
				row.Value = t.PriceChange24h
			}
			rows = append(rows, row)
		}
		return rows
	}
	metaLeaderRows := func(ids []string) []LeaderRow {
		rows := make([]LeaderRow, 0, len(ids))
		for _, id := range ids {
			row := LeaderRow{ID: id, Label: id}
			if m, ok := metaByID[id]; ok {
				row.Label = m.Name
				row.Value = float64(m.Momentum)
			}
			rows = append(rows, row)
		}
		return rows
	}

	return LeadersSection{
		TopGainers:   tokenRows(snap.TopGainers),
		TopLosers:    tokenRows(snap.TopLosers),
		NewEntrants:  tokenRows(snap.NewEntrants),
		RisingMetas:  metaLeaderRows(snap.RisingMetas),
		FallingMetas: metaLeaderRows(snap.FallingMetas),
	}
}
