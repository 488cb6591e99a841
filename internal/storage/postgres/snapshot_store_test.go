package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alphatrend/internal/domain"
	"alphatrend/internal/storage"
)

func testCycleOutput(id string, ts int64) *domain.CycleOutput {
	return &domain.CycleOutput{
		Snapshot: &domain.Snapshot{
			SnapshotID:  id,
			TimestampMs: ts,
			Regime:      domain.RegimeExpansion,
			TotalTokens: 2,
			TotalMetas:  1,
			ChainHeat: map[domain.Chain]int{
				domain.ChainSolana: 72,
				domain.ChainBase:   50,
			},
			TopGainers:    []string{"tok-a"},
			TopLosers:     []string{"tok-b"},
			NewEntrants:   []string{"tok-a"},
			RisingMetas:   []string{"meta-1"},
			IsComplete:    true,
			ComputeTimeMs: 120,
		},
		Tokens: []*domain.TokenOutput{
			{
				TokenID: "tok-a", SnapshotID: id, Chain: domain.ChainSolana,
				Address: "So11111111111111111111111111111111111111112",
				Symbol:  "AAA", Name: "Token A",
				Price: 1.5, PriceChange24h: 12.5, MarketCap: 1e6, Liquidity: 300_000,
				Volume24h: 50_000, Holders: 900,
				Scores:         domain.FeatureScores{Attention: 80, Liquidity: 60, Whale: 40, Engineering: 10, Coherence: 70},
				CompositeScore: 72, Lifecycle: domain.PhaseIgnition, Integrity: domain.IntegrityOrganic,
				FirstSeen: true, SnapshotTimestampMs: ts,
			},
			{
				TokenID: "tok-b", SnapshotID: id, Chain: domain.ChainBase,
				Address: "0x1234567890abcdef1234567890abcdef12345678",
				Symbol:  "BBB", Name: "Token B",
				Price: 0.2, PriceChange24h: -8.0, MarketCap: 5e5, Liquidity: 250_000,
				Volume24h: 20_000, Holders: 600,
				Scores:         domain.FeatureScores{Attention: 40, Liquidity: 55, Whale: 65, Engineering: 30, Coherence: 50},
				CompositeScore: 48, Lifecycle: domain.PhaseDecay, Integrity: domain.IntegrityMixed,
				SnapshotTimestampMs: ts,
			},
		},
		Metas: []*domain.MetaOutput{
			{
				MetaID: "meta-1", SnapshotID: id, Name: "Dog Coins", Description: "Canine tokens",
				TokenIDs: []string{"tok-a", "tok-b"}, TokenCount: 2,
				AvgCompositeScore: 60, AvgAttention: 60, AvgLiquidity: 58,
				CapitalFlow: 75_000, Momentum: 22, CoherenceScore: 64,
				Lifecycle: domain.PhaseExpansion, Integrity: domain.IntegrityOrganic,
				Chains: []domain.Chain{domain.ChainSolana, domain.ChainBase}, IsCrossChain: true,
				PersistenceSnapshots: 3, SnapshotTimestampMs: ts,
			},
		},
		Chains: []*domain.ChainOutput{
			{SnapshotID: id, Chain: domain.ChainSolana, HeatScore: 72, DominantDriver: domain.DriverAttention, EligibleTokens: 1, CapitalShare: 66.7},
			{SnapshotID: id, Chain: domain.ChainBase, HeatScore: 48, DominantDriver: domain.DriverCapital, EligibleTokens: 1, CapitalShare: 33.3},
		},
	}
}

func TestSnapshotStore_CommitAndReadBack(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	store := NewSnapshotStore(pool)
	require.NoError(t, store.Commit(ctx, testCycleOutput("s1", 1000)))

	snap, err := store.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.RegimeExpansion, snap.Regime)
	assert.Equal(t, 72, snap.ChainHeat[domain.ChainSolana])
	assert.Equal(t, []string{"tok-a"}, snap.TopGainers)
	assert.True(t, snap.IsComplete)

	tokens, err := NewTokenOutputStore(pool).GetBySnapshot(ctx, "s1", storage.TokenFilter{})
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "tok-a", tokens[0].TokenID) // composite DESC
	assert.Equal(t, domain.PhaseIgnition, tokens[0].Lifecycle)
	assert.Equal(t, 80, tokens[0].Scores.Attention)

	metas, err := NewMetaOutputStore(pool).GetBySnapshot(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, []string{"tok-a", "tok-b"}, metas[0].TokenIDs)
	assert.True(t, metas[0].IsCrossChain)
	assert.Equal(t, []domain.Chain{domain.ChainSolana, domain.ChainBase}, metas[0].Chains)

	chains, err := NewChainOutputStore(pool).GetBySnapshot(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, chains, 2)
	assert.Equal(t, domain.ChainSolana, chains[0].Chain) // canonical order
	assert.Equal(t, domain.DriverAttention, chains[0].DominantDriver)
}

func TestSnapshotStore_DuplicateCommitRejected(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	store := NewSnapshotStore(pool)
	require.NoError(t, store.Commit(ctx, testCycleOutput("s1", 1000)))

	err := store.Commit(ctx, testCycleOutput("s1", 2000))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// The failed commit must not move the latest pointer's target.
	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), latest.TimestampMs)
}

func TestSnapshotStore_LatestPointer(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	store := NewSnapshotStore(pool)

	_, err := store.Latest(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Commit(ctx, testCycleOutput("s1", 1000)))
	require.NoError(t, store.Commit(ctx, testCycleOutput("s2", 2000)))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s2", latest.SnapshotID)

	snaps, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "s2", snaps[0].SnapshotID)
}

func TestTokenOutputStore_Filters(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, NewSnapshotStore(pool).Commit(ctx, testCycleOutput("s1", 1000)))
	tokens := NewTokenOutputStore(pool)

	got, err := tokens.GetBySnapshot(ctx, "s1", storage.TokenFilter{Chain: ptr(domain.ChainBase)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "tok-b", got[0].TokenID)

	got, err = tokens.GetBySnapshot(ctx, "s1", storage.TokenFilter{MinComposite: ptr(50)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "tok-a", got[0].TokenID)

	got, err = tokens.GetBySnapshot(ctx, "s1", storage.TokenFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = tokens.GetBySnapshot(ctx, "missing", storage.TokenFilter{})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	tok, err := tokens.GetByID(ctx, "s1", "tok-b")
	require.NoError(t, err)
	assert.Equal(t, domain.IntegrityMixed, tok.Integrity)

	_, err = tokens.GetByID(ctx, "s1", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
