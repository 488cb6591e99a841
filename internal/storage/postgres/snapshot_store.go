package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"alphatrend/internal/domain"
	"alphatrend/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Commit persists the cycle output in a single transaction: the snapshot
// row, all token/meta/chain outputs, and the latest-snapshot pointer
// upsert. Readers following the pointer see the previous snapshot until
// the transaction commits.
func (s *SnapshotStore) Commit(ctx context.Context, out *domain.CycleOutput) error {
	if out == nil || out.Snapshot == nil || out.Snapshot.SnapshotID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin commit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertSnapshot(ctx, tx, out.Snapshot); err != nil {
		return err
	}
	if err := insertTokenOutputs(ctx, tx, out.Snapshot.SnapshotID, out.Tokens); err != nil {
		return err
	}
	if err := insertMetaOutputs(ctx, tx, out.Snapshot.SnapshotID, out.Metas); err != nil {
		return err
	}
	if err := insertChainOutputs(ctx, tx, out.Snapshot.SnapshotID, out.Chains); err != nil {
		return err
	}

	pointerQuery := `
		INSERT INTO latest_snapshot (singleton, snapshot_id)
		VALUES (TRUE, $1)
		ON CONFLICT (singleton) DO UPDATE SET snapshot_id = EXCLUDED.snapshot_id
	`
	if _, err := tx.Exec(ctx, pointerQuery, out.Snapshot.SnapshotID); err != nil {
		return fmt.Errorf("advance latest pointer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot tx: %w", err)
	}
	return nil
}

// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(ctx context.Context, snapshotID string) (*domain.Snapshot, error) {
	query := snapshotSelect + ` WHERE snapshot_id = $1`

	snap, err := scanSnapshot(s.pool.QueryRow(ctx, query, snapshotID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot by id: %w", err)
	}
	return snap, nil
}

// Latest retrieves the snapshot the latest pointer refers to.
func (s *SnapshotStore) Latest(ctx context.Context) (*domain.Snapshot, error) {
	query := snapshotSelect + `
		JOIN latest_snapshot USING (snapshot_id)
	`

	snap, err := scanSnapshot(s.pool.QueryRow(ctx, query))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return snap, nil
}

// ListRecent retrieves up to limit snapshots ordered by timestamp DESC.
func (s *SnapshotStore) ListRecent(ctx context.Context, limit int) ([]*domain.Snapshot, error) {
	query := snapshotSelect + `
		ORDER BY timestamp_ms DESC, snapshot_id DESC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recent snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return snaps, nil
}

const snapshotSelect = `
	SELECT snapshot_id, timestamp_ms, regime, total_tokens, total_metas,
		chain_heat, top_gainers, top_losers, new_entrants, rising_metas,
		falling_metas, is_complete, compute_time_ms, tokens_rejected,
		metas_suppressed
	FROM snapshots
`

func insertSnapshot(ctx context.Context, tx pgx.Tx, snap *domain.Snapshot) error {
	chainHeat, err := json.Marshal(snap.ChainHeat)
	if err != nil {
		return fmt.Errorf("marshal chain heat: %w", err)
	}

	query := `
		INSERT INTO snapshots (
			snapshot_id, timestamp_ms, regime, total_tokens, total_metas,
			chain_heat, top_gainers, top_losers, new_entrants, rising_metas,
			falling_metas, is_complete, compute_time_ms, tokens_rejected,
			metas_suppressed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = tx.Exec(ctx, query,
		snap.SnapshotID,
		snap.TimestampMs,
		string(snap.Regime),
		snap.TotalTokens,
		snap.TotalMetas,
		chainHeat,
		snap.TopGainers,
		snap.TopLosers,
		snap.NewEntrants,
		snap.RisingMetas,
		snap.FallingMetas,
		snap.IsComplete,
		snap.ComputeTimeMs,
		snap.TokensRejected,
		snap.MetasSuppressed,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func insertTokenOutputs(ctx context.Context, tx pgx.Tx, snapshotID string, tokens []*domain.TokenOutput) error {
	query := `
		INSERT INTO token_outputs (
			snapshot_id, token_id, chain, address, symbol, name,
			price, price_change_24h, market_cap, liquidity, volume_24h, holders,
			attention_score, liquidity_score, whale_score, engineering_score,
			coherence_score, composite_score, lifecycle, integrity, first_seen,
			snapshot_timestamp_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22)
	`
	batch := &pgx.Batch{}
	for _, t := range tokens {
		batch.Queue(query,
			snapshotID, t.TokenID, string(t.Chain), t.Address, t.Symbol, t.Name,
			t.Price, t.PriceChange24h, t.MarketCap, t.Liquidity, t.Volume24h, t.Holders,
			t.Scores.Attention, t.Scores.Liquidity, t.Scores.Whale, t.Scores.Engineering,
			t.Scores.Coherence, t.CompositeScore, string(t.Lifecycle), string(t.Integrity),
			t.FirstSeen, t.SnapshotTimestampMs,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token outputs: %w", err)
	}
	return nil
}

func insertMetaOutputs(ctx context.Context, tx pgx.Tx, snapshotID string, metas []*domain.MetaOutput) error {
	query := `
		INSERT INTO meta_outputs (
			snapshot_id, meta_id, name, description, token_ids, token_count,
			avg_composite_score, avg_attention, avg_liquidity, capital_flow,
			momentum, coherence_score, lifecycle, integrity, chains,
			is_cross_chain, persistence_snapshots, snapshot_timestamp_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18)
	`
	batch := &pgx.Batch{}
	for _, m := range metas {
		chains := make([]string, len(m.Chains))
		for i, c := range m.Chains {
			chains[i] = string(c)
		}
		batch.Queue(query,
			snapshotID, m.MetaID, m.Name, m.Description, m.TokenIDs, m.TokenCount,
			m.AvgCompositeScore, m.AvgAttention, m.AvgLiquidity, m.CapitalFlow,
			m.Momentum, m.CoherenceScore, string(m.Lifecycle), string(m.Integrity),
			chains, m.IsCrossChain, m.PersistenceSnapshots, m.SnapshotTimestampMs,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert meta outputs: %w", err)
	}
	return nil
}

func insertChainOutputs(ctx context.Context, tx pgx.Tx, snapshotID string, chains []*domain.ChainOutput) error {
	query := `
		INSERT INTO chain_outputs (
			snapshot_id, chain, heat_score, dominant_driver, eligible_tokens,
			capital_share
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	batch := &pgx.Batch{}
	for _, c := range chains {
		batch.Queue(query,
			snapshotID, string(c.Chain), c.HeatScore, string(c.DominantDriver),
			c.EligibleTokens, c.CapitalShare,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert chain outputs: %w", err)
	}
	return nil
}

// scanSnapshot scans a single row into a Snapshot.
func scanSnapshot(row pgx.Row) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	var regime string
	var chainHeat []byte

	err := row.Scan(
		&snap.SnapshotID,
		&snap.TimestampMs,
		&regime,
		&snap.TotalTokens,
		&snap.TotalMetas,
		&chainHeat,
		&snap.TopGainers,
		&snap.TopLosers,
		&snap.NewEntrants,
		&snap.RisingMetas,
		&snap.FallingMetas,
		&snap.IsComplete,
		&snap.ComputeTimeMs,
		&snap.TokensRejected,
		&snap.MetasSuppressed,
	)
	if err != nil {
		return nil, err
	}

	snap.Regime = domain.MarketRegime(regime)
	if err := json.Unmarshal(chainHeat, &snap.ChainHeat); err != nil {
		return nil, fmt.Errorf("unmarshal chain heat: %w", err)
	}
	return &snap, nil
}
