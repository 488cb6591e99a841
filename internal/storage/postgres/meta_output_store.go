package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"alphatrend/internal/domain"
	"alphatrend/internal/storage"
)

// MetaOutputStore implements storage.MetaOutputStore using PostgreSQL.
type MetaOutputStore struct {
	pool *Pool
}

// NewMetaOutputStore creates a new MetaOutputStore.
func NewMetaOutputStore(pool *Pool) *MetaOutputStore {
	return &MetaOutputStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MetaOutputStore = (*MetaOutputStore)(nil)

const metaOutputColumns = `
	snapshot_id, meta_id, name, description, token_ids, token_count,
	avg_composite_score, avg_attention, avg_liquidity, capital_flow,
	momentum, coherence_score, lifecycle, integrity, chains,
	is_cross_chain, persistence_snapshots, snapshot_timestamp_ms
`

// GetBySnapshot retrieves meta outputs ordered by average composite score
// DESC, meta_id ASC.
func (s *MetaOutputStore) GetBySnapshot(ctx context.Context, snapshotID string) ([]*domain.MetaOutput, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM snapshots WHERE snapshot_id = $1)`, snapshotID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check snapshot exists: %w", err)
	}
	if !exists {
		return nil, storage.ErrNotFound
	}

	query := `SELECT ` + metaOutputColumns + `
		FROM meta_outputs
		WHERE snapshot_id = $1
		ORDER BY avg_composite_score DESC, meta_id ASC
	`

	rows, err := s.pool.Query(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("get meta outputs by snapshot: %w", err)
	}
	defer rows.Close()

	var metas []*domain.MetaOutput
	for rows.Next() {
		m, err := scanMetaOutput(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meta output row: %w", err)
		}
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meta output rows: %w", err)
	}
	return metas, nil
}

// GetByID retrieves one meta output within a snapshot. Returns ErrNotFound
// if not exists.
func (s *MetaOutputStore) GetByID(ctx context.Context, snapshotID, metaID string) (*domain.MetaOutput, error) {
	query := `SELECT ` + metaOutputColumns + `
		FROM meta_outputs
		WHERE snapshot_id = $1 AND meta_id = $2
	`

	m, err := scanMetaOutput(s.pool.QueryRow(ctx, query, snapshotID, metaID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get meta output by id: %w", err)
	}
	return m, nil
}

// scanMetaOutput scans a single row into a MetaOutput.
func scanMetaOutput(row pgx.Row) (*domain.MetaOutput, error) {
	var m domain.MetaOutput
	var lifecycle, integrity string
	var chains []string

	err := row.Scan(
		&m.SnapshotID,
		&m.MetaID,
		&m.Name,
		&m.Description,
		&m.TokenIDs,
		&m.TokenCount,
		&m.AvgCompositeScore,
		&m.AvgAttention,
		&m.AvgLiquidity,
		&m.CapitalFlow,
		&m.Momentum,
		&m.CoherenceScore,
		&lifecycle,
		&integrity,
		&chains,
		&m.IsCrossChain,
		&m.PersistenceSnapshots,
		&m.SnapshotTimestampMs,
	)
	if err != nil {
		return nil, err
	}

	m.Lifecycle = domain.LifecyclePhase(lifecycle)
	m.Integrity = domain.IntegrityGrade(integrity)
	m.Chains = make([]domain.Chain, len(chains))
	for i, c := range chains {
		m.Chains[i] = domain.Chain(c)
	}
	return &m, nil
}
