package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"alphatrend/internal/domain"
	"alphatrend/internal/storage"
)

// TokenOutputStore implements storage.TokenOutputStore using PostgreSQL.
type TokenOutputStore struct {
	pool *Pool
}

// NewTokenOutputStore creates a new TokenOutputStore.
func NewTokenOutputStore(pool *Pool) *TokenOutputStore {
	return &TokenOutputStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenOutputStore = (*TokenOutputStore)(nil)

const tokenOutputColumns = `
	snapshot_id, token_id, chain, address, symbol, name,
	price, price_change_24h, market_cap, liquidity, volume_24h, holders,
	attention_score, liquidity_score, whale_score, engineering_score,
	coherence_score, composite_score, lifecycle, integrity, first_seen,
	snapshot_timestamp_ms
`

// GetBySnapshot retrieves token outputs matching the filter, ordered by
// composite score DESC, token_id ASC.
func (s *TokenOutputStore) GetBySnapshot(ctx context.Context, snapshotID string, f storage.TokenFilter) ([]*domain.TokenOutput, error) {
	// Snapshot existence is reported distinctly from an empty result set.
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

	conds := []string{"snapshot_id = $1"}
	args := []any{snapshotID}
	if f.Chain != nil {
		args = append(args, string(*f.Chain))
		conds = append(conds, fmt.Sprintf("chain = $%d", len(args)))
	}
	if f.Lifecycle != nil {
		args = append(args, string(*f.Lifecycle))
		conds = append(conds, fmt.Sprintf("lifecycle = $%d", len(args)))
	}
	if f.Integrity != nil {
		args = append(args, string(*f.Integrity))
		conds = append(conds, fmt.Sprintf("integrity = $%d", len(args)))
	}
	if f.MinComposite != nil {
		args = append(args, *f.MinComposite)
		conds = append(conds, fmt.Sprintf("composite_score >= $%d", len(args)))
	}

	query := `SELECT ` + tokenOutputColumns + `
		FROM token_outputs
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY composite_score DESC, token_id ASC
	`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get token outputs by snapshot: %w", err)
	}
	defer rows.Close()

	return scanTokenOutputs(rows)
}

// GetByID retrieves one token output within a snapshot. Returns ErrNotFound
// if not exists.
func (s *TokenOutputStore) GetByID(ctx context.Context, snapshotID, tokenID string) (*domain.TokenOutput, error) {
	query := `SELECT ` + tokenOutputColumns + `
		FROM token_outputs
		WHERE snapshot_id = $1 AND token_id = $2
	`

	t, err := scanTokenOutput(s.pool.QueryRow(ctx, query, snapshotID, tokenID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token output by id: %w", err)
	}
	return t, nil
}

// scanTokenOutput scans a single row into a TokenOutput.
func scanTokenOutput(row pgx.Row) (*domain.TokenOutput, error) {
	var t domain.TokenOutput
	var chain, lifecycle, integrity string

	err := row.Scan(
		&t.SnapshotID,
		&t.TokenID,
		&chain,
		&t.Address,
		&t.Symbol,
		&t.Name,
		&t.Price,
		&t.PriceChange24h,
		&t.MarketCap,
		&t.Liquidity,
		&t.Volume24h,
		&t.Holders,
		&t.Scores.Attention,
		&t.Scores.Liquidity,
		&t.Scores.Whale,
		&t.Scores.Engineering,
		&t.Scores.Coherence,
		&t.CompositeScore,
		&lifecycle,
		&integrity,
		&t.FirstSeen,
		&t.SnapshotTimestampMs,
	)
	if err != nil {
		return nil, err
	}

	t.Chain = domain.Chain(chain)
	t.Lifecycle = domain.LifecyclePhase(lifecycle)
	t.Integrity = domain.IntegrityGrade(integrity)
	return &t, nil
}

// scanTokenOutputs scans multiple rows into a slice of TokenOutput.
func scanTokenOutputs(rows pgx.Rows) ([]*domain.TokenOutput, error) {
	var tokens []*domain.TokenOutput

	for rows.Next() {
		t, err := scanTokenOutput(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token output row: %w", err)
		}
		tokens = append(tokens, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token output rows: %w", err)
	}
	return tokens, nil
}
