package clickhouse

import (
	"context"
	"fmt"

	"alphatrend/internal/domain"
	"alphatrend/internal/storage"
)

// ScoreHistoryStore implements storage.ScoreHistoryStore using ClickHouse.
type ScoreHistoryStore struct {
	conn *Conn
}

// NewScoreHistoryStore creates a new ScoreHistoryStore.
func NewScoreHistoryStore(conn *Conn) *ScoreHistoryStore {
	return &ScoreHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ScoreHistoryStore = (*ScoreHistoryStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate
// (token_id, timestamp_ms).
func (s *ScoreHistoryStore) InsertBulk(ctx context.Context, points []*domain.ScorePoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		tokenID     string
		timestampMs int64
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		k := key{p.TokenID, p.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.TokenID, p.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO score_history (
			token_id, snapshot_id, timestamp_ms, chain,
			attention_score, liquidity_score, whale_score, engineering_score,
			coherence_score, composite_score, lifecycle, integrity, price
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.TokenID, p.SnapshotID, uint64(p.TimestampMs), string(p.Chain),
			uint8(p.Attention), uint8(p.Liquidity), uint8(p.Whale), uint8(p.Engineering),
			uint8(p.Coherence), uint8(p.CompositeScore), string(p.Lifecycle),
			string(p.Integrity), p.Price,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTokenID retrieves all points for a token, ordered by timestamp ASC.
func (s *ScoreHistoryStore) GetByTokenID(ctx context.Context, tokenID string) ([]*domain.ScorePoint, error) {
	query := scoreHistorySelect + `
		WHERE token_id = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("query by token id: %w", err)
	}
	defer rows.Close()

	return scanScoreHistory(rows)
}

// GetByTimeRange retrieves points for a token within [start, end] (inclusive).
func (s *ScoreHistoryStore) GetByTimeRange(ctx context.Context, tokenID string, start, end int64) ([]*domain.ScorePoint, error) {
	query := scoreHistorySelect + `
		WHERE token_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenID, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanScoreHistory(rows)
}

const scoreHistorySelect = `
	SELECT token_id, snapshot_id, timestamp_ms, chain,
		attention_score, liquidity_score, whale_score, engineering_score,
		coherence_score, composite_score, lifecycle, integrity, price
	FROM score_history
`

// exists checks if a point with the given key exists.
func (s *ScoreHistoryStore) exists(ctx context.Context, tokenID string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM score_history
		WHERE token_id = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, tokenID, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows is the subset of driver.Rows the scanners need.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanScoreHistory scans multiple rows.
func scanScoreHistory(rows chRows) ([]*domain.ScorePoint, error) {
	var points []*domain.ScorePoint

	for rows.Next() {
		var p domain.ScorePoint
		var timestampMs uint64
		var chain, lifecycle, integrity string
		var attention, liquidity, whale, engineering, coherence, composite uint8

		err := rows.Scan(
			&p.TokenID, &p.SnapshotID, &timestampMs, &chain,
			&attention, &liquidity, &whale, &engineering,
			&coherence, &composite, &lifecycle, &integrity, &p.Price,
		)
		if err != nil {
			return nil, fmt.Errorf("scan score history row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		p.Chain = domain.Chain(chain)
		p.Attention = int(attention)
		p.Liquidity = int(liquidity)
		p.Whale = int(whale)
		p.Engineering = int(engineering)
		p.Coherence = int(coherence)
		p.CompositeScore = int(composite)
		p.Lifecycle = domain.LifecyclePhase(lifecycle)
		p.Integrity = domain.IntegrityGrade(integrity)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score history rows: %w", err)
	}

	return points, nil
}
