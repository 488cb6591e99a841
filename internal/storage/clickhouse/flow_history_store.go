package clickhouse

import (
	"context"
	"fmt"

	"alphatrend/internal/domain"
	"alphatrend/internal/storage"
)

// FlowHistoryStore implements storage.FlowHistoryStore using ClickHouse.
type FlowHistoryStore struct {
	conn *Conn
}

// NewFlowHistoryStore creates a new FlowHistoryStore.
func NewFlowHistoryStore(conn *Conn) *FlowHistoryStore {
	return &FlowHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FlowHistoryStore = (*FlowHistoryStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate
// (meta_id, timestamp_ms).
func (s *FlowHistoryStore) InsertBulk(ctx context.Context, points []*domain.FlowPoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		metaID      string
		timestampMs int64
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		k := key{p.MetaID, p.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.MetaID, p.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO flow_history (
			meta_id, snapshot_id, timestamp_ms, capital_flow,
			momentum, avg_composite_score, token_count
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.MetaID, p.SnapshotID, uint64(p.TimestampMs), p.CapitalFlow,
			int32(p.Momentum), uint8(p.AvgCompositeScore), uint32(p.TokenCount),
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

// GetByMetaID retrieves all points for a cluster, ordered by timestamp ASC.
func (s *FlowHistoryStore) GetByMetaID(ctx context.Context, metaID string) ([]*domain.FlowPoint, error) {
	query := flowHistorySelect + `
		WHERE meta_id = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, metaID)
	if err != nil {
		return nil, fmt.Errorf("query by meta id: %w", err)
	}
	defer rows.Close()

	return scanFlowHistory(rows)
}

// GetByTimeRange retrieves points for a cluster within [start, end] (inclusive).
func (s *FlowHistoryStore) GetByTimeRange(ctx context.Context, metaID string, start, end int64) ([]*domain.FlowPoint, error) {
	query := flowHistorySelect + `
		WHERE meta_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, metaID, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanFlowHistory(rows)
}

const flowHistorySelect = `
	SELECT meta_id, snapshot_id, timestamp_ms, capital_flow,
		momentum, avg_composite_score, token_count
	FROM flow_history
`

// exists checks if a point with the given key exists.
func (s *FlowHistoryStore) exists(ctx context.Context, metaID string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM flow_history
		WHERE meta_id = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, metaID, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanFlowHistory scans multiple rows.
func scanFlowHistory(rows chRows) ([]*domain.FlowPoint, error) {
	var points []*domain.FlowPoint

	for rows.Next() {
		var p domain.FlowPoint
		var timestampMs uint64
		var momentum int32
		var composite uint8
		var tokenCount uint32

		err := rows.Scan(
			&p.MetaID, &p.SnapshotID, &timestampMs, &p.CapitalFlow,
			&momentum, &composite, &tokenCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan flow history row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		p.Momentum = int(momentum)
		p.AvgCompositeScore = int(composite)
		p.TokenCount = int(tokenCount)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flow history rows: %w", err)
	}

	return points, nil
}
