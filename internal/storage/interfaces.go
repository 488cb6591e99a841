package storage

import (
	"context"

	"alphatrend/internal/domain"
)

// TokenFilter narrows token output queries. Nil fields match everything.
type TokenFilter struct {
	Chain        *domain.Chain
	Lifecycle    *domain.LifecyclePhase
	Integrity    *domain.IntegrityGrade
	MinComposite *int

	// Limit caps the result set after ordering; zero means no cap.
	Limit int
}

// SnapshotStore provides access to snapshot storage. Snapshots are
// immutable once committed.
type SnapshotStore interface {
	// Commit persists a completed cycle's snapshot together with all of
	// its token, meta, and chain outputs, and advances the latest-snapshot
	// pointer. The whole commit is atomic: readers observe either the
	// previous snapshot or the new one in full, never a partial write.
	// Returns ErrDuplicateKey if the snapshot id was already committed.
	Commit(ctx context.Context, out *domain.CycleOutput) error

	// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, snapshotID string) (*domain.Snapshot, error)

	// Latest retrieves the current snapshot. Returns ErrNotFound before the
	// first successful commit.
	Latest(ctx context.Context) (*domain.Snapshot, error)

	// ListRecent retrieves up to limit snapshots ordered by timestamp DESC.
	ListRecent(ctx context.Context, limit int) ([]*domain.Snapshot, error)
}

// TokenOutputStore provides read access to committed token outputs.
type TokenOutputStore interface {
	// GetBySnapshot retrieves a snapshot's token outputs matching the
	// filter, ordered by composite score DESC, token_id ASC.
	GetBySnapshot(ctx context.Context, snapshotID string, f TokenFilter) ([]*domain.TokenOutput, error)

	// GetByID retrieves one token output within a snapshot. Returns
	// ErrNotFound if not exists.
	GetByID(ctx context.Context, snapshotID, tokenID string) (*domain.TokenOutput, error)
}

// MetaOutputStore provides read access to committed meta outputs.
type MetaOutputStore interface {
	// GetBySnapshot retrieves a snapshot's meta outputs ordered by
	// average composite score DESC, meta_id ASC.
	GetBySnapshot(ctx context.Context, snapshotID string) ([]*domain.MetaOutput, error)

	// GetByID retrieves one meta output within a snapshot. Returns
	// ErrNotFound if not exists.
	GetByID(ctx context.Context, snapshotID, metaID string) (*domain.MetaOutput, error)
}

// ChainOutputStore provides read access to committed chain outputs.
type ChainOutputStore interface {
	// GetBySnapshot retrieves a snapshot's chain outputs in canonical
	// chain order.
	GetBySnapshot(ctx context.Context, snapshotID string) ([]*domain.ChainOutput, error)
}

// ScoreHistoryStore provides access to the per-token score history.
type ScoreHistoryStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate
	// (token_id, timestamp_ms).
	InsertBulk(ctx context.Context, points []*domain.ScorePoint) error

	// GetByTokenID retrieves all points for a token, ordered by timestamp ASC.
	GetByTokenID(ctx context.Context, tokenID string) ([]*domain.ScorePoint, error)

	// GetByTimeRange retrieves points for a token within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, tokenID string, start, end int64) ([]*domain.ScorePoint, error)
}

// FlowHistoryStore provides access to the per-cluster capital flow history.
type FlowHistoryStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate
	// (meta_id, timestamp_ms).
	InsertBulk(ctx context.Context, points []*domain.FlowPoint) error

	// GetByMetaID retrieves all points for a cluster, ordered by timestamp ASC.
	GetByMetaID(ctx context.Context, metaID string) ([]*domain.FlowPoint, error)

	// GetByTimeRange retrieves points for a cluster within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, metaID string, start, end int64) ([]*domain.FlowPoint, error)
}
