// Package query is the read side of the engine: it composes committed
// snapshot, token, meta, and chain outputs into the payloads the API and
// reports consume. It never writes.
package query

import (
	"context"
	"errors"

	"alphatrend/internal/domain"
	"alphatrend/internal/storage"
)

// ErrHistoryDisabled is returned from history queries when no history store
// is configured.
var ErrHistoryDisabled = errors.New("history store not configured")

// defaultTokenLimit caps dashboard token lists when the caller does not
// specify one.
const defaultTokenLimit = 50

// Service answers read queries against committed cycle outputs.
type Service struct {
	snapshots storage.SnapshotStore
	tokens    storage.TokenOutputStore
	metas     storage.MetaOutputStore
	chains    storage.ChainOutputStore

	// History stores are optional; nil disables the history queries.
	scoreHist storage.ScoreHistoryStore
	flowHist  storage.FlowHistoryStore
}

// Options wires the service's stores.
type Options struct {
	Snapshots    storage.SnapshotStore
	Tokens       storage.TokenOutputStore
	Metas        storage.MetaOutputStore
	Chains       storage.ChainOutputStore
	ScoreHistory storage.ScoreHistoryStore
	FlowHistory  storage.FlowHistoryStore
}

// NewService creates a query service.
func NewService(opts Options) *Service {
	return &Service{
		snapshots: opts.Snapshots,
		tokens:    opts.Tokens,
		metas:     opts.Metas,
		chains:    opts.Chains,
		scoreHist: opts.ScoreHistory,
		flowHist:  opts.FlowHistory,
	}
}

// Dashboard is the full landing payload for one snapshot.
type Dashboard struct {
	Snapshot *domain.Snapshot      `json:"snapshot"`
	Tokens   []*domain.TokenOutput `json:"tokens"`
	Metas    []*domain.MetaOutput  `json:"metas"`
	Chains   []*domain.ChainOutput `json:"chains"`
}

// Dashboard loads the latest snapshot with its top tokens, published metas,
// and chain rollups. tokenLimit caps the token list; zero or negative uses
// the default. Returns ErrNotFound before the first committed cycle.
func (s *Service) Dashboard(ctx context.Context, tokenLimit int) (*Dashboard, error) {
	snap, err := s.snapshots.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if tokenLimit <= 0 {
		tokenLimit = defaultTokenLimit
	}

	tokens, err := s.tokens.GetBySnapshot(ctx, snap.SnapshotID, storage.TokenFilter{Limit: tokenLimit})
	if err != nil {
		return nil, err
	}
	metas, err := s.metas.GetBySnapshot(ctx, snap.SnapshotID)
	if err != nil {
		return nil, err
	}
	chains, err := s.chains.GetBySnapshot(ctx, snap.SnapshotID)
	if err != nil {
		return nil, err
	}

	return &Dashboard{Snapshot: snap, Tokens: tokens, Metas: metas, Chains: chains}, nil
}

// Latest returns the current snapshot.
func (s *Service) Latest(ctx context.Context) (*domain.Snapshot, error) {
	return s.snapshots.Latest(ctx)
}

// Snapshot returns one snapshot by id.
func (s *Service) Snapshot(ctx context.Context, snapshotID string) (*domain.Snapshot, error) {
	return s.snapshots.GetByID(ctx, snapshotID)
}

// Recent returns up to limit snapshots, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]*domain.Snapshot, error) {
	return s.snapshots.ListRecent(ctx, limit)
}

// resolveSnapshot maps an empty id to the latest snapshot.
func (s *Service) resolveSnapshot(ctx context.Context, snapshotID string) (string, error) {
	if snapshotID != "" {
		return snapshotID, nil
	}
	snap, err := s.snapshots.Latest(ctx)
	if err != nil {
		return "", err
	}
	return snap.SnapshotID, nil
}

// Tokens returns a snapshot's token outputs under the filter; an empty
// snapshot id targets the latest snapshot.
func (s *Service) Tokens(ctx context.Context, snapshotID string, f storage.TokenFilter) ([]*domain.TokenOutput, error) {
	id, err := s.resolveSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	return s.tokens.GetBySnapshot(ctx, id, f)
}

// Token returns one token's output; an empty snapshot id targets the latest
// snapshot.
func (s *Service) Token(ctx context.Context, snapshotID, tokenID string) (*domain.TokenOutput, error) {
	id, err := s.resolveSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	return s.tokens.GetByID(ctx, id, tokenID)
}

// Metas returns a snapshot's published metas; an empty snapshot id targets
// the latest snapshot.
func (s *Service) Metas(ctx context.Context, snapshotID string) ([]*domain.MetaOutput, error) {
	id, err := s.resolveSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	return s.metas.GetBySnapshot(ctx, id)
}

// Meta returns one published meta; an empty snapshot id targets the latest
// snapshot.
func (s *Service) Meta(ctx context.Context, snapshotID, metaID string) (*domain.MetaOutput, error) {
	id, err := s.resolveSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	return s.metas.GetByID(ctx, id, metaID)
}

// Chains returns a snapshot's chain rollups in canonical order; an empty
// snapshot id targets the latest snapshot.
func (s *Service) Chains(ctx context.Context, snapshotID string) ([]*domain.ChainOutput, error) {
	id, err := s.resolveSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	return s.chains.GetBySnapshot(ctx, id)
}

// TokenHistory returns a token's score trail, oldest first. A start or end
// of zero leaves that bound open.
func (s *Service) TokenHistory(ctx context.Context, tokenID string, start, end int64) ([]*domain.ScorePoint, error) {
	if s.scoreHist == nil {
		return nil, ErrHistoryDisabled
	}
	if start == 0 && end == 0 {
		return s.scoreHist.GetByTokenID(ctx, tokenID)
	}
	if end == 0 {
		end = int64(1<<62 - 1)
	}
	return s.scoreHist.GetByTimeRange(ctx, tokenID, start, end)
}

// MetaFlow returns a cluster's capital-flow trail, oldest first. A start or
// end of zero leaves that bound open.
func (s *Service) MetaFlow(ctx context.Context, metaID string, start, end int64) ([]*domain.FlowPoint, error) {
	if s.flowHist == nil {
		return nil, ErrHistoryDisabled
	}
	if start == 0 && end == 0 {
		return s.flowHist.GetByMetaID(ctx, metaID)
	}
	if end == 0 {
		end = int64(1<<62 - 1)
	}
	return s.flowHist.GetByTimeRange(ctx, metaID, start, end)
}
