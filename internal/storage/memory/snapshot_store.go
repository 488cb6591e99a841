package memory

import (
	"context"
	"sort"
	"sync"

	"alphatrend/internal/domain"
	"alphatrend/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
// It also holds the committed token, meta, and chain outputs so that one
// lock covers the whole commit; the per-entity read stores in this package
// share it.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]*domain.Snapshot
	tokens    map[string][]*domain.TokenOutput // keyed by snapshot_id
	metas     map[string][]*domain.MetaOutput
	chains    map[string][]*domain.ChainOutput
	latestID  string
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snapshots: make(map[string]*domain.Snapshot),
		tokens:    make(map[string][]*domain.TokenOutput),
		metas:     make(map[string][]*domain.MetaOutput),
		chains:    make(map[string][]*domain.ChainOutput),
	}
}

// Commit persists the cycle output and advances the latest pointer under
// one lock. Returns ErrDuplicateKey if the snapshot id exists.
func (s *SnapshotStore) Commit(_ context.Context, out *domain.CycleOutput) error {
	if out == nil || out.Snapshot == nil || out.Snapshot.SnapshotID == "" {
		return storage.ErrInvalidInput
	}
	id := out.Snapshot.SnapshotID

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.snapshots[id]; exists {
		return storage.ErrDuplicateKey
	}

	// Store copies to prevent external mutation
	s.snapshots[id] = copySnapshot(out.Snapshot)

	tokens := make([]*domain.TokenOutput, len(out.Tokens))
	for i, t := range out.Tokens {
		tokenCopy := *t
		tokens[i] = &tokenCopy
	}
	sortTokens(tokens)
	s.tokens[id] = tokens

	metas := make([]*domain.MetaOutput, len(out.Metas))
	for i, m := range out.Metas {
		metas[i] = copyMeta(m)
	}
	sort.Slice(metas, func(i, j int) bool {
		if metas[i].AvgCompositeScore != metas[j].AvgCompositeScore {
			return metas[i].AvgCompositeScore > metas[j].AvgCompositeScore
		}
		return metas[i].MetaID < metas[j].MetaID
	})
	s.metas[id] = metas

	chains := make([]*domain.ChainOutput, len(out.Chains))
	for i, c := range out.Chains {
		chainCopy := *c
		chains[i] = &chainCopy
	}
	sortChains(chains)
	s.chains[id] = chains

	s.latestID = id
	return nil
}

// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(_ context.Context, snapshotID string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.snapshots[snapshotID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copySnapshot(snap), nil
}

// Latest retrieves the current snapshot. Returns ErrNotFound before the
// first commit.
func (s *SnapshotStore) Latest(_ context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latestID == "" {
		return nil, storage.ErrNotFound
	}
	return copySnapshot(s.snapshots[s.latestID]), nil
}

// ListRecent retrieves up to limit snapshots ordered by timestamp DESC.
func (s *SnapshotStore) ListRecent(_ context.Context, limit int) ([]*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Snapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		result = append(result, copySnapshot(snap))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TimestampMs != result[j].TimestampMs {
			return result[i].TimestampMs > result[j].TimestampMs
		}
		return result[i].SnapshotID > result[j].SnapshotID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// sortTokens orders by composite score DESC, token_id ASC.
func sortTokens(tokens []*domain.TokenOutput) {
	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].CompositeScore != tokens[j].CompositeScore {
			return tokens[i].CompositeScore > tokens[j].CompositeScore
		}
		return tokens[i].TokenID < tokens[j].TokenID
	})
}

// sortChains orders by canonical chain order.
func sortChains(chains []*domain.ChainOutput) {
	rank := make(map[domain.Chain]int, len(domain.AllChains))
	for i, c := range domain.AllChains {
		rank[c] = i
	}
	sort.Slice(chains, func(i, j int) bool {
		return rank[chains[i].Chain] < rank[chains[j].Chain]
	})
}

func copySnapshot(snap *domain.Snapshot) *domain.Snapshot {
	snapCopy := *snap
	snapCopy.ChainHeat = make(map[domain.Chain]int, len(snap.ChainHeat))
	for k, v := range snap.ChainHeat {
		snapCopy.ChainHeat[k] = v
	}
	snapCopy.TopGainers = append([]string(nil), snap.TopGainers...)
	snapCopy.TopLosers = append([]string(nil), snap.TopLosers...)
	snapCopy.NewEntrants = append([]string(nil), snap.NewEntrants...)
	snapCopy.RisingMetas = append([]string(nil), snap.RisingMetas...)
	snapCopy.FallingMetas = append([]string(nil), snap.FallingMetas...)
	return &snapCopy
}

func copyMeta(m *domain.MetaOutput) *domain.MetaOutput {
	metaCopy := *m
	metaCopy.TokenIDs = append([]string(nil), m.TokenIDs...)
	metaCopy.Chains = append([]domain.Chain(nil), m.Chains...)
	return &metaCopy
}

// Verify interface compliance at compile time.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)
