package memory

import (
	"context"

	"alphatrend/internal/domain"
	"alphatrend/internal/storage"
)

// MetaOutputStore is an in-memory implementation of storage.MetaOutputStore.
type MetaOutputStore struct {
	s *SnapshotStore
}

// NewMetaOutputStore creates a read store over the given snapshot store.
func NewMetaOutputStore(s *SnapshotStore) *MetaOutputStore {
	return &MetaOutputStore{s: s}
}

// GetBySnapshot retrieves meta outputs ordered by average composite score
// DESC, meta_id ASC.
func (m *MetaOutputStore) GetBySnapshot(_ context.Context, snapshotID string) ([]*domain.MetaOutput, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	if _, exists := m.s.snapshots[snapshotID]; !exists {
		return nil, storage.ErrNotFound
	}

	metas := m.s.metas[snapshotID]
	result := make([]*domain.MetaOutput, len(metas))
	for i, meta := range metas {
		result[i] = copyMeta(meta)
	}
	return result, nil
}

// GetByID retrieves one meta output within a snapshot.
func (m *MetaOutputStore) GetByID(_ context.Context, snapshotID, metaID string) (*domain.MetaOutput, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	for _, meta := range m.s.metas[snapshotID] {
		if meta.MetaID == metaID {
			return copyMeta(meta), nil
		}
	}
	return nil, storage.ErrNotFound
}

// Verify interface compliance at compile time.
var _ storage.MetaOutputStore = (*MetaOutputStore)(nil)
