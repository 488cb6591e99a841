package memory

import (
	"context"

	"alphatrend/internal/domain"
	"alphatrend/internal/storage"
)

// ChainOutputStore is an in-memory implementation of storage.ChainOutputStore.
type ChainOutputStore struct {
	s *SnapshotStore
}

// NewChainOutputStore creates a read store over the given snapshot store.
func NewChainOutputStore(s *SnapshotStore) *ChainOutputStore {
	return &ChainOutputStore{s: s}
}

// GetBySnapshot retrieves a snapshot's chain outputs in canonical chain order.
func (c *ChainOutputStore) GetBySnapshot(_ context.Context, snapshotID string) ([]*domain.ChainOutput, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	if _, exists := c.s.snapshots[snapshotID]; !exists {
		return nil, storage.ErrNotFound
	}

	chains := c.s.chains[snapshotID]
	result := make([]*domain.ChainOutput, len(chains))
	for i, chain := range chains {
		chainCopy := *chain
		result[i] = &chainCopy
	}
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ChainOutputStore = (*ChainOutputStore)(nil)
