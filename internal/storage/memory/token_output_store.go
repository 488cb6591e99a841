package memory

import (
	"context"

	"alphatrend/internal/domain"
	"alphatrend/internal/storage"
)

// TokenOutputStore is an in-memory implementation of storage.TokenOutputStore.
// It reads from the snapshot store that committed the outputs.
type TokenOutputStore struct {
	s *SnapshotStore
}

// NewTokenOutputStore creates a read store over the given snapshot store.
func NewTokenOutputStore(s *SnapshotStore) *TokenOutputStore {
	return &TokenOutputStore{s: s}
}

// GetBySnapshot retrieves token outputs matching the filter, ordered by
// composite score DESC, token_id ASC.
func (t *TokenOutputStore) GetBySnapshot(_ context.Context, snapshotID string, f storage.TokenFilter) ([]*domain.TokenOutput, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	if _, exists := t.s.snapshots[snapshotID]; !exists {
		return nil, storage.ErrNotFound
	}

	var result []*domain.TokenOutput
	for _, tok := range t.s.tokens[snapshotID] {
		if !matches(tok, f) {
			continue
		}
		tokenCopy := *tok
		result = append(result, &tokenCopy)
		if f.Limit > 0 && len(result) == f.Limit {
			break
		}
	}
	return result, nil
}

// GetByID retrieves one token output within a snapshot.
func (t *TokenOutputStore) GetByID(_ context.Context, snapshotID, tokenID string) (*domain.TokenOutput, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	for _, tok := range t.s.tokens[snapshotID] {
		if tok.TokenID == tokenID {
			tokenCopy := *tok
			return &tokenCopy, nil
		}
	}
	return nil, storage.ErrNotFound
}

func matches(t *domain.TokenOutput, f storage.TokenFilter) bool {
	if f.Chain != nil && t.Chain != *f.Chain {
		return false
	}
	if f.Lifecycle != nil && t.Lifecycle != *f.Lifecycle {
		return false
	}
	if f.Integrity != nil && t.Integrity != *f.Integrity {
		return false
	}
	if f.MinComposite != nil && t.CompositeScore < *f.MinComposite {
		return false
	}
	return true
}

// Verify interface compliance at compile time.
var _ storage.TokenOutputStore = (*TokenOutputStore)(nil)
