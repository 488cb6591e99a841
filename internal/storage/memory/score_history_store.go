package memory

import (
	"context"
	"sort"
	"sync"

	"alphatrend/internal/domain"
	"alphatrend/internal/storage"
)

// ScoreHistoryStore is an in-memory implementation of storage.ScoreHistoryStore.
type ScoreHistoryStore struct {
	mu     sync.RWMutex
	points []*domain.ScorePoint
	seen   map[scoreKey]struct{}
}

type scoreKey struct {
	tokenID     string
	timestampMs int64
}

// NewScoreHistoryStore creates a new in-memory score history store.
func NewScoreHistoryStore() *ScoreHistoryStore {
	return &ScoreHistoryStore{seen: make(map[scoreKey]struct{})}
}

// InsertBulk adds multiple points. Fails entire batch on duplicate
// (token_id, timestamp_ms).
func (s *ScoreHistoryStore) InsertBulk(_ context.Context, points []*domain.ScorePoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check intra-batch and existing duplicates before mutating
	batch := make(map[scoreKey]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.TokenID == "" {
			return storage.ErrInvalidInput
		}
		k := scoreKey{p.TokenID, p.TimestampMs}
		if _, exists := batch[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		batch[k] = struct{}{}
	}

	for _, p := range points {
		pointCopy := *p
		s.points = append(s.points, &pointCopy)
		s.seen[scoreKey{p.TokenID, p.TimestampMs}] = struct{}{}
	}
	return nil
}

// GetByTokenID retrieves all points for a token, ordered by timestamp ASC.
func (s *ScoreHistoryStore) GetByTokenID(_ context.Context, tokenID string) ([]*domain.ScorePoint, error) {
	return s.collect(func(p *domain.ScorePoint) bool {
		return p.TokenID == tokenID
	})
}

// GetByTimeRange retrieves points for a token within [start, end] (inclusive).
func (s *ScoreHistoryStore) GetByTimeRange(_ context.Context, tokenID string, start, end int64) ([]*domain.ScorePoint, error) {
	return s.collect(func(p *domain.ScorePoint) bool {
		return p.TokenID == tokenID && p.TimestampMs >= start && p.TimestampMs <= end
	})
}

func (s *ScoreHistoryStore) collect(match func(*domain.ScorePoint) bool) ([]*domain.ScorePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScorePoint
	for _, p := range s.points {
		if match(p) {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ScoreHistoryStore = (*ScoreHistoryStore)(nil)
