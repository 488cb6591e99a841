package memory

import (
	"context"
	"sort"
	"sync"

	"alphatrend/internal/domain"
	"alphatrend/internal/storage"
)

// FlowHistoryStore is an in-memory implementation of storage.FlowHistoryStore.
type FlowHistoryStore struct {
	mu     sync.RWMutex
	points []*domain.FlowPoint
	seen   map[flowKey]struct{}
}

type flowKey struct {
	metaID      string
	timestampMs int64
}

// NewFlowHistoryStore creates a new in-memory flow history store.
func NewFlowHistoryStore() *FlowHistoryStore {
	return &FlowHistoryStore{seen: make(map[flowKey]struct{})}
}

// InsertBulk adds multiple points. Fails entire batch on duplicate
// (meta_id, timestamp_ms).
func (s *FlowHistoryStore) InsertBulk(_ context.Context, points []*domain.FlowPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[flowKey]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.MetaID == "" {
			return storage.ErrInvalidInput
		}
		k := flowKey{p.MetaID, p.TimestampMs}
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
		s.seen[flowKey{p.MetaID, p.TimestampMs}] = struct{}{}
	}
	return nil
}

// GetByMetaID retrieves all points for a cluster, ordered by timestamp ASC.
func (s *FlowHistoryStore) GetByMetaID(_ context.Context, metaID string) ([]*domain.FlowPoint, error) {
	return s.collect(func(p *domain.FlowPoint) bool {
		return p.MetaID == metaID
	})
}

// GetByTimeRange retrieves points for a cluster within [start, end] (inclusive).
func (s *FlowHistoryStore) GetByTimeRange(_ context.Context, metaID string, start, end int64) ([]*domain.FlowPoint, error) {
	return s.collect(func(p *domain.FlowPoint) bool {
		return p.MetaID == metaID && p.TimestampMs >= start && p.TimestampMs <= end
	})
}

func (s *FlowHistoryStore) collect(match func(*domain.FlowPoint) bool) ([]*domain.FlowPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FlowPoint
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
var _ storage.FlowHistoryStore = (*FlowHistoryStore)(nil)
