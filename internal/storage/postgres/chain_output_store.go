package postgres

import (
	"context"
	"fmt"

	"alphatrend/internal/domain"
	"alphatrend/internal/storage"
)

// ChainOutputStore implements storage.ChainOutputStore using PostgreSQL.
type ChainOutputStore struct {
	pool *Pool
}

// NewChainOutputStore creates a new ChainOutputStore.
func NewChainOutputStore(pool *Pool) *ChainOutputStore {
	return &ChainOutputStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ChainOutputStore = (*ChainOutputStore)(nil)

// GetBySnapshot retrieves a snapshot's chain outputs in canonical chain order.
func (s *ChainOutputStore) GetBySnapshot(ctx context.Context, snapshotID string) ([]*domain.ChainOutput, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM snapshots WHERE snapshot_id = $1)`, snapshotID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check snapshot exists: %w", err)
	}
	if !exists {
		return nil, storage.ErrNotFound
	}

	query := `
		SELECT snapshot_id, chain, heat_score, dominant_driver, eligible_tokens, capital_share
		FROM chain_outputs
		WHERE snapshot_id = $1
	`

	rows, err := s.pool.Query(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("get chain outputs by snapshot: %w", err)
	}
	defer rows.Close()

	byChain := make(map[domain.Chain]*domain.ChainOutput)
	for rows.Next() {
		var c domain.ChainOutput
		var chain, driver string
		err := rows.Scan(&c.SnapshotID, &chain, &c.HeatScore, &driver, &c.EligibleTokens, &c.CapitalShare)
		if err != nil {
			return nil, fmt.Errorf("scan chain output row: %w", err)
		}
		c.Chain = domain.Chain(chain)
		c.DominantDriver = domain.ChainDriver(driver)
		byChain[c.Chain] = &c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chain output rows: %w", err)
	}

	var outputs []*domain.ChainOutput
	for _, chain := range domain.AllChains {
		if c, ok := byChain[chain]; ok {
			outputs = append(outputs, c)
		}
	}
	return outputs, nil
}
