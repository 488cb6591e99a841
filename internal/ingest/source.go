// Package ingest provides batch sources for the snapshot engine. A source
// yields one complete cross-chain batch per call; partial batches are never
// assembled here.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"alphatrend/internal/domain"
)

// ErrSourceClosed is returned by Next after Close.
var ErrSourceClosed = errors.New("source closed")

// Source yields raw input batches.
type Source interface {
	// Next blocks until a full batch is available or ctx ends.
	Next(ctx context.Context) (*domain.Batch, error)

	// Close releases the source's resources. Next calls after Close
	// return ErrSourceClosed.
	Close() error
}

// decodeBatch parses one wire message into a batch. A message carries a
// complete batch; anything that does not parse is rejected whole.
func decodeBatch(data []byte) (*domain.Batch, error) {
	var batch domain.Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	if batch.ObservedAtMs <= 0 {
		return nil, fmt.Errorf("decode batch: missing observed_at_ms")
	}
	return &batch, nil
}
