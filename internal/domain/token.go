package domain

// TokenOutput is one token's classified output row for one snapshot.
// Rows are immutable once the snapshot is committed; a token is superseded
// by newer snapshot rows, never patched in place.
type TokenOutput struct {
	TokenID    string
	SnapshotID string

	// Identity, immutable after first observation.
	Chain   Chain
	Address string
	Symbol  string
	Name    string

	// Raw market metrics, refreshed each cycle.
	Price          float64
	PriceChange24h float64
	MarketCap      float64
	Liquidity      float64
	Volume24h      float64
	Holders        int64

	// Derived. CompositeScore is a deterministic weighted function of
	// Scores; Lifecycle and Integrity are pure functions of Scores.
	Scores         FeatureScores
	CompositeScore int
	Lifecycle      LifecyclePhase
	Integrity      IntegrityGrade

	// FirstSeen marks tokens not present in the previous snapshot.
	FirstSeen bool

	SnapshotTimestampMs int64
}
