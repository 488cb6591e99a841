package reporting

import "time"

// Report is one snapshot's rendered summary.
type Report struct {
	GeneratedAt time.Time

	Snapshot SnapshotSection
	Chains   []ChainRow
	Metas    []MetaRow
	Tokens   []TokenRow

	Leaders LeadersSection
}

// SnapshotSection holds the cycle header.
type SnapshotSection struct {
	SnapshotID      string
	TimestampMs     int64
	Regime          string
	TotalTokens     int
	TotalMetas      int
	TokensRejected  int
	MetasSuppressed int
	ComputeTimeMs   int64
}

// ChainRow is one chain rollup row.
type ChainRow struct {
	Chain          string
	HeatScore      int
	DominantDriver string
	EligibleTokens int
	CapitalShare   float64
}

// MetaRow is one published cluster row, sorted by average composite score.
type MetaRow struct {
	MetaID               string
	Name                 string
	TokenCount           int
	AvgCompositeScore    int
	Momentum             int
	CapitalFlow          float64
	Lifecycle            string
	Integrity            string
	IsCrossChain         bool
	PersistenceSnapshots int
}

// TokenRow is one classified token row, sorted by composite score.
type TokenRow struct {
	TokenID        string
	Symbol         string
	Chain          string
	CompositeScore int
	Attention      int
	Liquidity      int
	Whale          int
	Engineering    int
	Coherence      int
	Lifecycle      string
	Integrity      string
	PriceChange24h float64
	FirstSeen      bool
}

// LeadersSection lists the snapshot leaderboards with ids resolved to
// display labels.
type LeadersSection struct {
	TopGainers   []LeaderRow
	TopLosers    []LeaderRow
	NewEntrants  []LeaderRow
	RisingMetas  []LeaderRow
	FallingMetas []LeaderRow
}

// LeaderRow is one leaderboard entry.
type LeaderRow struct {
	ID    string
	Label string  // token symbol or meta name
	Value float64 // 24h change for tokens, momentum for metas
}
