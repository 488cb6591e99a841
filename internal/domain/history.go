package domain

// ScorePoint is one token's classified scores at one snapshot, kept in the
// analytical history store for trend queries.
type ScorePoint struct {
	TokenID        string
	SnapshotID     string
	TimestampMs    int64
	Chain          Chain
	Attention      int
	Liquidity      int
	Whale          int
	Engineering    int
	Coherence      int
	CompositeScore int
	Lifecycle      LifecyclePhase
	Integrity      IntegrityGrade
	Price          float64
}

// FlowPoint is one published cluster's capital flow reading at one
// snapshot.
type FlowPoint struct {
	MetaID            string
	SnapshotID        string
	TimestampMs       int64
	CapitalFlow       float64
	Momentum          int
	AvgCompositeScore int
	TokenCount        int
}
