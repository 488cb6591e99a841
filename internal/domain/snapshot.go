package domain

// Snapshot is one immutable computation cycle's summary record.
// Once committed with IsComplete=true it is never mutated; it is either
// the latest-pointer target or superseded by a newer snapshot.
type Snapshot struct {
	SnapshotID  string
	TimestampMs int64

	Regime      MarketRegime
	TotalTokens int
	TotalMetas  int

	ChainHeat map[Chain]int

	// Token ids sorted by 24h price change.
	TopGainers  []string
	TopLosers   []string
	NewEntrants []string

	// Meta ids sorted by momentum.
	RisingMetas  []string
	FallingMetas []string

	IsComplete    bool
	ComputeTimeMs int64

	// Cycle statistics: entities rejected or held back this cycle.
	// Entity errors never abort the cycle, only count here.
	TokensRejected  int
	MetasSuppressed int
}

// CycleOutput bundles everything one completed cycle persists. The storage
// layer commits all collections plus the latest-pointer advance as one
// logical transaction.
type CycleOutput struct {
	Snapshot *Snapshot
	Tokens   []*TokenOutput
	Metas    []*MetaOutput
	Chains   []*ChainOutput
}
