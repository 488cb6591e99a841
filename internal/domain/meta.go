package domain

// MetaOutput is one published narrative cluster for one snapshot.
type MetaOutput struct {
	MetaID     string
	SnapshotID string

	// Identity, stable across snapshots while the cluster persists.
	Name        string
	Description string

	// Membership at snapshot time.
	TokenIDs   []string
	TokenCount int

	// Aggregates over current members, rounded to nearest integer.
	AvgCompositeScore int
	AvgAttention      int
	AvgLiquidity      int

	// Propagated from the ingestion batch, not derived here.
	CapitalFlow float64 // signed net
	Momentum    int     // -100..100

	CoherenceScore int
	Lifecycle      LifecyclePhase
	Integrity      IntegrityGrade

	Chains       []Chain
	IsCrossChain bool

	// PersistenceSnapshots counts consecutive snapshots the cluster has
	// been redetected in. Publication requires at least two.
	PersistenceSnapshots int

	SnapshotTimestampMs int64
}
