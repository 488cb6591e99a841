package metaagg

// Tracker maintains cross-cycle persistence counters for clusters. A
// counter increments only while the cluster is redetected in consecutive
// snapshots; a cluster that misses a cycle is retired and starts over at 1
// on its next detection.
type Tracker struct {
	counts map[string]int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{counts: make(map[string]int)}
}

// Seed primes the tracker from the previously published meta outputs, so a
// restarted process does not hold every persisted cluster back an extra
// cycle.
func (t *Tracker) Seed(prev []*MetaSeed) {
	for _, m := range prev {
		if m.PersistenceSnapshots > 0 {
			t.counts[m.MetaID] = m.PersistenceSnapshots
		}
	}
}

// MetaSeed is the minimal prior-cycle state needed to seed the tracker.
type MetaSeed struct {
	MetaID               string
	PersistenceSnapshots int
}

// Observe returns the persistence counter each detected cluster would carry
// this cycle, without mutating tracker state. Pair with Commit once the
// cycle's snapshot is durably stored; a failed cycle then leaves counters
// untouched.
func (t *Tracker) Observe(detected []string) map[string]int {
	next := make(map[string]int, len(detected))
	for _, id := range detected {
		next[id] = t.counts[id] + 1
	}
	return next
}

// Commit replaces the tracker state with one cycle's observed counters.
// Clusters absent from observed are dropped and start over on redetection.
func (t *Tracker) Commit(observed map[string]int) {
	next := make(map[string]int, len(observed))
	for id, n := range observed {
		next[id] = n
	}
	t.counts = next
}

// Advance observes and commits in one step, for callers without a
// commit/rollback boundary.
func (t *Tracker) Advance(detected []string) map[string]int {
	observed := t.Observe(detected)
	t.Commit(observed)

	out := make(map[string]int, len(observed))
	for id, n := range observed {
		out[id] = n
	}
	return out
}
