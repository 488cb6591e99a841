// Package engine orchestrates one snapshot cycle: score, classify,
// aggregate, assemble, commit. It is the only writer of cross-cycle state
// and allows at most one cycle at a time.
package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"alphatrend/internal/address"
	"alphatrend/internal/chainagg"
	"alphatrend/internal/classify"
	"alphatrend/internal/domain"
	"alphatrend/internal/feature"
	"alphatrend/internal/ingest"
	"alphatrend/internal/metaagg"
	"alphatrend/internal/observability"
	"alphatrend/internal/regime"
	"alphatrend/internal/storage"
)

const (
	leaderboardSize = 3
	newEntrantsSize = 5
)

// Options configures the engine.
type Options struct {
	Source    ingest.Source
	Snapshots storage.SnapshotStore

	// History stores are optional; nil disables history appends.
	ScoreHistory storage.ScoreHistoryStore
	FlowHistory  storage.FlowHistoryStore

	Scorer     *feature.Scorer
	Classifier *classify.Classifier
	Metas      *metaagg.Aggregator
	Chains     *chainagg.Aggregator
	Regime     *regime.Classifier

	// TimeBudget caps one cycle's wall time; zero means no cap. A cycle
	// exceeding the budget fails without committing.
	TimeBudget time.Duration

	// Workers bounds the classification fan-out.
	Workers int

	Metrics *observability.Metrics
	Logger  zerolog.Logger

	// Now and NewID override the clock and snapshot id generator; nil uses
	// time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

// RunResult summarizes one committed cycle.
type RunResult struct {
	SnapshotID      string
	Regime          domain.MarketRegime
	TokensPublished int
	TokensRejected  int
	MetasPublished  int
	MetasSuppressed int
	Duration        time.Duration
}

// Engine runs snapshot cycles.
type Engine struct {
	source    ingest.Source
	snapshots storage.SnapshotStore
	scoreHist storage.ScoreHistoryStore
	flowHist  storage.FlowHistoryStore

	scorer     *feature.Scorer
	classifier *classify.Classifier
	metaAgg    *metaagg.Aggregator
	chainAgg   *chainagg.Aggregator
	regime     *regime.Classifier

	timeBudget time.Duration
	workers    int

	metrics *observability.Metrics
	log     zerolog.Logger
	now     func() time.Time
	newID   func() string

	// mu is the cycle lock: at most one cycle runs at a time, and
	// cross-cycle state below is mutated only while holding it.
	mu           sync.Mutex
	tracker      *metaagg.Tracker
	prevTokenIDs map[string]bool
}

// New creates an engine.
func New(opts Options) *Engine {
	if opts.Workers < 1 {
		opts.Workers = 8
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	return &Engine{
		source:       opts.Source,
		snapshots:    opts.Snapshots,
		scoreHist:    opts.ScoreHistory,
		flowHist:     opts.FlowHistory,
		scorer:       opts.Scorer,
		classifier:   opts.Classifier,
		metaAgg:      opts.Metas,
		chainAgg:     opts.Chains,
		regime:       opts.Regime,
		timeBudget:   opts.TimeBudget,
		workers:      opts.Workers,
		metrics:      opts.Metrics,
		log:          opts.Logger.With().Str("component", "engine").Logger(),
		now:          opts.Now,
		newID:        opts.NewID,
		tracker:      metaagg.NewTracker(),
		prevTokenIDs: make(map[string]bool),
	}
}

// Seed primes cross-cycle state from the last committed snapshot's outputs,
// so a restarted process keeps first-seen and persistence semantics instead
// of treating every token and cluster as new.
func (e *Engine) Seed(tokens []*domain.TokenOutput, metas []*domain.MetaOutput) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, t := range tokens {
		e.prevTokenIDs[t.TokenID] = true
	}
	seeds := make([]*metaagg.MetaSeed, len(metas))
	for i, m := range metas {
		seeds[i] = &metaagg.MetaSeed{MetaID: m.MetaID, PersistenceSnapshots: m.PersistenceSnapshots}
	}
	e.tracker.Seed(seeds)
}

// RunCycle executes one full snapshot cycle. Returns ErrCycleRunning if a
// cycle is already in progress, and a CycleError on any stage failure; a
// failed cycle commits nothing and leaves the latest pointer untouched.
func (e *Engine) RunCycle(ctx context.Context) (*RunResult, error) {
	if !e.mu.TryLock() {
		if e.metrics != nil {
			e.metrics.CyclesOverlapped.Inc()
		}
		return nil, ErrCycleRunning
	}
	defer e.mu.Unlock()

	start := e.now()
	if e.timeBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeBudget)
		defer cancel()
	}

	res, err := e.runLocked(ctx, start)
	elapsed := time.Since(start)
	if e.metrics != nil {
		e.metrics.CycleDuration.Observe(elapsed.Seconds())
		status := "ok"
		if err != nil {
			status = "failed"
		}
		e.metrics.CyclesTotal.WithLabelValues(status).Inc()
	}
	if err != nil {
		e.log.Error().Err(err).Dur("elapsed", elapsed).Msg("cycle failed")
		return nil, err
	}

	res.Duration = elapsed
	e.log.Info().
		Str("snapshot_id", res.SnapshotID).
		Str("regime", string(res.Regime)).
		Int("tokens", res.TokensPublished).
		Int("tokens_rejected", res.TokensRejected).
		Int("metas", res.MetasPublished).
		Int("metas_suppressed", res.MetasSuppressed).
		Dur("elapsed", elapsed).
		Msg("cycle committed")
	return res, nil
}

func (e *Engine) runLocked(ctx context.Context, start time.Time) (*RunResult, error) {
	batch, err := e.source.Next(ctx)
	if err != nil {
		return nil, &CycleError{Phase: "ingest", Err: err}
	}
	if e.metrics != nil {
		e.metrics.BatchesReceived.Inc()
		e.metrics.BatchTokens.Observe(float64(len(batch.Tokens)))
	}

	accepted, rejected := e.validateTokens(batch.Tokens)

	scores := e.scorer.ScoreBatch(accepted)
	tokens := e.classifyAll(accepted, scores, batch.ObservedAtMs)
	if e.metrics != nil {
		e.metrics.TokensScored.Add(float64(len(tokens)))
	}

	chains := e.aggregateChains(tokens)
	metas, suppressed, observed := e.aggregateMetas(batch.Metas, tokens, batch.ObservedAtMs)
	regimeLabel := e.regime.Classify(tokens, metas)

	if err := ctx.Err(); err != nil {
		return nil, &CycleError{Phase: "budget", Err: err}
	}

	out := e.assemble(batch, tokens, metas, chains, regimeLabel, rejected, suppressed, start)

	commitStart := time.Now()
	if err := e.snapshots.Commit(ctx, out); err != nil {
		if e.metrics != nil {
			e.metrics.CommitErrors.Inc()
		}
		return nil, &CycleError{Phase: "commit", Err: err}
	}
	if e.metrics != nil {
		e.metrics.CommitDuration.Observe(time.Since(commitStart).Seconds())
		e.metrics.MetasPublished.Add(float64(len(metas)))
		e.metrics.RegimeTransition.WithLabelValues(string(regimeLabel)).Inc()
		e.metrics.LastSuccessfulCycle.Set(float64(out.Snapshot.TimestampMs) / 1000)
	}

	// Cross-cycle state advances only after the commit is durable.
	e.tracker.Commit(observed)
	next := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		next[t.TokenID] = true
	}
	e.prevTokenIDs = next

	e.appendHistory(ctx, out)

	return &RunResult{
		SnapshotID:      out.Snapshot.SnapshotID,
		Regime:          regimeLabel,
		TokensPublished: len(tokens),
		TokensRejected:  rejected,
		MetasPublished:  len(metas),
		MetasSuppressed: suppressed,
	}, nil
}

// validateTokens drops malformed entities and keeps the rest, in input
// order. Each rejection is logged and counted, never fatal.
func (e *Engine) validateTokens(raw []domain.RawTokenMetrics) ([]domain.RawTokenMetrics, int) {
	accepted := make([]domain.RawTokenMetrics, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	rejected := 0

	for _, t := range raw {
		reason := ""
		switch {
		case t.TokenID == "":
			reason = "missing_id"
		case seen[t.TokenID]:
			reason = "duplicate_id"
		case !t.Chain.Valid():
			reason = "invalid_chain"
		case address.Validate(t.Chain, t.Address) != nil:
			reason = "invalid_address"
		case t.Price < 0 || t.MarketCap < 0 || t.Liquidity < 0 || t.Volume24h < 0 || t.Holders < 0:
			reason = "negative_metric"
		}
		if reason != "" {
			rejected++
			inErr := &InputError{EntityID: t.TokenID, Reason: reason}
			e.log.Warn().Err(inErr).Str("symbol", t.Symbol).Msg("token rejected")
			if e.metrics != nil {
				e.metrics.TokensRejected.WithLabelValues(reason).Inc()
			}
			continue
		}
		seen[t.TokenID] = true
		accepted = append(accepted, t)
	}
	return accepted, rejected
}

// classifyAll fans per-token classification out across the worker pool.
// Tokens are independent, so workers share nothing but the read-only
// previous-cycle id set; outputs land at their input index.
func (e *Engine) classifyAll(accepted []domain.RawTokenMetrics, scores []domain.FeatureScores, observedAtMs int64) []*domain.TokenOutput {
	outputs := make([]*domain.TokenOutput, len(accepted))

	workers := e.workers
	if workers > len(accepted) {
		workers = len(accepted)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				t := accepted[i]
				r := e.classifier.Classify(scores[i])
				outputs[i] = &domain.TokenOutput{
					TokenID:             t.TokenID,
					Chain:               t.Chain,
					Address:             t.Address,
					Symbol:              t.Symbol,
					Name:                t.Name,
					Price:               t.Price,
					PriceChange24h:      t.PriceChange24h,
					MarketCap:           t.MarketCap,
					Liquidity:           t.Liquidity,
					Volume24h:           t.Volume24h,
					Holders:             t.Holders,
					Scores:              scores[i],
					CompositeScore:      r.Composite,
					Lifecycle:           r.Lifecycle,
					Integrity:           r.Integrity,
					FirstSeen:           !e.prevTokenIDs[t.TokenID],
					SnapshotTimestampMs: observedAtMs,
				}
			}
		}()
	}
	for i := range accepted {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return outputs
}

// aggregateChains rolls every tracked chain up, eligible-token capital
// summed across all chains for the share denominator.
func (e *Engine) aggregateChains(tokens []*domain.TokenOutput) []*domain.ChainOutput {
	var totalCapital float64
	for _, t := range tokens {
		if e.chainAgg.Eligible(t) {
			totalCapital += t.MarketCap
		}
	}

	chains := make([]*domain.ChainOutput, 0, len(domain.AllChains))
	for _, c := range domain.AllChains {
		chains = append(chains, e.chainAgg.Aggregate(c, tokens, totalCapital))
	}
	return chains
}

// aggregateMetas resolves cluster membership, gates, and aggregates.
// Returned observed counters must be committed to the tracker only after
// the snapshot commit succeeds.
func (e *Engine) aggregateMetas(raw []domain.RawMetaInput, tokens []*domain.TokenOutput, observedAtMs int64) ([]*domain.MetaOutput, int, map[string]int) {
	byID := make(map[string]*domain.TokenOutput, len(tokens))
	for _, t := range tokens {
		byID[t.TokenID] = t
	}

	type candidate struct {
		in      domain.RawMetaInput
		members []*domain.TokenOutput
	}
	var detected []candidate
	var detectedIDs []string
	suppressed := 0

	suppress := func(id, reason string) {
		suppressed++
		e.log.Debug().Str("meta_id", id).Str("reason", reason).Msg("meta suppressed")
		if e.metrics != nil {
			e.metrics.MetasSuppressed.WithLabelValues(reason).Inc()
		}
	}

	for _, in := range raw {
		if in.MetaID == "" || in.Name == "" {
			suppress(in.MetaID, "invalid_input")
			continue
		}
		var members []*domain.TokenOutput
		for _, id := range in.TokenIDs {
			if t, ok := byID[id]; ok {
				members = append(members, t)
			}
		}
		if len(members) == 0 {
			// Zero resolvable members is not a detection, so the cluster's
			// persistence counter does not advance.
			suppress(in.MetaID, "no_members")
			continue
		}
		if len(members) < e.metaAgg.MinMembers() {
			// An undersized cluster is not a detection either: persistence
			// counts only snapshots where the cluster held the member floor.
			suppress(in.MetaID, "publication_gate")
			continue
		}
		detected = append(detected, candidate{in: in, members: members})
		detectedIDs = append(detectedIDs, in.MetaID)
	}

	observed := e.tracker.Observe(detectedIDs)

	var metas []*domain.MetaOutput
	for _, c := range detected {
		out, err := e.metaAgg.Aggregate(c.in, c.members, observed[c.in.MetaID])
		if err != nil {
			if errors.Is(err, metaagg.ErrNotPublishable) || errors.Is(err, metaagg.ErrNoMembers) {
				suppress(c.in.MetaID, "publication_gate")
				continue
			}
			suppress(c.in.MetaID, "aggregation_error")
			continue
		}
		out.SnapshotTimestampMs = observedAtMs
		metas = append(metas, out)
	}

	sort.Slice(metas, func(i, j int) bool {
		if metas[i].AvgCompositeScore != metas[j].AvgCompositeScore {
			return metas[i].AvgCompositeScore > metas[j].AvgCompositeScore
		}
		return metas[i].MetaID < metas[j].MetaID
	})

	return metas, suppressed, observed
}

// assemble packages one cycle's outputs under a fresh snapshot id.
func (e *Engine) assemble(batch *domain.Batch, tokens []*domain.TokenOutput, metas []*domain.MetaOutput, chains []*domain.ChainOutput, regimeLabel domain.MarketRegime, rejected, suppressed int, start time.Time) *domain.CycleOutput {
	id := e.newID()

	chainHeat := make(map[domain.Chain]int, len(chains))
	for _, c := range chains {
		c.SnapshotID = id
		chainHeat[c.Chain] = c.HeatScore
	}
	for _, t := range tokens {
		t.SnapshotID = id
	}
	for _, m := range metas {
		m.SnapshotID = id
	}

	snap := &domain.Snapshot{
		SnapshotID:      id,
		TimestampMs:     batch.ObservedAtMs,
		Regime:          regimeLabel,
		TotalTokens:     len(tokens),
		TotalMetas:      len(metas),
		ChainHeat:       chainHeat,
		TopGainers:      topTokens(tokens, leaderboardSize, byGain),
		TopLosers:       topTokens(tokens, leaderboardSize, byLoss),
		NewEntrants:     newEntrants(tokens),
		RisingMetas:     topMetas(metas, leaderboardSize, func(m *domain.MetaOutput) bool { return m.Momentum > 0 }, byMomentumDesc),
		FallingMetas:    topMetas(metas, leaderboardSize, func(m *domain.MetaOutput) bool { return m.Momentum < 0 }, byMomentumAsc),
		IsComplete:      true,
		ComputeTimeMs:   time.Since(start).Milliseconds(),
		TokensRejected:  rejected,
		MetasSuppressed: suppressed,
	}

	return &domain.CycleOutput{Snapshot: snap, Tokens: tokens, Metas: metas, Chains: chains}
}

// appendHistory writes the cycle's points to the analytical stores. History
// is advisory: a failed append is logged but never fails an already
// committed cycle.
func (e *Engine) appendHistory(ctx context.Context, out *domain.CycleOutput) {
	ts := out.Snapshot.TimestampMs
	id := out.Snapshot.SnapshotID

	if e.scoreHist != nil && len(out.Tokens) > 0 {
		points := make([]*domain.ScorePoint, len(out.Tokens))
		for i, t := range out.Tokens {
			points[i] = &domain.ScorePoint{
				TokenID:        t.TokenID,
				SnapshotID:     id,
				TimestampMs:    ts,
				Chain:          t.Chain,
				Attention:      t.Scores.Attention,
				Liquidity:      t.Scores.Liquidity,
				Whale:          t.Scores.Whale,
				Engineering:    t.Scores.Engineering,
				Coherence:      t.Scores.Coherence,
				CompositeScore: t.CompositeScore,
				Lifecycle:      t.Lifecycle,
				Integrity:      t.Integrity,
				Price:          t.Price,
			}
		}
		if err := e.scoreHist.InsertBulk(ctx, points); err != nil {
			e.log.Warn().Err(err).Str("snapshot_id", id).Msg("score history append failed")
			if e.metrics != nil {
				e.metrics.HistoryErrors.WithLabelValues("score").Inc()
			}
		}
	}

	if e.flowHist != nil && len(out.Metas) > 0 {
		points := make([]*domain.FlowPoint, len(out.Metas))
		for i, m := range out.Metas {
			points[i] = &domain.FlowPoint{
				MetaID:            m.MetaID,
				SnapshotID:        id,
				TimestampMs:       ts,
				CapitalFlow:       m.CapitalFlow,
				Momentum:          m.Momentum,
				AvgCompositeScore: m.AvgCompositeScore,
				TokenCount:        m.TokenCount,
			}
		}
		if err := e.flowHist.InsertBulk(ctx, points); err != nil {
			e.log.Warn().Err(err).Str("snapshot_id", id).Msg("flow history append failed")
			if e.metrics != nil {
				e.metrics.HistoryErrors.WithLabelValues("flow").Inc()
			}
		}
	}
}

func byGain(a, b *domain.TokenOutput) bool {
	if a.PriceChange24h != b.PriceChange24h {
		return a.PriceChange24h > b.PriceChange24h
	}
	return a.TokenID < b.TokenID
}

func byLoss(a, b *domain.TokenOutput) bool {
	if a.PriceChange24h != b.PriceChange24h {
		return a.PriceChange24h < b.PriceChange24h
	}
	return a.TokenID < b.TokenID
}

// topTokens returns up to n token ids under the given order.
func topTokens(tokens []*domain.TokenOutput, n int, less func(a, b *domain.TokenOutput) bool) []string {
	sorted := make([]*domain.TokenOutput, len(tokens))
	copy(sorted, tokens)
	sort.Slice(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })

	if len(sorted) > n {
		sorted = sorted[:n]
	}
	ids := make([]string, len(sorted))
	for i, t := range sorted {
		ids[i] = t.TokenID
	}
	return ids
}

// newEntrants returns first-seen token ids, strongest composite first.
func newEntrants(tokens []*domain.TokenOutput) []string {
	var fresh []*domain.TokenOutput
	for _, t := range tokens {
		if t.FirstSeen {
			fresh = append(fresh, t)
		}
	}
	return topTokens(fresh, newEntrantsSize, func(a, b *domain.TokenOutput) bool {
		if a.CompositeScore != b.CompositeScore {
			return a.CompositeScore > b.CompositeScore
		}
		return a.TokenID < b.TokenID
	})
}

func byMomentumDesc(a, b *domain.MetaOutput) bool {
	if a.Momentum != b.Momentum {
		return a.Momentum > b.Momentum
	}
	return a.MetaID < b.MetaID
}

func byMomentumAsc(a, b *domain.MetaOutput) bool {
	if a.Momentum != b.Momentum {
		return a.Momentum < b.Momentum
	}
	return a.MetaID < b.MetaID
}

// topMetas returns up to n meta ids passing the filter, under the given
// order.
func topMetas(metas []*domain.MetaOutput, n int, keep func(*domain.MetaOutput) bool, less func(a, b *domain.MetaOutput) bool) []string {
	var kept []*domain.MetaOutput
	for _, m := range metas {
		if keep(m) {
			kept = append(kept, m)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return less(kept[i], kept[j]) })

	if len(kept) > n {
		kept = kept[:n]
	}
	ids := make([]string, len(kept))
	for i, m := range kept {
		ids[i] = m.MetaID
	}
	return ids
}
