package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"alphatrend/internal/address"
	"alphatrend/internal/chainagg"
	"alphatrend/internal/classify"
	"alphatrend/internal/domain"
	"alphatrend/internal/feature"
	"alphatrend/internal/ingest"
	"alphatrend/internal/metaagg"
	"alphatrend/internal/regime"
	"alphatrend/internal/storage"
	"alphatrend/internal/storage/memory"
)

type stubSource struct {
	batches []*domain.Batch
	next    int
}

func (s *stubSource) Next(_ context.Context) (*domain.Batch, error) {
	if s.next >= len(s.batches) {
		return nil, ingest.ErrSourceClosed
	}
	b := s.batches[s.next]
	s.next++
	return b, nil
}

func (s *stubSource) Close() error { return nil }

type blockingSource struct {
	entered chan struct{}
	release chan struct{}
}

func (s *blockingSource) Next(_ context.Context) (*domain.Batch, error) {
	s.entered <- struct{}{}
	<-s.release
	return nil, ingest.ErrSourceClosed
}

func (s *blockingSource) Close() error { return nil }

type failingCommitStore struct {
	storage.SnapshotStore
	fail bool
}

func (s *failingCommitStore) Commit(ctx context.Context, out *domain.CycleOutput) error {
	if s.fail {
		return errors.New("storage write unavailable")
	}
	return s.SnapshotStore.Commit(ctx, out)
}

type failingScoreHistory struct{}

func (failingScoreHistory) InsertBulk(context.Context, []*domain.ScorePoint) error {
	return errors.New("history unavailable")
}

func (failingScoreHistory) GetByTokenID(context.Context, string) ([]*domain.ScorePoint, error) {
	return nil, nil
}

func (failingScoreHistory) GetByTimeRange(context.Context, string, int64, int64) ([]*domain.ScorePoint, error) {
	return nil, nil
}

func seqIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newTestEngine(src ingest.Source, snapshots storage.SnapshotStore, opts Options) *Engine {
	opts.Source = src
	opts.Snapshots = snapshots
	opts.Scorer = feature.NewScorer()
	opts.Classifier = classify.NewClassifier(classify.DefaultWeights(), classify.DefaultIntegrityBands(), classify.DefaultLifecycleThresholds())
	opts.Metas = metaagg.NewAggregator(metaagg.DefaultConfig())
	opts.Chains = chainagg.NewAggregator(chainagg.DefaultConfig())
	opts.Regime = regime.NewClassifier(regime.DefaultThresholds())
	opts.Logger = zerolog.Nop()
	opts.Workers = 4
	if opts.NewID == nil {
		opts.NewID = seqIDs("snap")
	}
	return New(opts)
}

// rawToken builds an eligible token with a valid address for its chain.
func rawToken(id string, chain domain.Chain, change24 float64) domain.RawTokenMetrics {
	addr := address.EVMFromSeed(id)
	if chain == domain.ChainSolana {
		addr = address.SolanaFromSeed(id)
	}
	return domain.RawTokenMetrics{
		TokenID:         id,
		Chain:           chain,
		Address:         addr,
		Symbol:          "TK" + id,
		Name:            "Token " + id,
		Price:           1.25,
		PriceChange24h:  change24,
		PriceChange6h:   change24 / 2,
		PriceChange1h:   change24 / 6,
		MarketCap:       5_000_000,
		Liquidity:       600_000,
		Volume24h:       900_000,
		Holders:         2_000,
		SocialMentions:  500,
		SocialVelocity:  20,
		AuthorDiversity: 0.6,
		TopHolderShare:  0.3,
	}
}

func fixedBatch(ts int64) *domain.Batch {
	return &domain.Batch{
		ObservedAtMs: ts,
		Tokens: []domain.RawTokenMetrics{
			rawToken("t1", domain.ChainSolana, 40),
			rawToken("t2", domain.ChainSolana, -25),
			rawToken("t3", domain.ChainEthereum, 10),
			rawToken("t4", domain.ChainBase, -5),
		},
		Metas: []domain.RawMetaInput{{
			MetaID:   "m1",
			Name:     "AI Agents",
			TokenIDs: []string{"t1", "t2", "t3"},
			Momentum: 30,
		}},
	}
}

func TestRunCycle_Deterministic(t *testing.T) {
	ctx := context.Background()

	run := func() *domain.Snapshot {
		store := memory.NewSnapshotStore()
		src := &stubSource{batches: []*domain.Batch{fixedBatch(1000), fixedBatch(2000)}}
		eng := newTestEngine(src, store, Options{})

		for i := 0; i < 2; i++ {
			if _, err := eng.RunCycle(ctx); err != nil {
				t.Fatalf("cycle %d failed: %v", i, err)
			}
		}
		snap, err := store.Latest(ctx)
		if err != nil {
			t.Fatalf("latest failed: %v", err)
		}
		return snap
	}

	a, b := run(), run()
	a.ComputeTimeMs, b.ComputeTimeMs = 0, 0
	if !reflect.DeepEqual(a, b) {
		t.Errorf("identical input produced different snapshots:\n%+v\n%+v", a, b)
	}
}

func TestRunCycle_PublishesCommittedOutputs(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()
	src := &stubSource{batches: []*domain.Batch{fixedBatch(1000)}}
	eng := newTestEngine(src, store, Options{})

	res, err := eng.RunCycle(ctx)
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if res.TokensPublished != 4 || res.TokensRejected != 0 {
		t.Errorf("unexpected token counts: %+v", res)
	}

	snap, err := store.GetByID(ctx, res.SnapshotID)
	if err != nil {
		t.Fatalf("get snapshot failed: %v", err)
	}
	if !snap.IsComplete {
		t.Error("committed snapshot must be complete")
	}
	if snap.TimestampMs != 1000 {
		t.Errorf("expected batch timestamp, got %d", snap.TimestampMs)
	}
	if snap.TotalTokens != 4 {
		t.Errorf("expected 4 tokens, got %d", snap.TotalTokens)
	}
	if len(snap.ChainHeat) != len(domain.AllChains) {
		t.Errorf("expected heat for every chain, got %v", snap.ChainHeat)
	}
	// BNB has no tokens in the batch, so it reports the neutral default.
	if snap.ChainHeat[domain.ChainBNB] != 50 {
		t.Errorf("expected neutral heat for bnb, got %d", snap.ChainHeat[domain.ChainBNB])
	}

	tokens := memory.NewTokenOutputStore(store)
	got, err := tokens.GetBySnapshot(ctx, res.SnapshotID, storage.TokenFilter{})
	if err != nil {
		t.Fatalf("get tokens failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 token outputs, got %d", len(got))
	}
	for _, tok := range got {
		if !tok.FirstSeen {
			t.Errorf("token %s should be first seen in the first cycle", tok.TokenID)
		}
		if tok.SnapshotID != res.SnapshotID {
			t.Errorf("token %s carries wrong snapshot id %s", tok.TokenID, tok.SnapshotID)
		}
	}
}

func TestRunCycle_Leaderboards(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()
	src := &stubSource{batches: []*domain.Batch{fixedBatch(1000), fixedBatch(2000)}}
	eng := newTestEngine(src, store, Options{})

	if _, err := eng.RunCycle(ctx); err != nil {
		t.Fatalf("first cycle failed: %v", err)
	}
	snap, err := store.Latest(ctx)
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}

	// Changes: t1 +40, t3 +10, t4 -5, t2 -25.
	wantGainers := []string{"t1", "t3", "t4"}
	wantLosers := []string{"t2", "t4", "t3"}
	if !reflect.DeepEqual(snap.TopGainers, wantGainers) {
		t.Errorf("gainers: expected %v, got %v", wantGainers, snap.TopGainers)
	}
	if !reflect.DeepEqual(snap.TopLosers, wantLosers) {
		t.Errorf("losers: expected %v, got %v", wantLosers, snap.TopLosers)
	}
	if len(snap.NewEntrants) != 4 {
		t.Errorf("every token is a new entrant in the first cycle, got %v", snap.NewEntrants)
	}

	// Second cycle sees the same ids: no new entrants.
	if _, err := eng.RunCycle(ctx); err != nil {
		t.Fatalf("second cycle failed: %v", err)
	}
	snap, err = store.Latest(ctx)
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if len(snap.NewEntrants) != 0 {
		t.Errorf("expected no new entrants, got %v", snap.NewEntrants)
	}
}

func TestRunCycle_RejectsMalformedTokens(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()

	bad1 := rawToken("t9", domain.ChainSolana, 5)
	bad1.Liquidity = -1
	bad2 := rawToken("t10", domain.ChainEthereum, 5)
	bad2.Address = "not-an-address"
	bad3 := rawToken("t11", "dogechain", 5)
	bad4 := rawToken("", domain.ChainSolana, 5)
	dup := rawToken("t1", domain.ChainSolana, 5)

	batch := fixedBatch(1000)
	batch.Tokens = append(batch.Tokens, bad1, bad2, bad3, bad4, dup)

	src := &stubSource{batches: []*domain.Batch{batch}}
	eng := newTestEngine(src, store, Options{})

	res, err := eng.RunCycle(ctx)
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if res.TokensRejected != 5 {
		t.Errorf("expected 5 rejections, got %d", res.TokensRejected)
	}
	if res.TokensPublished != 4 {
		t.Errorf("expected 4 published tokens, got %d", res.TokensPublished)
	}

	snap, err := store.Latest(ctx)
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if snap.TokensRejected != 5 {
		t.Errorf("snapshot should record 5 rejections, got %d", snap.TokensRejected)
	}
	if !snap.IsComplete {
		t.Error("entity rejections must not mark the cycle incomplete")
	}
}

func TestRunCycle_MetaPublicationGate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()

	small := domain.RawMetaInput{MetaID: "m2", Name: "Tiny", TokenIDs: []string{"t1", "t2"}}
	orphan := domain.RawMetaInput{MetaID: "m3", Name: "Ghost", TokenIDs: []string{"missing"}}

	b1 := fixedBatch(1000)
	b1.Metas = append(b1.Metas, small, orphan)
	b2 := fixedBatch(2000)
	b2.Metas = append(b2.Metas, small, orphan)

	src := &stubSource{batches: []*domain.Batch{b1, b2}}
	eng := newTestEngine(src, store, Options{})

	res, err := eng.RunCycle(ctx)
	if err != nil {
		t.Fatalf("first cycle failed: %v", err)
	}
	// m1 has 3 members but persistence 1; m2 is too small; m3 resolves nobody.
	if res.MetasPublished != 0 || res.MetasSuppressed != 3 {
		t.Errorf("first cycle: expected 0 published / 3 suppressed, got %+v", res)
	}

	res, err = eng.RunCycle(ctx)
	if err != nil {
		t.Fatalf("second cycle failed: %v", err)
	}
	if res.MetasPublished != 1 || res.MetasSuppressed != 2 {
		t.Errorf("second cycle: expected 1 published / 2 suppressed, got %+v", res)
	}

	metas := memory.NewMetaOutputStore(store)
	got, err := metas.GetBySnapshot(ctx, res.SnapshotID)
	if err != nil {
		t.Fatalf("get metas failed: %v", err)
	}
	if len(got) != 1 || got[0].MetaID != "m1" {
		t.Fatalf("expected published m1, got %+v", got)
	}
	if got[0].PersistenceSnapshots != 2 {
		t.Errorf("expected persistence 2, got %d", got[0].PersistenceSnapshots)
	}
	if !got[0].IsCrossChain {
		t.Error("m1 spans solana and ethereum, expected cross-chain")
	}
}

func TestRunCycle_UndersizedClusterAccruesNoPersistence(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()

	// m1 holds only 2 members in the first cycle, then 3 from the second on.
	b1 := fixedBatch(1000)
	b1.Metas = []domain.RawMetaInput{{MetaID: "m1", Name: "AI Agents", TokenIDs: []string{"t1", "t2"}, Momentum: 30}}
	b2 := fixedBatch(2000)
	b3 := fixedBatch(3000)

	src := &stubSource{batches: []*domain.Batch{b1, b2, b3}}
	eng := newTestEngine(src, store, Options{})

	if _, err := eng.RunCycle(ctx); err != nil {
		t.Fatalf("first cycle failed: %v", err)
	}

	// The two-member detection must not have advanced the counter: the
	// second cycle is the first at the member floor, so persistence is 1
	// and m1 stays unpublished.
	res, err := eng.RunCycle(ctx)
	if err != nil {
		t.Fatalf("second cycle failed: %v", err)
	}
	if res.MetasPublished != 0 {
		t.Errorf("undersized first detection must not count toward persistence, got %+v", res)
	}

	res, err = eng.RunCycle(ctx)
	if err != nil {
		t.Fatalf("third cycle failed: %v", err)
	}
	if res.MetasPublished != 1 {
		t.Fatalf("expected m1 published on the third cycle, got %+v", res)
	}
	metas := memory.NewMetaOutputStore(store)
	got, err := metas.GetBySnapshot(ctx, res.SnapshotID)
	if err != nil {
		t.Fatalf("get metas failed: %v", err)
	}
	if len(got) != 1 || got[0].PersistenceSnapshots != 2 {
		t.Errorf("expected m1 at persistence 2 counting full-sized detections only, got %+v", got)
	}
}

func TestRunCycle_RejectsConcurrentCycle(t *testing.T) {
	src := &blockingSource{entered: make(chan struct{}), release: make(chan struct{})}
	eng := newTestEngine(src, memory.NewSnapshotStore(), Options{})

	errc := make(chan error, 1)
	go func() {
		_, err := eng.RunCycle(context.Background())
		errc <- err
	}()
	<-src.entered

	if _, err := eng.RunCycle(context.Background()); !errors.Is(err, ErrCycleRunning) {
		t.Errorf("expected ErrCycleRunning, got %v", err)
	}

	close(src.release)
	if err := <-errc; err == nil {
		t.Error("first cycle should fail once the source closes")
	}
}

func TestRunCycle_FailedCommitLeavesLatestUntouched(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewSnapshotStore()
	store := &failingCommitStore{SnapshotStore: inner}
	src := &stubSource{batches: []*domain.Batch{fixedBatch(1000), fixedBatch(2000), fixedBatch(3000)}}
	eng := newTestEngine(src, store, Options{})

	first, err := eng.RunCycle(ctx)
	if err != nil {
		t.Fatalf("first cycle failed: %v", err)
	}

	store.fail = true
	if _, err := eng.RunCycle(ctx); err == nil {
		t.Fatal("expected commit failure to fail the cycle")
	} else {
		var ce *CycleError
		if !errors.As(err, &ce) || ce.Phase != "commit" {
			t.Errorf("expected commit-phase cycle error, got %v", err)
		}
	}

	snap, err := inner.Latest(ctx)
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if snap.SnapshotID != first.SnapshotID {
		t.Errorf("failed cycle moved the latest pointer to %s", snap.SnapshotID)
	}

	// The failed cycle must not have advanced persistence counters: m1
	// publishes on the third batch only because the second detection was
	// never committed.
	store.fail = false
	res, err := eng.RunCycle(ctx)
	if err != nil {
		t.Fatalf("third cycle failed: %v", err)
	}
	metas := memory.NewMetaOutputStore(inner)
	got, err := metas.GetBySnapshot(ctx, res.SnapshotID)
	if err != nil {
		t.Fatalf("get metas failed: %v", err)
	}
	if len(got) != 1 || got[0].PersistenceSnapshots != 2 {
		t.Errorf("expected m1 at persistence 2 after one committed detection, got %+v", got)
	}
}

func TestRunCycle_TimeBudgetExceeded(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()
	src := &stubSource{batches: []*domain.Batch{fixedBatch(1000)}}
	eng := newTestEngine(src, store, Options{TimeBudget: time.Nanosecond})

	if _, err := eng.RunCycle(ctx); err == nil {
		t.Fatal("expected budget exhaustion to fail the cycle")
	}
	if _, err := store.Latest(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("failed cycle must not commit, got %v", err)
	}
}

func TestRunCycle_HistoryAppendIsAdvisory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()
	src := &stubSource{batches: []*domain.Batch{fixedBatch(1000)}}
	eng := newTestEngine(src, store, Options{ScoreHistory: failingScoreHistory{}})

	if _, err := eng.RunCycle(ctx); err != nil {
		t.Fatalf("history failure must not fail the cycle: %v", err)
	}
}

func TestRunCycle_AppendsHistory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()
	scoreHist := memory.NewScoreHistoryStore()
	flowHist := memory.NewFlowHistoryStore()
	src := &stubSource{batches: []*domain.Batch{fixedBatch(1000), fixedBatch(2000)}}
	eng := newTestEngine(src, store, Options{ScoreHistory: scoreHist, FlowHistory: flowHist})

	for i := 0; i < 2; i++ {
		if _, err := eng.RunCycle(ctx); err != nil {
			t.Fatalf("cycle %d failed: %v", i, err)
		}
	}

	points, err := scoreHist.GetByTokenID(ctx, "t1")
	if err != nil {
		t.Fatalf("score history query failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 score points, got %d", len(points))
	}
	if points[0].TimestampMs != 1000 || points[1].TimestampMs != 2000 {
		t.Errorf("unexpected point order: %+v", points)
	}

	flows, err := flowHist.GetByMetaID(ctx, "m1")
	if err != nil {
		t.Fatalf("flow history query failed: %v", err)
	}
	// m1 publishes on the second cycle only.
	if len(flows) != 1 || flows[0].TimestampMs != 2000 {
		t.Errorf("expected one flow point at 2000, got %+v", flows)
	}
}

func TestSeed_RestoresCrossCycleState(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()
	src := &stubSource{batches: []*domain.Batch{fixedBatch(1000)}}
	eng := newTestEngine(src, store, Options{})

	prevTokens := []*domain.TokenOutput{{TokenID: "t1"}, {TokenID: "t2"}, {TokenID: "t3"}, {TokenID: "t4"}}
	prevMetas := []*domain.MetaOutput{{MetaID: "m1", PersistenceSnapshots: 1}}
	eng.Seed(prevTokens, prevMetas)

	res, err := eng.RunCycle(ctx)
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if res.MetasPublished != 1 {
		t.Errorf("seeded persistence should publish m1 immediately, got %+v", res)
	}

	snap, err := store.Latest(ctx)
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if len(snap.NewEntrants) != 0 {
		t.Errorf("seeded tokens are not new entrants, got %v", snap.NewEntrants)
	}
}
