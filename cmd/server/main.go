// Package main runs the snapshot engine as a long-lived service: scheduled
// cycles on the configured cadence plus the HTTP read API and metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"alphatrend/internal/chainagg"
	"alphatrend/internal/classify"
	"alphatrend/internal/config"
	"alphatrend/internal/engine"
	"alphatrend/internal/feature"
	"alphatrend/internal/ingest"
	"alphatrend/internal/metaagg"
	"alphatrend/internal/observability"
	"alphatrend/internal/query"
	"alphatrend/internal/regime"
	"alphatrend/internal/server"
	"alphatrend/internal/storage"
	chstore "alphatrend/internal/storage/clickhouse"
	"alphatrend/internal/storage/memory"
	"alphatrend/internal/storage/migrations"
	pgstore "alphatrend/internal/storage/postgres"
)

// stores bundles the wired storage implementations.
type stores struct {
	snapshots storage.SnapshotStore
	tokens    storage.TokenOutputStore
	metas     storage.MetaOutputStore
	chains    storage.ChainOutputStore
	scoreHist storage.ScoreHistoryStore
	flowHist  storage.FlowHistoryStore
}

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Logging)
	log.Info().
		Str("backend", cfg.Storage.Backend).
		Str("source", cfg.Ingest.Source).
		Dur("interval", cfg.Engine.Interval).
		Msg("starting snapshot engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	st, cleanup, err := createStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create stores")
	}
	defer cleanup()

	src, err := createSource(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create batch source")
	}
	defer src.Close()

	metrics := observability.NewMetrics("alphatrend")

	eng := engine.New(engine.Options{
		Source:       src,
		Snapshots:    st.snapshots,
		ScoreHistory: st.scoreHist,
		FlowHistory:  st.flowHist,
		Scorer:       feature.NewScorer(),
		Classifier:   classify.NewClassifier(cfg.Scoring.Weights, cfg.Scoring.Integrity, cfg.Scoring.Lifecycle),
		Metas:        metaagg.NewAggregator(cfg.Scoring.Meta),
		Chains:       chainagg.NewAggregator(cfg.Scoring.Chain),
		Regime:       regime.NewClassifier(cfg.Scoring.Regime),
		TimeBudget:   cfg.Engine.TimeBudget,
		Workers:      cfg.Engine.Workers,
		Metrics:      metrics,
		Logger:       log,
	})
	seedEngine(ctx, eng, st, log)

	svc := query.NewService(query.Options{
		Snapshots:    st.snapshots,
		Tokens:       st.tokens,
		Metas:        st.metas,
		Chains:       st.chains,
		ScoreHistory: st.scoreHist,
		FlowHistory:  st.flowHist,
	})

	api := server.New(server.Options{
		Query:      svc,
		Engine:     eng,
		CronSecret: cfg.Server.CronSecret,
		Logger:     log,
	})

	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			cancel()
		}
	}()

	runScheduler(ctx, eng, cfg.Engine.Interval, log)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	log.Info().Msg("shutdown complete")
}

// runScheduler runs one cycle immediately, then on every tick until ctx
// ends. Cycle failures are logged and the schedule continues; the next
// tick gets a fresh chance.
func runScheduler(ctx context.Context, eng *engine.Engine, interval time.Duration, log zerolog.Logger) {
	runOnce := func() {
		if _, err := eng.RunCycle(ctx); err != nil {
			if errors.Is(err, engine.ErrCycleRunning) {
				log.Warn().Msg("cycle still running, skipping tick")
				return
			}
			if ctx.Err() == nil {
				log.Error().Err(err).Msg("scheduled cycle failed")
			}
		}
	}

	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// seedEngine primes first-seen and persistence state from the last
// committed snapshot, if one exists.
func seedEngine(ctx context.Context, eng *engine.Engine, st *stores, log zerolog.Logger) {
	snap, err := st.snapshots.Latest(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn().Err(err).Msg("seed: load latest snapshot")
		}
		return
	}
	tokens, err := st.tokens.GetBySnapshot(ctx, snap.SnapshotID, storage.TokenFilter{})
	if err != nil {
		log.Warn().Err(err).Msg("seed: load token outputs")
		return
	}
	metas, err := st.metas.GetBySnapshot(ctx, snap.SnapshotID)
	if err != nil {
		log.Warn().Err(err).Msg("seed: load meta outputs")
		return
	}
	eng.Seed(tokens, metas)
	log.Info().
		Str("snapshot_id", snap.SnapshotID).
		Int("tokens", len(tokens)).
		Int("metas", len(metas)).
		Msg("seeded engine from last snapshot")
}

// createStores wires the storage backend and applies migrations.
func createStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, func(), error) {
	if cfg.Storage.Backend == "memory" {
		snapshots := memory.NewSnapshotStore()
		st := &stores{
			snapshots: snapshots,
			tokens:    memory.NewTokenOutputStore(snapshots),
			metas:     memory.NewMetaOutputStore(snapshots),
			chains:    memory.NewChainOutputStore(snapshots),
		}
		if cfg.Storage.HistoryEnabled {
			st.scoreHist = memory.NewScoreHistoryStore()
			st.flowHist = memory.NewFlowHistoryStore()
		}
		return st, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("apply postgres migrations: %w", err)
	}

	st := &stores{
		snapshots: pgstore.NewSnapshotStore(pool),
		tokens:    pgstore.NewTokenOutputStore(pool),
		metas:     pgstore.NewMetaOutputStore(pool),
		chains:    pgstore.NewChainOutputStore(pool),
	}

	var chConn *chstore.Conn
	if cfg.Storage.HistoryEnabled {
		chConn, err = migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("apply clickhouse migrations: %w", err)
		}
		st.scoreHist = chstore.NewScoreHistoryStore(chConn)
		st.flowHist = chstore.NewFlowHistoryStore(chConn)
	}

	cleanup := func() {
		if chConn != nil {
			if err := chConn.Close(); err != nil {
				log.Warn().Err(err).Msg("close clickhouse")
			}
		}
		pool.Close()
	}
	return st, cleanup, nil
}

// createSource wires the configured batch source.
func createSource(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ingest.Source, error) {
	switch cfg.Ingest.Source {
	case "kafka":
		return ingest.NewKafkaSource(ingest.KafkaOptions{
			Brokers: cfg.Ingest.Kafka.Brokers,
			Topic:   cfg.Ingest.Kafka.Topic,
			GroupID: cfg.Ingest.Kafka.GroupID,
		}, log), nil
	case "websocket":
		return ingest.DialWSSource(ctx, cfg.Ingest.Websocket.URL, log)
	case "synthetic":
		return ingest.NewSyntheticSource(ingest.SyntheticOptions{
			Seed:           cfg.Ingest.Synthetic.Seed,
			TokensPerChain: cfg.Ingest.Synthetic.TokensPerChain,
			Metas:          cfg.Ingest.Synthetic.Metas,
		}), nil
	default:
		return nil, fmt.Errorf("unknown ingest source %q", cfg.Ingest.Source)
	}
}

// newLogger builds the process logger from config.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
