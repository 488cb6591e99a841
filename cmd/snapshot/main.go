// Package main runs a single snapshot cycle against the synthetic source
// with in-memory stores and prints the Markdown report. Useful for a quick
// look at classifier output without any infrastructure.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"alphatrend/internal/chainagg"
	"alphatrend/internal/classify"
	"alphatrend/internal/engine"
	"alphatrend/internal/feature"
	"alphatrend/internal/ingest"
	"alphatrend/internal/metaagg"
	"alphatrend/internal/regime"
	"alphatrend/internal/reporting"
	"alphatrend/internal/storage/memory"
)

func main() {
	seed := flag.Int64("seed", 42, "Synthetic generator seed")
	tokensPerChain := flag.Int("tokens-per-chain", 25, "Tokens generated per chain")
	metas := flag.Int("metas", 6, "Metas generated per batch")
	cycles := flag.Int("cycles", 3, "Cycles to run before reporting")
	verbose := flag.Bool("v", false, "Log cycle progress")
	flag.Parse()

	log := zerolog.Nop()
	if *verbose {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	src := ingest.NewSyntheticSource(ingest.SyntheticOptions{
		Seed:           *seed,
		TokensPerChain: *tokensPerChain,
		Metas:          *metas,
	})
	defer src.Close()

	snapshots := memory.NewSnapshotStore()
	eng := engine.New(engine.Options{
		Source:     src,
		Snapshots:  snapshots,
		Scorer:     feature.NewScorer(),
		Classifier: classify.NewClassifier(classify.DefaultWeights(), classify.DefaultIntegrityBands(), classify.DefaultLifecycleThresholds()),
		Metas:      metaagg.NewAggregator(metaagg.DefaultConfig()),
		Chains:     chainagg.NewAggregator(chainagg.DefaultConfig()),
		Regime:     regime.NewClassifier(regime.DefaultThresholds()),
		Logger:     log,
	})

	ctx := context.Background()
	for i := 0; i < *cycles; i++ {
		res, err := eng.RunCycle(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cycle %d failed: %v\n", i+1, err)
			os.Exit(1)
		}
		if *verbose {
			log.Info().
				Int("cycle", i+1).
				Str("regime", string(res.Regime)).
				Int("tokens", res.TokensPublished).
				Int("metas", res.MetasPublished).
				Msg("cycle complete")
		}
	}

	gen := reporting.NewGenerator(
		snapshots,
		memory.NewTokenOutputStore(snapshots),
		memory.NewMetaOutputStore(snapshots),
		memory.NewChainOutputStore(snapshots),
	)
	report, err := gen.Generate(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate report: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(reporting.RenderMarkdown(report))
}
