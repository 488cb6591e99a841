// Package main generates snapshot reports from committed engine output:
// a Markdown summary plus token and meta CSV exports.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"alphatrend/internal/config"
	"alphatrend/internal/reporting"
	pgstore "alphatrend/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	snapshotID := flag.String("snapshot-id", "", "Snapshot to report on (default: latest)")
	outputDir := flag.String("output-dir", "reports", "Directory for generated files")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	if cfg.Storage.Backend == "memory" {
		log.Fatal().Msg("report generation needs a persistent backend; memory stores are per-process")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	gen := reporting.NewGenerator(
		pgstore.NewSnapshotStore(pool),
		pgstore.NewTokenOutputStore(pool),
		pgstore.NewMetaOutputStore(pool),
		pgstore.NewChainOutputStore(pool),
	)

	report, err := gen.Generate(ctx, *snapshotID)
	if err != nil {
		log.Fatal().Err(err).Msg("generate report")
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("create output dir")
	}

	files := map[string]string{
		"REPORT.md":  reporting.RenderMarkdown(report),
		"tokens.csv": reporting.RenderTokenCSV(report.Tokens),
		"metas.csv":  reporting.RenderMetaCSV(report.Metas),
	}
	for name, content := range files {
		path := filepath.Join(*outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("write report file")
		}
		log.Info().Str("path", path).Msg("wrote report file")
	}

	fmt.Printf("Report generated for snapshot %s (%d tokens, %d metas)\n",
		report.Snapshot.SnapshotID, len(report.Tokens), len(report.Metas))
}
