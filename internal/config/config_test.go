package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"alphatrend/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	if cfg.Engine.Interval != 15*time.Minute {
		t.Errorf("expected 15m interval, got %s", cfg.Engine.Interval)
	}
	if cfg.Scoring.Weights.Attention != 0.25 {
		t.Errorf("expected default attention weight 0.25, got %f", cfg.Scoring.Weights.Attention)
	}
	if cfg.Scoring.Meta.MinMembers != 3 || cfg.Scoring.Meta.MinPersistence != 2 {
		t.Errorf("unexpected meta gate defaults: %+v", cfg.Scoring.Meta)
	}
	sol := cfg.Scoring.Chain.Eligibility[domain.ChainSolana]
	if sol.MinLiquidity != 250_000 || sol.MinHolders != 500 {
		t.Errorf("unexpected solana eligibility defaults: %+v", sol)
	}
	if cfg.Storage.Backend != "memory" || cfg.Ingest.Source != "synthetic" {
		t.Errorf("unexpected storage/ingest defaults: %s %s", cfg.Storage.Backend, cfg.Ingest.Source)
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
engine:
  interval: 5m
  time_budget: 30s
scoring:
  regime:
    expansion_score: 65
storage:
  backend: postgres
  postgres_dsn: postgres://app@localhost/alphatrend
server:
  cron_secret: hunter2
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config must validate: %v", err)
	}

	if cfg.Engine.Interval != 5*time.Minute {
		t.Errorf("expected overridden interval, got %s", cfg.Engine.Interval)
	}
	if cfg.Scoring.Regime.ExpansionScore != 65 {
		t.Errorf("expected overridden regime threshold, got %d", cfg.Scoring.Regime.ExpansionScore)
	}
	// Untouched keys keep defaults.
	if cfg.Scoring.Regime.ContractionMomentum != -20 {
		t.Errorf("expected default contraction momentum, got %d", cfg.Scoring.Regime.ContractionMomentum)
	}
	if cfg.Server.CronSecret != "hunter2" {
		t.Errorf("expected cron secret from file, got %q", cfg.Server.CronSecret)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short interval", func(c *Config) { c.Engine.Interval = time.Second }},
		{"budget exceeds interval", func(c *Config) { c.Engine.TimeBudget = time.Hour }},
		{"zero workers", func(c *Config) { c.Engine.Workers = 0 }},
		{"inverted integrity bands", func(c *Config) { c.Scoring.Integrity.OrganicMax = 60 }},
		{"postgres without dsn", func(c *Config) { c.Storage.Backend = "postgres" }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "sqlite" }},
		{"history without clickhouse", func(c *Config) { c.Storage.HistoryEnabled = true }},
		{"kafka without topic", func(c *Config) {
			c.Ingest.Source = "kafka"
			c.Ingest.Kafka.Topic = ""
		}},
		{"unknown source", func(c *Config) { c.Ingest.Source = "carrier-pigeon" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}

	for _, tc := range cases {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}
