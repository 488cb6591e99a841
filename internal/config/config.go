// Package config loads the application configuration from a YAML file and
// environment variables, with production defaults for every knob.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"alphatrend/internal/chainagg"
	"alphatrend/internal/classify"
	"alphatrend/internal/metaagg"
	"alphatrend/internal/regime"
)

// Config represents the complete application configuration.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Scoring ScoringConfig `mapstructure:"scoring"`
	Storage StorageConfig `mapstructure:"storage"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// EngineConfig holds snapshot cycle behavior.
type EngineConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	TimeBudget time.Duration `mapstructure:"time_budget"`
	Workers    int           `mapstructure:"workers"`
}

// ScoringConfig holds the classification and aggregation tunables. Each
// block lives with the package that applies it; this struct only composes
// them for loading.
type ScoringConfig struct {
	Weights   classify.Weights             `mapstructure:"weights"`
	Integrity classify.IntegrityBands      `mapstructure:"integrity"`
	Lifecycle classify.LifecycleThresholds `mapstructure:"lifecycle"`
	Meta      metaagg.Config               `mapstructure:"meta"`
	Chain     chainagg.Config              `mapstructure:"chain"`
	Regime    regime.Thresholds            `mapstructure:"regime"`
}

// StorageConfig holds persistence configuration. Backend "memory" runs
// without external databases; "postgres" requires both DSNs when history
// is enabled.
type StorageConfig struct {
	Backend        string `mapstructure:"backend"`
	PostgresDSN    string `mapstructure:"postgres_dsn"`
	ClickhouseDSN  string `mapstructure:"clickhouse_dsn"`
	HistoryEnabled bool   `mapstructure:"history_enabled"`
}

// IngestConfig holds batch source configuration.
type IngestConfig struct {
	// Source selects the batch source: kafka, websocket, or synthetic.
	Source    string          `mapstructure:"source"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Websocket WebsocketConfig `mapstructure:"websocket"`
	Synthetic SyntheticConfig `mapstructure:"synthetic"`
}

// KafkaConfig holds Kafka consumer configuration.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// WebsocketConfig holds websocket source configuration.
type WebsocketConfig struct {
	URL string `mapstructure:"url"`
}

// SyntheticConfig holds the deterministic generator used for demos and
// local development.
type SyntheticConfig struct {
	Seed           int64 `mapstructure:"seed"`
	TokensPerChain int   `mapstructure:"tokens_per_chain"`
	Metas          int   `mapstructure:"metas"`
}

// ServerConfig holds the HTTP API configuration.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	CronSecret   string        `mapstructure:"cron_secret"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional file and environment
// variables. An empty path loads defaults plus environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("ALPHATREND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// Engine defaults
	v.SetDefault("engine.interval", "15m")
	v.SetDefault("engine.time_budget", "2m")
	v.SetDefault("engine.workers", 8)

	// Scoring defaults
	w := classify.DefaultWeights()
	v.SetDefault("scoring.weights.attention", w.Attention)
	v.SetDefault("scoring.weights.liquidity", w.Liquidity)
	v.SetDefault("scoring.weights.whale", w.Whale)
	v.SetDefault("scoring.weights.engineering", w.Engineering)
	v.SetDefault("scoring.weights.coherence", w.Coherence)

	b := classify.DefaultIntegrityBands()
	v.SetDefault("scoring.integrity.organic_max", b.OrganicMax)
	v.SetDefault("scoring.integrity.mixed_max", b.MixedMax)

	lt := classify.DefaultLifecycleThresholds()
	v.SetDefault("scoring.lifecycle.ignition_attention", lt.IgnitionAttention)
	v.SetDefault("scoring.lifecycle.ignition_liquidity", lt.IgnitionLiquidity)
	v.SetDefault("scoring.lifecycle.expansion_attention", lt.ExpansionAttention)
	v.SetDefault("scoring.lifecycle.expansion_liquidity", lt.ExpansionLiquidity)
	v.SetDefault("scoring.lifecycle.expansion_whale", lt.ExpansionWhale)
	v.SetDefault("scoring.lifecycle.crowding_attention", lt.CrowdingAttention)
	v.SetDefault("scoring.lifecycle.crowding_whale", lt.CrowdingWhale)
	v.SetDefault("scoring.lifecycle.distribution_attention", lt.DistributionAttention)
	v.SetDefault("scoring.lifecycle.distribution_whale", lt.DistributionWhale)

	m := metaagg.DefaultConfig()
	v.SetDefault("scoring.meta.min_members", m.MinMembers)
	v.SetDefault("scoring.meta.min_persistence", m.MinPersistence)

	ch := chainagg.DefaultConfig()
	v.SetDefault("scoring.chain.neutral_heat", ch.NeutralHeat)
	for chain, e := range ch.Eligibility {
		v.SetDefault(fmt.Sprintf("scoring.chain.eligibility.%s.min_liquidity", chain), e.MinLiquidity)
		v.SetDefault(fmt.Sprintf("scoring.chain.eligibility.%s.min_holders", chain), e.MinHolders)
	}

	r := regime.DefaultThresholds()
	v.SetDefault("scoring.regime.expansion_score", r.ExpansionScore)
	v.SetDefault("scoring.regime.expansion_momentum", r.ExpansionMomentum)
	v.SetDefault("scoring.regime.contraction_momentum", r.ContractionMomentum)
	v.SetDefault("scoring.regime.rotation_momentum_abs", r.RotationMomentumAbs)
	v.SetDefault("scoring.regime.rotation_score", r.RotationScore)

	// Storage defaults
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.clickhouse_dsn", "")
	v.SetDefault("storage.history_enabled", false)

	// Ingest defaults
	v.SetDefault("ingest.source", "synthetic")
	v.SetDefault("ingest.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("ingest.kafka.topic", "token-metrics")
	v.SetDefault("ingest.kafka.group_id", "alphatrend-engine")
	v.SetDefault("ingest.websocket.url", "")
	v.SetDefault("ingest.synthetic.seed", 1)
	v.SetDefault("ingest.synthetic.tokens_per_chain", 25)
	v.SetDefault("ingest.synthetic.metas", 6)

	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cron_secret", "")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid.
func (c *Config) Validate() error {
	if c.Engine.Interval < time.Minute {
		return fmt.Errorf("engine.interval must be at least 1 minute")
	}
	if c.Engine.TimeBudget <= 0 {
		return fmt.Errorf("engine.time_budget must be positive")
	}
	if c.Engine.TimeBudget >= c.Engine.Interval {
		return fmt.Errorf("engine.time_budget must be shorter than engine.interval")
	}
	if c.Engine.Workers < 1 {
		return fmt.Errorf("engine.workers must be at least 1")
	}

	sum := c.Scoring.Weights.Attention + c.Scoring.Weights.Liquidity +
		c.Scoring.Weights.Whale + c.Scoring.Weights.Engineering +
		c.Scoring.Weights.Coherence
	if sum <= 0 {
		return fmt.Errorf("scoring.weights must sum to a positive value")
	}
	if c.Scoring.Integrity.OrganicMax < 0 || c.Scoring.Integrity.OrganicMax >= c.Scoring.Integrity.MixedMax {
		return fmt.Errorf("scoring.integrity bands must satisfy 0 <= organic_max < mixed_max")
	}
	if c.Scoring.Meta.MinMembers < 1 {
		return fmt.Errorf("scoring.meta.min_members must be at least 1")
	}
	if c.Scoring.Meta.MinPersistence < 1 {
		return fmt.Errorf("scoring.meta.min_persistence must be at least 1")
	}
	if c.Scoring.Chain.NeutralHeat < 0 || c.Scoring.Chain.NeutralHeat > 100 {
		return fmt.Errorf("scoring.chain.neutral_heat must be between 0 and 100")
	}
	for chain := range c.Scoring.Chain.Eligibility {
		if !chain.Valid() {
			return fmt.Errorf("scoring.chain.eligibility: unknown chain %q", chain)
		}
	}

	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("storage.backend must be one of: memory, postgres")
	}
	if c.Storage.HistoryEnabled && c.Storage.ClickhouseDSN == "" {
		return fmt.Errorf("storage.clickhouse_dsn is required when history is enabled")
	}

	switch c.Ingest.Source {
	case "synthetic":
		if c.Ingest.Synthetic.TokensPerChain < 1 {
			return fmt.Errorf("ingest.synthetic.tokens_per_chain must be at least 1")
		}
	case "kafka":
		if len(c.Ingest.Kafka.Brokers) == 0 {
			return fmt.Errorf("ingest.kafka.brokers must contain at least one broker")
		}
		if c.Ingest.Kafka.Topic == "" {
			return fmt.Errorf("ingest.kafka.topic is required for the kafka source")
		}
	case "websocket":
		if c.Ingest.Websocket.URL == "" {
			return fmt.Errorf("ingest.websocket.url is required for the websocket source")
		}
	default:
		return fmt.Errorf("ingest.source must be one of: synthetic, kafka, websocket")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, console")
	}

	return nil
}
