// Package config defines the engine's configuration structures.  No I/O or
// parsing logic lives here, only plain data types, defaults, and validation.
package config

import (
	"fmt"
	"time"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `mapstructure:"format"` // "json" | "console"
}

// DatabaseConfig holds PostgreSQL connection parameters for the optional
// transaction-log and catalog repositories.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationPath   string        `mapstructure:"migration_path"`
	MaxCorpus       int           `mapstructure:"max_corpus"`
}

// RedisConfig holds Redis connection parameters for the shared cache.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds the basket-ingestion consumer parameters.
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// CacheConfig selects and tunes the result cache.
type CacheConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Backend  string `mapstructure:"backend"` // "memory" | "redis"
	TTLHours int    `mapstructure:"ttl_hours"`
}

// ThresholdsConfig is the recommendation ladder plus the strength and
// weakness cutoffs.
type ThresholdsConfig struct {
	StronglyRecommended float64 `mapstructure:"strongly_recommended"`
	Recommended         float64 `mapstructure:"recommended"`
	ModeratePotential   float64 `mapstructure:"moderate_potential"`
	Strength            float64 `mapstructure:"strength"`
	Weakness            float64 `mapstructure:"weakness"`
}

// ConfidenceConfig exposes the confidence blend weights.
type ConfidenceConfig struct {
	CompletenessWeight float64 `mapstructure:"completeness_weight"`
	VarianceWeight     float64 `mapstructure:"variance_weight"`
	CriticalPenalty    float64 `mapstructure:"critical_penalty"`
	Floor              float64 `mapstructure:"floor"`
}

// DiscountTierConfig maps a minimum bundle size to a fractional discount.
type DiscountTierConfig struct {
	MinItems int     `mapstructure:"min_items"`
	Discount float64 `mapstructure:"discount"`
}

// EngineConfig holds the scoring, mining, and recommendation knobs.
type EngineConfig struct {
	MinSupport    float64 `mapstructure:"min_support"`
	MinConfidence float64 `mapstructure:"min_confidence"`
	MinLift       float64 `mapstructure:"min_lift"`

	MaxComplementaryProducts int     `mapstructure:"max_complementary_products"`
	MaxUpsellProducts        int     `mapstructure:"max_upsell_products"`
	UpsellPriceRatio         float64 `mapstructure:"upsell_price_ratio"`
	BundleTargetSize         int     `mapstructure:"bundle_target_size"`
	MinDesirability          float64 `mapstructure:"min_desirability"`

	// DiscountTiers overrides the built-in bundle discount ladder when
	// non-empty.  Tier shape is validated by the recommendation config.
	DiscountTiers []DiscountTierConfig `mapstructure:"discount_tiers"`

	// Workers bounds the batch-scoring pool.
	Workers int `mapstructure:"workers"`

	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Confidence ConfidenceConfig `mapstructure:"confidence"`

	// NicheWeights overrides or extends the built-in weight profiles:
	// niche name → category id → weight.  Each profile must sum to 1.
	NicheWeights map[string]map[string]float64 `mapstructure:"niche_weights"`
}

// MetricsConfig tunes the Prometheus collector.
type MetricsConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	Namespace            string `mapstructure:"namespace"`
	EnableProcessMetrics bool   `mapstructure:"enable_process_metrics"`
	EnableGoMetrics      bool   `mapstructure:"enable_go_metrics"`
}

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// Validate checks cross-field invariants after defaults are applied.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1,65535], got %d", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release, or test, got %q", c.Server.Mode)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error, got %q", c.Log.Level)
	}
	if c.Engine.MinSupport <= 0 || c.Engine.MinSupport > 1 {
		return fmt.Errorf("engine.min_support must be in (0,1], got %g", c.Engine.MinSupport)
	}
	if c.Engine.MinConfidence < 0 || c.Engine.MinConfidence > 1 {
		return fmt.Errorf("engine.min_confidence must be in [0,1], got %g", c.Engine.MinConfidence)
	}
	if c.Engine.MinLift <= 0 {
		return fmt.Errorf("engine.min_lift must be positive, got %g", c.Engine.MinLift)
	}
	if c.Engine.UpsellPriceRatio < 1 {
		return fmt.Errorf("engine.upsell_price_ratio must be at least 1, got %g", c.Engine.UpsellPriceRatio)
	}
	if c.Engine.Workers < 1 {
		return fmt.Errorf("engine.workers must be positive, got %d", c.Engine.Workers)
	}
	t := c.Engine.Thresholds
	if !(t.ModeratePotential < t.Recommended && t.Recommended < t.StronglyRecommended) {
		return fmt.Errorf("engine.thresholds must be strictly ordered: moderate (%g) < recommended (%g) < strongly_recommended (%g)",
			t.ModeratePotential, t.Recommended, t.StronglyRecommended)
	}
	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case "memory", "redis":
		default:
			return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
		}
		if c.Cache.TTLHours < 1 {
			return fmt.Errorf("cache.ttl_hours must be positive, got %d", c.Cache.TTLHours)
		}
		if c.Cache.Backend == "redis" && c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when cache.backend is redis")
		}
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when kafka is enabled")
		}
	}
	if c.Database.Enabled && c.Database.Host == "" {
		return fmt.Errorf("database.host is required when the database is enabled")
	}
	return nil
}
