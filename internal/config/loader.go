package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix for all settings.
const envPrefix = "DROPSIGHT"

// boundKeys lists every leaf key so that env-only values survive Unmarshal;
// viper only honors environment variables for keys it knows about.
var boundKeys = []string{
	"server.port", "server.mode", "server.read_timeout", "server.write_timeout", "server.shutdown_timeout",
	"log.level", "log.format",
	"database.enabled", "database.host", "database.port", "database.user", "database.password",
	"database.db_name", "database.ssl_mode", "database.max_conns", "database.min_conns",
	"database.conn_max_lifetime", "database.migration_path", "database.max_corpus",
	"redis.addr", "redis.password", "redis.db", "redis.pool_size",
	"redis.dial_timeout", "redis.read_timeout", "redis.write_timeout", "redis.key_prefix",
	"kafka.enabled", "kafka.brokers", "kafka.topic", "kafka.group_id",
	"cache.enabled", "cache.backend", "cache.ttl_hours",
	"engine.min_support", "engine.min_confidence", "engine.min_lift",
	"engine.max_complementary_products", "engine.max_upsell_products", "engine.upsell_price_ratio",
	"engine.bundle_target_size", "engine.min_desirability", "engine.workers",
	"engine.thresholds.strongly_recommended", "engine.thresholds.recommended",
	"engine.thresholds.moderate_potential", "engine.thresholds.strength", "engine.thresholds.weakness",
	"engine.confidence.completeness_weight", "engine.confidence.variance_weight",
	"engine.confidence.critical_penalty", "engine.confidence.floor",
	"metrics.enabled", "metrics.namespace", "metrics.enable_process_metrics", "metrics.enable_go_metrics",
}

// newViper builds a pre-configured viper instance: YAML files, DROPSIGHT_
// env prefix, automatic env binding, and a "." → "_" key replacer so that
// nested keys like "engine.min_support" resolve to
// DROPSIGHT_ENGINE_MIN_SUPPORT.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range boundKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads the YAML file at configPath, merges DROPSIGHT_* environment
// overrides, applies defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from DROPSIGHT_* environment
// variables, with no config file required.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// MustLoad is Load that panics on error; intended for main functions where
// a bad config should stop the process immediately.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	return cfg
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Watch monitors configPath and invokes onChange with each successfully
// parsed and validated Config.  Intended for hot-reloading the safe subset
// of settings, niche weight overrides and log level in particular; a change
// that fails to parse or validate is dropped without invoking onChange.
//
// Watch is non-blocking; the watcher goroutine is managed by viper.
func Watch(configPath string, onChange func(*Config)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}
	v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}
