package config

import "time"

// ApplyDefaults fills unset fields with the engine's standard values.  It
// mutates cfg in place and is idempotent.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "dropsight"
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "dropsight"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "file://migrations"
	}
	if cfg.Database.MaxCorpus == 0 {
		cfg.Database.MaxCorpus = 100000
	}

	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "dropsight:"
	}

	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "dropsight-ingest"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "order-completed"
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.TTLHours == 0 {
		cfg.Cache.TTLHours = 24
	}

	e := &cfg.Engine
	if e.MinSupport == 0 {
		e.MinSupport = 0.02
	}
	if e.MinConfidence == 0 {
		e.MinConfidence = 0.3
	}
	if e.MinLift == 0 {
		e.MinLift = 1.0
	}
	if e.MaxComplementaryProducts == 0 {
		e.MaxComplementaryProducts = 10
	}
	if e.MaxUpsellProducts == 0 {
		e.MaxUpsellProducts = 5
	}
	if e.UpsellPriceRatio == 0 {
		e.UpsellPriceRatio = 1.3
	}
	if e.BundleTargetSize == 0 {
		e.BundleTargetSize = 5
	}
	if e.MinDesirability == 0 {
		e.MinDesirability = 0.1
	}
	if e.Workers == 0 {
		e.Workers = 10
	}
	if e.Thresholds.StronglyRecommended == 0 {
		e.Thresholds.StronglyRecommended = 80
	}
	if e.Thresholds.Recommended == 0 {
		e.Thresholds.Recommended = 65
	}
	if e.Thresholds.ModeratePotential == 0 {
		e.Thresholds.ModeratePotential = 50
	}
	if e.Thresholds.Strength == 0 {
		e.Thresholds.Strength = 80
	}
	if e.Thresholds.Weakness == 0 {
		e.Thresholds.Weakness = 40
	}
	if e.Confidence.CompletenessWeight == 0 {
		e.Confidence.CompletenessWeight = 0.6
	}
	if e.Confidence.VarianceWeight == 0 {
		e.Confidence.VarianceWeight = 0.4
	}
	if e.Confidence.CriticalPenalty == 0 {
		e.Confidence.CriticalPenalty = 20
	}
	if e.Confidence.Floor == 0 {
		e.Confidence.Floor = 20
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "dropsight"
	}
}
