// Package app wires configuration into a running process: scoring engine,
// recommendation pipeline, cache, optional Postgres and Kafka, metrics, and
// the HTTP server.  Both the API server binary and the CLI serve command
// build on it.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	apprec "github.com/dropsight/dropsight/internal/application/recommendation"
	appscoring "github.com/dropsight/dropsight/internal/application/scoring"
	"github.com/dropsight/dropsight/internal/config"
	"github.com/dropsight/dropsight/internal/domain/association"
	"github.com/dropsight/dropsight/internal/domain/product"
	"github.com/dropsight/dropsight/internal/domain/recommendation"
	"github.com/dropsight/dropsight/internal/domain/scoring"
	"github.com/dropsight/dropsight/internal/infrastructure/cache"
	"github.com/dropsight/dropsight/internal/infrastructure/database/postgres"
	"github.com/dropsight/dropsight/internal/infrastructure/database/postgres/repositories"
	"github.com/dropsight/dropsight/internal/infrastructure/monitoring/logging"
	"github.com/dropsight/dropsight/internal/infrastructure/monitoring/prometheus"
	"github.com/dropsight/dropsight/internal/infrastructure/stream"
	httpapi "github.com/dropsight/dropsight/internal/interfaces/http"
	"github.com/dropsight/dropsight/internal/interfaces/http/handlers"
)

// App is the assembled process.
type App struct {
	cfg    *config.Config
	logger logging.Logger

	pool     *pgxpool.Pool
	redis    redis.UniversalClient
	server   *httpapi.Server
	consumer *stream.Consumer

	Scoring        *appscoring.Service
	Recommendation *apprec.Service
	Metrics        *prometheus.AppMetrics
}

// New builds every component the configuration enables.  Construction is
// fail-fast: a bad weight profile or unreachable database surfaces here, not
// on the first request.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: log}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: cfg.Metrics.EnableProcessMetrics,
			EnableGoMetrics:      cfg.Metrics.EnableGoMetrics,
		}, log)
		if err != nil {
			return nil, err
		}
		a.Metrics = prometheus.NewAppMetrics(collector)
		metricsHandler = collector.Handler()
	}

	loader, ttl, err := a.buildCache()
	if err != nil {
		return nil, err
	}

	source, catalog, sink, err := a.buildStorage(ctx)
	if err != nil {
		return nil, err
	}

	engine, err := BuildEngine(cfg.Engine, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	scoreOpts := []appscoring.ServiceOption{appscoring.WithWorkers(cfg.Engine.Workers)}
	if loader != nil {
		scoreOpts = append(scoreOpts, appscoring.WithCache(loader, ttl))
	}
	if a.Metrics != nil {
		scoreOpts = append(scoreOpts, appscoring.WithMetrics(a.Metrics))
	}
	a.Scoring = appscoring.NewService(engine, log, scoreOpts...)

	recOpts := []apprec.ServiceOption{}
	if loader != nil {
		recOpts = append(recOpts, apprec.WithCache(loader, ttl))
	}
	if a.Metrics != nil {
		recOpts = append(recOpts, apprec.WithMetrics(a.Metrics))
	}
	a.Recommendation, err = apprec.NewService(source, catalog,
		MiningThresholds(cfg.Engine), RecommendationConfig(cfg.Engine), log, recOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Kafka.Enabled {
		if sink == nil {
			a.Close()
			return nil, fmt.Errorf("kafka ingestion requires the database to be enabled")
		}
		consumerOpts := []stream.ConsumerOption{}
		if a.Metrics != nil {
			consumerOpts = append(consumerOpts, stream.WithMetrics(a.Metrics))
		}
		a.consumer, err = stream.NewConsumer(stream.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}, sink, log, consumerOpts...)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.server = httpapi.NewServer(cfg.Server, log, httpapi.Deps{
		Score:          handlers.NewScoreHandler(a.Scoring, product.DataSourceBundle{}),
		Recommendation: handlers.NewRecommendationHandler(a.Recommendation),
		Health:         handlers.NewHealthHandler(a.readinessChecks()),
		MetricsHandler: metricsHandler,
		AppMetrics:     a.Metrics,
	})

	return a, nil
}

// Run serves until the context is cancelled, then shuts down cleanly.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(a.server.Start)
	if a.consumer != nil {
		g.Go(func() error { return a.consumer.Run(ctx) })
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx := context.Background()
		if a.consumer != nil {
			_ = a.consumer.Close()
		}
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.Close()
	return err
}

// Handler exposes the HTTP engine for tests.
func (a *App) Handler() http.Handler { return a.server.Handler() }

// Close releases connections.  Safe to call more than once and on a
// partially constructed App.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
}

func (a *App) buildCache() (*cache.Loader, time.Duration, error) {
	if !a.cfg.Cache.Enabled {
		return nil, 0, nil
	}
	ttl := time.Duration(a.cfg.Cache.TTLHours) * time.Hour
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}

	switch a.cfg.Cache.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:         a.cfg.Redis.Addr,
			Password:     a.cfg.Redis.Password,
			DB:           a.cfg.Redis.DB,
			PoolSize:     a.cfg.Redis.PoolSize,
			DialTimeout:  a.cfg.Redis.DialTimeout,
			ReadTimeout:  a.cfg.Redis.ReadTimeout,
			WriteTimeout: a.cfg.Redis.WriteTimeout,
		})
		a.redis = client
		rc := cache.NewRedisCache(client, cache.WithPrefix(a.cfg.Redis.KeyPrefix))
		return cache.NewLoader(rc), ttl, nil
	default:
		return cache.NewLoader(cache.NewMemoryCache(cache.WithDefaultTTL(ttl))), ttl, nil
	}
}

// buildStorage returns the transaction source, catalog, and basket sink.
// Without a database the engine runs on empty in-memory stores; callers then
// supply corpora through the CLI or accept empty recommendations.
func (a *App) buildStorage(ctx context.Context) (association.TransactionSource, product.Catalog, stream.BasketSink, error) {
	if !a.cfg.Database.Enabled {
		return association.SliceSource{}, product.NewStaticCatalog(nil), nil, nil
	}

	pgCfg := postgres.Config{
		Host:            a.cfg.Database.Host,
		Port:            a.cfg.Database.Port,
		Database:        a.cfg.Database.DBName,
		Username:        a.cfg.Database.User,
		Password:        a.cfg.Database.Password,
		SSLMode:         a.cfg.Database.SSLMode,
		MaxConns:        int32(a.cfg.Database.MaxConns),
		MinConns:        int32(a.cfg.Database.MinConns),
		ConnMaxLifetime: a.cfg.Database.ConnMaxLifetime,
	}
	pool, err := postgres.Connect(ctx, pgCfg, a.logger)
	if err != nil {
		return nil, nil, nil, err
	}
	a.pool = pool

	if a.cfg.Database.MigrationPath != "" {
		if err := postgres.RunMigrations(pgCfg.URL(), a.cfg.Database.MigrationPath); err != nil {
			a.Close()
			return nil, nil, nil, err
		}
	}

	txRepo := repositories.NewTransactionRepository(pool, a.logger, a.cfg.Database.MaxCorpus)
	catRepo := repositories.NewCatalogRepository(pool, a.logger)
	return txRepo, catRepo, txRepo, nil
}

func (a *App) readinessChecks() map[string]handlers.ReadinessCheck {
	checks := make(map[string]handlers.ReadinessCheck)
	if a.pool != nil {
		pool := a.pool
		checks["database"] = func(ctx context.Context) error { return pool.Ping(ctx) }
	}
	if a.redis != nil {
		client := a.redis
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	return checks
}

// BuildEngine constructs the scoring engine from configuration: niche weight
// overrides, recommendation ladder, and confidence blend.
func BuildEngine(cfg config.EngineConfig, log logging.Logger) (*scoring.Engine, error) {
	registry, err := scoring.NewProfileRegistry(nicheOverrides(cfg.NicheWeights))
	if err != nil {
		return nil, err
	}
	return scoring.NewEngine(registry, log,
		scoring.WithThresholds(scoring.Thresholds{
			StronglyRecommendedMin: cfg.Thresholds.StronglyRecommended,
			RecommendedMin:         cfg.Thresholds.Recommended,
			ModerateMin:            cfg.Thresholds.ModeratePotential,
			StrengthMin:            cfg.Thresholds.Strength,
			WeaknessMax:            cfg.Thresholds.Weakness,
		}),
		scoring.WithConfidenceConfig(scoring.ConfidenceConfig{
			CompletenessWeight: cfg.Confidence.CompletenessWeight,
			VarianceWeight:     cfg.Confidence.VarianceWeight,
			CriticalPenalty:    cfg.Confidence.CriticalPenalty,
			Floor:              cfg.Confidence.Floor,
		}),
	)
}

func nicheOverrides(weights map[string]map[string]float64) map[string]map[scoring.Category]float64 {
	if len(weights) == 0 {
		return nil
	}
	out := make(map[string]map[scoring.Category]float64, len(weights))
	for niche, byCategory := range weights {
		m := make(map[scoring.Category]float64, len(byCategory))
		for category, w := range byCategory {
			m[scoring.Category(category)] = w
		}
		out[niche] = m
	}
	return out
}

// MiningThresholds extracts the apriori thresholds from the engine config.
func MiningThresholds(cfg config.EngineConfig) association.Thresholds {
	return association.Thresholds{
		MinSupport:    cfg.MinSupport,
		MinConfidence: cfg.MinConfidence,
		MinLift:       cfg.MinLift,
	}
}

// RecommendationConfig maps the engine config onto the analyzer knobs,
// keeping defaults for anything unset.
func RecommendationConfig(cfg config.EngineConfig) recommendation.Config {
	rc := recommendation.DefaultConfig()
	if cfg.MaxComplementaryProducts > 0 {
		rc.MaxComplementary = cfg.MaxComplementaryProducts
	}
	if cfg.MaxUpsellProducts > 0 {
		rc.MaxUpsell = cfg.MaxUpsellProducts
	}
	if cfg.UpsellPriceRatio > 0 {
		rc.UpsellPriceRatio = cfg.UpsellPriceRatio
	}
	if cfg.BundleTargetSize > 0 {
		rc.BundleTargetSize = cfg.BundleTargetSize
	}
	if cfg.MinDesirability > 0 {
		rc.MinDesirability = cfg.MinDesirability
	}
	if len(cfg.DiscountTiers) > 0 {
		tiers := make([]recommendation.DiscountTier, len(cfg.DiscountTiers))
		for i, t := range cfg.DiscountTiers {
			tiers[i] = recommendation.DiscountTier{MinItems: t.MinItems, Discount: t.Discount}
		}
		rc.DiscountTiers = tiers
	}
	return rc
}
