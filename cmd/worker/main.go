// Ingestion worker entry point: consumes order-completed baskets from Kafka
// into the transaction log and periodically re-mines association rules so
// the rule set tracks fresh order history.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dropsight/dropsight/internal/app"
	apprec "github.com/dropsight/dropsight/internal/application/recommendation"
	"github.com/dropsight/dropsight/internal/config"
	"github.com/dropsight/dropsight/internal/infrastructure/database/postgres"
	"github.com/dropsight/dropsight/internal/infrastructure/database/postgres/repositories"
	"github.com/dropsight/dropsight/internal/infrastructure/monitoring/logging"
	"github.com/dropsight/dropsight/internal/infrastructure/stream"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (environment only when empty)")
	remineInterval := flag.Duration("remine-interval", 15*time.Minute, "how often to re-mine association rules")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if !cfg.Database.Enabled {
		fmt.Fprintln(os.Stderr, "the worker requires database.enabled=true")
		os.Exit(1)
	}
	if !cfg.Kafka.Enabled {
		fmt.Fprintln(os.Stderr, "the worker requires kafka.enabled=true")
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *remineInterval); err != nil {
		logger.Error("worker exited", logging.Err(err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger, remineInterval time.Duration) error {
	pool, err := postgres.Connect(ctx, postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Database:        cfg.Database.DBName,
		Username:        cfg.Database.User,
		Password:        cfg.Database.Password,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	txRepo := repositories.NewTransactionRepository(pool, logger, cfg.Database.MaxCorpus)
	catRepo := repositories.NewCatalogRepository(pool, logger)

	recService, err := apprec.NewService(txRepo, catRepo,
		app.MiningThresholds(cfg.Engine), app.RecommendationConfig(cfg.Engine), logger)
	if err != nil {
		return err
	}

	consumer, err := stream.NewConsumer(stream.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	}, txRepo, logger)
	if err != nil {
		return err
	}

	logger.Info("worker starting",
		logging.String("topic", cfg.Kafka.Topic),
		logging.Duration("remine_interval", remineInterval),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return consumer.Run(ctx) })
	g.Go(func() error {
		ticker := time.NewTicker(remineInterval)
		defer ticker.Stop()
		for {
			if err := recService.Refresh(ctx); err != nil {
				logger.Warn("re-mining failed", logging.Err(err))
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		return consumer.Close()
	})
	return g.Wait()
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
