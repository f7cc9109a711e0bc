// Package scoring is the application layer over the scoring engine: cache
// read-through, batch orchestration with per-item failure isolation, and
// metrics.
package scoring

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dropsight/dropsight/internal/domain/product"
	"github.com/dropsight/dropsight/internal/domain/scoring"
	"github.com/dropsight/dropsight/internal/infrastructure/cache"
	"github.com/dropsight/dropsight/internal/infrastructure/monitoring/logging"
	"github.com/dropsight/dropsight/internal/infrastructure/monitoring/prometheus"
	"github.com/dropsight/dropsight/pkg/errors"
)

// Request is one scoring call: the product snapshot plus per-call options.
// Data-source callables are supplied separately since they never participate
// in cache fingerprints.
type Request struct {
	Product      product.Record  `json:"product"`
	Options      scoring.Options `json:"options"`
	ForceRefresh bool            `json:"force_refresh"`
}

// BatchItem is the outcome for one product in a batch: either a result or an
// error, never both.
type BatchItem struct {
	ProductID string               `json:"product_id"`
	Result    *scoring.ScoreResult `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
	Code      errors.ErrorCode     `json:"code,omitempty"`
}

// Service wraps the engine with caching and batch execution.
type Service struct {
	engine  *scoring.Engine
	loader  *cache.Loader
	ttl     time.Duration
	workers int
	metrics *prometheus.AppMetrics
	logger  logging.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCache enables read-through caching with the given TTL.
func WithCache(l *cache.Loader, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.loader = l
		s.ttl = ttl
	}
}

// WithWorkers bounds the batch worker pool.
func WithWorkers(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithMetrics attaches the metrics sink.
func WithMetrics(m *prometheus.AppMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// NewService builds the scoring service.  Caching is off until WithCache is
// applied.
func NewService(engine *scoring.Engine, log logging.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		engine:  engine,
		workers: 10,
		logger:  log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScoreProduct scores one product, serving repeats from cache.  The cache
// key covers the product snapshot and options; sources never affect it, so
// callers supplying live lookups should force a refresh when their data
// changes faster than the TTL.
func (s *Service) ScoreProduct(ctx context.Context, req Request, sources product.DataSourceBundle) (*scoring.ScoreResult, error) {
	start := time.Now()

	result, err := s.scoreCached(ctx, req, sources)

	if s.metrics != nil {
		overall := 0.0
		if result != nil {
			overall = result.OverallScore
		}
		s.metrics.RecordScore(req.Product.Niche, overall, time.Since(start), err)
		if err != nil {
			s.metrics.RecordError("scoring", string(errors.GetCode(err)))
		}
	}
	return result, err
}

func (s *Service) scoreCached(ctx context.Context, req Request, sources product.DataSourceBundle) (*scoring.ScoreResult, error) {
	if s.loader == nil {
		return s.engine.ScoreProduct(ctx, req.Product, sources, req.Options)
	}

	key, err := cache.Fingerprint("score", struct {
		Product product.Record  `json:"product"`
		Options scoring.Options `json:"options"`
	}{req.Product, req.Options})
	if err != nil {
		// A non-fingerprintable input still deserves a score.
		return s.engine.ScoreProduct(ctx, req.Product, sources, req.Options)
	}

	computed := false
	result, err := cache.GetOrCompute(ctx, s.loader, key, s.ttl, req.ForceRefresh,
		func(ctx context.Context) (*scoring.ScoreResult, error) {
			computed = true
			return s.engine.ScoreProduct(ctx, req.Product, sources, req.Options)
		})
	if s.metrics != nil && err == nil {
		s.metrics.RecordCacheAccess("score", !computed && !req.ForceRefresh)
	}
	return result, err
}

// ScoreBatch scores every request over a bounded worker pool.  One invalid
// product never aborts the others: failures are reported per item, in input
// order.
func (s *Service) ScoreBatch(ctx context.Context, reqs []Request, sources product.DataSourceBundle) []BatchItem {
	items := make([]BatchItem, len(reqs))
	if len(reqs) == 0 {
		return items
	}
	if s.metrics != nil {
		s.metrics.BatchSizes.WithLabelValues().Observe(float64(len(reqs)))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			item := BatchItem{ProductID: string(req.Product.ID)}
			result, err := s.ScoreProduct(gctx, req, sources)
			if err != nil {
				item.Error = err.Error()
				item.Code = errors.GetCode(err)
			} else {
				item.Result = result
			}
			items[i] = item
			return nil
		})
	}
	// Workers never return errors; Wait only joins them.
	_ = g.Wait()

	return items
}
