// Package recommendation is the application layer over the rule miner and
// the complementary/up-sell/bundle analyzer: corpus loading, analyzer
// lifecycle, caching, and metrics.
package recommendation

import (
	"context"
	"sync"
	"time"

	"github.com/dropsight/dropsight/internal/domain/association"
	"github.com/dropsight/dropsight/internal/domain/product"
	"github.com/dropsight/dropsight/internal/domain/recommendation"
	"github.com/dropsight/dropsight/internal/infrastructure/cache"
	"github.com/dropsight/dropsight/internal/infrastructure/monitoring/logging"
	"github.com/dropsight/dropsight/internal/infrastructure/monitoring/prometheus"
	"github.com/dropsight/dropsight/pkg/errors"
)

// Service mines rules from the transaction source and answers the four
// recommendation queries.  The analyzer is rebuilt on Refresh and shared
// between calls.
type Service struct {
	source     association.TransactionSource
	thresholds association.Thresholds
	catalog    product.Catalog
	cfg        recommendation.Config
	affinity   *recommendation.AffinityTable

	loader *cache.Loader
	ttl    time.Duration

	metrics *prometheus.AppMetrics
	logger  logging.Logger

	mu       sync.RWMutex
	analyzer *recommendation.Analyzer
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCache enables query-result caching with the given TTL.
func WithCache(l *cache.Loader, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.loader = l
		s.ttl = ttl
	}
}

// WithMetrics attaches the metrics sink.
func WithMetrics(m *prometheus.AppMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithAffinityTable overrides the built-in category-affinity table.
func WithAffinityTable(t *recommendation.AffinityTable) ServiceOption {
	return func(s *Service) { s.affinity = t }
}

// NewService builds the recommendation service.  No mining happens until the
// first query or an explicit Refresh.
func NewService(
	source association.TransactionSource,
	catalog product.Catalog,
	thresholds association.Thresholds,
	cfg recommendation.Config,
	log logging.Logger,
	opts ...ServiceOption,
) (*Service, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		source:     source,
		thresholds: thresholds,
		catalog:    catalog,
		cfg:        cfg,
		affinity:   recommendation.DefaultAffinityTable(),
		logger:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Refresh re-mines the corpus and swaps in a fresh analyzer.  The worker
// calls this periodically; queries call it lazily on first use.
func (s *Service) Refresh(ctx context.Context) error {
	start := time.Now()
	transactions, err := s.source.Transactions(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordMiningRun(0, 0, time.Since(start), err)
		}
		return errors.Wrap(err, errors.ErrCodeCorpusSource, "failed to read transaction corpus")
	}

	rules, err := association.Mine(transactions, s.thresholds)
	if s.metrics != nil {
		s.metrics.RecordMiningRun(len(transactions), len(rules), time.Since(start), err)
	}
	if err != nil {
		return err
	}

	analyzer, err := recommendation.NewAnalyzer(rules, s.catalog,
		recommendation.WithConfig(s.cfg),
		recommendation.WithAffinityTable(s.affinity),
		recommendation.WithLogger(s.logger),
	)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.analyzer = analyzer
	s.mu.Unlock()

	s.logger.Info("rule analyzer refreshed",
		logging.Int("baskets", len(transactions)),
		logging.Int("rules", len(rules)),
		logging.Duration("took", time.Since(start)),
	)
	return nil
}

// Rules re-mines on demand and returns the rule set, caching it under the
// mining thresholds.
func (s *Service) Rules(ctx context.Context, forceRefresh bool) ([]association.Rule, error) {
	compute := func(ctx context.Context) ([]association.Rule, error) {
		transactions, err := s.source.Transactions(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCorpusSource, "failed to read transaction corpus")
		}
		return association.Mine(transactions, s.thresholds)
	}
	if s.loader == nil {
		return compute(ctx)
	}
	key, err := cache.Fingerprint("mine", s.thresholds)
	if err != nil {
		return compute(ctx)
	}
	return cache.GetOrCompute(ctx, s.loader, key, s.ttl, forceRefresh, compute)
}

// current returns the analyzer, building it on first use.
func (s *Service) current(ctx context.Context) (*recommendation.Analyzer, error) {
	s.mu.RLock()
	a := s.analyzer
	s.mu.RUnlock()
	if a != nil {
		return a, nil
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analyzer, nil
}

// Complementary answers the complementary-products query.
func (s *Service) Complementary(ctx context.Context, productID string, maxResults int, forceRefresh bool) ([]recommendation.ComplementaryProduct, error) {
	return query(ctx, s, "complementary",
		struct {
			ProductID  string `json:"product_id"`
			MaxResults int    `json:"max_results"`
		}{productID, maxResults},
		forceRefresh,
		func(ctx context.Context, a *recommendation.Analyzer) ([]recommendation.ComplementaryProduct, error) {
			return a.GetComplementary(ctx, productID, maxResults)
		})
}

// Upsell answers the up-sell query.
func (s *Service) Upsell(ctx context.Context, productID string, maxResults int, forceRefresh bool) ([]recommendation.UpsellCandidate, error) {
	return query(ctx, s, "upsell",
		struct {
			ProductID  string `json:"product_id"`
			MaxResults int    `json:"max_results"`
		}{productID, maxResults},
		forceRefresh,
		func(ctx context.Context, a *recommendation.Analyzer) ([]recommendation.UpsellCandidate, error) {
			return a.GetUpsell(ctx, productID, maxResults)
		})
}

// Bundles builds candidate bundles from the seed products.
func (s *Service) Bundles(ctx context.Context, productIDs []string, maxBundles int, forceRefresh bool) ([]recommendation.Bundle, error) {
	return query(ctx, s, "bundles",
		struct {
			ProductIDs []string `json:"product_ids"`
			MaxBundles int      `json:"max_bundles"`
		}{productIDs, maxBundles},
		forceRefresh,
		func(ctx context.Context, a *recommendation.Analyzer) ([]recommendation.Bundle, error) {
			return a.BuildBundles(ctx, productIDs, maxBundles)
		})
}

// AnalyzeCart produces the full cart report.
func (s *Service) AnalyzeCart(ctx context.Context, productIDs []string, forceRefresh bool) (recommendation.CartAnalysis, error) {
	return query(ctx, s, "cart",
		struct {
			ProductIDs []string `json:"product_ids"`
		}{productIDs},
		forceRefresh,
		func(ctx context.Context, a *recommendation.Analyzer) (recommendation.CartAnalysis, error) {
			return a.AnalyzeCart(ctx, productIDs)
		})
}

// query wraps one analyzer call with caching and metrics.
func query[T any](ctx context.Context, s *Service, operation string, input any, forceRefresh bool, run func(context.Context, *recommendation.Analyzer) (T, error)) (T, error) {
	start := time.Now()
	var zero T

	a, err := s.current(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordRecommendation(operation, time.Since(start), err)
		}
		return zero, err
	}

	compute := func(ctx context.Context) (T, error) { return run(ctx, a) }

	var result T
	if s.loader == nil {
		result, err = compute(ctx)
	} else if key, kerr := cache.Fingerprint(operation, input); kerr != nil {
		result, err = compute(ctx)
	} else {
		computed := false
		result, err = cache.GetOrCompute(ctx, s.loader, key, s.ttl, forceRefresh,
			func(ctx context.Context) (T, error) {
				computed = true
				return compute(ctx)
			})
		if s.metrics != nil && err == nil {
			s.metrics.RecordCacheAccess(operation, !computed && !forceRefresh)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordRecommendation(operation, time.Since(start), err)
	}
	return result, err
}
