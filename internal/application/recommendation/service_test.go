package recommendation

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropsight/dropsight/internal/domain/association"
	"github.com/dropsight/dropsight/internal/domain/product"
	"github.com/dropsight/dropsight/internal/domain/recommendation"
	"github.com/dropsight/dropsight/internal/infrastructure/cache"
	"github.com/dropsight/dropsight/internal/infrastructure/monitoring/logging"
	apperrors "github.com/dropsight/dropsight/pkg/errors"
)

type countingSource struct {
	transactions []association.Transaction
	reads        atomic.Int32
	fail         bool
}

func (s *countingSource) Transactions(context.Context) ([]association.Transaction, error) {
	s.reads.Add(1)
	if s.fail {
		return nil, assert.AnError
	}
	return s.transactions, nil
}

func testCatalog() *product.StaticCatalog {
	return product.NewStaticCatalog([]product.CatalogEntry{
		{ID: "P1", Name: "Phone Stand", Category: "electronics", Price: 20, Popularity: 0.8},
		{ID: "P2", Name: "Charging Cable", Category: "accessories", Price: 10, Popularity: 0.6},
		{ID: "P3", Name: "Premium Stand", Category: "electronics", Price: 30, Popularity: 0.9},
	})
}

func testSource() *countingSource {
	return &countingSource{transactions: []association.Transaction{
		{Items: []string{"P1", "P2"}},
		{Items: []string{"P1", "P2"}},
		{Items: []string{"P1"}},
		{Items: []string{"P2", "P3"}},
	}}
}

func newTestService(t *testing.T, src *countingSource, opts ...ServiceOption) *Service {
	t.Helper()
	svc, err := NewService(src, testCatalog(),
		association.Thresholds{MinSupport: 0.2, MinConfidence: 0.3, MinLift: 0.5},
		recommendation.DefaultConfig(),
		logging.NewNopLogger(), opts...)
	require.NoError(t, err)
	return svc
}

func TestNewServiceRejectsBadThresholds(t *testing.T) {
	_, err := NewService(testSource(), testCatalog(),
		association.Thresholds{MinSupport: -1, MinConfidence: 0.3, MinLift: 1},
		recommendation.DefaultConfig(), logging.NewNopLogger())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMiningThresholds))
}

func TestComplementaryLazyRefresh(t *testing.T) {
	src := testSource()
	svc := newTestService(t, src)

	out, err := svc.Complementary(context.Background(), "P1", 10, false)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "P2", out[0].ProductID)

	// The analyzer is built once and reused.
	_, err = svc.Complementary(context.Background(), "P2", 10, false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.reads.Load())
}

func TestComplementaryUnknownProduct(t *testing.T) {
	svc := newTestService(t, testSource())

	out, err := svc.Complementary(context.Background(), "ghost", 10, false)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRefreshPropagatesSourceError(t *testing.T) {
	src := testSource()
	src.fail = true
	svc := newTestService(t, src)

	err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCorpusSource))
}

func TestRulesCached(t *testing.T) {
	src := testSource()
	svc := newTestService(t, src,
		WithCache(cache.NewLoader(cache.NewMemoryCache()), time.Hour))
	ctx := context.Background()

	first, err := svc.Rules(ctx, false)
	require.NoError(t, err)
	second, err := svc.Rules(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), src.reads.Load(), "second read served from cache")
}

func TestRulesForceRefresh(t *testing.T) {
	src := testSource()
	svc := newTestService(t, src,
		WithCache(cache.NewLoader(cache.NewMemoryCache()), time.Hour))
	ctx := context.Background()

	_, err := svc.Rules(ctx, false)
	require.NoError(t, err)
	_, err = svc.Rules(ctx, true)
	require.NoError(t, err)

	assert.Equal(t, int32(2), src.reads.Load())
}

func TestUpsellThroughService(t *testing.T) {
	svc := newTestService(t, testSource())

	out, err := svc.Upsell(context.Background(), "P1", 5, false)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "P3", out[0].ProductID)
}

func TestBundlesThroughService(t *testing.T) {
	svc := newTestService(t, testSource())

	bundles, err := svc.Bundles(context.Background(), []string{"P1"}, 2, false)
	require.NoError(t, err)
	for _, b := range bundles {
		assert.LessOrEqual(t, b.BundlePrice, b.OriginalPrice)
	}
}

func TestAnalyzeCartThroughService(t *testing.T) {
	svc := newTestService(t, testSource())

	analysis, err := svc.AnalyzeCart(context.Background(), []string{"P1"}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, analysis.ItemCount)
	assert.InDelta(t, 20.0, analysis.CartValue, 1e-9)
	assert.LessOrEqual(t, analysis.OpportunityScore, 100.0)
}
