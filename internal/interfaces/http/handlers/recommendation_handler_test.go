package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apprec "github.com/dropsight/dropsight/internal/application/recommendation"
	"github.com/dropsight/dropsight/internal/domain/association"
	"github.com/dropsight/dropsight/internal/domain/product"
	"github.com/dropsight/dropsight/internal/domain/recommendation"
	"github.com/dropsight/dropsight/internal/infrastructure/monitoring/logging"
)

func newRecommendationRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	source := association.SliceSource{
		{Items: []string{"P1", "P2"}},
		{Items: []string{"P1", "P2"}},
		{Items: []string{"P1"}},
		{Items: []string{"P2", "P3"}},
	}
	catalog := product.NewStaticCatalog([]product.CatalogEntry{
		{ID: "P1", Name: "Phone Stand", Category: "electronics", Price: 20, Popularity: 0.8},
		{ID: "P2", Name: "Charging Cable", Category: "accessories", Price: 10, Popularity: 0.6},
		{ID: "P3", Name: "Premium Stand", Category: "electronics", Price: 30, Popularity: 0.9},
	})
	svc, err := apprec.NewService(source, catalog,
		association.Thresholds{MinSupport: 0.2, MinConfidence: 0.3, MinLift: 0.5},
		recommendation.DefaultConfig(),
		logging.NewNopLogger())
	require.NoError(t, err)

	r := gin.New()
	NewRecommendationHandler(svc).Register(r)
	return r
}

func TestComplementaryEndpoint(t *testing.T) {
	r := newRecommendationRouter(t)

	// Bare POST with no body uses the defaults.
	req := httptest.NewRequest(http.MethodPost, "/complementary/P1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		ProductID     string `json:"product_id"`
		Complementary []struct {
			ProductID string  `json:"product_id"`
			Source    string  `json:"source"`
			Score     float64 `json:"score"`
		} `json:"complementary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "P1", resp.ProductID)
	require.NotEmpty(t, resp.Complementary)
	assert.Equal(t, "P2", resp.Complementary[0].ProductID)
}

func TestComplementaryUnknownProductReturnsEmptyList(t *testing.T) {
	r := newRecommendationRouter(t)

	w := postJSON(t, r, "/complementary/NOPE", QueryOptions{MaxResults: 5})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Complementary []json.RawMessage `json:"complementary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Complementary)
}

func TestUpsellEndpoint(t *testing.T) {
	r := newRecommendationRouter(t)

	w := postJSON(t, r, "/upsell/P1", QueryOptions{MaxResults: 5})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		ProductID string `json:"product_id"`
		Upsells   []struct {
			ProductID  string  `json:"product_id"`
			Price      float64 `json:"price"`
			PriceRatio float64 `json:"price_ratio"`
		} `json:"upsells"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "P1", resp.ProductID)
	for _, u := range resp.Upsells {
		assert.GreaterOrEqual(t, u.Price, 20*1.3)
	}
}

func TestBundlesEndpoint(t *testing.T) {
	r := newRecommendationRouter(t)

	w := postJSON(t, r, "/bundles", BundleRequest{Products: []string{"P1"}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Bundles []struct {
			ProductIDs    []string `json:"product_ids"`
			OriginalPrice float64  `json:"original_price"`
			BundlePrice   float64  `json:"bundle_price"`
		} `json:"bundles"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	for _, b := range resp.Bundles {
		assert.LessOrEqual(t, b.BundlePrice, b.OriginalPrice)
	}
}

func TestBundlesEndpointRejectsEmptySeeds(t *testing.T) {
	r := newRecommendationRouter(t)

	w := postJSON(t, r, "/bundles", BundleRequest{Products: nil})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Code)
}

func TestCartAnalyzeEndpoint(t *testing.T) {
	r := newRecommendationRouter(t)

	w := postJSON(t, r, "/cart/analyze", CartRequest{Products: []string{"P1", "P2"}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		CartValue        float64 `json:"cart_value"`
		ItemCount        int     `json:"item_count"`
		OpportunityScore float64 `json:"opportunity_score"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.ItemCount)
	assert.InDelta(t, 30.0, resp.CartValue, 0.001)
	assert.GreaterOrEqual(t, resp.OpportunityScore, 0.0)
	assert.LessOrEqual(t, resp.OpportunityScore, 100.0)
}
