package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropsight/dropsight/internal/config"
	"github.com/dropsight/dropsight/internal/infrastructure/monitoring/logging"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Server.Mode = "test"
	cfg.Database.Enabled = false
	cfg.Kafka.Enabled = false
	cfg.Metrics.Enabled = true

	a, err := New(context.Background(), cfg, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestAppServesHealthz(t *testing.T) {
	a := newTestApp(t)

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAppScoresWithoutDatabase(t *testing.T) {
	a := newTestApp(t)

	body, err := json.Marshal(map[string]interface{}{
		"product": map[string]interface{}{
			"id":            "P1",
			"niche":         "electronics",
			"price":         50,
			"supplier_cost": 20,
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/score", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		OverallScore float64 `json:"overall_score"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.GreaterOrEqual(t, result.OverallScore, 0.0)
}

func TestAppEmptyCorpusYieldsEmptyRecommendations(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/complementary/P1", nil)
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Complementary []json.RawMessage `json:"complementary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Complementary)
}

func TestRecommendationConfigOverrides(t *testing.T) {
	cfg := config.EngineConfig{
		MaxComplementaryProducts: 7,
		UpsellPriceRatio:         1.5,
		DiscountTiers: []config.DiscountTierConfig{
			{MinItems: 2, Discount: 0.02},
			{MinItems: 4, Discount: 0.08},
		},
	}

	rc := RecommendationConfig(cfg)
	assert.Equal(t, 7, rc.MaxComplementary)
	assert.Equal(t, 1.5, rc.UpsellPriceRatio)
	require.Len(t, rc.DiscountTiers, 2)
	assert.Equal(t, 0.08, rc.DiscountTiers[1].Discount)

	// Unset knobs keep their defaults.
	assert.Equal(t, 5, rc.MaxUpsell)
}

func TestAppRejectsKafkaWithoutDatabase(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Database.Enabled = false

	_, err := New(context.Background(), cfg, logging.NewNopLogger())
	require.Error(t, err)
}
