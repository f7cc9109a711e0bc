package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dropsight/dropsight/internal/domain/product"
	"github.com/dropsight/dropsight/pkg/types/common"
)

func fullAttributes() product.Attributes {
	return product.Attributes{
		SearchVolume:        product.LevelOf(common.LevelHigh),
		SearchGrowthRate:    product.Float(0.25),
		MarketSize:          product.LevelOf(common.LevelMedium),
		CompetitorCount:     product.Int(3),
		PriceCompetition:    product.LevelOf(common.LevelLow),
		BarriersToEntry:     product.LevelOf(common.LevelMedium),
		PriceStability:      product.LevelOf(common.LevelHigh),
		UpsellHeadroom:      product.LevelOf(common.LevelMedium),
		ShippingComplexity:  product.LevelOf(common.LevelLow),
		ReturnRate:          product.Float(0.05),
		SupplierReliability: product.Float(0.9),
		TrendConsistency:    product.Float(0.8),
		SeasonalityIndex:    product.Float(0.2),
		SocialMentions:      product.Int(5000),
	}
}

func fullRecord() product.Record {
	return product.Record{
		ID:           "P1",
		Name:         "LED strip light",
		Niche:        "electronics",
		Price:        50,
		SupplierCost: 20,
		Attributes:   fullAttributes(),
	}
}

func scoreWith(t *testing.T, s Scorer, in Input) CategoryScore {
	t.Helper()
	got := s.Score(context.Background(), in)
	assert.Equal(t, s.Category(), got.Category)
	assert.GreaterOrEqual(t, got.Score, 0.0)
	assert.LessOrEqual(t, got.Score, 100.0)
	return got
}

func TestAllScorersFullData(t *testing.T) {
	in := Input{Product: fullRecord()}
	for _, s := range DefaultScorers() {
		got := scoreWith(t, s, in)
		assert.False(t, got.InsufficientData, string(s.Category()))
		assert.Empty(t, got.MissingCritical, string(s.Category()))
		assert.NotEmpty(t, got.Factors, string(s.Category()))
		assert.NotEmpty(t, got.Description, string(s.Category()))
	}
}

func TestAllScorersZeroDataNeutral(t *testing.T) {
	in := Input{Product: product.Record{ID: "bare", Price: 10}}
	for _, s := range DefaultScorers() {
		got := scoreWith(t, s, in)
		assert.Equal(t, neutralScore, got.Score, string(s.Category()))
		assert.True(t, got.InsufficientData, string(s.Category()))
		assert.NotEmpty(t, got.MissingCritical, string(s.Category()))
	}
}

func TestMarketPotentialUsesTrendFallback(t *testing.T) {
	rec := product.Record{ID: "P1", Name: "widget", Price: 10,
		Attributes: product.Attributes{SearchVolume: product.LevelOf(common.LevelHigh)}}
	sources := product.DataSourceBundle{
		Trend: func(context.Context, string) (*product.TrendSnapshot, error) {
			return &product.TrendSnapshot{GrowthRate: 0.5}, nil
		},
	}
	got := scoreWith(t, MarketPotentialScorer{}, Input{Product: rec, Sources: sources})

	names := factorNames(got)
	assert.Contains(t, names, "search_growth_rate")
}

func TestMarketPotentialDegradesWhenLookupFails(t *testing.T) {
	rec := product.Record{ID: "P1", Name: "widget", Price: 10,
		Attributes: product.Attributes{SearchVolume: product.LevelOf(common.LevelMedium)}}
	sources := product.DataSourceBundle{
		Trend: func(context.Context, string) (*product.TrendSnapshot, error) {
			return nil, errors.New("quota exceeded")
		},
	}
	got := scoreWith(t, MarketPotentialScorer{}, Input{Product: rec, Sources: sources})

	assert.False(t, got.InsufficientData)
	assert.Contains(t, got.MissingCritical, "search_growth_rate")
}

func TestCompetitionFewerCompetitorsScoreHigher(t *testing.T) {
	base := product.Record{ID: "P1", Price: 10}

	few := base
	few.Attributes.CompetitorCount = product.Int(2)
	many := base
	many.Attributes.CompetitorCount = product.Int(80)

	sFew := scoreWith(t, CompetitionScorer{}, Input{Product: few})
	sMany := scoreWith(t, CompetitionScorer{}, Input{Product: many})
	assert.Greater(t, sFew.Score, sMany.Score)
}

func TestCompetitionMarketLookupFallback(t *testing.T) {
	rec := product.Record{ID: "P1", Name: "widget", Price: 10}
	sources := product.DataSourceBundle{
		Market: func(context.Context, string) (*product.MarketSnapshot, error) {
			return &product.MarketSnapshot{CompetitorCount: 5, PricePressure: 0.9}, nil
		},
	}
	got := scoreWith(t, CompetitionScorer{}, Input{Product: rec, Sources: sources})

	names := factorNames(got)
	assert.Contains(t, names, "competitor_count")
	assert.Contains(t, names, "price_competition")
}

func TestProfitabilityMarginLadder(t *testing.T) {
	tests := []struct {
		margin float64
		want   float64
	}{
		{0.65, 95},
		{0.50, 80},
		{0.35, 60},
		{0.20, 35},
		{0.05, 15},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, marginScore(tt.margin), "margin %.2f", tt.margin)
	}
}

func TestProfitabilityHigherMarginScoresHigher(t *testing.T) {
	rich := product.Record{ID: "P1", Price: 100, SupplierCost: 20}
	thin := product.Record{ID: "P2", Price: 100, SupplierCost: 90}

	sRich := scoreWith(t, ProfitabilityScorer{}, Input{Product: rich})
	sThin := scoreWith(t, ProfitabilityScorer{}, Input{Product: thin})
	assert.Greater(t, sRich.Score, sThin.Score)
}

func TestOperationalFitReturnRatePenalty(t *testing.T) {
	calm := product.Record{ID: "P1", Price: 10,
		Attributes: product.Attributes{ReturnRate: product.Float(0.02)}}
	churny := product.Record{ID: "P2", Price: 10,
		Attributes: product.Attributes{ReturnRate: product.Float(0.35)}}

	sCalm := scoreWith(t, OperationalFitScorer{}, Input{Product: calm})
	sChurny := scoreWith(t, OperationalFitScorer{}, Input{Product: churny})
	assert.Greater(t, sCalm.Score, sChurny.Score)
}

func TestTrendSeasonalSpikeIsPenalizedByDefault(t *testing.T) {
	rec := product.Record{ID: "P1", Price: 10, Attributes: product.Attributes{
		TrendConsistency: product.Float(0.5),
		SeasonalityIndex: product.Float(0.9),
	}}

	normal := scoreWith(t, TrendStabilityScorer{}, Input{Product: rec})
	seasonal := scoreWith(t, TrendStabilityScorer{}, Input{Product: rec, Options: Options{SeasonalLaunch: true}})
	assert.Greater(t, seasonal.Score, normal.Score)
}

func TestGrowthScoreBounds(t *testing.T) {
	assert.Equal(t, 0.0, growthScore(-0.9))
	assert.Equal(t, 50.0, growthScore(0))
	assert.Equal(t, 100.0, growthScore(0.8))
}

func TestMentionScoreMonotone(t *testing.T) {
	assert.Equal(t, 0.0, mentionScore(0))
	assert.Less(t, mentionScore(10), mentionScore(1000))
	assert.Equal(t, 100.0, mentionScore(200000))
}

func factorNames(cs CategoryScore) []string {
	names := make([]string, 0, len(cs.Factors))
	for _, f := range cs.Factors {
		names = append(names, f.Name)
	}
	return names
}
