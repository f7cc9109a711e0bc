// Package scoring implements the multi-criteria product scoring model: five
// criterion scorers, niche weight profiles, and the engine that aggregates
// them into an overall score, confidence value, and recommendation.
package scoring

import (
	"context"

	"github.com/dropsight/dropsight/internal/domain/product"
	"github.com/dropsight/dropsight/pkg/types/common"
)

// Category identifies one of the five scoring criteria.
type Category string

const (
	CategoryMarketPotential Category = "market_potential"
	CategoryCompetition     Category = "competition"
	CategoryProfitability   Category = "profitability"
	CategoryOperationalFit  Category = "operational_fit"
	CategoryTrendStability  Category = "trend_stability"
)

// AllCategories returns the canonical ordered list of scoring categories.
// Every aggregation and serialization in the engine iterates in this order so
// identical inputs always produce identical output bytes.
func AllCategories() []Category {
	return []Category{
		CategoryMarketPotential,
		CategoryCompetition,
		CategoryProfitability,
		CategoryOperationalFit,
		CategoryTrendStability,
	}
}

// Factor is one named sub-signal contributing to a category score.
type Factor struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"`
}

// CategoryScore is the output of a single criterion scorer: a [0,100] score,
// the sub-factors that produced it, and a deterministic description.
type CategoryScore struct {
	Category    Category `json:"category"`
	Score       float64  `json:"score"`
	Factors     []Factor `json:"factors"`
	Description string   `json:"description"`

	// InsufficientData marks a scorer that had zero usable inputs and
	// returned the neutral score.  Consumed by the confidence calculation.
	InsufficientData bool `json:"insufficient_data,omitempty"`

	// MissingCritical lists the scorer's critical sub-factors that were
	// absent from the input.  Not serialized; confidence input only.
	MissingCritical []string `json:"-"`
}

// Options tunes a single scoring call.
type Options struct {
	// SeasonalLaunch requests seasonal-launch evaluation: a concentrated
	// seasonal spike is then treated as an asset instead of a penalty.
	SeasonalLaunch bool `json:"seasonal_launch,omitempty"`
}

// Input bundles everything a criterion scorer may consult.
type Input struct {
	Product product.Record
	Sources product.DataSourceBundle
	Options Options
}

// Recommendation is the discrete verdict derived from the overall score.
type Recommendation string

const (
	StronglyRecommended Recommendation = "strongly recommended"
	Recommended         Recommendation = "recommended"
	ModeratePotential   Recommendation = "moderate potential"
	NotRecommended      Recommendation = "not recommended"
)

// CategoryScores holds the five category results.  A struct rather than a
// map: JSON field order is fixed, so result serialization is byte-identical
// across runs.
type CategoryScores struct {
	MarketPotential CategoryScore `json:"market_potential"`
	Competition     CategoryScore `json:"competition"`
	Profitability   CategoryScore `json:"profitability"`
	OperationalFit  CategoryScore `json:"operational_fit"`
	TrendStability  CategoryScore `json:"trend_stability"`
}

// All returns the category scores in canonical order.
func (cs CategoryScores) All() []CategoryScore {
	return []CategoryScore{
		cs.MarketPotential,
		cs.Competition,
		cs.Profitability,
		cs.OperationalFit,
		cs.TrendStability,
	}
}

// byCategory returns the score for c; the zero CategoryScore if unknown.
func (cs CategoryScores) byCategory(c Category) CategoryScore {
	switch c {
	case CategoryMarketPotential:
		return cs.MarketPotential
	case CategoryCompetition:
		return cs.Competition
	case CategoryProfitability:
		return cs.Profitability
	case CategoryOperationalFit:
		return cs.OperationalFit
	case CategoryTrendStability:
		return cs.TrendStability
	}
	return CategoryScore{}
}

// Explanation is the deterministic textual rationale attached to a result.
type Explanation struct {
	Summary             string   `json:"summary"`
	KeyFactors          []string `json:"key_factors"`
	ConfidenceStatement string   `json:"confidence_statement"`
}

// ScoreResult is the complete outcome of scoring one product.
type ScoreResult struct {
	ProductID      common.ID       `json:"product_id"`
	Niche          string          `json:"niche"`
	OverallScore   float64         `json:"overall_score"`
	CategoryScores CategoryScores  `json:"category_scores"`
	Confidence     float64         `json:"confidence"`
	Recommendation Recommendation  `json:"recommendation"`
	Strengths      []CategoryScore `json:"strengths"`
	Weaknesses     []CategoryScore `json:"weaknesses"`
	Explanation    Explanation     `json:"explanation"`
}

// Scorer is the shared criterion-scorer contract.  Implementations never
// fail: missing data degrades to partial or neutral scores with the
// insufficient-data flag set.  The context is forwarded to any external
// lookup in the input's DataSourceBundle.
type Scorer interface {
	Category() Category
	Score(ctx context.Context, in Input) CategoryScore
}
