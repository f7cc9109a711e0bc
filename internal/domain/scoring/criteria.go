package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/dropsight/dropsight/pkg/types/common"
)

// neutralScore is returned by a scorer with zero usable inputs.
const neutralScore = 50.0

// factorSet accumulates present sub-factors and computes their weighted mean.
// Absent factors simply never get added; the mean renormalizes over the
// weights that are present, so partial data still yields a [0,100] score.
type factorSet struct {
	factors []Factor
	missing []string
}

func (fs *factorSet) add(name string, value, weight float64) {
	fs.factors = append(fs.factors, Factor{
		Name:   name,
		Value:  round2(common.Clamp(value, 0, 100)),
		Weight: weight,
	})
}

func (fs *factorSet) markMissing(name string) {
	fs.missing = append(fs.missing, name)
}

// finish assembles the CategoryScore.  With no usable factors the score is
// neutral and flagged as insufficient data.
func (fs *factorSet) finish(cat Category, describe func(score float64) string) CategoryScore {
	if len(fs.factors) == 0 {
		return CategoryScore{
			Category:         cat,
			Score:            neutralScore,
			Description:      "insufficient data; neutral score applied",
			InsufficientData: true,
			MissingCritical:  fs.missing,
		}
	}
	var weighted, total float64
	for _, f := range fs.factors {
		weighted += f.Value * f.Weight
		total += f.Weight
	}
	score := round2(common.Clamp(weighted/total, 0, 100))
	return CategoryScore{
		Category:        cat,
		Score:           score,
		Factors:         fs.factors,
		Description:     describe(score),
		MissingCritical: fs.missing,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MarketPotentialScorer combines normalized search volume, year-over-year
// growth, and addressable-market size.
type MarketPotentialScorer struct{}

func (MarketPotentialScorer) Category() Category { return CategoryMarketPotential }

func (MarketPotentialScorer) Score(ctx context.Context, in Input) CategoryScore {
	attrs := in.Product.Attributes
	var fs factorSet

	if attrs.SearchVolume != nil {
		fs.add("search_volume", attrs.SearchVolume.Score01()*100, 0.40)
	} else {
		fs.markMissing("search_volume")
	}

	growth := attrs.SearchGrowthRate
	if growth == nil {
		// Fall back to the external trend source when the caller did not
		// supply a growth rate directly.
		if snap, ok := in.Sources.SafeTrend(ctx, in.Product.Name); ok {
			fs.add("search_growth_rate", growthScore(snap.GrowthRate), 0.35)
		} else {
			fs.markMissing("search_growth_rate")
		}
	} else {
		fs.add("search_growth_rate", growthScore(*growth), 0.35)
	}

	if attrs.MarketSize != nil {
		fs.add("market_size", attrs.MarketSize.Score01()*100, 0.25)
	} else {
		fs.markMissing("market_size")
	}

	return fs.finish(CategoryMarketPotential, func(score float64) string {
		switch {
		case score >= 75:
			return "strong demand signals across search and market size"
		case score >= 50:
			return "moderate demand with room to grow"
		default:
			return "weak demand signals for this product"
		}
	})
}

// growthScore maps a fractional YoY growth rate to [0,100]: -50% or worse
// scores 0, flat scores 50, +50% or better scores 100.
func growthScore(rate float64) float64 {
	return common.Clamp((rate+0.5)/1.0, 0, 1) * 100
}

// CompetitionScorer inversely weights competitor count and price-competition
// intensity and rewards higher barriers to entry.
type CompetitionScorer struct{}

func (CompetitionScorer) Category() Category { return CategoryCompetition }

func (CompetitionScorer) Score(ctx context.Context, in Input) CategoryScore {
	attrs := in.Product.Attributes
	var fs factorSet

	count := attrs.CompetitorCount
	pressure := -1.0
	if count == nil {
		if snap, ok := in.Sources.SafeMarket(ctx, in.Product.Name); ok {
			c := snap.CompetitorCount
			count = &c
			pressure = snap.PricePressure
		}
	}
	if count != nil {
		fs.add("competitor_count", competitorScore(*count), 0.45)
	} else {
		fs.markMissing("competitor_count")
	}

	switch {
	case attrs.PriceCompetition != nil:
		fs.add("price_competition", (1-attrs.PriceCompetition.Score01())*100, 0.30)
	case pressure >= 0:
		fs.add("price_competition", (1-common.Clamp(pressure, 0, 1))*100, 0.30)
	default:
		fs.markMissing("price_competition")
	}

	if attrs.BarriersToEntry != nil {
		fs.add("barriers_to_entry", attrs.BarriersToEntry.Score01()*100, 0.25)
	} else {
		fs.markMissing("barriers_to_entry")
	}

	return fs.finish(CategoryCompetition, func(score float64) string {
		switch {
		case score >= 75:
			return "lightly contested market with defensible position"
		case score >= 50:
			return "competitive but viable market"
		default:
			return "saturated market with heavy price competition"
		}
	})
}

// competitorScore maps an active-competitor count to [0,100] through a
// threshold ladder: a handful of sellers is healthy validation, dozens is
// saturation.
func competitorScore(count int) float64 {
	switch {
	case count <= 3:
		return 90
	case count <= 10:
		return 70
	case count <= 25:
		return 45
	case count <= 50:
		return 28
	default:
		return 12
	}
}

// ProfitabilityScorer derives gross margin from price versus supplier cost
// and rewards price stability and up-sell headroom.
type ProfitabilityScorer struct{}

func (ProfitabilityScorer) Category() Category { return CategoryProfitability }

func (ProfitabilityScorer) Score(_ context.Context, in Input) CategoryScore {
	attrs := in.Product.Attributes
	var fs factorSet

	if margin, ok := in.Product.GrossMargin(); ok {
		fs.add("gross_margin", marginScore(margin), 0.50)
	} else {
		fs.markMissing("gross_margin")
	}

	if attrs.PriceStability != nil {
		fs.add("price_stability", attrs.PriceStability.Score01()*100, 0.25)
	} else {
		fs.markMissing("price_stability")
	}

	if attrs.UpsellHeadroom != nil {
		fs.add("upsell_headroom", attrs.UpsellHeadroom.Score01()*100, 0.25)
	} else {
		fs.markMissing("upsell_headroom")
	}

	return fs.finish(CategoryProfitability, func(score float64) string {
		switch {
		case score >= 75:
			return "healthy margins with pricing power"
		case score >= 50:
			return "workable margins under typical ad costs"
		default:
			return "thin margins leave little room for acquisition costs"
		}
	})
}

// marginScore maps a fractional gross margin to [0,100].  Dropshipping needs
// roughly 30% after fees to break even on paid traffic, hence the steep
// ladder below that point.
func marginScore(margin float64) float64 {
	switch {
	case margin >= 0.60:
		return 95
	case margin >= 0.45:
		return 80
	case margin >= 0.30:
		return 60
	case margin >= 0.15:
		return 35
	default:
		return 15
	}
}

// OperationalFitScorer penalizes shipping complexity and anticipated returns
// and rewards supplier reliability.
type OperationalFitScorer struct{}

func (OperationalFitScorer) Category() Category { return CategoryOperationalFit }

func (OperationalFitScorer) Score(_ context.Context, in Input) CategoryScore {
	attrs := in.Product.Attributes
	var fs factorSet

	if attrs.ShippingComplexity != nil {
		fs.add("shipping_complexity", (1-attrs.ShippingComplexity.Score01())*100, 0.40)
	} else {
		fs.markMissing("shipping_complexity")
	}

	if attrs.ReturnRate != nil {
		// 30% returns or worse zeroes the factor.
		fs.add("return_rate", (1-common.Clamp(*attrs.ReturnRate/0.30, 0, 1))*100, 0.35)
	} else {
		fs.markMissing("return_rate")
	}

	if attrs.SupplierReliability != nil {
		fs.add("supplier_reliability", common.Clamp(*attrs.SupplierReliability, 0, 1)*100, 0.25)
	} else {
		fs.markMissing("supplier_reliability")
	}

	return fs.finish(CategoryOperationalFit, func(score float64) string {
		switch {
		case score >= 75:
			return "simple fulfilment with dependable supply"
		case score >= 50:
			return "manageable operations with some friction"
		default:
			return "operationally heavy: shipping, returns, or supply risk"
		}
	})
}

// TrendStabilityScorer rewards sustained trend consistency and penalizes pure
// seasonal spikes unless seasonal-launch evaluation was requested.
type TrendStabilityScorer struct{}

func (TrendStabilityScorer) Category() Category { return CategoryTrendStability }

func (TrendStabilityScorer) Score(ctx context.Context, in Input) CategoryScore {
	attrs := in.Product.Attributes
	var fs factorSet

	consistency := attrs.TrendConsistency
	seasonality := attrs.SeasonalityIndex
	if consistency == nil && seasonality == nil {
		if snap, ok := in.Sources.SafeTrend(ctx, in.Product.Name); ok {
			c, s := snap.Consistency, snap.SeasonalitySpike
			consistency, seasonality = &c, &s
		}
	}

	if consistency != nil {
		fs.add("trend_consistency", common.Clamp(*consistency, 0, 1)*100, 0.50)
	} else {
		fs.markMissing("trend_consistency")
	}

	if seasonality != nil {
		si := common.Clamp(*seasonality, 0, 1)
		if in.Options.SeasonalLaunch {
			fs.add("seasonality", si*100, 0.30)
		} else {
			fs.add("seasonality", (1-si)*100, 0.30)
		}
	} else {
		fs.markMissing("seasonality")
	}

	if attrs.SocialMentions != nil {
		fs.add("social_mentions", mentionScore(*attrs.SocialMentions), 0.20)
	} else {
		fs.markMissing("social_mentions")
	}

	return fs.finish(CategoryTrendStability, func(score float64) string {
		if in.Options.SeasonalLaunch {
			return fmt.Sprintf("seasonal-launch evaluation; trend score %.0f", score)
		}
		switch {
		case score >= 75:
			return "sustained interest without seasonal collapse"
		case score >= 50:
			return "interest holding but watch for seasonal swings"
		default:
			return "spiky or fading interest pattern"
		}
	})
}

// mentionScore maps a trailing-month social-mention count onto a log scale
// saturating at 100k mentions.
func mentionScore(mentions int) float64 {
	if mentions <= 0 {
		return 0
	}
	return common.Clamp(math.Log1p(float64(mentions))/math.Log1p(100000), 0, 1) * 100
}

// DefaultScorers returns the five criterion scorers in canonical category
// order.
func DefaultScorers() []Scorer {
	return []Scorer{
		MarketPotentialScorer{},
		CompetitionScorer{},
		ProfitabilityScorer{},
		OperationalFitScorer{},
		TrendStabilityScorer{},
	}
}
