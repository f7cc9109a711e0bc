package recommendation

import (
	"fmt"

	"github.com/dropsight/dropsight/pkg/errors"
)

// Candidate source labels, reported so callers can tell rule-backed matches
// from affinity fallbacks.
const (
	SourceRules    = "rules"
	SourceAffinity = "affinity"
)

// ComplementaryProduct is one ranked complementary match.
type ComplementaryProduct struct {
	ProductID  string  `json:"product_id"`
	Name       string  `json:"name,omitempty"`
	Category   string  `json:"category,omitempty"`
	Source     string  `json:"source"`
	Score      float64 `json:"score"`
	Lift       float64 `json:"lift,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// UpsellCandidate is one ranked up-sell match: a pricier product from the
// same or an affine category.
type UpsellCandidate struct {
	ProductID  string  `json:"product_id"`
	Name       string  `json:"name,omitempty"`
	Category   string  `json:"category,omitempty"`
	Price      float64 `json:"price"`
	PriceRatio float64 `json:"price_ratio"`
	Popularity float64 `json:"popularity"`
	Score      float64 `json:"score"`
}

// Bundle is a priced grouping of products sold together at a discount.
type Bundle struct {
	ProductIDs         []string `json:"product_ids"`
	OriginalPrice      float64  `json:"original_price"`
	BundlePrice        float64  `json:"bundle_price"`
	DiscountPercentage float64  `json:"discount_percentage"`
	Desirability       float64  `json:"desirability"`
}

// CartAnalysis is the full shopping-cart report.
type CartAnalysis struct {
	CartValue            float64                `json:"cart_value"`
	ItemCount            int                    `json:"item_count"`
	MissingComplementary []ComplementaryProduct `json:"missing_complementary"`
	Upsells              []UpsellCandidate      `json:"upsells"`
	Bundles              []Bundle               `json:"bundles"`
	OpportunityScore     float64                `json:"opportunity_score"`
}

// DiscountTier maps a minimum bundle size to a fractional discount.
type DiscountTier struct {
	MinItems int     `json:"min_items" mapstructure:"min_items"`
	Discount float64 `json:"discount" mapstructure:"discount"`
}

// Config tunes the analyzer.  All knobs are caller configuration, not
// hard-coded business law.
type Config struct {
	// MaxComplementary caps GetComplementary results when the caller passes
	// a non-positive max_results.
	MaxComplementary int `json:"max_complementary_products" mapstructure:"max_complementary_products"`

	// MaxUpsell caps GetUpsell results the same way.
	MaxUpsell int `json:"max_upsell_products" mapstructure:"max_upsell_products"`

	// UpsellPriceRatio is the minimum candidate/source price ratio.
	UpsellPriceRatio float64 `json:"upsell_price_ratio" mapstructure:"upsell_price_ratio"`

	// BundleTargetSize stops greedy bundle growth.
	BundleTargetSize int `json:"bundle_target_size" mapstructure:"bundle_target_size"`

	// MinDesirability is the floor below which a candidate is not added to a
	// growing bundle.
	MinDesirability float64 `json:"min_desirability" mapstructure:"min_desirability"`

	// DiscountTiers step the bundle discount with size.  Tiers are matched
	// by the highest MinItems not exceeding the bundle size.
	DiscountTiers []DiscountTier `json:"discount_tiers" mapstructure:"discount_tiers"`
}

// DefaultConfig returns the analyzer defaults.
func DefaultConfig() Config {
	return Config{
		MaxComplementary: 10,
		MaxUpsell:        5,
		UpsellPriceRatio: 1.3,
		BundleTargetSize: 5,
		MinDesirability:  0.1,
		DiscountTiers: []DiscountTier{
			{MinItems: 3, Discount: 0.05},
			{MinItems: 5, Discount: 0.10},
		},
	}
}

// Validate rejects configurations the analyzer cannot honor.
func (c Config) Validate() error {
	if c.MaxComplementary <= 0 {
		return errors.Validation(fmt.Sprintf("max_complementary_products must be positive, got %d", c.MaxComplementary))
	}
	if c.MaxUpsell <= 0 {
		return errors.Validation(fmt.Sprintf("max_upsell_products must be positive, got %d", c.MaxUpsell))
	}
	if c.UpsellPriceRatio < 1 {
		return errors.Validation(fmt.Sprintf("upsell_price_ratio must be at least 1, got %g", c.UpsellPriceRatio))
	}
	if c.BundleTargetSize < 2 {
		return errors.Validation(fmt.Sprintf("bundle_target_size must be at least 2, got %d", c.BundleTargetSize))
	}
	if c.MinDesirability < 0 {
		return errors.Validation(fmt.Sprintf("min_desirability must not be negative, got %g", c.MinDesirability))
	}
	for _, tier := range c.DiscountTiers {
		if tier.Discount < 0 || tier.Discount >= 1 {
			return errors.Validation(fmt.Sprintf("discount tier for %d items must be in [0,1), got %g", tier.MinItems, tier.Discount))
		}
		if tier.MinItems < 2 {
			return errors.Validation(fmt.Sprintf("discount tier min_items must be at least 2, got %d", tier.MinItems))
		}
	}
	return nil
}

// discountFor resolves the fractional discount for a bundle of size n.
func (c Config) discountFor(n int) float64 {
	best := 0.0
	bestMin := 0
	for _, tier := range c.DiscountTiers {
		if n >= tier.MinItems && tier.MinItems >= bestMin {
			best = tier.Discount
			bestMin = tier.MinItems
		}
	}
	return best
}
