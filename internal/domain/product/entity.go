// Package product defines the immutable product record consumed by the
// scoring and recommendation engines, together with the optional data-source
// contracts callers may supply alongside it.  The engine never persists these
// records; they are per-call snapshots owned by the caller.
package product

import (
	"fmt"

	"github.com/dropsight/dropsight/pkg/errors"
	"github.com/dropsight/dropsight/pkg/types/common"
)

// Record is a snapshot of a dropshipping product candidate at scoring time.
// All fields besides ID and Price are optional; criterion scorers degrade
// gracefully when attributes are absent.
type Record struct {
	ID           common.ID  `json:"id"`
	Name         string     `json:"name"`
	Niche        string     `json:"niche"`
	Price        float64    `json:"price"`
	SupplierCost float64    `json:"supplier_cost"`
	Features     []string   `json:"features,omitempty"`
	Attributes   Attributes `json:"attributes"`
}

// Attributes carries the optional raw signals a caller may know about a
// product.  Every field is a pointer (or nilable Level) so that "missing" is
// unambiguous: a nil field was never supplied, a zero value was measured as
// zero.  This replaces the loose missing-key map access of earlier systems
// with explicit per-attribute fallback rules.
type Attributes struct {
	// SearchVolume is the qualitative monthly search volume for the product's
	// primary keyword.
	SearchVolume *common.Level `json:"search_volume,omitempty"`

	// SearchGrowthRate is the year-over-year fractional growth of search
	// interest (0.25 = +25%).
	SearchGrowthRate *float64 `json:"search_growth_rate,omitempty"`

	// MarketSize is the qualitative addressable-market estimate.
	MarketSize *common.Level `json:"market_size,omitempty"`

	// CompetitorCount is the number of stores actively selling this product.
	CompetitorCount *int `json:"competitor_count,omitempty"`

	// PriceCompetition is the observed intensity of price undercutting.
	PriceCompetition *common.Level `json:"price_competition,omitempty"`

	// BarriersToEntry is the difficulty for new sellers to enter.
	BarriersToEntry *common.Level `json:"barriers_to_entry,omitempty"`

	// PriceStability is the historical stability of the retail price.
	PriceStability *common.Level `json:"price_stability,omitempty"`

	// UpsellHeadroom is the room for attaching higher-priced companions.
	UpsellHeadroom *common.Level `json:"upsell_headroom,omitempty"`

	// ShippingComplexity is the fulfilment difficulty (size, fragility,
	// customs exposure).
	ShippingComplexity *common.Level `json:"shipping_complexity,omitempty"`

	// ReturnRate is the anticipated fraction of orders returned, in [0,1].
	ReturnRate *float64 `json:"return_rate,omitempty"`

	// SupplierReliability is the supplier's fulfilment track record, in [0,1].
	SupplierReliability *float64 `json:"supplier_reliability,omitempty"`

	// TrendConsistency is the sustained-interest measure over the trailing
	// year, in [0,1]; 1 means steady demand without collapse.
	TrendConsistency *float64 `json:"trend_consistency,omitempty"`

	// SeasonalityIndex is the share of demand concentrated in a seasonal
	// spike, in [0,1]; 1 means purely seasonal.
	SeasonalityIndex *float64 `json:"seasonality_index,omitempty"`

	// SocialMentions is the trailing-month count of social-media mentions.
	SocialMentions *int `json:"social_mentions,omitempty"`
}

// Validate reports whether the record is structurally usable for scoring.
// Missing optional attributes are fine; a missing id or non-positive price is
// a hard validation failure (spec: the engine only raises for structurally
// invalid input).
func (r Record) Validate() error {
	if r.ID == "" {
		return errors.Validation("product id is required")
	}
	if r.Price <= 0 {
		return errors.Validation("product price must be positive").
			WithDetail(fmt.Sprintf("id=%s price=%.2f", r.ID, r.Price))
	}
	if r.SupplierCost < 0 {
		return errors.Validation("supplier cost cannot be negative").
			WithDetail(fmt.Sprintf("id=%s supplier_cost=%.2f", r.ID, r.SupplierCost))
	}
	if rr := r.Attributes.ReturnRate; rr != nil && (*rr < 0 || *rr > 1) {
		return errors.Validation("return_rate must be in [0,1]").
			WithDetail(fmt.Sprintf("id=%s return_rate=%.3f", r.ID, *rr))
	}
	return nil
}

// GrossMargin returns the fractional gross margin (price minus supplier cost
// over price).  The second return is false when the supplier cost was not
// supplied, which callers must treat as missing data rather than a 100%
// margin.
func (r Record) GrossMargin() (float64, bool) {
	if r.SupplierCost <= 0 || r.Price <= 0 {
		return 0, false
	}
	m := (r.Price - r.SupplierCost) / r.Price
	if m < 0 {
		m = 0
	}
	return m, true
}

// Float returns a pointer to v; a convenience for building Attributes literals.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// LevelOf returns a pointer to the given qualitative level.
func LevelOf(l common.Level) *common.Level { return &l }
