package product

import (
	"context"
	"fmt"
)

// TrendSnapshot is the result of an external trend lookup for a keyword.
type TrendSnapshot struct {
	// Consistency is sustained interest over the trailing year, in [0,1].
	Consistency float64

	// SeasonalitySpike is the share of demand concentrated seasonally, [0,1].
	SeasonalitySpike float64

	// GrowthRate is year-over-year fractional growth of interest.
	GrowthRate float64
}

// MarketSnapshot is the result of an external marketplace competitor lookup.
type MarketSnapshot struct {
	// CompetitorCount is the number of active listings found.
	CompetitorCount int

	// AveragePrice is the mean listed price across competitors.
	AveragePrice float64

	// PricePressure is the intensity of undercutting, in [0,1].
	PricePressure float64
}

// TrendLookup resolves trend data for a keyword.  Implementations may call
// external services; the engine only ever invokes them through SafeTrend.
type TrendLookup func(ctx context.Context, keyword string) (*TrendSnapshot, error)

// MarketLookup resolves marketplace competition data for a product name.
type MarketLookup func(ctx context.Context, productName string) (*MarketSnapshot, error)

// CatalogEntry is the catalog view of a product used by the recommendation
// analyzer: enough to rank up-sell and bundle candidates without owning the
// full record.
type CatalogEntry struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`

	// Popularity is a relative demand signal in [0,1]; 0 means unknown.
	Popularity float64 `json:"popularity"`
}

// Catalog is the read-only product lookup contract supplied by the caller.
// Implementations must return (nil, nil) for unknown ids rather than an
// error, so that recommendation queries on cold data degrade to empty
// results instead of failing the page.
type Catalog interface {
	// Get returns the catalog entry for id, or nil when unknown.
	Get(ctx context.Context, id string) (*CatalogEntry, error)

	// ListByCategory returns all entries in the given category.
	ListByCategory(ctx context.Context, category string) ([]CatalogEntry, error)
}

// DataSourceBundle aggregates the optional external lookups a caller may
// provide at scoring time.  Any field may be nil; scorers fall back to the
// attributes present directly on the Record.
type DataSourceBundle struct {
	Trend  TrendLookup
	Market MarketLookup
}

// SafeTrend invokes the bundle's trend lookup, converting absent callables,
// errors, and panics into a plain (nil, false) miss.  A failed lookup is
// DataUnavailable by taxonomy: recovered locally, reflected only in lowered
// confidence, never raised.
func (b DataSourceBundle) SafeTrend(ctx context.Context, keyword string) (snap *TrendSnapshot, ok bool) {
	if b.Trend == nil || keyword == "" {
		return nil, false
	}
	defer func() {
		if recover() != nil {
			snap, ok = nil, false
		}
	}()
	s, err := b.Trend(ctx, keyword)
	if err != nil || s == nil {
		return nil, false
	}
	return s, true
}

// SafeMarket invokes the bundle's market lookup with the same recovery
// semantics as SafeTrend.
func (b DataSourceBundle) SafeMarket(ctx context.Context, productName string) (snap *MarketSnapshot, ok bool) {
	if b.Market == nil || productName == "" {
		return nil, false
	}
	defer func() {
		if recover() != nil {
			snap, ok = nil, false
		}
	}()
	s, err := b.Market(ctx, productName)
	if err != nil || s == nil {
		return nil, false
	}
	return s, true
}

// StaticCatalog is an in-memory Catalog for tests, CLI runs, and callers that
// supply the full candidate set per call.
type StaticCatalog struct {
	byID       map[string]CatalogEntry
	byCategory map[string][]CatalogEntry
	order      []string
}

// NewStaticCatalog indexes the given entries.  Duplicate ids keep the last
// entry, matching last-writer-wins cache semantics elsewhere in the engine.
func NewStaticCatalog(entries []CatalogEntry) *StaticCatalog {
	c := &StaticCatalog{
		byID:       make(map[string]CatalogEntry, len(entries)),
		byCategory: make(map[string][]CatalogEntry),
	}
	for _, e := range entries {
		if _, seen := c.byID[e.ID]; !seen {
			c.order = append(c.order, e.ID)
		}
		c.byID[e.ID] = e
	}
	for _, id := range c.order {
		e := c.byID[id]
		c.byCategory[e.Category] = append(c.byCategory[e.Category], e)
	}
	return c
}

// Get implements Catalog.
func (c *StaticCatalog) Get(_ context.Context, id string) (*CatalogEntry, error) {
	e, ok := c.byID[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// ListByCategory implements Catalog.  Entries are returned in insertion
// order, which keeps downstream rankings reproducible.
func (c *StaticCatalog) ListByCategory(_ context.Context, category string) ([]CatalogEntry, error) {
	entries := c.byCategory[category]
	out := make([]CatalogEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// Len returns the number of distinct entries.
func (c *StaticCatalog) Len() int { return len(c.order) }

// String implements fmt.Stringer for debug logging.
func (c *StaticCatalog) String() string {
	return fmt.Sprintf("StaticCatalog(%d entries)", len(c.order))
}
