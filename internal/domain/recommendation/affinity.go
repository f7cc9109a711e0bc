// Package recommendation answers complementary-product, up-sell, bundle, and
// cart-analysis queries over mined association rules, falling back to a
// static category-affinity table when order history is sparse.
package recommendation

import (
	"sort"
	"strings"
)

// AffinityEntry names a category considered a natural complement of another,
// with a fixed strength in (0,1].
type AffinityEntry struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// AffinityTable maps a category to its complement categories.  The table is
// static lookup data loaded once at construction and never mutated.
type AffinityTable struct {
	entries map[string][]AffinityEntry
}

// builtinAffinities is the seed table.  Categories mirror the niche registry
// plus the accessory categories a dropshipping catalog typically carries.
var builtinAffinities = map[string][]AffinityEntry{
	"electronics": {
		{Category: "accessories", Score: 0.9},
		{Category: "home-office", Score: 0.6},
	},
	"fashion": {
		{Category: "accessories", Score: 0.85},
		{Category: "beauty", Score: 0.55},
	},
	"home-decor": {
		{Category: "kitchen", Score: 0.7},
		{Category: "home-office", Score: 0.5},
	},
	"beauty": {
		{Category: "accessories", Score: 0.6},
		{Category: "fashion", Score: 0.5},
	},
	"fitness": {
		{Category: "accessories", Score: 0.8},
		{Category: "outdoors", Score: 0.65},
	},
	"pets": {
		{Category: "home-decor", Score: 0.45},
	},
	"toys": {
		{Category: "accessories", Score: 0.5},
	},
	"kitchen": {
		{Category: "home-decor", Score: 0.7},
	},
	"outdoors": {
		{Category: "fitness", Score: 0.65},
		{Category: "accessories", Score: 0.55},
	},
	"accessories": {
		{Category: "electronics", Score: 0.5},
		{Category: "fashion", Score: 0.5},
	},
}

// DefaultAffinityTable returns the built-in table.
func DefaultAffinityTable() *AffinityTable {
	return NewAffinityTable(builtinAffinities)
}

// NewAffinityTable builds a table from the given mapping.  Keys and entry
// categories are normalized to lower case; entries for each category are
// ordered by descending score with a lexicographic tie-break so that
// fallback rankings are reproducible.
func NewAffinityTable(m map[string][]AffinityEntry) *AffinityTable {
	t := &AffinityTable{entries: make(map[string][]AffinityEntry, len(m))}
	for category, list := range m {
		normalized := make([]AffinityEntry, 0, len(list))
		for _, e := range list {
			if e.Category == "" || e.Score <= 0 {
				continue
			}
			normalized = append(normalized, AffinityEntry{
				Category: normalizeCategory(e.Category),
				Score:    e.Score,
			})
		}
		sort.SliceStable(normalized, func(i, j int) bool {
			if normalized[i].Score != normalized[j].Score {
				return normalized[i].Score > normalized[j].Score
			}
			return normalized[i].Category < normalized[j].Category
		})
		t.entries[normalizeCategory(category)] = normalized
	}
	return t
}

// Complements returns the complement categories of category, strongest first.
// Unknown categories yield an empty slice.
func (t *AffinityTable) Complements(category string) []AffinityEntry {
	entries := t.entries[normalizeCategory(category)]
	out := make([]AffinityEntry, len(entries))
	copy(out, entries)
	return out
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
