package recommendation

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/dropsight/dropsight/internal/domain/association"
	"github.com/dropsight/dropsight/internal/domain/product"
	"github.com/dropsight/dropsight/internal/infrastructure/monitoring/logging"
	"github.com/dropsight/dropsight/pkg/errors"
	"github.com/dropsight/dropsight/pkg/types/common"
)

// Analyzer answers the four recommendation queries over a fixed rule set and
// catalog snapshot.  It is read-only after construction and safe for
// concurrent use.
type Analyzer struct {
	rules    []association.Rule
	catalog  product.Catalog
	affinity *AffinityTable
	cfg      Config
	logger   logging.Logger

	// byItem indexes rules by antecedent member for complementary lookups.
	byItem map[string][]association.Rule

	// pairLift holds the strongest observed lift per unordered item pair,
	// feeding bundle desirability.
	pairLift map[string]float64

	// itemSupport holds single-item supports reconstructed from the rules,
	// the popularity fallback when the catalog carries no signal.
	itemSupport map[string]float64
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithConfig overrides the default analyzer configuration.
func WithConfig(cfg Config) Option {
	return func(a *Analyzer) { a.cfg = cfg }
}

// WithAffinityTable overrides the built-in category-affinity table.
func WithAffinityTable(t *AffinityTable) Option {
	return func(a *Analyzer) { a.affinity = t }
}

// WithLogger sets the analyzer logger.
func WithLogger(l logging.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// NewAnalyzer indexes the mined rules against the given catalog.  The rule
// slice is not retained mutably; callers may not modify it afterward.
func NewAnalyzer(rules []association.Rule, catalog product.Catalog, opts ...Option) (*Analyzer, error) {
	a := &Analyzer{
		rules:    rules,
		catalog:  catalog,
		affinity: DefaultAffinityTable(),
		cfg:      DefaultConfig(),
		logger:   logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	a.buildIndexes()
	return a, nil
}

func (a *Analyzer) buildIndexes() {
	a.byItem = make(map[string][]association.Rule)
	a.pairLift = make(map[string]float64)
	a.itemSupport = make(map[string]float64)

	for _, r := range a.rules {
		for _, item := range r.Antecedent {
			a.byItem[item] = append(a.byItem[item], r)
		}
		for _, ant := range r.Antecedent {
			for _, con := range r.Consequent {
				k := pairKey(ant, con)
				if r.Lift > a.pairLift[k] {
					a.pairLift[k] = r.Lift
				}
			}
		}
		if len(r.Antecedent) == 1 && r.Confidence > 0 {
			if s := r.Support / r.Confidence; s > a.itemSupport[r.Antecedent[0]] {
				a.itemSupport[r.Antecedent[0]] = s
			}
		}
		if len(r.Consequent) == 1 && r.Lift > 0 {
			if s := r.Confidence / r.Lift; s > a.itemSupport[r.Consequent[0]] {
				a.itemSupport[r.Consequent[0]] = s
			}
		}
	}
}

// GetComplementary returns complementary products for productID: rule-backed
// matches ranked by descending lift then confidence, followed by
// category-affinity matches, deduplicated by product id and capped at
// maxResults (the configured maximum when maxResults is not positive).
//
// An unknown product id yields an empty list, not an error.
func (a *Analyzer) GetComplementary(ctx context.Context, productID string, maxResults int) ([]ComplementaryProduct, error) {
	if productID == "" {
		return nil, errors.Validation("product id is required")
	}
	if maxResults <= 0 {
		maxResults = a.cfg.MaxComplementary
	}

	out := make([]ComplementaryProduct, 0, maxResults)
	seen := map[string]struct{}{productID: {}}

	ruleMatches := a.byItem[productID]
	sorted := make([]association.Rule, len(ruleMatches))
	copy(sorted, ruleMatches)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Lift != sorted[j].Lift {
			return sorted[i].Lift > sorted[j].Lift
		}
		return sorted[i].Confidence > sorted[j].Confidence
	})
	for _, r := range sorted {
		for _, target := range r.Consequent {
			if _, dup := seen[target]; dup {
				continue
			}
			seen[target] = struct{}{}
			c := ComplementaryProduct{
				ProductID:  target,
				Source:     SourceRules,
				Score:      common.Clamp(r.Confidence, 0, 1),
				Lift:       r.Lift,
				Confidence: r.Confidence,
			}
			a.enrich(ctx, &c)
			out = append(out, c)
		}
	}

	// Affinity fallback fills the remainder when order history is sparse.
	if len(out) < maxResults {
		affine, err := a.affinityMatches(ctx, productID, seen, maxResults-len(out))
		if err != nil {
			return nil, err
		}
		out = append(out, affine...)
	}

	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out, nil
}

// affinityMatches collects up to limit candidates from the affine categories
// of productID's own category, ranked by affinity score weighted with
// popularity.
func (a *Analyzer) affinityMatches(ctx context.Context, productID string, seen map[string]struct{}, limit int) ([]ComplementaryProduct, error) {
	entry, err := a.catalog.Get(ctx, productID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCatalogSource, "catalog lookup failed")
	}
	if entry == nil {
		return []ComplementaryProduct{}, nil
	}

	var matches []ComplementaryProduct
	for _, affine := range a.affinity.Complements(entry.Category) {
		candidates, err := a.catalog.ListByCategory(ctx, affine.Category)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCatalogSource, "catalog category listing failed")
		}
		for _, cand := range candidates {
			if _, dup := seen[cand.ID]; dup {
				continue
			}
			seen[cand.ID] = struct{}{}
			matches = append(matches, ComplementaryProduct{
				ProductID: cand.ID,
				Name:      cand.Name,
				Category:  cand.Category,
				Source:    SourceAffinity,
				Score:     affine.Score * (0.5 + 0.5*a.popularity(cand)),
			})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ProductID < matches[j].ProductID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// GetUpsell returns pricier alternatives from the source product's own or
// affine categories.  A candidate qualifies when its price is at least
// UpsellPriceRatio times the source price; ranking blends popularity with
// how close the candidate stays to that ratio.
//
// An unknown product id yields an empty list, not an error.
func (a *Analyzer) GetUpsell(ctx context.Context, productID string, maxResults int) ([]UpsellCandidate, error) {
	if productID == "" {
		return nil, errors.Validation("product id is required")
	}
	if maxResults <= 0 {
		maxResults = a.cfg.MaxUpsell
	}

	source, err := a.catalog.Get(ctx, productID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCatalogSource, "catalog lookup failed")
	}
	if source == nil || source.Price <= 0 {
		return []UpsellCandidate{}, nil
	}

	categories := []string{normalizeCategory(source.Category)}
	for _, affine := range a.affinity.Complements(source.Category) {
		categories = append(categories, affine.Category)
	}

	var out []UpsellCandidate
	seen := map[string]struct{}{productID: {}}
	floor := source.Price * a.cfg.UpsellPriceRatio
	for _, category := range categories {
		candidates, err := a.catalog.ListByCategory(ctx, category)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCatalogSource, "catalog category listing failed")
		}
		for _, cand := range candidates {
			if _, dup := seen[cand.ID]; dup {
				continue
			}
			if cand.Price < floor {
				continue
			}
			seen[cand.ID] = struct{}{}
			ratio := cand.Price / source.Price
			popularity := a.popularity(cand)
			// Closer to the minimum ratio reads as an easier upgrade.
			priceScore := common.Clamp(a.cfg.UpsellPriceRatio/ratio, 0, 1)
			out = append(out, UpsellCandidate{
				ProductID:  cand.ID,
				Name:       cand.Name,
				Category:   cand.Category,
				Price:      cand.Price,
				PriceRatio: round2(ratio),
				Popularity: popularity,
				Score:      round2(0.6*popularity + 0.4*priceScore),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ProductID < out[j].ProductID
	})
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out, nil
}

// BuildBundles grows candidate bundles from the seed products.  Each bundle
// starts from the seeds plus one top complementary candidate, then greedily
// adds further candidates while the bundle stays under the target size and
// each addition keeps desirability at or above the configured floor.
//
// The bundle price never exceeds the sum of member prices: discounts are
// non-negative fractions below 1.
func (a *Analyzer) BuildBundles(ctx context.Context, seedIDs []string, maxBundles int) ([]Bundle, error) {
	seeds := dedupeIDs(seedIDs)
	if len(seeds) == 0 {
		return nil, errors.New(errors.ErrCodeBundleSeedInvalid, "at least one seed product id is required")
	}
	if maxBundles <= 0 {
		maxBundles = 3
	}

	candidates, err := a.bundleCandidates(ctx, seeds)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []Bundle{}, nil
	}

	bundles := make([]Bundle, 0, maxBundles)
	seenBundles := make(map[string]struct{})
	for i := 0; i < len(candidates) && len(bundles) < maxBundles; i++ {
		members := append(append([]string{}, seeds...), candidates[i].ProductID)
		for _, cand := range candidates {
			if len(members) >= a.cfg.BundleTargetSize {
				break
			}
			if containsID(members, cand.ProductID) {
				continue
			}
			grown := append(append([]string{}, members...), cand.ProductID)
			d, err := a.desirability(ctx, grown)
			if err != nil {
				return nil, err
			}
			if d < a.cfg.MinDesirability {
				break
			}
			members = grown
		}

		key := strings.Join(sortedCopy(members), "\x1f")
		if _, dup := seenBundles[key]; dup {
			continue
		}
		seenBundles[key] = struct{}{}

		b, err := a.priceBundle(ctx, members)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}

	sort.SliceStable(bundles, func(i, j int) bool {
		if bundles[i].Desirability != bundles[j].Desirability {
			return bundles[i].Desirability > bundles[j].Desirability
		}
		return strings.Join(bundles[i].ProductIDs, "\x1f") < strings.Join(bundles[j].ProductIDs, "\x1f")
	})
	return bundles, nil
}

// bundleCandidates aggregates complementary matches across all seeds,
// keeping the best score per target.
func (a *Analyzer) bundleCandidates(ctx context.Context, seeds []string) ([]ComplementaryProduct, error) {
	best := make(map[string]ComplementaryProduct)
	for _, seed := range seeds {
		matches, err := a.GetComplementary(ctx, seed, a.cfg.MaxComplementary)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if containsID(seeds, m.ProductID) {
				continue
			}
			if prev, ok := best[m.ProductID]; !ok || m.Score > prev.Score {
				best[m.ProductID] = m
			}
		}
	}
	out := make([]ComplementaryProduct, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

// desirability blends the average pairwise lift across bundle members with
// price coherence.  Lift saturates at 3; a pair never observed together
// contributes zero.
func (a *Analyzer) desirability(ctx context.Context, members []string) (float64, error) {
	var liftSum float64
	pairs := 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			liftSum += math.Min(a.pairLift[pairKey(members[i], members[j])], 3) / 3
			pairs++
		}
	}
	liftScore := 0.0
	if pairs > 0 {
		liftScore = liftSum / float64(pairs)
	}

	coherence, err := a.priceCoherence(ctx, members)
	if err != nil {
		return 0, err
	}
	return 0.7*liftScore + 0.3*coherence, nil
}

// priceCoherence rewards bundles whose member prices sit close together.
func (a *Analyzer) priceCoherence(ctx context.Context, members []string) (float64, error) {
	prices := make([]float64, 0, len(members))
	for _, id := range members {
		entry, err := a.catalog.Get(ctx, id)
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrCodeCatalogSource, "catalog lookup failed")
		}
		if entry != nil && entry.Price > 0 {
			prices = append(prices, entry.Price)
		}
	}
	if len(prices) < 2 {
		return 0.5, nil
	}
	var sum float64
	for _, p := range prices {
		sum += p
	}
	mean := sum / float64(len(prices))
	var variance float64
	for _, p := range prices {
		variance += (p - mean) * (p - mean)
	}
	stddev := math.Sqrt(variance / float64(len(prices)))
	return 1 - common.Clamp(stddev/mean, 0, 1), nil
}

// priceBundle sums member prices and applies the size-tiered discount.
func (a *Analyzer) priceBundle(ctx context.Context, members []string) (Bundle, error) {
	var original float64
	for _, id := range members {
		entry, err := a.catalog.Get(ctx, id)
		if err != nil {
			return Bundle{}, errors.Wrap(err, errors.ErrCodeCatalogSource, "catalog lookup failed")
		}
		if entry != nil {
			original += entry.Price
		}
	}
	d, err := a.desirability(ctx, members)
	if err != nil {
		return Bundle{}, err
	}
	discount := a.cfg.discountFor(len(members))
	return Bundle{
		ProductIDs:         members,
		OriginalPrice:      round2(original),
		BundlePrice:        round2(original * (1 - discount)),
		DiscountPercentage: round2(discount * 100),
		Desirability:       round2(d),
	}, nil
}

// AnalyzeCart produces the full cart report: value, missing complementary
// products, up-sell candidates, candidate bundles, and an opportunity score
// in [0,100] that rises with the number and strength of missing matches.
//
// An empty cart yields an empty analysis, not an error.
func (a *Analyzer) AnalyzeCart(ctx context.Context, productIDs []string) (CartAnalysis, error) {
	cart := dedupeIDs(productIDs)
	analysis := CartAnalysis{
		MissingComplementary: []ComplementaryProduct{},
		Upsells:              []UpsellCandidate{},
		Bundles:              []Bundle{},
	}
	if len(cart) == 0 {
		return analysis, nil
	}
	analysis.ItemCount = len(cart)

	inCart := make(map[string]struct{}, len(cart))
	for _, id := range cart {
		inCart[id] = struct{}{}
		entry, err := a.catalog.Get(ctx, id)
		if err != nil {
			return CartAnalysis{}, errors.Wrap(err, errors.ErrCodeCatalogSource, "catalog lookup failed")
		}
		if entry != nil {
			analysis.CartValue += entry.Price
		}
	}
	analysis.CartValue = round2(analysis.CartValue)

	bestMissing := make(map[string]ComplementaryProduct)
	for _, id := range cart {
		matches, err := a.GetComplementary(ctx, id, a.cfg.MaxComplementary)
		if err != nil {
			return CartAnalysis{}, err
		}
		for _, m := range matches {
			if _, present := inCart[m.ProductID]; present {
				continue
			}
			if prev, ok := bestMissing[m.ProductID]; !ok || m.Score > prev.Score {
				bestMissing[m.ProductID] = m
			}
		}

		upsells, err := a.GetUpsell(ctx, id, a.cfg.MaxUpsell)
		if err != nil {
			return CartAnalysis{}, err
		}
		for _, u := range upsells {
			if _, present := inCart[u.ProductID]; present {
				continue
			}
			if !containsUpsell(analysis.Upsells, u.ProductID) {
				analysis.Upsells = append(analysis.Upsells, u)
			}
		}
	}

	for _, m := range bestMissing {
		analysis.MissingComplementary = append(analysis.MissingComplementary, m)
	}
	sort.SliceStable(analysis.MissingComplementary, func(i, j int) bool {
		if analysis.MissingComplementary[i].Score != analysis.MissingComplementary[j].Score {
			return analysis.MissingComplementary[i].Score > analysis.MissingComplementary[j].Score
		}
		return analysis.MissingComplementary[i].ProductID < analysis.MissingComplementary[j].ProductID
	})
	sort.SliceStable(analysis.Upsells, func(i, j int) bool {
		if analysis.Upsells[i].Score != analysis.Upsells[j].Score {
			return analysis.Upsells[i].Score > analysis.Upsells[j].Score
		}
		return analysis.Upsells[i].ProductID < analysis.Upsells[j].ProductID
	})
	if len(analysis.Upsells) > a.cfg.MaxUpsell {
		analysis.Upsells = analysis.Upsells[:a.cfg.MaxUpsell]
	}

	bundles, err := a.BuildBundles(ctx, cart, 3)
	if err != nil {
		return CartAnalysis{}, err
	}
	analysis.Bundles = bundles

	var opportunity float64
	for _, m := range analysis.MissingComplementary {
		opportunity += 15 * common.Clamp(m.Score, 0, 1)
	}
	analysis.OpportunityScore = round2(common.Clamp(opportunity, 0, 100))

	a.logger.Debug("cart analyzed",
		logging.Int("items", analysis.ItemCount),
		logging.Int("missing_complementary", len(analysis.MissingComplementary)),
		logging.Float64("opportunity_score", analysis.OpportunityScore),
	)
	return analysis, nil
}

// enrich fills catalog fields onto a rule-backed match when available.
// Catalog errors here are tolerated: the rule match stands on its own.
func (a *Analyzer) enrich(ctx context.Context, c *ComplementaryProduct) {
	entry, err := a.catalog.Get(ctx, c.ProductID)
	if err != nil || entry == nil {
		return
	}
	c.Name = entry.Name
	c.Category = entry.Category
}

// popularity resolves the demand signal for a catalog entry, falling back to
// the corpus-derived item support and finally a neutral 0.5.
func (a *Analyzer) popularity(entry product.CatalogEntry) float64 {
	if entry.Popularity > 0 {
		return common.Clamp(entry.Popularity, 0, 1)
	}
	if s, ok := a.itemSupport[entry.ID]; ok && s > 0 {
		return common.Clamp(s, 0, 1)
	}
	return 0.5
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "\x1f" + b
}

func dedupeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsUpsell(list []UpsellCandidate, id string) bool {
	for _, u := range list {
		if u.ProductID == id {
			return true
		}
	}
	return false
}

func sortedCopy(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
