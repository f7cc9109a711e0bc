package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dropsight/dropsight/pkg/errors"
)

// weightSumTolerance is the floating-point slack allowed when checking that a
// profile's weights sum to 1.
const weightSumTolerance = 1e-6

// WeightProfile maps the five scoring categories to their relative importance
// for one niche.  Weights are positive and sum to 1.0.
type WeightProfile struct {
	Niche   string               `json:"niche"`
	Weights map[Category]float64 `json:"weights"`
}

// Validate enforces the profile invariant: a weight for every category, each
// positive, summing to 1 within floating-point tolerance.  A violated
// invariant is a computation error, not a validation error: profiles are
// engine configuration, never caller input.
func (p WeightProfile) Validate() error {
	sum := 0.0
	for _, c := range AllCategories() {
		w, ok := p.Weights[c]
		if !ok {
			return errors.New(errors.ErrCodeWeightsInvalid,
				fmt.Sprintf("profile %q missing weight for %s", p.Niche, c))
		}
		if w <= 0 {
			return errors.New(errors.ErrCodeWeightsInvalid,
				fmt.Sprintf("profile %q has non-positive weight for %s", p.Niche, c))
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return errors.New(errors.ErrCodeWeightsInvalid,
			fmt.Sprintf("profile %q weights sum to %.6f, want 1.0", p.Niche, sum))
	}
	return nil
}

// DefaultProfile returns the equal-weight profile applied to unmapped niches.
func DefaultProfile() WeightProfile {
	return WeightProfile{
		Niche: "default",
		Weights: map[Category]float64{
			CategoryMarketPotential: 0.20,
			CategoryCompetition:     0.20,
			CategoryProfitability:   0.20,
			CategoryOperationalFit:  0.20,
			CategoryTrendStability:  0.20,
		},
	}
}

// builtinProfiles is the fixed niche registry.  Static lookup data, loaded
// once and never mutated (overrides produce a new registry).
func builtinProfiles() map[string]WeightProfile {
	return map[string]WeightProfile{
		"fashion": {Niche: "fashion", Weights: map[Category]float64{
			CategoryMarketPotential: 0.25,
			CategoryCompetition:     0.15,
			CategoryProfitability:   0.20,
			CategoryOperationalFit:  0.15,
			CategoryTrendStability:  0.25,
		}},
		"electronics": {Niche: "electronics", Weights: map[Category]float64{
			CategoryMarketPotential: 0.30,
			CategoryCompetition:     0.25,
			CategoryProfitability:   0.20,
			CategoryOperationalFit:  0.15,
			CategoryTrendStability:  0.10,
		}},
		"home-decor": {Niche: "home-decor", Weights: map[Category]float64{
			CategoryMarketPotential: 0.20,
			CategoryCompetition:     0.20,
			CategoryProfitability:   0.25,
			CategoryOperationalFit:  0.20,
			CategoryTrendStability:  0.15,
		}},
		"beauty": {Niche: "beauty", Weights: map[Category]float64{
			CategoryMarketPotential: 0.25,
			CategoryCompetition:     0.20,
			CategoryProfitability:   0.25,
			CategoryOperationalFit:  0.10,
			CategoryTrendStability:  0.20,
		}},
		"fitness": {Niche: "fitness", Weights: map[Category]float64{
			CategoryMarketPotential: 0.25,
			CategoryCompetition:     0.20,
			CategoryProfitability:   0.20,
			CategoryOperationalFit:  0.15,
			CategoryTrendStability:  0.20,
		}},
		"pets": {Niche: "pets", Weights: map[Category]float64{
			CategoryMarketPotential: 0.25,
			CategoryCompetition:     0.15,
			CategoryProfitability:   0.25,
			CategoryOperationalFit:  0.20,
			CategoryTrendStability:  0.15,
		}},
		"toys": {Niche: "toys", Weights: map[Category]float64{
			CategoryMarketPotential: 0.20,
			CategoryCompetition:     0.15,
			CategoryProfitability:   0.20,
			CategoryOperationalFit:  0.15,
			CategoryTrendStability:  0.30,
		}},
	}
}

// ProfileRegistry resolves niche names to weight profiles.  It is immutable
// after construction and therefore safe for concurrent readers without
// locking.
type ProfileRegistry struct {
	profiles map[string]WeightProfile
	fallback WeightProfile
}

// NewProfileRegistry builds a registry from the built-in niche table with the
// given overrides applied on top.  Override keys are niche names
// (case-insensitive); an override may introduce a new niche or replace a
// built-in profile wholesale.  Every resulting profile is validated so a
// misconfigured override fails at startup rather than mid-request.
func NewProfileRegistry(overrides map[string]map[Category]float64) (*ProfileRegistry, error) {
	profiles := builtinProfiles()
	for niche, weights := range overrides {
		key := normalizeNiche(niche)
		w := make(map[Category]float64, len(weights))
		for c, v := range weights {
			w[c] = v
		}
		profiles[key] = WeightProfile{Niche: key, Weights: w}
	}

	fallback := DefaultProfile()
	if err := fallback.Validate(); err != nil {
		return nil, err
	}
	// Deterministic validation order for reproducible startup errors.
	keys := make([]string, 0, len(profiles))
	for k := range profiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := profiles[k].Validate(); err != nil {
			return nil, err
		}
	}

	return &ProfileRegistry{profiles: profiles, fallback: fallback}, nil
}

// MustNewProfileRegistry is NewProfileRegistry for the built-in table only,
// panicking on error.  The built-in table is validated by tests, so a panic
// here indicates a programming error.
func MustNewProfileRegistry() *ProfileRegistry {
	r, err := NewProfileRegistry(nil)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the weight profile for the given niche, falling back to the
// default profile for unknown or empty niches.  It never fails: "always
// returns a profile" is the contract.
func (r *ProfileRegistry) Resolve(niche string) WeightProfile {
	if p, ok := r.profiles[normalizeNiche(niche)]; ok {
		return p
	}
	return r.fallback
}

// Niches returns the sorted list of registered niche names.
func (r *ProfileRegistry) Niches() []string {
	out := make([]string, 0, len(r.profiles))
	for k := range r.profiles {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalizeNiche(niche string) string {
	return strings.ToLower(strings.TrimSpace(niche))
}
