package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinProfilesAllValid(t *testing.T) {
	for niche, p := range builtinProfiles() {
		assert.NoError(t, p.Validate(), niche)
	}
	assert.NoError(t, DefaultProfile().Validate())
}

func TestResolveKnownNicheCaseInsensitive(t *testing.T) {
	r := MustNewProfileRegistry()

	for _, niche := range []string{"electronics", "Electronics", "  ELECTRONICS "} {
		p := r.Resolve(niche)
		assert.Equal(t, "electronics", p.Niche, niche)
		assert.Equal(t, 0.30, p.Weights[CategoryMarketPotential])
	}
}

func TestResolveUnknownNicheFallsBack(t *testing.T) {
	r := MustNewProfileRegistry()

	for _, niche := range []string{"", "underwater-basketry", "garden"} {
		p := r.Resolve(niche)
		assert.Equal(t, "default", p.Niche, niche)
		for _, c := range AllCategories() {
			assert.Equal(t, 0.20, p.Weights[c])
		}
	}
}

func TestOverridesReplaceAndExtend(t *testing.T) {
	r, err := NewProfileRegistry(map[string]map[Category]float64{
		"Electronics": {
			CategoryMarketPotential: 0.40,
			CategoryCompetition:     0.20,
			CategoryProfitability:   0.20,
			CategoryOperationalFit:  0.10,
			CategoryTrendStability:  0.10,
		},
		"garden": {
			CategoryMarketPotential: 0.20,
			CategoryCompetition:     0.20,
			CategoryProfitability:   0.20,
			CategoryOperationalFit:  0.20,
			CategoryTrendStability:  0.20,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 0.40, r.Resolve("electronics").Weights[CategoryMarketPotential])
	assert.Equal(t, "garden", r.Resolve("garden").Niche)
}

func TestInvalidOverrideRejectedAtConstruction(t *testing.T) {
	_, err := NewProfileRegistry(map[string]map[Category]float64{
		"broken": {
			CategoryMarketPotential: 0.9,
			CategoryCompetition:     0.9,
			CategoryProfitability:   0.1,
			CategoryOperationalFit:  0.1,
			CategoryTrendStability:  0.1,
		},
	})
	require.Error(t, err)
}

func TestValidateMissingCategory(t *testing.T) {
	p := WeightProfile{Niche: "partial", Weights: map[Category]float64{
		CategoryMarketPotential: 1.0,
	}}
	assert.Error(t, p.Validate())
}

func TestValidateFloatTolerance(t *testing.T) {
	p := WeightProfile{Niche: "tol", Weights: map[Category]float64{
		CategoryMarketPotential: 0.2,
		CategoryCompetition:     0.2,
		CategoryProfitability:   0.2,
		CategoryOperationalFit:  0.2,
		CategoryTrendStability:  0.2000000001,
	}}
	assert.NoError(t, p.Validate())
}

func TestNichesSorted(t *testing.T) {
	r := MustNewProfileRegistry()
	niches := r.Niches()
	require.NotEmpty(t, niches)
	for i := 1; i < len(niches); i++ {
		assert.Less(t, niches[i-1], niches[i])
	}
}
