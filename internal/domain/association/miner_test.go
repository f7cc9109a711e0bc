package association

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/dropsight/dropsight/pkg/errors"
)

func tx(items ...string) Transaction {
	return Transaction{Items: items}
}

func findRule(rules []Rule, key string) *Rule {
	for i := range rules {
		if rules[i].Key() == key {
			return &rules[i]
		}
	}
	return nil
}

func TestMineTrivialCorpus(t *testing.T) {
	// The canonical two-basket corpus: {A,B} and {A,B,C}.
	rules, err := Mine([]Transaction{tx("A", "B"), tx("A", "B", "C")},
		Thresholds{MinSupport: 0.5, MinConfidence: 0.5, MinLift: 1.0})
	require.NoError(t, err)

	r := findRule(rules, "A=>B")
	require.NotNil(t, r, "rule {A}→{B} must be present")
	assert.InDelta(t, 1.0, r.Support, 1e-9)
	assert.InDelta(t, 1.0, r.Confidence, 1e-9)
	assert.InDelta(t, 1.0, r.Lift, 1e-9)
}

func TestMineEmptyCorpus(t *testing.T) {
	rules, err := Mine(nil, DefaultThresholds())
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestMineInvalidThresholds(t *testing.T) {
	cases := []Thresholds{
		{MinSupport: 0, MinConfidence: 0.5, MinLift: 1},
		{MinSupport: -0.1, MinConfidence: 0.5, MinLift: 1},
		{MinSupport: 1.5, MinConfidence: 0.5, MinLift: 1},
		{MinSupport: 0.1, MinConfidence: -0.2, MinLift: 1},
		{MinSupport: 0.1, MinConfidence: 1.2, MinLift: 1},
		{MinSupport: 0.1, MinConfidence: 0.5, MinLift: 0},
	}
	for i, th := range cases {
		_, err := Mine([]Transaction{tx("A")}, th)
		require.Error(t, err, "case %d", i)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMiningThresholds), "case %d", i)
	}
}

func TestMineDuplicateItemsCollapse(t *testing.T) {
	// A basket listing the same product twice counts it once.
	rules, err := Mine([]Transaction{
		tx("A", "A", "B"),
		tx("A", "B", "B"),
	}, Thresholds{MinSupport: 0.5, MinConfidence: 0.5, MinLift: 0.5})
	require.NoError(t, err)

	r := findRule(rules, "A=>B")
	require.NotNil(t, r)
	assert.InDelta(t, 1.0, r.Support, 1e-9)
}

func TestMineSupportThresholdPrunes(t *testing.T) {
	transactions := []Transaction{
		tx("A", "B"),
		tx("A", "B"),
		tx("A", "C"),
		tx("D"),
	}
	rules, err := Mine(transactions, Thresholds{MinSupport: 0.5, MinConfidence: 0.1, MinLift: 0.1})
	require.NoError(t, err)

	// {A,B} has support 0.5 and survives; {A,C} at 0.25 does not.
	assert.NotNil(t, findRule(rules, "A=>B"))
	assert.Nil(t, findRule(rules, "A=>C"))
	assert.Nil(t, findRule(rules, "C=>A"))
}

func TestMineConfidenceAsymmetry(t *testing.T) {
	// B always implies A, but A implies B only half the time.
	transactions := []Transaction{
		tx("A", "B"),
		tx("A", "B"),
		tx("A"),
		tx("A"),
	}
	rules, err := Mine(transactions, Thresholds{MinSupport: 0.25, MinConfidence: 0.9, MinLift: 0.5})
	require.NoError(t, err)

	assert.NotNil(t, findRule(rules, "B=>A"))
	assert.Nil(t, findRule(rules, "A=>B"))
}

func TestMineLiftFiltersIndependentItems(t *testing.T) {
	// A and B co-occur exactly as often as independence predicts within this
	// corpus shape; lift of A→B is below the 1.2 bar.
	transactions := []Transaction{
		tx("A", "B"),
		tx("A"),
		tx("B"),
		tx("A", "B"),
		tx("A"),
		tx("B"),
	}
	rules, err := Mine(transactions, Thresholds{MinSupport: 0.1, MinConfidence: 0.1, MinLift: 1.2})
	require.NoError(t, err)
	assert.Nil(t, findRule(rules, "A=>B"))
}

func TestMineThreeItemsetRules(t *testing.T) {
	transactions := []Transaction{
		tx("A", "B", "C"),
		tx("A", "B", "C"),
		tx("A", "B", "C"),
		tx("D"),
	}
	rules, err := Mine(transactions, Thresholds{MinSupport: 0.5, MinConfidence: 0.5, MinLift: 1.0})
	require.NoError(t, err)

	// Multi-item antecedents must appear.
	r := findRule(rules, "A\x1fB=>C")
	require.NotNil(t, r)
	assert.InDelta(t, 0.75, r.Support, 1e-9)
	assert.InDelta(t, 1.0, r.Confidence, 1e-9)

	// And single-antecedent splits of the same itemset.
	assert.NotNil(t, findRule(rules, "A=>B\x1fC"))
}

func TestMineIdempotent(t *testing.T) {
	transactions := []Transaction{
		tx("A", "B"),
		tx("B", "C", "A"),
		tx("C", "A"),
		tx("B", "D"),
		tx("A", "B", "D"),
	}
	th := Thresholds{MinSupport: 0.2, MinConfidence: 0.3, MinLift: 0.8}

	first, err := Mine(transactions, th)
	require.NoError(t, err)
	second, err := Mine(transactions, th)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMineOrderingStable(t *testing.T) {
	transactions := []Transaction{
		tx("A", "B"),
		tx("A", "B"),
		tx("C", "D"),
		tx("C", "D"),
	}
	rules, err := Mine(transactions, Thresholds{MinSupport: 0.4, MinConfidence: 0.5, MinLift: 1.0})
	require.NoError(t, err)
	require.NotEmpty(t, rules)

	// Equal lift and confidence everywhere: order falls back to
	// lexicographic antecedent then consequent.
	for i := 1; i < len(rules); i++ {
		prev, cur := rules[i-1], rules[i]
		if prev.Lift == cur.Lift && prev.Confidence == cur.Confidence {
			assert.LessOrEqual(t, itemsetKey(prev.Antecedent), itemsetKey(cur.Antecedent))
		}
	}
}

func TestMineSource(t *testing.T) {
	src := SliceSource{tx("A", "B"), tx("A", "B", "C")}
	rules, err := MineSource(context.Background(), src, Thresholds{MinSupport: 0.5, MinConfidence: 0.5, MinLift: 1.0})
	require.NoError(t, err)
	assert.NotNil(t, findRule(rules, "A=>B"))
}

func TestSplitsEnumeration(t *testing.T) {
	out := splits([]string{"A", "B", "C"})
	// 2^3 - 2 = 6 non-trivial partitions.
	assert.Len(t, out, 6)
}

func TestRuleBoundsInvariant(t *testing.T) {
	transactions := []Transaction{
		tx("A", "B", "C"),
		tx("A", "B"),
		tx("B", "C"),
		tx("A", "C"),
		tx("A"),
	}
	rules, err := Mine(transactions, Thresholds{MinSupport: 0.1, MinConfidence: 0.1, MinLift: 0.1})
	require.NoError(t, err)
	for _, r := range rules {
		assert.GreaterOrEqual(t, r.Support, 0.0)
		assert.LessOrEqual(t, r.Support, 1.0)
		assert.GreaterOrEqual(t, r.Confidence, 0.0)
		assert.LessOrEqual(t, r.Confidence, 1.0)
		assert.Greater(t, r.Lift, 0.0)
	}
}
