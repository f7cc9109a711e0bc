package association

import (
	"context"
	"fmt"
	"sort"

	"github.com/dropsight/dropsight/pkg/errors"
)

// Thresholds are the minimum support, confidence, and lift a rule must clear
// to be retained.
type Thresholds struct {
	MinSupport    float64 `json:"min_support" mapstructure:"min_support"`
	MinConfidence float64 `json:"min_confidence" mapstructure:"min_confidence"`
	MinLift       float64 `json:"min_lift" mapstructure:"min_lift"`
}

// DefaultThresholds returns the conventional starting point for sparse
// dropshipping order history.
func DefaultThresholds() Thresholds {
	return Thresholds{MinSupport: 0.02, MinConfidence: 0.3, MinLift: 1.0}
}

// Validate rejects threshold configurations the algorithm cannot honor.
// Support and confidence are probabilities; a non-positive support would make
// every itemset frequent and the level-wise join explode.
func (t Thresholds) Validate() error {
	if t.MinSupport <= 0 || t.MinSupport > 1 {
		return errors.New(errors.ErrCodeMiningThresholds,
			fmt.Sprintf("min_support must be in (0,1], got %g", t.MinSupport))
	}
	if t.MinConfidence < 0 || t.MinConfidence > 1 {
		return errors.New(errors.ErrCodeMiningThresholds,
			fmt.Sprintf("min_confidence must be in [0,1], got %g", t.MinConfidence))
	}
	if t.MinLift <= 0 {
		return errors.New(errors.ErrCodeMiningThresholds,
			fmt.Sprintf("min_lift must be positive, got %g", t.MinLift))
	}
	return nil
}

// Mine runs classic level-wise Apriori over the transaction corpus and
// returns every antecedent→consequent split of a frequent itemset (size ≥2)
// that clears all three thresholds.
//
// Determinism: for a fixed corpus and fixed thresholds the returned rules are
// identical across runs, ordered by descending lift with descending
// confidence and lexicographic antecedent/consequent tie-breaks.
//
// An empty corpus yields an empty rule list, not an error.
func Mine(transactions []Transaction, t Thresholds) ([]Rule, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if len(transactions) == 0 {
		return []Rule{}, nil
	}

	// Collapse each basket to a set; wholly empty baskets still count toward
	// the corpus size (a day with an empty order log is still a day).
	baskets := make([]map[string]struct{}, 0, len(transactions))
	for _, tx := range transactions {
		set := make(map[string]struct{}, len(tx.Items))
		for _, item := range tx.Items {
			if item != "" {
				set[item] = struct{}{}
			}
		}
		baskets = append(baskets, set)
	}
	n := float64(len(baskets))

	// Level 1: frequent single items.
	counts := make(map[string]int)
	for _, basket := range baskets {
		for item := range basket {
			counts[item]++
		}
	}
	support := make(map[string]float64) // itemset key → support
	var frequent [][]string
	for item, c := range counts {
		if s := float64(c) / n; s >= t.MinSupport {
			support[item] = s
			frequent = append(frequent, []string{item})
		}
	}
	sortItemsets(frequent)
	allFrequent := append([][]string{}, frequent...)

	// Level-wise expansion: join k-1 itemsets sharing a k-2 prefix, prune by
	// the anti-monotone property, then count survivors against the corpus.
	for k := 2; len(frequent) > 0; k++ {
		candidates := generateCandidates(frequent, support)
		if len(candidates) == 0 {
			break
		}

		frequent = frequent[:0]
		for _, cand := range candidates {
			c := 0
			for _, basket := range baskets {
				if containsAll(basket, cand) {
					c++
				}
			}
			if s := float64(c) / n; s >= t.MinSupport {
				support[itemsetKey(cand)] = s
				frequent = append(frequent, cand)
			}
		}
		sortItemsets(frequent)
		allFrequent = append(allFrequent, frequent...)
	}

	// Rule generation: every antecedent/consequent split of each frequent
	// itemset of size ≥2.
	rules := make([]Rule, 0)
	for _, itemset := range allFrequent {
		if len(itemset) < 2 {
			continue
		}
		itemSupport := support[itemsetKey(itemset)]
		for _, split := range splits(itemset) {
			antSupport, ok := support[itemsetKey(split.antecedent)]
			if !ok || antSupport == 0 {
				continue
			}
			conSupport, ok := support[itemsetKey(split.consequent)]
			if !ok || conSupport == 0 {
				continue
			}
			confidence := itemSupport / antSupport
			lift := confidence / conSupport
			if confidence >= t.MinConfidence && lift >= t.MinLift {
				rules = append(rules, Rule{
					Antecedent: split.antecedent,
					Consequent: split.consequent,
					Support:    itemSupport,
					Confidence: confidence,
					Lift:       lift,
				})
			}
		}
	}

	sortRules(rules)
	return rules, nil
}

// MineSource reads the corpus from src and mines it.
func MineSource(ctx context.Context, src TransactionSource, t Thresholds) ([]Rule, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	transactions, err := src.Transactions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCorpusSource, "failed to read transaction corpus")
	}
	return Mine(transactions, t)
}

// generateCandidates joins sorted k-1 itemsets that share their first k-2
// items, then prunes any candidate with an infrequent k-1 subset.
func generateCandidates(frequent [][]string, support map[string]float64) [][]string {
	var candidates [][]string
	for i := 0; i < len(frequent); i++ {
		for j := i + 1; j < len(frequent); j++ {
			a, b := frequent[i], frequent[j]
			if !samePrefix(a, b) {
				continue
			}
			joined := make([]string, len(a), len(a)+1)
			copy(joined, a)
			joined = append(joined, b[len(b)-1])
			sort.Strings(joined)
			if hasInfrequentSubset(joined, support) {
				continue
			}
			candidates = append(candidates, joined)
		}
	}
	return dedupeItemsets(candidates)
}

// samePrefix reports whether two equal-length sorted itemsets agree on all
// but their last element.
func samePrefix(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a)-1; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return a[len(a)-1] != b[len(b)-1]
}

// hasInfrequentSubset applies the anti-monotone prune: if any k-1 subset of
// the candidate is not frequent, the candidate cannot be frequent either.
func hasInfrequentSubset(candidate []string, support map[string]float64) bool {
	sub := make([]string, 0, len(candidate)-1)
	for skip := range candidate {
		sub = sub[:0]
		for i, item := range candidate {
			if i != skip {
				sub = append(sub, item)
			}
		}
		if _, ok := support[itemsetKey(sub)]; !ok {
			return true
		}
	}
	return false
}

func dedupeItemsets(itemsets [][]string) [][]string {
	seen := make(map[string]struct{}, len(itemsets))
	out := itemsets[:0]
	for _, set := range itemsets {
		k := itemsetKey(set)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, set)
	}
	return out
}

func containsAll(basket map[string]struct{}, items []string) bool {
	for _, item := range items {
		if _, ok := basket[item]; !ok {
			return false
		}
	}
	return true
}

func sortItemsets(itemsets [][]string) {
	sort.Slice(itemsets, func(i, j int) bool {
		return itemsetKey(itemsets[i]) < itemsetKey(itemsets[j])
	})
}

// split is one antecedent/consequent partition of an itemset.
type split struct {
	antecedent []string
	consequent []string
}

// splits enumerates every non-empty proper subset of itemset as antecedent,
// with the complement as consequent, via a bitmask walk.  Input is sorted, so
// the parts stay sorted too.
func splits(itemset []string) []split {
	n := len(itemset)
	out := make([]split, 0, (1<<n)-2)
	for mask := 1; mask < (1<<n)-1; mask++ {
		var ant, con []string
		for i, item := range itemset {
			if mask&(1<<i) != 0 {
				ant = append(ant, item)
			} else {
				con = append(con, item)
			}
		}
		out = append(out, split{antecedent: ant, consequent: con})
	}
	return out
}
