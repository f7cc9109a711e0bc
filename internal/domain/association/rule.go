// Package association implements Apriori-style frequent-itemset mining over
// co-purchase transactions, producing antecedent→consequent rules with
// support, confidence, and lift.
package association

import (
	"context"
	"sort"
	"strings"
)

// Transaction is one co-purchase basket.  Order and duplicates are
// irrelevant: the miner collapses every basket to a set.
type Transaction struct {
	Items []string `json:"items"`
}

// TransactionSource supplies the mining corpus.  Implementations may read
// from memory, a database, or a stream-backed log; the miner only ever calls
// Transactions once per run.
type TransactionSource interface {
	Transactions(ctx context.Context) ([]Transaction, error)
}

// SliceSource is the trivial in-memory TransactionSource.
type SliceSource []Transaction

// Transactions implements TransactionSource.
func (s SliceSource) Transactions(context.Context) ([]Transaction, error) {
	return s, nil
}

// Rule is one mined association rule.  Antecedent and Consequent are sorted
// lexicographically so identical rules always serialize identically.
type Rule struct {
	Antecedent []string `json:"antecedent"`
	Consequent []string `json:"consequent"`
	Support    float64  `json:"support"`
	Confidence float64  `json:"confidence"`
	Lift       float64  `json:"lift"`
}

// Key returns a canonical identity string for deduplication and map keys.
func (r Rule) Key() string {
	return strings.Join(r.Antecedent, itemSep) + "=>" + strings.Join(r.Consequent, itemSep)
}

// itemSep joins item ids inside itemset keys.  The unit separator cannot
// appear in well-formed product ids.
const itemSep = "\x1f"

// itemsetKey builds the canonical key for a sorted itemset.
func itemsetKey(items []string) string {
	return strings.Join(items, itemSep)
}

// sortRules orders rules for reproducible output: descending lift, then
// descending confidence, then lexicographic antecedent and consequent as the
// stable tie-break.
func sortRules(rules []Rule) {
	sort.Slice(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Lift != b.Lift {
			return a.Lift > b.Lift
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		ak := strings.Join(a.Antecedent, itemSep)
		bk := strings.Join(b.Antecedent, itemSep)
		if ak != bk {
			return ak < bk
		}
		return strings.Join(a.Consequent, itemSep) < strings.Join(b.Consequent, itemSep)
	})
}
