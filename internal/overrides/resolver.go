package overrides

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NewEnv builds the evaluation environment for one invocation. The
// merchant is upper-cased so rule authors can write literals in one
// canonical form; day and month come from the alert date in the
// configured time zone.
func NewEnv(amount decimal.Decimal, merchant string, date time.Time) Env {
	return Env{
		Amount:   amount,
		Merchant: strings.ToUpper(merchant),
		Day:      date.Day(),
		Month:    int(date.Month()),
	}
}

// Resolve evaluates rules in recency order and returns the first whose
// query matches the environment. Recency governs among matching rules
// only; a newer non-matching rule never shadows an older match.
//
// Ordering is (UpdatedAt desc, ID desc) — a total order, so resolution
// stays deterministic even when two rules share a timestamp. Rules with
// a nil Expr (failed to compile at load time) are skipped.
func Resolve(rules []Rule, env Env) (*Rule, bool) {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].UpdatedAt.Equal(sorted[j].UpdatedAt) {
			return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})

	for i := range sorted {
		if sorted[i].Expr == nil {
			continue
		}
		if sorted[i].Expr.Eval(env) {
			return &sorted[i], true
		}
	}
	return nil, false
}
