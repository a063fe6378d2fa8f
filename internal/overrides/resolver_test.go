package overrides

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func mustParse(t *testing.T, q string) Expr {
	t.Helper()
	e, err := Parse(q)
	if err != nil {
		t.Fatalf("Parse(%q): %v", q, err)
	}
	return e
}

func TestResolveFirstMatchByRecency(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rules := []Rule{
		{
			ID:        "old-match",
			PayeeID:   "payee-old",
			Query:     `merchant == "APPLE"`,
			UpdatedAt: base,
		},
		{
			ID:        "new-match",
			PayeeID:   "payee-new",
			Query:     `merchant == "APPLE" && amount == 28.74`,
			UpdatedAt: base.Add(24 * time.Hour),
		},
	}
	for i := range rules {
		rules[i].Expr = mustParse(t, rules[i].Query)
	}

	e := NewEnv(decimal.RequireFromString("28.74"), "Apple", time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC))
	rule, ok := Resolve(rules, e)
	if !ok {
		t.Fatal("Resolve() expected a match")
	}
	if rule.PayeeID != "payee-new" {
		t.Errorf("Resolve() picked %q, want the more recently updated match", rule.ID)
	}
}

func TestResolveOlderMatchBeatsNewerNonMatch(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rules := []Rule{
		{
			ID:        "newer-nonmatch",
			PayeeID:   "payee-a",
			Query:     `merchant == "NETFLIX.COM"`,
			UpdatedAt: base.Add(48 * time.Hour),
		},
		{
			ID:        "older-match",
			PayeeID:   "payee-b",
			Query:     `merchant == "APPLE"`,
			UpdatedAt: base,
		},
	}
	for i := range rules {
		rules[i].Expr = mustParse(t, rules[i].Query)
	}

	e := NewEnv(decimal.RequireFromString("5.00"), "APPLE", time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC))
	rule, ok := Resolve(rules, e)
	if !ok {
		t.Fatal("Resolve() expected a match")
	}
	if rule.ID != "older-match" {
		t.Errorf("Resolve() picked %q; recency must govern among matches only", rule.ID)
	}
}

func TestResolveTieBreakOnEqualTimestamps(t *testing.T) {
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rules := []Rule{
		{ID: "a", PayeeID: "payee-a", Query: `merchant == "APPLE"`, UpdatedAt: ts},
		{ID: "b", PayeeID: "payee-b", Query: `merchant == "APPLE"`, UpdatedAt: ts},
	}
	for i := range rules {
		rules[i].Expr = mustParse(t, rules[i].Query)
	}

	e := NewEnv(decimal.RequireFromString("5.00"), "APPLE", ts)

	// Deterministic regardless of input order.
	for trial := 0; trial < 2; trial++ {
		rule, ok := Resolve(rules, e)
		if !ok {
			t.Fatal("Resolve() expected a match")
		}
		if rule.ID != "b" {
			t.Errorf("Resolve() picked %q, want %q (higher rule id wins ties)", rule.ID, "b")
		}
		rules[0], rules[1] = rules[1], rules[0]
	}
}

func TestResolveNoMatch(t *testing.T) {
	rules := []Rule{
		{ID: "1", Query: `merchant == "APPLE"`, UpdatedAt: time.Now()},
	}
	rules[0].Expr = mustParse(t, rules[0].Query)

	e := NewEnv(decimal.RequireFromString("42.17"), "EXAMPLE STORE", time.Now())
	if _, ok := Resolve(rules, e); ok {
		t.Error("Resolve() expected no match")
	}
}

func TestResolveSkipsUncompiledRules(t *testing.T) {
	rules := []Rule{
		{ID: "broken", UpdatedAt: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)}, // nil Expr
		{
			ID:        "good",
			PayeeID:   "payee-good",
			Query:     `merchant == "APPLE"`,
			UpdatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	rules[1].Expr = mustParse(t, rules[1].Query)

	e := NewEnv(decimal.RequireFromString("5.00"), "APPLE", time.Now())
	rule, ok := Resolve(rules, e)
	if !ok || rule.ID != "good" {
		t.Errorf("Resolve() = %v, %v; want the compiled rule", rule, ok)
	}
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rules := []Rule{
		{ID: "1", Query: `merchant == "A"`, UpdatedAt: base},
		{ID: "2", Query: `merchant == "B"`, UpdatedAt: base.Add(time.Hour)},
	}
	for i := range rules {
		rules[i].Expr = mustParse(t, rules[i].Query)
	}

	Resolve(rules, NewEnv(decimal.Zero, "C", base))

	if rules[0].ID != "1" || rules[1].ID != "2" {
		t.Error("Resolve() must not reorder the caller's slice")
	}
}
