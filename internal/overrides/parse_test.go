package overrides

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func env(amount string, merchant string, day, month int) Env {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		panic(err)
	}
	date := time.Date(2024, time.Month(month), day, 12, 0, 0, 0, time.UTC)
	return NewEnv(d, merchant, date)
}

func TestParseAndEval(t *testing.T) {
	tests := []struct {
		name  string
		query string
		env   Env
		want  bool
	}{
		{
			name:  "merchant equality",
			query: `merchant == "APPLE"`,
			env:   env("28.74", "apple", 9, 3),
			want:  true,
		},
		{
			name:  "merchant equality is case sensitive against the canonical form",
			query: `merchant == "Apple"`,
			env:   env("28.74", "apple", 9, 3),
			want:  false,
		},
		{
			name:  "subscription by day and amount",
			query: `merchant == "APPLE" && day == 9 && amount == 28.74`,
			env:   env("28.74", "APPLE", 9, 3),
			want:  true,
		},
		{
			name:  "subscription misses on wrong day",
			query: `merchant == "APPLE" && day == 9 && amount == 28.74`,
			env:   env("28.74", "APPLE", 10, 3),
			want:  false,
		},
		{
			name:  "amount range",
			query: `amount >= 10 && amount < 20`,
			env:   env("15.00", "X", 1, 1),
			want:  true,
		},
		{
			name:  "or with parentheses",
			query: `(merchant == "NETFLIX.COM" || merchant == "NETFLIX") && amount == 9.99`,
			env:   env("9.99", "Netflix", 3, 7),
			want:  true,
		},
		{
			name:  "negation",
			query: `!(merchant == "APPLE")`,
			env:   env("1.00", "GOOGLE", 1, 1),
			want:  true,
		},
		{
			name:  "membership",
			query: `merchant in ["UBER", "UBER EATS", "LYFT"]`,
			env:   env("22.50", "Uber Eats", 4, 5),
			want:  true,
		},
		{
			name:  "membership miss",
			query: `merchant in ["UBER", "LYFT"]`,
			env:   env("22.50", "TAXI CO", 4, 5),
			want:  false,
		},
		{
			name:  "day membership",
			query: `day in [1, 15]`,
			env:   env("5.00", "X", 15, 2),
			want:  true,
		},
		{
			name:  "month comparison",
			query: `month >= 11 || month <= 2`,
			env:   env("5.00", "X", 10, 12),
			want:  true,
		},
		{
			name:  "inequality",
			query: `merchant != "APPLE"`,
			env:   env("5.00", "GOOGLE", 1, 1),
			want:  true,
		},
		{
			name:  "number compared to string never matches",
			query: `amount == "28.74"`,
			env:   env("28.74", "APPLE", 9, 3),
			want:  false,
		},
		{
			name:  "number to string inequality holds",
			query: `amount != "28.74"`,
			env:   env("28.74", "APPLE", 9, 3),
			want:  true,
		},
		{
			name:  "and binds tighter than or",
			query: `merchant == "A" || merchant == "B" && amount == 1`,
			env:   env("2.00", "A", 1, 1),
			want:  true,
		},
		{
			name:  "single quoted literal",
			query: `merchant == 'TIM HORTONS #1234'`,
			env:   env("2.10", "Tim Hortons #1234", 1, 1),
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.query, err)
			}
			if got := expr.Eval(tt.env); got != tt.want {
				t.Errorf("Eval(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	queries := []string{
		``,
		`merchant`,
		`merchant =`,
		`merchant = "APPLE"`,
		`balance == 10`,
		`merchant == "APPLE" &&`,
		`merchant == "APPLE" & day == 9`,
		`(merchant == "APPLE"`,
		`merchant in ["A", "B"`,
		`merchant in []`,
		`merchant == "unterminated`,
		`amount == 1.2.3 extra`,
		`merchant == "APPLE" garbage`,
	}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			if _, err := Parse(q); err == nil {
				t.Errorf("Parse(%q) expected error, got nil", q)
			}
		})
	}
}

func TestMerchantLiterals(t *testing.T) {
	rules := []Rule{
		{ID: "1", Expr: mustParse(t, `merchant == "APPLE" && day == 9`)},
		{ID: "2", Expr: mustParse(t, `"NETFLIX.COM" == merchant`)},
		{ID: "3", Expr: mustParse(t, `merchant in ["UBER", "UBER EATS"]`)},
		{ID: "4", Expr: mustParse(t, `amount > 100`)},
		{ID: "5", Expr: mustParse(t, `merchant != "COSTCO"`)}, // inequality is not a literal
		{ID: "6", Expr: mustParse(t, `merchant == "APPLE"`)},  // duplicate
	}

	got := MerchantLiterals(rules)
	want := []string{"APPLE", "NETFLIX.COM", "UBER", "UBER EATS"}
	if len(got) != len(want) {
		t.Fatalf("MerchantLiterals() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("MerchantLiterals()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
