package overrides

import (
	"time"
)

// Rule is one user-authored override: a declarative condition over an
// extracted fact mapped to a fixed payee/category/memo outcome. Rules
// are persisted externally and read-only from the pipeline's view.
type Rule struct {
	ID           string
	PayeeID      string
	CategoryID   string
	MemoTemplate string

	// Query is the stored source text; Expr is its compiled form.
	Query string
	Expr  Expr

	UpdatedAt time.Time
}

// MerchantLiterals returns the merchant strings a rule set compares
// against with equality or membership. They are fed to the extraction
// prompt so the model normalizes merchants to the exact spelling the
// rules expect.
func MerchantLiterals(rules []Rule) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, r := range rules {
		collectMerchantLiterals(r.Expr, add)
	}
	return out
}

func collectMerchantLiterals(e Expr, add func(string)) {
	switch n := e.(type) {
	case andExpr:
		collectMerchantLiterals(n.left, add)
		collectMerchantLiterals(n.right, add)
	case orExpr:
		collectMerchantLiterals(n.left, add)
		collectMerchantLiterals(n.right, add)
	case notExpr:
		collectMerchantLiterals(n.x, add)
	case compareExpr:
		if n.op != opEQ {
			return
		}
		if n.left.kind == operandField && n.left.name == fieldMerchant && n.right.kind == operandString {
			add(n.right.str)
		}
		if n.right.kind == operandField && n.right.name == fieldMerchant && n.left.kind == operandString {
			add(n.left.str)
		}
	case memberExpr:
		if n.needle.kind == operandField && n.needle.name == fieldMerchant {
			for _, o := range n.set {
				if o.kind == operandString {
					add(o.str)
				}
			}
		}
	}
}
