package overrides

import (
	"github.com/shopspring/decimal"
)

// Env is the typed environment a rule query is evaluated against. It is
// derived from one extracted fact plus the alert date; queries can only
// ever see these four fields.
type Env struct {
	Amount   decimal.Decimal
	Merchant string // upper-cased by NewEnv
	Day      int
	Month    int
}

// Expr is one node of a rule's query expression tree. Evaluation is
// total: it always terminates and never executes anything beyond field
// lookups and comparisons.
type Expr interface {
	Eval(env Env) bool
}

type andExpr struct {
	left, right Expr
}

func (e andExpr) Eval(env Env) bool { return e.left.Eval(env) && e.right.Eval(env) }

type orExpr struct {
	left, right Expr
}

func (e orExpr) Eval(env Env) bool { return e.left.Eval(env) || e.right.Eval(env) }

type notExpr struct {
	x Expr
}

func (e notExpr) Eval(env Env) bool { return !e.x.Eval(env) }

type compareOp int

const (
	opEQ compareOp = iota
	opNE
	opLT
	opLE
	opGT
	opGE
)

type compareExpr struct {
	op          compareOp
	left, right operand
}

func (e compareExpr) Eval(env Env) bool {
	l := e.left.resolve(env)
	r := e.right.resolve(env)

	if l.isNum != r.isNum {
		// Comparing a number with a string never matches; inequality is
		// the one comparison that holds across the type boundary.
		return e.op == opNE
	}

	var cmp int
	if l.isNum {
		cmp = l.num.Cmp(r.num)
	} else {
		switch {
		case l.str < r.str:
			cmp = -1
		case l.str > r.str:
			cmp = 1
		}
	}

	switch e.op {
	case opEQ:
		return cmp == 0
	case opNE:
		return cmp != 0
	case opLT:
		return cmp < 0
	case opLE:
		return cmp <= 0
	case opGT:
		return cmp > 0
	default:
		return cmp >= 0
	}
}

// memberExpr implements "needle in [a, b, c]".
type memberExpr struct {
	needle operand
	set    []operand
}

func (e memberExpr) Eval(env Env) bool {
	for _, o := range e.set {
		if (compareExpr{op: opEQ, left: e.needle, right: o}).Eval(env) {
			return true
		}
	}
	return false
}

type operandKind int

const (
	operandField operandKind = iota
	operandNumber
	operandString
)

// operand is a leaf: a field reference or a literal.
type operand struct {
	kind operandKind
	name string
	num  decimal.Decimal
	str  string
}

type value struct {
	isNum bool
	num   decimal.Decimal
	str   string
}

func (o operand) resolve(env Env) value {
	switch o.kind {
	case operandNumber:
		return value{isNum: true, num: o.num}
	case operandString:
		return value{str: o.str}
	}
	// Field names are validated at parse time, so the default arm is
	// unreachable for rules loaded through Parse.
	switch o.name {
	case fieldAmount:
		return value{isNum: true, num: env.Amount}
	case fieldDay:
		return value{isNum: true, num: decimal.NewFromInt(int64(env.Day))}
	case fieldMonth:
		return value{isNum: true, num: decimal.NewFromInt(int64(env.Month))}
	default:
		return value{str: env.Merchant}
	}
}

const (
	fieldAmount   = "amount"
	fieldMerchant = "merchant"
	fieldDay      = "day"
	fieldMonth    = "month"
)
