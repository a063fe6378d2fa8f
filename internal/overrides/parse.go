package overrides

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Parse compiles a declarative rule query into an expression tree.
//
// Grammar (precedence low to high):
//
//	expr    = and ("||" and)*
//	and     = unary ("&&" unary)*
//	unary   = "!" unary | "(" expr ")" | compare
//	compare = operand op operand | operand "in" "[" operand ("," operand)* "]"
//	operand = field | number | quoted string
//
// Fields are amount, merchant, day and month; anything else is a parse
// error so that evaluation never has to deal with unknown names.
func Parse(query string) (Expr, error) {
	toks, err := lex(query)
	if err != nil {
		return nil, fmt.Errorf("overrides: parse %q: %w", query, err)
	}

	p := &parser{toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("overrides: parse %q: %w", query, err)
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("overrides: parse %q: unexpected %q", query, p.peek().text)
	}
	return expr, nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokAnd
	tokOr
	tokNot
	tokEQ
	tokNE
	tokLT
	tokLE
	tokGT
	tokGE
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
)

type token struct {
	kind tokenKind
	text string
}

func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == '[':
			toks = append(toks, token{tokLBracket, "["})
			i++
		case c == ']':
			toks = append(toks, token{tokRBracket, "]"})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, ","})
			i++
		case c == '&':
			if i+1 >= len(input) || input[i+1] != '&' {
				return nil, fmt.Errorf("expected && at offset %d", i)
			}
			toks = append(toks, token{tokAnd, "&&"})
			i += 2
		case c == '|':
			if i+1 >= len(input) || input[i+1] != '|' {
				return nil, fmt.Errorf("expected || at offset %d", i)
			}
			toks = append(toks, token{tokOr, "||"})
			i += 2
		case c == '=':
			if i+1 >= len(input) || input[i+1] != '=' {
				return nil, fmt.Errorf("expected == at offset %d", i)
			}
			toks = append(toks, token{tokEQ, "=="})
			i += 2
		case c == '!':
			if i+1 < len(input) && input[i+1] == '=' {
				toks = append(toks, token{tokNE, "!="})
				i += 2
			} else {
				toks = append(toks, token{tokNot, "!"})
				i++
			}
		case c == '<':
			if i+1 < len(input) && input[i+1] == '=' {
				toks = append(toks, token{tokLE, "<="})
				i += 2
			} else {
				toks = append(toks, token{tokLT, "<"})
				i++
			}
		case c == '>':
			if i+1 < len(input) && input[i+1] == '=' {
				toks = append(toks, token{tokGE, ">="})
				i += 2
			} else {
				toks = append(toks, token{tokGT, ">"})
				i++
			}
		case c == '"' || c == '\'':
			str, next, err := lexString(input, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{tokString, str})
			i = next
		case c >= '0' && c <= '9':
			j := i
			for j < len(input) && (input[j] >= '0' && input[j] <= '9' || input[j] == '.') {
				j++
			}
			toks = append(toks, token{tokNumber, input[i:j]})
			i = j
		case isIdentRune(rune(c)):
			j := i
			for j < len(input) && isIdentRune(rune(input[j])) {
				j++
			}
			toks = append(toks, token{tokIdent, input[i:j]})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", c, i)
		}
	}
	toks = append(toks, token{tokEOF, ""})
	return toks, nil
}

func lexString(input string, start int) (string, int, error) {
	quote := input[start]
	var b strings.Builder
	i := start + 1
	for i < len(input) {
		c := input[i]
		switch c {
		case quote:
			return b.String(), i + 1, nil
		case '\\':
			if i+1 >= len(input) {
				return "", 0, fmt.Errorf("unterminated escape at offset %d", i)
			}
			b.WriteByte(input[i+1])
			i += 2
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", 0, fmt.Errorf("unterminated string at offset %d", start)
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	switch p.peek().kind {
	case tokNot:
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notExpr{x: x}, nil
	case tokLParen:
		p.next()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("expected ), got %q", p.peek().text)
		}
		p.next()
		return expr, nil
	default:
		return p.parseCompare()
	}
}

func (p *parser) parseCompare() (Expr, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	t := p.peek()
	if t.kind == tokIdent && t.text == "in" {
		p.next()
		return p.parseMembership(left)
	}

	var op compareOp
	switch t.kind {
	case tokEQ:
		op = opEQ
	case tokNE:
		op = opNE
	case tokLT:
		op = opLT
	case tokLE:
		op = opLE
	case tokGT:
		op = opGT
	case tokGE:
		op = opGE
	default:
		return nil, fmt.Errorf("expected comparison operator, got %q", t.text)
	}
	p.next()

	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return compareExpr{op: op, left: left, right: right}, nil
}

func (p *parser) parseMembership(needle operand) (Expr, error) {
	if p.peek().kind != tokLBracket {
		return nil, fmt.Errorf("expected [ after in, got %q", p.peek().text)
	}
	p.next()

	var set []operand
	for {
		o, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		set = append(set, o)

		switch p.peek().kind {
		case tokComma:
			p.next()
		case tokRBracket:
			p.next()
			return memberExpr{needle: needle, set: set}, nil
		default:
			return nil, fmt.Errorf("expected , or ] in list, got %q", p.peek().text)
		}
	}
}

func (p *parser) parseOperand() (operand, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		d, err := decimal.NewFromString(t.text)
		if err != nil {
			return operand{}, fmt.Errorf("invalid number %q", t.text)
		}
		return operand{kind: operandNumber, num: d}, nil
	case tokString:
		return operand{kind: operandString, str: t.text}, nil
	case tokIdent:
		name := strings.ToLower(t.text)
		switch name {
		case fieldAmount, fieldMerchant, fieldDay, fieldMonth:
			return operand{kind: operandField, name: name}, nil
		}
		return operand{}, fmt.Errorf("unknown field %q", t.text)
	default:
		return operand{}, fmt.Errorf("expected operand, got %q", t.text)
	}
}
