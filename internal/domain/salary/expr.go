package salary

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// maxExpressionDepth bounds parenthesis and unary nesting.
const maxExpressionDepth = 64

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenNumber
	tokenOperator
	tokenOpenParen
	tokenCloseParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// Evaluate computes an arithmetic expression made of decimal literals,
// the operators + - * /, unary minus and parentheses. The income placeholder
// must already be substituted.
func Evaluate(expression string) (decimal.Decimal, error) {
	tokens, err := tokenize(expression)
	if err != nil {
		return decimal.Zero, err
	}
	p := &exprParser{tokens: tokens}
	value, err := p.parseSum(0)
	if err != nil {
		return decimal.Zero, err
	}
	if next := p.peek(); next.kind != tokenEOF {
		return decimal.Zero, fmt.Errorf("%w: unexpected %q at offset %d", ErrExpressionSyntax, next.text, next.pos)
	}
	return value, nil
}

// EvaluateFor substitutes taxable income into the expression and evaluates it.
func EvaluateFor(expression string, taxableIncome decimal.Decimal) (decimal.Decimal, error) {
	return Evaluate(strings.ReplaceAll(expression, IncomePlaceholder, taxableIncome.String()))
}

func tokenize(expression string) ([]token, error) {
	tokens := make([]token, 0, len(expression)/2+1)
	for i := 0; i < len(expression); {
		ch := expression[i]
		switch {
		case ch == ' ' || ch == '\t':
			i++
		case ch == '+' || ch == '-' || ch == '*' || ch == '/':
			tokens = append(tokens, token{kind: tokenOperator, text: string(ch), pos: i})
			i++
		case ch == '(':
			tokens = append(tokens, token{kind: tokenOpenParen, text: "(", pos: i})
			i++
		case ch == ')':
			tokens = append(tokens, token{kind: tokenCloseParen, text: ")", pos: i})
			i++
		case isDigit(ch) || ch == '.':
			start := i
			dots := 0
			for i < len(expression) && (isDigit(expression[i]) || expression[i] == '.') {
				if expression[i] == '.' {
					dots++
				}
				i++
			}
			literal := expression[start:i]
			if dots > 1 || literal == "." {
				return nil, fmt.Errorf("%w: bad number %q at offset %d", ErrExpressionSyntax, literal, start)
			}
			tokens = append(tokens, token{kind: tokenNumber, text: literal, pos: start})
		default:
			return nil, fmt.Errorf("%w: unexpected character %q at offset %d", ErrExpressionSyntax, ch, i)
		}
	}
	tokens = append(tokens, token{kind: tokenEOF, pos: len(expression)})
	return tokens, nil
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

type exprParser struct {
	tokens []token
	pos    int
}

func (p *exprParser) peek() token {
	return p.tokens[p.pos]
}

func (p *exprParser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *exprParser) parseSum(depth int) (decimal.Decimal, error) {
	left, err := p.parseProduct(depth)
	if err != nil {
		return decimal.Zero, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokenOperator || (tok.text != "+" && tok.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.parseProduct(depth)
		if err != nil {
			return decimal.Zero, err
		}
		if tok.text == "+" {
			left = left.Add(right)
		} else {
			left = left.Sub(right)
		}
	}
}

func (p *exprParser) parseProduct(depth int) (decimal.Decimal, error) {
	left, err := p.parseUnary(depth)
	if err != nil {
		return decimal.Zero, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokenOperator || (tok.text != "*" && tok.text != "/") {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary(depth)
		if err != nil {
			return decimal.Zero, err
		}
		if tok.text == "*" {
			left = left.Mul(right)
			continue
		}
		if right.IsZero() {
			return decimal.Zero, fmt.Errorf("%w at offset %d", ErrDivisionByZero, tok.pos)
		}
		left = left.DivRound(right, divisionPrecision)
	}
}

func (p *exprParser) parseUnary(depth int) (decimal.Decimal, error) {
	if depth > maxExpressionDepth {
		return decimal.Zero, fmt.Errorf("%w: nested too deeply", ErrExpressionSyntax)
	}
	tok := p.peek()
	if tok.kind == tokenOperator && (tok.text == "-" || tok.text == "+") {
		p.next()
		operand, err := p.parseUnary(depth + 1)
		if err != nil {
			return decimal.Zero, err
		}
		if tok.text == "-" {
			return operand.Neg(), nil
		}
		return operand, nil
	}
	return p.parsePrimary(depth)
}

func (p *exprParser) parsePrimary(depth int) (decimal.Decimal, error) {
	tok := p.next()
	switch tok.kind {
	case tokenNumber:
		value, err := decimal.NewFromString(tok.text)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: bad number %q at offset %d", ErrExpressionSyntax, tok.text, tok.pos)
		}
		return value, nil
	case tokenOpenParen:
		value, err := p.parseSum(depth + 1)
		if err != nil {
			return decimal.Zero, err
		}
		closing := p.next()
		if closing.kind != tokenCloseParen {
			return decimal.Zero, fmt.Errorf("%w: missing ')' at offset %d", ErrExpressionSyntax, closing.pos)
		}
		return value, nil
	case tokenEOF:
		return decimal.Zero, fmt.Errorf("%w: unexpected end of expression", ErrExpressionSyntax)
	}
	return decimal.Zero, fmt.Errorf("%w: unexpected %q at offset %d", ErrExpressionSyntax, tok.text, tok.pos)
}
