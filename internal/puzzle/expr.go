package puzzle

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Tolerance is the absolute tolerance used when comparing a result with the
// target, absorbing rounding from division and exponent chains.
const Tolerance = 1e-9

// Operator is a binary operator of the candidate grammar.
type Operator byte

const (
	OpAdd Operator = '+'
	OpSub Operator = '-'
	OpMul Operator = '*'
	OpDiv Operator = '/'
	OpPow Operator = '^'
)

// Operators lists every operator the search and the grammar know about.
var Operators = []Operator{OpAdd, OpSub, OpMul, OpDiv, OpPow}

// String renders the operator the way players see it.
func (o Operator) String() string {
	switch o {
	case OpMul:
		return "×"
	case OpDiv:
		return "÷"
	default:
		return string(rune(o))
	}
}

func (o Operator) precedence() int {
	switch o {
	case OpAdd, OpSub:
		return 1
	case OpMul, OpDiv:
		return 2
	default:
		return 3
	}
}

// Apply combines two operands. Division by zero and non-finite results are
// reported as *ArithmeticError.
func (o Operator) Apply(a, b float64) (float64, error) {
	var v float64
	switch o {
	case OpAdd:
		v = a + b
	case OpSub:
		v = a - b
	case OpMul:
		v = a * b
	case OpDiv:
		if b == 0 {
			return 0, &ArithmeticError{Op: o.String(), Msg: "division by zero"}
		}
		v = a / b
	case OpPow:
		v = math.Pow(a, b)
	default:
		return 0, &ArithmeticError{Op: string(rune(o)), Msg: "unknown operator"}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ArithmeticError{Op: o.String(), Msg: "non-finite result"}
	}
	return v, nil
}

// Node is an expression tree node.
type Node interface {
	Eval() (float64, error)
	String() string
	precedence() int
}

// Number is a literal formed by one or more adjacent digits.
type Number struct {
	Text string
}

// Eval returns the literal value.
func (n *Number) Eval() (float64, error) {
	return strconv.ParseFloat(n.Text, 64)
}

func (n *Number) String() string { return n.Text }

func (n *Number) precedence() int { return 4 }

// Binary applies Op to Left and Right.
type Binary struct {
	Op          Operator
	Left, Right Node
}

// Eval evaluates both operands and applies the operator.
func (b *Binary) Eval() (float64, error) {
	l, err := b.Left.Eval()
	if err != nil {
		return 0, err
	}
	r, err := b.Right.Eval()
	if err != nil {
		return 0, err
	}
	return b.Op.Apply(l, r)
}

// String renders the node with the minimum parentheses that keep the tree
// shape under the grammar's precedence and associativity rules.
func (b *Binary) String() string {
	p := b.Op.precedence()
	left := b.Left.String()
	if lp := b.Left.precedence(); lp < p || (b.Op == OpPow && lp == p) {
		left = "(" + left + ")"
	}
	right := b.Right.String()
	if rp := b.Right.precedence(); rp < p || (b.Op != OpPow && rp == p) {
		right = "(" + right + ")"
	}
	return left + b.Op.String() + right
}

func (b *Binary) precedence() int { return b.Op.precedence() }

// Normalize applies NFKC normalization so full-width digits and operators
// become their ASCII forms.
func Normalize(input string) string {
	return norm.NFKC.String(input)
}

// Parse normalizes and parses a candidate expression.
func Parse(input string) (Node, error) {
	return parseNormalized(Normalize(input))
}

// Evaluate parses and evaluates a candidate expression.
func Evaluate(input string) (float64, error) {
	n, err := Parse(input)
	if err != nil {
		return 0, err
	}
	return n.Eval()
}

// Matches reports whether v equals target within Tolerance.
func Matches(v float64, target int) bool {
	return math.Abs(v-float64(target)) <= Tolerance
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	op   Operator
	pos  int
}

func (t token) describe() string {
	switch t.kind {
	case tokNumber:
		return fmt.Sprintf("number %s", t.text)
	case tokOp:
		return fmt.Sprintf("operator '%s'", t.op)
	case tokLParen:
		return "'('"
	default:
		return "')'"
	}
}

func tokenize(s string) ([]token, error) {
	var tokens []token
	var digits strings.Builder
	start := 0

	flush := func() {
		if digits.Len() > 0 {
			tokens = append(tokens, token{kind: tokNumber, text: digits.String(), pos: start})
			digits.Reset()
		}
	}

	for i, r := range s {
		if r >= '0' && r <= '9' {
			if digits.Len() == 0 {
				start = i
			}
			digits.WriteRune(r)
			continue
		}
		flush()

		switch {
		case unicode.IsSpace(r):
		case r == '(':
			tokens = append(tokens, token{kind: tokLParen, pos: i})
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen, pos: i})
		case r == '+':
			tokens = append(tokens, token{kind: tokOp, op: OpAdd, pos: i})
		case r == '-' || r == '−':
			tokens = append(tokens, token{kind: tokOp, op: OpSub, pos: i})
		case r == '*' || r == '×':
			tokens = append(tokens, token{kind: tokOp, op: OpMul, pos: i})
		case r == '/' || r == '÷':
			tokens = append(tokens, token{kind: tokOp, op: OpDiv, pos: i})
		case r == '^':
			tokens = append(tokens, token{kind: tokOp, op: OpPow, pos: i})
		default:
			return nil, &ParseError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", r)}
		}
	}
	flush()
	return tokens, nil
}

type parser struct {
	tokens []token
	pos    int
	end    int
}

func parseNormalized(s string) (Node, error) {
	tokens, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, &ParseError{Pos: 0, Msg: "empty expression"}
	}

	p := &parser{tokens: tokens, end: len(s)}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t, ok := p.peek(); ok {
		if t.kind == tokRParen {
			return nil, &ParseError{Pos: t.pos, Msg: "unmatched ')'"}
		}
		return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("missing operator before %s", t.describe())}
	}
	return n, nil
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) peekOp(ops ...Operator) (Operator, bool) {
	t, ok := p.peek()
	if !ok || t.kind != tokOp {
		return 0, false
	}
	for _, op := range ops {
		if t.op == op {
			return op, true
		}
	}
	return 0, false
}

func (p *parser) expr() (Node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.peekOp(OpAdd, OpSub)
		if !ok {
			return left, nil
		}
		p.pos++
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) term() (Node, error) {
	left, err := p.power()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.peekOp(OpMul, OpDiv)
		if !ok {
			return left, nil
		}
		p.pos++
		right, err := p.power()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

// power is right-associative: 2^3^2 is 2^(3^2).
func (p *parser) power() (Node, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if _, ok := p.peekOp(OpPow); !ok {
		return base, nil
	}
	p.pos++
	exp, err := p.power()
	if err != nil {
		return nil, err
	}
	return &Binary{Op: OpPow, Left: base, Right: exp}, nil
}

func (p *parser) primary() (Node, error) {
	t, ok := p.peek()
	if !ok {
		return nil, &ParseError{Pos: p.end, Msg: "unexpected end of expression"}
	}
	switch t.kind {
	case tokNumber:
		p.pos++
		return &Number{Text: t.text}, nil
	case tokLParen:
		p.pos++
		if next, ok := p.peek(); ok && next.kind == tokRParen {
			return nil, &ParseError{Pos: next.pos, Msg: "empty parentheses"}
		}
		inner, err := p.expr()
		if err != nil {
			return nil, err
		}
		closing, ok := p.peek()
		if !ok || closing.kind != tokRParen {
			return nil, &ParseError{Pos: t.pos, Msg: "unmatched '('"}
		}
		p.pos++
		return inner, nil
	case tokRParen:
		return nil, &ParseError{Pos: t.pos, Msg: "unexpected ')'"}
	default:
		return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %s", t.describe())}
	}
}
