package marker

import (
	"strings"
	"unicode"
)

// Parse parses marker text into an expression tree.
// It returns a *MalformedMarkerError on any syntax violation.
func Parse(input string) (Expr, error) {
	p := &parser{input: input}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, p.errorf("unexpected trailing input")
	}
	return expr, nil
}

// MustParse parses a marker or panics. Use only for constants/tests.
func MustParse(input string) Expr {
	expr, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return expr
}

// parser is a recursive-descent parser over the marker grammar:
//
//	or     := and ("or" and)*
//	and    := unary ("and" unary)*
//	unary  := "not" unary | "(" or ")" | comparison
//	compar := value op value
//	value  := variable | quoted-string
type parser struct {
	input string
	pos   int
}

func (p *parser) errorf(reason string) error {
	return &MalformedMarkerError{Input: p.input, Position: p.pos, Reason: reason}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

// peekWord returns the identifier starting at the cursor without consuming it.
func (p *parser) peekWord() string {
	p.skipSpace()
	end := p.pos
	for end < len(p.input) && (isIdentRune(rune(p.input[end]))) {
		end++
	}
	return p.input[p.pos:end]
}

func (p *parser) consumeWord(word string) bool {
	if p.peekWord() == word {
		p.pos += len(word)
		return true
	}
	return false
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.'
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.consumeWord("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.consumeWord("and") {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	p.skipSpace()

	if p.consumeWord("not") {
		// "not in" belongs to a comparison, not a negation; a negation is
		// always followed by a parenthesized group or another expression,
		// never by an operator. The comparison path never reaches here
		// because "not in" is consumed inside parseComparison.
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not{Expr: inner}, nil
	}

	if p.pos < len(p.input) && p.input[p.pos] == '(' {
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return nil, p.errorf("expected closing parenthesis")
		}
		p.pos++
		return inner, nil
	}

	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	op, err := p.parseOp()
	if err != nil {
		return nil, err
	}

	right, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	return Comparison{Left: left, Op: op, Right: right}, nil
}

// compareOps ordered longest-first so ">=" wins over ">".
var compareOps = []CompareOp{OpLessEqual, OpGreaterEqual, OpNotEqual, OpEqual, OpCompatible, OpLess, OpGreater}

func (p *parser) parseOp() (CompareOp, error) {
	p.skipSpace()

	if p.consumeWord("not") {
		p.skipSpace()
		if !p.consumeWord("in") {
			return "", p.errorf(`expected "in" after "not"`)
		}
		return OpNotIn, nil
	}
	if p.consumeWord("in") {
		return OpIn, nil
	}

	rest := p.input[p.pos:]
	for _, op := range compareOps {
		if strings.HasPrefix(rest, string(op)) {
			p.pos += len(op)
			return op, nil
		}
	}
	return "", p.errorf("expected comparison operator")
}

func (p *parser) parseValue() (Value, error) {
	p.skipSpace()

	if p.pos < len(p.input) && (p.input[p.pos] == '"' || p.input[p.pos] == '\'') {
		quote := p.input[p.pos]
		end := strings.IndexByte(p.input[p.pos+1:], quote)
		if end < 0 {
			return Value{}, p.errorf("unterminated string literal")
		}
		literal := p.input[p.pos+1 : p.pos+1+end]
		p.pos += end + 2
		return Value{Literal: literal}, nil
	}

	word := p.peekWord()
	if word == "" || word == "and" || word == "or" || word == "not" {
		return Value{}, p.errorf("expected environment variable or string literal")
	}
	p.pos += len(word)
	return Value{Variable: word}, nil
}
