// Package marker parses and evaluates environment markers: the boolean
// predicates attached to requirements that decide whether a dependency edge
// applies on a given target environment.
//
// A marker is a small expression language over environment attributes:
//
//	python_version >= "3.9" and sys_platform != "win32"
//	extra == "tls" or implementation_name == "pypy"
//
// Expressions parse into a tagged-variant AST evaluated by a pure function.
// Evaluation is total: comparisons against attributes the environment does
// not define evaluate to false instead of failing, so lock inputs stay
// evaluable across heterogeneous environments.
package marker

import "fmt"

// Expr is a node in a parsed marker expression.
type Expr interface {
	// String renders the node in canonical form (single spaces, double
	// quotes). Canonical rendering doubles as the cache identity.
	String() string

	isExpr()
}

// Comparison is a single operator applied to two values.
type Comparison struct {
	Left  Value
	Op    CompareOp
	Right Value
}

// And is the conjunction of two subexpressions.
type And struct {
	Left, Right Expr
}

// Or is the disjunction of two subexpressions.
type Or struct {
	Left, Right Expr
}

// Not negates a subexpression.
type Not struct {
	Expr Expr
}

func (Comparison) isExpr() {}
func (And) isExpr()        {}
func (Or) isExpr()         {}
func (Not) isExpr()        {}

func (c Comparison) String() string {
	return c.Left.String() + " " + string(c.Op) + " " + c.Right.String()
}

func (a And) String() string {
	return parenthesize(a.Left) + " and " + parenthesize(a.Right)
}

func (o Or) String() string {
	return parenthesize(o.Left) + " or " + parenthesize(o.Right)
}

func (n Not) String() string {
	return "not " + parenthesize(n.Expr)
}

// parenthesize wraps composite operands so canonical output re-parses with
// the same shape.
func parenthesize(e Expr) string {
	switch e.(type) {
	case Comparison:
		return e.String()
	default:
		return "(" + e.String() + ")"
	}
}

// CompareOp is a comparison operator inside a marker expression.
type CompareOp string

// Comparison operators, including the containment forms.
const (
	OpEqual        CompareOp = "=="
	OpNotEqual     CompareOp = "!="
	OpGreaterEqual CompareOp = ">="
	OpGreater      CompareOp = ">"
	OpLessEqual    CompareOp = "<="
	OpLess         CompareOp = "<"
	OpCompatible   CompareOp = "~="
	OpIn           CompareOp = "in"
	OpNotIn        CompareOp = "not in"
)

// Value is one side of a comparison: either an environment variable
// reference or a quoted literal.
type Value struct {
	// Variable is the attribute name when the value references the
	// environment; empty for literals.
	Variable string

	// Literal is the quoted string when the value is a literal.
	Literal string
}

// IsVariable reports whether the value references an environment attribute.
func (v Value) IsVariable() bool {
	return v.Variable != ""
}

func (v Value) String() string {
	if v.IsVariable() {
		return v.Variable
	}
	return `"` + v.Literal + `"`
}

// MalformedMarkerError reports marker text that does not parse.
type MalformedMarkerError struct {
	// Input is the full marker text.
	Input string

	// Position is the byte offset where parsing failed.
	Position int

	// Reason describes what was expected.
	Reason string
}

func (e *MalformedMarkerError) Error() string {
	return fmt.Sprintf("malformed marker %q at offset %d: %s", e.Input, e.Position, e.Reason)
}
