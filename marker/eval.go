package marker

import (
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/depsolve/go-depsolve/version"
)

// Evaluate evaluates a marker expression against an environment.
//
// Evaluation is pure and total: it never fails. Comparisons that reference
// attributes the environment does not define evaluate to false, which makes
// the enclosing requirement inactive on that environment.
func Evaluate(expr Expr, env Environment) bool {
	switch e := expr.(type) {
	case Comparison:
		return evalComparison(e, env)
	case And:
		return Evaluate(e.Left, env) && Evaluate(e.Right, env)
	case Or:
		return Evaluate(e.Left, env) || Evaluate(e.Right, env)
	case Not:
		return !Evaluate(e.Expr, env)
	}
	return false
}

func evalComparison(c Comparison, env Environment) bool {
	// "extra" compares against the active extra set, not a scalar attribute.
	if c.Left.Variable == "extra" || c.Right.Variable == "extra" {
		return evalExtra(c, env)
	}

	left, ok := resolveValue(c.Left, env)
	if !ok {
		return false
	}
	right, ok := resolveValue(c.Right, env)
	if !ok {
		return false
	}

	switch c.Op {
	case OpIn:
		return strings.Contains(right, left)
	case OpNotIn:
		return !strings.Contains(right, left)
	}

	// Version-valued attributes compare as versions when both sides parse;
	// everything else falls back to string comparison.
	if isVersionAttr(c.Left.Variable) || isVersionAttr(c.Right.Variable) {
		lv, lerr := version.Parse(left)
		rv, rerr := version.Parse(right)
		if lerr == nil && rerr == nil {
			return compareVersions(c.Op, lv, rv)
		}
	}

	return compareStrings(c.Op, left, right)
}

func evalExtra(c Comparison, env Environment) bool {
	literal := c.Right
	if c.Right.Variable == "extra" {
		literal = c.Left
	}
	if literal.IsVariable() {
		return false
	}

	active := env.Extras[NormalizeExtra(literal.Literal)]
	switch c.Op {
	case OpEqual:
		return active
	case OpNotEqual:
		return !active
	}
	return false
}

func resolveValue(v Value, env Environment) (string, bool) {
	if !v.IsVariable() {
		return v.Literal, true
	}
	return env.lookup(v.Variable)
}

func isVersionAttr(name string) bool {
	switch name {
	case "python_version", "python_full_version":
		return true
	}
	return false
}

func compareVersions(op CompareOp, left, right version.Version) bool {
	switch op {
	case OpEqual:
		return left.Compare(right) == 0
	case OpNotEqual:
		return left.Compare(right) != 0
	case OpGreaterEqual:
		return left.Compare(right) >= 0
	case OpGreater:
		return left.Compare(right) > 0
	case OpLessEqual:
		return left.Compare(right) <= 0
	case OpLess:
		return left.Compare(right) < 0
	case OpCompatible:
		return version.NewRange(version.Constraint{Op: version.OpCompatible, Version: right}).Contains(left)
	}
	return false
}

func compareStrings(op CompareOp, left, right string) bool {
	switch op {
	case OpEqual:
		return left == right
	case OpNotEqual:
		return left != right
	case OpGreaterEqual:
		return left >= right
	case OpGreater:
		return left > right
	case OpLessEqual:
		return left <= right
	case OpLess:
		return left < right
	}
	return false
}

// Evaluator memoizes marker evaluations for one environment. Results are
// keyed by (canonical expression, environment fingerprint); the cache lives
// only as long as the Evaluator, matching a single resolution run.
//
// Safe for concurrent use.
type Evaluator struct {
	env    Environment
	envSum uint64

	mu    sync.Mutex
	cache map[uint64]bool
}

// NewEvaluator creates an evaluator bound to an environment snapshot.
func NewEvaluator(env Environment) *Evaluator {
	return &Evaluator{
		env:    env,
		envSum: env.Fingerprint(),
		cache:  make(map[uint64]bool),
	}
}

// Environment returns the environment the evaluator is bound to.
func (ev *Evaluator) Environment() Environment {
	return ev.env
}

// Eval evaluates the expression, consulting the cache first. A nil
// expression means "no marker" and is always true.
func (ev *Evaluator) Eval(expr Expr) bool {
	if expr == nil {
		return true
	}

	key := ev.cacheKey(expr)
	ev.mu.Lock()
	if result, ok := ev.cache[key]; ok {
		ev.mu.Unlock()
		return result
	}
	ev.mu.Unlock()

	result := Evaluate(expr, ev.env)

	ev.mu.Lock()
	ev.cache[key] = result
	ev.mu.Unlock()
	return result
}

// EvalWithExtras evaluates the expression with the given extras active on
// top of the evaluator's environment. Used when walking a candidate's
// requirements with the requester's extras in scope.
func (ev *Evaluator) EvalWithExtras(expr Expr, extras []string) bool {
	if expr == nil {
		return true
	}
	if len(extras) == 0 {
		return ev.Eval(expr)
	}
	return Evaluate(expr, ev.env.WithExtras(extras))
}

func (ev *Evaluator) cacheKey(expr Expr) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(expr.String())
	_, _ = h.Write([]byte{0})
	var buf [8]byte
	sum := ev.envSum
	for i := 0; i < 8; i++ {
		buf[i] = byte(sum >> (8 * i))
	}
	_, _ = h.Write(buf[:])
	return h.Sum64()
}
