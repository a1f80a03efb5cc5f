package version

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Op is a range constraint operator.
type Op string

// Supported constraint operators.
const (
	OpEqual        Op = "=="
	OpNotEqual     Op = "!="
	OpGreaterEqual Op = ">="
	OpGreater      Op = ">"
	OpLessEqual    Op = "<="
	OpLess         Op = "<"
	OpCompatible   Op = "~=" // compatible release: ~=1.2.3 means >=1.2.3, <1.3.0
	OpWildcard     Op = "==*" // wildcard pin: ==1.2.* matches any 1.2.x
)

// Constraint is a single operator applied to a version.
// For OpWildcard, Version holds the literal prefix (the part before ".*").
type Constraint struct {
	Op      Op
	Version Version
}

// String renders the constraint in its canonical spelling.
func (c Constraint) String() string {
	if c.Op == OpWildcard {
		return "==" + c.Version.String() + ".*"
	}
	return string(c.Op) + c.Version.String()
}

// Matches reports whether the constraint admits the given version.
func (c Constraint) Matches(v Version) bool {
	switch c.Op {
	case OpEqual:
		return v.Compare(c.Version) == 0
	case OpNotEqual:
		return v.Compare(c.Version) != 0
	case OpGreaterEqual:
		return v.Compare(c.Version) >= 0
	case OpGreater:
		return v.Compare(c.Version) > 0
	case OpLessEqual:
		return v.Compare(c.Version) <= 0
	case OpLess:
		return v.Compare(c.Version) < 0
	case OpCompatible:
		return v.Compare(c.Version) >= 0 && c.compatibleUpper().Compare(v) > 0
	case OpWildcard:
		return c.matchesPrefix(v)
	}
	return false
}

// compatibleUpper computes the exclusive upper bound of a compatible-release
// constraint: all release segments but the last, with the new last bumped.
// ~=1.2.3 -> 1.3; ~=2.2 -> 3.
func (c Constraint) compatibleUpper() Version {
	release := c.Version.Release()
	if len(release) > 1 {
		release = release[:len(release)-1]
	}
	release[len(release)-1]++

	parts := make([]string, len(release))
	for i, seg := range release {
		parts[i] = strconv.Itoa(seg)
	}
	upper := strings.Join(parts, ".")
	if c.Version.Epoch() > 0 {
		upper = fmt.Sprintf("%d!%s", c.Version.Epoch(), upper)
	}
	return MustParse(upper)
}

// matchesPrefix implements wildcard matching: the candidate's epoch and
// leading release segments must equal the prefix exactly.
func (c Constraint) matchesPrefix(v Version) bool {
	if v.Epoch() != c.Version.Epoch() {
		return false
	}
	prefix := c.Version.Release()
	for i := range prefix {
		if v.releaseAt(i) != prefix[i] {
			return false
		}
	}
	return true
}

// Range is a conjunction of constraints over a single package's versions.
// The zero value admits every version ("*").
type Range struct {
	constraints []Constraint
}

// Any returns the unconstrained range.
func Any() Range {
	return Range{}
}

// NewRange builds a range from constraints.
func NewRange(constraints ...Constraint) Range {
	return Range{constraints: constraints}
}

// ParseRange parses a comma-separated constraint list such as
// ">=1.0,<2.0" or "==1.2.*". "*" and the empty string parse as Any.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return Any(), nil
	}

	var r Range
	for _, clause := range strings.Split(s, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			return Range{}, &MalformedVersionError{Input: s}
		}
		c, err := parseConstraint(clause)
		if err != nil {
			return Range{}, err
		}
		r.constraints = append(r.constraints, c)
	}
	return r.normalize(), nil
}

// MustParseRange parses a range or panics. Use only for constants/tests.
func MustParseRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

// constraint operators ordered longest-first so ">=" wins over ">".
var opOrder = []Op{OpLessEqual, OpGreaterEqual, OpNotEqual, OpEqual, OpCompatible, OpLess, OpGreater}

func parseConstraint(clause string) (Constraint, error) {
	for _, op := range opOrder {
		if !strings.HasPrefix(clause, string(op)) {
			continue
		}
		text := strings.TrimSpace(clause[len(op):])
		if op == OpEqual && strings.HasSuffix(text, ".*") {
			prefix, err := Parse(strings.TrimSuffix(text, ".*"))
			if err != nil {
				return Constraint{}, err
			}
			return Constraint{Op: OpWildcard, Version: prefix}, nil
		}
		v, err := Parse(text)
		if err != nil {
			return Constraint{}, err
		}
		return Constraint{Op: op, Version: v}, nil
	}

	// A bare version is an exact pin.
	v, err := Parse(clause)
	if err != nil {
		return Constraint{}, err
	}
	return Constraint{Op: OpEqual, Version: v}, nil
}

// Constraints returns the range's constraints in canonical order.
func (r Range) Constraints() []Constraint {
	out := make([]Constraint, len(r.constraints))
	copy(out, r.constraints)
	return out
}

// IsAny reports whether the range admits every version.
func (r Range) IsAny() bool {
	return len(r.constraints) == 0
}

// Contains reports whether the version satisfies every constraint.
func (r Range) Contains(v Version) bool {
	for _, c := range r.constraints {
		if !c.Matches(v) {
			return false
		}
	}
	return true
}

// MentionsPrerelease reports whether any constraint names a pre-release
// version. The resolver uses this to decide pre-release admissibility.
func (r Range) MentionsPrerelease() bool {
	for _, c := range r.constraints {
		if c.Op != OpNotEqual && c.Version.IsPrerelease() {
			return true
		}
	}
	return false
}

// Intersect combines two ranges into their conjunction. The result contains
// exactly the versions admitted by both inputs. Use IsEmpty to detect an
// unsatisfiable intersection.
func (r Range) Intersect(other Range) Range {
	merged := make([]Constraint, 0, len(r.constraints)+len(other.constraints))
	merged = append(merged, r.constraints...)
	merged = append(merged, other.constraints...)
	return Range{constraints: merged}.normalize()
}

// normalize sorts constraints canonically and drops duplicates so equivalent
// ranges render identically.
func (r Range) normalize() Range {
	sort.SliceStable(r.constraints, func(i, j int) bool {
		a, b := r.constraints[i], r.constraints[j]
		if a.Op != b.Op {
			return opRank(a.Op) < opRank(b.Op)
		}
		return a.Version.Less(b.Version)
	})

	deduped := r.constraints[:0]
	for i, c := range r.constraints {
		if i > 0 && c.String() == r.constraints[i-1].String() {
			continue
		}
		deduped = append(deduped, c)
	}
	r.constraints = deduped
	return r
}

func opRank(op Op) int {
	switch op {
	case OpGreaterEqual, OpGreater:
		return 0
	case OpCompatible, OpWildcard, OpEqual:
		return 1
	case OpLessEqual, OpLess:
		return 2
	default: // OpNotEqual
		return 3
	}
}

// IsEmpty reports whether the range provably admits no version at all.
//
// Emptiness is decided by interval analysis over the constraints' implied
// lower and upper bounds plus exact pins; exclusions only contribute when
// they eliminate a pinned point. A false result means the bounds leave room,
// not that a published version necessarily exists in it.
func (r Range) IsEmpty() bool {
	var (
		lower, upper          Version
		lowerStrict, upStrict bool
		hasLower, hasUpper    bool
		pin                   Version
		hasPin                bool
	)

	raiseLower := func(v Version, strict bool) {
		if !hasLower || v.Compare(lower) > 0 || (v.Compare(lower) == 0 && strict && !lowerStrict) {
			lower, lowerStrict, hasLower = v, strict, true
		}
	}
	lowerUpper := func(v Version, strict bool) {
		if !hasUpper || v.Compare(upper) < 0 || (v.Compare(upper) == 0 && strict && !upStrict) {
			upper, upStrict, hasUpper = v, strict, true
		}
	}

	for _, c := range r.constraints {
		switch c.Op {
		case OpGreaterEqual:
			raiseLower(c.Version, false)
		case OpGreater:
			raiseLower(c.Version, true)
		case OpLessEqual:
			lowerUpper(c.Version, false)
		case OpLess:
			lowerUpper(c.Version, true)
		case OpEqual:
			if hasPin && !pin.Equal(c.Version) {
				return true
			}
			pin, hasPin = c.Version, true
			raiseLower(c.Version, false)
			lowerUpper(c.Version, false)
		case OpCompatible:
			raiseLower(c.Version, false)
			lowerUpper(c.compatibleUpper(), true)
		case OpWildcard:
			raiseLower(c.Version, false)
			lowerUpper(Constraint{Op: OpCompatible, Version: widenWildcard(c.Version)}.compatibleUpper(), true)
		}
	}

	if hasLower && hasUpper {
		switch cmp := lower.Compare(upper); {
		case cmp > 0:
			return true
		case cmp == 0 && (lowerStrict || upStrict):
			return true
		}
	}

	if hasPin {
		for _, c := range r.constraints {
			if !c.Matches(pin) {
				return true
			}
		}
	}
	return false
}

// widenWildcard appends a zero segment so the compatible-release upper-bound
// bump applies to the wildcard position: 1.2.* -> bound derived from 1.2.0.
func widenWildcard(prefix Version) Version {
	return MustParse(prefix.String() + ".0")
}

// String renders the range canonically: constraints sorted, comma-joined,
// "*" for the unconstrained range.
func (r Range) String() string {
	if len(r.constraints) == 0 {
		return "*"
	}
	parts := make([]string, len(r.constraints))
	for i, c := range r.constraints {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}
