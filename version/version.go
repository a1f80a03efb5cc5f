// Package version implements parsing, ordering, and range algebra for
// package versions as published on Python package indexes.
//
// The version grammar follows the packaging ecosystem's normalized form:
// an optional epoch, a dotted release, and optional pre-release, post-release,
// development, and local segments. Ordering is total and stable: for any two
// distinct parseable versions, Compare returns a nonzero result, and it
// returns the same result on every run. The resolver's newest-first
// tie-breaking depends on that property.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Version is an immutable, comparable package version.
//
// Format: [EPOCH!]RELEASE[{a|b|rc}N][.postN][.devN][+LOCAL]
// where RELEASE is one or more dot-separated numeric segments.
type Version struct {
	raw     string
	epoch   int
	release []int
	pre     *preSegment
	post    int // -1 when absent
	dev     int // -1 when absent
	local   string
}

// preSegment is a pre-release marker such as "a1", "b2", or "rc3".
type preSegment struct {
	phase string // normalized to "a", "b", or "rc"
	num   int
}

// MalformedVersionError reports input that does not conform to the version
// grammar.
type MalformedVersionError struct {
	// Input is the text that failed to parse.
	Input string
}

func (e *MalformedVersionError) Error() string {
	return fmt.Sprintf("malformed version %q", e.Input)
}

// versionRegex matches normalized and most commonly denormalized spellings:
//   - optional v-prefix: v1.2.3
//   - epoch: 2!1.0
//   - pre-release with flexible separators: 1.0a1, 1.0-alpha.1, 1.0rc2
//   - post-release: 1.0.post1, 1.0-1, 1.0rev2
//   - dev release: 1.0.dev3
//   - local segment: 1.0+ubuntu.1
var versionRegex = regexp.MustCompile(`^v?` +
	`(?:(\d+)!)?` + // epoch
	`(\d+(?:\.\d+)*)` + // release
	`(?:[-_.]?(a|b|c|rc|alpha|beta|pre|preview)[-_.]?(\d*))?` + // pre
	`(?:-(\d+)|[-_.]?(post|rev|r)[-_.]?(\d*))?` + // post
	`(?:[-_.]?(dev)[-_.]?(\d*))?` + // dev
	`(?:\+([a-z0-9]+(?:[-_.][a-z0-9]+)*))?$`) // local

// prePhases normalizes pre-release phase spellings.
var prePhases = map[string]string{
	"a": "a", "alpha": "a",
	"b": "b", "beta": "b",
	"c": "rc", "rc": "rc", "pre": "rc", "preview": "rc",
}

// Parse parses a version string. It returns a *MalformedVersionError when
// the input does not conform to the grammar.
func Parse(s string) (Version, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	matches := versionRegex.FindStringSubmatch(normalized)
	if matches == nil {
		return Version{}, &MalformedVersionError{Input: s}
	}

	v := Version{raw: normalized, post: -1, dev: -1}

	if matches[1] != "" {
		v.epoch, _ = strconv.Atoi(matches[1])
	}

	for _, part := range strings.Split(matches[2], ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			// Release segments longer than an int are out of scope.
			return Version{}, &MalformedVersionError{Input: s}
		}
		v.release = append(v.release, n)
	}

	if matches[3] != "" {
		num := 0
		if matches[4] != "" {
			num, _ = strconv.Atoi(matches[4])
		}
		v.pre = &preSegment{phase: prePhases[matches[3]], num: num}
	}

	switch {
	case matches[5] != "":
		v.post, _ = strconv.Atoi(matches[5])
	case matches[6] != "":
		// Bare ".post" with no number counts as post zero.
		v.post = 0
		if matches[7] != "" {
			v.post, _ = strconv.Atoi(matches[7])
		}
	}

	if matches[8] != "" {
		v.dev = 0
		if matches[9] != "" {
			v.dev, _ = strconv.Atoi(matches[9])
		}
	}

	v.local = matches[10]

	return v, nil
}

// MustParse parses a version or panics. Use only for constants and tests.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as parsed (lowercased, trimmed).
func (v Version) String() string {
	return v.raw
}

// IsZero returns true for the zero-value Version.
func (v Version) IsZero() bool {
	return v.raw == ""
}

// Epoch returns the version epoch (0 when absent).
func (v Version) Epoch() int {
	return v.epoch
}

// Release returns the numeric release segments.
func (v Version) Release() []int {
	out := make([]int, len(v.release))
	copy(out, v.release)
	return out
}

// IsPrerelease reports whether the version carries a pre-release or
// development segment. The resolver only admits such versions when a
// requirement explicitly asks for one.
func (v Version) IsPrerelease() bool {
	return v.pre != nil || v.dev >= 0
}

// releaseAt returns the release segment at index i, padding with zeros so
// 1.0 and 1.0.0 compare equal.
func (v Version) releaseAt(i int) int {
	if i < len(v.release) {
		return v.release[i]
	}
	return 0
}

// Compare returns -1 if v < other, 0 if equal, 1 if v > other.
//
// Ordering follows the ecosystem's precedence: epoch, then release segments
// numerically with zero padding, then dev < pre-release < final < post.
// The local segment orders part by part, numeric parts numerically, and
// only breaks otherwise-equal versions.
func (v Version) Compare(other Version) int {
	if v.epoch != other.epoch {
		return intCompare(v.epoch, other.epoch)
	}

	segs := max(len(v.release), len(other.release))
	for i := 0; i < segs; i++ {
		if c := intCompare(v.releaseAt(i), other.releaseAt(i)); c != 0 {
			return c
		}
	}

	if c := intCompare(v.preRank(), other.preRank()); c != 0 {
		return c
	}
	if v.pre != nil && other.pre != nil {
		if c := intCompare(v.pre.num, other.pre.num); c != 0 {
			return c
		}
	}

	if c := intCompare(boolToInt(v.post >= 0), boolToInt(other.post >= 0)); c != 0 {
		return c
	}
	if v.post >= 0 && other.post >= 0 {
		if c := intCompare(v.post, other.post); c != 0 {
			return c
		}
	}

	// A dev release sorts before the non-dev form at the same level.
	if c := intCompare(boolToInt(v.dev < 0), boolToInt(other.dev < 0)); c != 0 {
		return c
	}
	if v.dev >= 0 && other.dev >= 0 {
		if c := intCompare(v.dev, other.dev); c != 0 {
			return c
		}
	}

	return compareLocal(v.local, other.local)
}

// compareLocal orders local segments part by part: numeric parts compare
// numerically and outrank alphanumeric parts, so 1.0+10 > 1.0+9 and
// 1.0+abc < 1.0+1. A version with a local segment sorts after the same
// version without one.
func compareLocal(a, b string) int {
	if a == "" || b == "" {
		return intCompare(boolToInt(a != ""), boolToInt(b != ""))
	}
	as, bs := splitLocal(a), splitLocal(b)
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aErr := strconv.Atoi(as[i])
		bn, bErr := strconv.Atoi(bs[i])
		switch {
		case aErr == nil && bErr == nil:
			if c := intCompare(an, bn); c != 0 {
				return c
			}
		case aErr == nil:
			return 1
		case bErr == nil:
			return -1
		default:
			if c := strings.Compare(as[i], bs[i]); c != 0 {
				return c
			}
		}
	}
	return intCompare(len(as), len(bs))
}

func splitLocal(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '-' || r == '_'
	})
}

// preRank places the pre-release axis on a single scale:
// dev-only < alpha < beta < rc < final.
func (v Version) preRank() int {
	if v.pre == nil {
		if v.dev >= 0 && v.post < 0 {
			return -1
		}
		return 3
	}
	switch v.pre.phase {
	case "a":
		return 0
	case "b":
		return 1
	default: // "rc"
		return 2
	}
}

// Less returns true if v < other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// Equal returns true if v and other order the same.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

func intCompare(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Versions is a sortable slice of Version.
type Versions []Version

func (v Versions) Len() int           { return len(v) }
func (v Versions) Swap(i, j int)      { v[i], v[j] = v[j], v[i] }
func (v Versions) Less(i, j int) bool { return v[i].Less(v[j]) }
