package depsolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/depsolve/go-depsolve/internal/pkgname"
	"github.com/depsolve/go-depsolve/marker"
	"github.com/depsolve/go-depsolve/version"
)

// ParseRequirement parses a requirement string of the form
//
//	name[extra1,extra2] >=1.0,<2.0 ; sys_platform != "win32"
//
// Every part after the name is optional: a bare name means any version,
// unconditionally. The returned requirement has Origin set to OriginDirect;
// callers attach a different origin for candidate-declared edges.
func ParseRequirement(s string) (Requirement, error) {
	text := strings.TrimSpace(s)
	if text == "" {
		return Requirement{}, fmt.Errorf("empty requirement")
	}

	req := Requirement{Origin: OriginDirect, Range: version.Any()}

	// Split off the marker first: everything after the first ";".
	spec, markerText, hasMarker := strings.Cut(text, ";")
	if hasMarker {
		expr, err := marker.Parse(strings.TrimSpace(markerText))
		if err != nil {
			return Requirement{}, fmt.Errorf("requirement %q: %w", s, err)
		}
		req.Marker = expr
	}
	spec = strings.TrimSpace(spec)

	// Extras between the name and the version range.
	name := spec
	if open := strings.IndexByte(spec, '['); open >= 0 {
		closing := strings.IndexByte(spec, ']')
		if closing < open {
			return Requirement{}, fmt.Errorf("requirement %q: unterminated extras list", s)
		}
		for _, extra := range strings.Split(spec[open+1:closing], ",") {
			extra = marker.NormalizeExtra(extra)
			if extra == "" {
				return Requirement{}, fmt.Errorf("requirement %q: empty extra name", s)
			}
			req.Extras = append(req.Extras, extra)
		}
		sort.Strings(req.Extras)
		name = spec[:open] + spec[closing+1:]
	}

	// The version range begins at the first operator or space.
	name = strings.TrimSpace(name)
	if i := strings.IndexAny(name, " <>=!~("); i >= 0 {
		rangeText := strings.TrimSpace(name[i:])
		rangeText = strings.TrimPrefix(rangeText, "(")
		rangeText = strings.TrimSuffix(rangeText, ")")
		r, err := version.ParseRange(rangeText)
		if err != nil {
			return Requirement{}, fmt.Errorf("requirement %q: %w", s, err)
		}
		req.Range = r
		name = strings.TrimSpace(name[:i])
	}

	if name == "" {
		return Requirement{}, fmt.Errorf("requirement %q: missing package name", s)
	}
	req.Name = pkgname.Normalize(name)
	return req, nil
}

// MustParseRequirement parses a requirement or panics. Use only for tests.
func MustParseRequirement(s string) Requirement {
	req, err := ParseRequirement(s)
	if err != nil {
		panic(err)
	}
	return req
}

// String renders the requirement canonically: normalized name, sorted
// extras, canonical range, canonical marker. Lock metadata records root
// requirements in this form, so equal requirement sets render identically.
func (r Requirement) String() string {
	var sb strings.Builder
	sb.WriteString(r.Name)
	if len(r.Extras) > 0 {
		sb.WriteByte('[')
		sb.WriteString(strings.Join(r.Extras, ","))
		sb.WriteByte(']')
	}
	if !r.Range.IsAny() {
		sb.WriteByte(' ')
		sb.WriteString(r.Range.String())
	}
	if r.Marker != nil {
		sb.WriteString(" ; ")
		sb.WriteString(r.Marker.String())
	}
	return sb.String()
}
