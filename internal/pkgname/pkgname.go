// Package pkgname normalizes package names for use as resolution keys.
package pkgname

import "strings"

// Normalize canonicalizes a package name: lowercase, with runs of hyphens,
// underscores, and dots collapsed to a single hyphen. Two names that
// normalize equal refer to the same package.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if r == '-' || r == '_' || r == '.' {
			pendingSep = true
			continue
		}
		if pendingSep && b.Len() > 0 {
			b.WriteByte('-')
		}
		pendingSep = false
		b.WriteRune(r)
	}
	return b.String()
}
