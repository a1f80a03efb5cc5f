package marker

import (
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Environment is a snapshot of the target environment a resolution runs
// against. It is immutable for the duration of a run; evaluation results are
// cached against its fingerprint.
type Environment struct {
	// OSName is the target OS family, e.g. "posix" or "nt".
	OSName string

	// SysPlatform is the platform identifier, e.g. "linux", "darwin", "win32".
	SysPlatform string

	// PlatformMachine is the hardware architecture, e.g. "x86_64", "arm64".
	PlatformMachine string

	// PlatformSystem is the OS name as reported by the platform, e.g. "Linux".
	PlatformSystem string

	// PythonVersion is the runtime version as "major.minor", e.g. "3.12".
	PythonVersion string

	// PythonFullVersion is the complete runtime version, e.g. "3.12.4".
	PythonFullVersion string

	// ImplementationName identifies the runtime implementation, e.g. "cpython".
	ImplementationName string

	// Extras is the set of extras requested for the requirement being
	// evaluated. "extra == ..." comparisons test membership here.
	Extras map[string]bool
}

// WithExtras returns a copy of the environment with the given extras active.
// The receiver is not modified.
func (e Environment) WithExtras(extras []string) Environment {
	set := make(map[string]bool, len(extras))
	for _, x := range extras {
		set[NormalizeExtra(x)] = true
	}
	e.Extras = set
	return e
}

// NormalizeExtra canonicalizes an extra name: lowercase with runs of
// separator characters collapsed to a single hyphen.
func NormalizeExtra(name string) string {
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

// lookup resolves an attribute reference. The second result is false for
// attributes the environment does not define; comparisons against those are
// treated as non-matching rather than failing.
func (e Environment) lookup(name string) (string, bool) {
	switch name {
	case "os_name":
		return e.OSName, e.OSName != ""
	case "sys_platform":
		return e.SysPlatform, e.SysPlatform != ""
	case "platform_machine":
		return e.PlatformMachine, e.PlatformMachine != ""
	case "platform_system":
		return e.PlatformSystem, e.PlatformSystem != ""
	case "python_version":
		return e.PythonVersion, e.PythonVersion != ""
	case "python_full_version":
		return e.PythonFullVersion, e.PythonFullVersion != ""
	case "implementation_name":
		return e.ImplementationName, e.ImplementationName != ""
	default:
		return "", false
	}
}

// Fingerprint returns a stable identity for the environment, used as half of
// the evaluation cache key. Equal environments produce equal fingerprints.
func (e Environment) Fingerprint() uint64 {
	h := xxhash.New()

	for _, field := range []string{
		e.OSName, e.SysPlatform, e.PlatformMachine, e.PlatformSystem,
		e.PythonVersion, e.PythonFullVersion, e.ImplementationName,
	} {
		_, _ = h.WriteString(field)
		_, _ = h.Write([]byte{0})
	}

	extras := make([]string, 0, len(e.Extras))
	for x, on := range e.Extras {
		if on {
			extras = append(extras, x)
		}
	}
	sort.Strings(extras)
	for _, x := range extras {
		_, _ = h.WriteString(x)
		_, _ = h.Write([]byte{0})
	}

	return h.Sum64()
}
