package depsolve

import (
	"sort"

	"github.com/depsolve/go-depsolve/internal/pkgname"
	"github.com/depsolve/go-depsolve/lockfile"
	"github.com/depsolve/go-depsolve/marker"
	"github.com/depsolve/go-depsolve/version"
)

// OriginDirect is the Origin of requirements declared at the root.
const OriginDirect = "<direct>"

// Requirement is one declared dependency edge: a package name, an
// acceptable version range, optional extras, and an optional environment
// marker deciding whether the edge applies at all. Requirements are
// immutable once created; several requirements may target the same package
// and the single chosen version must satisfy all of them.
type Requirement struct {
	// Name is the normalized package name.
	Name string

	// Range is the acceptable version range ("*" when unconstrained).
	Range version.Range

	// Extras are the target package's extras this requirement activates.
	// Normalized and sorted.
	Extras []string

	// Marker guards the edge; nil means unconditional.
	Marker marker.Expr

	// Origin identifies the requirement's source: OriginDirect for root
	// declarations, "name@version" for edges declared by a candidate.
	Origin string
}

// Candidate is one concrete published version of a package, with its own
// declared requirements, available extras, and artifact digests. Candidates
// come from the metadata collaborator and are immutable once fetched;
// graph exploration shares them read-only.
type Candidate struct {
	// Name is the normalized package name.
	Name string

	// Version is the published version.
	Version version.Version

	// Requirements are the candidate's declared dependency edges, including
	// extra-guarded ones (marker "extra == ...").
	Requirements []Requirement

	// Extras lists the optional features the candidate declares.
	Extras []string

	// Artifacts are the candidate's installable files with content digests,
	// one per variant.
	Artifacts []lockfile.Artifact
}

// Key returns the candidate's "name@version" identity.
func (c *Candidate) Key() string {
	return c.Name + "@" + c.Version.String()
}

// ResolvedPackage is one row of a completed resolution: the chosen
// candidate, the extras active on it, and the provenance that demanded it.
type ResolvedPackage struct {
	// Candidate is the chosen version with its metadata.
	Candidate *Candidate

	// Extras are the extras activated on this package, sorted.
	Extras []string

	// RequiredBy lists the origins whose requirements target this package,
	// sorted. Direct requirements appear as OriginDirect.
	RequiredBy []string
}

// Resolution is a completed assignment: exactly one candidate per package
// name, every active requirement satisfied by its target's chosen version.
type Resolution struct {
	// Packages maps normalized package name to its resolved row.
	Packages map[string]*ResolvedPackage

	// Requirements are the root requirements the resolution started from,
	// in canonical string form, sorted. Recorded into the lock document's
	// metadata so the content-hash binds the output to its inputs.
	Requirements []string

	// Requires is the environment constraint range the resolution
	// considered (from the manifest), recorded into lock metadata.
	Requires string

	// Summary holds aggregate counts.
	Summary Summary
}

// Summary provides aggregate statistics about a resolution.
type Summary struct {
	// TotalPackages is the number of resolved packages.
	TotalPackages int

	// DirectPackages is the number of packages required directly.
	DirectPackages int

	// TransitivePackages is the number of packages pulled in transitively.
	TransitivePackages int
}

// PackageNames returns the resolved package names in sorted order.
func (r *Resolution) PackageNames() []string {
	names := make([]string, 0, len(r.Packages))
	for name := range r.Packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lock renders the resolution as a lock document. The document is fully
// canonical: serializing the same resolution twice yields identical bytes.
func (r *Resolution) Lock() *lockfile.Document {
	doc := lockfile.New()
	doc.Metadata.Requires = r.Requires
	doc.Metadata.Requirements = append([]string(nil), r.Requirements...)

	for _, name := range r.PackageNames() {
		pkg := r.Packages[name]
		doc.Add(lockfile.Entry{
			Name:      pkg.Candidate.Name,
			Version:   pkg.Candidate.Version.String(),
			Extras:    append([]string(nil), pkg.Extras...),
			Artifacts: append([]lockfile.Artifact(nil), pkg.Candidate.Artifacts...),
		})
	}
	return doc
}

// NormalizeName canonicalizes a package name the way resolution keys are
// built: lowercase with separator runs collapsed to a single hyphen.
func NormalizeName(name string) string {
	return pkgname.Normalize(name)
}
