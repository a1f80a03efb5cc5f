// Package depsolve provides a Go library for resolving package dependency
// graphs: it selects exactly one version per package so that every
// requirement in the transitive graph is satisfied, preferring the newest
// admissible version at each choice point and backtracking when choices
// collide.
//
// # Overview
//
// The package provides four main components:
//
//   - Requirement parsing: "name[extras] >=1.0,<2.0 ; marker" strings
//   - MetadataSource: pluggable access to published versions and release metadata
//   - Resolver: deterministic backtracking resolution with conflict reporting
//   - lockfile: canonical lock document serialization and artifact verification
//
// # Quick Start
//
// The simplest way to resolve a set of requirements:
//
//	reqs := []string{"alpha >=1.0,<2.0", "beta >=1.0"}
//	result, err := depsolve.Resolve(ctx, reqs, source)
//
//	// From a manifest file
//	result, err := depsolve.ResolveManifest(ctx, "depsolve.toml", source)
//
//	// With a target environment and requested extras
//	result, err := depsolve.Resolve(ctx, reqs, source,
//	    depsolve.WithEnvironment(depsolve.LinuxEnvironment("3.11")),
//	    depsolve.WithExtras("tls"),
//	)
//
// The result converts directly into a lock document:
//
//	doc := result.Lock()
//	err = lockfile.WriteFile("depsolve.lock", doc)
//
// # Determinism
//
// Resolution is a pure function of the requirements, the environment and the
// metadata the source returns: the same inputs always produce the same
// selection, and serializing it yields byte-identical lock documents.
//
// # Failure Reporting
//
// When no satisfying selection exists, Resolve returns a *ConflictError
// naming the contested package and a minimal set of requirements that cannot
// hold together, each with the package that introduced it. Missing packages,
// unsatisfiable single requirements and metadata transport failures surface
// as *UnknownPackageError, *NoMatchingVersionError and *FetchError.
//
// # Thread Safety
//
// A MetadataSource may be shared across concurrent Resolve calls; each call
// maintains its own caches and search state.
package depsolve

import (
	"context"
	"fmt"
	"sort"

	"github.com/depsolve/go-depsolve/marker"
)

// Resolve resolves the given requirement strings against the metadata
// source and returns the selected packages.
//
// This is the recommended entry point for dependency resolution.
func Resolve(ctx context.Context, requirements []string, source MetadataSource, opts ...Option) (*Resolution, error) {
	parsed := make([]Requirement, 0, len(requirements))
	for _, raw := range requirements {
		req, err := ParseRequirement(raw)
		if err != nil {
			return nil, fmt.Errorf("parse requirement %q: %w", raw, err)
		}
		parsed = append(parsed, req)
	}
	return ResolveRequirements(ctx, parsed, source, opts...)
}

// ResolveManifest loads a manifest file and resolves its dependencies.
func ResolveManifest(ctx context.Context, path string, source MetadataSource, opts ...Option) (*Resolution, error) {
	manifest, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	return resolveManifest(ctx, manifest, source, opts...)
}

// ResolveManifestContent resolves dependencies from manifest content.
func ResolveManifestContent(ctx context.Context, content []byte, source MetadataSource, opts ...Option) (*Resolution, error) {
	manifest, err := ParseManifest(content)
	if err != nil {
		return nil, err
	}
	return resolveManifest(ctx, manifest, source, opts...)
}

func resolveManifest(ctx context.Context, manifest *Manifest, source MetadataSource, opts ...Option) (*Resolution, error) {
	parsed, err := manifest.Requirements()
	if err != nil {
		return nil, err
	}
	res, err := ResolveRequirements(ctx, parsed, source, opts...)
	if err != nil {
		return nil, err
	}
	res.Requires = manifest.Project.Requires
	return res, nil
}

// ResolveRequirements resolves already-parsed requirements. Requirement
// origins are forced to OriginDirect; markers are evaluated against the
// configured environment before the search starts.
func ResolveRequirements(ctx context.Context, requirements []Requirement, source MetadataSource, opts ...Option) (*Resolution, error) {
	cfg, err := newResolverConfig(opts...)
	if err != nil {
		return nil, err
	}

	builder := newGraphBuilder(newCachedSource(source, cfg.fetchTimeout), cfg.env, cfg.allowPrerelease, cfg.log())

	roots := rootRequirements(requirements, cfg, builder)

	builder.prefetch(ctx, roots, cfg.maxConcurrency)

	s := newSolver(ctx, builder, cfg.log())
	if _, err := s.solve(roots); err != nil {
		return nil, err
	}

	res := s.buildResolution(roots, "")
	cfg.log().Debug("resolution complete",
		"packages", res.Summary.TotalPackages,
		"direct", res.Summary.DirectPackages)
	return res, nil
}

// rootRequirements normalizes, marker-filters and deduplicates the direct
// requirements, folding the configured extras into each.
func rootRequirements(requirements []Requirement, cfg *resolverConfig, builder *graphBuilder) []Requirement {
	roots := make([]Requirement, 0, len(requirements))
	seen := make(map[string]bool, len(requirements))
	for _, req := range requirements {
		req.Name = NormalizeName(req.Name)
		req.Origin = OriginDirect
		if len(cfg.extras) > 0 {
			req.Extras = mergeExtras(req.Extras, cfg.extras)
		}
		if !builder.active(req, nil) {
			continue
		}
		key := req.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		roots = append(roots, req)
	}
	return roots
}

func mergeExtras(a, b []string) []string {
	set := make(map[string]bool, len(a)+len(b))
	for _, x := range a {
		set[marker.NormalizeExtra(x)] = true
	}
	for _, x := range b {
		set[marker.NormalizeExtra(x)] = true
	}
	out := make([]string, 0, len(set))
	for x := range set {
		out = append(out, x)
	}
	sort.Strings(out)
	return out
}
