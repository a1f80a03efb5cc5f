package index

import (
	"fmt"
	"sort"

	depsolve "github.com/depsolve/go-depsolve"
	"github.com/depsolve/go-depsolve/lockfile"
	"github.com/depsolve/go-depsolve/version"
)

// Project is the index document for one package: every published release,
// keyed by version string.
type Project struct {
	Name     string             `json:"name" toml:"name"`
	Releases map[string]Release `json:"releases" toml:"releases"`
}

// Release describes one published version.
type Release struct {
	Requirements []string          `json:"requirements,omitempty" toml:"requirements,omitempty"`
	Extras       []string          `json:"extras,omitempty" toml:"extras,omitempty"`
	Artifacts    []ReleaseArtifact `json:"artifacts,omitempty" toml:"artifacts,omitempty"`
}

// ReleaseArtifact is one downloadable file of a release.
type ReleaseArtifact struct {
	File   string `json:"file" toml:"file"`
	Digest string `json:"digest" toml:"digest"`
}

// versions parses and sorts the release keys of a project document.
func (p *Project) versions() ([]version.Version, error) {
	out := make([]version.Version, 0, len(p.Releases))
	for raw := range p.Releases {
		v, err := version.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("index entry for %s: %w", p.Name, err)
		}
		out = append(out, v)
	}
	sort.Sort(version.Versions(out))
	return out, nil
}

// candidate converts one release document into a resolver candidate.
func (p *Project) candidate(name string, v version.Version) (*depsolve.Candidate, error) {
	rel, ok := p.Releases[v.String()]
	if !ok {
		// The canonical rendering may differ from the published key; fall
		// back to comparing parsed versions.
		for raw, r := range p.Releases {
			pv, err := version.Parse(raw)
			if err == nil && pv.Compare(v) == 0 {
				rel, ok = r, true
				break
			}
		}
	}
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", name, v, depsolve.ErrVersionNotFound)
	}

	reqs := make([]depsolve.Requirement, 0, len(rel.Requirements))
	for _, raw := range rel.Requirements {
		req, err := depsolve.ParseRequirement(raw)
		if err != nil {
			return nil, fmt.Errorf("index requirement %q of %s %s: %w", raw, name, v, err)
		}
		reqs = append(reqs, req)
	}

	artifacts := make([]lockfile.Artifact, 0, len(rel.Artifacts))
	for _, a := range rel.Artifacts {
		artifacts = append(artifacts, lockfile.Artifact{File: a.File, Digest: a.Digest})
	}

	return &depsolve.Candidate{
		Name:         name,
		Version:      v,
		Requirements: reqs,
		Extras:       append([]string(nil), rel.Extras...),
		Artifacts:    artifacts,
	}, nil
}
