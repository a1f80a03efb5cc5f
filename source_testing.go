package depsolve

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/depsolve/go-depsolve/lockfile"
	"github.com/depsolve/go-depsolve/version"
)

// Compile-time interface compliance checks
var _ MetadataSource = (*MemorySource)(nil)
var _ MetadataSource = (*FailingSource)(nil)
var _ MetadataSource = (*CountingSource)(nil)

// MemorySource is a thread-safe in-memory metadata source for testing.
// Releases are registered with AddRelease; everything else misses with
// ErrPackageNotFound / ErrVersionNotFound.
type MemorySource struct {
	mu       sync.RWMutex
	releases map[string]map[string]*Candidate // name -> version string -> candidate
}

// NewMemorySource creates an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		releases: make(map[string]map[string]*Candidate),
	}
}

// AddRelease registers one published release. Requirement strings are
// parsed eagerly; a malformed one panics, keeping fixture bugs loud.
func (s *MemorySource) AddRelease(name, ver string, requirements ...string) *MemorySource {
	reqs := make([]Requirement, 0, len(requirements))
	for _, raw := range requirements {
		reqs = append(reqs, MustParseRequirement(raw))
	}
	return s.Add(&Candidate{
		Name:         NormalizeName(name),
		Version:      version.MustParse(ver),
		Requirements: reqs,
	})
}

// Add registers a fully built candidate.
func (s *MemorySource) Add(c *Candidate) *MemorySource {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := NormalizeName(c.Name)
	if s.releases[name] == nil {
		s.releases[name] = make(map[string]*Candidate)
	}
	s.releases[name][c.Version.String()] = c
	return s
}

// AddArtifact attaches an artifact digest to an already-registered release.
func (s *MemorySource) AddArtifact(name, ver, file, digest string) *MemorySource {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.releases[NormalizeName(name)][ver]; ok {
		c.Artifacts = append(c.Artifacts, lockfile.Artifact{File: file, Digest: digest})
	}
	return s
}

// Versions returns the registered versions of a package.
func (s *MemorySource) Versions(ctx context.Context, name string) ([]version.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byVersion, ok := s.releases[NormalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("package %s: %w", name, ErrPackageNotFound)
	}
	out := make([]version.Version, 0, len(byVersion))
	for _, c := range byVersion {
		out = append(out, c.Version)
	}
	return out, nil
}

// Release returns the registered candidate for one version.
func (s *MemorySource) Release(ctx context.Context, name string, v version.Version) (*Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.releases[NormalizeName(name)][v.String()]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", name, v, ErrVersionNotFound)
	}
	return c, nil
}

// FailingSource is a source that always returns errors.
// Useful for testing error handling paths.
type FailingSource struct {
	VersionsErr error
	ReleaseErr  error
}

// NewFailingSource creates a source that fails with the given errors.
func NewFailingSource(versionsErr, releaseErr error) *FailingSource {
	if versionsErr == nil {
		versionsErr = errors.New("versions fetch failed")
	}
	if releaseErr == nil {
		releaseErr = errors.New("release fetch failed")
	}
	return &FailingSource{VersionsErr: versionsErr, ReleaseErr: releaseErr}
}

// Versions always returns an error.
func (s *FailingSource) Versions(ctx context.Context, name string) ([]version.Version, error) {
	return nil, s.VersionsErr
}

// Release always returns an error.
func (s *FailingSource) Release(ctx context.Context, name string, v version.Version) (*Candidate, error) {
	return nil, s.ReleaseErr
}

// CountingSource wraps another source and counts calls, for asserting that
// caching keeps fetch counts flat.
type CountingSource struct {
	Source MetadataSource

	mu            sync.Mutex
	versionsCalls map[string]int
	releaseCalls  map[string]int
}

// NewCountingSource wraps a source with call counting.
func NewCountingSource(source MetadataSource) *CountingSource {
	return &CountingSource{
		Source:        source,
		versionsCalls: make(map[string]int),
		releaseCalls:  make(map[string]int),
	}
}

// Versions delegates and records the call.
func (s *CountingSource) Versions(ctx context.Context, name string) ([]version.Version, error) {
	s.mu.Lock()
	s.versionsCalls[NormalizeName(name)]++
	s.mu.Unlock()
	return s.Source.Versions(ctx, name)
}

// Release delegates and records the call.
func (s *CountingSource) Release(ctx context.Context, name string, v version.Version) (*Candidate, error) {
	s.mu.Lock()
	s.releaseCalls[NormalizeName(name)+"@"+v.String()]++
	s.mu.Unlock()
	return s.Source.Release(ctx, name, v)
}

// VersionsCalls reports how many times Versions was called for a name.
func (s *CountingSource) VersionsCalls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versionsCalls[NormalizeName(name)]
}

// ReleaseCalls reports how many times Release was called for one release.
func (s *CountingSource) ReleaseCalls(name, ver string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseCalls[NormalizeName(name)+"@"+ver]
}
