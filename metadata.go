package depsolve

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/depsolve/go-depsolve/version"
)

// MetadataSource supplies package metadata to the resolver. It is the
// external collaborator boundary: implementations talk to an index, a local
// mirror, or a test fixture; the core never fetches anything else.
//
// Implementations must be idempotent and safe for concurrent calls with
// distinct names. Transient failures are the implementation's concern
// (retry behind this boundary); the core treats any returned error as
// terminal for that probe.
type MetadataSource interface {
	// Versions returns every published version of the named package.
	// Order does not matter; the resolver sorts. A name the source does not
	// know returns an error wrapping ErrPackageNotFound.
	Versions(ctx context.Context, name string) ([]version.Version, error)

	// Release returns the candidate for one published version: its declared
	// requirements, extras, and artifact digests. An unknown version
	// returns an error wrapping ErrVersionNotFound.
	Release(ctx context.Context, name string, v version.Version) (*Candidate, error)
}

// cachedSource wraps a MetadataSource with run-scoped caching:
//   - version lists memoized per name, with at most one in-flight fetch per
//     name (concurrent callers share the same flight)
//   - candidates memoized per (name, version), also one flight per pair,
//     so repeated probes during backtracking never refetch
//   - an optional per-fetch timeout
//
// The cache is constructed at run start and discarded with the run; no
// process-wide state survives, so concurrent runs stay independent.
type cachedSource struct {
	source       MetadataSource
	fetchTimeout time.Duration

	flight   singleflight.Group
	versions sync.Map // map[string]versionsResult
	releases sync.Map // map[string]releaseResult, keyed by "name@version"
}

type versionsResult struct {
	versions []version.Version
	err      error
}

type releaseResult struct {
	candidate *Candidate
	err       error
}

func newCachedSource(source MetadataSource, fetchTimeout time.Duration) *cachedSource {
	return &cachedSource{source: source, fetchTimeout: fetchTimeout}
}

func (c *cachedSource) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.fetchTimeout > 0 {
		return context.WithTimeout(ctx, c.fetchTimeout)
	}
	return context.WithCancel(ctx)
}

// Versions returns the memoized version list for a package. Errors are
// memoized too: a failed probe is not retried within the run.
func (c *cachedSource) Versions(ctx context.Context, name string) ([]version.Version, error) {
	if cached, ok := c.versions.Load(name); ok {
		res := cached.(versionsResult)
		return res.versions, res.err
	}

	result, err, _ := c.flight.Do(name, func() (any, error) {
		if cached, ok := c.versions.Load(name); ok {
			return cached.(versionsResult), nil
		}
		fetchCtx, cancel := c.fetchContext(ctx)
		defer cancel()
		versions, err := c.source.Versions(fetchCtx, name)
		res := versionsResult{versions: versions, err: err}
		c.versions.Store(name, res)
		return res, nil
	})
	if err != nil {
		// The closure never returns an error; flights fail only via res.err.
		return nil, err
	}
	res := result.(versionsResult)
	return res.versions, res.err
}

// Release returns the memoized candidate for (name, version). Concurrent
// prefetch callers for the same pair share one flight, like Versions.
func (c *cachedSource) Release(ctx context.Context, name string, v version.Version) (*Candidate, error) {
	key := name + "@" + v.String()
	if cached, ok := c.releases.Load(key); ok {
		res := cached.(releaseResult)
		return res.candidate, res.err
	}

	result, _, _ := c.flight.Do(key, func() (any, error) {
		if cached, ok := c.releases.Load(key); ok {
			return cached.(releaseResult), nil
		}
		fetchCtx, cancel := c.fetchContext(ctx)
		defer cancel()
		candidate, err := c.source.Release(fetchCtx, name, v)
		if err == nil && candidate == nil {
			err = fmt.Errorf("metadata source returned no candidate for %s@%s", name, v)
		}
		res := releaseResult{candidate: candidate, err: err}
		c.releases.Store(key, res)
		return res, nil
	})
	res := result.(releaseResult)
	return res.candidate, res.err
}
