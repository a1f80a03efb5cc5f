package depsolve

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/depsolve/go-depsolve/marker"
	"github.com/depsolve/go-depsolve/version"
)

// graphBuilder expands requirements into candidate sets, consulting the
// metadata collaborator through a run-scoped cache. It owns the marker
// evaluator for the run, so each (expression, environment) pair is
// evaluated once no matter how often the search revisits an edge.
type graphBuilder struct {
	source    *cachedSource
	evaluator *marker.Evaluator
	allowPre  bool
	logger    *slog.Logger
}

func newGraphBuilder(source *cachedSource, env marker.Environment, allowPre bool, logger *slog.Logger) *graphBuilder {
	return &graphBuilder{
		source:    source,
		evaluator: marker.NewEvaluator(env),
		allowPre:  allowPre,
		logger:    logger,
	}
}

// active reports whether a requirement edge applies on the target
// environment, given the extras in scope at the requiring package.
func (b *graphBuilder) active(req Requirement, scopeExtras []string) bool {
	return b.evaluator.EvalWithExtras(req.Marker, scopeExtras)
}

// versionsDesc returns the package's published versions, newest first.
//
// Error classification: a source that does not know the name yields
// *UnknownPackageError; any other failure, including a fetch timeout, means
// a package still required by an active constraint could not be probed, and
// yields *FetchError.
func (b *graphBuilder) versionsDesc(ctx context.Context, name, requiredBy string) ([]version.Version, error) {
	versions, err := b.source.Versions(ctx, name)
	if err != nil {
		if errors.Is(err, ErrPackageNotFound) {
			return nil, &UnknownPackageError{Name: name, RequiredBy: requiredBy, Err: err}
		}
		return nil, &FetchError{Name: name, Err: err}
	}
	if len(versions) == 0 {
		return nil, &UnknownPackageError{Name: name, RequiredBy: requiredBy}
	}

	sorted := make([]version.Version, len(versions))
	copy(sorted, versions)
	sort.Sort(sort.Reverse(version.Versions(sorted)))
	return sorted, nil
}

// admissible filters the version list down to those the combined range
// admits, preserving newest-first order. Pre-release versions are excluded
// unless the run allows them or the range explicitly mentions one.
func (b *graphBuilder) admissible(versions []version.Version, rng version.Range) []version.Version {
	allowPre := b.allowPre || rng.MentionsPrerelease()
	out := make([]version.Version, 0, len(versions))
	for _, v := range versions {
		if v.IsPrerelease() && !allowPre {
			continue
		}
		if rng.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// candidate fetches the candidate for (name, version) and stamps the origin
// on its declared requirements.
func (b *graphBuilder) candidate(ctx context.Context, name string, v version.Version) (*Candidate, error) {
	c, err := b.source.Release(ctx, name, v)
	if err != nil {
		return nil, &FetchError{Name: name, Err: err}
	}

	origin := name + "@" + v.String()
	stamped := *c
	stamped.Requirements = make([]Requirement, len(c.Requirements))
	for i, req := range c.Requirements {
		req.Name = NormalizeName(req.Name)
		req.Origin = origin
		stamped.Requirements[i] = req
	}
	return &stamped, nil
}

// prefetch warms the metadata cache by walking the likely dependency
// frontier concurrently: the version list of every reachable package and
// the newest admissible candidate of each. Failures are ignored; the search
// refetches on demand and reports errors there. Population happens through
// the shared cache, so the sequential search below sees every result.
func (b *graphBuilder) prefetch(ctx context.Context, roots []Requirement, maxConcurrency int) {
	type probe struct {
		req Requirement
	}

	var (
		mu      sync.Mutex
		visited = make(map[string]bool)
		queue   []probe
	)

	enqueue := func(reqs []Requirement, scopeExtras []string) {
		mu.Lock()
		defer mu.Unlock()
		for _, req := range reqs {
			if !b.active(req, scopeExtras) {
				continue
			}
			if visited[req.Name] {
				continue
			}
			visited[req.Name] = true
			queue = append(queue, probe{req: req})
		}
	}

	enqueue(roots, nil)

	for len(queue) > 0 {
		mu.Lock()
		batch := queue
		queue = nil
		mu.Unlock()

		g, groupCtx := errgroup.WithContext(ctx)
		g.SetLimit(maxConcurrency)
		for _, p := range batch {
			p := p
			g.Go(func() error {
				versions, err := b.source.Versions(groupCtx, p.req.Name)
				if err != nil {
					return nil // warm-up only; the search reports real errors
				}
				sorted := make([]version.Version, len(versions))
				copy(sorted, versions)
				sort.Sort(sort.Reverse(version.Versions(sorted)))

				admissible := b.admissible(sorted, p.req.Range)
				if len(admissible) == 0 {
					return nil
				}
				c, err := b.candidate(groupCtx, p.req.Name, admissible[0])
				if err != nil {
					return nil
				}
				enqueue(c.Requirements, p.req.Extras)
				return nil
			})
		}
		_ = g.Wait()
	}

	b.logger.Debug("metadata prefetch complete", "packages", len(visited))
}
