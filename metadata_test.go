package depsolve

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/depsolve/go-depsolve/version"
)

func TestCachedSourceMemoizes(t *testing.T) {
	counting := NewCountingSource(NewMemorySource().
		AddRelease("alpha", "1.0").
		AddRelease("alpha", "2.0"))
	cached := newCachedSource(counting, 0)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		versions, err := cached.Versions(ctx, "alpha")
		if err != nil {
			t.Fatalf("Versions error: %v", err)
		}
		if len(versions) != 2 {
			t.Fatalf("got %d versions, want 2", len(versions))
		}
	}
	if got := counting.VersionsCalls("alpha"); got != 1 {
		t.Errorf("underlying Versions called %d times, want 1", got)
	}

	v := version.MustParse("2.0")
	for i := 0; i < 3; i++ {
		if _, err := cached.Release(ctx, "alpha", v); err != nil {
			t.Fatalf("Release error: %v", err)
		}
	}
	if got := counting.ReleaseCalls("alpha", "2.0"); got != 1 {
		t.Errorf("underlying Release called %d times, want 1", got)
	}
}

func TestCachedSourceMemoizesErrors(t *testing.T) {
	counting := NewCountingSource(NewMemorySource())
	cached := newCachedSource(counting, 0)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := cached.Versions(ctx, "ghost"); !errors.Is(err, ErrPackageNotFound) {
			t.Fatalf("Versions error = %v, want ErrPackageNotFound", err)
		}
	}
	if got := counting.VersionsCalls("ghost"); got != 1 {
		t.Errorf("underlying Versions called %d times, want 1", got)
	}
}

func TestResolveFetchFailure(t *testing.T) {
	boom := errors.New("index unreachable")
	_, err := Resolve(context.Background(), []string{"alpha"},
		NewFailingSource(boom, nil), testOpts()...)

	var fetch *FetchError
	if !errors.As(err, &fetch) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if !errors.Is(err, boom) {
		t.Error("FetchError does not wrap the source error")
	}
}

// gatedSource blocks Release until the gate opens, so tests can hold a
// fetch in flight while more callers arrive.
type gatedSource struct {
	*MemorySource
	entered chan struct{}
	gate    chan struct{}
}

func (g *gatedSource) Release(ctx context.Context, name string, v version.Version) (*Candidate, error) {
	g.entered <- struct{}{}
	<-g.gate
	return g.MemorySource.Release(ctx, name, v)
}

func TestCachedSourceSingleFlightRelease(t *testing.T) {
	gated := &gatedSource{
		MemorySource: NewMemorySource().AddRelease("alpha", "1.0"),
		entered:      make(chan struct{}, 8),
		gate:         make(chan struct{}),
	}
	counting := NewCountingSource(gated)
	cached := newCachedSource(counting, 0)

	ctx := context.Background()
	v := version.MustParse("1.0")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cached.Release(ctx, "alpha", v); err != nil {
				t.Errorf("Release error: %v", err)
			}
		}()
	}

	// One fetch is in flight; the rest must join it rather than start
	// their own.
	<-gated.entered
	time.Sleep(10 * time.Millisecond)
	close(gated.gate)
	wg.Wait()

	if got := counting.ReleaseCalls("alpha", "1.0"); got != 1 {
		t.Errorf("underlying Release called %d times, want 1", got)
	}
}

// stallingSource never answers; it only observes context cancellation.
type stallingSource struct{}

func (stallingSource) Versions(ctx context.Context, name string) ([]version.Version, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stallingSource) Release(ctx context.Context, name string, v version.Version) (*Candidate, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestResolveFetchTimeout(t *testing.T) {
	// A probe that exceeds the fetch timeout on a still-required package is
	// terminal for the run and surfaces as a wrapped fetch error.
	_, err := Resolve(context.Background(), []string{"alpha"},
		stallingSource{}, testOpts(WithFetchTimeout(5*time.Millisecond))...)

	var fetch *FetchError
	if !errors.As(err, &fetch) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if fetch.Name != "alpha" {
		t.Errorf("FetchError.Name = %q, want %q", fetch.Name, "alpha")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("FetchError does not wrap context.DeadlineExceeded")
	}
}

func TestResolveBacktrackingReusesCache(t *testing.T) {
	// The failed probe of alpha 2.0 and the retry path must not refetch
	// version lists.
	counting := NewCountingSource(NewMemorySource().
		AddRelease("alpha", "1.0", "beta >=1.0").
		AddRelease("alpha", "2.0", "beta >=2.0").
		AddRelease("beta", "1.5"))

	res, err := Resolve(context.Background(),
		[]string{"alpha", "beta >=1.0,<2.0"}, counting, testOpts()...)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	assertVersion(t, res, "alpha", "1.0")

	for _, name := range []string{"alpha", "beta"} {
		if got := counting.VersionsCalls(name); got != 1 {
			t.Errorf("Versions(%s) fetched %d times, want 1", name, got)
		}
	}
}
