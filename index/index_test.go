package index

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	depsolve "github.com/depsolve/go-depsolve"
	"github.com/depsolve/go-depsolve/version"
)

const sampleSnapshot = `
[packages.alpha]
name = "alpha"

[packages.alpha.releases."1.0.0"]
requirements = ["beta >=1.0"]

[packages.alpha.releases."1.5.0"]
requirements = ["beta >=1.2"]
extras = ["fast"]

[[packages.alpha.releases."1.5.0".artifacts]]
file = "alpha-1.5.0.tar.gz"
digest = "sha256:9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

[packages.beta]
name = "beta"

[packages.beta.releases."1.2"]
`

func TestFileSource(t *testing.T) {
	source, err := ParseFileSource([]byte(sampleSnapshot))
	if err != nil {
		t.Fatalf("ParseFileSource error: %v", err)
	}
	if source.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", source.Len())
	}

	ctx := context.Background()

	versions, err := source.Versions(ctx, "alpha")
	if err != nil {
		t.Fatalf("Versions error: %v", err)
	}
	if len(versions) != 2 || versions[0].String() != "1.0.0" || versions[1].String() != "1.5.0" {
		t.Errorf("versions = %v", versions)
	}

	cand, err := source.Release(ctx, "alpha", version.MustParse("1.5.0"))
	if err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if len(cand.Requirements) != 1 || cand.Requirements[0].Name != "beta" {
		t.Errorf("requirements = %v", cand.Requirements)
	}
	if len(cand.Artifacts) != 1 || cand.Artifacts[0].File != "alpha-1.5.0.tar.gz" {
		t.Errorf("artifacts = %v", cand.Artifacts)
	}

	if _, err := source.Versions(ctx, "ghost"); !errors.Is(err, depsolve.ErrPackageNotFound) {
		t.Errorf("unknown package error = %v, want ErrPackageNotFound", err)
	}
	if _, err := source.Release(ctx, "alpha", version.MustParse("9.9")); !errors.Is(err, depsolve.ErrVersionNotFound) {
		t.Errorf("unknown version error = %v, want ErrVersionNotFound", err)
	}
}

func TestFileSourceResolves(t *testing.T) {
	source, err := ParseFileSource([]byte(sampleSnapshot))
	if err != nil {
		t.Fatalf("ParseFileSource error: %v", err)
	}

	res, err := depsolve.Resolve(context.Background(), []string{"alpha >=1.0"}, source,
		depsolve.WithEnvironment(depsolve.LinuxEnvironment("3.11")))
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if res.Summary.TotalPackages != 2 {
		t.Errorf("TotalPackages = %d, want 2", res.Summary.TotalPackages)
	}
}

func TestHTTPSource(t *testing.T) {
	const alphaDoc = `{
		"name": "alpha",
		"releases": {
			"1.0": {"requirements": ["beta >=1.0"]},
			"2.0": {}
		}
	}`

	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/alpha/index.json":
			hits++
			_, _ = w.Write([]byte(alphaDoc))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	source := NewHTTPSource(server.URL)
	ctx := context.Background()

	versions, err := source.Versions(ctx, "alpha")
	if err != nil {
		t.Fatalf("Versions error: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("got %d versions, want 2", len(versions))
	}

	cand, err := source.Release(ctx, "alpha", version.MustParse("1.0"))
	if err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if len(cand.Requirements) != 1 || cand.Requirements[0].Name != "beta" {
		t.Errorf("requirements = %v", cand.Requirements)
	}

	// Both calls share one cached document fetch.
	if hits != 1 {
		t.Errorf("index fetched %d times, want 1", hits)
	}

	// 404 maps to the not-found sentinel; names normalize before lookup.
	if _, err := source.Versions(ctx, "Ghost_Pkg"); !errors.Is(err, depsolve.ErrPackageNotFound) {
		t.Errorf("missing package error = %v, want ErrPackageNotFound", err)
	}
}

func TestHTTPSourceServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewHTTPSource(server.URL).Versions(context.Background(), "alpha")
	if err == nil {
		t.Fatal("Versions succeeded against a failing server")
	}
	if errors.Is(err, depsolve.ErrPackageNotFound) {
		t.Error("transport failure misclassified as package-not-found")
	}
}
