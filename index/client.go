package index

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	depsolve "github.com/depsolve/go-depsolve"
	"github.com/depsolve/go-depsolve/version"
)

// Client configuration defaults.
const (
	DefaultMaxIdleConns        = 50
	DefaultMaxIdleConnsPerHost = 20
	DefaultIdleConnTimeout     = 90 * time.Second
	DefaultRequestTimeout      = 15 * time.Second
)

// HTTPSource fetches package metadata from a JSON index over HTTP.
// It implements depsolve.MetadataSource.
type HTTPSource struct {
	baseURL string
	client  *http.Client

	// Project documents cached by normalized name.
	projects sync.Map // map[string]*Project
}

var _ depsolve.MetadataSource = (*HTTPSource)(nil)

// ClientOption configures an HTTPSource.
type ClientOption func(*HTTPSource)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(s *HTTPSource) {
		s.client = client
	}
}

// WithTimeout sets a custom HTTP request timeout. Zero or negative values
// fall back to the default timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(s *HTTPSource) {
		if timeout > 0 {
			s.client.Timeout = timeout
		} else {
			s.client.Timeout = DefaultRequestTimeout
		}
	}
}

// NewHTTPSource creates a source for the given index base URL.
func NewHTTPSource(baseURL string, opts ...ClientOption) *HTTPSource {
	transport := &http.Transport{
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	}

	s := &HTTPSource{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout:   DefaultRequestTimeout,
			Transport: transport,
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// BaseURL returns the index base URL.
func (s *HTTPSource) BaseURL() string {
	return s.baseURL
}

// Versions returns every published version of the named package.
func (s *HTTPSource) Versions(ctx context.Context, name string) ([]version.Version, error) {
	p, err := s.project(ctx, name)
	if err != nil {
		return nil, err
	}
	return p.versions()
}

// Release returns the candidate for one published version.
func (s *HTTPSource) Release(ctx context.Context, name string, v version.Version) (*depsolve.Candidate, error) {
	p, err := s.project(ctx, name)
	if err != nil {
		return nil, err
	}
	return p.candidate(depsolve.NormalizeName(name), v)
}

// ClearCache removes all cached project documents.
func (s *HTTPSource) ClearCache() {
	s.projects = sync.Map{}
}

// project fetches and caches the index document for one package.
func (s *HTTPSource) project(ctx context.Context, name string) (*Project, error) {
	name = depsolve.NormalizeName(name)
	if cached, ok := s.projects.Load(name); ok {
		return cached.(*Project), nil
	}

	url := fmt.Sprintf("%s/%s/index.json", s.baseURL, name)
	data, err := s.fetch(ctx, url, name)
	if err != nil {
		return nil, err
	}

	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse index document for %s: %w", name, err)
	}

	s.projects.Store(name, &p)
	return &p, nil
}

// fetch performs an HTTP GET and returns the response body. A 404 maps to
// ErrPackageNotFound so the resolver can distinguish missing packages from
// transport failures.
func (s *HTTPSource) fetch(ctx context.Context, url, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	case http.StatusNotFound:
		return nil, fmt.Errorf("package %s: %w", name, depsolve.ErrPackageNotFound)
	default:
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, url)
	}
}
