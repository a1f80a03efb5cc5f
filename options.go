package depsolve

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/depsolve/go-depsolve/marker"
)

const defaultMaxConcurrency = 5

// Option configures resolution behavior.
type Option func(*resolverConfig) error

// resolverConfig holds all resolution configuration.
type resolverConfig struct {
	env             marker.Environment
	extras          []string
	maxConcurrency  int
	fetchTimeout    time.Duration
	allowPrerelease bool

	// logger is the structured logger for resolution diagnostics.
	// If nil, logging is disabled (silent mode).
	//
	// Design decision: *slog.Logger rather than a custom interface, because
	// slog separates frontend from backend by design; any backend (zap,
	// zerolog, etc.) plugs in via handlers. See: https://go.dev/blog/slog
	logger *slog.Logger
}

// WithEnvironment sets the target environment markers are evaluated
// against. An unset environment leaves every attribute undefined, so
// attribute comparisons evaluate to non-matching.
func WithEnvironment(env marker.Environment) Option {
	return func(c *resolverConfig) error {
		c.env = env
		return nil
	}
}

// LinuxEnvironment returns an environment describing a CPython interpreter
// on x86-64 Linux, the most common resolution target. pythonVersion is the
// "major.minor" interpreter version, e.g. "3.11".
func LinuxEnvironment(pythonVersion string) marker.Environment {
	return marker.Environment{
		OSName:             "posix",
		SysPlatform:        "linux",
		PlatformMachine:    "x86_64",
		PlatformSystem:     "Linux",
		PythonVersion:      pythonVersion,
		PythonFullVersion:  pythonVersion + ".0",
		ImplementationName: "cpython",
	}
}

// WithExtras requests extras on the root requirements' targets. Each name
// is normalized.
func WithExtras(extras ...string) Option {
	return func(c *resolverConfig) error {
		for _, x := range extras {
			c.extras = append(c.extras, marker.NormalizeExtra(x))
		}
		return nil
	}
}

// WithMaxConcurrency bounds concurrent metadata fetches during graph
// expansion. Zero or negative selects the default (5). The backtracking
// search itself is always sequential.
func WithMaxConcurrency(n int) Option {
	return func(c *resolverConfig) error {
		c.maxConcurrency = n
		return nil
	}
}

// WithFetchTimeout bounds each individual metadata fetch. A timed-out probe
// is treated as a missing candidate for that probe; it only fails the run
// when the package remains required by an active constraint.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *resolverConfig) error {
		c.fetchTimeout = d
		return nil
	}
}

// WithPrereleases admits pre-release and development versions as candidates
// even when no requirement mentions one. By default such versions are only
// eligible for packages some requirement explicitly pins to a pre-release.
func WithPrereleases() Option {
	return func(c *resolverConfig) error {
		c.allowPrerelease = true
		return nil
	}
}

// WithLogger sets a structured logger for resolution diagnostics.
// If not set, logging is disabled (silent mode).
//
// Example:
//
//	Resolve(ctx, m, source, WithLogger(slog.Default()))
func WithLogger(l *slog.Logger) Option {
	return func(c *resolverConfig) error {
		c.logger = l
		return nil
	}
}

// validate checks the configuration for logical consistency.
func (c *resolverConfig) validate() error {
	if c.fetchTimeout < 0 {
		return errors.New("fetch timeout must be positive")
	}
	return nil
}

// log returns the configured logger, or a no-op logger if none was set.
//
// Design: libraries are silent by default; users opt in via WithLogger().
func (c *resolverConfig) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.New(discardHandler{})
}

// discardHandler is a slog.Handler that discards all log records.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// newResolverConfig applies options over defaults and validates the result.
func newResolverConfig(opts ...Option) (*resolverConfig, error) {
	c := &resolverConfig{
		maxConcurrency: defaultMaxConcurrency,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.maxConcurrency <= 0 {
		c.maxConcurrency = defaultMaxConcurrency
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}
