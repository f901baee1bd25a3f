package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmptrader/WebVella-ERP/pkg/logger"
)

const defaultTimeout = 5 * time.Second

// Check and overall statuses.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// Checks maps a check name to its probe.
type Checks map[string]CheckFunc

// Optional marks a dependency the service can run without, such as a cache.
// Its failure degrades readiness instead of failing it.
func Optional(check CheckFunc) CheckFunc {
	return optional{check: check}.run
}

type optional struct{ check CheckFunc }

func (o optional) run(ctx context.Context) error {
	if err := o.check(ctx); err != nil {
		return degradedError{err}
	}
	return nil
}

type degradedError struct{ error }

func (e degradedError) Unwrap() error { return e.error }

// Response is the JSON body of the readiness endpoint.
type Response struct {
	Checks map[string]Check `json:"checks,omitempty"`
	Status string           `json:"status"`
}

// Check is the result of one probe.
type Check struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Elapsed string `json:"elapsed"`
}

type config struct {
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures ReadinessHandler.
type Option func(*config)

// WithTimeout bounds all checks together. Defaults to 5s.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func newConfig(opts ...Option) *config {
	cfg := &config{timeout: defaultTimeout, logger: logger.NewNope()}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Run executes checks in parallel under the configured timeout.
func Run(ctx context.Context, checks Checks, opts ...Option) *Response {
	return runChecks(ctx, checks, newConfig(opts...))
}

func runChecks(ctx context.Context, checks Checks, cfg *config) *Response {
	if len(checks) == 0 {
		return &Response{Status: StatusHealthy}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]Check, len(checks))
		overall = StatusHealthy
	)

	for name, check := range checks {
		wg.Go(func() {
			start := time.Now()
			result := Check{Status: StatusHealthy}
			if err := check(ctx); err != nil {
				result.Status = StatusUnhealthy
				if _, ok := err.(degradedError); ok {
					result.Status = StatusDegraded
				}
				result.Error = err.Error()
				cfg.logger.WarnContext(ctx, "health check failed",
					slog.String("check", name),
					slog.String("status", result.Status),
					slog.String("error", err.Error()))
			}
			result.Elapsed = time.Since(start).String()

			mu.Lock()
			defer mu.Unlock()
			results[name] = result
			if result.Status == StatusUnhealthy || (result.Status == StatusDegraded && overall == StatusHealthy) {
				overall = result.Status
			}
		})
	}
	wg.Wait()

	return &Response{Status: overall, Checks: results}
}
