package job

import (
	"context"
	"log/slog"
)

type config struct {
	registry   *registry
	queues     map[string]int
	logger     *slog.Logger
	schedules  []schedule
	maxWorkers int
}

func newConfig() *config {
	return &config{
		registry: newRegistry(),
		queues:   make(map[string]int),
	}
}

type schedule struct {
	name       string
	cron       string
	runOnStart bool
	handle     func(context.Context) error
}

// Option configures the Manager.
type Option func(*config)

// WithTask registers a task whose Handle takes a JSON payload of type P.
func WithTask[P any, T interface {
	Name() string
	Handle(context.Context, P) error
}](task T) Option {
	return func(c *config) {
		c.registry.register(task.Name(), payloadTask[P, T]{task: task})
	}
}

// WithScheduledTask registers a periodic task. Schedule returns a
// five-field cron expression. Tasks that also implement RunOnStart() bool
// returning true fire once when the manager starts.
func WithScheduledTask[T interface {
	Name() string
	Schedule() string
	Handle(context.Context) error
}](task T) Option {
	return func(c *config) {
		s := schedule{name: task.Name(), cron: task.Schedule(), handle: task.Handle}
		if r, ok := any(task).(interface{ RunOnStart() bool }); ok {
			s.runOnStart = r.RunOnStart()
		}
		c.schedules = append(c.schedules, s)
	}
}

// WithQueue adds a named queue served by workers goroutines.
func WithQueue(name string, workers int) Option {
	return func(c *config) {
		if workers > 0 {
			c.queues[name] = workers
		}
	}
}

// WithLogger sets the logger for the manager and River.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxWorkers sets the worker count of the default queue. Defaults to 100.
func WithMaxWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}
