package mail

import (
	"log/slog"
	"time"

	"github.com/jmptrader/WebVella-ERP/pkg/logger"
)

// DefaultSendTimeout bounds one transport attempt.
const DefaultSendTimeout = 30 * time.Second

type options struct {
	log         *slog.Logger
	now         func() time.Time
	observer    Observer
	notifier    QueueNotifier
	sendTimeout time.Duration
	refresh     bool
}

func newOptions(opts []Option) options {
	o := options{
		log:         logger.NewNope(),
		now:         time.Now,
		observer:    nopObserver{},
		sendTimeout: DefaultSendTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures a Sender, Drainer or Manager.
type Option func(*options)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithObserver registers an outcome observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithQueueNotifier registers the notifier used after queueing or requeueing.
func WithQueueNotifier(n QueueNotifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithSendTimeout bounds each transport attempt. Non-positive values keep the default.
func WithSendTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.sendTimeout = d
		}
	}
}

// WithServiceRefresh makes every drain start by dropping cached SMTP
// services, so changes written by other processes apply from the next sweep.
// It only affects directories that implement Refresher.
func WithServiceRefresh(on bool) Option {
	return func(o *options) {
		o.refresh = on
	}
}
