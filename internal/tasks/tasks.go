// Package tasks exposes the mail engine's triggers as background jobs.
package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jmptrader/WebVella-ERP/internal/mail"
	"github.com/jmptrader/WebVella-ERP/pkg/job"
	"github.com/jmptrader/WebVella-ERP/pkg/logger"
)

const (
	ProcessQueueName = "process_email_queue"
	SendEmailName    = "send_email"
)

// KickQueue serves the extra sweeps scheduled by Kicker, apart from the
// periodic ones in the default queue.
const (
	KickQueue   = "mail_kick"
	KickWorkers = 2
)

var ErrNotBound = errors.New("tasks: job enqueuer not bound yet")

// DefaultQueueSchedule runs the sweep every minute.
const DefaultQueueSchedule = "* * * * *"

// Drainer is satisfied by *mail.Manager.
type Drainer interface {
	ProcessQueue(ctx context.Context) (mail.DrainResult, error)
}

// ProcessQueue sweeps due emails on a cron schedule.
type ProcessQueue struct {
	drainer  Drainer
	schedule string
	log      *slog.Logger
}

// NewProcessQueue creates the periodic sweep. An empty schedule uses DefaultQueueSchedule.
func NewProcessQueue(d Drainer, schedule string, log *slog.Logger) *ProcessQueue {
	if schedule == "" {
		schedule = DefaultQueueSchedule
	}
	if log == nil {
		log = logger.NewNope()
	}
	return &ProcessQueue{drainer: d, schedule: schedule, log: log}
}

func (t *ProcessQueue) Name() string     { return ProcessQueueName }
func (t *ProcessQueue) Schedule() string { return t.schedule }
func (t *ProcessQueue) RunOnStart() bool { return true }

// Handle runs one drain. A skipped drain is not an error.
func (t *ProcessQueue) Handle(ctx context.Context) error {
	res, err := t.drainer.ProcessQueue(ctx)
	if err != nil {
		return err
	}
	if res.Skipped {
		t.log.DebugContext(ctx, "queue drain skipped, another sweep is running")
	}
	return nil
}

// SendEmailPayload identifies the email to send.
type SendEmailPayload struct {
	EmailID uuid.UUID `json:"email_id"`
}

// EmailSender is satisfied by *mail.Manager.
type EmailSender interface {
	SendNow(ctx context.Context, id uuid.UUID) (*mail.Email, mail.Outcome, error)
}

// SendEmail makes one delivery attempt for a single email outside the sweep.
type SendEmail struct {
	sender EmailSender
}

func NewSendEmail(s EmailSender) *SendEmail {
	return &SendEmail{sender: s}
}

func (t *SendEmail) Name() string { return SendEmailName }

// Handle returns only store errors. Delivery failures are already recorded
// on the email and retried by the queue, so the job itself succeeds.
func (t *SendEmail) Handle(ctx context.Context, p SendEmailPayload) error {
	_, _, err := t.sender.SendNow(ctx, p.EmailID)
	if errors.Is(err, mail.ErrEmailNotFound) {
		return nil
	}
	return err
}

// Enqueuer is satisfied by *job.Manager.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload any, opts ...job.EnqueueOption) error
	EnqueueTx(ctx context.Context, tx pgx.Tx, name string, payload any, opts ...job.EnqueueOption) error
}

// LateEnqueuer forwards to an Enqueuer bound after construction, for
// components built before the job manager exists.
type LateEnqueuer struct {
	mu     sync.RWMutex
	target Enqueuer
}

// Bind sets the target. Calls before Bind fail with ErrNotBound.
func (l *LateEnqueuer) Bind(e Enqueuer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.target = e
}

func (l *LateEnqueuer) get() (Enqueuer, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.target == nil {
		return nil, ErrNotBound
	}
	return l.target, nil
}

func (l *LateEnqueuer) Enqueue(ctx context.Context, name string, payload any, opts ...job.EnqueueOption) error {
	e, err := l.get()
	if err != nil {
		return err
	}
	return e.Enqueue(ctx, name, payload, opts...)
}

func (l *LateEnqueuer) EnqueueTx(ctx context.Context, tx pgx.Tx, name string, payload any, opts ...job.EnqueueOption) error {
	e, err := l.get()
	if err != nil {
		return err
	}
	return e.EnqueueTx(ctx, tx, name, payload, opts...)
}

// Kicker schedules an extra sweep just after an email becomes due, so
// emails queued for a specific time do not wait for the next cron tick.
// Kicks landing in the same minute collapse into one job. They run in
// KickQueue and are not retried: the cron sweep covers a failed kick.
type Kicker struct {
	jobs Enqueuer
}

func NewKicker(jobs Enqueuer) *Kicker {
	return &Kicker{jobs: jobs}
}

func kickOptions(at time.Time) []job.EnqueueOption {
	// The drain takes rows strictly before now; run just after at.
	run := at.Add(time.Second)
	return []job.EnqueueOption{
		job.InQueue(KickQueue),
		job.ScheduledAt(run),
		job.UniqueFor(time.Minute, run.UTC().Truncate(time.Minute).Format(time.RFC3339)),
		job.MaxAttempts(1),
		job.Tags("kick"),
	}
}

// NotifyDue implements mail.QueueNotifier.
func (k *Kicker) NotifyDue(ctx context.Context, at time.Time) error {
	return k.jobs.Enqueue(ctx, ProcessQueueName, nil, kickOptions(at)...)
}

// KickTx enqueues the kick for a new pending email inside its insert
// transaction, so a committed email always has its sweep scheduled. It has
// the repository.InsertHook signature.
func (k *Kicker) KickTx(ctx context.Context, tx pgx.Tx, e *mail.Email) error {
	if e.Status != mail.StatusPending || e.ScheduledOn == nil {
		return nil
	}
	return k.jobs.EnqueueTx(ctx, tx, ProcessQueueName, nil, kickOptions(*e.ScheduledOn)...)
}
