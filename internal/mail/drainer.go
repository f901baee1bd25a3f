package mail

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jmptrader/WebVella-ERP/pkg/logger"
)

// DrainBatchSize is the number of due emails fetched per query.
const DrainBatchSize = 10

// DrainResult summarizes one Drain call.
type DrainResult struct {
	// Skipped is set when another drain was already running in this process.
	Skipped   bool `json:"skipped"`
	Batches   int  `json:"batches"`
	Processed int  `json:"processed"`
	Sent      int  `json:"sent"`
	Retrying  int  `json:"retrying"`
	Aborted   int  `json:"aborted"`
}

func (r *DrainResult) count(status EmailStatus) {
	r.Processed++
	switch status {
	case StatusSent:
		r.Sent++
	case StatusPending:
		r.Retrying++
	case StatusAborted:
		r.Aborted++
	}
}

// Drainer sends every due email, one batch at a time, until none remain.
// At most one Drain runs per Drainer; overlapping calls return Skipped.
type Drainer struct {
	running   atomic.Bool
	emails    EmailStore
	directory ServiceDirectory
	sender    *Sender
	opts      options
}

// NewDrainer creates a Drainer.
func NewDrainer(emails EmailStore, directory ServiceDirectory, sender *Sender, opts ...Option) *Drainer {
	return &Drainer{emails: emails, directory: directory, sender: sender, opts: newOptions(opts)}
}

// Running reports whether a drain is in progress.
func (d *Drainer) Running() bool {
	return d.running.Load()
}

// Drain processes due emails ordered by priority then due time. Delivery
// failures are recorded on each email and never stop the sweep; store and
// directory failures do, since continuing would refetch the same rows.
func (d *Drainer) Drain(ctx context.Context) (res DrainResult, err error) {
	if !d.running.CompareAndSwap(false, true) {
		d.opts.log.DebugContext(ctx, "queue drain already running, skipping")
		return DrainResult{Skipped: true}, nil
	}
	defer d.running.Store(false)

	ctx = logger.WithAttrs(ctx, slog.String("drain_id", uuid.NewString()))
	if r, ok := d.directory.(Refresher); ok && d.opts.refresh {
		r.Refresh(ctx)
	}
	start := d.opts.now()
	defer func() {
		d.opts.observer.DrainFinished(res, d.opts.now().Sub(start))
		if err != nil {
			d.opts.log.ErrorContext(ctx, "queue drain stopped", slog.Int("processed", res.Processed), slog.String("error", err.Error()))
			return
		}
		if res.Processed > 0 {
			d.opts.log.InfoContext(ctx, "queue drained",
				slog.Int("batches", res.Batches),
				slog.Int("processed", res.Processed),
				slog.Int("sent", res.Sent),
				slog.Int("retrying", res.Retrying),
				slog.Int("aborted", res.Aborted))
		}
	}()

	pending := StatusPending
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		now := d.opts.now().UTC()
		batch, err := d.emails.ListEmails(ctx, EmailFilter{
			Status:    &pending,
			DueBefore: &now,
			Order:     OrderDue,
			Limit:     DrainBatchSize,
		})
		if err != nil {
			return res, errors.Join(ErrListDue, err)
		}
		if len(batch) == 0 {
			return res, nil
		}
		res.Batches++

		for _, email := range batch {
			status, err := d.process(ctx, email)
			if err != nil {
				return res, err
			}
			res.count(status)
		}
	}
}

func (d *Drainer) process(ctx context.Context, email *Email) (EmailStatus, error) {
	svc, err := d.directory.Resolve(ctx, email.ServiceID)
	if err != nil {
		return email.Status, err
	}
	if svc == nil {
		abort(email, MsgServiceNotFound)
		email.PrepareSearch()
		if err := d.emails.UpdateEmail(context.WithoutCancel(ctx), email); err != nil {
			return email.Status, errors.Join(ErrPersistEmail, err)
		}
		d.opts.observer.AttemptFinished(nil, email, 0)
		d.opts.log.WarnContext(ctx, "email aborted",
			slog.String("email_id", email.ID.String()),
			slog.String("service_id", email.ServiceID.String()),
			slog.String("reason", MsgServiceNotFound))
		return email.Status, nil
	}

	out, err := d.sender.Send(ctx, email, svc)
	return out.Status, err
}
