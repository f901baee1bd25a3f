package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmptrader/WebVella-ERP/pkg/logger"
	"github.com/jmptrader/WebVella-ERP/pkg/mailer"
)

// Outcome is the result of one send attempt.
type Outcome struct {
	Status EmailStatus
	// Err is the precondition or transport failure; nil when sent.
	Err error
}

// Sent reports whether the attempt delivered the email.
func (o Outcome) Sent() bool { return o.Status == StatusSent && o.Err == nil }

// Sender performs one delivery attempt for an email and persists the result.
type Sender struct {
	emails    EmailStore
	transport Transport
	opts      options
}

// NewSender creates a Sender.
func NewSender(emails EmailStore, transport Transport, opts ...Option) *Sender {
	return &Sender{emails: emails, transport: transport, opts: newOptions(opts)}
}

// Send attempts delivery of email through svc. A nil or disabled service
// aborts the email without touching the transport; a transport failure is
// handed to the retry schedule. The email is written to the store exactly
// once per call, including when the transport panics. The returned error is
// reserved for that write failing.
func (s *Sender) Send(ctx context.Context, email *Email, svc *SmtpService) (out Outcome, err error) {
	ctx = logger.WithAttrs(ctx, slog.String("email_id", email.ID.String()))
	start := s.opts.now()

	defer func() {
		email.PrepareSearch()
		// Persist even when the caller has gone away; the attempt already happened.
		if uerr := s.emails.UpdateEmail(context.WithoutCancel(ctx), email); uerr != nil {
			err = errors.Join(ErrPersistEmail, uerr)
			s.opts.log.ErrorContext(ctx, "failed to persist email after send attempt",
				slog.String("status", email.Status.String()),
				slog.String("error", uerr.Error()))
		}
		s.opts.observer.AttemptFinished(svc, email, s.opts.now().Sub(start))
	}()

	switch {
	case svc == nil:
		abort(email, MsgServiceNotFound)
		s.opts.log.WarnContext(ctx, "email aborted", slog.String("reason", MsgServiceNotFound))
		return Outcome{Status: email.Status, Err: ErrServiceNotFound}, nil
	case !svc.IsEnabled:
		abort(email, MsgServiceDisabled)
		s.opts.log.WarnContext(ctx, "email aborted",
			slog.String("service_id", svc.ID.String()),
			slog.String("reason", MsgServiceDisabled))
		return Outcome{Status: email.Status, Err: ErrServiceDisabled}, nil
	}

	if terr := s.deliver(ctx, svc, email.message()); terr != nil {
		scheduleRetry(email, svc, terr, s.opts.now())
		level := slog.LevelWarn
		if email.Status == StatusAborted {
			level = slog.LevelError
		}
		s.opts.log.Log(ctx, level, "email delivery failed",
			slog.String("service_id", svc.ID.String()),
			slog.String("status", email.Status.String()),
			slog.Int("retries", email.RetriesCount),
			slog.String("error", terr.Error()))
		return Outcome{Status: email.Status, Err: terr}, nil
	}

	markSent(email, s.opts.now())
	s.opts.log.InfoContext(ctx, "email sent", slog.String("service_id", svc.ID.String()))
	return Outcome{Status: email.Status}, nil
}

// deliver calls the transport under the attempt timeout and converts a panic into an error.
func (s *Sender) deliver(ctx context.Context, svc *SmtpService, msg *mailer.Email) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.sendTimeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrTransportPanic, p)
		}
	}()

	return s.transport.Send(ctx, svc, msg)
}
