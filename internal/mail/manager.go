package mail

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jmptrader/WebVella-ERP/pkg/logger"
	"github.com/jmptrader/WebVella-ERP/pkg/mailer"
	"github.com/jmptrader/WebVella-ERP/pkg/sanitizer"
	"github.com/jmptrader/WebVella-ERP/pkg/validator"
)

// Manager is the entry point for email and SMTP service operations.
type Manager struct {
	emails    EmailStore
	services  ServiceStore
	directory ServiceDirectory
	transport Transport
	sender    *Sender
	drainer   *Drainer
	defaults  *defaultEnforcer
	opts      options
}

// NewManager wires the engine. A nil directory resolves services straight
// from the store.
func NewManager(emails EmailStore, services ServiceStore, directory ServiceDirectory, transport Transport, opts ...Option) *Manager {
	if directory == nil {
		directory = NewStoreDirectory(services)
	}
	o := newOptions(opts)
	sender := NewSender(emails, transport, opts...)
	return &Manager{
		emails:    emails,
		services:  services,
		directory: directory,
		transport: transport,
		sender:    sender,
		drainer:   NewDrainer(emails, directory, sender, opts...),
		defaults:  &defaultEnforcer{services: services, log: o.log},
		opts:      o,
	}
}

// Drainer returns the queue drainer shared by all triggers.
func (m *Manager) Drainer() *Drainer { return m.drainer }

// ProcessQueue drains due emails. It is a no-op when a drain is already running.
func (m *Manager) ProcessQueue(ctx context.Context) (DrainResult, error) {
	return m.drainer.Drain(ctx)
}

// Services

func (m *Manager) GetService(ctx context.Context, id uuid.UUID) (*SmtpService, error) {
	return m.services.GetService(ctx, id)
}

func (m *Manager) ListServices(ctx context.Context) ([]*SmtpService, error) {
	return m.services.ListServices(ctx)
}

// CreateService validates and stores a new service. Omitted fields take
// their defaults; the first service created becomes the default.
func (m *Manager) CreateService(ctx context.Context, in ServiceInput) (*SmtpService, error) {
	in = in.withCreateDefaults()
	id := uuid.New()

	svc, demoted, err := m.defaults.save(ctx, in,
		func(context.Context, ServiceStore) (*SmtpService, *SmtpService, error) {
			svc := &SmtpService{ID: id}
			in.apply(svc)
			return nil, svc, nil
		},
		func(ctx context.Context, tx ServiceStore, svc *SmtpService) error {
			return tx.CreateService(ctx, svc)
		})
	if err != nil {
		return nil, err
	}
	m.invalidate(ctx, demoted...)

	m.opts.log.InfoContext(ctx, "smtp service created",
		slog.String("service_id", svc.ID.String()),
		slog.Bool("is_default", svc.IsDefault))
	return svc, nil
}

// UpdateService applies the fields present in in.
func (m *Manager) UpdateService(ctx context.Context, id uuid.UUID, in ServiceInput) (*SmtpService, error) {
	svc, demoted, err := m.defaults.save(ctx, in,
		func(ctx context.Context, tx ServiceStore) (*SmtpService, *SmtpService, error) {
			current, err := tx.GetService(ctx, id)
			if err != nil {
				return nil, nil, err
			}
			next := *current
			in.apply(&next)
			return current, &next, nil
		},
		func(ctx context.Context, tx ServiceStore, svc *SmtpService) error {
			return tx.UpdateService(ctx, svc)
		})
	if err != nil {
		return nil, err
	}
	m.invalidate(ctx, append(demoted, id)...)

	m.opts.log.InfoContext(ctx, "smtp service updated", slog.String("service_id", id.String()))
	return svc, nil
}

// DeleteService removes a service. The default service cannot be deleted.
func (m *Manager) DeleteService(ctx context.Context, id uuid.UUID) error {
	if err := m.defaults.remove(ctx, id); err != nil {
		return err
	}
	m.invalidate(ctx, id)
	m.opts.log.InfoContext(ctx, "smtp service deleted", slog.String("service_id", id.String()))
	return nil
}

func (m *Manager) invalidate(ctx context.Context, ids ...uuid.UUID) {
	if inv, ok := m.directory.(Invalidator); ok && len(ids) > 0 {
		inv.Invalidate(ctx, ids...)
	}
}

// serviceOrDefault returns the service with id, or the default one for uuid.Nil.
func (m *Manager) serviceOrDefault(ctx context.Context, id uuid.UUID) (*SmtpService, error) {
	if id == uuid.Nil {
		return m.services.GetDefaultService(ctx)
	}
	return m.services.GetService(ctx, id)
}

// Emails

// QueueRequest describes an email to enqueue. Sender and reply-to fall back
// to the service defaults.
type QueueRequest struct {
	// ServiceID selects the relay; uuid.Nil means the default service.
	ServiceID      uuid.UUID  `json:"service_id"`
	SenderName     string     `json:"sender_name"`
	SenderEmail    string     `json:"sender_email"`
	RecipientName  string     `json:"recipient_name"`
	RecipientEmail string     `json:"recipient_email"`
	ReplyToEmail   string     `json:"reply_to_email"`
	Subject        string     `json:"subject"`
	ContentText    string     `json:"content_text"`
	ContentHTML    string     `json:"content_html"`
	// Priority defaults to PriorityNormal.
	Priority       *Priority  `json:"priority"`
	ScheduledOn    *time.Time `json:"scheduled_on"`
}

func (r QueueRequest) validate() error {
	rules := []validator.Rule{
		validator.RequiredString("recipient_email", r.RecipientEmail).WithMessage(MsgRecipientRequired),
	}
	if strings.TrimSpace(r.RecipientEmail) != "" {
		rules = append(rules, validator.Email("recipient_email", r.RecipientEmail).WithMessage(MsgRecipientInvalid))
	}
	if r.SenderEmail != "" {
		rules = append(rules, validator.Email("sender_email", r.SenderEmail))
	}
	if r.ReplyToEmail != "" {
		rules = append(rules, validator.Email("reply_to_email", r.ReplyToEmail))
	}
	if r.Priority != nil && (*r.Priority < PriorityLow || *r.Priority > PriorityHigh) {
		rules = append(rules, validator.Custom("priority", func() bool { return false }, ErrInvalidPriority.Error()))
	}
	return validator.Apply(rules...)
}

// QueueEmail stores a pending email for the next drain. Without an explicit
// schedule it is due immediately.
func (m *Manager) QueueEmail(ctx context.Context, req QueueRequest) (*Email, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	svc, err := m.serviceOrDefault(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}

	now := m.opts.now().UTC()
	email := &Email{
		ID:             uuid.New(),
		ServiceID:      svc.ID,
		SenderName:     req.SenderName,
		SenderEmail:    req.SenderEmail,
		RecipientName:  req.RecipientName,
		RecipientEmail: req.RecipientEmail,
		ReplyToEmail:   req.ReplyToEmail,
		Subject:        req.Subject,
		ContentHTML:    req.ContentHTML,
		ContentText:    req.ContentText,
		Priority:       PriorityNormal,
		Status:         StatusPending,
		CreatedOn:      now,
		ScheduledOn:    &now,
	}
	if email.SenderEmail == "" {
		email.SenderName = svc.DefaultFromName
		email.SenderEmail = svc.DefaultFromEmail
	}
	if email.ReplyToEmail == "" {
		email.ReplyToEmail = svc.DefaultReplyToEmail
	}
	if email.ContentText == "" && email.ContentHTML != "" {
		email.ContentText = sanitizer.HTMLToText(email.ContentHTML)
	}
	if req.Priority != nil {
		email.Priority = *req.Priority
	}
	if req.ScheduledOn != nil {
		at := req.ScheduledOn.UTC()
		email.ScheduledOn = &at
	}
	email.PrepareSearch()

	if err := m.emails.CreateEmail(ctx, email); err != nil {
		return nil, errors.Join(ErrPersistEmail, err)
	}

	ctx = logger.WithAttrs(ctx, slog.String("email_id", email.ID.String()))
	m.opts.log.InfoContext(ctx, "email queued",
		slog.String("service_id", svc.ID.String()),
		slog.String("priority", email.Priority.String()),
		slog.Time("scheduled_on", *email.ScheduledOn))
	m.notify(ctx, *email.ScheduledOn)
	return email, nil
}

func (m *Manager) notify(ctx context.Context, at time.Time) {
	if m.opts.notifier == nil {
		return
	}
	if err := m.opts.notifier.NotifyDue(ctx, at); err != nil {
		m.opts.log.WarnContext(ctx, "failed to schedule queue drain", slog.String("error", err.Error()))
	}
}

// SaveEmail updates email when it exists and creates it otherwise.
func (m *Manager) SaveEmail(ctx context.Context, email *Email) error {
	email.PrepareSearch()
	err := m.emails.UpdateEmail(ctx, email)
	if errors.Is(err, ErrEmailNotFound) {
		if email.CreatedOn.IsZero() {
			email.CreatedOn = m.opts.now().UTC()
		}
		err = m.emails.CreateEmail(ctx, email)
	}
	if err != nil {
		return errors.Join(ErrPersistEmail, err)
	}
	return nil
}

func (m *Manager) GetEmail(ctx context.Context, id uuid.UUID) (*Email, error) {
	return m.emails.GetEmail(ctx, id)
}

func (m *Manager) ListEmails(ctx context.Context, filter EmailFilter) ([]*Email, error) {
	return m.emails.ListEmails(ctx, filter)
}

// SendNow makes one delivery attempt for the email regardless of its schedule.
// Emails already sent or aborted are returned unchanged.
func (m *Manager) SendNow(ctx context.Context, id uuid.UUID) (*Email, Outcome, error) {
	email, err := m.emails.GetEmail(ctx, id)
	if err != nil {
		return nil, Outcome{}, err
	}
	if email.Status.Terminal() {
		return email, Outcome{Status: email.Status}, nil
	}
	svc, err := m.directory.Resolve(ctx, email.ServiceID)
	if err != nil {
		return nil, Outcome{}, errors.Join(ErrResolveService, err)
	}
	out, err := m.sender.Send(ctx, email, svc)
	return email, out, err
}

// Requeue resets an email to pending, due now, with a fresh attempt count.
func (m *Manager) Requeue(ctx context.Context, id uuid.UUID) (*Email, error) {
	email, err := m.emails.GetEmail(ctx, id)
	if err != nil {
		return nil, err
	}
	now := m.opts.now().UTC()
	email.Status = StatusPending
	email.ScheduledOn = &now
	email.SentOn = nil
	email.RetriesCount = 0
	email.ServerError = ""
	email.PrepareSearch()
	if err := m.emails.UpdateEmail(ctx, email); err != nil {
		return nil, errors.Join(ErrPersistEmail, err)
	}

	ctx = logger.WithAttrs(ctx, slog.String("email_id", email.ID.String()))
	m.opts.log.InfoContext(ctx, "email requeued")
	m.notify(ctx, now)
	return email, nil
}

// TestRequest is a one-off message used to check a service's settings.
type TestRequest struct {
	RecipientEmail string `json:"recipient_email"`
	Subject        string `json:"subject"`
	Content        string `json:"content"`
}

func (r TestRequest) validate() error {
	rules := []validator.Rule{
		validator.RequiredString("recipient_email", r.RecipientEmail).WithMessage(MsgRecipientRequired),
	}
	if strings.TrimSpace(r.RecipientEmail) != "" {
		rules = append(rules, validator.Email("recipient_email", r.RecipientEmail).WithMessage(MsgRecipientInvalid))
	}
	rules = append(rules,
		validator.RequiredString("subject", r.Subject).WithMessage(MsgSubjectRequired),
		validator.RequiredString("content", r.Content).WithMessage(MsgContentRequired),
	)
	return validator.Apply(rules...)
}

// TestService sends req through the service directly. Nothing is stored and
// the transport error is returned as is.
func (m *Manager) TestService(ctx context.Context, id uuid.UUID, req TestRequest) error {
	if err := req.validate(); err != nil {
		return err
	}
	svc, err := m.services.GetService(ctx, id)
	if err != nil {
		return err
	}
	msg := &mailer.Email{
		From:    mailer.Recipient(svc.DefaultFromName, svc.DefaultFromEmail),
		To:      []mailer.Address{mailer.Recipient("", req.RecipientEmail)},
		Subject: req.Subject,
		HTML:    req.Content,
	}
	if svc.DefaultReplyToEmail != "" {
		msg.ReplyTo = mailer.Recipient("", svc.DefaultReplyToEmail)
	}
	ctx, cancel := context.WithTimeout(ctx, m.opts.sendTimeout)
	defer cancel()

	if err := m.transport.Send(ctx, svc, msg); err != nil {
		m.opts.log.WarnContext(ctx, "smtp service test failed",
			slog.String("service_id", id.String()),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}
