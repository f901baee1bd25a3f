package mail

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jmptrader/WebVella-ERP/pkg/mailer"
)

// EmailOrder selects the ordering of ListEmails.
type EmailOrder int

const (
	// OrderNewest sorts by created_on descending.
	OrderNewest EmailOrder = iota
	// OrderDue sorts by priority descending, then scheduled_on ascending.
	OrderDue
)

// EmailFilter narrows ListEmails. Zero values mean "no constraint".
type EmailFilter struct {
	Status *EmailStatus
	// DueBefore keeps rows with a non-null scheduled_on strictly before it.
	DueBefore *time.Time
	// Search is a case-insensitive substring match on XSearch.
	Search string
	Order  EmailOrder
	Limit  int
	Offset int
}

// EmailStore persists emails.
type EmailStore interface {
	// GetEmail returns ErrEmailNotFound when no row matches.
	GetEmail(ctx context.Context, id uuid.UUID) (*Email, error)
	CreateEmail(ctx context.Context, email *Email) error
	// UpdateEmail returns ErrEmailNotFound when no row matches.
	UpdateEmail(ctx context.Context, email *Email) error
	ListEmails(ctx context.Context, filter EmailFilter) ([]*Email, error)
}

// ServiceStore persists SMTP services. Writes made through the store passed
// to WithinTx commit or roll back together.
type ServiceStore interface {
	// GetService returns ErrServiceNotFound when no row matches.
	GetService(ctx context.Context, id uuid.UUID) (*SmtpService, error)
	// GetDefaultService returns ErrNoDefaultService when no service is flagged.
	GetDefaultService(ctx context.Context) (*SmtpService, error)
	// FindServicesByName matches name exactly, case-sensitive.
	FindServicesByName(ctx context.Context, name string) ([]*SmtpService, error)
	ListServices(ctx context.Context) ([]*SmtpService, error)
	CreateService(ctx context.Context, svc *SmtpService) error
	UpdateService(ctx context.Context, svc *SmtpService) error
	DeleteService(ctx context.Context, id uuid.UUID) error
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx ServiceStore) error) error
}

// ServiceDirectory resolves the service an email is sent through.
type ServiceDirectory interface {
	// Resolve returns nil, nil when the service does not exist.
	Resolve(ctx context.Context, id uuid.UUID) (*SmtpService, error)
}

// Transport performs one delivery attempt through svc.
type Transport interface {
	Send(ctx context.Context, svc *SmtpService, msg *mailer.Email) error
}

// QueueNotifier is told when an email becomes due at a known time so a drain
// can be scheduled for it instead of waiting for the next periodic sweep.
type QueueNotifier interface {
	NotifyDue(ctx context.Context, at time.Time) error
}

// Observer receives delivery and sweep outcomes, typically for metrics.
type Observer interface {
	AttemptFinished(svc *SmtpService, email *Email, elapsed time.Duration)
	DrainFinished(res DrainResult, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) AttemptFinished(*SmtpService, *Email, time.Duration) {}
func (nopObserver) DrainFinished(DrainResult, time.Duration)           {}
