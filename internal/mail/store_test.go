package mail

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/jmptrader/WebVella-ERP/pkg/mailer"
)

// memStore is an in-memory EmailStore and ServiceStore. Rows are copied in
// and out so callers never share pointers with the store.
type memStore struct {
	mu       sync.Mutex
	emails   map[uuid.UUID]Email
	services map[uuid.UUID]SmtpService

	emailWrites int
	lists       int
	listErr     error
	updateErr   error
}

func newMemStore() *memStore {
	return &memStore{
		emails:   map[uuid.UUID]Email{},
		services: map[uuid.UUID]SmtpService{},
	}
}

func (s *memStore) GetEmail(_ context.Context, id uuid.UUID) (*Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.emails[id]
	if !ok {
		return nil, ErrEmailNotFound
	}
	return &e, nil
}

func (s *memStore) CreateEmail(_ context.Context, email *Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emailWrites++
	s.emails[email.ID] = *email
	return nil
}

func (s *memStore) UpdateEmail(_ context.Context, email *Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.emails[email.ID]; !ok {
		return ErrEmailNotFound
	}
	s.emailWrites++
	s.emails[email.ID] = *email
	return nil
}

func (s *memStore) ListEmails(_ context.Context, f EmailFilter) ([]*Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	if s.listErr != nil {
		return nil, s.listErr
	}

	var out []*Email
	for _, e := range s.emails {
		if f.Status != nil && e.Status != *f.Status {
			continue
		}
		if f.DueBefore != nil && (e.ScheduledOn == nil || !e.ScheduledOn.Before(*f.DueBefore)) {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(e.XSearch), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, &e)
	}

	switch f.Order {
	case OrderDue:
		slices.SortFunc(out, func(a, b *Email) int {
			if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
				return c
			}
			return a.ScheduledOn.Compare(*b.ScheduledOn)
		})
	default:
		slices.SortFunc(out, func(a, b *Email) int { return b.CreatedOn.Compare(a.CreatedOn) })
	}

	if f.Offset > 0 {
		out = out[min(f.Offset, len(out)):]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *memStore) email(id uuid.UUID) Email {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emails[id]
}

func (s *memStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emailWrites
}

func (s *memStore) GetService(_ context.Context, id uuid.UUID) (*SmtpService, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	return &svc, nil
}

func (s *memStore) GetDefaultService(_ context.Context) (*SmtpService, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, svc := range s.services {
		if svc.IsDefault {
			return &svc, nil
		}
	}
	return nil, ErrNoDefaultService
}

func (s *memStore) FindServicesByName(_ context.Context, name string) ([]*SmtpService, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*SmtpService
	for _, svc := range s.services {
		if svc.Name == name {
			out = append(out, &svc)
		}
	}
	return out, nil
}

func (s *memStore) ListServices(_ context.Context) ([]*SmtpService, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*SmtpService, 0, len(s.services))
	for _, svc := range s.services {
		out = append(out, &svc)
	}
	slices.SortFunc(out, func(a, b *SmtpService) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *memStore) CreateService(_ context.Context, svc *SmtpService) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[svc.ID] = *svc
	return nil
}

func (s *memStore) UpdateService(_ context.Context, svc *SmtpService) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.services[svc.ID]; !ok {
		return ErrServiceNotFound
	}
	s.services[svc.ID] = *svc
	return nil
}

func (s *memStore) DeleteService(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.services[id]; !ok {
		return ErrServiceNotFound
	}
	delete(s.services, id)
	return nil
}

// WithinTx restores the service table when fn fails.
func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ServiceStore) error) error {
	s.mu.Lock()
	snapshot := make(map[uuid.UUID]SmtpService, len(s.services))
	for k, v := range s.services {
		snapshot[k] = v
	}
	s.mu.Unlock()

	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.services = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) defaults() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for id, svc := range s.services {
		if svc.IsDefault {
			ids = append(ids, id)
		}
	}
	return ids
}

// MockTransport is a mock implementation of Transport.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Send(ctx context.Context, svc *SmtpService, msg *mailer.Email) error {
	args := m.Called(ctx, svc, msg)
	return args.Error(0)
}

// fixedClock returns a clock frozen at t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var (
	testNow        = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	errRelayFailed = errors.New("550 mailbox unavailable")
)

func testService() *SmtpService {
	return &SmtpService{
		ID:                 uuid.New(),
		Name:               "primary",
		Server:             "smtp.example.com",
		Port:               587,
		ConnectionSecurity: SecurityStartTls,
		Username:           "mailer",
		Password:           "secret",
		DefaultFromName:    "ERP",
		DefaultFromEmail:   "noreply@example.com",
		MaxRetriesCount:    3,
		RetryWaitMinutes:   10,
		IsDefault:          true,
		IsEnabled:          true,
	}
}

// dueEmail is pending and due a minute before testNow.
func dueEmail(serviceID uuid.UUID) *Email {
	due := testNow.Add(-time.Minute)
	return &Email{
		ID:             uuid.New(),
		ServiceID:      serviceID,
		SenderName:     "ERP",
		SenderEmail:    "noreply@example.com",
		RecipientName:  "Alice",
		RecipientEmail: "alice@example.com",
		Subject:        "Invoice",
		ContentHTML:    "<p>Your invoice</p>",
		ContentText:    "Your invoice",
		Priority:       PriorityNormal,
		Status:         StatusPending,
		CreatedOn:      testNow.Add(-time.Hour),
		ScheduledOn:    &due,
	}
}
