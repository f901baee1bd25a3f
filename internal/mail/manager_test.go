package mail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jmptrader/WebVella-ERP/pkg/mailer"
	"github.com/jmptrader/WebVella-ERP/pkg/validator"
)

func newTestManager(store *memStore, transport Transport, opts ...Option) *Manager {
	opts = append([]Option{WithClock(fixedClock(testNow))}, opts...)
	return NewManager(store, store, nil, transport, opts...)
}

func serviceInput(name string) ServiceInput {
	return ServiceInput{
		Name:             ptr(name),
		Server:           ptr("smtp.example.com"),
		DefaultFromEmail: ptr("noreply@example.com"),
	}
}

func TestManager_CreateService_Defaults(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	m := newTestManager(store, &MockTransport{})

	svc, err := m.CreateService(context.Background(), serviceInput("primary"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, svc.Port)
	assert.Equal(t, SecurityAuto, svc.ConnectionSecurity)
	assert.Equal(t, DefaultMaxRetriesCount, svc.MaxRetriesCount)
	assert.Equal(t, DefaultRetryWaitMinutes, svc.RetryWaitMinutes)
	assert.True(t, svc.IsEnabled)
	assert.True(t, svc.IsDefault, "first service becomes the default")

	stored, err := store.GetService(context.Background(), svc.ID)
	require.NoError(t, err)
	assert.Equal(t, svc, stored)
}

func TestManager_CreateService_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(in *ServiceInput)
		field   string
		message string
	}{
		{name: "missing name", mutate: func(in *ServiceInput) { in.Name = nil }, field: "name"},
		{name: "missing server", mutate: func(in *ServiceInput) { in.Server = ptr(" ") }, field: "server"},
		{name: "port too high", mutate: func(in *ServiceInput) { in.Port = ptr(65026) }, field: "port", message: MsgPortRange},
		{name: "port zero", mutate: func(in *ServiceInput) { in.Port = ptr(0) }, field: "port", message: MsgPortRange},
		{name: "missing from email", mutate: func(in *ServiceInput) { in.DefaultFromEmail = nil }, field: "default_from_email"},
		{name: "bad from email", mutate: func(in *ServiceInput) { in.DefaultFromEmail = ptr("not-an-email") }, field: "default_from_email", message: MsgFromEmailInvalid},
		{name: "bad reply to", mutate: func(in *ServiceInput) { in.DefaultReplyToEmail = ptr("nope@") }, field: "default_reply_to_email", message: MsgReplyToInvalid},
		{name: "retries too high", mutate: func(in *ServiceInput) { in.MaxRetriesCount = ptr(11) }, field: "max_retries_count", message: MsgRetriesRange},
		{name: "wait too long", mutate: func(in *ServiceInput) { in.RetryWaitMinutes = ptr(1441) }, field: "retry_wait_minutes", message: MsgRetryWaitRange},
		{name: "unknown security", mutate: func(in *ServiceInput) { v := SecurityValue("7"); in.ConnectionSecurity = &v }, field: "connection_security", message: MsgSecurityInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newMemStore()
			m := newTestManager(store, &MockTransport{})
			in := serviceInput("primary")
			tt.mutate(&in)

			_, err := m.CreateService(context.Background(), in)
			require.Error(t, err)
			require.True(t, validator.IsValidationError(err))
			errs := validator.ExtractValidationErrors(err)
			require.True(t, errs.Has(tt.field), "fields: %v", errs.Fields())
			if tt.message != "" {
				assert.Equal(t, []string{tt.message}, errs.Get(tt.field))
			}

			list, err := store.ListServices(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestManager_CreateService_EmptyReplyToAllowed(t *testing.T) {
	t.Parallel()

	m := newTestManager(newMemStore(), &MockTransport{})
	in := serviceInput("primary")
	in.DefaultReplyToEmail = ptr("")
	v := SecurityValue("StartTls")
	in.ConnectionSecurity = &v

	svc, err := m.CreateService(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, SecurityStartTls, svc.ConnectionSecurity)
}

func TestManager_ServiceNameUnique(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	m := newTestManager(store, &MockTransport{})

	first, err := m.CreateService(context.Background(), serviceInput("primary"))
	require.NoError(t, err)

	_, err = m.CreateService(context.Background(), serviceInput("primary"))
	errs := validator.ExtractValidationErrors(err)
	require.NotNil(t, errs)
	assert.Equal(t, []string{MsgNameNotUnique}, errs.Get("name"))

	// Keeping its own name on update is fine.
	_, err = m.UpdateService(context.Background(), first.ID, ServiceInput{Name: ptr("primary"), Port: ptr(2525)})
	require.NoError(t, err)
}

func TestManager_DefaultServiceCascade(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	m := newTestManager(store, &MockTransport{})

	a, err := m.CreateService(context.Background(), serviceInput("a"))
	require.NoError(t, err)
	b, err := m.CreateService(context.Background(), serviceInput("b"))
	require.NoError(t, err)
	assert.False(t, b.IsDefault)
	assert.Equal(t, []uuid.UUID{a.ID}, store.defaults())

	c := serviceInput("c")
	c.IsDefault = ptr(true)
	created, err := m.CreateService(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{created.ID}, store.defaults())

	_, err = m.UpdateService(context.Background(), b.ID, ServiceInput{IsDefault: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID}, store.defaults())
}

func TestManager_UpdateService_DemotingDefaultRejected(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	m := newTestManager(store, &MockTransport{})

	a, err := m.CreateService(context.Background(), serviceInput("a"))
	require.NoError(t, err)

	_, err = m.UpdateService(context.Background(), a.ID, ServiceInput{IsDefault: ptr(false), Port: ptr(2525)})
	errs := validator.ExtractValidationErrors(err)
	require.NotNil(t, errs)
	assert.Equal(t, []string{MsgDefaultRequired}, errs.Get("is_default"))

	stored, err := store.GetService(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDefault)
	assert.Equal(t, DefaultPort, stored.Port, "rejected write leaves no change")
}

// failingCreateStore fails every CreateService, including inside transactions.
type failingCreateStore struct {
	*memStore
}

func (f failingCreateStore) CreateService(context.Context, *SmtpService) error {
	return errors.New("disk full")
}

func (f failingCreateStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ServiceStore) error) error {
	return f.memStore.WithinTx(ctx, func(ctx context.Context, _ ServiceStore) error {
		return fn(ctx, f)
	})
}

func TestManager_CreateService_FailedWriteKeepsDefault(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	current := seedService(t, store)

	m := NewManager(store, failingCreateStore{store}, nil, &MockTransport{})
	in := serviceInput("replacement")
	in.IsDefault = ptr(true)

	_, err := m.CreateService(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, []uuid.UUID{current.ID}, store.defaults(), "demotion rolled back with the failed write")
}

// racingStore applies a competing write once, just before the next
// transaction starts.
type racingStore struct {
	*memStore
	once   sync.Once
	before func()
}

func (r *racingStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ServiceStore) error) error {
	r.once.Do(r.before)
	return r.memStore.WithinTx(ctx, fn)
}

// promote makes id the only default directly in the store, as another
// process's committed write would.
func promote(store *memStore, id uuid.UUID) {
	store.mu.Lock()
	defer store.mu.Unlock()
	for k, svc := range store.services {
		svc.IsDefault = k == id
		store.services[k] = svc
	}
}

func TestManager_UpdateService_ReadsRowInsideTransaction(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T) (*memStore, *SmtpService, *SmtpService) {
		t.Helper()
		store := newMemStore()
		m := newTestManager(store, &MockTransport{})
		a, err := m.CreateService(context.Background(), serviceInput("a"))
		require.NoError(t, err)
		b, err := m.CreateService(context.Background(), serviceInput("b"))
		require.NoError(t, err)
		return store, a, b
	}

	t.Run("demotion of a concurrently promoted default is rejected", func(t *testing.T) {
		t.Parallel()
		store, a, b := setup(t)
		promote(store, b.ID)

		racing := &racingStore{memStore: store, before: func() { promote(store, a.ID) }}
		m := NewManager(store, racing, nil, &MockTransport{}, WithClock(fixedClock(testNow)))

		_, err := m.UpdateService(context.Background(), a.ID, ServiceInput{IsDefault: ptr(false)})
		errs := validator.ExtractValidationErrors(err)
		require.NotNil(t, errs)
		assert.Equal(t, []string{MsgDefaultRequired}, errs.Get("is_default"))
		assert.Equal(t, []uuid.UUID{a.ID}, store.defaults())
	})

	t.Run("edit does not re-promote a concurrently demoted row", func(t *testing.T) {
		t.Parallel()
		store, a, b := setup(t)

		racing := &racingStore{memStore: store, before: func() { promote(store, b.ID) }}
		m := NewManager(store, racing, nil, &MockTransport{}, WithClock(fixedClock(testNow)))

		updated, err := m.UpdateService(context.Background(), a.ID, ServiceInput{Port: ptr(2525)})
		require.NoError(t, err)
		assert.False(t, updated.IsDefault)
		assert.Equal(t, 2525, updated.Port)
		assert.Equal(t, []uuid.UUID{b.ID}, store.defaults())
	})

	t.Run("concurrent edits to other fields survive", func(t *testing.T) {
		t.Parallel()
		store, a, _ := setup(t)

		racing := &racingStore{memStore: store, before: func() {
			store.mu.Lock()
			svc := store.services[a.ID]
			svc.Username = "rotated"
			store.services[a.ID] = svc
			store.mu.Unlock()
		}}
		m := NewManager(store, racing, nil, &MockTransport{}, WithClock(fixedClock(testNow)))

		_, err := m.UpdateService(context.Background(), a.ID, ServiceInput{Port: ptr(2525)})
		require.NoError(t, err)

		stored, err := store.GetService(context.Background(), a.ID)
		require.NoError(t, err)
		assert.Equal(t, "rotated", stored.Username)
		assert.Equal(t, 2525, stored.Port)
	})
}

func TestManager_UpdateService_NotFound(t *testing.T) {
	t.Parallel()

	m := newTestManager(newMemStore(), &MockTransport{})
	_, err := m.UpdateService(context.Background(), uuid.New(), ServiceInput{Port: ptr(25)})
	require.ErrorIs(t, err, ErrServiceNotFound)
}

func TestManager_DeleteService(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	m := newTestManager(store, &MockTransport{})

	a, err := m.CreateService(context.Background(), serviceInput("a"))
	require.NoError(t, err)
	b, err := m.CreateService(context.Background(), serviceInput("b"))
	require.NoError(t, err)

	err = m.DeleteService(context.Background(), a.ID)
	errs := validator.ExtractValidationErrors(err)
	require.NotNil(t, errs)
	assert.Equal(t, []string{MsgDeleteDefault}, errs.Get("is_default"))

	require.NoError(t, m.DeleteService(context.Background(), b.ID))
	_, err = store.GetService(context.Background(), b.ID)
	require.ErrorIs(t, err, ErrServiceNotFound)
}

func TestManager_ConcurrentDefaultWrites(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	m := newTestManager(store, &MockTransport{})

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			in := serviceInput(uuid.NewString())
			in.IsDefault = ptr(i%2 == 0)
			_, err := m.CreateService(context.Background(), in)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, store.defaults(), 1)
}

type recordingNotifier struct {
	mu  sync.Mutex
	due []time.Time
}

func (n *recordingNotifier) NotifyDue(_ context.Context, at time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.due = append(n.due, at)
	return nil
}

func TestManager_QueueEmail(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	notifier := &recordingNotifier{}
	m := newTestManager(store, &MockTransport{}, WithQueueNotifier(notifier))

	in := serviceInput("primary")
	in.DefaultFromName = ptr("ERP")
	in.DefaultReplyToEmail = ptr("support@example.com")
	svc, err := m.CreateService(context.Background(), in)
	require.NoError(t, err)

	email, err := m.QueueEmail(context.Background(), QueueRequest{
		RecipientName:  "Alice",
		RecipientEmail: "alice@example.com",
		Subject:        "Welcome",
		ContentHTML:    "<h1>Hello</h1><p>Welcome aboard</p>",
	})
	require.NoError(t, err)

	assert.Equal(t, svc.ID, email.ServiceID)
	assert.Equal(t, "ERP", email.SenderName)
	assert.Equal(t, "noreply@example.com", email.SenderEmail)
	assert.Equal(t, "support@example.com", email.ReplyToEmail)
	assert.Equal(t, StatusPending, email.Status)
	assert.Equal(t, PriorityNormal, email.Priority)
	require.NotNil(t, email.ScheduledOn)
	assert.Equal(t, testNow, *email.ScheduledOn)
	assert.Contains(t, email.ContentText, "Hello")
	assert.Contains(t, email.ContentText, "Welcome aboard")
	assert.NotContains(t, email.XSearch, "<h1>")
	assert.Equal(t, []time.Time{testNow}, notifier.due)

	stored, err := store.GetEmail(context.Background(), email.ID)
	require.NoError(t, err)
	assert.Equal(t, email, stored)
}

func TestManager_QueueEmail_ExplicitServiceAndSchedule(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	m := newTestManager(store, &MockTransport{})
	_, err := m.CreateService(context.Background(), serviceInput("a"))
	require.NoError(t, err)
	b, err := m.CreateService(context.Background(), serviceInput("b"))
	require.NoError(t, err)

	at := testNow.Add(2 * time.Hour)
	high := PriorityHigh
	email, err := m.QueueEmail(context.Background(), QueueRequest{
		ServiceID:      b.ID,
		SenderName:     "Billing",
		SenderEmail:    "billing@example.com",
		RecipientEmail: "bob@example.com",
		Subject:        "Invoice",
		ContentText:    "Plain",
		Priority:       &high,
		ScheduledOn:    &at,
	})
	require.NoError(t, err)
	assert.Equal(t, b.ID, email.ServiceID)
	assert.Equal(t, "billing@example.com", email.SenderEmail)
	assert.Equal(t, PriorityHigh, email.Priority)
	assert.Equal(t, at, *email.ScheduledOn)
	assert.Equal(t, "Plain", email.ContentText)
}

func TestManager_QueueEmail_Validation(t *testing.T) {
	t.Parallel()

	m := newTestManager(newMemStore(), &MockTransport{})

	_, err := m.QueueEmail(context.Background(), QueueRequest{})
	errs := validator.ExtractValidationErrors(err)
	require.NotNil(t, errs)
	assert.Equal(t, []string{MsgRecipientRequired}, errs.Get("recipient_email"))

	_, err = m.QueueEmail(context.Background(), QueueRequest{RecipientEmail: "bob"})
	errs = validator.ExtractValidationErrors(err)
	require.NotNil(t, errs)
	assert.Equal(t, []string{MsgRecipientInvalid}, errs.Get("recipient_email"))

	_, err = m.QueueEmail(context.Background(), QueueRequest{RecipientEmail: "bob@example.com"})
	require.ErrorIs(t, err, ErrNoDefaultService)
}

func TestManager_SaveEmail_Upsert(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	m := newTestManager(store, &MockTransport{})

	email := dueEmail(uuid.New())
	email.CreatedOn = time.Time{}
	require.NoError(t, m.SaveEmail(context.Background(), email))
	assert.Equal(t, testNow, store.email(email.ID).CreatedOn)

	email.Subject = "Updated subject"
	require.NoError(t, m.SaveEmail(context.Background(), email))
	saved := store.email(email.ID)
	assert.Equal(t, "Updated subject", saved.Subject)
	assert.Contains(t, saved.XSearch, "Updated subject")
}

func TestManager_ListEmails_Search(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	m := newTestManager(store, &MockTransport{})

	a := dueEmail(uuid.New())
	a.Subject = "Quarterly report"
	b := dueEmail(uuid.New())
	b.Subject = "Password reset"
	require.NoError(t, m.SaveEmail(context.Background(), a))
	require.NoError(t, m.SaveEmail(context.Background(), b))

	found, err := m.ListEmails(context.Background(), EmailFilter{Search: "QUARTERLY"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a.ID, found[0].ID)
}

func TestManager_SendNow(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := seedService(t, store)
	email := dueEmail(svc.ID)
	later := testNow.Add(time.Hour)
	email.ScheduledOn = &later
	require.NoError(t, store.CreateEmail(context.Background(), email))

	transport := &MockTransport{}
	transport.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	m := newTestManager(store, transport)

	got, out, err := m.SendNow(context.Background(), email.ID)
	require.NoError(t, err)
	assert.True(t, out.Sent())
	assert.Equal(t, StatusSent, got.Status)
	assert.Equal(t, StatusSent, store.email(email.ID).Status)

	// A second call leaves the sent email alone.
	_, out, err = m.SendNow(context.Background(), email.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, out.Status)
	transport.AssertNumberOfCalls(t, "Send", 1)

	_, _, err = m.SendNow(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrEmailNotFound)
}

func TestManager_Requeue(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	notifier := &recordingNotifier{}
	m := newTestManager(store, &MockTransport{}, WithQueueNotifier(notifier))

	email := dueEmail(uuid.New())
	email.Status = StatusAborted
	email.ScheduledOn = nil
	email.RetriesCount = 3
	email.ServerError = "550 mailbox unavailable"
	require.NoError(t, store.CreateEmail(context.Background(), email))

	got, err := m.Requeue(context.Background(), email.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Zero(t, got.RetriesCount)
	assert.Empty(t, got.ServerError)
	require.NotNil(t, got.ScheduledOn)
	assert.Equal(t, testNow, *got.ScheduledOn)
	assert.Equal(t, *got, store.email(email.ID))
	assert.Len(t, notifier.due, 1)
}

func TestManager_TestService(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := seedService(t, store)

	transport := &MockTransport{}
	transport.On("Send", mock.Anything, mock.MatchedBy(func(s *SmtpService) bool { return s.ID == svc.ID }),
		mock.MatchedBy(func(msg *mailer.Email) bool {
			return msg.To[0].Email == "ops@example.com" &&
				msg.From.Email == svc.DefaultFromEmail &&
				msg.HTML == "<p>ping</p>" &&
				msg.Text == ""
		})).Return(errRelayFailed).Once()

	m := newTestManager(store, transport)
	err := m.TestService(context.Background(), svc.ID, TestRequest{
		RecipientEmail: "ops@example.com",
		Subject:        "SMTP test",
		Content:        "<p>ping</p>",
	})
	require.ErrorIs(t, err, errRelayFailed)
	assert.Zero(t, store.writes(), "test sends are not stored")
	transport.AssertExpectations(t)
}

func TestManager_TestService_Validation(t *testing.T) {
	t.Parallel()

	m := newTestManager(newMemStore(), &MockTransport{})

	err := m.TestService(context.Background(), uuid.New(), TestRequest{RecipientEmail: "not valid"})
	errs := validator.ExtractValidationErrors(err)
	require.NotNil(t, errs)
	assert.Equal(t, []string{MsgRecipientInvalid}, errs.Get("recipient_email"))
	assert.Equal(t, []string{MsgSubjectRequired}, errs.Get("subject"))
	assert.Equal(t, []string{MsgContentRequired}, errs.Get("content"))

	err = m.TestService(context.Background(), uuid.New(), TestRequest{
		RecipientEmail: "ops@example.com",
		Subject:        "s",
		Content:        "c",
	})
	require.ErrorIs(t, err, ErrServiceNotFound)
}

func TestManager_ProcessQueue(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := seedService(t, store)
	require.NoError(t, store.CreateEmail(context.Background(), dueEmail(svc.ID)))

	transport := &MockTransport{}
	transport.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	res, err := newTestManager(store, transport).ProcessQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
}
