package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmptrader/WebVella-ERP/internal/mail"
)

func TestObserver_AttemptFinished(t *testing.T) {
	t.Parallel()

	o := New()
	svc := &mail.SmtpService{Name: "primary"}
	o.AttemptFinished(svc, &mail.Email{Status: mail.StatusSent}, 120*time.Millisecond)
	o.AttemptFinished(svc, &mail.Email{Status: mail.StatusPending}, time.Second)
	o.AttemptFinished(nil, &mail.Email{Status: mail.StatusAborted}, 0)

	assert.InDelta(t, 1, testutil.ToFloat64(o.Attempts.WithLabelValues("primary", "sent")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(o.Attempts.WithLabelValues("primary", "pending")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(o.Attempts.WithLabelValues("none", "aborted")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(o.AttemptSeconds))
}

func TestObserver_DrainFinished(t *testing.T) {
	t.Parallel()

	o := New()
	o.DrainFinished(mail.DrainResult{Skipped: true}, 0)
	o.DrainFinished(mail.DrainResult{Batches: 2, Processed: 15, Sent: 15}, time.Second)

	assert.InDelta(t, 1, testutil.ToFloat64(o.Drains.WithLabelValues("skipped")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(o.Drains.WithLabelValues("run")), 0)
	assert.InDelta(t, 15, testutil.ToFloat64(o.DrainedEmails), 0)
}

func TestObserver_Handler(t *testing.T) {
	t.Parallel()

	o := New()
	o.DrainFinished(mail.DrainResult{Processed: 1}, time.Millisecond)

	rec := httptest.NewRecorder()
	o.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mailengine_queue_drains_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
