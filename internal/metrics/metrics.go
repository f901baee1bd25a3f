// Package metrics records mail engine outcomes in Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmptrader/WebVella-ERP/internal/mail"
)

const namespace = "mailengine"

// Observer implements mail.Observer.
type Observer struct {
	registry *prometheus.Registry

	Attempts       *prometheus.CounterVec
	AttemptSeconds *prometheus.HistogramVec
	Drains         *prometheus.CounterVec
	DrainSeconds   prometheus.Histogram
	DrainedEmails  prometheus.Counter
}

// New creates an Observer with its own registry, including Go and process collectors.
func New() *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_attempts_total",
			Help:      "Delivery attempts by SMTP service and resulting email status",
		}, []string{"service", "status"}),
		AttemptSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "send_attempt_duration_seconds",
			Help:      "Duration of delivery attempts including persistence",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"service"}),
		Drains: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_drains_total",
			Help:      "Queue drain calls, split into run and skipped",
		}, []string{"result"}),
		DrainSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_drain_duration_seconds",
			Help:      "Duration of queue drains that ran",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		DrainedEmails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_drained_emails_total",
			Help:      "Emails processed by queue drains",
		}),
	}
	o.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		o.Attempts, o.AttemptSeconds, o.Drains, o.DrainSeconds, o.DrainedEmails,
	)
	return o
}

// AttemptFinished implements mail.Observer. Emails aborted before a
// service was found are labelled "none".
func (o *Observer) AttemptFinished(svc *mail.SmtpService, email *mail.Email, elapsed time.Duration) {
	service := "none"
	if svc != nil {
		service = svc.Name
	}
	o.Attempts.WithLabelValues(service, email.Status.String()).Inc()
	if svc != nil {
		o.AttemptSeconds.WithLabelValues(service).Observe(elapsed.Seconds())
	}
}

// DrainFinished implements mail.Observer.
func (o *Observer) DrainFinished(res mail.DrainResult, elapsed time.Duration) {
	if res.Skipped {
		o.Drains.WithLabelValues("skipped").Inc()
		return
	}
	o.Drains.WithLabelValues("run").Inc()
	o.DrainSeconds.Observe(elapsed.Seconds())
	o.DrainedEmails.Add(float64(res.Processed))
}

// Handler serves the registry in the Prometheus exposition format.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{Registry: o.registry})
}
