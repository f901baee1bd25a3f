package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jmptrader/WebVella-ERP/internal/mail"
	"github.com/jmptrader/WebVella-ERP/pkg/health"
	"github.com/jmptrader/WebVella-ERP/pkg/logger"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Service is the mail engine as seen by the HTTP layer. *mail.Manager
// implements it.
type Service interface {
	QueueEmail(ctx context.Context, req mail.QueueRequest) (*mail.Email, error)
	GetEmail(ctx context.Context, id uuid.UUID) (*mail.Email, error)
	ListEmails(ctx context.Context, filter mail.EmailFilter) ([]*mail.Email, error)
	SendNow(ctx context.Context, id uuid.UUID) (*mail.Email, mail.Outcome, error)
	Requeue(ctx context.Context, id uuid.UUID) (*mail.Email, error)
	ProcessQueue(ctx context.Context) (mail.DrainResult, error)

	ListServices(ctx context.Context) ([]*mail.SmtpService, error)
	GetService(ctx context.Context, id uuid.UUID) (*mail.SmtpService, error)
	CreateService(ctx context.Context, in mail.ServiceInput) (*mail.SmtpService, error)
	UpdateService(ctx context.Context, id uuid.UUID, in mail.ServiceInput) (*mail.SmtpService, error)
	DeleteService(ctx context.Context, id uuid.UUID) error
	TestService(ctx context.Context, id uuid.UUID, req mail.TestRequest) error
}

// Option configures the router.
type Option func(*config)

type config struct {
	log       *slog.Logger
	checks    health.Checks
	metrics   http.Handler
	stackSize int
}

// WithLogger sets the logger used for request errors and panics.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

// WithHealthChecks mounts /health/live and /health/ready.
func WithHealthChecks(checks health.Checks) Option {
	return func(c *config) {
		c.checks = checks
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(c *config) {
		c.metrics = h
	}
}

type api struct {
	svc Service
	log *slog.Logger
}

// handlerFunc is an http handler that returns its error for central rendering.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// NewRouter builds the HTTP API for svc.
func NewRouter(svc Service, opts ...Option) http.Handler {
	cfg := &config{log: logger.NewNope(), stackSize: DefaultStackSize}
	for _, opt := range opts {
		opt(cfg)
	}
	a := &api{svc: svc, log: cfg.log}

	r := chi.NewRouter()
	r.Use(requestID, recoverer(cfg.log, cfg.stackSize))

	r.NotFound(a.wrap(func(http.ResponseWriter, *http.Request) error {
		return NewHTTPError(http.StatusNotFound, "route not found", nil)
	}))
	r.MethodNotAllowed(a.wrap(func(http.ResponseWriter, *http.Request) error {
		return NewHTTPError(http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), nil)
	}))

	if cfg.checks != nil {
		r.Get("/health/live", health.LivenessHandler())
		r.Get("/health/ready", health.ReadinessHandler(cfg.checks, health.WithLogger(cfg.log)))
	}
	if cfg.metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metrics)
	}

	r.Route("/emails", func(r chi.Router) {
		r.Post("/", a.wrap(a.queueEmail))
		r.Get("/", a.wrap(a.listEmails))
		r.Get("/{id}", a.wrap(a.getEmail))
		r.Post("/{id}/send", a.wrap(a.sendEmail))
		r.Post("/{id}/requeue", a.wrap(a.requeueEmail))
	})
	r.Post("/queue/process", a.wrap(a.processQueue))

	r.Route("/smtp-services", func(r chi.Router) {
		r.Get("/", a.wrap(a.listServices))
		r.Post("/", a.wrap(a.createService))
		r.Get("/{id}", a.wrap(a.getService))
		r.Patch("/{id}", a.wrap(a.updateService))
		r.Delete("/{id}", a.wrap(a.deleteService))
		r.Post("/{id}/test", a.wrap(a.testService))
	})

	return r
}

// wrap converts a handlerFunc to http.HandlerFunc, rendering returned errors.
func (a *api) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			a.handleError(w, r, err)
		}
	}
}

func (a *api) handleError(w http.ResponseWriter, r *http.Request, err error) {
	he := toHTTPError(err)
	if he.Code >= http.StatusInternalServerError {
		a.log.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", he.Code),
			slog.Any("error", err),
		)
	}
	writeError(w, r, he)
}

func writeError(w http.ResponseWriter, r *http.Request, he *HTTPError) {
	body := *he
	body.RequestID = RequestID(r.Context())
	writeJSON(w, he.Code, &body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errBadRequest("request body is empty", err)
		}
		return errBadRequest("invalid request body", err)
	}
	return nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, errBadRequest("invalid id", err)
	}
	return id, nil
}
