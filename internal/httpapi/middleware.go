package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/google/uuid"

	"github.com/jmptrader/WebVella-ERP/pkg/logger"
)

// RequestIDHeader is set on every response.
const RequestIDHeader = "X-Request-ID"

// RequestIDAttr is the log attribute carrying the request ID. Pass
// logger.ContextAttr(RequestIDAttr) to the logger factory to include it.
const RequestIDAttr = "request_id"

// DefaultStackSize is the maximum stack trace size logged for a panic.
const DefaultStackSize = 4096

// requestIDHeaders are checked in order for an upstream ID.
var requestIDHeaders = []string{RequestIDHeader, "X-Correlation-ID"}

// RequestID returns the request ID stored in ctx by the request ID middleware.
func RequestID(ctx context.Context) string {
	if attr, ok := logger.ContextAttr(RequestIDAttr)(ctx); ok {
		return attr.Value.String()
	}
	return ""
}

// requestID keeps an upstream request ID or generates one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		for _, h := range requestIDHeaders {
			if v := r.Header.Get(h); v != "" {
				id = v
				break
			}
		}
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		ctx := logger.WithAttrs(r.Context(), slog.String(RequestIDAttr, id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// recoverer turns a handler panic into a logged 500.
func recoverer(log *slog.Logger, stackSize int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				stack := make([]byte, stackSize)
				stack = stack[:runtime.Stack(stack, false)]
				log.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rec),
					slog.String("stack", string(stack)),
				)
				writeError(w, r, NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), nil))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
