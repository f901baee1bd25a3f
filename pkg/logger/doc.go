// Package logger builds the engine's [log/slog] loggers.
//
// Loggers write JSON (or text) to stdout and, when SENTRY_DSN is set, fan out
// warnings and errors to Sentry. A [LogHandlerDecorator] injects attributes
// pulled from the context on every call, so identifiers such as the request ID,
// the email being delivered or the current drain sweep show up without being
// threaded through every log statement:
//
//	log := logger.New(logger.Config{Level: "info"},
//		logger.ContextAttr("request_id"),
//		logger.ContextAttr("email_id"),
//	)
//
//	ctx = logger.WithAttrs(ctx, slog.String("email_id", id.String()))
//	log.InfoContext(ctx, "email sent")
//	// {"level":"INFO","msg":"email sent","email_id":"..."}
//
// Libraries default to [NewNope] until a logger is injected.
package logger
