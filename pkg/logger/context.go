package logger

import (
	"context"
	"log/slog"
)

type attrsKey struct{}

// WithAttrs returns a context carrying attrs for extraction by [ContextAttr].
// Later values for the same key shadow earlier ones.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	prev, _ := ctx.Value(attrsKey{}).([]slog.Attr)
	next := make([]slog.Attr, 0, len(prev)+len(attrs))
	next = append(next, prev...)
	next = append(next, attrs...)
	return context.WithValue(ctx, attrsKey{}, next)
}

// ContextAttr returns an extractor for the attribute named key stored by [WithAttrs].
func ContextAttr(key string) ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		attrs, _ := ctx.Value(attrsKey{}).([]slog.Attr)
		for i := len(attrs) - 1; i >= 0; i-- {
			if attrs[i].Key == key {
				return attrs[i], true
			}
		}
		return slog.Attr{}, false
	}
}
