package logger

import "context"

type ctxKey struct{}

// ctxValue is what a context carries: an optional logger and the
// attributes accumulated by WithAttrs.
type ctxValue struct {
	logger Logger
	attrs  []any
}

func fromCtx(ctx context.Context) ctxValue {
	v, _ := ctx.Value(ctxKey{}).(ctxValue)
	return v
}

// WithLogger attaches l to ctx.
func WithLogger(ctx context.Context, l Logger) context.Context {
	v := fromCtx(ctx)
	v.logger = l
	return context.WithValue(ctx, ctxKey{}, v)
}

// WithAttrs attaches key/value pairs that L adds to every entry.
func WithAttrs(ctx context.Context, args ...any) context.Context {
	v := fromCtx(ctx)
	v.attrs = append(append([]any(nil), v.attrs...), args...)
	return context.WithValue(ctx, ctxKey{}, v)
}

// L returns the logger attached to ctx, or Default, enriched with the
// attributes of ctx.
func L(ctx context.Context) Logger {
	v := fromCtx(ctx)
	l := v.logger
	if l == nil {
		l = Default()
	}
	if len(v.attrs) > 0 {
		l = l.With(v.attrs...)
	}
	return l.WithContext(ctx)
}
