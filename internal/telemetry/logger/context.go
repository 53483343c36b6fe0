package logger

import "context"

// scope is the per-request logging state carried in a context.
type scope struct {
	log       Logger
	requestID string
}

type scopeKey struct{}

func scopeOf(ctx context.Context) scope {
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

// WithLogger returns a copy of ctx carrying l.
func WithLogger(ctx context.Context, l Logger) context.Context {
	s := scopeOf(ctx)
	s.log = l
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithRequestID returns a copy of ctx tagged with a request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	s := scopeOf(ctx)
	s.requestID = id
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext returns the logger stored in ctx, falling back to Default.
func FromContext(ctx context.Context) Logger {
	if s := scopeOf(ctx); s.log != nil {
		return s.log
	}
	return Default()
}

// RequestIDFromContext returns the request ID stored in ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	return scopeOf(ctx).requestID
}

// L is the logger handlers should use: the context logger bound to ctx,
// with request_id attached when one is known.
func L(ctx context.Context) Logger {
	s := scopeOf(ctx)
	l := s.log
	if l == nil {
		l = Default()
	}
	l = l.WithContext(ctx)
	if s.requestID != "" {
		return l.With("request_id", s.requestID)
	}
	return l
}
