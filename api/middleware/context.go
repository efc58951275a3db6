package middleware

import (
	"context"

	"github.com/angelmondragon/asala-storefront/internal/storefront"
)

type contextKey string

const ctxSession contextKey = "session"

// SessionFromContext returns the visitor session attached by the Session
// middleware.
func SessionFromContext(ctx context.Context) (*storefront.Session, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(ctxSession).(*storefront.Session)
	return s, ok && s != nil
}

func SessionIDFromContext(ctx context.Context) string {
	if s, ok := SessionFromContext(ctx); ok {
		return s.ID()
	}
	return ""
}

// WithSession injects the visitor session into the context.
func WithSession(ctx context.Context, s *storefront.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, s)
}
