package internal

import (
	"context"
	"time"

	"github.com/frahmantamala/identity-service/internal/principal"
)

type ctxKey string

const ContextPrincipalKey ctxKey = "principal"

// PrincipalFromContext returns the principal resolved by the auth middleware.
func PrincipalFromContext(ctx context.Context) (principal.Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(ContextPrincipalKey).(principal.Principal)
	return p, ok
}

func ContextWithPrincipal(ctx context.Context, p principal.Principal) context.Context {
	return context.WithValue(ctx, ContextPrincipalKey, p)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
