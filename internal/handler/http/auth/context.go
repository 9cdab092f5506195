package auth

import (
	"context"

	"parcel-gateway/internal/domain/entity"
)

type ctxKey struct{}

// WithContext attaches ac to ctx.
func WithContext(ctx context.Context, ac entity.AuthContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, ac)
}

// FromContext returns the resolved caller, or the anonymous context when
// the auth middleware has not run.
func FromContext(ctx context.Context) entity.AuthContext {
	if ac, ok := ctx.Value(ctxKey{}).(entity.AuthContext); ok {
		return ac
	}
	return entity.Anonymous()
}
