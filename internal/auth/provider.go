package auth

import (
	"context"

	"github.com/erazemk/opname/internal/model"
)

// Provider answers whether an operator is signed in.
type Provider interface {
	Principal(ctx context.Context) (model.Principal, bool)
}

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(model.Principal)
	return p, ok && p.ID != ""
}

// ContextProvider reads the principal from the request context, where the
// API middleware puts it after validating a token.
type ContextProvider struct{}

func (ContextProvider) Principal(ctx context.Context) (model.Principal, bool) {
	return FromContext(ctx)
}

// Require returns the signed-in principal or model.ErrUnauthorized.
func Require(ctx context.Context, p Provider) (model.Principal, error) {
	if p == nil {
		return model.Principal{}, model.ErrUnauthorized
	}
	principal, ok := p.Principal(ctx)
	if !ok {
		return model.Principal{}, model.ErrUnauthorized
	}
	return principal, nil
}
