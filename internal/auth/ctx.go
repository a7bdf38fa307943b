package auth

import (
	"context"

	"github.com/mhmtalitas/parkmeter/internal/model"
)

type ctxKey string

const principalsKey ctxKey = "parkmeter.principals"

// WithPrincipal appends a verified principal to the context's
// authorization set.
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalsKey, append(PrincipalsFromCtx(ctx), p))
}

// PrincipalsFromCtx returns the verified principals carried by ctx,
// or nil when the invocation is unauthenticated.
func PrincipalsFromCtx(ctx context.Context) []model.Principal {
	v := ctx.Value(principalsKey)
	if v == nil {
		return nil
	}
	ps, ok := v.([]model.Principal)
	if !ok {
		return nil
	}
	return ps
}
