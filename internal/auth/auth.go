// Package auth provides the authorization capability the session
// manager requires from its host: a check that a given principal
// approved the current invocation.
package auth

import (
	"context"

	"github.com/mhmtalitas/parkmeter/internal/errs"
	"github.com/mhmtalitas/parkmeter/internal/model"
)

// Authenticator asserts that a principal authorized the active
// invocation. A failed check aborts the whole operation.
type Authenticator interface {
	// Require returns nil if principal approved the call carried by ctx,
	// errs.ErrUnauthorized otherwise.
	Require(ctx context.Context, principal model.Principal) error
}

// Context authenticates against the principal set installed into the
// request context by the transport layer after token verification.
type Context struct{}

// Require reports whether principal is among the context's verified principals.
func (Context) Require(ctx context.Context, principal model.Principal) error {
	if principal == "" {
		return errs.ErrUnauthorized
	}
	for _, p := range PrincipalsFromCtx(ctx) {
		if p == principal {
			return nil
		}
	}
	return errs.ErrUnauthorized
}
