// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/mhmtalitas/parkmeter/internal/model"
)

// AccountRepository provides access to host-side credential accounts.
type AccountRepository interface {
	// Create inserts a new account.
	Create(ctx context.Context, a *model.Account) error
	// GetByAddress loads an account by its principal address.
	GetByAddress(ctx context.Context, addr model.Principal) (*model.Account, error)
}
