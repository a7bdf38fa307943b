package postgres

import (
	"context"
	"errors"

	"github.com/mhmtalitas/parkmeter/internal/errs"
	"github.com/mhmtalitas/parkmeter/internal/model"
)

// AccountRepo implements AccountRepository using PostgreSQL.
type AccountRepo struct{ db *DB }

// NewAccountRepo constructs an account repository.
func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db} }

// Create inserts a new account row.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	const q = `
INSERT INTO accounts (id, address, secret_hash, salt_auth)
VALUES ($1, $2, $3, $4)`
	_, err := r.db.Pool.Exec(ctx, q, a.ID, string(a.Address), a.SecretHash, a.SaltAuth)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByAddress selects an account by principal address.
func (r *AccountRepo) GetByAddress(ctx context.Context, addr model.Principal) (*model.Account, error) {
	const q = `
SELECT id, address, secret_hash, salt_auth, created_at
FROM accounts WHERE address=$1`
	row := r.db.Pool.QueryRow(ctx, q, string(addr))
	var a model.Account
	var address string
	if err := row.Scan(&a.ID, &address, &a.SecretHash, &a.SaltAuth, &a.CreatedAt); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	a.Address = model.Principal(address)
	return &a, nil
}
