// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across storage/service layers.
var (
	// ErrNotFound indicates the referenced operator or entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the required principal did not approve the call.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotInitialized indicates no admin has been set yet.
	ErrNotInitialized = errors.New("not initialized")

	// ErrAlreadyExists indicates a unique constraint violation (e.g. account address taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrRateLimited indicates temporary sign-in lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
)

// Ledger invariant violations. The messages are part of the public
// contract and observed by callers; do not reword them.
var (
	// ErrOperatorInactive indicates the operator exists but is toggled off.
	ErrOperatorInactive = errors.New("Operator is not active")

	// ErrSessionActive indicates an unpaid entry already exists for the plate.
	ErrSessionActive = errors.New("Vehicle already has an active parking session")

	// ErrAlreadyPaid indicates the entry was settled earlier.
	ErrAlreadyPaid = errors.New("Payment already completed")

	// ErrInsufficientPayment indicates the offered amount is below the computed fee.
	ErrInsufficientPayment = errors.New("Insufficient payment amount")
)
