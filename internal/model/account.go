package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Account is a host-side credential record for a principal. The ledger
// core never sees accounts; they only exist so the transport can verify
// who authorized an invocation.
type Account struct {
	ID         uuid.UUID // PK
	Address    Principal // unique principal address
	SecretHash []byte    // Argon2id(secret, SaltAuth)
	SaltAuth   []byte    // per-account salt
	CreatedAt  time.Time
}

// Tokens collects issued access tokens.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}
