package service

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/mhmtalitas/parkmeter/internal/crypto"
	"github.com/mhmtalitas/parkmeter/internal/errs"
	"github.com/mhmtalitas/parkmeter/internal/limiter"
	"github.com/mhmtalitas/parkmeter/internal/model"
	"github.com/mhmtalitas/parkmeter/internal/repository"
)

// AccountService defines host-side credential operations. It supplies
// the "authenticated caller identity per invocation" the ledger core
// treats as an external collaborator.
type AccountService interface {
	// Register creates a new principal account with secure secret hashing.
	Register(ctx context.Context, address model.Principal, secret string) error
	// LoginWithIP applies rate-limiting and authenticates the principal,
	// issuing a bearer token whose subject is the address.
	LoginWithIP(ctx context.Context, address model.Principal, secret, ip string) (model.Tokens, error)
}

type AccountServiceImpl struct {
	accounts  repository.AccountRepository
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
}

// NewAccountService constructs AccountService with required dependencies.
func NewAccountService(accounts repository.AccountRepository, signKey []byte, accessTTL time.Duration, lim limiter.Limiter) *AccountServiceImpl {
	return &AccountServiceImpl{accounts: accounts, signKey: signKey, accessTTL: accessTTL, lim: lim}
}

// Register creates a new account record with a per-account salt.
func (s *AccountServiceImpl) Register(ctx context.Context, address model.Principal, secret string) error {
	if address == "" || secret == "" {
		return errors.New("validation: empty address/secret")
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return err
	}
	saltAuth, err := pkgcrypto.RandBytes(16)
	if err != nil {
		return err
	}

	a := &model.Account{
		ID:         uid,
		Address:    address,
		SecretHash: pkgcrypto.HashSecret([]byte(secret), saltAuth),
		SaltAuth:   saltAuth,
	}
	return s.accounts.Create(ctx, a)
}

// LoginWithIP authenticates with rate limiting by (address, ip).
func (s *AccountServiceImpl) LoginWithIP(ctx context.Context, address model.Principal, secret, ip string) (model.Tokens, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, address, ipHash)
	if err != nil {
		return model.Tokens{}, err
	}
	if !allowed {
		return model.Tokens{}, errs.ErrRateLimited
	}

	a, err := s.accounts.GetByAddress(ctx, address)
	if err != nil || !pkgcrypto.VerifySecret([]byte(secret), a.SaltAuth, a.SecretHash) {
		// Record failure; if threshold reached — return rate-limited.
		if blocked, _, ferr := s.lim.Failure(ctx, address, ipHash); ferr == nil && blocked {
			return model.Tokens{}, errs.ErrRateLimited
		}
		// lookup errors are masked so account existence stays hidden
		return model.Tokens{}, errs.ErrUnauthorized
	}

	// Success: reset counters (best-effort).
	_ = s.lim.Success(ctx, address, ipHash)

	return s.issueAccessToken(address)
}

// issueAccessToken creates a signed HS256 JWT for the given principal.
func (s *AccountServiceImpl) issueAccessToken(address model.Principal) (model.Tokens, error) {
	now := time.Now()
	exp := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   string(address),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: signed, ExpiresAt: exp}, nil
}
