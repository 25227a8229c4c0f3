package service

import (
	"context"
	"crypto/sha256"
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/edgar-filings-service/internal/model"
	"github.com/edgar-filings-service/internal/store"
)

// PasswordHasher hashes and compares passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashed, password string) error
}

// BcryptHasher is the default password hasher. Passwords are pre-hashed with
// SHA-256 so inputs longer than bcrypt's 72-byte limit still hash whole.
type BcryptHasher struct{}

func (BcryptHasher) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	hash, err := bcrypt.GenerateFromPassword(sum[:], bcrypt.DefaultCost)
	return string(hash), err
}

func (BcryptHasher) Compare(hashed, password string) error {
	sum := sha256.Sum256([]byte(password))
	return bcrypt.CompareHashAndPassword([]byte(hashed), sum[:])
}

// AccountService handles registration and password authentication.
type AccountService struct {
	store  store.AccountStore
	hasher PasswordHasher
}

func NewAccountService(s store.AccountStore, hasher PasswordHasher) *AccountService {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	return &AccountService{store: s, hasher: hasher}
}

// Register creates a new account in pending status. The account can log in
// right away but stays locked out of non-auth endpoints until approved.
func (s *AccountService) Register(ctx context.Context, username, password string) (*model.Account, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash password")
		return nil, NewInternal("internal_error", "Failed to register account")
	}

	account := &model.Account{
		Username:     username,
		PasswordHash: hash,
		Status:       model.StatusPending,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			return nil, NewConflict("username_taken", "Username is already taken")
		}
		log.Error().Err(err).Msg("failed to create account")
		return nil, NewInternal("internal_error", "Failed to register account")
	}
	return account, nil
}

// Login verifies a username/password pair. Unknown usernames and wrong
// passwords return the same error code.
func (s *AccountService) Login(ctx context.Context, username, password string) (*model.Account, error) {
	account, err := s.store.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewUnauthorized("invalid_credentials", "Invalid username or password")
		}
		log.Error().Err(err).Msg("failed to load account")
		return nil, NewInternal("internal_error", "Failed to log in")
	}

	if err := s.hasher.Compare(account.PasswordHash, password); err != nil {
		return nil, NewUnauthorized("invalid_credentials", "Invalid username or password")
	}
	return account, nil
}
