package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/edgar-filings-service/internal/model"
	"github.com/edgar-filings-service/internal/store"
)

// KeyPrefix marks every issued secret so keys are recognizable in headers
// and logs without exposing key material.
const KeyPrefix = "edgar_"

const keyPrefixDisplayLen = 12

// APIKeyService handles API key lifecycle and authentication.
type APIKeyService struct {
	keys     store.APIKeyStore
	accounts store.AccountStore
}

func NewAPIKeyService(keys store.APIKeyStore, accounts store.AccountStore) *APIKeyService {
	return &APIKeyService{keys: keys, accounts: accounts}
}

// CreateAPIKeyResult carries the stored key and the plaintext secret. The
// secret exists only in this value; after the creation response it is gone.
type CreateAPIKeyResult struct {
	APIKey *model.APIKey
	RawKey string
}

// Create generates a new API key for the account and persists its hash.
func (s *APIKeyService) Create(ctx context.Context, accountID uuid.UUID, name string) (*CreateAPIKeyResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewBadRequest("invalid_request", "name is required")
	}

	rawKey, err := generateAPIKey()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate API key")
		return nil, NewInternal("internal_error", "Failed to create API key")
	}

	apiKey := &model.APIKey{
		AccountID: accountID,
		Name:      name,
		KeyHash:   SHA256Hex(rawKey),
		KeyPrefix: rawKey[:keyPrefixDisplayLen] + "...",
	}
	if err := s.keys.CreateAPIKey(ctx, apiKey); err != nil {
		log.Error().Err(err).Msg("failed to create API key")
		return nil, NewInternal("internal_error", "Failed to create API key")
	}

	return &CreateAPIKeyResult{APIKey: apiKey, RawKey: rawKey}, nil
}

// List returns the account's keys. Metadata only: the model type never
// serializes the hash and the plaintext was never stored.
func (s *APIKeyService) List(ctx context.Context, accountID uuid.UUID, offset, limit int) ([]*model.APIKey, int, error) {
	keys, total, err := s.keys.ListAPIKeys(ctx, accountID, offset, limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list API keys")
		return nil, 0, NewInternal("internal_error", "Failed to list API keys")
	}
	return keys, total, nil
}

// Revoke deletes a key owned by the account. Deletion takes effect on the
// very next authentication attempt; foreign or unknown ids both report
// not found.
func (s *APIKeyService) Revoke(ctx context.Context, accountID, keyID uuid.UUID) error {
	if err := s.keys.DeleteAPIKey(ctx, accountID, keyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NewNotFound("not_found", "API key not found")
		}
		log.Error().Err(err).Str("id", keyID.String()).Msg("failed to revoke API key")
		return NewInternal("internal_error", "Failed to revoke API key")
	}
	return nil
}

// AuthenticateKey resolves a presented secret to its owning account. The
// secret is hashed and looked up by hash, so the work done is one digest and
// one indexed read regardless of how many keys exist or whether any matches;
// a missing key and a wrong secret are indistinguishable to the caller.
func (s *APIKeyService) AuthenticateKey(ctx context.Context, secret string) (*model.Account, *model.APIKey, error) {
	if !strings.HasPrefix(secret, KeyPrefix) {
		return nil, nil, NewUnauthorized("invalid_credentials", "Invalid API key")
	}

	apiKey, err := s.keys.GetAPIKeyByHash(ctx, SHA256Hex(secret))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, NewUnauthorized("invalid_credentials", "Invalid API key")
		}
		log.Error().Err(err).Msg("failed to look up API key")
		return nil, nil, NewInternal("internal_error", "Failed to authenticate")
	}

	account, err := s.accounts.GetAccountByID(ctx, apiKey.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, NewUnauthorized("invalid_credentials", "Invalid API key")
		}
		log.Error().Err(err).Msg("failed to load key owner")
		return nil, nil, NewInternal("internal_error", "Failed to authenticate")
	}
	return account, apiKey, nil
}

func generateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand failed: %w", err)
	}
	return KeyPrefix + hex.EncodeToString(b), nil
}

// SHA256Hex returns the hex-encoded SHA-256 hash of the input.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}
