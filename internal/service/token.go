package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/edgar-filings-service/internal/model"
	"github.com/edgar-filings-service/internal/store"
)

// TokenType distinguishes the two token roles. A token presented for the
// wrong role fails validation even when its signature and expiry are fine.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

const (
	// AccessTokenTTL is fixed: short-lived access tokens bound the
	// revocation delay of the stateless design.
	AccessTokenTTL = 30 * time.Minute

	defaultRefreshTokenTTL = 30 * 24 * time.Hour
	defaultSigningAlg      = "HS256"
)

// TokenClaims are the claims embedded in both access and refresh tokens.
type TokenClaims struct {
	jwt.RegisteredClaims
	AccountID uuid.UUID `json:"uid"`
	TokenType string    `json:"typ"`
}

// TokenConfig configures a TokenService.
type TokenConfig struct {
	// SecretKey signs both token types. Required.
	SecretKey string

	// RefreshTTL is the refresh token lifetime. Defaults if zero.
	RefreshTTL time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// TokenService issues and validates stateless signed token pairs. It keeps no
// per-token state: a token is valid iff its signature, expiry and type check
// out, so the service is safe under concurrency with no synchronization.
type TokenService struct {
	key        []byte
	alg        jwt.SigningMethod
	refreshTTL time.Duration
	now        func() time.Time
	accounts   store.AccountStore
}

func NewTokenService(cfg TokenConfig, accounts store.AccountStore) (*TokenService, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("token secret key must not be empty")
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = defaultRefreshTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TokenService{
		key:        []byte(cfg.SecretKey),
		alg:        jwt.GetSigningMethod(defaultSigningAlg),
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
		accounts:   accounts,
	}, nil
}

// Issue constructs a fresh access/refresh pair for the account. Purely
// functional: nothing is persisted.
func (s *TokenService) Issue(account *model.Account) (model.TokenPair, error) {
	now := s.now().Truncate(time.Second)

	access, accessExp, err := s.sign(account.ID, TokenTypeAccess, now, now.Add(AccessTokenTTL))
	if err != nil {
		return model.TokenPair{}, err
	}
	refresh, refreshExp, err := s.sign(account.ID, TokenTypeRefresh, now, now.Add(s.refreshTTL))
	if err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		Access:  model.IssuedToken{Value: access, ExpiresAt: accessExp},
		Refresh: model.IssuedToken{Value: refresh, ExpiresAt: refreshExp},
	}, nil
}

func (s *TokenService) sign(accountID uuid.UUID, typ TokenType, now, expiresAt time.Time) (string, time.Time, error) {
	token := jwt.NewWithClaims(s.alg, TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		AccountID: accountID,
		TokenType: string(typ),
	})
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, expiresAt, nil
}

// Validate verifies signature, expiry and declared type, returning the
// account id the token asserts. Failures are *Error values with stable codes:
// token_expired, invalid_token, wrong_token_type.
func (s *TokenService) Validate(tokenStr string, expected TokenType) (uuid.UUID, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenStr,
		claims,
		func(t *jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{s.alg.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, NewUnauthorized("token_expired", "Token has expired")
		}
		return uuid.Nil, NewUnauthorized("invalid_token", "Token is invalid")
	}
	if claims.TokenType != string(expected) {
		return uuid.Nil, NewUnauthorized("wrong_token_type", fmt.Sprintf("Expected %s token", expected))
	}
	return claims.AccountID, nil
}

// AuthenticateAccess validates an access token and resolves its account.
func (s *TokenService) AuthenticateAccess(ctx context.Context, tokenStr string) (*model.Account, error) {
	accountID, err := s.Validate(tokenStr, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewUnauthorized("invalid_token", "Token is invalid")
		}
		log.Error().Err(err).Msg("failed to load account for access token")
		return nil, NewInternal("internal_error", "Failed to authenticate")
	}
	return account, nil
}

// Refresh validates a refresh token and mints a new pair. The account's
// current status is re-read: an account rejected after the refresh token was
// issued can no longer refresh. The old pair is not invalidated; the new
// tokens simply coexist until their own expiries.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, *model.Account, error) {
	accountID, err := s.Validate(refreshToken, TokenTypeRefresh)
	if err != nil {
		return model.TokenPair{}, nil, err
	}

	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.TokenPair{}, nil, NewUnauthorized("invalid_token", "Token is invalid")
		}
		log.Error().Err(err).Msg("failed to load account for refresh")
		return model.TokenPair{}, nil, NewInternal("internal_error", "Failed to refresh tokens")
	}

	if account.Status == model.StatusRejected {
		return model.TokenPair{}, nil, NewUnauthorized("unauthorized", "Account access has been revoked")
	}

	pair, err := s.Issue(account)
	if err != nil {
		log.Error().Err(err).Msg("failed to issue token pair")
		return model.TokenPair{}, nil, NewInternal("internal_error", "Failed to refresh tokens")
	}
	return pair, account, nil
}
