package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/edgar-filings-service/internal/model"
	"github.com/edgar-filings-service/internal/service"
)

type contextKey string

const principalContextKey contextKey = "principal"

// APIKeyHeader carries an API key credential. It wins over a bearer token
// when both are present.
const APIKeyHeader = "X-API-Key"

// GetPrincipal extracts the authenticated principal from the request context.
func GetPrincipal(ctx context.Context) *model.Principal {
	p, _ := ctx.Value(principalContextKey).(*model.Principal)
	return p
}

// WithPrincipal returns a context carrying the principal.
func WithPrincipal(ctx context.Context, p *model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// TokenAuthenticator validates an access token and resolves its account.
type TokenAuthenticator interface {
	AuthenticateAccess(ctx context.Context, token string) (*model.Account, error)
}

// KeyAuthenticator resolves an API key secret to its account and key.
type KeyAuthenticator interface {
	AuthenticateKey(ctx context.Context, secret string) (*model.Account, *model.APIKey, error)
}

// credential is the tagged result of inspecting a request's headers once.
type credential struct {
	kind  model.CredentialKind
	value string
}

func resolveCredential(r *http.Request) credential {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return credential{kind: model.CredentialAPIKey, value: key}
	}
	if token := extractBearerToken(r); token != "" {
		return credential{kind: model.CredentialBearer, value: token}
	}
	return credential{kind: model.CredentialNone}
}

// Authenticate returns middleware that resolves the request's credential and
// attaches a Principal, or rejects the request before the handler runs.
func Authenticate(tokens TokenAuthenticator, keys KeyAuthenticator, attempts *AuthAttemptLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attemptKey := clientIPKey(r, "credential")
			if attempts != nil && !attempts.allow(attemptKey) {
				respondError(w, http.StatusTooManyRequests, "rate_limited", "Too many authentication failures")
				return
			}

			cred := resolveCredential(r)
			if cred.kind == model.CredentialNone {
				respondError(w, http.StatusUnauthorized, "unauthenticated", "Missing credentials")
				return
			}

			var (
				account *model.Account
				apiKey  *model.APIKey
				err     error
			)
			switch cred.kind {
			case model.CredentialAPIKey:
				account, apiKey, err = keys.AuthenticateKey(r.Context(), cred.value)
			case model.CredentialBearer:
				account, err = tokens.AuthenticateAccess(r.Context(), cred.value)
			}
			if err != nil {
				if attempts != nil {
					attempts.registerFailure(attemptKey)
				}
				service.RespondError(w, err)
				return
			}
			if attempts != nil {
				attempts.registerSuccess(attemptKey)
			}

			principal := &model.Principal{
				AccountID:  account.ID,
				Username:   account.Username,
				Status:     account.Status,
				Credential: cred.kind,
			}
			if apiKey != nil {
				principal.APIKeyID = apiKey.ID
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireApproved rejects principals whose account has not been approved.
// Pending accounts can authenticate (that proves identity) but get 403 on
// everything beyond the auth surface.
func RequireApproved(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := GetPrincipal(r.Context())
		if principal == nil {
			respondError(w, http.StatusUnauthorized, "unauthenticated", "Missing credentials")
			return
		}
		if principal.Status != model.StatusApproved {
			respondError(w, http.StatusForbidden, "pending_approval", "Account has not been approved")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}
