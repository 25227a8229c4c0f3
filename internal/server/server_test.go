package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/edgar-filings-service/internal/config"
	"github.com/edgar-filings-service/internal/middleware"
	"github.com/edgar-filings-service/internal/model"
	"github.com/edgar-filings-service/internal/service"
	"github.com/edgar-filings-service/internal/store"
)

type testServer struct {
	router http.Handler
	mem    *store.Memory
	tokens *service.TokenService
}

func newTestServer(t *testing.T, ratePerSec float64, burst int) *testServer {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:         "test-secret-key-at-least-32-bytes!!",
		RefreshTokenTTL:   24 * time.Hour,
		RateLimitPerSec:   ratePerSec,
		RateLimitBurst:    burst,
		AuthMaxFailures:   100,
		AuthFailureWindow: time.Minute,
		AuthBlockDuration: time.Minute,
	}

	mem := store.NewMemory()
	tokens, err := service.NewTokenService(service.TokenConfig{
		SecretKey:  cfg.JWTSecret,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, mem)
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}

	router := NewRouter(Deps{
		Config:   cfg,
		Store:    mem,
		Accounts: service.NewAccountService(mem, nil),
		Tokens:   tokens,
		APIKeys:  service.NewAPIKeyService(mem, mem),
		Limiter:  middleware.NewMemoryLimiter(cfg.RateLimitPerSec, cfg.RateLimitBurst),
		Registry: prometheus.NewRegistry(),
	})

	return &testServer{router: router, mem: mem, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) registerAndApprove(t *testing.T, username string) (accessToken string) {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/auth/register",
		fmt.Sprintf(`{"username":%q,"password":"long enough pw"}`, username), nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		ID          string `json:"id"`
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}

	account, err := s.mem.GetAccountByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("load account: %v", err)
	}
	if err := s.mem.UpdateAccountStatus(context.Background(), account.ID, model.StatusApproved); err != nil {
		t.Fatalf("approve account: %v", err)
	}
	return resp.AccessToken
}

func TestLoginThenProtectedEndpoint(t *testing.T) {
	srv := newTestServer(t, 1000, 1000)
	srv.registerAndApprove(t, "filer42")

	rr := srv.do(t, http.MethodPost, "/auth/login", `{"username":"filer42","password":"long enough pw"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rr.Code, rr.Body.String())
	}
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &tokens); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rr = srv.do(t, http.MethodGet, "/filings", "", map[string]string{
		"Authorization": "Bearer " + tokens.AccessToken,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("protected call with fresh token: %d %s", rr.Code, rr.Body.String())
	}
}

func TestPendingAccountBlockedFromProtectedEndpoints(t *testing.T) {
	srv := newTestServer(t, 1000, 1000)

	// Register but do not approve.
	rr := srv.do(t, http.MethodPost, "/auth/register", `{"username":"newbie","password":"long enough pw"}`, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register: %d", rr.Code)
	}

	// Login still works: pending accounts may prove identity.
	rr = srv.do(t, http.MethodPost, "/auth/login", `{"username":"newbie","password":"long enough pw"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("pending login: %d %s", rr.Code, rr.Body.String())
	}
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &tokens); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rr = srv.do(t, http.MethodGet, "/filings", "", map[string]string{
		"Authorization": "Bearer " + tokens.AccessToken,
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("pending account should get 403, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "pending_approval") {
		t.Fatalf("expected pending_approval code, got %s", rr.Body.String())
	}
}

func TestAPIKeyLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t, 1000, 1000)
	access := srv.registerAndApprove(t, "filer42")
	bearer := map[string]string{"Authorization": "Bearer " + access}

	// Create: plaintext appears exactly here.
	rr := srv.do(t, http.MethodPost, "/auth/api-keys", `{"name":"ci"}`, bearer)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create key: %d %s", rr.Code, rr.Body.String())
	}
	var created struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(created.Key, "edgar_") {
		t.Fatalf("key missing edgar_ prefix: %s", created.Key)
	}

	// The key authenticates via the X-API-Key header.
	rr = srv.do(t, http.MethodGet, "/filings", "", map[string]string{"X-API-Key": created.Key})
	if rr.Code != http.StatusOK {
		t.Fatalf("key auth: %d %s", rr.Code, rr.Body.String())
	}

	// List never shows the plaintext.
	rr = srv.do(t, http.MethodGet, "/auth/api-keys", "", bearer)
	if rr.Code != http.StatusOK {
		t.Fatalf("list keys: %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), created.Key) {
		t.Fatal("list response leaks plaintext key")
	}

	// Revoke, then the key fails immediately.
	rr = srv.do(t, http.MethodDelete, "/auth/api-keys/"+created.ID, "", bearer)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("revoke: %d", rr.Code)
	}
	rr = srv.do(t, http.MethodGet, "/filings", "", map[string]string{"X-API-Key": created.Key})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("revoked key should 401, got %d", rr.Code)
	}
}

func TestRateLimitEnforcedPerPrincipal(t *testing.T) {
	srv := newTestServer(t, 8, 8)
	accessA := srv.registerAndApprove(t, "burster")
	accessB := srv.registerAndApprove(t, "bystander")

	denied := 0
	for i := 0; i < 100; i++ {
		rr := srv.do(t, http.MethodGet, "/filings", "", map[string]string{
			"Authorization": "Bearer " + accessA,
		})
		if rr.Code == http.StatusTooManyRequests {
			denied++
		}
	}
	if denied < 90 {
		t.Fatalf("expected at least 90 denials for the bursting principal, got %d", denied)
	}

	rr := srv.do(t, http.MethodGet, "/filings", "", map[string]string{
		"Authorization": "Bearer " + accessB,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("other principal should be unaffected, got %d", rr.Code)
	}
}

func TestMissingCredentialIs401(t *testing.T) {
	srv := newTestServer(t, 1000, 1000)

	rr := srv.do(t, http.MethodGet, "/filings", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "unauthenticated") {
		t.Fatalf("expected unauthenticated code, got %s", rr.Body.String())
	}
}

func TestHealthzIsPublic(t *testing.T) {
	srv := newTestServer(t, 1000, 1000)

	rr := srv.do(t, http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "healthy") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}
