package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/edgar-filings-service/internal/handler"
	"github.com/edgar-filings-service/internal/model"
	"github.com/edgar-filings-service/internal/service"
	"github.com/edgar-filings-service/internal/validation"
)

const maxBodyBytes = 1 << 20

// tokenResponse is the body returned by login, register and refresh.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func newTokenResponse(pair model.TokenPair, now time.Time) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
		TokenType:    "bearer",
		ExpiresIn:    int64(pair.Access.ExpiresAt.Sub(now).Seconds()),
	}
}

// --- Register ---

type RegisterHandler struct {
	accounts *service.AccountService
	tokens   *service.TokenService
}

func NewRegisterHandler(accounts *service.AccountService, tokens *service.TokenService) *RegisterHandler {
	return &RegisterHandler{accounts: accounts, tokens: tokens}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type registerResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Status   string `json:"status"`
	tokenResponse
}

func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		handler.RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := validation.Struct(req); err != nil {
		handler.RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	account, err := h.accounts.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	pair, err := h.tokens.Issue(account)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	handler.RespondJSON(w, http.StatusCreated, registerResponse{
		ID:            account.ID.String(),
		Username:      account.Username,
		Status:        string(account.Status),
		tokenResponse: newTokenResponse(pair, time.Now()),
	})
}

// --- Login ---

type LoginHandler struct {
	accounts *service.AccountService
	tokens   *service.TokenService
}

func NewLoginHandler(accounts *service.AccountService, tokens *service.TokenService) *LoginHandler {
	return &LoginHandler{accounts: accounts, tokens: tokens}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		handler.RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := validation.Struct(req); err != nil {
		handler.RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	// Pending accounts may log in; proving identity is allowed before
	// approval. Protected endpoints enforce approval separately.
	account, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	pair, err := h.tokens.Issue(account)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	handler.RespondJSON(w, http.StatusOK, newTokenResponse(pair, time.Now()))
}

// --- Refresh ---

type RefreshHandler struct {
	tokens *service.TokenService
}

func NewRefreshHandler(tokens *service.TokenService) *RefreshHandler {
	return &RefreshHandler{tokens: tokens}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		handler.RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := validation.Struct(req); err != nil {
		handler.RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	pair, _, err := h.tokens.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	handler.RespondJSON(w, http.StatusOK, newTokenResponse(pair, time.Now()))
}
