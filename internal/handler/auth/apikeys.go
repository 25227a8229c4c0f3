package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/edgar-filings-service/internal/handler"
	"github.com/edgar-filings-service/internal/httputil"
	"github.com/edgar-filings-service/internal/middleware"
	"github.com/edgar-filings-service/internal/model"
	"github.com/edgar-filings-service/internal/service"
	"github.com/edgar-filings-service/internal/validation"
)

const maxListLimit = 100

// --- Create API Key ---

type CreateAPIKeyHandler struct {
	svc *service.APIKeyService
}

func NewCreateAPIKeyHandler(svc *service.APIKeyService) *CreateAPIKeyHandler {
	return &CreateAPIKeyHandler{svc: svc}
}

type createAPIKeyRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type createAPIKeyResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	KeyPrefix string    `json:"key_prefix"`
	CreatedAt string    `json:"created_at"`
}

func (h *CreateAPIKeyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		handler.RespondError(w, http.StatusUnauthorized, "unauthenticated", "Missing credentials")
		return
	}

	var req createAPIKeyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		handler.RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := validation.Struct(req); err != nil {
		handler.RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := h.svc.Create(r.Context(), principal.AccountID, req.Name)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	// The only response that ever carries the plaintext secret.
	handler.RespondJSON(w, http.StatusCreated, createAPIKeyResponse{
		ID:        result.APIKey.ID,
		Name:      result.APIKey.Name,
		Key:       result.RawKey,
		KeyPrefix: result.APIKey.KeyPrefix,
		CreatedAt: result.APIKey.CreatedAt.Format(time.RFC3339),
	})
}

// --- List API Keys ---

type ListAPIKeysHandler struct {
	svc *service.APIKeyService
}

func NewListAPIKeysHandler(svc *service.APIKeyService) *ListAPIKeysHandler {
	return &ListAPIKeysHandler{svc: svc}
}

type listAPIKeysResponse struct {
	APIKeys []*model.APIKey `json:"api_keys"`
	Total   int             `json:"total"`
	Offset  int             `json:"offset"`
	Limit   int             `json:"limit"`
}

func (h *ListAPIKeysHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		handler.RespondError(w, http.StatusUnauthorized, "unauthenticated", "Missing credentials")
		return
	}

	offset, limit, err := httputil.ParsePagination(r.URL.Query().Get("offset"), r.URL.Query().Get("limit"), maxListLimit)
	if err != nil {
		handler.RespondError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	keys, total, err := h.svc.List(r.Context(), principal.AccountID, offset, limit)
	if err != nil {
		service.RespondError(w, err)
		return
	}
	if keys == nil {
		keys = []*model.APIKey{}
	}

	handler.RespondJSON(w, http.StatusOK, listAPIKeysResponse{
		APIKeys: keys,
		Total:   total,
		Offset:  offset,
		Limit:   limit,
	})
}

// --- Revoke API Key ---

type RevokeAPIKeyHandler struct {
	svc *service.APIKeyService
}

func NewRevokeAPIKeyHandler(svc *service.APIKeyService) *RevokeAPIKeyHandler {
	return &RevokeAPIKeyHandler{svc: svc}
}

func (h *RevokeAPIKeyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		handler.RespondError(w, http.StatusUnauthorized, "unauthenticated", "Missing credentials")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		handler.RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid API key ID")
		return
	}

	if err := h.svc.Revoke(r.Context(), principal.AccountID, id); err != nil {
		service.RespondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Me ---

// MeHandler reports the authenticated principal, mostly for client debugging.
type MeHandler struct{}

type meResponse struct {
	AccountID  string `json:"account_id"`
	Username   string `json:"username"`
	Status     string `json:"status"`
	Credential string `json:"credential"`
}

func (MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		handler.RespondError(w, http.StatusUnauthorized, "unauthenticated", "Missing credentials")
		return
	}

	handler.RespondJSON(w, http.StatusOK, meResponse{
		AccountID:  principal.AccountID.String(),
		Username:   principal.Username,
		Status:     string(principal.Status),
		Credential: string(principal.Credential),
	})
}
