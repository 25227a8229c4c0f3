package handler

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edgar-filings-service/internal/store"
)

type HealthHandler struct {
	accounts  store.AccountStore
	keys      store.APIKeyStore
	version   string
	startTime time.Time
}

func NewHealthHandler(accounts store.AccountStore, keys store.APIKeyStore, version string) *HealthHandler {
	return &HealthHandler{
		accounts:  accounts,
		keys:      keys,
		version:   version,
		startTime: time.Now(),
	}
}

type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	TotalAccounts int    `json:"total_accounts"`
	TotalAPIKeys  int    `json:"total_api_keys"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.CountAccounts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to count accounts")
	}
	keys, err := h.keys.CountAPIKeys(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to count API keys")
	}

	RespondJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		TotalAccounts: accounts,
		TotalAPIKeys:  keys,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	})
}
