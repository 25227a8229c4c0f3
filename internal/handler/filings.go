package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/edgar-filings-service/internal/httputil"
	"github.com/edgar-filings-service/internal/model"
	"github.com/edgar-filings-service/internal/store"
)

const maxListLimit = 100

// --- List Filings ---

type ListFilingsHandler struct {
	store store.FilingStore
}

func NewListFilingsHandler(s store.FilingStore) *ListFilingsHandler {
	return &ListFilingsHandler{store: s}
}

type listFilingsResponse struct {
	Filings []*model.Filing `json:"filings"`
	Total   int             `json:"total"`
	Offset  int             `json:"offset"`
	Limit   int             `json:"limit"`
}

func (h *ListFilingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, limit, err := httputil.ParsePagination(q.Get("offset"), q.Get("limit"), maxListLimit)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	filings, total, err := h.store.ListFilings(r.Context(), store.FilingFilters{
		CIK:      q.Get("cik"),
		FormType: q.Get("form"),
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to list filings")
		RespondError(w, http.StatusInternalServerError, "internal_error", "Failed to list filings")
		return
	}
	if filings == nil {
		filings = []*model.Filing{}
	}

	RespondJSON(w, http.StatusOK, listFilingsResponse{
		Filings: filings,
		Total:   total,
		Offset:  offset,
		Limit:   limit,
	})
}

// --- Company Facts ---

type CompanyFactsHandler struct {
	store store.FilingStore
}

func NewCompanyFactsHandler(s store.FilingStore) *CompanyFactsHandler {
	return &CompanyFactsHandler{store: s}
}

type companyFactsResponse struct {
	CIK    string                 `json:"cik"`
	Facts  []*model.FinancialFact `json:"facts"`
	Total  int                    `json:"total"`
	Offset int                    `json:"offset"`
	Limit  int                    `json:"limit"`
}

func (h *CompanyFactsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cik := chi.URLParam(r, "cik")
	if cik == "" {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Missing CIK")
		return
	}

	q := r.URL.Query()
	offset, limit, err := httputil.ParsePagination(q.Get("offset"), q.Get("limit"), maxListLimit)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	facts, total, err := h.store.ListFacts(r.Context(), cik, offset, limit)
	if err != nil {
		log.Error().Err(err).Str("cik", cik).Msg("failed to list facts")
		RespondError(w, http.StatusInternalServerError, "internal_error", "Failed to list facts")
		return
	}
	if facts == nil {
		facts = []*model.FinancialFact{}
	}

	RespondJSON(w, http.StatusOK, companyFactsResponse{
		CIK:    cik,
		Facts:  facts,
		Total:  total,
		Offset: offset,
		Limit:  limit,
	})
}

// --- Company Search ---

type SearchHandler struct {
	store store.FilingStore
}

func NewSearchHandler(s store.FilingStore) *SearchHandler {
	return &SearchHandler{store: s}
}

type searchResponse struct {
	Companies []*model.Company `json:"companies"`
	Total     int              `json:"total"`
	Offset    int              `json:"offset"`
	Limit     int              `json:"limit"`
}

func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		RespondError(w, http.StatusBadRequest, "invalid_parameter", "Missing q parameter")
		return
	}

	offset, limit, err := httputil.ParsePagination(q.Get("offset"), q.Get("limit"), maxListLimit)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	companies, total, err := h.store.SearchCompanies(r.Context(), query, offset, limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to search companies")
		RespondError(w, http.StatusInternalServerError, "internal_error", "Failed to search companies")
		return
	}
	if companies == nil {
		companies = []*model.Company{}
	}

	RespondJSON(w, http.StatusOK, searchResponse{
		Companies: companies,
		Total:     total,
		Offset:    offset,
		Limit:     limit,
	})
}
