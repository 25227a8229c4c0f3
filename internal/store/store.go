package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/edgar-filings-service/internal/model"
)

// Sentinel errors returned by store implementations. Services translate these
// into domain errors; callers never see driver-level detail.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("username already taken")
)

// AccountStore defines operations for account management.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)
	GetAccountByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	UpdateAccountStatus(ctx context.Context, id uuid.UUID, status model.AccountStatus) error
	CountAccounts(ctx context.Context) (int, error)
}

// APIKeyStore defines operations for API key management. DeleteAPIKey scopes
// by account id so one account can never revoke another's key.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*model.APIKey, error)
	ListAPIKeys(ctx context.Context, accountID uuid.UUID, offset, limit int) ([]*model.APIKey, int, error)
	DeleteAPIKey(ctx context.Context, accountID, keyID uuid.UUID) error
	CountAPIKeys(ctx context.Context) (int, error)
}

// FilingStore is the narrow read interface onto the filings corpus. The
// ingestion and indexing side lives outside this service.
type FilingStore interface {
	ListFilings(ctx context.Context, filters FilingFilters) ([]*model.Filing, int, error)
	ListFacts(ctx context.Context, cik string, offset, limit int) ([]*model.FinancialFact, int, error)
	SearchCompanies(ctx context.Context, query string, offset, limit int) ([]*model.Company, int, error)
}

// Store combines all store interfaces.
type Store interface {
	AccountStore
	APIKeyStore
	FilingStore
}

// FilingFilters narrows a filings listing.
type FilingFilters struct {
	CIK      string
	FormType string
	Offset   int
	Limit    int
}
