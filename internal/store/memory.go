package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edgar-filings-service/internal/model"
)

// Memory is an in-memory Store used by tests and local development. All
// methods take the same locks, so create/revoke are atomic with respect to
// concurrent authentication lookups.
type Memory struct {
	mu        sync.RWMutex
	accounts  map[uuid.UUID]*model.Account
	usernames map[string]uuid.UUID
	keys      map[uuid.UUID]*model.APIKey
	keyHashes map[string]uuid.UUID
	filings   []*model.Filing
	facts     []*model.FinancialFact
	companies []*model.Company
}

func NewMemory() *Memory {
	return &Memory{
		accounts:  make(map[uuid.UUID]*model.Account),
		usernames: make(map[string]uuid.UUID),
		keys:      make(map[uuid.UUID]*model.APIKey),
		keyHashes: make(map[string]uuid.UUID),
	}
}

func (m *Memory) CreateAccount(_ context.Context, account *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.usernames[account.Username]; exists {
		return ErrDuplicateUsername
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	stored := *account
	m.accounts[account.ID] = &stored
	m.usernames[account.Username] = account.ID
	return nil
}

func (m *Memory) GetAccountByUsername(_ context.Context, username string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.usernames[username]
	if !ok {
		return nil, ErrNotFound
	}
	account := *m.accounts[id]
	return &account, nil
}

func (m *Memory) GetAccountByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (m *Memory) UpdateAccountStatus(_ context.Context, id uuid.UUID, status model.AccountStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	account.Status = status
	return nil
}

func (m *Memory) CountAccounts(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts), nil
}

func (m *Memory) CreateAPIKey(_ context.Context, key *model.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	stored := *key
	m.keys[key.ID] = &stored
	m.keyHashes[key.KeyHash] = key.ID
	return nil
}

func (m *Memory) GetAPIKeyByHash(_ context.Context, keyHash string) (*model.APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.keyHashes[keyHash]
	if !ok {
		return nil, ErrNotFound
	}
	key := *m.keys[id]
	return &key, nil
}

func (m *Memory) ListAPIKeys(_ context.Context, accountID uuid.UUID, offset, limit int) ([]*model.APIKey, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var owned []*model.APIKey
	for _, key := range m.keys {
		if key.AccountID == accountID {
			copied := *key
			owned = append(owned, &copied)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })

	total := len(owned)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return owned[offset:end], total, nil
}

func (m *Memory) DeleteAPIKey(_ context.Context, accountID, keyID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.keys[keyID]
	if !ok || key.AccountID != accountID {
		return ErrNotFound
	}
	delete(m.keys, keyID)
	delete(m.keyHashes, key.KeyHash)
	return nil
}

func (m *Memory) CountAPIKeys(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys), nil
}

// AddFiling, AddFact and AddCompany seed the corpus for tests.
func (m *Memory) AddFiling(f *model.Filing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filings = append(m.filings, f)
}

func (m *Memory) AddFact(f *model.FinancialFact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facts = append(m.facts, f)
}

func (m *Memory) AddCompany(c *model.Company) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies = append(m.companies, c)
}

func (m *Memory) ListFilings(_ context.Context, filters FilingFilters) ([]*model.Filing, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*model.Filing
	for _, f := range m.filings {
		if filters.CIK != "" && f.CIK != filters.CIK {
			continue
		}
		if filters.FormType != "" && f.FormType != filters.FormType {
			continue
		}
		matched = append(matched, f)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].FiledAt.After(matched[j].FiledAt) })
	return paginate(matched, filters.Offset, filters.Limit)
}

func (m *Memory) ListFacts(_ context.Context, cik string, offset, limit int) ([]*model.FinancialFact, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*model.FinancialFact
	for _, f := range m.facts {
		if f.CIK == cik {
			matched = append(matched, f)
		}
	}
	return paginate(matched, offset, limit)
}

func (m *Memory) SearchCompanies(_ context.Context, query string, offset, limit int) ([]*model.Company, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := strings.ToLower(query)
	var matched []*model.Company
	for _, c := range m.companies {
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Ticker), q) {
			matched = append(matched, c)
		}
	}
	return paginate(matched, offset, limit)
}

func paginate[T any](items []T, offset, limit int) ([]T, int, error) {
	total := len(items)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return items[offset:end], total, nil
}
