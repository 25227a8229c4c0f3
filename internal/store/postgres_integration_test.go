//go:build integration

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/edgar-filings-service/internal/model"
)

func TestPostgresAccountLifecycleIntegration(t *testing.T) {
	ctx := context.Background()
	pg := setupIntegrationStore(t)

	account := &model.Account{
		Username:     fmt.Sprintf("filer-%s", uuid.NewString()[:8]),
		PasswordHash: "hashed",
		Status:       model.StatusPending,
	}
	if err := pg.CreateAccount(ctx, account); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if account.ID == uuid.Nil {
		t.Fatal("expected generated account ID")
	}

	dup := &model.Account{Username: account.Username, PasswordHash: "other", Status: model.StatusPending}
	if err := pg.CreateAccount(ctx, dup); !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("duplicate username: got %v want ErrDuplicateUsername", err)
	}

	byName, err := pg.GetAccountByUsername(ctx, account.Username)
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if byName.ID != account.ID {
		t.Fatalf("unexpected id: got %s want %s", byName.ID, account.ID)
	}

	if err := pg.UpdateAccountStatus(ctx, account.ID, model.StatusApproved); err != nil {
		t.Fatalf("update status: %v", err)
	}
	byID, err := pg.GetAccountByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.Status != model.StatusApproved {
		t.Fatalf("unexpected status: got %q want %q", byID.Status, model.StatusApproved)
	}

	if _, err := pg.GetAccountByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing account: got %v want ErrNotFound", err)
	}
}

func TestPostgresAPIKeyLifecycleIntegration(t *testing.T) {
	ctx := context.Background()
	pg := setupIntegrationStore(t)

	owner := createIntegrationAccount(t, pg)
	other := createIntegrationAccount(t, pg)

	key := &model.APIKey{
		AccountID: owner.ID,
		Name:      "integration-key",
		KeyHash:   fmt.Sprintf("hash-%s", uuid.NewString()),
		KeyPrefix: "edgar_abc123...",
	}
	if err := pg.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("create api key: %v", err)
	}
	if key.ID == uuid.Nil {
		t.Fatal("expected generated API key ID")
	}

	byHash, err := pg.GetAPIKeyByHash(ctx, key.KeyHash)
	if err != nil {
		t.Fatalf("get by hash: %v", err)
	}
	if byHash.ID != key.ID || byHash.AccountID != owner.ID {
		t.Fatalf("unexpected key from hash lookup: %#v", byHash)
	}

	keys, total, err := pg.ListAPIKeys(ctx, owner.ID, 0, 20)
	if err != nil {
		t.Fatalf("list api keys: %v", err)
	}
	if total != 1 || len(keys) != 1 || keys[0].ID != key.ID {
		t.Fatalf("unexpected listing: total=%d len=%d", total, len(keys))
	}

	// Another account cannot revoke the key.
	if err := pg.DeleteAPIKey(ctx, other.ID, key.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-account delete: got %v want ErrNotFound", err)
	}
	if _, err := pg.GetAPIKeyByHash(ctx, key.KeyHash); err != nil {
		t.Fatalf("key should survive cross-account delete: %v", err)
	}

	if err := pg.DeleteAPIKey(ctx, owner.ID, key.ID); err != nil {
		t.Fatalf("delete api key: %v", err)
	}
	if _, err := pg.GetAPIKeyByHash(ctx, key.KeyHash); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted key lookup: got %v want ErrNotFound", err)
	}
	if err := pg.DeleteAPIKey(ctx, owner.ID, key.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: got %v want ErrNotFound", err)
	}
}

func TestPostgresFilingQueriesIntegration(t *testing.T) {
	ctx := context.Background()
	pg := setupIntegrationStore(t)

	const cik = "0000320193"
	filedAt := time.Date(2023, 11, 3, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		form := "10-Q"
		if i == 0 {
			form = "10-K"
		}
		_, err := pg.pool.Exec(ctx, `
			INSERT INTO filings (cik, company_name, form_type, accession_number, filed_at)
			VALUES ($1, $2, $3, $4, $5)`,
			cik, "Apple Inc.", form, fmt.Sprintf("0000320193-23-%06d", i), filedAt.AddDate(0, -i, 0))
		if err != nil {
			t.Fatalf("seed filing: %v", err)
		}
	}

	filings, total, err := pg.ListFilings(ctx, FilingFilters{CIK: cik, Offset: 0, Limit: 10})
	if err != nil {
		t.Fatalf("list filings: %v", err)
	}
	if total != 3 || len(filings) != 3 {
		t.Fatalf("unexpected filings result: total=%d len=%d", total, len(filings))
	}
	// Newest first.
	if !filings[0].FiledAt.After(filings[1].FiledAt) {
		t.Fatalf("expected descending filed_at order: %v then %v", filings[0].FiledAt, filings[1].FiledAt)
	}

	tenKs, total, err := pg.ListFilings(ctx, FilingFilters{CIK: cik, FormType: "10-K", Offset: 0, Limit: 10})
	if err != nil {
		t.Fatalf("list 10-Ks: %v", err)
	}
	if total != 1 || len(tenKs) != 1 || tenKs[0].FormType != "10-K" {
		t.Fatalf("unexpected 10-K result: total=%d len=%d", total, len(tenKs))
	}

	revenue := decimal.RequireFromString("383285000000")
	_, err = pg.pool.Exec(ctx, `
		INSERT INTO financial_facts (cik, concept, unit, value, fiscal_year, fiscal_period, end_date)
		VALUES ($1, 'Revenues', 'USD', $2, 2023, 'FY', $3)`,
		cik, revenue, filedAt)
	if err != nil {
		t.Fatalf("seed fact: %v", err)
	}

	facts, total, err := pg.ListFacts(ctx, cik, 0, 10)
	if err != nil {
		t.Fatalf("list facts: %v", err)
	}
	if total != 1 || len(facts) != 1 {
		t.Fatalf("unexpected facts result: total=%d len=%d", total, len(facts))
	}
	if !facts[0].Value.Equal(revenue) {
		t.Fatalf("fact value lost precision: got %s want %s", facts[0].Value, revenue)
	}

	_, err = pg.pool.Exec(ctx, `INSERT INTO companies (cik, name, ticker) VALUES ($1, 'Apple Inc.', 'AAPL')`, cik)
	if err != nil {
		t.Fatalf("seed company: %v", err)
	}
	companies, total, err := pg.SearchCompanies(ctx, "apple", 0, 10)
	if err != nil {
		t.Fatalf("search companies: %v", err)
	}
	if total != 1 || len(companies) != 1 || companies[0].CIK != cik {
		t.Fatalf("unexpected search result: total=%d len=%d", total, len(companies))
	}
}

func createIntegrationAccount(t *testing.T, pg *Postgres) *model.Account {
	t.Helper()
	account := &model.Account{
		Username:     fmt.Sprintf("filer-%s", uuid.NewString()[:8]),
		PasswordHash: "hashed",
		Status:       model.StatusApproved,
	}
	if err := pg.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account
}

func setupIntegrationStore(t *testing.T) *Postgres {
	t.Helper()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	if err := Migrate(databaseURL); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	pool, err := Connect(context.Background(), databaseURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	t.Cleanup(pool.Close)

	tables := `TRUNCATE TABLE api_keys, accounts, filings, financial_facts, companies RESTART IDENTITY CASCADE`
	if _, err := pool.Exec(context.Background(), tables); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	return NewPostgres(pool)
}
