package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edgar-filings-service/internal/model"
)

func (p *Postgres) CreateAccount(ctx context.Context, account *model.Account) error {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO accounts (username, password_hash, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, account.Username, account.PasswordHash, account.Status).Scan(&account.ID, &account.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

const accountColumns = `id, username, password_hash, status, created_at`

func (p *Postgres) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	return p.scanAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
}

func (p *Postgres) GetAccountByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	return p.scanAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (p *Postgres) UpdateAccountStatus(ctx context.Context, id uuid.UUID, status model.AccountStatus) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE accounts SET status = $1 WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("update account status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) CountAccounts(ctx context.Context) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return count, nil
}

func (p *Postgres) scanAccount(ctx context.Context, query string, args ...interface{}) (*model.Account, error) {
	var a model.Account
	err := p.pool.QueryRow(ctx, query, args...).Scan(
		&a.ID, &a.Username, &a.PasswordHash, &a.Status, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query account: %w", err)
	}
	return &a, nil
}
