package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/edgar-filings-service/internal/model"
)

func (p *Postgres) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO api_keys (account_id, name, key_hash, key_prefix)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, key.AccountID, key.Name, key.KeyHash, key.KeyPrefix).Scan(&key.ID, &key.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert api_key: %w", err)
	}
	return nil
}

const apiKeyColumns = `id, account_id, name, key_hash, key_prefix, created_at`

func (p *Postgres) GetAPIKeyByHash(ctx context.Context, keyHash string) (*model.APIKey, error) {
	var k model.APIKey
	err := p.pool.QueryRow(ctx, `
		SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1
	`, keyHash).Scan(&k.ID, &k.AccountID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query api_key by hash: %w", err)
	}
	return &k, nil
}

func (p *Postgres) ListAPIKeys(ctx context.Context, accountID uuid.UUID, offset, limit int) ([]*model.APIKey, int, error) {
	var total int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM api_keys WHERE account_id = $1`, accountID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count api_keys: %w", err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT `+apiKeyColumns+` FROM api_keys
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list api_keys: %w", err)
	}
	defer rows.Close()

	var keys []*model.APIKey
	for rows.Next() {
		var k model.APIKey
		if err := rows.Scan(&k.ID, &k.AccountID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan api_key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, total, rows.Err()
}

// DeleteAPIKey removes a key owned by the given account. The account scope in
// the WHERE clause makes cross-account revocation indistinguishable from an
// unknown id.
func (p *Postgres) DeleteAPIKey(ctx context.Context, accountID, keyID uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `
		DELETE FROM api_keys WHERE id = $1 AND account_id = $2
	`, keyID, accountID)
	if err != nil {
		return fmt.Errorf("delete api_key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) CountAPIKeys(ctx context.Context) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM api_keys`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count api_keys: %w", err)
	}
	return count, nil
}
