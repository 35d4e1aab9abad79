package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"redirect-manager/internal/model"
)

type APITokenRepository struct {
	pool *pgxpool.Pool
}

func NewAPITokenRepository(pool *pgxpool.Pool) *APITokenRepository {
	return &APITokenRepository{pool: pool}
}

func (r *APITokenRepository) Create(ctx context.Context, t model.APIToken) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO api_tokens (id, hashed_secret, user_id, name, scope, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.HashedSecret, t.UserID, t.Name, t.Scope, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create api token: %w", err)
	}
	return nil
}

func (r *APITokenRepository) FindByHashedSecret(ctx context.Context, hashedSecret string) (model.APIToken, bool, error) {
	var t model.APIToken
	err := r.pool.QueryRow(ctx,
		`SELECT id, hashed_secret, user_id, name, scope, expires_at, last_used_at, created_at
		 FROM api_tokens WHERE hashed_secret = $1`, hashedSecret).
		Scan(&t.ID, &t.HashedSecret, &t.UserID, &t.Name, &t.Scope, &t.ExpiresAt, &t.LastUsedAt, &t.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.APIToken{}, false, nil
	}
	if err != nil {
		return model.APIToken{}, false, fmt.Errorf("find api token: %w", err)
	}
	return t, true, nil
}

func (r *APITokenRepository) FindByID(ctx context.Context, id string) (model.APIToken, error) {
	var t model.APIToken
	err := r.pool.QueryRow(ctx,
		`SELECT id, hashed_secret, user_id, name, scope, expires_at, last_used_at, created_at
		 FROM api_tokens WHERE id = $1`, id).
		Scan(&t.ID, &t.HashedSecret, &t.UserID, &t.Name, &t.Scope, &t.ExpiresAt, &t.LastUsedAt, &t.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.APIToken{}, model.ErrAPITokenNotFound
	}
	if err != nil {
		return model.APIToken{}, fmt.Errorf("find api token by id: %w", err)
	}
	return t, nil
}

func (r *APITokenRepository) FindAllForUser(ctx context.Context, userID string) ([]model.APIToken, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, hashed_secret, user_id, name, scope, expires_at, last_used_at, created_at
		 FROM api_tokens WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list api tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]model.APIToken, 0)
	for rows.Next() {
		var t model.APIToken
		if err := rows.Scan(&t.ID, &t.HashedSecret, &t.UserID, &t.Name, &t.Scope, &t.ExpiresAt, &t.LastUsedAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan api token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// TouchLastUsed is best-effort; failures are the caller's to ignore.
func (r *APITokenRepository) TouchLastUsed(ctx context.Context, id string, usedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE api_tokens SET last_used_at = $2 WHERE id = $1`, id, usedAt)
	if err != nil {
		return fmt.Errorf("touch api token: %w", err)
	}
	return nil
}

func (r *APITokenRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM api_tokens WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete api token: %w", err)
	}
	return nil
}
