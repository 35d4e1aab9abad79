package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"redirect-manager/internal/model"
)

type RefreshTokenRepository struct {
	pool *pgxpool.Pool
}

func NewRefreshTokenRepository(pool *pgxpool.Pool) *RefreshTokenRepository {
	return &RefreshTokenRepository{pool: pool}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, t model.RefreshToken) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (id, hashed_secret, user_id, revoked, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.HashedSecret, t.UserID, t.Revoked, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindByHashedSecret returns the token row for a digest. The boolean
// reports presence so multi-pepper lookups can keep trying.
func (r *RefreshTokenRepository) FindByHashedSecret(ctx context.Context, hashedSecret string) (model.RefreshToken, bool, error) {
	var t model.RefreshToken
	err := r.pool.QueryRow(ctx,
		`SELECT id, hashed_secret, user_id, revoked, expires_at, created_at
		 FROM refresh_tokens WHERE hashed_secret = $1`, hashedSecret).
		Scan(&t.ID, &t.HashedSecret, &t.UserID, &t.Revoked, &t.ExpiresAt, &t.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.RefreshToken{}, false, nil
	}
	if err != nil {
		return model.RefreshToken{}, false, fmt.Errorf("find refresh token: %w", err)
	}
	return t, true, nil
}

// Rotate tombstones the old token and inserts its replacement in one
// transaction. The old row is locked first so two concurrent rotations of
// the same token cannot both succeed: the loser finds the row already
// revoked and gets ErrRefreshTokenReuse.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, oldID string, replacement model.RefreshToken) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin rotation: %w", err)
	}
	defer tx.Rollback(ctx)

	var revoked bool
	err = tx.QueryRow(ctx,
		`SELECT revoked FROM refresh_tokens WHERE id = $1 FOR UPDATE`, oldID).Scan(&revoked)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("lock refresh token: %w", err)
	}
	if revoked {
		return model.ErrRefreshTokenReuse
	}

	if _, err := tx.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = true WHERE id = $1`, oldID); err != nil {
		return fmt.Errorf("tombstone refresh token: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO refresh_tokens (id, hashed_secret, user_id, revoked, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		replacement.ID, replacement.HashedSecret, replacement.UserID,
		replacement.Revoked, replacement.ExpiresAt, replacement.CreatedAt); err != nil {
		return fmt.Errorf("insert rotated refresh token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit rotation: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete refresh tokens for user: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) FindAllForUser(ctx context.Context, userID string) ([]model.RefreshToken, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, hashed_secret, user_id, revoked, expires_at, created_at
		 FROM refresh_tokens WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list refresh tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]model.RefreshToken, 0)
	for rows.Next() {
		var t model.RefreshToken
		if err := rows.Scan(&t.ID, &t.HashedSecret, &t.UserID, &t.Revoked, &t.ExpiresAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan refresh token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
