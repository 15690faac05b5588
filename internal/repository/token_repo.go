package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TokenRepo stores extension API tokens by their SHA-256 hash.
type TokenRepo struct {
	pool *pgxpool.Pool
}

func NewTokenRepo(pool *pgxpool.Pool) *TokenRepo {
	return &TokenRepo{pool: pool}
}

// UserForToken returns the owner of an active token and bumps its
// last_used_at.
func (r *TokenRepo) UserForToken(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := r.pool.QueryRow(ctx, `
		UPDATE api_tokens SET last_used_at = NOW()
		WHERE token_hash = $1 AND revoked_at IS NULL
		RETURNING user_id`, tokenHash).Scan(&userID)
	return userID, notFound(err)
}

// Create stores a new token hash for a user and returns its row id.
func (r *TokenRepo) Create(ctx context.Context, userID, label, tokenHash string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO api_tokens (user_id, label, token_hash)
		VALUES ($1, NULLIF($2, ''), $3)
		RETURNING id`, userID, label, tokenHash).Scan(&id)
	return id, err
}

// Revoke revokes every active token whose hash starts with hashPrefix.
// Returns the number of tokens revoked.
func (r *TokenRepo) Revoke(ctx context.Context, hashPrefix string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE api_tokens SET revoked_at = NOW()
		WHERE token_hash LIKE $1 || '%' AND revoked_at IS NULL`, hashPrefix)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
