package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TokenRepository caches upstream API tokens with their own TTL, so every
// replica shares one token instead of holding a process-local copy.
type TokenRepository struct {
	db *pgxpool.Pool
}

func NewTokenRepository(db *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{db: db}
}

// Get returns the cached token, or "" once it has expired or was never set.
func (r *TokenRepository) Get(ctx context.Context, name string) (string, error) {
	var token string
	err := r.db.QueryRow(ctx,
		"SELECT token FROM api_tokens WHERE name = $1 AND expires_at > now()",
		name).Scan(&token)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (r *TokenRepository) SetWithTTL(ctx context.Context, name, token string, ttlSeconds int) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO api_tokens (name, token, expires_at)
		VALUES ($1, $2, now() + make_interval(secs => $3))
		ON CONFLICT (name)
		DO UPDATE SET token = $2, expires_at = now() + make_interval(secs => $3)
	`, name, token, ttlSeconds)
	return err
}
