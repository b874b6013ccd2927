package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wecom-relay/internal/entities"
)

type MembershipRepository struct {
	db *pgxpool.Pool
}

func NewMembershipRepository(db *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// GetLevel returns the sender's tier, or the default (empty) tier when no
// record exists. The stored expiration is deliberately not consulted here.
func (r *MembershipRepository) GetLevel(ctx context.Context, userID string) (string, error) {
	var level string
	err := r.db.QueryRow(ctx,
		"SELECT level FROM memberships WHERE user_id = $1",
		userID).Scan(&level)
	if err == pgx.ErrNoRows {
		return entities.TierDefault, nil
	}
	if err != nil {
		return "", err
	}
	return level, nil
}

// Set creates or overwrites a sender's membership record.
func (r *MembershipRepository) Set(ctx context.Context, m entities.Membership) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO memberships (user_id, level, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id)
		DO UPDATE SET level = $2, expires_at = $3, updated_at = CURRENT_TIMESTAMP
	`, m.UserID, m.Level, m.ExpiresAt)
	return err
}
