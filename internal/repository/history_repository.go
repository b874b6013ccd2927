package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"wecom-relay/internal/entities"
)

// HistoryRepository keeps per-sender conversation turns; newest rows have
// the highest ids.
type HistoryRepository struct {
	db *pgxpool.Pool
}

func NewHistoryRepository(db *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Push(ctx context.Context, userID string, turn entities.ConversationTurn) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO conversation_turns (user_id, role, content) VALUES ($1, $2, $3)",
		userID, turn.Role, turn.Content)
	return err
}

// Recent returns up to limit turns, most recent first.
func (r *HistoryRepository) Recent(ctx context.Context, userID string, limit int) ([]entities.ConversationTurn, error) {
	rows, err := r.db.Query(ctx, `
		SELECT role, content FROM conversation_turns
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	turns := []entities.ConversationTurn{}
	for rows.Next() {
		var t entities.ConversationTurn
		if err := rows.Scan(&t.Role, &t.Content); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Trim deletes everything older than the keep most recent turns.
func (r *HistoryRepository) Trim(ctx context.Context, userID string, keep int) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM conversation_turns
		WHERE user_id = $1 AND id NOT IN (
			SELECT id FROM conversation_turns
			WHERE user_id = $1
			ORDER BY id DESC
			LIMIT $2
		)
	`, userID, keep)
	return err
}
