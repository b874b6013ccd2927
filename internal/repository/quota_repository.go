package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuotaRepository stores per-(sender, period) send counters.
type QuotaRepository struct {
	db *pgxpool.Pool
}

func NewQuotaRepository(db *pgxpool.Pool) *QuotaRepository {
	return &QuotaRepository{db: db}
}

// IncrementIfBelow bumps the counter for (userID, periodLabel) in a single
// statement, but only while it is still below limit. A denied attempt leaves
// the counter untouched, and two concurrent requests cannot both take the
// last remaining unit.
func (r *QuotaRepository) IncrementIfBelow(ctx context.Context, userID, periodLabel string, limit int) (int, bool, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		INSERT INTO quota_counters (user_id, period_label, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, period_label)
		DO UPDATE SET count = quota_counters.count + 1
		WHERE quota_counters.count < $3
		RETURNING count
	`, userID, periodLabel, limit).Scan(&count)
	if err == pgx.ErrNoRows {
		// Already at or over the limit; nothing was written.
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

// Count returns the current counter value, 0 when no row exists.
func (r *QuotaRepository) Count(ctx context.Context, userID, periodLabel string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		"SELECT count FROM quota_counters WHERE user_id = $1 AND period_label = $2",
		userID, periodLabel).Scan(&count)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}
