package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RateLimiter counts messages per chat per minute window.
type RateLimiter struct {
	db *pgxpool.Pool
}

func NewRateLimiter(db *pgxpool.Pool) *RateLimiter {
	return &RateLimiter{db: db}
}

// CheckAndIncrement bumps the current window's counter and returns the
// new count.
func (l *RateLimiter) CheckAndIncrement(ctx context.Context, chatID int64) (int64, error) {
	var count int64
	err := l.db.QueryRow(ctx,
		`INSERT INTO rate_limits (chat_id, window_start, count)
		 VALUES ($1, date_trunc('minute', NOW()), 1)
		 ON CONFLICT (chat_id, window_start) DO UPDATE SET count = rate_limits.count + 1
		 RETURNING count`, chatID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("rate limit increment: %w", err)
	}
	return count, nil
}

// CleanupOld drops windows older than an hour.
func (l *RateLimiter) CleanupOld(ctx context.Context) error {
	_, err := l.db.Exec(ctx,
		`DELETE FROM rate_limits WHERE window_start < NOW() - INTERVAL '1 hour'`)
	return err
}
