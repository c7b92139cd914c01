package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evernook/solace/internal/config"
	"github.com/evernook/solace/internal/domain"
)

// RequestGuard serializes message processing per chat: one in-flight AI
// request at a time. The event layer owes the workflow this
// serialization; the step memo only covers replays, not races.
type RequestGuard struct {
	db *pgxpool.Pool
}

func NewRequestGuard(db *pgxpool.Pool) *RequestGuard {
	return &RequestGuard{db: db}
}

func (g *RequestGuard) TryAcquire(ctx context.Context, chatID int64) error {
	tag, err := g.db.Exec(ctx,
		`INSERT INTO active_requests (chat_id) VALUES ($1) ON CONFLICT (chat_id) DO NOTHING`, chatID)
	if err != nil {
		return fmt.Errorf("acquire request slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrActiveRequest
	}
	return nil
}

func (g *RequestGuard) Release(ctx context.Context, chatID int64) {
	_, _ = g.db.Exec(ctx, `DELETE FROM active_requests WHERE chat_id = $1`, chatID)
}

// CleanupStale removes slots left behind by crashed handlers.
func (g *RequestGuard) CleanupStale(ctx context.Context) error {
	_, err := g.db.Exec(ctx,
		`DELETE FROM active_requests WHERE created_at < NOW() - $1::interval`,
		config.StaleRequestAge.String())
	return err
}
