package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/evernook/solace/internal/domain"
)

type MoodService struct {
	db *pgxpool.Pool
}

func NewMoodService(db *pgxpool.Pool) *MoodService {
	return &MoodService{db: db}
}

func (s *MoodService) Record(ctx context.Context, userID int64, label string, intensity decimal.Decimal, note string) (*domain.MoodEntry, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO mood_entries (user_id, label, intensity, note)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, user_id, label, intensity, note, created_at`,
		userID, label, intensity, note)

	var e domain.MoodEntry
	if err := row.Scan(&e.ID, &e.UserID, &e.Label, &e.Intensity, &e.Note, &e.CreatedAt); err != nil {
		return nil, fmt.Errorf("record mood: %w", err)
	}
	return &e, nil
}

func (s *MoodService) Recent(ctx context.Context, userID int64, limit int) ([]domain.MoodEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, label, intensity, note, created_at
		 FROM mood_entries WHERE user_id = $1
		 ORDER BY id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent moods: %w", err)
	}
	defer rows.Close()

	var entries []domain.MoodEntry
	for rows.Next() {
		var e domain.MoodEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Label, &e.Intensity, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mood entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SaveRecommendations implements workflow.RecommendationStore.
func (s *MoodService) SaveRecommendations(ctx context.Context, userID int64, recs []domain.ActivityRecommendation) error {
	if recs == nil {
		recs = []domain.ActivityRecommendation{}
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO activity_recommendations (user_id, recommendations) VALUES ($1, $2)`,
		userID, recs)
	if err != nil {
		return fmt.Errorf("save recommendations: %w", err)
	}
	return nil
}

func (s *MoodService) LatestRecommendations(ctx context.Context, userID int64) ([]domain.ActivityRecommendation, error) {
	var recs []domain.ActivityRecommendation
	err := s.db.QueryRow(ctx,
		`SELECT recommendations FROM activity_recommendations
		 WHERE user_id = $1 ORDER BY id DESC LIMIT 1`, userID).Scan(&recs)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("latest recommendations: %w", err)
	}
	return recs, nil
}
