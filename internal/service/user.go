package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evernook/solace/internal/domain"
)

type UserService struct {
	db *pgxpool.Pool
}

func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

const userColumns = `id, telegram_id, is_admin, first_name, username, active_session_id,
	goals, preferences, last_interaction, created_at, updated_at`

func (s *UserService) FindOrCreate(ctx context.Context, telegramID int64, firstName, username string, isAdmin bool) (*domain.User, bool, error) {
	user, err := s.GetByTelegramID(ctx, telegramID)
	if err == nil {
		return user, false, nil
	}
	if err != domain.ErrUserNotFound {
		return nil, false, err
	}

	row := s.db.QueryRow(ctx,
		`INSERT INTO users (telegram_id, first_name, username, is_admin)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (telegram_id) DO UPDATE SET first_name = EXCLUDED.first_name, username = EXCLUDED.username
		 RETURNING `+userColumns,
		telegramID, firstName, username, isAdmin)

	user, err = scanUser(row)
	if err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return user, true, nil
}

func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
	user, err := scanUser(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (s *UserService) UpdateLastInteraction(ctx context.Context, userID int64) error {
	_, err := s.db.Exec(ctx,
		`UPDATE users SET last_interaction = NOW(), updated_at = NOW() WHERE id = $1`, userID)
	return err
}

func (s *UserService) SetActiveSession(ctx context.Context, userID int64, sessionID *string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE users SET active_session_id = $2, updated_at = NOW() WHERE id = $1`, userID, sessionID)
	if err != nil {
		return fmt.Errorf("set active session: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.TelegramID, &u.IsAdmin, &u.FirstName, &u.Username, &u.ActiveSessionID,
		&u.Goals, &u.Preferences, &u.LastInteraction, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if u.Goals == nil {
		u.Goals = []string{}
	}
	if u.Preferences == nil {
		u.Preferences = map[string]string{}
	}
	return &u, nil
}
