package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evernook/solace/internal/config"
	"github.com/evernook/solace/internal/domain"
)

type SessionService struct {
	db    *pgxpool.Pool
	users *UserService
}

func NewSessionService(db *pgxpool.Pool, users *UserService) *SessionService {
	return &SessionService{db: db, users: users}
}

// FindOrCreateActive returns the user's active session, creating a new
// one if none exists or the previous one was closed.
func (s *SessionService) FindOrCreateActive(ctx context.Context, user *domain.User) (*domain.Session, error) {
	if user.ActiveSessionID != nil {
		session, err := s.GetByID(ctx, *user.ActiveSessionID)
		if err == nil && session.Status == domain.SessionActive {
			return session, nil
		}
		if err != nil && err != domain.ErrSessionNotFound {
			return nil, err
		}
	}
	return s.CreateNew(ctx, user)
}

// CreateNew opens a fresh session with empty memory and marks it active
// for the user. Old sessions are closed, never deleted.
func (s *SessionService) CreateNew(ctx context.Context, user *domain.User) (*domain.Session, error) {
	count, err := s.CountByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if count >= config.MaxSessionsPerUser {
		// Close the oldest still-active sessions to stay under the cap.
		if _, err := s.db.Exec(ctx,
			`UPDATE sessions SET status = 'closed', updated_at = NOW()
			 WHERE id IN (
			     SELECT id FROM sessions
			     WHERE user_id = $1 AND status = 'active'
			     ORDER BY created_at ASC LIMIT 1
			 )`, user.ID); err != nil {
			return nil, fmt.Errorf("close oldest session: %w", err)
		}
	}

	id := uuid.NewString()
	row := s.db.QueryRow(ctx,
		`INSERT INTO sessions (id, user_id, status) VALUES ($1, $2, 'active')
		 RETURNING id, user_id, status, created_at, updated_at`, id, user.ID)
	session, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if err := s.ReplaceMemory(ctx, session.ID, domain.NewMemory()); err != nil {
		return nil, err
	}
	if err := s.users.SetActiveSession(ctx, user.ID, &session.ID); err != nil {
		return nil, err
	}
	user.ActiveSessionID = &session.ID

	return session, nil
}

func (s *SessionService) GetByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, user_id, status, created_at, updated_at FROM sessions WHERE id = $1`, sessionID)
	session, err := scanSession(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

func (s *SessionService) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Session, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, status, created_at, updated_at
		 FROM sessions WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var sess domain.Session
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Status, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *SessionService) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM sessions WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}

// Close marks the session closed and clears it as the user's active
// session. The session and its messages are retained.
func (s *SessionService) Close(ctx context.Context, user *domain.User, sessionID string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE sessions SET status = 'closed', updated_at = NOW() WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	if user.ActiveSessionID != nil && *user.ActiveSessionID == sessionID {
		if err := s.users.SetActiveSession(ctx, user.ID, nil); err != nil {
			return err
		}
		user.ActiveSessionID = nil
	}
	return nil
}

// AppendMessage adds one immutable message to the session log.
func (s *SessionService) AppendMessage(ctx context.Context, sessionID, role, text string, meta *domain.MessageMeta) (*domain.Message, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO session_messages (session_id, role, text, meta)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, session_id, role, text, meta, created_at`,
		sessionID, role, text, meta)

	var m domain.Message
	if err := row.Scan(&m.ID, &m.SessionID, &m.Role, &m.Text, &m.Meta, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return &m, nil
}

func (s *SessionService) Messages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, session_id, role, text, meta, created_at
		 FROM session_messages WHERE session_id = $1 ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Text, &m.Meta, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *SessionService) CountMessages(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM session_messages WHERE session_id = $1`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// Memory loads the session's folded memory, or a fresh empty one if no
// row exists yet.
func (s *SessionService) Memory(ctx context.Context, sessionID string) (domain.Memory, error) {
	var m domain.Memory
	err := s.db.QueryRow(ctx,
		`SELECT memory FROM session_memories WHERE session_id = $1`, sessionID).Scan(&m)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.NewMemory(), nil
		}
		return domain.Memory{}, fmt.Errorf("get memory: %w", err)
	}
	return m, nil
}

// ReplaceMemory atomically swaps the stored memory for the session.
func (s *SessionService) ReplaceMemory(ctx context.Context, sessionID string, m domain.Memory) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO session_memories (session_id, memory, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (session_id) DO UPDATE SET memory = EXCLUDED.memory, updated_at = NOW()`,
		sessionID, m)
	if err != nil {
		return fmt.Errorf("replace memory: %w", err)
	}
	return nil
}

// Transcript renders the session's message log as plain text for the
// retrospective analysis workflow.
func (s *SessionService) Transcript(ctx context.Context, sessionID string) (string, error) {
	msgs, err := s.Messages(ctx, sessionID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// SaveSessionReport implements workflow.ReportStore.
func (s *SessionService) SaveSessionReport(ctx context.Context, sessionID string, report domain.SessionReport) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO session_reports (session_id, report) VALUES ($1, $2)`, sessionID, report)
	if err != nil {
		return fmt.Errorf("save session report: %w", err)
	}
	return nil
}

// LatestReportByUser returns the most recent report across the user's
// sessions.
func (s *SessionService) LatestReportByUser(ctx context.Context, userID int64) (*domain.SessionReport, error) {
	var rep domain.SessionReport
	err := s.db.QueryRow(ctx,
		`SELECT r.report FROM session_reports r
		 JOIN sessions s ON s.id = r.session_id
		 WHERE s.user_id = $1
		 ORDER BY r.id DESC LIMIT 1`, userID).Scan(&rep)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrReportNotFound
		}
		return nil, fmt.Errorf("get latest report: %w", err)
	}
	return &rep, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var sess domain.Session
	err := row.Scan(&sess.ID, &sess.UserID, &sess.Status, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}
