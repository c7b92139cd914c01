package domain

import (
	"time"
)

type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionClosed SessionStatus = "closed"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is one ongoing therapy conversation. Sessions are never
// deleted, only closed.
type Session struct {
	ID        string
	UserID    int64
	Status    SessionStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is a single turn in a session. Messages are immutable once
// appended; ordering is append order.
type Message struct {
	ID        int64
	SessionID string
	Role      string
	Text      string
	Meta      *MessageMeta
	CreatedAt time.Time
}

// MessageMeta carries the analysis attached to assistant messages.
type MessageMeta struct {
	Analysis *Insight          `json:"analysis,omitempty"`
	Progress *ProgressSnapshot `json:"progress,omitempty"`
}

// ProgressSnapshot is the risk summary recorded alongside a reply.
type ProgressSnapshot struct {
	EmotionalState string `json:"emotionalState"`
	RiskLevel      int    `json:"riskLevel"`
}

// SessionReport is the retrospective analysis of a full session
// transcript.
type SessionReport struct {
	KeyThemes          []string `json:"keyThemes"`
	EmotionalSummary   string   `json:"emotionalSummary"`
	AreasOfConcern     []string `json:"areasOfConcern"`
	Recommendations    []string `json:"recommendations"`
	ProgressIndicators []string `json:"progressIndicators"`
}
