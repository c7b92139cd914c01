package workflow

import (
	"context"

	"github.com/evernook/solace/internal/domain"
)

// TextIntelligence is the boundary to the external language model.
// Both operations are untyped text in, untyped text out; the workflow
// owns all parsing and fallback logic around them.
type TextIntelligence interface {
	// Analyze asks the model for a structured insight on one message
	// given a serialized context, returning the raw model output.
	Analyze(ctx context.Context, message, contextJSON string) (string, error)
	// Respond generates free text for an assembled prompt.
	Respond(ctx context.Context, prompt string) (string, error)
}

type AlertKind string

const (
	AlertRisk    AlertKind = "risk"
	AlertConcern AlertKind = "concern"
)

// Alert is the payload handed to the safety channel.
type Alert struct {
	Kind      AlertKind
	SessionID string
	RiskLevel int
	Concerns  []string
	Excerpt   string
}

// AlertSink is a fire-and-forget notification channel. Implementations
// must swallow their own failures; a broken sink never fails a run.
type AlertSink interface {
	Notify(ctx context.Context, alert Alert)
}

// ReportStore persists transcript-analysis reports.
type ReportStore interface {
	SaveSessionReport(ctx context.Context, sessionID string, report domain.SessionReport) error
}

// RecommendationStore persists generated activity recommendations.
type RecommendationStore interface {
	SaveRecommendations(ctx context.Context, userID int64, recs []domain.ActivityRecommendation) error
}
