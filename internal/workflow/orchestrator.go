package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/evernook/solace/internal/domain"
)

// FallbackResponse is the reply returned whenever the upstream model
// cannot produce one. A user must receive an answer under every failure
// mode of the message workflow.
const FallbackResponse = "I'm here to support you. Could you tell me more about what's on your mind?"

// Orchestrator wires the step runner, memory fold, risk evaluator and
// the external ports into the three workflows.
type Orchestrator struct {
	intel   TextIntelligence
	alerts  AlertSink
	risk    RiskEvaluator
	reports ReportStore
	recs    RecommendationStore
}

func NewOrchestrator(intel TextIntelligence, alerts AlertSink, risk RiskEvaluator, reports ReportStore, recs RecommendationStore) *Orchestrator {
	return &Orchestrator{
		intel:   intel,
		alerts:  alerts,
		risk:    risk,
		reports: reports,
		recs:    recs,
	}
}

type ProcessMessageInput struct {
	SessionID    string
	Message      string
	History      []domain.Message
	Memory       domain.Memory
	Goals        []string
	SystemPrompt string
}

type ProcessMessageResult struct {
	Response      string
	Analysis      domain.Insight
	UpdatedMemory domain.Memory
}

// ProcessMessage runs the live chat workflow. It never returns an
// error: tolerated failures substitute typed defaults step by step, and
// anything unexpected is converted into a static payload so the session
// is never left without a reply.
func (o *Orchestrator) ProcessMessage(ctx context.Context, run *Run, in ProcessMessageInput) (res ProcessMessageResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("message workflow panic", "run", run.ID, "session", in.SessionID, "panic", r)
			res = ProcessMessageResult{
				Response:      FallbackResponse,
				Analysis:      domain.NeutralInsight(),
				UpdatedMemory: in.Memory,
			}
		}
	}()

	analysis, err := RunStep(ctx, run, "analyze-message", func(ctx context.Context) (domain.Insight, error) {
		ctxJSON, err := json.Marshal(map[string]any{
			"memory": in.Memory,
			"goals":  in.Goals,
		})
		if err != nil {
			return domain.NeutralInsight(), nil
		}
		raw, err := o.intel.Analyze(ctx, in.Message, string(ctxJSON))
		if err != nil {
			slog.Error("analyze message", "run", run.ID, "session", in.SessionID, "error", err)
			return domain.NeutralInsight(), nil
		}
		insight, err := parseInsight(raw)
		if err != nil {
			slog.Warn("malformed analysis, substituting neutral insight", "run", run.ID, "error", err)
			return domain.NeutralInsight(), nil
		}
		return insight, nil
	})
	if err != nil {
		// Only reachable through a corrupted memo; the step itself
		// never fails.
		analysis = domain.NeutralInsight()
	}

	updated, err := RunStep(ctx, run, "update-memory", func(ctx context.Context) (domain.Memory, error) {
		return in.Memory.Fold(analysis), nil
	})
	if err != nil {
		updated = in.Memory.Fold(analysis)
	}

	// Below the threshold the step is skipped entirely, not memoized.
	if o.risk.Evaluate(analysis).Alert {
		RunStep(ctx, run, "trigger-risk-alert", func(ctx context.Context) (bool, error) {
			slog.Warn("high risk level detected in chat message",
				"run", run.ID,
				"session", in.SessionID,
				"risk_level", analysis.RiskLevel,
			)
			o.alerts.Notify(ctx, Alert{
				Kind:      AlertRisk,
				SessionID: in.SessionID,
				RiskLevel: analysis.RiskLevel,
				Excerpt:   in.Message,
			})
			return true, nil
		})
	}

	response, err := RunStep(ctx, run, "generate-response", func(ctx context.Context) (string, error) {
		raw, err := o.intel.Respond(ctx, responsePrompt(in, analysis, updated))
		if err != nil {
			slog.Error("generate response", "run", run.ID, "session", in.SessionID, "error", err)
			return FallbackResponse, nil
		}
		text := strings.TrimSpace(raw)
		if text == "" {
			return FallbackResponse, nil
		}
		return text, nil
	})
	if err != nil || response == "" {
		response = FallbackResponse
	}

	return ProcessMessageResult{
		Response:      response,
		Analysis:      analysis,
		UpdatedMemory: updated,
	}
}

type SessionAnalysisInput struct {
	SessionID  string
	Notes      string
	Transcript string
}

// AnalyzeSession runs the retrospective audit over a full session.
// Unlike ProcessMessage, model and parse failures are fatal here:
// masking them would silently leave a session unreviewed.
func (o *Orchestrator) AnalyzeSession(ctx context.Context, run *Run, in SessionAnalysisInput) (domain.SessionReport, error) {
	content, err := RunStep(ctx, run, "get-session-content", func(ctx context.Context) (string, error) {
		if in.Notes != "" {
			return in.Notes, nil
		}
		if in.Transcript != "" {
			return in.Transcript, nil
		}
		return "", domain.ErrEmptyTranscript
	})
	if err != nil {
		return domain.SessionReport{}, err
	}

	report, err := RunStep(ctx, run, "analyze-session", func(ctx context.Context) (domain.SessionReport, error) {
		raw, err := o.intel.Respond(ctx, sessionReportPrompt(content))
		if err != nil {
			return domain.SessionReport{}, fmt.Errorf("session analysis: %w", err)
		}
		return parseSessionReport(raw)
	})
	if err != nil {
		return domain.SessionReport{}, err
	}

	if _, err := RunStep(ctx, run, "store-analysis", func(ctx context.Context) (bool, error) {
		if err := o.reports.SaveSessionReport(ctx, in.SessionID, report); err != nil {
			return false, fmt.Errorf("store session report: %w", err)
		}
		return true, nil
	}); err != nil {
		return domain.SessionReport{}, err
	}

	if len(report.AreasOfConcern) > 0 {
		RunStep(ctx, run, "trigger-concern-alert", func(ctx context.Context) (bool, error) {
			slog.Warn("concerning indicators in session analysis",
				"run", run.ID,
				"session", in.SessionID,
				"concerns", report.AreasOfConcern,
			)
			o.alerts.Notify(ctx, Alert{
				Kind:      AlertConcern,
				SessionID: in.SessionID,
				Concerns:  report.AreasOfConcern,
			})
			return true, nil
		})
	}

	return report, nil
}

type RecommendationInput struct {
	UserID              int64              `json:"-"`
	RecentMoods         []domain.MoodEntry `json:"recentMoods"`
	CompletedActivities []string           `json:"completedActivities"`
	Preferences         map[string]string  `json:"preferences"`
}

// RecommendActivities generates 3-5 ranked activity suggestions from
// recent mood history. Malformed model output degrades to an empty set;
// only the persistence step can fail the run.
func (o *Orchestrator) RecommendActivities(ctx context.Context, run *Run, in RecommendationInput) ([]domain.ActivityRecommendation, error) {
	userCtx, err := RunStep(ctx, run, "assemble-context", func(ctx context.Context) (RecommendationInput, error) {
		return in, nil
	})
	if err != nil {
		userCtx = in
	}

	recs, err := RunStep(ctx, run, "generate-recommendations", func(ctx context.Context) ([]domain.ActivityRecommendation, error) {
		ctxJSON, err := json.Marshal(userCtx)
		if err != nil {
			return []domain.ActivityRecommendation{}, nil
		}
		raw, err := o.intel.Respond(ctx, recommendationPrompt(string(ctxJSON)))
		if err != nil {
			slog.Error("generate recommendations", "run", run.ID, "user", in.UserID, "error", err)
			return []domain.ActivityRecommendation{}, nil
		}
		recs, err := parseRecommendations(raw)
		if err != nil {
			slog.Warn("malformed recommendations, substituting empty set", "run", run.ID, "error", err)
			return []domain.ActivityRecommendation{}, nil
		}
		return recs, nil
	})
	if err != nil {
		recs = []domain.ActivityRecommendation{}
	}

	if _, err := RunStep(ctx, run, "store-recommendations", func(ctx context.Context) (bool, error) {
		if err := o.recs.SaveRecommendations(ctx, in.UserID, recs); err != nil {
			return false, fmt.Errorf("store recommendations: %w", err)
		}
		return true, nil
	}); err != nil {
		return nil, err
	}

	return recs, nil
}

func responsePrompt(in ProcessMessageInput, analysis domain.Insight, memory domain.Memory) string {
	analysisJSON, _ := json.Marshal(analysis)
	memoryJSON, _ := json.Marshal(memory)
	goalsJSON, _ := json.Marshal(in.Goals)

	return fmt.Sprintf(`%s

Based on the following context, generate a therapeutic response:
Message: %s
Analysis: %s
Memory: %s
Goals: %s

Provide a response that:
1. Addresses the immediate emotional needs
2. Uses appropriate therapeutic techniques
3. Shows empathy and understanding
4. Maintains professional boundaries
5. Considers safety and well-being`,
		in.SystemPrompt, in.Message, analysisJSON, memoryJSON, goalsJSON)
}

func sessionReportPrompt(content string) string {
	return fmt.Sprintf(`Analyze this therapy session and provide insights. Return ONLY a valid JSON object with no markdown formatting or additional text.
Session Content: %s

Required JSON structure:
{
    "keyThemes": ["string"],
    "emotionalSummary": "string",
    "areasOfConcern": ["string"],
    "recommendations": ["string"],
    "progressIndicators": ["string"]
}`, content)
}

func recommendationPrompt(contextJSON string) string {
	return fmt.Sprintf(`Based on the following user context, generate 3-5 personalized activity recommendations. Return ONLY a valid JSON array with no markdown formatting or additional text.
User Context: %s

Each element must have this structure:
{
    "activity": "string",
    "reasoning": "string",
    "benefit": "string",
    "difficulty": "easy|medium|hard",
    "duration": "string"
}`, contextJSON)
}
