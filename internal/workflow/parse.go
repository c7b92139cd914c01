package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/evernook/solace/internal/domain"
)

// stripCodeFence removes a leading ```json (or bare ```) fence and the
// trailing fence, which models routinely wrap JSON answers in despite
// instructions not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func parseInsight(raw string) (domain.Insight, error) {
	cleaned := stripCodeFence(raw)
	var in domain.Insight
	if err := json.Unmarshal([]byte(cleaned), &in); err != nil {
		return domain.Insight{}, fmt.Errorf("parse insight: %w", err)
	}
	if in.Themes == nil {
		in.Themes = []string{}
	}
	if in.ProgressIndicators == nil {
		in.ProgressIndicators = []string{}
	}
	return in, nil
}

func parseSessionReport(raw string) (domain.SessionReport, error) {
	cleaned := stripCodeFence(raw)
	var rep domain.SessionReport
	if err := json.Unmarshal([]byte(cleaned), &rep); err != nil {
		return domain.SessionReport{}, fmt.Errorf("parse session report: %w", err)
	}
	return rep, nil
}

// parseRecommendations accepts either a bare JSON array or an object
// wrapping the array under "recommendations".
func parseRecommendations(raw string) ([]domain.ActivityRecommendation, error) {
	cleaned := stripCodeFence(raw)

	var recs []domain.ActivityRecommendation
	if err := json.Unmarshal([]byte(cleaned), &recs); err == nil {
		return recs, nil
	}

	var wrapper struct {
		Recommendations []domain.ActivityRecommendation `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wrapper); err != nil {
		return nil, fmt.Errorf("parse recommendations: %w", err)
	}
	return wrapper.Recommendations, nil
}
