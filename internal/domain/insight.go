package domain

// Insight is the structured output of the message analysis step.
// Produced fresh per message and never mutated after creation.
type Insight struct {
	EmotionalState      string   `json:"emotionalState"`
	Themes              []string `json:"themes"`
	RiskLevel           int      `json:"riskLevel"`
	RecommendedApproach string   `json:"recommendedApproach"`
	ProgressIndicators  []string `json:"progressIndicators"`
}

// NeutralInsight is the default substituted when the upstream model
// returns something unparseable. The pipeline must never block on a
// malformed analysis.
func NeutralInsight() Insight {
	return Insight{
		EmotionalState:     "neutral",
		Themes:             []string{},
		RiskLevel:          0,
		ProgressIndicators: []string{},
	}
}
