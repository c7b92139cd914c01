package workflow

import (
	"github.com/evernook/solace/internal/domain"
)

// DefaultRiskThreshold is the level above which a safety alert fires.
// This is a policy constant, tuned deliberately; change it only with
// clinical review.
const DefaultRiskThreshold = 4

// Decision is the outcome of evaluating an insight against the
// threshold.
type Decision struct {
	Alert bool
}

// RiskEvaluator maps an insight to an alert decision. The threshold is
// a hard cut, not a gradient: alert fires iff riskLevel > Threshold.
type RiskEvaluator struct {
	Threshold int
}

func NewRiskEvaluator() RiskEvaluator {
	return RiskEvaluator{Threshold: DefaultRiskThreshold}
}

func (e RiskEvaluator) Evaluate(in domain.Insight) Decision {
	return Decision{Alert: in.RiskLevel > e.Threshold}
}
