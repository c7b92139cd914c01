package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoodEntry is one self-reported mood check-in.
type MoodEntry struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"-"`
	Label     string          `json:"label"`
	Intensity decimal.Decimal `json:"intensity"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ActivityRecommendation is one ranked suggestion produced by the
// recommendation workflow.
type ActivityRecommendation struct {
	Activity   string `json:"activity"`
	Reasoning  string `json:"reasoning"`
	Benefit    string `json:"benefit"`
	Difficulty string `json:"difficulty"`
	Duration   string `json:"duration"`
}
