package workflow

import (
	"context"
	"sync"
)

// MemoryStepStore keeps step results in process memory. It backs tests
// and any deployment that accepts losing memos on restart; the durable
// Postgres implementation lives in the service package.
type MemoryStepStore struct {
	mu   sync.Mutex
	runs map[string]map[string]StepResult
}

func NewMemoryStepStore() *MemoryStepStore {
	return &MemoryStepStore{runs: make(map[string]map[string]StepResult)}
}

func (s *MemoryStepStore) Load(_ context.Context, runID string) (map[string]StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	memo := make(map[string]StepResult, len(s.runs[runID]))
	for k, v := range s.runs[runID] {
		memo[k] = v
	}
	return memo, nil
}

func (s *MemoryStepStore) Save(_ context.Context, runID, step string, res StepResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runs[runID] == nil {
		s.runs[runID] = make(map[string]StepResult)
	}
	s.runs[runID][step] = res
	return nil
}
