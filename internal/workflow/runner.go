package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// StepResult is the recorded outcome of one step: either a JSON-encoded
// value or the failure message. Exactly one of the two is set.
type StepResult struct {
	Value json.RawMessage `json:"value,omitempty"`
	Error string          `json:"error,omitempty"`
}

// StepStore persists step results keyed by run ID so a replayed or
// cold-started process resumes where the previous invocation stopped.
type StepStore interface {
	Load(ctx context.Context, runID string) (map[string]StepResult, error)
	Save(ctx context.Context, runID, step string, res StepResult) error
}

// Run is one logical workflow invocation for a triggering event. The
// memo of completed steps makes re-delivery of the same event safe:
// side effects execute at most once per step per run.
type Run struct {
	ID    string
	Event string

	store StepStore
	mu    sync.Mutex
	memo  map[string]StepResult
}

// NewRun hydrates the step memo for the given run ID. Re-invoking a
// workflow with the same ID picks up every step the previous attempt
// completed.
func NewRun(ctx context.Context, store StepStore, event, id string) (*Run, error) {
	memo, err := store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load run %q memo: %w", id, err)
	}
	if memo == nil {
		memo = make(map[string]StepResult)
	}
	return &Run{ID: id, Event: event, store: store, memo: memo}, nil
}

// Completed reports whether the named step already has a recorded result.
func (r *Run) Completed(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.memo[name]
	return ok
}

// StepError is returned when a step's recorded outcome is a failure,
// either from this invocation or a previous one.
type StepError struct {
	Step    string
	Message string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed: %s", e.Step, e.Message)
}

// RunStep executes fn exactly once per (run, name). The first call runs
// fn and records its value or failure; later calls return the recorded
// outcome without re-invoking fn. Values cross the memo as JSON, so T
// must round-trip through encoding/json.
func RunStep[T any](ctx context.Context, r *Run, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	r.mu.Lock()
	if res, ok := r.memo[name]; ok {
		r.mu.Unlock()
		if res.Error != "" {
			return zero, &StepError{Step: name, Message: res.Error}
		}
		var v T
		if err := json.Unmarshal(res.Value, &v); err != nil {
			return zero, fmt.Errorf("decode memoized step %q: %w", name, err)
		}
		slog.Debug("step memo hit", "run", r.ID, "step", name)
		return v, nil
	}
	r.mu.Unlock()

	v, err := fn(ctx)

	var res StepResult
	if err != nil {
		res.Error = err.Error()
	} else {
		raw, mErr := json.Marshal(v)
		if mErr != nil {
			return zero, fmt.Errorf("encode step %q result: %w", name, mErr)
		}
		res.Value = raw
	}

	r.mu.Lock()
	r.memo[name] = res
	r.mu.Unlock()

	// A failed save only costs a redundant re-execution after a cold
	// start; the in-process memo still covers this invocation.
	if sErr := r.store.Save(ctx, r.ID, name, res); sErr != nil {
		slog.Warn("persist step result", "run", r.ID, "step", name, "error", sErr)
	}

	if err != nil {
		return zero, &StepError{Step: name, Message: err.Error()}
	}
	return v, nil
}
