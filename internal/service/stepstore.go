package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evernook/solace/internal/workflow"
)

// WorkflowStore is the durable workflow.StepStore: completed step
// results survive process restarts, so a replayed event resumes at the
// first unfinished step.
type WorkflowStore struct {
	db *pgxpool.Pool
}

func NewWorkflowStore(db *pgxpool.Pool) *WorkflowStore {
	return &WorkflowStore{db: db}
}

func (s *WorkflowStore) Load(ctx context.Context, runID string) (map[string]workflow.StepResult, error) {
	rows, err := s.db.Query(ctx,
		`SELECT step_name, result FROM workflow_steps WHERE run_id = $1`, runID)
	if err != nil {
		return nil, fmt.Errorf("load workflow steps: %w", err)
	}
	defer rows.Close()

	memo := make(map[string]workflow.StepResult)
	for rows.Next() {
		var name string
		var res workflow.StepResult
		if err := rows.Scan(&name, &res); err != nil {
			return nil, fmt.Errorf("scan workflow step: %w", err)
		}
		memo[name] = res
	}
	return memo, rows.Err()
}

func (s *WorkflowStore) Save(ctx context.Context, runID, step string, res workflow.StepResult) error {
	// First write wins: a concurrent replay must not overwrite the
	// recorded outcome.
	_, err := s.db.Exec(ctx,
		`INSERT INTO workflow_steps (run_id, step_name, result)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (run_id, step_name) DO NOTHING`,
		runID, step, res)
	if err != nil {
		return fmt.Errorf("save workflow step: %w", err)
	}
	return nil
}
