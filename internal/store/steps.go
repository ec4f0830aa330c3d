package store

import (
	"context"
	"fmt"

	"github.com/nidhogg/reviewflow/internal/review"
)

// InsertStepResult appends one step result for a workflow. Results are
// write-once; the unique constraint on (workflow_id, step_number) rejects
// rewrites.
func (s *Store) InsertStepResult(ctx context.Context, workflowID string, r review.StepResult) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO step_results (workflow_id, step_number, output, produced_at)
		VALUES ($1, $2, $3, $4)`,
		workflowID, r.StepNumber, r.Output, r.ProducedAt,
	)
	if err != nil {
		return fmt.Errorf("insert step result: %w", err)
	}
	return nil
}

// ListStepResults returns a workflow's recorded step results in step order.
func (s *Store) ListStepResults(ctx context.Context, workflowID string) ([]review.StepResult, error) {
	rows, err := s.db.Query(ctx, `
		SELECT step_number, output, produced_at
		FROM step_results
		WHERE workflow_id = $1
		ORDER BY step_number ASC`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list step results: %w", err)
	}
	defer rows.Close()

	var results []review.StepResult
	for rows.Next() {
		var r review.StepResult
		if err := rows.Scan(&r.StepNumber, &r.Output, &r.ProducedAt); err != nil {
			return nil, fmt.Errorf("scan step result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
