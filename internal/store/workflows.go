package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/nidhogg/reviewflow/internal/workflow"
)

// CreateWorkflow inserts a workflow record. An existing record with the
// same ID is left untouched, so a duplicate start cannot corrupt state.
func (s *Store) CreateWorkflow(ctx context.Context, rec *workflow.Record) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO workflows (workflow_id, status, trace_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (workflow_id) DO NOTHING`,
		rec.WorkflowID, string(rec.Status), rec.TraceID, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create workflow: %w", err)
	}
	return nil
}

// UpdateWorkflowStatus conditionally moves a still-running workflow to a
// terminal status. It reports false when the record was already terminal
// or absent, which keeps transitions monotone under races.
func (s *Store) UpdateWorkflowStatus(ctx context.Context, id string, status workflow.Status, errMsg string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE workflows
		SET status = $2, error_message = NULLIF($3, ''), updated_at = NOW()
		WHERE workflow_id = $1 AND status = $4`,
		id, string(status), errMsg, string(workflow.StatusRunning),
	)
	if err != nil {
		return false, fmt.Errorf("update workflow status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetWorkflow retrieves a workflow record by ID.
func (s *Store) GetWorkflow(ctx context.Context, id string) (*workflow.Record, error) {
	rec := &workflow.Record{}
	var status string
	var errMsg, traceID sql.NullString
	err := s.db.QueryRow(ctx, `
		SELECT workflow_id, status, error_message, trace_id, created_at, updated_at
		FROM workflows WHERE workflow_id = $1`, id,
	).Scan(&rec.WorkflowID, &status, &errMsg, &traceID, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, workflow.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	rec.Status = workflow.Status(status)
	rec.ErrorMessage = errMsg.String
	rec.TraceID = traceID.String
	return rec, nil
}
