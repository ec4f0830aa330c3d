package workflow

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Store persists workflow records. CreateWorkflow must be a no-op when a
// record already exists; UpdateWorkflowStatus must only touch records that
// are still running and report whether it did, which is what makes the
// manager's transitions monotone.
type Store interface {
	CreateWorkflow(ctx context.Context, rec *Record) error
	UpdateWorkflowStatus(ctx context.Context, id string, status Status, errMsg string) (bool, error)
	GetWorkflow(ctx context.Context, id string) (*Record, error)
}

// Watchdog schedules a named deadline per workflow. Disarm must treat a
// missing timer as success: the timer firing while the workflow completes
// normally is an expected race, not an error.
type Watchdog interface {
	Arm(ctx context.Context, id string, ttl time.Duration) error
	Disarm(ctx context.Context, id string) error
}

// maxErrMsgLen caps the error message stored with a failed workflow.
const maxErrMsgLen = 1024

// Manager owns every write to workflow records. The coordinator only
// requests transitions through it.
type Manager struct {
	store    Store
	watchdog Watchdog
	ttl      time.Duration
	logger   *zap.Logger
}

// NewManager creates a lifecycle manager. ttl is the watchdog deadline
// armed for each started workflow.
func NewManager(store Store, watchdog Watchdog, ttl time.Duration, logger *zap.Logger) *Manager {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Manager{store: store, watchdog: watchdog, ttl: ttl, logger: logger}
}

// Start records a new running workflow and arms its watchdog. A duplicate
// start is a no-op on the record; it must not corrupt existing state.
func (m *Manager) Start(ctx context.Context, id, traceID string) error {
	now := time.Now()
	rec := &Record{
		WorkflowID: id,
		Status:     StatusRunning,
		TraceID:    traceID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.store.CreateWorkflow(ctx, rec); err != nil {
		return err
	}
	if err := m.watchdog.Arm(ctx, id, m.ttl); err != nil {
		// A workflow without a watchdog still runs; it just loses the
		// dead-man's switch. Surface it loudly and continue.
		m.logger.Error("failed to arm watchdog", zap.String("workflow_id", id), zap.Error(err))
	}
	m.logger.Info("workflow started", zap.String("workflow_id", id), zap.String("trace_id", traceID))
	return nil
}

// Complete writes the completed terminal status and disarms the watchdog.
func (m *Manager) Complete(ctx context.Context, id string) error {
	return m.finish(ctx, id, StatusCompleted, "")
}

// Fail writes the failed terminal status with an error message and
// disarms the watchdog.
func (m *Manager) Fail(ctx context.Context, id, errMsg string) error {
	if len(errMsg) > maxErrMsgLen {
		errMsg = errMsg[:maxErrMsgLen]
	}
	return m.finish(ctx, id, StatusFailed, errMsg)
}

func (m *Manager) finish(ctx context.Context, id string, status Status, errMsg string) error {
	updated, err := m.store.UpdateWorkflowStatus(ctx, id, status, errMsg)
	if err != nil {
		return err
	}
	if !updated {
		// Already terminal — an idempotent retry or the watchdog won the
		// race. Either way the record stands.
		m.logger.Debug("workflow already terminal", zap.String("workflow_id", id))
	} else {
		m.logger.Info("workflow finished",
			zap.String("workflow_id", id),
			zap.String("status", string(status)))
	}
	if err := m.watchdog.Disarm(ctx, id); err != nil {
		m.logger.Warn("failed to disarm watchdog", zap.String("workflow_id", id), zap.Error(err))
	}
	return nil
}

// Get returns the durable record for a workflow.
func (m *Manager) Get(ctx context.Context, id string) (*Record, error) {
	return m.store.GetWorkflow(ctx, id)
}
