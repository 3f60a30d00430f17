package operation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/splax/cybervault/internal/domain"
	"github.com/splax/cybervault/internal/repository"
)

// Service records the step outcomes of multi-step creations so a failure
// partway through leaves an auditable trail.
type Service struct {
	ops    repository.OperationRepository
	logger *slog.Logger
	now    func() time.Time
}

// New returns an operation service.
func New(ops repository.OperationRepository, logger *slog.Logger) Service {
	return Service{ops: ops, logger: logger, now: time.Now}
}

// Trail accumulates steps for one running operation. Persistence failures
// are logged and never interrupt the caller.
type Trail struct {
	svc Service
	op  domain.Operation
}

// Start opens a running operation of kind for subject.
func (s Service) Start(ctx context.Context, kind, subject string) *Trail {
	t := &Trail{
		svc: s,
		op: domain.Operation{
			ID:        uuid.NewString(),
			Kind:      kind,
			Subject:   subject,
			Status:    domain.OperationRunning,
			Steps:     []domain.OperationStep{},
			StartedAt: s.now().UTC(),
		},
	}
	if err := s.ops.CreateOperation(ctx, &t.op); err != nil {
		s.logger.Warn("operation trail not persisted", "operation_id", t.op.ID, "kind", kind, "error", err)
	}
	return t
}

// ID returns the operation identifier.
func (t *Trail) ID() string {
	return t.op.ID
}

// Succeeded appends a succeeded step.
func (t *Trail) Succeeded(ctx context.Context, name, detail string) {
	t.append(ctx, name, domain.StepSucceeded, detail)
}

// Failed appends a failed step without closing the operation.
func (t *Trail) Failed(ctx context.Context, name, detail string) {
	t.append(ctx, name, domain.StepFailed, detail)
}

// Complete marks the operation completed.
func (t *Trail) Complete(ctx context.Context) {
	t.finish(ctx, domain.OperationCompleted)
}

// Abort records a failed final step and marks the operation failed.
func (t *Trail) Abort(ctx context.Context, name, detail string) {
	t.op.Steps = append(t.op.Steps, t.step(name, domain.StepFailed, detail))
	t.finish(ctx, domain.OperationFailed)
}

// Snapshot returns a copy of the current trail.
func (t *Trail) Snapshot() domain.Operation {
	out := t.op
	out.Steps = append([]domain.OperationStep(nil), t.op.Steps...)
	return out
}

func (t *Trail) step(name, status, detail string) domain.OperationStep {
	return domain.OperationStep{Name: name, Status: status, Detail: detail, At: t.svc.now().UTC()}
}

func (t *Trail) append(ctx context.Context, name, status, detail string) {
	t.op.Steps = append(t.op.Steps, t.step(name, status, detail))
	t.save(ctx)
}

func (t *Trail) finish(ctx context.Context, status string) {
	at := t.svc.now().UTC()
	t.op.Status = status
	t.op.CompletedAt = &at
	t.save(ctx)
	t.svc.logger.Info("operation finished", "operation_id", t.op.ID, "kind", t.op.Kind, "status", status, "steps", len(t.op.Steps))
}

func (t *Trail) save(ctx context.Context) {
	// The trail outlives request cancellation.
	ctx = context.WithoutCancel(ctx)
	if err := t.svc.ops.UpdateOperation(ctx, &t.op); err != nil {
		t.svc.logger.Warn("operation trail update failed", "operation_id", t.op.ID, "error", err)
	}
}

// Get returns a recorded operation.
func (s Service) Get(ctx context.Context, id string) (*domain.Operation, error) {
	return s.ops.GetOperation(ctx, id)
}

// List returns recent operations, newest first.
func (s Service) List(ctx context.Context, limit int) ([]domain.Operation, error) {
	switch {
	case limit <= 0:
		limit = 50
	case limit > 500:
		limit = 500
	}
	return s.ops.ListOperations(ctx, limit)
}
