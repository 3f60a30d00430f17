package operation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/splax/cybervault/internal/domain"
	"github.com/splax/cybervault/internal/repository/memory"
)

func TestTrailRecordsSteps(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	trail := svc.Start(ctx, domain.OperationRegisterDID, "did:cyber:alice")
	trail.Succeeded(ctx, "register", "deadbeef")
	trail.Failed(ctx, "bind", "wallet locked")
	trail.Complete(ctx)

	op, err := svc.Get(ctx, trail.ID())
	if err != nil {
		t.Fatalf("get operation: %v", err)
	}
	if op.Status != domain.OperationCompleted || op.CompletedAt == nil {
		t.Fatalf("unexpected status %q", op.Status)
	}
	if len(op.Steps) != 2 || op.Steps[1].Status != domain.StepFailed || op.Steps[1].Detail != "wallet locked" {
		t.Fatalf("unexpected steps %+v", op.Steps)
	}
}

func TestAbortMarksFailed(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	trail := svc.Start(ctx, domain.OperationNotarizeDocument, "abc")
	trail.Abort(ctx, "notarize", "exit status 1")

	op, err := svc.Get(ctx, trail.ID())
	if err != nil {
		t.Fatalf("get operation: %v", err)
	}
	if op.Status != domain.OperationFailed || len(op.Steps) != 1 {
		t.Fatalf("unexpected operation %+v", op)
	}

	list, err := svc.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 operation, got %d", len(list))
	}
}

type failingOps struct{}

func (failingOps) CreateOperation(context.Context, *domain.Operation) error {
	return errors.New("db down")
}
func (failingOps) UpdateOperation(context.Context, *domain.Operation) error {
	return errors.New("db down")
}
func (failingOps) GetOperation(context.Context, string) (*domain.Operation, error) {
	return nil, errors.New("db down")
}
func (failingOps) ListOperations(context.Context, int) ([]domain.Operation, error) {
	return nil, errors.New("db down")
}

func TestTrailSurvivesPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	svc := New(failingOps{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	trail := svc.Start(ctx, domain.OperationRegisterDID, "did:cyber:bob")
	trail.Succeeded(ctx, "register", "")
	trail.Complete(ctx)

	snap := trail.Snapshot()
	if snap.ID == "" || snap.Status != domain.OperationCompleted || len(snap.Steps) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}
