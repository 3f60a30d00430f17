package domain

import "time"

// Operation kinds.
const (
	OperationRegisterDID      = "did.register"
	OperationNotarizeDocument = "document.notarize"
)

// Operation and step statuses.
const (
	OperationRunning   = "running"
	OperationCompleted = "completed"
	OperationFailed    = "failed"

	StepSucceeded = "succeeded"
	StepFailed    = "failed"
	StepSkipped   = "skipped"
)

// Operation is the recorded trail of a multi-step creation.
type Operation struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Subject     string          `json:"subject"`
	Status      string          `json:"status"`
	Steps       []OperationStep `json:"steps"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// OperationStep captures the outcome of one step.
type OperationStep struct {
	Name   string    `json:"name"`
	Status string    `json:"status"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}
