package engine

import (
	"context"

	"github.com/returndesk/return-workflow/internal/domain/entity"
	"github.com/returndesk/return-workflow/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ActionResult is the outcome of an action-style operation: the
// updated request plus its full current step list.
type ActionResult struct {
	Request *entity.ReturnRequest  `json:"request"`
	Steps   []*entity.WorkflowStep `json:"steps"`
}

// Engine drives a return request through its workflow steps and keeps
// the parent request's status synchronized with step progress.
//
// Every mutating operation runs inside a single transaction, re-reads
// the request inside it, and fails with workflow.ErrInvalidState when
// the request is already in a terminal status. Repository errors
// propagate unchanged.
type Engine interface {
	// ListSteps returns the active steps for a request, creation order ascending
	ListSteps(ctx context.Context, requestID int64) ([]*entity.WorkflowStep, error)

	// CreateInitialWorkflow seeds the standard_return steps for a new
	// request: first step completed and attributed to userID, second
	// in_progress, the rest pending.
	CreateInitialWorkflow(ctx context.Context, requestID, userID int64) ([]*entity.WorkflowStep, error)

	// AddStep inserts a single step. ActionDate is stamped when
	// actionBy is non-nil. Returns the created step.
	AddStep(ctx context.Context, requestID int64, name string, status workflow.StepStatus, remark string, actionBy *int64, createdBy int64) (*entity.WorkflowStep, error)

	// UpdateStep updates a step's status, remark and action fields.
	// Fails with workflow.ErrNotFound when the step does not exist.
	UpdateStep(ctx context.Context, stepID int64, status workflow.StepStatus, remark *string, actionBy *int64, userID int64) (*entity.WorkflowStep, error)

	// FindStepByName returns the first active step with the given name, or nil
	FindStepByName(ctx context.Context, requestID int64, name string) (*entity.WorkflowStep, error)

	// ExecuteAction applies a workflow action: persists the resolved
	// request status (plus approver fields on approve and resolution
	// notes whenever remarks are supplied) and upserts the step named
	// by the transition table.
	ExecuteAction(ctx context.Context, requestID int64, action workflow.Action, remarks string, actionBy *int64, userID int64) (*ActionResult, error)

	// ApplyTemplate replaces the request's active steps with a fresh
	// set from the template: index 0 completed (attributed to userID),
	// index 1 in_progress, the rest pending. Fails with
	// workflow.ErrInvalidTemplate for unknown template ids.
	ApplyTemplate(ctx context.Context, requestID int64, templateID string, userID int64) ([]*entity.WorkflowStep, error)

	// RunToCompletion replaces the request's active steps with the
	// full template already completed (only the first step attributed
	// to userID) and marks the request completed. Unknown template ids
	// fall back to standard_return.
	RunToCompletion(ctx context.Context, requestID, userID int64, templateID string) ([]*entity.WorkflowStep, error)

	// Reject rejects the request: the in-progress step (if any) is
	// marked rejected, a "Request Rejected" step is appended, and the
	// request status becomes rejected. Fails with
	// workflow.ErrValidation when reason is blank.
	Reject(ctx context.Context, requestID, userID int64, reason string) (*ActionResult, error)

	// AdvanceNext completes the first pending step. With no steps yet
	// it delegates to RunToCompletion and returns the first created
	// step; with no pending step left it completes the request and
	// returns nil.
	AdvanceNext(ctx context.Context, requestID, userID int64) (*entity.WorkflowStep, error)
}
