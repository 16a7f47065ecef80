package port

import (
	"context"

	"github.com/returndesk/return-workflow/internal/domain/entity"
	"github.com/returndesk/return-workflow/internal/domain/workflow"
)

// StepRepository defines persistence operations for WorkflowStep.
// List and FindByName return active (is_active = 'Y') rows only, so
// "active only" is structural rather than a per-call convention.
type StepRepository interface {
	// List returns the active steps for a request ordered by creation ascending
	List(ctx context.Context, requestID int64) ([]*entity.WorkflowStep, error)

	// GetByID retrieves a step by id, or nil if absent
	GetByID(ctx context.Context, id int64) (*entity.WorkflowStep, error)

	// Create inserts a new step and assigns its ID
	Create(ctx context.Context, step *entity.WorkflowStep) error

	// Update persists the step's mutable fields
	Update(ctx context.Context, step *entity.WorkflowStep) error

	// FindByName returns the first active step matching the name, or nil
	FindByName(ctx context.Context, requestID int64, name string) (*entity.WorkflowStep, error)

	// DeleteAllForRequest soft-deletes every active step of a request
	DeleteAllForRequest(ctx context.Context, requestID int64) error
}

// RequestRepository defines persistence operations for the parent
// return request's workflow-owned fields.
type RequestRepository interface {
	// GetByID retrieves a request by id, or nil if absent
	GetByID(ctx context.Context, id int64) (*entity.ReturnRequest, error)

	// Update persists status, approver fields, resolution notes and
	// update audit fields, guarded by the status the caller read.
	// Returns workflow.ErrStatusConflict when the row's status no
	// longer matches fromStatus.
	Update(ctx context.Context, req *entity.ReturnRequest, fromStatus workflow.State) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
