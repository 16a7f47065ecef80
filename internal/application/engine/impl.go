package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/returndesk/return-workflow/internal/application/port"
	"github.com/returndesk/return-workflow/internal/domain/entity"
	"github.com/returndesk/return-workflow/internal/domain/workflow"
)

// Remarks stamped by the engine itself.
const (
	remarkSubmittedByCustomer = "submitted by customer"
	remarkAutoCompleted       = "completed automatically by system"
	noteFullFlowCompleted     = "Completed via full workflow processing"
	stepRequestRejected       = "Request Rejected"
)

// engineImpl is the concrete implementation of Engine
type engineImpl struct {
	requestRepo port.RequestRepository
	stepRepo    port.StepRepository
	txManager   port.TransactionManager
	logger      Logger
	now         func() time.Time
}

// Option configures the workflow engine
type Option func(*engineImpl)

// WithClock overrides the engine's time source
func WithClock(now func() time.Time) Option {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	requestRepo port.RequestRepository,
	stepRepo port.StepRepository,
	txManager port.TransactionManager,
	logger Logger,
	opts ...Option,
) Engine {
	e := &engineImpl{
		requestRepo: requestRepo,
		stepRepo:    stepRepo,
		txManager:   txManager,
		logger:      logger,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ListSteps returns the active steps for a request, creation order ascending
func (e *engineImpl) ListSteps(ctx context.Context, requestID int64) ([]*entity.WorkflowStep, error) {
	steps, err := e.stepRepo.List(ctx, requestID)
	if err != nil {
		e.logger.Error("Failed to list steps", "request_id", requestID, "error", err)
		return nil, err
	}
	return steps, nil
}

// FindStepByName returns the first active step with the given name, or nil
func (e *engineImpl) FindStepByName(ctx context.Context, requestID int64, name string) (*entity.WorkflowStep, error) {
	return e.stepRepo.FindByName(ctx, requestID, name)
}

// CreateInitialWorkflow seeds the standard_return steps for a new request
func (e *engineImpl) CreateInitialWorkflow(ctx context.Context, requestID, userID int64) ([]*entity.WorkflowStep, error) {
	defs := workflow.ResolveTemplateOrDefault(workflow.TemplateStandardReturn)

	var created []*entity.WorkflowStep
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := e.loadActionable(txCtx, requestID); err != nil {
			return err
		}

		var err error
		created, err = e.seedSteps(txCtx, requestID, userID, defs, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Initial workflow created", "request_id", requestID, "steps", len(created))
	return created, nil
}

// AddStep inserts a single step
func (e *engineImpl) AddStep(ctx context.Context, requestID int64, name string, status workflow.StepStatus, remark string, actionBy *int64, createdBy int64) (*entity.WorkflowStep, error) {
	var step *entity.WorkflowStep
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := e.loadActionable(txCtx, requestID); err != nil {
			return err
		}

		step = e.newStep(requestID, name, status, remark, actionBy, createdBy)
		return e.stepRepo.Create(txCtx, step)
	})
	if err != nil {
		return nil, err
	}
	return step, nil
}

// UpdateStep updates a step's status, remark and action fields
func (e *engineImpl) UpdateStep(ctx context.Context, stepID int64, status workflow.StepStatus, remark *string, actionBy *int64, userID int64) (*entity.WorkflowStep, error) {
	var step *entity.WorkflowStep
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		step, err = e.stepRepo.GetByID(txCtx, stepID)
		if err != nil {
			return err
		}
		if step == nil {
			return fmt.Errorf("%w: step %d", workflow.ErrNotFound, stepID)
		}

		if _, err := e.loadActionable(txCtx, step.RequestID); err != nil {
			return err
		}

		now := e.now()
		step.Status = status.String()
		if remark != nil {
			step.Remarks = *remark
		}
		if actionBy != nil {
			step.ActionBy = actionBy
			step.ActionDate = &now
		}
		step.UpdatedBy = &userID
		step.UpdatedDate = &now

		return e.stepRepo.Update(txCtx, step)
	})
	if err != nil {
		return nil, err
	}
	return step, nil
}

// ExecuteAction applies a workflow action to a request
func (e *engineImpl) ExecuteAction(ctx context.Context, requestID int64, action workflow.Action, remarks string, actionBy *int64, userID int64) (*ActionResult, error) {
	var result *ActionResult
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := e.loadActionable(txCtx, requestID)
		if err != nil {
			return err
		}

		transition, err := action.Resolve()
		if err != nil {
			return err
		}

		fromStatus := workflow.State(req.Status)
		now := e.now()

		req.Status = transition.RequestStatus.String()
		if action == workflow.ActionApprove {
			approver := userID
			if actionBy != nil {
				approver = *actionBy
			}
			req.ApprovedBy = &approver
			req.ApprovedDate = &now
		}
		if remarks != "" {
			req.ResolutionNotes = remarks
		}
		req.UpdatedBy = &userID
		req.UpdatedDate = &now

		if err := e.requestRepo.Update(txCtx, req, fromStatus); err != nil {
			return err
		}

		// Upsert the step named by the transition
		step, err := e.stepRepo.FindByName(txCtx, requestID, transition.StepName)
		if err != nil {
			return err
		}
		if step != nil {
			step.Status = transition.StepStatus.String()
			if remarks != "" {
				step.Remarks = remarks
			}
			if actionBy != nil {
				step.ActionBy = actionBy
			} else {
				step.ActionBy = &userID
			}
			step.ActionDate = &now
			step.UpdatedBy = &userID
			step.UpdatedDate = &now
			if err := e.stepRepo.Update(txCtx, step); err != nil {
				return err
			}
		} else {
			by := actionBy
			if by == nil {
				by = &userID
			}
			step = e.newStep(requestID, transition.StepName, transition.StepStatus, remarks, by, userID)
			if err := e.stepRepo.Create(txCtx, step); err != nil {
				return err
			}
		}

		steps, err := e.stepRepo.List(txCtx, requestID)
		if err != nil {
			return err
		}

		result = &ActionResult{Request: req, Steps: steps}
		return nil
	})
	if err != nil {
		e.logger.Error("Failed to execute action", "request_id", requestID, "action", action.String(), "error", err)
		return nil, err
	}

	e.logger.Info("Action executed", "request_id", requestID, "action", action.String(), "status", result.Request.Status)
	return result, nil
}

// ApplyTemplate replaces the request's active steps with a fresh template set
func (e *engineImpl) ApplyTemplate(ctx context.Context, requestID int64, templateID string, userID int64) ([]*entity.WorkflowStep, error) {
	defs, err := workflow.ResolveTemplate(templateID)
	if err != nil {
		return nil, err
	}

	var created []*entity.WorkflowStep
	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := e.loadActionable(txCtx, requestID); err != nil {
			return err
		}

		if err := e.stepRepo.DeleteAllForRequest(txCtx, requestID); err != nil {
			return err
		}

		created, err = e.seedSteps(txCtx, requestID, userID, defs, remarkSubmittedByCustomer)
		return err
	})
	if err != nil {
		e.logger.Error("Failed to apply template", "request_id", requestID, "template_id", templateID, "error", err)
		return nil, err
	}

	e.logger.Info("Template applied", "request_id", requestID, "template_id", templateID, "steps", len(created))
	return created, nil
}

// RunToCompletion replays the full template as completed steps and completes the request
func (e *engineImpl) RunToCompletion(ctx context.Context, requestID, userID int64, templateID string) ([]*entity.WorkflowStep, error) {
	var created []*entity.WorkflowStep
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := e.loadActionable(txCtx, requestID)
		if err != nil {
			return err
		}

		created, err = e.runToCompletionTx(txCtx, req, userID, templateID)
		return err
	})
	if err != nil {
		e.logger.Error("Failed to run workflow to completion", "request_id", requestID, "error", err)
		return nil, err
	}

	e.logger.Info("Workflow run to completion", "request_id", requestID, "steps", len(created))
	return created, nil
}

// Reject rejects the request with a reason
func (e *engineImpl) Reject(ctx context.Context, requestID, userID int64, reason string) (*ActionResult, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", workflow.ErrValidation)
	}

	remark := "Rejected: " + reason

	var result *ActionResult
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := e.loadActionable(txCtx, requestID)
		if err != nil {
			return err
		}

		fromStatus := workflow.State(req.Status)
		now := e.now()

		steps, err := e.stepRepo.List(txCtx, requestID)
		if err != nil {
			return err
		}

		// The earliest-created in_progress step is the active one
		for _, step := range steps {
			if step.Status == workflow.StepInProgress.String() {
				step.Status = workflow.StepRejected.String()
				step.Remarks = remark
				step.ActionBy = &userID
				step.ActionDate = &now
				step.UpdatedBy = &userID
				step.UpdatedDate = &now
				if err := e.stepRepo.Update(txCtx, step); err != nil {
					return err
				}
				break
			}
		}

		rejected := e.newStep(requestID, stepRequestRejected, workflow.StepRejected, remark, &userID, userID)
		if err := e.stepRepo.Create(txCtx, rejected); err != nil {
			return err
		}

		req.Status = workflow.StateRejected.String()
		req.ApprovedBy = &userID
		req.ApprovedDate = &now
		req.ResolutionNotes = remark
		req.UpdatedBy = &userID
		req.UpdatedDate = &now
		if err := e.requestRepo.Update(txCtx, req, fromStatus); err != nil {
			return err
		}

		current, err := e.stepRepo.List(txCtx, requestID)
		if err != nil {
			return err
		}

		result = &ActionResult{Request: req, Steps: current}
		return nil
	})
	if err != nil {
		e.logger.Error("Failed to reject request", "request_id", requestID, "error", err)
		return nil, err
	}

	e.logger.Info("Request rejected", "request_id", requestID, "user_id", userID)
	return result, nil
}

// AdvanceNext completes the first pending step of the request
func (e *engineImpl) AdvanceNext(ctx context.Context, requestID, userID int64) (*entity.WorkflowStep, error) {
	var result *entity.WorkflowStep
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := e.loadActionable(txCtx, requestID)
		if err != nil {
			return err
		}

		steps, err := e.stepRepo.List(txCtx, requestID)
		if err != nil {
			return err
		}

		if len(steps) == 0 {
			created, err := e.runToCompletionTx(txCtx, req, userID, workflow.TemplateStandardReturn)
			if err != nil {
				return err
			}
			result = created[0]
			return nil
		}

		fromStatus := workflow.State(req.Status)
		now := e.now()

		var next *entity.WorkflowStep
		pending := 0
		for _, step := range steps {
			if step.Status == workflow.StepPending.String() {
				pending++
				if next == nil {
					next = step
				}
			}
		}

		if next == nil {
			// Nothing left to do
			req.Status = workflow.StateCompleted.String()
			req.UpdatedBy = &userID
			req.UpdatedDate = &now
			result = nil
			return e.requestRepo.Update(txCtx, req, fromStatus)
		}

		next.Status = workflow.StepCompleted.String()
		next.Remarks = remarkAutoCompleted
		next.ActionBy = &userID
		next.ActionDate = &now
		next.UpdatedBy = &userID
		next.UpdatedDate = &now
		if err := e.stepRepo.Update(txCtx, next); err != nil {
			return err
		}

		if pending == 1 {
			req.Status = workflow.StateCompleted.String()
			req.UpdatedBy = &userID
			req.UpdatedDate = &now
			if err := e.requestRepo.Update(txCtx, req, fromStatus); err != nil {
				return err
			}
		}

		result = next
		return nil
	})
	if err != nil {
		e.logger.Error("Failed to advance workflow", "request_id", requestID, "error", err)
		return nil, err
	}

	return result, nil
}

// loadActionable loads a request and enforces the terminal-state guard
func (e *engineImpl) loadActionable(ctx context.Context, requestID int64) (*entity.ReturnRequest, error) {
	req, err := e.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: return request %d", workflow.ErrNotFound, requestID)
	}
	if workflow.State(req.Status).IsTerminal() {
		return nil, fmt.Errorf("%w: %s", workflow.ErrInvalidState, req.Status)
	}
	return req, nil
}

// seedSteps creates one step per template entry: index 0 completed and
// attributed to userID, index 1 in_progress, the rest pending.
// firstRemark overrides the first entry's remark when non-empty.
func (e *engineImpl) seedSteps(ctx context.Context, requestID, userID int64, defs []workflow.StepDefinition, firstRemark string) ([]*entity.WorkflowStep, error) {
	created := make([]*entity.WorkflowStep, 0, len(defs))
	for i, def := range defs {
		status := def.Status
		remark := def.Remark
		var actionBy *int64

		switch i {
		case 0:
			status = workflow.StepCompleted
			actionBy = &userID
			if firstRemark != "" {
				remark = firstRemark
			}
		case 1:
			status = workflow.StepInProgress
		default:
			status = workflow.StepPending
		}

		step := e.newStep(requestID, def.Name, status, remark, actionBy, userID)
		if err := e.stepRepo.Create(ctx, step); err != nil {
			return nil, err
		}
		created = append(created, step)
	}
	return created, nil
}

// runToCompletionTx replaces the request's steps with the full template
// already completed and marks the request completed. Runs inside the
// caller's transaction.
func (e *engineImpl) runToCompletionTx(ctx context.Context, req *entity.ReturnRequest, userID int64, templateID string) ([]*entity.WorkflowStep, error) {
	defs := workflow.ResolveTemplateOrDefault(templateID)
	fromStatus := workflow.State(req.Status)
	now := e.now()

	if err := e.stepRepo.DeleteAllForRequest(ctx, req.ID); err != nil {
		return nil, err
	}

	created := make([]*entity.WorkflowStep, 0, len(defs))
	for i, def := range defs {
		// Only the first step carries the acting user; later steps are
		// system-completed and carry no actor.
		var actionBy *int64
		if i == 0 {
			actionBy = &userID
		}

		step := e.newStep(req.ID, def.Name, workflow.StepCompleted, def.Remark, actionBy, userID)
		if err := e.stepRepo.Create(ctx, step); err != nil {
			return nil, err
		}
		created = append(created, step)
	}

	req.Status = workflow.StateCompleted.String()
	req.ApprovedBy = &userID
	req.ApprovedDate = &now
	req.ResolutionNotes = noteFullFlowCompleted
	req.UpdatedBy = &userID
	req.UpdatedDate = &now
	if err := e.requestRepo.Update(ctx, req, fromStatus); err != nil {
		return nil, err
	}

	return created, nil
}

// newStep builds a step entity; ActionDate is stamped only when an actor is set
func (e *engineImpl) newStep(requestID int64, name string, status workflow.StepStatus, remark string, actionBy *int64, createdBy int64) *entity.WorkflowStep {
	now := e.now()
	step := &entity.WorkflowStep{
		RequestType: entity.RequestTypeReturn,
		RequestID:   requestID,
		Step:        name,
		Status:      status.String(),
		Remarks:     remark,
		IsActive:    entity.ActiveYes,
		CreatedBy:   createdBy,
		CreatedDate: now,
	}
	if actionBy != nil {
		step.ActionBy = actionBy
		step.ActionDate = &now
	}
	return step
}
