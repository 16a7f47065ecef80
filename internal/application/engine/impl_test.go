package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/returndesk/return-workflow/internal/domain/entity"
	"github.com/returndesk/return-workflow/internal/domain/workflow"
)

// Mock repositories

type mockRequestRepo struct {
	requests map[int64]*entity.ReturnRequest
	updates  int
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id int64) (*entity.ReturnRequest, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	clone := *req
	return &clone, nil
}

func (m *mockRequestRepo) Update(ctx context.Context, req *entity.ReturnRequest, fromStatus workflow.State) error {
	stored, ok := m.requests[req.ID]
	if !ok {
		return errors.New("request not found")
	}
	if workflow.State(stored.Status) != fromStatus {
		return workflow.ErrStatusConflict
	}
	clone := *req
	m.requests[req.ID] = &clone
	m.updates++
	return nil
}

type mockStepRepo struct {
	steps  []*entity.WorkflowStep
	nextID int64
}

func (m *mockStepRepo) List(ctx context.Context, requestID int64) ([]*entity.WorkflowStep, error) {
	var out []*entity.WorkflowStep
	for _, s := range m.steps {
		if s.RequestID == requestID && s.IsActive == entity.ActiveYes {
			clone := *s
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *mockStepRepo) GetByID(ctx context.Context, id int64) (*entity.WorkflowStep, error) {
	for _, s := range m.steps {
		if s.ID == id {
			clone := *s
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *mockStepRepo) Create(ctx context.Context, step *entity.WorkflowStep) error {
	m.nextID++
	step.ID = m.nextID
	clone := *step
	m.steps = append(m.steps, &clone)
	return nil
}

func (m *mockStepRepo) Update(ctx context.Context, step *entity.WorkflowStep) error {
	for i, s := range m.steps {
		if s.ID == step.ID {
			clone := *step
			m.steps[i] = &clone
			return nil
		}
	}
	return errors.New("step not found")
}

func (m *mockStepRepo) FindByName(ctx context.Context, requestID int64, name string) (*entity.WorkflowStep, error) {
	for _, s := range m.steps {
		if s.RequestID == requestID && s.IsActive == entity.ActiveYes && s.Step == name {
			clone := *s
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *mockStepRepo) DeleteAllForRequest(ctx context.Context, requestID int64) error {
	for _, s := range m.steps {
		if s.RequestID == requestID {
			s.IsActive = entity.ActiveNo
		}
	}
	return nil
}

func (m *mockStepRepo) active(requestID int64) []*entity.WorkflowStep {
	var out []*entity.WorkflowStep
	for _, s := range m.steps {
		if s.RequestID == requestID && s.IsActive == entity.ActiveYes {
			out = append(out, s)
		}
	}
	return out
}

type mockTxManager struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

var testClock = func() time.Time {
	return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
}

func newTestEngine(requests ...*entity.ReturnRequest) (Engine, *mockRequestRepo, *mockStepRepo) {
	requestRepo := &mockRequestRepo{requests: make(map[int64]*entity.ReturnRequest)}
	for _, r := range requests {
		requestRepo.requests[r.ID] = r
	}
	stepRepo := &mockStepRepo{}
	eng := NewEngine(requestRepo, stepRepo, &mockTxManager{}, &mockLogger{}, WithClock(testClock))
	return eng, requestRepo, stepRepo
}

func pendingRequest(id int64) *entity.ReturnRequest {
	return &entity.ReturnRequest{
		ID:          id,
		CustomerID:  100,
		ProductID:   200,
		Status:      workflow.StatePending.String(),
		IsActive:    entity.ActiveYes,
		CreatedBy:   1,
		CreatedDate: testClock(),
	}
}

// seedScenarioSteps installs the step shape used by scenarios B and C:
// Submitted completed, Review in progress, the rest pending.
func seedScenarioSteps(t *testing.T, eng Engine, requestID int64) {
	t.Helper()
	ctx := context.Background()

	actor := int64(1)
	_, err := eng.AddStep(ctx, requestID, "Request Submitted", workflow.StepCompleted, "", &actor, 1)
	require.NoError(t, err)
	_, err = eng.AddStep(ctx, requestID, "Initial Review", workflow.StepInProgress, "", nil, 1)
	require.NoError(t, err)
	for _, name := range []string{"Approval Decision", "Processing", "Completion"} {
		_, err = eng.AddStep(ctx, requestID, name, workflow.StepPending, "", nil, 1)
		require.NoError(t, err)
	}
}

func TestCreateInitialWorkflow(t *testing.T) {
	eng, _, stepRepo := newTestEngine(pendingRequest(1))

	steps, err := eng.CreateInitialWorkflow(context.Background(), 1, 7)
	require.NoError(t, err)
	require.Len(t, steps, 5)

	assert.Equal(t, "Request Submitted", steps[0].Step)
	assert.Equal(t, workflow.StepCompleted.String(), steps[0].Status)
	require.NotNil(t, steps[0].ActionBy)
	assert.Equal(t, int64(7), *steps[0].ActionBy)
	assert.NotNil(t, steps[0].ActionDate)

	assert.Equal(t, "Initial Review", steps[1].Step)
	assert.Equal(t, workflow.StepInProgress.String(), steps[1].Status)
	assert.Nil(t, steps[1].ActionBy)

	for i := 2; i < 5; i++ {
		assert.Equal(t, workflow.StepPending.String(), steps[i].Status)
	}

	assert.Len(t, stepRepo.active(1), 5)
}

func TestAddStep_ActionDateOnlyWithActor(t *testing.T) {
	eng, _, _ := newTestEngine(pendingRequest(1))
	ctx := context.Background()

	actor := int64(7)
	withActor, err := eng.AddStep(ctx, 1, "Processing", workflow.StepInProgress, "started", &actor, 7)
	require.NoError(t, err)
	assert.NotNil(t, withActor.ActionDate)

	system, err := eng.AddStep(ctx, 1, "Completion", workflow.StepPending, "", nil, 7)
	require.NoError(t, err)
	assert.Nil(t, system.ActionBy)
	assert.Nil(t, system.ActionDate)
}

func TestUpdateStep_NotFound(t *testing.T) {
	eng, _, _ := newTestEngine(pendingRequest(1))

	_, err := eng.UpdateStep(context.Background(), 99, workflow.StepCompleted, nil, nil, 7)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestUpdateStep(t *testing.T) {
	eng, _, _ := newTestEngine(pendingRequest(1))
	ctx := context.Background()

	step, err := eng.AddStep(ctx, 1, "Initial Review", workflow.StepInProgress, "", nil, 1)
	require.NoError(t, err)

	remark := "looks good"
	actor := int64(7)
	updated, err := eng.UpdateStep(ctx, step.ID, workflow.StepCompleted, &remark, &actor, 7)
	require.NoError(t, err)

	assert.Equal(t, workflow.StepCompleted.String(), updated.Status)
	assert.Equal(t, "looks good", updated.Remarks)
	require.NotNil(t, updated.ActionBy)
	assert.Equal(t, int64(7), *updated.ActionBy)
	require.NotNil(t, updated.UpdatedBy)
	assert.Equal(t, int64(7), *updated.UpdatedBy)
}

func TestExecuteAction_Approve(t *testing.T) {
	eng, requestRepo, _ := newTestEngine(pendingRequest(1))
	ctx := context.Background()
	seedScenarioSteps(t, eng, 1)

	actionBy := int64(7)
	result, err := eng.ExecuteAction(ctx, 1, workflow.ActionApprove, "ok", &actionBy, 3)
	require.NoError(t, err)

	assert.Equal(t, workflow.StateApproved.String(), result.Request.Status)
	require.NotNil(t, result.Request.ApprovedBy)
	assert.Equal(t, int64(7), *result.Request.ApprovedBy)
	assert.NotNil(t, result.Request.ApprovedDate)
	assert.Equal(t, "ok", result.Request.ResolutionNotes)

	var decision *entity.WorkflowStep
	for _, s := range result.Steps {
		if s.Step == "Approval Decision" {
			decision = s
		}
	}
	require.NotNil(t, decision)
	assert.Equal(t, workflow.StepCompleted.String(), decision.Status)
	require.NotNil(t, decision.ActionBy)
	assert.Equal(t, int64(7), *decision.ActionBy)

	assert.Equal(t, workflow.StateApproved.String(), requestRepo.requests[1].Status)
}

func TestExecuteAction_CreatesMissingStep(t *testing.T) {
	req := pendingRequest(1)
	req.Status = workflow.StateApproved.String()
	eng, _, stepRepo := newTestEngine(req)

	result, err := eng.ExecuteAction(context.Background(), 1, workflow.ActionStartProcessing, "", nil, 7)
	require.NoError(t, err)

	assert.Equal(t, workflow.StateProcessing.String(), result.Request.Status)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, "Processing", result.Steps[0].Step)
	assert.Equal(t, workflow.StepInProgress.String(), result.Steps[0].Status)
	assert.Len(t, stepRepo.active(1), 1)
}

func TestExecuteAction_ApproveWithoutActionByUsesUserID(t *testing.T) {
	eng, _, _ := newTestEngine(pendingRequest(1))

	result, err := eng.ExecuteAction(context.Background(), 1, workflow.ActionApprove, "", nil, 9)
	require.NoError(t, err)
	require.NotNil(t, result.Request.ApprovedBy)
	assert.Equal(t, int64(9), *result.Request.ApprovedBy)
}

func TestExecuteAction_RequestNotFound(t *testing.T) {
	eng, _, _ := newTestEngine()

	_, err := eng.ExecuteAction(context.Background(), 42, workflow.ActionApprove, "", nil, 7)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestExecuteAction_InvalidAction(t *testing.T) {
	eng, requestRepo, stepRepo := newTestEngine(pendingRequest(1))

	_, err := eng.ExecuteAction(context.Background(), 1, workflow.Action("escalate"), "", nil, 7)
	assert.ErrorIs(t, err, workflow.ErrInvalidAction)
	assert.Zero(t, requestRepo.updates)
	assert.Empty(t, stepRepo.steps)
}

func TestRunToCompletion(t *testing.T) {
	eng, requestRepo, _ := newTestEngine(pendingRequest(1))

	steps, err := eng.RunToCompletion(context.Background(), 1, 7, workflow.TemplateStandardReturn)
	require.NoError(t, err)
	require.Len(t, steps, 5)

	wantNames := []string{"Request Submitted", "Initial Review", "Approval Decision", "Processing", "Completion"}
	for i, s := range steps {
		assert.Equal(t, wantNames[i], s.Step)
		assert.Equal(t, workflow.StepCompleted.String(), s.Status)
	}

	// Only the first step carries the acting user
	require.NotNil(t, steps[0].ActionBy)
	assert.Equal(t, int64(7), *steps[0].ActionBy)
	for _, s := range steps[1:] {
		assert.Nil(t, s.ActionBy)
	}

	req := requestRepo.requests[1]
	assert.Equal(t, workflow.StateCompleted.String(), req.Status)
	require.NotNil(t, req.ApprovedBy)
	assert.Equal(t, int64(7), *req.ApprovedBy)
	assert.NotNil(t, req.ApprovedDate)
	assert.Equal(t, "Completed via full workflow processing", req.ResolutionNotes)
}

func TestRunToCompletion_UnknownTemplateFallsBack(t *testing.T) {
	eng, _, _ := newTestEngine(pendingRequest(1))

	steps, err := eng.RunToCompletion(context.Background(), 1, 7, "no_such_template")
	require.NoError(t, err)
	require.Len(t, steps, 5)
	assert.Equal(t, "Initial Review", steps[1].Step)
}

func TestRunToCompletion_ReplacesExistingSteps(t *testing.T) {
	eng, _, stepRepo := newTestEngine(pendingRequest(1))
	seedScenarioSteps(t, eng, 1)

	_, err := eng.RunToCompletion(context.Background(), 1, 7, workflow.TemplateStandardReturn)
	require.NoError(t, err)
	assert.Len(t, stepRepo.active(1), 5)
}

func TestReject(t *testing.T) {
	eng, requestRepo, _ := newTestEngine(pendingRequest(1))
	ctx := context.Background()
	seedScenarioSteps(t, eng, 1)

	result, err := eng.Reject(ctx, 1, 7, "wrong item")
	require.NoError(t, err)

	assert.Equal(t, workflow.StateRejected.String(), result.Request.Status)
	require.NotNil(t, result.Request.ApprovedBy)
	assert.Equal(t, int64(7), *result.Request.ApprovedBy)
	assert.Equal(t, "Rejected: wrong item", result.Request.ResolutionNotes)

	require.Len(t, result.Steps, 6)

	// The in-progress review step is rejected in place
	assert.Equal(t, "Initial Review", result.Steps[1].Step)
	assert.Equal(t, workflow.StepRejected.String(), result.Steps[1].Status)
	assert.Equal(t, "Rejected: wrong item", result.Steps[1].Remarks)

	// Exactly one Request Rejected step is appended, last
	last := result.Steps[len(result.Steps)-1]
	assert.Equal(t, "Request Rejected", last.Step)
	assert.Equal(t, workflow.StepRejected.String(), last.Status)
	require.NotNil(t, last.ActionBy)
	assert.Equal(t, int64(7), *last.ActionBy)

	// Scenario C: a further action fails on the now-terminal request
	_, err = eng.ExecuteAction(ctx, 1, workflow.ActionComplete, "", nil, 7)
	assert.ErrorIs(t, err, workflow.ErrInvalidState)
	assert.Equal(t, workflow.StateRejected.String(), requestRepo.requests[1].Status)
}

func TestReject_BlankReason(t *testing.T) {
	for _, reason := range []string{"", "   ", "\t\n"} {
		eng, requestRepo, stepRepo := newTestEngine(pendingRequest(1))

		_, err := eng.Reject(context.Background(), 1, 7, reason)
		assert.ErrorIs(t, err, workflow.ErrValidation)
		assert.Empty(t, stepRepo.steps)
		assert.Zero(t, requestRepo.updates)
		assert.Equal(t, workflow.StatePending.String(), requestRepo.requests[1].Status)
	}
}

func TestReject_NoInProgressStep(t *testing.T) {
	eng, _, stepRepo := newTestEngine(pendingRequest(1))
	ctx := context.Background()

	_, err := eng.AddStep(ctx, 1, "Request Submitted", workflow.StepCompleted, "", nil, 1)
	require.NoError(t, err)

	result, err := eng.Reject(ctx, 1, 7, "damaged")
	require.NoError(t, err)

	// Only the appended Request Rejected step is new
	require.Len(t, result.Steps, 2)
	assert.Equal(t, "Request Rejected", result.Steps[1].Step)
	assert.Equal(t, workflow.StepCompleted.String(), stepRepo.active(1)[0].Status)
}

func TestAdvanceNext_NoStepsRunsFullFlow(t *testing.T) {
	// Scenario A: pending request with no steps
	eng, requestRepo, stepRepo := newTestEngine(pendingRequest(1))

	step, err := eng.AdvanceNext(context.Background(), 1, 7)
	require.NoError(t, err)
	require.NotNil(t, step)

	assert.Equal(t, "Request Submitted", step.Step)
	assert.Equal(t, workflow.StepCompleted.String(), step.Status)
	assert.Len(t, stepRepo.active(1), 5)
	assert.Equal(t, workflow.StateCompleted.String(), requestRepo.requests[1].Status)
}

func TestAdvanceNext_TemplatedRequestTerminates(t *testing.T) {
	eng, requestRepo, _ := newTestEngine(pendingRequest(1))
	ctx := context.Background()

	_, err := eng.ApplyTemplate(ctx, 1, workflow.TemplateStandardReturn, 7)
	require.NoError(t, err)

	// Three pending steps remain after templating; each call completes one
	for i := 0; i < 3; i++ {
		step, err := eng.AdvanceNext(ctx, 1, 7)
		require.NoError(t, err)
		require.NotNil(t, step)
		assert.Equal(t, workflow.StepCompleted.String(), step.Status)
		assert.Equal(t, "completed automatically by system", step.Remarks)
	}

	assert.Equal(t, workflow.StateCompleted.String(), requestRepo.requests[1].Status)

	// A further call fails on the terminal request and returns no step
	step, err := eng.AdvanceNext(ctx, 1, 7)
	assert.ErrorIs(t, err, workflow.ErrInvalidState)
	assert.Nil(t, step)
}

func TestAdvanceNext_AllPendingTerminatesAfterTemplateLength(t *testing.T) {
	eng, requestRepo, _ := newTestEngine(pendingRequest(1))
	ctx := context.Background()

	names := []string{"Request Submitted", "Initial Review", "Approval Decision", "Processing", "Completion"}
	for _, name := range names {
		_, err := eng.AddStep(ctx, 1, name, workflow.StepPending, "", nil, 1)
		require.NoError(t, err)
	}

	for i, name := range names {
		step, err := eng.AdvanceNext(ctx, 1, 7)
		require.NoError(t, err, "call %d", i+1)
		require.NotNil(t, step)
		assert.Equal(t, name, step.Step)
	}

	assert.Equal(t, workflow.StateCompleted.String(), requestRepo.requests[1].Status)
}

func TestAdvanceNext_NoPendingLeftCompletesRequest(t *testing.T) {
	req := pendingRequest(1)
	req.Status = workflow.StateProcessing.String()
	eng, requestRepo, _ := newTestEngine(req)
	ctx := context.Background()

	_, err := eng.AddStep(ctx, 1, "Request Submitted", workflow.StepCompleted, "", nil, 1)
	require.NoError(t, err)

	step, err := eng.AdvanceNext(ctx, 1, 7)
	require.NoError(t, err)
	assert.Nil(t, step)
	assert.Equal(t, workflow.StateCompleted.String(), requestRepo.requests[1].Status)
}

func TestApplyTemplate_Urgent(t *testing.T) {
	// Scenario D: urgent template on a pending request with existing steps
	eng, _, stepRepo := newTestEngine(pendingRequest(1))
	ctx := context.Background()
	seedScenarioSteps(t, eng, 1)

	steps, err := eng.ApplyTemplate(ctx, 1, workflow.TemplateUrgentReturn, 7)
	require.NoError(t, err)
	require.Len(t, steps, 5)

	wantNames := []string{"Request Submitted", "Priority Review", "Fast Approval", "Express Processing", "Completion"}
	for i, s := range steps {
		assert.Equal(t, wantNames[i], s.Step)
	}

	assert.Equal(t, workflow.StepCompleted.String(), steps[0].Status)
	assert.Equal(t, "submitted by customer", steps[0].Remarks)
	require.NotNil(t, steps[0].ActionBy)
	assert.Equal(t, int64(7), *steps[0].ActionBy)
	assert.Equal(t, workflow.StepInProgress.String(), steps[1].Status)
	for _, s := range steps[2:] {
		assert.Equal(t, workflow.StepPending.String(), s.Status)
	}

	// Old steps are gone: active count equals template length, not length + prior
	assert.Len(t, stepRepo.active(1), 5)
}

func TestApplyTemplate_UnknownTemplate(t *testing.T) {
	eng, _, stepRepo := newTestEngine(pendingRequest(1))

	_, err := eng.ApplyTemplate(context.Background(), 1, "express_return", 7)
	assert.ErrorIs(t, err, workflow.ErrInvalidTemplate)
	assert.Empty(t, stepRepo.steps)
}

func TestTerminalRequestRejectsAllMutations(t *testing.T) {
	terminal := []workflow.State{workflow.StateCompleted, workflow.StateRejected, workflow.StateCancelled}

	for _, status := range terminal {
		t.Run(status.String(), func(t *testing.T) {
			req := pendingRequest(1)
			req.Status = status.String()
			eng, requestRepo, stepRepo := newTestEngine(req)
			ctx := context.Background()

			existing := &entity.WorkflowStep{
				RequestType: entity.RequestTypeReturn,
				RequestID:   1,
				Step:        "Request Submitted",
				Status:      workflow.StepCompleted.String(),
				IsActive:    entity.ActiveYes,
			}
			require.NoError(t, stepRepo.Create(ctx, existing))

			ops := map[string]func() error{
				"CreateInitialWorkflow": func() error {
					_, err := eng.CreateInitialWorkflow(ctx, 1, 7)
					return err
				},
				"AddStep": func() error {
					_, err := eng.AddStep(ctx, 1, "Extra", workflow.StepPending, "", nil, 7)
					return err
				},
				"UpdateStep": func() error {
					_, err := eng.UpdateStep(ctx, existing.ID, workflow.StepRejected, nil, nil, 7)
					return err
				},
				"ExecuteAction": func() error {
					_, err := eng.ExecuteAction(ctx, 1, workflow.ActionCancel, "", nil, 7)
					return err
				},
				"ApplyTemplate": func() error {
					_, err := eng.ApplyTemplate(ctx, 1, workflow.TemplateStandardReturn, 7)
					return err
				},
				"RunToCompletion": func() error {
					_, err := eng.RunToCompletion(ctx, 1, 7, workflow.TemplateStandardReturn)
					return err
				},
				"Reject": func() error {
					_, err := eng.Reject(ctx, 1, 7, "too late")
					return err
				},
				"AdvanceNext": func() error {
					_, err := eng.AdvanceNext(ctx, 1, 7)
					return err
				},
			}

			for name, op := range ops {
				err := op()
				assert.ErrorIs(t, err, workflow.ErrInvalidState, "%s on %s request", name, status)
			}

			// Nothing persisted
			assert.Zero(t, requestRepo.updates)
			assert.Len(t, stepRepo.steps, 1)
			assert.Equal(t, workflow.StepCompleted.String(), stepRepo.steps[0].Status)
			assert.Equal(t, status.String(), requestRepo.requests[1].Status)
		})
	}
}
