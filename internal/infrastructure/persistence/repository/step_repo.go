package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/returndesk/return-workflow/internal/application/port"
	"github.com/returndesk/return-workflow/internal/domain/entity"
	"github.com/returndesk/return-workflow/internal/infrastructure/persistence/sqlite"
)

// StepRepository implements port.StepRepository
type StepRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStepRepository creates a new workflow-step repository
func NewStepRepository(db *sql.DB, logger *zap.Logger) port.StepRepository {
	return &StepRepository{
		db:     db,
		logger: logger,
	}
}

const stepColumns = `id, request_type, request_id, step, status, remarks,
	action_by, action_date, is_active, created_by, created_date,
	updated_by, updated_date`

// List returns the active steps for a request ordered by creation ascending
func (r *StepRepository) List(ctx context.Context, requestID int64) ([]*entity.WorkflowStep, error) {
	query := `
		SELECT ` + stepColumns + `
		FROM workflow_steps
		WHERE request_id = ? AND request_type = ? AND is_active = 'Y'
		ORDER BY id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, requestID, entity.RequestTypeReturn)
	if err != nil {
		r.logger.Error("Failed to list workflow steps", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list workflow steps: %w", err)
	}
	defer rows.Close()

	var steps []*entity.WorkflowStep
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow step: %w", err)
		}
		steps = append(steps, step)
	}

	return steps, rows.Err()
}

// GetByID retrieves a step by ID, or nil if absent
func (r *StepRepository) GetByID(ctx context.Context, id int64) (*entity.WorkflowStep, error) {
	query := `
		SELECT ` + stepColumns + `
		FROM workflow_steps
		WHERE id = ?
	`

	step, err := scanStep(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get workflow step", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow step: %w", err)
	}

	return step, nil
}

// Create inserts a new workflow step
func (r *StepRepository) Create(ctx context.Context, step *entity.WorkflowStep) error {
	query := `
		INSERT INTO workflow_steps (
			request_type, request_id, step, status, remarks,
			action_by, action_date, is_active, created_by, created_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		step.RequestType,
		step.RequestID,
		step.Step,
		step.Status,
		step.Remarks,
		nullInt64(step.ActionBy),
		nullTime(step.ActionDate),
		step.IsActive,
		step.CreatedBy,
		step.CreatedDate,
	)
	if err != nil {
		r.logger.Error("Failed to create workflow step", zap.Int64("request_id", step.RequestID), zap.Error(err))
		return fmt.Errorf("failed to create workflow step: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	step.ID = id
	return nil
}

// Update persists a step's mutable fields
func (r *StepRepository) Update(ctx context.Context, step *entity.WorkflowStep) error {
	query := `
		UPDATE workflow_steps
		SET status = ?, remarks = ?, action_by = ?, action_date = ?,
			updated_by = ?, updated_date = ?
		WHERE id = ?
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		step.Status,
		step.Remarks,
		nullInt64(step.ActionBy),
		nullTime(step.ActionDate),
		nullInt64(step.UpdatedBy),
		nullTime(step.UpdatedDate),
		step.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update workflow step", zap.Int64("id", step.ID), zap.Error(err))
		return fmt.Errorf("failed to update workflow step: %w", err)
	}

	return nil
}

// FindByName returns the first active step matching the name, or nil
func (r *StepRepository) FindByName(ctx context.Context, requestID int64, name string) (*entity.WorkflowStep, error) {
	query := `
		SELECT ` + stepColumns + `
		FROM workflow_steps
		WHERE request_id = ? AND request_type = ? AND step = ? AND is_active = 'Y'
		ORDER BY id ASC
		LIMIT 1
	`

	step, err := scanStep(r.getExecutor(ctx).QueryRowContext(ctx, query, requestID, entity.RequestTypeReturn, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to find workflow step by name",
			zap.Int64("request_id", requestID), zap.String("step", name), zap.Error(err))
		return nil, fmt.Errorf("failed to find workflow step: %w", err)
	}

	return step, nil
}

// DeleteAllForRequest soft-deletes every active step of a request
func (r *StepRepository) DeleteAllForRequest(ctx context.Context, requestID int64) error {
	query := `
		UPDATE workflow_steps
		SET is_active = 'N'
		WHERE request_id = ? AND request_type = ? AND is_active = 'Y'
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query, requestID, entity.RequestTypeReturn)
	if err != nil {
		r.logger.Error("Failed to delete workflow steps", zap.Int64("request_id", requestID), zap.Error(err))
		return fmt.Errorf("failed to delete workflow steps: %w", err)
	}

	return nil
}

// getExecutor returns the enclosing transaction when present
func (r *StepRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanStep scans one workflow step row
func scanStep(row rowScanner) (*entity.WorkflowStep, error) {
	var step entity.WorkflowStep
	var remarks sql.NullString
	var actionBy, updatedBy sql.NullInt64
	var actionDate, updatedDate sql.NullTime

	err := row.Scan(
		&step.ID,
		&step.RequestType,
		&step.RequestID,
		&step.Step,
		&step.Status,
		&remarks,
		&actionBy,
		&actionDate,
		&step.IsActive,
		&step.CreatedBy,
		&step.CreatedDate,
		&updatedBy,
		&updatedDate,
	)
	if err != nil {
		return nil, err
	}

	if remarks.Valid {
		step.Remarks = remarks.String
	}
	if actionBy.Valid {
		step.ActionBy = &actionBy.Int64
	}
	if actionDate.Valid {
		step.ActionDate = &actionDate.Time
	}
	if updatedBy.Valid {
		step.UpdatedBy = &updatedBy.Int64
	}
	if updatedDate.Valid {
		step.UpdatedDate = &updatedDate.Time
	}

	return &step, nil
}

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// nullInt64 converts an optional id to its sql null form
func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// nullTime converts an optional timestamp to its sql null form
func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

// Verify interface compliance
var _ port.StepRepository = (*StepRepository)(nil)
