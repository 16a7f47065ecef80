package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/returndesk/return-workflow/internal/application/port"
	"github.com/returndesk/return-workflow/internal/domain/entity"
	"github.com/returndesk/return-workflow/internal/domain/workflow"
	"github.com/returndesk/return-workflow/internal/infrastructure/persistence/sqlite"
)

// RequestRepository implements port.RequestRepository
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new return-request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves an active return request by ID
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*entity.ReturnRequest, error) {
	query := `
		SELECT id, customer_id, product_id, serial_id, status,
			approved_by, approved_date, resolution_notes, is_active,
			created_by, created_date, updated_by, updated_date
		FROM return_requests
		WHERE id = ? AND is_active = 'Y'
	`

	var req entity.ReturnRequest
	var serialID, approvedBy, updatedBy sql.NullInt64
	var approvedDate, updatedDate sql.NullTime
	var resolutionNotes sql.NullString

	err := r.getExecutor(ctx).QueryRowContext(ctx, query, id).Scan(
		&req.ID,
		&req.CustomerID,
		&req.ProductID,
		&serialID,
		&req.Status,
		&approvedBy,
		&approvedDate,
		&resolutionNotes,
		&req.IsActive,
		&req.CreatedBy,
		&req.CreatedDate,
		&updatedBy,
		&updatedDate,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get return request", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get return request: %w", err)
	}

	if serialID.Valid {
		req.SerialID = &serialID.Int64
	}
	if approvedBy.Valid {
		req.ApprovedBy = &approvedBy.Int64
	}
	if approvedDate.Valid {
		req.ApprovedDate = &approvedDate.Time
	}
	if resolutionNotes.Valid {
		req.ResolutionNotes = resolutionNotes.String
	}
	if updatedBy.Valid {
		req.UpdatedBy = &updatedBy.Int64
	}
	if updatedDate.Valid {
		req.UpdatedDate = &updatedDate.Time
	}

	return &req, nil
}

// Update persists the workflow-owned fields of a return request,
// guarded by the status the caller read. Zero affected rows means a
// concurrent writer changed the status first.
func (r *RequestRepository) Update(ctx context.Context, req *entity.ReturnRequest, fromStatus workflow.State) error {
	query := `
		UPDATE return_requests
		SET status = ?, approved_by = ?, approved_date = ?,
			resolution_notes = ?, updated_by = ?, updated_date = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		req.Status,
		nullInt64(req.ApprovedBy),
		nullTime(req.ApprovedDate),
		req.ResolutionNotes,
		nullInt64(req.UpdatedBy),
		nullTime(req.UpdatedDate),
		req.ID,
		fromStatus.String(),
	)
	if err != nil {
		r.logger.Error("Failed to update return request", zap.Int64("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update return request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: request %d no longer has status %s", workflow.ErrStatusConflict, req.ID, fromStatus)
	}

	return nil
}

// getExecutor returns the enclosing transaction when present
func (r *RequestRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.RequestRepository = (*RequestRepository)(nil)
