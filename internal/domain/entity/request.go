package entity

import "time"

// ReturnRequest represents a customer return request. The request is
// created and owned by the request-intake subsystem; the workflow
// engine only mutates Status, the approver fields, ResolutionNotes and
// the update audit fields.
type ReturnRequest struct {
	ID              int64      `json:"id"`
	CustomerID      int64      `json:"customer_id"`
	ProductID       int64      `json:"product_id"`
	SerialID        *int64     `json:"serial_id,omitempty"`
	Status          string     `json:"status"`
	ApprovedBy      *int64     `json:"approved_by,omitempty"`
	ApprovedDate    *time.Time `json:"approved_date,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`
	IsActive        string     `json:"is_active"`
	CreatedBy       int64      `json:"created_by"`
	CreatedDate     time.Time  `json:"created_date"`
	UpdatedBy       *int64     `json:"updated_by,omitempty"`
	UpdatedDate     *time.Time `json:"updated_date,omitempty"`
}
