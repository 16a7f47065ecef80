package entity

import "time"

// RequestTypeReturn is the discriminator for return-request workflow steps.
const RequestTypeReturn = "return_request"

// ActiveYes and ActiveNo are the soft-delete flag values.
const (
	ActiveYes = "Y"
	ActiveNo  = "N"
)

// WorkflowStep represents one stage of a request's progression.
// Steps are created by the workflow engine only; ordering is defined
// by creation order (ascending autoincrement id), not by an explicit
// sequence number.
type WorkflowStep struct {
	ID          int64      `json:"id"`
	RequestType string     `json:"request_type"`
	RequestID   int64      `json:"request_id"`
	Step        string     `json:"step"`
	Status      string     `json:"status"`
	Remarks     string     `json:"remarks,omitempty"`
	ActionBy    *int64     `json:"action_by,omitempty"`
	ActionDate  *time.Time `json:"action_date,omitempty"`
	IsActive    string     `json:"is_active"`
	CreatedBy   int64      `json:"created_by"`
	CreatedDate time.Time  `json:"created_date"`
	UpdatedBy   *int64     `json:"updated_by,omitempty"`
	UpdatedDate *time.Time `json:"updated_date,omitempty"`
}
