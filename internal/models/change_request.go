package models

import "time"

// Operation enumerates the supported record mutations.
type Operation string

const (
	OperationCreate Operation = "CREATE"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
)

// ChangeRequestStatus captures the lifecycle of a staged change.
// PENDING is the only non-terminal state; APPROVED and REJECTED are final.
type ChangeRequestStatus string

const (
	ChangeRequestPending  ChangeRequestStatus = "PENDING"
	ChangeRequestApproved ChangeRequestStatus = "APPROVED"
	ChangeRequestRejected ChangeRequestStatus = "REJECTED"
)

// ChangeRequest is a proposed, not-yet-applied mutation against a table in
// some environment, awaiting admin disposition. Rows live in the metadata
// store only.
type ChangeRequest struct {
	ID          string              `db:"id" json:"id"`
	Environment string              `db:"environment" json:"environment"`
	TableName   string              `db:"table_name" json:"table_name"`
	RecordID    *string             `db:"record_id" json:"record_id,omitempty"`
	Operation   Operation           `db:"operation" json:"operation"`
	OldData     []byte              `db:"old_data" json:"old_data,omitempty"`
	NewData     []byte              `db:"new_data" json:"new_data,omitempty"`
	RequestedBy string              `db:"requested_by" json:"requested_by"`
	RequestedAt time.Time           `db:"requested_at" json:"requested_at"`
	Status      ChangeRequestStatus `db:"status" json:"status"`
	ReviewedBy  *string             `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time          `db:"reviewed_at" json:"reviewed_at,omitempty"`
	Message     *string             `db:"message" json:"message,omitempty"`
}

// ChangeRequestFilter constrains listing queries.
type ChangeRequestFilter struct {
	Status      []ChangeRequestStatus
	Environment string
	TableName   string
	RequestedBy string
	Limit       int
	Offset      int
}

// ApprovalOutcome is the result of processing an approve call. Approval always
// resolves to a terminal state: a failed mutation is reported through Status
// and Message, never as a request error. Callers must inspect Status.
type ApprovalOutcome struct {
	ChangeRequestID string              `json:"change_request_id"`
	Status          ChangeRequestStatus `json:"status"`
	Message         string              `json:"message"`
	SnapshotID      string              `json:"snapshot_id,omitempty"`
}
