package dto

import (
	"encoding/json"

	"github.com/admin-db/dbadmin-api/internal/models"
)

// SubmitChangeRequest is the payload staging a record mutation for review.
type SubmitChangeRequest struct {
	Environment string           `json:"environment"`
	TableName   string           `json:"table_name" validate:"required"`
	Operation   models.Operation `json:"operation" validate:"required"`
	RecordID    string           `json:"record_id"`
	NewData     json.RawMessage  `json:"new_data"`
}

// RecordPayload is the body of the staged record create/update endpoints; the
// table and record id arrive through the path and the environment through the
// caller's active-environment preference.
type RecordPayload map[string]interface{}
