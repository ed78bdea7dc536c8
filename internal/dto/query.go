package dto

// ExecuteQueryRequest carries caller-supplied parameter values for a catalog query.
type ExecuteQueryRequest struct {
	Parameters map[string]interface{} `json:"parameters"`
}
