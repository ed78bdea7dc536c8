package models

// ParameterType enumerates the value types a catalog query parameter accepts.
type ParameterType string

const (
	ParameterInteger ParameterType = "integer"
	ParameterDecimal ParameterType = "decimal"
	ParameterText    ParameterType = "text"
	ParameterSelect  ParameterType = "select"
	ParameterDate    ParameterType = "date"
	ParameterBoolean ParameterType = "boolean"
)

// QueryParameter declares one named placeholder of a catalog query, including
// the constraints enforced before textual substitution.
type QueryParameter struct {
	Name        string        `json:"name"`
	Type        ParameterType `json:"type"`
	Description string        `json:"description"`
	Default     interface{}   `json:"default,omitempty"`
	Required    bool          `json:"required"`
	Min         *float64      `json:"min,omitempty"`
	Max         *float64      `json:"max,omitempty"`
	MaxLength   *int          `json:"maxLength,omitempty"`
	Options     []string      `json:"options,omitempty"`
}

// PredefinedQuery is one entry of the static, trusted query catalog.
type PredefinedQuery struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	SQL         string           `json:"sql"`
	Parameters  []QueryParameter `json:"parameters"`
}

// QueryResult is the outcome of executing a catalog query, including the
// fully substituted SQL for auditability.
type QueryResult struct {
	QueryID     string                   `json:"query_id"`
	QueryName   string                   `json:"query_name"`
	Columns     []string                 `json:"columns"`
	Rows        []map[string]interface{} `json:"rows"`
	RowCount    int                      `json:"row_count"`
	ExecutedSQL string                   `json:"executed_sql"`
	Parameters  map[string]interface{}   `json:"parameters"`
}
