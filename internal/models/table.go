package models

// ColumnInfo describes a single column of a browsed table.
type ColumnInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key"`
}

// TableInfo is the introspected schema of a table in some environment.
type TableInfo struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}

// TableData is a paginated page of raw table rows.
type TableData struct {
	Columns    []string        `json:"columns"`
	Rows       [][]interface{} `json:"rows"`
	TotalCount int             `json:"total_count"`
}
