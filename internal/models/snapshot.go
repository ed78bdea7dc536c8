package models

import "time"

// Snapshot is a full-table capture taken immediately before an approved
// mutation is applied. It exists only as a byproduct of a change request and
// is immutable once written.
type Snapshot struct {
	ID              string    `db:"id" json:"id"`
	Environment     string    `db:"environment" json:"environment"`
	TableName       string    `db:"table_name" json:"table_name"`
	SnapshotData    []byte    `db:"snapshot_data" json:"-"`
	ChangeRequestID string    `db:"change_request_id" json:"change_request_id"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// SnapshotFilter constrains snapshot listing.
type SnapshotFilter struct {
	Environment     string
	TableName       string
	ChangeRequestID string
	Limit           int
	Offset          int
}

// SnapshotSummary is the listing projection: metadata plus derived sizes,
// without the captured rows themselves.
type SnapshotSummary struct {
	ID              string    `json:"id"`
	Environment     string    `json:"environment"`
	TableName       string    `json:"table_name"`
	ChangeRequestID string    `json:"change_request_id"`
	CreatedAt       time.Time `json:"created_at"`
	RowCount        int       `json:"row_count"`
	DataSize        int       `json:"data_size"`
}

// SnapshotDetail carries the parsed captured rows.
type SnapshotDetail struct {
	SnapshotSummary
	Rows []map[string]interface{} `json:"snapshot_data"`
}

// SnapshotStats aggregates snapshot counts for the admin dashboard.
type SnapshotStats struct {
	Total         int            `json:"total_snapshots"`
	ByEnvironment map[string]int `json:"by_environment"`
	ByTable       map[string]int `json:"by_table"`
}
