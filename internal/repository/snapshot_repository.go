package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/admin-db/dbadmin-api/internal/models"
)

const snapshotColumns = `id, environment, table_name, snapshot_data, change_request_id, created_at`

// SnapshotRepository persists table snapshots in the metadata store.
// Snapshots are append-only: there is no update path, only an explicit admin
// delete for cleanup.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository constructs the repository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// CreateTx inserts a snapshot row inside an existing metadata transaction so
// the capture commits atomically with the change request's terminal status.
// Snapshots are only ever written through the approval flow, so there is no
// standalone insert path.
func (r *SnapshotRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, snapshot *models.Snapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO snapshots
	(id, environment, table_name, snapshot_data, change_request_id, created_at)
	VALUES (:id, :environment, :table_name, :snapshot_data, :change_request_id, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, snapshot); err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	return nil
}

// GetByID fetches a snapshot including its captured rows.
func (r *SnapshotRepository) GetByID(ctx context.Context, id string) (*models.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots WHERE id = $1`
	var snapshot models.Snapshot
	if err := r.db.GetContext(ctx, &snapshot, query, id); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// List returns snapshots matching the filter, newest first.
func (r *SnapshotRepository) List(ctx context.Context, filter models.SnapshotFilter) ([]models.Snapshot, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + snapshotColumns + ` FROM snapshots`)

	conditions := make([]string, 0, 3)
	if filter.Environment != "" {
		args = append(args, filter.Environment)
		conditions = append(conditions, fmt.Sprintf("environment = $%d", len(args)))
	}
	if filter.TableName != "" {
		args = append(args, filter.TableName)
		conditions = append(conditions, fmt.Sprintf("table_name = $%d", len(args)))
	}
	if filter.ChangeRequestID != "" {
		args = append(args, filter.ChangeRequestID)
		conditions = append(conditions, fmt.Sprintf("change_request_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var snapshots []models.Snapshot
	if err := r.db.SelectContext(ctx, &snapshots, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snapshots, nil
}

// ListByChangeRequest returns every snapshot captured for a change request.
func (r *SnapshotRepository) ListByChangeRequest(ctx context.Context, changeRequestID string) ([]models.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots
	WHERE change_request_id = $1 ORDER BY created_at DESC`
	var snapshots []models.Snapshot
	if err := r.db.SelectContext(ctx, &snapshots, query, changeRequestID); err != nil {
		return nil, fmt.Errorf("list snapshots by change request: %w", err)
	}
	return snapshots, nil
}

// Delete removes a snapshot. Cleanup only; never called by the approval flow.
func (r *SnapshotRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Stats aggregates snapshot counts overall, per environment, and per table.
func (r *SnapshotRepository) Stats(ctx context.Context) (*models.SnapshotStats, error) {
	stats := &models.SnapshotStats{
		ByEnvironment: make(map[string]int),
		ByTable:       make(map[string]int),
	}

	if err := r.db.GetContext(ctx, &stats.Total, `SELECT COUNT(*) FROM snapshots`); err != nil {
		return nil, fmt.Errorf("count snapshots: %w", err)
	}

	type bucket struct {
		Key   string `db:"key"`
		Count int    `db:"count"`
	}

	var byEnv []bucket
	if err := r.db.SelectContext(ctx, &byEnv,
		`SELECT environment AS key, COUNT(*) AS count FROM snapshots GROUP BY environment`); err != nil {
		return nil, fmt.Errorf("aggregate snapshots by environment: %w", err)
	}
	for _, b := range byEnv {
		stats.ByEnvironment[b.Key] = b.Count
	}

	var byTable []bucket
	if err := r.db.SelectContext(ctx, &byTable,
		`SELECT table_name AS key, COUNT(*) AS count FROM snapshots GROUP BY table_name`); err != nil {
		return nil, fmt.Errorf("aggregate snapshots by table: %w", err)
	}
	for _, b := range byTable {
		stats.ByTable[b.Key] = b.Count
	}

	return stats, nil
}
