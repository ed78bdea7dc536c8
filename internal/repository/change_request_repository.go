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

const changeRequestColumns = `id, environment, table_name, record_id, operation, old_data, new_data,
       requested_by, requested_at, status, reviewed_by, reviewed_at, message`

// ChangeRequestRepository persists change requests in the metadata store.
type ChangeRequestRepository struct {
	db *sqlx.DB
}

// NewChangeRequestRepository constructs the repository.
func NewChangeRequestRepository(db *sqlx.DB) *ChangeRequestRepository {
	return &ChangeRequestRepository{db: db}
}

// BeginTx opens a metadata-store transaction for review flows.
func (r *ChangeRequestRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, nil)
}

// Create inserts a new change request row with status PENDING.
func (r *ChangeRequestRepository) Create(ctx context.Context, change *models.ChangeRequest) error {
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	if change.Status == "" {
		change.Status = models.ChangeRequestPending
	}
	if change.RequestedAt.IsZero() {
		change.RequestedAt = time.Now().UTC()
	}
	const query = `INSERT INTO change_requests
	(id, environment, table_name, record_id, operation, old_data, new_data, requested_by, requested_at, status, reviewed_by, reviewed_at, message)
	VALUES (:id, :environment, :table_name, :record_id, :operation, :old_data, :new_data, :requested_by, :requested_at, :status, :reviewed_by, :reviewed_at, :message)`
	if _, err := r.db.NamedExecContext(ctx, query, change); err != nil {
		return fmt.Errorf("create change request: %w", err)
	}
	return nil
}

// GetByID fetches a change request by identifier.
func (r *ChangeRequestRepository) GetByID(ctx context.Context, id string) (*models.ChangeRequest, error) {
	query := `SELECT ` + changeRequestColumns + ` FROM change_requests WHERE id = $1`
	var change models.ChangeRequest
	if err := r.db.GetContext(ctx, &change, query, id); err != nil {
		return nil, err
	}
	return &change, nil
}

// GetByIDForUpdate fetches a change request inside tx, holding a row lock
// until the transaction resolves. The lock is what serializes concurrent
// reviews of the same request.
func (r *ChangeRequestRepository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.ChangeRequest, error) {
	query := `SELECT ` + changeRequestColumns + ` FROM change_requests WHERE id = $1 FOR UPDATE`
	var change models.ChangeRequest
	if err := tx.GetContext(ctx, &change, query, id); err != nil {
		return nil, err
	}
	return &change, nil
}

// List returns change requests matching the filter, newest submissions first.
func (r *ChangeRequestRepository) List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(`SELECT ` + changeRequestColumns + ` FROM change_requests`)

	conditions := make([]string, 0, 4)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Environment != "" {
		args = append(args, filter.Environment)
		conditions = append(conditions, fmt.Sprintf("environment = $%d", len(args)))
	}
	if filter.TableName != "" {
		args = append(args, filter.TableName)
		conditions = append(conditions, fmt.Sprintf("table_name = $%d", len(args)))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("requested_by = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY requested_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var changes []models.ChangeRequest
	if err := r.db.SelectContext(ctx, &changes, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	return changes, nil
}

// ListHistory returns processed change requests, most recently reviewed first.
func (r *ChangeRequestRepository) ListHistory(ctx context.Context, limit, offset int) ([]models.ChangeRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + changeRequestColumns + ` FROM change_requests
	WHERE status IN ($1, $2) ORDER BY reviewed_at DESC LIMIT $3 OFFSET $4`
	var changes []models.ChangeRequest
	if err := r.db.SelectContext(ctx, &changes, query,
		models.ChangeRequestApproved, models.ChangeRequestRejected, limit, offset); err != nil {
		return nil, fmt.Errorf("list change history: %w", err)
	}
	return changes, nil
}

// ReviewParams groups the columns written by a terminal transition.
type ReviewParams struct {
	ID         string
	Status     models.ChangeRequestStatus
	ReviewedBy string
	ReviewedAt time.Time
	Message    *string
}

// MarkReviewed writes the terminal status guarded by the PENDING precondition.
// A zero row count means another reviewer already resolved the request and is
// surfaced as sql.ErrNoRows.
func (r *ChangeRequestRepository) MarkReviewed(ctx context.Context, params ReviewParams) error {
	return markReviewed(ctx, r.db, params)
}

// MarkReviewedTx is MarkReviewed inside an existing transaction.
func (r *ChangeRequestRepository) MarkReviewedTx(ctx context.Context, tx *sqlx.Tx, params ReviewParams) error {
	return markReviewed(ctx, tx, params)
}

func markReviewed(ctx context.Context, ext sqlx.ExtContext, params ReviewParams) error {
	query := fmt.Sprintf(`UPDATE change_requests
	SET status = :status, reviewed_by = :reviewed_by, reviewed_at = :reviewed_at, message = :message
	WHERE id = :id AND status = '%s'`, models.ChangeRequestPending)
	result, err := sqlx.NamedExecContext(ctx, ext, query, map[string]interface{}{
		"id":          params.ID,
		"status":      params.Status,
		"reviewed_by": params.ReviewedBy,
		"reviewed_at": params.ReviewedAt,
		"message":     params.Message,
	})
	if err != nil {
		return fmt.Errorf("mark change request reviewed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check reviewed rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
