package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/admin-db/dbadmin-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestChangeRequestRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO change_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	change := &models.ChangeRequest{
		Environment: "dev",
		TableName:   "orders",
		Operation:   models.OperationCreate,
		NewData:     []byte(`{"status":"NEW"}`),
		RequestedBy: "user-1",
	}
	require.NoError(t, repo.Create(context.Background(), change))
	require.NotEmpty(t, change.ID)
	require.Equal(t, models.ChangeRequestPending, change.Status)
	require.False(t, change.RequestedAt.IsZero())

	rows := sqlmock.NewRows([]string{"id", "environment", "table_name", "record_id", "operation", "old_data", "new_data", "requested_by", "requested_at", "status", "reviewed_by", "reviewed_at", "message"}).
		AddRow(change.ID, "dev", "orders", nil, "CREATE", nil, `{"status":"NEW"}`, "user-1", time.Now(), "PENDING", nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, environment, table_name")).
		WithArgs(change.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), change.ID)
	require.NoError(t, err)
	require.Equal(t, change.ID, found.ID)
	require.Equal(t, models.ChangeRequestPending, found.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	rows := sqlmock.NewRows([]string{"id", "environment", "table_name", "record_id", "operation", "old_data", "new_data", "requested_by", "requested_at", "status", "reviewed_by", "reviewed_at", "message"}).
		AddRow("cr-1", "prod", "orders", "42", "UPDATE", `{}`, `{}`, "user-1", time.Now(), "PENDING", nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, environment, table_name")).
		WithArgs("PENDING", "prod", "orders").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.ChangeRequestFilter{
		Status:      []models.ChangeRequestStatus{models.ChangeRequestPending},
		Environment: "prod",
		TableName:   "orders",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "cr-1", list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryMarkReviewed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	message := "change approved and applied"
	params := ReviewParams{
		ID:         "cr-1",
		Status:     models.ChangeRequestApproved,
		ReviewedBy: "admin-1",
		ReviewedAt: time.Now().UTC(),
		Message:    &message,
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE change_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkReviewed(context.Background(), params))

	// Zero affected rows means someone else already resolved the request.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE change_requests")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.MarkReviewed(context.Background(), params)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryMarkReviewedTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE change_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := repo.BeginTx(context.Background())
	require.NoError(t, err)
	message := "ok"
	require.NoError(t, repo.MarkReviewedTx(context.Background(), tx, ReviewParams{
		ID:         "cr-1",
		Status:     models.ChangeRequestRejected,
		ReviewedBy: "admin-1",
		ReviewedAt: time.Now().UTC(),
		Message:    &message,
	}))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryListHistory(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "environment", "table_name", "record_id", "operation", "old_data", "new_data", "requested_by", "requested_at", "status", "reviewed_by", "reviewed_at", "message"}).
		AddRow("cr-2", "dev", "orders", nil, "CREATE", nil, `{}`, "user-1", now, "APPROVED", "admin-1", now, "done")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, environment, table_name")).
		WithArgs("APPROVED", "REJECTED", 50, 0).
		WillReturnRows(rows)

	list, err := repo.ListHistory(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, models.ChangeRequestApproved, list[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
