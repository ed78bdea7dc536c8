package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/admin-db/dbadmin-api/internal/models"
	"github.com/admin-db/dbadmin-api/pkg/database"
	appErrors "github.com/admin-db/dbadmin-api/pkg/errors"
)

type schemaStub struct {
	columns map[string][]string
}

func (s *schemaStub) ColumnNames(ctx context.Context, environment, tableName string) ([]string, error) {
	return s.columns[tableName], nil
}

type queryRecorderStub struct {
	observations []string
	sizes        []int
}

func (r *queryRecorderStub) ObserveDBQuery(environment, operation string, duration time.Duration) {
	r.observations = append(r.observations, environment+"/"+operation)
}

func (r *queryRecorderStub) ObserveSnapshotSize(bytes int) {
	r.sizes = append(r.sizes, bytes)
}

func newApplierFixture(t *testing.T) (*SQLApplier, sqlmock.Sqlmock, func()) {
	rawDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	db := sqlx.NewDb(rawDB, "sqlmock")

	envs := database.NewRegistryFromHandles(map[string]*sqlx.DB{"dev": db})
	schema := &schemaStub{columns: map[string][]string{
		"orders": {"id", "status", "total_amount", "customer_id"},
	}}
	applier := NewSQLApplier(envs, schema, nil, time.Second, nil)
	return applier, mock, func() { rawDB.Close() }
}

func TestSQLApplierRecordsQueryDuration(t *testing.T) {
	rawDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer rawDB.Close()
	db := sqlx.NewDb(rawDB, "sqlmock")

	envs := database.NewRegistryFromHandles(map[string]*sqlx.DB{"dev": db})
	schema := &schemaStub{columns: map[string][]string{"orders": {"id", "status"}}}
	recorder := &queryRecorderStub{}
	applier := NewSQLApplier(envs, schema, recorder, time.Second, nil)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM orders WHERE id = $1")).
		WithArgs("42").
		WillReturnResult(sqlmock.NewResult(0, 1))

	recordID := "42"
	err = applier.Apply(context.Background(), &models.ChangeRequest{
		Environment: "dev",
		TableName:   "orders",
		RecordID:    &recordID,
		Operation:   models.OperationDelete,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"dev/DELETE"}, recorder.observations)
}

func TestSQLApplierInsertSortsColumns(t *testing.T) {
	applier, mock, cleanup := newApplierFixture(t)
	defer cleanup()

	// Columns are emitted in sorted order regardless of payload key order.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders (customer_id, status) VALUES ($1, $2)")).
		WithArgs("c-9", "NEW").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := applier.Apply(context.Background(), &models.ChangeRequest{
		Environment: "dev",
		TableName:   "orders",
		Operation:   models.OperationCreate,
		NewData:     []byte(`{"status":"NEW","customer_id":"c-9"}`),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLApplierUpdateBindsRecordIDLast(t *testing.T) {
	applier, mock, cleanup := newApplierFixture(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = $1, total_amount = $2 WHERE id = $3")).
		WithArgs("PAID", float64(99), "42").
		WillReturnResult(sqlmock.NewResult(0, 1))

	recordID := "42"
	err := applier.Apply(context.Background(), &models.ChangeRequest{
		Environment: "dev",
		TableName:   "orders",
		RecordID:    &recordID,
		Operation:   models.OperationUpdate,
		NewData:     []byte(`{"total_amount":99,"status":"PAID"}`),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLApplierDelete(t *testing.T) {
	applier, mock, cleanup := newApplierFixture(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM orders WHERE id = $1")).
		WithArgs("42").
		WillReturnResult(sqlmock.NewResult(0, 0))

	recordID := "42"
	err := applier.Apply(context.Background(), &models.ChangeRequest{
		Environment: "dev",
		TableName:   "orders",
		RecordID:    &recordID,
		Operation:   models.OperationDelete,
	})
	require.NoError(t, err, "deleting a missing id is a silent no-op")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLApplierRejectsUnknownColumn(t *testing.T) {
	applier, _, cleanup := newApplierFixture(t)
	defer cleanup()

	err := applier.Apply(context.Background(), &models.ChangeRequest{
		Environment: "dev",
		TableName:   "orders",
		Operation:   models.OperationCreate,
		NewData:     []byte(`{"status":"NEW","no_such_column":"x"}`),
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.Contains(t, appErr.Message, "no_such_column")
}

func TestSQLApplierRejectsBadIdentifiers(t *testing.T) {
	applier, _, cleanup := newApplierFixture(t)
	defer cleanup()

	err := applier.Apply(context.Background(), &models.ChangeRequest{
		Environment: "dev",
		TableName:   "orders; DROP TABLE orders",
		Operation:   models.OperationDelete,
	})
	require.Error(t, err)

	err = applier.Apply(context.Background(), &models.ChangeRequest{
		Environment: "dev",
		TableName:   "orders",
		Operation:   models.OperationCreate,
		NewData:     []byte(`{"status = 'x', status":"NEW"}`),
	})
	require.Error(t, err)
}

func TestSQLApplierUnknownEnvironment(t *testing.T) {
	applier, _, cleanup := newApplierFixture(t)
	defer cleanup()

	recordID := "42"
	err := applier.Apply(context.Background(), &models.ChangeRequest{
		Environment: "staging",
		TableName:   "orders",
		RecordID:    &recordID,
		Operation:   models.OperationDelete,
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrUnknownEnvironment.Code, appErr.Code)
}

func TestSQLApplierFetchRecordNormalizes(t *testing.T) {
	applier, mock, cleanup := newApplierFixture(t)
	defer cleanup()

	captured := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "total_amount", "created_at"}).
		AddRow("42", []byte("19.90"), captured)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM orders WHERE id = $1")).
		WithArgs("42").
		WillReturnRows(rows)

	record, err := applier.FetchRecord(context.Background(), "dev", "orders", "42")
	require.NoError(t, err)
	require.Equal(t, "42", record["id"])
	require.Equal(t, "19.90", record["total_amount"], "numeric bytes become strings")
	require.Equal(t, "2024-05-01T12:00:00Z", record["created_at"], "timestamps become ISO-8601 strings")
	require.NoError(t, mock.ExpectationsWereMet())
}
