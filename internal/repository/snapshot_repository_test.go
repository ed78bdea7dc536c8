package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/admin-db/dbadmin-api/internal/models"
)

func TestSnapshotRepositoryCreateTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSnapshotRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO snapshots")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	snapshot := &models.Snapshot{
		Environment:     "dev",
		TableName:       "customers",
		SnapshotData:    []byte(`[]`),
		ChangeRequestID: "cr-2",
	}
	require.NoError(t, repo.CreateTx(context.Background(), tx, snapshot))
	require.NotEmpty(t, snapshot.ID)
	require.False(t, snapshot.CreatedAt.IsZero())
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSnapshotRepository(db)
	rows := sqlmock.NewRows([]string{"id", "environment", "table_name", "snapshot_data", "change_request_id", "created_at"}).
		AddRow("snap-1", "prod", "orders", `[{"id":"1"}]`, "cr-1", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, environment, table_name, snapshot_data")).
		WithArgs("snap-1").
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), "snap-1")
	require.NoError(t, err)
	require.Equal(t, "cr-1", found.ChangeRequestID)
	require.JSONEq(t, `[{"id":"1"}]`, string(found.SnapshotData))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSnapshotRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM snapshots")).
		WithArgs("snap-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "snap-1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM snapshots")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Delete(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryStats(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSnapshotRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM snapshots")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY environment")).
		WillReturnRows(sqlmock.NewRows([]string{"key", "count"}).AddRow("dev", 2).AddRow("prod", 1))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY table_name")).
		WillReturnRows(sqlmock.NewRows([]string{"key", "count"}).AddRow("orders", 3))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, stats.Total)
	require.Equal(t, 2, stats.ByEnvironment["dev"])
	require.Equal(t, 3, stats.ByTable["orders"])
	require.NoError(t, mock.ExpectationsWereMet())
}
