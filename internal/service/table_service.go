package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/admin-db/dbadmin-api/internal/models"
	appErrors "github.com/admin-db/dbadmin-api/pkg/errors"
)

// TableService introspects and browses tables in the target environments.
// Table and column names are read from information_schema on every call, so
// the allow-list used for mutations always reflects the live schema.
type TableService struct {
	envs    EnvironmentResolver
	timeout time.Duration
	logger  *zap.Logger
}

// NewTableService constructs the service.
func NewTableService(envs EnvironmentResolver, timeout time.Duration, logger *zap.Logger) *TableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TableService{envs: envs, timeout: timeout, logger: logger}
}

// ListTables returns the names of all public tables in an environment.
func (s *TableService) ListTables(ctx context.Context, environment string) ([]string, error) {
	db, err := s.envs.Get(environment)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var tables []string
	query := `SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`
	if err := db.SelectContext(ctx, &tables, query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrEnvironmentDown.Code, appErrors.ErrEnvironmentDown.Status, "failed to list tables")
	}
	return tables, nil
}

// Schema returns the column definitions of a table, including which columns
// form the primary key.
func (s *TableService) Schema(ctx context.Context, environment, tableName string) (*models.TableInfo, error) {
	if !identifierPattern.MatchString(tableName) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "table name must contain only letters, digits, and underscores")
	}
	db, err := s.envs.Get(environment)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type columnRow struct {
		Name     string `db:"column_name"`
		DataType string `db:"data_type"`
		Nullable string `db:"is_nullable"`
	}
	var columns []columnRow
	columnQuery := `SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`
	if err := db.SelectContext(ctx, &columns, columnQuery, tableName); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrEnvironmentDown.Code, appErrors.ErrEnvironmentDown.Status, "failed to read table schema")
	}
	if len(columns) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "table not found: "+tableName)
	}

	var pkColumns []string
	pkQuery := `SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_name = tc.constraint_name
			AND kcu.table_schema = tc.table_schema
		WHERE tc.table_schema = 'public'
			AND tc.table_name = $1
			AND tc.constraint_type = 'PRIMARY KEY'`
	if err := db.SelectContext(ctx, &pkColumns, pkQuery, tableName); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrEnvironmentDown.Code, appErrors.ErrEnvironmentDown.Status, "failed to read primary key")
	}
	primary := make(map[string]bool, len(pkColumns))
	for _, name := range pkColumns {
		primary[name] = true
	}

	info := &models.TableInfo{Name: tableName, Columns: make([]models.ColumnInfo, 0, len(columns))}
	for _, col := range columns {
		info.Columns = append(info.Columns, models.ColumnInfo{
			Name:       col.Name,
			Type:       col.DataType,
			Nullable:   col.Nullable == "YES",
			PrimaryKey: primary[col.Name],
		})
	}
	return info, nil
}

// ColumnNames returns the live column name set of a table. The applier uses
// this as the allow-list for payload keys.
func (s *TableService) ColumnNames(ctx context.Context, environment, tableName string) ([]string, error) {
	info, err := s.Schema(ctx, environment, tableName)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(info.Columns))
	for _, col := range info.Columns {
		names = append(names, col.Name)
	}
	return names, nil
}

// Data returns a page of rows from a table together with the total row count.
func (s *TableService) Data(ctx context.Context, environment, tableName string, limit, offset int) (*models.TableData, error) {
	if !identifierPattern.MatchString(tableName) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "table name must contain only letters, digits, and underscores")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	db, err := s.envs.Get(environment)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, tableName)
	if err := db.GetContext(ctx, &total, countQuery); err != nil {
		if isUndefinedTable(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "table not found: "+tableName)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrEnvironmentDown.Code, appErrors.ErrEnvironmentDown.Status, "failed to count rows")
	}

	query := fmt.Sprintf(`SELECT * FROM %s LIMIT $1 OFFSET $2`, tableName)
	rows, err := db.QueryxContext(ctx, query, limit, offset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrEnvironmentDown.Code, appErrors.ErrEnvironmentDown.Status, "failed to read table data")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read result columns")
	}

	data := &models.TableData{Columns: columns, Rows: [][]interface{}{}, TotalCount: total}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan row")
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		data.Rows = append(data.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrEnvironmentDown.Code, appErrors.ErrEnvironmentDown.Status, "failed to iterate table data")
	}
	return data, nil
}

func isUndefinedTable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	// lib/pq reports undefined_table as SQLSTATE 42P01.
	type sqlStater interface{ SQLState() string }
	var state sqlStater
	if errors.As(err, &state) {
		return state.SQLState() == "42P01"
	}
	return false
}
