package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/admin-db/dbadmin-api/internal/models"
	appErrors "github.com/admin-db/dbadmin-api/pkg/errors"
)

type tableSchemaReader interface {
	ColumnNames(ctx context.Context, environment, tableName string) ([]string, error)
}

type dbQueryRecorder interface {
	ObserveDBQuery(environment, operation string, duration time.Duration)
}

// SQLApplier turns an approved change request into exactly one parameterized
// SQL statement against the target environment. Identifiers never come from
// the caller unchecked: the table name passes the allow-list pattern and every
// column from the payload must exist in the live schema. Values are always
// bound as query parameters.
type SQLApplier struct {
	envs    EnvironmentResolver
	schema  tableSchemaReader
	metrics dbQueryRecorder
	timeout time.Duration
	logger  *zap.Logger
}

// NewSQLApplier constructs the applier.
func NewSQLApplier(envs EnvironmentResolver, schema tableSchemaReader, metrics dbQueryRecorder, timeout time.Duration, logger *zap.Logger) *SQLApplier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SQLApplier{envs: envs, schema: schema, metrics: metrics, timeout: timeout, logger: logger}
}

// Apply executes the change request's mutation. The primary key column is
// assumed to be named "id" for UPDATE and DELETE.
func (a *SQLApplier) Apply(ctx context.Context, change *models.ChangeRequest) error {
	if !identifierPattern.MatchString(change.TableName) {
		return appErrors.Clone(appErrors.ErrValidation, "invalid table name: "+change.TableName)
	}

	db, err := a.envs.Get(change.Environment)
	if err != nil {
		return err
	}

	var query string
	var args []interface{}

	switch change.Operation {
	case models.OperationCreate:
		query, args, err = a.buildInsert(ctx, change)
	case models.OperationUpdate:
		query, args, err = a.buildUpdate(ctx, change)
	case models.OperationDelete:
		query, args, err = a.buildDelete(change)
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unsupported operation: "+string(change.Operation))
	}
	if err != nil {
		return err
	}

	execCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	started := time.Now()
	result, err := db.ExecContext(execCtx, query, args...)
	if a.metrics != nil {
		a.metrics.ObserveDBQuery(change.Environment, string(change.Operation), time.Since(started))
	}
	if err != nil {
		return fmt.Errorf("apply %s on %s.%s: %w", change.Operation, change.Environment, change.TableName, err)
	}

	affected, _ := result.RowsAffected()
	a.logger.Info("change applied",
		zap.String("change_request_id", change.ID),
		zap.String("environment", change.Environment),
		zap.String("table", change.TableName),
		zap.String("operation", string(change.Operation)),
		zap.Int64("rows_affected", affected),
	)
	return nil
}

// FetchRecord loads a single record by id for old-data capture at submission.
func (a *SQLApplier) FetchRecord(ctx context.Context, environment, tableName, recordID string) (map[string]interface{}, error) {
	if !identifierPattern.MatchString(tableName) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid table name: "+tableName)
	}

	db, err := a.envs.Get(environment)
	if err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	row := db.QueryRowxContext(fetchCtx, "SELECT * FROM "+tableName+" WHERE id = $1", recordID)
	record := make(map[string]interface{})
	if err := row.MapScan(record); err != nil {
		return nil, fmt.Errorf("fetch record %s from %s.%s: %w", recordID, environment, tableName, err)
	}
	return normalizeRow(record), nil
}

func (a *SQLApplier) buildInsert(ctx context.Context, change *models.ChangeRequest) (string, []interface{}, error) {
	payload, err := a.payloadColumns(ctx, change)
	if err != nil {
		return "", nil, err
	}

	columns := make([]string, 0, len(payload.columns))
	placeholders := make([]string, 0, len(payload.columns))
	args := make([]interface{}, 0, len(payload.columns))
	for i, column := range payload.columns {
		columns = append(columns, column)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, payload.values[column])
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		change.TableName,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
	return query, args, nil
}

func (a *SQLApplier) buildUpdate(ctx context.Context, change *models.ChangeRequest) (string, []interface{}, error) {
	if change.RecordID == nil {
		return "", nil, appErrors.Clone(appErrors.ErrValidation, "record_id is required for UPDATE")
	}

	payload, err := a.payloadColumns(ctx, change)
	if err != nil {
		return "", nil, err
	}

	assignments := make([]string, 0, len(payload.columns))
	args := make([]interface{}, 0, len(payload.columns)+1)
	for i, column := range payload.columns {
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, i+1))
		args = append(args, payload.values[column])
	}
	args = append(args, *change.RecordID)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		change.TableName,
		strings.Join(assignments, ", "),
		len(args),
	)
	return query, args, nil
}

func (a *SQLApplier) buildDelete(change *models.ChangeRequest) (string, []interface{}, error) {
	if change.RecordID == nil {
		return "", nil, appErrors.Clone(appErrors.ErrValidation, "record_id is required for DELETE")
	}
	// Deleting an id that no longer exists is a no-op, not an error.
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", change.TableName)
	return query, []interface{}{*change.RecordID}, nil
}

type mutationPayload struct {
	columns []string
	values  map[string]interface{}
}

// payloadColumns decodes new_data and checks every key against the live table
// schema, rejecting names the table does not declare.
func (a *SQLApplier) payloadColumns(ctx context.Context, change *models.ChangeRequest) (*mutationPayload, error) {
	if len(change.NewData) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "new_data is required for "+string(change.Operation))
	}

	values := make(map[string]interface{})
	if err := json.Unmarshal(change.NewData, &values); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "new_data must be a JSON object")
	}
	if len(values) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "new_data must not be empty")
	}

	declared, err := a.schema.ColumnNames(ctx, change.Environment, change.TableName)
	if err != nil {
		return nil, fmt.Errorf("introspect %s.%s: %w", change.Environment, change.TableName, err)
	}
	allowed := make(map[string]struct{}, len(declared))
	for _, column := range declared {
		allowed[column] = struct{}{}
	}

	columns := make([]string, 0, len(values))
	for column := range values {
		if !identifierPattern.MatchString(column) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid column name: "+column)
		}
		if _, ok := allowed[column]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("column %q does not exist on table %s", column, change.TableName))
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)

	return &mutationPayload{columns: columns, values: values}, nil
}
