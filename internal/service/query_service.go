package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/admin-db/dbadmin-api/internal/models"
	appErrors "github.com/admin-db/dbadmin-api/pkg/errors"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// QueryService executes named queries from a static catalog against the
// target environments. Templates are trusted configuration, so filled values
// are substituted textually; every supplied value is therefore validated
// against the parameter schema before it touches the SQL text.
type QueryService struct {
	catalog map[string][]models.PredefinedQuery
	envs    EnvironmentResolver
	audit   auditLogger
	metrics dbQueryRecorder
	timeout time.Duration
	logger  *zap.Logger
}

// NewQueryService loads the JSON catalog at path and constructs the service.
// The catalog file maps table names to lists of query definitions.
func NewQueryService(path string, envs EnvironmentResolver, audit auditLogger, metrics dbQueryRecorder, timeout time.Duration, logger *zap.Logger) (*QueryService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query catalog %s: %w", path, err)
	}
	var catalog map[string][]models.PredefinedQuery
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse query catalog %s: %w", path, err)
	}

	total := 0
	for _, queries := range catalog {
		total += len(queries)
	}
	logger.Info("query catalog loaded",
		zap.String("path", path),
		zap.Int("tables", len(catalog)),
		zap.Int("queries", total),
	)
	return &QueryService{catalog: catalog, envs: envs, audit: audit, metrics: metrics, timeout: timeout, logger: logger}, nil
}

// NewQueryServiceFromCatalog constructs the service from an in-memory catalog.
func NewQueryServiceFromCatalog(catalog map[string][]models.PredefinedQuery, envs EnvironmentResolver, audit auditLogger, metrics dbQueryRecorder, timeout time.Duration, logger *zap.Logger) *QueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &QueryService{catalog: catalog, envs: envs, audit: audit, metrics: metrics, timeout: timeout, logger: logger}
}

// QueriesForTable returns the catalog entries registered for a table.
func (s *QueryService) QueriesForTable(tableName string) []models.PredefinedQuery {
	queries := s.catalog[tableName]
	if queries == nil {
		return []models.PredefinedQuery{}
	}
	return queries
}

// Execute runs a catalog query against an environment. Every supplied
// parameter is checked against its declared constraints before substitution;
// all violations are collected and reported together.
func (s *QueryService) Execute(ctx context.Context, environment, tableName, queryID string, params map[string]interface{}, userID string) (*models.QueryResult, error) {
	query, ok := s.lookup(tableName, queryID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "query not found: "+queryID)
	}

	filled, err := s.resolveParameters(query, params)
	if err != nil {
		return nil, err
	}

	executedSQL, err := substituteTemplate(query.SQL, filled)
	if err != nil {
		return nil, err
	}

	db, err := s.envs.Get(environment)
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	rows, err := db.QueryxContext(execCtx, executedSQL)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(environment, "CATALOG_QUERY", time.Since(started))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrEnvironmentDown.Code, appErrors.ErrEnvironmentDown.Status, "query execution failed")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read result columns")
	}

	result := &models.QueryResult{
		QueryID:     query.ID,
		QueryName:   query.Name,
		Columns:     columns,
		Rows:        []map[string]interface{}{},
		ExecutedSQL: executedSQL,
		Parameters:  filled,
	}
	for rows.Next() {
		row := map[string]interface{}{}
		if err := rows.MapScan(row); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan result row")
		}
		result.Rows = append(result.Rows, normalizeRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrEnvironmentDown.Code, appErrors.ErrEnvironmentDown.Status, "failed to iterate query result")
	}
	result.RowCount = len(result.Rows)

	s.logger.Info("catalog query executed",
		zap.String("environment", environment),
		zap.String("table", tableName),
		zap.String("query_id", query.ID),
		zap.Int("row_count", result.RowCount),
	)
	if s.audit != nil {
		sqlJSON, _ := json.Marshal(map[string]interface{}{"sql": executedSQL, "parameters": filled})
		log := &models.AuditLog{
			Action:     models.AuditActionQueryExecute,
			Resource:   tableName,
			ResourceID: &query.ID,
			NewValues:  sqlJSON,
			IPAddress:  "system",
			UserAgent:  "query-service",
		}
		if userID != "" {
			log.UserID = &userID
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("failed to persist audit log", zap.Error(err))
		}
	}
	return result, nil
}

func (s *QueryService) lookup(tableName, queryID string) (models.PredefinedQuery, bool) {
	for _, query := range s.catalog[tableName] {
		if query.ID == queryID {
			return query, true
		}
	}
	return models.PredefinedQuery{}, false
}

// resolveParameters validates supplied values and fills in defaults. All
// violations are collected into one validation error keyed by parameter name.
func (s *QueryService) resolveParameters(query models.PredefinedQuery, params map[string]interface{}) (map[string]interface{}, error) {
	filled := make(map[string]interface{}, len(query.Parameters))
	violations := map[string]string{}

	for _, param := range query.Parameters {
		value, supplied := params[param.Name]
		if !supplied || value == nil {
			if param.Default != nil {
				filled[param.Name] = param.Default
				continue
			}
			if param.Required {
				violations[param.Name] = "parameter is required"
			}
			continue
		}
		if msg := validateParameter(param, value); msg != "" {
			violations[param.Name] = msg
			continue
		}
		filled[param.Name] = value
	}

	for name := range params {
		if !hasParameter(query, name) {
			violations[name] = "unknown parameter"
		}
	}

	if len(violations) > 0 {
		return nil, appErrors.WithFields(appErrors.Clone(appErrors.ErrValidation, "query parameter validation failed"), violations)
	}
	return filled, nil
}

func hasParameter(query models.PredefinedQuery, name string) bool {
	for _, param := range query.Parameters {
		if param.Name == name {
			return true
		}
	}
	return false
}

func validateParameter(param models.QueryParameter, value interface{}) string {
	switch param.Type {
	case models.ParameterInteger:
		number, ok := asFloat(value)
		if !ok || number != math.Trunc(number) {
			return "must be an integer"
		}
		return checkRange(param, number)
	case models.ParameterDecimal:
		number, ok := asFloat(value)
		if !ok {
			return "must be a number"
		}
		return checkRange(param, number)
	case models.ParameterText:
		text, ok := value.(string)
		if !ok {
			return "must be a string"
		}
		if param.MaxLength != nil && utf8.RuneCountInString(text) > *param.MaxLength {
			return fmt.Sprintf("must be at most %d characters", *param.MaxLength)
		}
	case models.ParameterSelect:
		text, ok := value.(string)
		if !ok {
			return "must be a string"
		}
		for _, option := range param.Options {
			if text == option {
				return ""
			}
		}
		return "must be one of: " + strings.Join(param.Options, ", ")
	case models.ParameterDate:
		text, ok := value.(string)
		if !ok {
			return "must be a date string"
		}
		if _, err := time.Parse("2006-01-02", text); err != nil {
			return "must be a date in YYYY-MM-DD format"
		}
	case models.ParameterBoolean:
		if _, ok := value.(bool); !ok {
			return "must be a boolean"
		}
	default:
		return "unsupported parameter type"
	}
	return ""
}

func checkRange(param models.QueryParameter, number float64) string {
	if param.Min != nil && number < *param.Min {
		return fmt.Sprintf("must be at least %v", *param.Min)
	}
	if param.Max != nil && number > *param.Max {
		return fmt.Sprintf("must be at most %v", *param.Max)
	}
	return ""
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		number, err := v.Float64()
		return number, err == nil
	default:
		return 0, false
	}
}

// substituteTemplate fills {name} placeholders with rendered values. Any
// placeholder left unfilled after substitution is an error, never executed.
func substituteTemplate(template string, values map[string]interface{}) (string, error) {
	result := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := values[name]
		if !ok {
			return match
		}
		return renderValue(value)
	})
	if leftover := placeholderPattern.FindString(result); leftover != "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "unresolved query placeholder: "+leftover)
	}
	return result, nil
}

func renderValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case bool:
		return strconv.FormatBool(v)
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
