package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/admin-db/dbadmin-api/internal/models"
	"github.com/admin-db/dbadmin-api/pkg/export"
	appErrors "github.com/admin-db/dbadmin-api/pkg/errors"
)

// identifierPattern is the allow-list for table names. It is checked before
// any SQL that embeds an identifier is built.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type snapshotStore interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, snapshot *models.Snapshot) error
	GetByID(ctx context.Context, id string) (*models.Snapshot, error)
	List(ctx context.Context, filter models.SnapshotFilter) ([]models.Snapshot, error)
	ListByChangeRequest(ctx context.Context, changeRequestID string) ([]models.Snapshot, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.SnapshotStats, error)
}

// EnvironmentResolver resolves a database handle per logical environment.
type EnvironmentResolver interface {
	Get(environment string) (*sqlx.DB, error)
}

// SnapshotService captures full-table snapshots into the metadata store and
// serves the snapshot browsing endpoints.
type SnapshotService struct {
	repo    snapshotStore
	envs    EnvironmentResolver
	metrics snapshotRecorder
	timeout time.Duration
	logger  *zap.Logger
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
}

type snapshotRecorder interface {
	ObserveSnapshotSize(bytes int)
	ObserveDBQuery(environment, operation string, duration time.Duration)
}

// NewSnapshotService constructs the service.
func NewSnapshotService(repo snapshotStore, envs EnvironmentResolver, metrics snapshotRecorder, timeout time.Duration, logger *zap.Logger) *SnapshotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SnapshotService{
		repo:    repo,
		envs:    envs,
		metrics: metrics,
		timeout: timeout,
		logger:  logger,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
	}
}

// CaptureTx reads every row of the table in the given environment and writes
// one snapshot row inside tx. A read failure propagates as a hard error: the
// snapshot is the rollback safety net and must never be silently skipped.
func (s *SnapshotService) CaptureTx(ctx context.Context, tx *sqlx.Tx, environment, tableName, changeRequestID string) (*models.Snapshot, error) {
	if !identifierPattern.MatchString(tableName) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid table name: "+tableName)
	}

	db, err := s.envs.Get(environment)
	if err != nil {
		return nil, err
	}

	readCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	rows, err := db.QueryxContext(readCtx, "SELECT * FROM "+tableName)
	if err != nil {
		return nil, fmt.Errorf("read table %s in %s: %w", tableName, environment, err)
	}
	defer rows.Close()

	captured := make([]map[string]interface{}, 0, 64)
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan row of %s: %w", tableName, err)
		}
		captured = append(captured, normalizeRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows of %s: %w", tableName, err)
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(environment, "SNAPSHOT", time.Since(started))
	}

	data, err := json.Marshal(captured)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot of %s: %w", tableName, err)
	}

	snapshot := &models.Snapshot{
		Environment:     environment,
		TableName:       tableName,
		SnapshotData:    data,
		ChangeRequestID: changeRequestID,
	}
	if err := s.repo.CreateTx(ctx, tx, snapshot); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveSnapshotSize(len(data))
	}

	s.logger.Info("table snapshot captured",
		zap.String("environment", environment),
		zap.String("table", tableName),
		zap.String("change_request_id", changeRequestID),
		zap.Int("rows", len(captured)),
	)
	return snapshot, nil
}

// List returns snapshot summaries matching the filter.
func (s *SnapshotService) List(ctx context.Context, filter models.SnapshotFilter) ([]models.SnapshotSummary, error) {
	snapshots, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list snapshots")
	}
	summaries := make([]models.SnapshotSummary, 0, len(snapshots))
	for i := range snapshots {
		summaries = append(summaries, summarize(&snapshots[i]))
	}
	return summaries, nil
}

// Get returns a snapshot with its captured rows parsed.
func (s *SnapshotService) Get(ctx context.Context, id string) (*models.SnapshotDetail, error) {
	snapshot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "snapshot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load snapshot")
	}
	detail := &models.SnapshotDetail{SnapshotSummary: summarize(snapshot)}
	detail.Rows = parseSnapshotRows(snapshot.SnapshotData)
	return detail, nil
}

// ByChangeRequest returns summaries of every snapshot tied to a change request.
func (s *SnapshotService) ByChangeRequest(ctx context.Context, changeRequestID string) ([]models.SnapshotSummary, error) {
	snapshots, err := s.repo.ListByChangeRequest(ctx, changeRequestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list snapshots")
	}
	if len(snapshots) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no snapshots found for this change request")
	}
	summaries := make([]models.SnapshotSummary, 0, len(snapshots))
	for i := range snapshots {
		summaries = append(summaries, summarize(&snapshots[i]))
	}
	return summaries, nil
}

// Delete removes a snapshot. Explicit admin cleanup only.
func (s *SnapshotService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "snapshot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete snapshot")
	}
	return nil
}

// Stats aggregates snapshot counts.
func (s *SnapshotService) Stats(ctx context.Context) (*models.SnapshotStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate snapshot stats")
	}
	return stats, nil
}

// Export renders a snapshot's rows as csv or pdf.
func (s *SnapshotService) Export(ctx context.Context, id, format string) ([]byte, string, error) {
	snapshot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "snapshot not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load snapshot")
	}

	parsed := parseSnapshotRows(snapshot.SnapshotData)
	dataset := export.Dataset{Headers: snapshotHeaders(parsed), Rows: make([]map[string]string, 0, len(parsed))}
	for _, row := range parsed {
		rendered := make(map[string]string, len(row))
		for key, value := range row {
			if value == nil {
				rendered[key] = ""
				continue
			}
			rendered[key] = fmt.Sprint(value)
		}
		dataset.Rows = append(dataset.Rows, rendered)
	}

	title := fmt.Sprintf("%s / %s @ %s", snapshot.Environment, snapshot.TableName, snapshot.CreatedAt.Format(time.RFC3339))
	switch format {
	case "pdf":
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	case "", "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format: "+format)
	}
}

func summarize(snapshot *models.Snapshot) models.SnapshotSummary {
	return models.SnapshotSummary{
		ID:              snapshot.ID,
		Environment:     snapshot.Environment,
		TableName:       snapshot.TableName,
		ChangeRequestID: snapshot.ChangeRequestID,
		CreatedAt:       snapshot.CreatedAt,
		RowCount:        len(parseSnapshotRows(snapshot.SnapshotData)),
		DataSize:        len(snapshot.SnapshotData),
	}
}

func parseSnapshotRows(data []byte) []map[string]interface{} {
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil
	}
	return rows
}

func snapshotHeaders(rows []map[string]interface{}) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for key := range row {
			seen[key] = struct{}{}
		}
	}
	headers := make([]string, 0, len(seen))
	for key := range seen {
		headers = append(headers, key)
	}
	sort.Strings(headers)
	if len(headers) == 0 {
		headers = []string{"empty"}
	}
	return headers
}

// normalizeRow coerces driver values into JSON-safe representations:
// timestamps become ISO-8601 strings and byte slices (numerics, text) become
// plain strings, so captures round-trip losslessly through the metadata store.
func normalizeRow(row map[string]interface{}) map[string]interface{} {
	for key, value := range row {
		row[key] = normalizeValue(value)
	}
	return row
}

func normalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case []byte:
		return string(v)
	default:
		return value
	}
}
