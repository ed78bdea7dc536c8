package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/admin-db/dbadmin-api/internal/dto"
	"github.com/admin-db/dbadmin-api/internal/models"
	"github.com/admin-db/dbadmin-api/internal/repository"
	appErrors "github.com/admin-db/dbadmin-api/pkg/errors"
)

type changeRequestStore interface {
	Create(ctx context.Context, change *models.ChangeRequest) error
	GetByID(ctx context.Context, id string) (*models.ChangeRequest, error)
	GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.ChangeRequest, error)
	List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error)
	ListHistory(ctx context.Context, limit, offset int) ([]models.ChangeRequest, error)
	MarkReviewed(ctx context.Context, params repository.ReviewParams) error
	MarkReviewedTx(ctx context.Context, tx *sqlx.Tx, params repository.ReviewParams) error
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
}

type snapshotCapturer interface {
	CaptureTx(ctx context.Context, tx *sqlx.Tx, environment, tableName, changeRequestID string) (*models.Snapshot, error)
}

// ChangeApplier executes the mutation of an approved change request against
// the live target environment.
type ChangeApplier interface {
	Apply(ctx context.Context, change *models.ChangeRequest) error
}

// RecordFetcher loads the current state of a record for old-data capture.
type RecordFetcher interface {
	FetchRecord(ctx context.Context, environment, tableName, recordID string) (map[string]interface{}, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type environmentChecker interface {
	Has(environment string) bool
}

type reviewRecorder interface {
	RecordReview(status models.ChangeRequestStatus)
}

// ApprovalService drives a change request from submission to its terminal
// state: validate, snapshot, apply, transition. Approve holds the metadata row
// lock across snapshot+apply+status-write so concurrent reviews of the same
// request cannot both reach the mutation path.
type ApprovalService struct {
	changes   changeRequestStore
	snapshots snapshotCapturer
	applier   ChangeApplier
	fetcher   RecordFetcher
	envs      environmentChecker
	audit     auditLogger
	metrics   reviewRecorder
	logger    *zap.Logger
}

// NewApprovalService constructs the service.
func NewApprovalService(
	changes changeRequestStore,
	snapshots snapshotCapturer,
	applier ChangeApplier,
	fetcher RecordFetcher,
	envs environmentChecker,
	audit auditLogger,
	metrics reviewRecorder,
	logger *zap.Logger,
) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{
		changes:   changes,
		snapshots: snapshots,
		applier:   applier,
		fetcher:   fetcher,
		envs:      envs,
		audit:     audit,
		metrics:   metrics,
		logger:    logger,
	}
}

// Submit validates and persists a new PENDING change request. For UPDATE and
// DELETE the current record is captured as old_data best-effort: a failed
// fetch degrades to a minimal placeholder instead of blocking submission.
func (s *ApprovalService) Submit(ctx context.Context, req dto.SubmitChangeRequest, userID string) (*models.ChangeRequest, error) {
	if err := s.validateSubmission(req); err != nil {
		return nil, err
	}

	change := &models.ChangeRequest{
		Environment: req.Environment,
		TableName:   req.TableName,
		Operation:   req.Operation,
		RequestedBy: userID,
		Status:      models.ChangeRequestPending,
	}
	if req.RecordID != "" {
		recordID := req.RecordID
		change.RecordID = &recordID
	}
	if len(req.NewData) > 0 {
		change.NewData = append([]byte(nil), req.NewData...)
	}

	if req.Operation == models.OperationUpdate || req.Operation == models.OperationDelete {
		change.OldData = s.captureOldData(ctx, req)
	}

	if err := s.changes.Create(ctx, change); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create change request")
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionChangeSubmit,
		Resource:   change.TableName,
		ResourceID: &change.ID,
		NewValues:  change.NewData,
		OldValues:  change.OldData,
	})
	return change, nil
}

// Approve resolves a PENDING change request. The outcome is always terminal:
// a failed snapshot aborts the approval (the request stays PENDING and the
// error surfaces), while a failed mutation is absorbed into a REJECTED status
// whose message carries the reason. Callers must inspect Outcome.Status.
func (s *ApprovalService) Approve(ctx context.Context, changeID, reviewerID string) (*models.ApprovalOutcome, error) {
	tx, err := s.changes.BeginTx(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open metadata transaction")
	}
	committed := false
	defer func() {
		if !committed && tx != nil {
			_ = tx.Rollback()
		}
	}()

	change, err := s.changes.GetByIDForUpdate(ctx, tx, changeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "change request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load change request")
	}
	if change.Status != models.ChangeRequestPending {
		return nil, appErrors.ErrAlreadyProcessed
	}

	snapshot, err := s.snapshots.CaptureTx(ctx, tx, change.Environment, change.TableName, change.ID)
	if err != nil {
		// No mutation may run without its snapshot. The request stays PENDING.
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "snapshot capture failed, approval aborted")
	}

	status := models.ChangeRequestApproved
	message := "change approved and applied"
	if applyErr := s.applier.Apply(ctx, change); applyErr != nil {
		status = models.ChangeRequestRejected
		message = "failed to apply change: " + applyErr.Error()
		s.logger.Warn("change application failed, rejecting request",
			zap.String("change_request_id", change.ID),
			zap.Error(applyErr),
		)
	}

	now := time.Now().UTC()
	params := repository.ReviewParams{
		ID:         change.ID,
		Status:     status,
		ReviewedBy: reviewerID,
		ReviewedAt: now,
		Message:    &message,
	}
	if err := s.changes.MarkReviewedTx(ctx, tx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAlreadyProcessed
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update change request")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit review")
	}
	committed = true

	if s.metrics != nil {
		s.metrics.RecordReview(status)
	}
	action := models.AuditActionChangeApprove
	if status == models.ChangeRequestRejected {
		action = models.AuditActionChangeReject
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &reviewerID,
		Action:     action,
		Resource:   change.TableName,
		ResourceID: &change.ID,
		OldValues:  change.OldData,
		NewValues:  change.NewData,
	})

	return &models.ApprovalOutcome{
		ChangeRequestID: change.ID,
		Status:          status,
		Message:         message,
		SnapshotID:      snapshot.ID,
	}, nil
}

// Reject resolves a PENDING change request without snapshot or mutation.
func (s *ApprovalService) Reject(ctx context.Context, changeID, reviewerID string) (*models.ApprovalOutcome, error) {
	change, err := s.changes.GetByID(ctx, changeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "change request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load change request")
	}
	if change.Status != models.ChangeRequestPending {
		return nil, appErrors.ErrAlreadyProcessed
	}

	message := "change request rejected"
	params := repository.ReviewParams{
		ID:         change.ID,
		Status:     models.ChangeRequestRejected,
		ReviewedBy: reviewerID,
		ReviewedAt: time.Now().UTC(),
		Message:    &message,
	}
	if err := s.changes.MarkReviewed(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAlreadyProcessed
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update change request")
	}

	if s.metrics != nil {
		s.metrics.RecordReview(models.ChangeRequestRejected)
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &reviewerID,
		Action:     models.AuditActionChangeReject,
		Resource:   change.TableName,
		ResourceID: &change.ID,
	})

	return &models.ApprovalOutcome{
		ChangeRequestID: change.ID,
		Status:          models.ChangeRequestRejected,
		Message:         message,
	}, nil
}

// Get loads a change request by id.
func (s *ApprovalService) Get(ctx context.Context, changeID string) (*models.ChangeRequest, error) {
	change, err := s.changes.GetByID(ctx, changeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "change request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load change request")
	}
	return change, nil
}

// ListPending returns change requests still awaiting review.
func (s *ApprovalService) ListPending(ctx context.Context, limit, offset int) ([]models.ChangeRequest, error) {
	changes, err := s.changes.List(ctx, models.ChangeRequestFilter{
		Status: []models.ChangeRequestStatus{models.ChangeRequestPending},
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending changes")
	}
	return changes, nil
}

// ListHistory returns processed change requests, most recently reviewed first.
func (s *ApprovalService) ListHistory(ctx context.Context, limit, offset int) ([]models.ChangeRequest, error) {
	changes, err := s.changes.ListHistory(ctx, limit, offset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list change history")
	}
	return changes, nil
}

func (s *ApprovalService) validateSubmission(req dto.SubmitChangeRequest) error {
	if req.Environment == "" {
		return appErrors.Clone(appErrors.ErrValidation, "environment is required")
	}
	if s.envs != nil && !s.envs.Has(req.Environment) {
		return appErrors.Clone(appErrors.ErrUnknownEnvironment, "unknown environment: "+req.Environment)
	}
	if !identifierPattern.MatchString(req.TableName) {
		return appErrors.Clone(appErrors.ErrValidation, "table_name must contain only letters, digits, and underscores")
	}
	if len(req.NewData) > 0 && !json.Valid(req.NewData) {
		return appErrors.Clone(appErrors.ErrValidation, "new_data must be valid JSON")
	}

	switch req.Operation {
	case models.OperationCreate:
		if req.RecordID != "" {
			return appErrors.Clone(appErrors.ErrValidation, "record_id must not be set for CREATE")
		}
		if len(req.NewData) == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "new_data is required for CREATE")
		}
	case models.OperationUpdate:
		if req.RecordID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "record_id is required for UPDATE")
		}
		if len(req.NewData) == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "new_data is required for UPDATE")
		}
	case models.OperationDelete:
		if req.RecordID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "record_id is required for DELETE")
		}
	default:
		return appErrors.Clone(appErrors.ErrValidation, "operation must be CREATE, UPDATE, or DELETE")
	}
	return nil
}

// captureOldData fetches the record's current state. Fetch failures degrade
// to an id-only placeholder so a flaky environment cannot block submission.
func (s *ApprovalService) captureOldData(ctx context.Context, req dto.SubmitChangeRequest) []byte {
	placeholder := []byte(`{"id":` + mustJSON(req.RecordID) + `}`)
	if s.fetcher == nil {
		return placeholder
	}
	record, err := s.fetcher.FetchRecord(ctx, req.Environment, req.TableName, req.RecordID)
	if err != nil {
		s.logger.Warn("old data capture failed, storing placeholder",
			zap.String("environment", req.Environment),
			zap.String("table", req.TableName),
			zap.String("record_id", req.RecordID),
			zap.Error(err),
		)
		return placeholder
	}
	data, err := json.Marshal(record)
	if err != nil {
		return placeholder
	}
	return data
}

func (s *ApprovalService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "approval-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func mustJSON(value string) string {
	data, err := json.Marshal(value)
	if err != nil {
		return `""`
	}
	return string(data)
}
