package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admin-db/dbadmin-api/internal/dto"
	"github.com/admin-db/dbadmin-api/internal/middleware"
	"github.com/admin-db/dbadmin-api/internal/models"
	appErrors "github.com/admin-db/dbadmin-api/pkg/errors"
)

type approvalServiceMock struct {
	submitResp  *models.ChangeRequest
	submitErr   error
	outcome     *models.ApprovalOutcome
	approveErr  error
	rejectErr   error
	pending     []models.ChangeRequest
	lastLimit   int
	lastOffset  int
	submitCall  bool
	approveCall bool
	rejectCall  bool
}

func (m *approvalServiceMock) Submit(ctx context.Context, req dto.SubmitChangeRequest, userID string) (*models.ChangeRequest, error) {
	m.submitCall = true
	return m.submitResp, m.submitErr
}

func (m *approvalServiceMock) Approve(ctx context.Context, changeID, reviewerID string) (*models.ApprovalOutcome, error) {
	m.approveCall = true
	return m.outcome, m.approveErr
}

func (m *approvalServiceMock) Reject(ctx context.Context, changeID, reviewerID string) (*models.ApprovalOutcome, error) {
	m.rejectCall = true
	return m.outcome, m.rejectErr
}

func (m *approvalServiceMock) Get(ctx context.Context, changeID string) (*models.ChangeRequest, error) {
	return m.submitResp, m.submitErr
}

func (m *approvalServiceMock) ListPending(ctx context.Context, limit, offset int) ([]models.ChangeRequest, error) {
	m.lastLimit = limit
	m.lastOffset = offset
	return m.pending, nil
}

func (m *approvalServiceMock) ListHistory(ctx context.Context, limit, offset int) ([]models.ChangeRequest, error) {
	m.lastLimit = limit
	m.lastOffset = offset
	return m.pending, nil
}

func adminContext(w *httptest.ResponseRecorder) (*gin.Context, *gin.Engine) {
	c, r := gin.CreateTestContext(w)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	return c, r
}

func TestChangeRequestHandlerApproveApplyFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &approvalServiceMock{
		outcome: &models.ApprovalOutcome{
			ChangeRequestID: "cr-1",
			Status:          models.ChangeRequestRejected,
			Message:         "failed to apply change: duplicate key value violates unique constraint",
			SnapshotID:      "snap-1",
		},
	}
	handler := NewChangeRequestHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := adminContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/changes/cr-1/approve", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "cr-1"}}

	handler.Approve(c)
	require.Equal(t, http.StatusOK, w.Code, "a failed apply is still a resolved review")

	var envelope struct {
		Data models.ApprovalOutcome `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, models.ChangeRequestRejected, envelope.Data.Status)
	assert.Contains(t, envelope.Data.Message, "failed to apply change")
	assert.Equal(t, "snap-1", envelope.Data.SnapshotID)
}

func TestChangeRequestHandlerApproveAlreadyProcessed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &approvalServiceMock{approveErr: appErrors.ErrAlreadyProcessed}
	handler := NewChangeRequestHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := adminContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/changes/cr-1/approve", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "cr-1"}}

	handler.Approve(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestChangeRequestHandlerApproveMissingClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &approvalServiceMock{}
	handler := NewChangeRequestHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/changes/cr-1/approve", nil)
	c.Request = req

	handler.Approve(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, mockSvc.approveCall)
}

func TestChangeRequestHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &approvalServiceMock{
		submitResp: &models.ChangeRequest{ID: "cr-1", Status: models.ChangeRequestPending},
	}
	handler := NewChangeRequestHandler(mockSvc)

	body := `{"environment":"prod","table_name":"orders","operation":"CREATE","new_data":{"status":"NEW"}}`
	w := httptest.NewRecorder()
	c, _ := adminContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/changes", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.submitCall)
}

func TestChangeRequestHandlerSubmitInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &approvalServiceMock{}
	handler := NewChangeRequestHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := adminContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/changes", bytes.NewBufferString(`{"environment":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.submitCall)
}

func TestChangeRequestHandlerListPendingPageParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &approvalServiceMock{pending: []models.ChangeRequest{{ID: "cr-1"}}}
	handler := NewChangeRequestHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := adminContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/changes/pending?limit=10&offset=20", nil)
	c.Request = req

	handler.ListPending(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, mockSvc.lastLimit)
	assert.Equal(t, 20, mockSvc.lastOffset)
}
