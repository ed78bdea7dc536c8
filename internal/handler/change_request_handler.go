package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/admin-db/dbadmin-api/internal/dto"
	"github.com/admin-db/dbadmin-api/internal/models"
	appErrors "github.com/admin-db/dbadmin-api/pkg/errors"
	"github.com/admin-db/dbadmin-api/pkg/response"
)

type approvalService interface {
	Submit(ctx context.Context, req dto.SubmitChangeRequest, userID string) (*models.ChangeRequest, error)
	Approve(ctx context.Context, changeID, reviewerID string) (*models.ApprovalOutcome, error)
	Reject(ctx context.Context, changeID, reviewerID string) (*models.ApprovalOutcome, error)
	Get(ctx context.Context, changeID string) (*models.ChangeRequest, error)
	ListPending(ctx context.Context, limit, offset int) ([]models.ChangeRequest, error)
	ListHistory(ctx context.Context, limit, offset int) ([]models.ChangeRequest, error)
}

// ChangeRequestHandler exposes the change request review workflow.
type ChangeRequestHandler struct {
	service approvalService
}

// NewChangeRequestHandler constructs the handler.
func NewChangeRequestHandler(service approvalService) *ChangeRequestHandler {
	return &ChangeRequestHandler{service: service}
}

// Submit godoc
// @Summary Submit a change request
// @Tags Changes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.SubmitChangeRequest true "Change request payload"
// @Success 201 {object} response.Envelope
// @Router /changes [post]
func (h *ChangeRequestHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid change request payload"))
		return
	}
	change, err := h.service.Submit(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, change)
}

// ListPending godoc
// @Summary List pending change requests
// @Tags Changes
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Row offset"
// @Success 200 {object} response.Envelope
// @Router /changes/pending [get]
func (h *ChangeRequestHandler) ListPending(c *gin.Context) {
	limit, offset := pageParams(c)
	changes, err := h.service.ListPending(c.Request.Context(), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, changes, nil)
}

// ListHistory godoc
// @Summary List processed change requests
// @Tags Changes
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Row offset"
// @Success 200 {object} response.Envelope
// @Router /changes/history [get]
func (h *ChangeRequestHandler) ListHistory(c *gin.Context) {
	limit, offset := pageParams(c)
	changes, err := h.service.ListHistory(c.Request.Context(), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, changes, nil)
}

// Get godoc
// @Summary Get change request detail
// @Tags Changes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Change request ID"
// @Success 200 {object} response.Envelope
// @Router /changes/{id} [get]
func (h *ChangeRequestHandler) Get(c *gin.Context) {
	change, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, change, nil)
}

// Approve godoc
// @Summary Approve a pending change request
// @Tags Changes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Change request ID"
// @Success 200 {object} response.Envelope
// @Router /changes/{id}/approve [post]
func (h *ChangeRequestHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	// An apply failure is a terminal REJECTED outcome, not an HTTP error.
	outcome, err := h.service.Approve(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

// Reject godoc
// @Summary Reject a pending change request
// @Tags Changes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Change request ID"
// @Success 200 {object} response.Envelope
// @Router /changes/{id}/reject [post]
func (h *ChangeRequestHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	outcome, err := h.service.Reject(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

func pageParams(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}
