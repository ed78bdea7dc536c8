package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/admin-db/dbadmin-api/internal/models"
	appErrors "github.com/admin-db/dbadmin-api/pkg/errors"
	"github.com/admin-db/dbadmin-api/pkg/response"
)

type snapshotService interface {
	List(ctx context.Context, filter models.SnapshotFilter) ([]models.SnapshotSummary, error)
	Get(ctx context.Context, id string) (*models.SnapshotDetail, error)
	ByChangeRequest(ctx context.Context, changeRequestID string) ([]models.SnapshotSummary, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.SnapshotStats, error)
	Export(ctx context.Context, id, format string) ([]byte, string, error)
}

type snapshotAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// SnapshotHandler exposes snapshot browsing and cleanup endpoints.
type SnapshotHandler struct {
	service snapshotService
	audit   snapshotAuditor
}

// NewSnapshotHandler constructs the handler.
func NewSnapshotHandler(service snapshotService, audit snapshotAuditor) *SnapshotHandler {
	return &SnapshotHandler{service: service, audit: audit}
}

// List godoc
// @Summary List snapshot summaries
// @Tags Snapshots
// @Produce json
// @Security BearerAuth
// @Param environment query string false "Environment filter"
// @Param table query string false "Table filter"
// @Success 200 {object} response.Envelope
// @Router /snapshots [get]
func (h *SnapshotHandler) List(c *gin.Context) {
	filter := models.SnapshotFilter{
		Environment: c.Query("environment"),
		TableName:   c.Query("table"),
	}
	snapshots, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshots, nil)
}

// Get godoc
// @Summary Get a snapshot with its captured rows
// @Tags Snapshots
// @Produce json
// @Security BearerAuth
// @Param id path string true "Snapshot ID"
// @Success 200 {object} response.Envelope
// @Router /snapshots/{id} [get]
func (h *SnapshotHandler) Get(c *gin.Context) {
	snapshot, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// ByChangeRequest godoc
// @Summary List snapshots captured for a change request
// @Tags Snapshots
// @Produce json
// @Security BearerAuth
// @Param id path string true "Change request ID"
// @Success 200 {object} response.Envelope
// @Router /snapshots/by-change-request/{id} [get]
func (h *SnapshotHandler) ByChangeRequest(c *gin.Context) {
	snapshots, err := h.service.ByChangeRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshots, nil)
}

// Delete godoc
// @Summary Delete a snapshot
// @Tags Snapshots
// @Produce json
// @Security BearerAuth
// @Param id path string true "Snapshot ID"
// @Success 204
// @Router /snapshots/{id} [delete]
func (h *SnapshotHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	if h.audit != nil {
		_ = h.audit.CreateAuditLog(c.Request.Context(), &models.AuditLog{
			UserID:     &claims.UserID,
			Action:     models.AuditActionSnapshotDelete,
			Resource:   "snapshots",
			ResourceID: &id,
			IPAddress:  c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
		})
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Aggregate snapshot statistics
// @Tags Snapshots
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /snapshots/stats [get]
func (h *SnapshotHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Export a snapshot as CSV or PDF
// @Tags Snapshots
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Snapshot ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /snapshots/{id}/export [get]
func (h *SnapshotHandler) Export(c *gin.Context) {
	id := c.Param("id")
	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.service.Export(c.Request.Context(), id, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	extension := "csv"
	if contentType == "application/pdf" {
		extension = "pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="snapshot-%s.%s"`, id, extension))
	c.Data(http.StatusOK, contentType, payload)
}
