package handler

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/admin-db/dbadmin-api/internal/dto"
	"github.com/admin-db/dbadmin-api/internal/models"
	appErrors "github.com/admin-db/dbadmin-api/pkg/errors"
	"github.com/admin-db/dbadmin-api/pkg/response"
)

type changeSubmitter interface {
	Submit(ctx context.Context, req dto.SubmitChangeRequest, userID string) (*models.ChangeRequest, error)
}

// RecordHandler stages record mutations. Nothing here writes to the target
// environment directly: every endpoint produces a PENDING change request that
// an admin must approve before the mutation runs.
type RecordHandler struct {
	service changeSubmitter
	envs    environmentService
}

// NewRecordHandler constructs the handler.
func NewRecordHandler(service changeSubmitter, envs environmentService) *RecordHandler {
	return &RecordHandler{service: service, envs: envs}
}

// Create godoc
// @Summary Stage a record creation
// @Tags Records
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param table path string true "Table name"
// @Param payload body dto.RecordPayload true "Column values"
// @Success 201 {object} response.Envelope
// @Router /tables/{table}/records [post]
func (h *RecordHandler) Create(c *gin.Context) {
	h.stage(c, models.OperationCreate, "")
}

// Update godoc
// @Summary Stage a record update
// @Tags Records
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param table path string true "Table name"
// @Param id path string true "Record ID"
// @Param payload body dto.RecordPayload true "Column values"
// @Success 201 {object} response.Envelope
// @Router /tables/{table}/records/{id} [put]
func (h *RecordHandler) Update(c *gin.Context) {
	h.stage(c, models.OperationUpdate, c.Param("id"))
}

// Delete godoc
// @Summary Stage a record deletion
// @Tags Records
// @Produce json
// @Security BearerAuth
// @Param table path string true "Table name"
// @Param id path string true "Record ID"
// @Success 201 {object} response.Envelope
// @Router /tables/{table}/records/{id} [delete]
func (h *RecordHandler) Delete(c *gin.Context) {
	h.stage(c, models.OperationDelete, c.Param("id"))
}

func (h *RecordHandler) stage(c *gin.Context, operation models.Operation, recordID string) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var newData json.RawMessage
	if operation != models.OperationDelete {
		var payload dto.RecordPayload
		if err := c.ShouldBindJSON(&payload); err != nil || len(payload) == 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "request body must be a non-empty JSON object"))
			return
		}
		encoded, err := json.Marshal(payload)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
			return
		}
		newData = encoded
	}

	environment := c.Query("environment")
	if environment == "" {
		current, err := h.envs.Current(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		environment = current
	}

	change, err := h.service.Submit(c.Request.Context(), dto.SubmitChangeRequest{
		Environment: environment,
		TableName:   c.Param("table"),
		Operation:   operation,
		RecordID:    recordID,
		NewData:     newData,
	}, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, change)
}
