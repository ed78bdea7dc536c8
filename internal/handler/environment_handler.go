package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/admin-db/dbadmin-api/internal/dto"
	appErrors "github.com/admin-db/dbadmin-api/pkg/errors"
	"github.com/admin-db/dbadmin-api/pkg/response"
)

type environmentService interface {
	Names() []string
	Current(ctx context.Context, userID string) (string, error)
	Switch(ctx context.Context, userID, environment string) error
}

// EnvironmentHandler exposes environment listing and selection endpoints.
type EnvironmentHandler struct {
	service environmentService
}

// NewEnvironmentHandler constructs the handler.
func NewEnvironmentHandler(service environmentService) *EnvironmentHandler {
	return &EnvironmentHandler{service: service}
}

// List godoc
// @Summary List configured environments
// @Tags Environments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /environments [get]
func (h *EnvironmentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	current, err := h.service.Current(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"environments": h.service.Names(),
		"current":      current,
	}, nil)
}

// Current godoc
// @Summary Get the caller's active environment
// @Tags Environments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /environments/current [get]
func (h *EnvironmentHandler) Current(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	current, err := h.service.Current(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"current": current}, nil)
}

// Switch godoc
// @Summary Switch the caller's active environment
// @Tags Environments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.SwitchEnvironmentRequest true "Target environment"
// @Success 200 {object} response.Envelope
// @Router /environments/switch [post]
func (h *EnvironmentHandler) Switch(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SwitchEnvironmentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Environment == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "environment is required"))
		return
	}
	if err := h.service.Switch(c.Request.Context(), claims.UserID, req.Environment); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"current": req.Environment}, nil)
}
