package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/admin-db/dbadmin-api/internal/models"
	appErrors "github.com/admin-db/dbadmin-api/pkg/errors"
	"github.com/admin-db/dbadmin-api/pkg/response"
)

type tableService interface {
	ListTables(ctx context.Context, environment string) ([]string, error)
	Schema(ctx context.Context, environment, tableName string) (*models.TableInfo, error)
	Data(ctx context.Context, environment, tableName string, limit, offset int) (*models.TableData, error)
}

// TableHandler exposes table browsing endpoints against the caller's active
// environment. A query parameter can override the stored selection per call.
type TableHandler struct {
	service tableService
	envs    environmentService
}

// NewTableHandler constructs the handler.
func NewTableHandler(service tableService, envs environmentService) *TableHandler {
	return &TableHandler{service: service, envs: envs}
}

// List godoc
// @Summary List tables in the active environment
// @Tags Tables
// @Produce json
// @Security BearerAuth
// @Param environment query string false "Environment override"
// @Success 200 {object} response.Envelope
// @Router /tables [get]
func (h *TableHandler) List(c *gin.Context) {
	environment, ok := h.resolveEnvironment(c)
	if !ok {
		return
	}
	tables, err := h.service.ListTables(c.Request.Context(), environment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"environment": environment, "tables": tables}, nil)
}

// Schema godoc
// @Summary Describe a table's columns
// @Tags Tables
// @Produce json
// @Security BearerAuth
// @Param table path string true "Table name"
// @Param environment query string false "Environment override"
// @Success 200 {object} response.Envelope
// @Router /tables/{table}/schema [get]
func (h *TableHandler) Schema(c *gin.Context) {
	environment, ok := h.resolveEnvironment(c)
	if !ok {
		return
	}
	info, err := h.service.Schema(c.Request.Context(), environment, c.Param("table"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info, nil)
}

// Data godoc
// @Summary Browse rows of a table
// @Tags Tables
// @Produce json
// @Security BearerAuth
// @Param table path string true "Table name"
// @Param environment query string false "Environment override"
// @Param limit query int false "Page size"
// @Param offset query int false "Row offset"
// @Success 200 {object} response.Envelope
// @Router /tables/{table}/data [get]
func (h *TableHandler) Data(c *gin.Context) {
	environment, ok := h.resolveEnvironment(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	data, err := h.service.Data(c.Request.Context(), environment, c.Param("table"), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"environment": environment, "data": data}, nil)
}

func (h *TableHandler) resolveEnvironment(c *gin.Context) (string, bool) {
	if override := c.Query("environment"); override != "" {
		return override, true
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	environment, err := h.envs.Current(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return "", false
	}
	return environment, true
}
