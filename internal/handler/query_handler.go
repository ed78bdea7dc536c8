package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/admin-db/dbadmin-api/internal/dto"
	"github.com/admin-db/dbadmin-api/internal/models"
	appErrors "github.com/admin-db/dbadmin-api/pkg/errors"
	"github.com/admin-db/dbadmin-api/pkg/response"
)

type queryService interface {
	QueriesForTable(tableName string) []models.PredefinedQuery
	Execute(ctx context.Context, environment, tableName, queryID string, params map[string]interface{}, userID string) (*models.QueryResult, error)
}

// QueryHandler exposes the predefined query catalog.
type QueryHandler struct {
	service queryService
	envs    environmentService
}

// NewQueryHandler constructs the handler.
func NewQueryHandler(service queryService, envs environmentService) *QueryHandler {
	return &QueryHandler{service: service, envs: envs}
}

// List godoc
// @Summary List predefined queries for a table
// @Tags Queries
// @Produce json
// @Security BearerAuth
// @Param table path string true "Table name"
// @Success 200 {object} response.Envelope
// @Router /tables/{table}/queries [get]
func (h *QueryHandler) List(c *gin.Context) {
	queries := h.service.QueriesForTable(c.Param("table"))
	response.JSON(c, http.StatusOK, queries, nil)
}

// Execute godoc
// @Summary Execute a predefined query
// @Tags Queries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param table path string true "Table name"
// @Param queryId path string true "Query ID"
// @Param payload body dto.ExecuteQueryRequest true "Parameter values"
// @Success 200 {object} response.Envelope
// @Router /tables/{table}/queries/{queryId}/execute [post]
func (h *QueryHandler) Execute(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ExecuteQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query payload"))
		return
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

	result, err := h.service.Execute(c.Request.Context(), environment, c.Param("table"), c.Param("queryId"), req.Parameters, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
