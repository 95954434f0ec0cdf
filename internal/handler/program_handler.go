package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/alumniportal/mentoring-api/internal/middleware"
	"github.com/alumniportal/mentoring-api/internal/models"
	"github.com/alumniportal/mentoring-api/internal/service"
	"github.com/alumniportal/mentoring-api/pkg/response"
)

// ProgramHandler exposes mentoring program endpoints.
type ProgramHandler struct {
	programs *service.ProgramService
}

// NewProgramHandler constructs ProgramHandler.
func NewProgramHandler(programs *service.ProgramService) *ProgramHandler {
	return &ProgramHandler{programs: programs}
}

// List godoc
// @Summary List mentoring programs
// @Tags Programs
// @Produce json
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /programs [get]
func (h *ProgramHandler) List(c *gin.Context) {
	var filter models.ProgramFilter
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	if claimsValue, ok := c.Get(middleware.ContextUserKey); ok {
		if claims, ok := claimsValue.(*models.JWTClaims); ok {
			filter.TenantID = claims.TenantID
		}
	}

	programs, pagination, err := h.programs.ListPrograms(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, programs, pagination)
}

// Get godoc
// @Summary Get a mentoring program
// @Tags Programs
// @Produce json
// @Param programId path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /programs/{programId} [get]
func (h *ProgramHandler) Get(c *gin.Context) {
	program, err := h.programs.GetProgram(c.Request.Context(), c.Param("programId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, program, nil)
}
