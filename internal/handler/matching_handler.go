package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/alumniportal/mentoring-api/internal/dto"
	"github.com/alumniportal/mentoring-api/internal/middleware"
	"github.com/alumniportal/mentoring-api/internal/models"
	"github.com/alumniportal/mentoring-api/internal/service"
	appErrors "github.com/alumniportal/mentoring-api/pkg/errors"
	"github.com/alumniportal/mentoring-api/pkg/response"
)

// MatchingHandler exposes the matching engine and match lifecycle endpoints.
type MatchingHandler struct {
	matching   *service.MatchingService
	lifecycle  *service.LifecycleService
	statistics *service.StatisticsService
	exports    *service.ExportService
}

// NewMatchingHandler constructs MatchingHandler.
func NewMatchingHandler(
	matching *service.MatchingService,
	lifecycle *service.LifecycleService,
	statistics *service.StatisticsService,
	exports *service.ExportService,
) *MatchingHandler {
	return &MatchingHandler{
		matching:   matching,
		lifecycle:  lifecycle,
		statistics: statistics,
		exports:    exports,
	}
}

// Initiate godoc
// @Summary Run the matching engine for a program
// @Tags Matching
// @Produce json
// @Param programId path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /programs/{programId}/matching/initiate [post]
func (h *MatchingHandler) Initiate(c *gin.Context) {
	result, err := h.matching.RunMatching(c.Request.Context(), c.Param("programId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CreateManual godoc
// @Summary Create a manual match
// @Tags Matching
// @Accept json
// @Produce json
// @Param programId path string true "Program ID"
// @Param payload body dto.ManualMatchRequest true "Manual match payload"
// @Success 201 {object} response.Envelope
// @Router /programs/{programId}/matching/manual [post]
func (h *MatchingHandler) CreateManual(c *gin.Context) {
	var req dto.ManualMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	match, err := h.matching.CreateManualMatch(c.Request.Context(), c.Param("programId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, match)
}

// ListMatches godoc
// @Summary List matches for a program
// @Tags Matching
// @Produce json
// @Param programId path string true "Program ID"
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by match type"
// @Param mentorUserId query string false "Filter by mentor"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /programs/{programId}/matches [get]
func (h *MatchingHandler) ListMatches(c *gin.Context) {
	filter := models.MatchFilter{
		ProgramID:    c.Param("programId"),
		Status:       models.MatchStatus(strings.ToUpper(c.Query("status"))),
		MatchType:    models.MatchType(strings.ToUpper(c.Query("type"))),
		MentorUserID: c.Query("mentorUserId"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	matches, pagination, err := h.matching.ListMatches(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, matches, pagination)
}

// ListUnmatched godoc
// @Summary List approved mentees without an active match
// @Tags Matching
// @Produce json
// @Param programId path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /programs/{programId}/matching/unmatched [get]
func (h *MatchingHandler) ListUnmatched(c *gin.Context) {
	mentees, err := h.matching.ListUnmatched(c.Request.Context(), c.Param("programId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mentees, nil)
}

// Statistics godoc
// @Summary Matching statistics for a program
// @Tags Matching
// @Produce json
// @Param programId path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /programs/{programId}/matching/statistics [get]
func (h *MatchingHandler) Statistics(c *gin.Context) {
	stats, err := h.statistics.GetStatistics(c.Request.Context(), c.Param("programId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Respond godoc
// @Summary Record a mentor's response to a pending match
// @Tags Matching
// @Accept json
// @Produce json
// @Param id path string true "Match ID"
// @Param payload body dto.RespondRequest true "Response payload"
// @Success 200 {object} response.Envelope
// @Router /matches/{id}/respond [post]
func (h *MatchingHandler) Respond(c *gin.Context) {
	var req dto.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	mentorUserID := ""
	if claimsValue, ok := c.Get(middleware.ContextUserKey); ok {
		if claims, ok := claimsValue.(*models.JWTClaims); ok && claims.Role == models.RoleMentor {
			// Admins may respond on a mentor's behalf; mentors only on their own.
			mentorUserID = claims.UserID
		}
	}

	match, err := h.lifecycle.Respond(c.Request.Context(), c.Param("id"), mentorUserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, match, nil)
}

// Sweep godoc
// @Summary Auto-reject pending matches whose acceptance window elapsed
// @Tags Matching
// @Produce json
// @Param programId path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /programs/{programId}/matching/sweep [post]
func (h *MatchingHandler) Sweep(c *gin.Context) {
	programID := c.Param("programId")
	result, err := h.lifecycle.SweepExpiredMatches(c.Request.Context(), &programID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Export a program's matches as CSV or PDF
// @Tags Matching
// @Produce text/csv
// @Produce application/pdf
// @Param programId path string true "Program ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} byte
// @Router /programs/{programId}/matches/export [get]
func (h *MatchingHandler) Export(c *gin.Context) {
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	result, err := h.exports.ExportMatches(c.Request.Context(), c.Param("programId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
