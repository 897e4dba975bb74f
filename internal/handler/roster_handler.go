package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/service"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
	"github.com/noah-isme/course-registration-api/pkg/export"
	"github.com/noah-isme/course-registration-api/pkg/response"
)

type rosterService interface {
	RosterFor(ctx context.Context, courseCode string) ([]models.EnrollmentDetail, error)
	EnrollmentCountFor(ctx context.Context, courseCode string) (int, error)
	AllActiveRegistrations(ctx context.Context) ([]models.EnrollmentDetail, error)
	History(ctx context.Context, filter models.HistoryFilter) ([]models.EnrollmentDetail, error)
	ExportRoster(ctx context.Context, courseCode string, format export.Format) (*service.RosterExport, error)
}

// RosterHandler exposes the admin read views.
type RosterHandler struct {
	roster rosterService
}

// NewRosterHandler constructs RosterHandler.
func NewRosterHandler(roster rosterService) *RosterHandler {
	return &RosterHandler{roster: roster}
}

// AllActive godoc
// @Summary List every active registration
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/registrations [get]
func (h *RosterHandler) AllActive(c *gin.Context) {
	details, err := h.roster.AllActiveRegistrations(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, map[string]interface{}{"total": len(details)})
}

// History godoc
// @Summary Registration history including cancellations
// @Tags Admin
// @Produce json
// @Param course query string false "Course code"
// @Param userId query int false "User id"
// @Success 200 {object} response.Envelope
// @Router /admin/registrations/history [get]
func (h *RosterHandler) History(c *gin.Context) {
	filter := models.HistoryFilter{CourseCode: c.Query("course")}
	if raw := c.Query("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid userId"))
			return
		}
		filter.UserID = id
	}
	details, err := h.roster.History(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, map[string]interface{}{"total": len(details)})
}

// Roster godoc
// @Summary Course roster
// @Tags Admin
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Router /admin/courses/{code}/roster [get]
func (h *RosterHandler) Roster(c *gin.Context) {
	details, err := h.roster.RosterFor(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, map[string]interface{}{"total": len(details)})
}

// Count godoc
// @Summary Course enrollment count
// @Tags Admin
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Router /admin/courses/{code}/count [get]
func (h *RosterHandler) Count(c *gin.Context) {
	code := c.Param("code")
	total, err := h.roster.EnrollmentCountFor(c.Request.Context(), code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"course_code": code, "count": total}, nil)
}

// Export godoc
// @Summary Download a course roster
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Param code path string true "Course code"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /admin/courses/{code}/roster/export [get]
func (h *RosterHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid format"))
		return
	}
	file, err := h.roster.ExportRoster(c.Request.Context(), c.Param("code"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
