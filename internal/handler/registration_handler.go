package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-registration-api/internal/models"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
	"github.com/noah-isme/course-registration-api/pkg/response"
)

type enrollmentService interface {
	Register(ctx context.Context, userID int64, courseCode string) (*models.Registration, error)
	Cancel(ctx context.Context, userID int64, courseCode string) (*models.Registration, error)
	IsRegistered(ctx context.Context, userID int64, courseCode string) (bool, error)
}

type userRegistrations interface {
	RegistrationsFor(ctx context.Context, userID int64) ([]models.EnrollmentDetail, error)
}

// RegisterRequest is the body of a registration call.
type RegisterRequest struct {
	CourseCode string `json:"course_code" binding:"required"`
}

// RegistrationHandler exposes the caller's own registrations.
type RegistrationHandler struct {
	enrollments enrollmentService
	roster      userRegistrations
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(enrollments enrollmentService, roster userRegistrations) *RegistrationHandler {
	return &RegistrationHandler{enrollments: enrollments, roster: roster}
}

// Register godoc
// @Summary Register for a course
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body RegisterRequest true "Course code"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	reg, err := h.enrollments.Register(c.Request.Context(), session.UserID, req.CourseCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reg)
}

// Cancel godoc
// @Summary Cancel a registration
// @Tags Registrations
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations/{code} [delete]
func (h *RegistrationHandler) Cancel(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	reg, err := h.enrollments.Cancel(c.Request.Context(), session.UserID, c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

// Status godoc
// @Summary Check registration status for a course
// @Tags Registrations
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Router /registrations/{code}/status [get]
func (h *RegistrationHandler) Status(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	code := c.Param("code")
	registered, err := h.enrollments.IsRegistered(c.Request.Context(), session.UserID, code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"course_code": code, "registered": registered}, nil)
}

// Mine godoc
// @Summary List my active registrations
// @Tags Registrations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/registrations [get]
func (h *RegistrationHandler) Mine(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	details, err := h.roster.RegistrationsFor(c.Request.Context(), session.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, map[string]interface{}{"total": len(details)})
}
