package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-registration-api/internal/middleware"
	"github.com/noah-isme/course-registration-api/internal/models"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
	"github.com/noah-isme/course-registration-api/pkg/response"
)

// sessionFromContext returns the caller session or writes a 401.
func sessionFromContext(c *gin.Context) (models.Session, bool) {
	session, ok := middleware.Session(c)
	if !ok || session.UserID == 0 {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Session{}, false
	}
	return session, true
}
