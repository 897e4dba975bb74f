package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
	"github.com/noah-isme/course-registration-api/pkg/response"
)

// RequireAdmin lets through only sessions carrying the admin flag.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := Session(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !session.IsAdmin {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
