package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-registration-api/internal/middleware"
)

// Handlers groups every HTTP handler mounted by RegisterRoutes.
type Handlers struct {
	Auth          *AuthHandler
	Courses       *CourseHandler
	Registrations *RegistrationHandler
	Roster        *RosterHandler
	Users         *UserHandler
	Metrics       *MetricsHandler
}

// RegisterRoutes mounts the API under prefix and the probes at the root.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, tokens middleware.TokenValidator) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	api.POST("/auth/login", h.Auth.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(tokens))
	authed.GET("/courses", h.Courses.List)
	authed.GET("/me", h.Users.Me)
	authed.GET("/me/registrations", h.Registrations.Mine)
	authed.POST("/registrations", h.Registrations.Register)
	authed.DELETE("/registrations/:code", h.Registrations.Cancel)
	authed.GET("/registrations/:code/status", h.Registrations.Status)

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.GET("/registrations", h.Roster.AllActive)
	admin.GET("/registrations/history", h.Roster.History)
	admin.POST("/courses", h.Courses.Create)
	admin.DELETE("/courses/:code", h.Courses.Deactivate)
	admin.GET("/courses/:code/roster", h.Roster.Roster)
	admin.GET("/courses/:code/count", h.Roster.Count)
	admin.GET("/courses/:code/roster/export", h.Roster.Export)
	admin.POST("/users", h.Users.Create)
	admin.GET("/users/:studentId", h.Users.Get)
}
