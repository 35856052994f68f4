// Package routes mounts the HTTP surface on a gin engine.
package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/tuition-center-api/internal/handler"
	"github.com/noah-isme/tuition-center-api/internal/middleware"
	"github.com/noah-isme/tuition-center-api/internal/models"
)

// Handlers bundles every endpoint group. Nil groups are not mounted.
type Handlers struct {
	Auth       *handler.AuthHandler
	Users      *handler.UserHandler
	Subjects   *handler.SubjectHandler
	Timeslots  *handler.TimeslotHandler
	Enrollment *handler.EnrollmentHandler
	Students   *handler.StudentHandler
	Timetable  *handler.TimetableHandler
	Finance    *handler.FinanceHandler
	Dashboard  *handler.DashboardHandler
	Metrics    *handler.MetricsHandler
}

// Options carries the cross-cutting collaborators of the API group.
type Options struct {
	Prefix     string
	Tokens     middleware.TokenValidator
	CookieName string
	Audit      middleware.AuditRecorder
	Logger     *zap.Logger
}

// Register mounts operational endpoints at the root and the API under opts.Prefix.
func Register(r *gin.Engine, h Handlers, opts Options) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/ready", h.Metrics.Ready)
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	api := r.Group(opts.Prefix)
	api.Use(middleware.WithResponseMeta())

	if h.Auth != nil {
		auth := api.Group("/auth")
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)

		session := auth.Group("")
		session.Use(middleware.JWT(opts.Tokens, opts.CookieName))
		session.POST("/logout", h.Auth.Logout)
		session.GET("/me", h.Auth.Me)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(opts.Tokens, opts.CookieName))
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff)
	admin := middleware.RequireRoles(models.RoleAdmin)

	if h.Users != nil {
		users := secured.Group("/users")
		users.GET("", admin, h.Users.List)
		users.POST("", admin, h.Users.Create)
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.AllowSelf), h.Users.Get)
		users.PATCH("/:id", admin, h.Users.Update)
		users.PATCH("/:id/password", middleware.RBAC(string(models.RoleAdmin), middleware.AllowSelf), h.Users.ChangePassword)
		users.DELETE("/:id", admin, h.Users.Delete)
	}

	subjects := secured.Group("/subjects", staff)
	if h.Subjects != nil {
		subjects.GET("", h.Subjects.List)
		subjects.POST("", h.Subjects.Create)
		subjects.GET("/:code", h.Subjects.Get)
		subjects.PUT("/:code", h.Subjects.Update)
		subjects.DELETE("/:code", h.Subjects.Delete)
	}
	if h.Timeslots != nil {
		subjects.GET("/:code/timeslots", h.Timeslots.ListForSubject)
		subjects.POST("/:code/timeslots", h.Timeslots.Replace)
		subjects.DELETE("/:code/timeslots/:timeslotId", h.Timeslots.Delete)
		secured.GET("/timeslots/students/:studentId", staff, h.Timeslots.ListForStudent)
	}
	if h.Enrollment != nil {
		enrollAudit := middleware.Audit(opts.Audit, opts.Logger, models.AuditActionEnrollment, "subject", "code")
		subjects.POST("/:code/students", enrollAudit, h.Enrollment.Enroll)
		subjects.DELETE("/:code/students/:studentId", enrollAudit, h.Enrollment.Unenroll)
		subjects.GET("/:code/available-students", h.Enrollment.Available)
		secured.PUT("/students/:id/subjects", staff,
			middleware.Audit(opts.Audit, opts.Logger, models.AuditActionEnrollment, "student", "id"),
			h.Enrollment.ReplaceSubjects)
	}

	if h.Students != nil {
		students := secured.Group("/students", staff)
		students.GET("", h.Students.List)
		students.POST("", h.Students.Create)
		students.GET("/:id", h.Students.Get)
		students.PATCH("/:id", h.Students.Update)
		students.DELETE("/:id", h.Students.Delete)
	}

	if h.Timetable != nil {
		tt := secured.Group("/timetable", staff)
		tt.GET("/master", h.Timetable.Master)
		tt.GET("/one-to-one", h.Timetable.OneToOne)
		tt.GET("/students/:id", h.Timetable.ForStudent)
		tt.GET("/subjects/:code", h.Timetable.ForSubject)
		tt.GET("/legend", h.Timetable.Legend)
		tt.GET("/export", h.Timetable.Export)
	}

	if h.Finance != nil {
		finance := secured.Group("/finance", admin)
		finance.GET("/records", h.Finance.List)
		finance.POST("/records", h.Finance.Create)
		finance.GET("/records/export", h.Finance.Export)
		finance.DELETE("/records/:id", h.Finance.Delete)
		finance.GET("/summary", h.Finance.Summary)
	}

	if h.Dashboard != nil {
		secured.GET("/dashboard/summary", staff, h.Dashboard.Summary)
	}
}
