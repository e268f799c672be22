package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolhub-api/internal/handler"
	"github.com/noah-isme/schoolhub-api/internal/middleware"
	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/service"
	"github.com/noah-isme/schoolhub-api/pkg/config"
	"github.com/noah-isme/schoolhub-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/schoolhub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/schoolhub-api/pkg/middleware/requestid"
	"github.com/noah-isme/schoolhub-api/pkg/ratelimit"
)

// Handlers groups every HTTP handler mounted by New.
type Handlers struct {
	School     *handler.SchoolHandler
	Auth       *handler.AuthHandler
	Class      *handler.ClassHandler
	Subject    *handler.SubjectHandler
	Teacher    *handler.TeacherHandler
	Student    *handler.StudentHandler
	Attendance *handler.AttendanceHandler
	Grade      *handler.GradeHandler
	Schedule   *handler.ScheduleHandler
	Fee        *handler.FeeHandler
	Dashboard  *handler.DashboardHandler
	Contact    *handler.ContactHandler
	Metrics    *handler.MetricsHandler
}

// Options carries the cross-cutting dependencies of the router.
type Options struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *service.MetricsService
	Limiter   ratelimit.Limiter
	UploadDir string
}

// New builds the gin engine with global middleware and every route group.
func New(opts Options, h Handlers) *gin.Engine {
	cfg := opts.Config
	logr := opts.Logger
	if logr == nil {
		logr = zap.NewNop()
	}

	r := gin.New()
	r.MaxMultipartMemory = cfg.Uploads.MaxBytes + 1<<20
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics))
	r.Use(middleware.Actor())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	limited := middleware.RateLimit(opts.Limiter, opts.Metrics, logr)

	school := r.Group("/school", middleware.Audit(logr, "school"))
	school.POST("/register", limited, h.School.Register)
	school.GET("", h.School.List)
	school.GET("/:schoolId", middleware.RequireActor(), h.School.Get)
	school.PUT("/:schoolId", middleware.RequireActor(), h.School.Update)
	school.DELETE("/:schoolId", middleware.RequireActor(), h.School.Delete)

	auth := r.Group("/auth", limited)
	auth.POST("/login", h.Auth.Login)

	password := r.Group("/password", limited)
	password.POST("/request-otp", h.Auth.RequestOTP)
	password.POST("/resend-otp", h.Auth.ResendOTP)
	password.POST("/verify-otp", h.Auth.VerifyOTP)

	r.POST("/api/contact", limited, h.Contact.Submit)

	class := r.Group("/class", middleware.RequireActor(), middleware.Audit(logr, "class"))
	class.GET("/:schoolId", h.Class.List)
	class.POST("/:schoolId", h.Class.Create)
	class.PUT("/:schoolId/:className", h.Class.Update)
	class.DELETE("/:schoolId/:className", h.Class.Delete)

	subject := r.Group("/subject", middleware.RequireActor(), middleware.Audit(logr, "subject"))
	subject.GET("/:schoolId", h.Subject.List)
	subject.POST("/:schoolId", h.Subject.Create)
	subject.PUT("/:schoolId/:name", h.Subject.Rename)
	subject.DELETE("/:schoolId/:name", h.Subject.Delete)

	teacher := r.Group("/teacher", middleware.RequireActor(), middleware.Audit(logr, "teacher"))
	teacher.GET("/:schoolId", h.Teacher.List)
	teacher.POST("/:schoolId", h.Teacher.Create)
	teacher.GET("/:schoolId/:teacherId", h.Teacher.Get)
	teacher.PUT("/:schoolId/:teacherId", h.Teacher.Update)
	teacher.DELETE("/:schoolId/:teacherId", h.Teacher.Delete)
	teacher.PUT("/:schoolId/:teacherId/picture", h.Teacher.SetPicture)

	student := r.Group("/student", middleware.RequireActor(), middleware.Audit(logr, "student"))
	student.GET("/:schoolId", h.Student.List)
	student.POST("/:schoolId", h.Student.Create)
	student.POST("/:schoolId/import", h.Student.Import)
	student.GET("/:schoolId/:studentId", h.Student.Get)
	student.PUT("/:schoolId/:studentId", h.Student.Update)
	student.DELETE("/:schoolId/:studentId", h.Student.Delete)
	student.PUT("/:schoolId/:studentId/picture", h.Student.SetPicture)

	attendance := r.Group("/attendance", middleware.RequireActor(), middleware.Audit(logr, "attendance"))
	attendance.POST("/:schoolId", h.Attendance.Mark)
	attendance.GET("/:schoolId", h.Attendance.List)
	attendance.GET("/:schoolId/student/:studentId/summary", h.Attendance.Summary)
	attendance.PUT("/:schoolId/:id", h.Attendance.Update)
	attendance.DELETE("/:schoolId/:id", h.Attendance.Delete)

	grades := r.Group("/grades", middleware.RequireActor(), middleware.Audit(logr, "grade"))
	grades.POST("/:schoolId", h.Grade.Submit)
	grades.GET("/:schoolId", h.Grade.List)
	grades.GET("/:schoolId/export", h.Grade.Export)
	grades.GET("/:schoolId/student/:studentId", h.Grade.StudentGrades)
	grades.DELETE("/:schoolId/:id", h.Grade.Delete)

	schedule := r.Group("/schedule", middleware.RequireActor(), middleware.Audit(logr, "schedule"))
	schedule.POST("/:schoolId", h.Schedule.Upsert)
	schedule.GET("/:schoolId", h.Schedule.List)
	schedule.DELETE("/:schoolId/:id", h.Schedule.Delete)

	fees := r.Group("/fees", middleware.RequireActor(), middleware.Audit(logr, "fee"))
	fees.POST("/:schoolId", h.Fee.Create)
	fees.GET("/:schoolId", h.Fee.List)
	fees.GET("/:schoolId/:feeId", h.Fee.Get)
	fees.PUT("/:schoolId/:feeId", h.Fee.Update)
	fees.DELETE("/:schoolId/:feeId", h.Fee.Delete)
	fees.POST("/:schoolId/:feeId/payments", h.Fee.RecordPayment)
	fees.GET("/:schoolId/:feeId/payments/:paymentId/receipt", h.Fee.Receipt)

	dashboard := r.Group("/dashboard", middleware.RequireRoles(models.RoleAdmin))
	dashboard.GET("/:schoolId", h.Dashboard.Stats)

	return r
}
