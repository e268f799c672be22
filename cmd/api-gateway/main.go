package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/schoolhub-api/api/swagger"
	"github.com/noah-isme/schoolhub-api/internal/handler"
	"github.com/noah-isme/schoolhub-api/internal/policy"
	"github.com/noah-isme/schoolhub-api/internal/repository"
	"github.com/noah-isme/schoolhub-api/internal/router"
	"github.com/noah-isme/schoolhub-api/internal/service"
	"github.com/noah-isme/schoolhub-api/pkg/config"
	"github.com/noah-isme/schoolhub-api/pkg/database"
	"github.com/noah-isme/schoolhub-api/pkg/export"
	"github.com/noah-isme/schoolhub-api/pkg/logger"
	"github.com/noah-isme/schoolhub-api/pkg/mail"
	"github.com/noah-isme/schoolhub-api/pkg/ratelimit"
	"github.com/noah-isme/schoolhub-api/pkg/storage"
)

// @title SchoolHub API
// @version 1.0.0
// @description School administration backend: schools, members, attendance, grades, schedules and fees.
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(context.Background(), db); err != nil {
			logr.Fatal("schema migration failed", zap.Error(err))
		}
	}

	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = ratelimit.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, rate limiting in memory", zap.Error(err))
		} else {
			defer redisClient.Close()
			limiter = ratelimit.NewRedisLimiter(redisClient, "schoolhub:ratelimit", cfg.RateLimit.Requests, cfg.RateLimit.Window)
		}
	}

	uploads, err := storage.NewLocalStorage(cfg.Uploads)
	if err != nil {
		logr.Fatal("upload directory unavailable", zap.Error(err))
	}

	sender, err := mail.NewSender(cfg.Mail, logr)
	if err != nil {
		logr.Fatal("mail transport misconfigured", zap.Error(err))
	}

	metricsSvc := service.NewMetricsService()
	validate := service.NewValidator()

	mailQueue := service.NewMailQueue(sender, cfg.Mail, metricsSvc, logr)
	queueCtx, stopQueue := context.WithCancel(context.Background())
	mailQueue.Start(queueCtx)
	notifier := service.NewMailNotifier(mailQueue, cfg.Mail, logr)

	schoolRepo := repository.NewSchoolRepository(db)
	userRepo := repository.NewUserRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	contactRepo := repository.NewContactRepository(db)

	authorizer := policy.NewAuthorizer(schoolRepo, userRepo, logr)
	csvExporter := export.NewCSVExporter()
	pdfExporter := export.NewPDFExporter()

	schoolSvc := service.NewSchoolService(db, schoolRepo, userRepo, authorizer, uploads, validate, logr)
	authSvc := service.NewAuthService(schoolRepo, userRepo, validate, logr)
	passwordSvc := service.NewPasswordService(schoolRepo, userRepo, notifier, metricsSvc, cfg.OTP.TTL, validate, logr)
	classSvc := service.NewClassService(schoolRepo, authorizer, validate, logr)
	subjectSvc := service.NewSubjectService(schoolRepo, authorizer, validate, logr)
	teacherSvc := service.NewTeacherService(schoolRepo, authorizer, uploads, validate, logr)
	studentSvc := service.NewStudentService(schoolRepo, authorizer, uploads, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, authorizer, metricsSvc, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, authorizer, csvExporter, pdfExporter, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, authorizer, validate, logr)
	feeSvc := service.NewFeeService(feeRepo, authorizer, pdfExporter, metricsSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(authorizer, attendanceRepo, feeRepo, gradeRepo, logr)
	contactSvc := service.NewContactService(contactRepo, notifier, validate, logr)

	engine := router.New(router.Options{
		Config:    cfg,
		Logger:    logr,
		Metrics:   metricsSvc,
		Limiter:   limiter,
		UploadDir: uploads.Dir(),
	}, router.Handlers{
		School:     handler.NewSchoolHandler(schoolSvc),
		Auth:       handler.NewAuthHandler(authSvc, passwordSvc),
		Class:      handler.NewClassHandler(classSvc),
		Subject:    handler.NewSubjectHandler(subjectSvc),
		Teacher:    handler.NewTeacherHandler(teacherSvc),
		Student:    handler.NewStudentHandler(studentSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc),
		Grade:      handler.NewGradeHandler(gradeSvc),
		Schedule:   handler.NewScheduleHandler(scheduleSvc),
		Fee:        handler.NewFeeHandler(feeSvc),
		Dashboard:  handler.NewDashboardHandler(dashboardSvc),
		Contact:    handler.NewContactHandler(contactSvc),
		Metrics:    handler.NewMetricsHandler(metricsSvc, db),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: engine,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	stopQueue()
	mailQueue.Stop()
}
