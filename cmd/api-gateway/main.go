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
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tuition-center-api/api/swagger"
	"github.com/noah-isme/tuition-center-api/internal/handler"
	internalmiddleware "github.com/noah-isme/tuition-center-api/internal/middleware"
	"github.com/noah-isme/tuition-center-api/internal/repository"
	"github.com/noah-isme/tuition-center-api/internal/routes"
	"github.com/noah-isme/tuition-center-api/internal/service"
	"github.com/noah-isme/tuition-center-api/pkg/cache"
	"github.com/noah-isme/tuition-center-api/pkg/config"
	"github.com/noah-isme/tuition-center-api/pkg/database"
	"github.com/noah-isme/tuition-center-api/pkg/export"
	"github.com/noah-isme/tuition-center-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tuition-center-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tuition-center-api/pkg/middleware/requestid"
)

// @title Tuition Center API
// @version 1.0.0
// @description Admin backend for a tuition centre: subjects, timeslots, students, timetables and finance.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// cacheBackend is what main needs from either cache repository.
type cacheBackend interface {
	service.CacheRepository
	Ping(ctx context.Context) error
	Close() error
}

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
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	cacheRepo := newCacheBackend(cfg, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Timetable.CacheTTL, logr, cfg.Timetable.CacheEnabled)

	h, audit, auth := buildHandlers(cfg, db, cacheRepo, cacheSvc, metrics, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	routes.Register(r, h, routes.Options{
		Prefix:     cfg.APIPrefix,
		Tokens:     auth,
		CookieName: cfg.Session.CookieName,
		Audit:      audit,
		Logger:     logr,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

// newCacheBackend prefers Redis and falls back to the in-process cache when
// Redis is disabled or unreachable.
func newCacheBackend(cfg *config.Config, logr *zap.Logger) cacheBackend {
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(context.Background(), cfg.Redis)
		if err == nil {
			return repository.NewCacheRepository(client, logr)
		}
		logr.Warn("redis unavailable, using in-memory cache", zap.Error(err))
	}
	return repository.NewMemoryCacheRepository(cfg.Timetable.CacheTTL)
}

func buildHandlers(cfg *config.Config, db *sqlx.DB, cacheRepo cacheBackend, cacheSvc *service.CacheService, metrics *service.MetricsService, logr *zap.Logger) (routes.Handlers, *repository.UserRepository, *service.AuthService) {
	validate := validator.New()

	subjectRepo := repository.NewSubjectRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	timeslotRepo := repository.NewTimeslotRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	userRepo := repository.NewUserRepository(db)
	financeRepo := repository.NewFinanceRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, cacheSvc, userRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, cacheSvc, userRepo, validate, logr)
	scheduleSvc := service.NewScheduleService(service.ScheduleServiceParams{
		Timeslots:   timeslotRepo,
		Subjects:    subjectRepo,
		Students:    studentRepo,
		Enrollments: enrollmentRepo,
		Cache:       cacheSvc,
		Metrics:     metrics,
		Audit:       userRepo,
		Validator:   validate,
		Logger:      logr,
	})
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, subjectRepo, studentRepo, cacheSvc, metrics, validate, logr)
	timetableSvc := service.NewTimetableService(timeslotRepo, subjectRepo, studentRepo, cacheSvc, metrics, cfg.Timetable.CacheTTL, logr)
	financeSvc := service.NewFinanceService(financeRepo, studentRepo, userRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(studentRepo, subjectRepo, timeslotRepo, logr)
	exportSvc := service.NewExportService(timetableSvc, financeSvc, cfg.Export.Title, logr, export.NewCSVExporter(), export.NewPDFExporter())

	h := routes.Handlers{
		Auth: handler.NewAuthHandler(authSvc, handler.SessionCookie{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.CookieSecure,
			Domain: cfg.Session.CookieDomain,
		}),
		Users:      handler.NewUserHandler(userSvc),
		Subjects:   handler.NewSubjectHandler(subjectSvc),
		Timeslots:  handler.NewTimeslotHandler(scheduleSvc),
		Enrollment: handler.NewEnrollmentHandler(enrollmentSvc),
		Students:   handler.NewStudentHandler(studentSvc),
		Timetable:  handler.NewTimetableHandler(timetableSvc, exportSvc),
		Finance:    handler.NewFinanceHandler(financeSvc, exportSvc),
		Dashboard:  handler.NewDashboardHandler(dashboardSvc),
		Metrics: handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
			"database": db,
			"cache":    handler.PingFunc(cacheRepo.Ping),
		}),
	}
	return h, userRepo, authSvc
}
