package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/clinic-attendance-api/api/swagger"
	"github.com/noah-isme/clinic-attendance-api/internal/handler"
	"github.com/noah-isme/clinic-attendance-api/internal/middleware"
	"github.com/noah-isme/clinic-attendance-api/internal/repository"
	"github.com/noah-isme/clinic-attendance-api/internal/service"
	"github.com/noah-isme/clinic-attendance-api/pkg/cache"
	"github.com/noah-isme/clinic-attendance-api/pkg/config"
	"github.com/noah-isme/clinic-attendance-api/pkg/database"
	"github.com/noah-isme/clinic-attendance-api/pkg/export"
	"github.com/noah-isme/clinic-attendance-api/pkg/jobs"
	"github.com/noah-isme/clinic-attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/clinic-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/clinic-attendance-api/pkg/middleware/requestid"
	"github.com/noah-isme/clinic-attendance-api/pkg/qrtoken"
	"github.com/noah-isme/clinic-attendance-api/pkg/storage"
	"github.com/noah-isme/clinic-attendance-api/pkg/tracing"
)

// @title Clinic Attendance API
// @version 1.0.0
// @description Kiosk clock in/out, roster approval and manager dashboard
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Telemetry)
	if err != nil {
		logr.Warn("tracing disabled", zap.Error(err))
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	applied, err := database.Migrate(ctx, db)
	if err != nil {
		logr.Fatal("failed to apply migrations", zap.Error(err))
	}
	if len(applied) > 0 {
		logr.Info("migrations applied", zap.Strings("versions", applied))
	}

	metrics := service.NewMetricsService()
	readiness := map[string]handler.Pinger{"postgres": db}

	// The dashboard works without Redis; it just recomputes on every request.
	var cacheRepo service.CacheRepository
	if redisClient, err := cache.NewRedis(ctx, cfg.Redis); err != nil {
		logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
	} else {
		repo := repository.NewCacheRepository(redisClient, "clinic", logr)
		defer repo.Close() //nolint:errcheck
		cacheRepo = repo
		readiness["redis"] = handler.PingFunc(repo.Ping)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cacheRepo != nil)

	loc := cfg.Location()
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	rosterRepo := repository.NewRosterRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	reportRepo := repository.NewReportRepository(db)

	photoStore, err := storage.NewLocalStorage(cfg.Photos.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare photo storage", zap.Error(err))
	}
	photoSigner := storage.NewSignedURLSigner(cfg.Photos.SignedURLSecret, cfg.Photos.SignedURLTTL)

	qrSvc := service.NewQRService(qrtoken.NewSigner(cfg.QR.Secret, cfg.QR.WindowSeconds, cfg.QR.MaxAgeSeconds))
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})
	employeeSvc := service.NewEmployeeService(employeeRepo, userRepo, validate, logr)
	punchSvc := service.NewPunchService(employeeRepo, attendanceRepo, photoStore, qrSvc, cacheSvc, metrics, service.PunchConfig{
		MaxUploadBytes: cfg.Photos.MaxUploadBytes,
		MaxSide:        cfg.Photos.MaxSide,
		JPEGQuality:    cfg.Photos.JPEGQuality,
		Location:       loc,
	}, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Attendance: attendanceRepo,
		Roster:     rosterRepo,
		Leaves:     leaveRepo,
		Photos:     photoSigner,
		Cache:      cacheSvc,
		Metrics:    metrics,
		Logger:     logr,
		Config: service.DashboardServiceConfig{
			CacheTTL:    cfg.Dashboard.CacheTTL,
			RankingSize: cfg.Dashboard.RankingSize,
			EventLimit:  cfg.Dashboard.EventLimit,
			StaleAfter:  cfg.Attendance.StaleAfter,
			Policy: service.PunctualityPolicy{
				GraceMinutes: cfg.Attendance.GraceMinutes,
				EarlyWindow:  cfg.Attendance.EarlyWindow,
				NoShowWindow: cfg.Attendance.NoShowWindow,
			},
			Location:     loc,
			PhotoURLBase: cfg.APIPrefix,
		},
	})
	rosterSvc := service.NewRosterService(service.RosterServiceParams{
		Roster:    rosterRepo,
		Employees: employeeRepo,
		Leaves:    leaveRepo,
		Editors:   userRepo,
		Audit:     userRepo,
		Cache:     cacheSvc,
		Validator: validate,
		Logger:    logr,
		Location:  loc,
	})
	leaveSvc := service.NewLeaveService(leaveRepo, employeeRepo, rosterSvc, userRepo, cacheSvc, validate, logr, loc)

	handlers := handler.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Kiosk:     handler.NewKioskHandler(qrSvc, punchSvc, employeeSvc, cfg.Photos.MaxUploadBytes),
		Employees: handler.NewEmployeeHandler(employeeSvc),
		Roster:    handler.NewRosterHandler(rosterSvc),
		Leaves:    handler.NewLeaveHandler(leaveSvc),
		Dashboard: handler.NewDashboardHandler(dashboardSvc),
		Photos:    handler.NewPhotoHandler(service.NewPhotoService(photoSigner, photoStore, attendanceRepo)),
	}

	var reportQueue *jobs.Queue
	if cfg.Reports.Enabled {
		exportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Fatal("failed to prepare export storage", zap.Error(err))
		}
		exportSvc := service.NewExportService(
			dashboardSvc,
			exportStore,
			storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL),
			service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.SignedURLTTL},
			logr,
			export.NewCSVExporter(),
			export.NewPDFExporter(),
		)
		worker := service.NewReportWorker(reportRepo, exportSvc, metrics, cfg.Reports.WorkerRetries, logr)
		reportQueue = jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			RetryDelay: 5 * time.Second,
			Logger:     logr,
		})
		reportQueue.Start(ctx)
		defer reportQueue.Stop()

		reportSvc := service.NewReportService(reportRepo, reportQueue, exportSvc, userRepo, metrics, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
		handlers.Reports = handler.NewReportHandler(reportSvc)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(tracing.GinMiddleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health", "/ready"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	ops := handler.NewMetricsHandler(metrics, readiness)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handlers, handler.RouteDeps{
		Tokens: authSvc,
		Audit:  userRepo,
		Logger: logr,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("timezone", loc.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logr.Warn("tracing shutdown failed", zap.Error(err))
	}
}
