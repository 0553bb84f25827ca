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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/geoattend-api/api/swagger"
	"github.com/noah-isme/geoattend-api/internal/directory"
	"github.com/noah-isme/geoattend-api/internal/handler"
	"github.com/noah-isme/geoattend-api/internal/middleware"
	"github.com/noah-isme/geoattend-api/internal/repository"
	"github.com/noah-isme/geoattend-api/internal/schedule"
	"github.com/noah-isme/geoattend-api/internal/service"
	"github.com/noah-isme/geoattend-api/pkg/cache"
	"github.com/noah-isme/geoattend-api/pkg/config"
	"github.com/noah-isme/geoattend-api/pkg/database"
	"github.com/noah-isme/geoattend-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/geoattend-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/geoattend-api/pkg/middleware/requestid"
)

// @title GeoAttend API
// @version 1.0.0
// @description GPS-based classroom attendance service
// @BasePath /api/v1
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.CoordinateTTL, logr, true)
		}
	}

	client := directory.NewClient(cfg.Collaborators, cfg.JWT, logr)
	client.SetObserver(metricsSvc.ObserveCollaborator)
	users := directory.NewHTTPUserDirectory(client, cfg.Collaborators.UserServiceURL)

	var coordCache, scheduleCache directory.CoordinateCache
	if scoped := cacheSvc.Scoped(cfg.Cache.CoordinateTTL); scoped != nil {
		coordCache = scoped
	}
	if scoped := cacheSvc.Scoped(cfg.Cache.ScheduleTTL); scoped != nil {
		scheduleCache = scoped
	}
	courses := directory.NewHTTPCourseDirectory(client, cfg.Collaborators.CourseServiceURL, coordCache, scheduleCache)
	sink := directory.NewHTTPNotificationSink(client, cfg.Collaborators.NotificationServiceURL)

	notifications := service.NewNotificationService(sink, cfg.Notifications, logr)

	eventRepo := repository.NewGPSEventRepository(db)
	recordRepo := repository.NewAttendanceRepository(db)

	attendanceSvc := service.NewAttendanceService(
		eventRepo, recordRepo, users, courses, notifications,
		schedule.NewResolver(logr),
		cfg.GPS, cfg.Attendance,
		metricsSvc, nil, logr,
	)

	gpsHandler := handler.NewGPSHandler(attendanceSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group("/api/v1")
	api.GET("/gps/events", gpsHandler.ListEvents)
	api.GET("/attendance/records", attendanceHandler.ListRecords)
	api.GET("/attendance/stats/users/:id", attendanceHandler.UserStats)

	protected := api.Group("")
	protected.Use(middleware.ServiceAuth(cfg.JWT.Secret))
	protected.POST("/gps/events", gpsHandler.ProcessEvent)
	protected.POST("/attendance/sweep", attendanceHandler.MarkAbsences)

	if cfg.Reports.Enabled {
		reportSvc := service.NewReportService(attendanceSvc, nil, nil, logr)
		reportHandler := handler.NewReportHandler(attendanceSvc, reportSvc)
		api.GET("/reports/attendance-summary", reportHandler.AttendanceSummary)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifications.Start(ctx)
	defer notifications.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
