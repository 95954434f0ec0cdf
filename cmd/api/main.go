package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/alumniportal/mentoring-api/api/swagger"
	"github.com/alumniportal/mentoring-api/internal/handler"
	"github.com/alumniportal/mentoring-api/internal/middleware"
	"github.com/alumniportal/mentoring-api/internal/models"
	"github.com/alumniportal/mentoring-api/internal/repository"
	"github.com/alumniportal/mentoring-api/internal/service"
	"github.com/alumniportal/mentoring-api/pkg/cache"
	"github.com/alumniportal/mentoring-api/pkg/config"
	"github.com/alumniportal/mentoring-api/pkg/database"
	"github.com/alumniportal/mentoring-api/pkg/jobs"
	"github.com/alumniportal/mentoring-api/pkg/logger"
	corsmiddleware "github.com/alumniportal/mentoring-api/pkg/middleware/cors"
	reqidmiddleware "github.com/alumniportal/mentoring-api/pkg/middleware/requestid"
)

// @title Alumni Mentoring API
// @version 1.0.0
// @description Mentor-mentee matching engine for the alumni platform
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Statistics.CacheTTL, logr, true)
	} else {
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Statistics.CacheTTL, logr, false)
	}

	userRepo := repository.NewUserRepository(db)
	programRepo := repository.NewProgramRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	matchRepo := repository.NewMatchRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "mentoring-api",
	})
	programSvc := service.NewProgramService(programRepo, logr)
	matchingSvc := service.NewMatchingService(programRepo, registrationRepo, matchRepo, cacheSvc, metricsSvc, validate, logr, service.MatchingServiceConfig{
		Weights: service.MatchingWeights{
			Industry:   cfg.Matching.WeightIndustry,
			Programme:  cfg.Matching.WeightProgramme,
			Skills:     cfg.Matching.WeightSkills,
			Preference: cfg.Matching.WeightPreference,
		},
		AutoRejectDays:      cfg.Matching.AutoRejectDays,
		MaxMenteesPerMentor: cfg.Matching.MaxMenteesPerMentor,
	})
	lifecycleSvc := service.NewLifecycleService(matchRepo, cacheSvc, metricsSvc, validate, logr)
	statisticsSvc := service.NewStatisticsService(matchRepo, registrationRepo, cacheSvc, logr, cfg.Statistics.CacheTTL)
	exportSvc := service.NewExportService(matchRepo, nil, nil, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	programHandler := handler.NewProgramHandler(programSvc)
	matchingHandler := handler.NewMatchingHandler(matchingSvc, lifecycleSvc, statisticsSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(corsmiddleware.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxAge:         cfg.CORS.MaxAge,
	}))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.GET("/programs", programHandler.List)
	authed.GET("/programs/:programId", programHandler.Get)

	admin := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)
	authed.POST("/programs/:programId/matching/initiate", admin, matchingHandler.Initiate)
	authed.POST("/programs/:programId/matching/manual", admin, matchingHandler.CreateManual)
	authed.POST("/programs/:programId/matching/sweep", admin, matchingHandler.Sweep)
	authed.GET("/programs/:programId/matching/unmatched", admin, matchingHandler.ListUnmatched)
	authed.GET("/programs/:programId/matching/statistics", admin, matchingHandler.Statistics)
	authed.GET("/programs/:programId/matches", admin, matchingHandler.ListMatches)
	if cfg.Exports.Enabled {
		authed.GET("/programs/:programId/matches/export", admin, matchingHandler.Export)
	}
	authed.POST("/matches/:id/respond", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleMentor), matchingHandler.Respond)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sweepQueue *jobs.Queue
	if cfg.Sweep.Enabled {
		sweepQueue = jobs.NewQueue("auto-reject-sweep", func(jobCtx context.Context, job jobs.Job) error {
			result, err := lifecycleSvc.SweepExpiredMatches(jobCtx, nil)
			if err != nil {
				return err
			}
			if result.AutoRejected > 0 {
				logr.Sugar().Infow("sweep job finished", "auto_rejected", result.AutoRejected)
			}
			return nil
		}, jobs.QueueConfig{
			Workers:    cfg.Sweep.Workers,
			MaxRetries: cfg.Sweep.Retries,
			Logger:     logr,
		})
		sweepQueue.Start(ctx)
		sweepQueue.EnqueueEvery(cfg.Sweep.Interval, func() jobs.Job {
			return jobs.Job{ID: uuid.NewString(), Type: "sweep"}
		})
		defer sweepQueue.Stop()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
