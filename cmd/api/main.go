package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edupanel/timetable-api/api/swagger"
	"github.com/edupanel/timetable-api/internal/handler"
	"github.com/edupanel/timetable-api/internal/middleware"
	"github.com/edupanel/timetable-api/internal/models"
	"github.com/edupanel/timetable-api/internal/repository"
	"github.com/edupanel/timetable-api/internal/service"
	"github.com/edupanel/timetable-api/pkg/cache"
	"github.com/edupanel/timetable-api/pkg/config"
	"github.com/edupanel/timetable-api/pkg/database"
	"github.com/edupanel/timetable-api/pkg/export"
	"github.com/edupanel/timetable-api/pkg/logger"
	corsmiddleware "github.com/edupanel/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edupanel/timetable-api/pkg/middleware/requestid"
)

// @title EduPanel Timetable API
// @version 1.0.0
// @description Timetable scheduling and conflict detection service
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
		// Redis is a read-side accelerator; the API stays up without it.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()

	slotRepo := repository.NewSlotRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Timetable.CacheTTL, logr, cfg.Timetable.CacheEnabled && redisClient != nil)
	tokenSvc := service.NewTokenService(cfg.JWT.Secret)

	conflicts := service.NewConflictDetector(slotRepo, logr)
	slotSvc := service.NewSlotService(slotRepo, teacherRepo, conflicts, cacheSvc, validate, logr)
	alternateSvc := service.NewAlternateDayService(slotRepo, teacherRepo, cacheSvc, validate, logr, cfg.Timetable.MaxAlternateSize)
	substituteSvc := service.NewSubstituteService(slotRepo, teacherRepo, cacheSvc, validate, logr)
	scheduleSvc := service.NewEffectiveScheduleService(slotRepo, teacherRepo, cacheSvc, cfg.Timetable.CacheTTL, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	exportSvc := service.NewExportService(scheduleSvc, export.NewCSVExporter(), export.NewPDFExporter(), cfg.Timetable.ExportEnabled, logr)

	timetableHandler := handler.NewTimetableHandler(slotSvc, alternateSvc, substituteSvc, scheduleSvc, exportSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	timetable := api.Group("/timetable")
	{
		timetable.GET("/slots", timetableHandler.ListSlots)
		timetable.POST("/slots", adminOnly, timetableHandler.CreateSlot)
		timetable.PUT("/slots/:id", adminOnly, timetableHandler.UpdateSlot)
		timetable.DELETE("/slots/:id", adminOnly, timetableHandler.DeleteSlot)

		timetable.PUT("/alternate-days", adminOnly, timetableHandler.SetAlternateSchedule)

		timetable.POST("/slots/:id/substitute", adminOnly, timetableHandler.AssignSubstitute)
		timetable.DELETE("/slots/:id/substitute", adminOnly, timetableHandler.ClearSubstitute)

		timetable.GET("/classes/:id/schedule", timetableHandler.ClassSchedule)
		timetable.GET("/classes/:id/schedule/export", timetableHandler.ExportClassSchedule)
		timetable.GET("/teachers/:id/schedule", middleware.RBAC(string(models.RoleAdmin), string(models.RoleParent), "SELF"), timetableHandler.TeacherSchedule)
		timetable.GET("/teachers/:id/schedule/export", middleware.RBAC(string(models.RoleAdmin), "SELF"), timetableHandler.ExportTeacherSchedule)
	}

	teachers := api.Group("/teachers")
	{
		teachers.GET("", teacherHandler.List)
		teachers.GET("/:id", teacherHandler.Get)
		teachers.POST("", adminOnly, teacherHandler.Create)
		teachers.PUT("/:id", adminOnly, teacherHandler.Update)
		teachers.DELETE("/:id", adminOnly, teacherHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
