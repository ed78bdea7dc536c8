package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/admin-db/dbadmin-api/api/swagger"
	"github.com/admin-db/dbadmin-api/internal/handler"
	"github.com/admin-db/dbadmin-api/internal/middleware"
	"github.com/admin-db/dbadmin-api/internal/models"
	"github.com/admin-db/dbadmin-api/internal/repository"
	"github.com/admin-db/dbadmin-api/internal/service"
	"github.com/admin-db/dbadmin-api/pkg/cache"
	"github.com/admin-db/dbadmin-api/pkg/config"
	"github.com/admin-db/dbadmin-api/pkg/database"
	"github.com/admin-db/dbadmin-api/pkg/logger"
	corsmiddleware "github.com/admin-db/dbadmin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/admin-db/dbadmin-api/pkg/middleware/requestid"
)

// @title DB Admin API
// @version 1.0.0
// @description Multi-environment database administration backend with a change request approval workflow
// @BasePath /api/v1
// @schemes http
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

	metaDB, err := database.NewPostgres(cfg.Metadata)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect metadata store", "error", err)
	}
	defer metaDB.Close()

	registry, err := database.NewRegistry(cfg.Environments)
	if err != nil {
		logr.Sugar().Fatalw("failed to open environment pools", "error", err)
	}
	defer registry.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close()

	changeRepo := repository.NewChangeRequestRepository(metaDB)
	snapshotRepo := repository.NewSnapshotRepository(metaDB)
	userRepo := repository.NewUserRepository(metaDB)
	prefRepo := repository.NewPreferenceRepository(redisClient)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validator.New(), logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	envSvc := service.NewEnvironmentService(registry, prefRepo, userRepo, logr)
	tableSvc := service.NewTableService(registry, cfg.Approval.EnvironmentTimeout, logr)
	snapshotSvc := service.NewSnapshotService(snapshotRepo, registry, metricsSvc, cfg.Approval.EnvironmentTimeout, logr)
	applier := service.NewSQLApplier(registry, tableSvc, metricsSvc, cfg.Approval.EnvironmentTimeout, logr)
	approvalSvc := service.NewApprovalService(changeRepo, snapshotSvc, applier, applier, registry, userRepo, metricsSvc, logr)
	querySvc, err := service.NewQueryService(cfg.Queries.Path, registry, userRepo, metricsSvc, cfg.Approval.EnvironmentTimeout, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to load query catalog", "error", err)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	envHandler := handler.NewEnvironmentHandler(envSvc)
	tableHandler := handler.NewTableHandler(tableSvc, envSvc)
	recordHandler := handler.NewRecordHandler(approvalSvc, envSvc)
	changeHandler := handler.NewChangeRequestHandler(approvalSvc)
	snapshotHandler := handler.NewSnapshotHandler(snapshotSvc, userRepo)
	queryHandler := handler.NewQueryHandler(querySvc, envSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, metaDB, redisClient)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)

	authed.GET("/environments", envHandler.List)
	authed.GET("/environments/current", envHandler.Current)
	authed.POST("/environments/switch", envHandler.Switch)

	authed.GET("/tables", tableHandler.List)
	authed.GET("/tables/:table/schema", tableHandler.Schema)
	authed.GET("/tables/:table/data", tableHandler.Data)
	authed.GET("/tables/:table/queries", queryHandler.List)
	authed.POST("/tables/:table/queries/:queryId/execute", queryHandler.Execute)

	authed.POST("/tables/:table/records", recordHandler.Create)
	authed.PUT("/tables/:table/records/:id", recordHandler.Update)
	authed.DELETE("/tables/:table/records/:id", recordHandler.Delete)

	authed.POST("/changes", changeHandler.Submit)

	admin := authed.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/changes/pending", changeHandler.ListPending)
	admin.GET("/changes/history", changeHandler.ListHistory)
	admin.GET("/changes/:id", changeHandler.Get)
	admin.POST("/changes/:id/approve", changeHandler.Approve)
	admin.POST("/changes/:id/reject", changeHandler.Reject)

	admin.GET("/snapshots", snapshotHandler.List)
	admin.GET("/snapshots/stats", snapshotHandler.Stats)
	admin.GET("/snapshots/by-change-request/:id", snapshotHandler.ByChangeRequest)
	admin.GET("/snapshots/:id", snapshotHandler.Get)
	admin.GET("/snapshots/:id/export", snapshotHandler.Export)
	admin.DELETE("/snapshots/:id", snapshotHandler.Delete)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "environments", registry.Names())
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
