// Package router assembles the HTTP engine from handlers and middleware.
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-scheduler-api/internal/handler"
	"github.com/noah-isme/smart-scheduler-api/internal/middleware"
	"github.com/noah-isme/smart-scheduler-api/internal/models"
	"github.com/noah-isme/smart-scheduler-api/internal/service"
	"github.com/noah-isme/smart-scheduler-api/pkg/config"
	appErrors "github.com/noah-isme/smart-scheduler-api/pkg/errors"
	"github.com/noah-isme/smart-scheduler-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/smart-scheduler-api/pkg/middleware/cors"
	"github.com/noah-isme/smart-scheduler-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/smart-scheduler-api/pkg/middleware/requestid"
	"github.com/noah-isme/smart-scheduler-api/pkg/response"
)

// Dependencies are the handlers and services the router mounts.
type Dependencies struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *service.MetricsService
	Auth    *service.AuthService
	Limiter *ratelimit.Limiter

	AuthHandler    *handler.AuthHandler
	CatalogHandler *handler.CatalogHandler
	PlannerHandler *handler.PlannerHandler
	ExportHandler  *handler.ExportHandler
	MetricsHandler *handler.MetricsHandler
}

// Setup builds the gin engine with every route registered.
func Setup(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics, "/metrics", "/health"))

	ops := deps.MetricsHandler
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	if deps.Limiter != nil {
		api.Use(deps.Limiter.Middleware(func(c *gin.Context) {
			response.Error(c, appErrors.ErrRateLimited)
		}))
	}

	authenticated := middleware.JWT(deps.Auth)

	api.POST("/auth/token", deps.AuthHandler.Token)
	api.GET("/terms", deps.CatalogHandler.Terms)

	catalog := api.Group("/catalog/courses")
	catalog.GET("", deps.CatalogHandler.Search)
	catalog.GET("/:id", deps.CatalogHandler.Get)
	catalog.POST("", authenticated, middleware.RequireRoles(models.RoleIngest), deps.CatalogHandler.Import)
	catalog.DELETE("/:id", authenticated, middleware.RequireRoles(models.RoleIngest), deps.CatalogHandler.Delete)

	planner := api.Group("/planner")
	planner.POST("/generate", deps.PlannerHandler.Generate)
	planner.POST("/sessions", deps.PlannerHandler.CreateSession)

	session := planner.Group("/sessions/:id")
	session.GET("", deps.PlannerHandler.GetSession)
	session.DELETE("", deps.PlannerHandler.DeleteSession)
	session.PUT("/term", deps.PlannerHandler.SetTerm)
	session.POST("/courses", deps.PlannerHandler.AddCourse)
	session.DELETE("/courses", deps.PlannerHandler.ClearCourses)
	session.DELETE("/courses/:courseId", deps.PlannerHandler.RemoveCourse)
	session.POST("/pins/:sectionNumber/toggle", deps.PlannerHandler.TogglePin)
	session.POST("/blocked/toggle", deps.PlannerHandler.ToggleBlocked)
	session.POST("/next", deps.PlannerHandler.Next)
	session.POST("/previous", deps.PlannerHandler.Previous)
	session.GET("/permutations", deps.PlannerHandler.Permutations)

	if deps.ExportHandler != nil {
		session.POST("/exports", deps.ExportHandler.Create)
		api.GET("/exports/download", deps.ExportHandler.Download)
		api.GET("/exports/:jobId", deps.ExportHandler.Status)
	}

	api.GET("/metrics/summary", authenticated, middleware.RequireRoles(models.RoleAdmin), ops.Summary)

	return r
}
