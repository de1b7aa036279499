package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/tenantsearch-backend/internal/http/handlers"
	httpMW "github.com/yungbote/tenantsearch-backend/internal/http/middleware"
	"github.com/yungbote/tenantsearch-backend/internal/observability"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	CORSOrigins    []string
	TracingEnabled bool

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler    *httpH.HealthHandler
	SearchHandler    *httpH.SearchHandler
	DocumentHandler  *httpH.DocumentHandler
	AnalyticsHandler *httpH.AnalyticsHandler
	AdminHandler     *httpH.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api/v1")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	tenant := api.Group("/")
	if cfg.AuthMiddleware != nil {
		tenant.Use(cfg.AuthMiddleware.RequireTenant())
	}
	{
		if cfg.SearchHandler != nil {
			tenant.POST("/search", cfg.SearchHandler.Search)
			tenant.POST("/queries/:id/feedback", cfg.SearchHandler.Feedback)
		}
		if cfg.DocumentHandler != nil {
			tenant.POST("/documents", cfg.DocumentHandler.Ingest)
			tenant.GET("/documents", cfg.DocumentHandler.List)
			tenant.DELETE("/documents/:id", cfg.DocumentHandler.Delete)
		}
		if cfg.AnalyticsHandler != nil {
			tenant.POST("/analytics/rebuild", cfg.AnalyticsHandler.Rebuild)
			tenant.GET("/analytics/top-queries", cfg.AnalyticsHandler.TopQueries)
			tenant.GET("/analytics/clusters", cfg.AnalyticsHandler.Clusters)
		}
	}

	admin := api.Group("/admin")
	if cfg.AuthMiddleware != nil {
		admin.Use(cfg.AuthMiddleware.RequireAdmin())
	}
	if cfg.AdminHandler != nil {
		admin.GET("/tenants", cfg.AdminHandler.ListTenants)
		admin.POST("/tenants", cfg.AdminHandler.CreateTenant)
		admin.DELETE("/tenants/:id/documents", cfg.AdminHandler.PurgeTenant)
	}

	return r
}
