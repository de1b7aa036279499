package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/tenantsearch-backend/internal/http"
	httpH "github.com/yungbote/tenantsearch-backend/internal/http/handlers"
	httpMW "github.com/yungbote/tenantsearch-backend/internal/http/middleware"
	"github.com/yungbote/tenantsearch-backend/internal/observability"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, svc Services, clients *Clients, metrics *observability.Metrics) *gin.Engine {
	log.Info("Wiring router...")
	if cfg.Mode == "production" || cfg.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	var routeMetrics *observability.Metrics
	if cfg.MetricsEnabled {
		routeMetrics = metrics
	}
	return http.NewRouter(http.RouterConfig{
		Log:              log,
		Metrics:          routeMetrics,
		ServiceName:      cfg.ServiceName,
		CORSOrigins:      cfg.CORSOrigins,
		TracingEnabled:   cfg.OTELEnabled,
		AuthMiddleware:   httpMW.NewAuthMiddleware(log, cfg.JWTSecret),
		HealthHandler:    httpH.NewHealthHandler(clients.Postgres.DB()),
		SearchHandler:    httpH.NewSearchHandler(svc.Search),
		DocumentHandler:  httpH.NewDocumentHandler(svc.Documents),
		AnalyticsHandler: httpH.NewAnalyticsHandler(svc.Analytics),
		AdminHandler:     httpH.NewAdminHandler(svc.Tenants, svc.Documents),
	})
}
