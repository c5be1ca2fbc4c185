package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/xai-decision-backend/internal/http"
	httpH "github.com/yungbote/xai-decision-backend/internal/http/handlers"
	httpMW "github.com/yungbote/xai-decision-backend/internal/http/middleware"
	"github.com/yungbote/xai-decision-backend/internal/observability"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

type Middleware struct {
	ReviewerAuth *httpMW.ReviewerAuth
}

type Handlers struct {
	Health      *httpH.HealthHandler
	Application *httpH.ApplicationHandler
	Policy      *httpH.PolicyHandler
	Bulk        *httpH.BulkHandler
	Audit       *httpH.AuditHandler
}

func wireHandlers(log *logger.Logger, cfg Config, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(services.Health),
		Application: httpH.NewApplicationHandler(services.Applications),
		Policy:      httpH.NewPolicyHandler(services.Policies, cfg.UploadMaxBytes),
		Bulk:        httpH.NewBulkHandler(services.Bulk, cfg.UploadMaxBytes),
		Audit:       httpH.NewAuditHandler(services.Audit),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	if cfg.ReviewerJWTSecret == "" {
		log.Warn("REVIEWER_JWT_SECRET not set; employee routes are unauthenticated")
	}
	return Middleware{
		ReviewerAuth: httpMW.NewReviewerAuth(log, cfg.ReviewerJWTSecret),
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return http.NewRouter(http.RouterConfig{
		Log:                log.With("component", "http"),
		ServiceName:        serviceName,
		AllowedOrigins:     cfg.AllowedOrigins,
		Metrics:            metrics,
		ReviewerAuth:       middleware.ReviewerAuth,
		ApplicationHandler: handlers.Application,
		PolicyHandler:      handlers.Policy,
		BulkHandler:        handlers.Bulk,
		AuditHandler:       handlers.Audit,
		HealthHandler:      handlers.Health,
	})
}
