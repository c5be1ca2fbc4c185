package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/xai-decision-backend/internal/http/handlers"
	httpMW "github.com/yungbote/xai-decision-backend/internal/http/middleware"
	"github.com/yungbote/xai-decision-backend/internal/observability"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	Metrics        *observability.Metrics
	ReviewerAuth   *httpMW.ReviewerAuth

	ApplicationHandler *httpH.ApplicationHandler
	PolicyHandler      *httpH.PolicyHandler
	BulkHandler        *httpH.BulkHandler
	AuditHandler       *httpH.AuditHandler
	HealthHandler      *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.AllowedOrigins))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/health", cfg.HealthHandler.Health)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	// Customer-facing
	if cfg.ApplicationHandler != nil {
		r.POST("/applications", cfg.ApplicationHandler.Submit)
		r.GET("/applications/:id", cfg.ApplicationHandler.Get)
		r.POST("/inquiry", cfg.ApplicationHandler.Inquiry)
		r.POST("/decisions/evaluate", cfg.ApplicationHandler.Evaluate)
	}

	employee := r.Group("/")
	{
		// Middleware
		if cfg.ReviewerAuth != nil {
			employee.Use(cfg.ReviewerAuth.RequireReviewer())
		}

		// Review queue
		if cfg.ApplicationHandler != nil {
			employee.GET("/applications", cfg.ApplicationHandler.List)
			employee.POST("/applications/:id/review", cfg.ApplicationHandler.Review)
			employee.PUT("/applications/:id/explanation", cfg.ApplicationHandler.EditExplanation)
			employee.GET("/applications/:id/calls", cfg.ApplicationHandler.CallLogs)
		}

		// Policies
		if cfg.PolicyHandler != nil {
			employee.POST("/policies", cfg.PolicyHandler.Add)
			employee.GET("/policies", cfg.PolicyHandler.List)
			employee.POST("/policies/upload", cfg.PolicyHandler.Upload)
			employee.DELETE("/policies/:domain/:id", cfg.PolicyHandler.Delete)
		}

		// Bulk
		if cfg.BulkHandler != nil {
			employee.POST("/bulk/upload", cfg.BulkHandler.Upload)
		}

		// Audit
		if cfg.AuditHandler != nil {
			employee.GET("/audit-log", cfg.AuditHandler.Export)
			employee.POST("/audit-log/import", cfg.AuditHandler.Import)
		}
	}

	return r
}
