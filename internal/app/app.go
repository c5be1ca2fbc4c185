package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/xai-decision-backend/internal/domain/decisions"
	"github.com/yungbote/xai-decision-backend/internal/http"
	"github.com/yungbote/xai-decision-backend/internal/observability"
	"github.com/yungbote/xai-decision-backend/internal/platform/dbctx"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Router   *gin.Engine
	Clients  Clients
	Storage  Storage
	Services Services
	Metrics  *observability.Metrics

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)
	if logMode == "production" || logMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)
	metrics := observability.Init(log, cfg.MetricsEnabled)

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	storage, err := wireStorage(log, cfg.DB)
	if err != nil {
		clients.Close()
		log.Sync()
		return nil, err
	}
	serviceset, err := wireServices(log, cfg, clients, storage)
	if err != nil {
		storage.Close()
		clients.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, cfg, serviceset)
	middleware := wireMiddleware(log, cfg)
	router := wireRouter(log, cfg, metrics, handlerset, middleware)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Router:       router,
		Clients:      clients,
		Storage:      storage,
		Services:     serviceset,
		Metrics:      metrics,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the AI stage worker (which re-enqueues stranded pending_ai
// records) and the metrics collectors.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Services.AIWorker != nil {
		a.Services.AIWorker.Start(ctx)
	}
	if a.Metrics != nil {
		apps := a.Storage.Repos.Applications
		statuses := []string{string(decisions.StatusPendingAI), string(decisions.StatusPendingHuman), string(decisions.StatusCompleted)}
		a.Metrics.StartStatusCollector(ctx, a.Log, 15*time.Second, statuses, func(ctx context.Context) (map[string]int64, error) {
			counts, err := apps.CountByStatus(dbctx.From(ctx))
			if err != nil {
				return nil, err
			}
			out := make(map[string]int64, len(counts))
			for s, n := range counts {
				out[string(s)] = n
			}
			return out, nil
		})
		if a.Clients.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, 15*time.Second, a.Clients.Redis)
		}
	}
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context, addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", addr)
	srv := &http.Server{Engine: a.Router}
	return srv.Run(ctx, addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		if a.Services.AIWorker != nil {
			a.Services.AIWorker.Wait()
		}
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	a.Storage.Close()
	a.Clients.Close()
	if a.Log != nil {
		a.Log.Sync()
	}
}
