package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/xai-decision-backend/internal/domain/decisions"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
	"github.com/yungbote/xai-decision-backend/internal/services"
)

type Services struct {
	Engine       services.DecisionEngine
	Applications services.ApplicationService
	Policies     services.PolicyService
	Bulk         services.BulkIngestService
	Audit        services.AuditService
	Health       services.HealthService
	AIWorker     *services.AIStageWorker
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, storage Storage) (Services, error) {
	log.Info("Wiring services...")

	schemas, err := loadSchemas(cfg.DomainSchemaPath)
	if err != nil {
		return Services{}, err
	}

	var cache services.ResultCache = services.NewMemoryCache(cfg.CacheMaxEntries, cfg.CacheTTL)
	if clients.Redis != nil {
		cache = services.NewRedisCache(clients.Redis, log, cfg.CacheTTL)
	}

	fast := cfg.FastMode || clients.Model == nil
	eng := services.NewDecisionEngine(log, clients.Model, cache, storage.Repos, services.DecisionEngineConfig{
		FastMode:     fast,
		HistoryLimit: cfg.PromptHistoryLimit,
	})
	apps := services.NewApplicationService(log, storage.Repos, schemas, eng)
	worker := services.NewAIStageWorker(log, apps, storage.Repos.Applications, services.AIStageWorkerConfig{
		Concurrency:   cfg.AIWorkerConcurrency,
		SweepInterval: cfg.AIWorkerSweep,
	})
	apps.SetDispatcher(worker)

	return Services{
		Engine:       eng,
		Applications: apps,
		Policies:     services.NewPolicyService(log, storage.Repos.Policies, storage.Tx),
		Bulk: services.NewBulkIngestService(log, apps, services.BulkConfig{
			Concurrency: cfg.BulkConcurrency,
			MaxRows:     cfg.BulkMaxRows,
		}),
		Audit:    services.NewAuditService(log, storage.Repos.Applications, storage.Tx),
		Health:   services.NewHealthService(log, clients.Model, storage.Repos, fast),
		AIWorker: worker,
	}, nil
}

func loadSchemas(path string) (*decisions.Schemas, error) {
	if strings.TrimSpace(path) == "" {
		return decisions.DefaultSchemas()
	}
	s, err := decisions.LoadSchemas(path)
	if err != nil {
		return nil, fmt.Errorf("load domain schemas: %w", err)
	}
	return s, nil
}
