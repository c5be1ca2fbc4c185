package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/xai-decision-backend/internal/data/aggregates"
	"github.com/yungbote/xai-decision-backend/internal/data/db"
	"github.com/yungbote/xai-decision-backend/internal/data/repos"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

// Storage is the record store plus the handle that owns it. DB is nil for
// the in-memory driver.
type Storage struct {
	DB    *db.Service
	Repos repos.Repos
	Tx    aggregates.TxRunner
}

func wireStorage(log *logger.Logger, cfg db.Config) (Storage, error) {
	log.Info("Wiring repos...", "driver", cfg.Driver)
	if strings.EqualFold(cfg.Driver, db.DriverMemory) {
		return Storage{Repos: repos.NewMemory(), Tx: aggregates.NoopTxRunner{}}, nil
	}
	svc, err := db.NewService(cfg, log)
	if err != nil {
		return Storage{}, fmt.Errorf("init database: %w", err)
	}
	if err := svc.AutoMigrateAll(); err != nil {
		_ = svc.Close()
		return Storage{}, fmt.Errorf("automigrate: %w", err)
	}
	return Storage{
		DB:    svc,
		Repos: repos.NewGorm(svc.DB(), log),
		Tx:    aggregates.NewGormTxRunner(svc.DB()),
	}, nil
}

func (s *Storage) Close() {
	if s == nil || s.DB == nil {
		return
	}
	_ = s.DB.Close()
}
