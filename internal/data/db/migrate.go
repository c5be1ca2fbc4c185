package db

import (
	"fmt"

	"github.com/yungbote/xai-decision-backend/internal/domain/decisions"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&decisions.Application{},
		&decisions.PolicyEntry{},
		&decisions.ModelCallLog{},
	)
}

// EnsureDecisionIndexes adds the composite indexes the list and history
// queries rely on. Valid on both sqlite and postgres.
func EnsureDecisionIndexes(db *gorm.DB) error {
	stmts := []struct{ name, sql string }{
		{"idx_application_domain_status_created", `CREATE INDEX IF NOT EXISTS idx_application_domain_status_created ON application(domain, status, created_at);`},
		{"idx_application_status_created", `CREATE INDEX IF NOT EXISTS idx_application_status_created ON application(status, created_at);`},
		{"idx_policy_entry_domain_created", `CREATE INDEX IF NOT EXISTS idx_policy_entry_domain_created ON policy_entry(domain, created_at);`},
	}
	for _, st := range stmts {
		if err := db.Exec(st.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", st.name, err)
		}
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureDecisionIndexes(s.db); err != nil {
		s.log.Error("Index migration failed", "error", err)
		return err
	}
	return nil
}
