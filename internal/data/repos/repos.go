package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/xai-decision-backend/internal/data/repos/decisions"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

type ApplicationRepo = decisions.ApplicationRepo
type ApplicationFilter = decisions.ApplicationFilter
type PolicyRepo = decisions.PolicyRepo
type ModelCallLogRepo = decisions.ModelCallLogRepo

type Repos struct {
	Applications ApplicationRepo
	Policies     PolicyRepo
	CallLogs     ModelCallLogRepo
}

// NewGorm wires the gorm-backed stores.
func NewGorm(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Applications: decisions.NewApplicationRepo(db, log),
		Policies:     decisions.NewPolicyRepo(db, log),
		CallLogs:     decisions.NewModelCallLogRepo(db, log),
	}
}

// NewMemory wires process-local stores (DB_DRIVER=memory and tests).
func NewMemory() Repos {
	return Repos{
		Applications: decisions.NewMemoryApplicationRepo(),
		Policies:     decisions.NewMemoryPolicyRepo(),
		CallLogs:     decisions.NewMemoryModelCallLogRepo(),
	}
}
