package decisions

import (
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dataagg "github.com/yungbote/xai-decision-backend/internal/data/aggregates"
	types "github.com/yungbote/xai-decision-backend/internal/domain/decisions"
	"github.com/yungbote/xai-decision-backend/internal/platform/dbctx"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

type ModelCallLogRepo interface {
	Create(dbc dbctx.Context, entry *types.ModelCallLog) error
	ListByApplication(dbc dbctx.Context, applicationID uuid.UUID) ([]*types.ModelCallLog, error)
}

type modelCallLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModelCallLogRepo(db *gorm.DB, baseLog *logger.Logger) ModelCallLogRepo {
	return &modelCallLogRepo{
		db:  db,
		log: baseLog.With("repo", "ModelCallLogRepo"),
	}
}

func (r *modelCallLogRepo) Create(dbc dbctx.Context, entry *types.ModelCallLog) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if entry == nil {
		return nil
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if err := transaction.WithContext(dbc.Context()).Create(entry).Error; err != nil {
		return dataagg.MapError("call_logs.create", err)
	}
	return nil
}

func (r *modelCallLogRepo) ListByApplication(dbc dbctx.Context, applicationID uuid.UUID) ([]*types.ModelCallLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ModelCallLog
	err := transaction.WithContext(dbc.Context()).
		Where("application_id = ?", applicationID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, dataagg.MapError("call_logs.list", err)
	}
	return out, nil
}

type MemoryModelCallLogRepo struct {
	mu      sync.Mutex
	entries []types.ModelCallLog
}

func NewMemoryModelCallLogRepo() *MemoryModelCallLogRepo {
	return &MemoryModelCallLogRepo{}
}

func (r *MemoryModelCallLogRepo) Create(_ dbctx.Context, entry *types.ModelCallLog) error {
	if entry == nil {
		return nil
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.mu.Lock()
	r.entries = append(r.entries, *entry)
	r.mu.Unlock()
	return nil
}

func (r *MemoryModelCallLogRepo) ListByApplication(_ dbctx.Context, applicationID uuid.UUID) ([]*types.ModelCallLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.ModelCallLog
	for i := range r.entries {
		e := r.entries[i]
		if e.ApplicationID != nil && *e.ApplicationID == applicationID {
			out = append(out, &e)
		}
	}
	return out, nil
}
