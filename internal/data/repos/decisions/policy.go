package decisions

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	dataagg "github.com/yungbote/xai-decision-backend/internal/data/aggregates"
	types "github.com/yungbote/xai-decision-backend/internal/domain/decisions"
	"github.com/yungbote/xai-decision-backend/internal/platform/dbctx"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

// PolicyRepo is the policy store. List returns entries in insertion order.
type PolicyRepo interface {
	Create(dbc dbctx.Context, entries []*types.PolicyEntry) error
	List(dbc dbctx.Context, domains ...types.Domain) ([]*types.PolicyEntry, error)
	Delete(dbc dbctx.Context, domain types.Domain, id uuid.UUID) (bool, error)
}

type policyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPolicyRepo(db *gorm.DB, baseLog *logger.Logger) PolicyRepo {
	return &policyRepo{
		db:  db,
		log: baseLog.With("repo", "PolicyRepo"),
	}
}

func (r *policyRepo) Create(dbc dbctx.Context, entries []*types.PolicyEntry) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(entries) == 0 {
		return nil
	}
	if err := transaction.WithContext(dbc.Context()).Create(&entries).Error; err != nil {
		return dataagg.MapError("policies.create", err)
	}
	return nil
}

func (r *policyRepo) List(dbc dbctx.Context, domains ...types.Domain) ([]*types.PolicyEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Context()).Model(&types.PolicyEntry{})
	if len(domains) > 0 {
		names := make([]string, 0, len(domains))
		for _, d := range domains {
			names = append(names, string(d))
		}
		q = q.Where("domain IN ?", names)
	}
	var out []*types.PolicyEntry
	if err := q.Order("created_at ASC").Order("id ASC").Find(&out).Error; err != nil {
		return nil, dataagg.MapError("policies.list", err)
	}
	return out, nil
}

func (r *policyRepo) Delete(dbc dbctx.Context, domain types.Domain, id uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Context()).
		Where("id = ? AND domain = ?", id, string(domain)).
		Delete(&types.PolicyEntry{})
	if res.Error != nil {
		return false, dataagg.MapError("policies.delete", res.Error)
	}
	return res.RowsAffected > 0, nil
}
