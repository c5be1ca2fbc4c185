package aggregates

import (
	"strings"

	"github.com/google/uuid"
	domainagg "github.com/yungbote/xai-decision-backend/internal/domain/aggregates"
	"github.com/yungbote/xai-decision-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

// CASGuard provides compare-and-set helpers for record writes.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Context()), nil
	}
	if g.db != nil {
		return g.db.WithContext(dbc.Context()), nil
	}
	return nil, domainagg.NewError(domainagg.CodeInternal, "cas", "missing db handle", nil)
}

// UpdateByStatusAndVersion updates a row only when its status is still one
// of allowedStatuses and its version still equals expectedVersion. The
// version is bumped in the same statement. false means another writer got
// there first.
func (g CASGuard) UpdateByStatusAndVersion(dbc dbctx.Context, table string, id uuid.UUID, allowedStatuses []string, expectedVersion int, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	if table == "" || id == uuid.Nil {
		return false, domainagg.NewError(domainagg.CodeValidation, "cas", "table and id are required", nil)
	}
	if len(allowedStatuses) == 0 {
		return false, domainagg.NewError(domainagg.CodeValidation, "cas", "allowedStatuses must not be empty", nil)
	}
	set := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		set[k] = v
	}
	set["version"] = expectedVersion + 1
	res := db.Table(table).
		Where("id = ? AND status IN ? AND version = ?", id, allowedStatuses, expectedVersion).
		Updates(set)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RequireCASSuccess converts a lost compare-and-set into invalid_state
// wrapping cause.
func RequireCASSuccess(ok bool, op, message string, cause error) error {
	if ok {
		return nil
	}
	return domainagg.NewError(domainagg.CodeInvalidState, op, strings.TrimSpace(message), cause)
}
