package aggregates

import (
	"context"

	domainagg "github.com/yungbote/xai-decision-backend/internal/domain/aggregates"
	"github.com/yungbote/xai-decision-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

// TxRunner runs fn inside a single write boundary.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "tx", "transaction runner has nil db", nil)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

// NoopTxRunner is used with the in-memory stores, whose writes are already
// atomic per record.
type NoopTxRunner struct{}

func (NoopTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(dbctx.Context{Ctx: ctx})
}
