package testutil

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/xai-decision-backend/internal/data/db"
	"github.com/yungbote/xai-decision-backend/internal/platform/dbctx"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := logger.New("test")
	if err != nil {
		tb.Fatalf("logger: %v", err)
	}
	return log
}

// DB opens a migrated in-memory sqlite database. The test is skipped when
// the sqlite driver is unavailable (e.g. CGO disabled).
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Skipf("sqlite unavailable: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		tb.Skipf("sqlite unavailable: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		tb.Skipf("sqlite unavailable: %v", err)
	}
	// one connection, so every query sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrateAll(gdb); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	if err := db.EnsureDecisionIndexes(gdb); err != nil {
		tb.Fatalf("indexes: %v", err)
	}
	return gdb
}

func DBC() dbctx.Context {
	return dbctx.Context{Ctx: context.Background()}
}
