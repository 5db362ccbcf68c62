package testutil

import (
	"os"
	"sync"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/songcatalog-backend/internal/data/db"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

var (
	dbOnce sync.Once
	testDB *gorm.DB
	dbErr  error
)

// Logger returns a discarding logger; set TEST_LOG=1 to see output.
func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	if os.Getenv("TEST_LOG") == "" {
		return logger.Nop()
	}
	l, err := logger.New("test")
	if err != nil {
		tb.Fatalf("failed to init logger: %v", err)
	}
	return l
}

// DB opens the shared test database: Postgres when TEST_POSTGRES_DSN is set,
// otherwise an in-memory SQLite database. Tables are migrated once.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbOnce.Do(func() {
		cfg := &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			TranslateError:                           true,
			Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		}

		var dialector gorm.Dialector
		if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
			dialector = postgres.Open(dsn)
		} else {
			dialector = sqlite.Open("file:songcatalog_test?mode=memory&cache=shared")
		}

		var err error
		testDB, err = gorm.Open(dialector, cfg)
		if err != nil {
			dbErr = err
			return
		}
		if sqlDB, err := testDB.DB(); err == nil && os.Getenv("TEST_POSTGRES_DSN") == "" {
			// one connection keeps the in-memory database alive and
			// serializes the per-test transactions
			sqlDB.SetMaxOpenConns(1)
		}
		dbErr = db.AutoMigrateAll(testDB)
	})

	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return testDB
}

func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}
