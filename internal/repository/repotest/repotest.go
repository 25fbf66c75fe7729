// Package repotest opens throwaway SQLite-backed repositories for tests.
package repotest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/carelink/carewallet/internal/repository"
	"github.com/carelink/carewallet/pkg/logger"
)

// New returns a migrated repository on a private in-memory database. The pool is
// capped at one connection, which serializes transactions the way row locks do on
// PostgreSQL.
func New(t testing.TB) *repository.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), repository.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db, err := repository.New(conn, logger.NewNop())
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
