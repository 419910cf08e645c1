package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/avray/go-dating-backend/internal/domain"
	"github.com/avray/go-dating-backend/internal/repo"
)

// newServiceDB opens a throwaway SQLite database with the full schema.
func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// seedUser inserts a user and returns it.
func seedUser(t *testing.T, db *gorm.DB, handle, kind string) *domain.User {
	t.Helper()
	u := &domain.User{Handle: handle, DisplayName: handle, Kind: kind, Active: true}
	if err := repo.CreateUser(context.Background(), db, u); err != nil {
		t.Fatalf("seed user %s: %v", handle, err)
	}
	return u
}

// counters reloads a user and returns (likes, matches, rejects).
func counters(t *testing.T, db *gorm.DB, id string) (int, int, int) {
	t.Helper()
	u, err := repo.GetUser(context.Background(), db, id)
	if err != nil {
		t.Fatalf("reload user %s: %v", id, err)
	}
	return u.TotalLikes, u.TotalMatches, u.TotalRejects
}

// edgeAction returns the stored action of the (actor, target) edge, or
// "" when the edge does not exist.
func edgeAction(t *testing.T, db *gorm.DB, actor, target string) string {
	t.Helper()
	e, err := repo.GetEdge(context.Background(), db, actor, target)
	if err != nil {
		return domain.ActionNone
	}
	return e.Action
}
