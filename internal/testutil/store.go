package testutil

import (
	"path/filepath"
	"testing"

	"taskflow-backend/internal/task/repository"
	"taskflow-backend/pkg/database"

	"gorm.io/gorm"
)

// NewTestDB opens a migrated sqlite database private to the test
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLiteConnection(filepath.Join(t.TempDir(), "taskflow.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// NewTestRepos returns gorm repositories over a fresh sqlite database
func NewTestRepos(t *testing.T) (repository.WorkRepository, repository.TaskRepository) {
	t.Helper()
	db := NewTestDB(t)
	return repository.NewGormWorkRepository(db), repository.NewGormTaskRepository(db)
}
