package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"taskflow-backend/pkg/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection opens postgres when DATABASE_URL is set, otherwise a sqlite file
func NewConnection(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	if cfg.DatabaseURL != "" {
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		log.Printf("[Store] Connected to postgres")
		return db, nil
	}

	path := cfg.DatabasePath
	if path == "" {
		path = "taskflow.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return NewSQLiteConnection(path)
}

// NewSQLiteConnection opens a sqlite database file with foreign keys enforced
func NewSQLiteConnection(path string) (*gorm.DB, error) {
	dsn := path + "?_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	log.Printf("[Store] Opened sqlite database %s", path)
	return db, nil
}
