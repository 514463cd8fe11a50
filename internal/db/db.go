// Package db provides database connectivity and operations
package db

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hanulsoft/blogpilot/internal/db/models"
)

// DefaultSQLitePath is the default location of the single-user database
const DefaultSQLitePath = "data/blogpilot.db"

// Options represents database connection configuration options
type Options struct {
	// SQLitePath is the sqlite database file path, used when DSN is empty
	SQLitePath string
	// DSN is a postgres connection string for shared deployments
	DSN string
	// LogLevel controls gorm query logging
	LogLevel logger.LogLevel
}

// New creates a new database connection with the given options
func New(opts Options) (*gorm.DB, error) {
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			LogLevel:                  opts.LogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	var dialector gorm.Dialector
	if opts.DSN != "" {
		dialector = postgres.Open(opts.DSN)
	} else {
		path := opts.SQLitePath
		if path == "" {
			path = DefaultSQLitePath
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(path)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

// Migrate runs the schema migrations
func Migrate(db *gorm.DB) error {
	if err := models.MigrateAll(db); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
