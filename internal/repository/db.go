package repository

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sketchgen/capprep/internal/config"
	"github.com/sketchgen/capprep/internal/domain"
	"github.com/sketchgen/capprep/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// InitDB opens the catalog database and migrates the domain models.
// SQLite is the default; postgres is selected by config for shared
// deployments.
func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var dialector gorm.Dialector
	usePostgres := cfg.Driver == "postgres"

	if usePostgres {
		// PreferSimpleProtocol keeps transaction poolers working by
		// avoiding implicit prepared statements
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.DSN(),
			PreferSimpleProtocol: true,
		})
	} else {
		if cfg.Driver != "" && cfg.Driver != "sqlite" {
			logger.Warn("Unknown database driver %q, using sqlite", cfg.Driver)
		}
		if cfg.Path != "" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.DSN())
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if !usePostgres {
		// WAL mode so the api server can read while a batch command writes
		db.Exec("PRAGMA journal_mode=WAL")
		db.Exec("PRAGMA foreign_keys=ON")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(
			&domain.CaptionPair{},
			&domain.PrepRun{},
			&domain.GeneratedCaption{},
			&domain.CaptionSource{},
			&domain.VLMCaption{},
			&domain.CaptionVector{},
		); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return db, nil
}
