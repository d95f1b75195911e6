package db

import (
	"fmt" // Error formatting

	"wallet_ledger/internal/config" // Configuration
	"wallet_ledger/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Structured logging
	"gorm.io/driver/mysql"       // MySQL driver for GORM
	"gorm.io/driver/postgres"    // Postgres driver for GORM
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/logger"        // GORM logger levels
)

// Models lists every table owned by the ledger, in dependency order
var Models = []any{&domain.User{}, &domain.Wallet{}, &domain.Transaction{}, &domain.IdempotencyRecord{}}

// Open connects to the database selected by cfg.DBDriver
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector // Driver specific dialector
	switch cfg.DBDriver {
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.MySQLDSN()) // MySQL connection
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.PostgresDSN()) // Postgres connection
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
	gormCfg := &gorm.Config{
		TranslateError: true, // Map unique violations to gorm.ErrDuplicatedKey
	}
	// Keep SQL logging quiet in production
	if cfg.IsProd {
		gormCfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	return gorm.Open(dialector, gormCfg)
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}
