package main

import (
	"wallet_ledger/internal/config" // Configuration
	"wallet_ledger/internal/db"     // Database connection and migration

	"github.com/sirupsen/logrus" // Logging library
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	if cfg.DBDriver == config.DriverMemory {
		logrus.Info("Memory driver selected, nothing to migrate")
		return
	}
	gdb, err := db.Open(cfg) // Connect using DB_DRIVER
	if err != nil {
		logrus.Fatalf("failed to connect to database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("%v", err)
	}
}
