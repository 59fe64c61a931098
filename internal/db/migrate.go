package db

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/diewo77/invoicer/internal/config"
	"github.com/diewo77/invoicer/internal/models"
)

// Tables created by Migrate.
var Tables = []string{"client_templates", "invoice_history", "logo_settings"}

// Migrate creates or updates all tables. It is safe to run on every start.
func Migrate(db *gorm.DB) error {
	for _, m := range models.All() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return checkTables(db)
}

// Setup brings the schema up to date, through the embedded SQL migrations
// when enabled (PostgreSQL only) and AutoMigrate otherwise.
func Setup(db *gorm.DB, cfg config.DatabaseConfig) error {
	if cfg.SQLMigrations && cfg.Driver == config.DriverPostgres {
		if err := RunSQLMigrations(cfg.MigrateURL()); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		return checkTables(db)
	}
	return Migrate(db)
}

func checkTables(db *gorm.DB) error {
	for _, table := range Tables {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}
