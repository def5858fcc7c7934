package alerts

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oshokin/safety-relay/internal/config"
	"github.com/oshokin/safety-relay/internal/logger"
)

// Open connects to the configured database and migrates the schema.
func Open(ctx context.Context, settings config.Store) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch settings.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(settings.DSN)
	case config.DriverSQLite, "":
		dialector = sqlite.Open(settings.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", settings.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", settings.Driver, err)
	}

	if settings.Driver != config.DriverPostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql handle: %w", err)
		}

		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(ctx, db); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Alert store ready", "driver", settings.Driver)

	return db, nil
}

// Migrate creates or updates the tables used by the store.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(new(alertRecord), new(recordingRecord)); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql handle: %w", err)
	}

	return sqlDB.Close()
}
