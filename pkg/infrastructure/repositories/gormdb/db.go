package gormdb

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vsinha/fuelrecon/pkg/infrastructure/logger"
)

// Options selects and tunes the database connection
type Options struct {
	Driver          string // sqlite or postgres
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
}

// Open connects to the configured database and migrates the schema
func Open(opts Options, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var dialector gorm.Dialector
	switch opts.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(opts.DSN)
	case "postgres":
		dialector = postgres.Open(opts.DSN)
	default:
		return nil, errors.Errorf("unsupported database driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLogger(log, opts.LogLevel),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get database handle")
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("database ready", zap.String("driver", dialector.Name()))
	return db, nil
}

// Migrate creates or updates every table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return errors.Wrap(err, "failed to migrate schema")
	}
	return nil
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
