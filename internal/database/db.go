package database

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"workforce-monitor/internal/models"
)

// The partial unique index is what makes "one active session per user"
// hold under concurrent starts.
const activeSessionIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_one_active_session
	ON monitoring_sessions(user_id) WHERE status = 'active'`

// Open connects to the sqlite file at path and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(8)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	slog.Info("database ready", "path", path)
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.ConsentRecord{},
		&models.MonitoringSession{},
		&models.Screenshot{},
		&models.HourlyReport{},
	)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	if err := db.Exec(activeSessionIndex).Error; err != nil {
		return fmt.Errorf("create active session index: %w", err)
	}
	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// dsn adds WAL and a busy timeout so concurrent writers wait instead of
// failing with SQLITE_BUSY. Transactions begin IMMEDIATE so a
// check-then-insert holds the write lock from its first read.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate"
}
