package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/repository"
)

// OpenSQLite opens the device-local face database and brings its schema up to
// date. WAL mode lets recognition scans run while an enrollment writes.
func OpenSQLite(path string, logger *slog.Logger) (*gorm.DB, error) {
	if !isMemoryDSN(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	gl := gormlogger.New(
		slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(sqlite.Open(path+dsnParams(path)), &gorm.Config{
		Logger: gl,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB: %w", err)
	}
	if isMemoryDSN(path) {
		// every pooled connection to :memory: would be a separate database
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(8)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := AutoMigrateSQLite(db); err != nil {
		return nil, err
	}

	return db, nil
}

func AutoMigrateSQLite(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&repository.FaceModel{},
		&repository.RecognitionAuditModel{},
	); err != nil {
		return fmt.Errorf("sqlite auto migrate: %w", err)
	}
	return nil
}

func isMemoryDSN(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

func dsnParams(path string) string {
	if isMemoryDSN(path) {
		return ""
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return sep + "_journal_mode=WAL&_busy_timeout=5000"
}
