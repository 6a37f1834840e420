package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/andrewpaige1/studyplan-api/logger"
	"github.com/andrewpaige1/studyplan-api/models"
)

// Connect opens the configured database and migrates every model.
func Connect(env Environment) (*gorm.DB, error) {
	gormLogger, levelErr := newGormLogger(env.GormLogLevel)
	if levelErr != nil {
		logger.Error("invalid gorm log level", "value", env.GormLogLevel, "error", levelErr)
	}

	var dialector gorm.Dialector
	switch env.DBDriver {
	case "postgres":
		dialector = postgres.Open(env.DBURL)
	default:
		if err := ensureDirForSQLite(env.DBURL); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(env.DBURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate db: %w", err)
	}
	return nil
}

func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
