package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

type Migration struct {
	ID        uint   `gorm:"primaryKey"`
	Version   string `gorm:"uniqueIndex;size:255"`
	AppliedAt time.Time
}

// RunMigrations applies SQL files from dir in name order, once each. Files named
// "<name>.<dialect>.sql" only run against that dialect ("postgres", "mysql", "sqlite",
// "sqlserver"); plain "<name>.sql" files run everywhere.
func RunMigrations(db *gorm.DB, dir string) error {
	if err := db.AutoMigrate(&Migration{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}
	sort.Strings(files)

	dialect := db.Dialector.Name()

	for _, file := range files {
		filename := filepath.Base(file)
		if !appliesTo(filename, dialect) {
			continue
		}

		var existing Migration
		if err := db.Where("version = ?", filename).First(&existing).Error; err == nil {
			log.Printf("⏭️  Skipping migration: %s (already applied)", filename)
			continue
		}

		sqlContent, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", filename, err)
		}

		log.Printf("▶️  Applying migration: %s", filename)
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(string(sqlContent)).Error; err != nil {
				return err
			}
			return tx.Create(&Migration{Version: filename, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}

		log.Printf("✅ Applied migration: %s", filename)
	}

	return nil
}

func appliesTo(filename, dialect string) bool {
	base := strings.TrimSuffix(filename, ".sql")
	ext := filepath.Ext(base)
	if ext == "" {
		return true
	}
	switch target := strings.TrimPrefix(ext, "."); target {
	case "postgres", "mysql", "sqlite", "sqlserver":
		return target == dialect
	default:
		return true
	}
}
