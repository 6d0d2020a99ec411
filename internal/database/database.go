package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// ConnectionSettings carries the subset of configuration the database layer
// needs. It is filled from the application config and injected here so the
// package holds no ambient environment knowledge beyond its defaults.
type ConnectionSettings struct {
	Type         string // "sqlite" or "postgres"
	Host         string
	Port         int
	Username     string
	Password     string
	Database     string
	DatabasePath string // sqlite only
	LogQueries   bool
}

// Initialize sets up the database connection and migrates the schema.
func Initialize(settings ConnectionSettings) error {
	var err error

	switch settings.Type {
	case "postgres":
		DB, err = connectPostgres(settings)
	case "sqlite", "":
		DB, err = connectSQLite(settings)
	default:
		return fmt.Errorf("unsupported database type: %s", settings.Type)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(DB); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("✅ Database initialized with %s", settings.Type)
	return nil
}

// Migrate creates or updates the schema for every core model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Season{},
		&SeasonGrade{},
		&Episode{},
		&EpisodeDraft{},
		&VideoFile{},
		&DeletingCoverImageFile{},
	)
}

func connectPostgres(settings ConnectionSettings) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		settings.Host, settings.Username, settings.Password, settings.Database, settings.Port)

	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger(settings.LogQueries),
	})
}

func connectSQLite(settings ConnectionSettings) (*gorm.DB, error) {
	dbPath := settings.DatabasePath
	if dbPath == "" {
		dbPath = "/app/data/showline.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	return gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormLogger(settings.LogQueries),
	})
}

func gormLogger(logQueries bool) logger.Interface {
	if logQueries {
		return logger.Default.LogMode(logger.Info)
	}
	return logger.Default.LogMode(logger.Warn)
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
