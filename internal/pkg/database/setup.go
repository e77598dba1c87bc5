package database

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var DB *gorm.DB

// GetDB returns the shared connection, nil before SetupDatabase.
func GetDB() *gorm.DB {
	return DB
}

// SetDB replaces the shared connection (tests, alternative bootstraps).
func SetDB(db *gorm.DB) {
	DB = db
}

// DSN builds the Postgres connection string from the environment.
func DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_USER", "postgres"),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_NAME", "assettracer"),
		env.GetEnv("DB_PORT", "5432"),
		env.GetEnv("DB_SSLMODE", "disable"),
	)
}

func SetupDatabase() {
	var err error
	logLevel := logger.Warn
	if env.IsDev() {
		logLevel = logger.Info
	}

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  DSN(),
			PreferSimpleProtocol: env.GetEnvBool("DB_SIMPLE_PROTOCOL", false), // needed behind pgbouncer in transaction mode
		}), &gorm.Config{Logger: logger.Default.LogMode(logLevel)})
		if err == nil {
			if env.GetEnvBool("DB_AUTOMIGRATE", env.IsDev()) {
				if err := AutoMigrate(DB); err != nil {
					log.Errorf("[Database] Auto migration failed: %v", err)
				}
			}
			if sqlDB, err := DB.DB(); err == nil {
				sqlDB.SetMaxOpenConns(env.GetEnvInt("DB_MAX_OPEN_CONNS", 20))
				sqlDB.SetMaxIdleConns(env.GetEnvInt("DB_MAX_IDLE_CONNS", 5))
				sqlDB.SetConnMaxLifetime(30 * time.Minute)
			}
			return
		}

		log.Warnf("[Database] Failed to connect (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Infof("[Database] Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}

// AutoMigrate creates or updates every table. Production schemas are managed
// by cmd/migrate; this is for dev and tests.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}
