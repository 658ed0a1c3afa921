package database

import (
	"fmt"
	"time"

	"github.com/lgcert/indigene-certificate/config"
	"github.com/lgcert/indigene-certificate/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect opens the Postgres pool and stores it in DB.
func Connect(cfg *config.Config, log *logger.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode,
	)

	gormLog := gormlogger.Default.LogMode(gormlogger.Warn)
	if cfg.Environment == "production" {
		gormLog = gormlogger.Default.LogMode(gormlogger.Error)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Infof("connected to postgres %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
	DB = db
	return db, nil
}
