package config

import (
	"context"
	"fmt"
	"time"

	"novel-forge/backend/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	connectRetries = 5
	connectDelay   = 2 * time.Second
)

// NewDB opens the postgres pool and pings it, retrying while the database
// comes up. ctx bounds the whole attempt.
func NewDB(ctx context.Context, cfg *Config, log *logger.Logger) (*gorm.DB, error) {
	level := gormlogger.Error
	if cfg.IsDevelopment() {
		level = gormlogger.Info
	}
	gormConfig := &gorm.Config{Logger: gormlogger.Default.LogMode(level)}

	var lastErr error
	for attempt := 1; attempt <= connectRetries; attempt++ {
		db, err := open(ctx, cfg.Database, gormConfig)
		if err == nil {
			return db, nil
		}
		lastErr = err
		log.Warn("Database not reachable", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect to database: %w", ctx.Err())
		case <-time.After(connectDelay):
		}
	}
	return nil, fmt.Errorf("connect to database after %d attempts: %w", connectRetries, lastErr)
}

func open(ctx context.Context, dbCfg DatabaseConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dbCfg.DSN()), gormConfig)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	sqlDB.SetMaxOpenConns(dbCfg.MaxConns)
	sqlDB.SetMaxIdleConns(min(dbCfg.MaxConns, 10))
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	return db, nil
}
