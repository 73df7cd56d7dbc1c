package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"neosocial/internal/config"
	"neosocial/internal/models"
)

// InitDB opens the relational database that holds group posts.
func InitDB(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Type {
	case "postgres":
		var dsnParts []string
		dsnParts = append(dsnParts, fmt.Sprintf("host=%s", cfg.Host))
		dsnParts = append(dsnParts, fmt.Sprintf("port=%d", cfg.Port))
		dsnParts = append(dsnParts, fmt.Sprintf("user=%s", cfg.User))
		dsnParts = append(dsnParts, fmt.Sprintf("dbname=%s", cfg.DBName))
		if cfg.Password != "" {
			dsnParts = append(dsnParts, fmt.Sprintf("password=%s", cfg.Password))
		}
		dsnParts = append(dsnParts, fmt.Sprintf("sslmode=%s", cfg.SSLMode))
		dialector = postgres.Open(strings.Join(dsnParts, " "))
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	// GORM 日志写入 zap
	gormLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("database connected", zap.String("type", cfg.Type))
	return db, nil
}

// AutoMigrateTables runs GORM's auto-migration for the post tables.
func AutoMigrateTables(db *gorm.DB, log *zap.Logger) error {
	if err := db.AutoMigrate(&models.Post{}); err != nil {
		log.Error("database migration failed", zap.Error(err))
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Info("database migration completed")
	return nil
}

// InitGraphStore opens the configured GraphStore and, if asked, ensures its schema.
func InitGraphStore(ctx context.Context, cfg config.GraphConfig, log *zap.Logger) (GraphStore, error) {
	var (
		store GraphStore
		err   error
	)

	switch cfg.Type {
	case "neo4j", "":
		store, err = NewNeo4jGraphStore(ctx, cfg, log.Named("graph"))
		if err != nil {
			return nil, err
		}
	case "memory":
		log.Warn("using in-memory graph store; data will not survive a restart")
		store = NewMemoryGraphStore()
	default:
		return nil, fmt.Errorf("unsupported graph store type: %s", cfg.Type)
	}

	if cfg.EnsureSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
	}
	return store, nil
}
