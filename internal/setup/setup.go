// Package setup bootstraps the application's shared dependencies.
package setup

import (
	"context"

	"github.com/threadkeep/threadkeep/internal/database"
	"github.com/threadkeep/threadkeep/internal/setup/config"
	"github.com/threadkeep/threadkeep/internal/setup/logging"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
type App struct {
	Config   *config.Config  // Application configuration
	Logger   *zap.Logger     // Main application logger
	DBLogger *zap.Logger     // Database-specific logger
	DB       database.Client // Database connection pool
}

// InitializeApp bootstraps all application dependencies in the correct
// order, ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, logDir string) (*App, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging is initialized first to capture setup issues
	logger, dbLogger, err := logging.SetupLogging(logDir, cfg.Debug.LogLevel, cfg.Debug.MaxLogsToKeep)
	if err != nil {
		return nil, err
	}

	db, err := database.NewConnection(ctx, &cfg.PostgreSQL, dbLogger, true)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		DBLogger: dbLogger,
		DB:       db,
	}, nil
}

// CleanupApp closes connections and flushes loggers in reverse
// initialization order.
func (a *App) CleanupApp() {
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("Failed to close database connection", zap.Error(err))
	}

	_ = a.Logger.Sync()
	_ = a.DBLogger.Sync()
}
