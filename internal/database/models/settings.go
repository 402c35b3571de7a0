package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/threadkeep/threadkeep/internal/database/dbretry"
	"github.com/threadkeep/threadkeep/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// SettingsModel handles database operations for per-user server settings.
type SettingsModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewSettings creates a new settings model.
func NewSettings(db *bun.DB, logger *zap.Logger) *SettingsModel {
	return &SettingsModel{
		db:     db,
		logger: logger.Named("db_settings"),
	}
}

// Find returns the settings row for (user, server), or nil if no row exists.
func (m *SettingsModel) Find(
	ctx context.Context, userID, serverID snowflake.ID,
) (*types.UserServerSettings, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.UserServerSettings, error) {
		settings := new(types.UserServerSettings)

		err := m.db.NewSelect().
			Model(settings).
			Where("user_id = ?", userID).
			Where("server_id = ?", serverID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}

			return nil, fmt.Errorf("failed to find user server settings: %w", err)
		}

		return settings, nil
	})
}

// Create inserts a new settings row.
func (m *SettingsModel) Create(ctx context.Context, settings *types.UserServerSettings) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(settings).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create user server settings: %w", err)
		}

		m.logger.Debug("Created user server settings",
			zap.Uint64("userID", uint64(settings.UserID)),
			zap.Uint64("serverID", uint64(settings.ServerID)))

		return nil
	})
}

// Update replaces an existing settings row.
func (m *SettingsModel) Update(ctx context.Context, settings *types.UserServerSettings) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model(settings).
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update user server settings: %w", err)
		}

		return nil
	})
}
