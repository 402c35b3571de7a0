package models

import (
	"context"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/threadkeep/threadkeep/internal/database/dbretry"
	"github.com/threadkeep/threadkeep/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// IgnoredModel handles database operations for globally opted-out accounts.
type IgnoredModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewIgnored creates a new ignored account model.
func NewIgnored(db *bun.DB, logger *zap.Logger) *IgnoredModel {
	return &IgnoredModel{
		db:     db,
		logger: logger.Named("db_ignored"),
	}
}

// IsIgnored checks whether the user has globally opted out.
func (m *IgnoredModel) IsIgnored(ctx context.Context, userID snowflake.ID) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		exists, err := m.db.NewSelect().
			Model((*types.IgnoredAccount)(nil)).
			Where("user_id = ?", userID).
			Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check ignored account: %w", err)
		}

		return exists, nil
	})
}

// Add records a global opt-out for the user and purges their per-server
// settings rows in the same transaction. Adding twice is a no-op.
func (m *IgnoredModel) Add(ctx context.Context, userID snowflake.ID) error {
	return dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&types.IgnoredAccount{UserID: userID}).
			On("CONFLICT (user_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to add ignored account: %w", err)
		}

		_, err = tx.NewDelete().
			Model((*types.UserServerSettings)(nil)).
			Where("user_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to purge user settings: %w", err)
		}

		m.logger.Debug("Added ignored account", zap.Uint64("userID", uint64(userID)))

		return nil
	})
}

// Remove lifts a user's global opt-out.
func (m *IgnoredModel) Remove(ctx context.Context, userID snowflake.ID) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewDelete().
			Model((*types.IgnoredAccount)(nil)).
			Where("user_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to remove ignored account: %w", err)
		}

		return nil
	})
}
