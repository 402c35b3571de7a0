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

// ChannelModel handles database operations for channel and thread records.
type ChannelModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewChannel creates a new channel model.
func NewChannel(db *bun.DB, logger *zap.Logger) *ChannelModel {
	return &ChannelModel{
		db:     db,
		logger: logger.Named("db_channel"),
	}
}

// Find returns the channel with the given id, or nil if no row exists.
func (m *ChannelModel) Find(ctx context.Context, id snowflake.ID) (*types.Channel, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Channel, error) {
		channel := new(types.Channel)

		err := m.db.NewSelect().
			Model(channel).
			Where("id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}

			return nil, fmt.Errorf("failed to find channel: %w", err)
		}

		return channel, nil
	})
}

// FindByServer returns every stored channel belonging to a server.
func (m *ChannelModel) FindByServer(ctx context.Context, serverID snowflake.ID) ([]*types.Channel, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Channel, error) {
		var channels []*types.Channel

		err := m.db.NewSelect().
			Model(&channels).
			Where("server_id = ?", serverID).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to find server channels: %w", err)
		}

		return channels, nil
	})
}

// Create inserts a new channel row.
func (m *ChannelModel) Create(ctx context.Context, channel *types.Channel) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(channel).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create channel: %w", err)
		}

		m.logger.Debug("Created channel",
			zap.Uint64("channelID", uint64(channel.ID)),
			zap.Uint64("serverID", uint64(channel.ServerID)))

		return nil
	})
}

// Update replaces an existing channel row.
func (m *ChannelModel) Update(ctx context.Context, channel *types.Channel) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model(channel).
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update channel: %w", err)
		}

		return nil
	})
}

// Delete removes a channel row. Deleting an unknown id is not an error.
func (m *ChannelModel) Delete(ctx context.Context, id snowflake.ID) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewDelete().
			Model((*types.Channel)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete channel: %w", err)
		}

		m.logger.Debug("Deleted channel", zap.Uint64("channelID", uint64(id)))

		return nil
	})
}
