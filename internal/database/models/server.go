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

// ServerModel handles database operations for server records.
type ServerModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewServer creates a new server model.
func NewServer(db *bun.DB, logger *zap.Logger) *ServerModel {
	return &ServerModel{
		db:     db,
		logger: logger.Named("db_server"),
	}
}

// Find returns the server with the given id, or nil if no row exists.
func (m *ServerModel) Find(ctx context.Context, id snowflake.ID) (*types.Server, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Server, error) {
		server := new(types.Server)

		err := m.db.NewSelect().
			Model(server).
			Where("id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}

			return nil, fmt.Errorf("failed to find server: %w", err)
		}

		return server, nil
	})
}

// Create inserts a new server row.
func (m *ServerModel) Create(ctx context.Context, server *types.Server) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(server).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		m.logger.Debug("Created server", zap.Uint64("serverID", uint64(server.ID)))

		return nil
	})
}

// Update replaces an existing server row.
func (m *ServerModel) Update(ctx context.Context, server *types.Server) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model(server).
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update server: %w", err)
		}

		m.logger.Debug("Updated server", zap.Uint64("serverID", uint64(server.ID)))

		return nil
	})
}

// Active returns every server the bot is currently present in.
func (m *ServerModel) Active(ctx context.Context) ([]*types.Server, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Server, error) {
		var servers []*types.Server

		err := m.db.NewSelect().
			Model(&servers).
			Where("kicked_time IS NULL").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to find active servers: %w", err)
		}

		return servers, nil
	})
}
