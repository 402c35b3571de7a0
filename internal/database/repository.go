package database

import (
	"github.com/threadkeep/threadkeep/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	server   *models.ServerModel
	channel  *models.ChannelModel
	settings *models.SettingsModel
	ignored  *models.IgnoredModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		server:   models.NewServer(db, logger),
		channel:  models.NewChannel(db, logger),
		settings: models.NewSettings(db, logger),
		ignored:  models.NewIgnored(db, logger),
	}
}

// Server returns the server model repository.
func (r *Repository) Server() *models.ServerModel {
	return r.server
}

// Channel returns the channel model repository.
func (r *Repository) Channel() *models.ChannelModel {
	return r.channel
}

// Settings returns the user server settings model repository.
func (r *Repository) Settings() *models.SettingsModel {
	return r.settings
}

// Ignored returns the ignored account model repository.
func (r *Repository) Ignored() *models.IgnoredModel {
	return r.ignored
}
