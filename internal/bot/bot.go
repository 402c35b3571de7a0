// Package bot wires the Discord gateway to the reconciler and exposes the
// platform calls the settings policies need.
package bot

import (
	"context"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	disgoevents "github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/threadkeep/threadkeep/internal/bot/events"
	"github.com/threadkeep/threadkeep/internal/database"
	"github.com/threadkeep/threadkeep/internal/settings"
	"github.com/threadkeep/threadkeep/internal/setup/config"
	guildsync "github.com/threadkeep/threadkeep/internal/sync"
	"go.uber.org/zap"
)

// Bot owns the gateway connection and the event handlers that keep the
// store consistent with the platform.
type Bot struct {
	client     bot.Client
	reconciler *guildsync.Reconciler
	handler    *events.Handler
	gateway    *RestGateway
	logger     *zap.Logger

	userSettings    *settings.UserSettingsPolicy
	channelSettings *settings.ChannelSettingsPolicy
	serverSettings  *settings.ServerSettingsPolicy
}

// New creates a Bot instance wired to the given database client.
func New(cfg *config.Config, db database.Client, logger *zap.Logger) (*Bot, error) {
	reconciler := guildsync.NewReconciler(db.Model().Server(), db.Model().Channel(), logger)

	warmup := time.Duration(cfg.Sync.StartupDelay) * time.Millisecond
	handler := events.NewHandler(reconciler, warmup, logger)

	client, err := disgo.New(cfg.Discord.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
			),
		),
		bot.WithEventListeners(&disgoevents.ListenerAdapter{
			OnGuildsReady:        handler.OnGuildsReady,
			OnGuildReady:         handler.OnGuildReady,
			OnGuildJoin:          handler.OnGuildJoin,
			OnGuildLeave:         handler.OnGuildLeave,
			OnGuildUpdate:        handler.OnGuildUpdate,
			OnGuildChannelCreate: handler.OnGuildChannelCreate,
			OnGuildChannelUpdate: handler.OnGuildChannelUpdate,
			OnGuildChannelDelete: handler.OnGuildChannelDelete,
			OnThreadCreate:       handler.OnThreadCreate,
			OnThreadUpdate:       handler.OnThreadUpdate,
			OnThreadDelete:       handler.OnThreadDelete,
		}),
	)
	if err != nil {
		return nil, err
	}

	gw := NewRestGateway(client, logger)

	return &Bot{
		client:     client,
		reconciler: reconciler,
		handler:    handler,
		gateway:    gw,
		logger:     logger.Named("bot"),
		userSettings: settings.NewUserSettingsPolicy(
			db.Model().Settings(), db.Model().Ignored(), logger),
		channelSettings: settings.NewChannelSettingsPolicy(
			db.Model().Channel(), db.Model().Server(), gw, logger),
		serverSettings: settings.NewServerSettingsPolicy(db.Model().Server(), logger),
	}, nil
}

// Client returns the underlying Discord client.
func (b *Bot) Client() bot.Client {
	return b.client
}

// Gateway returns the invite gateway backed by this bot's REST client.
func (b *Bot) Gateway() *RestGateway {
	return b.gateway
}

// UserSettings returns the consent and indexing-preference policy for the
// command layer to invoke.
func (b *Bot) UserSettings() *settings.UserSettingsPolicy {
	return b.userSettings
}

// ChannelSettings returns the per-channel feature toggle policy.
func (b *Bot) ChannelSettings() *settings.ChannelSettingsPolicy {
	return b.channelSettings
}

// ServerSettings returns the server-wide feature toggle policy.
func (b *Bot) ServerSettings() *settings.ServerSettingsPolicy {
	return b.serverSettings
}

// Start opens the gateway connection. The startup sweep is scheduled once
// the gateway reports all guilds ready and the warm-up delay has elapsed.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")
	return b.client.OpenGateway(ctx)
}

// Close shuts down the gateway connection.
func (b *Bot) Close(ctx context.Context) {
	b.logger.Info("Stopping bot")
	b.client.Close(ctx)
}
