package bot

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// RestGateway exposes the imperative platform calls the settings policies
// consume. Permission and not-found failures are surfaced verbatim.
type RestGateway struct {
	client bot.Client
	logger *zap.Logger
}

// NewRestGateway creates an invite gateway over the bot's REST client.
func NewRestGateway(client bot.Client, logger *zap.Logger) *RestGateway {
	return &RestGateway{
		client: client,
		logger: logger.Named("rest_gateway"),
	}
}

// CreateInvite creates a permanent invite for the channel.
func (g *RestGateway) CreateInvite(ctx context.Context, channelID snowflake.ID) (string, error) {
	invite, err := g.client.Rest().CreateInvite(channelID, discord.InviteCreate{}, rest.WithCtx(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to create invite: %w", err)
	}

	g.logger.Debug("Created invite",
		zap.Uint64("channelID", uint64(channelID)),
		zap.String("code", invite.Code))

	return invite.Code, nil
}

// VanityCode returns the guild's vanity invite code, or empty when the
// guild has none.
func (g *RestGateway) VanityCode(ctx context.Context, guildID snowflake.ID) (string, error) {
	guild, err := g.client.Rest().GetGuild(guildID, false, rest.WithCtx(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to get guild: %w", err)
	}

	if guild.VanityURLCode == nil {
		return "", nil
	}

	return *guild.VanityURLCode, nil
}
