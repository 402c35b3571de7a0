package settings

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/threadkeep/threadkeep/internal/database/types"
)

// UserSettingsStore is the store surface the user settings policies need.
// Find returns nil when no row exists for the key.
type UserSettingsStore interface {
	Find(ctx context.Context, userID, serverID snowflake.ID) (*types.UserServerSettings, error)
	Create(ctx context.Context, settings *types.UserServerSettings) error
	Update(ctx context.Context, settings *types.UserServerSettings) error
}

// IgnoredAccountStore checks global opt-outs before any settings write.
type IgnoredAccountStore interface {
	IsIgnored(ctx context.Context, userID snowflake.ID) (bool, error)
}

// ChannelStore is the store surface the channel settings policy needs.
// Find returns nil when no row exists for the id.
type ChannelStore interface {
	Find(ctx context.Context, id snowflake.ID) (*types.Channel, error)
	Update(ctx context.Context, channel *types.Channel) error
}

// ServerStore is the store surface the server settings policy and the
// vanity-invite fallback need. Find returns nil when no row exists.
type ServerStore interface {
	Find(ctx context.Context, id snowflake.ID) (*types.Server, error)
	Update(ctx context.Context, server *types.Server) error
}

// InviteGateway exposes the platform calls needed when enabling indexing.
// Both calls surface permission and not-found failures verbatim.
type InviteGateway interface {
	CreateInvite(ctx context.Context, channelID snowflake.ID) (string, error)
	VanityCode(ctx context.Context, guildID snowflake.ID) (string, error)
}
