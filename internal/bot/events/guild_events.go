package events

import (
	"context"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	guildsync "github.com/threadkeep/threadkeep/internal/sync"
	"go.uber.org/zap"
)

// OnGuildReady records a guild announced during gateway startup. The store
// write for these guilds happens in the startup sweep.
func (h *Handler) OnGuildReady(event *events.GuildReady) {
	h.remember(guildSnapshot(event.Guild))
}

// OnGuildJoin handles the bot joining a new guild while running.
func (h *Handler) OnGuildJoin(event *events.GuildJoin) {
	h.logger.Info("Bot joined a new guild",
		zap.Uint64("guildID", uint64(event.Guild.ID)),
		zap.String("name", event.Guild.Name))

	ctx := context.Background()
	snapshot := h.remember(h.enrichSnapshot(ctx, event.Client(), guildSnapshot(event.Guild)))

	if _, err := h.reconciler.GuildSeen(ctx, snapshot); err != nil {
		h.logger.Error("Failed to reconcile joined guild",
			zap.Uint64("guildID", uint64(event.Guild.ID)),
			zap.Error(err))
	}
}

// OnGuildUpdate mirrors renamed or re-described guilds into the store.
// Gateway update payloads carry no member count, so the snapshot written
// is the registry merge, not the raw event.
func (h *Handler) OnGuildUpdate(event *events.GuildUpdate) {
	snapshot := h.remember(guildSnapshot(event.Guild))

	if _, err := h.reconciler.GuildSeen(context.Background(), snapshot); err != nil {
		h.logger.Error("Failed to reconcile updated guild",
			zap.Uint64("guildID", uint64(event.Guild.ID)),
			zap.Error(err))
	}
}

// OnGuildLeave soft-deletes the guild's server row. The delete event still
// carries the last known guild metadata, which becomes the stored snapshot
// when no row existed yet.
func (h *Handler) OnGuildLeave(event *events.GuildLeave) {
	h.logger.Info("Bot left a guild",
		zap.Uint64("guildID", uint64(event.Guild.ID)),
		zap.String("name", event.Guild.Name))

	snapshot := guildSnapshot(event.Guild)
	if previous, ok := h.forget(event.Guild.ID); ok && snapshot.MemberCount == 0 {
		snapshot.MemberCount = previous.MemberCount
	}

	if _, err := h.reconciler.GuildAbsent(context.Background(), snapshot); err != nil {
		h.logger.Error("Failed to reconcile left guild",
			zap.Uint64("guildID", uint64(event.Guild.ID)),
			zap.Error(err))
	}
}

// guildSnapshot converts a gateway guild payload into the reconciler's
// domain snapshot. Gateway payloads carry no member count or channel list;
// enrichSnapshot fills those in over REST.
func guildSnapshot(guild discord.Guild) guildsync.GuildSnapshot {
	snapshot := guildsync.GuildSnapshot{
		ID:   guild.ID,
		Name: guild.Name,
	}

	if guild.Icon != nil {
		snapshot.Icon = *guild.Icon
	}

	if guild.Description != nil {
		snapshot.Description = *guild.Description
	}

	if guild.VanityURLCode != nil {
		snapshot.VanityURL = *guild.VanityURLCode
	}

	return snapshot
}

// enrichSnapshot fills in the member count and root channel list over REST.
// Failures are logged and the snapshot is returned as known, so the guild
// stays visible to the sweep either way.
func (h *Handler) enrichSnapshot(
	ctx context.Context, client bot.Client, snapshot guildsync.GuildSnapshot,
) guildsync.GuildSnapshot {
	restGuild, err := client.Rest().GetGuild(snapshot.ID, true, rest.WithCtx(ctx))
	if err != nil {
		h.logger.Warn("Failed to fetch guild for snapshot",
			zap.Uint64("guildID", uint64(snapshot.ID)),
			zap.Error(err))

		return snapshot
	}

	snapshot = guildSnapshot(restGuild.Guild)
	snapshot.MemberCount = restGuild.ApproximateMemberCount

	channels, err := client.Rest().GetGuildChannels(snapshot.ID, rest.WithCtx(ctx))
	if err != nil {
		h.logger.Warn("Failed to fetch guild channels for snapshot",
			zap.Uint64("guildID", uint64(snapshot.ID)),
			zap.Error(err))

		return snapshot
	}

	for _, channel := range channels {
		snapshot.Channels = append(snapshot.Channels, channelSnapshot(snapshot.ID, channel))
	}

	return snapshot
}
