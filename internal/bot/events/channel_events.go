package events

import (
	"context"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	guildsync "github.com/threadkeep/threadkeep/internal/sync"
	"go.uber.org/zap"
)

// OnGuildChannelCreate stores newly created root channels of allowed types.
func (h *Handler) OnGuildChannelCreate(event *events.GuildChannelCreate) {
	h.upsertChannel(event.GuildID, event.Channel)
}

// OnGuildChannelUpdate mirrors channel renames and type changes.
func (h *Handler) OnGuildChannelUpdate(event *events.GuildChannelUpdate) {
	h.upsertChannel(event.GuildID, event.Channel)
}

// OnGuildChannelDelete removes the channel row. Unknown channels are a
// no-op at the store layer.
func (h *Handler) OnGuildChannelDelete(event *events.GuildChannelDelete) {
	if err := h.reconciler.ChannelDeleted(context.Background(), event.ChannelID); err != nil {
		h.logger.Error("Failed to reconcile deleted channel",
			zap.Uint64("channelID", uint64(event.ChannelID)),
			zap.Error(err))
	}
}

// OnThreadCreate stores a thread row referencing its parent channel.
func (h *Handler) OnThreadCreate(event *events.ThreadCreate) {
	err := h.reconciler.ThreadCreated(context.Background(), threadSnapshot(event.GenericThread))
	if err != nil {
		h.logger.Error("Failed to reconcile created thread",
			zap.Uint64("threadID", uint64(event.ThreadID)),
			zap.Error(err))
	}
}

// OnThreadUpdate mirrors thread renames and archive state changes.
func (h *Handler) OnThreadUpdate(event *events.ThreadUpdate) {
	err := h.reconciler.ChannelUpdated(context.Background(), threadSnapshot(event.GenericThread))
	if err != nil {
		h.logger.Error("Failed to reconcile updated thread",
			zap.Uint64("threadID", uint64(event.ThreadID)),
			zap.Error(err))
	}
}

// OnThreadDelete removes the thread row.
func (h *Handler) OnThreadDelete(event *events.ThreadDelete) {
	if err := h.reconciler.ChannelDeleted(context.Background(), event.ThreadID); err != nil {
		h.logger.Error("Failed to reconcile deleted thread",
			zap.Uint64("threadID", uint64(event.ThreadID)),
			zap.Error(err))
	}
}

func (h *Handler) upsertChannel(guildID snowflake.ID, channel discord.GuildChannel) {
	if err := h.reconciler.ChannelUpdated(context.Background(), channelSnapshot(guildID, channel)); err != nil {
		h.logger.Error("Failed to reconcile channel",
			zap.Uint64("channelID", uint64(channel.ID())),
			zap.Error(err))
	}
}

// channelSnapshot converts a gateway channel payload into the reconciler's
// domain snapshot.
func channelSnapshot(guildID snowflake.ID, channel discord.GuildChannel) guildsync.ChannelSnapshot {
	return guildsync.ChannelSnapshot{
		ID:       channel.ID(),
		ServerID: guildID,
		Name:     channel.Name(),
		Type:     channel.Type(),
	}
}

// threadSnapshot converts a gateway thread payload into the reconciler's
// domain snapshot, carrying the parent reference and archive state.
func threadSnapshot(event *events.GenericThread) guildsync.ChannelSnapshot {
	parentID := event.ParentID

	snapshot := guildsync.ChannelSnapshot{
		ID:       event.ThreadID,
		ServerID: event.GuildID,
		ParentID: &parentID,
		Name:     event.Thread.Name(),
		Type:     event.Thread.Type(),
	}

	if metadata := event.Thread.ThreadMetadata; metadata.Archived {
		archived := metadata.ArchiveTimestamp
		snapshot.ArchivedTimestamp = &archived
	}

	return snapshot
}
