package sync

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/threadkeep/threadkeep/internal/database/types"
	"go.uber.org/zap"
)

// ServerStore is the store surface the reconciler needs for server rows.
// Find returns nil when no row exists.
type ServerStore interface {
	Find(ctx context.Context, id snowflake.ID) (*types.Server, error)
	Create(ctx context.Context, server *types.Server) error
	Update(ctx context.Context, server *types.Server) error
	Active(ctx context.Context) ([]*types.Server, error)
}

// ChannelStore is the store surface the reconciler needs for channel rows.
// Find returns nil when no row exists.
type ChannelStore interface {
	Find(ctx context.Context, id snowflake.ID) (*types.Channel, error)
	FindByServer(ctx context.Context, serverID snowflake.ID) ([]*types.Channel, error)
	Create(ctx context.Context, channel *types.Channel) error
	Update(ctx context.Context, channel *types.Channel) error
	Delete(ctx context.Context, id snowflake.ID) error
}

// Reconciler converts gateway events and the startup sweep into idempotent
// upserts. It only ever writes platform-owned fields; user-chosen flags,
// invites and plans are never touched from this path, which is what lets
// event handlers and the sweep interleave for the same entity and converge.
type Reconciler struct {
	servers  ServerStore
	channels ChannelStore
	logger   *zap.Logger
}

// NewReconciler creates a new reconciler.
func NewReconciler(servers ServerStore, channels ChannelStore, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		servers:  servers,
		channels: channels,
		logger:   logger.Named("sync"),
	}
}

// GuildSeen upserts the server row for a currently visible guild, clearing
// any kicked marker, then upserts every allowed-type root channel in the
// snapshot. Returns the resulting server row.
func (r *Reconciler) GuildSeen(ctx context.Context, guild GuildSnapshot) (*types.Server, error) {
	server, err := r.upsertServer(ctx, guild, nil)
	if err != nil {
		return nil, err
	}

	for _, channel := range guild.Channels {
		if channel.ParentID != nil || !types.AllowedRootChannelType(channel.Type) {
			continue
		}

		if err := r.upsertChannel(ctx, channel); err != nil {
			return nil, err
		}
	}

	return server, nil
}

// GuildAbsent upserts the server row for a guild the bot has left or been
// removed from. A guild with no prior row is created fully kicked; an
// already-kicked row keeps its original kicked time so redelivered events
// converge.
func (r *Reconciler) GuildAbsent(ctx context.Context, guild GuildSnapshot) (*types.Server, error) {
	now := time.Now()
	return r.upsertServer(ctx, guild, &now)
}

// ChannelUpdated upserts a root channel's platform-owned fields. Channels
// of disallowed types are ignored.
func (r *Reconciler) ChannelUpdated(ctx context.Context, channel ChannelSnapshot) error {
	if channel.ParentID == nil && !types.AllowedRootChannelType(channel.Type) {
		return nil
	}

	return r.upsertChannel(ctx, channel)
}

// ChannelDeleted removes a channel or thread row. Deleting a channel the
// store never knew is a no-op, not an error.
func (r *Reconciler) ChannelDeleted(ctx context.Context, id snowflake.ID) error {
	return r.channels.Delete(ctx, id)
}

// ThreadCreated stores a thread row referencing its parent channel. Flags
// are never copied from the parent; thread behavior is resolved at read
// time by following the parent reference.
func (r *Reconciler) ThreadCreated(ctx context.Context, thread ChannelSnapshot) error {
	if thread.ParentID == nil {
		return nil
	}

	return r.upsertChannel(ctx, thread)
}

// upsertServer merges the platform-owned fields of a snapshot into the
// stored row, creating it when absent. kicked is the requested liveness
// marker: nil for a visible guild, non-nil for an absent one.
func (r *Reconciler) upsertServer(
	ctx context.Context, guild GuildSnapshot, kicked *time.Time,
) (*types.Server, error) {
	existing, err := r.servers.Find(ctx, guild.ID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		server := &types.Server{
			ID:          guild.ID,
			Name:        guild.Name,
			Icon:        guild.Icon,
			Description: guild.Description,
			VanityURL:   guild.VanityURL,
			MemberCount: guild.MemberCount,
			Plan:        types.PlanFree,
			KickedTime:  kicked,
		}
		if err := r.servers.Create(ctx, server); err != nil {
			return nil, err
		}

		r.logger.Info("Created server",
			zap.Uint64("serverID", uint64(guild.ID)),
			zap.Bool("kicked", kicked != nil))

		return server, nil
	}

	updated := existing.Clone()
	updated.Name = guild.Name
	updated.Icon = guild.Icon
	updated.Description = guild.Description
	updated.VanityURL = guild.VanityURL

	// Gateway guild payloads carry no member count; only REST lookups do. A
	// zero count means unknown and keeps the stored estimate.
	if guild.MemberCount != 0 {
		updated.MemberCount = guild.MemberCount
	}

	// Keep the original kicked time on redelivered absence events
	if kicked == nil || existing.KickedTime == nil {
		updated.KickedTime = kicked
	}

	if err := r.servers.Update(ctx, updated); err != nil {
		return nil, err
	}

	return updated, nil
}

// upsertChannel merges the platform-owned fields of a snapshot into the
// stored row, creating it when absent. Flags, invite code and solution tag
// belong to the settings layer and are preserved.
func (r *Reconciler) upsertChannel(ctx context.Context, channel ChannelSnapshot) error {
	existing, err := r.channels.Find(ctx, channel.ID)
	if err != nil {
		return err
	}

	if existing == nil {
		return r.channels.Create(ctx, &types.Channel{
			ID:                channel.ID,
			ServerID:          channel.ServerID,
			ParentID:          channel.ParentID,
			Name:              channel.Name,
			Type:              channel.Type,
			ArchivedTimestamp: channel.ArchivedTimestamp,
		})
	}

	updated := existing.Clone()
	updated.Name = channel.Name
	updated.Type = channel.Type
	updated.ArchivedTimestamp = channel.ArchivedTimestamp

	return r.channels.Update(ctx, updated)
}
