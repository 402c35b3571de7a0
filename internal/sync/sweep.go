package sync

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// RunStartupSweep reconciles every currently visible guild and then marks
// stored servers missing from the visible set as kicked. Guilds are
// processed sequentially in descending member-count order so larger
// communities reconcile first and the external call rate stays bounded.
//
// A failure for one guild is logged and the sweep continues; running the
// sweep any number of times over an unchanged guild set yields identical
// stored state.
func (r *Reconciler) RunStartupSweep(ctx context.Context, guilds []GuildSnapshot) error {
	sorted := make([]GuildSnapshot, len(guilds))
	copy(sorted, guilds)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MemberCount > sorted[j].MemberCount
	})

	r.logger.Info("Starting guild sweep", zap.Int("guilds", len(sorted)))

	visible := make(map[snowflake.ID]struct{}, len(sorted))

	for _, guild := range sorted {
		visible[guild.ID] = struct{}{}

		if _, err := r.GuildSeen(ctx, guild); err != nil {
			r.logger.Error("Failed to reconcile guild during sweep",
				zap.Uint64("serverID", uint64(guild.ID)),
				zap.String("name", guild.Name),
				zap.Error(err))

			continue
		}

		if err := r.pruneStaleChannels(ctx, guild); err != nil {
			r.logger.Error("Failed to prune stale channels during sweep",
				zap.Uint64("serverID", uint64(guild.ID)),
				zap.Error(err))
		}
	}

	if err := r.markStaleServers(ctx, visible); err != nil {
		return fmt.Errorf("failed to mark stale servers: %w", err)
	}

	r.logger.Info("Guild sweep finished")

	return nil
}

// pruneStaleChannels deletes stored root channels the snapshot no longer
// lists, along with their thread rows. Channel delete events can be missed
// while the bot is offline; the sweep is where those rows get cleaned up.
// A snapshot without a channel list (enrichment failed) prunes nothing.
func (r *Reconciler) pruneStaleChannels(ctx context.Context, guild GuildSnapshot) error {
	if len(guild.Channels) == 0 {
		return nil
	}

	stored, err := r.channels.FindByServer(ctx, guild.ID)
	if err != nil {
		return err
	}

	seen := make(map[snowflake.ID]struct{}, len(guild.Channels))
	for _, channel := range guild.Channels {
		seen[channel.ID] = struct{}{}
	}

	for _, channel := range stored {
		if channel.IsThread() {
			continue
		}

		if _, ok := seen[channel.ID]; ok {
			continue
		}

		if err := r.channels.Delete(ctx, channel.ID); err != nil {
			return err
		}

		r.logger.Info("Pruned stale channel",
			zap.Uint64("channelID", uint64(channel.ID)),
			zap.Uint64("serverID", uint64(guild.ID)))
	}

	// Threads go with their parent. Checking against the snapshot rather
	// than the roots pruned this run also cleans up threads orphaned by a
	// parent delete event processed while no sweep was running.
	for _, channel := range stored {
		if !channel.IsThread() {
			continue
		}

		if _, ok := seen[*channel.ParentID]; ok {
			continue
		}

		if err := r.channels.Delete(ctx, channel.ID); err != nil {
			return err
		}
	}

	return nil
}

// markStaleServers kicks every stored, currently-active server that is not
// in the visible set. Removal events can be missed while the bot is
// offline, so the sweep is the authoritative detector for stale servers.
func (r *Reconciler) markStaleServers(ctx context.Context, visible map[snowflake.ID]struct{}) error {
	active, err := r.servers.Active(ctx)
	if err != nil {
		return err
	}

	now := time.Now()

	for _, server := range active {
		if _, ok := visible[server.ID]; ok {
			continue
		}

		updated := server.Clone()
		updated.KickedTime = &now

		if err := r.servers.Update(ctx, updated); err != nil {
			r.logger.Error("Failed to mark stale server as kicked",
				zap.Uint64("serverID", uint64(server.ID)),
				zap.Error(err))

			continue
		}

		r.logger.Info("Marked stale server as kicked",
			zap.Uint64("serverID", uint64(server.ID)),
			zap.String("name", server.Name))
	}

	return nil
}
