package sync_test

import (
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threadkeep/threadkeep/internal/database/types"
	guildsync "github.com/threadkeep/threadkeep/internal/sync"
	"go.uber.org/zap"
)

func TestRunStartupSweep(t *testing.T) {
	t.Parallel()

	t.Run("reconciles visible guilds and marks missing ones kicked", func(t *testing.T) {
		t.Parallel()

		staleID := snowflake.ID(5000)
		servers := newMemoryServerStore(&types.Server{ID: staleID, Name: "departed"})
		channels := newMemoryChannelStore()
		reconciler := guildsync.NewReconciler(servers, channels, zap.NewNop())

		err := reconciler.RunStartupSweep(t.Context(), []guildsync.GuildSnapshot{
			guildSnapshot(channelSnapshot(discord.ChannelTypeGuildText)),
		})
		require.NoError(t, err)

		visible := servers.get(guildID)
		require.NotNil(t, visible)
		assert.False(t, visible.Kicked())
		require.NotNil(t, channels.get(channelID))

		stale := servers.get(staleID)
		require.NotNil(t, stale)
		assert.True(t, stale.Kicked())
	})

	t.Run("never kicks a visible guild", func(t *testing.T) {
		t.Parallel()

		servers := newMemoryServerStore(&types.Server{ID: guildID, Name: "support hub"})
		reconciler := guildsync.NewReconciler(servers, newMemoryChannelStore(), zap.NewNop())

		err := reconciler.RunStartupSweep(t.Context(), []guildsync.GuildSnapshot{guildSnapshot()})
		require.NoError(t, err)
		assert.False(t, servers.get(guildID).Kicked())
	})

	t.Run("repeated sweeps converge to the same state", func(t *testing.T) {
		t.Parallel()

		staleID := snowflake.ID(5000)
		servers := newMemoryServerStore(&types.Server{ID: staleID, Name: "departed"})
		channels := newMemoryChannelStore()
		reconciler := guildsync.NewReconciler(servers, channels, zap.NewNop())

		guilds := []guildsync.GuildSnapshot{
			guildSnapshot(channelSnapshot(discord.ChannelTypeGuildText)),
		}

		require.NoError(t, reconciler.RunStartupSweep(t.Context(), guilds))

		first := servers.get(guildID).Clone()
		firstStale := servers.get(staleID).Clone()
		firstChannel := channels.get(channelID).Clone()

		for range 3 {
			require.NoError(t, reconciler.RunStartupSweep(t.Context(), guilds))
		}

		assert.Equal(t, first, servers.get(guildID))
		assert.Equal(t, firstChannel, channels.get(channelID))

		// The stale server keeps its original kicked time
		repeatedStale := servers.get(staleID)
		require.NotNil(t, repeatedStale.KickedTime)
		assert.WithinDuration(t, *firstStale.KickedTime, *repeatedStale.KickedTime, time.Second)
	})

	t.Run("prunes stored channels missing from the snapshot", func(t *testing.T) {
		t.Parallel()

		goneID := snowflake.ID(7000)
		goneThreadID := snowflake.ID(7001)
		channels := newMemoryChannelStore(
			&types.Channel{ID: goneID, ServerID: guildID, Name: "deleted", Type: discord.ChannelTypeGuildText},
			&types.Channel{ID: goneThreadID, ServerID: guildID, ParentID: &goneID, Name: "old thread", Type: discord.ChannelTypeGuildPublicThread},
			&types.Channel{ID: threadID, ServerID: guildID, ParentID: &channelID, Name: "live thread", Type: discord.ChannelTypeGuildPublicThread},
		)
		reconciler := guildsync.NewReconciler(newMemoryServerStore(), channels, zap.NewNop())

		err := reconciler.RunStartupSweep(t.Context(), []guildsync.GuildSnapshot{
			guildSnapshot(channelSnapshot(discord.ChannelTypeGuildText)),
		})
		require.NoError(t, err)

		assert.Nil(t, channels.get(goneID))
		assert.Nil(t, channels.get(goneThreadID))

		// The surviving root keeps its thread
		require.NotNil(t, channels.get(channelID))
		require.NotNil(t, channels.get(threadID))
	})

	t.Run("prunes threads orphaned by an earlier parent delete", func(t *testing.T) {
		t.Parallel()

		// The parent root was hard-deleted by a channel delete event before
		// this sweep, so only the thread row remains
		goneParentID := snowflake.ID(7000)
		orphanID := snowflake.ID(7001)
		channels := newMemoryChannelStore(
			&types.Channel{ID: orphanID, ServerID: guildID, ParentID: &goneParentID, Name: "orphan thread", Type: discord.ChannelTypeGuildPublicThread},
			&types.Channel{ID: threadID, ServerID: guildID, ParentID: &channelID, Name: "live thread", Type: discord.ChannelTypeGuildPublicThread},
		)
		reconciler := guildsync.NewReconciler(newMemoryServerStore(), channels, zap.NewNop())

		err := reconciler.RunStartupSweep(t.Context(), []guildsync.GuildSnapshot{
			guildSnapshot(channelSnapshot(discord.ChannelTypeGuildText)),
		})
		require.NoError(t, err)

		assert.Nil(t, channels.get(orphanID))
		require.NotNil(t, channels.get(threadID))
	})

	t.Run("processes guilds in descending member-count order", func(t *testing.T) {
		t.Parallel()

		smallID := snowflake.ID(8001)
		largeID := snowflake.ID(8002)
		mediumID := snowflake.ID(8003)
		servers := newMemoryServerStore()
		reconciler := guildsync.NewReconciler(servers, newMemoryChannelStore(), zap.NewNop())

		err := reconciler.RunStartupSweep(t.Context(), []guildsync.GuildSnapshot{
			{ID: smallID, Name: "small", MemberCount: 10},
			{ID: largeID, Name: "large", MemberCount: 5000},
			{ID: mediumID, Name: "medium", MemberCount: 500},
		})
		require.NoError(t, err)

		assert.Equal(t, []snowflake.ID{largeID, mediumID, smallID}, servers.finds())
	})

	t.Run("a snapshot without channels prunes nothing", func(t *testing.T) {
		t.Parallel()

		channels := newMemoryChannelStore(&types.Channel{
			ID:       channelID,
			ServerID: guildID,
			Name:     "help",
			Type:     discord.ChannelTypeGuildText,
		})
		reconciler := guildsync.NewReconciler(newMemoryServerStore(), channels, zap.NewNop())

		err := reconciler.RunStartupSweep(t.Context(), []guildsync.GuildSnapshot{guildSnapshot()})
		require.NoError(t, err)
		require.NotNil(t, channels.get(channelID))
	})

	t.Run("a failing guild does not stop the sweep or get kicked", func(t *testing.T) {
		t.Parallel()

		failingID := snowflake.ID(6000)
		servers := newMemoryServerStore(&types.Server{ID: failingID, Name: "flaky"})
		servers.failIDs[failingID] = struct{}{}
		reconciler := guildsync.NewReconciler(servers, newMemoryChannelStore(), zap.NewNop())

		err := reconciler.RunStartupSweep(t.Context(), []guildsync.GuildSnapshot{
			{ID: failingID, Name: "flaky", MemberCount: 10},
			guildSnapshot(),
		})
		require.NoError(t, err)

		// The healthy guild still reconciled
		require.NotNil(t, servers.get(guildID))
		assert.False(t, servers.get(guildID).Kicked())

		// The failing guild is visible, so it must not be marked kicked
		assert.False(t, servers.get(failingID).Kicked())
	})
}
