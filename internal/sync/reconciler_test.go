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

var (
	guildID   = snowflake.ID(1000)
	channelID = snowflake.ID(2000)
	threadID  = snowflake.ID(3000)
)

func guildSnapshot(channels ...guildsync.ChannelSnapshot) guildsync.GuildSnapshot {
	return guildsync.GuildSnapshot{
		ID:          guildID,
		Name:        "support hub",
		Icon:        "icon-hash",
		Description: "community support",
		VanityURL:   "support",
		MemberCount: 1200,
		Channels:    channels,
	}
}

func channelSnapshot(channelType discord.ChannelType) guildsync.ChannelSnapshot {
	return guildsync.ChannelSnapshot{
		ID:       channelID,
		ServerID: guildID,
		Name:     "help",
		Type:     channelType,
	}
}

func TestGuildSeen(t *testing.T) {
	t.Parallel()

	t.Run("creates the server and its root channels", func(t *testing.T) {
		t.Parallel()

		servers := newMemoryServerStore()
		channels := newMemoryChannelStore()
		reconciler := guildsync.NewReconciler(servers, channels, zap.NewNop())

		server, err := reconciler.GuildSeen(t.Context(),
			guildSnapshot(channelSnapshot(discord.ChannelTypeGuildText)))
		require.NoError(t, err)
		require.NotNil(t, server)
		assert.Equal(t, "support hub", server.Name)
		assert.Equal(t, 1200, server.MemberCount)
		assert.Equal(t, types.PlanFree, server.Plan)
		assert.False(t, server.Kicked())

		stored := channels.get(channelID)
		require.NotNil(t, stored)
		assert.Equal(t, "help", stored.Name)
		assert.Equal(t, guildID, stored.ServerID)
	})

	t.Run("clears the kicked marker and preserves settings", func(t *testing.T) {
		t.Parallel()

		kicked := time.Now().Add(-time.Hour)
		servers := newMemoryServerStore(&types.Server{
			ID:         guildID,
			Name:       "old name",
			Flags:      types.ServerFlagAnonymizeMessages,
			Plan:       types.PlanPro,
			KickedTime: &kicked,
		})
		reconciler := guildsync.NewReconciler(servers, newMemoryChannelStore(), zap.NewNop())

		server, err := reconciler.GuildSeen(t.Context(), guildSnapshot())
		require.NoError(t, err)
		require.NotNil(t, server)
		assert.False(t, server.Kicked())
		assert.Equal(t, "support hub", server.Name)

		// User-chosen state survives the rejoin
		assert.True(t, server.Flags.Has(types.ServerFlagAnonymizeMessages))
		assert.Equal(t, types.PlanPro, server.Plan)
	})

	t.Run("keeps the stored member count when the snapshot has none", func(t *testing.T) {
		t.Parallel()

		servers := newMemoryServerStore(&types.Server{
			ID:          guildID,
			Name:        "support hub",
			MemberCount: 1200,
		})
		reconciler := guildsync.NewReconciler(servers, newMemoryChannelStore(), zap.NewNop())

		// Gateway guild payloads never carry a member count
		snapshot := guildSnapshot()
		snapshot.Name = "renamed hub"
		snapshot.MemberCount = 0

		server, err := reconciler.GuildSeen(t.Context(), snapshot)
		require.NoError(t, err)
		require.NotNil(t, server)
		assert.Equal(t, "renamed hub", server.Name)
		assert.Equal(t, 1200, server.MemberCount)
		assert.Equal(t, 1200, servers.get(guildID).MemberCount)
	})

	t.Run("skips disallowed root channel types", func(t *testing.T) {
		t.Parallel()

		channels := newMemoryChannelStore()
		reconciler := guildsync.NewReconciler(newMemoryServerStore(), channels, zap.NewNop())

		_, err := reconciler.GuildSeen(t.Context(),
			guildSnapshot(channelSnapshot(discord.ChannelTypeGuildVoice)))
		require.NoError(t, err)
		assert.Equal(t, 0, channels.len())
	})

	t.Run("preserves channel settings across updates", func(t *testing.T) {
		t.Parallel()

		tagID := snowflake.ID(42)
		channels := newMemoryChannelStore(&types.Channel{
			ID:            channelID,
			ServerID:      guildID,
			Name:          "old name",
			Type:          discord.ChannelTypeGuildForum,
			Flags:         types.ChannelFlagIndexingEnabled | types.ChannelFlagMarkSolution,
			InviteCode:    "invite",
			SolutionTagID: &tagID,
		})
		reconciler := guildsync.NewReconciler(newMemoryServerStore(), channels, zap.NewNop())

		snapshot := channelSnapshot(discord.ChannelTypeGuildForum)
		snapshot.Name = "renamed"

		_, err := reconciler.GuildSeen(t.Context(), guildSnapshot(snapshot))
		require.NoError(t, err)

		stored := channels.get(channelID)
		require.NotNil(t, stored)
		assert.Equal(t, "renamed", stored.Name)
		assert.True(t, stored.Flags.Has(types.ChannelFlagIndexingEnabled))
		assert.Equal(t, "invite", stored.InviteCode)
		require.NotNil(t, stored.SolutionTagID)
		assert.Equal(t, tagID, *stored.SolutionTagID)
	})
}

func TestGuildAbsent(t *testing.T) {
	t.Parallel()

	t.Run("marks an existing server as kicked", func(t *testing.T) {
		t.Parallel()

		servers := newMemoryServerStore(&types.Server{ID: guildID, Name: "support hub"})
		reconciler := guildsync.NewReconciler(servers, newMemoryChannelStore(), zap.NewNop())

		server, err := reconciler.GuildAbsent(t.Context(), guildSnapshot())
		require.NoError(t, err)
		require.NotNil(t, server)
		assert.True(t, server.Kicked())
	})

	t.Run("creates an unknown server fully kicked", func(t *testing.T) {
		t.Parallel()

		servers := newMemoryServerStore()
		reconciler := guildsync.NewReconciler(servers, newMemoryChannelStore(), zap.NewNop())

		server, err := reconciler.GuildAbsent(t.Context(), guildSnapshot())
		require.NoError(t, err)
		require.NotNil(t, server)
		assert.True(t, server.Kicked())
		assert.Equal(t, "support hub", server.Name)
		require.NotNil(t, servers.get(guildID))
		assert.True(t, servers.get(guildID).Kicked())
	})

	t.Run("keeps the stored member count when the leave payload has none", func(t *testing.T) {
		t.Parallel()

		servers := newMemoryServerStore(&types.Server{
			ID:          guildID,
			Name:        "support hub",
			MemberCount: 1200,
		})
		reconciler := guildsync.NewReconciler(servers, newMemoryChannelStore(), zap.NewNop())

		snapshot := guildSnapshot()
		snapshot.MemberCount = 0

		server, err := reconciler.GuildAbsent(t.Context(), snapshot)
		require.NoError(t, err)
		require.NotNil(t, server)
		assert.True(t, server.Kicked())
		assert.Equal(t, 1200, server.MemberCount)
	})

	t.Run("keeps the original kicked time on redelivery", func(t *testing.T) {
		t.Parallel()

		original := time.Now().Add(-24 * time.Hour)
		servers := newMemoryServerStore(&types.Server{
			ID:         guildID,
			Name:       "support hub",
			KickedTime: &original,
		})
		reconciler := guildsync.NewReconciler(servers, newMemoryChannelStore(), zap.NewNop())

		server, err := reconciler.GuildAbsent(t.Context(), guildSnapshot())
		require.NoError(t, err)
		require.NotNil(t, server)
		require.NotNil(t, server.KickedTime)
		assert.WithinDuration(t, original, *server.KickedTime, time.Second)
	})
}

func TestChannelEvents(t *testing.T) {
	t.Parallel()

	t.Run("update upserts an allowed root channel", func(t *testing.T) {
		t.Parallel()

		channels := newMemoryChannelStore()
		reconciler := guildsync.NewReconciler(newMemoryServerStore(), channels, zap.NewNop())

		err := reconciler.ChannelUpdated(t.Context(), channelSnapshot(discord.ChannelTypeGuildNews))
		require.NoError(t, err)
		require.NotNil(t, channels.get(channelID))
	})

	t.Run("update ignores disallowed root types", func(t *testing.T) {
		t.Parallel()

		channels := newMemoryChannelStore()
		reconciler := guildsync.NewReconciler(newMemoryServerStore(), channels, zap.NewNop())

		err := reconciler.ChannelUpdated(t.Context(), channelSnapshot(discord.ChannelTypeGuildCategory))
		require.NoError(t, err)
		assert.Equal(t, 0, channels.len())
	})

	t.Run("delete removes the row and tolerates unknown ids", func(t *testing.T) {
		t.Parallel()

		channels := newMemoryChannelStore(&types.Channel{
			ID:       channelID,
			ServerID: guildID,
			Name:     "help",
			Type:     discord.ChannelTypeGuildText,
		})
		reconciler := guildsync.NewReconciler(newMemoryServerStore(), channels, zap.NewNop())

		require.NoError(t, reconciler.ChannelDeleted(t.Context(), channelID))
		assert.Nil(t, channels.get(channelID))

		require.NoError(t, reconciler.ChannelDeleted(t.Context(), channelID))
	})
}

func TestThreadCreated(t *testing.T) {
	t.Parallel()

	t.Run("stores the thread without copying parent flags", func(t *testing.T) {
		t.Parallel()

		parentID := channelID
		channels := newMemoryChannelStore(&types.Channel{
			ID:       channelID,
			ServerID: guildID,
			Name:     "help",
			Type:     discord.ChannelTypeGuildText,
			Flags:    types.ChannelFlagIndexingEnabled | types.ChannelFlagAutoThread,
		})
		reconciler := guildsync.NewReconciler(newMemoryServerStore(), channels, zap.NewNop())

		err := reconciler.ThreadCreated(t.Context(), guildsync.ChannelSnapshot{
			ID:       threadID,
			ServerID: guildID,
			ParentID: &parentID,
			Name:     "how do I reset my password",
			Type:     discord.ChannelTypeGuildPublicThread,
		})
		require.NoError(t, err)

		thread := channels.get(threadID)
		require.NotNil(t, thread)
		assert.True(t, thread.IsThread())
		assert.Equal(t, channelID, thread.SettingsSourceID())
		assert.Equal(t, types.ChannelFlags(0), thread.Flags)
	})

	t.Run("mirrors archive state on thread updates", func(t *testing.T) {
		t.Parallel()

		parentID := channelID
		channels := newMemoryChannelStore(&types.Channel{
			ID:       threadID,
			ServerID: guildID,
			ParentID: &parentID,
			Name:     "how do I reset my password",
			Type:     discord.ChannelTypeGuildPublicThread,
		})
		reconciler := guildsync.NewReconciler(newMemoryServerStore(), channels, zap.NewNop())

		archived := time.Now()
		snapshot := guildsync.ChannelSnapshot{
			ID:                threadID,
			ServerID:          guildID,
			ParentID:          &parentID,
			Name:              "how do I reset my password",
			Type:              discord.ChannelTypeGuildPublicThread,
			ArchivedTimestamp: &archived,
		}

		require.NoError(t, reconciler.ChannelUpdated(t.Context(), snapshot))

		stored := channels.get(threadID)
		require.NotNil(t, stored)
		require.NotNil(t, stored.ArchivedTimestamp)
		assert.WithinDuration(t, archived, *stored.ArchivedTimestamp, time.Second)

		// Unarchiving clears the timestamp again
		snapshot.ArchivedTimestamp = nil
		require.NoError(t, reconciler.ChannelUpdated(t.Context(), snapshot))
		assert.Nil(t, channels.get(threadID).ArchivedTimestamp)
	})

	t.Run("ignores a thread without a parent", func(t *testing.T) {
		t.Parallel()

		channels := newMemoryChannelStore()
		reconciler := guildsync.NewReconciler(newMemoryServerStore(), channels, zap.NewNop())

		err := reconciler.ThreadCreated(t.Context(), guildsync.ChannelSnapshot{
			ID:       threadID,
			ServerID: guildID,
			Name:     "orphan",
			Type:     discord.ChannelTypeGuildPublicThread,
		})
		require.NoError(t, err)
		assert.Equal(t, 0, channels.len())
	})
}
