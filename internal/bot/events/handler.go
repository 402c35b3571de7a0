// Package events translates gateway events into reconciler calls.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	guildsync "github.com/threadkeep/threadkeep/internal/sync"
	"go.uber.org/zap"
)

// Handler receives gateway events, keeps a registry of currently visible
// guilds and drives the reconciler. The registry is what makes the startup
// sweep's visible set independent of REST availability: a guild the gateway
// announced stays visible even if enriching it over REST fails.
type Handler struct {
	reconciler *guildsync.Reconciler
	warmup     time.Duration
	logger     *zap.Logger

	mu     sync.Mutex
	guilds map[snowflake.ID]guildsync.GuildSnapshot

	sweepOnce sync.Once
}

// NewHandler creates a new gateway event handler. warmup is the delay
// between the gateway reporting ready and the first startup sweep.
func NewHandler(reconciler *guildsync.Reconciler, warmup time.Duration, logger *zap.Logger) *Handler {
	return &Handler{
		reconciler: reconciler,
		warmup:     warmup,
		logger:     logger.Named("gateway_events"),
		guilds:     make(map[snowflake.ID]guildsync.GuildSnapshot),
	}
}

// OnGuildsReady schedules the startup sweep once per process after the
// warm-up delay. Incremental events keep flowing while it waits; the
// reconciler's upserts make either order converge.
func (h *Handler) OnGuildsReady(event *events.GuildsReady) {
	h.sweepOnce.Do(func() {
		go h.runSweep(event.Client())
	})
}

func (h *Handler) runSweep(client bot.Client) {
	h.logger.Info("Waiting before startup sweep", zap.Duration("warmup", h.warmup))
	time.Sleep(h.warmup)

	ctx := context.Background()
	visible := h.visibleGuilds()

	snapshots := make([]guildsync.GuildSnapshot, 0, len(visible))
	for _, guild := range visible {
		snapshots = append(snapshots, h.enrichSnapshot(ctx, client, guild))
	}

	if err := h.reconciler.RunStartupSweep(ctx, snapshots); err != nil {
		h.logger.Error("Startup sweep failed", zap.Error(err))
	}
}

// remember records the latest known snapshot for a guild and returns the
// merged result, which is what event handlers must reconcile with. A
// previously known member count is kept when the new snapshot lacks one,
// since only REST lookups carry counts.
func (h *Handler) remember(snapshot guildsync.GuildSnapshot) guildsync.GuildSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	if previous, ok := h.guilds[snapshot.ID]; ok && snapshot.MemberCount == 0 {
		snapshot.MemberCount = previous.MemberCount
	}

	h.guilds[snapshot.ID] = snapshot

	return snapshot
}

// forget drops the registry entry for a guild and returns the last known
// snapshot, so the leave path can reconcile with the best-available data
// instead of the bare event payload.
func (h *Handler) forget(guildID snowflake.ID) (guildsync.GuildSnapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	previous, ok := h.guilds[guildID]
	delete(h.guilds, guildID)

	return previous, ok
}

func (h *Handler) visibleGuilds() []guildsync.GuildSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	snapshots := make([]guildsync.GuildSnapshot, 0, len(h.guilds))
	for _, snapshot := range h.guilds {
		snapshots = append(snapshots, snapshot)
	}

	return snapshots
}
