// Package sync keeps the stored server and channel rows an eventually
// consistent mirror of the Discord platform, through both incremental
// gateway events and a full startup sweep.
package sync

import (
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

// GuildSnapshot carries the platform-owned guild fields the reconciler is
// allowed to write. The bot layer builds snapshots from gateway payloads so
// the reconciler never depends on gateway types.
type GuildSnapshot struct {
	ID          snowflake.ID
	Name        string
	Icon        string
	Description string
	VanityURL   string
	MemberCount int
	Channels    []ChannelSnapshot
}

// ChannelSnapshot carries the platform-owned channel fields the reconciler
// is allowed to write. ParentID is set for threads only; ArchivedTimestamp
// is set for archived threads only.
type ChannelSnapshot struct {
	ID                snowflake.ID
	ServerID          snowflake.ID
	ParentID          *snowflake.ID
	Name              string
	Type              discord.ChannelType
	ArchivedTimestamp *time.Time
}
