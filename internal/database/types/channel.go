package types

import (
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

// ChannelFlags is a bitfield of per-channel feature toggles.
type ChannelFlags uint64

const (
	// ChannelFlagIndexingEnabled marks the channel's messages for indexing.
	ChannelFlagIndexingEnabled ChannelFlags = 1 << iota
	// ChannelFlagForumGuidelinesConsent grants consent to users who post in a
	// forum channel whose guidelines contain the consent prompt.
	ChannelFlagForumGuidelinesConsent
	// ChannelFlagMarkSolution allows marking messages as solutions.
	ChannelFlagMarkSolution
	// ChannelFlagSendMarkSolutionInstructions posts mark-solution instructions
	// into newly created threads.
	ChannelFlagSendMarkSolutionInstructions
	// ChannelFlagAutoThread creates a thread for every new root message.
	ChannelFlagAutoThread
)

// Has checks whether every bit in flag is set.
func (f ChannelFlags) Has(flag ChannelFlags) bool {
	return f&flag == flag
}

// Set returns f with flag turned on or off.
func (f ChannelFlags) Set(flag ChannelFlags, on bool) ChannelFlags {
	if on {
		return f | flag
	}

	return f &^ flag
}

// Channel stores one row per indexable root channel or thread.
// Threads reference their parent row via ParentID and never copy its flags;
// effective thread settings are resolved at read time.
type Channel struct {
	ID                snowflake.ID        `bun:",pk"`
	ServerID          snowflake.ID        `bun:",notnull"`
	ParentID          *snowflake.ID       `bun:",nullzero"`
	Name              string              `bun:",notnull"`
	Type              discord.ChannelType `bun:",notnull"`
	Flags             ChannelFlags        `bun:",notnull,default:0"`
	InviteCode        string              `bun:",notnull,default:''"`
	SolutionTagID     *snowflake.ID       `bun:",nullzero"`
	ArchivedTimestamp *time.Time          `bun:",nullzero"`
}

// IsThread reports whether the channel is a thread under a root channel.
func (c *Channel) IsThread() bool {
	return c.ParentID != nil
}

// SettingsSourceID returns the id of the row that owns the channel's
// effective settings: the parent for threads, the channel itself otherwise.
func (c *Channel) SettingsSourceID() snowflake.ID {
	if c.ParentID != nil {
		return *c.ParentID
	}

	return c.ID
}

// Clone returns a deep copy of the channel row.
func (c *Channel) Clone() *Channel {
	clone := *c

	if c.ParentID != nil {
		id := *c.ParentID
		clone.ParentID = &id
	}

	if c.SolutionTagID != nil {
		id := *c.SolutionTagID
		clone.SolutionTagID = &id
	}

	if c.ArchivedTimestamp != nil {
		t := *c.ArchivedTimestamp
		clone.ArchivedTimestamp = &t
	}

	return &clone
}

// AllowedRootChannelType checks whether a root channel of the given type may
// be stored. Threads are always allowed and are covered separately.
func AllowedRootChannelType(t discord.ChannelType) bool {
	switch t {
	case discord.ChannelTypeGuildText, discord.ChannelTypeGuildNews, discord.ChannelTypeGuildForum:
		return true
	default:
		return false
	}
}
