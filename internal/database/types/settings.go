package types

import (
	"github.com/disgoorg/snowflake/v2"
)

// UserServerFlags is a bitfield of per-user, per-server privacy toggles.
type UserServerFlags uint64

const (
	// UserServerFlagCanPubliclyDisplayMessages grants consent for the user's
	// messages in the server to be shown on the public web.
	UserServerFlagCanPubliclyDisplayMessages UserServerFlags = 1 << iota
	// UserServerFlagMessageIndexingDisabled excludes the user's messages in
	// the server from indexing entirely.
	UserServerFlagMessageIndexingDisabled
)

// Has checks whether every bit in flag is set.
func (f UserServerFlags) Has(flag UserServerFlags) bool {
	return f&flag == flag
}

// Set returns f with flag turned on or off.
func (f UserServerFlags) Set(flag UserServerFlags, on bool) UserServerFlags {
	if on {
		return f | flag
	}

	return f &^ flag
}

// UserServerSettings stores a user's privacy settings for one server.
// Rows are created lazily on the first settings write and never auto-deleted.
//
// Invariant: UserServerFlagCanPubliclyDisplayMessages must never be set while
// UserServerFlagMessageIndexingDisabled is set for the same row.
type UserServerSettings struct {
	UserID   snowflake.ID    `bun:",pk"`
	ServerID snowflake.ID    `bun:",pk"`
	Flags    UserServerFlags `bun:",notnull,default:0"`
}

// CanPubliclyDisplayMessages reports whether public-display consent is granted.
func (s *UserServerSettings) CanPubliclyDisplayMessages() bool {
	return s.Flags.Has(UserServerFlagCanPubliclyDisplayMessages)
}

// MessageIndexingDisabled reports whether the user's messages are excluded
// from indexing in this server.
func (s *UserServerSettings) MessageIndexingDisabled() bool {
	return s.Flags.Has(UserServerFlagMessageIndexingDisabled)
}

// Clone returns a copy of the settings row.
func (s *UserServerSettings) Clone() *UserServerSettings {
	clone := *s
	return &clone
}

// IgnoredAccount stores a globally opted-out user. Presence blocks creation
// of any per-server settings or stored content for the user, independent of
// UserServerSettings rows.
type IgnoredAccount struct {
	UserID snowflake.ID `bun:",pk"`
}
