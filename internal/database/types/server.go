package types

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// ServerFlags is a bitfield of per-server feature toggles.
type ServerFlags uint64

const (
	// ServerFlagReadTheRulesConsent grants consent when a member accepts the
	// server's membership screening rules.
	ServerFlagReadTheRulesConsent ServerFlags = 1 << iota
	// ServerFlagConsiderAllMessagesPublic treats every indexed message in the
	// server as publicly displayable.
	ServerFlagConsiderAllMessagesPublic
	// ServerFlagAnonymizeMessages hides author identities on indexed pages.
	ServerFlagAnonymizeMessages
)

// Has checks whether every bit in flag is set.
func (f ServerFlags) Has(flag ServerFlags) bool {
	return f&flag == flag
}

// Set returns f with flag turned on or off.
func (f ServerFlags) Set(flag ServerFlags, on bool) ServerFlags {
	if on {
		return f | flag
	}

	return f &^ flag
}

// Plan identifies a server's billing plan.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanOpenSource Plan = "open_source"
)

// Server stores one row per Discord guild the bot has ever seen.
// Rows are never hard-deleted; KickedTime is the sole liveness signal.
type Server struct {
	ID          snowflake.ID `bun:",pk"`
	Name        string       `bun:",notnull"`
	Icon        string       `bun:",notnull,default:''"`
	Description string       `bun:",notnull,default:''"`
	VanityURL   string       `bun:",notnull,default:''"`
	MemberCount int          `bun:",notnull,default:0"`
	Flags       ServerFlags  `bun:",notnull,default:0"`
	Plan        Plan         `bun:",notnull,default:'free'"`
	KickedTime  *time.Time   `bun:",nullzero"`
}

// Kicked reports whether the bot is currently absent from the guild.
func (s *Server) Kicked() bool {
	return s.KickedTime != nil
}

// Clone returns a deep copy of the server row.
func (s *Server) Clone() *Server {
	clone := *s
	if s.KickedTime != nil {
		t := *s.KickedTime
		clone.KickedTime = &t
	}

	return &clone
}
