package settings

import (
	"context"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/threadkeep/threadkeep/internal/database/types"
	"go.uber.org/zap"
)

// ChannelSettingsPolicy encodes the per-channel feature toggle rules.
type ChannelSettingsPolicy struct {
	channels ChannelStore
	servers  ServerStore
	gateway  InviteGateway
	logger   *zap.Logger
}

// NewChannelSettingsPolicy creates a new channel settings policy.
func NewChannelSettingsPolicy(
	channels ChannelStore, servers ServerStore, gateway InviteGateway, logger *zap.Logger,
) *ChannelSettingsPolicy {
	return &ChannelSettingsPolicy{
		channels: channels,
		servers:  servers,
		gateway:  gateway,
		logger:   logger.Named("channel_settings_policy"),
	}
}

// ChannelToggle describes one channel feature flag change request.
type ChannelToggle struct {
	ChannelID snowflake.ID
	Enabled   bool
	// GuidelineText is the channel's current topic text, required when
	// enabling forum guidelines consent.
	GuidelineText string
	// OnError receives veto errors instead of them being returned.
	OnError func(err error)
	// OnSettingChange runs after a successful write.
	OnSettingChange func(updated *types.Channel)
}

// SetIndexingEnabled toggles message indexing for a channel.
//
// Enabling requires a usable invite before anything is written: a fresh
// invite from the platform, or the server's vanity code as a fallback. With
// neither obtainable the write is vetoed. Disabling clears the stored
// invite code.
func (p *ChannelSettingsPolicy) SetIndexingEnabled(
	ctx context.Context, toggle ChannelToggle,
) (*types.Channel, error) {
	return p.updateFlag(ctx, toggle, types.ChannelFlagIndexingEnabled,
		"Indexing", nil,
		func(ctx context.Context, enabled bool, updated *types.Channel) error {
			if enabled {
				invite, err := p.obtainInvite(ctx, updated)
				if err != nil {
					return err
				}

				updated.InviteCode = invite
			} else {
				updated.InviteCode = ""
			}

			return nil
		})
}

// SetMarkSolutionEnabled toggles marking messages as solutions.
func (p *ChannelSettingsPolicy) SetMarkSolutionEnabled(
	ctx context.Context, toggle ChannelToggle,
) (*types.Channel, error) {
	return p.updateFlag(ctx, toggle, types.ChannelFlagMarkSolution,
		"Mark solution", nil, nil)
}

// SetSendMarkSolutionInstructions toggles posting mark-solution instructions
// into new threads. Requires mark solution to be enabled.
func (p *ChannelSettingsPolicy) SetSendMarkSolutionInstructions(
	ctx context.Context, toggle ChannelToggle,
) (*types.Channel, error) {
	return p.updateFlag(ctx, toggle, types.ChannelFlagSendMarkSolutionInstructions,
		"Send mark solution instructions",
		func(existing *types.Channel, enabled bool) error {
			if enabled && !existing.Flags.Has(types.ChannelFlagMarkSolution) {
				return NewVeto(ReasonPreventedByOtherSetting,
					"You must enable mark solution before enabling its instructions.")
			}

			return nil
		}, nil)
}

// SetAutoThreadEnabled toggles automatic thread creation for new messages.
// Requires indexing to be enabled.
func (p *ChannelSettingsPolicy) SetAutoThreadEnabled(
	ctx context.Context, toggle ChannelToggle,
) (*types.Channel, error) {
	return p.updateFlag(ctx, toggle, types.ChannelFlagAutoThread,
		"Auto thread",
		func(existing *types.Channel, enabled bool) error {
			if enabled && !existing.Flags.Has(types.ChannelFlagIndexingEnabled) {
				return NewVeto(ReasonPreventedByOtherSetting,
					"You must enable indexing before enabling auto thread.")
			}

			return nil
		}, nil)
}

// SetForumGuidelinesConsent toggles collecting consent from users who post
// in a forum channel. Enabling requires the channel to be a forum whose
// guidelines contain the consent prompt.
func (p *ChannelSettingsPolicy) SetForumGuidelinesConsent(
	ctx context.Context, toggle ChannelToggle,
) (*types.Channel, error) {
	return p.updateFlag(ctx, toggle, types.ChannelFlagForumGuidelinesConsent,
		"Forum guidelines consent",
		func(existing *types.Channel, enabled bool) error {
			if !enabled {
				return nil
			}

			if existing.Type != discord.ChannelTypeGuildForum {
				return NewVeto(ReasonAPIError,
					"Forum guidelines consent can only be enabled on forum channels.")
			}

			if !GuidelinesContainConsentPrompt(toggle.GuidelineText) {
				return NewVeto(ReasonAPIError,
					"Your forum guidelines must contain the consent prompt before enabling this setting.")
			}

			return nil
		}, nil)
}

// SolutionTagUpdate describes a solution tag change for a forum channel.
type SolutionTagUpdate struct {
	ChannelID snowflake.ID
	// TagID is the new solution tag, or nil to clear it.
	TagID *snowflake.ID
	// OnError receives veto errors instead of them being returned.
	OnError func(err error)
	// OnSettingChange runs after a successful write.
	OnSettingChange func(updated *types.Channel)
}

// SetSolutionTag changes the tag applied to solved forum posts. Requires
// mark solution to be enabled.
func (p *ChannelSettingsPolicy) SetSolutionTag(
	ctx context.Context, update SolutionTagUpdate,
) (*types.Channel, error) {
	return UpdateSetting(ctx, UpdateParams[*types.Channel, *snowflake.ID]{
		NewValue: update.TagID,
		FetchCurrent: func(ctx context.Context) (*types.Channel, error) {
			return p.channels.Find(ctx, update.ChannelID)
		},
		CheckAlreadySet: func(existing *types.Channel, tagID *snowflake.ID) error {
			if !existing.Flags.Has(types.ChannelFlagMarkSolution) {
				return NewVeto(ReasonPreventedByOtherSetting,
					"You must enable mark solution before setting a solution tag.")
			}

			if snowflakePtrEqual(existing.SolutionTagID, tagID) {
				return NewVeto(ReasonTargetValueAlreadySet,
					"The solution tag is already set to that value.")
			}

			return nil
		},
		ApplyUpdate: func(ctx context.Context, tagID *snowflake.ID, existing *types.Channel) (*types.Channel, error) {
			if existing == nil {
				return nil, NewVeto(ReasonAPIError, "That channel is not known to the bot.")
			}

			updated := existing.Clone()
			updated.SolutionTagID = tagID

			if err := p.channels.Update(ctx, updated); err != nil {
				return nil, err
			}

			return updated, nil
		},
		OnChanged: func(_ context.Context, updated *types.Channel) (*types.Channel, error) {
			if update.OnSettingChange != nil {
				update.OnSettingChange(updated)
			}

			return updated, nil
		},
		OnError: update.OnError,
	})
}

// updateFlag runs a single channel flag change through the update engine.
// extraCheck vetoes on top of the shared no-op guard; beforeWrite mutates
// the pending row and may veto, and runs before the store write.
func (p *ChannelSettingsPolicy) updateFlag(
	ctx context.Context,
	toggle ChannelToggle,
	flag types.ChannelFlags,
	name string,
	extraCheck func(existing *types.Channel, enabled bool) error,
	beforeWrite func(ctx context.Context, enabled bool, updated *types.Channel) error,
) (*types.Channel, error) {
	return UpdateSetting(ctx, UpdateParams[*types.Channel, bool]{
		NewValue: toggle.Enabled,
		FetchCurrent: func(ctx context.Context) (*types.Channel, error) {
			return p.channels.Find(ctx, toggle.ChannelID)
		},
		CheckAlreadySet: func(existing *types.Channel, enabled bool) error {
			if existing.Flags.Has(flag) == enabled {
				return NewVeto(ReasonTargetValueAlreadySet,
					name+" is already set to that value.")
			}

			if extraCheck != nil {
				return extraCheck(existing, enabled)
			}

			return nil
		},
		ApplyUpdate: func(ctx context.Context, enabled bool, existing *types.Channel) (*types.Channel, error) {
			if existing == nil {
				return nil, NewVeto(ReasonAPIError, "That channel is not known to the bot.")
			}

			updated := existing.Clone()
			updated.Flags = updated.Flags.Set(flag, enabled)

			if beforeWrite != nil {
				if err := beforeWrite(ctx, enabled, updated); err != nil {
					return nil, err
				}
			}

			if err := p.channels.Update(ctx, updated); err != nil {
				return nil, err
			}

			return updated, nil
		},
		OnChanged: func(_ context.Context, updated *types.Channel) (*types.Channel, error) {
			if toggle.OnSettingChange != nil {
				toggle.OnSettingChange(updated)
			}

			return updated, nil
		},
		OnError: toggle.OnError,
	})
}

// obtainInvite acquires a usable invite for the channel: a fresh platform
// invite, or the server's vanity code as a fallback. This happens before the
// settings write so indexing is never enabled without one.
func (p *ChannelSettingsPolicy) obtainInvite(ctx context.Context, channel *types.Channel) (string, error) {
	invite, err := p.gateway.CreateInvite(ctx, channel.ID)
	if err == nil && invite != "" {
		return invite, nil
	}

	if err != nil {
		p.logger.Debug("Falling back to vanity invite",
			zap.Uint64("channelID", uint64(channel.ID)),
			zap.Error(err))
	}

	vanity, vanityErr := p.gateway.VanityCode(ctx, channel.ServerID)
	if vanityErr == nil && vanity != "" {
		return vanity, nil
	}

	if server, findErr := p.servers.Find(ctx, channel.ServerID); findErr == nil &&
		server != nil && server.VanityURL != "" {
		return server.VanityURL, nil
	}

	return "", NewVeto(ReasonAPIError,
		"The bot needs permission to create an invite, or the server needs a vanity invite, before indexing can be enabled.")
}

func snowflakePtrEqual(a, b *snowflake.ID) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}
