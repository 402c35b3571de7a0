package settings

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/threadkeep/threadkeep/internal/database/types"
	"go.uber.org/zap"
)

// ConsentSource identifies what triggered a consent or indexing update.
type ConsentSource string

const (
	// Automated sources are triggered by platform-side matching or gating,
	// never by a direct user action. They may only establish a value on a
	// brand-new settings row.
	ConsentSourceForumGuidelines ConsentSource = "forum-post-guidelines"
	ConsentSourceReadTheRules    ConsentSource = "read-the-rules"

	// Manual sources are triggered by an explicit user action.
	ConsentSourceManageAccountMenu     ConsentSource = "manage-account-menu"
	ConsentSourceSlashCommand          ConsentSource = "slash-command"
	ConsentSourceMarkSolutionResponse  ConsentSource = "mark-solution-response"
	ConsentSourceDisableIndexingButton ConsentSource = "disable-indexing-button"
)

// Automated reports whether the source is platform-driven rather than an
// explicit user action.
func (s ConsentSource) Automated() bool {
	return s == ConsentSourceForumGuidelines || s == ConsentSourceReadTheRules
}

// UserSettingsPolicy encodes the consent and indexing-preference rules for
// per-user, per-server settings.
type UserSettingsPolicy struct {
	settings UserSettingsStore
	ignored  IgnoredAccountStore
	logger   *zap.Logger
}

// NewUserSettingsPolicy creates a new user settings policy.
func NewUserSettingsPolicy(
	settings UserSettingsStore, ignored IgnoredAccountStore, logger *zap.Logger,
) *UserSettingsPolicy {
	return &UserSettingsPolicy{
		settings: settings,
		ignored:  ignored,
		logger:   logger.Named("user_settings_policy"),
	}
}

// ConsentUpdate describes one public-display consent change request.
type ConsentUpdate struct {
	UserID   snowflake.ID
	ServerID snowflake.ID
	Source   ConsentSource
	// Granted is the requested value of canPubliclyDisplayMessages.
	Granted bool
	// OnError receives veto errors instead of them being returned.
	OnError func(err error)
	// OnSettingChange runs after every successful write.
	OnSettingChange func(updated *types.UserServerSettings)
}

// UpdateConsent applies a public-display consent change, returning the
// updated row or nil when a business rule vetoed the write.
func (p *UserSettingsPolicy) UpdateConsent(
	ctx context.Context, update ConsentUpdate,
) (*types.UserServerSettings, error) {
	if vetoed, err := p.vetoIgnored(ctx, update.UserID, update.OnError); vetoed || err != nil {
		return nil, err
	}

	return UpdateSetting(ctx, UpdateParams[*types.UserServerSettings, bool]{
		NewValue: update.Granted,
		FetchCurrent: func(ctx context.Context) (*types.UserServerSettings, error) {
			return p.settings.Find(ctx, update.UserID, update.ServerID)
		},
		CheckAlreadySet: func(existing *types.UserServerSettings, granted bool) error {
			// The cross-field invariant wins over every source-specific rule:
			// consent cannot be granted while the user's messages are
			// excluded from indexing in this server.
			if granted && existing.MessageIndexingDisabled() {
				return NewVeto(ReasonPreventedByOtherSetting,
					"You cannot allow your messages to be publicly displayed while your account has indexing disabled in this server.")
			}

			if update.Source.Automated() {
				return NewVeto(ReasonAlreadyExplicitlySet,
					"Your display preference has already been set and will not be changed automatically.")
			}

			if existing.CanPubliclyDisplayMessages() == granted {
				return NewVeto(ReasonTargetValueAlreadySet,
					"Your display preference is already set to that value.")
			}

			return nil
		},
		ApplyUpdate: func(ctx context.Context, granted bool, existing *types.UserServerSettings) (*types.UserServerSettings, error) {
			return p.apply(ctx, existing, update.UserID, update.ServerID,
				types.UserServerFlagCanPubliclyDisplayMessages, granted)
		},
		OnChanged: func(_ context.Context, updated *types.UserServerSettings) (*types.UserServerSettings, error) {
			if update.OnSettingChange != nil {
				update.OnSettingChange(updated)
			}

			return updated, nil
		},
		OnError: update.OnError,
	})
}

// IndexingUpdate describes one message-indexing preference change request.
type IndexingUpdate struct {
	UserID   snowflake.ID
	ServerID snowflake.ID
	Source   ConsentSource
	// Disabled is the requested value of messageIndexingDisabled.
	Disabled bool
	// OnError receives veto errors instead of them being returned.
	OnError func(err error)
	// OnSettingChange runs after every successful write, including the
	// cascaded consent revocation.
	OnSettingChange func(updated *types.UserServerSettings)
}

// UpdateIndexingDisabled toggles a user's per-server indexing opt-out.
//
// Disabling indexing while public-display consent is granted cascades a
// consent revocation; the cascaded row is the authoritative result. The
// cascade cannot recur: its own no-op guard is satisfied once consent is
// false.
func (p *UserSettingsPolicy) UpdateIndexingDisabled(
	ctx context.Context, update IndexingUpdate,
) (*types.UserServerSettings, error) {
	if vetoed, err := p.vetoIgnored(ctx, update.UserID, update.OnError); vetoed || err != nil {
		return nil, err
	}

	return UpdateSetting(ctx, UpdateParams[*types.UserServerSettings, bool]{
		NewValue: update.Disabled,
		FetchCurrent: func(ctx context.Context) (*types.UserServerSettings, error) {
			return p.settings.Find(ctx, update.UserID, update.ServerID)
		},
		CheckAlreadySet: func(existing *types.UserServerSettings, disabled bool) error {
			if existing.MessageIndexingDisabled() == disabled {
				return NewVeto(ReasonTargetValueAlreadySet,
					"Your indexing preference is already set to that value.")
			}

			return nil
		},
		ApplyUpdate: func(ctx context.Context, disabled bool, existing *types.UserServerSettings) (*types.UserServerSettings, error) {
			return p.apply(ctx, existing, update.UserID, update.ServerID,
				types.UserServerFlagMessageIndexingDisabled, disabled)
		},
		OnChanged: func(ctx context.Context, updated *types.UserServerSettings) (*types.UserServerSettings, error) {
			if update.OnSettingChange != nil {
				update.OnSettingChange(updated)
			}

			if !updated.MessageIndexingDisabled() || !updated.CanPubliclyDisplayMessages() {
				return updated, nil
			}

			// Turning indexing off invalidates an existing consent grant, so
			// revoke it through the same policy path.
			p.logger.Debug("Revoking display consent after indexing opt-out",
				zap.Uint64("userID", uint64(update.UserID)),
				zap.Uint64("serverID", uint64(update.ServerID)))

			cascaded, err := p.UpdateConsent(ctx, ConsentUpdate{
				UserID:          update.UserID,
				ServerID:        update.ServerID,
				Source:          ConsentSourceDisableIndexingButton,
				Granted:         false,
				OnError:         update.OnError,
				OnSettingChange: update.OnSettingChange,
			})
			if err != nil {
				return nil, err
			}

			if cascaded != nil {
				return cascaded, nil
			}

			return updated, nil
		},
		OnError: update.OnError,
	})
}

// vetoIgnored blocks every settings write for globally opted-out accounts.
func (p *UserSettingsPolicy) vetoIgnored(
	ctx context.Context, userID snowflake.ID, onError func(error),
) (bool, error) {
	ignored, err := p.ignored.IsIgnored(ctx, userID)
	if err != nil {
		return false, err
	}

	if !ignored {
		return false, nil
	}

	if onError != nil {
		onError(NewVeto(ReasonAPIError,
			"This account has globally opted out and cannot store per-server settings."))
	}

	return true, nil
}

// apply writes a single flag change, creating the row on first write.
func (p *UserSettingsPolicy) apply(
	ctx context.Context,
	existing *types.UserServerSettings,
	userID, serverID snowflake.ID,
	flag types.UserServerFlags,
	on bool,
) (*types.UserServerSettings, error) {
	if existing == nil {
		created := &types.UserServerSettings{
			UserID:   userID,
			ServerID: serverID,
			Flags:    types.UserServerFlags(0).Set(flag, on),
		}
		if err := p.settings.Create(ctx, created); err != nil {
			return nil, err
		}

		return created, nil
	}

	updated := existing.Clone()
	updated.Flags = updated.Flags.Set(flag, on)

	if err := p.settings.Update(ctx, updated); err != nil {
		return nil, err
	}

	return updated, nil
}
