package settings

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/threadkeep/threadkeep/internal/database/types"
	"go.uber.org/zap"
)

// ServerSettingsPolicy encodes the server-wide feature toggle rules.
type ServerSettingsPolicy struct {
	servers ServerStore
	logger  *zap.Logger
}

// NewServerSettingsPolicy creates a new server settings policy.
func NewServerSettingsPolicy(servers ServerStore, logger *zap.Logger) *ServerSettingsPolicy {
	return &ServerSettingsPolicy{
		servers: servers,
		logger:  logger.Named("server_settings_policy"),
	}
}

// ServerToggle describes one server feature flag change request.
type ServerToggle struct {
	ServerID snowflake.ID
	Enabled  bool
	// OnError receives veto errors instead of them being returned.
	OnError func(err error)
	// OnSettingChange runs after a successful write.
	OnSettingChange func(updated *types.Server)
}

// SetReadTheRulesConsent toggles granting consent when members accept the
// server's membership screening rules.
func (p *ServerSettingsPolicy) SetReadTheRulesConsent(
	ctx context.Context, toggle ServerToggle,
) (*types.Server, error) {
	return p.updateFlag(ctx, toggle, types.ServerFlagReadTheRulesConsent, "Read the rules consent")
}

// SetConsiderAllMessagesPublic toggles treating every indexed message in the
// server as publicly displayable.
func (p *ServerSettingsPolicy) SetConsiderAllMessagesPublic(
	ctx context.Context, toggle ServerToggle,
) (*types.Server, error) {
	return p.updateFlag(ctx, toggle, types.ServerFlagConsiderAllMessagesPublic, "Consider all messages public")
}

// SetAnonymizeMessages toggles hiding author identities on indexed pages.
func (p *ServerSettingsPolicy) SetAnonymizeMessages(
	ctx context.Context, toggle ServerToggle,
) (*types.Server, error) {
	return p.updateFlag(ctx, toggle, types.ServerFlagAnonymizeMessages, "Anonymize messages")
}

func (p *ServerSettingsPolicy) updateFlag(
	ctx context.Context, toggle ServerToggle, flag types.ServerFlags, name string,
) (*types.Server, error) {
	return UpdateSetting(ctx, UpdateParams[*types.Server, bool]{
		NewValue: toggle.Enabled,
		FetchCurrent: func(ctx context.Context) (*types.Server, error) {
			return p.servers.Find(ctx, toggle.ServerID)
		},
		CheckAlreadySet: func(existing *types.Server, enabled bool) error {
			if existing.Flags.Has(flag) == enabled {
				return NewVeto(ReasonTargetValueAlreadySet,
					name+" is already set to that value.")
			}

			return nil
		},
		ApplyUpdate: func(ctx context.Context, enabled bool, existing *types.Server) (*types.Server, error) {
			// Server rows are owned by the reconciler; settings cannot
			// create one for a server the bot has never seen.
			if existing == nil {
				return nil, NewVeto(ReasonAPIError, "That server is not known to the bot.")
			}

			updated := existing.Clone()
			updated.Flags = updated.Flags.Set(flag, enabled)

			if err := p.servers.Update(ctx, updated); err != nil {
				return nil, err
			}

			return updated, nil
		},
		OnChanged: func(_ context.Context, updated *types.Server) (*types.Server, error) {
			if toggle.OnSettingChange != nil {
				toggle.OnSettingChange(updated)
			}

			return updated, nil
		},
		OnError: toggle.OnError,
	})
}
