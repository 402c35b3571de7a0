package settings_test

import (
	"context"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/threadkeep/threadkeep/internal/database/types"
)

// settingsKey is the composite key for user server settings rows.
type settingsKey struct {
	userID   snowflake.ID
	serverID snowflake.ID
}

// memorySettingsStore is an in-memory UserSettingsStore.
type memorySettingsStore struct {
	mu      sync.Mutex
	rows    map[settingsKey]*types.UserServerSettings
	findErr error
	writes  int
}

func newMemorySettingsStore() *memorySettingsStore {
	return &memorySettingsStore{rows: map[settingsKey]*types.UserServerSettings{}}
}

func (s *memorySettingsStore) Find(
	_ context.Context, userID, serverID snowflake.ID,
) (*types.UserServerSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findErr != nil {
		return nil, s.findErr
	}

	row, ok := s.rows[settingsKey{userID, serverID}]
	if !ok {
		return nil, nil
	}

	return row.Clone(), nil
}

func (s *memorySettingsStore) Create(_ context.Context, settings *types.UserServerSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writes++
	s.rows[settingsKey{settings.UserID, settings.ServerID}] = settings.Clone()

	return nil
}

func (s *memorySettingsStore) Update(_ context.Context, settings *types.UserServerSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writes++
	s.rows[settingsKey{settings.UserID, settings.ServerID}] = settings.Clone()

	return nil
}

func (s *memorySettingsStore) get(userID, serverID snowflake.ID) *types.UserServerSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rows[settingsKey{userID, serverID}]
}

func (s *memorySettingsStore) put(settings *types.UserServerSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[settingsKey{settings.UserID, settings.ServerID}] = settings.Clone()
}

// memoryIgnoredStore is an in-memory IgnoredAccountStore.
type memoryIgnoredStore struct {
	ignored map[snowflake.ID]struct{}
}

func newMemoryIgnoredStore(ignored ...snowflake.ID) *memoryIgnoredStore {
	store := &memoryIgnoredStore{ignored: map[snowflake.ID]struct{}{}}
	for _, id := range ignored {
		store.ignored[id] = struct{}{}
	}

	return store
}

func (s *memoryIgnoredStore) IsIgnored(_ context.Context, userID snowflake.ID) (bool, error) {
	_, ok := s.ignored[userID]
	return ok, nil
}

// memoryChannelStore is an in-memory ChannelStore.
type memoryChannelStore struct {
	mu     sync.Mutex
	rows   map[snowflake.ID]*types.Channel
	writes int
}

func newMemoryChannelStore(channels ...*types.Channel) *memoryChannelStore {
	store := &memoryChannelStore{rows: map[snowflake.ID]*types.Channel{}}
	for _, channel := range channels {
		store.rows[channel.ID] = channel.Clone()
	}

	return store
}

func (s *memoryChannelStore) Find(_ context.Context, id snowflake.ID) (*types.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, nil
	}

	return row.Clone(), nil
}

func (s *memoryChannelStore) Update(_ context.Context, channel *types.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writes++
	s.rows[channel.ID] = channel.Clone()

	return nil
}

func (s *memoryChannelStore) get(id snowflake.ID) *types.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rows[id]
}

// memoryServerStore is an in-memory ServerStore.
type memoryServerStore struct {
	mu   sync.Mutex
	rows map[snowflake.ID]*types.Server
}

func newMemoryServerStore(servers ...*types.Server) *memoryServerStore {
	store := &memoryServerStore{rows: map[snowflake.ID]*types.Server{}}
	for _, server := range servers {
		store.rows[server.ID] = server.Clone()
	}

	return store
}

func (s *memoryServerStore) Find(_ context.Context, id snowflake.ID) (*types.Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, nil
	}

	return row.Clone(), nil
}

func (s *memoryServerStore) Update(_ context.Context, server *types.Server) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[server.ID] = server.Clone()

	return nil
}

func (s *memoryServerStore) get(id snowflake.ID) *types.Server {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rows[id]
}

// fakeGateway is a scripted InviteGateway.
type fakeGateway struct {
	invite      string
	inviteErr   error
	vanity      string
	vanityErr   error
	createCalls int
}

func (g *fakeGateway) CreateInvite(_ context.Context, _ snowflake.ID) (string, error) {
	g.createCalls++

	if g.inviteErr != nil {
		return "", g.inviteErr
	}

	return g.invite, nil
}

func (g *fakeGateway) VanityCode(_ context.Context, _ snowflake.ID) (string, error) {
	if g.vanityErr != nil {
		return "", g.vanityErr
	}

	return g.vanity, nil
}
