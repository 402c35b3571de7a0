package sync_test

import (
	"context"
	"errors"
	stdsync "sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/threadkeep/threadkeep/internal/database/types"
)

var errStoreDown = errors.New("store unavailable")

// memoryServerStore is an in-memory sync.ServerStore.
type memoryServerStore struct {
	mu      stdsync.Mutex
	rows    map[snowflake.ID]*types.Server
	failIDs map[snowflake.ID]struct{}
	// findOrder records the ids looked up, in call order.
	findOrder []snowflake.ID
}

func newMemoryServerStore(servers ...*types.Server) *memoryServerStore {
	store := &memoryServerStore{
		rows:    map[snowflake.ID]*types.Server{},
		failIDs: map[snowflake.ID]struct{}{},
	}
	for _, server := range servers {
		store.rows[server.ID] = server.Clone()
	}

	return store
}

func (s *memoryServerStore) Find(_ context.Context, id snowflake.ID) (*types.Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.findOrder = append(s.findOrder, id)

	if _, ok := s.failIDs[id]; ok {
		return nil, errStoreDown
	}

	row, ok := s.rows[id]
	if !ok {
		return nil, nil
	}

	return row.Clone(), nil
}

func (s *memoryServerStore) Create(_ context.Context, server *types.Server) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[server.ID] = server.Clone()

	return nil
}

func (s *memoryServerStore) Update(_ context.Context, server *types.Server) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[server.ID] = server.Clone()

	return nil
}

func (s *memoryServerStore) Active(_ context.Context) ([]*types.Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []*types.Server

	for _, server := range s.rows {
		if server.KickedTime == nil {
			active = append(active, server.Clone())
		}
	}

	return active, nil
}

func (s *memoryServerStore) get(id snowflake.ID) *types.Server {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rows[id]
}

func (s *memoryServerStore) finds() []snowflake.ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]snowflake.ID(nil), s.findOrder...)
}

// memoryChannelStore is an in-memory sync.ChannelStore.
type memoryChannelStore struct {
	mu   stdsync.Mutex
	rows map[snowflake.ID]*types.Channel
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

func (s *memoryChannelStore) FindByServer(_ context.Context, serverID snowflake.ID) ([]*types.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var channels []*types.Channel

	for _, channel := range s.rows {
		if channel.ServerID == serverID {
			channels = append(channels, channel.Clone())
		}
	}

	return channels, nil
}

func (s *memoryChannelStore) Create(_ context.Context, channel *types.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[channel.ID] = channel.Clone()

	return nil
}

func (s *memoryChannelStore) Update(_ context.Context, channel *types.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[channel.ID] = channel.Clone()

	return nil
}

func (s *memoryChannelStore) Delete(_ context.Context, id snowflake.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rows, id)

	return nil
}

func (s *memoryChannelStore) get(id snowflake.ID) *types.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rows[id]
}

func (s *memoryChannelStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.rows)
}
