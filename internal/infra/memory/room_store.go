package memory

import (
	"context"
	"sync"

	"quiz-arena/internal/app"
)

// RoomStore is an in-memory implementation of app.RoomStore.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*app.Coordinator
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*app.Coordinator),
	}
}

func (s *RoomStore) Insert(_ context.Context, code string, c *app.Coordinator) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.rooms[code]; taken {
		return false, nil
	}
	s.rooms[code] = c
	return true, nil
}

func (s *RoomStore) Get(code string) (*app.Coordinator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.rooms[code]
	return c, ok
}

func (s *RoomStore) Delete(_ context.Context, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
}

func (s *RoomStore) List() []*app.Coordinator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Coordinator, 0, len(s.rooms))
	for _, c := range s.rooms {
		out = append(out, c)
	}
	return out
}
