package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"quiz-arena/internal/app"
)

// RoomStore is a Redis-aware implementation of app.RoomStore.
// Notes:
//   - Coordinators live in a local map; a room is only ever driven by the
//     instance that created it.
//   - Redis reserves the code with SETNX so two instances never hand out
//     the same code. The reservation carries the owning instance id.
//   - Events reach other instances through EventPublisher.
type RoomStore struct {
	client   *redis.Client
	instance string
	ttl      time.Duration
	log      *zap.Logger
	mu       sync.RWMutex
	rooms    map[string]*app.Coordinator
}

// releaseScript drops a reservation only while this instance still holds it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRoomStore(client *redis.Client, instance string, ttl time.Duration, log *zap.Logger) *RoomStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &RoomStore{
		client:   client,
		instance: instance,
		ttl:      ttl,
		log:      log,
		rooms:    make(map[string]*app.Coordinator),
	}
}

func (s *RoomStore) Insert(ctx context.Context, code string, c *app.Coordinator) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.rooms[code]; taken {
		return false, nil
	}
	ok, err := s.client.SetNX(ctx, s.key(code), s.instance, s.ttl).Result()
	if err != nil {
		return false, err
	}
	if !ok {
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

func (s *RoomStore) Delete(ctx context.Context, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; !ok {
		return
	}
	delete(s.rooms, code)
	if err := releaseScript.Run(ctx, s.client, []string{s.key(code)}, s.instance).Err(); err != nil {
		s.log.Warn("release room reservation failed", zap.String("room", code), zap.Error(err))
	}
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

// Refresh extends the reservation of every local room so long matches keep
// their code. It is called by the janitor.
func (s *RoomStore) Refresh(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	s.mu.RLock()
	codes := make([]string, 0, len(s.rooms))
	for code := range s.rooms {
		codes = append(codes, code)
	}
	s.mu.RUnlock()

	pipe := s.client.Pipeline()
	for _, code := range codes {
		pipe.Expire(ctx, s.key(code), s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Owner returns the instance holding code, or "" when it is free.
func (s *RoomStore) Owner(ctx context.Context, code string) (string, error) {
	owner, err := s.client.Get(ctx, s.key(code)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return owner, err
}

func (s *RoomStore) key(code string) string {
	return "arena:room:" + code
}
