package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"quiz-arena/internal/app"
	"quiz-arena/internal/domain"
	"quiz-arena/internal/infra/memory"
)

func TestRegistryWidensCodeOnCollision(t *testing.T) {
	calls := map[int]int{}
	gen := func(length int) (string, error) {
		calls[length]++
		return strings.Repeat("A", length), nil
	}
	h := newHarness(t, app.WithCodeGenerator(gen))

	first := h.createRoom(t, 1)
	second := h.createRoom(t, 1)

	if first != "AAAAAA" {
		t.Fatalf("expected six letter code, got %s", first)
	}
	if second != "AAAAAAA" {
		t.Fatalf("expected widened code after collisions, got %s", second)
	}
	if calls[6] != 1+app.DefaultRegistryConfig().CodeAttempts {
		t.Fatalf("expected every short attempt to be tried, got %d", calls[6])
	}
}

func TestRegistryCodeSpaceExhausted(t *testing.T) {
	h := newHarness(t, app.WithCodeGenerator(func(int) (string, error) { return "SAME", nil }))
	h.createRoom(t, 1)

	_, err := h.service.CreateRoom(context.Background(), domain.Identity{UserID: "bob"}, domain.RoomSettings{TotalRounds: 1})
	if !errors.Is(err, domain.ErrCodeSpaceExhausted) {
		t.Fatalf("expected code space exhausted, got %v", err)
	}
	if got := len(h.store.List()); got != 1 {
		t.Fatalf("expected only the first room registered, got %d", got)
	}
}

func TestRegistryRejectsBadCreation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	host := domain.Identity{UserID: "alice"}

	_, err := h.service.CreateRoom(ctx, host, domain.RoomSettings{TotalRounds: 6})
	if !errors.Is(err, domain.ErrInsufficientQuestions) {
		t.Fatalf("expected insufficient questions, got %v", err)
	}
	_, err = h.service.CreateRoom(ctx, host, domain.RoomSettings{MaxPlayers: 12})
	if !errors.Is(err, domain.ErrInvalidSettings) {
		t.Fatalf("expected invalid settings, got %v", err)
	}
	_, err = h.service.CreateRoom(ctx, domain.Identity{}, domain.RoomSettings{TotalRounds: 1})
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	if got := len(h.store.List()); got != 0 {
		t.Fatalf("expected no rooms registered, got %d", got)
	}
}

type failingProvider struct{}

func (failingProvider) FetchQuestions(context.Context, string, domain.Difficulty, int) ([]domain.Question, error) {
	return nil, errors.New("connection refused")
}

func TestRegistryProviderFailureFailsOnlyCreation(t *testing.T) {
	registry := app.NewRegistry(memory.NewRoomStore(), failingProvider{}, app.DefaultRegistryConfig())
	_, err := registry.Create(context.Background(), domain.RoomSettings{TotalRounds: 1})
	if !errors.Is(err, domain.ErrQuestionsUnavailable) {
		t.Fatalf("expected questions unavailable, got %v", err)
	}
	if _, err := registry.Lookup("ANY"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected registry untouched, got %v", err)
	}
}

func TestRegistrySweep(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	finished := h.createRoom(t, 1)
	h.join(t, finished, "alice", "bob")
	q := h.openFirstQuestion(t, finished)
	_, _ = h.service.SubmitAnswer(ctx, finished, "alice", q.ID, "right", time.Time{})
	_, _ = h.service.SubmitAnswer(ctx, finished, "bob", q.ID, "right", time.Time{})
	h.clock.Advance(5 * time.Second)

	empty := h.createRoom(t, 1)
	busy := h.createRoom(t, 1)
	h.join(t, busy, "alice")

	if n := h.registry.Sweep(ctx, h.clock.Now()); n != 0 {
		t.Fatalf("expected nothing swept yet, got %d", n)
	}

	later := h.clock.Now().Add(app.DefaultRegistryConfig().Retention)
	if n := h.registry.Sweep(ctx, later); n != 2 {
		t.Fatalf("expected finished and empty rooms swept, got %d", n)
	}
	if _, err := h.registry.Lookup(finished); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected finished room gone, got %v", err)
	}
	if _, err := h.registry.Lookup(empty); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected empty room gone, got %v", err)
	}
	if _, err := h.registry.Lookup(busy); err != nil {
		t.Fatalf("expected busy room kept, got %v", err)
	}

	idle := h.clock.Now().Add(app.DefaultRegistryConfig().IdleTTL)
	if n := h.registry.Sweep(ctx, idle); n != 1 {
		t.Fatalf("expected idle room swept, got %d", n)
	}
}

func TestRegistryListPublic(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	open := h.createRoom(t, 1)
	private, err := h.service.CreateRoom(ctx, domain.Identity{UserID: "carol"}, domain.RoomSettings{TotalRounds: 1, Private: true})
	if err != nil {
		t.Fatalf("create private: %v", err)
	}
	started := h.createRoom(t, 1)
	h.join(t, started, "alice", "bob")
	h.openFirstQuestion(t, started)

	rooms, err := h.service.ListPublic(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Code != open {
		t.Fatalf("expected only %s listed, got %+v (private %s)", open, rooms, private.Code)
	}
}

func TestLastParticipantLeavingDisposesWaitingRoom(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	code := h.createRoom(t, 1)
	h.join(t, code, "alice")

	if err := h.service.LeaveRoom(ctx, code, "alice"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, err := h.registry.Lookup(code); errors.Is(err, domain.ErrRoomNotFound) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected empty waiting room to be disposed")
}
