package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quiz-arena/internal/domain"
	"quiz-arena/internal/match"
)

// codeAlphabet leaves out 0/O and 1/I/L.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// RegistryConfig controls code generation and room retention.
type RegistryConfig struct {
	CodeLength    int
	MaxCodeLength int
	CodeAttempts  int
	// Retention keeps finished rooms around so late lookups still see results.
	Retention time.Duration
	// IdleTTL disposes waiting rooms nobody has touched for this long.
	IdleTTL time.Duration
	// EmptyGrace is how long a created room may wait for its first participant.
	EmptyGrace  time.Duration
	Coordinator CoordinatorConfig
}

// DefaultRegistryConfig returns the production defaults.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		CodeLength:    6,
		MaxCodeLength: 8,
		CodeAttempts:  16,
		Retention:     10 * time.Minute,
		IdleTTL:       30 * time.Minute,
		EmptyGrace:    2 * time.Minute,
		Coordinator:   DefaultCoordinatorConfig(),
	}
}

// Registry owns every live room of this process.
type Registry struct {
	store     RoomStore
	questions QuestionProvider
	archiver  *Archiver
	sink      EventSink
	clock     Clock
	log       *zap.Logger
	cfg       RegistryConfig
	codeGen   func(length int) (string, error)
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c Clock) RegistryOption {
	return func(r *Registry) { r.clock = c }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) { r.log = l }
}

// WithArchiver routes finished matches to a recorder.
func WithArchiver(a *Archiver) RegistryOption {
	return func(r *Registry) { r.archiver = a }
}

// WithEventSink forwards every room event to sink.
func WithEventSink(sink EventSink) RegistryOption {
	return func(r *Registry) { r.sink = sink }
}

// WithCodeGenerator replaces the random code source.
func WithCodeGenerator(gen func(length int) (string, error)) RegistryOption {
	return func(r *Registry) { r.codeGen = gen }
}

// NewRegistry wires a registry over store and questions.
func NewRegistry(store RoomStore, questions QuestionProvider, cfg RegistryConfig, opts ...RegistryOption) *Registry {
	def := DefaultRegistryConfig()
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = def.CodeLength
	}
	if cfg.MaxCodeLength < cfg.CodeLength {
		cfg.MaxCodeLength = cfg.CodeLength + 2
	}
	if cfg.CodeAttempts <= 0 {
		cfg.CodeAttempts = def.CodeAttempts
	}
	r := &Registry{
		store:     store,
		questions: questions,
		clock:     RealClock(),
		log:       zap.NewNop(),
		cfg:       cfg,
		codeGen:   randomCode,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create validates settings, draws the question sequence and registers a
// new waiting room under a fresh code.
func (r *Registry) Create(ctx context.Context, settings domain.RoomSettings) (*Coordinator, error) {
	settings = settings.Normalize()
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	questions, err := r.questions.FetchQuestions(ctx, settings.CategoryFilter(), settings.Difficulty, settings.TotalRounds)
	switch {
	case errors.Is(err, domain.ErrInsufficientQuestions):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("%w: %v", domain.ErrQuestionsUnavailable, err)
	}
	seq, err := match.NewSequencer(questions, settings.TotalRounds)
	if err != nil {
		return nil, err
	}

	matchID := uuid.NewString()
	for length := r.cfg.CodeLength; length <= r.cfg.MaxCodeLength; length++ {
		for attempt := 0; attempt < r.cfg.CodeAttempts; attempt++ {
			code, err := r.codeGen(length)
			if err != nil {
				return nil, fmt.Errorf("generate room code: %w", err)
			}
			machine := match.NewMachine(code, matchID, settings, seq, r.cfg.Coordinator.Match, r.clock.Now())
			c := newCoordinator(code, settings, machine, r.cfg.Coordinator, coordinatorDeps{
				clock:   r.clock,
				log:     r.log,
				sink:    r.sink,
				archive: r.archiver.Archive,
				onEmpty: r.disposeEmpty,
			})
			ok, err := r.store.Insert(ctx, code, c)
			if err != nil {
				c.Close()
				return nil, fmt.Errorf("register room: %w", err)
			}
			if ok {
				r.log.Info("room created",
					zap.String("room", code),
					zap.String("match", matchID),
					zap.String("category", settings.Category),
					zap.String("difficulty", string(settings.Difficulty)),
					zap.Int("rounds", settings.TotalRounds),
				)
				return c, nil
			}
			c.Close()
		}
		r.log.Warn("room code space exhausted, widening code",
			zap.Int("length", length),
			zap.Error(domain.ErrCodeSpaceExhausted),
		)
	}
	return nil, domain.ErrCodeSpaceExhausted
}

// Lookup returns the live room for code.
func (r *Registry) Lookup(code string) (*Coordinator, error) {
	c, ok := r.store.Get(code)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return c, nil
}

// Dispose stops the room's coordinator and forgets the code.
func (r *Registry) Dispose(ctx context.Context, code string) {
	c, ok := r.store.Get(code)
	if !ok {
		return
	}
	r.store.Delete(ctx, code)
	c.Close()
	r.log.Info("room disposed", zap.String("room", code))
}

// ListPublic returns public rooms that are waiting and have a free seat,
// oldest first.
func (r *Registry) ListPublic(ctx context.Context) ([]domain.RoomInfo, error) {
	var rooms []domain.RoomInfo
	for _, c := range r.store.List() {
		if c.Settings().Private {
			continue
		}
		info, err := c.Snapshot(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrRoomClosed) {
				continue
			}
			return nil, err
		}
		if info.Phase != domain.PhaseWaiting || info.ParticipantCount >= info.Settings.MaxPlayers {
			continue
		}
		rooms = append(rooms, info)
	}
	sort.Slice(rooms, func(i, j int) bool {
		if !rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
		}
		return rooms[i].Code < rooms[j].Code
	})
	return rooms, nil
}

// Sweep disposes finished rooms past retention and abandoned waiting rooms.
// It returns the number of rooms removed.
func (r *Registry) Sweep(ctx context.Context, now time.Time) int {
	removed := 0
	for _, c := range r.store.List() {
		info, err := c.Snapshot(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrRoomClosed) {
				r.store.Delete(ctx, c.Code())
				removed++
			}
			continue
		}
		if reason := r.expired(info, now); reason != "" {
			r.Dispose(ctx, info.Code)
			r.log.Debug("room swept", zap.String("room", info.Code), zap.String("reason", reason))
			removed++
		}
	}
	return removed
}

func (r *Registry) expired(info domain.RoomInfo, now time.Time) string {
	switch info.Phase {
	case domain.PhaseFinished:
		if now.Sub(info.FinishedAt) >= r.cfg.Retention {
			return "retention"
		}
	case domain.PhaseWaiting:
		idle := now.Sub(info.LastActivity)
		if info.ParticipantCount == 0 && idle >= r.cfg.EmptyGrace {
			return "empty"
		}
		if r.cfg.IdleTTL > 0 && idle >= r.cfg.IdleTTL {
			return "idle"
		}
	}
	return ""
}

// Close disposes every room and waits for pending archives.
func (r *Registry) Close(ctx context.Context) {
	for _, c := range r.store.List() {
		r.Dispose(ctx, c.Code())
	}
	r.archiver.Wait()
}

func (r *Registry) disposeEmpty(code string) {
	ctx := context.Background()
	c, ok := r.store.Get(code)
	if !ok {
		return
	}
	// someone may have joined since the room emptied
	if info, err := c.Snapshot(ctx); err == nil && info.ParticipantCount > 0 {
		return
	}
	r.Dispose(ctx, code)
}

func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
