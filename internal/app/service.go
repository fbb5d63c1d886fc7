package app

import (
	"context"
	"time"

	"quiz-arena/internal/domain"
)

// MatchService contains the match use cases exposed to transports.
type MatchService struct {
	rooms *Registry
}

func NewMatchService(rooms *Registry) *MatchService {
	return &MatchService{rooms: rooms}
}

// CreateRoom opens a waiting room hosted by host.
func (s *MatchService) CreateRoom(ctx context.Context, host domain.Identity, settings domain.RoomSettings) (domain.RoomInfo, error) {
	if host.UserID == "" {
		return domain.RoomInfo{}, domain.ErrUnauthenticated
	}
	settings.HostID = host.UserID
	room, err := s.rooms.Create(ctx, settings)
	if err != nil {
		return domain.RoomInfo{}, err
	}
	return room.Snapshot(ctx)
}

// JoinRoom registers or reconnects a participant.
func (s *MatchService) JoinRoom(ctx context.Context, code string, id domain.Identity) (domain.Participant, error) {
	room, err := s.rooms.Lookup(code)
	if err != nil {
		return domain.Participant{}, err
	}
	return room.Join(ctx, id)
}

// MarkReady toggles the participant's ready flag.
func (s *MatchService) MarkReady(ctx context.Context, code, userID string, ready bool) error {
	room, err := s.rooms.Lookup(code)
	if err != nil {
		return err
	}
	return room.MarkReady(ctx, userID, ready)
}

// StartMatch starts the countdown; only the host may do this while present.
func (s *MatchService) StartMatch(ctx context.Context, code, userID string) error {
	room, err := s.rooms.Lookup(code)
	if err != nil {
		return err
	}
	return room.Start(ctx, userID)
}

// SubmitAnswer records an answer for the open question.
func (s *MatchService) SubmitAnswer(ctx context.Context, code, userID, questionID, option string, clientSent time.Time) (domain.AnswerReceipt, error) {
	room, err := s.rooms.Lookup(code)
	if err != nil {
		return domain.AnswerReceipt{}, err
	}
	return room.SubmitAnswer(ctx, userID, questionID, option, clientSent)
}

// Advance skips the rest of the results screen.
func (s *MatchService) Advance(ctx context.Context, code, userID string) error {
	room, err := s.rooms.Lookup(code)
	if err != nil {
		return err
	}
	return room.Advance(ctx, userID)
}

// LeaveRoom removes a participant for good.
func (s *MatchService) LeaveRoom(ctx context.Context, code, userID string) error {
	room, err := s.rooms.Lookup(code)
	if err != nil {
		return err
	}
	return room.Leave(ctx, userID)
}

// Disconnect marks a participant's connection as lost.
func (s *MatchService) Disconnect(ctx context.Context, code, userID string) error {
	room, err := s.rooms.Lookup(code)
	if err != nil {
		return err
	}
	return room.Disconnect(ctx, userID)
}

// Subscribe returns a channel that receives room events.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *MatchService) Subscribe(ctx context.Context, code string) (<-chan domain.Event, func(), error) {
	room, err := s.rooms.Lookup(code)
	if err != nil {
		return nil, nil, err
	}
	return room.Subscribe(ctx)
}

// Lookup returns the current view of a room.
func (s *MatchService) Lookup(ctx context.Context, code string) (domain.RoomInfo, error) {
	room, err := s.rooms.Lookup(code)
	if err != nil {
		return domain.RoomInfo{}, err
	}
	return room.Snapshot(ctx)
}

// ListPublic feeds the room browser.
func (s *MatchService) ListPublic(ctx context.Context) ([]domain.RoomInfo, error) {
	return s.rooms.ListPublic(ctx)
}
