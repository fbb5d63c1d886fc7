package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRoomNotFound is returned when a room code is not in the registry.
	ErrRoomNotFound = errors.New("room not found")
	// ErrParticipantNotFound is returned when a user tries to act before joining.
	ErrParticipantNotFound = errors.New("participant not found in room")
	// ErrInvalidSettings wraps every room settings validation failure.
	ErrInvalidSettings = errors.New("invalid room settings")
	// ErrInsufficientQuestions means the filtered bank cannot cover the requested rounds.
	ErrInsufficientQuestions = errors.New("insufficient questions for requested rounds")
	// ErrQuestionsUnavailable wraps question provider failures other than a short bank.
	ErrQuestionsUnavailable = errors.New("questions unavailable")
	// ErrCodeSpaceExhausted is returned when no free room code could be generated.
	ErrCodeSpaceExhausted = errors.New("room code space exhausted")
	// ErrRoomFull rejects a join when every seat is taken.
	ErrRoomFull = errors.New("room is full")
	// ErrAlreadyStarted rejects late joins into private rooms.
	ErrAlreadyStarted = errors.New("match already started")
	// ErrNotHost is returned when a non-host tries a host-only action.
	ErrNotHost = errors.New("only the host can do that")
	// ErrNotReady is returned when the start guard is not satisfied.
	ErrNotReady = errors.New("room is not ready to start")

	// ErrWrongPhase rejects answers outside the question phase.
	ErrWrongPhase = errors.New("match is not accepting answers")
	// ErrAlreadyAnswered rejects a second answer for the same question.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrStaleQuestion rejects answers for a question other than the current one.
	ErrStaleQuestion = errors.New("answer targets a stale question")
	// ErrInvalidOption rejects an option that is not part of the question.
	ErrInvalidOption = errors.New("option not found")
	// ErrInvalidQuestion is returned for questions whose correct option is not one of its options.
	ErrInvalidQuestion = errors.New("invalid question")

	// ErrRoomClosed is returned by a coordinator that has been disposed.
	ErrRoomClosed = errors.New("room closed")
	// ErrUnauthenticated is returned when identity cannot be established.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// InvariantError signals a programming error: a state the engine must never reach.
type InvariantError struct {
	Invariant string
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated: %s: %s", e.Invariant, e.Detail)
}

// IsRejection reports whether err is an expected, caller-facing rejection
// rather than an internal failure.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrRoomNotFound, ErrWrongPhase, ErrAlreadyAnswered, ErrStaleQuestion, ErrInvalidOption,
		ErrParticipantNotFound, ErrRoomFull, ErrAlreadyStarted, ErrNotHost,
		ErrNotReady, ErrInvalidSettings, ErrInsufficientQuestions,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
