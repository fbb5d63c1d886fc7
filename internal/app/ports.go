package app

import (
	"context"

	"quiz-arena/internal/domain"
)

// QuestionProvider draws an ordered question list for a new match.
type QuestionProvider interface {
	FetchQuestions(ctx context.Context, category string, difficulty domain.Difficulty, count int) ([]domain.Question, error)
}

// ResultRecorder persists finished matches. Calls happen off the match path.
type ResultRecorder interface {
	RecordMatchResult(ctx context.Context, summary domain.MatchSummary) error
}

// EventSink receives every room event in addition to local subscribers,
// e.g. to relay them to other instances.
type EventSink interface {
	Publish(ctx context.Context, event domain.Event) error
}

// RoomStore abstracts the process-wide directory of active rooms (in-memory, Redis, etc).
type RoomStore interface {
	// Insert registers c under code and returns false if the code is taken.
	Insert(ctx context.Context, code string, c *Coordinator) (bool, error)
	Get(code string) (*Coordinator, bool)
	Delete(ctx context.Context, code string)
	List() []*Coordinator
}
