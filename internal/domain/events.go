package domain

import "time"

// EventType names an outbound room event.
type EventType string

const (
	EventPhaseChanged      EventType = "phaseChanged"
	EventScoreboardUpdated EventType = "scoreboardUpdated"
	EventMatchFinished     EventType = "matchFinished"
)

// Reveal is attached to the results phase: the answer and how everyone did.
type Reveal struct {
	QuestionID    string            `json:"questionId"`
	CorrectOption string            `json:"correctOption"`
	Explanation   string            `json:"explanation,omitempty"`
	Outcomes      []QuestionOutcome `json:"outcomes"`
}

// QuestionOutcome is one participant's result for a closed question.
type QuestionOutcome struct {
	UserID   string `json:"userId"`
	Answered bool   `json:"answered"`
	Option   string `json:"option,omitempty"`
	Correct  bool   `json:"correct"`
	Points   int    `json:"points"`
	Streak   int    `json:"streak"`
}

// Event is fanned out to every listener of a room. Delivery is best effort.
type Event struct {
	Type           EventType        `json:"type"`
	RoomCode       string           `json:"roomCode"`
	Phase          Phase            `json:"phase"`
	Deadline       time.Time        `json:"deadline,omitempty"`
	QuestionIndex  int              `json:"questionIndex"`
	TotalQuestions int              `json:"totalQuestions"`
	Question       *QuestionPayload `json:"question,omitempty"`
	Reveal         *Reveal          `json:"reveal,omitempty"`
	Standings      []Standing       `json:"standings,omitempty"`
	Summary        *MatchSummary    `json:"summary,omitempty"`
	At             time.Time        `json:"at"`
}
