package domain

import (
	"fmt"
	"time"
)

// Phase is the lifecycle stage of a room's match.
type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseCountdown Phase = "countdown"
	PhaseQuestion  Phase = "question"
	PhaseResults   Phase = "results"
	PhaseFinished  Phase = "finished"
)

// ConnectionStatus tracks a participant's presence in the room.
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusLeft         ConnectionStatus = "left"
)

// Identity is what the identity collaborator hands over before a join.
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Guest       bool   `json:"guest"`
}

// Participant represents one player and their running state within a room.
type Participant struct {
	UserID         string
	DisplayName    string
	Guest          bool
	Status         ConnectionStatus
	Ready          bool
	Score          int
	CorrectCount   int
	Streak         int
	BestStreak     int
	Answered       int
	TotalLatency   time.Duration
	JoinSeq        int
	JoinedAt       time.Time
	DisconnectedAt time.Time
}

// AverageLatency returns the mean server-measured response latency, and false
// when the participant has not answered anything yet.
func (p *Participant) AverageLatency() (time.Duration, bool) {
	if p.Answered == 0 {
		return 0, false
	}
	return p.TotalLatency / time.Duration(p.Answered), true
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID            string     `json:"id"`
	Prompt        string     `json:"prompt"`
	Options       []string   `json:"options"`
	CorrectOption string     `json:"correctOption"`
	Category      string     `json:"category"`
	Difficulty    Difficulty `json:"difficulty"`
	Explanation   string     `json:"explanation,omitempty"`
}

// Validate checks that the correct option is exactly one member of the options.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidQuestion)
	}
	seen := make(map[string]struct{}, len(q.Options))
	matches := 0
	for _, opt := range q.Options {
		if _, dup := seen[opt]; dup {
			return fmt.Errorf("%w: %s has duplicate option %q", ErrInvalidQuestion, q.ID, opt)
		}
		seen[opt] = struct{}{}
		if opt == q.CorrectOption {
			matches++
		}
	}
	if len(q.Options) < 2 || matches != 1 {
		return fmt.Errorf("%w: %s correct option must be one of %d options", ErrInvalidQuestion, q.ID, len(q.Options))
	}
	return nil
}

// HasOption reports whether option is one of the question's options.
func (q Question) HasOption(option string) bool {
	for _, opt := range q.Options {
		if opt == option {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with q.
func (q Question) Clone() Question {
	out := q
	out.Options = append([]string(nil), q.Options...)
	return out
}

// Payload strips the answer so the question can be sent to clients.
func (q Question) Payload() QuestionPayload {
	return QuestionPayload{
		ID:         q.ID,
		Prompt:     q.Prompt,
		Options:    append([]string(nil), q.Options...),
		Category:   q.Category,
		Difficulty: q.Difficulty,
	}
}

// QuestionPayload is the client-safe view of a question.
type QuestionPayload struct {
	ID         string     `json:"id"`
	Prompt     string     `json:"prompt"`
	Options    []string   `json:"options"`
	Category   string     `json:"category"`
	Difficulty Difficulty `json:"difficulty"`
}

// AnswerEvent is one accepted answer for one question by one participant.
type AnswerEvent struct {
	ParticipantID string        `json:"participantId"`
	QuestionID    string        `json:"questionId"`
	Option        string        `json:"option"`
	ClientLatency time.Duration `json:"clientLatency"`
	ServerLatency time.Duration `json:"serverLatency"`
	ReceiptSeq    uint64        `json:"receiptSeq"`
	ReceivedAt    time.Time     `json:"receivedAt"`
	Correct       bool          `json:"correct"`
	Points        int           `json:"points"`
}

// AnswerReceipt acknowledges an accepted answer. Correctness is revealed with the results.
type AnswerReceipt struct {
	QuestionID string        `json:"questionId"`
	ReceiptSeq uint64        `json:"receiptSeq"`
	Latency    time.Duration `json:"latency"`
}

// Standing is one row of a ranked scoreboard.
type Standing struct {
	Rank         int              `json:"rank"`
	UserID       string           `json:"userId"`
	DisplayName  string           `json:"displayName"`
	Score        int              `json:"score"`
	CorrectCount int              `json:"correctCount"`
	Streak       int              `json:"streak"`
	BestStreak   int              `json:"bestStreak"`
	AvgLatencyMs int64            `json:"avgLatencyMs"`
	Status       ConnectionStatus `json:"status"`
	Ready        bool             `json:"ready"`
}

// QuestionRecord is the per-question answer log kept for the match summary.
type QuestionRecord struct {
	Question Question      `json:"question"`
	Answers  []AnswerEvent `json:"answers"`
}

// MatchSummary is the immutable outcome of a finished match.
type MatchSummary struct {
	MatchID    string           `json:"matchId"`
	RoomCode   string           `json:"roomCode"`
	RoomName   string           `json:"roomName"`
	Category   string           `json:"category"`
	Difficulty Difficulty       `json:"difficulty"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`
	WinnerID   string           `json:"winnerId,omitempty"`
	Abandoned  bool             `json:"abandoned"`
	Standings  []Standing       `json:"standings"`
	Questions  []QuestionRecord `json:"questions"`
}

// RoomInfo is a point-in-time view of a room for lookups and the room browser.
// Question is set only while a question is open, Reveal only during results.
type RoomInfo struct {
	Code             string           `json:"code"`
	Settings         RoomSettings     `json:"settings"`
	Phase            Phase            `json:"phase"`
	HostID           string           `json:"hostId"`
	CreatedAt        time.Time        `json:"createdAt"`
	LastActivity     time.Time        `json:"lastActivity"`
	FinishedAt       time.Time        `json:"finishedAt,omitempty"`
	ParticipantCount int              `json:"participantCount"`
	QuestionIndex    int              `json:"questionIndex"`
	TotalQuestions   int              `json:"totalQuestions"`
	Deadline         time.Time        `json:"deadline,omitempty"`
	Standings        []Standing       `json:"standings"`
	Question         *QuestionPayload `json:"question,omitempty"`
	Reveal           *Reveal          `json:"reveal,omitempty"`
	Summary          *MatchSummary    `json:"summary,omitempty"`
}
