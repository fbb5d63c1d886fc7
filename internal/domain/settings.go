package domain

import (
	"fmt"
	"strings"
)

// Difficulty tags a question and filters the bank.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// AnyCategory disables the category filter.
const AnyCategory = "any"

const (
	defaultRoomName        = "Quiz Room"
	defaultCategory        = "General Knowledge"
	defaultMaxPlayers      = 4
	defaultQuestionSeconds = 30
	defaultTotalRounds     = 10

	minPlayers         = 2
	maxPlayers         = 8
	minQuestionSeconds = 5
	maxQuestionSeconds = 120
	maxRounds          = 50
)

// RoomSettings is what a host chooses when creating a room.
type RoomSettings struct {
	Name            string     `json:"name"`
	Category        string     `json:"category"`
	Difficulty      Difficulty `json:"difficulty"`
	MaxPlayers      int        `json:"maxPlayers"`
	QuestionSeconds int        `json:"questionSeconds"`
	TotalRounds     int        `json:"totalRounds"`
	Private         bool       `json:"private"`
	HostID          string     `json:"hostId"`
	RequireReady    bool       `json:"requireReady"`
	MinReady        int        `json:"minReady"`
}

// Normalize fills defaults for zero values.
func (s RoomSettings) Normalize() RoomSettings {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		s.Name = defaultRoomName
	}
	s.Category = strings.TrimSpace(s.Category)
	if s.Category == "" {
		s.Category = defaultCategory
	}
	if s.Difficulty == "" {
		s.Difficulty = DifficultyMedium
	}
	if s.MaxPlayers == 0 {
		s.MaxPlayers = defaultMaxPlayers
	}
	if s.QuestionSeconds == 0 {
		s.QuestionSeconds = defaultQuestionSeconds
	}
	if s.TotalRounds == 0 {
		s.TotalRounds = defaultTotalRounds
	}
	return s
}

// Validate reports the first setting outside the accepted range.
func (s RoomSettings) Validate() error {
	switch s.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidSettings, s.Difficulty)
	}
	if s.MaxPlayers < minPlayers || s.MaxPlayers > maxPlayers {
		return fmt.Errorf("%w: max players must be between %d and %d", ErrInvalidSettings, minPlayers, maxPlayers)
	}
	if s.QuestionSeconds < minQuestionSeconds || s.QuestionSeconds > maxQuestionSeconds {
		return fmt.Errorf("%w: seconds per question must be between %d and %d", ErrInvalidSettings, minQuestionSeconds, maxQuestionSeconds)
	}
	if s.TotalRounds < 1 || s.TotalRounds > maxRounds {
		return fmt.Errorf("%w: rounds must be between 1 and %d", ErrInvalidSettings, maxRounds)
	}
	if s.MinReady < 0 || s.MinReady > s.MaxPlayers {
		return fmt.Errorf("%w: min ready must be between 0 and max players", ErrInvalidSettings)
	}
	return nil
}

// CategoryFilter returns the category to filter on, or "" for any.
func (s RoomSettings) CategoryFilter() string {
	if strings.EqualFold(s.Category, AnyCategory) {
		return ""
	}
	return s.Category
}
