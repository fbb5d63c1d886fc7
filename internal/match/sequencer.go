package match

import (
	"fmt"

	"quiz-arena/internal/domain"
)

// Sequencer owns the fixed question order of one match.
type Sequencer struct {
	questions []domain.Question
	index     int
}

// NewSequencer copies the first rounds distinct, valid questions. The copy
// keeps the match isolated from later changes to the bank.
func NewSequencer(questions []domain.Question, rounds int) (*Sequencer, error) {
	if rounds <= 0 {
		return nil, fmt.Errorf("%w: rounds must be positive", domain.ErrInvalidSettings)
	}
	seen := make(map[string]struct{}, len(questions))
	picked := make([]domain.Question, 0, rounds)
	for _, q := range questions {
		if len(picked) == rounds {
			break
		}
		if _, dup := seen[q.ID]; dup {
			continue
		}
		if err := q.Validate(); err != nil {
			continue
		}
		seen[q.ID] = struct{}{}
		picked = append(picked, q.Clone())
	}
	if len(picked) < rounds {
		return nil, fmt.Errorf("%w: need %d, have %d", domain.ErrInsufficientQuestions, rounds, len(picked))
	}
	return &Sequencer{questions: picked, index: -1}, nil
}

// Current returns the active question; false before the first Advance or once exhausted.
func (s *Sequencer) Current() (domain.Question, bool) {
	if s.index < 0 || s.index >= len(s.questions) {
		return domain.Question{}, false
	}
	return s.questions[s.index], true
}

// Advance moves to the next question. It returns false when exhausted.
func (s *Sequencer) Advance() (domain.Question, bool) {
	if s.index < len(s.questions) {
		s.index++
	}
	return s.Current()
}

// HasNext reports whether Advance would yield another question.
func (s *Sequencer) HasNext() bool {
	return s.index+1 < len(s.questions)
}

// Index is the zero-based position of the current question.
func (s *Sequencer) Index() int { return s.index }

// Len is the number of questions in the match.
func (s *Sequencer) Len() int { return len(s.questions) }

// Questions returns a copy of the full sequence.
func (s *Sequencer) Questions() []domain.Question {
	out := make([]domain.Question, len(s.questions))
	for i, q := range s.questions {
		out[i] = q.Clone()
	}
	return out
}
