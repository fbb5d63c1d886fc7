package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"quiz-arena/internal/domain"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID            string   `bun:"id,pk"`
	Prompt        string   `bun:"prompt"`
	Options       []string `bun:"options,array"`
	CorrectOption string   `bun:"correct_option"`
	Category      string   `bun:"category"`
	Difficulty    string   `bun:"difficulty"`
	Explanation   string   `bun:"explanation"`
}

// QuestionStore writes the question bank; the seed command uses it.
type QuestionStore struct {
	db *bun.DB
}

func NewQuestionStore(db *bun.DB) *QuestionStore {
	return &QuestionStore{db: db}
}

// Upsert inserts or replaces questions by id. Invalid questions are rejected
// before anything is written.
func (s *QuestionStore) Upsert(ctx context.Context, questions []domain.Question) (int, error) {
	if len(questions) == 0 {
		return 0, nil
	}
	rows := make([]questionRow, 0, len(questions))
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return 0, err
		}
		rows = append(rows, questionRow{
			ID:            q.ID,
			Prompt:        q.Prompt,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			Category:      q.Category,
			Difficulty:    string(q.Difficulty),
			Explanation:   q.Explanation,
		})
	}
	_, err := s.db.NewInsert().Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("prompt = EXCLUDED.prompt").
		Set("options = EXCLUDED.options").
		Set("correct_option = EXCLUDED.correct_option").
		Set("category = EXCLUDED.category").
		Set("difficulty = EXCLUDED.difficulty").
		Set("explanation = EXCLUDED.explanation").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("upsert questions: %w", err)
	}
	return len(rows), nil
}
