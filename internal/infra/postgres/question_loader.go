package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-arena/internal/domain"
)

// QuestionLoader reads question pools from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

// LoadQuestions implements memory.QuestionLoader. Empty filters match everything.
func (l *QuestionLoader) LoadQuestions(ctx context.Context, category string, difficulty domain.Difficulty) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, prompt, options, correct_option, category, difficulty, explanation
		FROM questions
		WHERE ($1 = '' OR category = $1) AND ($2 = '' OR difficulty = $2)
		ORDER BY id`, category, string(difficulty))
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var (
			q    domain.Question
			diff string
		)
		if err := rows.Scan(&q.ID, &q.Prompt, &q.Options, &q.CorrectOption, &q.Category, &diff, &q.Explanation); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Difficulty = domain.Difficulty(diff)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return out, nil
}
