package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-arena/internal/domain"
)

func TestQuestionBankCaches(t *testing.T) {
	loader := &countingLoader{QuestionLoader: NewStaticQuestionLoader(SampleQuestions())}
	bank := NewQuestionBankWithSeed(loader, time.Minute, 1)

	if _, err := bank.FetchQuestions(context.Background(), "General Knowledge", domain.DifficultyMedium, 5); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader once, got %d", loader.count())
	}

	if _, err := bank.FetchQuestions(context.Background(), "General Knowledge", domain.DifficultyMedium, 5); err != nil {
		t.Fatalf("fetch 2: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.count())
	}

	if _, err := bank.FetchQuestions(context.Background(), "Science", domain.DifficultyMedium, 2); err != nil {
		t.Fatalf("fetch science: %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("expected a separate pool per filter, loader calls %d", loader.count())
	}
}

func TestQuestionBankExpires(t *testing.T) {
	loader := &countingLoader{QuestionLoader: NewStaticQuestionLoader(SampleQuestions())}
	bank := NewQuestionBankWithSeed(loader, time.Minute, 1)
	now := time.Unix(1_700_000_000, 0)
	bank.clock = func() time.Time { return now }

	_, _ = bank.FetchQuestions(context.Background(), "", "", 3)
	now = now.Add(2 * time.Minute)
	_, _ = bank.FetchQuestions(context.Background(), "", "", 3)
	if loader.count() != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.count())
	}
}

func TestQuestionBankDrawsDistinctFilteredQuestions(t *testing.T) {
	bank := NewQuestionBankWithSeed(NewStaticQuestionLoader(SampleQuestions()), time.Minute, 7)

	qs, err := bank.FetchQuestions(context.Background(), "General Knowledge", domain.DifficultyMedium, 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(qs) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(qs))
	}
	seen := map[string]bool{}
	for _, q := range qs {
		if seen[q.ID] {
			t.Fatalf("duplicate question %s", q.ID)
		}
		seen[q.ID] = true
		if q.Category != "General Knowledge" || q.Difficulty != domain.DifficultyMedium {
			t.Fatalf("question %s does not match filter: %s/%s", q.ID, q.Category, q.Difficulty)
		}
	}
}

func TestQuestionBankSkipsInvalidAndDuplicates(t *testing.T) {
	questions := []domain.Question{
		{ID: "a", Prompt: "?", Options: []string{"x", "y"}, CorrectOption: "x"},
		{ID: "a", Prompt: "dup", Options: []string{"x", "y"}, CorrectOption: "y"},
		{ID: "b", Prompt: "?", Options: []string{"x", "y"}, CorrectOption: "z"},
		{ID: "c", Prompt: "?", Options: []string{"x", "y"}, CorrectOption: "y"},
	}
	bank := NewQuestionBankWithSeed(NewStaticQuestionLoader(questions), time.Minute, 1)

	if _, err := bank.FetchQuestions(context.Background(), "", "", 2); err != nil {
		t.Fatalf("expected two usable questions: %v", err)
	}
	_, err := bank.FetchQuestions(context.Background(), "", "", 3)
	if !errors.Is(err, domain.ErrInsufficientQuestions) {
		t.Fatalf("expected insufficient questions, got %v", err)
	}
}

func TestSampleQuestionsAreValid(t *testing.T) {
	for _, q := range SampleQuestions() {
		if err := q.Validate(); err != nil {
			t.Fatalf("sample %s: %v", q.ID, err)
		}
	}
}

type countingLoader struct {
	QuestionLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, category string, difficulty domain.Difficulty) ([]domain.Question, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.QuestionLoader.LoadQuestions(ctx, category, difficulty)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}
