package match

import (
	"errors"
	"testing"

	"quiz-arena/internal/domain"
)

func TestSequencerAdvancesAndExhausts(t *testing.T) {
	seq, err := NewSequencer(sampleQuestions(3), 2)
	if err != nil {
		t.Fatalf("new sequencer: %v", err)
	}
	if _, ok := seq.Current(); ok {
		t.Fatalf("expected no current question before the first advance")
	}
	q, ok := seq.Advance()
	if !ok || q.ID != "q1" {
		t.Fatalf("expected q1, got %+v", q)
	}
	if !seq.HasNext() {
		t.Fatalf("expected a second question")
	}
	q, _ = seq.Advance()
	if q.ID != "q2" {
		t.Fatalf("expected q2, got %s", q.ID)
	}
	if _, ok := seq.Advance(); ok {
		t.Fatalf("expected exhaustion after the requested rounds")
	}
	if _, ok := seq.Advance(); ok {
		t.Fatalf("expected exhaustion to be sticky")
	}
}

func TestSequencerSkipsDuplicatesAndFailsShort(t *testing.T) {
	qs := sampleQuestions(2)
	qs = append(qs, qs[0])
	if _, err := NewSequencer(qs, 3); !errors.Is(err, domain.ErrInsufficientQuestions) {
		t.Fatalf("expected insufficient questions, got %v", err)
	}
	seq, err := NewSequencer(qs, 2)
	if err != nil {
		t.Fatalf("new sequencer: %v", err)
	}
	seen := map[string]bool{}
	for _, q := range seq.Questions() {
		if seen[q.ID] {
			t.Fatalf("duplicate question %s", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestSequencerIsolatedFromBank(t *testing.T) {
	bank := sampleQuestions(1)
	seq, err := NewSequencer(bank, 1)
	if err != nil {
		t.Fatalf("new sequencer: %v", err)
	}
	bank[0].Options[1] = "changed"
	bank[0].CorrectOption = "changed"

	q, _ := seq.Advance()
	if q.CorrectOption != "right" || q.Options[1] != "right" {
		t.Fatalf("bank change leaked into the match: %+v", q)
	}
}

func TestSequencerDropsInvalidQuestions(t *testing.T) {
	qs := sampleQuestions(2)
	qs[0].CorrectOption = "not an option"
	if _, err := NewSequencer(qs, 2); !errors.Is(err, domain.ErrInsufficientQuestions) {
		t.Fatalf("expected invalid question to be skipped, got %v", err)
	}
}
