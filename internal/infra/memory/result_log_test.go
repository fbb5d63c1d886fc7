package memory

import (
	"context"
	"testing"

	"quiz-arena/internal/domain"
)

func TestResultLogKeepsOneCopyPerMatch(t *testing.T) {
	log := NewResultLog()
	ctx := context.Background()

	_ = log.RecordMatchResult(ctx, domain.MatchSummary{MatchID: "m1", WinnerID: "a"})
	_ = log.RecordMatchResult(ctx, domain.MatchSummary{MatchID: "m2"})
	_ = log.RecordMatchResult(ctx, domain.MatchSummary{MatchID: "m1", WinnerID: "b"})

	got := log.Matches()
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	if got[0].WinnerID != "b" {
		t.Fatalf("expected retried record to replace the first, got %+v", got[0])
	}
}
