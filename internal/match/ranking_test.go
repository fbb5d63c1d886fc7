package match

import (
	"testing"
	"time"

	"quiz-arena/internal/domain"
)

func TestRankTieBreaks(t *testing.T) {
	ps := []*domain.Participant{
		{UserID: "slow", Score: 500, CorrectCount: 1, Answered: 1, TotalLatency: 9 * time.Second, JoinSeq: 1},
		{UserID: "fewer", Score: 500, CorrectCount: 0, Answered: 1, TotalLatency: time.Second, JoinSeq: 2},
		{UserID: "fast", Score: 500, CorrectCount: 1, Answered: 1, TotalLatency: 2 * time.Second, JoinSeq: 3},
		{UserID: "top", Score: 900, JoinSeq: 4},
		{UserID: "silent", Score: 500, CorrectCount: 1, JoinSeq: 5},
	}
	got := Rank(ps)
	want := []string{"top", "fast", "slow", "silent", "fewer"}
	for i, id := range want {
		if got[i].UserID != id || got[i].Rank != i+1 {
			t.Fatalf("position %d: expected %s, got %+v", i+1, id, got[i])
		}
	}
}

func TestRankIsTotalForIdenticalStats(t *testing.T) {
	var ps []*domain.Participant
	for i := 5; i >= 1; i-- {
		ps = append(ps, &domain.Participant{
			UserID:       string(rune('a' + i)),
			Score:        300,
			CorrectCount: 2,
			Answered:     2,
			TotalLatency: 4 * time.Second,
			JoinSeq:      i,
		})
	}
	got := Rank(ps)
	for i := 1; i < len(got); i++ {
		prev := ps[len(ps)-i]
		if got[i-1].UserID != prev.UserID {
			t.Fatalf("expected join order to break the tie at %d, got %s", i, got[i-1].UserID)
		}
	}
	seen := map[int]bool{}
	for _, s := range got {
		if seen[s.Rank] {
			t.Fatalf("duplicate rank %d", s.Rank)
		}
		seen[s.Rank] = true
	}
}
