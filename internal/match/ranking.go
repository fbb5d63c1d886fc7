package match

import (
	"sort"

	"quiz-arena/internal/domain"
)

// Rank orders participants by score desc, correct answers desc, average
// latency asc, then join order. Participants who never answered sort after
// those who did on the latency key. JoinSeq is unique, so the order is total.
func Rank(participants []*domain.Participant) []domain.Standing {
	sorted := make([]*domain.Participant, len(participants))
	copy(sorted, participants)

	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})

	out := make([]domain.Standing, 0, len(sorted))
	for i, p := range sorted {
		avg, _ := p.AverageLatency()
		out = append(out, domain.Standing{
			Rank:         i + 1,
			UserID:       p.UserID,
			DisplayName:  p.DisplayName,
			Score:        p.Score,
			CorrectCount: p.CorrectCount,
			Streak:       p.Streak,
			BestStreak:   p.BestStreak,
			AvgLatencyMs: avg.Milliseconds(),
			Status:       p.Status,
			Ready:        p.Ready,
		})
	}
	return out
}

func less(a, b *domain.Participant) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.CorrectCount != b.CorrectCount {
		return a.CorrectCount > b.CorrectCount
	}
	aAvg, aOK := a.AverageLatency()
	bAvg, bOK := b.AverageLatency()
	if aOK != bOK {
		return aOK
	}
	if aOK && aAvg != bAvg {
		return aAvg < bAvg
	}
	return a.JoinSeq < b.JoinSeq
}
