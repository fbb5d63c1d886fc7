package memory

import (
	"context"
	"sync"

	"quiz-arena/internal/domain"
)

// ResultLog keeps finished match summaries in memory.
type ResultLog struct {
	mu      sync.RWMutex
	matches []domain.MatchSummary
	byID    map[string]int
}

func NewResultLog() *ResultLog {
	return &ResultLog{byID: make(map[string]int)}
}

// RecordMatchResult stores summary; recording the same match twice keeps the latest copy.
func (l *ResultLog) RecordMatchResult(_ context.Context, summary domain.MatchSummary) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i, ok := l.byID[summary.MatchID]; ok {
		l.matches[i] = summary
		return nil
	}
	l.byID[summary.MatchID] = len(l.matches)
	l.matches = append(l.matches, summary)
	return nil
}

// Matches returns every recorded summary in arrival order.
func (l *ResultLog) Matches() []domain.MatchSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.MatchSummary, len(l.matches))
	copy(out, l.matches)
	return out
}
