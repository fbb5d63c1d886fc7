// Package scoring turns a single answer into points.
//
// Everything here is integer arithmetic over milliseconds and per-mille
// multipliers so two implementations fed the same input agree exactly.
package scoring

import "time"

// Func is the scoring contract the match engine depends on.
type Func func(latency, window time.Duration, correct bool, streakBefore int) Result

// Result is the outcome of scoring one answer.
type Result struct {
	Points int
	// Streak is the streak after this answer; 0 means it was reset.
	Streak int
	// MultiplierPermille is the applied streak multiplier, 1000 = 1.0x.
	MultiplierPermille int
}

// Scorer is the reference curve: linear latency decay to a floor, times a
// capped streak multiplier.
type Scorer struct {
	MaxPoints   int
	FloorPoints int
	// StreakStepPermille is added to the multiplier per prior correct answer.
	StreakStepPermille int
	// MaxMultiplierPermille caps the streak multiplier.
	MaxMultiplierPermille int
}

// Default matches the reference formula: min(streak*0.1+1, 2) on a 1000 point base.
func Default() Scorer {
	return Scorer{
		MaxPoints:             1000,
		FloorPoints:           100,
		StreakStepPermille:    100,
		MaxMultiplierPermille: 2000,
	}
}

// Score computes points for one answer. A latency at or past the window is
// a missed answer, not a late correct one.
func (s Scorer) Score(latency, window time.Duration, correct bool, streakBefore int) Result {
	if !correct || window <= 0 || latency >= window {
		return Result{Points: 0, Streak: 0, MultiplierPermille: 1000}
	}
	if latency < 0 {
		latency = 0
	}
	if streakBefore < 0 {
		streakBefore = 0
	}

	windowMs := window.Milliseconds()
	latencyMs := latency.Milliseconds()
	if windowMs <= 0 {
		windowMs = 1
	}

	spread := int64(s.MaxPoints - s.FloorPoints)
	base := int64(s.FloorPoints) + spread*(windowMs-latencyMs)/windowMs

	mult := s.Multiplier(streakBefore)
	return Result{
		Points:             int(base * int64(mult) / 1000),
		Streak:             streakBefore + 1,
		MultiplierPermille: mult,
	}
}

// Multiplier returns the capped streak multiplier in per-mille.
func (s Scorer) Multiplier(streakBefore int) int {
	if streakBefore < 0 {
		streakBefore = 0
	}
	maxMult := s.MaxMultiplierPermille
	if maxMult < 1000 {
		maxMult = 1000
	}
	// compare before multiplying so huge streaks cannot overflow
	if s.StreakStepPermille > 0 && streakBefore >= (maxMult-1000)/s.StreakStepPermille+1 {
		return maxMult
	}
	mult := 1000 + streakBefore*s.StreakStepPermille
	if mult > maxMult {
		return maxMult
	}
	return mult
}
