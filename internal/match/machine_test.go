package match

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"quiz-arena/internal/domain"
)

var t0 = time.Date(2024, 11, 22, 12, 0, 0, 0, time.UTC)

func sampleQuestions(n int) []domain.Question {
	out := make([]domain.Question, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.Question{
			ID:            fmt.Sprintf("q%d", i),
			Prompt:        fmt.Sprintf("What is %d + %d?", i, i),
			Options:       []string{"wrong", "right", "other"},
			CorrectOption: "right",
			Category:      "Mathematics",
			Difficulty:    domain.DifficultyEasy,
		})
	}
	return out
}

func newTestMachine(t *testing.T, settings domain.RoomSettings, rounds int) *Machine {
	t.Helper()
	settings.TotalRounds = rounds
	settings = settings.Normalize()
	seq, err := NewSequencer(sampleQuestions(rounds), rounds)
	if err != nil {
		t.Fatalf("sequencer: %v", err)
	}
	cfg := DefaultConfig()
	cfg.ResultsDuration = 0
	return NewMachine("ABCDEF", "match-1", settings, seq, cfg, t0)
}

func join(t *testing.T, m *Machine, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if _, err := m.Join(domain.Identity{UserID: id, DisplayName: id}, t0); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}
}

// startQuestion runs the countdown and returns when the first question opened.
func startQuestion(t *testing.T, m *Machine, host string) time.Time {
	t.Helper()
	if err := m.Start(host, t0); err != nil {
		t.Fatalf("start: %v", err)
	}
	opened := t0.Add(3 * time.Second)
	if m.Expire(opened.Add(-time.Millisecond)) {
		t.Fatalf("countdown ended early")
	}
	if !m.Expire(opened) {
		t.Fatalf("expected countdown to end")
	}
	if m.Phase() != domain.PhaseQuestion {
		t.Fatalf("expected question phase, got %s", m.Phase())
	}
	return opened
}

func TestThreePlayerScenario(t *testing.T) {
	m := newTestMachine(t, domain.RoomSettings{MaxPlayers: 4, QuestionSeconds: 30}, 2)
	join(t, m, "p1", "p2", "p3")
	opened := startQuestion(t, m, "p1")

	if _, err := m.SubmitAnswer("p1", "q1", "right", time.Time{}, opened.Add(2*time.Second)); err != nil {
		t.Fatalf("p1 answer: %v", err)
	}
	if _, err := m.SubmitAnswer("p2", "q1", "wrong", time.Time{}, opened.Add(5*time.Second)); err != nil {
		t.Fatalf("p2 answer: %v", err)
	}
	if m.AllAnswered() {
		t.Fatalf("p3 has not answered yet")
	}
	if m.Expire(opened.Add(29 * time.Second)) {
		t.Fatalf("question closed before the deadline")
	}
	if !m.Expire(opened.Add(30 * time.Second)) {
		t.Fatalf("expected the deadline to close the question")
	}
	if m.Phase() != domain.PhaseResults {
		t.Fatalf("expected results, got %s", m.Phase())
	}

	p1, _ := m.Participant("p1")
	if p1.Score != 940 || p1.Streak != 1 {
		t.Fatalf("expected p1 940 points streak 1, got %d streak %d", p1.Score, p1.Streak)
	}
	for _, id := range []string{"p2", "p3"} {
		p, _ := m.Participant(id)
		if p.Score != 0 || p.Streak != 0 {
			t.Fatalf("expected %s to score 0 with reset streak, got %+v", id, p)
		}
	}

	q2 := opened.Add(31 * time.Second)
	if err := m.Advance("p1", q2); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := m.SubmitAnswer("p1", "q2", "right", time.Time{}, q2); err != nil {
		t.Fatalf("p1 q2: %v", err)
	}
	m.CloseQuestion(q2.Add(time.Second))
	p1, _ = m.Participant("p1")
	// full 1000 base at streak 1 is 1.1x
	if p1.Score != 940+1100 || p1.Streak != 2 {
		t.Fatalf("expected streak multiplier on q2, got score %d streak %d", p1.Score, p1.Streak)
	}

	if err := m.Advance("p1", q2.Add(2*time.Second)); err != nil {
		t.Fatalf("advance to finish: %v", err)
	}
	if m.Phase() != domain.PhaseFinished {
		t.Fatalf("expected finished, got %s", m.Phase())
	}
	summary, ok := m.Summary()
	if !ok || summary.WinnerID != "p1" || len(summary.Questions) != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestLastAnswerClosesQuestionOnce(t *testing.T) {
	m := newTestMachine(t, domain.RoomSettings{}, 1)
	join(t, m, "p1", "p2")
	opened := startQuestion(t, m, "p1")

	_, _ = m.SubmitAnswer("p1", "q1", "right", time.Time{}, opened.Add(time.Second))
	_, _ = m.SubmitAnswer("p2", "q1", "right", time.Time{}, opened.Add(2*time.Second))
	if !m.AllAnswered() {
		t.Fatalf("expected all answered")
	}
	if !m.CloseQuestion(opened.Add(2 * time.Second)) {
		t.Fatalf("expected first close to transition")
	}
	if m.CloseQuestion(opened.Add(2 * time.Second)) {
		t.Fatalf("second close must be a no-op")
	}
	if m.Expire(opened.Add(30 * time.Second)) {
		t.Fatalf("deadline must not transition a closed question")
	}
	p1, _ := m.Participant("p1")
	if p1.CorrectCount != 1 {
		t.Fatalf("expected points applied once, got %+v", p1)
	}
}

func TestAnswerRejections(t *testing.T) {
	m := newTestMachine(t, domain.RoomSettings{}, 2)
	join(t, m, "p1", "p2")

	if _, err := m.SubmitAnswer("p1", "q1", "right", time.Time{}, t0); !errors.Is(err, domain.ErrWrongPhase) {
		t.Fatalf("expected wrong phase while waiting, got %v", err)
	}
	opened := startQuestion(t, m, "p1")

	if _, err := m.SubmitAnswer("ghost", "q1", "right", time.Time{}, opened); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected participant error, got %v", err)
	}
	if _, err := m.SubmitAnswer("p1", "q2", "right", time.Time{}, opened); !errors.Is(err, domain.ErrStaleQuestion) {
		t.Fatalf("expected stale question, got %v", err)
	}
	if _, err := m.SubmitAnswer("p1", "q1", "nope", time.Time{}, opened); !errors.Is(err, domain.ErrInvalidOption) {
		t.Fatalf("expected invalid option, got %v", err)
	}
	if _, err := m.SubmitAnswer("p1", "q1", "wrong", time.Time{}, opened); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if _, err := m.SubmitAnswer("p1", "q1", "right", time.Time{}, opened); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected already answered, got %v", err)
	}
	if _, err := m.SubmitAnswer("p2", "q1", "right", time.Time{}, opened.Add(30*time.Second)); !errors.Is(err, domain.ErrWrongPhase) {
		t.Fatalf("expected answer at the deadline to be rejected, got %v", err)
	}

	m.Expire(opened.Add(30 * time.Second))
	if _, err := m.SubmitAnswer("p2", "q1", "right", time.Time{}, opened.Add(31*time.Second)); !errors.Is(err, domain.ErrWrongPhase) {
		t.Fatalf("expected late answer rejected after close, got %v", err)
	}
}

func TestDisconnectedParticipantDoesNotBlock(t *testing.T) {
	m := newTestMachine(t, domain.RoomSettings{}, 2)
	join(t, m, "p1", "p2")
	opened := startQuestion(t, m, "p1")

	_, _ = m.SubmitAnswer("p1", "q1", "right", time.Time{}, opened.Add(time.Second))
	m.Disconnect("p2", opened.Add(2*time.Second))
	if !m.AllAnswered() {
		t.Fatalf("disconnected participant must not block the question")
	}
}

func TestReconnectKeepsScoreAndAnswersOnlyCurrentQuestion(t *testing.T) {
	m := newTestMachine(t, domain.RoomSettings{}, 2)
	join(t, m, "p1", "p2")
	opened := startQuestion(t, m, "p1")

	_, _ = m.SubmitAnswer("p2", "q1", "right", time.Time{}, opened)
	m.CloseQuestion(opened.Add(time.Second))
	before, _ := m.Participant("p2")

	q2 := opened.Add(2 * time.Second)
	_ = m.Advance("p1", q2)
	m.Disconnect("p2", q2.Add(time.Second))
	if _, err := m.Join(domain.Identity{UserID: "p2", DisplayName: "p2"}, q2.Add(2*time.Second)); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	after, _ := m.Participant("p2")
	if after.Score != before.Score || after.Status != domain.StatusConnected {
		t.Fatalf("expected score %d kept on reconnect, got %+v", before.Score, after)
	}
	if _, err := m.SubmitAnswer("p2", "q1", "right", time.Time{}, q2.Add(3*time.Second)); !errors.Is(err, domain.ErrStaleQuestion) {
		t.Fatalf("expected closed question rejected, got %v", err)
	}
	if _, err := m.SubmitAnswer("p2", "q2", "right", time.Time{}, q2.Add(3*time.Second)); err != nil {
		t.Fatalf("expected current question accepted, got %v", err)
	}
}

func TestJoinRules(t *testing.T) {
	m := newTestMachine(t, domain.RoomSettings{MaxPlayers: 2, Private: true}, 1)
	join(t, m, "p1", "p2")
	if _, err := m.Join(domain.Identity{UserID: "p3"}, t0); !errors.Is(err, domain.ErrRoomFull) {
		t.Fatalf("expected room full, got %v", err)
	}
	m.Leave("p2", t0)
	_ = startQuestion(t, m, "p1")
	if _, err := m.Join(domain.Identity{UserID: "p3"}, t0); !errors.Is(err, domain.ErrAlreadyStarted) {
		t.Fatalf("expected private room to reject late join, got %v", err)
	}
}

func TestPublicLateJoinAllowed(t *testing.T) {
	m := newTestMachine(t, domain.RoomSettings{MaxPlayers: 3}, 1)
	join(t, m, "p1")
	opened := startQuestion(t, m, "p1")
	if _, err := m.Join(domain.Identity{UserID: "late"}, opened); err != nil {
		t.Fatalf("late join: %v", err)
	}
	if _, err := m.SubmitAnswer("late", "q1", "right", time.Time{}, opened.Add(time.Second)); err != nil {
		t.Fatalf("late joiner answer: %v", err)
	}
}

func TestStartGuards(t *testing.T) {
	m := newTestMachine(t, domain.RoomSettings{RequireReady: true}, 1)
	if err := m.Start("", t0); !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("expected empty room not ready, got %v", err)
	}
	join(t, m, "p1", "p2")
	if err := m.Start("p2", t0); !errors.Is(err, domain.ErrNotHost) {
		t.Fatalf("expected non-host rejected, got %v", err)
	}
	if err := m.Start("p1", t0); !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("expected ready check, got %v", err)
	}
	_ = m.MarkReady("p1", true, t0)
	_ = m.MarkReady("p2", true, t0)
	if err := m.Start("p1", t0); err != nil {
		t.Fatalf("start: %v", err)
	}
	if m.Phase() != domain.PhaseCountdown {
		t.Fatalf("expected countdown, got %s", m.Phase())
	}
}

func TestAutoStartWhenFullOrReady(t *testing.T) {
	m := newTestMachine(t, domain.RoomSettings{MaxPlayers: 2}, 1)
	join(t, m, "p1")
	if m.AutoStartDue() {
		t.Fatalf("half-full room must not auto start")
	}
	join(t, m, "p2")
	if !m.AutoStartDue() {
		t.Fatalf("full room should auto start")
	}

	r := newTestMachine(t, domain.RoomSettings{MaxPlayers: 4, MinReady: 2}, 1)
	join(t, r, "p1", "p2", "p3")
	_ = r.MarkReady("p1", true, t0)
	if r.AutoStartDue() {
		t.Fatalf("one ready participant is below the threshold")
	}
	_ = r.MarkReady("p3", true, t0)
	if !r.AutoStartDue() {
		t.Fatalf("expected ready threshold to trigger start")
	}
}

func TestHostMigratesOnLeave(t *testing.T) {
	m := newTestMachine(t, domain.RoomSettings{}, 1)
	join(t, m, "p1", "p2")
	if m.HostID() != "p1" {
		t.Fatalf("expected first joiner to host, got %s", m.HostID())
	}
	if !m.Leave("p1", t0) {
		t.Fatalf("expected leave to change the roster")
	}
	if m.Leave("p1", t0) {
		t.Fatalf("leave must be idempotent")
	}
	if m.HostID() != "p2" {
		t.Fatalf("expected host to move to p2, got %s", m.HostID())
	}
}

func TestAbandonFinishesMatch(t *testing.T) {
	m := newTestMachine(t, domain.RoomSettings{}, 2)
	join(t, m, "p1")
	opened := startQuestion(t, m, "p1")
	m.Leave("p1", opened)
	if !m.Abandon(opened) {
		t.Fatalf("expected abandon to finish the match")
	}
	summary, ok := m.Summary()
	if !ok || !summary.Abandoned || m.Phase() != domain.PhaseFinished {
		t.Fatalf("expected abandoned summary, got %+v", summary)
	}
	if len(summary.Standings) != 1 || summary.Standings[0].Status != domain.StatusLeft {
		t.Fatalf("expected left participant kept in standings, got %+v", summary.Standings)
	}
}

func TestEventsDrained(t *testing.T) {
	m := newTestMachine(t, domain.RoomSettings{}, 1)
	join(t, m, "p1")
	m.Drain()
	_ = startQuestion(t, m, "p1")

	events := m.Drain()
	if len(events) != 2 {
		t.Fatalf("expected countdown and question events, got %d", len(events))
	}
	if events[1].Type != domain.EventPhaseChanged || events[1].Question == nil || events[1].Deadline.IsZero() {
		t.Fatalf("expected question payload with deadline, got %+v", events[1])
	}
	if len(m.Drain()) != 0 {
		t.Fatalf("expected drained outbox")
	}
}
