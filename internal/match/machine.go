// Package match holds the per-room match rules: question order, phase
// transitions, answer acceptance and ranking.
//
// A Machine is not safe for concurrent use. It is owned by exactly one
// coordinator goroutine, which is the only caller of its methods; time is
// always passed in so every transition is reproducible.
package match

import (
	"fmt"
	"sort"
	"time"

	"quiz-arena/internal/domain"
	"quiz-arena/internal/scoring"
)

// Config holds the timing knobs that are not part of the room settings.
type Config struct {
	// Countdown runs between start and the first question.
	Countdown time.Duration
	// ResultsDuration auto-advances out of results; zero waits for the host.
	ResultsDuration time.Duration
	Score           scoring.Func
}

// DefaultConfig is three one-second countdown ticks and a five second results screen.
func DefaultConfig() Config {
	return Config{
		Countdown:       3 * time.Second,
		ResultsDuration: 5 * time.Second,
		Score:           scoring.Default().Score,
	}
}

// Machine is the room state machine for one match.
type Machine struct {
	code     string
	matchID  string
	settings domain.RoomSettings
	cfg      Config
	seq      *Sequencer

	phase    domain.Phase
	deadline time.Time
	openedAt time.Time
	hostID   string

	participants map[string]*domain.Participant
	order        []*domain.Participant
	joinSeq      int

	answers    map[string]domain.AnswerEvent
	answerLog  []domain.AnswerEvent
	records    []domain.QuestionRecord
	receiptSeq uint64

	createdAt    time.Time
	startedAt    time.Time
	finishedAt   time.Time
	lastActivity time.Time
	abandoned    bool
	summary      *domain.MatchSummary
	// reveal of the question last closed, kept for late subscribers
	reveal *domain.Reveal

	outbox []domain.Event
}

// NewMachine builds a waiting room around an already fixed question sequence.
func NewMachine(code, matchID string, settings domain.RoomSettings, seq *Sequencer, cfg Config, now time.Time) *Machine {
	if cfg.Score == nil {
		cfg.Score = scoring.Default().Score
	}
	return &Machine{
		code:         code,
		matchID:      matchID,
		settings:     settings,
		cfg:          cfg,
		seq:          seq,
		phase:        domain.PhaseWaiting,
		hostID:       settings.HostID,
		participants: make(map[string]*domain.Participant),
		answers:      make(map[string]domain.AnswerEvent),
		createdAt:    now,
		lastActivity: now,
	}
}

// Phase returns the current phase.
func (m *Machine) Phase() domain.Phase { return m.phase }

// Deadline is when the current phase times out; zero when it does not.
func (m *Machine) Deadline() time.Time { return m.deadline }

// HostID is the participant allowed to start and advance.
func (m *Machine) HostID() string { return m.hostID }

// FinishedAt is zero until the match finishes.
func (m *Machine) FinishedAt() time.Time { return m.finishedAt }

// LastActivity is the time of the last roster or phase change.
func (m *Machine) LastActivity() time.Time { return m.lastActivity }

// Participant returns a copy of the participant's state.
func (m *Machine) Participant(userID string) (domain.Participant, bool) {
	p, ok := m.participants[userID]
	if !ok {
		return domain.Participant{}, false
	}
	return *p, true
}

// ActiveCount is the number of participants who have not left.
func (m *Machine) ActiveCount() int {
	n := 0
	for _, p := range m.order {
		if p.Status != domain.StatusLeft {
			n++
		}
	}
	return n
}

// Join adds a participant or reconnects a known one. A reconnecting
// participant keeps their score and streak.
func (m *Machine) Join(id domain.Identity, now time.Time) (domain.Participant, error) {
	if m.phase == domain.PhaseFinished {
		return domain.Participant{}, domain.ErrAlreadyStarted
	}

	if p, ok := m.participants[id.UserID]; ok && p.Status != domain.StatusLeft {
		p.Status = domain.StatusConnected
		p.DisconnectedAt = time.Time{}
		if id.DisplayName != "" {
			p.DisplayName = id.DisplayName
		}
		m.touch(now)
		m.emitScoreboard(now)
		return *p, nil
	}

	if m.ActiveCount() >= m.settings.MaxPlayers {
		return domain.Participant{}, domain.ErrRoomFull
	}
	if m.phase != domain.PhaseWaiting && m.settings.Private {
		return domain.Participant{}, domain.ErrAlreadyStarted
	}

	p, returning := m.participants[id.UserID]
	if returning {
		// left earlier in this match; the row kept its score
		p.Status = domain.StatusConnected
		if id.DisplayName != "" {
			p.DisplayName = id.DisplayName
		}
	} else {
		m.joinSeq++
		p = &domain.Participant{
			UserID:      id.UserID,
			DisplayName: id.DisplayName,
			Guest:       id.Guest,
			Status:      domain.StatusConnected,
			JoinSeq:     m.joinSeq,
			JoinedAt:    now,
		}
		m.participants[id.UserID] = p
		m.order = append(m.order, p)
	}
	if m.hostVacant() {
		m.hostID = p.UserID
	}
	m.touch(now)
	m.emitScoreboard(now)
	return *p, nil
}

// Leave removes a participant. It is idempotent and reports whether anything changed.
func (m *Machine) Leave(userID string, now time.Time) bool {
	p, ok := m.participants[userID]
	if !ok || p.Status == domain.StatusLeft {
		return false
	}
	if m.phase == domain.PhaseWaiting {
		delete(m.participants, userID)
		for i, other := range m.order {
			if other == p {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	} else {
		p.Status = domain.StatusLeft
		p.Ready = false
	}
	if m.hostID == userID {
		m.hostID = m.firstActive()
	}
	m.touch(now)
	m.emitScoreboard(now)
	return true
}

// Disconnect keeps the participant in the roster but stops counting them
// for the everyone-answered check.
func (m *Machine) Disconnect(userID string, now time.Time) bool {
	p, ok := m.participants[userID]
	if !ok || p.Status != domain.StatusConnected {
		return false
	}
	p.Status = domain.StatusDisconnected
	p.DisconnectedAt = now
	m.touch(now)
	m.emitScoreboard(now)
	return true
}

// MarkReady toggles the ready flag while the room is waiting.
func (m *Machine) MarkReady(userID string, ready bool, now time.Time) error {
	if m.phase != domain.PhaseWaiting {
		return domain.ErrWrongPhase
	}
	p, ok := m.participants[userID]
	if !ok || p.Status == domain.StatusLeft {
		return domain.ErrParticipantNotFound
	}
	p.Ready = ready
	m.touch(now)
	m.emitScoreboard(now)
	return nil
}

// CanStart checks the waiting-to-countdown guard.
func (m *Machine) CanStart() error {
	if m.phase != domain.PhaseWaiting {
		return domain.ErrAlreadyStarted
	}
	connected := 0
	for _, p := range m.order {
		if p.Status != domain.StatusConnected {
			continue
		}
		connected++
		if m.settings.RequireReady && !p.Ready {
			return fmt.Errorf("%w: %s is not ready", domain.ErrNotReady, p.DisplayName)
		}
	}
	if connected == 0 {
		return fmt.Errorf("%w: no connected participants", domain.ErrNotReady)
	}
	return nil
}

// AutoStartDue reports whether the room should start on its own: it is full,
// or the configured number of participants are ready.
func (m *Machine) AutoStartDue() bool {
	if m.phase != domain.PhaseWaiting || m.CanStart() != nil {
		return false
	}
	if m.ActiveCount() >= m.settings.MaxPlayers {
		return true
	}
	if m.settings.MinReady > 0 {
		ready := 0
		for _, p := range m.order {
			if p.Status == domain.StatusConnected && p.Ready {
				ready++
			}
		}
		return ready >= m.settings.MinReady
	}
	return false
}

// Start moves waiting to countdown. An empty by means an automatic start.
func (m *Machine) Start(by string, now time.Time) error {
	if m.phase != domain.PhaseWaiting {
		return domain.ErrAlreadyStarted
	}
	if !m.mayDirect(by) {
		return domain.ErrNotHost
	}
	if err := m.CanStart(); err != nil {
		return err
	}
	m.phase = domain.PhaseCountdown
	m.startedAt = now
	m.deadline = now.Add(m.cfg.Countdown)
	m.touch(now)
	m.emitPhase(now, nil, nil)
	return nil
}

// BeginQuestion ends the countdown and opens the first question.
func (m *Machine) BeginQuestion(now time.Time) error {
	if m.phase != domain.PhaseCountdown {
		return domain.ErrWrongPhase
	}
	m.openNext(now)
	return nil
}

// Advance leaves results for the next question, or finishes when exhausted.
func (m *Machine) Advance(by string, now time.Time) error {
	if m.phase != domain.PhaseResults {
		return domain.ErrWrongPhase
	}
	if !m.mayDirect(by) {
		return domain.ErrNotHost
	}
	m.openNext(now)
	return nil
}

// CurrentQuestion is the question being asked or just revealed.
func (m *Machine) CurrentQuestion() (domain.Question, bool) {
	return m.seq.Current()
}

// SubmitAnswer accepts at most one answer per participant for the open question.
// clientSent is the client's own timestamp; it is recorded but never used
// for scoring or ordering.
func (m *Machine) SubmitAnswer(userID, questionID, option string, clientSent, now time.Time) (domain.AnswerReceipt, error) {
	p, ok := m.participants[userID]
	if !ok || p.Status == domain.StatusLeft {
		return domain.AnswerReceipt{}, domain.ErrParticipantNotFound
	}
	if m.phase != domain.PhaseQuestion || !now.Before(m.deadline) {
		return domain.AnswerReceipt{}, domain.ErrWrongPhase
	}
	q, _ := m.seq.Current()
	if questionID != q.ID {
		return domain.AnswerReceipt{}, domain.ErrStaleQuestion
	}
	if _, dup := m.answers[userID]; dup {
		return domain.AnswerReceipt{}, domain.ErrAlreadyAnswered
	}
	if !q.HasOption(option) {
		return domain.AnswerReceipt{}, domain.ErrInvalidOption
	}

	latency := now.Sub(m.openedAt)
	var clientLatency time.Duration
	if !clientSent.IsZero() {
		clientLatency = clientSent.Sub(m.openedAt)
	}
	correct := option == q.CorrectOption
	res := m.cfg.Score(latency, m.window(), correct, p.Streak)

	m.receiptSeq++
	event := domain.AnswerEvent{
		ParticipantID: userID,
		QuestionID:    q.ID,
		Option:        option,
		ClientLatency: clientLatency,
		ServerLatency: latency,
		ReceiptSeq:    m.receiptSeq,
		ReceivedAt:    now,
		Correct:       correct,
		Points:        res.Points,
	}
	m.answerLog = append(m.answerLog, event)
	m.answers[userID] = event

	p.Answered++
	p.TotalLatency += latency
	if p.Status == domain.StatusDisconnected {
		p.Status = domain.StatusConnected
	}
	m.touch(now)

	return domain.AnswerReceipt{QuestionID: q.ID, ReceiptSeq: event.ReceiptSeq, Latency: latency}, nil
}

// AllAnswered reports whether every connected participant has answered the
// open question. The roster is read at call time. A question with nobody
// connected waits for its deadline.
func (m *Machine) AllAnswered() bool {
	if m.phase != domain.PhaseQuestion {
		return false
	}
	connected := 0
	for _, p := range m.order {
		if p.Status != domain.StatusConnected {
			continue
		}
		connected++
		if _, ok := m.answers[p.UserID]; !ok {
			return false
		}
	}
	return connected > 0
}

// CloseQuestion applies the question's points and moves to results. It
// returns false when the question was already closed.
func (m *Machine) CloseQuestion(now time.Time) bool {
	if m.phase != domain.PhaseQuestion {
		return false
	}
	q, _ := m.seq.Current()

	reveal := &domain.Reveal{
		QuestionID:    q.ID,
		CorrectOption: q.CorrectOption,
		Explanation:   q.Explanation,
		Outcomes:      make([]domain.QuestionOutcome, 0, len(m.order)),
	}
	for _, p := range m.order {
		outcome := domain.QuestionOutcome{UserID: p.UserID}
		if ans, ok := m.answers[p.UserID]; ok {
			outcome.Answered = true
			outcome.Option = ans.Option
			outcome.Correct = ans.Correct
			outcome.Points = ans.Points
			if ans.Correct {
				p.Score += ans.Points
				p.CorrectCount++
				p.Streak++
				if p.Streak > p.BestStreak {
					p.BestStreak = p.Streak
				}
			} else {
				p.Streak = 0
			}
		} else {
			p.Streak = 0
		}
		outcome.Streak = p.Streak
		reveal.Outcomes = append(reveal.Outcomes, outcome)
	}

	answered := make([]domain.AnswerEvent, len(m.answerLog))
	copy(answered, m.answerLog)
	sort.SliceStable(answered, func(i, j int) bool { return answered[i].ReceiptSeq < answered[j].ReceiptSeq })
	m.records = append(m.records, domain.QuestionRecord{Question: q.Clone(), Answers: answered})

	m.phase = domain.PhaseResults
	m.deadline = time.Time{}
	if m.cfg.ResultsDuration > 0 {
		m.deadline = now.Add(m.cfg.ResultsDuration)
	}
	m.reveal = reveal
	m.touch(now)
	m.emitPhase(now, nil, reveal)
	m.emitScoreboard(now)
	return true
}

// Expire fires whichever timeout has elapsed at now. It reports whether a
// transition happened.
func (m *Machine) Expire(now time.Time) bool {
	if m.deadline.IsZero() || now.Before(m.deadline) {
		return false
	}
	switch m.phase {
	case domain.PhaseCountdown, domain.PhaseResults:
		m.openNext(now)
		return true
	case domain.PhaseQuestion:
		return m.CloseQuestion(now)
	}
	return false
}

// Abandon finishes a running match that nobody is left to play.
func (m *Machine) Abandon(now time.Time) bool {
	if m.phase == domain.PhaseWaiting || m.phase == domain.PhaseFinished {
		return false
	}
	if m.phase == domain.PhaseQuestion {
		m.CloseQuestion(now)
	}
	m.abandoned = true
	m.finish(now)
	return true
}

// Standings ranks every participant, including those who left mid-match.
func (m *Machine) Standings() []domain.Standing {
	return Rank(m.order)
}

// Summary is available once the match has finished.
func (m *Machine) Summary() (domain.MatchSummary, bool) {
	if m.summary == nil {
		return domain.MatchSummary{}, false
	}
	return *m.summary, true
}

// Info builds the lookup view of the room.
func (m *Machine) Info() domain.RoomInfo {
	info := domain.RoomInfo{
		Code:             m.code,
		Settings:         m.settings,
		Phase:            m.phase,
		HostID:           m.hostID,
		CreatedAt:        m.createdAt,
		LastActivity:     m.lastActivity,
		FinishedAt:       m.finishedAt,
		ParticipantCount: m.ActiveCount(),
		QuestionIndex:    m.seq.Index(),
		TotalQuestions:   m.seq.Len(),
		Deadline:         m.deadline,
		Standings:        m.Standings(),
	}
	switch m.phase {
	case domain.PhaseQuestion:
		if q, ok := m.seq.Current(); ok {
			payload := q.Payload()
			info.Question = &payload
		}
	case domain.PhaseResults:
		if m.reveal != nil {
			r := *m.reveal
			r.Outcomes = append([]domain.QuestionOutcome(nil), m.reveal.Outcomes...)
			info.Reveal = &r
		}
	}
	if m.summary != nil {
		s := *m.summary
		info.Summary = &s
	}
	return info
}

// Drain hands over the events produced since the last call.
func (m *Machine) Drain() []domain.Event {
	out := m.outbox
	m.outbox = nil
	return out
}

func (m *Machine) openNext(now time.Time) {
	m.reveal = nil
	q, ok := m.seq.Advance()
	if !ok {
		m.finish(now)
		return
	}
	m.phase = domain.PhaseQuestion
	m.openedAt = now
	m.deadline = now.Add(m.window())
	m.answers = make(map[string]domain.AnswerEvent)
	m.answerLog = nil
	m.touch(now)
	payload := q.Payload()
	m.emitPhase(now, &payload, nil)
}

func (m *Machine) finish(now time.Time) {
	m.phase = domain.PhaseFinished
	m.deadline = time.Time{}
	m.finishedAt = now
	m.touch(now)

	standings := m.Standings()
	summary := domain.MatchSummary{
		MatchID:    m.matchID,
		RoomCode:   m.code,
		RoomName:   m.settings.Name,
		Category:   m.settings.Category,
		Difficulty: m.settings.Difficulty,
		StartedAt:  m.startedAt,
		FinishedAt: now,
		Abandoned:  m.abandoned,
		Standings:  standings,
		Questions:  append([]domain.QuestionRecord(nil), m.records...),
	}
	if len(standings) > 0 {
		summary.WinnerID = standings[0].UserID
	}
	m.summary = &summary

	m.emitPhase(now, nil, nil)
	final := summary
	m.outbox = append(m.outbox, domain.Event{
		Type:           domain.EventMatchFinished,
		RoomCode:       m.code,
		Phase:          m.phase,
		QuestionIndex:  m.seq.Index(),
		TotalQuestions: m.seq.Len(),
		Standings:      standings,
		Summary:        &final,
		At:             now,
	})
}

func (m *Machine) window() time.Duration {
	return time.Duration(m.settings.QuestionSeconds) * time.Second
}

func (m *Machine) touch(now time.Time) {
	if now.After(m.lastActivity) {
		m.lastActivity = now
	}
}

// hostVacant is true when there is no host or the host left. A host named
// in the settings who has not joined yet keeps the seat.
func (m *Machine) hostVacant() bool {
	if m.hostID == "" {
		return true
	}
	p, ok := m.participants[m.hostID]
	return ok && p.Status == domain.StatusLeft
}

// mayDirect reports whether by can start or advance. Automatic transitions
// pass an empty by; anyone may direct while the host is not in the room.
func (m *Machine) mayDirect(by string) bool {
	return by == "" || by == m.hostID || !m.isActive(m.hostID)
}

func (m *Machine) isActive(userID string) bool {
	p, ok := m.participants[userID]
	return ok && p.Status != domain.StatusLeft
}

func (m *Machine) firstActive() string {
	for _, p := range m.order {
		if p.Status != domain.StatusLeft {
			return p.UserID
		}
	}
	return ""
}

func (m *Machine) emitPhase(now time.Time, question *domain.QuestionPayload, reveal *domain.Reveal) {
	ev := domain.Event{
		Type:           domain.EventPhaseChanged,
		RoomCode:       m.code,
		Phase:          m.phase,
		Deadline:       m.deadline,
		QuestionIndex:  m.seq.Index(),
		TotalQuestions: m.seq.Len(),
		Question:       question,
		Reveal:         reveal,
		At:             now,
	}
	if m.phase == domain.PhaseResults || m.phase == domain.PhaseFinished {
		ev.Standings = m.Standings()
	}
	m.outbox = append(m.outbox, ev)
}

func (m *Machine) emitScoreboard(now time.Time) {
	m.outbox = append(m.outbox, domain.Event{
		Type:           domain.EventScoreboardUpdated,
		RoomCode:       m.code,
		Phase:          m.phase,
		Deadline:       m.deadline,
		QuestionIndex:  m.seq.Index(),
		TotalQuestions: m.seq.Len(),
		Standings:      m.Standings(),
		At:             now,
	})
}
