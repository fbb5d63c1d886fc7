package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"quiz-arena/internal/domain"
	"quiz-arena/internal/match"
)

// CoordinatorConfig tunes timers that sit outside the match rules.
type CoordinatorConfig struct {
	Match match.Config
	// DisconnectGrace is how long a disconnected participant keeps their seat.
	DisconnectGrace time.Duration
	// SubscriberBuffer is the per-listener channel size.
	SubscriberBuffer int
}

// DefaultCoordinatorConfig returns the production defaults.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		Match:            match.DefaultConfig(),
		DisconnectGrace:  time.Minute,
		SubscriberBuffer: 16,
	}
}

// Coordinator is the single writer of one room's match. Every action, timer
// fire included, runs on its loop goroutine in arrival order.
type Coordinator struct {
	code      string
	settings  domain.RoomSettings
	createdAt time.Time
	clock     Clock
	log       *zap.Logger
	cfg       CoordinatorConfig
	sink      EventSink
	archive   func(domain.MatchSummary)
	onEmpty   func(code string)

	actions   chan func(now time.Time)
	stop      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// owned by the loop goroutine
	machine       *match.Machine
	timer         Timer
	armedDeadline time.Time
	timerGen      uint64
	graceTimers   map[string]Timer
	subscribers   map[chan domain.Event]struct{}
	archived      bool
	everJoined    bool
}

type coordinatorDeps struct {
	clock   Clock
	log     *zap.Logger
	sink    EventSink
	archive func(domain.MatchSummary)
	onEmpty func(code string)
}

func newCoordinator(code string, settings domain.RoomSettings, machine *match.Machine, cfg CoordinatorConfig, deps coordinatorDeps) *Coordinator {
	if deps.clock == nil {
		deps.clock = RealClock()
	}
	if deps.log == nil {
		deps.log = zap.NewNop()
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = 16
	}
	c := &Coordinator{
		code:        code,
		settings:    settings,
		createdAt:   deps.clock.Now(),
		clock:       deps.clock,
		log:         deps.log.With(zap.String("room", code)),
		cfg:         cfg,
		sink:        deps.sink,
		archive:     deps.archive,
		onEmpty:     deps.onEmpty,
		actions:     make(chan func(now time.Time)),
		stop:        make(chan struct{}),
		stopped:     make(chan struct{}),
		machine:     machine,
		graceTimers: make(map[string]Timer),
		subscribers: make(map[chan domain.Event]struct{}),
	}
	go c.run()
	return c
}

// Code is the room code.
func (c *Coordinator) Code() string { return c.code }

// Settings are fixed at creation.
func (c *Coordinator) Settings() domain.RoomSettings { return c.settings }

// Join admits a participant or reconnects a known one.
func (c *Coordinator) Join(ctx context.Context, id domain.Identity) (domain.Participant, error) {
	var (
		p   domain.Participant
		err error
	)
	doErr := c.do(ctx, func(now time.Time) {
		p, err = c.machine.Join(id, now)
		if err == nil {
			c.everJoined = true
			c.cancelGrace(id.UserID)
		}
	})
	if doErr != nil {
		return domain.Participant{}, doErr
	}
	return p, err
}

// Leave removes a participant. Calling it twice is harmless.
func (c *Coordinator) Leave(ctx context.Context, userID string) error {
	return c.do(ctx, func(now time.Time) {
		c.cancelGrace(userID)
		c.machine.Leave(userID, now)
	})
}

// Disconnect keeps the participant's seat for the grace period.
func (c *Coordinator) Disconnect(ctx context.Context, userID string) error {
	return c.do(ctx, func(now time.Time) {
		if !c.machine.Disconnect(userID, now) {
			return
		}
		c.scheduleGrace(userID, now)
	})
}

// MarkReady sets the participant's ready flag.
func (c *Coordinator) MarkReady(ctx context.Context, userID string, ready bool) error {
	var err error
	if doErr := c.do(ctx, func(now time.Time) {
		err = c.machine.MarkReady(userID, ready, now)
	}); doErr != nil {
		return doErr
	}
	return err
}

// Start begins the countdown on behalf of userID.
func (c *Coordinator) Start(ctx context.Context, userID string) error {
	var err error
	if doErr := c.do(ctx, func(now time.Time) {
		err = c.machine.Start(userID, now)
	}); doErr != nil {
		return doErr
	}
	return err
}

// Advance moves from results to the next question on behalf of userID.
func (c *Coordinator) Advance(ctx context.Context, userID string) error {
	var err error
	if doErr := c.do(ctx, func(now time.Time) {
		err = c.machine.Advance(userID, now)
	}); doErr != nil {
		return doErr
	}
	return err
}

// SubmitAnswer records an answer stamped with the server receipt time.
func (c *Coordinator) SubmitAnswer(ctx context.Context, userID, questionID, option string, clientSent time.Time) (domain.AnswerReceipt, error) {
	var (
		receipt domain.AnswerReceipt
		err     error
	)
	doErr := c.do(ctx, func(now time.Time) {
		receipt, err = c.machine.SubmitAnswer(userID, questionID, option, clientSent, now)
	})
	if doErr != nil {
		return domain.AnswerReceipt{}, doErr
	}
	if err != nil {
		c.log.Debug("answer rejected",
			zap.String("user", userID),
			zap.String("question", questionID),
			zap.Error(err),
		)
	}
	return receipt, err
}

// Snapshot returns the current room view.
func (c *Coordinator) Snapshot(ctx context.Context) (domain.RoomInfo, error) {
	var info domain.RoomInfo
	err := c.do(ctx, func(time.Time) {
		info = c.machine.Info()
	})
	return info, err
}

// Subscribe returns a channel of room events, starting with a snapshot of
// the room. While a question is open or being revealed the snapshot is a
// phaseChanged event carrying it, so a late or reconnecting client can
// answer. Slow readers lose the oldest buffered event. The caller must
// invoke the returned cancel function to avoid leaks.
func (c *Coordinator) Subscribe(ctx context.Context) (<-chan domain.Event, func(), error) {
	ch := make(chan domain.Event, c.cfg.SubscriberBuffer)
	err := c.do(ctx, func(now time.Time) {
		c.subscribers[ch] = struct{}{}
		ch <- snapshotEvent(c.machine.Info(), now)
	})
	if err != nil {
		return nil, nil, err
	}
	cancel := func() {
		_ = c.do(context.Background(), func(time.Time) {
			if _, ok := c.subscribers[ch]; ok {
				delete(c.subscribers, ch)
				close(ch)
			}
		})
	}
	return ch, cancel, nil
}

func snapshotEvent(info domain.RoomInfo, now time.Time) domain.Event {
	ev := domain.Event{
		Type:           domain.EventScoreboardUpdated,
		RoomCode:       info.Code,
		Phase:          info.Phase,
		Deadline:       info.Deadline,
		QuestionIndex:  info.QuestionIndex,
		TotalQuestions: info.TotalQuestions,
		Standings:      info.Standings,
		Summary:        info.Summary,
		At:             now,
	}
	if info.Question != nil || info.Reveal != nil {
		ev.Type = domain.EventPhaseChanged
		ev.Question = info.Question
		ev.Reveal = info.Reveal
	}
	return ev
}

// Close stops the loop and every timer. Subscriber channels are closed.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
	<-c.stopped
}

// do runs fn on the loop and waits for it to finish.
func (c *Coordinator) do(ctx context.Context, fn func(now time.Time)) error {
	finished := make(chan struct{})
	action := func(now time.Time) {
		defer close(finished)
		fn(now)
	}
	select {
	case c.actions <- action:
	case <-c.stop:
		return domain.ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// post queues fn without waiting; used by timers.
func (c *Coordinator) post(fn func(now time.Time)) {
	select {
	case c.actions <- fn:
	case <-c.stop:
	}
}

func (c *Coordinator) run() {
	defer close(c.stopped)
	defer c.shutdown()
	for {
		select {
		case fn := <-c.actions:
			now := c.clock.Now()
			// a deadline that already passed wins over whatever action raced it
			c.machine.Expire(now)
			fn(now)
			c.settle(now)
		case <-c.stop:
			return
		}
	}
}

// settle applies the automatic transitions, flushes events and re-arms the
// phase timer. It runs after every action.
func (c *Coordinator) settle(now time.Time) {
	m := c.machine
transitions:
	for {
		switch {
		case m.Phase() != domain.PhaseWaiting && m.Phase() != domain.PhaseFinished && m.ActiveCount() == 0:
			m.Abandon(now)
			c.log.Info("match abandoned")
		case m.AllAnswered():
			m.CloseQuestion(now)
		case m.AutoStartDue():
			if err := m.Start("", now); err != nil {
				c.log.Warn("auto start failed", zap.Error(err))
				break transitions
			}
		case m.Expire(now):
		default:
			break transitions
		}
	}

	for _, ev := range m.Drain() {
		c.fanout(ev)
	}

	if m.Phase() == domain.PhaseFinished && !c.archived {
		c.archived = true
		c.stopGraceTimers()
		if summary, ok := m.Summary(); ok {
			c.verify(summary)
			c.log.Info("match finished",
				zap.String("winner", summary.WinnerID),
				zap.Bool("abandoned", summary.Abandoned),
				zap.Int("questions", len(summary.Questions)),
			)
			if c.archive != nil {
				c.archive(summary)
			}
		}
	}

	c.arm(now)

	if m.Phase() == domain.PhaseWaiting && c.everJoined && m.ActiveCount() == 0 && c.onEmpty != nil {
		c.everJoined = false
		// onEmpty disposes the room, which waits for this loop to exit
		go c.onEmpty(c.code)
	}
}

// arm keeps exactly one timer pointed at the machine's deadline. A fired
// timer only queues an action; the transition itself happens in Expire.
func (c *Coordinator) arm(now time.Time) {
	deadline := c.machine.Deadline()
	if deadline.Equal(c.armedDeadline) {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
	c.armedDeadline = deadline
	if deadline.IsZero() {
		return
	}
	gen := c.timerGen
	c.timer = c.clock.AfterFunc(deadline.Sub(now), func() {
		c.post(func(time.Time) {
			if gen == c.timerGen {
				// let settle re-arm if the clock had not quite reached the deadline
				c.armedDeadline = time.Time{}
			}
		})
	})
}

func (c *Coordinator) scheduleGrace(userID string, now time.Time) {
	c.cancelGrace(userID)
	if c.cfg.DisconnectGrace <= 0 {
		return
	}
	c.graceTimers[userID] = c.clock.AfterFunc(c.cfg.DisconnectGrace, func() {
		c.post(func(at time.Time) {
			if c.machine.Phase() == domain.PhaseFinished {
				return
			}
			p, ok := c.machine.Participant(userID)
			if !ok || p.Status != domain.StatusDisconnected || !p.DisconnectedAt.Equal(now) {
				return
			}
			delete(c.graceTimers, userID)
			c.log.Info("disconnect grace expired", zap.String("user", userID))
			c.machine.Leave(userID, at)
		})
	})
}

func (c *Coordinator) cancelGrace(userID string) {
	if t, ok := c.graceTimers[userID]; ok {
		t.Stop()
		delete(c.graceTimers, userID)
	}
}

func (c *Coordinator) stopGraceTimers() {
	for id, t := range c.graceTimers {
		t.Stop()
		delete(c.graceTimers, id)
	}
}

func (c *Coordinator) fanout(ev domain.Event) {
	for ch := range c.subscribers {
		select {
		case ch <- ev:
		default:
			// drop the oldest update so a slow listener never blocks the room
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
	if c.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := c.sink.Publish(ctx, ev); err != nil {
			c.log.Warn("event sink publish failed", zap.String("type", string(ev.Type)), zap.Error(err))
		}
		cancel()
	}
}

// verify reports an accepted-answer duplicate as an internal fault. The
// single-writer loop makes it unreachable.
func (c *Coordinator) verify(summary domain.MatchSummary) {
	for _, rec := range summary.Questions {
		seen := make(map[string]struct{}, len(rec.Answers))
		for _, ans := range rec.Answers {
			if _, dup := seen[ans.ParticipantID]; dup {
				err := &domain.InvariantError{
					Invariant: "one accepted answer per participant per question",
					Detail:    ans.ParticipantID + " on " + rec.Question.ID,
				}
				c.log.Error("internal fault", zap.Error(err))
			}
			seen[ans.ParticipantID] = struct{}{}
		}
	}
}

func (c *Coordinator) shutdown() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.stopGraceTimers()
	for ch := range c.subscribers {
		delete(c.subscribers, ch)
		close(ch)
	}
}
