package app

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"quiz-arena/internal/domain"
)

// Archiver hands finished matches to a ResultRecorder in the background,
// retrying with exponential backoff. A failing recorder never reaches the
// room.
type Archiver struct {
	recorder ResultRecorder
	log      *zap.Logger
	maxWait  time.Duration
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewArchiver returns an archiver; a nil recorder makes Archive a no-op.
func NewArchiver(recorder ResultRecorder, log *zap.Logger, maxWait time.Duration) *Archiver {
	if log == nil {
		log = zap.NewNop()
	}
	if maxWait <= 0 {
		maxWait = time.Minute
	}
	return &Archiver{recorder: recorder, log: log, maxWait: maxWait, timeout: 5 * time.Second}
}

// Archive records summary asynchronously.
func (a *Archiver) Archive(summary domain.MatchSummary) {
	if a == nil || a.recorder == nil {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.record(summary)
	}()
}

func (a *Archiver) record(summary domain.MatchSummary) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = a.maxWait

	op := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		return a.recorder.RecordMatchResult(ctx, summary)
	}
	notify := func(err error, wait time.Duration) {
		a.log.Warn("record match result failed, retrying",
			zap.String("match", summary.MatchID),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		a.log.Error("giving up on match result",
			zap.String("match", summary.MatchID),
			zap.String("room", summary.RoomCode),
			zap.Error(err),
		)
		return
	}
	a.log.Info("match result recorded", zap.String("match", summary.MatchID))
}

// Wait blocks until every pending archive attempt has finished.
func (a *Archiver) Wait() {
	if a == nil {
		return
	}
	a.wg.Wait()
}
