// Package queue moves finished match summaries through asynq so results
// survive a restart of the instance that ran the match.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"quiz-arena/internal/app"
	"quiz-arena/internal/domain"
)

// TaskRecordResult carries one JSON encoded domain.MatchSummary.
const TaskRecordResult = "match:record_result"

// ResultPublisher implements app.ResultRecorder by enqueueing a task.
type ResultPublisher struct {
	client    *asynq.Client
	queue     string
	maxRetry  int
	retention time.Duration
}

func NewResultPublisher(client *asynq.Client, queue string, maxRetry int) *ResultPublisher {
	if queue == "" {
		queue = "default"
	}
	return &ResultPublisher{client: client, queue: queue, maxRetry: maxRetry, retention: 24 * time.Hour}
}

var _ app.ResultRecorder = (*ResultPublisher)(nil)

// RecordMatchResult enqueues the summary. The match id doubles as task id so
// a retried enqueue never creates a second task.
func (p *ResultPublisher) RecordMatchResult(ctx context.Context, summary domain.MatchSummary) error {
	task, err := NewRecordResultTask(summary)
	if err != nil {
		return err
	}
	opts := []asynq.Option{
		asynq.Queue(p.queue),
		asynq.TaskID(summary.MatchID),
		asynq.Retention(p.retention),
	}
	if p.maxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(p.maxRetry))
	}
	_, err = p.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TaskRecordResult, err)
	}
	return nil
}

// NewRecordResultTask builds the task for summary.
func NewRecordResultTask(summary domain.MatchSummary) (*asynq.Task, error) {
	if summary.MatchID == "" {
		return nil, errors.New("match summary without id")
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("encode match summary: %w", err)
	}
	return asynq.NewTask(TaskRecordResult, payload), nil
}

// NewRecordResultHandler writes queued summaries through recorder.
// Undecodable payloads are not retried.
func NewRecordResultHandler(recorder app.ResultRecorder, log *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var summary domain.MatchSummary
		if err := json.Unmarshal(t.Payload(), &summary); err != nil {
			return fmt.Errorf("decode match summary: %v: %w", err, asynq.SkipRetry)
		}
		if err := recorder.RecordMatchResult(ctx, summary); err != nil {
			log.Warn("record match result failed", zap.String("match", summary.MatchID), zap.Error(err))
			return err
		}
		log.Info("match result stored", zap.String("match", summary.MatchID), zap.String("room", summary.RoomCode))
		return nil
	}
}
