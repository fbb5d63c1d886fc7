package queue

import (
	"context"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"quiz-arena/internal/app"
)

// Worker consumes result tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewWorker builds a worker over the given Redis connection.
func NewWorker(redis asynq.RedisConnOpt, queue string, concurrency int, recorder app.ResultRecorder, log *zap.Logger) *Worker {
	if queue == "" {
		queue = "default"
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	srv := asynq.NewServer(redis, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
		Logger:      log.Sugar(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error("task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})
	mux := asynq.NewServeMux()
	mux.Handle(TaskRecordResult, NewRecordResultHandler(recorder, log))
	return &Worker{server: srv, mux: mux}
}

// Run starts the worker and blocks until ctx is canceled, then shuts down.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	<-ctx.Done()
	w.server.Shutdown()
	return nil
}
