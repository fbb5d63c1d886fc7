package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"quiz-arena/internal/domain"
)

type fakeRecorder struct {
	got []domain.MatchSummary
	err error
}

func (f *fakeRecorder) RecordMatchResult(_ context.Context, s domain.MatchSummary) error {
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, s)
	return nil
}

func TestRecordResultHandlerStoresSummary(t *testing.T) {
	rec := &fakeRecorder{}
	handler := NewRecordResultHandler(rec, zap.NewNop())

	task, err := NewRecordResultTask(domain.MatchSummary{MatchID: "m1", RoomCode: "ABC234", WinnerID: "alice"})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TaskRecordResult {
		t.Fatalf("unexpected task type %s", task.Type())
	}
	if err := handler.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(rec.got) != 1 || rec.got[0].WinnerID != "alice" {
		t.Fatalf("expected summary recorded, got %+v", rec.got)
	}
}

func TestRecordResultHandlerSkipsRetryOnBadPayload(t *testing.T) {
	handler := NewRecordResultHandler(&fakeRecorder{}, zap.NewNop())
	err := handler.ProcessTask(context.Background(), asynq.NewTask(TaskRecordResult, []byte("{not json")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected skip retry, got %v", err)
	}
}

func TestRecordResultHandlerRetriesStoreFailure(t *testing.T) {
	boom := errors.New("db down")
	handler := NewRecordResultHandler(&fakeRecorder{err: boom}, zap.NewNop())
	task, _ := NewRecordResultTask(domain.MatchSummary{MatchID: "m1"})

	err := handler.ProcessTask(context.Background(), task)
	if !errors.Is(err, boom) || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected retryable store error, got %v", err)
	}
}

func TestNewRecordResultTaskRequiresID(t *testing.T) {
	if _, err := NewRecordResultTask(domain.MatchSummary{}); err == nil {
		t.Fatalf("expected error for summary without id")
	}
}
