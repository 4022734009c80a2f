package services

import (
	"context"
	"errors"
	"testing"

	"github.com/k-lamby/taskTEST-sub000/internal/config"
)

func TestTaskTypePush_Constant(t *testing.T) {
	if TaskTypePush != "push:deliver" {
		t.Errorf("TaskTypePush = %q, expected %q", TaskTypePush, "push:deliver")
	}
}

func TestSyncPushQueue_DeliversInline(t *testing.T) {
	var delivered *PushTask
	q := NewSyncPushQueue(func(ctx context.Context, task *PushTask) error {
		delivered = task
		return nil
	})

	if q.IsAsync() {
		t.Error("SyncPushQueue must report IsAsync() = false")
	}

	task := &PushTask{Token: "tok-1", Title: "t", Body: "b"}
	if err := q.Enqueue(task); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if delivered == nil || delivered.Token != "tok-1" {
		t.Errorf("delivered = %+v, expected inline delivery", delivered)
	}
	if err := q.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestSyncPushQueue_PropagatesSenderError(t *testing.T) {
	q := NewSyncPushQueue(func(ctx context.Context, task *PushTask) error {
		return errors.New("delivery rejected")
	})
	if err := q.Enqueue(&PushTask{Token: "tok"}); err == nil {
		t.Error("Enqueue() should surface the sender error")
	}
}

func TestSyncPushQueue_NilSender(t *testing.T) {
	q := NewSyncPushQueue(nil)
	if err := q.Enqueue(&PushTask{Token: "tok"}); err != nil {
		t.Errorf("Enqueue() error = %v, a nil sender drops silently", err)
	}
}

func TestNewPushQueue_RedisDisabled(t *testing.T) {
	cfg := &config.Config{}
	q := NewPushQueue(cfg, nil)
	if q.IsAsync() {
		t.Error("with Redis disabled the queue must be synchronous")
	}
}

func TestNewPushQueue_RedisUnreachable(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{Enabled: true, Addr: "127.0.0.1:1"},
	}
	q := NewPushQueue(cfg, nil)
	if q.IsAsync() {
		t.Error("an unreachable Redis must fall back to sync delivery")
	}
}
