package services

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/k-lamby/taskTEST-sub000/internal/config"
	"github.com/k-lamby/taskTEST-sub000/pkg/logger"
)

const TaskTypePush = "push:deliver"

// PushTask is one recipient's pending push delivery.
type PushTask struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// PushQueue decouples fan-out from delivery. Recipients are enqueued
// independently, so one recipient's failure cannot block another's.
type PushQueue interface {
	// Enqueue schedules one recipient's delivery.
	Enqueue(task *PushTask) error
	// IsAsync returns true if deliveries happen on a background worker.
	IsAsync() bool
	// Close gracefully shuts down the queue.
	Close() error
}

// NewPushQueue picks the queue implementation from config: Redis-backed
// asynq when enabled and reachable, direct synchronous delivery otherwise.
func NewPushQueue(cfg *config.Config, sender func(context.Context, *PushTask) error) PushQueue {
	if cfg.Redis.Enabled {
		queue, err := NewAsyncPushQueue(&cfg.Redis)
		if err != nil {
			logger.Infof("[PushQueue] Redis unavailable, falling back to sync delivery: %v", err)
			return NewSyncPushQueue(sender)
		}
		logger.Infof("[PushQueue] Async queue initialized with Redis at %s", cfg.Redis.Addr)
		return queue
	}
	logger.Infof("[PushQueue] Sync delivery initialized (Redis disabled)")
	return NewSyncPushQueue(sender)
}

// AsyncPushQueue implements PushQueue using asynq (Redis-based).
type AsyncPushQueue struct {
	client *asynq.Client
}

func NewAsyncPushQueue(cfg *config.RedisConfig) (*AsyncPushQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)

	// Verify the connection before committing to async mode.
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()
	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncPushQueue{client: client}, nil
}

func (q *AsyncPushQueue) Enqueue(task *PushTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	t := asynq.NewTask(TaskTypePush, payload)
	info, err := q.client.Enqueue(t,
		asynq.Queue("default"),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return err
	}

	logger.Debug().Str("id", info.ID).Str("queue", info.Queue).Msg("push task enqueued")
	return nil
}

func (q *AsyncPushQueue) IsAsync() bool { return true }

func (q *AsyncPushQueue) Close() error { return q.client.Close() }

// SyncPushQueue delivers inline, without Redis.
type SyncPushQueue struct {
	sender func(context.Context, *PushTask) error
}

func NewSyncPushQueue(sender func(context.Context, *PushTask) error) *SyncPushQueue {
	return &SyncPushQueue{sender: sender}
}

func (q *SyncPushQueue) Enqueue(task *PushTask) error {
	if q.sender == nil {
		return nil
	}
	return q.sender(context.Background(), task)
}

func (q *SyncPushQueue) IsAsync() bool { return false }

func (q *SyncPushQueue) Close() error { return nil }
