package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/k-lamby/taskTEST-sub000/internal/config"
	"github.com/k-lamby/taskTEST-sub000/pkg/logger"
)

// Worker drains push deliveries from the Redis queue.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	sender  func(context.Context, *PushTask) error
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewWorker creates a worker instance, or nil when Redis is disabled.
func NewWorker(cfg *config.RedisConfig) *Worker {
	if !cfg.Enabled {
		return nil
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Warn().Err(err).Str("type", task.Type()).Msg("push worker task failed")
			}),
		},
	)

	return &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
	}
}

// SetSender sets the delivery function for push tasks.
func (w *Worker) SetSender(sender func(context.Context, *PushTask) error) {
	w.sender = sender
}

// Start begins processing deliveries.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.mux.HandleFunc(TaskTypePush, w.handlePushTask)

	w.running = true
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		logger.Infof("[Worker] Starting push delivery worker...")
		if err := w.server.Run(w.mux); err != nil {
			logger.Errorf("[Worker] Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the worker.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.server.Shutdown()
	w.wg.Wait()
	w.running = false
}

func (w *Worker) handlePushTask(ctx context.Context, t *asynq.Task) error {
	var task PushTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		return err
	}
	if w.sender == nil {
		logger.Warn().Msg("push worker has no sender configured, dropping task")
		return nil
	}
	return w.sender(ctx, &task)
}
