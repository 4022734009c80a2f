package main

import (
	"context"
	"time"

	"github.com/k-lamby/taskTEST-sub000/internal/config"
	"github.com/k-lamby/taskTEST-sub000/internal/handlers"
	"github.com/k-lamby/taskTEST-sub000/internal/services"
	"github.com/k-lamby/taskTEST-sub000/internal/store"
	"github.com/k-lamby/taskTEST-sub000/internal/utils"
	"github.com/k-lamby/taskTEST-sub000/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	store           store.Client
	storeCloser     func(context.Context) error
	pushQueue       services.PushQueue
	worker          *services.Worker
	reminderService *services.ReminderService
	authHandler     *handlers.AuthHandler
	projectHandler  *handlers.ProjectHandler
	taskHandler     *handlers.TaskHandler
	activityHandler *handlers.ActivityHandler
}

// bootstrap initializes all application dependencies: store, push delivery, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	svc := &appServices{}

	// Initialize document store
	switch cfg.Store.Driver {
	case "memory":
		svc.store = store.NewMemory()
		logger.Warn().Msg("Using in-memory store; data will not survive a restart")
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongo, err := store.ConnectMongo(ctx, cfg.Store.URI, cfg.Store.Database)
		if err != nil {
			logger.Fatalf("Failed to connect to store: %v", err)
		}
		svc.store = mongo
		svc.storeCloser = mongo.Close
	}

	// Push delivery (queued through Redis if enabled, otherwise inline)
	pushClient := services.NewPushClient(&cfg.Push)
	svc.pushQueue = services.NewPushQueue(cfg, pushClient.Send)

	// Start async worker if Redis is enabled
	if cfg.Redis.Enabled && svc.pushQueue.IsAsync() {
		svc.worker = services.NewWorker(&cfg.Redis)
		if svc.worker != nil {
			svc.worker.SetSender(pushClient.Send)
			if err := svc.worker.Start(); err != nil {
				logger.Warn().Err(err).Msg("Failed to start push worker")
			}
		}
	}

	// Due-date reminder sweep
	svc.reminderService = services.NewReminderService(svc.store, svc.pushQueue)
	if cfg.Reminder.Enabled {
		if err := svc.reminderService.StartScheduler(cfg.Reminder.Schedule); err != nil {
			logger.Warn().Err(err).Msg("Failed to start reminder scheduler")
		}
	}

	notifications := services.NewNotificationService(svc.store, svc.pushQueue)
	svc.authHandler = handlers.NewAuthHandler(svc.store, cfg)
	svc.projectHandler = handlers.NewProjectHandler(svc.store)
	svc.taskHandler = handlers.NewTaskHandler(svc.store, notifications)
	svc.activityHandler = handlers.NewActivityHandler(svc.store, notifications)

	return svc
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.reminderService.Stop()
	if s.worker != nil {
		s.worker.Stop()
	}
	if s.pushQueue != nil {
		if err := s.pushQueue.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close push queue")
		}
	}
	if s.storeCloser != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.storeCloser(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to close store connection")
		}
	}
	logger.Info().Msg("All services stopped")
}
