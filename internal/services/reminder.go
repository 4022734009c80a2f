package services

import (
	"context"
	"strconv"
	"time"

	"github.com/k-lamby/taskTEST-sub000/internal/models"
	"github.com/k-lamby/taskTEST-sub000/internal/store"
	"github.com/k-lamby/taskTEST-sub000/pkg/logger"
	"github.com/robfig/cron/v3"
)

// reminderWindow is how far ahead the sweep looks for due tasks.
const reminderWindow = 24 * time.Hour

// ReminderService pushes a reminder to the owner of every pending task
// coming due within the next day. Runs on a cron schedule.
type ReminderService struct {
	store     store.Client
	queue     PushQueue
	scheduler *cron.Cron
	entryID   cron.EntryID
}

func NewReminderService(st store.Client, queue PushQueue) *ReminderService {
	return &ReminderService{store: st, queue: queue}
}

// StartScheduler registers the sweep under the given cron expression.
func (s *ReminderService) StartScheduler(schedule string) error {
	s.scheduler = cron.New()
	entryID, err := s.scheduler.AddFunc(schedule, func() {
		count, err := s.SendDueSoonReminders(context.Background())
		if err != nil {
			logger.Errorf("[Reminder] Sweep failed: %v", err)
			return
		}
		logger.Infof("[Reminder] Sweep complete, %d reminders dispatched", count)
	})
	if err != nil {
		return err
	}
	s.entryID = entryID
	s.scheduler.Start()
	logger.Infof("[Reminder] Scheduler started with schedule %q", schedule)
	return nil
}

// Stop halts the scheduler.
func (s *ReminderService) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// SendDueSoonReminders finds pending tasks due within the reminder window
// and dispatches one push per task owner. Per-owner failures are logged and
// skipped; the sweep only fails when the task query does. Returns the number
// of reminders dispatched.
func (s *ReminderService) SendDueSoonReminders(ctx context.Context) (int, error) {
	now := time.Now()

	var due []models.Task
	err := s.store.Find(ctx, models.CollectionTasks, store.Query{
		Eq: []store.Eq{{Field: "status", Value: models.TaskStatusPending}},
		Range: &store.Range{
			Field: "dueDate",
			Min:   now,
			Max:   now.Add(reminderWindow),
		},
		OrderBy: "dueDate",
	}, &due)
	if err != nil {
		return 0, &StoreError{Op: "due task sweep", Err: err}
	}

	sent := 0
	for _, task := range due {
		var owner models.User
		if err := s.store.Get(ctx, models.CollectionUsers, task.Owner, &owner); err != nil {
			logger.Warn().Err(err).Str("task_id", task.ID).Str("owner", task.Owner).Msg("reminder owner lookup failed")
			continue
		}
		if owner.PushToken == "" {
			continue
		}

		err := s.queue.Enqueue(&PushTask{
			Token: owner.PushToken,
			Title: "Task due soon",
			Body:  strconv.Quote(task.Name) + " is due " + task.DueDate.Format("Jan 2, 15:04"),
			Data:  map[string]string{"projectId": task.ProjectID, "taskId": task.ID},
		})
		if err != nil {
			logger.Warn().Err(err).Str("task_id", task.ID).Msg("reminder dispatch failed")
			continue
		}
		sent++
	}
	return sent, nil
}
