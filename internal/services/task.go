package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/k-lamby/taskTEST-sub000/internal/models"
	"github.com/k-lamby/taskTEST-sub000/internal/store"
	"github.com/k-lamby/taskTEST-sub000/pkg/logger"
)

type TaskService struct {
	store      store.Client
	activities *ActivityService
	members    *MembershipService
}

func NewTaskService(st store.Client) *TaskService {
	return &TaskService{
		store:      st,
		activities: NewActivityService(st),
		members:    NewMembershipService(st),
	}
}

type AddTaskRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ProjectID   string    `json:"projectId"`
	Owner       string    `json:"owner"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	DueDate     time.Time `json:"dueDate"`
}

type UpdateTaskRequest struct {
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Priority    string     `json:"priority"`
	Owner       string     `json:"owner"`
	DueDate     *time.Time `json:"dueDate"`
}

// Add creates a task. Status defaults to pending and priority to medium;
// completedAt is derived from the initial status by the same rule toggling
// uses. The create activity records provenance: a task born completed says
// so, in case the audit trail is read back later.
func (s *TaskService) Add(ctx context.Context, req *AddTaskRequest) (*models.Task, error) {
	if req.Name == "" {
		return nil, required("name")
	}
	if req.ProjectID == "" {
		return nil, required("project id")
	}
	if req.Owner == "" {
		return nil, required("owner")
	}

	status := req.Status
	if status == "" {
		status = models.TaskStatusPending
	}
	if status != models.TaskStatusPending && status != models.TaskStatusCompleted {
		return nil, &ValidationError{Field: "status", Reason: "must be pending or completed"}
	}
	priority := req.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}
	if priority != models.TaskPriorityLow && priority != models.TaskPriorityMedium && priority != models.TaskPriorityHigh {
		return nil, &ValidationError{Field: "priority", Reason: "must be low, medium or high"}
	}

	// The owner authors the create activity, so they must belong to the
	// project before anything is written.
	member, err := s.members.IsMember(ctx, req.ProjectID, req.Owner)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotProjectMember
	}

	now := time.Now()
	task := models.Task{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		ProjectID:   req.ProjectID,
		Owner:       req.Owner,
		Status:      status,
		Priority:    priority,
		DueDate:     req.DueDate,
		CreatedAt:   now,
		CompletedAt: completionTime(status, now),
	}

	if err := s.store.Insert(ctx, models.CollectionTasks, &task); err != nil {
		return nil, &StoreError{Op: "add task", Err: err}
	}

	content := "created task " + strconv.Quote(task.Name)
	if status == models.TaskStatusCompleted {
		content += " (already completed)"
	}
	_, err = s.activities.record(ctx, models.Activity{
		ProjectID: task.ProjectID,
		TaskID:    task.ID,
		UserID:    req.Owner,
		Type:      models.ActivityTypeCreate,
		Content:   content,
	})
	if err != nil {
		logger.Warn().Err(err).Str("task_id", task.ID).Msg("task created but creation activity was not recorded")
		return &task, &PartialWriteError{Op: "add task", Err: err}
	}

	return &task, nil
}

// ToggleCompletion flips a task between pending and completed and appends
// the compensating status activity. The two writes are not atomic as a
// pair: the status update runs first, and an audit failure after a
// successful update comes back as PartialWriteError with the task left in
// its new state. Callers reflecting the change locally must derive
// completedAt the same way the returned task does, or local and remote
// state drift.
func (s *TaskService) ToggleCompletion(ctx context.Context, taskID, currentStatus, actingUserID string) (*models.Task, error) {
	if taskID == "" {
		return nil, required("task id")
	}
	if actingUserID == "" {
		return nil, required("user id")
	}
	if currentStatus != models.TaskStatusPending && currentStatus != models.TaskStatusCompleted {
		return nil, &ValidationError{Field: "status", Reason: "must be pending or completed"}
	}

	var task models.Task
	if err := s.store.Get(ctx, models.CollectionTasks, taskID, &task); err != nil {
		if err == store.ErrNotFound {
			return nil, err
		}
		return nil, &StoreError{Op: "toggle task", Err: err}
	}

	// Checked before the status update: a non-member must not flip the
	// task at all, not merely fail the audit append afterwards.
	member, err := s.members.IsMember(ctx, task.ProjectID, actingUserID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotProjectMember
	}

	newStatus := models.TaskStatusCompleted
	if currentStatus == models.TaskStatusCompleted {
		newStatus = models.TaskStatusPending
	}
	completedAt := completionTime(newStatus, time.Now())

	err = s.store.Update(ctx, models.CollectionTasks, taskID, map[string]interface{}{
		"status":      newStatus,
		"completedAt": completedAt,
	})
	if err != nil {
		return nil, &StoreError{Op: "toggle task", Err: err}
	}
	task.Status = newStatus
	task.CompletedAt = completedAt

	verb := "completed"
	if newStatus == models.TaskStatusPending {
		verb = "reopened"
	}
	_, err = s.activities.record(ctx, models.Activity{
		ProjectID: task.ProjectID,
		TaskID:    task.ID,
		UserID:    actingUserID,
		Type:      models.ActivityTypeStatus,
		Content:   verb + " task " + strconv.Quote(task.Name),
	})
	if err != nil {
		logger.Warn().Err(err).Str("task_id", task.ID).Str("status", newStatus).
			Msg("task status updated but audit activity was not recorded")
		return &task, &PartialWriteError{Op: "toggle task", Err: err}
	}

	return &task, nil
}

// ListForProject returns a project's tasks ordered by due date.
func (s *TaskService) ListForProject(ctx context.Context, projectID string) ([]models.Task, error) {
	if projectID == "" {
		return nil, required("project id")
	}
	var tasks []models.Task
	err := s.store.Find(ctx, models.CollectionTasks, store.Query{
		Eq:      []store.Eq{{Field: "projectId", Value: projectID}},
		OrderBy: "dueDate",
	}, &tasks)
	if err != nil {
		return nil, &StoreError{Op: "list tasks", Err: err}
	}
	return tasks, nil
}

// Update applies a partial update to task fields. Status is deliberately
// not updatable here; ToggleCompletion owns the state machine and its
// audit trail.
func (s *TaskService) Update(ctx context.Context, id string, req *UpdateTaskRequest) error {
	if id == "" {
		return required("task id")
	}

	fields := make(map[string]interface{})
	if req.Name != "" {
		fields["name"] = req.Name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Priority != "" {
		if req.Priority != models.TaskPriorityLow && req.Priority != models.TaskPriorityMedium && req.Priority != models.TaskPriorityHigh {
			return &ValidationError{Field: "priority", Reason: "must be low, medium or high"}
		}
		fields["priority"] = req.Priority
	}
	if req.Owner != "" {
		fields["owner"] = req.Owner
	}
	if req.DueDate != nil {
		fields["dueDate"] = *req.DueDate
	}
	if len(fields) == 0 {
		return nil
	}

	if err := s.store.Update(ctx, models.CollectionTasks, id, fields); err != nil {
		if err == store.ErrNotFound {
			return err
		}
		return &StoreError{Op: "update task", Err: err}
	}
	return nil
}

// LookupNames resolves task ids to task names with concurrent point reads,
// omitting unknown ids; feed enrichment substitutes the placeholder.
func (s *TaskService) LookupNames(ctx context.Context, taskIDs []string) map[string]string {
	names := make(map[string]string, len(taskIDs))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	seen := make(map[string]bool, len(taskIDs))
	for _, id := range taskIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		wg.Add(1)
		go func(taskID string) {
			defer wg.Done()
			var task models.Task
			if err := s.store.Get(ctx, models.CollectionTasks, taskID, &task); err != nil {
				if err != store.ErrNotFound {
					logger.Warn().Err(err).Str("task_id", taskID).Msg("task name lookup failed")
				}
				return
			}
			mu.Lock()
			names[taskID] = task.Name
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	return names
}

// completionTime derives the completedAt value from a status: the single
// rule shared by creation, toggling and any optimistic local mirror.
func completionTime(status string, now time.Time) *time.Time {
	if status == models.TaskStatusCompleted {
		return &now
	}
	return nil
}
