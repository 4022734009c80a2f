package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/k-lamby/taskTEST-sub000/internal/middleware"
	"github.com/k-lamby/taskTEST-sub000/internal/models"
	"github.com/k-lamby/taskTEST-sub000/internal/services"
	"github.com/k-lamby/taskTEST-sub000/internal/store"
	"github.com/k-lamby/taskTEST-sub000/pkg/response"
)

type TaskHandler struct {
	taskService    *services.TaskService
	projectService *services.ProjectService
	notifications  *services.NotificationService
}

func NewTaskHandler(st store.Client, notifications *services.NotificationService) *TaskHandler {
	return &TaskHandler{
		taskService:    services.NewTaskService(st),
		projectService: services.NewProjectService(st),
		notifications:  notifications,
	}
}

// Add creates a new task
// POST /api/tasks
func (h *TaskHandler) Add(c *gin.Context) {
	var req services.AddTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Owner == "" {
		req.Owner = middleware.GetUserID(c)
	}

	task, err := h.taskService.Add(c.Request.Context(), &req)
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Created(c, task)
}

// Update applies a partial update to a task
// PUT /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	var req services.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.taskService.Update(c.Request.Context(), c.Param("id"), &req); err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "task updated"})
}

// Toggle flips a task between pending and completed and notifies the
// project's other members
// POST /api/tasks/:id/toggle
func (h *TaskHandler) Toggle(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	task, err := h.taskService.ToggleCompletion(ctx, c.Param("id"), req.Status, userID)
	if err != nil {
		serviceError(c, err)
		return
	}

	verb := "completed"
	if task.Status == models.TaskStatusPending {
		verb = "reopened"
	}
	actor := middleware.GetDisplayName(c)
	if actor == "" {
		actor = "A project member"
	}
	err = h.notifications.NotifyProjectMembers(ctx, task.ProjectID, userID,
		"Task "+verb,
		actor+" "+verb+" "+strconv.Quote(task.Name),
		map[string]string{"projectId": task.ProjectID, "taskId": task.ID})
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, task)
}

// ListForProject returns a project's tasks annotated with the project name
// GET /api/projects/:id/tasks
func (h *TaskHandler) ListForProject(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("id")

	tasks, err := h.taskService.ListForProject(ctx, projectID)
	if err != nil {
		serviceError(c, err)
		return
	}

	projectNames := make(map[string]string, 1)
	if project, err := h.projectService.GetByID(ctx, projectID); err == nil {
		projectNames[project.ID] = project.Name
	}

	response.Success(c, services.AnnotateTasks(tasks, projectNames))
}
