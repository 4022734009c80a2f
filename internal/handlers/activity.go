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

const defaultFeedLimit = 50

type ActivityHandler struct {
	projectService    *services.ProjectService
	activityService   *services.ActivityService
	taskService       *services.TaskService
	membershipService *services.MembershipService
	notifications     *services.NotificationService
}

func NewActivityHandler(st store.Client, notifications *services.NotificationService) *ActivityHandler {
	return &ActivityHandler{
		projectService:    services.NewProjectService(st),
		activityService:   services.NewActivityService(st),
		taskService:       services.NewTaskService(st),
		membershipService: services.NewMembershipService(st),
		notifications:     notifications,
	}
}

// Feed returns the most recent activities across all the current user's
// projects, enriched with project, task and user display names
// GET /api/activities
func (h *ActivityHandler) Feed(c *gin.Context) {
	ctx := c.Request.Context()

	limit := defaultFeedLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	projects, err := h.projectService.ListForUser(ctx,
		middleware.GetUserID(c), middleware.GetEmail(c))
	if err != nil {
		serviceError(c, err)
		return
	}

	projectIDs := make([]string, 0, len(projects))
	projectNames := make(map[string]string, len(projects))
	for _, p := range projects {
		projectIDs = append(projectIDs, p.ID)
		projectNames[p.ID] = p.Name
	}

	activities, err := h.activityService.RecentForProjects(ctx, projectIDs, limit)
	if err != nil {
		serviceError(c, err)
		return
	}

	taskIDs := make([]string, 0, len(activities))
	userIDs := make([]string, 0, len(activities))
	for _, a := range activities {
		if a.TaskID != "" {
			taskIDs = append(taskIDs, a.TaskID)
		}
		userIDs = append(userIDs, a.UserID)
	}
	taskNames := h.taskService.LookupNames(ctx, taskIDs)
	userNames := h.membershipService.LookupNames(ctx, userIDs)

	response.Success(c, services.AnnotateActivities(activities, projectNames, taskNames, userNames))
}

// PostMessage appends a message activity to a project and notifies the
// project's other members
// POST /api/projects/:id/messages
func (h *ActivityHandler) PostMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
		Type    string `json:"type"`
		FileURL string `json:"fileUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Type == "" {
		req.Type = models.ActivityTypeMessage
	}

	ctx := c.Request.Context()
	projectID := c.Param("id")
	userID := middleware.GetUserID(c)

	project, err := h.projectService.GetByID(ctx, projectID)
	if err != nil {
		serviceError(c, err)
		return
	}

	activity, err := h.activityService.Add(ctx, models.Activity{
		ProjectID: projectID,
		UserID:    userID,
		Type:      req.Type,
		Content:   req.Content,
		FileURL:   req.FileURL,
	})
	if err != nil {
		serviceError(c, err)
		return
	}

	sender := middleware.GetDisplayName(c)
	if sender == "" {
		sender = "A project member"
	}
	err = h.notifications.NotifyProjectMembers(ctx, projectID, userID,
		project.Name,
		sender+": "+req.Content,
		map[string]string{"projectId": projectID})
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Created(c, activity)
}
