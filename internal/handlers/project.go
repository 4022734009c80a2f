package handlers

import (
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/k-lamby/taskTEST-sub000/internal/middleware"
	"github.com/k-lamby/taskTEST-sub000/internal/services"
	"github.com/k-lamby/taskTEST-sub000/internal/store"
	"github.com/k-lamby/taskTEST-sub000/pkg/response"
)

type ProjectHandler struct {
	projectService    *services.ProjectService
	membershipService *services.MembershipService
}

func NewProjectHandler(st store.Client) *ProjectHandler {
	return &ProjectHandler{
		projectService:    services.NewProjectService(st),
		membershipService: services.NewMembershipService(st),
	}
}

// List returns the current user's projects, newest first
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projectService.ListForUser(c.Request.Context(),
		middleware.GetUserID(c), middleware.GetEmail(c))
	if err != nil {
		serviceError(c, err)
		return
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})

	response.Success(c, projects)
}

// GetByID returns a project by ID
// GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	project, err := h.projectService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, project)
}

// Create creates a new project
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), &req, middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Created(c, project)
}

// Update updates a project
// PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.projectService.Update(c.Request.Context(), c.Param("id"), &req); err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "project updated"})
}

// Archive soft-deletes a project
// DELETE /api/projects/:id
func (h *ProjectHandler) Archive(c *gin.Context) {
	if err := h.projectService.Archive(c.Request.Context(), c.Param("id")); err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "project archived"})
}

// Members returns the project's members with display names resolved
// GET /api/projects/:id/members
func (h *ProjectHandler) Members(c *gin.Context) {
	ctx := c.Request.Context()

	memberIDs, err := h.membershipService.ResolveMembers(ctx, c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}

	names := h.membershipService.LookupNames(ctx, memberIDs)
	response.Success(c, services.AnnotateMembers(memberIDs, names))
}
