package services

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/k-lamby/taskTEST-sub000/internal/models"
	"github.com/k-lamby/taskTEST-sub000/internal/store"
)

type ProjectService struct {
	store      store.Client
	activities *ActivityService
	membership *MembershipService
}

func NewProjectService(st store.Client) *ProjectService {
	return &ProjectService{
		store:      st,
		activities: NewActivityService(st),
		membership: NewMembershipService(st),
	}
}

type CreateProjectRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SharedWith  []string  `json:"sharedWith"`
	DueDate     time.Time `json:"dueDate"`
}

type UpdateProjectRequest struct {
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
}

// ListForUser returns the de-duplicated set of active projects the user
// created or appears in the shared list of, matched by user id or by
// lower-cased email. An empty user id returns an empty slice, not an error:
// callers that are not yet authenticated see no projects rather than failing.
// Result order is undefined; callers that need an order sort explicitly.
func (s *ProjectService) ListForUser(ctx context.Context, userID, email string) ([]models.Project, error) {
	if userID == "" {
		return []models.Project{}, nil
	}

	identifiers := []string{userID}
	if email != "" {
		identifiers = append(identifiers, strings.ToLower(email))
	}

	var (
		owned, shared       []models.Project
		ownedErr, sharedErr error
		wg                  sync.WaitGroup
	)

	// Both branches run concurrently and are jointly awaited.
	wg.Add(2)
	go func() {
		defer wg.Done()
		ownedErr = s.store.Find(ctx, models.CollectionProjects, store.Query{
			Eq: []store.Eq{
				{Field: "createdBy", Value: userID},
				{Field: "isActive", Value: true},
			},
		}, &owned)
	}()
	go func() {
		defer wg.Done()
		sharedErr = s.store.Find(ctx, models.CollectionProjects, store.Query{
			Eq: []store.Eq{{Field: "isActive", Value: true}},
			In: &store.In{Field: "sharedWith", Values: identifiers},
		}, &shared)
	}()
	wg.Wait()

	if ownedErr != nil {
		return nil, &StoreError{Op: "list projects", Err: ownedErr}
	}
	if sharedErr != nil {
		return nil, &StoreError{Op: "list projects", Err: sharedErr}
	}

	// Merge by id. A user can appear in both branches (creator who is also
	// listed in sharedWith); both emit the identical record, so overwrite
	// order does not matter.
	merged := make(map[string]models.Project, len(owned)+len(shared))
	for _, p := range owned {
		merged[p.ID] = p
	}
	for _, p := range shared {
		merged[p.ID] = p
	}

	projects := make([]models.Project, 0, len(merged))
	for _, p := range merged {
		projects = append(projects, p)
	}
	return projects, nil
}

// GetByID point-reads a project. Returns store.ErrNotFound when absent.
func (s *ProjectService) GetByID(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	if err := s.store.Get(ctx, models.CollectionProjects, id, &project); err != nil {
		if err == store.ErrNotFound {
			return nil, err
		}
		return nil, &StoreError{Op: "get project", Err: err}
	}
	return &project, nil
}

// Create inserts a new active project, seeds the creator into the
// per-project user sub-resource, and appends a create activity. Shared-with
// entries that look like email addresses are stored lower-cased so the
// shared-branch query can match them without a case-folding scan.
func (s *ProjectService) Create(ctx context.Context, req *CreateProjectRequest, userID string) (*models.Project, error) {
	if req.Name == "" {
		return nil, required("name")
	}
	if userID == "" {
		return nil, required("user id")
	}

	sharedWith := make([]string, 0, len(req.SharedWith))
	for _, member := range req.SharedWith {
		if strings.Contains(member, "@") {
			member = strings.ToLower(member)
		}
		sharedWith = append(sharedWith, member)
	}

	project := models.Project{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   userID,
		SharedWith:  sharedWith,
		DueDate:     req.DueDate,
		CreatedAt:   time.Now(),
		IsActive:    true,
	}

	if err := s.store.Insert(ctx, models.CollectionProjects, &project); err != nil {
		return nil, &StoreError{Op: "create project", Err: err}
	}

	// The sub-resource and audit writes follow the project insert; a failure
	// here leaves a live project with incomplete bookkeeping, surfaced as a
	// partial write rather than rolled back.
	if err := s.membership.AddProjectUser(ctx, project.ID, userID, userID); err != nil {
		return &project, &PartialWriteError{Op: "create project", Err: err}
	}
	_, err := s.activities.record(ctx, models.Activity{
		ProjectID: project.ID,
		UserID:    userID,
		Type:      models.ActivityTypeCreate,
		Content:   "created project " + strconv.Quote(project.Name),
	})
	if err != nil {
		return &project, &PartialWriteError{Op: "create project", Err: err}
	}

	return &project, nil
}

// Update applies a partial update to name, description and due date.
func (s *ProjectService) Update(ctx context.Context, id string, req *UpdateProjectRequest) error {
	if id == "" {
		return required("project id")
	}

	fields := make(map[string]interface{})
	if req.Name != "" {
		fields["name"] = req.Name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.DueDate != nil {
		fields["dueDate"] = *req.DueDate
	}
	if len(fields) == 0 {
		return nil
	}

	if err := s.store.Update(ctx, models.CollectionProjects, id, fields); err != nil {
		if err == store.ErrNotFound {
			return err
		}
		return &StoreError{Op: "update project", Err: err}
	}
	return nil
}

// Archive soft-deletes a project. The record persists with IsActive=false
// and drops out of every active-project query; it is never hard-deleted.
func (s *ProjectService) Archive(ctx context.Context, id string) error {
	if id == "" {
		return required("project id")
	}

	now := time.Now()
	err := s.store.Update(ctx, models.CollectionProjects, id, map[string]interface{}{
		"isActive":  false,
		"deletedAt": &now,
	})
	if err != nil {
		if err == store.ErrNotFound {
			return err
		}
		return &StoreError{Op: "archive project", Err: err}
	}
	return nil
}
