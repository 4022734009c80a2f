package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/k-lamby/taskTEST-sub000/internal/models"
	"github.com/k-lamby/taskTEST-sub000/internal/store"
	"github.com/k-lamby/taskTEST-sub000/pkg/logger"
)

// MembershipService exposes the two membership views of a project: the
// sharedWith field on the project document and the project_users
// sub-resource. They are maintained independently and deliberately stay
// separate accessors rather than one merged "membership" concept.
type MembershipService struct {
	store store.Client
}

func NewMembershipService(st store.Client) *MembershipService {
	return &MembershipService{store: st}
}

// ResolveMembers derives the member identifiers of a project from its
// document: creator first, then the shared list, duplicates removed while
// preserving order. An email not yet bound to an account is a legal member
// placeholder and is returned as-is.
func (s *MembershipService) ResolveMembers(ctx context.Context, projectID string) ([]string, error) {
	if projectID == "" {
		return nil, required("project id")
	}

	var project models.Project
	if err := s.store.Get(ctx, models.CollectionProjects, projectID, &project); err != nil {
		if err == store.ErrNotFound {
			return nil, err
		}
		return nil, &StoreError{Op: "resolve members", Err: err}
	}

	members := make([]string, 0, 1+len(project.SharedWith))
	seen := make(map[string]bool, 1+len(project.SharedWith))
	for _, id := range append([]string{project.CreatedBy}, project.SharedWith...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, id)
	}
	return members, nil
}

// ProjectUsers reads the per-project user sub-resource. This is the view the
// notification fan-out uses; it is not derived from sharedWith.
func (s *MembershipService) ProjectUsers(ctx context.Context, projectID string) ([]models.ProjectUser, error) {
	if projectID == "" {
		return nil, required("project id")
	}

	var users []models.ProjectUser
	err := s.store.Find(ctx, models.CollectionProjectUsers, store.Query{
		Eq:      []store.Eq{{Field: "projectId", Value: projectID}},
		OrderBy: "addedAt",
	}, &users)
	if err != nil {
		return nil, &StoreError{Op: "fetch project users", Err: err}
	}
	return users, nil
}

// IsMember reports whether userID belongs to the project under either
// membership view: the document-derived member list (creator plus
// sharedWith, where an email placeholder matches the user's lower-cased
// address) or the project_users sub-resource. Activity-emitting writes
// call this before inserting; the audit trail must never reference a
// project its author did not belong to at write time.
func (s *MembershipService) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	members, err := s.ResolveMembers(ctx, projectID)
	if err != nil {
		return false, err
	}
	hasPlaceholders := false
	for _, id := range members {
		if id == userID {
			return true, nil
		}
		if isEmail(id) {
			hasPlaceholders = true
		}
	}

	// An email placeholder counts once the account exists: resolve the
	// user's address and match it against the list.
	if hasPlaceholders {
		var user models.User
		err := s.store.Get(ctx, models.CollectionUsers, userID, &user)
		switch {
		case err == nil && user.Email != "":
			email := strings.ToLower(user.Email)
			for _, id := range members {
				if id == email {
					return true, nil
				}
			}
		case err != nil && err != store.ErrNotFound:
			return false, &StoreError{Op: "check membership", Err: err}
		}
	}

	var users []models.ProjectUser
	err = s.store.Find(ctx, models.CollectionProjectUsers, store.Query{
		Eq: []store.Eq{
			{Field: "projectId", Value: projectID},
			{Field: "userId", Value: userID},
		},
		Limit: 1,
	}, &users)
	if err != nil {
		return false, &StoreError{Op: "check membership", Err: err}
	}
	return len(users) > 0, nil
}

// AddProjectUser appends a user to the sub-resource view.
func (s *MembershipService) AddProjectUser(ctx context.Context, projectID, userID, addedBy string) error {
	if projectID == "" {
		return required("project id")
	}
	if userID == "" {
		return required("user id")
	}
	return s.store.Insert(ctx, models.CollectionProjectUsers, &models.ProjectUser{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		UserID:    userID,
		AddedBy:   addedBy,
		AddedAt:   time.Now(),
	})
}

// LookupNames resolves user ids to display names with one concurrent point
// read per id. Unknown ids are omitted; callers substitute the display
// placeholder at enrichment time. An individual read failure is logged
// but never fatal to the batch. Email placeholder members are skipped
// outright; they have no account document to read.
func (s *MembershipService) LookupNames(ctx context.Context, userIDs []string) map[string]string {
	names := make(map[string]string, len(userIDs))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	seen := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if id == "" || seen[id] || isEmail(id) {
			continue
		}
		seen[id] = true

		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			var user models.User
			if err := s.store.Get(ctx, models.CollectionUsers, userID, &user); err != nil {
				if err != store.ErrNotFound {
					logger.Warn().Err(err).Str("user_id", userID).Msg("name lookup failed")
				}
				return
			}
			mu.Lock()
			names[userID] = user.DisplayName
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	return names
}

func isEmail(id string) bool {
	return strings.Contains(id, "@")
}
