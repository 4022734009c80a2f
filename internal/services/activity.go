package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/k-lamby/taskTEST-sub000/internal/models"
	"github.com/k-lamby/taskTEST-sub000/internal/store"
)

type ActivityService struct {
	store   store.Client
	members *MembershipService
}

func NewActivityService(st store.Client) *ActivityService {
	return &ActivityService{
		store:   st,
		members: NewMembershipService(st),
	}
}

// RecentForProjects returns the most recent activities across all the given
// projects, sorted newest-first, truncated to limit when limit > 0.
//
// The store caps a membership predicate at store.MaxInValues project ids per
// query, so the id list is partitioned into fixed-size batches, one
// ordered+limited query is issued per batch, and the concatenation is
// re-sorted globally before the overall limit applies. Each batch requests
// the full overall limit rather than a share of it: the global top-K is then
// always contained in the union of per-batch results, whatever the
// distribution of activities across batches.
//
// A failure in any batch aborts the whole fetch; no partial result is
// returned.
func (s *ActivityService) RecentForProjects(ctx context.Context, projectIDs []string, limit int) ([]models.Activity, error) {
	if len(projectIDs) == 0 {
		return []models.Activity{}, nil
	}

	var all []models.Activity
	for _, batch := range chunkIDs(projectIDs, store.MaxInValues) {
		var page []models.Activity
		err := s.store.Find(ctx, models.CollectionActivities, store.Query{
			In:      &store.In{Field: "projectId", Values: batch},
			OrderBy: "timestamp",
			Desc:    true,
			Limit:   limit,
		}, &page)
		if err != nil {
			return nil, &StoreError{Op: "fetch activities", Err: err}
		}
		all = append(all, page...)
	}

	// Stable: activities written under concurrent load share
	// millisecond-granularity timestamps, and ties keep arrival order
	// from the concatenation.
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	if all == nil {
		all = []models.Activity{}
	}
	return all, nil
}

// ForProject returns a single project's activities, newest-first.
func (s *ActivityService) ForProject(ctx context.Context, projectID string, limit int) ([]models.Activity, error) {
	if projectID == "" {
		return nil, required("project id")
	}
	var activities []models.Activity
	err := s.store.Find(ctx, models.CollectionActivities, store.Query{
		Eq:      []store.Eq{{Field: "projectId", Value: projectID}},
		OrderBy: "timestamp",
		Desc:    true,
		Limit:   limit,
	}, &activities)
	if err != nil {
		return nil, &StoreError{Op: "fetch activities", Err: err}
	}
	return activities, nil
}

// Add appends a caller-supplied activity. Activities are immutable audit
// records: the id and timestamp are assigned here and the document is never
// updated afterwards. The author must be a member of the project at write
// time; the store does not enforce that, so the write is refused here.
func (s *ActivityService) Add(ctx context.Context, activity models.Activity) (*models.Activity, error) {
	if activity.ProjectID == "" {
		return nil, required("project id")
	}
	if activity.UserID == "" {
		return nil, required("user id")
	}
	if !validActivityType(activity.Type) {
		return nil, &ValidationError{Field: "type", Reason: "must be one of create, status, message, file, image"}
	}

	member, err := s.members.IsMember(ctx, activity.ProjectID, activity.UserID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotProjectMember
	}

	recorded, err := s.record(ctx, activity)
	if err != nil {
		return nil, &StoreError{Op: "add activity", Err: err}
	}
	return &recorded, nil
}

// record assigns id and timestamp and inserts. Used internally by the task
// and project flows whose audit appends are part of a two-step write; those
// callers classify the returned error themselves.
func (s *ActivityService) record(ctx context.Context, activity models.Activity) (models.Activity, error) {
	activity.ID = uuid.NewString()
	activity.Timestamp = time.Now()
	return activity, s.store.Insert(ctx, models.CollectionActivities, &activity)
}

func validActivityType(t string) bool {
	switch t {
	case models.ActivityTypeCreate, models.ActivityTypeStatus, models.ActivityTypeMessage,
		models.ActivityTypeFile, models.ActivityTypeImage:
		return true
	}
	return false
}

// chunkIDs partitions ids into consecutive batches of at most size elements.
func chunkIDs(ids []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
