package services

import "github.com/k-lamby/taskTEST-sub000/internal/models"

// Display placeholders substituted when a referenced entity is missing from
// a lookup table. Lookup tables are built by best-effort batched fetches and
// may be incomplete under partial failure; enrichment degrades to these
// rather than failing.
const (
	UnnamedProject = "Unnamed Project"
	UnnamedTask    = "Unnamed Task"
	UnknownUser    = "Unknown"
)

// AnnotatedActivity is an activity plus the human-readable context a feed
// screen renders. The underlying record is copied, never mutated.
type AnnotatedActivity struct {
	models.Activity
	ProjectName string `json:"projectName"`
	TaskName    string `json:"taskName,omitempty"`
	UserName    string `json:"userName"`
}

// AnnotatedTask is a task plus its project's display name.
type AnnotatedTask struct {
	models.Task
	ProjectName string `json:"projectName"`
}

// AnnotatedMember pairs a member identifier with a display name.
type AnnotatedMember struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// AnnotateActivities attaches project, task and user display names from the
// supplied lookup tables. Pure: it issues no queries and leaves its inputs
// untouched. TaskName is only filled for task-scoped activities.
func AnnotateActivities(activities []models.Activity, projectNames, taskNames, userNames map[string]string) []AnnotatedActivity {
	annotated := make([]AnnotatedActivity, 0, len(activities))
	for _, a := range activities {
		item := AnnotatedActivity{
			Activity:    a,
			ProjectName: nameOr(projectNames, a.ProjectID, UnnamedProject),
			UserName:    nameOr(userNames, a.UserID, UnknownUser),
		}
		if a.TaskID != "" {
			item.TaskName = nameOr(taskNames, a.TaskID, UnnamedTask)
		}
		annotated = append(annotated, item)
	}
	return annotated
}

// AnnotateTasks attaches project display names from the supplied lookup table.
func AnnotateTasks(tasks []models.Task, projectNames map[string]string) []AnnotatedTask {
	annotated := make([]AnnotatedTask, 0, len(tasks))
	for _, t := range tasks {
		annotated = append(annotated, AnnotatedTask{
			Task:        t,
			ProjectName: nameOr(projectNames, t.ProjectID, UnnamedProject),
		})
	}
	return annotated
}

// AnnotateMembers attaches display names to member ids. Members whose id is
// an unresolved email placeholder fall back to the id itself rather than
// "Unknown": the email is more useful on screen than a blank.
func AnnotateMembers(memberIDs []string, userNames map[string]string) []AnnotatedMember {
	annotated := make([]AnnotatedMember, 0, len(memberIDs))
	for _, id := range memberIDs {
		name, ok := userNames[id]
		if !ok {
			if isEmail(id) {
				name = id
			} else {
				name = UnknownUser
			}
		}
		annotated = append(annotated, AnnotatedMember{UserID: id, DisplayName: name})
	}
	return annotated
}

func nameOr(names map[string]string, key, fallback string) string {
	if name, ok := names[key]; ok && name != "" {
		return name
	}
	return fallback
}
