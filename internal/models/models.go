package models

import "time"

// Collection names in the document store.
const (
	CollectionUsers        = "users"
	CollectionProjects     = "projects"
	CollectionTasks        = "tasks"
	CollectionActivities   = "activities"
	CollectionProjectUsers = "project_users"
)

// Task status values. Two states, both reachable from the other.
const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// Task priority values.
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

// Activity types.
const (
	ActivityTypeCreate  = "create"
	ActivityTypeStatus  = "status"
	ActivityTypeMessage = "message"
	ActivityTypeFile    = "file"
	ActivityTypeImage   = "image"
)

// User represents an account holder.
type User struct {
	ID          string    `bson:"_id" json:"id"`
	Email       string    `bson:"email" json:"email"`
	DisplayName string    `bson:"displayName" json:"displayName"`
	Password    string    `bson:"password" json:"-"` // bcrypt hash
	PushToken   string    `bson:"pushToken" json:"pushToken,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

// Project represents a shared container of tasks. A project is never
// hard-deleted: archiving sets IsActive=false and DeletedAt, and every
// active-project query filters on IsActive.
type Project struct {
	ID          string     `bson:"_id" json:"id"`
	Name        string     `bson:"name" json:"name"`
	Description string     `bson:"description" json:"description"`
	CreatedBy   string     `bson:"createdBy" json:"createdBy"`
	SharedWith  []string   `bson:"sharedWith" json:"sharedWith"` // user ids or not-yet-registered emails
	DueDate     time.Time  `bson:"dueDate" json:"dueDate"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	IsActive    bool       `bson:"isActive" json:"isActive"`
	DeletedAt   *time.Time `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
}

// Task belongs to exactly one project. CompletedAt is non-nil iff
// Status is completed.
type Task struct {
	ID          string     `bson:"_id" json:"id"`
	Name        string     `bson:"name" json:"name"`
	Description string     `bson:"description" json:"description"`
	ProjectID   string     `bson:"projectId" json:"projectId"`
	Owner       string     `bson:"owner" json:"owner"`
	Status      string     `bson:"status" json:"status"`     // pending, completed
	Priority    string     `bson:"priority" json:"priority"` // low, medium, high
	DueDate     time.Time  `bson:"dueDate" json:"dueDate"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	CompletedAt *time.Time `bson:"completedAt" json:"completedAt"`
}

// Activity is an immutable audit record. It is appended once and never
// updated. TaskID is empty for project-level activities.
type Activity struct {
	ID        string    `bson:"_id" json:"id"`
	ProjectID string    `bson:"projectId" json:"projectId"`
	TaskID    string    `bson:"taskId,omitempty" json:"taskId,omitempty"`
	UserID    string    `bson:"userId" json:"userId"`
	Type      string    `bson:"type" json:"type"` // create, status, message, file, image
	Content   string    `bson:"content" json:"content"`
	FileURL   string    `bson:"fileUrl,omitempty" json:"fileUrl,omitempty"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// ProjectUser is the per-project membership sub-resource. It is maintained
// independently of Project.SharedWith; the two views are reconciled by
// application flows, not by the store.
type ProjectUser struct {
	ID        string    `bson:"_id" json:"id"`
	ProjectID string    `bson:"projectId" json:"projectId"`
	UserID    string    `bson:"userId" json:"userId"`
	AddedBy   string    `bson:"addedBy" json:"addedBy"`
	AddedAt   time.Time `bson:"addedAt" json:"addedAt"`
}
