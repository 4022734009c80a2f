package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/k-lamby/taskTEST-sub000/internal/middleware"
	"github.com/k-lamby/taskTEST-sub000/internal/models"
	"github.com/k-lamby/taskTEST-sub000/internal/services"
	"github.com/k-lamby/taskTEST-sub000/internal/store"
	"github.com/k-lamby/taskTEST-sub000/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// feedRouter wires the activity handler behind a stub auth middleware.
func feedRouter(m *store.Memory, userID, email string) *gin.Engine {
	notifications := services.NewNotificationService(m, services.NewSyncPushQueue(nil))
	h := NewActivityHandler(m, notifications)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextEmail, email)
		c.Set(middleware.ContextDisplayName, "Tester")
		c.Next()
	})
	r.GET("/api/activities", h.Feed)
	r.POST("/api/projects/:id/messages", h.PostMessage)
	return r
}

func seedFeedFixture(t *testing.T, m *store.Memory, projects int) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if err := m.Insert(ctx, models.CollectionUsers, &models.User{ID: "u1", Email: "one@example.com", DisplayName: "User One"}); err != nil {
		t.Fatalf("Insert(user) error = %v", err)
	}

	for i := 0; i < projects; i++ {
		pid := fmt.Sprintf("p%02d", i)
		p := models.Project{ID: pid, Name: "Project " + pid, CreatedBy: "u1", IsActive: true}
		if err := m.Insert(ctx, models.CollectionProjects, &p); err != nil {
			t.Fatalf("Insert(project) error = %v", err)
		}
		a := models.Activity{
			ID:        "act-" + pid,
			ProjectID: pid,
			UserID:    "u1",
			Type:      models.ActivityTypeMessage,
			Content:   "hello from " + pid,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		if err := m.Insert(ctx, models.CollectionActivities, &a); err != nil {
			t.Fatalf("Insert(activity) error = %v", err)
		}
	}
}

func TestFeed(t *testing.T) {
	m := store.NewMemory()
	seedFeedFixture(t, m, 25)
	router := feedRouter(m, "u1", "one@example.com")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/activities?limit=5", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Code int                          `json:"code"`
		Data []services.AnnotatedActivity `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(resp.Data) != 5 {
		t.Fatalf("len = %d, expected the requested limit of 5", len(resp.Data))
	}

	// Newest-first with display names joined in.
	if resp.Data[0].ID != "act-p24" {
		t.Errorf("first = %s, expected the newest activity", resp.Data[0].ID)
	}
	for i, a := range resp.Data {
		if a.UserName != "User One" {
			t.Errorf("data[%d].UserName = %q", i, a.UserName)
		}
		if a.ProjectName == "" || a.ProjectName == services.UnnamedProject {
			t.Errorf("data[%d].ProjectName = %q, expected a joined name", i, a.ProjectName)
		}
	}

	// 25 projects means three batched activity queries.
	if got := m.FindCalls(models.CollectionActivities); got != 3 {
		t.Errorf("activity queries = %d, expected 3", got)
	}
}

func TestFeed_NoProjects(t *testing.T) {
	m := store.NewMemory()
	router := feedRouter(m, "u-nobody", "")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/activities", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, an empty feed is not an error", w.Code)
	}
	if got := m.FindCalls(models.CollectionActivities); got != 0 {
		t.Errorf("activity queries = %d, expected none for a user with no projects", got)
	}
}

func TestFeed_BadLimit(t *testing.T) {
	router := feedRouter(store.NewMemory(), "u1", "")

	for _, limit := range []string{"abc", "0", "-3"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/activities?limit="+limit, nil)
		router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%q: status = %d, expected 400", limit, w.Code)
		}
	}
}

func TestPostMessage(t *testing.T) {
	m := store.NewMemory()
	seedFeedFixture(t, m, 1)
	router := feedRouter(m, "u1", "one@example.com")

	w := httptest.NewRecorder()
	body := `{"content":"how is the wall coming along?"}`
	req, _ := http.NewRequest("POST", "/api/projects/p00/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data models.Activity `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if resp.Data.Type != models.ActivityTypeMessage {
		t.Errorf("type = %q, expected the message default", resp.Data.Type)
	}
	if resp.Data.ID == "" || resp.Data.Timestamp.IsZero() {
		t.Error("the stored activity must carry an id and timestamp")
	}
}

func TestPostMessage_NonMember(t *testing.T) {
	m := store.NewMemory()
	seedFeedFixture(t, m, 1)
	router := feedRouter(m, "u5", "five@example.com")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/projects/p00/messages", strings.NewReader(`{"content":"let me in"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, a non-member post must be refused", w.Code)
	}

	var activities []models.Activity
	if err := m.Find(context.Background(), models.CollectionActivities, store.Query{
		Eq: []store.Eq{{Field: "userId", Value: "u5"}},
	}, &activities); err != nil {
		t.Fatalf("Find(activities) error = %v", err)
	}
	if len(activities) != 0 {
		t.Errorf("activities = %+v, a refused post must write nothing", activities)
	}
}

func TestPostMessage_UnknownProject(t *testing.T) {
	router := feedRouter(store.NewMemory(), "u1", "")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/projects/missing/messages", strings.NewReader(`{"content":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, expected 404", w.Code)
	}
	var resp response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if resp.Code != 404 {
		t.Errorf("code = %d, expected 404", resp.Code)
	}
}
