package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/k-lamby/taskTEST-sub000/internal/config"
	"github.com/k-lamby/taskTEST-sub000/internal/models"
	"github.com/k-lamby/taskTEST-sub000/internal/store"
)

// captureSender records delivered push tasks, optionally failing some tokens.
type captureSender struct {
	mu        sync.Mutex
	delivered []PushTask
	failToken string
}

func (c *captureSender) send(ctx context.Context, task *PushTask) error {
	if task.Token == c.failToken && c.failToken != "" {
		return errors.New("delivery rejected")
	}
	c.mu.Lock()
	c.delivered = append(c.delivered, *task)
	c.mu.Unlock()
	return nil
}

func (c *captureSender) tokens() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	tokens := make([]string, 0, len(c.delivered))
	for _, task := range c.delivered {
		tokens = append(tokens, task.Token)
	}
	sort.Strings(tokens)
	return tokens
}

func seedProjectMembers(t *testing.T, m *store.Memory, projectID string, users []models.User) {
	t.Helper()
	ctx := context.Background()
	for i, u := range users {
		if err := m.Insert(ctx, models.CollectionUsers, &u); err != nil {
			t.Fatalf("Insert(user) error = %v", err)
		}
		pu := models.ProjectUser{
			ID:        "pu-" + u.ID,
			ProjectID: projectID,
			UserID:    u.ID,
			AddedBy:   "u1",
			AddedAt:   time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
		}
		if err := m.Insert(ctx, models.CollectionProjectUsers, &pu); err != nil {
			t.Fatalf("Insert(project_user) error = %v", err)
		}
	}
}

func TestNotifyProjectMembers(t *testing.T) {
	m := store.NewMemory()
	seedProjectMembers(t, m, "p1", []models.User{
		{ID: "u1", DisplayName: "Sender", PushToken: "tok-1"},
		{ID: "u2", DisplayName: "Member Two", PushToken: "tok-2"},
		{ID: "u3", DisplayName: "No Device"}, // no push token
		{ID: "u4", DisplayName: "Member Four", PushToken: "tok-4"},
	})

	sender := &captureSender{}
	svc := NewNotificationService(m, NewSyncPushQueue(sender.send))

	err := svc.NotifyProjectMembers(context.Background(), "p1", "u1",
		"Task completed", "Sender completed a task", map[string]string{"projectId": "p1"})
	if err != nil {
		t.Fatalf("NotifyProjectMembers() error = %v", err)
	}

	got := sender.tokens()
	want := []string{"tok-2", "tok-4"}
	if len(got) != len(want) {
		t.Fatalf("delivered to %v, expected %v (sender excluded, tokenless skipped)", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delivered to %v, expected %v", got, want)
		}
	}
}

func TestNotifyProjectMembers_OneFailureDoesNotBlockOthers(t *testing.T) {
	m := store.NewMemory()
	seedProjectMembers(t, m, "p1", []models.User{
		{ID: "u2", DisplayName: "Two", PushToken: "tok-2"},
		{ID: "u3", DisplayName: "Three", PushToken: "tok-3"},
		{ID: "u4", DisplayName: "Four", PushToken: "tok-4"},
	})

	sender := &captureSender{failToken: "tok-3"}
	svc := NewNotificationService(m, NewSyncPushQueue(sender.send))

	err := svc.NotifyProjectMembers(context.Background(), "p1", "u1", "t", "b", nil)
	if err != nil {
		t.Fatalf("NotifyProjectMembers() error = %v, per-recipient failures must not surface", err)
	}

	got := sender.tokens()
	if len(got) != 2 || got[0] != "tok-2" || got[1] != "tok-4" {
		t.Errorf("delivered to %v, expected the two healthy recipients", got)
	}
}

func TestNotifyProjectMembers_UsesSubResourceOnly(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	// u9 is in sharedWith but not in project_users; it must not be notified.
	project := models.Project{ID: "p1", Name: "x", CreatedBy: "u1", SharedWith: []string{"u9"}, IsActive: true}
	if err := m.Insert(ctx, models.CollectionProjects, &project); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := m.Insert(ctx, models.CollectionUsers, &models.User{ID: "u9", PushToken: "tok-9"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	seedProjectMembers(t, m, "p1", []models.User{
		{ID: "u2", DisplayName: "Two", PushToken: "tok-2"},
	})

	sender := &captureSender{}
	svc := NewNotificationService(m, NewSyncPushQueue(sender.send))
	if err := svc.NotifyProjectMembers(ctx, "p1", "u1", "t", "b", nil); err != nil {
		t.Fatalf("NotifyProjectMembers() error = %v", err)
	}

	got := sender.tokens()
	if len(got) != 1 || got[0] != "tok-2" {
		t.Errorf("delivered to %v, fan-out must use the project_users view only", got)
	}
}

func TestNotifyProjectMembers_MembershipFailure(t *testing.T) {
	m := store.NewMemory()
	sender := &captureSender{}
	svc := NewNotificationService(&flakyStore{Memory: m, failAfter: 0}, NewSyncPushQueue(sender.send))

	err := svc.NotifyProjectMembers(context.Background(), "p1", "u1", "t", "b", nil)
	if err == nil {
		t.Fatal("a failed membership read must surface")
	}
}

func TestPushClient_Send(t *testing.T) {
	var received pushPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode error = %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewPushClient(&config.PushConfig{Endpoint: srv.URL, TimeoutSeconds: 2})
	err := client.Send(context.Background(), &PushTask{
		Token: "ExponentPushToken[abc]",
		Title: "Task due soon",
		Body:  "\"paint wall\" is due tomorrow",
		Data:  map[string]string{"taskId": "t1"},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if received.To != "ExponentPushToken[abc]" {
		t.Errorf("to = %q", received.To)
	}
	if received.Sound != "default" {
		t.Errorf("sound = %q, expected default", received.Sound)
	}
	if received.Data["taskId"] != "t1" {
		t.Errorf("data = %v", received.Data)
	}
}

func TestPushClient_Send_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "DeviceNotRegistered", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewPushClient(&config.PushConfig{Endpoint: srv.URL, TimeoutSeconds: 2})
	err := client.Send(context.Background(), &PushTask{Token: "tok", Title: "t", Body: "b"})
	if err == nil {
		t.Fatal("Send() should fail on a 4xx response")
	}
}
