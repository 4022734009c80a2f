package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/k-lamby/taskTEST-sub000/internal/config"
	"github.com/k-lamby/taskTEST-sub000/internal/models"
	"github.com/k-lamby/taskTEST-sub000/internal/store"
	"github.com/k-lamby/taskTEST-sub000/pkg/logger"
)

// NotificationService fans a message out to a project's members. Membership
// comes from the project_users sub-resource, never from the project
// document's sharedWith field: the two views are maintained independently.
type NotificationService struct {
	store      store.Client
	membership *MembershipService
	queue      PushQueue
}

func NewNotificationService(st store.Client, queue PushQueue) *NotificationService {
	return &NotificationService{
		store:      st,
		membership: NewMembershipService(st),
		queue:      queue,
	}
}

// NotifyProjectMembers resolves the project's members, drops the sender,
// and dispatches the message to every remaining member with a registered
// push token. Dispatch is fire-and-forget per recipient: a recipient whose
// token lookup or enqueue fails is logged and skipped, and the call itself
// only fails when the membership read does.
func (s *NotificationService) NotifyProjectMembers(ctx context.Context, projectID, senderID, title, body string, data map[string]string) error {
	if projectID == "" {
		return required("project id")
	}

	members, err := s.membership.ProjectUsers(ctx, projectID)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, member := range members {
		if member.UserID == senderID {
			continue
		}

		wg.Add(1)
		go func(userID string) {
			defer wg.Done()

			var user models.User
			if err := s.store.Get(ctx, models.CollectionUsers, userID, &user); err != nil {
				logger.Warn().Err(err).Str("user_id", userID).Msg("push recipient lookup failed")
				return
			}
			if user.PushToken == "" {
				return
			}

			err := s.queue.Enqueue(&PushTask{
				Token: user.PushToken,
				Title: title,
				Body:  body,
				Data:  data,
			})
			if err != nil {
				logger.Warn().Err(err).Str("user_id", userID).Msg("push dispatch failed")
			}
		}(member.UserID)
	}
	wg.Wait()

	return nil
}

// PushClient posts one message per recipient to the delivery endpoint.
// Delivery is accepted-on-2xx; no receipt is awaited beyond the HTTP
// response.
type PushClient struct {
	endpoint string
	client   *http.Client
}

func NewPushClient(cfg *config.PushConfig) *PushClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PushClient{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type pushPayload struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Sound string            `json:"sound"`
}

// Send delivers a single push message.
func (c *PushClient) Send(ctx context.Context, task *PushTask) error {
	payload, err := json.Marshal(pushPayload{
		To:    task.Token,
		Title: task.Title,
		Body:  task.Body,
		Data:  task.Data,
		Sound: "default",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("push endpoint returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
