package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/k-lamby/taskTEST-sub000/internal/config"
	"github.com/k-lamby/taskTEST-sub000/internal/models"
	"github.com/k-lamby/taskTEST-sub000/internal/store"
	"github.com/k-lamby/taskTEST-sub000/internal/utils"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type AuthService struct {
	store     store.Client
	jwtConfig *config.JWTConfig
}

func NewAuthService(st store.Client, jwtCfg *config.JWTConfig) *AuthService {
	return &AuthService{store: st, jwtConfig: jwtCfg}
}

type RegisterRequest struct {
	Email       string `json:"email" binding:"required"`
	DisplayName string `json:"displayName" binding:"required"`
	Password    string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token    string       `json:"token"`
	User     *models.User `json:"user"`
	ExpireAt time.Time    `json:"expireAt"`
}

// Register creates a new account. Emails are stored lower-cased so that the
// shared-project email matching and login lookups are case-insensitive.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, &ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if req.DisplayName == "" {
		return nil, required("display name")
	}
	if len(req.Password) < 6 {
		return nil, &ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	}

	existing, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &ValidationError{Field: "email", Reason: "already registered"}
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: req.DisplayName,
		Password:    hash,
		CreatedAt:   time.Now(),
	}
	if err := s.store.Insert(ctx, models.CollectionUsers, &user); err != nil {
		return nil, &StoreError{Op: "register", Err: err}
	}
	return &user, nil
}

// Login authenticates a user and returns a JWT token
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !utils.CheckPassword(req.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := utils.GenerateToken(user.ID, user.Email, user.DisplayName, s.jwtConfig.ExpireHour)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		Token:    token,
		User:     user,
		ExpireAt: time.Now().Add(time.Duration(s.jwtConfig.ExpireHour) * time.Hour),
	}, nil
}

// GetUserByID retrieves a user by ID
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.store.Get(ctx, models.CollectionUsers, id, &user); err != nil {
		if err == store.ErrNotFound {
			return nil, err
		}
		return nil, &StoreError{Op: "get user", Err: err}
	}
	return &user, nil
}

// UpdatePushToken records (or clears) the device push token for a user.
func (s *AuthService) UpdatePushToken(ctx context.Context, userID, token string) error {
	if userID == "" {
		return required("user id")
	}
	err := s.store.Update(ctx, models.CollectionUsers, userID, map[string]interface{}{
		"pushToken": token,
	})
	if err != nil {
		if err == store.ErrNotFound {
			return err
		}
		return &StoreError{Op: "update push token", Err: err}
	}
	return nil
}

func (s *AuthService) findByEmail(ctx context.Context, email string) (*models.User, error) {
	var users []models.User
	err := s.store.Find(ctx, models.CollectionUsers, store.Query{
		Eq:    []store.Eq{{Field: "email", Value: email}},
		Limit: 1,
	}, &users)
	if err != nil {
		return nil, &StoreError{Op: "find user", Err: err}
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}
