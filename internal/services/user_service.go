package services

import (
	"context"
	"fmt"
	"strings"

	"bevera/internal/logger"
	"bevera/internal/models"
	"bevera/internal/repositories"

	"go.uber.org/zap"
)

// UserService manages accounts for administrators and profiles for everyone.
type UserService struct {
	users repositories.UserRepository
	log   *zap.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users repositories.UserRepository, log *zap.Logger) *UserService {
	return &UserService{users: users, log: logger.OrNop(log)}
}

// NewUserInput is an account created by an administrator.
type NewUserInput struct {
	RegisterInput
	Role models.Role `json:"role"`
}

// ProfileInput holds the fields a user may change about themselves.
type ProfileInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// List pages users, optionally searched by q and narrowed to one role. An
// unknown role is a validation error.
func (s *UserService) List(ctx context.Context, filter repositories.UserFilter) (*repositories.Page[models.User], error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, invalid("role", fmt.Sprintf("Unknown role %q.", filter.Role))
	}
	return s.users.List(ctx, filter)
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// Delete removes an account. Administrators cannot delete themselves, and
// accounts with order or stock history are kept.
func (s *UserService) Delete(ctx context.Context, actor Actor, id string) error {
	if actor.UserID == id {
		return fmt.Errorf("cannot delete your own account: %w", ErrForbidden)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("user deleted", zap.String("user_id", id), zap.String("actor", actor.UserID))
	return nil
}

func (s *UserService) Create(ctx context.Context, in NewUserInput) (*models.User, error) {
	if !in.Role.Valid() {
		return nil, invalid("role", fmt.Sprintf("Unknown role %q.", in.Role))
	}
	user, err := newUser(ctx, s.users, in.RegisterInput, in.Role)
	if err != nil {
		return nil, err
	}
	s.log.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// ChangeRole assigns a role. Administrators cannot change their own role so
// the last admin cannot lock everyone out.
func (s *UserService) ChangeRole(ctx context.Context, actor Actor, userID string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, invalid("role", fmt.Sprintf("Unknown role %q.", role))
	}
	if actor.UserID == userID {
		return nil, fmt.Errorf("cannot change your own role: %w", ErrForbidden)
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return nil, err
	}
	s.log.Info("role changed", zap.String("user_id", userID), zap.String("role", string(role)), zap.String("actor", actor.UserID))
	return s.users.GetByID(ctx, userID)
}

func (s *UserService) Profile(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.Phone = strings.TrimSpace(in.Phone)
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
