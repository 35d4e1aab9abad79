package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"redirect-manager/internal/model"
)

type userAdminStore interface {
	userStore
	Create(ctx context.Context, u model.User) error
	UpdateRole(ctx context.Context, userID string, role string) error
	UpdatePassword(ctx context.Context, userID string, passwordHash string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.User, error)
}

type sessionRevoker interface {
	DeleteAllForUser(ctx context.Context, userID string) error
}

type UserService struct {
	users    userAdminStore
	sessions sessionRevoker

	bcryptCost int
}

func NewUserService(users userAdminStore, sessions sessionRevoker, bcryptCost int) *UserService {
	return &UserService{users: users, sessions: sessions, bcryptCost: bcryptCost}
}

func (s *UserService) Create(ctx context.Context, req model.CreateUserRequest) (model.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return model.User{}, fmt.Errorf("%w: username and password are required", model.ErrInvalidInput)
	}

	role := req.Role
	if role == "" {
		role = model.RoleUser
	}
	if !model.ValidRole(role) {
		return model.User{}, fmt.Errorf("%w: invalid role %q", model.ErrInvalidInput, req.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (model.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

// UpdateRole refuses self-demotion; an admin cannot change their own
// role and lock the instance out of administration.
func (s *UserService) UpdateRole(ctx context.Context, caller model.User, userID string, role string) (model.User, error) {
	if !model.ValidRole(role) {
		return model.User{}, fmt.Errorf("%w: invalid role %q", model.ErrInvalidInput, role)
	}
	if caller.ID == userID {
		return model.User{}, fmt.Errorf("%w: cannot change your own role", model.ErrForbidden)
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return model.User{}, err
	}
	return s.users.FindByID(ctx, userID)
}

// ChangePassword re-verifies the current password before replacing it,
// then closes every open session so stolen refresh tokens die with the
// old password.
func (s *UserService) ChangePassword(ctx context.Context, userID string, current string, next string) error {
	if next == "" {
		return fmt.Errorf("%w: new password is required", model.ErrInvalidInput)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return model.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}

	return s.sessions.DeleteAllForUser(ctx, userID)
}

// Delete removes a user. Self-deletion is refused so an admin cannot
// lock themselves out mid-session.
func (s *UserService) Delete(ctx context.Context, caller model.User, userID string) error {
	if caller.ID == userID {
		return fmt.Errorf("%w: cannot delete your own account", model.ErrForbidden)
	}
	return s.users.Delete(ctx, userID)
}
