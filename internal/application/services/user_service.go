package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/citc/clubhub/internal/domain/entities"
	"github.com/citc/clubhub/internal/infrastructure/logger"
	"github.com/citc/clubhub/internal/ports"
)

// UserService handles user-related operations
type UserService struct {
	userRepo ports.UserRepository
	logger   *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo ports.UserRepository, logger *logger.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// GetUser retrieves a user by ID without credentials
func (s *UserService) GetUser(ctx context.Context, id string) (*entities.PublicUser, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	pub := user.Public()
	return &pub, nil
}

// UpdateProfile applies the fields present in req to the user's profile
func (s *UserService) UpdateProfile(ctx context.Context, id string, req ports.UpdateProfileRequest) (*entities.PublicUser, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", entities.ErrValidation)
		}
		user.Name = name
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}
	if req.RollNo != nil {
		user.RollNo = *req.RollNo
	}
	if req.Semester != nil {
		user.Semester = *req.Semester
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.LogUserAction(id, "update_profile", nil)

	pub := user.Public()
	return &pub, nil
}

// ListUsers returns every account without credentials
func (s *UserService) ListUsers(ctx context.Context) ([]entities.PublicUser, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]entities.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// SetRole changes a user's role
func (s *UserService) SetRole(ctx context.Context, id string, role entities.UserRole) (*entities.PublicUser, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", entities.ErrValidation, role)
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := user.Role
	user.Role = role
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	s.logger.LogUserAction(id, "role_changed", map[string]interface{}{
		"from": previous,
		"to":   role,
	})

	pub := user.Public()
	return &pub, nil
}
