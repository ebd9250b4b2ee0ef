package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/citc/clubhub/internal/domain/entities"
	"github.com/citc/clubhub/internal/infrastructure/database"
	"github.com/citc/clubhub/internal/ports"
)

// UserRepositoryImpl implements the UserRepository interface over users.json
type UserRepositoryImpl struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) ports.UserRepository {
	return &UserRepositoryImpl{db: db}
}

// Create inserts the user. The email uniqueness check runs under the file
// lock, so two concurrent registrations cannot both succeed.
func (r *UserRepositoryImpl) Create(ctx context.Context, user *entities.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	err := r.db.UpdateUsers(ctx, func(doc *database.UsersDoc) error {
		for i := range doc.Users {
			if strings.EqualFold(doc.Users[i].Email, user.Email) {
				return entities.ErrEmailTaken
			}
		}
		doc.Users = append(doc.Users, *user)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepositoryImpl) GetByID(ctx context.Context, id string) (*entities.User, error) {
	return r.findOne(ctx, func(u *entities.User) bool { return u.ID == id })
}

func (r *UserRepositoryImpl) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.findOne(ctx, func(u *entities.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *UserRepositoryImpl) GetByGoogleID(ctx context.Context, googleID string) (*entities.User, error) {
	if googleID == "" {
		return nil, entities.ErrUserNotFound
	}
	return r.findOne(ctx, func(u *entities.User) bool { return u.GoogleID == googleID })
}

func (r *UserRepositoryImpl) Update(ctx context.Context, user *entities.User) error {
	user.UpdatedAt = time.Now().UTC()

	err := r.db.UpdateUsers(ctx, func(doc *database.UsersDoc) error {
		for i := range doc.Users {
			if doc.Users[i].ID == user.ID {
				doc.Users[i] = *user
				return nil
			}
		}
		return entities.ErrUserNotFound
	})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *UserRepositoryImpl) List(ctx context.Context) ([]*entities.User, error) {
	h, err := r.db.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]*entities.User, len(h.Data.Users))
	for i := range h.Data.Users {
		u := h.Data.Users[i]
		users[i] = &u
	}
	return users, nil
}

func (r *UserRepositoryImpl) Count(ctx context.Context) (int64, error) {
	h, err := r.db.Users(ctx)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return int64(len(h.Data.Users)), nil
}

func (r *UserRepositoryImpl) findOne(ctx context.Context, match func(*entities.User) bool) (*entities.User, error) {
	h, err := r.db.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	for i := range h.Data.Users {
		if match(&h.Data.Users[i]) {
			u := h.Data.Users[i]
			return &u, nil
		}
	}
	return nil, entities.ErrUserNotFound
}
