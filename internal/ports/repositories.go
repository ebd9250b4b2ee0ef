package ports

import (
	"context"

	"github.com/citc/clubhub/internal/domain/entities"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id string) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*entities.User, error)
	Update(ctx context.Context, user *entities.User) error
	List(ctx context.Context) ([]*entities.User, error)
	Count(ctx context.Context) (int64, error)
}

// EventRepository defines the interface for year-partitioned event storage.
// Every event lives in exactly one partition, chosen by the UTC year of its
// start time.
type EventRepository interface {
	// ListYear returns the events of one partition in stored order.
	ListYear(ctx context.Context, year int) ([]*entities.Event, error)
	// List returns every event of every partition, partitions in ascending
	// year order. The result is not sorted chronologically.
	List(ctx context.Context) ([]*entities.Event, error)
	GetByID(ctx context.Context, id string) (*entities.Event, error)
	GetBySlug(ctx context.Context, slug string) (*entities.Event, error)
	Create(ctx context.Context, event *entities.Event) error
	// Update replaces the stored event with the same ID. If the new start
	// time falls in another year the record moves partitions.
	Update(ctx context.Context, event *entities.Event) error
	Delete(ctx context.Context, id string) error
	// RSVP appends userID to the event's attendees. A repeat RSVP returns
	// entities.ErrAlreadyRSVPed and changes nothing.
	RSVP(ctx context.Context, eventID, userID string) (*entities.Event, error)
	Years(ctx context.Context) ([]int, error)
}

// TeamRepository defines the interface for the team directory
type TeamRepository interface {
	ListTeams(ctx context.Context) ([]*entities.Team, error)
	GetTeam(ctx context.Context, id string) (*entities.Team, error)
	CreateTeam(ctx context.Context, team *entities.Team) error
	CountTeams(ctx context.Context) (int64, error)

	ListMembers(ctx context.Context) ([]*entities.Member, error)
	GetMember(ctx context.Context, id string) (*entities.Member, error)
	CreateMember(ctx context.Context, member *entities.Member) error
	UpdateMember(ctx context.Context, member *entities.Member) error
	DeleteMember(ctx context.Context, id string) error

	// Replace swaps the whole directory in one write. Used by seeding.
	Replace(ctx context.Context, teams []entities.Team, members []entities.Member) error
}

// ProjectRepository defines the interface for project data operations
type ProjectRepository interface {
	Create(ctx context.Context, project *entities.Project) error
	GetByID(ctx context.Context, id string) (*entities.Project, error)
	List(ctx context.Context) ([]*entities.Project, error)
}

// Repositories bundles the repositories of one backend.
type Repositories struct {
	Users    UserRepository
	Events   EventRepository
	Teams    TeamRepository
	Projects ProjectRepository
}
