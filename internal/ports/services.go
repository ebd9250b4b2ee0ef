package ports

import (
	"context"
	"time"

	"github.com/citc/clubhub/internal/domain/entities"
)

// AuthService interface for authentication operations
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	// GoogleLogin signs in with a Google access token. created reports
	// whether a new account was made.
	GoogleLogin(ctx context.Context, req GoogleLoginRequest) (resp *AuthResponse, created bool, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

// UserService interface for user management operations
type UserService interface {
	GetUser(ctx context.Context, id string) (*entities.PublicUser, error)
	UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*entities.PublicUser, error)
	ListUsers(ctx context.Context) ([]entities.PublicUser, error)
	SetRole(ctx context.Context, id string, role entities.UserRole) (*entities.PublicUser, error)
}

// EventService interface for event operations
type EventService interface {
	ListEvents(ctx context.Context) ([]*entities.Event, error)
	ListEventsForYear(ctx context.Context, year int) ([]*entities.Event, error)
	Years(ctx context.Context) ([]int, error)
	GetEvent(ctx context.Context, slug string) (*entities.EventDetail, error)
	CreateEvent(ctx context.Context, userID string, req CreateEventRequest) (*entities.Event, error)
	UpdateEvent(ctx context.Context, id string, req UpdateEventRequest) (*entities.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	RSVP(ctx context.Context, eventID, userID string) (*entities.Event, error)
}

// TeamService interface for the team directory
type TeamService interface {
	Directory(ctx context.Context) (*Directory, error)
	Grouped(ctx context.Context) ([]TeamGroup, error)
	ListTeams(ctx context.Context) ([]*entities.Team, error)
	CreateTeam(ctx context.Context, req CreateTeamRequest) (*entities.Team, error)
	GetMember(ctx context.Context, id string) (*entities.MemberView, error)
	CreateMember(ctx context.Context, userID string, req CreateMemberRequest) (*entities.Member, error)
	UpdateMember(ctx context.Context, id string, req UpdateMemberRequest) (*entities.Member, error)
	DeleteMember(ctx context.Context, id string) error
}

// ProjectService interface for project showcase operations
type ProjectService interface {
	ListProjects(ctx context.Context) ([]entities.ProjectView, error)
	GetProject(ctx context.Context, id string) (*entities.ProjectView, error)
	CreateProject(ctx context.Context, userID string, req CreateProjectRequest) (*entities.Project, error)
}

// Request/Response Types

// Auth related types
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	RollNo   string `json:"rollNo" validate:"omitempty,max=50"`
	Semester string `json:"semester" validate:"omitempty,max=20"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type GoogleLoginRequest struct {
	AccessToken string `json:"token" validate:"required"`
}

// AuthResponse carries the account summary and a bearer token. The id is
// repeated under _id for clients written against the document backend.
type AuthResponse struct {
	LegacyID string            `json:"_id"`
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Email    string            `json:"email"`
	Role     entities.UserRole `json:"role"`
	Avatar   string            `json:"avatarUrl,omitempty"`
	Token    string            `json:"token"`
}

type Claims struct {
	UserID string            `json:"user_id"`
	Email  string            `json:"email"`
	Role   entities.UserRole `json:"role"`
}

// User related types
type UpdateProfileRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=100"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,max=500"`
	RollNo    *string `json:"rollNo" validate:"omitempty,max=50"`
	Semester  *string `json:"semester" validate:"omitempty,max=20"`
}

type SetRoleRequest struct {
	Role entities.UserRole `json:"role" validate:"required,oneof=admin mentor member guest"`
}

// Event related types
type CreateEventRequest struct {
	Title       string             `json:"title" validate:"required,max=200"`
	Slug        string             `json:"slug" validate:"omitempty,max=200"`
	Description string             `json:"description" validate:"required"`
	Type        entities.EventType `json:"type" validate:"omitempty,oneof=workshop hackathon tech-talk coding-challenge"`
	StartAt     time.Time          `json:"startAt" validate:"required"`
	EndAt       time.Time          `json:"endAt" validate:"required"`
	Location    string             `json:"location" validate:"required"`
	Capacity    int                `json:"capacity" validate:"omitempty,min=0"`
	Image       string             `json:"image"`
	CoverImage  string             `json:"coverImage"`
	Gallery     []string           `json:"gallery"`
	Tags        []string           `json:"tags"`
	Organizer   string             `json:"organizer"`
	Attachments []string           `json:"attachments"`
}

type UpdateEventRequest struct {
	Title       *string             `json:"title" validate:"omitempty,min=1,max=200"`
	Slug        *string             `json:"slug" validate:"omitempty,min=1,max=200"`
	Description *string             `json:"description"`
	Type        *entities.EventType `json:"type" validate:"omitempty,oneof=workshop hackathon tech-talk coding-challenge"`
	StartAt     *time.Time          `json:"startAt"`
	EndAt       *time.Time          `json:"endAt"`
	Location    *string             `json:"location"`
	Capacity    *int                `json:"capacity" validate:"omitempty,min=0"`
	Image       *string             `json:"image"`
	CoverImage  *string             `json:"coverImage"`
	Gallery     []string            `json:"gallery"`
	Tags        []string            `json:"tags"`
	Organizer   *string             `json:"organizer"`
	Attachments []string            `json:"attachments"`
}

// Team related types
type CreateTeamRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Year int    `json:"year" validate:"required,min=2000,max=2100"`
}

type CreateMemberRequest struct {
	Name       string              `json:"name" validate:"required,max=100"`
	Role       string              `json:"role" validate:"required,max=100"`
	Email      string              `json:"email" validate:"omitempty,email"`
	Type       entities.MemberType `json:"type" validate:"omitempty,oneof=Regular 'Faculty Advisor'"`
	TeamID     string              `json:"teamId"`
	Year       int                 `json:"year" validate:"omitempty,min=1,max=4"`
	MemberYear int                 `json:"member_year" validate:"omitempty,min=2000,max=2100"`
	Semester   string              `json:"semester"`
	Title      string              `json:"title"`
	Department string              `json:"department"`
	Photo      string              `json:"photo"`
	Socials    entities.Socials    `json:"socials"`
	Order      int                 `json:"order"`
	IsActive   *bool               `json:"isActive"`
}

type UpdateMemberRequest struct {
	Name       *string             `json:"name" validate:"omitempty,min=1,max=100"`
	Role       *string             `json:"role" validate:"omitempty,min=1,max=100"`
	Email      *string             `json:"email" validate:"omitempty,email"`
	TeamID     *string             `json:"teamId"`
	Year       *int                `json:"year" validate:"omitempty,min=1,max=4"`
	MemberYear *int                `json:"member_year" validate:"omitempty,min=2000,max=2100"`
	Semester   *string             `json:"semester"`
	Title      *string             `json:"title"`
	Department *string             `json:"department"`
	Photo      *string             `json:"photo"`
	Socials    *entities.Socials   `json:"socials"`
	Order      *int                `json:"order"`
	IsActive   *bool               `json:"isActive"`
}

// Directory is the full team listing
type Directory struct {
	Teams   []*entities.Team      `json:"teams"`
	Members []entities.MemberView `json:"members"`
}

// TeamGroup is one team and its active members
type TeamGroup struct {
	Team    entities.Team         `json:"team"`
	Members []entities.MemberView `json:"members"`
}

// Project related types
type CreateProjectRequest struct {
	Title        string   `json:"title" validate:"required,max=200"`
	ShortDesc    string   `json:"shortDesc" validate:"required,max=500"`
	LongDesc     string   `json:"longDesc"`
	Images       []string `json:"images"`
	Contributors []string `json:"contributors"`
	RepoURL      string   `json:"repoUrl" validate:"omitempty,url"`
	Tags         []string `json:"tags"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
