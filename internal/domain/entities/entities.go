package entities

import (
	"errors"
	"fmt"
	"time"

	"github.com/gosimple/slug"
)

// Common errors
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrValidation    = errors.New("validation failed")
	ErrCorruptData   = errors.New("corrupt data")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyRSVPed = fmt.Errorf("%w: already RSVPed", ErrConflict)

	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrEventNotFound   = fmt.Errorf("event %w", ErrNotFound)
	ErrMemberNotFound  = fmt.Errorf("team member %w", ErrNotFound)
	ErrTeamNotFound    = fmt.Errorf("team %w", ErrNotFound)
	ErrProjectNotFound = fmt.Errorf("project %w", ErrNotFound)
	ErrEmailTaken      = fmt.Errorf("%w: user already exists", ErrConflict)
)

// Enums and types
type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleMentor UserRole = "mentor"
	UserRoleMember UserRole = "member"
	UserRoleGuest  UserRole = "guest"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleMentor, UserRoleMember, UserRoleGuest:
		return true
	}
	return false
}

type EventType string

const (
	EventTypeWorkshop        EventType = "workshop"
	EventTypeHackathon       EventType = "hackathon"
	EventTypeTechTalk        EventType = "tech-talk"
	EventTypeCodingChallenge EventType = "coding-challenge"
)

func (t EventType) Valid() bool {
	switch t {
	case EventTypeWorkshop, EventTypeHackathon, EventTypeTechTalk, EventTypeCodingChallenge:
		return true
	}
	return false
}

type MemberType string

const (
	MemberTypeRegular        MemberType = "Regular"
	MemberTypeFacultyAdvisor MemberType = "Faculty Advisor"
)

// User represents a registered account
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"passwordHash" bson:"password_hash"`
	RollNo       string    `json:"rollNo,omitempty" bson:"roll_no,omitempty"`
	Semester     string    `json:"semester,omitempty" bson:"semester,omitempty"`
	Role         UserRole  `json:"role" bson:"role"`
	IsVerified   bool      `json:"isVerified" bson:"is_verified"`
	AvatarURL    string    `json:"avatarUrl,omitempty" bson:"avatar_url,omitempty"`
	GoogleID     string    `json:"googleId,omitempty" bson:"google_id,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}

// Public returns a copy of the user that is safe to hand to clients.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		RollNo:     u.RollNo,
		Semester:   u.Semester,
		Role:       u.Role,
		IsVerified: u.IsVerified,
		AvatarURL:  u.AvatarURL,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// HasPassword is false for accounts created through Google sign-in.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// PublicUser is a User without credentials
type PublicUser struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	RollNo     string    `json:"rollNo,omitempty"`
	Semester   string    `json:"semester,omitempty"`
	Role       UserRole  `json:"role"`
	IsVerified bool      `json:"isVerified"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// UserRef is the rendered form of a user foreign key.
type UserRef struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Event is a club event. It lives in exactly one year partition.
type Event struct {
	ID          string    `json:"id" bson:"_id"`
	Title       string    `json:"title" bson:"title"`
	Slug        string    `json:"slug" bson:"slug"`
	Description string    `json:"description" bson:"description"`
	Type        EventType `json:"type,omitempty" bson:"type,omitempty"`
	StartAt     time.Time `json:"startAt" bson:"start_at"`
	EndAt       time.Time `json:"endAt" bson:"end_at"`
	Location    string    `json:"location" bson:"location"`
	Capacity    int       `json:"capacity" bson:"capacity"`
	Image       string    `json:"image,omitempty" bson:"image,omitempty"`
	CoverImage  string    `json:"coverImage,omitempty" bson:"cover_image,omitempty"`
	Gallery     []string  `json:"gallery,omitempty" bson:"gallery,omitempty"`
	Tags        []string  `json:"tags" bson:"tags"`
	Organizer   string    `json:"organizer,omitempty" bson:"organizer,omitempty"`
	Attachments []string  `json:"attachments" bson:"attachments"`
	Attendees   []string  `json:"attendees" bson:"attendees"`
	CreatedBy   string    `json:"createdBy" bson:"created_by"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

// Year is the partition key of the event.
func (e *Event) Year() int {
	return PartitionYear(e.StartAt)
}

// HasAttendee reports whether userID already RSVPed.
func (e *Event) HasAttendee(userID string) bool {
	for _, id := range e.Attendees {
		if id == userID {
			return true
		}
	}
	return false
}

// Normalize replaces nil slices so they serialize as empty arrays.
func (e *Event) Normalize() {
	if e.Tags == nil {
		e.Tags = []string{}
	}
	if e.Attachments == nil {
		e.Attachments = []string{}
	}
	if e.Attendees == nil {
		e.Attendees = []string{}
	}
}

// Event timestamps must fall within these UTC years to be stored.
const (
	MinEventYear = 0
	MaxEventYear = 9999
)

// InEventRange reports whether t can be stored on an event.
func InEventRange(t time.Time) bool {
	y := t.UTC().Year()
	return y >= MinEventYear && y <= MaxEventYear
}

// PartitionYear returns the calendar year (UTC) used to partition events.
func PartitionYear(t time.Time) int {
	return t.UTC().Year()
}

// EventDetail is an event with its creator resolved.
type EventDetail struct {
	Event
	CreatedBy *UserRef `json:"createdBy"`
}

// Team groups members for a given year
type Team struct {
	ID   string `json:"id" bson:"_id"`
	Name string `json:"name" bson:"name"`
	Year int    `json:"year" bson:"year"`
}

// Socials holds a member's public profile links
type Socials struct {
	GitHub    string `json:"github,omitempty" bson:"github,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty" bson:"linkedin,omitempty"`
	Instagram string `json:"instagram,omitempty" bson:"instagram,omitempty"`
	Twitter   string `json:"twitter,omitempty" bson:"twitter,omitempty"`
}

// Member is an entry in the team directory. TeamID may reference a team that
// no longer exists.
type Member struct {
	ID         string     `json:"id" bson:"_id"`
	Name       string     `json:"name" bson:"name"`
	Email      string     `json:"email,omitempty" bson:"email,omitempty"`
	Role       string     `json:"role,omitempty" bson:"role,omitempty"`
	Type       MemberType `json:"type" bson:"type"`
	TeamID     string     `json:"teamId,omitempty" bson:"team_id,omitempty"`
	Year       int        `json:"year,omitempty" bson:"year,omitempty"`
	MemberYear int        `json:"member_year,omitempty" bson:"member_year,omitempty"`
	Semester   string     `json:"semester,omitempty" bson:"semester,omitempty"`
	Title      string     `json:"title,omitempty" bson:"title,omitempty"`
	Department string     `json:"department,omitempty" bson:"department,omitempty"`
	Photo      string     `json:"photo" bson:"photo"`
	Socials    Socials    `json:"socials" bson:"socials"`
	Order      int        `json:"order" bson:"order"`
	IsActive   bool       `json:"isActive" bson:"is_active"`
	CreatedBy  string     `json:"createdBy,omitempty" bson:"created_by,omitempty"`
	CreatedAt  time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt  time.Time  `json:"updatedAt" bson:"updated_at"`
}

// UnknownTeam is rendered for members whose team reference does not resolve.
const UnknownTeam = "unknown"

// MemberView is a member with its team name resolved.
type MemberView struct {
	Member
	TeamName string `json:"teamName"`
}

// Project is a showcased club project
type Project struct {
	ID           string    `json:"id" bson:"_id"`
	Title        string    `json:"title" bson:"title"`
	ShortDesc    string    `json:"shortDesc" bson:"short_desc"`
	LongDesc     string    `json:"longDesc" bson:"long_desc"`
	Images       []string  `json:"images" bson:"images"`
	Contributors []string  `json:"contributors" bson:"contributors"`
	RepoURL      string    `json:"repoUrl,omitempty" bson:"repo_url,omitempty"`
	Tags         []string  `json:"tags" bson:"tags"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}

// ProjectView is a project with contributors resolved.
type ProjectView struct {
	Project
	Contributors []UserRef `json:"contributors"`
}

// Slugify turns a title into a URL-safe identifier. Non-ASCII letters are
// transliterated.
func Slugify(s string) string {
	return slug.Make(s)
}
