// Package seed populates empty collections from a bundled snapshot and
// migrates the legacy single-file event store into year partitions.
package seed

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/citc/clubhub/internal/domain/entities"
	"github.com/citc/clubhub/internal/infrastructure/logger"
	"github.com/citc/clubhub/internal/ports"
)

//go:embed data/*.json
var snapshot embed.FS

const (
	teamsSnapshot  = "teams.json"
	eventsSnapshot = "events.json"

	MentorsTeamID = "t_mentors_2025"
	ExecTeamID    = "t_exec_2025"
	FacultyTeamID = "t_faculty"

	FacultyAdvisorID = "fa1"

	seedYear = 2025
)

// placeholders are snapshot values that mean "not provided".
var placeholders = map[string]bool{
	"N/A":                true,
	"Iksha Gurung insta": true,
}

// InitialTeams are created together with the first member seed.
func InitialTeams() []entities.Team {
	return []entities.Team{
		{ID: MentorsTeamID, Name: "Mentors", Year: seedYear},
		{ID: ExecTeamID, Name: "Executive Committee", Year: seedYear},
		{ID: FacultyTeamID, Name: "Faculty Advisors", Year: seedYear},
	}
}

type rawMember struct {
	Name       string `json:"name"`
	Role       string `json:"role"`
	Title      string `json:"title"`
	Year       int    `json:"year"`
	Department string `json:"department"`
	Email      string `json:"email"`
	Image      string `json:"image"`
	MemberYear int    `json:"member_year"`
	GitHub     string `json:"github"`
	LinkedIn   string `json:"linkedin"`
	Instagram  string `json:"instagram"`
	Twitter    string `json:"twitter"`
}

type rawTeams struct {
	TeamMembers    []rawMember `json:"teamMembers"`
	FacultyAdvisor *rawMember  `json:"facultyAdvisor"`
}

type rawEvent struct {
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	StartAt     time.Time `json:"startAt"`
	EndAt       time.Time `json:"endAt"`
	Location    string    `json:"location"`
	Capacity    int       `json:"capacity"`
	CoverImage  string    `json:"coverImage"`
	Gallery     []string  `json:"gallery"`
	Tags        []string  `json:"tags"`
	Organizer   string    `json:"organizer"`
}

// Result reports what a seeding run inserted.
type Result struct {
	Teams   int
	Members int
	Events  int
}

// Seeder fills empty collections from the snapshot. A collection that already
// holds records is never touched.
type Seeder struct {
	repos  ports.Repositories
	dir    string
	logger *logger.Logger
}

// New creates a seeder. When dir is non-empty, snapshot files found there
// replace the embedded ones.
func New(repos ports.Repositories, dir string, log *logger.Logger) *Seeder {
	if log == nil {
		log = logger.NewNop()
	}
	return &Seeder{
		repos:  repos,
		dir:    dir,
		logger: log.WithComponent("seed"),
	}
}

// Run seeds the team directory and the events.
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	var res Result

	teams, members, err := s.seedTeams(ctx)
	if err != nil {
		return res, err
	}
	res.Teams, res.Members = teams, members

	events, err := s.seedEvents(ctx)
	if err != nil {
		return res, err
	}
	res.Events = events

	s.logger.Infow("Seeding finished", "teams", res.Teams, "members", res.Members, "events", res.Events)
	return res, nil
}

func (s *Seeder) seedTeams(ctx context.Context) (int, int, error) {
	existing, err := s.repos.Teams.ListMembers(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("check members: %w", err)
	}
	if len(existing) > 0 {
		s.logger.Infow("Members already present, skipping", "count", len(existing))
		return 0, 0, nil
	}

	var raw rawTeams
	if err := s.readSnapshot(teamsSnapshot, &raw); err != nil {
		return 0, 0, err
	}

	now := time.Now().UTC()
	members := make([]entities.Member, 0, len(raw.TeamMembers)+1)
	for i, m := range raw.TeamMembers {
		members = append(members, mapMember(m, i, now))
	}
	if raw.FacultyAdvisor != nil {
		members = append(members, mapFacultyAdvisor(*raw.FacultyAdvisor, len(members), now))
	}

	teams := InitialTeams()
	count, err := s.repos.Teams.CountTeams(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("check teams: %w", err)
	}
	if count > 0 {
		current, err := s.repos.Teams.ListTeams(ctx)
		if err != nil {
			return 0, 0, err
		}
		teams = mergeTeams(current, teams)
	}

	if err := s.repos.Teams.Replace(ctx, teams, members); err != nil {
		return 0, 0, err
	}
	return len(teams) - int(count), len(members), nil
}

func (s *Seeder) seedEvents(ctx context.Context) (int, error) {
	existing, err := s.repos.Events.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("check events: %w", err)
	}
	if len(existing) > 0 {
		s.logger.Infow("Events already present, skipping", "count", len(existing))
		return 0, nil
	}

	var raw []rawEvent
	if err := s.readSnapshot(eventsSnapshot, &raw); err != nil {
		return 0, err
	}

	for _, r := range raw {
		event := mapEvent(r)
		if err := s.repos.Events.Create(ctx, event); err != nil {
			return 0, fmt.Errorf("seed event %q: %w", r.Slug, err)
		}
	}
	return len(raw), nil
}

// readSnapshot prefers <dir>/<name> over the embedded copy.
func (s *Seeder) readSnapshot(name string, v interface{}) error {
	var (
		b   []byte
		err error
	)
	if s.dir != "" {
		b, err = os.ReadFile(filepath.Join(s.dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			b, err = nil, nil
		}
	}
	if b == nil && err == nil {
		b, err = snapshot.ReadFile("data/" + name)
	}
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", name, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: snapshot %s: %v", entities.ErrCorruptData, name, err)
	}
	return nil
}

// mapMember converts a snapshot member into a directory record.
func mapMember(r rawMember, order int, now time.Time) entities.Member {
	return entities.Member{
		ID:         uuid.New().String(),
		Name:       strings.TrimSpace(r.Name),
		Email:      clean(r.Email),
		Role:       clean(r.Role),
		Type:       entities.MemberTypeRegular,
		TeamID:     teamForYear(r.Year),
		Year:       r.Year,
		MemberYear: r.MemberYear,
		Semester:   semesterForYear(r.Year),
		Department: clean(r.Department),
		Photo:      photoPath(r.MemberYear, clean(r.Image)),
		Socials: entities.Socials{
			GitHub:    clean(r.GitHub),
			LinkedIn:  clean(r.LinkedIn),
			Instagram: clean(r.Instagram),
			Twitter:   clean(r.Twitter),
		},
		Order:     order,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Faculty advisor fields used when the snapshot leaves them out.
const (
	defaultAdvisorName       = "Er. Amit Shrivastava"
	defaultAdvisorTitle      = "Faculty Advisor"
	defaultAdvisorDepartment = "HOD, Department of Computer Engineering"
	defaultAdvisorEmail      = "hod.computer@ncit.edu.np"
)

// mapFacultyAdvisor converts the snapshot's advisor entry, filling defaults
// for missing fields. The advisor always belongs to the seed year.
func mapFacultyAdvisor(r rawMember, order int, now time.Time) entities.Member {
	m := mapMember(r, order, now)
	m.ID = FacultyAdvisorID
	m.Type = entities.MemberTypeFacultyAdvisor
	m.TeamID = FacultyTeamID
	m.Year = seedYear
	m.MemberYear = seedYear
	m.Semester = ""
	m.Title = clean(r.Title)
	m.Photo = photoPath(seedYear, clean(r.Image))

	if m.Name == "" {
		m.Name = defaultAdvisorName
	}
	if m.Title == "" {
		m.Title = defaultAdvisorTitle
	}
	if m.Department == "" {
		m.Department = defaultAdvisorDepartment
	}
	if m.Email == "" {
		m.Email = defaultAdvisorEmail
	}
	return m
}

// mapEvent converts a snapshot event. Media file names become paths under
// the event's year.
func mapEvent(r rawEvent) *entities.Event {
	year := entities.PartitionYear(r.StartAt)

	gallery := make([]string, 0, len(r.Gallery))
	for _, g := range r.Gallery {
		if p := mediaPath(year, "events", clean(g)); p != "" {
			gallery = append(gallery, p)
		}
	}

	eventType := entities.EventType(r.Type)
	if !eventType.Valid() {
		eventType = entities.EventTypeWorkshop
	}

	slug := r.Slug
	if slug == "" {
		slug = entities.Slugify(r.Title)
	}

	return &entities.Event{
		Title:       r.Title,
		Slug:        slug,
		Description: r.Description,
		Type:        eventType,
		StartAt:     r.StartAt.UTC(),
		EndAt:       r.EndAt.UTC(),
		Location:    r.Location,
		Capacity:    r.Capacity,
		CoverImage:  mediaPath(year, "events", clean(r.CoverImage)),
		Gallery:     gallery,
		Tags:        r.Tags,
		Organizer:   clean(r.Organizer),
	}
}

// semesterForYear maps an academic year to its semester pair.
func semesterForYear(year int) string {
	switch year {
	case 4:
		return "VII/VIII"
	case 3:
		return "V/VI"
	default:
		return "III/IV"
	}
}

// teamForYear assigns fourth years to the mentors and everyone else to the
// executive committee.
func teamForYear(year int) string {
	if year == 4 {
		return MentorsTeamID
	}
	return ExecTeamID
}

// photoPath is empty unless both the year and the file name are known.
func photoPath(memberYear int, image string) string {
	return mediaPath(memberYear, "members", image)
}

func mediaPath(year int, kind, file string) string {
	if year == 0 || file == "" {
		return ""
	}
	return fmt.Sprintf("/media/%d/%s/%s", year, kind, file)
}

func clean(s string) string {
	s = strings.TrimSpace(s)
	if placeholders[s] {
		return ""
	}
	return s
}

// mergeTeams appends the initial teams whose ids are not in current.
func mergeTeams(current []*entities.Team, initial []entities.Team) []entities.Team {
	seen := make(map[string]bool, len(current))
	out := make([]entities.Team, 0, len(current)+len(initial))
	for _, t := range current {
		seen[t.ID] = true
		out = append(out, *t)
	}
	for _, t := range initial {
		if !seen[t.ID] {
			out = append(out, t)
		}
	}
	return out
}
