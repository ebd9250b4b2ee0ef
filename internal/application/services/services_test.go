package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/citc/clubhub/internal/adapters/repository"
	"github.com/citc/clubhub/internal/domain/entities"
	"github.com/citc/clubhub/internal/infrastructure/config"
	"github.com/citc/clubhub/internal/infrastructure/database"
	"github.com/citc/clubhub/internal/infrastructure/logger"
	"github.com/citc/clubhub/internal/ports"
)

func newRepos(t *testing.T) ports.Repositories {
	t.Helper()
	db, err := database.New(config.DatabaseConfig{Driver: config.DriverFile, DataDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("database.New failed: %v", err)
	}
	return repository.NewFileRepositories(db)
}

func newAuth(t *testing.T, repos ports.Repositories, googleURL string) *AuthService {
	t.Helper()
	return NewAuthService(
		repos.Users,
		config.JWTConfig{Secret: "test-secret", ExpiresIn: time.Hour, Issuer: "clubhub-test"},
		config.GoogleConfig{ClientID: "client", TokenInfoURL: googleURL + "/tokeninfo", UserInfoURL: googleURL + "/userinfo"},
		logger.NewNop(),
	)
}

func TestAuthService_RegisterFirstUserIsAdmin(t *testing.T) {
	ctx := context.Background()
	auth := newAuth(t, newRepos(t), "")

	first, err := auth.Register(ctx, ports.RegisterRequest{Name: "First", Email: "First@Example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if first.Role != entities.UserRoleAdmin {
		t.Errorf("expected first user to be admin, got %s", first.Role)
	}
	if first.Email != "first@example.com" {
		t.Errorf("expected normalized email, got %q", first.Email)
	}
	if first.LegacyID != first.ID || first.Token == "" {
		t.Errorf("unexpected auth response %+v", first)
	}

	second, err := auth.Register(ctx, ports.RegisterRequest{Name: "Second", Email: "second@example.com", Password: "secret2"})
	if err != nil {
		t.Fatal(err)
	}
	if second.Role != entities.UserRoleGuest {
		t.Errorf("expected guest role, got %s", second.Role)
	}

	_, err = auth.Register(ctx, ports.RegisterRequest{Name: "Dup", Email: "first@example.com", Password: "secret3"})
	if !errors.Is(err, entities.ErrConflict) {
		t.Errorf("expected ErrConflict on duplicate email, got %v", err)
	}
}

func TestAuthService_LoginAndValidate(t *testing.T) {
	ctx := context.Background()
	auth := newAuth(t, newRepos(t), "")

	if _, err := auth.Register(ctx, ports.RegisterRequest{Name: "A", Email: "a@example.com", Password: "hunter22"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		req     ports.LoginRequest
		wantErr error
	}{
		{"valid", ports.LoginRequest{Email: "a@example.com", Password: "hunter22"}, nil},
		{"wrong password", ports.LoginRequest{Email: "a@example.com", Password: "nope"}, entities.ErrUnauthorized},
		{"unknown email", ports.LoginRequest{Email: "b@example.com", Password: "hunter22"}, entities.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := auth.Login(ctx, tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login failed: %v", err)
			}

			claims, err := auth.ValidateToken(resp.Token)
			if err != nil {
				t.Fatalf("ValidateToken failed: %v", err)
			}
			if claims.UserID != resp.ID || claims.Role != entities.UserRoleAdmin {
				t.Errorf("unexpected claims %+v", claims)
			}
		})
	}

	if _, err := auth.ValidateToken("garbage"); !errors.Is(err, entities.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for bad token, got %v", err)
	}
}

// googleServer fakes the tokeninfo and userinfo endpoints. "good-token" was
// issued to "client", "foreign-token" to another app; both resolve to profile.
// The returned counter counts userinfo calls.
func googleServer(t *testing.T, profile GoogleProfile) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	audiences := map[string]string{"good-token": "client", "foreign-token": "someone-else"}

	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/tokeninfo", func(w http.ResponseWriter, r *http.Request) {
		aud, ok := audiences[r.URL.Query().Get("access_token")]
		if !ok {
			http.Error(w, `{"error":"invalid_token"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"aud": aud, "azp": aud})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if _, ok := audiences[token]; !ok {
			http.Error(w, `{"error":"invalid_token"}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(profile)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestAuthService_GoogleLoginCreatesOnceThenLinks(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	srv, calls := googleServer(t, GoogleProfile{Sub: "g-1", Email: "g@example.com", Name: "Gee", Picture: "https://img/p.png"})
	auth := newAuth(t, repos, srv.URL)

	resp, created, err := auth.GoogleLogin(ctx, ports.GoogleLoginRequest{AccessToken: "good-token"})
	if err != nil {
		t.Fatalf("GoogleLogin failed: %v", err)
	}
	if !created {
		t.Error("expected first Google login to create the account")
	}

	user, err := repos.Users.GetByID(ctx, resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !user.IsVerified || user.HasPassword() || user.GoogleID != "g-1" {
		t.Errorf("unexpected Google user %+v", user)
	}

	again, created, err := auth.GoogleLogin(ctx, ports.GoogleLoginRequest{AccessToken: "good-token"})
	if err != nil {
		t.Fatal(err)
	}
	if created || again.ID != resp.ID {
		t.Errorf("expected repeat login to reuse account, created=%v id=%s", created, again.ID)
	}
	if n, _ := repos.Users.Count(ctx); n != 1 {
		t.Errorf("expected 1 user, got %d", n)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 userinfo calls, got %d", calls.Load())
	}

	// Password login is not possible on a Google-only account.
	if _, err := auth.Login(ctx, ports.LoginRequest{Email: "g@example.com", Password: ""}); !errors.Is(err, entities.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthService_GoogleLoginLinksExistingEmail(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	srv, _ := googleServer(t, GoogleProfile{Sub: "g-2", Email: "pw@example.com", Name: "Pw"})
	auth := newAuth(t, repos, srv.URL)

	reg, err := auth.Register(ctx, ports.RegisterRequest{Name: "Pw", Email: "pw@example.com", Password: "secret1"})
	if err != nil {
		t.Fatal(err)
	}

	resp, created, err := auth.GoogleLogin(ctx, ports.GoogleLoginRequest{AccessToken: "good-token"})
	if err != nil {
		t.Fatal(err)
	}
	if created || resp.ID != reg.ID {
		t.Errorf("expected existing account to be linked")
	}

	linked, _ := repos.Users.GetByID(ctx, reg.ID)
	if linked.GoogleID != "g-2" {
		t.Errorf("expected google id to be linked, got %q", linked.GoogleID)
	}
}

func TestAuthService_GoogleLoginFailures(t *testing.T) {
	ctx := context.Background()

	srv, _ := googleServer(t, GoogleProfile{Sub: "g-3"})
	auth := newAuth(t, newRepos(t), srv.URL)

	if _, _, err := auth.GoogleLogin(ctx, ports.GoogleLoginRequest{AccessToken: "bad-token"}); !errors.Is(err, entities.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for rejected token, got %v", err)
	}
	if _, _, err := auth.GoogleLogin(ctx, ports.GoogleLoginRequest{AccessToken: "good-token"}); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("expected ErrValidation for missing email, got %v", err)
	}
}

func TestAuthService_GoogleLoginRejectsOtherAudience(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	srv, calls := googleServer(t, GoogleProfile{Sub: "g-4", Email: "victim@example.com", EmailVerified: true})
	auth := newAuth(t, repos, srv.URL)

	if _, err := auth.Register(ctx, ports.RegisterRequest{Name: "Victim", Email: "victim@example.com", Password: "secret1"}); err != nil {
		t.Fatal(err)
	}

	_, _, err := auth.GoogleLogin(ctx, ports.GoogleLoginRequest{AccessToken: "foreign-token"})
	if !errors.Is(err, entities.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for a token issued to another client, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no userinfo call, got %d", calls.Load())
	}

	user, err := repos.Users.GetByEmail(ctx, "victim@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if user.GoogleID != "" {
		t.Errorf("expected account to stay unlinked, got google id %q", user.GoogleID)
	}
}

func TestAuthService_GoogleLoginDisabledWithoutClientID(t *testing.T) {
	srv, calls := googleServer(t, GoogleProfile{Sub: "g-5", Email: "g5@example.com"})
	auth := NewAuthService(
		newRepos(t).Users,
		config.JWTConfig{Secret: "test-secret", ExpiresIn: time.Hour},
		config.GoogleConfig{TokenInfoURL: srv.URL + "/tokeninfo", UserInfoURL: srv.URL + "/userinfo"},
		logger.NewNop(),
	)

	_, _, err := auth.GoogleLogin(context.Background(), ports.GoogleLoginRequest{AccessToken: "good-token"})
	if !errors.Is(err, entities.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized when no client id is configured, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no userinfo call, got %d", calls.Load())
	}
}

func TestEventService_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	svc := NewEventService(repos.Events, repos.Users, logger.NewNop())

	creator := &entities.User{Name: "Mentor", Email: "m@example.com", Role: entities.UserRoleMentor}
	if err := repos.Users.Create(ctx, creator); err != nil {
		t.Fatal(err)
	}

	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ev, err := svc.CreateEvent(ctx, creator.ID, ports.CreateEventRequest{
		Title:       "Intro to Go!",
		Description: "Hands-on",
		StartAt:     start,
		EndAt:       start.Add(2 * time.Hour),
		Location:    "Lab 1",
	})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	if ev.Slug != "intro-to-go" {
		t.Errorf("expected derived slug, got %q", ev.Slug)
	}
	if ev.Type != entities.EventTypeWorkshop {
		t.Errorf("expected default type workshop, got %q", ev.Type)
	}

	detail, err := svc.GetEvent(ctx, "intro-to-go")
	if err != nil {
		t.Fatal(err)
	}
	if detail.CreatedBy == nil || detail.CreatedBy.Name != "Mentor" {
		t.Errorf("expected creator to be resolved, got %+v", detail.CreatedBy)
	}
}

func TestEventService_DanglingCreatorIsNull(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	svc := NewEventService(repos.Events, repos.Users, logger.NewNop())

	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.CreateEvent(ctx, "ghost", ports.CreateEventRequest{
		Title: "Orphan", Description: "d", StartAt: start, EndAt: start, Location: "x",
	}); err != nil {
		t.Fatal(err)
	}

	detail, err := svc.GetEvent(ctx, "orphan")
	if err != nil {
		t.Fatal(err)
	}
	if detail.CreatedBy != nil {
		t.Errorf("expected null creator, got %+v", detail.CreatedBy)
	}

	raw, _ := json.Marshal(detail)
	var decoded map[string]interface{}
	_ = json.Unmarshal(raw, &decoded)
	if v, ok := decoded["createdBy"]; !ok || v != nil {
		t.Errorf("expected createdBy to serialize as null, got %v", v)
	}
}

func TestEventService_Validation(t *testing.T) {
	svc := NewEventService(newRepos(t).Events, nil, logger.NewNop())
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		req  ports.CreateEventRequest
	}{
		{"missing title", ports.CreateEventRequest{Description: "d", StartAt: start, EndAt: start, Location: "x"}},
		{"missing start", ports.CreateEventRequest{Title: "t", Description: "d", EndAt: start, Location: "x"}},
		{"end before start", ports.CreateEventRequest{Title: "t", Description: "d", StartAt: start, EndAt: start.Add(-time.Hour), Location: "x"}},
		{"bad type", ports.CreateEventRequest{Title: "t", Description: "d", StartAt: start, EndAt: start, Location: "x", Type: "party"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateEvent(context.Background(), "u", tt.req); !errors.Is(err, entities.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestEventService_UpdateAcrossYearAndListOrder(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	svc := NewEventService(repos.Events, repos.Users, logger.NewNop())

	mk := func(title string, start time.Time) *entities.Event {
		ev, err := svc.CreateEvent(ctx, "u", ports.CreateEventRequest{Title: title, Description: "d", StartAt: start, EndAt: start, Location: "x"})
		if err != nil {
			t.Fatal(err)
		}
		return ev
	}
	late := mk("Late", time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC))
	mk("Early", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	newStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newEnd := newStart.Add(time.Hour)
	if _, err := svc.UpdateEvent(ctx, late.ID, ports.UpdateEventRequest{StartAt: &newStart, EndAt: &newEnd}); err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}

	in2025, err := svc.ListEventsForYear(ctx, 2025)
	if err != nil {
		t.Fatal(err)
	}
	if len(in2025) != 1 || in2025[0].Title != "Early" {
		t.Errorf("expected only Early in 2025, got %d events", len(in2025))
	}

	all, err := svc.ListEvents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].Title != "Early" || all[1].Title != "Late" {
		t.Errorf("expected chronological order Early, Late")
	}
}

func TestTeamService_DirectoryResolvesTeams(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	svc := NewTeamService(repos.Teams, logger.NewNop())

	if err := repos.Teams.CreateTeam(ctx, &entities.Team{ID: "t1", Name: "Mentors", Year: 2025}); err != nil {
		t.Fatal(err)
	}

	for _, req := range []ports.CreateMemberRequest{
		{Name: "Zed", Role: "Lead", TeamID: "t1", Order: 2},
		{Name: "Amy", Role: "Lead", TeamID: "t1", Order: 2},
		{Name: "Bob", Role: "Member", TeamID: "gone", Order: 1},
	} {
		if _, err := svc.CreateMember(ctx, "admin", req); err != nil {
			t.Fatal(err)
		}
	}

	dir, err := svc.Directory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(dir.Teams) != 1 || len(dir.Members) != 3 {
		t.Fatalf("unexpected directory sizes %d/%d", len(dir.Teams), len(dir.Members))
	}
	names := []string{dir.Members[0].Name, dir.Members[1].Name, dir.Members[2].Name}
	if names[0] != "Bob" || names[1] != "Amy" || names[2] != "Zed" {
		t.Errorf("unexpected order %v", names)
	}
	if dir.Members[0].TeamName != entities.UnknownTeam {
		t.Errorf("expected dangling team to resolve to unknown, got %q", dir.Members[0].TeamName)
	}

	groups, err := svc.Grouped(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 || groups[1].Team.ID != entities.UnknownTeam {
		t.Errorf("expected orphan group last, got %+v", groups)
	}

	if _, err := svc.CreateMember(ctx, "admin", ports.CreateMemberRequest{Name: "NoRole"}); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestTeamService_UpdateMemberPartial(t *testing.T) {
	ctx := context.Background()
	svc := NewTeamService(newRepos(t).Teams, logger.NewNop())

	m, err := svc.CreateMember(ctx, "admin", ports.CreateMemberRequest{Name: "Kiran", Role: "Designer"})
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsActive || m.Type != entities.MemberTypeRegular {
		t.Errorf("unexpected defaults %+v", m)
	}

	inactive := false
	updated, err := svc.UpdateMember(ctx, m.ID, ports.UpdateMemberRequest{IsActive: &inactive})
	if err != nil {
		t.Fatal(err)
	}
	if updated.IsActive || updated.Role != "Designer" {
		t.Errorf("expected only isActive to change, got %+v", updated)
	}

	if _, err := svc.UpdateMember(ctx, "missing", ports.UpdateMemberRequest{}); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestProjectService_DropsDanglingContributors(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	svc := NewProjectService(repos.Projects, repos.Users, logger.NewNop())

	u := &entities.User{Name: "Dev", Email: "dev@example.com"}
	if err := repos.Users.Create(ctx, u); err != nil {
		t.Fatal(err)
	}

	p, err := svc.CreateProject(ctx, u.ID, ports.CreateProjectRequest{
		Title: "Bot", ShortDesc: "A bot", Contributors: []string{u.ID, "deleted-user"},
	})
	if err != nil {
		t.Fatal(err)
	}

	view, err := svc.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Contributors) != 1 || view.Contributors[0].Name != "Dev" {
		t.Errorf("expected only resolvable contributor, got %+v", view.Contributors)
	}

	if _, err := svc.CreateProject(ctx, u.ID, ports.CreateProjectRequest{Title: "x"}); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestUserService_SetRoleAndProfile(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	svc := NewUserService(repos.Users, logger.NewNop())

	u := &entities.User{Name: "Old", Email: "u@example.com", Role: entities.UserRoleGuest, PasswordHash: "x"}
	if err := repos.Users.Create(ctx, u); err != nil {
		t.Fatal(err)
	}

	got, err := svc.SetRole(ctx, u.ID, entities.UserRoleMentor)
	if err != nil {
		t.Fatal(err)
	}
	if got.Role != entities.UserRoleMentor {
		t.Errorf("expected mentor, got %s", got.Role)
	}
	if _, err := svc.SetRole(ctx, u.ID, "king"); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}

	name := "New"
	prof, err := svc.UpdateProfile(ctx, u.ID, ports.UpdateProfileRequest{Name: &name})
	if err != nil {
		t.Fatal(err)
	}
	if prof.Name != "New" {
		t.Errorf("expected name New, got %q", prof.Name)
	}

	stored, _ := repos.Users.GetByID(ctx, u.ID)
	if stored.PasswordHash != "x" {
		t.Error("profile update must keep the password hash")
	}
}

// rsvpAfterRead lets an RSVP land right after the event is read, before the
// caller writes its edit back.
type rsvpAfterRead struct {
	ports.EventRepository
	userID string
}

func (r *rsvpAfterRead) GetByID(ctx context.Context, id string) (*entities.Event, error) {
	ev, err := r.EventRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := r.EventRepository.RSVP(ctx, id, r.userID); err != nil {
		return nil, err
	}
	return ev, nil
}

func TestEventService_UpdateKeepsRSVPThatLandsMidEdit(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)

	created, err := NewEventService(repos.Events, repos.Users, logger.NewNop()).CreateEvent(ctx, "creator", ports.CreateEventRequest{
		Title:       "Meetup",
		Description: "d",
		Location:    "Hall",
		StartAt:     time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
		EndAt:       time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}

	events := NewEventService(&rsvpAfterRead{EventRepository: repos.Events, userID: "u1"}, repos.Users, logger.NewNop())

	title := "Meetup, renamed"
	updated, err := events.UpdateEvent(ctx, created.ID, ports.UpdateEventRequest{Title: &title})
	if err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}
	if len(updated.Attendees) != 1 || updated.Attendees[0] != "u1" {
		t.Errorf("expected response to include attendee u1, got %v", updated.Attendees)
	}

	stored, err := repos.Events.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Title != title || len(stored.Attendees) != 1 || stored.CreatedBy != "creator" {
		t.Errorf("unexpected stored event %+v", stored)
	}
}

func TestEventService_RejectsUnstorableYears(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	db, err := database.New(config.DatabaseConfig{Driver: config.DriverFile, DataDir: dataDir}, nil)
	if err != nil {
		t.Fatal(err)
	}
	repos := repository.NewFileRepositories(db)
	events := NewEventService(repos.Events, repos.Users, logger.NewNop())

	// Year 9999 locally, year 10000 in UTC.
	late, err := time.Parse(time.RFC3339, "9999-12-31T23:30:00-01:00")
	if err != nil {
		t.Fatal(err)
	}
	start := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	_, err = events.CreateEvent(ctx, "u1", ports.CreateEventRequest{
		Title: "Far", Description: "d", Location: "l", StartAt: late, EndAt: late.Add(time.Hour),
	})
	if !errors.Is(err, entities.ErrValidation) {
		t.Fatalf("expected ErrValidation for a start in year 10000, got %v", err)
	}
	_, err = events.CreateEvent(ctx, "u1", ports.CreateEventRequest{
		Title: "Long", Description: "d", Location: "l", StartAt: start, EndAt: late,
	})
	if !errors.Is(err, entities.ErrValidation) {
		t.Fatalf("expected ErrValidation for an end in year 10000, got %v", err)
	}

	ev, err := events.CreateEvent(ctx, "u1", ports.CreateEventRequest{
		Title: "Near", Description: "d", Location: "l", StartAt: start, EndAt: start.Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := events.UpdateEvent(ctx, ev.ID, ports.UpdateEventRequest{StartAt: &late}); !errors.Is(err, entities.ErrValidation) {
		t.Fatalf("expected ErrValidation when moving to year 10000, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(dataDir, "events", "10000.json")); !os.IsNotExist(err) {
		t.Errorf("expected no partition for year 10000, stat returned %v", err)
	}
	stored, err := repos.Events.GetByID(ctx, ev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Year() != 2025 {
		t.Errorf("expected event to stay in 2025, got %d", stored.Year())
	}
}
