package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/citc/clubhub/internal/adapters/repository"
	"github.com/citc/clubhub/internal/infrastructure/config"
	"github.com/citc/clubhub/internal/infrastructure/database"
	"github.com/citc/clubhub/internal/infrastructure/logger"
)

type testEnv struct {
	handler  http.Handler
	db       *database.DB
	mediaDir string
}

func newTestEnv(t *testing.T, googleURL string) *testEnv {
	t.Helper()
	return newTestEnvWith(t, googleURL, nil)
}

func newTestEnvWith(t *testing.T, googleURL string, configure func(*config.Config)) *testEnv {
	t.Helper()

	dataDir := t.TempDir()
	mediaDir := t.TempDir()

	cfg := &config.Config{
		App: config.AppConfig{Name: "clubhub", Version: "test", Environment: "test"},
		Database: config.DatabaseConfig{
			Driver:   config.DriverFile,
			DataDir:  dataDir,
			MediaDir: mediaDir,
		},
		JWT:      config.JWTConfig{Secret: "test-secret", ExpiresIn: time.Hour, Issuer: "clubhub-test"},
		Google:   config.GoogleConfig{ClientID: "client", TokenInfoURL: googleURL + "/tokeninfo", UserInfoURL: googleURL + "/userinfo"},
		Security: config.SecurityConfig{CORSAllowedOrigins: "*"},
		Metrics:  config.MetricsConfig{Enabled: true},
	}
	if configure != nil {
		configure(cfg)
	}

	db, err := database.New(cfg.Database, nil)
	if err != nil {
		t.Fatalf("database.New failed: %v", err)
	}

	srv, err := New(cfg, db, repository.NewFileRepositories(db), logger.NewNop())
	if err != nil {
		t.Fatalf("server.New failed: %v", err)
	}
	return &testEnv{handler: srv.Handler(), db: db, mediaDir: mediaDir}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func expectMessage(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	decode(t, rec, &body)
	if body.Message != want {
		t.Fatalf("expected message %q, got %q", want, body.Message)
	}
}

type authBody struct {
	LegacyID string `json:"_id"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Token    string `json:"token"`
}

func (e *testEnv) register(t *testing.T, name, email string) authBody {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret123",
	})
	expectStatus(t, rec, http.StatusCreated)
	var body authBody
	decode(t, rec, &body)
	return body
}

func TestServer_HealthEndpoints(t *testing.T) {
	env := newTestEnv(t, "")

	expectStatus(t, env.do(t, http.MethodGet, "/health", "", nil), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodGet, "/ready", "", nil), http.StatusOK)

	rec := env.do(t, http.MethodGet, "/health/detailed", "", nil)
	expectStatus(t, rec, http.StatusOK)

	var body struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Status string `json:"status"`
		} `json:"checks"`
	}
	decode(t, rec, &body)
	if body.Status != "ok" || body.Checks["store"].Status != "ok" {
		t.Fatalf("unexpected health body: %s", rec.Body.String())
	}
}

func TestServer_AuthFlow(t *testing.T) {
	env := newTestEnv(t, "")

	admin := env.register(t, "Ada", "ada@example.com")
	if admin.Role != "admin" || admin.Token == "" || admin.LegacyID != admin.ID {
		t.Fatalf("unexpected first registration: %+v", admin)
	}

	guest := env.register(t, "Bob", "bob@example.com")
	if guest.Role != "guest" {
		t.Fatalf("second user should be guest, got %q", guest.Role)
	}

	dup := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ada Again", "email": "ADA@example.com", "password": "secret123",
	})
	expectStatus(t, dup, http.StatusConflict)

	invalid := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "No Mail", "password": "secret123",
	})
	expectStatus(t, invalid, http.StatusBadRequest)

	bad := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "wrong-password",
	})
	expectStatus(t, bad, http.StatusUnauthorized)

	ok := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "secret123",
	})
	expectStatus(t, ok, http.StatusOK)

	expectStatus(t, env.do(t, http.MethodGet, "/api/auth/me", "", nil), http.StatusUnauthorized)
	expectStatus(t, env.do(t, http.MethodGet, "/api/auth/me", "not-a-jwt", nil), http.StatusUnauthorized)

	me := env.do(t, http.MethodGet, "/api/auth/me", admin.Token, nil)
	expectStatus(t, me, http.StatusOK)
	if strings.Contains(me.Body.String(), "passwordHash") {
		t.Fatalf("password hash leaked: %s", me.Body.String())
	}

	updated := env.do(t, http.MethodPut, "/api/auth/me", admin.Token, map[string]string{"name": "Ada L."})
	expectStatus(t, updated, http.StatusOK)
	var profile struct {
		Name string `json:"name"`
	}
	decode(t, updated, &profile)
	if profile.Name != "Ada L." {
		t.Fatalf("profile not updated: %s", updated.Body.String())
	}
}

func TestServer_AdminRoutes(t *testing.T) {
	env := newTestEnv(t, "")
	admin := env.register(t, "Ada", "ada@example.com")
	guest := env.register(t, "Bob", "bob@example.com")

	expectStatus(t, env.do(t, http.MethodGet, "/api/users", guest.Token, nil), http.StatusForbidden)

	list := env.do(t, http.MethodGet, "/api/users", admin.Token, nil)
	expectStatus(t, list, http.StatusOK)
	var users []map[string]interface{}
	decode(t, list, &users)
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}

	setRole := env.do(t, http.MethodPut, "/api/users/"+guest.ID+"/role", admin.Token, map[string]string{"role": "mentor"})
	expectStatus(t, setRole, http.StatusOK)

	badRole := env.do(t, http.MethodPut, "/api/users/"+guest.ID+"/role", admin.Token, map[string]string{"role": "owner"})
	expectStatus(t, badRole, http.StatusBadRequest)

	missing := env.do(t, http.MethodPut, "/api/users/nope/role", admin.Token, map[string]string{"role": "member"})
	expectStatus(t, missing, http.StatusNotFound)
}

func TestServer_EventLifecycle(t *testing.T) {
	env := newTestEnv(t, "")
	admin := env.register(t, "Ada", "ada@example.com")
	guest := env.register(t, "Bob", "bob@example.com")

	newEvent := map[string]interface{}{
		"title":       "Go Workshop",
		"slug":        "go-workshop",
		"description": "Intro to Go",
		"type":        "workshop",
		"startAt":     "2025-03-01T10:00:00Z",
		"endAt":       "2025-03-01T12:00:00Z",
		"location":    "Lab 1",
		"capacity":    20,
	}

	expectStatus(t, env.do(t, http.MethodPost, "/api/events", "", newEvent), http.StatusUnauthorized)
	expectStatus(t, env.do(t, http.MethodPost, "/api/events", guest.Token, newEvent), http.StatusForbidden)

	created := env.do(t, http.MethodPost, "/api/events", admin.Token, newEvent)
	expectStatus(t, created, http.StatusCreated)
	var ev struct {
		ID        string   `json:"id"`
		Slug      string   `json:"slug"`
		Attendees []string `json:"attendees"`
	}
	decode(t, created, &ev)
	if ev.ID == "" || ev.Slug != "go-workshop" {
		t.Fatalf("unexpected created event: %s", created.Body.String())
	}
	if _, err := os.Stat(filepath.Join(env.db.EventsDir(), "2025.json")); err != nil {
		t.Fatalf("2025 partition missing: %v", err)
	}

	got := env.do(t, http.MethodGet, "/api/events/go-workshop", "", nil)
	expectStatus(t, got, http.StatusOK)
	var detail struct {
		CreatedBy *struct {
			ID   string `json:"_id"`
			Name string `json:"name"`
		} `json:"createdBy"`
	}
	decode(t, got, &detail)
	if detail.CreatedBy == nil || detail.CreatedBy.ID != admin.ID || detail.CreatedBy.Name != "Ada" {
		t.Fatalf("creator not resolved: %s", got.Body.String())
	}

	expectStatus(t, env.do(t, http.MethodGet, "/api/events?year=abc", "", nil), http.StatusBadRequest)

	var listed []map[string]interface{}
	yearList := env.do(t, http.MethodGet, "/api/events?year=2025", "", nil)
	expectStatus(t, yearList, http.StatusOK)
	decode(t, yearList, &listed)
	if len(listed) != 1 {
		t.Fatalf("expected 1 event in 2025, got %d", len(listed))
	}

	moved := env.do(t, http.MethodPut, "/api/events/"+ev.ID, admin.Token, map[string]string{
		"startAt": "2026-01-10T10:00:00Z",
		"endAt":   "2026-01-10T12:00:00Z",
	})
	expectStatus(t, moved, http.StatusOK)

	years := env.do(t, http.MethodGet, "/api/events/years", "", nil)
	expectStatus(t, years, http.StatusOK)
	var yearsBody struct {
		Years []int `json:"years"`
	}
	decode(t, years, &yearsBody)
	found2026 := false
	for _, y := range yearsBody.Years {
		if y == 2026 {
			found2026 = true
		}
	}
	if !found2026 {
		t.Fatalf("expected 2026 in years, got %v", yearsBody.Years)
	}

	h, err := env.db.EventsForYear(context.Background(), 2025)
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Data.Events) != 0 {
		t.Fatalf("event should have left 2025, found %d", len(h.Data.Events))
	}

	expectStatus(t, env.do(t, http.MethodPost, "/api/events/"+ev.ID+"/rsvp", guest.Token, nil), http.StatusOK)
	again := env.do(t, http.MethodPost, "/api/events/"+ev.ID+"/rsvp", guest.Token, nil)
	expectStatus(t, again, http.StatusBadRequest)
	expectMessage(t, again, "Already RSVPed")

	expectStatus(t, env.do(t, http.MethodPost, "/api/events/missing/rsvp", guest.Token, nil), http.StatusNotFound)

	expectStatus(t, env.do(t, http.MethodDelete, "/api/events/"+ev.ID, guest.Token, nil), http.StatusForbidden)
	deleted := env.do(t, http.MethodDelete, "/api/events/"+ev.ID, admin.Token, nil)
	expectStatus(t, deleted, http.StatusOK)
	expectMessage(t, deleted, "Event removed")

	expectStatus(t, env.do(t, http.MethodGet, "/api/events/go-workshop", "", nil), http.StatusNotFound)
	expectStatus(t, env.do(t, http.MethodDelete, "/api/events/"+ev.ID, admin.Token, nil), http.StatusNotFound)
}

func TestServer_TeamRoutes(t *testing.T) {
	env := newTestEnv(t, "")
	admin := env.register(t, "Ada", "ada@example.com")

	team := env.do(t, http.MethodPost, "/api/team/teams", admin.Token, map[string]interface{}{"name": "Core", "year": 2025})
	expectStatus(t, team, http.StatusCreated)
	var teamBody struct {
		ID string `json:"id"`
	}
	decode(t, team, &teamBody)

	noRole := env.do(t, http.MethodPost, "/api/team", admin.Token, map[string]string{"name": "Someone"})
	expectStatus(t, noRole, http.StatusBadRequest)
	expectMessage(t, noRole, "Name and role are required")

	expectStatus(t, env.do(t, http.MethodPost, "/api/team", "", map[string]string{"name": "X", "role": "Y"}), http.StatusUnauthorized)

	created := env.do(t, http.MethodPost, "/api/team", admin.Token, map[string]interface{}{
		"name": "Rita", "role": "Lead", "teamId": teamBody.ID,
	})
	expectStatus(t, created, http.StatusCreated)
	var member struct {
		ID       string `json:"id"`
		IsActive bool   `json:"isActive"`
	}
	decode(t, created, &member)
	if !member.IsActive {
		t.Fatal("new member should default to active")
	}

	orphan := env.do(t, http.MethodPost, "/api/team", admin.Token, map[string]interface{}{
		"name": "Olga", "role": "Helper", "teamId": "gone",
	})
	expectStatus(t, orphan, http.StatusCreated)

	dir := env.do(t, http.MethodGet, "/api/team", "", nil)
	expectStatus(t, dir, http.StatusOK)
	var directory struct {
		Members []struct {
			Name     string `json:"name"`
			TeamName string `json:"teamName"`
		} `json:"members"`
	}
	decode(t, dir, &directory)
	teamNames := map[string]string{}
	for _, m := range directory.Members {
		teamNames[m.Name] = m.TeamName
	}
	if teamNames["Rita"] != "Core" || teamNames["Olga"] != "unknown" {
		t.Fatalf("unexpected team names: %v", teamNames)
	}

	grouped := env.do(t, http.MethodGet, "/api/team/grouped", "", nil)
	expectStatus(t, grouped, http.StatusOK)

	get := env.do(t, http.MethodGet, "/api/team/"+member.ID, "", nil)
	expectStatus(t, get, http.StatusOK)

	upd := env.do(t, http.MethodPut, "/api/team/"+member.ID, admin.Token, map[string]interface{}{"isActive": false})
	expectStatus(t, upd, http.StatusOK)
	decode(t, upd, &member)
	if member.IsActive {
		t.Fatal("member should be inactive after update")
	}

	del := env.do(t, http.MethodDelete, "/api/team/"+member.ID, admin.Token, nil)
	expectStatus(t, del, http.StatusOK)
	expectMessage(t, del, "Team member removed")

	expectStatus(t, env.do(t, http.MethodGet, "/api/team/"+member.ID, "", nil), http.StatusNotFound)
}

func TestServer_Projects(t *testing.T) {
	env := newTestEnv(t, "")
	user := env.register(t, "Ada", "ada@example.com")

	body := map[string]interface{}{"title": "Smart Campus", "shortDesc": "IoT on campus", "tags": []string{"IoT"}}
	expectStatus(t, env.do(t, http.MethodPost, "/api/projects", "", body), http.StatusUnauthorized)

	created := env.do(t, http.MethodPost, "/api/projects", user.Token, body)
	expectStatus(t, created, http.StatusCreated)
	var project struct {
		ID string `json:"id"`
	}
	decode(t, created, &project)

	list := env.do(t, http.MethodGet, "/api/projects", "", nil)
	expectStatus(t, list, http.StatusOK)
	var projects []struct {
		Contributors []struct {
			ID   string `json:"_id"`
			Name string `json:"name"`
		} `json:"contributors"`
	}
	decode(t, list, &projects)
	if len(projects) != 1 || len(projects[0].Contributors) != 1 || projects[0].Contributors[0].Name != "Ada" {
		t.Fatalf("unexpected projects: %s", list.Body.String())
	}

	expectStatus(t, env.do(t, http.MethodGet, "/api/projects/"+project.ID, "", nil), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodGet, "/api/projects/missing", "", nil), http.StatusNotFound)
}

func TestServer_GoogleLogin(t *testing.T) {
	audiences := map[string]string{"good-token": "client", "foreign-token": "another-app"}

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
		if _, ok := audiences[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]; !ok {
			http.Error(w, `{"error":"invalid_token"}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"sub": "g-42", "email": "gina@example.com", "email_verified": true, "name": "Gina",
		})
	})
	google := httptest.NewServer(mux)
	t.Cleanup(google.Close)

	env := newTestEnv(t, google.URL)

	missing := env.do(t, http.MethodPost, "/api/auth/google-login", "", map[string]string{})
	expectStatus(t, missing, http.StatusBadRequest)
	expectMessage(t, missing, "No token provided")

	expectStatus(t, env.do(t, http.MethodPost, "/api/auth/google-login", "", map[string]string{"token": "bad"}), http.StatusUnauthorized)

	// A valid Google token minted for another client must not sign in.
	expectStatus(t, env.do(t, http.MethodPost, "/api/auth/google-login", "", map[string]string{"token": "foreign-token"}), http.StatusUnauthorized)

	first := env.do(t, http.MethodPost, "/api/auth/google-login", "", map[string]string{"token": "good-token"})
	expectStatus(t, first, http.StatusCreated)
	var body authBody
	decode(t, first, &body)
	if body.Email != "gina@example.com" || body.Role != "admin" || body.Token == "" {
		t.Fatalf("unexpected google account: %+v", body)
	}

	second := env.do(t, http.MethodPost, "/api/auth/google-login", "", map[string]string{"token": "good-token"})
	expectStatus(t, second, http.StatusOK)
}

func TestServer_MetricsDocsAndMedia(t *testing.T) {
	env := newTestEnv(t, "")

	if err := os.MkdirAll(filepath.Join(env.mediaDir, "2025", "members"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(env.mediaDir, "2025", "members", "a.txt"), []byte("photo"), 0o644); err != nil {
		t.Fatal(err)
	}

	media := env.do(t, http.MethodGet, "/media/2025/members/a.txt", "", nil)
	expectStatus(t, media, http.StatusOK)
	if media.Body.String() != "photo" {
		t.Fatalf("unexpected media body %q", media.Body.String())
	}

	expectStatus(t, env.do(t, http.MethodGet, "/api/events", "", nil), http.StatusOK)

	metrics := env.do(t, http.MethodGet, "/metrics", "", nil)
	expectStatus(t, metrics, http.StatusOK)
	for _, name := range []string{"http_requests_total", "clubhub_store_loads_total", "clubhub_store_writes_total"} {
		if !strings.Contains(metrics.Body.String(), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}

	expectStatus(t, env.do(t, http.MethodGet, "/docs/index.html", "", nil), http.StatusOK)
}

func TestServer_HSTSOnlyInProduction(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"production", true},
		{"development", false},
		{"test", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			env := newTestEnvWith(t, "", func(cfg *config.Config) { cfg.App.Environment = tt.env })

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set(echo.HeaderXForwardedProto, "https")
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, req)

			got := rec.Header().Get(echo.HeaderStrictTransportSecurity) != ""
			if got != tt.want {
				t.Errorf("expected HSTS=%v, got header %q", tt.want, rec.Header().Get(echo.HeaderStrictTransportSecurity))
			}
		})
	}
}

func TestServer_GoogleLoginDisabledWithoutClientID(t *testing.T) {
	env := newTestEnvWith(t, "", func(cfg *config.Config) { cfg.Google.ClientID = "" })

	rec := env.do(t, http.MethodPost, "/api/auth/google-login", "", map[string]string{"token": "good-token"})
	expectStatus(t, rec, http.StatusUnauthorized)
}
