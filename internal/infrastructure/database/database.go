package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/citc/clubhub/internal/domain/entities"
	"github.com/citc/clubhub/internal/infrastructure/config"
	"github.com/citc/clubhub/internal/infrastructure/logger"
)

const (
	usersFile    = "users.json"
	projectsFile = "projects.json"
	teamsFile    = "teams.json"
	eventsDir    = "events"

	// LegacyEventsFile is the single-file event store that predates year
	// partitioning.
	LegacyEventsFile = "events.json"
)

var partitionName = regexp.MustCompile(`^(\d{4})\.json$`)

// Documents held by each collection file.
type (
	UsersDoc struct {
		Users []entities.User `json:"users"`
	}
	ProjectsDoc struct {
		Projects []entities.Project `json:"projects"`
	}
	TeamsDoc struct {
		Teams   []entities.Team   `json:"teams"`
		Members []entities.Member `json:"members"`
	}
	EventsDoc struct {
		Events []entities.Event `json:"events"`
	}
)

// DB is the storage context for the file backend. It is created once at
// startup and handed to every repository.
type DB struct {
	dataDir string
	config  config.DatabaseConfig
	logger  *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	loads    atomic.Int64
	writes   atomic.Int64
	failures atomic.Int64
}

// New creates the data directory layout and returns the storage context.
func New(cfg config.DatabaseConfig, log *logger.Logger) (*DB, error) {
	if log == nil {
		log = logger.NewNop()
	}

	dataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data directory: %w", err)
	}

	for _, dir := range []string{dataDir, filepath.Join(dataDir, eventsDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	return &DB{
		dataDir: dataDir,
		config:  cfg,
		logger:  log.WithComponent("filestore"),
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// Close is a no-op; files are not held open between calls.
func (db *DB) Close() error {
	return nil
}

// DataDir returns the absolute root of the store.
func (db *DB) DataDir() string {
	return db.dataDir
}

// EventsDir returns the directory holding one file per event year.
func (db *DB) EventsDir() string {
	return filepath.Join(db.dataDir, eventsDir)
}

func (db *DB) UsersPath() string    { return filepath.Join(db.dataDir, usersFile) }
func (db *DB) ProjectsPath() string { return filepath.Join(db.dataDir, projectsFile) }
func (db *DB) TeamsPath() string    { return filepath.Join(db.dataDir, teamsFile) }

// EventsPath returns the partition file for year.
func (db *DB) EventsPath(year int) string {
	return filepath.Join(db.EventsDir(), fmt.Sprintf("%04d.json", year))
}

// Users opens users.json.
func (db *DB) Users(ctx context.Context) (*Handle[UsersDoc], error) {
	return Open(ctx, db.UsersPath(), UsersDoc{Users: []entities.User{}}, db.observe)
}

// Projects opens projects.json.
func (db *DB) Projects(ctx context.Context) (*Handle[ProjectsDoc], error) {
	return Open(ctx, db.ProjectsPath(), ProjectsDoc{Projects: []entities.Project{}}, db.observe)
}

// Teams opens teams.json.
func (db *DB) Teams(ctx context.Context) (*Handle[TeamsDoc], error) {
	return Open(ctx, db.TeamsPath(), TeamsDoc{Teams: []entities.Team{}, Members: []entities.Member{}}, db.observe)
}

// EventsForYear opens the partition for year, creating it empty if absent.
func (db *DB) EventsForYear(ctx context.Context, year int) (*Handle[EventsDoc], error) {
	return Open(ctx, db.EventsPath(year), EventsDoc{Events: []entities.Event{}}, db.observe)
}

// EventYears lists the years that have a partition file, ascending. Files not
// matching the partition naming pattern are ignored.
func (db *DB) EventYears() ([]int, error) {
	entries, err := os.ReadDir(db.EventsDir())
	if err != nil {
		return nil, fmt.Errorf("list event partitions: %w", err)
	}

	years := make([]int, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := partitionName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		y, _ := strconv.Atoi(m[1])
		years = append(years, y)
	}
	return years, nil
}

// AllEvents concatenates every partition in enumeration order. The result is
// not sorted chronologically.
func (db *DB) AllEvents(ctx context.Context) ([]entities.Event, error) {
	years, err := db.EventYears()
	if err != nil {
		return nil, err
	}

	var all []entities.Event
	for _, y := range years {
		h, err := db.EventsForYear(ctx, y)
		if err != nil {
			return nil, err
		}
		all = append(all, h.Data.Events...)
	}
	return all, nil
}

// Lock acquires the in-process locks for paths in a fixed order and returns
// the function releasing them. Read-modify-write cycles on a file must hold
// its lock so concurrent requests do not lose each other's updates.
func (db *DB) Lock(paths ...string) (unlock func()) {
	uniq := make(map[string]struct{}, len(paths))
	ordered := make([]string, 0, len(paths))
	for _, p := range paths {
		p = filepath.Clean(p)
		if _, ok := uniq[p]; ok {
			continue
		}
		uniq[p] = struct{}{}
		ordered = append(ordered, p)
	}
	sort.Strings(ordered)

	held := make([]*sync.Mutex, 0, len(ordered))
	for _, p := range ordered {
		m := db.pathLock(p)
		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func (db *DB) pathLock(path string) *sync.Mutex {
	db.mu.Lock()
	defer db.mu.Unlock()

	m, ok := db.locks[path]
	if !ok {
		m = &sync.Mutex{}
		db.locks[path] = m
	}
	return m
}

// Update runs a locked load, mutate, write cycle on one document. If fn
// returns an error nothing is written.
func Update[T any](ctx context.Context, db *DB, path string, def T, fn func(*T) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := db.Lock(path)
	defer unlock()

	h, err := Open(ctx, path, def, db.observe)
	if err != nil {
		return err
	}
	if err := fn(&h.Data); err != nil {
		return err
	}
	return h.Write(ctx)
}

// UpdateUsers runs fn against users.json under its lock.
func (db *DB) UpdateUsers(ctx context.Context, fn func(*UsersDoc) error) error {
	return Update(ctx, db, db.UsersPath(), UsersDoc{Users: []entities.User{}}, fn)
}

// UpdateProjects runs fn against projects.json under its lock.
func (db *DB) UpdateProjects(ctx context.Context, fn func(*ProjectsDoc) error) error {
	return Update(ctx, db, db.ProjectsPath(), ProjectsDoc{Projects: []entities.Project{}}, fn)
}

// UpdateTeams runs fn against teams.json under its lock.
func (db *DB) UpdateTeams(ctx context.Context, fn func(*TeamsDoc) error) error {
	return Update(ctx, db, db.TeamsPath(), TeamsDoc{Teams: []entities.Team{}, Members: []entities.Member{}}, fn)
}

// UpdateEventsForYear runs fn against one event partition under its lock.
func (db *DB) UpdateEventsForYear(ctx context.Context, year int, fn func(*EventsDoc) error) error {
	return Update(ctx, db, db.EventsPath(year), EventsDoc{Events: []entities.Event{}}, fn)
}

// Ping checks that the data directory is reachable.
func (db *DB) Ping() error {
	_, err := os.Stat(db.dataDir)
	return err
}

// HealthCheck verifies the data directory is writable.
func (db *DB) HealthCheck() error {
	f, err := os.CreateTemp(db.dataDir, ".health-*")
	if err != nil {
		return fmt.Errorf("data directory health check failed: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// GetConnectionInfo returns store statistics
func (db *DB) GetConnectionInfo() map[string]interface{} {
	years, _ := db.EventYears()

	return map[string]interface{}{
		"driver":           config.DriverFile,
		"data_dir":         db.dataDir,
		"event_partitions": len(years),
		"loads":            db.loads.Load(),
		"writes":           db.writes.Load(),
		"failures":         db.failures.Load(),
	}
}

// Loads, Writes and Failures expose the operation counters.
func (db *DB) Loads() int64    { return db.loads.Load() }
func (db *DB) Writes() int64   { return db.writes.Load() }
func (db *DB) Failures() int64 { return db.failures.Load() }

func (db *DB) observe(op, path string, d time.Duration, err error) {
	switch op {
	case "write", "create":
		db.writes.Add(1)
	default:
		db.loads.Add(1)
	}
	if err != nil {
		db.failures.Add(1)
	}

	rel, relErr := filepath.Rel(db.dataDir, path)
	if relErr != nil {
		rel = path
	}
	db.logger.LogStoreOperation(op, rel, float64(d.Nanoseconds())/1e6, err)
}
