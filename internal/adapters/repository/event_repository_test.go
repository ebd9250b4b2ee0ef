package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/citc/clubhub/internal/domain/entities"
	"github.com/citc/clubhub/internal/infrastructure/config"
	"github.com/citc/clubhub/internal/infrastructure/database"
)

func newFileDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(config.DatabaseConfig{Driver: config.DriverFile, DataDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("database.New failed: %v", err)
	}
	return db
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func partitionIDs(t *testing.T, db *database.DB, year int) []string {
	t.Helper()
	h, err := db.EventsForYear(context.Background(), year)
	if err != nil {
		t.Fatal(err)
	}
	ids := make([]string, 0, len(h.Data.Events))
	for _, e := range h.Data.Events {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestEventRepository_CreateLandsInStartYearPartition(t *testing.T) {
	ctx := context.Background()
	db := newFileDB(t)
	repo := NewEventRepository(db)

	ev := &entities.Event{Title: "Kickoff", Slug: "kickoff", StartAt: mustTime(t, "2025-03-01T00:00:00Z")}
	if err := repo.Create(ctx, ev); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if ev.ID == "" {
		t.Fatal("expected id to be assigned")
	}
	if ev.Attendees == nil || len(ev.Attendees) != 0 {
		t.Errorf("expected empty attendee list, got %v", ev.Attendees)
	}

	if ids := partitionIDs(t, db, 2025); len(ids) != 1 || ids[0] != ev.ID {
		t.Errorf("expected event in 2025 partition, got %v", ids)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 1 || all[0].ID != ev.ID {
		t.Errorf("expected event in aggregate read, got %d events", len(all))
	}
}

func TestEventRepository_PartitionUsesUTCYear(t *testing.T) {
	ctx := context.Background()
	db := newFileDB(t)
	repo := NewEventRepository(db)

	// 2025-01-01 01:00 in UTC+05:45 is still 2024 in UTC.
	loc := time.FixedZone("NPT", 5*3600+45*60)
	ev := &entities.Event{Title: "New Year", StartAt: time.Date(2025, 1, 1, 1, 0, 0, 0, loc)}
	if err := repo.Create(ctx, ev); err != nil {
		t.Fatal(err)
	}

	if ids := partitionIDs(t, db, 2024); len(ids) != 1 {
		t.Errorf("expected event in 2024 partition, got %v", ids)
	}
}

func TestEventRepository_UpdateMovesAcrossYears(t *testing.T) {
	ctx := context.Background()
	db := newFileDB(t)
	repo := NewEventRepository(db)

	ev := &entities.Event{Title: "Hack", Slug: "hack", StartAt: mustTime(t, "2025-03-01T00:00:00Z")}
	if err := repo.Create(ctx, ev); err != nil {
		t.Fatal(err)
	}

	ev.StartAt = mustTime(t, "2026-01-01T00:00:00Z")
	if err := repo.Update(ctx, ev); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if ids := partitionIDs(t, db, 2025); len(ids) != 0 {
		t.Errorf("expected 2025 partition to be empty, got %v", ids)
	}
	if ids := partitionIDs(t, db, 2026); len(ids) != 1 || ids[0] != ev.ID {
		t.Errorf("expected event in 2026 partition, got %v", ids)
	}

	got, err := repo.GetByID(ctx, ev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Year() != 2026 {
		t.Errorf("expected year 2026, got %d", got.Year())
	}
}

func TestEventRepository_UpdateSameYearPatchesInPlace(t *testing.T) {
	ctx := context.Background()
	db := newFileDB(t)
	repo := NewEventRepository(db)

	first := &entities.Event{Title: "A", StartAt: mustTime(t, "2025-02-01T00:00:00Z")}
	second := &entities.Event{Title: "B", StartAt: mustTime(t, "2025-04-01T00:00:00Z")}
	for _, e := range []*entities.Event{first, second} {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	first.Title = "A (renamed)"
	first.StartAt = mustTime(t, "2025-12-31T00:00:00Z")
	if err := repo.Update(ctx, first); err != nil {
		t.Fatal(err)
	}

	events, err := repo.ListYear(ctx, 2025)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0].ID != first.ID || events[0].Title != "A (renamed)" {
		t.Errorf("expected in-place update preserving order, got %+v", events)
	}
}

func TestEventRepository_UpdateMissing(t *testing.T) {
	repo := NewEventRepository(newFileDB(t))

	err := repo.Update(context.Background(), &entities.Event{ID: "nope", StartAt: time.Now()})
	if !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEventRepository_DeleteMissingLeavesFilesUnchanged(t *testing.T) {
	ctx := context.Background()
	db := newFileDB(t)
	repo := NewEventRepository(db)

	ev := &entities.Event{Title: "Keep", StartAt: mustTime(t, "2025-05-05T00:00:00Z")}
	if err := repo.Create(ctx, ev); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(db.EventsPath(2025))
	if err != nil {
		t.Fatal(err)
	}

	if err := repo.Delete(ctx, "missing"); !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	after, err := os.ReadFile(db.EventsPath(2025))
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("partition file changed after failed delete")
	}
}

func TestEventRepository_Delete(t *testing.T) {
	ctx := context.Background()
	db := newFileDB(t)
	repo := NewEventRepository(db)

	ev := &entities.Event{Title: "Gone", StartAt: mustTime(t, "2024-05-05T00:00:00Z")}
	if err := repo.Create(ctx, ev); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, ev.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.GetByID(ctx, ev.ID); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("expected deleted event to be gone, got %v", err)
	}
}

func TestEventRepository_RSVPTwiceConflicts(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(newFileDB(t))

	ev := &entities.Event{Title: "Talk", StartAt: mustTime(t, "2025-06-01T00:00:00Z")}
	if err := repo.Create(ctx, ev); err != nil {
		t.Fatal(err)
	}

	got, err := repo.RSVP(ctx, ev.ID, "u1")
	if err != nil {
		t.Fatalf("first RSVP failed: %v", err)
	}
	if len(got.Attendees) != 1 {
		t.Fatalf("expected 1 attendee, got %v", got.Attendees)
	}

	_, err = repo.RSVP(ctx, ev.ID, "u1")
	if !errors.Is(err, entities.ErrAlreadyRSVPed) || !errors.Is(err, entities.ErrConflict) {
		t.Fatalf("expected ErrAlreadyRSVPed, got %v", err)
	}

	stored, err := repo.GetByID(ctx, ev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Attendees) != 1 {
		t.Errorf("expected attendee list unchanged, got %v", stored.Attendees)
	}
}

func TestEventRepository_ConcurrentRSVPsAllLand(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(newFileDB(t))

	ev := &entities.Event{Title: "Popular", StartAt: mustTime(t, "2025-07-01T00:00:00Z")}
	if err := repo.Create(ctx, ev); err != nil {
		t.Fatal(err)
	}

	const users = 15
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := repo.RSVP(ctx, ev.ID, fmt.Sprintf("user-%d", i)); err != nil {
				t.Errorf("RSVP %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	stored, err := repo.GetByID(ctx, ev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Attendees) != users {
		t.Errorf("expected %d attendees, got %d", users, len(stored.Attendees))
	}
}

func TestEventRepository_GetBySlugAndYears(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(newFileDB(t))

	for i, start := range []string{"2026-01-10T00:00:00Z", "2023-01-10T00:00:00Z"} {
		ev := &entities.Event{Title: fmt.Sprintf("E%d", i), Slug: fmt.Sprintf("e-%d", i), StartAt: mustTime(t, start)}
		if err := repo.Create(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.GetBySlug(ctx, "e-1")
	if err != nil {
		t.Fatalf("GetBySlug failed: %v", err)
	}
	if got.Year() != 2023 {
		t.Errorf("expected 2023 event, got %d", got.Year())
	}

	if _, err := repo.GetBySlug(ctx, "missing"); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	years, err := repo.Years(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(years) != "[2023 2026]" {
		t.Errorf("expected [2023 2026], got %v", years)
	}
}
