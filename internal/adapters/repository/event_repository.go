package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/citc/clubhub/internal/domain/entities"
	"github.com/citc/clubhub/internal/infrastructure/database"
	"github.com/citc/clubhub/internal/ports"
)

// EventRepositoryImpl stores events in one file per start year under the
// events directory.
type EventRepositoryImpl struct {
	db *database.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *database.DB) ports.EventRepository {
	return &EventRepositoryImpl{db: db}
}

func (r *EventRepositoryImpl) ListYear(ctx context.Context, year int) ([]*entities.Event, error) {
	h, err := r.db.EventsForYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("list events for %d: %w", year, err)
	}
	return eventPtrs(h.Data.Events), nil
}

func (r *EventRepositoryImpl) List(ctx context.Context) ([]*entities.Event, error) {
	events, err := r.db.AllEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return eventPtrs(events), nil
}

func (r *EventRepositoryImpl) Years(ctx context.Context) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.db.EventYears()
}

func (r *EventRepositoryImpl) GetByID(ctx context.Context, id string) (*entities.Event, error) {
	ev, _, err := r.find(ctx, func(e *entities.Event) bool { return e.ID == id })
	return ev, err
}

func (r *EventRepositoryImpl) GetBySlug(ctx context.Context, slug string) (*entities.Event, error) {
	ev, _, err := r.find(ctx, func(e *entities.Event) bool { return e.Slug == slug })
	return ev, err
}

// Create appends the event to the partition of its start year. ID, attendees
// and timestamps are assigned here.
func (r *EventRepositoryImpl) Create(ctx context.Context, event *entities.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	event.Attendees = []string{}
	event.CreatedAt = now
	event.UpdatedAt = now
	event.Normalize()

	err := r.db.UpdateEventsForYear(ctx, event.Year(), func(doc *database.EventsDoc) error {
		doc.Events = append(doc.Events, *event)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update replaces the editable fields of the stored record. Attendees and
// creation fields are taken from the record read under the partition lock, so
// an RSVP landing between the caller's read and this write is kept. When the
// start year changes the record is removed from the old partition and
// appended to the new one; the old file is written first. The two writes are
// not atomic as a pair.
func (r *EventRepositoryImpl) Update(ctx context.Context, event *entities.Event) error {
	_, oldYear, err := r.find(ctx, func(e *entities.Event) bool { return e.ID == event.ID })
	if err != nil {
		return err
	}

	event.UpdatedAt = time.Now().UTC()
	newYear := event.Year()

	if oldYear == newYear {
		err := r.db.UpdateEventsForYear(ctx, oldYear, func(doc *database.EventsDoc) error {
			i := indexOfEvent(doc.Events, event.ID)
			if i < 0 {
				return entities.ErrEventNotFound
			}
			keepStored(event, &doc.Events[i])
			doc.Events[i] = *event
			return nil
		})
		if err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		return nil
	}

	unlock := r.db.Lock(r.db.EventsPath(oldYear), r.db.EventsPath(newYear))
	defer unlock()

	from, err := r.db.EventsForYear(ctx, oldYear)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	i := indexOfEvent(from.Data.Events, event.ID)
	if i < 0 {
		return entities.ErrEventNotFound
	}
	to, err := r.db.EventsForYear(ctx, newYear)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}

	keepStored(event, &from.Data.Events[i])
	from.Data.Events = append(from.Data.Events[:i], from.Data.Events[i+1:]...)
	to.Data.Events = append(to.Data.Events, *event)

	if err := from.Write(ctx); err != nil {
		return fmt.Errorf("update event: remove from %d: %w", oldYear, err)
	}
	if err := to.Write(ctx); err != nil {
		return fmt.Errorf("update event: insert into %d: %w", newYear, err)
	}
	return nil
}

func (r *EventRepositoryImpl) Delete(ctx context.Context, id string) error {
	_, year, err := r.find(ctx, func(e *entities.Event) bool { return e.ID == id })
	if err != nil {
		return err
	}

	return r.db.UpdateEventsForYear(ctx, year, func(doc *database.EventsDoc) error {
		i := indexOfEvent(doc.Events, id)
		if i < 0 {
			return entities.ErrEventNotFound
		}
		doc.Events = append(doc.Events[:i], doc.Events[i+1:]...)
		return nil
	})
}

func (r *EventRepositoryImpl) RSVP(ctx context.Context, eventID, userID string) (*entities.Event, error) {
	_, year, err := r.find(ctx, func(e *entities.Event) bool { return e.ID == eventID })
	if err != nil {
		return nil, err
	}

	var updated entities.Event
	err = r.db.UpdateEventsForYear(ctx, year, func(doc *database.EventsDoc) error {
		i := indexOfEvent(doc.Events, eventID)
		if i < 0 {
			return entities.ErrEventNotFound
		}
		ev := &doc.Events[i]
		if ev.HasAttendee(userID) {
			return entities.ErrAlreadyRSVPed
		}
		ev.Attendees = append(ev.Attendees, userID)
		ev.UpdatedAt = time.Now().UTC()
		updated = *ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// find scans the partitions in ascending year order and returns the first
// match together with the year of the partition it was found in.
func (r *EventRepositoryImpl) find(ctx context.Context, match func(*entities.Event) bool) (*entities.Event, int, error) {
	years, err := r.db.EventYears()
	if err != nil {
		return nil, 0, err
	}

	for _, y := range years {
		h, err := r.db.EventsForYear(ctx, y)
		if err != nil {
			return nil, 0, err
		}
		for i := range h.Data.Events {
			if match(&h.Data.Events[i]) {
				ev := h.Data.Events[i]
				return &ev, y, nil
			}
		}
	}
	return nil, 0, entities.ErrEventNotFound
}

// keepStored copies the fields an edit never changes from the stored record
// onto event.
func keepStored(event, stored *entities.Event) {
	event.Attendees = append([]string(nil), stored.Attendees...)
	event.CreatedBy = stored.CreatedBy
	event.CreatedAt = stored.CreatedAt
	event.Normalize()
}

func indexOfEvent(events []entities.Event, id string) int {
	for i := range events {
		if events[i].ID == id {
			return i
		}
	}
	return -1
}

func eventPtrs(events []entities.Event) []*entities.Event {
	out := make([]*entities.Event, len(events))
	for i := range events {
		ev := events[i]
		ev.Normalize()
		out[i] = &ev
	}
	return out
}
