package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/citc/clubhub/internal/domain/entities"
	"github.com/citc/clubhub/internal/infrastructure/logger"
	"github.com/citc/clubhub/internal/ports"
)

// EventService handles event listing, editing and RSVPs
type EventService struct {
	eventRepo ports.EventRepository
	userRepo  ports.UserRepository
	logger    *logger.Logger
}

// NewEventService creates a new event service
func NewEventService(eventRepo ports.EventRepository, userRepo ports.UserRepository, logger *logger.Logger) *EventService {
	return &EventService{
		eventRepo: eventRepo,
		userRepo:  userRepo,
		logger:    logger,
	}
}

// ListEvents returns every event ordered by start time
func (s *EventService) ListEvents(ctx context.Context) ([]*entities.Event, error) {
	events, err := s.eventRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	sortByStart(events)
	return events, nil
}

// ListEventsForYear returns the events of one year ordered by start time
func (s *EventService) ListEventsForYear(ctx context.Context, year int) ([]*entities.Event, error) {
	events, err := s.eventRepo.ListYear(ctx, year)
	if err != nil {
		return nil, err
	}
	sortByStart(events)
	return events, nil
}

func (s *EventService) Years(ctx context.Context) ([]int, error) {
	return s.eventRepo.Years(ctx)
}

// GetEvent looks an event up by slug and resolves its creator. A creator
// that no longer exists renders as null.
func (s *EventService) GetEvent(ctx context.Context, slug string) (*entities.EventDetail, error) {
	ev, err := s.eventRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	detail := &entities.EventDetail{Event: *ev}
	if ev.CreatedBy == "" {
		return detail, nil
	}

	creator, err := s.userRepo.GetByID(ctx, ev.CreatedBy)
	switch {
	case err == nil:
		detail.CreatedBy = &entities.UserRef{ID: creator.ID, Name: creator.Name}
	case errors.Is(err, entities.ErrNotFound):
		s.logger.Debugw("Event creator not found", "event_id", ev.ID, "created_by", ev.CreatedBy)
	default:
		return nil, err
	}
	return detail, nil
}

// CreateEvent validates the request and stores the event in the partition of
// its start year.
func (s *EventService) CreateEvent(ctx context.Context, userID string, req ports.CreateEventRequest) (*entities.Event, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Description) == "" || strings.TrimSpace(req.Location) == "" {
		return nil, fmt.Errorf("%w: title, description and location are required", entities.ErrValidation)
	}
	if req.StartAt.IsZero() || req.EndAt.IsZero() {
		return nil, fmt.Errorf("%w: startAt and endAt are required", entities.ErrValidation)
	}
	if err := validateSchedule(req.StartAt, req.EndAt); err != nil {
		return nil, err
	}

	eventType := req.Type
	if eventType == "" {
		eventType = entities.EventTypeWorkshop
	}
	if !eventType.Valid() {
		return nil, fmt.Errorf("%w: unknown event type %q", entities.ErrValidation, eventType)
	}

	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = entities.Slugify(req.Title)
	}

	ev := &entities.Event{
		Title:       strings.TrimSpace(req.Title),
		Slug:        slug,
		Description: req.Description,
		Type:        eventType,
		StartAt:     req.StartAt.UTC(),
		EndAt:       req.EndAt.UTC(),
		Location:    req.Location,
		Capacity:    req.Capacity,
		Image:       req.Image,
		CoverImage:  req.CoverImage,
		Gallery:     req.Gallery,
		Tags:        req.Tags,
		Organizer:   req.Organizer,
		Attachments: req.Attachments,
		CreatedBy:   userID,
	}

	if err := s.eventRepo.Create(ctx, ev); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.logger.LogUserAction(userID, "create_event", map[string]interface{}{
		"event_id": ev.ID,
		"year":     ev.Year(),
	})

	return ev, nil
}

// UpdateEvent merges the fields present in req into the stored event. A new
// start time in another year moves the event to that year's partition.
func (s *EventService) UpdateEvent(ctx context.Context, id string, req ports.UpdateEventRequest) (*entities.Event, error) {
	ev, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldYear := ev.Year()

	if req.Title != nil {
		ev.Title = *req.Title
	}
	if req.Slug != nil {
		ev.Slug = *req.Slug
	}
	if req.Description != nil {
		ev.Description = *req.Description
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return nil, fmt.Errorf("%w: unknown event type %q", entities.ErrValidation, *req.Type)
		}
		ev.Type = *req.Type
	}
	if req.StartAt != nil {
		ev.StartAt = req.StartAt.UTC()
	}
	if req.EndAt != nil {
		ev.EndAt = req.EndAt.UTC()
	}
	if req.Location != nil {
		ev.Location = *req.Location
	}
	if req.Capacity != nil {
		ev.Capacity = *req.Capacity
	}
	if req.Image != nil {
		ev.Image = *req.Image
	}
	if req.CoverImage != nil {
		ev.CoverImage = *req.CoverImage
	}
	if req.Gallery != nil {
		ev.Gallery = req.Gallery
	}
	if req.Tags != nil {
		ev.Tags = req.Tags
	}
	if req.Organizer != nil {
		ev.Organizer = *req.Organizer
	}
	if req.Attachments != nil {
		ev.Attachments = req.Attachments
	}

	if err := validateSchedule(ev.StartAt, ev.EndAt); err != nil {
		return nil, err
	}

	if err := s.eventRepo.Update(ctx, ev); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	if newYear := ev.Year(); newYear != oldYear {
		s.logger.Infow("Event moved between partitions", "event_id", ev.ID, "from", oldYear, "to", newYear)
	}
	return ev, nil
}

func (s *EventService) DeleteEvent(ctx context.Context, id string) error {
	if err := s.eventRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Infow("Event deleted", "event_id", id)
	return nil
}

// RSVP registers userID as an attendee
func (s *EventService) RSVP(ctx context.Context, eventID, userID string) (*entities.Event, error) {
	ev, err := s.eventRepo.RSVP(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	s.logger.LogUserAction(userID, "rsvp", map[string]interface{}{"event_id": eventID})
	return ev, nil
}

// validateSchedule checks both timestamps fall in a storable year and that
// the event does not end before it starts. A zero endAt is left alone.
func validateSchedule(start, end time.Time) error {
	if !entities.InEventRange(start) {
		return fmt.Errorf("%w: startAt must fall between years %d and %d (UTC)", entities.ErrValidation, entities.MinEventYear, entities.MaxEventYear)
	}
	if end.IsZero() {
		return nil
	}
	if !entities.InEventRange(end) {
		return fmt.Errorf("%w: endAt must fall between years %d and %d (UTC)", entities.ErrValidation, entities.MinEventYear, entities.MaxEventYear)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: endAt must not precede startAt", entities.ErrValidation)
	}
	return nil
}

func sortByStart(events []*entities.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartAt.Before(events[j].StartAt)
	})
}
