package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/citc/clubhub/internal/infrastructure/logger"
	"github.com/citc/clubhub/internal/ports"
)

// EventHandler handles event requests
type EventHandler struct {
	eventService ports.EventService
	logger       *logger.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService ports.EventService, logger *logger.Logger) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		logger:       logger,
	}
}

// ListEvents godoc
// @Summary List events
// @Description All events in start order, or a single year with ?year=
// @Tags events
// @Produce json
// @Param year query int false "Calendar year"
// @Success 200 {array} entities.Event
// @Failure 400 {object} ports.ErrorResponse
// @Router /events [get]
func (h *EventHandler) ListEvents(c echo.Context) error {
	ctx := c.Request().Context()

	if yearStr := c.QueryParam("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil || year < 1000 || year > 9999 {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid year parameter")
		}
		events, err := h.eventService.ListEventsForYear(ctx, year)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(http.StatusOK, events)
	}

	events, err := h.eventService.ListEvents(ctx)
	if err != nil {
		h.logger.Errorw("List events failed", "error", err)
		return mapError(err)
	}
	return c.JSON(http.StatusOK, events)
}

// ListYears returns the years that have events
func (h *EventHandler) ListYears(c echo.Context) error {
	years, err := h.eventService.Years(c.Request().Context())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string][]int{"years": years})
}

// GetEvent godoc
// @Summary Get event by slug
// @Tags events
// @Produce json
// @Param slug path string true "Event slug"
// @Success 200 {object} entities.EventDetail
// @Failure 404 {object} ports.ErrorResponse
// @Router /events/{slug} [get]
func (h *EventHandler) GetEvent(c echo.Context) error {
	event, err := h.eventService.GetEvent(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, event)
}

// CreateEvent godoc
// @Summary Create an event
// @Tags events
// @Accept json
// @Produce json
// @Param request body ports.CreateEventRequest true "Event data"
// @Success 201 {object} entities.Event
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /events [post]
func (h *EventHandler) CreateEvent(c echo.Context) error {
	var req ports.CreateEventRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	event, err := h.eventService.CreateEvent(c.Request().Context(), UserID(c), req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, event)
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Changing startAt to another year moves the event to that year
// @Tags events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param request body ports.UpdateEventRequest true "Fields to change"
// @Success 200 {object} entities.Event
// @Security BearerAuth
// @Router /events/{id} [put]
func (h *EventHandler) UpdateEvent(c echo.Context) error {
	var req ports.UpdateEventRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	event, err := h.eventService.UpdateEvent(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, event)
}

func (h *EventHandler) DeleteEvent(c echo.Context) error {
	if err := h.eventService.DeleteEvent(c.Request().Context(), c.Param("id")); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Event removed"})
}

// RSVP godoc
// @Summary RSVP to an event
// @Tags events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} entities.Event
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /events/{id}/rsvp [post]
func (h *EventHandler) RSVP(c echo.Context) error {
	event, err := h.eventService.RSVP(c.Request().Context(), c.Param("id"), UserID(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, event)
}
