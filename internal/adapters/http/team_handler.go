package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/citc/clubhub/internal/infrastructure/logger"
	"github.com/citc/clubhub/internal/ports"
)

// TeamHandler handles the team directory
type TeamHandler struct {
	teamService ports.TeamService
	logger      *logger.Logger
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(teamService ports.TeamService, logger *logger.Logger) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
		logger:      logger,
	}
}

// Directory godoc
// @Summary Team directory
// @Description Every team and every member with team names resolved
// @Tags team
// @Produce json
// @Success 200 {object} ports.Directory
// @Router /team [get]
func (h *TeamHandler) Directory(c echo.Context) error {
	dir, err := h.teamService.Directory(c.Request().Context())
	if err != nil {
		h.logger.Errorw("Team directory failed", "error", err)
		return mapError(err)
	}
	return c.JSON(http.StatusOK, dir)
}

// Grouped godoc
// @Summary Active members grouped by team
// @Tags team
// @Produce json
// @Success 200 {array} ports.TeamGroup
// @Router /team/grouped [get]
func (h *TeamHandler) Grouped(c echo.Context) error {
	groups, err := h.teamService.Grouped(c.Request().Context())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, groups)
}

func (h *TeamHandler) ListTeams(c echo.Context) error {
	teams, err := h.teamService.ListTeams(c.Request().Context())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, teams)
}

func (h *TeamHandler) CreateTeam(c echo.Context) error {
	var req ports.CreateTeamRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	team, err := h.teamService.CreateTeam(c.Request().Context(), req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, team)
}

// GetMember godoc
// @Summary Get a team member
// @Tags team
// @Produce json
// @Param id path string true "Member ID"
// @Success 200 {object} entities.MemberView
// @Failure 404 {object} ports.ErrorResponse
// @Router /team/{id} [get]
func (h *TeamHandler) GetMember(c echo.Context) error {
	member, err := h.teamService.GetMember(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, member)
}

// CreateMember godoc
// @Summary Add a team member
// @Tags team
// @Accept json
// @Produce json
// @Param request body ports.CreateMemberRequest true "Member data"
// @Success 201 {object} entities.Member
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /team [post]
func (h *TeamHandler) CreateMember(c echo.Context) error {
	var req ports.CreateMemberRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Name == "" || req.Role == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Name and role are required")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	member, err := h.teamService.CreateMember(c.Request().Context(), UserID(c), req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, member)
}

func (h *TeamHandler) UpdateMember(c echo.Context) error {
	var req ports.UpdateMemberRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	member, err := h.teamService.UpdateMember(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, member)
}

func (h *TeamHandler) DeleteMember(c echo.Context) error {
	if err := h.teamService.DeleteMember(c.Request().Context(), c.Param("id")); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Team member removed"})
}
