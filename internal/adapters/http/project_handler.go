package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/citc/clubhub/internal/infrastructure/logger"
	"github.com/citc/clubhub/internal/ports"
)

// ProjectHandler handles project-related requests
type ProjectHandler struct {
	projectService ports.ProjectService
	logger         *logger.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectService ports.ProjectService, logger *logger.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		logger:         logger,
	}
}

// CreateProject godoc
// @Summary Create a new project
// @Description Create a new project with the provided details
// @Tags projects
// @Accept json
// @Produce json
// @Param request body ports.CreateProjectRequest true "Project data"
// @Success 201 {object} entities.Project
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /projects [post]
func (h *ProjectHandler) CreateProject(c echo.Context) error {
	userID := UserID(c)

	var req ports.CreateProjectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	project, err := h.projectService.CreateProject(c.Request().Context(), userID, req)
	if err != nil {
		h.logger.Errorw("Create project failed", "error", err, "user_id", userID)
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, project)
}

// GetProject godoc
// @Summary Get project by ID
// @Description Get project information with contributors resolved
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} entities.ProjectView
// @Failure 404 {object} ports.ErrorResponse
// @Router /projects/{id} [get]
func (h *ProjectHandler) GetProject(c echo.Context) error {
	project, err := h.projectService.GetProject(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, project)
}

// ListProjects godoc
// @Summary List projects
// @Tags projects
// @Produce json
// @Success 200 {array} entities.ProjectView
// @Router /projects [get]
func (h *ProjectHandler) ListProjects(c echo.Context) error {
	projects, err := h.projectService.ListProjects(c.Request().Context())
	if err != nil {
		h.logger.Errorw("List projects failed", "error", err)
		return mapError(err)
	}

	return c.JSON(http.StatusOK, projects)
}
