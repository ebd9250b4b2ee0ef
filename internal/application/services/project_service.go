package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/citc/clubhub/internal/domain/entities"
	"github.com/citc/clubhub/internal/infrastructure/logger"
	"github.com/citc/clubhub/internal/ports"
)

// ProjectService handles project-related operations
type ProjectService struct {
	projectRepo ports.ProjectRepository
	userRepo    ports.UserRepository
	logger      *logger.Logger
}

// NewProjectService creates a new project service
func NewProjectService(projectRepo ports.ProjectRepository, userRepo ports.UserRepository, logger *logger.Logger) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		userRepo:    userRepo,
		logger:      logger,
	}
}

// CreateProject creates a new project. When no contributors are given the
// creating user is listed as the only one.
func (s *ProjectService) CreateProject(ctx context.Context, userID string, req ports.CreateProjectRequest) (*entities.Project, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.ShortDesc) == "" {
		return nil, fmt.Errorf("%w: title and shortDesc are required", entities.ErrValidation)
	}

	contributors := req.Contributors
	if len(contributors) == 0 && userID != "" {
		contributors = []string{userID}
	}

	project := &entities.Project{
		Title:        strings.TrimSpace(req.Title),
		ShortDesc:    req.ShortDesc,
		LongDesc:     req.LongDesc,
		Images:       nonNil(req.Images),
		Contributors: contributors,
		RepoURL:      req.RepoURL,
		Tags:         nonNil(req.Tags),
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.logger.Infow("Project created successfully", "project_id", project.ID, "title", project.Title)

	return project, nil
}

// GetProject retrieves a project with its contributors resolved
func (s *ProjectService) GetProject(ctx context.Context, id string) (*entities.ProjectView, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	names, err := s.userNames(ctx)
	if err != nil {
		return nil, err
	}
	view := projectView(project, names)
	return &view, nil
}

// ListProjects lists all projects with contributors resolved
func (s *ProjectService) ListProjects(ctx context.Context) ([]entities.ProjectView, error) {
	projects, err := s.projectRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	names, err := s.userNames(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]entities.ProjectView, 0, len(projects))
	for _, p := range projects {
		views = append(views, projectView(p, names))
	}
	return views, nil
}

func (s *ProjectService) userNames(ctx context.Context) (map[string]string, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names, nil
}

// projectView drops contributors that no longer resolve to a user.
func projectView(p *entities.Project, names map[string]string) entities.ProjectView {
	refs := make([]entities.UserRef, 0, len(p.Contributors))
	for _, id := range p.Contributors {
		if name, ok := names[id]; ok {
			refs = append(refs, entities.UserRef{ID: id, Name: name})
		}
	}
	return entities.ProjectView{Project: *p, Contributors: refs}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
