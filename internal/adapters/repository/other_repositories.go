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

// TeamRepositoryImpl implements the TeamRepository interface over teams.json
type TeamRepositoryImpl struct {
	db *database.DB
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db *database.DB) ports.TeamRepository {
	return &TeamRepositoryImpl{db: db}
}

func (r *TeamRepositoryImpl) ListTeams(ctx context.Context) ([]*entities.Team, error) {
	h, err := r.db.Teams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	teams := make([]*entities.Team, len(h.Data.Teams))
	for i := range h.Data.Teams {
		t := h.Data.Teams[i]
		teams[i] = &t
	}
	return teams, nil
}

func (r *TeamRepositoryImpl) GetTeam(ctx context.Context, id string) (*entities.Team, error) {
	h, err := r.db.Teams(ctx)
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	for i := range h.Data.Teams {
		if h.Data.Teams[i].ID == id {
			t := h.Data.Teams[i]
			return &t, nil
		}
	}
	return nil, entities.ErrTeamNotFound
}

func (r *TeamRepositoryImpl) CreateTeam(ctx context.Context, team *entities.Team) error {
	if team.ID == "" {
		team.ID = uuid.New().String()
	}

	err := r.db.UpdateTeams(ctx, func(doc *database.TeamsDoc) error {
		for i := range doc.Teams {
			if doc.Teams[i].ID == team.ID {
				return fmt.Errorf("%w: team %s exists", entities.ErrConflict, team.ID)
			}
		}
		doc.Teams = append(doc.Teams, *team)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create team: %w", err)
	}
	return nil
}

func (r *TeamRepositoryImpl) CountTeams(ctx context.Context) (int64, error) {
	h, err := r.db.Teams(ctx)
	if err != nil {
		return 0, fmt.Errorf("count teams: %w", err)
	}
	return int64(len(h.Data.Teams)), nil
}

func (r *TeamRepositoryImpl) ListMembers(ctx context.Context) ([]*entities.Member, error) {
	h, err := r.db.Teams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]*entities.Member, len(h.Data.Members))
	for i := range h.Data.Members {
		m := h.Data.Members[i]
		members[i] = &m
	}
	return members, nil
}

func (r *TeamRepositoryImpl) GetMember(ctx context.Context, id string) (*entities.Member, error) {
	h, err := r.db.Teams(ctx)
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	for i := range h.Data.Members {
		if h.Data.Members[i].ID == id {
			m := h.Data.Members[i]
			return &m, nil
		}
	}
	return nil, entities.ErrMemberNotFound
}

func (r *TeamRepositoryImpl) CreateMember(ctx context.Context, member *entities.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	member.CreatedAt = now
	member.UpdatedAt = now

	err := r.db.UpdateTeams(ctx, func(doc *database.TeamsDoc) error {
		doc.Members = append(doc.Members, *member)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create member: %w", err)
	}
	return nil
}

func (r *TeamRepositoryImpl) UpdateMember(ctx context.Context, member *entities.Member) error {
	member.UpdatedAt = time.Now().UTC()

	err := r.db.UpdateTeams(ctx, func(doc *database.TeamsDoc) error {
		for i := range doc.Members {
			if doc.Members[i].ID == member.ID {
				doc.Members[i] = *member
				return nil
			}
		}
		return entities.ErrMemberNotFound
	})
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	return nil
}

func (r *TeamRepositoryImpl) DeleteMember(ctx context.Context, id string) error {
	err := r.db.UpdateTeams(ctx, func(doc *database.TeamsDoc) error {
		for i := range doc.Members {
			if doc.Members[i].ID == id {
				doc.Members = append(doc.Members[:i], doc.Members[i+1:]...)
				return nil
			}
		}
		return entities.ErrMemberNotFound
	})
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}

func (r *TeamRepositoryImpl) Replace(ctx context.Context, teams []entities.Team, members []entities.Member) error {
	err := r.db.UpdateTeams(ctx, func(doc *database.TeamsDoc) error {
		doc.Teams = append([]entities.Team{}, teams...)
		doc.Members = append([]entities.Member{}, members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace team directory: %w", err)
	}
	return nil
}

// ProjectRepositoryImpl implements the ProjectRepository interface over
// projects.json
type ProjectRepositoryImpl struct {
	db *database.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *database.DB) ports.ProjectRepository {
	return &ProjectRepositoryImpl{db: db}
}

func (r *ProjectRepositoryImpl) Create(ctx context.Context, project *entities.Project) error {
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	err := r.db.UpdateProjects(ctx, func(doc *database.ProjectsDoc) error {
		doc.Projects = append(doc.Projects, *project)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *ProjectRepositoryImpl) GetByID(ctx context.Context, id string) (*entities.Project, error) {
	h, err := r.db.Projects(ctx)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	for i := range h.Data.Projects {
		if h.Data.Projects[i].ID == id {
			p := h.Data.Projects[i]
			return &p, nil
		}
	}
	return nil, entities.ErrProjectNotFound
}

func (r *ProjectRepositoryImpl) List(ctx context.Context) ([]*entities.Project, error) {
	h, err := r.db.Projects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects := make([]*entities.Project, len(h.Data.Projects))
	for i := range h.Data.Projects {
		p := h.Data.Projects[i]
		projects[i] = &p
	}
	return projects, nil
}

// NewFileRepositories wires every repository over one storage context.
func NewFileRepositories(db *database.DB) ports.Repositories {
	return ports.Repositories{
		Users:    NewUserRepository(db),
		Events:   NewEventRepository(db),
		Teams:    NewTeamRepository(db),
		Projects: NewProjectRepository(db),
	}
}
