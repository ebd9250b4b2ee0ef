package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/citc/clubhub/internal/domain/entities"
	"github.com/citc/clubhub/internal/infrastructure/logger"
	"github.com/citc/clubhub/internal/ports"
)

// TeamService manages teams and the member directory
type TeamService struct {
	teamRepo ports.TeamRepository
	logger   *logger.Logger
}

// NewTeamService creates a new team service
func NewTeamService(teamRepo ports.TeamRepository, logger *logger.Logger) *TeamService {
	return &TeamService{
		teamRepo: teamRepo,
		logger:   logger,
	}
}

// Directory returns every team and every member, members ordered by their
// display order then name.
func (s *TeamService) Directory(ctx context.Context) (*ports.Directory, error) {
	teams, err := s.teamRepo.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	members, err := s.teamRepo.ListMembers(ctx)
	if err != nil {
		return nil, err
	}

	return &ports.Directory{
		Teams:   teams,
		Members: resolveMembers(teams, members, false),
	}, nil
}

// Grouped returns the active members of each team in team order. Members
// whose team does not exist are collected under an "unknown" group at the end.
func (s *TeamService) Grouped(ctx context.Context) ([]ports.TeamGroup, error) {
	teams, err := s.teamRepo.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	members, err := s.teamRepo.ListMembers(ctx)
	if err != nil {
		return nil, err
	}

	groups := make([]ports.TeamGroup, 0, len(teams)+1)
	index := make(map[string]int, len(teams))
	for _, t := range teams {
		index[t.ID] = len(groups)
		groups = append(groups, ports.TeamGroup{Team: *t, Members: []entities.MemberView{}})
	}

	var orphans []entities.MemberView
	for _, mv := range resolveMembers(teams, members, true) {
		if i, ok := index[mv.TeamID]; ok {
			groups[i].Members = append(groups[i].Members, mv)
			continue
		}
		orphans = append(orphans, mv)
	}
	if len(orphans) > 0 {
		groups = append(groups, ports.TeamGroup{
			Team:    entities.Team{ID: entities.UnknownTeam, Name: entities.UnknownTeam},
			Members: orphans,
		})
	}
	return groups, nil
}

func (s *TeamService) ListTeams(ctx context.Context) ([]*entities.Team, error) {
	return s.teamRepo.ListTeams(ctx)
}

func (s *TeamService) CreateTeam(ctx context.Context, req ports.CreateTeamRequest) (*entities.Team, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", entities.ErrValidation)
	}

	team := &entities.Team{Name: name, Year: req.Year}
	if err := s.teamRepo.CreateTeam(ctx, team); err != nil {
		return nil, err
	}
	s.logger.Infow("Team created", "team_id", team.ID, "name", team.Name)
	return team, nil
}

// GetMember returns a member with its team name resolved
func (s *TeamService) GetMember(ctx context.Context, id string) (*entities.MemberView, error) {
	m, err := s.teamRepo.GetMember(ctx, id)
	if err != nil {
		return nil, err
	}
	teams, err := s.teamRepo.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	view := resolveMembers(teams, []*entities.Member{m}, false)[0]
	return &view, nil
}

func (s *TeamService) CreateMember(ctx context.Context, userID string, req ports.CreateMemberRequest) (*entities.Member, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Role) == "" {
		return nil, fmt.Errorf("%w: name and role are required", entities.ErrValidation)
	}

	memberType := req.Type
	if memberType == "" {
		memberType = entities.MemberTypeRegular
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	m := &entities.Member{
		Name:       strings.TrimSpace(req.Name),
		Email:      req.Email,
		Role:       req.Role,
		Type:       memberType,
		TeamID:     req.TeamID,
		Year:       req.Year,
		MemberYear: req.MemberYear,
		Semester:   req.Semester,
		Title:      req.Title,
		Department: req.Department,
		Photo:      req.Photo,
		Socials:    req.Socials,
		Order:      req.Order,
		IsActive:   active,
		CreatedBy:  userID,
	}

	if err := s.teamRepo.CreateMember(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	s.logger.LogUserAction(userID, "create_member", map[string]interface{}{"member_id": m.ID})
	return m, nil
}

// UpdateMember applies the fields present in req
func (s *TeamService) UpdateMember(ctx context.Context, id string, req ports.UpdateMemberRequest) (*entities.Member, error) {
	m, err := s.teamRepo.GetMember(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		m.Name = *req.Name
	}
	if req.Role != nil {
		m.Role = *req.Role
	}
	if req.Email != nil {
		m.Email = *req.Email
	}
	if req.TeamID != nil {
		m.TeamID = *req.TeamID
	}
	if req.Year != nil {
		m.Year = *req.Year
	}
	if req.MemberYear != nil {
		m.MemberYear = *req.MemberYear
	}
	if req.Semester != nil {
		m.Semester = *req.Semester
	}
	if req.Title != nil {
		m.Title = *req.Title
	}
	if req.Department != nil {
		m.Department = *req.Department
	}
	if req.Photo != nil {
		m.Photo = *req.Photo
	}
	if req.Socials != nil {
		m.Socials = *req.Socials
	}
	if req.Order != nil {
		m.Order = *req.Order
	}
	if req.IsActive != nil {
		m.IsActive = *req.IsActive
	}

	if err := s.teamRepo.UpdateMember(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to update member: %w", err)
	}
	return m, nil
}

func (s *TeamService) DeleteMember(ctx context.Context, id string) error {
	if err := s.teamRepo.DeleteMember(ctx, id); err != nil {
		return err
	}
	s.logger.Infow("Team member removed", "member_id", id)
	return nil
}

// resolveMembers attaches team names and sorts by order then name. Dangling
// team references resolve to "unknown".
func resolveMembers(teams []*entities.Team, members []*entities.Member, activeOnly bool) []entities.MemberView {
	names := make(map[string]string, len(teams))
	for _, t := range teams {
		names[t.ID] = t.Name
	}

	views := make([]entities.MemberView, 0, len(members))
	for _, m := range members {
		if activeOnly && !m.IsActive {
			continue
		}
		name, ok := names[m.TeamID]
		if !ok {
			name = entities.UnknownTeam
		}
		views = append(views, entities.MemberView{Member: *m, TeamName: name})
	}

	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Order != views[j].Order {
			return views[i].Order < views[j].Order
		}
		return views[i].Name < views[j].Name
	})
	return views
}
