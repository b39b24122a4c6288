package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/project-management-api/internal/models"
	"github.com/taskhub/project-management-api/internal/repository"
	"github.com/taskhub/project-management-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrTeamNotFound       = errors.New("team not found")
	ErrInviteCodeInvalid  = errors.New("invite code not recognized")
	ErrAlreadyTeamMember  = errors.New("user is already a team member")
	ErrTeamMemberNotFound = errors.New("team member not found")
	ErrCannotRemoveOwner  = errors.New("team owner cannot be removed")
	ErrNotTeamOwner       = errors.New("only the team owner may do this")
)

// TeamService handles team business logic
type TeamService struct {
	teams repository.TeamRepository
	users repository.UserRepository
}

// NewTeamService creates a new TeamService
func NewTeamService(teams repository.TeamRepository, users repository.UserRepository) *TeamService {
	return &TeamService{teams: teams, users: users}
}

// CreateTeam creates a team with a fresh invite code and enrolls the creator
// as owner.
func (s *TeamService) CreateTeam(ownerID uuid.UUID, name, description string) (*models.Team, error) {
	if _, err := s.users.FindByID(ownerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	code, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, err
	}

	team := models.Team{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		InviteCode:  code,
	}
	if err := s.teams.Create(&team); err != nil {
		return nil, err
	}

	member := models.TeamMember{TeamID: team.ID, UserID: ownerID, Role: models.TeamRoleOwner, JoinedAt: time.Now()}
	if err := s.teams.AddMember(&member); err != nil {
		return nil, err
	}
	return &team, nil
}

// GetTeam returns one team.
func (s *TeamService) GetTeam(id uuid.UUID) (*models.Team, error) {
	team, err := s.teams.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

// UpdateTeam renames or re-describes the team; only the owner may do this.
func (s *TeamService) UpdateTeam(teamID, actorID uuid.UUID, name, description *string) (*models.Team, error) {
	team, err := s.teams.FindByID(teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	if team.OwnerID != actorID {
		return nil, ErrNotTeamOwner
	}

	if name != nil {
		team.Name = *name
	}
	if description != nil {
		team.Description = *description
	}
	if err := s.teams.Update(team); err != nil {
		return nil, err
	}
	return team, nil
}

// RegenerateInviteCode replaces the team's invite code, invalidating the old
// one; only the owner may do this.
func (s *TeamService) RegenerateInviteCode(teamID, actorID uuid.UUID) (*models.Team, error) {
	team, err := s.teams.FindByID(teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	if team.OwnerID != actorID {
		return nil, ErrNotTeamOwner
	}

	code, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, err
	}
	team.InviteCode = code
	if err := s.teams.Update(team); err != nil {
		return nil, err
	}
	return team, nil
}

// IsMember reports whether the user belongs to the team.
func (s *TeamService) IsMember(teamID, userID uuid.UUID) (bool, error) {
	_, err := s.teams.FindMember(teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Join enrolls a user through an invite code.
func (s *TeamService) Join(userID uuid.UUID, inviteCode string) (*models.Team, error) {
	team, err := s.teams.FindByInviteCode(inviteCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteCodeInvalid
		}
		return nil, err
	}

	if _, err := s.teams.FindMember(team.ID, userID); err == nil {
		return nil, ErrAlreadyTeamMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	member := models.TeamMember{TeamID: team.ID, UserID: userID, Role: models.TeamRoleMember, JoinedAt: time.Now()}
	if err := s.teams.AddMember(&member); err != nil {
		return nil, err
	}
	return team, nil
}

// ListMembers returns the team roster with profiles embedded.
func (s *TeamService) ListMembers(teamID uuid.UUID) ([]models.TeamMember, error) {
	if _, err := s.teams.FindByID(teamID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return s.teams.ListMembers(teamID)
}

// ListTeamsForUser returns the teams the user belongs to.
func (s *TeamService) ListTeamsForUser(userID uuid.UUID) ([]models.Team, error) {
	memberships, err := s.teams.ListMembershipsByUser(userID)
	if err != nil {
		return nil, err
	}
	teams := make([]models.Team, 0, len(memberships))
	for _, m := range memberships {
		teams = append(teams, m.Team)
	}
	return teams, nil
}

// RemoveMember drops a user from the roster. The owner cannot leave their own
// team; they delete it instead.
func (s *TeamService) RemoveMember(teamID, actorID, userID uuid.UUID) error {
	team, err := s.teams.FindByID(teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeamNotFound
		}
		return err
	}
	if userID == team.OwnerID {
		return ErrCannotRemoveOwner
	}
	// Members may remove themselves; removing someone else takes the owner.
	if actorID != userID && actorID != team.OwnerID {
		return ErrNotTeamOwner
	}
	if _, err := s.teams.FindMember(teamID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeamMemberNotFound
		}
		return err
	}
	return s.teams.RemoveMember(teamID, userID)
}

// DeleteTeam removes the team; only the owner may do this. Projects keep
// running without a team.
func (s *TeamService) DeleteTeam(teamID, actorID uuid.UUID) error {
	team, err := s.teams.FindByID(teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeamNotFound
		}
		return err
	}
	if team.OwnerID != actorID {
		return ErrNotTeamOwner
	}
	return s.teams.Delete(teamID)
}
