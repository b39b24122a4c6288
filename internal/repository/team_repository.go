package repository

import (
	"github.com/google/uuid"
	"github.com/taskhub/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormTeamRepository is a GORM implementation of TeamRepository
type GormTeamRepository struct {
	db *gorm.DB
}

// NewTeamRepository creates a new TeamRepository
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &GormTeamRepository{db: db}
}

func (r *GormTeamRepository) Create(team *models.Team) error {
	return r.db.Create(team).Error
}

func (r *GormTeamRepository) FindByID(id uuid.UUID) (*models.Team, error) {
	var team models.Team
	if err := r.db.First(&team, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *GormTeamRepository) FindByInviteCode(code string) (*models.Team, error) {
	var team models.Team
	if err := r.db.Where("invite_code = ?", code).First(&team).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *GormTeamRepository) Update(team *models.Team) error {
	return r.db.Save(team).Error
}

// Delete removes the team and its memberships; projects keep running without
// a team.
func (r *GormTeamRepository) Delete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", id).Delete(&models.TeamMember{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Project{}).Where("team_id = ?", id).
			Update("team_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Team{}, "id = ?", id).Error
	})
}

func (r *GormTeamRepository) AddMember(member *models.TeamMember) error {
	return r.db.Create(member).Error
}

func (r *GormTeamRepository) RemoveMember(teamID, userID uuid.UUID) error {
	return r.db.Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&models.TeamMember{}).Error
}

func (r *GormTeamRepository) FindMember(teamID, userID uuid.UUID) (*models.TeamMember, error) {
	var member models.TeamMember
	if err := r.db.Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *GormTeamRepository) ListMembers(teamID uuid.UUID) ([]models.TeamMember, error) {
	var members []models.TeamMember
	if err := r.db.Preload("User").Where("team_id = ?", teamID).
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *GormTeamRepository) ListMembershipsByUser(userID uuid.UUID) ([]models.TeamMember, error) {
	var members []models.TeamMember
	if err := r.db.Preload("Team").Where("user_id = ?", userID).
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}
