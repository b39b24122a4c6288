package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/project-management-api/internal/models"
)

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          uuid.UUID            `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Status      models.ProjectStatus `json:"status"`
	Priority    models.Priority      `json:"priority"`
	StartDate   *time.Time           `json:"start_date"`
	EndDate     *time.Time           `json:"end_date"`
	OwnerID     uuid.UUID            `json:"owner_id"`
	TeamID      *uuid.UUID           `json:"team_id"`
	Progress    int                  `json:"progress"`
	Budget      *float64             `json:"budget"`
	SpentBudget *float64             `json:"spent_budget"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Owner       *UserDTO             `json:"owner,omitempty"`
}

// ToProjectDTO converts a Project model to ProjectDTO
func ToProjectDTO(p models.Project) ProjectDTO {
	dto := ProjectDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Status:      p.Status,
		Priority:    p.Priority,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		OwnerID:     p.OwnerID,
		TeamID:      p.TeamID,
		Progress:    p.Progress,
		Budget:      p.Budget,
		SpentBudget: p.SpentBudget,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}

	if p.Owner.ID != uuid.Nil {
		owner := ToUserDTO(p.Owner)
		dto.Owner = &owner
	}

	return dto
}

// ToProjectDTOs converts a slice of projects
func ToProjectDTOs(projects []models.Project) []ProjectDTO {
	out := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		out[i] = ToProjectDTO(p)
	}
	return out
}

// TeamDTO represents a team in API responses
type TeamDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     uuid.UUID `json:"owner_id"`
	InviteCode  string    `json:"invite_code,omitempty"`
}

// ToTeamDTO converts a Team model to TeamDTO. The invite code is only
// included for members.
func ToTeamDTO(team models.Team, includeInviteCode bool) TeamDTO {
	dto := TeamDTO{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		OwnerID:     team.OwnerID,
	}
	if includeInviteCode {
		dto.InviteCode = team.InviteCode
	}
	return dto
}
