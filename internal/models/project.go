package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "planning"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// ProjectStatuses lists every valid project status, in display order.
var ProjectStatuses = []ProjectStatus{
	ProjectStatusPlanning,
	ProjectStatusActive,
	ProjectStatusOnHold,
	ProjectStatusCompleted,
	ProjectStatusCancelled,
}

func (s ProjectStatus) IsValid() bool {
	for _, v := range ProjectStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

func (p Priority) IsValid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

// Rank orders priorities for sorting; higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Invariant violations surfaced by model hooks. Services translate these into
// validation failures rather than server faults.
var (
	ErrProgressOutOfRange   = errors.New("progress must be between 0 and 100")
	ErrProjectDatesInverted = errors.New("end date must not precede start date")
)

type Project struct {
	ID          uuid.UUID     `gorm:"type:uuid;primarykey" json:"id"`
	Name        string        `gorm:"type:varchar(255);not null" json:"name"`
	Description string        `gorm:"type:text" json:"description"`
	Status      ProjectStatus `gorm:"type:varchar(20);not null;default:'planning'" json:"status"`
	Priority    Priority      `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	StartDate   *time.Time    `json:"start_date"`
	EndDate     *time.Time    `json:"end_date"`
	OwnerID     uuid.UUID     `gorm:"type:uuid;not null;index" json:"owner_id"`
	TeamID      *uuid.UUID    `gorm:"type:uuid;index" json:"team_id"`
	Progress    int           `gorm:"not null;default:0" json:"progress"`
	Budget      *float64      `json:"budget"`
	SpentBudget *float64      `json:"spent_budget"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// Relations
	Owner   User            `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Team    *Team           `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Members []ProjectMember `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
	Tasks   []Task          `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// BeforeSave enforces the progress and date-ordering invariants at write time.
func (p *Project) BeforeSave(tx *gorm.DB) error {
	if p.Progress < 0 || p.Progress > 100 {
		return ErrProgressOutOfRange
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return ErrProjectDatesInverted
	}
	return nil
}

type ProjectMember struct {
	ProjectID uuid.UUID `gorm:"type:uuid;primarykey" json:"project_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primarykey" json:"user_id"`
	Role      string    `gorm:"type:varchar(50)" json:"role"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	User    User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
