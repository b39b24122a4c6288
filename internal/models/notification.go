package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTaskAssigned        NotificationType = "task_assigned"
	NotificationTaskCompleted       NotificationType = "task_completed"
	NotificationProjectUpdated      NotificationType = "project_updated"
	NotificationCommentAdded        NotificationType = "comment_added"
	NotificationDeadlineApproaching NotificationType = "deadline_approaching"
)

type Notification struct {
	ID         uuid.UUID        `gorm:"type:uuid;primarykey" json:"id"`
	Type       NotificationType `gorm:"type:varchar(30);not null" json:"type"`
	Title      string           `gorm:"type:varchar(255);not null" json:"title"`
	Message    string           `gorm:"type:text" json:"message"`
	UserID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	EntityID   uuid.UUID        `gorm:"type:uuid" json:"entity_id"`
	EntityType string           `gorm:"type:varchar(20)" json:"entity_type"`
	Read       bool             `gorm:"not null;default:false" json:"read"`
	CreatedAt  time.Time        `json:"created_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
