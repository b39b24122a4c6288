package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivityType string

const (
	ActivityProjectCreated ActivityType = "project_created"
	ActivityProjectUpdated ActivityType = "project_updated"
	ActivityTaskCreated    ActivityType = "task_created"
	ActivityTaskUpdated    ActivityType = "task_updated"
	ActivityCommentAdded   ActivityType = "comment_added"
)

type ActivityLog struct {
	ID        uuid.UUID    `gorm:"type:uuid;primarykey" json:"id"`
	UserID    *uuid.UUID   `gorm:"type:uuid;index" json:"user_id"`
	Type      ActivityType `gorm:"type:varchar(30);not null" json:"type"`
	Details   string       `gorm:"type:text" json:"details"`
	ProjectID *uuid.UUID   `gorm:"type:uuid;index" json:"project_id"`
	TaskID    *uuid.UUID   `gorm:"type:uuid" json:"task_id"`
	CreatedAt time.Time    `json:"created_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
