package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment targets exactly one of a task or a project; the exclusivity check
// lives in the comment service so it yields a validation failure, not a DB
// error.
type Comment struct {
	ID              uuid.UUID  `gorm:"type:uuid;primarykey" json:"id"`
	Content         string     `gorm:"type:text;not null" json:"content"`
	AuthorID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"author_id"`
	TaskID          *uuid.UUID `gorm:"type:uuid;index" json:"task_id"`
	ProjectID       *uuid.UUID `gorm:"type:uuid;index" json:"project_id"`
	ParentCommentID *uuid.UUID `gorm:"type:uuid" json:"parent_comment_id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Relations
	Author  User      `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Replies []Comment `gorm:"foreignKey:ParentCommentID" json:"replies,omitempty"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
