package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// File is attachment metadata only; blob storage lives elsewhere. At least one
// of ProjectID/TaskID must be set (checked in the file service).
type File struct {
	ID         uuid.UUID  `gorm:"type:uuid;primarykey" json:"id"`
	Name       string     `gorm:"type:varchar(255);not null" json:"name"`
	MimeType   string     `gorm:"type:varchar(255)" json:"mime_type"`
	SizeBytes  int64      `json:"size_bytes"`
	URL        string     `gorm:"type:text;not null" json:"url"`
	UploaderID *uuid.UUID `gorm:"type:uuid;index" json:"uploader_id"`
	ProjectID  *uuid.UUID `gorm:"type:uuid;index" json:"project_id"`
	TaskID     *uuid.UUID `gorm:"type:uuid;index" json:"task_id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Relations
	Uploader *User `gorm:"foreignKey:UploaderID" json:"uploader,omitempty"`
}

func (f *File) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
