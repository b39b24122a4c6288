package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrTimeEntryInverted = errors.New("end time must be after start time")

type TimeEntry struct {
	ID              uuid.UUID  `gorm:"type:uuid;primarykey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	TaskID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"task_id"`
	ProjectID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	StartTime       time.Time  `gorm:"not null" json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationSeconds int64      `gorm:"not null;default:0" json:"duration_seconds"`
	Notes           string     `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
	Task Task `gorm:"foreignKey:TaskID" json:"-"`
}

func (e *TimeEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// BeforeSave rejects entries whose end precedes their start and keeps the
// stored duration consistent with the interval.
func (e *TimeEntry) BeforeSave(tx *gorm.DB) error {
	if e.EndTime != nil {
		if !e.EndTime.After(e.StartTime) {
			return ErrTimeEntryInverted
		}
		e.DurationSeconds = int64(e.EndTime.Sub(e.StartTime).Seconds())
	}
	return nil
}

// LoggedHours converts the stored duration to hours.
func (e *TimeEntry) LoggedHours() float64 {
	return float64(e.DurationSeconds) / 3600.0
}
