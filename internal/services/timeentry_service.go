package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/project-management-api/internal/logging"
	"github.com/taskhub/project-management-api/internal/models"
	"github.com/taskhub/project-management-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTimerAlreadyRunning = errors.New("a timer is already running for this task")
	ErrTimerNotRunning     = errors.New("no running timer for this task")
	ErrTimeEntryNotFound   = errors.New("time entry not found")
	ErrNotTimeEntryOwner   = errors.New("time entry belongs to another user")
)

// TimeEntryService handles time tracking against tasks.
type TimeEntryService struct {
	entries repository.TimeEntryRepository
	tasks   repository.TaskRepository
}

// NewTimeEntryService creates a new TimeEntryService
func NewTimeEntryService(entries repository.TimeEntryRepository, tasks repository.TaskRepository) *TimeEntryService {
	return &TimeEntryService{entries: entries, tasks: tasks}
}

// Start opens a time entry for the user against a task. One running timer per
// user and task.
func (s *TimeEntryService) Start(userID, taskID uuid.UUID, notes string) (*models.TimeEntry, error) {
	task, err := s.tasks.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	if _, err := s.entries.FindRunning(userID, taskID); err == nil {
		return nil, ErrTimerAlreadyRunning
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	entry := models.TimeEntry{
		UserID:    userID,
		TaskID:    taskID,
		ProjectID: task.ProjectID,
		StartTime: time.Now(),
		Notes:     notes,
	}
	if err := s.entries.Create(&entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Stop closes the user's running entry for a task and folds the logged hours
// into the task's actual hours.
func (s *TimeEntryService) Stop(userID, taskID uuid.UUID) (*models.TimeEntry, error) {
	entry, err := s.entries.FindRunning(userID, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTimerNotRunning
		}
		return nil, err
	}

	now := time.Now()
	entry.EndTime = &now
	if err := s.entries.Update(entry); err != nil {
		return nil, err
	}

	s.accumulateActualHours(entry)
	return entry, nil
}

// StopByID closes a specific entry owned by the user.
func (s *TimeEntryService) StopByID(entryID, userID uuid.UUID) (*models.TimeEntry, error) {
	entry, err := s.entries.FindByID(entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTimeEntryNotFound
		}
		return nil, err
	}
	if entry.UserID != userID {
		return nil, ErrNotTimeEntryOwner
	}
	if entry.EndTime != nil {
		return nil, ErrTimerNotRunning
	}

	now := time.Now()
	entry.EndTime = &now
	if err := s.entries.Update(entry); err != nil {
		return nil, err
	}

	s.accumulateActualHours(entry)
	return entry, nil
}

// ListForUser returns the user's entries, newest first.
func (s *TimeEntryService) ListForUser(userID uuid.UUID) ([]models.TimeEntry, error) {
	return s.entries.ListForUser(userID)
}

func (s *TimeEntryService) accumulateActualHours(entry *models.TimeEntry) {
	task, err := s.tasks.FindByID(entry.TaskID)
	if err != nil {
		logging.Logger.WithError(err).Warn("failed to load task for actual hours")
		return
	}
	hours := entry.LoggedHours()
	if task.ActualHours != nil {
		hours += *task.ActualHours
	}
	task.ActualHours = &hours
	if err := s.tasks.Update(task); err != nil {
		logging.Logger.WithError(err).Warn("failed to update task actual hours")
	}
}
