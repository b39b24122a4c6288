package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/taskhub/project-management-api/internal/models"
	"github.com/taskhub/project-management-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotNotificationOwner = errors.New("notification belongs to another user")
)

// NotificationService handles notification reads and state.
type NotificationService struct {
	notifications repository.NotificationRepository
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notifications repository.NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// ListForUser returns the user's notifications, newest first.
func (s *NotificationService) ListForUser(userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	return s.notifications.ListForUser(userID, unreadOnly)
}

// MarkRead flags one notification read; only its recipient may do so.
func (s *NotificationService) MarkRead(id, userID uuid.UUID) error {
	n, err := s.notifications.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	if n.UserID != userID {
		return ErrNotNotificationOwner
	}
	return s.notifications.MarkRead(id)
}
