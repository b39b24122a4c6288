package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/taskhub/project-management-api/internal/errors"
	"github.com/taskhub/project-management-api/internal/logging"
	"github.com/taskhub/project-management-api/internal/middleware"
	"github.com/taskhub/project-management-api/internal/services"
	"github.com/taskhub/project-management-api/internal/validation"
)

// NotificationHandler handles notification endpoints
type NotificationHandler struct {
	notifications *services.NotificationService
	timeEntries   *services.TimeEntryService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(
	notifications *services.NotificationService,
	timeEntries *services.TimeEntryService,
) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, timeEntries: timeEntries}
}

// ListNotifications handles GET /api/notifications. ?unread=true narrows to
// unread entries.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	unreadOnly := c.Query("unread") == "true"
	notifications, err := h.notifications.ListForUser(userID, unreadOnly)
	if err != nil {
		logging.Logger.WithError(err).Error("failed to list notifications")
		apierrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkRead handles POST /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	if err := h.notifications.MarkRead(id, userID); err != nil {
		switch {
		case errors.Is(err, services.ErrNotificationNotFound):
			apierrors.NotFound(c, "Notification not found")
		case errors.Is(err, services.ErrNotNotificationOwner):
			apierrors.Forbidden(c, "")
		default:
			logging.Logger.WithError(err).Error("failed to mark notification read")
			apierrors.InternalError(c, "")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked read"})
}

// CreateTimeEntry handles POST /api/time-entries, opening a timer against a
// task.
func (h *NotificationHandler) CreateTimeEntry(c *gin.Context) {
	var req struct {
		TaskID string `json:"task_id" binding:"required,uuid"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, validation.FormatBindingError(err))
		return
	}
	taskID, ferrs := validation.ParseUUID("task_id", req.TaskID)
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	entry, err := h.timeEntries.Start(userID, taskID, req.Notes)
	if err != nil {
		h.respondTimeEntryError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// StopTimeEntry handles POST /api/time-entries/:id/stop
func (h *NotificationHandler) StopTimeEntry(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	entry, err := h.timeEntries.StopByID(id, userID)
	if err != nil {
		h.respondTimeEntryError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ListTimeEntries handles GET /api/time-entries for the current user.
func (h *NotificationHandler) ListTimeEntries(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	entries, err := h.timeEntries.ListForUser(userID)
	if err != nil {
		logging.Logger.WithError(err).Error("failed to list time entries")
		apierrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"time_entries": entries})
}

// respondTimeEntryError maps time-tracking sentinels to HTTP responses.
func (h *NotificationHandler) respondTimeEntryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrTimeEntryNotFound):
		apierrors.NotFound(c, "Time entry not found")
	case errors.Is(err, services.ErrTimerAlreadyRunning):
		apierrors.Conflict(c, "A timer is already running for this task")
	case errors.Is(err, services.ErrTimerNotRunning):
		apierrors.Conflict(c, "Time entry is already stopped")
	case errors.Is(err, services.ErrNotTimeEntryOwner):
		apierrors.Forbidden(c, "")
	default:
		logging.Logger.WithError(err).Error("time entry operation failed")
		apierrors.InternalError(c, "")
	}
}
