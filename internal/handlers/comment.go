package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/taskhub/project-management-api/internal/errors"
	"github.com/taskhub/project-management-api/internal/events"
	"github.com/taskhub/project-management-api/internal/logging"
	"github.com/taskhub/project-management-api/internal/middleware"
	"github.com/taskhub/project-management-api/internal/services"
	"github.com/taskhub/project-management-api/internal/validation"
)

// CommentHandler handles comment endpoints
type CommentHandler struct {
	comments  *services.CommentService
	publisher events.Publisher
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(comments *services.CommentService, publisher events.Publisher) *CommentHandler {
	return &CommentHandler{comments: comments, publisher: publisher}
}

// CreateComment handles POST /api/comments. Exactly one of task_id/project_id
// must be set.
func (h *CommentHandler) CreateComment(c *gin.Context) {
	var req struct {
		Content         string `json:"content" binding:"required"`
		TaskID          string `json:"task_id" binding:"omitempty,uuid"`
		ProjectID       string `json:"project_id" binding:"omitempty,uuid"`
		ParentCommentID string `json:"parent_comment_id" binding:"omitempty,uuid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, validation.FormatBindingError(err))
		return
	}

	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	taskID, ferrs := validation.ParseOptionalUUID("task_id", req.TaskID)
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}
	projectID, ferrs := validation.ParseOptionalUUID("project_id", req.ProjectID)
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}
	parentID, ferrs := validation.ParseOptionalUUID("parent_comment_id", req.ParentCommentID)
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	comment, err := h.comments.CreateComment(services.CommentInput{
		Content:         req.Content,
		AuthorID:        userID,
		TaskID:          taskID,
		ProjectID:       projectID,
		ParentCommentID: parentID,
	})
	if err != nil {
		h.respondCommentError(c, err)
		return
	}

	h.publisher.Publish(events.EventCommentAdded, comment)
	c.JSON(http.StatusCreated, comment)
}

// DeleteComment handles DELETE /api/comments/:id
func (h *CommentHandler) DeleteComment(c *gin.Context) {
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

	if err := h.comments.DeleteComment(id, userID); err != nil {
		h.respondCommentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}

// respondCommentError maps service sentinels to HTTP responses.
func (h *CommentHandler) respondCommentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCommentTargetRequired):
		apierrors.ValidationFailed(c, []validation.FieldError{
			{Field: "task_id", Message: "either task_id or project_id is required"},
		})
	case errors.Is(err, services.ErrCommentTargetConflict):
		apierrors.ValidationFailed(c, []validation.FieldError{
			{Field: "task_id", Message: "task_id and project_id are mutually exclusive"},
		})
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrProjectNotFound):
		apierrors.NotFound(c, "Project not found")
	case errors.Is(err, services.ErrCommentNotFound):
		apierrors.NotFound(c, "Comment not found")
	case errors.Is(err, services.ErrParentCommentNotFound):
		apierrors.ConstraintViolation(c, "Parent comment does not exist")
	case errors.Is(err, services.ErrParentCommentElsewhere):
		apierrors.ConstraintViolation(c, "Parent comment belongs to a different thread")
	case errors.Is(err, services.ErrNotCommentAuthor):
		apierrors.Forbidden(c, "Only the author may delete a comment")
	default:
		logging.Logger.WithError(err).Error("comment operation failed")
		apierrors.InternalError(c, "")
	}
}
