package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/taskhub/project-management-api/internal/logging"
	"github.com/taskhub/project-management-api/internal/models"
	"github.com/taskhub/project-management-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrCommentNotFound        = errors.New("comment not found")
	ErrCommentTargetRequired  = errors.New("comment must target a task or a project")
	ErrCommentTargetConflict  = errors.New("comment cannot target both a task and a project")
	ErrParentCommentNotFound  = errors.New("parent comment not found")
	ErrParentCommentElsewhere = errors.New("parent comment belongs to a different thread")
	ErrNotCommentAuthor       = errors.New("only the author may delete a comment")
)

// CommentInput carries the fields for creating a comment. Exactly one of
// TaskID/ProjectID must be set.
type CommentInput struct {
	Content         string
	AuthorID        uuid.UUID
	TaskID          *uuid.UUID
	ProjectID       *uuid.UUID
	ParentCommentID *uuid.UUID
}

// CommentService handles comment business logic
type CommentService struct {
	comments      repository.CommentRepository
	tasks         repository.TaskRepository
	projects      repository.ProjectRepository
	notifications repository.NotificationRepository
	activity      repository.ActivityLogRepository
}

// NewCommentService creates a new CommentService
func NewCommentService(
	comments repository.CommentRepository,
	tasks repository.TaskRepository,
	projects repository.ProjectRepository,
	notifications repository.NotificationRepository,
	activity repository.ActivityLogRepository,
) *CommentService {
	return &CommentService{
		comments:      comments,
		tasks:         tasks,
		projects:      projects,
		notifications: notifications,
		activity:      activity,
	}
}

// CreateComment attaches a comment to exactly one of a task or a project, and
// threads it under a parent when one is given.
func (s *CommentService) CreateComment(input CommentInput) (*models.Comment, error) {
	if input.TaskID == nil && input.ProjectID == nil {
		return nil, ErrCommentTargetRequired
	}
	if input.TaskID != nil && input.ProjectID != nil {
		return nil, ErrCommentTargetConflict
	}

	var task *models.Task
	if input.TaskID != nil {
		found, err := s.tasks.FindByID(*input.TaskID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTaskNotFound
			}
			return nil, err
		}
		task = found
	}
	if input.ProjectID != nil {
		if _, err := s.projects.FindByID(*input.ProjectID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProjectNotFound
			}
			return nil, err
		}
	}

	if input.ParentCommentID != nil {
		parent, err := s.comments.FindByID(*input.ParentCommentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrParentCommentNotFound
			}
			return nil, err
		}
		if !sameTarget(parent, input.TaskID, input.ProjectID) {
			return nil, ErrParentCommentElsewhere
		}
	}

	comment := models.Comment{
		Content:         input.Content,
		AuthorID:        input.AuthorID,
		TaskID:          input.TaskID,
		ProjectID:       input.ProjectID,
		ParentCommentID: input.ParentCommentID,
	}
	if err := s.comments.Create(&comment); err != nil {
		return nil, err
	}

	s.recordActivity(&comment)
	if task != nil && task.AssigneeID != nil && *task.AssigneeID != input.AuthorID {
		s.notifyAssignee(task, &comment)
	}

	return s.comments.FindByID(comment.ID)
}

// ListForTask returns a task's comments, oldest first.
func (s *CommentService) ListForTask(taskID uuid.UUID) ([]models.Comment, error) {
	if _, err := s.tasks.FindByID(taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return s.comments.ListForTask(taskID)
}

// ListForProject returns a project's comments, oldest first.
func (s *CommentService) ListForProject(projectID uuid.UUID) ([]models.Comment, error) {
	if _, err := s.projects.FindByID(projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return s.comments.ListForProject(projectID)
}

// DeleteComment removes a comment and its replies. Only the author may delete.
func (s *CommentService) DeleteComment(id, actorID uuid.UUID) error {
	comment, err := s.comments.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	if comment.AuthorID != actorID {
		return ErrNotCommentAuthor
	}
	return s.comments.Delete(id)
}

func sameTarget(parent *models.Comment, taskID, projectID *uuid.UUID) bool {
	if taskID != nil {
		return parent.TaskID != nil && *parent.TaskID == *taskID
	}
	return parent.ProjectID != nil && *parent.ProjectID == *projectID
}

func (s *CommentService) recordActivity(comment *models.Comment) {
	entry := models.ActivityLog{
		UserID:    &comment.AuthorID,
		Type:      models.ActivityCommentAdded,
		Details:   "comment added",
		ProjectID: comment.ProjectID,
		TaskID:    comment.TaskID,
	}
	if err := s.activity.Create(&entry); err != nil {
		logging.Logger.WithError(err).Warn("failed to record comment activity")
	}
}

func (s *CommentService) notifyAssignee(task *models.Task, comment *models.Comment) {
	n := models.Notification{
		Type:       models.NotificationCommentAdded,
		Title:      "New comment",
		Message:    fmt.Sprintf("New comment on %q", task.Title),
		UserID:     *task.AssigneeID,
		EntityID:   comment.ID,
		EntityType: "comment",
	}
	if err := s.notifications.Create(&n); err != nil {
		logging.Logger.WithError(err).Warn("failed to create comment notification")
	}
}
