package repository

import (
	"github.com/google/uuid"
	"github.com/taskhub/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormCommentRepository is a GORM implementation of CommentRepository
type GormCommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &GormCommentRepository{db: db}
}

func (r *GormCommentRepository) Create(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

func (r *GormCommentRepository) FindByID(id uuid.UUID) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.Preload("Author").First(&comment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *GormCommentRepository) ListForTask(taskID uuid.UUID) ([]models.Comment, error) {
	return r.list("task_id", taskID)
}

func (r *GormCommentRepository) ListForProject(projectID uuid.UUID) ([]models.Comment, error) {
	return r.list("project_id", projectID)
}

func (r *GormCommentRepository) list(column string, id uuid.UUID) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.
		Preload("Author").
		Where(column+" = ?", id).
		Order("comments.created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// Delete removes a comment and its thread replies.
func (r *GormCommentRepository) Delete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_comment_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Comment{}, "id = ?", id).Error
	})
}
