package repository

import (
	"github.com/google/uuid"
	"github.com/taskhub/project-management-api/internal/database"
	"github.com/taskhub/project-management-api/internal/models"
	"github.com/taskhub/project-management-api/internal/utils"
	"gorm.io/gorm"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

func (r *GormProjectRepository) Create(project *models.Project) error {
	return r.db.Create(project).Error
}

func (r *GormProjectRepository) FindByID(id uuid.UUID, preload ...string) (*models.Project, error) {
	var project models.Project
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&project, "projects.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// List returns a page of projects, newest first, plus the total row count.
func (r *GormProjectRepository) List(params utils.PaginationParams) ([]models.Project, int64, error) {
	var total int64
	if err := r.db.Model(&models.Project{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []models.Project
	if err := r.db.
		Scopes(database.Paginate(params)).
		Order("projects.created_at DESC").
		Find(&projects).Error; err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

func (r *GormProjectRepository) Update(project *models.Project) error {
	return r.db.Save(project).Error
}

// Delete cascades to every row that references the project. Task child rows
// (labels, dependencies, task comments, task time entries) go first so no
// orphaned references survive the transaction.
func (r *GormProjectRepository) Delete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var taskIDs []uuid.UUID
		if err := tx.Model(&models.Task{}).Where("project_id = ?", id).
			Pluck("id", &taskIDs).Error; err != nil {
			return err
		}

		if len(taskIDs) > 0 {
			if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.TaskLabel{}).Error; err != nil {
				return err
			}
			if err := tx.Where("task_id IN ? OR depends_on_task_id IN ?", taskIDs, taskIDs).
				Delete(&models.TaskDependency{}).Error; err != nil {
				return err
			}
			var commentIDs []uuid.UUID
			if err := tx.Model(&models.Comment{}).Where("task_id IN ?", taskIDs).
				Pluck("id", &commentIDs).Error; err != nil {
				return err
			}
			if len(commentIDs) > 0 {
				if err := tx.Where("entity_type = ? AND entity_id IN ?", "comment", commentIDs).
					Delete(&models.Notification{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("entity_type = ? AND entity_id IN ?", "task", taskIDs).
				Delete(&models.Notification{}).Error; err != nil {
				return err
			}
		}

		// Notifications carry entity_type/entity_id rather than project_id.
		if err := tx.Where("entity_type = ? AND entity_id = ?", "project", id).
			Delete(&models.Notification{}).Error; err != nil {
			return err
		}

		for _, model := range []interface{}{
			&models.Comment{},
			&models.TimeEntry{},
			&models.Milestone{},
			&models.File{},
			&models.ProjectMember{},
			&models.ActivityLog{},
		} {
			if err := tx.Where("project_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("project_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Project{}, "id = ?", id).Error
	})
}

func (r *GormProjectRepository) AddMember(member *models.ProjectMember) error {
	return r.db.Create(member).Error
}

func (r *GormProjectRepository) RemoveMember(projectID, userID uuid.UUID) error {
	return r.db.Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&models.ProjectMember{}).Error
}

func (r *GormProjectRepository) FindMember(projectID, userID uuid.UUID) (*models.ProjectMember, error) {
	var member models.ProjectMember
	if err := r.db.Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}
