package repository

import (
	"github.com/google/uuid"
	"github.com/taskhub/project-management-api/internal/database"
	"github.com/taskhub/project-management-api/internal/models"
	"github.com/taskhub/project-management-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// priorityRank orders tasks most-urgent first in SQL. GORM tag indexes cover
// the filter columns.
const priorityRank = `CASE tasks.priority
	WHEN 'critical' THEN 4
	WHEN 'high' THEN 3
	WHEN 'medium' THEN 2
	WHEN 'low' THEN 1
	ELSE 0 END`

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create inserts the task, its labels and its dependency edges atomically.
func (r *GormTaskRepository) Create(task *models.Task, labels []string, dependencies []uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return err
		}
		if err := insertLabels(tx, task.ID, labels); err != nil {
			return err
		}
		return insertDependencies(tx, task.ID, dependencies)
	})
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uuid.UUID, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, "tasks.id = ?", id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// ListByProject returns a project's tasks ordered by priority descending then
// creation time descending.
func (r *GormTaskRepository) ListByProject(projectID uuid.UUID, filter TaskFilter) ([]models.Task, error) {
	query := r.db.Model(&models.Task{}).Where("tasks.project_id = ?", projectID)

	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.AssigneeID != nil {
		query = query.Where("tasks.assignee_id = ?", *filter.AssigneeID)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}

	var tasks []models.Task
	err := query.
		Order(priorityRank + " DESC").
		Order("tasks.created_at DESC").
		Preload("Assignee").
		Preload("Labels", func(db *gorm.DB) *gorm.DB {
			return db.Order("task_labels.position ASC")
		}).
		Preload("Dependencies").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}

	return tasks, nil
}

// ListAll returns a page of tasks with project and assignee embedded.
func (r *GormTaskRepository) ListAll(params utils.PaginationParams) ([]models.Task, int64, error) {
	var total int64
	if err := r.db.Model(&models.Task{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []models.Task
	err := r.db.
		Scopes(database.Paginate(params)).
		Preload("Project").
		Preload("Assignee").
		Preload("Labels", func(db *gorm.DB) *gorm.DB {
			return db.Order("task_labels.position ASC")
		}).
		Preload("Dependencies").
		Order("tasks.created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// Update persists task column changes
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// ReplaceLabels swaps the task's label rows for the given ordered list
func (r *GormTaskRepository) ReplaceLabels(taskID uuid.UUID, labels []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskLabel{}).Error; err != nil {
			return err
		}
		return insertLabels(tx, taskID, labels)
	})
}

// AddDependencies inserts dependency edges, ignoring duplicates.
func (r *GormTaskRepository) AddDependencies(taskID uuid.UUID, dependsOn []uuid.UUID) error {
	return insertDependencies(r.db, taskID, dependsOn)
}

// ReplaceDependencies swaps the task's outgoing dependency edges for the
// given set. An empty set clears them.
func (r *GormTaskRepository) ReplaceDependencies(taskID uuid.UUID, dependsOn []uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskDependency{}).Error; err != nil {
			return err
		}
		return insertDependencies(tx, taskID, dependsOn)
	})
}

// ListDependencyEdges returns all dependency edges between tasks of a project
func (r *GormTaskRepository) ListDependencyEdges(projectID uuid.UUID) ([]models.TaskDependency, error) {
	var edges []models.TaskDependency
	err := r.db.
		Joins("JOIN tasks ON tasks.id = task_dependencies.task_id").
		Where("tasks.project_id = ?", projectID).
		Find(&edges).Error
	if err != nil {
		return nil, err
	}
	return edges, nil
}

// Delete removes a task and its dependent rows, detaching subtasks.
func (r *GormTaskRepository) Delete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskLabel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ? OR depends_on_task_id = ?", id, id).
			Delete(&models.TaskDependency{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TimeEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ? AND project_id IS NULL", id).Delete(&models.File{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.File{}).Where("task_id = ?", id).
			Update("task_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Task{}).Where("parent_task_id = ?", id).
			Update("parent_task_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, "id = ?", id).Error
	})
}

func insertLabels(tx *gorm.DB, taskID uuid.UUID, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	rows := make([]models.TaskLabel, len(labels))
	for i, label := range labels {
		rows[i] = models.TaskLabel{TaskID: taskID, Label: label, Position: i}
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func insertDependencies(tx *gorm.DB, taskID uuid.UUID, dependsOn []uuid.UUID) error {
	if len(dependsOn) == 0 {
		return nil
	}
	rows := make([]models.TaskDependency, len(dependsOn))
	for i, dep := range dependsOn {
		rows[i] = models.TaskDependency{TaskID: taskID, DependsOnTaskID: dep}
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}
