package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/project-management-api/internal/models"
)

// TaskDTO represents a task in API responses. Labels and dependencies are
// flattened from their child rows; labels is never null.
type TaskDTO struct {
	ID             uuid.UUID         `json:"id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Status         models.TaskStatus `json:"status"`
	Priority       models.Priority   `json:"priority"`
	AssigneeID     *uuid.UUID        `json:"assignee_id"`
	ProjectID      uuid.UUID         `json:"project_id"`
	ParentTaskID   *uuid.UUID        `json:"parent_task_id"`
	DueDate        *time.Time        `json:"due_date"`
	EstimatedHours *float64          `json:"estimated_hours"`
	ActualHours    *float64          `json:"actual_hours"`
	CompletedAt    *time.Time        `json:"completed_at"`
	Labels         []string          `json:"labels"`
	Dependencies   []uuid.UUID       `json:"dependencies"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	Project        *ProjectDTO       `json:"project,omitempty"`
	Assignee       *UserDTO          `json:"assignee,omitempty"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:             task.ID,
		Title:          task.Title,
		Description:    task.Description,
		Status:         task.Status,
		Priority:       task.Priority,
		AssigneeID:     task.AssigneeID,
		ProjectID:      task.ProjectID,
		ParentTaskID:   task.ParentTaskID,
		DueDate:        task.DueDate,
		EstimatedHours: task.EstimatedHours,
		ActualHours:    task.ActualHours,
		CompletedAt:    task.CompletedAt,
		Labels:         task.LabelNames(),
		Dependencies:   task.DependencyIDs(),
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
	}

	if dto.Labels == nil {
		dto.Labels = []string{}
	}
	if dto.Dependencies == nil {
		dto.Dependencies = []uuid.UUID{}
	}

	// Include project if preloaded
	if task.Project.ID != uuid.Nil {
		project := ToProjectDTO(task.Project)
		dto.Project = &project
	}

	// Include assignee if preloaded
	if task.Assignee != nil && task.Assignee.ID != uuid.Nil {
		assignee := ToUserDTO(*task.Assignee)
		dto.Assignee = &assignee
	}

	return dto
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	out := make([]TaskDTO, len(tasks))
	for i, t := range tasks {
		out[i] = ToTaskDTO(t)
	}
	return out
}
