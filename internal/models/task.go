package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusBlocked    TaskStatus = "blocked"
)

// TaskStatuses lists every valid task status, in board order.
var TaskStatuses = []TaskStatus{
	TaskStatusTodo,
	TaskStatusInProgress,
	TaskStatusReview,
	TaskStatusDone,
	TaskStatusBlocked,
}

func (s TaskStatus) IsValid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type Task struct {
	ID             uuid.UUID  `gorm:"type:uuid;primarykey" json:"id"`
	Title          string     `gorm:"type:varchar(255);not null" json:"title"`
	Description    string     `gorm:"type:text" json:"description"`
	Status         TaskStatus `gorm:"type:varchar(20);not null;default:'todo';index" json:"status"`
	Priority       Priority   `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	AssigneeID     *uuid.UUID `gorm:"type:uuid;index" json:"assignee_id"`
	ReporterID     *uuid.UUID `gorm:"type:uuid;index" json:"reporter_id"`
	ProjectID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	ParentTaskID   *uuid.UUID `gorm:"type:uuid;index" json:"parent_task_id"`
	DueDate        *time.Time `gorm:"index" json:"due_date"`
	EstimatedHours *float64   `json:"estimated_hours"`
	ActualHours    *float64   `json:"actual_hours"`
	CompletedAt    *time.Time `json:"completed_at"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Relations
	Project      Project          `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Assignee     *User            `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Reporter     *User            `gorm:"foreignKey:ReporterID" json:"-"`
	ParentTask   *Task            `gorm:"foreignKey:ParentTaskID" json:"-"`
	Subtasks     []Task           `gorm:"foreignKey:ParentTaskID" json:"subtasks,omitempty"`
	Labels       []TaskLabel      `gorm:"foreignKey:TaskID" json:"labels,omitempty"`
	Dependencies []TaskDependency `gorm:"foreignKey:TaskID" json:"dependencies,omitempty"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// LabelNames flattens the label rows into the ordered list clients work with.
func (t *Task) LabelNames() []string {
	names := make([]string, len(t.Labels))
	for i, l := range t.Labels {
		names[i] = l.Label
	}
	return names
}

// DependencyIDs flattens the dependency rows into a list of task IDs.
func (t *Task) DependencyIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(t.Dependencies))
	for i, d := range t.Dependencies {
		ids[i] = d.DependsOnTaskID
	}
	return ids
}

// TaskLabel is one label attached to a task. Position preserves the order the
// labels were supplied in.
type TaskLabel struct {
	TaskID    uuid.UUID `gorm:"type:uuid;primarykey" json:"-"`
	Label     string    `gorm:"type:varchar(50);primarykey" json:"label"`
	Position  int       `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `json:"-"`
}

// TaskDependency records that TaskID cannot proceed before DependsOnTaskID.
type TaskDependency struct {
	TaskID          uuid.UUID `gorm:"type:uuid;primarykey" json:"task_id"`
	DependsOnTaskID uuid.UUID `gorm:"type:uuid;primarykey" json:"depends_on_task_id"`
	CreatedAt       time.Time `json:"-"`
}
