package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/project-management-api/internal/logging"
	"github.com/taskhub/project-management-api/internal/models"
	"github.com/taskhub/project-management-api/internal/repository"
	"github.com/taskhub/project-management-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound           = errors.New("task not found")
	ErrParentTaskNotFound     = errors.New("parent task not found")
	ErrParentCrossProject     = errors.New("parent task must be in the same project")
	ErrAssigneeNotFound       = errors.New("assignee not found")
	ErrSelfDependency         = errors.New("task cannot depend on itself")
	ErrDependencyNotFound     = errors.New("dependency task not found")
	ErrDependencyCrossProject = errors.New("dependency must target a task in the same project")
	ErrDependencyCycle        = errors.New("dependency would create a cycle")
)

// TaskInput carries the fields a client may supply when creating a task.
// Nil pointers fall back to defaults.
type TaskInput struct {
	Title          string
	Description    string
	Status         *models.TaskStatus
	Priority       *models.Priority
	AssigneeID     *uuid.UUID
	ReporterID     *uuid.UUID
	ParentTaskID   *uuid.UUID
	DueDate        *time.Time
	EstimatedHours *float64
	Labels         []string
	Dependencies   []uuid.UUID
}

// TaskUpdate carries a partial update; only non-nil fields are applied.
type TaskUpdate struct {
	Title          *string
	Description    *string
	Status         *models.TaskStatus
	Priority       *models.Priority
	AssigneeID     *uuid.UUID
	ClearAssignee  bool
	DueDate        *time.Time
	ClearDueDate   bool
	EstimatedHours *float64
	ActualHours    *float64
	Labels         *[]string
	Dependencies   *[]uuid.UUID
}

// TaskService handles task business logic
type TaskService struct {
	tasks         repository.TaskRepository
	projects      repository.ProjectRepository
	users         repository.UserRepository
	activity      repository.ActivityLogRepository
	notifications repository.NotificationRepository
	files         repository.FileRepository
}

// NewTaskService creates a new TaskService
func NewTaskService(
	tasks repository.TaskRepository,
	projects repository.ProjectRepository,
	users repository.UserRepository,
	activity repository.ActivityLogRepository,
	notifications repository.NotificationRepository,
	files repository.FileRepository,
) *TaskService {
	return &TaskService{
		tasks:         tasks,
		projects:      projects,
		users:         users,
		activity:      activity,
		notifications: notifications,
		files:         files,
	}
}

// CreateTask creates a task in the given project. A missing status defaults to
// todo and a missing priority to medium; labels always materialize as rows so
// listings never see null.
func (s *TaskService) CreateTask(projectID uuid.UUID, input TaskInput) (*models.Task, error) {
	if _, err := s.projects.FindByID(projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	task := models.Task{
		Title:          input.Title,
		Description:    input.Description,
		Status:         models.TaskStatusTodo,
		Priority:       models.PriorityMedium,
		ProjectID:      projectID,
		ReporterID:     input.ReporterID,
		DueDate:        input.DueDate,
		EstimatedHours: input.EstimatedHours,
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if task.Status == models.TaskStatusDone {
		now := time.Now()
		task.CompletedAt = &now
	}

	if input.AssigneeID != nil {
		if err := s.ensureUserExists(*input.AssigneeID); err != nil {
			return nil, err
		}
		task.AssigneeID = input.AssigneeID
	}

	if input.ParentTaskID != nil {
		parent, err := s.tasks.FindByID(*input.ParentTaskID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrParentTaskNotFound
			}
			return nil, err
		}
		if parent.ProjectID != projectID {
			return nil, ErrParentCrossProject
		}
		task.ParentTaskID = &parent.ID
	}

	if err := s.checkDependencies(projectID, uuid.Nil, input.Dependencies, false); err != nil {
		return nil, err
	}

	if err := s.tasks.Create(&task, input.Labels, input.Dependencies); err != nil {
		return nil, err
	}

	s.recordActivity(models.ActivityTaskCreated, task.ReporterID, &task,
		fmt.Sprintf("task %q created", task.Title))
	if task.AssigneeID != nil {
		s.notifyAssignment(&task)
	}

	return s.reload(task.ID)
}

// CreateSubtask creates a task under an existing parent. The subtask lives in
// the parent's project regardless of what the client sent.
func (s *TaskService) CreateSubtask(parentID uuid.UUID, input TaskInput) (*models.Task, error) {
	parent, err := s.tasks.FindByID(parentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParentTaskNotFound
		}
		return nil, err
	}

	task := models.Task{
		Title:        input.Title,
		Description:  input.Description,
		Status:       models.TaskStatusTodo,
		Priority:     models.PriorityMedium,
		ProjectID:    parent.ProjectID,
		ParentTaskID: &parent.ID,
		ReporterID:   input.ReporterID,
		DueDate:      input.DueDate,
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if task.Status == models.TaskStatusDone {
		now := time.Now()
		task.CompletedAt = &now
	}

	if input.AssigneeID != nil {
		if err := s.ensureUserExists(*input.AssigneeID); err != nil {
			return nil, err
		}
		task.AssigneeID = input.AssigneeID
	}

	if err := s.tasks.Create(&task, input.Labels, nil); err != nil {
		return nil, err
	}

	s.recordActivity(models.ActivityTaskCreated, task.ReporterID, &task,
		fmt.Sprintf("subtask %q created under %q", task.Title, parent.Title))
	if task.AssigneeID != nil {
		s.notifyAssignment(&task)
	}

	return s.reload(task.ID)
}

// GetTask returns one task with its relations loaded.
func (s *TaskService) GetTask(id uuid.UUID) (*models.Task, error) {
	task, err := s.tasks.FindByID(id,
		"Project", "Assignee", "Subtasks", "Labels", "Dependencies")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// ListProjectTasks returns a project's tasks ordered by priority then recency.
func (s *TaskService) ListProjectTasks(projectID uuid.UUID, filter repository.TaskFilter) ([]models.Task, error) {
	if _, err := s.projects.FindByID(projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return s.tasks.ListByProject(projectID, filter)
}

// ListAllTasks returns a page of tasks across projects, plus the total count.
func (s *TaskService) ListAllTasks(params utils.PaginationParams) ([]models.Task, int64, error) {
	return s.tasks.ListAll(params)
}

// AddTaskDependencies appends dependency edges after revalidating the graph.
func (s *TaskService) AddTaskDependencies(id uuid.UUID, dependsOn []uuid.UUID) (*models.Task, error) {
	task, err := s.tasks.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	if err := s.checkDependencies(task.ProjectID, task.ID, dependsOn, false); err != nil {
		return nil, err
	}
	if err := s.tasks.AddDependencies(task.ID, dependsOn); err != nil {
		return nil, err
	}
	return s.reload(task.ID)
}

// ListTaskFiles returns attachment metadata for a task.
func (s *TaskService) ListTaskFiles(taskID uuid.UUID) ([]models.File, error) {
	if _, err := s.tasks.FindByID(taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return s.files.ListForTask(taskID)
}

// UpdateTask applies a partial update. Moving a task into done stamps
// CompletedAt; moving it out clears the stamp.
func (s *TaskService) UpdateTask(id uuid.UUID, update TaskUpdate) (*models.Task, error) {
	task, err := s.tasks.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	if update.Title != nil {
		task.Title = *update.Title
	}
	if update.Description != nil {
		task.Description = *update.Description
	}
	if update.Priority != nil {
		task.Priority = *update.Priority
	}
	if update.Status != nil && *update.Status != task.Status {
		task.Status = *update.Status
		if task.Status == models.TaskStatusDone {
			now := time.Now()
			task.CompletedAt = &now
			s.notifyCompletion(task)
		} else {
			task.CompletedAt = nil
		}
	}

	assigneeChanged := false
	if update.ClearAssignee {
		task.AssigneeID = nil
	} else if update.AssigneeID != nil {
		if err := s.ensureUserExists(*update.AssigneeID); err != nil {
			return nil, err
		}
		assigneeChanged = task.AssigneeID == nil || *task.AssigneeID != *update.AssigneeID
		task.AssigneeID = update.AssigneeID
	}

	if update.ClearDueDate {
		task.DueDate = nil
	} else if update.DueDate != nil {
		task.DueDate = update.DueDate
	}
	if update.EstimatedHours != nil {
		task.EstimatedHours = update.EstimatedHours
	}
	if update.ActualHours != nil {
		task.ActualHours = update.ActualHours
	}

	if update.Dependencies != nil {
		if err := s.checkDependencies(task.ProjectID, task.ID, *update.Dependencies, true); err != nil {
			return nil, err
		}
	}

	if err := s.tasks.Update(task); err != nil {
		return nil, err
	}

	if update.Labels != nil {
		if err := s.tasks.ReplaceLabels(task.ID, *update.Labels); err != nil {
			return nil, err
		}
	}
	if update.Dependencies != nil {
		if err := s.tasks.ReplaceDependencies(task.ID, *update.Dependencies); err != nil {
			return nil, err
		}
	}

	s.recordActivity(models.ActivityTaskUpdated, task.AssigneeID, task,
		fmt.Sprintf("task %q updated", task.Title))
	if assigneeChanged {
		s.notifyAssignment(task)
	}

	return s.reload(task.ID)
}

// DeleteTask removes a task together with its labels, dependency edges,
// comments and time entries. Subtasks survive as top-level tasks.
func (s *TaskService) DeleteTask(id uuid.UUID) error {
	if _, err := s.tasks.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return err
	}
	return s.tasks.Delete(id)
}

func (s *TaskService) reload(id uuid.UUID) (*models.Task, error) {
	return s.tasks.FindByID(id, "Assignee", "Labels", "Dependencies")
}

func (s *TaskService) ensureUserExists(id uuid.UUID) error {
	if _, err := s.users.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssigneeNotFound
		}
		return err
	}
	return nil
}

// checkDependencies validates new dependency targets and rejects edges that
// would close a cycle. taskID is uuid.Nil on create; a task that does not
// exist yet cannot be reached from its dependencies, so only existing tasks
// need the traversal. With replace set the task's current outgoing edges are
// left out of the graph, since the new set supersedes them.
func (s *TaskService) checkDependencies(projectID, taskID uuid.UUID, dependsOn []uuid.UUID, replace bool) error {
	if len(dependsOn) == 0 {
		return nil
	}

	for _, dep := range dependsOn {
		if taskID != uuid.Nil && dep == taskID {
			return ErrSelfDependency
		}
		target, err := s.tasks.FindByID(dep)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDependencyNotFound
			}
			return err
		}
		if target.ProjectID != projectID {
			return ErrDependencyCrossProject
		}
	}

	if taskID == uuid.Nil {
		return nil
	}

	edges, err := s.tasks.ListDependencyEdges(projectID)
	if err != nil {
		return err
	}
	graph := make(map[uuid.UUID][]uuid.UUID, len(edges))
	for _, e := range edges {
		if replace && e.TaskID == taskID {
			continue
		}
		graph[e.TaskID] = append(graph[e.TaskID], e.DependsOnTaskID)
	}
	graph[taskID] = append(graph[taskID], dependsOn...)

	// Depth-first walk from the task through its dependencies; finding the
	// task again means one of the new edges closes a loop.
	visited := make(map[uuid.UUID]bool)
	var walk func(id uuid.UUID) bool
	walk = func(id uuid.UUID) bool {
		if visited[id] {
			return false
		}
		visited[id] = true
		for _, next := range graph[id] {
			if next == taskID || walk(next) {
				return true
			}
		}
		return false
	}
	for _, dep := range dependsOn {
		if walk(dep) {
			return ErrDependencyCycle
		}
	}
	return nil
}

func (s *TaskService) recordActivity(kind models.ActivityType, userID *uuid.UUID, task *models.Task, details string) {
	entry := models.ActivityLog{
		UserID:    userID,
		Type:      kind,
		Details:   details,
		ProjectID: &task.ProjectID,
		TaskID:    &task.ID,
	}
	if err := s.activity.Create(&entry); err != nil {
		logging.Logger.WithError(err).Warn("failed to record task activity")
	}
}

func (s *TaskService) notifyAssignment(task *models.Task) {
	if task.AssigneeID == nil {
		return
	}
	n := models.Notification{
		Type:       models.NotificationTaskAssigned,
		Title:      "Task assigned",
		Message:    fmt.Sprintf("You were assigned to %q", task.Title),
		UserID:     *task.AssigneeID,
		EntityID:   task.ID,
		EntityType: "task",
	}
	if err := s.notifications.Create(&n); err != nil {
		logging.Logger.WithError(err).Warn("failed to create assignment notification")
	}
}

func (s *TaskService) notifyCompletion(task *models.Task) {
	if task.ReporterID == nil {
		return
	}
	n := models.Notification{
		Type:       models.NotificationTaskCompleted,
		Title:      "Task completed",
		Message:    fmt.Sprintf("%q was marked done", task.Title),
		UserID:     *task.ReporterID,
		EntityID:   task.ID,
		EntityType: "task",
	}
	if err := s.notifications.Create(&n); err != nil {
		logging.Logger.WithError(err).Warn("failed to create completion notification")
	}
}
