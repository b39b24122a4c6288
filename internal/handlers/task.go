package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/taskhub/project-management-api/internal/dto"
	apierrors "github.com/taskhub/project-management-api/internal/errors"
	"github.com/taskhub/project-management-api/internal/events"
	"github.com/taskhub/project-management-api/internal/logging"
	"github.com/taskhub/project-management-api/internal/middleware"
	"github.com/taskhub/project-management-api/internal/models"
	"github.com/taskhub/project-management-api/internal/repository"
	"github.com/taskhub/project-management-api/internal/services"
	"github.com/taskhub/project-management-api/internal/utils"
	"github.com/taskhub/project-management-api/internal/validation"
)

// TaskHandler handles task endpoints
type TaskHandler struct {
	tasks     *services.TaskService
	comments  *services.CommentService
	time      *services.TimeEntryService
	publisher events.Publisher
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(
	tasks *services.TaskService,
	comments *services.CommentService,
	timeEntries *services.TimeEntryService,
	publisher events.Publisher,
) *TaskHandler {
	return &TaskHandler{
		tasks:     tasks,
		comments:  comments,
		time:      timeEntries,
		publisher: publisher,
	}
}

// CreateProjectTask handles POST /api/projects/:id/tasks. The board's quick-add
// form; new cards always start in todo no matter what the client claims.
func (h *TaskHandler) CreateProjectTask(c *gin.Context) {
	projectID, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	var req struct {
		Title        string      `json:"title" binding:"required,max=255"`
		Description  string      `json:"description"`
		Priority     string      `json:"priority" binding:"omitempty,oneof=low medium high critical"`
		AssigneeID   string      `json:"assigneeId" binding:"omitempty,uuid"`
		ParentTaskID string      `json:"parentTaskId" binding:"omitempty,uuid"`
		DueDate      *time.Time  `json:"dueDate"`
		Labels       []string    `json:"labels"`
		DependsOn    []uuid.UUID `json:"dependsOn"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, validation.FormatBindingError(err))
		return
	}

	input := services.TaskInput{
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      req.DueDate,
		Labels:       req.Labels,
		Dependencies: req.DependsOn,
	}
	if req.Priority != "" {
		p := models.Priority(req.Priority)
		input.Priority = &p
	}
	assigneeID, ferrs := validation.ParseOptionalUUID("assigneeId", req.AssigneeID)
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}
	input.AssigneeID = assigneeID
	parentID, ferrs := validation.ParseOptionalUUID("parentTaskId", req.ParentTaskID)
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}
	input.ParentTaskID = parentID
	if userID, ok := middleware.CurrentUserID(c); ok {
		input.ReporterID = &userID
	}

	task, err := h.tasks.CreateTask(projectID, input)
	if err != nil {
		h.respondTaskError(c, err)
		return
	}

	h.publisher.Publish(events.EventTaskCreated, dto.ToTaskDTO(*task))
	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// ListProjectTasks handles GET /api/projects/:id/tasks with optional status,
// assigneeId and priority filters. Filters compose.
func (h *TaskHandler) ListProjectTasks(c *gin.Context) {
	projectID, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	var filter repository.TaskFilter
	var violations []validation.FieldError

	if raw := c.Query("status"); raw != "" {
		status := models.TaskStatus(raw)
		if !status.IsValid() {
			violations = append(violations, validation.FieldError{
				Field: "status", Message: "must be a valid task status",
			})
		} else {
			filter.Status = &status
		}
	}
	if raw := c.Query("priority"); raw != "" {
		priority := models.Priority(raw)
		if !priority.IsValid() {
			violations = append(violations, validation.FieldError{
				Field: "priority", Message: "must be a valid priority",
			})
		} else {
			filter.Priority = &priority
		}
	}
	assigneeID, ferrs := validation.ParseOptionalUUID("assigneeId", c.Query("assigneeId"))
	if ferrs != nil {
		violations = append(violations, ferrs...)
	}
	filter.AssigneeID = assigneeID

	if len(violations) > 0 {
		apierrors.ValidationFailed(c, violations)
		return
	}

	tasks, err := h.tasks.ListProjectTasks(projectID, filter)
	if err != nil {
		h.respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": dto.ToTaskDTOs(tasks)})
}

// CreateTask handles POST /api/tasks, the full-form create.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req struct {
		Title          string      `json:"title" binding:"required,max=255"`
		Description    string      `json:"description"`
		ProjectID      string      `json:"project_id" binding:"required,uuid"`
		Status         string      `json:"status" binding:"omitempty,oneof=todo in_progress review done blocked"`
		Priority       string      `json:"priority" binding:"omitempty,oneof=low medium high critical"`
		AssigneeID     string      `json:"assignee_id" binding:"omitempty,uuid"`
		ParentTaskID   string      `json:"parent_task_id" binding:"omitempty,uuid"`
		DueDate        *time.Time  `json:"due_date"`
		EstimatedHours *float64    `json:"estimated_hours"`
		Labels         []string    `json:"labels"`
		DependsOn      []uuid.UUID `json:"depends_on"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, validation.FormatBindingError(err))
		return
	}

	projectID, ferrs := validation.ParseUUID("project_id", req.ProjectID)
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	input := services.TaskInput{
		Title:          req.Title,
		Description:    req.Description,
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours,
		Labels:         req.Labels,
		Dependencies:   req.DependsOn,
	}
	if req.Status != "" {
		s := models.TaskStatus(req.Status)
		input.Status = &s
	}
	if req.Priority != "" {
		p := models.Priority(req.Priority)
		input.Priority = &p
	}
	assigneeID, ferrs := validation.ParseOptionalUUID("assignee_id", req.AssigneeID)
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}
	input.AssigneeID = assigneeID
	parentID, ferrs := validation.ParseOptionalUUID("parent_task_id", req.ParentTaskID)
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}
	input.ParentTaskID = parentID
	if userID, ok := middleware.CurrentUserID(c); ok {
		input.ReporterID = &userID
	}

	task, err := h.tasks.CreateTask(projectID, input)
	if err != nil {
		h.respondTaskError(c, err)
		return
	}

	h.publisher.Publish(events.EventTaskCreated, dto.ToTaskDTO(*task))
	c.JSON(http.StatusCreated, gin.H{
		"message": "Task created successfully",
		"task":    dto.ToTaskDTO(*task),
	})
}

// ListTasks handles GET /api/tasks across all projects.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	tasks, total, err := h.tasks.ListAllTasks(params)
	if err != nil {
		h.respondTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": dto.ToTaskDTOs(tasks),
		"pagination": utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

// CreateSubtask handles POST /api/tasks/create-subtask. The parent is looked
// up first; a missing parent yields 404 and no row is written.
func (h *TaskHandler) CreateSubtask(c *gin.Context) {
	var req struct {
		ParentTaskID string     `json:"parentTaskId" binding:"required,uuid"`
		Title        string     `json:"title" binding:"required,max=255"`
		Description  string     `json:"description"`
		Status       string     `json:"status" binding:"omitempty,oneof=todo in_progress done blocked"`
		Priority     string     `json:"priority" binding:"omitempty,oneof=low medium high critical"`
		AssigneeID   string     `json:"assigneeId" binding:"omitempty,uuid"`
		DueDate      *time.Time `json:"dueDate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, validation.FormatBindingError(err))
		return
	}

	parentID, ferrs := validation.ParseUUID("parentTaskId", req.ParentTaskID)
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	input := services.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	}
	if req.Status != "" {
		s := models.TaskStatus(req.Status)
		input.Status = &s
	}
	if req.Priority != "" {
		p := models.Priority(req.Priority)
		input.Priority = &p
	}
	assigneeID, ferrs := validation.ParseOptionalUUID("assigneeId", req.AssigneeID)
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}
	input.AssigneeID = assigneeID
	if userID, ok := middleware.CurrentUserID(c); ok {
		input.ReporterID = &userID
	}

	task, err := h.tasks.CreateSubtask(parentID, input)
	if err != nil {
		if errors.Is(err, services.ErrParentTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Parent task not found"})
			return
		}
		h.respondTaskError(c, err)
		return
	}

	h.publisher.Publish(events.EventTaskCreated, dto.ToTaskDTO(*task))
	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// GetTask handles GET /api/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	task, err := h.tasks.GetTask(id)
	if err != nil {
		h.respondTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UpdateTask handles PATCH /api/tasks/:id. Absent fields keep their values;
// explicit nulls clear the assignee and due date.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	var req struct {
		Title          *string      `json:"title" binding:"omitempty,max=255"`
		Description    *string      `json:"description"`
		Status         *string      `json:"status" binding:"omitempty,oneof=todo in_progress review done blocked"`
		Priority       *string      `json:"priority" binding:"omitempty,oneof=low medium high critical"`
		AssigneeID     *string      `json:"assignee_id"`
		DueDate        *time.Time   `json:"due_date"`
		ClearDueDate   bool         `json:"clear_due_date"`
		EstimatedHours *float64     `json:"estimated_hours"`
		ActualHours    *float64     `json:"actual_hours"`
		Labels         *[]string    `json:"labels"`
		DependsOn      *[]uuid.UUID `json:"depends_on"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, validation.FormatBindingError(err))
		return
	}

	update := services.TaskUpdate{
		Title:          req.Title,
		Description:    req.Description,
		DueDate:        req.DueDate,
		ClearDueDate:   req.ClearDueDate,
		EstimatedHours: req.EstimatedHours,
		ActualHours:    req.ActualHours,
		Labels:         req.Labels,
		Dependencies:   req.DependsOn,
	}
	if req.Status != nil {
		s := models.TaskStatus(*req.Status)
		update.Status = &s
	}
	if req.Priority != nil {
		p := models.Priority(*req.Priority)
		update.Priority = &p
	}
	if req.AssigneeID != nil {
		if *req.AssigneeID == "" {
			update.ClearAssignee = true
		} else {
			assigneeID, ferrs := validation.ParseUUID("assignee_id", *req.AssigneeID)
			if ferrs != nil {
				apierrors.ValidationFailed(c, ferrs)
				return
			}
			update.AssigneeID = &assigneeID
		}
	}

	task, err := h.tasks.UpdateTask(id, update)
	if err != nil {
		h.respondTaskError(c, err)
		return
	}

	h.publisher.Publish(events.EventTaskUpdated, dto.ToTaskDTO(*task))
	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask handles DELETE /api/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	if err := h.tasks.DeleteTask(id); err != nil {
		h.respondTaskError(c, err)
		return
	}

	h.publisher.Publish(events.EventTaskDeleted, gin.H{"id": id})
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// ListTaskComments handles GET /api/tasks/:id/comments
func (h *TaskHandler) ListTaskComments(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	comments, err := h.comments.ListForTask(id)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			apierrors.NotFound(c, "Task not found")
			return
		}
		logging.Logger.WithError(err).Error("failed to list task comments")
		apierrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// ListTaskFiles handles GET /api/tasks/:id/files
func (h *TaskHandler) ListTaskFiles(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	files, err := h.tasks.ListTaskFiles(id)
	if err != nil {
		h.respondTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// AddDependencies handles POST /api/tasks/:id/dependencies
func (h *TaskHandler) AddDependencies(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	var req struct {
		Dependencies []uuid.UUID `json:"dependencies" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, validation.FormatBindingError(err))
		return
	}

	task, err := h.tasks.AddTaskDependencies(id, req.Dependencies)
	if err != nil {
		h.respondTaskError(c, err)
		return
	}

	h.publisher.Publish(events.EventTaskUpdated, dto.ToTaskDTO(*task))
	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// StartTimer handles POST /api/tasks/:id/time/start
func (h *TaskHandler) StartTimer(c *gin.Context) {
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

	var req struct {
		Notes string `json:"notes"`
	}
	// Body is optional.
	_ = c.ShouldBindJSON(&req)

	entry, err := h.time.Start(userID, id, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTaskNotFound):
			apierrors.NotFound(c, "Task not found")
		case errors.Is(err, services.ErrTimerAlreadyRunning):
			apierrors.Conflict(c, "A timer is already running for this task")
		default:
			logging.Logger.WithError(err).Error("failed to start timer")
			apierrors.InternalError(c, "")
		}
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// StopTimer handles POST /api/tasks/:id/time/stop
func (h *TaskHandler) StopTimer(c *gin.Context) {
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

	entry, err := h.time.Stop(userID, id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTimerNotRunning):
			apierrors.NotFound(c, "No running timer for this task")
		default:
			logging.Logger.WithError(err).Error("failed to stop timer")
			apierrors.InternalError(c, "")
		}
		return
	}
	c.JSON(http.StatusOK, entry)
}

// respondTaskError maps service sentinels to HTTP responses.
func (h *TaskHandler) respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrProjectNotFound):
		apierrors.NotFound(c, "Project not found")
	case errors.Is(err, services.ErrParentTaskNotFound):
		apierrors.NotFound(c, "Parent task not found")
	case errors.Is(err, services.ErrParentCrossProject):
		apierrors.ConstraintViolation(c, "Parent task must be in the same project")
	case errors.Is(err, services.ErrAssigneeNotFound):
		apierrors.ConstraintViolation(c, "Assignee does not exist")
	case errors.Is(err, services.ErrDependencyNotFound):
		apierrors.ConstraintViolation(c, "Dependency task does not exist")
	case errors.Is(err, services.ErrSelfDependency):
		apierrors.ConstraintViolation(c, "Task cannot depend on itself")
	case errors.Is(err, services.ErrDependencyCrossProject):
		apierrors.ConstraintViolation(c, "Dependency must target a task in the same project")
	case errors.Is(err, services.ErrDependencyCycle):
		apierrors.ConstraintViolation(c, "Dependency would create a cycle")
	default:
		logging.Logger.WithError(err).Error("task operation failed")
		apierrors.InternalError(c, "")
	}
}
