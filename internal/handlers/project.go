package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/project-management-api/internal/dto"
	apierrors "github.com/taskhub/project-management-api/internal/errors"
	"github.com/taskhub/project-management-api/internal/events"
	"github.com/taskhub/project-management-api/internal/logging"
	"github.com/taskhub/project-management-api/internal/middleware"
	"github.com/taskhub/project-management-api/internal/models"
	"github.com/taskhub/project-management-api/internal/services"
	"github.com/taskhub/project-management-api/internal/utils"
	"github.com/taskhub/project-management-api/internal/validation"
)

// ProjectHandler handles project endpoints
type ProjectHandler struct {
	projects  *services.ProjectService
	comments  *services.CommentService
	publisher events.Publisher
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(
	projects *services.ProjectService,
	comments *services.CommentService,
	publisher events.Publisher,
) *ProjectHandler {
	return &ProjectHandler{projects: projects, comments: comments, publisher: publisher}
}

// ListProjects handles GET /api/projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	projects, total, err := h.projects.ListProjects(params)
	if err != nil {
		logging.Logger.WithError(err).Error("failed to list projects")
		apierrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"projects": dto.ToProjectDTOs(projects),
		"pagination": utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

// CreateProject handles POST /api/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req struct {
		Name        string     `json:"name" binding:"required,max=255"`
		Description string     `json:"description"`
		Status      string     `json:"status" binding:"omitempty,oneof=planning active on_hold completed cancelled"`
		Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high critical"`
		StartDate   *time.Time `json:"start_date"`
		EndDate     *time.Time `json:"end_date"`
		TeamID      string     `json:"team_id" binding:"omitempty,uuid"`
		Budget      *float64   `json:"budget"`
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

	input := services.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		OwnerID:     userID,
		Budget:      req.Budget,
	}
	if req.Status != "" {
		s := models.ProjectStatus(req.Status)
		input.Status = &s
	}
	if req.Priority != "" {
		p := models.Priority(req.Priority)
		input.Priority = &p
	}
	teamID, ferrs := validation.ParseOptionalUUID("team_id", req.TeamID)
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}
	input.TeamID = teamID

	project, err := h.projects.CreateProject(input)
	if err != nil {
		h.respondProjectError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToProjectDTO(*project))
}

// GetProject handles GET /api/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	project, err := h.projects.GetProject(id)
	if err != nil {
		h.respondProjectError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// UpdateProject handles PATCH /api/projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	var req struct {
		Name        *string    `json:"name" binding:"omitempty,max=255"`
		Description *string    `json:"description"`
		Status      *string    `json:"status" binding:"omitempty,oneof=planning active on_hold completed cancelled"`
		Priority    *string    `json:"priority" binding:"omitempty,oneof=low medium high critical"`
		StartDate   *time.Time `json:"start_date"`
		EndDate     *time.Time `json:"end_date"`
		Progress    *int       `json:"progress"`
		Budget      *float64   `json:"budget"`
		SpentBudget *float64   `json:"spent_budget"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, validation.FormatBindingError(err))
		return
	}

	update := services.ProjectUpdate{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Progress:    req.Progress,
		Budget:      req.Budget,
		SpentBudget: req.SpentBudget,
	}
	if req.Status != nil {
		s := models.ProjectStatus(*req.Status)
		update.Status = &s
	}
	if req.Priority != nil {
		p := models.Priority(*req.Priority)
		update.Priority = &p
	}

	userID, _ := middleware.CurrentUserID(c)

	project, err := h.projects.UpdateProject(id, &userID, update)
	if err != nil {
		h.respondProjectError(c, err)
		return
	}

	h.publisher.Publish(events.EventProjectUpdated, dto.ToProjectDTO(*project))
	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// DeleteProject handles DELETE /api/projects/:id
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	if err := h.projects.DeleteProject(id); err != nil {
		h.respondProjectError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}

// AddMember handles POST /api/projects/:id/members
func (h *ProjectHandler) AddMember(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	var req struct {
		UserID string `json:"user_id" binding:"required,uuid"`
		Role   string `json:"role" binding:"omitempty,max=50"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, validation.FormatBindingError(err))
		return
	}
	userID, ferrs := validation.ParseUUID("user_id", req.UserID)
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	member, err := h.projects.AddMember(id, userID, req.Role)
	if err != nil {
		h.respondProjectError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// RemoveMember handles DELETE /api/projects/:id/members/:userId
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}
	userID, ferrs := validation.ParseUUID("userId", c.Param("userId"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	if err := h.projects.RemoveMember(id, userID); err != nil {
		h.respondProjectError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// ListMilestones handles GET /api/projects/:id/milestones
func (h *ProjectHandler) ListMilestones(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	milestones, err := h.projects.ListMilestones(id)
	if err != nil {
		h.respondProjectError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"milestones": milestones})
}

// CreateMilestone handles POST /api/projects/:id/milestones
func (h *ProjectHandler) CreateMilestone(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	var req struct {
		Title       string     `json:"title" binding:"required,max=255"`
		Description string     `json:"description"`
		DueDate     *time.Time `json:"due_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, validation.FormatBindingError(err))
		return
	}

	milestone, err := h.projects.CreateMilestone(id, services.MilestoneInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.respondProjectError(c, err)
		return
	}
	c.JSON(http.StatusCreated, milestone)
}

// CompleteMilestone handles POST /api/milestones/:id/complete
func (h *ProjectHandler) CompleteMilestone(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	milestone, err := h.projects.CompleteMilestone(id)
	if err != nil {
		if errors.Is(err, services.ErrMilestoneNotFound) {
			apierrors.NotFound(c, "Milestone not found")
			return
		}
		logging.Logger.WithError(err).Error("failed to complete milestone")
		apierrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, milestone)
}

// UpdateMilestone handles PATCH /api/milestones/:id
func (h *ProjectHandler) UpdateMilestone(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	var req struct {
		Title       *string    `json:"title" binding:"omitempty,min=1,max=255"`
		Description *string    `json:"description"`
		DueDate     *time.Time `json:"due_date"`
		Completed   *bool      `json:"completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, validation.FormatBindingError(err))
		return
	}

	milestone, err := h.projects.UpdateMilestone(id, services.MilestoneUpdate{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Completed:   req.Completed,
	})
	if err != nil {
		h.respondProjectError(c, err)
		return
	}
	c.JSON(http.StatusOK, milestone)
}

// ListFiles handles GET /api/projects/:id/files
func (h *ProjectHandler) ListFiles(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	files, err := h.projects.ListProjectFiles(id)
	if err != nil {
		h.respondProjectError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// AttachFile handles POST /api/files, recording attachment metadata.
func (h *ProjectHandler) AttachFile(c *gin.Context) {
	var req struct {
		Name      string `json:"name" binding:"required,max=255"`
		MimeType  string `json:"mime_type"`
		SizeBytes int64  `json:"size_bytes"`
		URL       string `json:"url" binding:"required"`
		ProjectID string `json:"project_id" binding:"omitempty,uuid"`
		TaskID    string `json:"task_id" binding:"omitempty,uuid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, validation.FormatBindingError(err))
		return
	}

	projectID, ferrs := validation.ParseOptionalUUID("project_id", req.ProjectID)
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}
	taskID, ferrs := validation.ParseOptionalUUID("task_id", req.TaskID)
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	input := services.FileInput{
		Name:      req.Name,
		MimeType:  req.MimeType,
		SizeBytes: req.SizeBytes,
		URL:       req.URL,
		ProjectID: projectID,
		TaskID:    taskID,
	}
	if userID, ok := middleware.CurrentUserID(c); ok {
		input.UploaderID = &userID
	}

	file, err := h.projects.AttachFile(input)
	if err != nil {
		if errors.Is(err, services.ErrFileTargetRequired) {
			apierrors.ValidationFailed(c, []validation.FieldError{
				{Field: "project_id", Message: "either project_id or task_id is required"},
			})
			return
		}
		h.respondProjectError(c, err)
		return
	}
	c.JSON(http.StatusCreated, file)
}

// ListProjectComments handles GET /api/projects/:id/comments
func (h *ProjectHandler) ListProjectComments(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	comments, err := h.comments.ListForProject(id)
	if err != nil {
		h.respondProjectError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// ListActivity handles GET /api/projects/:id/activity
func (h *ProjectHandler) ListActivity(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			apierrors.ValidationFailed(c, []validation.FieldError{
				{Field: "limit", Message: "must be a positive integer"},
			})
			return
		}
		limit = parsed
	}

	entries, err := h.projects.ListActivity(id, limit)
	if err != nil {
		h.respondProjectError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": entries})
}

// respondProjectError maps service sentinels to HTTP responses.
func (h *ProjectHandler) respondProjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrProjectNotFound):
		apierrors.NotFound(c, "Project not found")
	case errors.Is(err, services.ErrOwnerNotFound),
		errors.Is(err, services.ErrUserNotFound):
		apierrors.ConstraintViolation(c, "User does not exist")
	case errors.Is(err, services.ErrTeamNotFound):
		apierrors.ConstraintViolation(c, "Team does not exist")
	case errors.Is(err, services.ErrProjectMemberExists):
		apierrors.Conflict(c, "User is already a project member")
	case errors.Is(err, services.ErrProjectMemberNotFound):
		apierrors.NotFound(c, "Project member not found")
	case errors.Is(err, services.ErrMilestoneNotFound):
		apierrors.NotFound(c, "Milestone not found")
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, models.ErrProgressOutOfRange):
		apierrors.ValidationFailed(c, []validation.FieldError{
			{Field: "progress", Message: "must be between 0 and 100"},
		})
	case errors.Is(err, models.ErrProjectDatesInverted):
		apierrors.ValidationFailed(c, []validation.FieldError{
			{Field: "end_date", Message: "must not precede start_date"},
		})
	default:
		logging.Logger.WithError(err).Error("project operation failed")
		apierrors.InternalError(c, "")
	}
}
