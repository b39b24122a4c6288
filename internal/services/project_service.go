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
	ErrProjectNotFound       = errors.New("project not found")
	ErrOwnerNotFound         = errors.New("owner not found")
	ErrProjectMemberExists   = errors.New("user is already a project member")
	ErrProjectMemberNotFound = errors.New("project member not found")
	ErrMilestoneNotFound     = errors.New("milestone not found")
	ErrFileTargetRequired    = errors.New("file must attach to a project or a task")
)

// ProjectInput carries the fields a client may supply when creating a project.
type ProjectInput struct {
	Name        string
	Description string
	Status      *models.ProjectStatus
	Priority    *models.Priority
	StartDate   *time.Time
	EndDate     *time.Time
	OwnerID     uuid.UUID
	TeamID      *uuid.UUID
	Budget      *float64
}

// ProjectUpdate carries a partial update; only non-nil fields are applied.
type ProjectUpdate struct {
	Name        *string
	Description *string
	Status      *models.ProjectStatus
	Priority    *models.Priority
	StartDate   *time.Time
	EndDate     *time.Time
	Progress    *int
	Budget      *float64
	SpentBudget *float64
}

// MilestoneInput carries the fields for creating a project milestone.
type MilestoneInput struct {
	Title       string
	Description string
	DueDate     *time.Time
}

// MilestoneUpdate carries a partial milestone update; only non-nil fields are
// applied.
type MilestoneUpdate struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Completed   *bool
}

// FileInput carries attachment metadata. At least one of ProjectID/TaskID must
// be set.
type FileInput struct {
	Name       string
	MimeType   string
	SizeBytes  int64
	URL        string
	UploaderID *uuid.UUID
	ProjectID  *uuid.UUID
	TaskID     *uuid.UUID
}

// ProjectService handles project business logic
type ProjectService struct {
	projects   repository.ProjectRepository
	tasks      repository.TaskRepository
	users      repository.UserRepository
	teams      repository.TeamRepository
	milestones repository.MilestoneRepository
	files      repository.FileRepository
	activity   repository.ActivityLogRepository
}

// NewProjectService creates a new ProjectService
func NewProjectService(
	projects repository.ProjectRepository,
	tasks repository.TaskRepository,
	users repository.UserRepository,
	teams repository.TeamRepository,
	milestones repository.MilestoneRepository,
	files repository.FileRepository,
	activity repository.ActivityLogRepository,
) *ProjectService {
	return &ProjectService{
		projects:   projects,
		tasks:      tasks,
		users:      users,
		teams:      teams,
		milestones: milestones,
		files:      files,
		activity:   activity,
	}
}

// CreateProject creates a project owned by an existing user. Date ordering and
// progress bounds are enforced by the model at write time.
func (s *ProjectService) CreateProject(input ProjectInput) (*models.Project, error) {
	if _, err := s.users.FindByID(input.OwnerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, err
	}
	if input.TeamID != nil {
		if _, err := s.teams.FindByID(*input.TeamID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTeamNotFound
			}
			return nil, err
		}
	}

	project := models.Project{
		Name:        input.Name,
		Description: input.Description,
		Status:      models.ProjectStatusPlanning,
		Priority:    models.PriorityMedium,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		OwnerID:     input.OwnerID,
		TeamID:      input.TeamID,
		Budget:      input.Budget,
	}
	if input.Status != nil {
		project.Status = *input.Status
	}
	if input.Priority != nil {
		project.Priority = *input.Priority
	}

	if err := s.projects.Create(&project); err != nil {
		return nil, err
	}

	// The owner is always a member.
	member := models.ProjectMember{
		ProjectID: project.ID,
		UserID:    project.OwnerID,
		Role:      "owner",
	}
	if err := s.projects.AddMember(&member); err != nil {
		logging.Logger.WithError(err).Warn("failed to add owner as project member")
	}

	s.recordActivity(models.ActivityProjectCreated, &project.OwnerID, project.ID,
		fmt.Sprintf("project %q created", project.Name))

	return s.projects.FindByID(project.ID, "Owner")
}

// GetProject returns one project with its owner embedded.
func (s *ProjectService) GetProject(id uuid.UUID) (*models.Project, error) {
	project, err := s.projects.FindByID(id, "Owner")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

// ListProjects returns a page of projects, newest first, plus the total count.
func (s *ProjectService) ListProjects(params utils.PaginationParams) ([]models.Project, int64, error) {
	return s.projects.List(params)
}

// UpdateProject applies a partial update.
func (s *ProjectService) UpdateProject(id uuid.UUID, userID *uuid.UUID, update ProjectUpdate) (*models.Project, error) {
	project, err := s.projects.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	if update.Name != nil {
		project.Name = *update.Name
	}
	if update.Description != nil {
		project.Description = *update.Description
	}
	if update.Status != nil {
		project.Status = *update.Status
	}
	if update.Priority != nil {
		project.Priority = *update.Priority
	}
	if update.StartDate != nil {
		project.StartDate = update.StartDate
	}
	if update.EndDate != nil {
		project.EndDate = update.EndDate
	}
	if update.Progress != nil {
		project.Progress = *update.Progress
	}
	if update.Budget != nil {
		project.Budget = update.Budget
	}
	if update.SpentBudget != nil {
		project.SpentBudget = update.SpentBudget
	}

	if err := s.projects.Update(project); err != nil {
		return nil, err
	}

	s.recordActivity(models.ActivityProjectUpdated, userID, project.ID,
		fmt.Sprintf("project %q updated", project.Name))

	return s.projects.FindByID(project.ID, "Owner")
}

// DeleteProject removes the project and everything hanging off it.
func (s *ProjectService) DeleteProject(id uuid.UUID) error {
	if _, err := s.projects.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return err
	}
	return s.projects.Delete(id)
}

// AddMember adds a user to the project roster.
func (s *ProjectService) AddMember(projectID, userID uuid.UUID, role string) (*models.ProjectMember, error) {
	if _, err := s.projects.FindByID(projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	if _, err := s.users.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if _, err := s.projects.FindMember(projectID, userID); err == nil {
		return nil, ErrProjectMemberExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if role == "" {
		role = "member"
	}
	member := models.ProjectMember{ProjectID: projectID, UserID: userID, Role: role}
	if err := s.projects.AddMember(&member); err != nil {
		return nil, err
	}
	return &member, nil
}

// RemoveMember drops a user from the project roster.
func (s *ProjectService) RemoveMember(projectID, userID uuid.UUID) error {
	if _, err := s.projects.FindMember(projectID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectMemberNotFound
		}
		return err
	}
	return s.projects.RemoveMember(projectID, userID)
}

// CreateMilestone adds a milestone to a project.
func (s *ProjectService) CreateMilestone(projectID uuid.UUID, input MilestoneInput) (*models.Milestone, error) {
	if _, err := s.projects.FindByID(projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	milestone := models.Milestone{
		Title:       input.Title,
		Description: input.Description,
		ProjectID:   projectID,
		DueDate:     input.DueDate,
	}
	if err := s.milestones.Create(&milestone); err != nil {
		return nil, err
	}
	return &milestone, nil
}

// ListMilestones returns a project's milestones ordered by due date.
func (s *ProjectService) ListMilestones(projectID uuid.UUID) ([]models.Milestone, error) {
	if _, err := s.projects.FindByID(projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return s.milestones.ListForProject(projectID)
}

// CompleteMilestone marks a milestone done and stamps the completion time.
func (s *ProjectService) CompleteMilestone(id uuid.UUID) (*models.Milestone, error) {
	milestone, err := s.milestones.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMilestoneNotFound
		}
		return nil, err
	}
	if !milestone.Completed {
		now := time.Now()
		milestone.Completed = true
		milestone.CompletedAt = &now
		if err := s.milestones.Update(milestone); err != nil {
			return nil, err
		}
	}
	return milestone, nil
}

// UpdateMilestone applies a partial update. Completing stamps the completion
// time; reopening clears it.
func (s *ProjectService) UpdateMilestone(id uuid.UUID, update MilestoneUpdate) (*models.Milestone, error) {
	milestone, err := s.milestones.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMilestoneNotFound
		}
		return nil, err
	}

	if update.Title != nil {
		milestone.Title = *update.Title
	}
	if update.Description != nil {
		milestone.Description = *update.Description
	}
	if update.DueDate != nil {
		milestone.DueDate = update.DueDate
	}
	if update.Completed != nil && *update.Completed != milestone.Completed {
		milestone.Completed = *update.Completed
		if milestone.Completed {
			now := time.Now()
			milestone.CompletedAt = &now
		} else {
			milestone.CompletedAt = nil
		}
	}

	if err := s.milestones.Update(milestone); err != nil {
		return nil, err
	}
	return milestone, nil
}

// AttachFile records attachment metadata against a project or task.
func (s *ProjectService) AttachFile(input FileInput) (*models.File, error) {
	if input.ProjectID == nil && input.TaskID == nil {
		return nil, ErrFileTargetRequired
	}
	if input.ProjectID != nil {
		if _, err := s.projects.FindByID(*input.ProjectID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProjectNotFound
			}
			return nil, err
		}
	}
	if input.TaskID != nil {
		if _, err := s.tasks.FindByID(*input.TaskID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTaskNotFound
			}
			return nil, err
		}
	}

	file := models.File{
		Name:       input.Name,
		MimeType:   input.MimeType,
		SizeBytes:  input.SizeBytes,
		URL:        input.URL,
		UploaderID: input.UploaderID,
		ProjectID:  input.ProjectID,
		TaskID:     input.TaskID,
	}
	if err := s.files.Create(&file); err != nil {
		return nil, err
	}
	return &file, nil
}

// ListProjectFiles returns attachment metadata for a project.
func (s *ProjectService) ListProjectFiles(projectID uuid.UUID) ([]models.File, error) {
	if _, err := s.projects.FindByID(projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return s.files.ListForProject(projectID)
}

// ListActivity returns the most recent audit entries for a project.
func (s *ProjectService) ListActivity(projectID uuid.UUID, limit int) ([]models.ActivityLog, error) {
	if _, err := s.projects.FindByID(projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return s.activity.ListForProject(projectID, limit)
}

func (s *ProjectService) recordActivity(kind models.ActivityType, userID *uuid.UUID, projectID uuid.UUID, details string) {
	entry := models.ActivityLog{
		UserID:    userID,
		Type:      kind,
		Details:   details,
		ProjectID: &projectID,
	}
	if err := s.activity.Create(&entry); err != nil {
		logging.Logger.WithError(err).Warn("failed to record project activity")
	}
}
