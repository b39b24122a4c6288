package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/project-management-api/internal/models"
	"github.com/taskhub/project-management-api/internal/utils"
)

// TaskFilter narrows project task listings.
type TaskFilter struct {
	Status     *models.TaskStatus
	AssigneeID *uuid.UUID
	Priority   *models.Priority
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create inserts a task together with its label and dependency rows in
	// one transaction.
	Create(task *models.Task, labels []string, dependencies []uuid.UUID) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uuid.UUID, preload ...string) (*models.Task, error)

	// ListByProject returns a project's tasks, filtered, ordered by priority
	// descending then creation time descending.
	ListByProject(projectID uuid.UUID, filter TaskFilter) ([]models.Task, error)

	// ListAll returns a page of tasks with their project and assignee
	// embedded, plus the total row count.
	ListAll(params utils.PaginationParams) ([]models.Task, int64, error)

	// Update persists task column changes
	Update(task *models.Task) error

	// ReplaceLabels swaps the task's label rows for the given ordered list
	ReplaceLabels(taskID uuid.UUID, labels []string) error

	// AddDependencies inserts dependency edges for the task
	AddDependencies(taskID uuid.UUID, dependsOn []uuid.UUID) error

	// ReplaceDependencies swaps the task's outgoing dependency edges for the
	// given set
	ReplaceDependencies(taskID uuid.UUID, dependsOn []uuid.UUID) error

	// ListDependencyEdges returns all dependency edges between tasks of a project
	ListDependencyEdges(projectID uuid.UUID) ([]models.TaskDependency, error)

	// Delete removes a task and its dependent rows, detaching subtasks
	Delete(id uuid.UUID) error
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	Create(project *models.Project) error
	FindByID(id uuid.UUID, preload ...string) (*models.Project, error)

	// List returns a page of projects, newest first, plus the total row count.
	List(params utils.PaginationParams) ([]models.Project, int64, error)
	Update(project *models.Project) error

	// Delete removes the project and cascades to tasks, comments,
	// notifications, milestones, time entries, files, members and activity
	// logs in a single transaction.
	Delete(id uuid.UUID) error

	AddMember(member *models.ProjectMember) error
	RemoveMember(projectID, userID uuid.UUID) error
	FindMember(projectID, userID uuid.UUID) (*models.ProjectMember, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(user *models.User) error
	FindByID(id uuid.UUID) (*models.User, error)
	FindByEmail(email string) (*models.User, error)

	// FindByProviderAccount resolves an OAuth identity to its profile row
	FindByProviderAccount(provider, accountID string) (*models.User, error)

	List() ([]models.User, error)
}

// TeamRepository defines the interface for team data access
type TeamRepository interface {
	Create(team *models.Team) error
	FindByID(id uuid.UUID) (*models.Team, error)
	FindByInviteCode(code string) (*models.Team, error)
	Update(team *models.Team) error
	Delete(id uuid.UUID) error

	AddMember(member *models.TeamMember) error
	RemoveMember(teamID, userID uuid.UUID) error
	FindMember(teamID, userID uuid.UUID) (*models.TeamMember, error)
	ListMembers(teamID uuid.UUID) ([]models.TeamMember, error)
	ListMembershipsByUser(userID uuid.UUID) ([]models.TeamMember, error)
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(comment *models.Comment) error
	FindByID(id uuid.UUID) (*models.Comment, error)
	ListForTask(taskID uuid.UUID) ([]models.Comment, error)
	ListForProject(projectID uuid.UUID) ([]models.Comment, error)
	Delete(id uuid.UUID) error
}

// NotificationRepository defines the interface for notification data access
type NotificationRepository interface {
	Create(n *models.Notification) error
	FindByID(id uuid.UUID) (*models.Notification, error)
	ListForUser(userID uuid.UUID, unreadOnly bool) ([]models.Notification, error)
	MarkRead(id uuid.UUID) error
}

// TimeEntryRepository defines the interface for time-entry data access
type TimeEntryRepository interface {
	Create(e *models.TimeEntry) error
	FindByID(id uuid.UUID) (*models.TimeEntry, error)
	Update(e *models.TimeEntry) error
	ListForUser(userID uuid.UUID) ([]models.TimeEntry, error)

	// FindRunning returns the user's open entry for a task, if any
	FindRunning(userID, taskID uuid.UUID) (*models.TimeEntry, error)
}

// MilestoneRepository defines the interface for milestone data access
type MilestoneRepository interface {
	Create(m *models.Milestone) error
	FindByID(id uuid.UUID) (*models.Milestone, error)
	Update(m *models.Milestone) error
	ListForProject(projectID uuid.UUID) ([]models.Milestone, error)
}

// FileRepository defines the interface for file-metadata data access
type FileRepository interface {
	Create(f *models.File) error
	ListForProject(projectID uuid.UUID) ([]models.File, error)
	ListForTask(taskID uuid.UUID) ([]models.File, error)
}

// ActivityLogRepository records audit entries
type ActivityLogRepository interface {
	Create(entry *models.ActivityLog) error
	ListForProject(projectID uuid.UUID, limit int) ([]models.ActivityLog, error)
}

// ReportFilter narrows analytics source data.
type ReportFilter struct {
	ProjectID *uuid.UUID
	TeamID    *uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
}

// AnalyticsRepository loads the entity collections the report service
// aggregates in memory.
type AnalyticsRepository interface {
	// ProjectsWithTasks returns projects matching the filter with their tasks
	// preloaded.
	ProjectsWithTasks(filter ReportFilter) ([]models.Project, error)

	// UsersWithAssignments returns users with their assigned tasks preloaded.
	UsersWithAssignments() ([]models.User, error)

	// TimeEntries returns completed time entries matching the filter.
	TimeEntries(filter ReportFilter) ([]models.TimeEntry, error)
}
