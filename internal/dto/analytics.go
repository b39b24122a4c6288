package dto

import (
	"github.com/google/uuid"
	"github.com/taskhub/project-management-api/internal/models"
)

// ReportKind tags each analytics row with the report it belongs to.
type ReportKind string

const (
	ReportProjectCompletion  ReportKind = "project_completion"
	ReportBudgetUtilization  ReportKind = "budget_utilization"
	ReportStatusDistribution ReportKind = "status_distribution"
	ReportUserProductivity   ReportKind = "user_productivity"
)

// ProjectCompletionRow reports task completion for one project.
// CompletionRate is 0, not NaN, for projects without tasks.
type ProjectCompletionRow struct {
	Kind           ReportKind `json:"kind"`
	ProjectID      uuid.UUID  `json:"project_id"`
	ProjectName    string     `json:"project_name"`
	TotalTasks     int        `json:"total_tasks"`
	CompletedTasks int        `json:"completed_tasks"`
	CompletionRate float64    `json:"completion_rate"`
}

// BudgetRow reports budget utilization for one project. Utilization is 0 for
// projects without a budget.
type BudgetRow struct {
	Kind        ReportKind `json:"kind"`
	ProjectID   uuid.UUID  `json:"project_id"`
	ProjectName string     `json:"project_name"`
	Budget      float64    `json:"budget"`
	SpentBudget float64    `json:"spent_budget"`
	Utilization float64    `json:"utilization"`
}

// StatusCount is one bucket of a status distribution. Every enum value is
// present, including zero counts.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// StatusDistributionReport groups projects and tasks by status.
type StatusDistributionReport struct {
	Kind     ReportKind    `json:"kind"`
	Projects []StatusCount `json:"projects"`
	Tasks    []StatusCount `json:"tasks"`
}

// UserProductivityRow reports per-user workload, sourced from task
// assignments and time entries.
type UserProductivityRow struct {
	Kind           ReportKind `json:"kind"`
	UserID         uuid.UUID  `json:"user_id"`
	Name           string     `json:"name"`
	AssignedTasks  int        `json:"assigned_tasks"`
	CompletedTasks int        `json:"completed_tasks"`
	LoggedHours    float64    `json:"logged_hours"`
}

// AnalyticsResponse is the GET /api/analytics payload.
type AnalyticsResponse struct {
	ProjectCompletion  []ProjectCompletionRow   `json:"project_completion"`
	BudgetUtilization  []BudgetRow              `json:"budget_utilization"`
	StatusDistribution StatusDistributionReport `json:"status_distribution"`
	UserProductivity   []UserProductivityRow    `json:"user_productivity"`
}

// EmptyStatusDistribution returns a distribution with every status present at
// zero.
func EmptyStatusDistribution() StatusDistributionReport {
	report := StatusDistributionReport{Kind: ReportStatusDistribution}
	for _, s := range models.ProjectStatuses {
		report.Projects = append(report.Projects, StatusCount{Status: string(s)})
	}
	for _, s := range models.TaskStatuses {
		report.Tasks = append(report.Tasks, StatusCount{Status: string(s)})
	}
	return report
}
