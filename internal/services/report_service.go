package services

import (
	"math"

	"github.com/taskhub/project-management-api/internal/dto"
	"github.com/taskhub/project-management-api/internal/models"
	"github.com/taskhub/project-management-api/internal/repository"
)

// ReportService aggregates projects, tasks and time entries into the analytics
// payload. Aggregation happens in memory over preloaded rows; the dataset is a
// workspace, not a warehouse.
type ReportService struct {
	analytics repository.AnalyticsRepository
}

// NewReportService creates a new ReportService
func NewReportService(analytics repository.AnalyticsRepository) *ReportService {
	return &ReportService{analytics: analytics}
}

// BuildReport computes all four reports over the filtered dataset.
func (s *ReportService) BuildReport(filter repository.ReportFilter) (*dto.AnalyticsResponse, error) {
	projects, err := s.analytics.ProjectsWithTasks(filter)
	if err != nil {
		return nil, err
	}
	users, err := s.analytics.UsersWithAssignments()
	if err != nil {
		return nil, err
	}
	entries, err := s.analytics.TimeEntries(filter)
	if err != nil {
		return nil, err
	}

	response := dto.AnalyticsResponse{
		ProjectCompletion:  projectCompletion(projects),
		BudgetUtilization:  budgetUtilization(projects),
		StatusDistribution: statusDistribution(projects),
		UserProductivity:   userProductivity(users, entries),
	}
	return &response, nil
}

// projectCompletion reports done-task ratios per project. A project without
// tasks reports a rate of zero rather than dividing by zero.
func projectCompletion(projects []models.Project) []dto.ProjectCompletionRow {
	rows := make([]dto.ProjectCompletionRow, 0, len(projects))
	for _, p := range projects {
		completed := 0
		for _, t := range p.Tasks {
			if t.Status == models.TaskStatusDone {
				completed++
			}
		}

		rate := 0.0
		if len(p.Tasks) > 0 {
			rate = round2(float64(completed) / float64(len(p.Tasks)) * 100)
		}

		rows = append(rows, dto.ProjectCompletionRow{
			Kind:           dto.ReportProjectCompletion,
			ProjectID:      p.ID,
			ProjectName:    p.Name,
			TotalTasks:     len(p.Tasks),
			CompletedTasks: completed,
			CompletionRate: rate,
		})
	}
	return rows
}

// budgetUtilization reports spend against budget per project. Projects without
// a budget report zero utilization.
func budgetUtilization(projects []models.Project) []dto.BudgetRow {
	rows := make([]dto.BudgetRow, 0, len(projects))
	for _, p := range projects {
		var budget, spent float64
		if p.Budget != nil {
			budget = *p.Budget
		}
		if p.SpentBudget != nil {
			spent = *p.SpentBudget
		}

		utilization := 0.0
		if budget > 0 {
			utilization = round2(spent / budget * 100)
		}

		rows = append(rows, dto.BudgetRow{
			Kind:        dto.ReportBudgetUtilization,
			ProjectID:   p.ID,
			ProjectName: p.Name,
			Budget:      budget,
			SpentBudget: spent,
			Utilization: utilization,
		})
	}
	return rows
}

// statusDistribution counts projects and tasks per status. Every enum value
// appears, zero counts included.
func statusDistribution(projects []models.Project) dto.StatusDistributionReport {
	report := dto.EmptyStatusDistribution()

	projectCounts := make(map[string]int)
	taskCounts := make(map[string]int)
	for _, p := range projects {
		projectCounts[string(p.Status)]++
		for _, t := range p.Tasks {
			taskCounts[string(t.Status)]++
		}
	}

	for i := range report.Projects {
		report.Projects[i].Count = projectCounts[report.Projects[i].Status]
	}
	for i := range report.Tasks {
		report.Tasks[i].Count = taskCounts[report.Tasks[i].Status]
	}
	return report
}

// userProductivity reports per-user workload from real assignments and closed
// time entries.
func userProductivity(users []models.User, entries []models.TimeEntry) []dto.UserProductivityRow {
	hoursByUser := make(map[string]float64)
	for _, e := range entries {
		hoursByUser[e.UserID.String()] += e.LoggedHours()
	}

	rows := make([]dto.UserProductivityRow, 0, len(users))
	for _, u := range users {
		completed := 0
		for _, t := range u.AssignedTasks {
			if t.Status == models.TaskStatusDone {
				completed++
			}
		}

		rows = append(rows, dto.UserProductivityRow{
			Kind:           dto.ReportUserProductivity,
			UserID:         u.ID,
			Name:           u.Name,
			AssignedTasks:  len(u.AssignedTasks),
			CompletedTasks: completed,
			LoggedHours:    round2(hoursByUser[u.ID.String()]),
		})
	}
	return rows
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
