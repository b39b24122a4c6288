package repository

import (
	"github.com/taskhub/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormAnalyticsRepository is a GORM implementation of AnalyticsRepository
type GormAnalyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository creates a new AnalyticsRepository
func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &GormAnalyticsRepository{db: db}
}

func (r *GormAnalyticsRepository) ProjectsWithTasks(filter ReportFilter) ([]models.Project, error) {
	query := r.db.Model(&models.Project{}).Preload("Tasks")

	if filter.ProjectID != nil {
		query = query.Where("projects.id = ?", *filter.ProjectID)
	}
	if filter.TeamID != nil {
		query = query.Where("projects.team_id = ?", *filter.TeamID)
	}
	if filter.StartDate != nil {
		query = query.Where("projects.created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("projects.created_at <= ?", *filter.EndDate)
	}

	var projects []models.Project
	if err := query.Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *GormAnalyticsRepository) UsersWithAssignments() ([]models.User, error) {
	var users []models.User
	if err := r.db.Preload("AssignedTasks").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// TimeEntries returns closed entries only; a running timer has no duration to
// report yet.
func (r *GormAnalyticsRepository) TimeEntries(filter ReportFilter) ([]models.TimeEntry, error) {
	query := r.db.Model(&models.TimeEntry{}).Where("time_entries.end_time IS NOT NULL")

	if filter.ProjectID != nil {
		query = query.Where("time_entries.project_id = ?", *filter.ProjectID)
	}
	if filter.StartDate != nil {
		query = query.Where("time_entries.start_time >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("time_entries.start_time <= ?", *filter.EndDate)
	}

	var entries []models.TimeEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
