package repository

import (
	"github.com/google/uuid"
	"github.com/taskhub/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormNotificationRepository is a GORM implementation of NotificationRepository
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) Create(n *models.Notification) error {
	return r.db.Create(n).Error
}

func (r *GormNotificationRepository) FindByID(id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.First(&n, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *GormNotificationRepository) ListForUser(userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	query := r.db.Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Order("notifications.created_at DESC").Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *GormNotificationRepository) MarkRead(id uuid.UUID) error {
	return r.db.Model(&models.Notification{}).Where("id = ?", id).
		Update("read", true).Error
}

// GormTimeEntryRepository is a GORM implementation of TimeEntryRepository
type GormTimeEntryRepository struct {
	db *gorm.DB
}

// NewTimeEntryRepository creates a new TimeEntryRepository
func NewTimeEntryRepository(db *gorm.DB) TimeEntryRepository {
	return &GormTimeEntryRepository{db: db}
}

func (r *GormTimeEntryRepository) Create(e *models.TimeEntry) error {
	return r.db.Create(e).Error
}

func (r *GormTimeEntryRepository) FindByID(id uuid.UUID) (*models.TimeEntry, error) {
	var e models.TimeEntry
	if err := r.db.First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *GormTimeEntryRepository) Update(e *models.TimeEntry) error {
	return r.db.Save(e).Error
}

func (r *GormTimeEntryRepository) ListForUser(userID uuid.UUID) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	err := r.db.Where("user_id = ?", userID).
		Order("time_entries.start_time DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *GormTimeEntryRepository) FindRunning(userID, taskID uuid.UUID) (*models.TimeEntry, error) {
	var e models.TimeEntry
	err := r.db.Where("user_id = ? AND task_id = ? AND end_time IS NULL", userID, taskID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GormMilestoneRepository is a GORM implementation of MilestoneRepository
type GormMilestoneRepository struct {
	db *gorm.DB
}

// NewMilestoneRepository creates a new MilestoneRepository
func NewMilestoneRepository(db *gorm.DB) MilestoneRepository {
	return &GormMilestoneRepository{db: db}
}

func (r *GormMilestoneRepository) Create(m *models.Milestone) error {
	return r.db.Create(m).Error
}

func (r *GormMilestoneRepository) FindByID(id uuid.UUID) (*models.Milestone, error) {
	var m models.Milestone
	if err := r.db.First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *GormMilestoneRepository) Update(m *models.Milestone) error {
	return r.db.Save(m).Error
}

func (r *GormMilestoneRepository) ListForProject(projectID uuid.UUID) ([]models.Milestone, error) {
	var milestones []models.Milestone
	err := r.db.Where("project_id = ?", projectID).
		Order("milestones.due_date ASC").
		Find(&milestones).Error
	if err != nil {
		return nil, err
	}
	return milestones, nil
}

// GormFileRepository is a GORM implementation of FileRepository
type GormFileRepository struct {
	db *gorm.DB
}

// NewFileRepository creates a new FileRepository
func NewFileRepository(db *gorm.DB) FileRepository {
	return &GormFileRepository{db: db}
}

func (r *GormFileRepository) Create(f *models.File) error {
	return r.db.Create(f).Error
}

func (r *GormFileRepository) ListForProject(projectID uuid.UUID) ([]models.File, error) {
	var files []models.File
	if err := r.db.Where("project_id = ?", projectID).Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func (r *GormFileRepository) ListForTask(taskID uuid.UUID) ([]models.File, error) {
	var files []models.File
	if err := r.db.Where("task_id = ?", taskID).Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

// GormActivityLogRepository is a GORM implementation of ActivityLogRepository
type GormActivityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository creates a new ActivityLogRepository
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &GormActivityLogRepository{db: db}
}

func (r *GormActivityLogRepository) Create(entry *models.ActivityLog) error {
	return r.db.Create(entry).Error
}

func (r *GormActivityLogRepository) ListForProject(projectID uuid.UUID, limit int) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	query := r.db.Where("project_id = ?", projectID).
		Order("activity_logs.created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
