package database

import (
	"fmt"

	"gorm.io/gorm"
)

// AddIndexes adds performance-critical indexes beyond what AutoMigrate
// derives from struct tags. Postgres only; other drivers rely on the tag
// indexes alone.
func AddIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}

	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		{"tasks", "idx_tasks_project_status", "project_id, status"},
		{"tasks", "idx_tasks_project_assignee", "project_id, assignee_id"},
		{"comments", "idx_comments_task_id", "task_id"},
		{"comments", "idx_comments_project_id", "project_id"},
		{"notifications", "idx_notifications_user_read", "user_id, read"},
		{"time_entries", "idx_time_entries_user_task", "user_id, task_id"},
		{"project_members", "idx_project_members_user_id", "user_id"},
		{"team_members", "idx_team_members_user_id", "user_id"},
	}

	for _, idx := range indexes {
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, idx.table, idx.name).Scan(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}
		if count > 0 {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
