package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskhub/project-management-api/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDB wires GORM over a sqlmock connection so SQL shape can be asserted
// without a live server.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 conn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
	})
	return db, mock
}

func TestListByProject_OrdersByPriorityRank(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	projectID := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM "tasks" WHERE tasks\.project_id = \$1 ORDER BY CASE tasks\.priority`).
		WithArgs(projectID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}))

	tasks, err := repo.ListByProject(projectID, TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByProject_AppliesFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	projectID := uuid.New()
	assigneeID := uuid.New()

	status := models.TaskStatusTodo
	priority := models.PriorityHigh
	mock.ExpectQuery(`SELECT .* WHERE tasks\.project_id = \$1 AND tasks\.status = \$2 AND tasks\.assignee_id = \$3 AND tasks\.priority = \$4`).
		WithArgs(projectID, status, assigneeID, priority).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.ListByProject(projectID, TaskFilter{
		Status:     &status,
		AssigneeID: &assigneeID,
		Priority:   &priority,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDependencyEdges_JoinsThroughTasks(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	projectID := uuid.New()
	taskID := uuid.New()
	dependsOn := uuid.New()

	rows := sqlmock.NewRows([]string{"task_id", "depends_on_task_id"}).
		AddRow(taskID, dependsOn)
	mock.ExpectQuery(`SELECT .* FROM "task_dependencies" JOIN tasks ON tasks\.id = task_dependencies\.task_id WHERE tasks\.project_id = \$1`).
		WithArgs(projectID).
		WillReturnRows(rows)

	edges, err := repo.ListDependencyEdges(projectID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, taskID, edges[0].TaskID)
	assert.Equal(t, dependsOn, edges[0].DependsOnTaskID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceDependencies_ClearsOnEmptySet(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	taskID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "task_dependencies" WHERE task_id = \$1`).
		WithArgs(taskID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceDependencies(taskID, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_RemovesChildRowsInOneTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	taskID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "task_labels"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "task_dependencies"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "comments"`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM "time_entries"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM "files"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE "files" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE "tasks" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "tasks"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(taskID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
