package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/taskhub/project-management-api/internal/database"
	"github.com/taskhub/project-management-api/internal/dto"
	"github.com/taskhub/project-management-api/internal/models"
	"github.com/taskhub/project-management-api/internal/repository"
	"github.com/taskhub/project-management-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// AnalyticsHandlerTestSuite defines the test suite for AnalyticsHandler
type AnalyticsHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	handler *AnalyticsHandler
}

// SetupTest runs before each test
func (suite *AnalyticsHandlerTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)
	suite.Require().NoError(migrateTestModels(suite.db))

	database.SetDB(suite.db)

	reportService := services.NewReportService(repository.NewAnalyticsRepository(suite.db))
	suite.handler = NewAnalyticsHandler(reportService)

	gin.SetMode(gin.TestMode)
}

// TearDownTest runs after each test
func (suite *AnalyticsHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *AnalyticsHandlerTestSuite) createUser(email string) *models.User {
	user := &models.User{Name: "Reporter", Email: email, Role: models.RoleMember}
	suite.Require().NoError(suite.db.Create(user).Error)
	return user
}

func (suite *AnalyticsHandlerTestSuite) createProject(name string, ownerID uuid.UUID, status models.ProjectStatus, budget, spent *float64) *models.Project {
	project := &models.Project{
		Name:        name,
		Status:      status,
		Priority:    models.PriorityMedium,
		OwnerID:     ownerID,
		Budget:      budget,
		SpentBudget: spent,
	}
	suite.Require().NoError(suite.db.Create(project).Error)
	return project
}

func (suite *AnalyticsHandlerTestSuite) createTask(projectID uuid.UUID, status models.TaskStatus, assigneeID *uuid.UUID) *models.Task {
	task := &models.Task{
		Title:      "Task",
		Status:     status,
		Priority:   models.PriorityMedium,
		ProjectID:  projectID,
		AssigneeID: assigneeID,
	}
	suite.Require().NoError(suite.db.Create(task).Error)
	return task
}

func (suite *AnalyticsHandlerTestSuite) getReport(query string) (*dto.AnalyticsResponse, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/analytics", nil)
	req.URL.RawQuery = query

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	suite.handler.GetAnalytics(c)

	if w.Code != http.StatusOK {
		return nil, w
	}
	var response dto.AnalyticsResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	return &response, w
}

// TestCompletionRate_ZeroTasks verifies a project without tasks reports a rate
// of zero instead of a division artifact.
func (suite *AnalyticsHandlerTestSuite) TestCompletionRate_ZeroTasks() {
	user := suite.createUser("reporter@example.com")
	suite.createProject("Empty", user.ID, models.ProjectStatusPlanning, nil, nil)

	report, w := suite.getReport("")
	suite.Require().Equal(http.StatusOK, w.Code)

	suite.Require().Len(report.ProjectCompletion, 1)
	row := report.ProjectCompletion[0]
	assert.Equal(suite.T(), 0, row.TotalTasks)
	assert.Equal(suite.T(), 0, row.CompletedTasks)
	assert.Equal(suite.T(), 0.0, row.CompletionRate)
}

// TestCompletionRate_Counts verifies the done ratio.
func (suite *AnalyticsHandlerTestSuite) TestCompletionRate_Counts() {
	user := suite.createUser("reporter@example.com")
	project := suite.createProject("Busy", user.ID, models.ProjectStatusActive, nil, nil)
	suite.createTask(project.ID, models.TaskStatusDone, nil)
	suite.createTask(project.ID, models.TaskStatusDone, nil)
	suite.createTask(project.ID, models.TaskStatusTodo, nil)
	suite.createTask(project.ID, models.TaskStatusBlocked, nil)

	report, w := suite.getReport("")
	suite.Require().Equal(http.StatusOK, w.Code)

	suite.Require().Len(report.ProjectCompletion, 1)
	row := report.ProjectCompletion[0]
	assert.Equal(suite.T(), 4, row.TotalTasks)
	assert.Equal(suite.T(), 2, row.CompletedTasks)
	assert.Equal(suite.T(), 50.0, row.CompletionRate)
}

// TestStatusDistribution_IncludesZeroCounts verifies every enum value appears
// even when unused.
func (suite *AnalyticsHandlerTestSuite) TestStatusDistribution_IncludesZeroCounts() {
	user := suite.createUser("reporter@example.com")
	project := suite.createProject("Only active", user.ID, models.ProjectStatusActive, nil, nil)
	suite.createTask(project.ID, models.TaskStatusTodo, nil)

	report, w := suite.getReport("")
	suite.Require().Equal(http.StatusOK, w.Code)

	dist := report.StatusDistribution
	suite.Require().Len(dist.Projects, len(models.ProjectStatuses))
	suite.Require().Len(dist.Tasks, len(models.TaskStatuses))

	counts := map[string]int{}
	for _, bucket := range dist.Projects {
		counts[bucket.Status] = bucket.Count
	}
	assert.Equal(suite.T(), 1, counts["active"])
	assert.Equal(suite.T(), 0, counts["planning"])
	assert.Equal(suite.T(), 0, counts["cancelled"])

	taskCounts := map[string]int{}
	for _, bucket := range dist.Tasks {
		taskCounts[bucket.Status] = bucket.Count
	}
	assert.Equal(suite.T(), 1, taskCounts["todo"])
	assert.Equal(suite.T(), 0, taskCounts["review"])
}

// TestBudgetUtilization_ZeroBudget verifies no division artifact for projects
// without a budget.
func (suite *AnalyticsHandlerTestSuite) TestBudgetUtilization_ZeroBudget() {
	user := suite.createUser("reporter@example.com")
	suite.createProject("No budget", user.ID, models.ProjectStatusActive, nil, nil)

	budget := 1000.0
	spent := 250.0
	suite.createProject("Funded", user.ID, models.ProjectStatusActive, &budget, &spent)

	report, w := suite.getReport("")
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Require().Len(report.BudgetUtilization, 2)

	byName := map[string]dto.BudgetRow{}
	for _, row := range report.BudgetUtilization {
		byName[row.ProjectName] = row
	}
	assert.Equal(suite.T(), 0.0, byName["No budget"].Utilization)
	assert.Equal(suite.T(), 25.0, byName["Funded"].Utilization)
}

// TestUserProductivity_FromAssignmentsAndTimeEntries verifies the rows derive
// from real data.
func (suite *AnalyticsHandlerTestSuite) TestUserProductivity_FromAssignmentsAndTimeEntries() {
	user := suite.createUser("worker@example.com")
	project := suite.createProject("Busy", user.ID, models.ProjectStatusActive, nil, nil)
	done := suite.createTask(project.ID, models.TaskStatusDone, &user.ID)
	suite.createTask(project.ID, models.TaskStatusTodo, &user.ID)

	start := time.Now().Add(-2 * time.Hour)
	end := start.Add(90 * time.Minute)
	entry := models.TimeEntry{
		UserID:    user.ID,
		TaskID:    done.ID,
		ProjectID: project.ID,
		StartTime: start,
		EndTime:   &end,
	}
	suite.Require().NoError(suite.db.Create(&entry).Error)

	report, w := suite.getReport("")
	suite.Require().Equal(http.StatusOK, w.Code)

	suite.Require().Len(report.UserProductivity, 1)
	row := report.UserProductivity[0]
	assert.Equal(suite.T(), user.ID, row.UserID)
	assert.Equal(suite.T(), 2, row.AssignedTasks)
	assert.Equal(suite.T(), 1, row.CompletedTasks)
	assert.InDelta(suite.T(), 1.5, row.LoggedHours, 0.01)
}

// TestProjectFilter verifies the project_id filter narrows the dataset.
func (suite *AnalyticsHandlerTestSuite) TestProjectFilter() {
	user := suite.createUser("reporter@example.com")
	keep := suite.createProject("Keep", user.ID, models.ProjectStatusActive, nil, nil)
	suite.createProject("Drop", user.ID, models.ProjectStatusActive, nil, nil)

	report, w := suite.getReport("project_id=" + keep.ID.String())
	suite.Require().Equal(http.StatusOK, w.Code)

	suite.Require().Len(report.ProjectCompletion, 1)
	assert.Equal(suite.T(), "Keep", report.ProjectCompletion[0].ProjectName)
}

// TestInvalidDateFilter verifies filter validation.
func (suite *AnalyticsHandlerTestSuite) TestInvalidDateFilter() {
	_, w := suite.getReport("start_date=not-a-date")
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func TestAnalyticsHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(AnalyticsHandlerTestSuite))
}
