package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/taskhub/project-management-api/internal/constants"
	"github.com/taskhub/project-management-api/internal/database"
	"github.com/taskhub/project-management-api/internal/dto"
	"github.com/taskhub/project-management-api/internal/models"
	"github.com/taskhub/project-management-api/internal/repository"
	"github.com/taskhub/project-management-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ProjectHandlerTestSuite defines the test suite for ProjectHandler
type ProjectHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	handler *ProjectHandler
}

// SetupTest runs before each test
func (suite *ProjectHandlerTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)
	suite.Require().NoError(migrateTestModels(suite.db))

	database.SetDB(suite.db)

	projectRepo := repository.NewProjectRepository(suite.db)
	userRepo := repository.NewUserRepository(suite.db)
	teamRepo := repository.NewTeamRepository(suite.db)
	taskRepo := repository.NewTaskRepository(suite.db)
	commentRepo := repository.NewCommentRepository(suite.db)
	notificationRepo := repository.NewNotificationRepository(suite.db)
	milestoneRepo := repository.NewMilestoneRepository(suite.db)
	fileRepo := repository.NewFileRepository(suite.db)
	activityRepo := repository.NewActivityLogRepository(suite.db)

	projectService := services.NewProjectService(projectRepo, taskRepo, userRepo, teamRepo, milestoneRepo, fileRepo, activityRepo)
	commentService := services.NewCommentService(commentRepo, taskRepo, projectRepo, notificationRepo, activityRepo)

	suite.handler = NewProjectHandler(projectService, commentService, nopPublisher{})

	gin.SetMode(gin.TestMode)
}

// TearDownTest runs after each test
func (suite *ProjectHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *ProjectHandlerTestSuite) createUser(email string) *models.User {
	user := &models.User{Name: "Owner", Email: email, Role: models.RoleMember}
	suite.Require().NoError(suite.db.Create(user).Error)
	return user
}

func (suite *ProjectHandlerTestSuite) createProject(name string, ownerID uuid.UUID) *models.Project {
	project := &models.Project{
		Name:     name,
		Status:   models.ProjectStatusActive,
		Priority: models.PriorityMedium,
		OwnerID:  ownerID,
	}
	suite.Require().NoError(suite.db.Create(project).Error)
	return project
}

func (suite *ProjectHandlerTestSuite) authContext(method, url string, body []byte, userID uuid.UUID) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set(constants.ContextKeyUserID, userID)

	return c, w
}

// TestCreateProject_OwnerBecomesMember verifies the creator lands on the
// roster.
func (suite *ProjectHandlerTestSuite) TestCreateProject_OwnerBecomesMember() {
	user := suite.createUser("owner@example.com")

	body := []byte(`{"name": "Website"}`)
	c, w := suite.authContext("POST", "/api/projects", body, user.ID)

	suite.handler.CreateProject(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var response dto.ProjectDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(suite.T(), models.ProjectStatusPlanning, response.Status)
	assert.Equal(suite.T(), user.ID, response.OwnerID)

	var member models.ProjectMember
	err := suite.db.Where("project_id = ? AND user_id = ?", response.ID, user.ID).First(&member).Error
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "owner", member.Role)
}

// TestUpdateProject_ProgressOutOfRange verifies the write-time bound check.
func (suite *ProjectHandlerTestSuite) TestUpdateProject_ProgressOutOfRange() {
	user := suite.createUser("owner@example.com")
	project := suite.createProject("Website", user.ID)

	body := []byte(`{"progress": 150}`)
	c, w := suite.authContext("PATCH", "/api/projects/"+project.ID.String(), body, user.ID)
	c.Params = gin.Params{{Key: "id", Value: project.ID.String()}}

	suite.handler.UpdateProject(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	var reloaded models.Project
	suite.Require().NoError(suite.db.First(&reloaded, "id = ?", project.ID).Error)
	assert.Equal(suite.T(), 0, reloaded.Progress)
}

// TestUpdateProject_DatesInverted verifies end before start is rejected.
func (suite *ProjectHandlerTestSuite) TestUpdateProject_DatesInverted() {
	user := suite.createUser("owner@example.com")
	project := suite.createProject("Website", user.ID)

	body := []byte(`{"start_date": "2026-09-01T00:00:00Z", "end_date": "2026-08-01T00:00:00Z"}`)
	c, w := suite.authContext("PATCH", "/api/projects/"+project.ID.String(), body, user.ID)
	c.Params = gin.Params{{Key: "id", Value: project.ID.String()}}

	suite.handler.UpdateProject(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestDeleteProject_Cascades verifies tasks and their child rows go with the
// project.
func (suite *ProjectHandlerTestSuite) TestDeleteProject_Cascades() {
	user := suite.createUser("owner@example.com")
	project := suite.createProject("Website", user.ID)

	task := models.Task{
		Title:     "Work",
		Status:    models.TaskStatusTodo,
		Priority:  models.PriorityMedium,
		ProjectID: project.ID,
	}
	suite.Require().NoError(suite.db.Create(&task).Error)
	label := models.TaskLabel{TaskID: task.ID, Label: "infra"}
	suite.Require().NoError(suite.db.Create(&label).Error)
	comment := models.Comment{Content: "hello", AuthorID: user.ID, TaskID: &task.ID}
	suite.Require().NoError(suite.db.Create(&comment).Error)
	milestone := models.Milestone{Title: "v1", ProjectID: project.ID}
	suite.Require().NoError(suite.db.Create(&milestone).Error)
	taskNotification := models.Notification{
		Type:       models.NotificationTaskAssigned,
		Title:      "Task assigned",
		UserID:     user.ID,
		EntityID:   task.ID,
		EntityType: "task",
	}
	suite.Require().NoError(suite.db.Create(&taskNotification).Error)
	projectNotification := models.Notification{
		Type:       models.NotificationProjectUpdated,
		Title:      "Project updated",
		UserID:     user.ID,
		EntityID:   project.ID,
		EntityType: "project",
	}
	suite.Require().NoError(suite.db.Create(&projectNotification).Error)

	c, w := suite.authContext("DELETE", "/api/projects/"+project.ID.String(), nil, user.ID)
	c.Params = gin.Params{{Key: "id", Value: project.ID.String()}}

	suite.handler.DeleteProject(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	for _, check := range []struct {
		name  string
		model interface{}
	}{
		{"projects", &models.Project{}},
		{"tasks", &models.Task{}},
		{"task_labels", &models.TaskLabel{}},
		{"comments", &models.Comment{}},
		{"milestones", &models.Milestone{}},
		{"project_members", &models.ProjectMember{}},
		{"notifications", &models.Notification{}},
	} {
		var count int64
		suite.db.Model(check.model).Count(&count)
		assert.Equal(suite.T(), int64(0), count, check.name)
	}
}

// TestAddMember_Duplicate verifies roster uniqueness.
func (suite *ProjectHandlerTestSuite) TestAddMember_Duplicate() {
	owner := suite.createUser("owner@example.com")
	member := suite.createUser("member@example.com")
	project := suite.createProject("Website", owner.ID)

	body := []byte(`{"user_id": "` + member.ID.String() + `"}`)
	c, w := suite.authContext("POST", "/api/projects/"+project.ID.String()+"/members", body, owner.ID)
	c.Params = gin.Params{{Key: "id", Value: project.ID.String()}}
	suite.handler.AddMember(c)
	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	c, w = suite.authContext("POST", "/api/projects/"+project.ID.String()+"/members", body, owner.ID)
	c.Params = gin.Params{{Key: "id", Value: project.ID.String()}}
	suite.handler.AddMember(c)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

// TestAttachFile_RequiresTarget verifies untargeted metadata is rejected.
func (suite *ProjectHandlerTestSuite) TestAttachFile_RequiresTarget() {
	user := suite.createUser("owner@example.com")

	body := []byte(`{"name": "brief.pdf", "url": "https://files.example.com/brief.pdf"}`)
	c, w := suite.authContext("POST", "/api/files", body, user.ID)

	suite.handler.AttachFile(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestAttachFile_UnknownTask verifies metadata cannot point at a task that
// does not exist.
func (suite *ProjectHandlerTestSuite) TestAttachFile_UnknownTask() {
	user := suite.createUser("owner@example.com")

	body := []byte(`{"name": "brief.pdf", "url": "https://files.example.com/brief.pdf", "task_id": "` + uuid.NewString() + `"}`)
	c, w := suite.authContext("POST", "/api/files", body, user.ID)

	suite.handler.AttachFile(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	var count int64
	suite.db.Model(&models.File{}).Count(&count)
	assert.Equal(suite.T(), int64(0), count)
}

// TestCompleteMilestone stamps completion once.
func (suite *ProjectHandlerTestSuite) TestCompleteMilestone() {
	user := suite.createUser("owner@example.com")
	project := suite.createProject("Website", user.ID)
	milestone := models.Milestone{Title: "v1", ProjectID: project.ID}
	suite.Require().NoError(suite.db.Create(&milestone).Error)

	c, w := suite.authContext("POST", "/api/milestones/"+milestone.ID.String()+"/complete", nil, user.ID)
	c.Params = gin.Params{{Key: "id", Value: milestone.ID.String()}}

	suite.handler.CompleteMilestone(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var reloaded models.Milestone
	suite.Require().NoError(suite.db.First(&reloaded, "id = ?", milestone.ID).Error)
	assert.True(suite.T(), reloaded.Completed)
	assert.NotNil(suite.T(), reloaded.CompletedAt)
}

// TestUpdateMilestone_ReopenClearsStamp verifies reopening drops the
// completion timestamp.
func (suite *ProjectHandlerTestSuite) TestUpdateMilestone_ReopenClearsStamp() {
	user := suite.createUser("owner@example.com")
	project := suite.createProject("Website", user.ID)
	now := time.Now()
	milestone := models.Milestone{
		Title:       "v1",
		ProjectID:   project.ID,
		Completed:   true,
		CompletedAt: &now,
	}
	suite.Require().NoError(suite.db.Create(&milestone).Error)

	body := []byte(`{"title": "v1.1", "completed": false}`)
	c, w := suite.authContext("PATCH", "/api/milestones/"+milestone.ID.String(), body, user.ID)
	c.Params = gin.Params{{Key: "id", Value: milestone.ID.String()}}

	suite.handler.UpdateMilestone(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var reloaded models.Milestone
	suite.Require().NoError(suite.db.First(&reloaded, "id = ?", milestone.ID).Error)
	assert.Equal(suite.T(), "v1.1", reloaded.Title)
	assert.False(suite.T(), reloaded.Completed)
	assert.Nil(suite.T(), reloaded.CompletedAt)
}

func TestProjectHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(ProjectHandlerTestSuite))
}
