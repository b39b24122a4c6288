package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/taskhub/project-management-api/internal/constants"
	"github.com/taskhub/project-management-api/internal/database"
	"github.com/taskhub/project-management-api/internal/models"
	"github.com/taskhub/project-management-api/internal/repository"
	"github.com/taskhub/project-management-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// CommentHandlerTestSuite defines the test suite for CommentHandler
type CommentHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	handler *CommentHandler

	user    *models.User
	project *models.Project
	task    *models.Task
}

// SetupTest runs before each test
func (suite *CommentHandlerTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)
	suite.Require().NoError(migrateTestModels(suite.db))

	database.SetDB(suite.db)

	commentRepo := repository.NewCommentRepository(suite.db)
	taskRepo := repository.NewTaskRepository(suite.db)
	projectRepo := repository.NewProjectRepository(suite.db)
	notificationRepo := repository.NewNotificationRepository(suite.db)
	activityRepo := repository.NewActivityLogRepository(suite.db)

	commentService := services.NewCommentService(commentRepo, taskRepo, projectRepo, notificationRepo, activityRepo)
	suite.handler = NewCommentHandler(commentService, nopPublisher{})

	gin.SetMode(gin.TestMode)

	suite.user = &models.User{Name: "Author", Email: "author@example.com", Role: models.RoleMember}
	suite.Require().NoError(suite.db.Create(suite.user).Error)

	suite.project = &models.Project{
		Name:     "Website",
		Status:   models.ProjectStatusActive,
		Priority: models.PriorityMedium,
		OwnerID:  suite.user.ID,
	}
	suite.Require().NoError(suite.db.Create(suite.project).Error)

	suite.task = &models.Task{
		Title:     "Work",
		Status:    models.TaskStatusTodo,
		Priority:  models.PriorityMedium,
		ProjectID: suite.project.ID,
	}
	suite.Require().NoError(suite.db.Create(suite.task).Error)
}

// TearDownTest runs after each test
func (suite *CommentHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *CommentHandlerTestSuite) postComment(body []byte, userID uuid.UUID) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/comments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set(constants.ContextKeyUserID, userID)

	suite.handler.CreateComment(c)
	return w
}

// TestCreateComment_OnTask is the straightforward case.
func (suite *CommentHandlerTestSuite) TestCreateComment_OnTask() {
	body := []byte(`{"content": "Looks good", "task_id": "` + suite.task.ID.String() + `"}`)
	w := suite.postComment(body, suite.user.ID)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var response models.Comment
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Require().NotNil(response.TaskID)
	assert.Equal(suite.T(), suite.task.ID, *response.TaskID)
	assert.Nil(suite.T(), response.ProjectID)
}

// TestCreateComment_NoTarget verifies the exclusivity rule's lower bound.
func (suite *CommentHandlerTestSuite) TestCreateComment_NoTarget() {
	body := []byte(`{"content": "Floating"}`)
	w := suite.postComment(body, suite.user.ID)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestCreateComment_BothTargets verifies the exclusivity rule's upper bound.
func (suite *CommentHandlerTestSuite) TestCreateComment_BothTargets() {
	body := []byte(`{"content": "Greedy", "task_id": "` + suite.task.ID.String() + `", "project_id": "` + suite.project.ID.String() + `"}`)
	w := suite.postComment(body, suite.user.ID)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	var count int64
	suite.db.Model(&models.Comment{}).Count(&count)
	assert.Equal(suite.T(), int64(0), count)
}

// TestCreateComment_ThreadedReply verifies parent resolution within a thread.
func (suite *CommentHandlerTestSuite) TestCreateComment_ThreadedReply() {
	parent := models.Comment{Content: "First", AuthorID: suite.user.ID, TaskID: &suite.task.ID}
	suite.Require().NoError(suite.db.Create(&parent).Error)

	body := []byte(`{"content": "Reply", "task_id": "` + suite.task.ID.String() + `", "parent_comment_id": "` + parent.ID.String() + `"}`)
	w := suite.postComment(body, suite.user.ID)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var response models.Comment
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Require().NotNil(response.ParentCommentID)
	assert.Equal(suite.T(), parent.ID, *response.ParentCommentID)
}

// TestCreateComment_ParentInOtherThread verifies a reply cannot cross threads.
func (suite *CommentHandlerTestSuite) TestCreateComment_ParentInOtherThread() {
	parent := models.Comment{Content: "Project chatter", AuthorID: suite.user.ID, ProjectID: &suite.project.ID}
	suite.Require().NoError(suite.db.Create(&parent).Error)

	body := []byte(`{"content": "Reply", "task_id": "` + suite.task.ID.String() + `", "parent_comment_id": "` + parent.ID.String() + `"}`)
	w := suite.postComment(body, suite.user.ID)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestDeleteComment_OnlyAuthor verifies the ownership check and reply cleanup.
func (suite *CommentHandlerTestSuite) TestDeleteComment_OnlyAuthor() {
	other := &models.User{Name: "Other", Email: "other@example.com", Role: models.RoleMember}
	suite.Require().NoError(suite.db.Create(other).Error)

	comment := models.Comment{Content: "Mine", AuthorID: suite.user.ID, TaskID: &suite.task.ID}
	suite.Require().NoError(suite.db.Create(&comment).Error)
	reply := models.Comment{Content: "Reply", AuthorID: other.ID, TaskID: &suite.task.ID, ParentCommentID: &comment.ID}
	suite.Require().NoError(suite.db.Create(&reply).Error)

	// Not the author.
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("DELETE", "/api/comments/"+comment.ID.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: comment.ID.String()}}
	c.Set(constants.ContextKeyUserID, other.ID)
	suite.handler.DeleteComment(c)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	// The author.
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("DELETE", "/api/comments/"+comment.ID.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: comment.ID.String()}}
	c.Set(constants.ContextKeyUserID, suite.user.ID)
	suite.handler.DeleteComment(c)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var count int64
	suite.db.Model(&models.Comment{}).Count(&count)
	assert.Equal(suite.T(), int64(0), count)
}

func TestCommentHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(CommentHandlerTestSuite))
}
