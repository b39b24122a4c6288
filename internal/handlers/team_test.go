package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
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

// TeamHandlerTestSuite defines the test suite for TeamHandler
type TeamHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	handler *TeamHandler
}

// SetupTest runs before each test
func (suite *TeamHandlerTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)
	suite.Require().NoError(migrateTestModels(suite.db))

	database.SetDB(suite.db)

	teamRepo := repository.NewTeamRepository(suite.db)
	userRepo := repository.NewUserRepository(suite.db)
	suite.handler = NewTeamHandler(services.NewTeamService(teamRepo, userRepo))

	gin.SetMode(gin.TestMode)
}

// TearDownTest runs after each test
func (suite *TeamHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TeamHandlerTestSuite) createUser(email string) *models.User {
	user := &models.User{Name: "Test User", Email: email, Role: models.RoleMember}
	suite.Require().NoError(suite.db.Create(user).Error)
	return user
}

func (suite *TeamHandlerTestSuite) authContext(method, url string, body []byte, userID uuid.UUID) (*gin.Context, *httptest.ResponseRecorder) {
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

func (suite *TeamHandlerTestSuite) createTeam(owner *models.User, name string) dto.TeamDTO {
	body, _ := json.Marshal(map[string]string{"name": name})
	c, w := suite.authContext("POST", "/api/teams", body, owner.ID)

	suite.handler.CreateTeam(c)
	suite.Require().Equal(http.StatusCreated, w.Code)

	var team dto.TeamDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &team))
	return team
}

// TestCreateTeam_EnrollsOwner verifies the creator lands on the roster as
// owner and receives the invite code.
func (suite *TeamHandlerTestSuite) TestCreateTeam_EnrollsOwner() {
	owner := suite.createUser("owner@example.com")

	team := suite.createTeam(owner, "Platform")
	suite.NotEmpty(team.InviteCode)

	var member models.TeamMember
	err := suite.db.Where("team_id = ? AND user_id = ?", team.ID, owner.ID).First(&member).Error
	suite.Require().NoError(err)
	suite.Equal(models.TeamRoleOwner, member.Role)
}

// TestJoin_ByInviteCode covers joining and the duplicate-join conflict.
func (suite *TeamHandlerTestSuite) TestJoin_ByInviteCode() {
	owner := suite.createUser("owner@example.com")
	joiner := suite.createUser("joiner@example.com")
	team := suite.createTeam(owner, "Platform")

	body, _ := json.Marshal(map[string]string{"invite_code": team.InviteCode})
	c, w := suite.authContext("POST", "/api/teams/join", body, joiner.ID)
	suite.handler.Join(c)
	suite.Equal(http.StatusOK, w.Code)

	c, w = suite.authContext("POST", "/api/teams/join", body, joiner.ID)
	suite.handler.Join(c)
	suite.Equal(http.StatusConflict, w.Code)
}

// TestGetTeam_HidesInviteCodeFromOutsiders verifies only members see the code.
func (suite *TeamHandlerTestSuite) TestGetTeam_HidesInviteCodeFromOutsiders() {
	owner := suite.createUser("owner@example.com")
	outsider := suite.createUser("outsider@example.com")
	team := suite.createTeam(owner, "Platform")

	c, w := suite.authContext("GET", "/api/teams/"+team.ID.String(), nil, outsider.ID)
	c.Params = gin.Params{{Key: "id", Value: team.ID.String()}}
	suite.handler.GetTeam(c)

	suite.Equal(http.StatusOK, w.Code)
	var got dto.TeamDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &got))
	suite.Empty(got.InviteCode)
}

// TestUpdateTeam_OwnerOnly verifies members cannot rename the team.
func (suite *TeamHandlerTestSuite) TestUpdateTeam_OwnerOnly() {
	owner := suite.createUser("owner@example.com")
	member := suite.createUser("member@example.com")
	team := suite.createTeam(owner, "Platform")

	body := []byte(`{"name": "Infra"}`)
	c, w := suite.authContext("PATCH", "/api/teams/"+team.ID.String(), body, member.ID)
	c.Params = gin.Params{{Key: "id", Value: team.ID.String()}}
	suite.handler.UpdateTeam(c)
	suite.Equal(http.StatusForbidden, w.Code)

	c, w = suite.authContext("PATCH", "/api/teams/"+team.ID.String(), body, owner.ID)
	c.Params = gin.Params{{Key: "id", Value: team.ID.String()}}
	suite.handler.UpdateTeam(c)
	suite.Equal(http.StatusOK, w.Code)

	var stored models.Team
	suite.Require().NoError(suite.db.First(&stored, "id = ?", team.ID).Error)
	suite.Equal("Infra", stored.Name)
}

// TestRegenerateInviteCode_InvalidatesOldCode verifies the old code stops
// admitting new members.
func (suite *TeamHandlerTestSuite) TestRegenerateInviteCode_InvalidatesOldCode() {
	owner := suite.createUser("owner@example.com")
	joiner := suite.createUser("joiner@example.com")
	team := suite.createTeam(owner, "Platform")
	oldCode := team.InviteCode

	c, w := suite.authContext("POST", "/api/teams/"+team.ID.String()+"/regenerate-code", nil, owner.ID)
	c.Params = gin.Params{{Key: "id", Value: team.ID.String()}}
	suite.handler.RegenerateInviteCode(c)
	suite.Require().Equal(http.StatusOK, w.Code)

	var refreshed dto.TeamDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &refreshed))
	suite.NotEqual(oldCode, refreshed.InviteCode)

	body, _ := json.Marshal(map[string]string{"invite_code": oldCode})
	c, w = suite.authContext("POST", "/api/teams/join", body, joiner.ID)
	suite.handler.Join(c)
	suite.Equal(http.StatusNotFound, w.Code)
}

// TestRemoveMember_OwnerCannotBeRemoved verifies roster rules.
func (suite *TeamHandlerTestSuite) TestRemoveMember_OwnerCannotBeRemoved() {
	owner := suite.createUser("owner@example.com")
	member := suite.createUser("member@example.com")
	team := suite.createTeam(owner, "Platform")

	body, _ := json.Marshal(map[string]string{"invite_code": team.InviteCode})
	c, w := suite.authContext("POST", "/api/teams/join", body, member.ID)
	suite.handler.Join(c)
	suite.Require().Equal(http.StatusOK, w.Code)

	// Owner removal is refused even when the owner asks.
	c, w = suite.authContext("DELETE", "/api/teams/"+team.ID.String()+"/members/"+owner.ID.String(), nil, owner.ID)
	c.Params = gin.Params{
		{Key: "id", Value: team.ID.String()},
		{Key: "userId", Value: owner.ID.String()},
	}
	suite.handler.RemoveMember(c)
	suite.Equal(http.StatusBadRequest, w.Code)

	// A member cannot remove another member; the owner can.
	c, w = suite.authContext("DELETE", "/api/teams/"+team.ID.String()+"/members/"+member.ID.String(), nil, owner.ID)
	c.Params = gin.Params{
		{Key: "id", Value: team.ID.String()},
		{Key: "userId", Value: member.ID.String()},
	}
	suite.handler.RemoveMember(c)
	suite.Equal(http.StatusOK, w.Code)

	var count int64
	suite.db.Model(&models.TeamMember{}).Where("team_id = ?", team.ID).Count(&count)
	suite.Equal(int64(1), count)
}

// TestTeamHandlerTestSuite runs the test suite
func TestTeamHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TeamHandlerTestSuite))
}
