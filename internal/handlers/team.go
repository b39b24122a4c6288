package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/project-management-api/internal/dto"
	apierrors "github.com/taskhub/project-management-api/internal/errors"
	"github.com/taskhub/project-management-api/internal/logging"
	"github.com/taskhub/project-management-api/internal/middleware"
	"github.com/taskhub/project-management-api/internal/services"
	"github.com/taskhub/project-management-api/internal/validation"
)

// TeamHandler handles team endpoints
type TeamHandler struct {
	teams *services.TeamService
}

// NewTeamHandler creates a new TeamHandler
func NewTeamHandler(teams *services.TeamService) *TeamHandler {
	return &TeamHandler{teams: teams}
}

// CreateTeam handles POST /api/teams
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required,max=255"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, validation.FormatBindingError(err))
		return
	}

	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	team, err := h.teams.CreateTeam(userID, req.Name, req.Description)
	if err != nil {
		h.respondTeamError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToTeamDTO(*team, true))
}

// ListMyTeams handles GET /api/teams
func (h *TeamHandler) ListMyTeams(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	teams, err := h.teams.ListTeamsForUser(userID)
	if err != nil {
		h.respondTeamError(c, err)
		return
	}

	out := make([]dto.TeamDTO, len(teams))
	for i, t := range teams {
		out[i] = dto.ToTeamDTO(t, true)
	}
	c.JSON(http.StatusOK, gin.H{"teams": out})
}

// GetTeam handles GET /api/teams/:id. The invite code is only revealed to
// members.
func (h *TeamHandler) GetTeam(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	team, err := h.teams.GetTeam(id)
	if err != nil {
		h.respondTeamError(c, err)
		return
	}

	includeCode := false
	if userID, ok := middleware.CurrentUserID(c); ok {
		member, err := h.teams.IsMember(id, userID)
		if err != nil {
			h.respondTeamError(c, err)
			return
		}
		includeCode = member
	}
	c.JSON(http.StatusOK, dto.ToTeamDTO(*team, includeCode))
}

// UpdateTeam handles PATCH /api/teams/:id
func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	var req struct {
		Name        *string `json:"name" binding:"omitempty,min=1,max=255"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, validation.FormatBindingError(err))
		return
	}

	actorID, ok := middleware.CurrentUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	team, err := h.teams.UpdateTeam(id, actorID, req.Name, req.Description)
	if err != nil {
		h.respondTeamError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTeamDTO(*team, true))
}

// RegenerateInviteCode handles POST /api/teams/:id/regenerate-code
func (h *TeamHandler) RegenerateInviteCode(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}
	actorID, ok := middleware.CurrentUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	team, err := h.teams.RegenerateInviteCode(id, actorID)
	if err != nil {
		h.respondTeamError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTeamDTO(*team, true))
}

// Join handles POST /api/teams/join
func (h *TeamHandler) Join(c *gin.Context) {
	var req struct {
		InviteCode string `json:"invite_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, validation.FormatBindingError(err))
		return
	}

	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	team, err := h.teams.Join(userID, req.InviteCode)
	if err != nil {
		h.respondTeamError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTeamDTO(*team, true))
}

// ListMembers handles GET /api/teams/:id/members
func (h *TeamHandler) ListMembers(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}

	members, err := h.teams.ListMembers(id)
	if err != nil {
		h.respondTeamError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// RemoveMember handles DELETE /api/teams/:id/members/:userId
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}
	targetID, ferrs := validation.ParseUUID("userId", c.Param("userId"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}
	actorID, ok := middleware.CurrentUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	if err := h.teams.RemoveMember(id, actorID, targetID); err != nil {
		h.respondTeamError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// DeleteTeam handles DELETE /api/teams/:id
func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	id, ferrs := validation.ParseUUID("id", c.Param("id"))
	if ferrs != nil {
		apierrors.ValidationFailed(c, ferrs)
		return
	}
	actorID, ok := middleware.CurrentUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	if err := h.teams.DeleteTeam(id, actorID); err != nil {
		h.respondTeamError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Team deleted"})
}

// respondTeamError maps service sentinels to HTTP responses.
func (h *TeamHandler) respondTeamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTeamNotFound):
		apierrors.NotFound(c, "Team not found")
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.ConstraintViolation(c, "User does not exist")
	case errors.Is(err, services.ErrInviteCodeInvalid):
		apierrors.NotFound(c, "Invite code not recognized")
	case errors.Is(err, services.ErrAlreadyTeamMember):
		apierrors.Conflict(c, "User is already a team member")
	case errors.Is(err, services.ErrTeamMemberNotFound):
		apierrors.NotFound(c, "Team member not found")
	case errors.Is(err, services.ErrCannotRemoveOwner):
		apierrors.ConstraintViolation(c, "Team owner cannot be removed")
	case errors.Is(err, services.ErrNotTeamOwner):
		apierrors.Forbidden(c, "Only the team owner may do this")
	default:
		logging.Logger.WithError(err).Error("team operation failed")
		apierrors.InternalError(c, "")
	}
}
