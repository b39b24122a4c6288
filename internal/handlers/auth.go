package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/taskhub/project-management-api/internal/constants"
	"github.com/taskhub/project-management-api/internal/dto"
	apierrors "github.com/taskhub/project-management-api/internal/errors"
	"github.com/taskhub/project-management-api/internal/logging"
	"github.com/taskhub/project-management-api/internal/middleware"
	"github.com/taskhub/project-management-api/internal/models"
	"github.com/taskhub/project-management-api/internal/services"
	"github.com/taskhub/project-management-api/internal/validation"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	auth *services.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// SignUp handles POST /api/auth/signup
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required,max=255"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, validation.FormatBindingError(err))
		return
	}

	user, err := h.auth.SignUp(req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			apierrors.Conflict(c, "Email is already registered")
			return
		}
		logging.Logger.WithError(err).Error("signup failed")
		apierrors.InternalError(c, "")
		return
	}

	h.establishSession(c, user)
	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, validation.FormatBindingError(err))
		return
	}

	user, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			apierrors.RespondWithError(c, http.StatusUnauthorized,
				apierrors.NewAPIError(apierrors.ErrCodeInvalidCredentials, "Invalid email or password"))
			return
		}
		logging.Logger.WithError(err).Error("login failed")
		apierrors.InternalError(c, "")
		return
	}

	h.establishSession(c, user)
	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// OAuthSignIn handles POST /api/auth/oauth. The client hands over the
// provider's access token; the server verifies it against the userinfo
// endpoint and creates a profile on first sign-in.
func (h *AuthHandler) OAuthSignIn(c *gin.Context) {
	var req struct {
		Provider    string `json:"provider" binding:"required,max=50"`
		AccessToken string `json:"access_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, validation.FormatBindingError(err))
		return
	}

	user, err := h.auth.OAuthSignIn(req.Provider, req.AccessToken)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOAuthRejected):
			apierrors.Unauthorized(c, "Identity provider rejected the token")
		case errors.Is(err, services.ErrOAuthUnavailable):
			apierrors.ServiceUnavailable(c, "Identity provider unavailable")
		default:
			logging.Logger.WithError(err).Error("oauth sign-in failed")
			apierrors.InternalError(c, "")
		}
		return
	}

	h.establishSession(c, user)
	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{MaxAge: -1, Path: "/"})
	if err := session.Save(); err != nil {
		logging.Logger.WithError(err).Error("failed to clear session")
		apierrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	user, err := h.auth.GetUser(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			apierrors.Unauthorized(c, "")
			return
		}
		logging.Logger.WithError(err).Error("failed to load profile")
		apierrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// ListUsers handles GET /api/users
func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.auth.ListUsers()
	if err != nil {
		logging.Logger.WithError(err).Error("failed to list users")
		apierrors.InternalError(c, "")
		return
	}

	out := make([]dto.UserDTO, len(users))
	for i, u := range users {
		out[i] = dto.ToUserDTO(u)
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

func (h *AuthHandler) establishSession(c *gin.Context, user *models.User) {
	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, user.ID.String())
	if err := session.Save(); err != nil {
		logging.Logger.WithError(err).Error("failed to save session")
	}
}
