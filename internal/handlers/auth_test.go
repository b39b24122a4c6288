package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/taskhub/project-management-api/internal/database"
	"github.com/taskhub/project-management-api/internal/dto"
	"github.com/taskhub/project-management-api/internal/middleware"
	"github.com/taskhub/project-management-api/internal/models"
	"github.com/taskhub/project-management-api/internal/repository"
	"github.com/taskhub/project-management-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type authTestEnv struct {
	db     *gorm.DB
	router *gin.Engine
}

func setupAuthTestEnv(t *testing.T, userInfoURL string) authTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migrateTestModels(db))

	database.SetDB(db)

	userRepo := repository.NewUserRepository(db)
	authService := services.NewAuthService(userRepo, userInfoURL)
	handler := NewAuthHandler(authService)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	store := cookie.NewStore([]byte("secret"))
	r.Use(sessions.Sessions("pm_session", store))

	auth := r.Group("/api/auth")
	{
		auth.POST("/signup", handler.SignUp)
		auth.POST("/login", handler.Login)
		auth.POST("/oauth", handler.OAuthSignIn)
		auth.POST("/logout", handler.Logout)
		auth.GET("/me", middleware.RequireAuth(), handler.Me)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return authTestEnv{db: db, router: r}
}

func postJSON(router *gin.Engine, url string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSignUp_CreatesSessionAndProfile(t *testing.T) {
	env := setupAuthTestEnv(t, "")

	w := postJSON(env.router, "/api/auth/signup", map[string]string{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "supersecret",
	}, nil)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotEmpty(t, w.Result().Cookies(), "expected session cookie to be set")

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "alice@example.com", response.Email)
	require.Equal(t, models.RoleMember, response.Role)

	// The password never leaves the server.
	require.NotContains(t, w.Body.String(), "password")
	require.NotContains(t, w.Body.String(), "hash")
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	env := setupAuthTestEnv(t, "")

	body := map[string]string{"name": "Alice", "email": "alice@example.com", "password": "supersecret"}
	w := postJSON(env.router, "/api/auth/signup", body, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(env.router, "/api/auth/signup", body, nil)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestSignUp_ShortPassword(t *testing.T) {
	env := setupAuthTestEnv(t, "")

	w := postJSON(env.router, "/api/auth/signup", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "short",
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := setupAuthTestEnv(t, "")

	w := postJSON(env.router, "/api/auth/signup", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "supersecret",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(env.router, "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "wrongwrong",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Unknown email reads the same as a wrong password.
	w = postJSON(env.router, "/api/auth/login", map[string]string{
		"email": "nobody@example.com", "password": "whatever",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe_RoundTrip(t *testing.T) {
	env := setupAuthTestEnv(t, "")

	w := postJSON(env.router, "/api/auth/signup", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "supersecret",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	cookies := w.Result().Cookies()

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Equal(t, "alice@example.com", response.Email)
}

func TestMe_Unauthenticated(t *testing.T) {
	env := setupAuthTestEnv(t, "")

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOAuthSignIn_CreatesProfileOnFirstSignIn(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"sub":     "acct-123",
			"name":    "Bob",
			"email":   "bob@example.com",
			"picture": "https://avatars.example.com/bob.png",
		})
	}))
	defer provider.Close()

	env := setupAuthTestEnv(t, provider.URL)

	w := postJSON(env.router, "/api/auth/oauth", map[string]string{
		"provider": "example", "access_token": "good-token",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var user models.User
	require.NoError(t, env.db.Where("email = ?", "bob@example.com").First(&user).Error)
	require.Equal(t, "example", user.Provider)
	require.Equal(t, "acct-123", user.ProviderAccountID)
	require.Equal(t, models.RoleMember, user.Role)

	// Second sign-in resolves to the same row.
	w = postJSON(env.router, "/api/auth/oauth", map[string]string{
		"provider": "example", "access_token": "good-token",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	env.db.Model(&models.User{}).Count(&count)
	require.Equal(t, int64(1), count)
}

func TestOAuthSignIn_RejectedToken(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer provider.Close()

	env := setupAuthTestEnv(t, provider.URL)

	w := postJSON(env.router, "/api/auth/oauth", map[string]string{
		"provider": "example", "access_token": "bad-token",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
