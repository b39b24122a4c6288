package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/taskhub/project-management-api/internal/logging"
	"github.com/taskhub/project-management-api/internal/models"
	"github.com/taskhub/project-management-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrOAuthUnavailable   = errors.New("identity provider unavailable")
	ErrOAuthRejected      = errors.New("identity provider rejected the token")
)

// providerProfile is the subset of the userinfo response we persist.
type providerProfile struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// AuthService handles credential and OAuth sign-in.
type AuthService struct {
	users       repository.UserRepository
	userInfoURL string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker
}

// NewAuthService creates a new AuthService. The circuit breaker opens after
// repeated userinfo failures so a dead provider fails fast instead of tying up
// request goroutines.
func NewAuthService(users repository.UserRepository, userInfoURL string) *AuthService {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "oauth-userinfo",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state change")
		},
	})

	return &AuthService{
		users:       users,
		userInfoURL: userInfoURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		breaker:     breaker,
	}
}

// SignUp registers a credential account.
func (s *AuthService) SignUp(name, email, password string) (*models.User, error) {
	if _, err := s.users.FindByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Name:         name,
		Email:        email,
		Role:         models.RoleMember,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login verifies credentials. The same error covers unknown email and wrong
// password so the endpoint does not leak which one failed.
func (s *AuthService) Login(email, password string) (*models.User, error) {
	user, err := s.users.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// OAuthSignIn verifies a bearer token against the provider's userinfo endpoint
// and resolves it to a profile row, creating one on first sign-in.
func (s *AuthService) OAuthSignIn(provider, accessToken string) (*models.User, error) {
	profile, err := s.fetchProfile(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByProviderAccount(provider, profile.Sub)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Link to an existing credential account with the same email.
	if existing, err := s.users.FindByEmail(profile.Email); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := models.User{
		Name:              profile.Name,
		Email:             profile.Email,
		AvatarURL:         profile.Picture,
		Role:              models.RoleMember,
		Provider:          provider,
		ProviderAccountID: profile.Sub,
	}
	if err := s.users.Create(&created); err != nil {
		return nil, err
	}
	logging.Logger.WithField("provider", provider).Info("created profile on first sign-in")
	return &created, nil
}

func (s *AuthService) fetchProfile(accessToken string) (*providerProfile, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequest(http.MethodGet, s.userInfoURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			// A bad token is the caller's fault, not the provider's; do not
			// count it against the breaker.
			return &providerProfile{}, nil
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
		}

		var profile providerProfile
		if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
			return nil, err
		}
		return &profile, nil
	})
	if err != nil {
		logging.Logger.WithError(err).Warn("userinfo request failed")
		return nil, ErrOAuthUnavailable
	}

	profile := result.(*providerProfile)
	if profile.Sub == "" {
		return nil, ErrOAuthRejected
	}
	return profile, nil
}

// GetUser returns one profile row.
func (s *AuthService) GetUser(id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ListUsers returns all profiles, for assignee pickers.
func (s *AuthService) ListUsers() ([]models.User, error) {
	return s.users.List()
}
