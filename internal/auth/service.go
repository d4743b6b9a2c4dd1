package auth

import (
	"fmt"
	"time"

	"github.com/mdfaizan0/groove/internal/config"
)

// Service provides authentication for the API
type Service struct {
	config       *config.AuthConfig
	userStore    *UserStore
	tokenManager *TokenManager
	enabled      bool
}

// NewService creates a new authentication service
func NewService(config *config.AuthConfig) (*Service, error) {
	if !config.Enabled {
		return &Service{
			config:  config,
			enabled: false,
		}, nil
	}

	duration, err := time.ParseDuration(config.TokenDuration)
	if err != nil {
		return nil, fmt.Errorf("invalid token duration: %w", err)
	}

	userStore, err := NewUserStore(config.UsersFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create user store: %w", err)
	}

	return &Service{
		config:       config,
		userStore:    userStore,
		tokenManager: NewTokenManager(duration),
		enabled:      true,
	}, nil
}

// IsEnabled returns whether authentication is enabled
func (s *Service) IsEnabled() bool {
	return s.enabled
}

// Login checks credentials and issues a bearer token
func (s *Service) Login(username, password string) (*Token, error) {
	if !s.enabled {
		return nil, fmt.Errorf("authentication is disabled")
	}

	if !s.userStore.Authenticate(username, password) {
		return nil, fmt.Errorf("invalid credentials")
	}

	token, err := s.tokenManager.IssueToken(username)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return token, nil
}

// ValidateToken checks a bearer token value
func (s *Service) ValidateToken(value string) (*Token, bool) {
	if !s.enabled {
		return nil, true // all requests valid when auth is off
	}
	return s.tokenManager.Validate(value)
}

// Logout revokes the token
func (s *Service) Logout(value string) {
	if !s.enabled {
		return
	}
	s.tokenManager.Revoke(value)
}

// RefreshToken extends a token's expiration
func (s *Service) RefreshToken(value string) bool {
	if !s.enabled {
		return true
	}
	return s.tokenManager.Refresh(value)
}

// GetTokenManager returns the token manager (for middleware)
func (s *Service) GetTokenManager() *TokenManager {
	return s.tokenManager
}

// GetUser returns the account for a username, without credentials
func (s *Service) GetUser(username string) *User {
	if !s.enabled {
		return nil
	}
	return s.userStore.GetUser(username)
}

// IsRegistrationAllowed returns whether user registration is enabled
func (s *Service) IsRegistrationAllowed() bool {
	return s.enabled && s.config.AllowRegistration
}

// Register creates a new user account
func (s *Service) Register(username, password string) error {
	if !s.IsRegistrationAllowed() {
		return fmt.Errorf("registration is disabled")
	}

	if username == "" || password == "" {
		return fmt.Errorf("username and password are required")
	}

	if err := s.userStore.RegisterUser(username, password); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}
