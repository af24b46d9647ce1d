package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gaming-library/internal/auth"
	"github.com/gaming-library/internal/domain"
)

// AuthService handles account registration and token issuance
type AuthService struct {
	users  domain.UserStore
	tokens *auth.JWTManager
	logger *slog.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users domain.UserStore, tokens *auth.JWTManager, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// Signup registers a new account and returns an access token for it.
// Username conflicts are reported before email conflicts.
func (s *AuthService) Signup(ctx context.Context, req domain.SignupRequest) (*domain.TokenResponse, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	if _, err := s.users.GetUserByUsername(ctx, req.Username); err == nil {
		s.logger.Info("signup rejected: username taken", "username", req.Username)
		return nil, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("checking username: %w", err)
	}

	if _, err := s.users.GetUserByEmail(ctx, req.Email); err == nil {
		s.logger.Info("signup rejected: email registered", "email", req.Email)
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: hashed,
		IsActive:       true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user signed up", "username", user.Username)
	return s.issue(user.Username)
}

// Login verifies credentials and returns an access token
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest) (*domain.TokenResponse, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Info("login failed", "email", req.Email)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if !auth.CheckPassword(user.HashedPassword, req.Password) {
		s.logger.Info("login failed", "email", req.Email)
		return nil, domain.ErrInvalidCredentials
	}

	s.logger.Info("user logged in", "username", user.Username)
	return s.issue(user.Username)
}

// ResolveUser validates an access token and loads the user it names
func (s *AuthService) ResolveUser(ctx context.Context, token string) (*domain.User, error) {
	username, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return s.users.GetUserByUsername(ctx, username)
}

// Me returns the public profile of the token's user
func (s *AuthService) Me(ctx context.Context, token string) (*domain.UserInfo, error) {
	user, err := s.ResolveUser(ctx, token)
	if err != nil {
		return nil, err
	}
	return &domain.UserInfo{Username: user.Username, Email: user.Email}, nil
}

func (s *AuthService) issue(username string) (*domain.TokenResponse, error) {
	token, err := s.tokens.GenerateToken(username)
	if err != nil {
		return nil, err
	}
	return &domain.TokenResponse{AccessToken: token, TokenType: auth.TokenType}, nil
}
