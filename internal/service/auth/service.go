package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/splax/cybervault/internal/domain"
	"github.com/splax/cybervault/internal/repository"
	"github.com/splax/cybervault/pkg/config"
	"github.com/splax/cybervault/pkg/crypto"
	jwtpkg "github.com/splax/cybervault/pkg/jwt"
)

var (
	// ErrUsernameTaken is returned when signing up with an existing username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidCredentials is returned for unknown users or wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned for missing or invalid bearer tokens.
	ErrUnauthorized = errors.New("unauthorized")
)

// Session is an authenticated user with an access token.
type Session struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expiresIn"`
}

// Service handles authentication workflows.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	secret string
	ttl    time.Duration
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, logger: logger, secret: cfg.JWTSecret, ttl: cfg.AccessTokenTTL}
}

// Signup registers a new user and issues a token.
func (s Service) Signup(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.Invalid("username", "is required")
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		if errors.Is(err, crypto.ErrPasswordTooShort) {
			return nil, domain.Invalid("password", err.Error())
		}
		return nil, err
	}
	user := &domain.User{Username: username, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return s.session(user)
}

// Login authenticates a user and issues a token.
func (s Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Warn("login rejected", "username", user.Username)
		return nil, ErrInvalidCredentials
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return s.session(user)
}

// Authorize validates a bearer token and returns the associated user.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, ErrUnauthorized
	}
	claims, err := jwtpkg.Parse(trimmed, s.secret)
	if err != nil {
		return nil, ErrUnauthorized
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

func (s Service) session(user *domain.User) (*Session, error) {
	token, err := jwtpkg.GenerateToken(user.ID, user.Username, s.secret, s.ttl)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresIn: int64(s.ttl.Seconds())}, nil
}
