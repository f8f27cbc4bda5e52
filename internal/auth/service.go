package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/studybud-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned when logging in with an unknown username.
	ErrUserNotFound = errors.New("user does not exist")
	// ErrUserExists is returned when trying to register with existing username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUsername is returned when username doesn't meet constraints.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrPasswordMismatch is returned when the confirmation differs from the password.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrSessionExpired is returned when a token's session is gone or expired.
	ErrSessionExpired = errors.New("session expired")
)

const maxUsernameLength = 150

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// Store is the persistence the auth service needs.
type Store interface {
	store.UserStore
	store.SessionStore
}

// Service provides authentication and session operations.
type Service struct {
	store     Store
	jwtConfig *JWTConfig
	now       func() time.Time
}

// NewService creates a new authentication service.
func NewService(st Store, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     st,
		jwtConfig: jwtConfig,
		now:       time.Now,
	}
}

// NormalizeUsername trims and lowercases a username the way it is stored.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Register validates the submission, creates the user and opens a session.
func (s *Service) Register(ctx context.Context, username, password, confirm string) (string, error) {
	username = NormalizeUsername(username)
	if username == "" || len(username) > maxUsernameLength || !usernamePattern.MatchString(username) {
		return "", ErrInvalidUsername
	}
	if err := checkPassword(username, password, confirm); err != nil {
		return "", err
	}

	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		return "", ErrUserExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("lookup user: %w", err)
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return "", err
	}

	user, err := s.store.CreateUser(ctx, username, hashedPassword)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return "", ErrUserExists
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	return s.openSession(ctx, user)
}

// Login validates credentials and opens a session.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.GetUserByUsername(ctx, NormalizeUsername(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return "", ErrInvalidCredentials
	}

	return s.openSession(ctx, user)
}

// Logout ends the session the token is bound to. Invalid or expired tokens
// have no live session and are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := ValidateToken(s.jwtConfig, token)
	if err != nil {
		return nil
	}
	if err := s.store.DeleteSession(ctx, claims.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Authenticate validates a token and checks that its session is still open.
func (s *Service) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := ValidateToken(s.jwtConfig, token)
	if err != nil {
		return nil, err
	}

	sess, err := s.store.GetSession(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if sess.UserID != claims.UserID || !s.now().Before(sess.ExpiresAt) {
		return nil, ErrSessionExpired
	}

	return claims, nil
}

// TTL returns how long issued sessions stay valid.
func (s *Service) TTL() time.Duration {
	return s.jwtConfig.TTL
}

func (s *Service) openSession(ctx context.Context, user *store.User) (string, error) {
	issuedAt := s.now()
	sess := &store.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: issuedAt.Add(s.jwtConfig.TTL),
		CreatedAt: issuedAt.UTC(),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	token, err := GenerateToken(s.jwtConfig, user.ID, user.Username, sess.ID, issuedAt, sess.ExpiresAt)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return token, nil
}
