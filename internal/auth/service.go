package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"monthlydata/internal/store"
	"monthlydata/models"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

var (
	ErrUsernameRequired    = errors.New("username required")
	ErrPasswordTooShort    = fmt.Errorf("password too short (min %d)", MinPasswordLength)
	ErrUserExists          = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

// Session is what a successful login or refresh hands back.
type Session struct {
	Identity     Identity
	AccessToken  string
	RefreshToken string
}

// Service owns registration, login and refresh-token rotation.
type Service struct {
	users  store.UserStore
	tokens *Tokens
	now    func() time.Time
}

func NewService(users store.UserStore, tokens *Tokens) *Service {
	return &Service{users: users, tokens: tokens, now: time.Now}
}

// Register creates a regular user.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	return s.CreateUser(ctx, username, email, password, models.RoleUser)
}

// CreateUser creates a user with the given role after checking the password policy.
func (s *Service) CreateUser(ctx context.Context, username, email, password, role string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	// pre-check existing (optimistic)
	if _, err := s.users.FindUserByUsername(ctx, username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{Username: username, Email: strings.TrimSpace(email), HashedPassword: hash}
	if err := s.users.CreateUser(ctx, u, role); err != nil {
		if errors.Is(err, store.ErrDuplicate) { // race condition after initial check
			return nil, ErrUserExists
		}
		return nil, err
	}
	return u, nil
}

// Authenticate checks a username/password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(u.HashedPassword, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) identity(ctx context.Context, u *models.User) (Identity, error) {
	role, err := s.users.RoleName(ctx, u)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: u.ID, Username: u.Username, Role: role}, nil
}

// Login authenticates and returns a 24h access token plus a refresh token.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	u, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return Session{}, err
	}
	return s.newSession(ctx, u, LoginTokenTTL)
}

func (s *Service) newSession(ctx context.Context, u *models.User, ttl time.Duration) (Session, error) {
	id, err := s.identity(ctx, u)
	if err != nil {
		return Session{}, err
	}
	access, err := s.tokens.Issue(id, ttl)
	if err != nil {
		return Session{}, err
	}
	refresh, err := s.createRefreshToken(ctx, u.ID)
	if err != nil {
		return Session{}, fmt.Errorf("create refresh token: %w", err)
	}
	return Session{Identity: id, AccessToken: access, RefreshToken: refresh}, nil
}

// createRefreshToken generates a random token, stores its hash with expiry and returns the raw token.
func (s *Service) createRefreshToken(ctx context.Context, userID uint) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	rt := models.RefreshToken{UserID: userID, TokenHash: hashToken(token), ExpiresAt: s.now().Add(RefreshTokenTTL)}
	if err := s.users.SaveRefreshToken(ctx, &rt); err != nil {
		return "", err
	}
	return token, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// Refresh exchanges a refresh token for a short-lived access token and rotates the refresh token.
func (s *Service) Refresh(ctx context.Context, raw string) (Session, error) {
	rt, err := s.users.FindRefreshToken(ctx, hashToken(raw))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, ErrInvalidRefreshToken
		}
		return Session{}, err
	}
	if !rt.Usable(s.now()) {
		return Session{}, ErrInvalidRefreshToken
	}
	u, err := s.users.FindUserByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, ErrInvalidRefreshToken
		}
		return Session{}, err
	}
	if err := s.users.RevokeRefreshToken(ctx, rt.ID); err != nil {
		return Session{}, fmt.Errorf("rotate refresh token: %w", err)
	}
	return s.newSession(ctx, u, RefreshedTokenTTL)
}

// Revoke invalidates a refresh token. Unknown tokens yield store.ErrNotFound.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	rt, err := s.users.FindRefreshToken(ctx, hashToken(raw))
	if err != nil {
		return err
	}
	return s.users.RevokeRefreshToken(ctx, rt.ID)
}

// ResetPassword replaces a user's password.
func (s *Service) ResetPassword(ctx context.Context, username, password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	u, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, u.ID, hash)
}

// SeedAdmin makes sure an "admin" administrator exists.
func (s *Service) SeedAdmin(ctx context.Context, password string) error {
	_, err := s.CreateUser(ctx, "admin", "admin@example.com", password, models.RoleAdministrator)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "Seeded admin user", "component", "auth", "username", "admin")
		return nil
	case errors.Is(err, ErrUserExists):
		return nil
	}
	return fmt.Errorf("seed admin: %w", err)
}
