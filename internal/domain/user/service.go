package user

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/civicwatch/civicwatch/internal/repository"
	"github.com/google/uuid"
)

// Service handles identity and role lookups.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new user service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// EnsureRequest defines user creation inputs.
type EnsureRequest struct {
	ID     string
	Email  string
	Role   Role
	Method string
}

// EnsureUser returns the stored user, creating it when missing.
func (s *Service) EnsureUser(ctx context.Context, req EnsureRequest) (*User, error) {
	if strings.TrimSpace(req.ID) == "" {
		return nil, ErrInvalidInput
	}
	if req.Role != RoleUnset {
		if err := ValidateRole(req.Role); err != nil {
			return nil, err
		}
	}

	existing, err := s.repo.Get(ctx, req.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("getting user: %w", err)
	}

	u := &User{
		ID:        req.ID,
		Email:     req.Email,
		Role:      req.Role,
		Method:    req.Method,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return u, nil
}

// Get fetches a user by ID.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// SetRole sets the role tag of an existing user.
func (s *Service) SetRole(ctx context.Context, id string, role Role) error {
	if err := ValidateRole(role); err != nil {
		return err
	}
	if err := s.repo.SetRole(ctx, id, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("setting role: %w", err)
	}
	return nil
}

// RoleOf returns the role of a user, or RoleUnset when the user is unknown
// or the lookup fails.
func (s *Service) RoleOf(ctx context.Context, id string) Role {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) && s.logger != nil {
			s.logger.Warn("role lookup failed", "user_id", id, "error", err)
		}
		return RoleUnset
	}
	return u.Role
}

// IssueAPIKey creates a new API key for the user and returns the plaintext token.
func (s *Service) IssueAPIKey(ctx context.Context, userID, description string) (string, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return "", err
	}
	token := "cw_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := s.repo.AddAPIKey(ctx, HashToken(token), userID, description); err != nil {
		return "", fmt.Errorf("adding api key: %w", err)
	}
	return token, nil
}

// Resolve maps a bearer token to a principal.
func (s *Service) Resolve(ctx context.Context, token string) (Principal, error) {
	if strings.TrimSpace(token) == "" {
		return Principal{}, ErrInvalidInput
	}
	userID, err := s.repo.ResolveAPIKey(ctx, HashToken(token))
	if err != nil || userID == "" {
		return Principal{}, fmt.Errorf("unauthorized: invalid token")
	}
	return Principal{ID: userID, Role: s.RoleOf(ctx, userID)}, nil
}

// ValidateRole checks that role is admin or client.
func ValidateRole(role Role) error {
	if role != RoleAdmin && role != RoleClient {
		return ErrInvalidRole
	}
	return nil
}

// HashToken returns the stored form of an API key.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
