// Package services – UserService
//
// This file implements UserService, which owns account provisioning and
// profile reads. Registration normalizes handles, enforces the persona
// kinds the engine understands, and maps unique-handle violations to a
// predictable error. Profile reads expose the engine-owned counters.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/avray/go-dating-backend/internal/domain"
	"github.com/avray/go-dating-backend/internal/repo"
)

// User-registration errors.
var (
	// ErrInvalidHandle is returned for empty or malformed handles.
	ErrInvalidHandle = errors.New("handle must be 1-64 characters")

	// ErrHandleTaken is returned when the handle is already registered.
	ErrHandleTaken = errors.New("handle already taken")

	// ErrInvalidPersona is returned for persona kinds outside human|bot.
	ErrInvalidPersona = errors.New("kind must be human or bot")
)

// UserService provides account registration and profile lookups.
type UserService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// Register creates a new account. The handle is lowercased and trimmed;
// an empty kind defaults to a human persona.
func (s *UserService) Register(ctx context.Context, handle, displayName, kind string) (*domain.User, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Register",
		trace.WithAttributes(attribute.String("user.kind", kind)),
	)
	defer span.End()

	handle = strings.ToLower(strings.TrimSpace(handle))
	if handle == "" || len(handle) > 64 {
		return nil, ErrInvalidHandle
	}
	switch kind {
	case "", domain.PersonaHuman:
		kind = domain.PersonaHuman
	case domain.PersonaBot:
	default:
		return nil, ErrInvalidPersona
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = handle
	}

	u := &domain.User{
		Handle:      handle,
		DisplayName: displayName,
		Kind:        kind,
		Active:      true,
	}
	if err := repo.CreateUser(ctx, s.DB, u); err != nil {
		if isHandleConflict(err) {
			return nil, ErrHandleTaken
		}
		return nil, err
	}
	return u, nil
}

// Get fetches a profile with its aggregate counters.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// Deactivate marks an account inactive. Inactive profiles can no longer
// receive likes; existing matches and threads are untouched.
func (s *UserService) Deactivate(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// isHandleConflict reports whether err is the unique-handle violation.
// glebarez/sqlite surfaces these as plain-text constraint errors.
func isHandleConflict(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
