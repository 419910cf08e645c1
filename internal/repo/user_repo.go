// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User
// model, including the locked reads and clamped counter updates the
// interaction engine relies on.
//
// All functions are context-aware and accept a *gorm.DB handle, making
// them safe for use within transactions. They follow the "thin
// repository" approach: no business logic, only persistence.
//
// Error semantics:
//   - When a user is not found, functions return gorm.ErrRecordNotFound
//     (exported here as ErrNotFound).
//   - On other DB errors, the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avray/go-dating-backend/internal/domain"
)

// CounterDelta is a signed adjustment to one user's aggregate counters.
// Application clamps every counter at zero.
type CounterDelta struct {
	Likes   int
	Matches int
	Rejects int
}

// IsZero reports whether applying the delta would change nothing.
func (d CounterDelta) IsZero() bool { return d == CounterDelta{} }

// CreateUser inserts a new user row. The ID is generated when empty.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Kind == "" {
		u.Kind = domain.PersonaHuman
	}
	u.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(u).Error
}

// GetUser fetches a user by id, or ErrNotFound if missing.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserForUpdate fetches a user under a row-level write lock (where the
// driver supports it). Call only inside a transaction.
func GetUserForUpdate(ctx context.Context, tx *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := forUpdate(tx.WithContext(ctx)).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ApplyCounterDelta adjusts a user's aggregate counters in place,
// clamping each at zero. The read-modify-write is only safe under the
// caller's transaction (the engine holds the user row locked).
func ApplyCounterDelta(ctx context.Context, tx *gorm.DB, u *domain.User, d CounterDelta) error {
	if d.IsZero() {
		return nil
	}
	u.TotalLikes = clampZero(u.TotalLikes + d.Likes)
	u.TotalMatches = clampZero(u.TotalMatches + d.Matches)
	u.TotalRejects = clampZero(u.TotalRejects + d.Rejects)

	res := tx.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"total_likes":   u.TotalLikes,
			"total_matches": u.TotalMatches,
			"total_rejects": u.TotalRejects,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func clampZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
