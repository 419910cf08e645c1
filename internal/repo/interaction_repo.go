// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Interaction model: the directional edges the interaction engine reads
// under lock and overwrites in place.
//
// Functions:
//
//   - GetEdgeForUpdate(ctx, tx, actorID, targetID) -> *domain.Interaction, error
//     Fetches one directional edge under a row lock; nil (not an error)
//     when the edge does not exist yet.
//
//   - LockPair(ctx, tx, x, y) -> forward, reverse, error
//     Fetches both directions of a pair under locks, always acquiring
//     rows in canonical (ascending actor id) order to avoid deadlock
//     between two users acting on each other simultaneously.
//
//   - SaveEdge(ctx, tx, edge) -> error
//     Inserts or overwrites an edge. The (actor_id, target_id) unique
//     index guarantees a single row per direction.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avray/go-dating-backend/internal/domain"
)

// GetEdgeForUpdate fetches the (actorID, targetID) edge under a row-level
// lock. A missing edge is reported as (nil, nil): absence is a valid
// state ("none") for the transition table, not an error.
func GetEdgeForUpdate(ctx context.Context, tx *gorm.DB, actorID, targetID string) (*domain.Interaction, error) {
	var e domain.Interaction
	err := forUpdate(tx.WithContext(ctx)).
		Where("actor_id = ? AND target_id = ?", actorID, targetID).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// LockPair reads both directional edges between x and y under row locks,
// acquiring them in canonical order regardless of argument order. The
// returned edges are keyed by direction: forward is (x -> y), reverse is
// (y -> x); either may be nil when no row exists yet.
func LockPair(ctx context.Context, tx *gorm.DB, x, y string) (forward, reverse *domain.Interaction, err error) {
	p := domain.NewPair(x, y)

	// Lock (A->B) then (B->A): a fixed order keyed on the canonical pair,
	// not on who is acting.
	ab, err := GetEdgeForUpdate(ctx, tx, p.A, p.B)
	if err != nil {
		return nil, nil, err
	}
	ba, err := GetEdgeForUpdate(ctx, tx, p.B, p.A)
	if err != nil {
		return nil, nil, err
	}

	if x == p.A {
		return ab, ba, nil
	}
	return ba, ab, nil
}

// SaveEdge inserts the edge or overwrites the existing row for its
// direction. The edge is a current-state snapshot: subsequent decisions
// replace action and mutual rather than appending history.
func SaveEdge(ctx context.Context, tx *gorm.DB, e *domain.Interaction) error {
	now := time.Now().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
		e.CreatedAt = now
		e.UpdatedAt = now
		return tx.WithContext(ctx).Create(e).Error
	}
	e.UpdatedAt = now
	res := tx.WithContext(ctx).Model(&domain.Interaction{}).
		Where("id = ?", e.ID).
		Updates(map[string]any{
			"action":     e.Action,
			"mutual":     e.Mutual,
			"updated_at": e.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetEdge fetches one directional edge without locking, or ErrNotFound.
func GetEdge(ctx context.Context, db *gorm.DB, actorID, targetID string) (*domain.Interaction, error) {
	var e domain.Interaction
	err := db.WithContext(ctx).
		Where("actor_id = ? AND target_id = ?", actorID, targetID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CountEdgesByAction returns how many edges the actor currently holds
// with the given action. Used by maintenance tooling and tests to check
// counter drift.
func CountEdgesByAction(ctx context.Context, db *gorm.DB, actorID, action string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Interaction{}).
		Where("actor_id = ? AND action = ?", actorID, action).
		Count(&n).Error
	return n, err
}
