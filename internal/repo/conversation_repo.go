// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Conversation model: canonical-pair provisioning and the slot-suffixed
// per-participant columns (unread/pinned/archived/status).
//
// Error semantics follow the rest of the package: ErrNotFound for missing
// rows, raw gorm errors otherwise. Provisioning races are resolved by the
// unique index on the canonical pair; the losing insert re-reads the
// winner's row instead of failing.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/avray/go-dating-backend/internal/domain"
)

// isUniqueViolation reports whether err is a unique-constraint failure.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations,
// so the message is inspected as a fallback.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// GetConversation fetches a conversation by id, or ErrNotFound.
func GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetConversationByPair fetches the conversation for a canonical pair,
// or ErrNotFound.
func GetConversationByPair(ctx context.Context, db *gorm.DB, p domain.Pair) (*domain.Conversation, error) {
	var c domain.Conversation
	err := db.WithContext(ctx).
		Where("user_a_id = ? AND user_b_id = ?", p.A, p.B).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetOrCreateConversation returns the single conversation for the pair,
// creating it with zero unread counts and active status on both sides
// when absent. Safe under concurrent callers: the loser of an insert race
// falls back to re-reading the winner's row.
func GetOrCreateConversation(ctx context.Context, db *gorm.DB, p domain.Pair) (*domain.Conversation, bool, error) {
	if c, err := GetConversationByPair(ctx, db, p); err == nil {
		return c, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	c := &domain.Conversation{
		ID:        uuid.NewString(),
		UserAID:   p.A,
		UserBID:   p.B,
		StatusA:   domain.ChatActive,
		StatusB:   domain.ChatActive,
		CreatedAt: time.Now().UTC(),
	}
	err := db.WithContext(ctx).Create(c).Error
	if err == nil {
		return c, true, nil
	}
	if isUniqueViolation(err) {
		existing, rerr := GetConversationByPair(ctx, db, p)
		if rerr != nil {
			return nil, false, rerr
		}
		return existing, false, nil
	}
	return nil, false, err
}

// slotColumn resolves a slot-suffixed column name ("unread", "pinned",
// "archived", "status") for the given slot.
func slotColumn(base string, s domain.Slot) string {
	if s == domain.SlotB {
		return base + "_b"
	}
	return base + "_a"
}

// SetSideFlag sets one boolean per-participant column ("pinned" or
// "archived") for the given slot. Idempotent by construction.
func SetSideFlag(ctx context.Context, db *gorm.DB, convID, base string, s domain.Slot, v bool) error {
	res := db.WithContext(ctx).Model(&domain.Conversation{}).
		Where("id = ?", convID).
		Update(slotColumn(base, s), v)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetSideStatus sets one participant's chat status (active, blocked,
// deleted) without touching the other slot.
func SetSideStatus(ctx context.Context, db *gorm.DB, convID string, s domain.Slot, status string) error {
	res := db.WithContext(ctx).Model(&domain.Conversation{}).
		Where("id = ?", convID).
		Update(slotColumn("status", s), status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetSideUnread stores a recomputed unread count for one slot.
func SetSideUnread(ctx context.Context, db *gorm.DB, convID string, s domain.Slot, n int) error {
	if n < 0 {
		n = 0
	}
	res := db.WithContext(ctx).Model(&domain.Conversation{}).
		Where("id = ?", convID).
		Update(slotColumn("unread", s), n)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RecordIncomingMessage updates the conversation for a freshly appended
// message: bumps last_message_id/_at, increments the recipient slot's
// unread counter, and revives the recipient's view when they had deleted
// the thread (delete-for-me conversations reappear on new traffic). The
// revival is decided inside the UPDATE so a delete-for-me landing after
// the caller read the row still flips back to active.
func RecordIncomingMessage(ctx context.Context, tx *gorm.DB, c *domain.Conversation, recipient domain.Slot, msgID string, at time.Time) error {
	unreadCol := slotColumn("unread", recipient)
	statusCol := slotColumn("status", recipient)

	updates := map[string]any{
		"last_message_id": msgID,
		"last_message_at": at,
		unreadCol:         gorm.Expr(unreadCol+" + ?", 1),
		statusCol: gorm.Expr(
			"CASE WHEN "+statusCol+" = ? THEN ? ELSE "+statusCol+" END",
			domain.ChatDeleted, domain.ChatActive,
		),
	}

	res := tx.WithContext(ctx).Model(&domain.Conversation{}).
		Where("id = ?", c.ID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListInbox returns the conversations visible to userID: any thread the
// user participates in whose own slot is not marked deleted. Pinned
// threads sort first (per the requester's slot), then most recent
// activity, then creation time for threads that never carried a message.
func ListInbox(ctx context.Context, db *gorm.DB, userID string) ([]domain.Conversation, error) {
	var out []domain.Conversation
	pinnedFirst := clause.OrderBy{Expression: clause.Expr{
		SQL:                "CASE WHEN user_a_id = ? THEN pinned_a ELSE pinned_b END DESC, last_message_at DESC NULLS LAST, created_at DESC",
		Vars:               []any{userID},
		WithoutParentheses: true,
	}}
	err := db.WithContext(ctx).
		Where("(user_a_id = ? AND status_a <> ?) OR (user_b_id = ? AND status_b <> ?)",
			userID, domain.ChatDeleted, userID, domain.ChatDeleted).
		Clauses(pinnedFirst).
		Find(&out).Error
	return out, err
}
