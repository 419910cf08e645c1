// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// model. Ordering is always (created_at ASC, id ASC): created_at is the
// primary key of the timeline and id breaks ties deterministically, which
// also makes the id usable as a cursor token.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avray/go-dating-backend/internal/domain"
)

// CreateMessage inserts a new message row.
func CreateMessage(tx *gorm.DB, m *domain.Message) (*domain.Message, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = domain.MessageActive
	}
	if m.SenderKind == "" {
		m.SenderKind = domain.SenderHuman
	}
	m.CreatedAt = time.Now().UTC()
	return m, tx.Create(m).Error
}

// GetMessage fetches a message by ID, or ErrNotFound.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// CountMessages returns the number of non-deleted messages in a chat.
// A raw COUNT is used so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, chatID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND status <> ?",
			chatID, domain.MessageDeleted).
		Scan(&total).Error
	return total, err
}

// ListMessagesPage returns a page of non-deleted messages ordered
// (created_at ASC, id ASC). The caller computes offset and limit.
func ListMessagesPage(ctx context.Context, db *gorm.DB, chatID string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("conversation_id = ? AND status <> ?", chatID, domain.MessageDeleted).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListMessagesAfter returns up to limit non-deleted messages strictly
// after the (created_at, id) position of the cursor message, in timeline
// order. The cursor row itself may be deleted; its position still
// anchors the scan so pages have no gaps or duplicates.
func ListMessagesAfter(ctx context.Context, db *gorm.DB, chatID string, cursor *domain.Message, limit int) ([]domain.Message, error) {
	q := db.WithContext(ctx).
		Where("conversation_id = ? AND status <> ?", chatID, domain.MessageDeleted)
	if cursor != nil {
		q = q.Where("(created_at > ?) OR (created_at = ? AND id > ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var out []domain.Message
	err := q.Order("created_at ASC, id ASC").Limit(limit).Find(&out).Error
	return out, err
}

// SoftDeleteMessage marks a message deleted and blanks its body to the
// fixed placeholder. Deleting an already-deleted message is a no-op
// success, which makes the operation idempotent.
func SoftDeleteMessage(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Model(&domain.Message{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": domain.MessageDeleted,
			"body":   domain.DeletedBody,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkReadUpTo marks as read every unread message addressed to userID in
// the chat at or before the (created_at, id) position of bound. A nil
// bound marks the whole thread. Returns the number of rows flipped.
func MarkReadUpTo(ctx context.Context, tx *gorm.DB, chatID, userID string, bound *domain.Message) (int64, error) {
	q := tx.WithContext(ctx).Model(&domain.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND is_read = ?", chatID, userID, false)
	if bound != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id <= ?)",
			bound.CreatedAt, bound.CreatedAt, bound.ID)
	}
	res := q.Update("is_read", true)
	return res.RowsAffected, res.Error
}

// CountUnread recomputes the number of unread, non-deleted messages
// addressed to userID in the chat. Used to store a fresh counter after
// mark-as-read instead of blindly zeroing it.
func CountUnread(ctx context.Context, db *gorm.DB, chatID, userID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND is_read = ? AND status <> ?",
			chatID, userID, false, domain.MessageDeleted).
		Count(&n).Error
	return n, err
}

// LastPreview returns the newest non-deleted message of a chat for inbox
// previews, or nil when the thread has none.
func LastPreview(ctx context.Context, db *gorm.DB, chatID string) (*domain.Message, error) {
	var m domain.Message
	err := db.WithContext(ctx).
		Where("conversation_id = ? AND status <> ?", chatID, domain.MessageDeleted).
		Order("created_at DESC, id DESC").
		First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}
