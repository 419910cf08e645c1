// Package services – ChatService
//
// This file implements the ChatService, which manages conversation threads
// between matched pairs. It resolves the caller's slot, enforces
// participant rules, and coordinates repository operations for
// provisioning, pinning, archiving, blocking, deleting-for-me, and
// assembling the inbox view. Every per-participant action touches only the
// caller's own slot columns; the counterpart's view is never mutated.
//
// Service-level errors (e.g., ErrChatNotFound, ErrNotParticipant) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/avray/go-dating-backend/internal/domain"
	"github.com/avray/go-dating-backend/internal/repo"
)

// ChatService provides conversation-level operations: provisioning,
// per-participant flags, and the inbox listing.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// NameLocale controls display-name casing in inbox annotations.
	NameLocale language.Tag
}

// NewChatService constructs a ChatService with a default name locale.
func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{DB: db, NameLocale: language.English}
}

// Provision returns the single conversation for the (x, y) pair, creating
// it when absent. Both users must exist. The boolean reports whether this
// call created the thread.
func (s *ChatService) Provision(ctx context.Context, x, y string) (*domain.Conversation, bool, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Provision",
		trace.WithAttributes(
			attribute.String("user.a", x),
			attribute.String("user.b", y),
		),
	)
	defer span.End()

	if x == y {
		return nil, false, ErrSelfInteraction
	}
	for _, id := range []string{x, y} {
		if _, err := repo.GetUser(ctx, s.DB, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, false, ErrUserNotFound
			}
			return nil, false, err
		}
	}
	return repo.GetOrCreateConversation(ctx, s.DB, domain.NewPair(x, y))
}

// Get fetches a conversation and the caller's slot in it. Non-existent
// threads yield ErrChatNotFound; threads the caller is not a side of yield
// ErrNotParticipant.
func (s *ChatService) Get(ctx context.Context, userID, chatID string) (*domain.Conversation, domain.Slot, error) {
	c, err := repo.GetConversation(ctx, s.DB, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.SlotNone, ErrChatNotFound
		}
		return nil, domain.SlotNone, err
	}
	slot := c.SlotOf(userID)
	if slot == domain.SlotNone {
		return nil, domain.SlotNone, ErrNotParticipant
	}
	return c, slot, nil
}

// SetPinned pins or unpins the thread in the caller's inbox. Idempotent.
func (s *ChatService) SetPinned(ctx context.Context, userID, chatID string, pinned bool) error {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "SetPinned",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("user.id", userID),
			attribute.Bool("pinned", pinned),
		),
	)
	defer span.End()

	_, slot, err := s.Get(ctx, userID, chatID)
	if err != nil {
		return err
	}
	return repo.SetSideFlag(ctx, s.DB, chatID, "pinned", slot, pinned)
}

// SetArchived moves the thread in or out of the caller's archive.
// Idempotent; the counterpart's inbox is unaffected.
func (s *ChatService) SetArchived(ctx context.Context, userID, chatID string, archived bool) error {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "SetArchived",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("user.id", userID),
			attribute.Bool("archived", archived),
		),
	)
	defer span.End()

	_, slot, err := s.Get(ctx, userID, chatID)
	if err != nil {
		return err
	}
	return repo.SetSideFlag(ctx, s.DB, chatID, "archived", slot, archived)
}

// Block marks the caller's slot blocked. A blocked caller cannot send into
// the thread; the counterpart keeps sending until they block too.
func (s *ChatService) Block(ctx context.Context, userID, chatID string) error {
	return s.setStatus(ctx, userID, chatID, domain.ChatBlocked)
}

// Unblock restores the caller's slot to active. A no-op on already-active
// slots.
func (s *ChatService) Unblock(ctx context.Context, userID, chatID string) error {
	return s.setStatus(ctx, userID, chatID, domain.ChatActive)
}

// DeleteForMe hides the thread from the caller's inbox and zeroes their
// unread counter. Messages are untouched and the counterpart's view is
// unchanged; a new incoming message revives the thread.
func (s *ChatService) DeleteForMe(ctx context.Context, userID, chatID string) error {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "DeleteForMe",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	_, slot, err := s.Get(ctx, userID, chatID)
	if err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.SetSideStatus(ctx, tx, chatID, slot, domain.ChatDeleted); err != nil {
			return err
		}
		return repo.SetSideUnread(ctx, tx, chatID, slot, 0)
	})
}

func (s *ChatService) setStatus(ctx context.Context, userID, chatID, status string) error {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "setStatus",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("user.id", userID),
			attribute.String("status", status),
		),
	)
	defer span.End()

	_, slot, err := s.Get(ctx, userID, chatID)
	if err != nil {
		return err
	}
	return repo.SetSideStatus(ctx, s.DB, chatID, slot, status)
}

// InboxEntry is one thread in a user's inbox, annotated with the
// counterpart's profile and the caller's own per-participant state.
type InboxEntry struct {
	ChatID        string     `json:"chat_id"`
	PeerID        string     `json:"peer_id"`
	PeerName      string     `json:"peer_name"`
	PeerIsBot     bool       `json:"peer_is_bot"`
	Preview       string     `json:"preview,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	Unread        int        `json:"unread"`
	Pinned        bool       `json:"pinned"`
	Archived      bool       `json:"archived"`
	Blocked       bool       `json:"blocked"`
}

// Inbox assembles the caller's conversation list: pinned threads first,
// then most recent activity. Threads the caller deleted are omitted until
// new traffic revives them. Counterpart names are resolved in one batched
// query; the preview is each thread's newest non-deleted message, so a
// soft-deleted tail never surfaces its placeholder body.
func (s *ChatService) Inbox(ctx context.Context, userID string) ([]InboxEntry, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Inbox",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	convs, err := repo.ListInbox(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return []InboxEntry{}, nil
	}

	peerIDs := make([]string, 0, len(convs))
	for i := range convs {
		peerIDs = append(peerIDs, convs[i].Peer(userID))
	}

	var peers []domain.User
	if err := s.DB.WithContext(ctx).Where("id IN ?", peerIDs).Find(&peers).Error; err != nil {
		return nil, err
	}
	peerByID := make(map[string]*domain.User, len(peers))
	for i := range peers {
		peerByID[peers[i].ID] = &peers[i]
	}

	previewByChat := make(map[string]*domain.Message, len(convs))
	for i := range convs {
		if convs[i].LastMessageID == "" {
			continue
		}
		m, err := repo.LastPreview(ctx, s.DB, convs[i].ID)
		if err != nil {
			return nil, err
		}
		if m != nil {
			previewByChat[convs[i].ID] = m
		}
	}

	caser := cases.Title(s.nameLocale())
	out := make([]InboxEntry, 0, len(convs))
	for i := range convs {
		c := &convs[i]
		side := c.Side(c.SlotOf(userID))

		e := InboxEntry{
			ChatID:        c.ID,
			PeerID:        c.Peer(userID),
			LastMessageAt: c.LastMessageAt,
			Unread:        side.Unread,
			Pinned:        side.Pinned,
			Archived:      side.Archived,
			Blocked:       side.Status == domain.ChatBlocked,
		}
		if p := peerByID[e.PeerID]; p != nil {
			e.PeerName = caser.String(p.DisplayName)
			if e.PeerName == "" {
				e.PeerName = p.Handle
			}
			e.PeerIsBot = p.IsBot()
		}
		if m := previewByChat[c.ID]; m != nil {
			e.Preview = m.Body
		}
		out = append(out, e)
	}
	return out, nil
}

// nameLocale returns the configured locale for name casing or English if
// unset.
func (s *ChatService) nameLocale() language.Tag {
	if s.NameLocale == language.Und {
		return language.English
	}
	return s.NameLocale
}
