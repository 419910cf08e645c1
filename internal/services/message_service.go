// Package services – MessageService
//
// This file implements MessageService, the application-level component
// that owns the lifecycle of chat messages. It validates bodies, resolves
// the caller's side of the conversation, persists the message atomically
// with the thread's denormalized state (last-message pointer, recipient
// unread counter, delete-for-me revival), and honors Idempotency-Key
// replays.
//
// When the recipient is a bot persona, the external reply generator is
// invoked after the sender's transaction commits. Generator failures are
// logged and swallowed: the human message stands on its own and the bot
// simply stays silent.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include chat/user identifiers and pagination parameters where
// applicable.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/avray/go-dating-backend/internal/domain"
	"github.com/avray/go-dating-backend/internal/reply"
	"github.com/avray/go-dating-backend/internal/repo"
	"github.com/avray/go-dating-backend/internal/search"
)

// MessageService coordinates message persistence and bot replies.
type MessageService struct {
	DB      *gorm.DB
	Replies reply.Generator

	// MaxBodyRunes caps message bodies by rune length. Zero disables the cap.
	MaxBodyRunes int

	// IdempotencyTTL bounds how long a replayed Idempotency-Key stays valid.
	IdempotencyTTL time.Duration
}

// SendInput carries one send-message request.
type SendInput struct {
	ChatID    string
	SenderID  string
	Body      string
	ReplyToID *string

	// IdempotencyKey, when non-empty, makes retried sends replay the
	// originally stored message instead of appending a duplicate.
	IdempotencyKey string
}

// Send validates and persists a message, updating the thread's unread and
// last-message bookkeeping in the same transaction. When the counterpart
// is a bot, a reply is generated after commit and appended to the result,
// so callers receive every message the send produced: the sender's first,
// then the bot reply when one was stored.
//
// The returned boolean reports whether the message was replayed from a
// previous request with the same Idempotency-Key.
func (s *MessageService) Send(ctx context.Context, in SendInput) ([]*domain.Message, bool, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("chat.id", in.ChatID),
			attribute.String("user.id", in.SenderID),
		),
	)
	defer span.End()

	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, false, ErrEmptyBody
	}
	if s.MaxBodyRunes > 0 && utf8.RuneCountInString(body) > s.MaxBodyRunes {
		return nil, false, ErrBodyTooLong
	}

	conv, slot, err := s.participant(ctx, in.SenderID, in.ChatID)
	if err != nil {
		return nil, false, err
	}
	if conv.Side(slot).Status == domain.ChatBlocked {
		return nil, false, ErrBlocked
	}

	if in.IdempotencyKey != "" {
		if rec, err := repo.GetIdempotency(ctx, s.DB, in.SenderID, in.ChatID, in.IdempotencyKey, time.Now().UTC()); err == nil {
			m, err := repo.GetMessage(ctx, s.DB, rec.MessageID)
			if err != nil {
				return nil, false, err
			}
			return []*domain.Message{m}, true, nil
		} else if !errors.Is(err, repo.ErrNotFound) {
			return nil, false, err
		}
	}

	sender, err := repo.GetUser(ctx, s.DB, in.SenderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrUserNotFound
		}
		return nil, false, err
	}

	if in.ReplyToID != nil {
		parent, err := repo.GetMessage(ctx, s.DB, *in.ReplyToID)
		if err != nil || parent.ConversationID != in.ChatID {
			return nil, false, ErrInvalidReplyTo
		}
	}

	receiverID := conv.Peer(in.SenderID)
	msg := &domain.Message{
		ConversationID: in.ChatID,
		SenderID:       in.SenderID,
		ReceiverID:     receiverID,
		Body:           body,
		ReplyToID:      in.ReplyToID,
		SenderKind:     senderKind(sender),
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.CreateMessage(tx, msg); err != nil {
			return err
		}
		if err := repo.RecordIncomingMessage(ctx, tx, conv, conv.SlotOf(receiverID), msg.ID, msg.CreatedAt); err != nil {
			return err
		}
		if in.IdempotencyKey != "" {
			_, err := repo.CreateIdempotency(ctx, tx, in.SenderID, in.ChatID, in.IdempotencyKey, msg.ID, 201, s.idempotencyTTL())
			if err != nil && !errors.Is(err, repo.ErrDuplicate) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	messagesSent.WithLabelValues(msg.SenderKind).Inc()

	msgs := []*domain.Message{msg}
	if !sender.IsBot() {
		if bot := s.maybeBotReply(ctx, in.ChatID, receiverID, in.SenderID, msg.ID, body); bot != nil {
			msgs = append(msgs, bot)
		}
	}
	return msgs, false, nil
}

// maybeBotReply invokes the reply generator when the receiver is a bot
// and appends the generated message, returning it (nil when no reply was
// stored). Runs after the sender's transaction commits so a generator
// outage never loses the human message.
func (s *MessageService) maybeBotReply(ctx context.Context, chatID, receiverID, humanID, humanMsgID, humanText string) *domain.Message {
	if s.Replies == nil {
		return nil
	}
	receiver, err := repo.GetUser(ctx, s.DB, receiverID)
	if err != nil || !receiver.IsBot() {
		return nil
	}

	text, err := s.Replies.GenerateReply(ctx, chatID, humanText)
	if err != nil {
		botReplies.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Str("chat_id", chatID).Msg("reply generator failed; bot stays silent")
		return nil
	}

	// Re-read the thread: the human may have blocked it while the
	// generator was running.
	conv, err := repo.GetConversation(ctx, s.DB, chatID)
	if err != nil {
		botReplies.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Str("chat_id", chatID).Msg("bot reply dropped; thread unavailable")
		return nil
	}
	if conv.Side(conv.SlotOf(humanID)).Status == domain.ChatBlocked {
		botReplies.WithLabelValues("dropped").Inc()
		log.Info().Str("chat_id", chatID).Msg("bot reply dropped; thread blocked by recipient")
		return nil
	}

	botMsg := &domain.Message{
		ConversationID: chatID,
		SenderID:       receiverID,
		ReceiverID:     humanID,
		Body:           text,
		ReplyToID:      &humanMsgID,
		SenderKind:     domain.SenderBot,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.CreateMessage(tx, botMsg); err != nil {
			return err
		}
		return repo.RecordIncomingMessage(ctx, tx, conv, conv.SlotOf(humanID), botMsg.ID, botMsg.CreatedAt)
	})
	if err != nil {
		botReplies.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Str("chat_id", chatID).Msg("bot reply could not be persisted")
		return nil
	}
	botReplies.WithLabelValues("ok").Inc()
	messagesSent.WithLabelValues(domain.SenderBot).Inc()
	return botMsg
}

// ListPage returns paginated messages for a chat, oldest first.
// Soft-deleted messages are omitted.
func (s *MessageService) ListPage(ctx context.Context, userID, chatID string, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	if _, _, err := s.participant(ctx, userID, chatID); err != nil {
		return nil, 0, err
	}

	total, err := repo.CountMessages(ctx, s.DB, chatID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := repo.ListMessagesPage(ctx, s.DB, chatID, offset, pageSize)
	return items, total, err
}

// ListAfter returns up to limit messages strictly newer than afterID in
// thread order. An empty afterID starts from the beginning of the thread.
func (s *MessageService) ListAfter(ctx context.Context, userID, chatID, afterID string, limit int) ([]domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListAfter",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("user.id", userID),
			attribute.String("after.id", afterID),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	if limit <= 0 {
		limit = 50
	}

	if _, _, err := s.participant(ctx, userID, chatID); err != nil {
		return nil, err
	}

	var cursor *domain.Message
	if afterID != "" {
		m, err := repo.GetMessage(ctx, s.DB, afterID)
		if err != nil || m.ConversationID != chatID {
			return nil, ErrMessageNotFound
		}
		cursor = m
	}
	return repo.ListMessagesAfter(ctx, s.DB, chatID, cursor, limit)
}

// SearchHit is one ranked message from an in-thread search.
type SearchHit struct {
	MessageID string  `json:"message_id"`
	Snippet   string  `json:"snippet"`
	Score     float64 `json:"score"`
}

// searchScanLimit caps how many messages one search indexes. Threads rarely
// approach it; beyond it only the oldest portion is searched.
const searchScanLimit = 1000

// Search ranks the thread's visible messages against the query and returns
// up to k hits. The index is rebuilt per call; deleted messages never
// surface because listing already excludes them.
func (s *MessageService) Search(ctx context.Context, userID, chatID, query string, k int) ([]SearchHit, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("user.id", userID),
			attribute.Int("k", k),
		),
	)
	defer span.End()

	if k <= 0 {
		k = 5
	}

	if _, _, err := s.participant(ctx, userID, chatID); err != nil {
		return nil, err
	}

	msgs, err := repo.ListMessagesPage(ctx, s.DB, chatID, 0, searchScanLimit)
	if err != nil {
		return nil, err
	}
	docs := make([]search.Doc, 0, len(msgs))
	for _, m := range msgs {
		docs = append(docs, search.Doc{ID: m.ID, Text: m.Body})
	}

	results := search.New(docs).TopK(query, k)
	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = SearchHit{MessageID: r.ID, Snippet: r.Snippet, Score: r.Score}
	}
	return hits, nil
}

// Delete soft-deletes one of the caller's own messages. Already-deleted
// messages are a no-op; deleting someone else's message is refused.
func (s *MessageService) Delete(ctx context.Context, userID, chatID, messageID string) error {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("user.id", userID),
			attribute.String("message.id", messageID),
		),
	)
	defer span.End()

	if _, _, err := s.participant(ctx, userID, chatID); err != nil {
		return err
	}

	m, err := repo.GetMessage(ctx, s.DB, messageID)
	if err != nil || m.ConversationID != chatID {
		return ErrMessageNotFound
	}
	if m.SenderID != userID {
		return ErrNotMessageSender
	}
	if m.IsDeleted() {
		return nil
	}
	return repo.SoftDeleteMessage(ctx, s.DB, messageID)
}

// MarkRead marks the caller's unread messages as read up to and including
// upToID (or the whole thread when upToID is empty), then stores the
// recomputed unread counter for the caller's slot. Returns the number of
// messages flipped.
func (s *MessageService) MarkRead(ctx context.Context, userID, chatID, upToID string) (int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "MarkRead",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("user.id", userID),
			attribute.String("up_to.id", upToID),
		),
	)
	defer span.End()

	_, slot, err := s.participant(ctx, userID, chatID)
	if err != nil {
		return 0, err
	}

	var bound *domain.Message
	if upToID != "" {
		m, err := repo.GetMessage(ctx, s.DB, upToID)
		if err != nil || m.ConversationID != chatID {
			return 0, ErrMessageNotFound
		}
		bound = m
	}

	var flipped int64
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := repo.MarkReadUpTo(ctx, tx, chatID, userID, bound)
		if err != nil {
			return err
		}
		flipped = n

		remaining, err := repo.CountUnread(ctx, tx, chatID, userID)
		if err != nil {
			return err
		}
		return repo.SetSideUnread(ctx, tx, chatID, slot, int(remaining))
	})
	if err != nil {
		return 0, err
	}
	return flipped, nil
}

// participant resolves the conversation and the caller's slot. Threads the
// caller has deleted read as not found until new traffic revives them.
func (s *MessageService) participant(ctx context.Context, userID, chatID string) (*domain.Conversation, domain.Slot, error) {
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
	if c.Side(slot).Status == domain.ChatDeleted {
		return nil, domain.SlotNone, ErrChatNotFound
	}
	return c, slot, nil
}

// idempotencyTTL returns the configured replay window or a day by default.
func (s *MessageService) idempotencyTTL() time.Duration {
	if s.IdempotencyTTL > 0 {
		return s.IdempotencyTTL
	}
	return 24 * time.Hour
}

func senderKind(u *domain.User) string {
	if u.IsBot() {
		return domain.SenderBot
	}
	return domain.SenderHuman
}
