// Message HTTP handlers.
//
// This file exposes REST endpoints for chat messages:
//   - POST   /chats/{id}/messages               (append a message; bots answer asynchronously)
//   - GET    /chats/{id}/messages               (list messages, offset or cursor style)
//   - DELETE /chats/{id}/messages/{messageID}   (soft-delete one of the caller's messages)
//   - POST   /chats/{id}/read                   (mark messages read up to a bound)
//
// Handlers are transport-thin:
//   - validate & normalize inputs (including newline and length constraints)
//   - delegate to application services (MessageService)
//   - implement idempotency semantics for safe retries
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// send exists for (user, chat, key), the handler returns the recorded message
// and sets `Idempotency-Replayed: true`.
package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/avray/go-dating-backend/internal/domain"
	"github.com/avray/go-dating-backend/internal/services"
	"github.com/avray/go-dating-backend/internal/utils"
)

//
// DTOs
//

// PostMessageRequest is the JSON payload for sending a message.
//
// Body is normalized by the handler (line endings and excessive blank lines)
// before being passed to the service layer. The service also enforces a
// maximum rune count, which can be configured in MessageService.
type PostMessageRequest struct {
	// Body is the message text. It must be non-empty after trimming.
	Body string `json:"body" binding:"required,min=1" example:"Hey! Loved your profile."`
	// ReplyToID optionally quotes an earlier message in the same thread.
	ReplyToID string `json:"reply_to_id,omitempty" format:"uuid"`
}

// PostMessageResponse is the JSON envelope for the messages a send created.
type PostMessageResponse struct {
	// Message is the stored message created by the request.
	Message *domain.Message `json:"message"`
	// BotReply is present when the recipient is a bot and a reply was
	// generated and stored alongside the caller's message.
	BotReply *domain.Message `json:"bot_reply,omitempty"`
}

// ListMessagesResponse contains a page of chat messages and pagination metadata.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination *Pagination      `json:"pagination,omitempty"`
}

// MarkReadRequest is the JSON payload for advancing the read bound.
type MarkReadRequest struct {
	// UpToID marks everything up to and including this message. Empty means
	// everything currently in the thread.
	UpToID string `json:"up_to_id,omitempty" format:"uuid"`
}

// MarkReadResponse reports how many messages flipped to read.
type MarkReadResponse struct {
	Marked int64 `json:"marked"`
}

//
// Helpers
//

// clampMsgPagination parses page/page_size from query parameters, applies sane
// defaults and caps, and returns the validated (page, pageSize).
func clampMsgPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeBody normalizes message text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeBody(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// discoverMaxBodyRunes inspects the concrete MessageService for a configured
// body-length limit. If unavailable, it returns a conservative fallback.
func discoverMaxBodyRunes(msgSvc MessageService) int {
	const fallback = 2000
	if ms, ok := msgSvc.(*services.MessageService); ok {
		if ms.MaxBodyRunes > 0 {
			return ms.MaxBodyRunes
		}
	}
	return fallback
}

// idempotencyKey extracts an idempotency key if an upstream middleware has
// already validated/stashed it. The fallback behavior reads the
// "Idempotency-Key" header directly when no dedicated middleware exists.
func idempotencyKey(c *gin.Context) (string, bool) {
	if v := strings.TrimSpace(c.GetHeader("Idempotency-Key")); v != "" {
		return v, true
	}
	return "", false
}

//
// Handlers
//

// PostMessage godoc
// @ID          postMessage
// @Summary     Send a message
// @Description Appends a message to the thread and bumps the recipient's unread counter. When the recipient is a bot, its reply is generated after the message commits and returned alongside the stored message.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id               path    string  true  "Chat ID (UUID)"  format(uuid)
// @Param       body             body    handlers.PostMessageRequest  true  "Message payload"
//
// @Success     201  {object}  handlers.PostMessageResponse  "Stored message"
// @Success     200  {object}  handlers.PostMessageResponse  "Idempotent replay"
// @Failure     400  {object}  handlers.ErrorResponse        "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse        "Blocked or not a participant"
// @Failure     404  {object}  handlers.ErrorResponse        "Chat not found"
// @Failure     500  {object}  handlers.ErrorResponse        "Internal error"
// @Router      /chats/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	chatID, okID := requireUUIDParam(c, "id", "chat id")
	if !okID {
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body required")
		return
	}

	// Sanitize + early size cap to fail fast at the edge.
	body := sanitizeBody(req.Body)
	maxRunes := discoverMaxBodyRunes(h.msgSvc)
	if maxRunes > 0 && utf8.RuneCountInString(body) > maxRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("body too long: max %d runes", maxRunes))
		return
	}
	if body == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body required")
		return
	}

	in := services.SendInput{
		ChatID:   chatID,
		SenderID: userID(c),
		Body:     body,
	}
	if rt := strings.TrimSpace(req.ReplyToID); rt != "" {
		if _, err := uuid.Parse(rt); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "reply_to_id must be a UUID")
			return
		}
		in.ReplyToID = &rt
	}
	if key, has := idempotencyKey(c); has {
		in.IdempotencyKey = key
	}

	msgs, replayed, err := h.msgSvc.Send(c.Request.Context(), in)
	if err != nil {
		failFromErr(c, err, ErrCodeSendFailed)
		return
	}

	status := http.StatusCreated
	if replayed {
		c.Header("Idempotency-Replayed", "true")
		status = http.StatusOK
	}
	resp := PostMessageResponse{Message: msgs[0]}
	if len(msgs) > 1 {
		resp.BotReply = msgs[1]
	}
	ok(c, status, resp)
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List messages in a chat
// @Description Returns messages for the thread in chronological order. Pass after_id for cursor-style incremental sync, or page/page_size for offset pagination.
// @Tags        Messages
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path   string  true  "Chat ID (UUID)"  format(uuid)
// @Param       after_id   query  string  false "Return only messages newer than this message ID"  format(uuid)
// @Param       limit      query  int     false "Max items when using after_id"  minimum(1) maximum(100) default(50)
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListMessagesResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Not a participant"
// @Failure     404  {object} handlers.ErrorResponse "Chat or cursor not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chats/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	chatID, okID := requireUUIDParam(c, "id", "chat id")
	if !okID {
		return
	}
	caller := userID(c)

	// Cursor style takes precedence when after_id is supplied.
	if afterID := strings.TrimSpace(c.Query("after_id")); afterID != "" {
		if _, err := uuid.Parse(afterID); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "after_id must be a UUID")
			return
		}
		limit := utils.AtoiDefault(c.Query("limit"), 50)
		if limit < 1 {
			limit = 1
		}
		if limit > 100 {
			limit = 100
		}
		items, err := h.msgSvc.ListAfter(ctx, caller, chatID, afterID, limit)
		if err != nil {
			failFromErr(c, err, ErrCodeListFailed)
			return
		}
		ok(c, http.StatusOK, ListMessagesResponse{Messages: items})
		return
	}

	page, pageSize := clampMsgPagination(c)

	items, total, err := h.msgSvc.ListPage(ctx, caller, chatID, page, pageSize)
	if err != nil {
		failFromErr(c, err, ErrCodeListFailed)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// SearchMessagesResponse wraps ranked in-thread search hits.
type SearchMessagesResponse struct {
	Hits []services.SearchHit `json:"hits"`
}

// SearchMessages godoc
// @ID          searchMessages
// @Summary     Search messages in a chat
// @Description Ranks the thread's visible messages against a free-text query and returns the best matches.
// @Tags        Messages
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path   string  true  "Chat ID (UUID)"  format(uuid)
// @Param       q          query  string  true  "Free-text query"
// @Param       k          query  int     false "Max hits"  minimum(1) maximum(50) default(5)
//
// @Success     200  {object} handlers.SearchMessagesResponse
// @Failure     400  {object} handlers.ErrorResponse "Missing query"
// @Failure     403  {object} handlers.ErrorResponse "Not a participant"
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Router      /chats/{id}/messages/search [get]
func (h *Handlers) SearchMessages(c *gin.Context) {
	chatID, okID := requireUUIDParam(c, "id", "chat id")
	if !okID {
		return
	}
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "q required")
		return
	}
	k := utils.AtoiDefault(c.Query("k"), 5)
	if k < 1 {
		k = 1
	}
	if k > 50 {
		k = 50
	}
	hits, err := h.msgSvc.Search(c.Request.Context(), userID(c), chatID, q, k)
	if err != nil {
		failFromErr(c, err, ErrCodeListFailed)
		return
	}
	if hits == nil {
		hits = []services.SearchHit{}
	}
	ok(c, http.StatusOK, SearchMessagesResponse{Hits: hits})
}

// DeleteMessage godoc
// @ID          deleteMessage
// @Summary     Delete one of the caller's messages
// @Description Soft-deletes a message the caller sent. The row keeps its timeline position but drops out of listings. Deleting again is a no-op.
// @Tags        Messages
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Chat ID (UUID)"     format(uuid)
// @Param       messageID  path    string  true  "Message ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     403  {object} handlers.ErrorResponse "Not the sender"
// @Failure     404  {object} handlers.ErrorResponse "Chat or message not found"
// @Router      /chats/{id}/messages/{messageID} [delete]
func (h *Handlers) DeleteMessage(c *gin.Context) {
	chatID, okID := requireUUIDParam(c, "id", "chat id")
	if !okID {
		return
	}
	messageID, okID := requireUUIDParam(c, "messageID", "message id")
	if !okID {
		return
	}
	if err := h.msgSvc.Delete(c.Request.Context(), userID(c), chatID, messageID); err != nil {
		failFromErr(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// MarkRead godoc
// @ID          markRead
// @Summary     Mark messages as read
// @Description Marks the counterpart's messages read up to the given bound and recomputes the caller's unread counter. An empty bound sweeps the whole thread.
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Chat ID (UUID)"  format(uuid)
// @Param       body       body    handlers.MarkReadRequest  true  "Read bound"
//
// @Success     200  {object} handlers.MarkReadResponse
// @Failure     403  {object} handlers.ErrorResponse "Not a participant"
// @Failure     404  {object} handlers.ErrorResponse "Chat or bound not found"
// @Router      /chats/{id}/read [post]
func (h *Handlers) MarkRead(c *gin.Context) {
	chatID, okID := requireUUIDParam(c, "id", "chat id")
	if !okID {
		return
	}
	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if rt := strings.TrimSpace(req.UpToID); rt != "" {
		if _, err := uuid.Parse(rt); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "up_to_id must be a UUID")
			return
		}
	}
	marked, err := h.msgSvc.MarkRead(c.Request.Context(), userID(c), chatID, strings.TrimSpace(req.UpToID))
	if err != nil {
		failFromErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, MarkReadResponse{Marked: marked})
}
