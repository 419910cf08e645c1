// Chat HTTP handlers.
//
// This file exposes REST endpoints for conversation threads:
//   - GET    /chats               (inbox, pinned first)
//   - POST   /chats               (provision a thread with a peer)
//   - PUT    /chats/{id}/pin      (pin or unpin for the caller)
//   - PUT    /chats/{id}/archive  (archive or unarchive for the caller)
//   - POST   /chats/{id}/block    (block for the caller)
//   - DELETE /chats/{id}/block    (unblock)
//   - DELETE /chats/{id}          (delete the thread for the caller only)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. Every per-participant action
// affects only the calling user's view of the thread.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/avray/go-dating-backend/internal/domain"
	"github.com/avray/go-dating-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// InteractionService defines the like/reject operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type InteractionService interface {
	// Like records that the actor likes the target, forming a match when
	// the interest is mutual.
	Like(ctx context.Context, actorID, targetID string) (*services.InteractionResult, error)
	// Reject records that the actor passes on the target, dissolving any
	// current match.
	Reject(ctx context.Context, actorID, targetID string) (*services.InteractionResult, error)
}

// ChatService defines conversation lifecycle operations consumed by HTTP
// handlers.
type ChatService interface {
	// Provision returns the pair's single thread, creating it when absent.
	Provision(ctx context.Context, x, y string) (*domain.Conversation, bool, error)
	// Inbox lists the caller's visible threads, pinned first.
	Inbox(ctx context.Context, userID string) ([]services.InboxEntry, error)
	// SetPinned pins or unpins the thread for the caller.
	SetPinned(ctx context.Context, userID, chatID string, pinned bool) error
	// SetArchived archives or unarchives the thread for the caller.
	SetArchived(ctx context.Context, userID, chatID string, archived bool) error
	// Block marks the caller's side blocked.
	Block(ctx context.Context, userID, chatID string) error
	// Unblock restores the caller's side to active.
	Unblock(ctx context.Context, userID, chatID string) error
	// DeleteForMe hides the thread from the caller's inbox.
	DeleteForMe(ctx context.Context, userID, chatID string) error
}

// MessageService defines message operations consumed by HTTP handlers.
type MessageService interface {
	// Send validates and appends a message, reporting idempotent replays.
	// The slice holds every message the send produced: the sender's own,
	// then the bot reply when one was generated.
	Send(ctx context.Context, in services.SendInput) ([]*domain.Message, bool, error)
	// ListPage returns a page of messages within a chat and the total count.
	ListPage(ctx context.Context, userID, chatID string, page, pageSize int) ([]domain.Message, int64, error)
	// ListAfter returns messages strictly newer than afterID in thread order.
	ListAfter(ctx context.Context, userID, chatID, afterID string, limit int) ([]domain.Message, error)
	// Search ranks the thread's messages against a free-text query.
	Search(ctx context.Context, userID, chatID, query string, k int) ([]services.SearchHit, error)
	// Delete soft-deletes one of the caller's own messages.
	Delete(ctx context.Context, userID, chatID, messageID string) error
	// MarkRead marks messages read up to upToID and returns how many flipped.
	MarkRead(ctx context.Context, userID, chatID, upToID string) (int64, error)
}

// UserService defines account operations consumed by HTTP handlers.
type UserService interface {
	// Register creates an account with the given handle and persona kind.
	Register(ctx context.Context, handle, displayName, kind string) (*domain.User, error)
	// Get fetches a profile with its aggregate counters.
	Get(ctx context.Context, id string) (*domain.User, error)
	// Deactivate marks an account inactive.
	Deactivate(ctx context.Context, id string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for users, interactions, chats, and
// messages. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	userSvc UserService
	intSvc  InteractionService
	chatSvc ChatService
	msgSvc  MessageService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(userSvc UserService, intSvc InteractionService, chatSvc ChatService, msgSvc MessageService) *Handlers {
	return &Handlers{userSvc: userSvc, intSvc: intSvc, chatSvc: chatSvc, msgSvc: msgSvc}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// failFromErr translates known service errors into consistent HTTP
// responses. Unknown errors become a 500 with the given fallback code.
func failFromErr(c *gin.Context, err error, fallbackCode string) {
	switch {
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrChatNotFound),
		errors.Is(err, services.ErrMessageNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrSelfInteraction),
		errors.Is(err, services.ErrInvalidTarget),
		errors.Is(err, services.ErrEmptyBody),
		errors.Is(err, services.ErrBodyTooLong),
		errors.Is(err, services.ErrInvalidReplyTo),
		errors.Is(err, services.ErrInvalidHandle),
		errors.Is(err, services.ErrInvalidPersona):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrNotParticipant),
		errors.Is(err, services.ErrNotMessageSender),
		errors.Is(err, services.ErrBlocked):
		fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, services.ErrHandleTaken):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}

// requireUUIDParam validates a path parameter holding a UUID. It writes a
// 400 and returns false on malformed input.
func requireUUIDParam(c *gin.Context, name, what string) (string, bool) {
	v := c.Param(name)
	if _, err := uuid.Parse(v); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, what+" must be a UUID")
		return "", false
	}
	return v, true
}

//
// DTOs
//

// CreateChatRequest is the JSON payload for provisioning a thread.
type CreateChatRequest struct {
	// PeerID is the counterpart's user id.
	PeerID string `json:"peer_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// SetPinnedRequest is the JSON payload for pinning or unpinning a thread.
type SetPinnedRequest struct {
	Pinned bool `json:"pinned"`
}

// SetArchivedRequest is the JSON payload for archiving or unarchiving.
type SetArchivedRequest struct {
	Archived bool `json:"archived"`
}

// InboxResponse wraps the caller's conversation list.
type InboxResponse struct {
	Chats []services.InboxEntry `json:"chats"`
	Total int                   `json:"total"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

//
// Handlers
//

// CreateChat godoc
// @ID          createChat
// @Summary     Provision a conversation thread
// @Description Returns the single thread between the caller and the peer, creating it when absent.
// @Tags        Chats
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.CreateChatRequest  true  "Peer payload"
//
// @Success     200  {object}  domain.Conversation "Existing thread"
// @Success     201  {object}  domain.Conversation "New thread"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Peer not found"
// @Router      /chats [post]
func (h *Handlers) CreateChat(c *gin.Context) {
	var req CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.PeerID) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "peer_id required")
		return
	}

	conv, created, err := h.chatSvc.Provision(c.Request.Context(), userID(c), strings.TrimSpace(req.PeerID))
	if err != nil {
		failFromErr(c, err, ErrCodeInternal)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	ok(c, status, conv)
}

// ListChats godoc
// @ID          listChats
// @Summary     List the caller's inbox
// @Description Returns the caller's visible threads: pinned first, then most recent activity. Threads the caller deleted are hidden.
// @Tags        Chats
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {object} handlers.InboxResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chats [get]
func (h *Handlers) ListChats(c *gin.Context) {
	entries, err := h.chatSvc.Inbox(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, InboxResponse{Chats: entries, Total: len(entries)})
}

// PinChat godoc
// @ID          pinChat
// @Summary     Pin or unpin a thread
// @Description Sets the caller's pin flag; the counterpart's inbox is unaffected.
// @Tags        Chats
// @Accept      json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Chat ID (UUID)"  format(uuid)
// @Param       body       body    handlers.SetPinnedRequest  true  "Pin flag"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Not a participant"
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Router      /chats/{id}/pin [put]
func (h *Handlers) PinChat(c *gin.Context) {
	chatID, okID := requireUUIDParam(c, "id", "chat id")
	if !okID {
		return
	}
	var req SetPinnedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := h.chatSvc.SetPinned(c.Request.Context(), userID(c), chatID, req.Pinned); err != nil {
		failFromErr(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// ArchiveChat godoc
// @ID          archiveChat
// @Summary     Archive or unarchive a thread
// @Description Sets the caller's archive flag; the counterpart's inbox is unaffected.
// @Tags        Chats
// @Accept      json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Chat ID (UUID)"  format(uuid)
// @Param       body       body    handlers.SetArchivedRequest  true  "Archive flag"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Not a participant"
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Router      /chats/{id}/archive [put]
func (h *Handlers) ArchiveChat(c *gin.Context) {
	chatID, okID := requireUUIDParam(c, "id", "chat id")
	if !okID {
		return
	}
	var req SetArchivedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := h.chatSvc.SetArchived(c.Request.Context(), userID(c), chatID, req.Archived); err != nil {
		failFromErr(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// BlockChat godoc
// @ID          blockChat
// @Summary     Block a thread
// @Description Marks the caller's side blocked; the caller can no longer send. The counterpart keeps sending until they block too.
// @Tags        Chats
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Chat ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     403  {object} handlers.ErrorResponse "Not a participant"
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Router      /chats/{id}/block [post]
func (h *Handlers) BlockChat(c *gin.Context) {
	chatID, okID := requireUUIDParam(c, "id", "chat id")
	if !okID {
		return
	}
	if err := h.chatSvc.Block(c.Request.Context(), userID(c), chatID); err != nil {
		failFromErr(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// UnblockChat godoc
// @ID          unblockChat
// @Summary     Unblock a thread
// @Description Restores the caller's side to active.
// @Tags        Chats
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Chat ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     403  {object} handlers.ErrorResponse "Not a participant"
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Router      /chats/{id}/block [delete]
func (h *Handlers) UnblockChat(c *gin.Context) {
	chatID, okID := requireUUIDParam(c, "id", "chat id")
	if !okID {
		return
	}
	if err := h.chatSvc.Unblock(c.Request.Context(), userID(c), chatID); err != nil {
		failFromErr(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// DeleteChat godoc
// @ID          deleteChat
// @Summary     Delete a thread for the caller
// @Description Hides the thread from the caller's inbox and zeroes their unread counter. Messages and the counterpart's view are untouched; new incoming traffic revives the thread.
// @Tags        Chats
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Chat ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     403  {object} handlers.ErrorResponse "Not a participant"
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Router      /chats/{id} [delete]
func (h *Handlers) DeleteChat(c *gin.Context) {
	chatID, okID := requireUUIDParam(c, "id", "chat id")
	if !okID {
		return
	}
	if err := h.chatSvc.DeleteForMe(c.Request.Context(), userID(c), chatID); err != nil {
		failFromErr(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}
