package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/avray/go-dating-backend/internal/domain"
	"github.com/avray/go-dating-backend/internal/reply"
	"github.com/avray/go-dating-backend/internal/repo"
	"github.com/avray/go-dating-backend/internal/services"
)

// ---------- test DB + router wiring ----------

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// newTestRouter wires real services over a throwaway DB behind a gin engine
// with the production route shape.
func newTestRouter(t *testing.T, db *gorm.DB, gen reply.Generator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := New(
		services.NewUserService(db),
		services.NewInteractionService(db),
		services.NewChatService(db),
		&services.MessageService{DB: db, Replies: gen, MaxBodyRunes: 2000},
	)

	r := gin.New()
	r.POST("/users", h.RegisterUser)
	r.GET("/users/:id", h.GetUser)
	r.DELETE("/users/:id", h.DeactivateUser)
	r.POST("/users/:id/like", h.LikeUser)
	r.POST("/users/:id/reject", h.RejectUser)
	r.GET("/chats", h.ListChats)
	r.POST("/chats", h.CreateChat)
	r.PUT("/chats/:id/pin", h.PinChat)
	r.PUT("/chats/:id/archive", h.ArchiveChat)
	r.POST("/chats/:id/block", h.BlockChat)
	r.DELETE("/chats/:id/block", h.UnblockChat)
	r.DELETE("/chats/:id", h.DeleteChat)
	r.POST("/chats/:id/messages", h.PostMessage)
	r.GET("/chats/:id/messages", h.ListMessages)
	r.GET("/chats/:id/messages/search", h.SearchMessages)
	r.DELETE("/chats/:id/messages/:messageID", h.DeleteMessage)
	r.POST("/chats/:id/read", h.MarkRead)
	return r
}

func seedHandlerUser(t *testing.T, db *gorm.DB, handle, kind string) *domain.User {
	t.Helper()
	u := &domain.User{Handle: handle, DisplayName: handle, Kind: kind, Active: true}
	if err := repo.CreateUser(context.Background(), db, u); err != nil {
		t.Fatalf("seed user %s: %v", handle, err)
	}
	return u
}

// do executes one request against the router and returns the recorder.
func do(t *testing.T, r *gin.Engine, method, path, asUser string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if asUser != "" {
		req.Header.Set("X-User-ID", asUser)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

// matchPair seeds two users and likes them into a match, returning the chat id.
func matchPair(t *testing.T, r *gin.Engine, db *gorm.DB) (a, b *domain.User, chatID string) {
	t.Helper()
	a = seedHandlerUser(t, db, "alice", domain.PersonaHuman)
	b = seedHandlerUser(t, db, "bob", domain.PersonaHuman)

	if w := do(t, r, http.MethodPost, "/users/"+b.ID+"/like", a.ID, nil, nil); w.Code != http.StatusOK {
		t.Fatalf("first like: status %d body %s", w.Code, w.Body.String())
	}
	w := do(t, r, http.MethodPost, "/users/"+a.ID+"/like", b.ID, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("second like: status %d body %s", w.Code, w.Body.String())
	}
	res := decodeJSON[services.InteractionResult](t, w)
	if !res.Matched || res.ChatID == "" {
		t.Fatalf("expected match with chat id, got %+v", res)
	}
	return a, b, res.ChatID
}
