package handlers

import (
	"net/http"
	"testing"

	"github.com/avray/go-dating-backend/internal/domain"
)

func TestCreateChat_ProvisionAndReplay(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, nil)

	a := seedHandlerUser(t, db, "alice", domain.PersonaHuman)
	b := seedHandlerUser(t, db, "bob", domain.PersonaHuman)

	w := do(t, r, http.MethodPost, "/chats", a.ID, CreateChatRequest{PeerID: b.ID}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body %s", w.Code, w.Body.String())
	}
	first := decodeJSON[domain.Conversation](t, w)
	if first.ID == "" {
		t.Fatalf("expected chat id in response")
	}

	// Same pair from the other side returns the existing thread.
	w = do(t, r, http.MethodPost, "/chats", b.ID, CreateChatRequest{PeerID: a.ID}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d", w.Code)
	}
	second := decodeJSON[domain.Conversation](t, w)
	if second.ID != first.ID {
		t.Fatalf("expected same chat, got %s vs %s", second.ID, first.ID)
	}
}

func TestCreateChat_Validation(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, nil)
	a := seedHandlerUser(t, db, "alice", domain.PersonaHuman)

	if w := do(t, r, http.MethodPost, "/chats", a.ID, CreateChatRequest{}, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing peer_id: expected 400, got %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/chats", a.ID, CreateChatRequest{PeerID: "does-not-exist"}, nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown peer: expected 404, got %d", w.Code)
	}
}

func TestListChats_InboxAnnotated(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, nil)
	a, b, chatID := matchPair(t, r, db)

	w := do(t, r, http.MethodPost, "/chats/"+chatID+"/messages", b.ID, PostMessageRequest{Body: "hi there"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("send: expected 201, got %d body %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/chats", a.ID, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("inbox: expected 200, got %d", w.Code)
	}
	inbox := decodeJSON[InboxResponse](t, w)
	if inbox.Total != 1 || len(inbox.Chats) != 1 {
		t.Fatalf("expected one thread, got %+v", inbox)
	}
	e := inbox.Chats[0]
	if e.ChatID != chatID || e.PeerID != b.ID {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.Unread != 1 || e.Preview != "hi there" {
		t.Fatalf("expected unread=1 preview=%q, got %+v", "hi there", e)
	}
}

func TestPinArchive_ParticipantScoped(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, nil)
	a, _, chatID := matchPair(t, r, db)
	stranger := seedHandlerUser(t, db, "carol", domain.PersonaHuman)

	if w := do(t, r, http.MethodPut, "/chats/"+chatID+"/pin", a.ID, SetPinnedRequest{Pinned: true}, nil); w.Code != http.StatusNoContent {
		t.Fatalf("pin: expected 204, got %d body %s", w.Code, w.Body.String())
	}
	if w := do(t, r, http.MethodPut, "/chats/"+chatID+"/archive", a.ID, SetArchivedRequest{Archived: true}, nil); w.Code != http.StatusNoContent {
		t.Fatalf("archive: expected 204, got %d", w.Code)
	}
	if w := do(t, r, http.MethodPut, "/chats/"+chatID+"/pin", stranger.ID, SetPinnedRequest{Pinned: true}, nil); w.Code != http.StatusForbidden {
		t.Fatalf("stranger pin: expected 403, got %d", w.Code)
	}

	w := do(t, r, http.MethodGet, "/chats", a.ID, nil, nil)
	inbox := decodeJSON[InboxResponse](t, w)
	if len(inbox.Chats) != 1 || !inbox.Chats[0].Pinned || !inbox.Chats[0].Archived {
		t.Fatalf("expected pinned archived entry, got %+v", inbox.Chats)
	}
}

func TestBlock_BlocksSenderOnly(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, nil)
	a, b, chatID := matchPair(t, r, db)

	if w := do(t, r, http.MethodPost, "/chats/"+chatID+"/block", a.ID, nil, nil); w.Code != http.StatusNoContent {
		t.Fatalf("block: expected 204, got %d", w.Code)
	}

	// The blocker cannot send; the counterpart still can.
	if w := do(t, r, http.MethodPost, "/chats/"+chatID+"/messages", a.ID, PostMessageRequest{Body: "hello?"}, nil); w.Code != http.StatusForbidden {
		t.Fatalf("blocked send: expected 403, got %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/chats/"+chatID+"/messages", b.ID, PostMessageRequest{Body: "still here"}, nil); w.Code != http.StatusCreated {
		t.Fatalf("counterpart send: expected 201, got %d body %s", w.Code, w.Body.String())
	}

	if w := do(t, r, http.MethodDelete, "/chats/"+chatID+"/block", a.ID, nil, nil); w.Code != http.StatusNoContent {
		t.Fatalf("unblock: expected 204, got %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/chats/"+chatID+"/messages", a.ID, PostMessageRequest{Body: "back"}, nil); w.Code != http.StatusCreated {
		t.Fatalf("send after unblock: expected 201, got %d", w.Code)
	}
}

func TestDeleteChat_HidesForCallerOnly(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, nil)
	a, b, chatID := matchPair(t, r, db)

	if w := do(t, r, http.MethodDelete, "/chats/"+chatID, a.ID, nil, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}

	// Hidden from the deleter, visible to the counterpart.
	if w := do(t, r, http.MethodGet, "/chats/"+chatID+"/messages", a.ID, nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("deleter list: expected 404, got %d", w.Code)
	}
	w := do(t, r, http.MethodGet, "/chats", a.ID, nil, nil)
	if inbox := decodeJSON[InboxResponse](t, w); inbox.Total != 0 {
		t.Fatalf("deleter inbox: expected empty, got %+v", inbox)
	}
	w = do(t, r, http.MethodGet, "/chats", b.ID, nil, nil)
	if inbox := decodeJSON[InboxResponse](t, w); inbox.Total != 1 {
		t.Fatalf("counterpart inbox: expected one thread, got %+v", inbox)
	}

	// Incoming traffic revives the thread.
	if w := do(t, r, http.MethodPost, "/chats/"+chatID+"/messages", b.ID, PostMessageRequest{Body: "you there?"}, nil); w.Code != http.StatusCreated {
		t.Fatalf("revive send: expected 201, got %d", w.Code)
	}
	w = do(t, r, http.MethodGet, "/chats", a.ID, nil, nil)
	if inbox := decodeJSON[InboxResponse](t, w); inbox.Total != 1 {
		t.Fatalf("revived inbox: expected one thread, got %+v", inbox)
	}
}

func TestChatEndpoints_BadChatID(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, nil)
	a := seedHandlerUser(t, db, "alice", domain.PersonaHuman)

	if w := do(t, r, http.MethodPut, "/chats/not-a-uuid/pin", a.ID, SetPinnedRequest{}, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if w := do(t, r, http.MethodDelete, "/chats/not-a-uuid", a.ID, nil, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
