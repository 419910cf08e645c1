package handlers

import (
	"net/http"
	"testing"

	"github.com/avray/go-dating-backend/internal/domain"
)

func TestRegisterUser_CreatesWithDefaults(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, nil)

	w := do(t, r, http.MethodPost, "/users", "", RegisterUserRequest{Handle: "  Alice  "}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body %s", w.Code, w.Body.String())
	}
	u := decodeJSON[domain.User](t, w)
	if u.Handle != "alice" {
		t.Fatalf("expected lowercased trimmed handle, got %q", u.Handle)
	}
	if u.Kind != domain.PersonaHuman || !u.Active {
		t.Fatalf("expected active human by default, got %+v", u)
	}
	if u.DisplayName != "alice" {
		t.Fatalf("expected display name fallback, got %q", u.DisplayName)
	}
}

func TestRegisterUser_Conflicts(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, nil)

	if w := do(t, r, http.MethodPost, "/users", "", RegisterUserRequest{Handle: "daisy", Kind: "bot"}, nil); w.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/users", "", RegisterUserRequest{Handle: "DAISY"}, nil); w.Code != http.StatusConflict {
		t.Fatalf("duplicate handle: expected 409, got %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/users", "", RegisterUserRequest{Handle: "eve", Kind: "alien"}, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad persona: expected 400, got %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/users", "", RegisterUserRequest{}, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing handle: expected 400, got %d", w.Code)
	}
}

func TestGetUser_CountersVisible(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, nil)
	a, b, _ := matchPair(t, r, db)
	_ = b

	w := do(t, r, http.MethodGet, "/users/"+a.ID, "", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	u := decodeJSON[domain.User](t, w)
	if u.TotalLikes != 1 || u.TotalMatches != 1 {
		t.Fatalf("expected likes=1 matches=1 after match, got %+v", u)
	}
}

func TestDeactivateUser(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(t, db, nil)
	a := seedHandlerUser(t, db, "alice", domain.PersonaHuman)

	if w := do(t, r, http.MethodDelete, "/users/"+a.ID, "", nil, nil); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	w := do(t, r, http.MethodGet, "/users/"+a.ID, "", nil, nil)
	u := decodeJSON[domain.User](t, w)
	if u.Active {
		t.Fatalf("expected inactive profile, got %+v", u)
	}

	if w := do(t, r, http.MethodDelete, "/users/7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab", "", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown user: expected 404, got %d", w.Code)
	}
}
