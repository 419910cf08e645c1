package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/avray/go-dating-backend/internal/domain"
)

func TestGetOrCreateConversation_CreatesOncePerPair(t *testing.T) {
	db := newTestDB(t, &domain.Conversation{})
	ctx := context.Background()
	p := domain.NewPair("u2", "u1")

	c1, created, err := GetOrCreateConversation(ctx, db, p)
	if err != nil {
		t.Fatalf("GetOrCreateConversation: %v", err)
	}
	if !created {
		t.Fatal("expected first call to create")
	}
	if c1.UserAID != "u1" || c1.UserBID != "u2" {
		t.Fatalf("pair stored as (%s, %s); want canonical (u1, u2)", c1.UserAID, c1.UserBID)
	}
	if c1.StatusA != domain.ChatActive || c1.StatusB != domain.ChatActive {
		t.Fatalf("statuses = %s/%s; want active/active", c1.StatusA, c1.StatusB)
	}

	c2, created, err := GetOrCreateConversation(ctx, db, domain.NewPair("u1", "u2"))
	if err != nil {
		t.Fatalf("GetOrCreateConversation second call: %v", err)
	}
	if created || c2.ID != c1.ID {
		t.Fatalf("second call created=%v id=%s; want existing %s", created, c2.ID, c1.ID)
	}
}

func TestSetSideFlag_TouchesOnlyOneSlot(t *testing.T) {
	db := newTestDB(t, &domain.Conversation{})
	ctx := context.Background()

	c, _, err := GetOrCreateConversation(ctx, db, domain.NewPair("u1", "u2"))
	if err != nil {
		t.Fatalf("GetOrCreateConversation: %v", err)
	}

	if err := SetSideFlag(ctx, db, c.ID, "pinned", domain.SlotB, true); err != nil {
		t.Fatalf("SetSideFlag: %v", err)
	}
	got, _ := GetConversation(ctx, db, c.ID)
	if got.PinnedA || !got.PinnedB {
		t.Fatalf("pinned = %v/%v; want false/true", got.PinnedA, got.PinnedB)
	}
}

func TestSetSideStatus_MissingConversation(t *testing.T) {
	db := newTestDB(t, &domain.Conversation{})

	err := SetSideStatus(context.Background(), db, "nope", domain.SlotA, domain.ChatBlocked)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("err = %v; want record not found", err)
	}
}

func TestRecordIncomingMessage_BumpsAndRevives(t *testing.T) {
	db := newTestDB(t, &domain.Conversation{})
	ctx := context.Background()

	c, _, err := GetOrCreateConversation(ctx, db, domain.NewPair("u1", "u2"))
	if err != nil {
		t.Fatalf("GetOrCreateConversation: %v", err)
	}
	// Recipient had deleted the thread.
	if err := SetSideStatus(ctx, db, c.ID, domain.SlotB, domain.ChatDeleted); err != nil {
		t.Fatalf("SetSideStatus: %v", err)
	}
	c, _ = GetConversation(ctx, db, c.ID)

	at := time.Now().UTC()
	if err := RecordIncomingMessage(ctx, db, c, domain.SlotB, "m1", at); err != nil {
		t.Fatalf("RecordIncomingMessage: %v", err)
	}

	got, _ := GetConversation(ctx, db, c.ID)
	if got.LastMessageID != "m1" || got.LastMessageAt == nil {
		t.Fatalf("last message not recorded: %+v", got)
	}
	if got.UnreadB != 1 || got.UnreadA != 0 {
		t.Fatalf("unread = %d/%d; want 0/1", got.UnreadA, got.UnreadB)
	}
	if got.StatusB != domain.ChatActive {
		t.Fatalf("StatusB = %q; want revived to active", got.StatusB)
	}
}

func TestRecordIncomingMessage_RevivesDespiteStaleSnapshot(t *testing.T) {
	db := newTestDB(t, &domain.Conversation{})
	ctx := context.Background()

	c, _, err := GetOrCreateConversation(ctx, db, domain.NewPair("u1", "u2"))
	if err != nil {
		t.Fatalf("GetOrCreateConversation: %v", err)
	}
	// The delete-for-me lands after the caller read the row, so the
	// in-memory conversation still says active.
	if err := SetSideStatus(ctx, db, c.ID, domain.SlotB, domain.ChatDeleted); err != nil {
		t.Fatalf("SetSideStatus: %v", err)
	}

	if err := RecordIncomingMessage(ctx, db, c, domain.SlotB, "m1", time.Now().UTC()); err != nil {
		t.Fatalf("RecordIncomingMessage: %v", err)
	}

	got, _ := GetConversation(ctx, db, c.ID)
	if got.StatusB != domain.ChatActive {
		t.Fatalf("StatusB = %q; want revived to active", got.StatusB)
	}
}

func TestListInbox_OrderingAndExclusion(t *testing.T) {
	db := newTestDB(t, &domain.Conversation{})
	ctx := context.Background()
	me := "me"

	mk := func(peer string) *domain.Conversation {
		c, _, err := GetOrCreateConversation(ctx, db, domain.NewPair(me, peer))
		if err != nil {
			t.Fatalf("GetOrCreateConversation(%s): %v", peer, err)
		}
		return c
	}

	old := mk("p-old")
	recent := mk("p-recent")
	pinned := mk("p-pinned")
	deleted := mk("p-deleted")

	base := time.Now().UTC()
	if err := RecordIncomingMessage(ctx, db, old, old.SlotOf(me), "m-old", base.Add(-2*time.Hour)); err != nil {
		t.Fatalf("RecordIncomingMessage: %v", err)
	}
	if err := RecordIncomingMessage(ctx, db, recent, recent.SlotOf(me), "m-recent", base); err != nil {
		t.Fatalf("RecordIncomingMessage: %v", err)
	}
	if err := RecordIncomingMessage(ctx, db, pinned, pinned.SlotOf(me), "m-pinned", base.Add(-time.Hour)); err != nil {
		t.Fatalf("RecordIncomingMessage: %v", err)
	}
	if err := SetSideFlag(ctx, db, pinned.ID, "pinned", pinned.SlotOf(me), true); err != nil {
		t.Fatalf("SetSideFlag: %v", err)
	}
	if err := SetSideStatus(ctx, db, deleted.ID, deleted.SlotOf(me), domain.ChatDeleted); err != nil {
		t.Fatalf("SetSideStatus: %v", err)
	}

	got, err := ListInbox(ctx, db, me)
	if err != nil {
		t.Fatalf("ListInbox: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("inbox len = %d; want 3 (deleted thread hidden)", len(got))
	}
	if got[0].ID != pinned.ID {
		t.Fatalf("first = %s; want pinned thread %s", got[0].ID, pinned.ID)
	}
	if got[1].ID != recent.ID || got[2].ID != old.ID {
		t.Fatalf("order = [%s %s]; want recent before old", got[1].ID, got[2].ID)
	}
}
