package domain

import "testing"

func TestNewPair_CanonicalOrder(t *testing.T) {
	p := NewPair("bbb", "aaa")
	if p.A != "aaa" || p.B != "bbb" {
		t.Fatalf("pair not canonical: %+v", p)
	}
	q := NewPair("aaa", "bbb")
	if q != p {
		t.Fatalf("pair depends on argument order: %+v vs %+v", p, q)
	}
}

func TestPair_ContainsAndOther(t *testing.T) {
	p := NewPair("u1", "u2")
	if !p.Contains("u1") || !p.Contains("u2") || p.Contains("u3") {
		t.Fatalf("Contains wrong for %+v", p)
	}
	if got := p.Other("u1"); got != "u2" {
		t.Errorf("Other(u1) = %q; want u2", got)
	}
	if got := p.Other("u2"); got != "u1" {
		t.Errorf("Other(u2) = %q; want u1", got)
	}
	if got := p.Other("nope"); got != "" {
		t.Errorf("Other(non-participant) = %q; want empty", got)
	}
}

func TestConversation_SlotOf(t *testing.T) {
	c := Conversation{UserAID: "a", UserBID: "b"}
	if c.SlotOf("a") != SlotA {
		t.Errorf("SlotOf(a) != SlotA")
	}
	if c.SlotOf("b") != SlotB {
		t.Errorf("SlotOf(b) != SlotB")
	}
	if c.SlotOf("x") != SlotNone {
		t.Errorf("SlotOf(x) != SlotNone")
	}
}

func TestConversation_Side(t *testing.T) {
	c := Conversation{
		UserAID: "a", UserBID: "b",
		UnreadA: 3, UnreadB: 1,
		PinnedA: true, ArchivedB: true,
		StatusA: ChatActive, StatusB: ChatBlocked,
	}

	a := c.Side(SlotA)
	if a.Unread != 3 || !a.Pinned || a.Archived || a.Status != ChatActive {
		t.Fatalf("slot A state wrong: %+v", a)
	}
	b := c.Side(SlotB)
	if b.Unread != 1 || b.Pinned || !b.Archived || b.Status != ChatBlocked {
		t.Fatalf("slot B state wrong: %+v", b)
	}
	if z := c.Side(SlotNone); z != (SideState{}) {
		t.Fatalf("SlotNone state should be zero, got %+v", z)
	}
}

func TestConversation_Peer(t *testing.T) {
	c := Conversation{UserAID: "a", UserBID: "b"}
	if c.Peer("a") != "b" || c.Peer("b") != "a" || c.Peer("z") != "" {
		t.Fatalf("Peer wrong for %+v", c)
	}
}
