// Package domain defines the persistence models for the dating backend.
// This file models the unordered participant pair behind every
// conversation and both directions of an interaction edge, so that pair
// canonicalization and slot bookkeeping live in exactly one place.
package domain

// Pair is an unordered user pair in canonical order: A is always the
// lexicographically smaller id. A pair maps to at most one conversation
// row regardless of who initiated contact.
type Pair struct {
	A string
	B string
}

// NewPair canonicalizes two user ids into a Pair.
func NewPair(x, y string) Pair {
	if y < x {
		x, y = y, x
	}
	return Pair{A: x, B: y}
}

// Contains reports whether id occupies either slot of the pair.
func (p Pair) Contains(id string) bool { return id == p.A || id == p.B }

// Other returns the counterpart of id within the pair. It returns ""
// when id is not a participant.
func (p Pair) Other(id string) string {
	switch id {
	case p.A:
		return p.B
	case p.B:
		return p.A
	}
	return ""
}

// Slot identifies which canonical slot of a conversation a participant
// occupies. All per-participant columns (_a/_b) are addressed through it.
type Slot int

const (
	// SlotNone means the user is not a participant.
	SlotNone Slot = iota
	// SlotA is the lexicographically smaller participant.
	SlotA
	// SlotB is the lexicographically larger participant.
	SlotB
)

// SlotOf returns the slot userID occupies in the conversation.
func (c *Conversation) SlotOf(userID string) Slot {
	switch userID {
	case c.UserAID:
		return SlotA
	case c.UserBID:
		return SlotB
	}
	return SlotNone
}

// Peer returns the counterpart id for userID, or "" for non-participants.
func (c *Conversation) Peer(userID string) string {
	return NewPair(c.UserAID, c.UserBID).Other(userID)
}

// SideState is one participant's view of a conversation, assembled from
// the slot-suffixed columns. It is a read projection; writes go through
// the repository so both slots stay independent.
type SideState struct {
	Unread   int
	Pinned   bool
	Archived bool
	Status   string
}

// Side returns the per-participant state for the given slot. SlotNone
// yields a zero SideState with an empty status.
func (c *Conversation) Side(s Slot) SideState {
	switch s {
	case SlotA:
		return SideState{Unread: c.UnreadA, Pinned: c.PinnedA, Archived: c.ArchivedA, Status: c.StatusA}
	case SlotB:
		return SideState{Unread: c.UnreadB, Pinned: c.PinnedB, Archived: c.ArchivedB, Status: c.StatusB}
	}
	return SideState{}
}
