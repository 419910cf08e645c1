package services

import (
	"context"
	"errors"
	"testing"

	"github.com/avray/go-dating-backend/internal/domain"
	"github.com/avray/go-dating-backend/internal/repo"
)

func TestLike_OneSidedRecordsLike(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	svc := NewInteractionService(db)

	a := seedUser(t, db, "alice", domain.PersonaHuman)
	b := seedUser(t, db, "bob", domain.PersonaHuman)

	res, err := svc.Like(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("Like: %v", err)
	}
	if res.Action != domain.ActionLike || res.Matched || res.ChatID != "" {
		t.Fatalf("result = %+v; want one-sided like", res)
	}

	likes, matches, rejects := counters(t, db, a.ID)
	if likes != 1 || matches != 0 || rejects != 0 {
		t.Fatalf("actor counters = %d/%d/%d; want 1/0/0", likes, matches, rejects)
	}
	likes, matches, _ = counters(t, db, b.ID)
	if likes != 0 || matches != 0 {
		t.Fatal("target counters must not move on a one-sided like")
	}
}

func TestLike_ReciprocalFormsMatchAndProvisionsChat(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	svc := NewInteractionService(db)

	a := seedUser(t, db, "alice", domain.PersonaHuman)
	b := seedUser(t, db, "bob", domain.PersonaHuman)

	if _, err := svc.Like(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("first like: %v", err)
	}
	res, err := svc.Like(ctx, b.ID, a.ID)
	if err != nil {
		t.Fatalf("reciprocal like: %v", err)
	}
	if !res.Matched || res.Action != domain.ActionMatch || res.ChatID == "" {
		t.Fatalf("result = %+v; want match with chat", res)
	}

	// Both edges terminal, both match counters up.
	if got := edgeAction(t, db, a.ID, b.ID); got != domain.ActionMatch {
		t.Fatalf("a->b = %q; want match", got)
	}
	if got := edgeAction(t, db, b.ID, a.ID); got != domain.ActionMatch {
		t.Fatalf("b->a = %q; want match", got)
	}
	for _, id := range []string{a.ID, b.ID} {
		likes, matches, _ := counters(t, db, id)
		if likes != 1 || matches != 1 {
			t.Fatalf("counters for %s = %d likes %d matches; want 1/1", id, likes, matches)
		}
	}

	// The chat really exists and holds the pair.
	c, err := repo.GetConversation(ctx, db, res.ChatID)
	if err != nil {
		t.Fatalf("provisioned chat missing: %v", err)
	}
	if c.SlotOf(a.ID) == domain.SlotNone || c.SlotOf(b.ID) == domain.SlotNone {
		t.Fatalf("chat participants = (%s, %s)", c.UserAID, c.UserBID)
	}
}

func TestLike_BotTargetMatchesImmediately(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	svc := NewInteractionService(db)

	h := seedUser(t, db, "human", domain.PersonaHuman)
	bot := seedUser(t, db, "bot", domain.PersonaBot)

	res, err := svc.Like(ctx, h.ID, bot.ID)
	if err != nil {
		t.Fatalf("Like: %v", err)
	}
	if !res.Matched || res.ChatID == "" {
		t.Fatalf("result = %+v; want instant match against bot", res)
	}
	if got := edgeAction(t, db, bot.ID, h.ID); got != domain.ActionMatch {
		t.Fatalf("bot edge = %q; want match created for the bot too", got)
	}
	_, matches, _ := counters(t, db, bot.ID)
	if matches != 1 {
		t.Fatalf("bot matches = %d; want 1", matches)
	}
}

func TestLike_ReplayIsNoop(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	svc := NewInteractionService(db)

	a := seedUser(t, db, "alice", domain.PersonaHuman)
	b := seedUser(t, db, "bob", domain.PersonaHuman)

	for i := 0; i < 3; i++ {
		if _, err := svc.Like(ctx, a.ID, b.ID); err != nil {
			t.Fatalf("like %d: %v", i, err)
		}
	}
	likes, _, _ := counters(t, db, a.ID)
	if likes != 1 {
		t.Fatalf("likes = %d after replays; want 1", likes)
	}
}

func TestLike_MatchedReplayReturnsExistingChat(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	svc := NewInteractionService(db)

	h := seedUser(t, db, "human", domain.PersonaHuman)
	bot := seedUser(t, db, "bot", domain.PersonaBot)

	first, err := svc.Like(ctx, h.ID, bot.ID)
	if err != nil {
		t.Fatalf("Like: %v", err)
	}
	again, err := svc.Like(ctx, h.ID, bot.ID)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if again.Matched {
		t.Fatal("replay must not report a fresh match")
	}
	if again.ChatID != first.ChatID {
		t.Fatalf("replay chat = %s; want %s", again.ChatID, first.ChatID)
	}
	_, matches, _ := counters(t, db, h.ID)
	if matches != 1 {
		t.Fatalf("matches = %d after replay; want 1", matches)
	}
}

func TestReject_WithdrawsLike(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	svc := NewInteractionService(db)

	a := seedUser(t, db, "alice", domain.PersonaHuman)
	b := seedUser(t, db, "bob", domain.PersonaHuman)

	if _, err := svc.Like(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Like: %v", err)
	}
	res, err := svc.Reject(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if res.Action != domain.ActionReject || res.Unmatched {
		t.Fatalf("result = %+v", res)
	}

	likes, _, rejects := counters(t, db, a.ID)
	if likes != 0 || rejects != 1 {
		t.Fatalf("counters = %d likes %d rejects; want 0/1", likes, rejects)
	}
}

func TestReject_BreaksMatchSymmetrically(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	svc := NewInteractionService(db)

	a := seedUser(t, db, "alice", domain.PersonaHuman)
	b := seedUser(t, db, "bob", domain.PersonaHuman)

	if _, err := svc.Like(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	if _, err := svc.Like(ctx, b.ID, a.ID); err != nil {
		t.Fatalf("reciprocal like: %v", err)
	}

	res, err := svc.Reject(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if !res.Unmatched {
		t.Fatalf("result = %+v; want Unmatched", res)
	}

	// Actor: like withdrawn, reject recorded, match gone.
	likes, matches, rejects := counters(t, db, a.ID)
	if likes != 0 || matches != 0 || rejects != 1 {
		t.Fatalf("actor counters = %d/%d/%d; want 0/0/1", likes, matches, rejects)
	}
	// Counterpart: loses the match; their own counters are otherwise
	// untouched (counterpart counters move only with match formation).
	likes, matches, rejects = counters(t, db, b.ID)
	if likes != 1 || matches != 0 || rejects != 0 {
		t.Fatalf("counterpart counters = %d/%d/%d; want 1/0/0", likes, matches, rejects)
	}
	// The counterpart's "match" was contingent on mutuality, so breaking
	// the match forces their edge to reject too.
	if got := edgeAction(t, db, b.ID, a.ID); got != domain.ActionReject {
		t.Fatalf("counterpart edge = %q; want forced to reject", got)
	}
}

func TestReject_LeavesPlainReverseLikeUntouched(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	svc := NewInteractionService(db)

	a := seedUser(t, db, "alice", domain.PersonaHuman)
	b := seedUser(t, db, "bob", domain.PersonaHuman)

	if _, err := svc.Like(ctx, b.ID, a.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	if _, err := svc.Reject(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if got := edgeAction(t, db, b.ID, a.ID); got != domain.ActionLike {
		t.Fatalf("counterpart edge = %q; want like left untouched", got)
	}
}

func TestReject_ReplayIsNoop(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	svc := NewInteractionService(db)

	a := seedUser(t, db, "alice", domain.PersonaHuman)
	b := seedUser(t, db, "bob", domain.PersonaHuman)

	for i := 0; i < 2; i++ {
		if _, err := svc.Reject(ctx, a.ID, b.ID); err != nil {
			t.Fatalf("reject %d: %v", i, err)
		}
	}
	_, _, rejects := counters(t, db, a.ID)
	if rejects != 1 {
		t.Fatalf("rejects = %d; want 1", rejects)
	}
}

func TestRematchAfterBreakup(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	svc := NewInteractionService(db)

	a := seedUser(t, db, "alice", domain.PersonaHuman)
	b := seedUser(t, db, "bob", domain.PersonaHuman)

	if _, err := svc.Like(ctx, a.ID, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Like(ctx, b.ID, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Reject(ctx, a.ID, b.ID); err != nil {
		t.Fatal(err)
	}

	// Breaking the match forced both edges to reject, so the rejecting
	// side cannot unilaterally re-form the match by liking again.
	res, err := svc.Like(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("re-like: %v", err)
	}
	if res.Matched || res.Action != domain.ActionLike {
		t.Fatalf("result = %+v; want plain like, no match", res)
	}

	// The match re-forms only once the counterpart consents again.
	res, err = svc.Like(ctx, b.ID, a.ID)
	if err != nil {
		t.Fatalf("counterpart re-like: %v", err)
	}
	if !res.Matched {
		t.Fatalf("result = %+v; want re-formed match", res)
	}
	likes, matches, rejects := counters(t, db, a.ID)
	if likes != 1 || matches != 1 || rejects != 0 {
		t.Fatalf("actor counters = %d/%d/%d; want 1/1/0", likes, matches, rejects)
	}
}

func TestInteraction_Validation(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	svc := NewInteractionService(db)

	a := seedUser(t, db, "alice", domain.PersonaHuman)

	if _, err := svc.Like(ctx, a.ID, a.ID); !errors.Is(err, ErrSelfInteraction) {
		t.Fatalf("self like err = %v; want ErrSelfInteraction", err)
	}
	if _, err := svc.Like(ctx, a.ID, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing target err = %v; want ErrUserNotFound", err)
	}
	if _, err := svc.Reject(ctx, "missing", a.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing actor err = %v; want ErrUserNotFound", err)
	}

	inactive := seedUser(t, db, "ghost", domain.PersonaHuman)
	if err := db.Model(&domain.User{}).Where("id = ?", inactive.ID).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.Like(ctx, a.ID, inactive.ID); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("inactive target err = %v; want ErrInvalidTarget", err)
	}
}

func TestInteraction_TargetKindAllowList(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	svc := NewInteractionService(db)
	svc.TargetKinds = []string{domain.PersonaHuman}

	a := seedUser(t, db, "alice", domain.PersonaHuman)
	b := seedUser(t, db, "bob", domain.PersonaHuman)
	bot := seedUser(t, db, "daisy", domain.PersonaBot)

	if _, err := svc.Like(ctx, a.ID, bot.ID); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("like excluded kind err = %v; want ErrInvalidTarget", err)
	}
	if _, err := svc.Reject(ctx, a.ID, bot.ID); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("reject excluded kind err = %v; want ErrInvalidTarget", err)
	}
	if _, err := svc.Like(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("like allowed kind: %v", err)
	}
}

func TestInteractionResult_EchoesTarget(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	svc := NewInteractionService(db)

	a := seedUser(t, db, "alice", domain.PersonaHuman)
	bot := seedUser(t, db, "daisy", domain.PersonaBot)

	res, err := svc.Like(ctx, a.ID, bot.ID)
	if err != nil {
		t.Fatalf("Like: %v", err)
	}
	if res.TargetID != bot.ID || res.TargetKind != domain.PersonaBot {
		t.Fatalf("result target = %q/%q; want %q/%q", res.TargetID, res.TargetKind, bot.ID, domain.PersonaBot)
	}

	res, err = svc.Reject(ctx, a.ID, bot.ID)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if res.TargetID != bot.ID || res.TargetKind != domain.PersonaBot {
		t.Fatalf("result target = %q/%q; want %q/%q", res.TargetID, res.TargetKind, bot.ID, domain.PersonaBot)
	}
}
