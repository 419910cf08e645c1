// Package services – InteractionService
//
// This file implements the interaction engine: the like/reject state
// machine between user pairs. Each decision runs in a single transaction
// that locks both user rows (ascending id order) and both directional
// edges (canonical pair order), evaluates the transition, overwrites the
// actor's edge in place, adjusts the engine-owned counters, and, when a
// mutual match forms, provisions the pair's conversation.
//
// Replays are no-ops: liking someone already liked or matched, or
// rejecting someone already rejected, changes nothing and moves no
// counter. Bot personas reciprocate any like unconditionally, so a like
// aimed at a bot matches immediately.
//
// Observability: public methods are OpenTelemetry-instrumented; spans
// carry actor/target identifiers and the resulting edge action.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/avray/go-dating-backend/internal/domain"
	"github.com/avray/go-dating-backend/internal/repo"
)

// InteractionResult reports the outcome of a like or reject decision.
type InteractionResult struct {
	// TargetID echoes the decision's target user.
	TargetID string `json:"target_user_id"`
	// TargetKind is the target's persona kind ("human" or "bot") so
	// callers can tell a bot match apart without a second lookup.
	TargetKind string `json:"target_kind"`
	// Action is the actor's edge state after the write ("like", "reject",
	// or "match").
	Action string `json:"action"`
	// Matched is true only when this call formed a new mutual match.
	Matched bool `json:"matched"`
	// Unmatched is true only when this call dissolved an existing match.
	Unmatched bool `json:"unmatched"`
	// ChatID is the pair's conversation, set when Matched.
	ChatID string `json:"chat_id,omitempty"`
}

// InteractionService owns the like/reject state machine and the aggregate
// counters it maintains.
type InteractionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// TargetKinds restricts which persona kinds may receive interactions.
	// Empty allows every kind.
	TargetKinds []string
}

// NewInteractionService constructs an InteractionService that accepts
// every persona kind as a target.
func NewInteractionService(db *gorm.DB) *InteractionService {
	return &InteractionService{DB: db}
}

// kindAllowed reports whether a persona kind is an eligible interaction
// target under the engine's configuration.
func (s *InteractionService) kindAllowed(kind string) bool {
	if len(s.TargetKinds) == 0 {
		return true
	}
	for _, k := range s.TargetKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Like records that actor likes target. When the target already likes the
// actor back, or the target is a bot persona, both edges become "match"
// and the pair's conversation is provisioned in the same transaction.
func (s *InteractionService) Like(ctx context.Context, actorID, targetID string) (*InteractionResult, error) {
	tr := otel.Tracer("services/InteractionService")
	ctx, span := tr.Start(ctx, "Like",
		trace.WithAttributes(
			attribute.String("actor.id", actorID),
			attribute.String("target.id", targetID),
		),
	)
	defer span.End()

	res, err := s.decide(ctx, actorID, targetID, domain.ActionLike)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("edge.action", res.Action))
	interactionsTotal.WithLabelValues(domain.ActionLike).Inc()
	if res.Matched {
		matchesFormed.Inc()
	}
	return res, nil
}

// Reject records that actor passes on target. Rejecting a current match
// dissolves it: the actor's edge becomes "reject", the counterpart's edge
// falls back to "like", and both match counters step down. The pair's
// conversation, if any, is left untouched.
func (s *InteractionService) Reject(ctx context.Context, actorID, targetID string) (*InteractionResult, error) {
	tr := otel.Tracer("services/InteractionService")
	ctx, span := tr.Start(ctx, "Reject",
		trace.WithAttributes(
			attribute.String("actor.id", actorID),
			attribute.String("target.id", targetID),
		),
	)
	defer span.End()

	res, err := s.decide(ctx, actorID, targetID, domain.ActionReject)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("edge.action", res.Action))
	interactionsTotal.WithLabelValues(domain.ActionReject).Inc()
	if res.Unmatched {
		matchesBroken.Inc()
	}
	return res, nil
}

// decide runs one state-machine transition inside a transaction.
func (s *InteractionService) decide(ctx context.Context, actorID, targetID, action string) (*InteractionResult, error) {
	if actorID == targetID {
		return nil, ErrSelfInteraction
	}

	var out InteractionResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, target, err := lockUsers(ctx, tx, actorID, targetID)
		if err != nil {
			return err
		}
		if action == domain.ActionLike && !target.Active {
			return ErrInvalidTarget
		}
		if !s.kindAllowed(target.Kind) {
			return ErrInvalidTarget
		}
		out.TargetID = target.ID
		out.TargetKind = target.Kind

		forward, reverse, err := repo.LockPair(ctx, tx, actorID, targetID)
		if err != nil {
			return err
		}

		prev := domain.ActionNone
		if forward != nil {
			prev = forward.Action
		}

		switch action {
		case domain.ActionLike:
			return s.applyLike(ctx, tx, actor, target, forward, reverse, prev, &out)
		case domain.ActionReject:
			return s.applyReject(ctx, tx, actor, target, forward, reverse, prev, &out)
		}
		return errors.New("unknown interaction action")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// applyLike handles the like branch of the transition table. Callers hold
// both user rows and both edges locked.
func (s *InteractionService) applyLike(ctx context.Context, tx *gorm.DB, actor, target *domain.User, forward, reverse *domain.Interaction, prev string, out *InteractionResult) error {
	// Replays change nothing.
	if prev == domain.ActionLike || prev == domain.ActionMatch {
		out.Action = prev
		if prev == domain.ActionMatch {
			if c, err := repo.GetConversationByPair(ctx, tx, domain.NewPair(actor.ID, target.ID)); err == nil {
				out.ChatID = c.ID
			}
		}
		return nil
	}

	// A bot target is deemed to like back; a human must hold a like on
	// the reverse edge.
	reciprocated := target.IsBot() ||
		(reverse != nil && reverse.Action == domain.ActionLike)

	next := domain.ActionLike
	if reciprocated {
		next = domain.ActionMatch
	}

	if forward == nil {
		forward = &domain.Interaction{ActorID: actor.ID, TargetID: target.ID}
	}
	forward.Action = next
	forward.Mutual = reciprocated
	if err := repo.SaveEdge(ctx, tx, forward); err != nil {
		return err
	}

	if reciprocated {
		// Promote (or create, for bots that never swiped) the reverse edge.
		if reverse == nil {
			reverse = &domain.Interaction{ActorID: target.ID, TargetID: actor.ID}
		}
		reverse.Action = domain.ActionMatch
		reverse.Mutual = true
		if err := repo.SaveEdge(ctx, tx, reverse); err != nil {
			return err
		}

		conv, _, err := repo.GetOrCreateConversation(ctx, tx, domain.NewPair(actor.ID, target.ID))
		if err != nil {
			return err
		}
		out.ChatID = conv.ID
		out.Matched = true
	}

	actorDelta, targetDelta := counterDeltas(prev, domain.ActionLike, reciprocated, false)
	if err := repo.ApplyCounterDelta(ctx, tx, actor, actorDelta); err != nil {
		return err
	}
	if err := repo.ApplyCounterDelta(ctx, tx, target, targetDelta); err != nil {
		return err
	}

	out.Action = next
	return nil
}

// applyReject handles the reject branch. Rejecting a match forces the
// counterpart's edge to reject as well: their "match" state was contingent
// on mutuality, which no longer holds. A counterpart holding a plain like
// keeps it; a reject never overwrites the other side's independent opinion.
func (s *InteractionService) applyReject(ctx context.Context, tx *gorm.DB, actor, target *domain.User, forward, reverse *domain.Interaction, prev string, out *InteractionResult) error {
	if prev == domain.ActionReject {
		out.Action = prev
		return nil
	}

	brokeMatch := prev == domain.ActionMatch

	if forward == nil {
		forward = &domain.Interaction{ActorID: actor.ID, TargetID: target.ID}
	}
	forward.Action = domain.ActionReject
	forward.Mutual = false
	if err := repo.SaveEdge(ctx, tx, forward); err != nil {
		return err
	}

	if brokeMatch && reverse != nil {
		reverse.Action = domain.ActionReject
		reverse.Mutual = false
		if err := repo.SaveEdge(ctx, tx, reverse); err != nil {
			return err
		}
	}

	actorDelta, targetDelta := counterDeltas(prev, domain.ActionReject, false, brokeMatch)
	if err := repo.ApplyCounterDelta(ctx, tx, actor, actorDelta); err != nil {
		return err
	}
	if err := repo.ApplyCounterDelta(ctx, tx, target, targetDelta); err != nil {
		return err
	}

	out.Action = domain.ActionReject
	out.Unmatched = brokeMatch
	return nil
}

// lockUsers fetches both user rows under write locks, always acquiring
// them in ascending id order so two opposing decisions cannot deadlock.
// The returned users are keyed by argument order, not lock order.
func lockUsers(ctx context.Context, tx *gorm.DB, actorID, targetID string) (actor, target *domain.User, err error) {
	first, second := actorID, targetID
	if second < first {
		first, second = second, first
	}

	u1, err := repo.GetUserForUpdate(ctx, tx, first)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}
	u2, err := repo.GetUserForUpdate(ctx, tx, second)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}

	if u1.ID == actorID {
		return u1, u2, nil
	}
	return u2, u1, nil
}
