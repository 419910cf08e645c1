package services

import (
	"github.com/avray/go-dating-backend/internal/domain"
	"github.com/avray/go-dating-backend/internal/repo"
)

// counterDeltas computes the aggregate counter adjustments caused by a single
// interaction transition. prev and next are the actor's edge action before and
// after the write (domain.ActionNone when the edge did not exist). newMatch and
// brokeMatch report whether the transition formed or dissolved a mutual match;
// those adjustments apply to both sides.
//
// The function is pure so every transition in the state machine can be covered
// by table tests without touching the database.
func counterDeltas(prev, next string, newMatch, brokeMatch bool) (actor, counterpart repo.CounterDelta) {
	if prev != next {
		switch next {
		case domain.ActionLike:
			// A like over an existing like or match is a replay, not a new vote.
			if prev == domain.ActionNone || prev == domain.ActionReject {
				actor.Likes++
			}
			if prev == domain.ActionReject {
				actor.Rejects--
			}
		case domain.ActionReject:
			actor.Rejects++
			if prev == domain.ActionLike || prev == domain.ActionMatch {
				actor.Likes--
			}
		}
	}
	if newMatch {
		actor.Matches++
		counterpart.Matches++
	}
	if brokeMatch {
		actor.Matches--
		counterpart.Matches--
	}
	return actor, counterpart
}
