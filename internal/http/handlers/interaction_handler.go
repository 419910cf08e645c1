package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LikeUser godoc
// @ID          likeUser
// @Summary     Like a profile
// @Description Records that the caller likes the target. When the interest is mutual the response reports the match and its chat thread. Replaying a like is a no-op.
// @Tags        Interactions
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Target user ID (UUID)"  format(uuid)
//
// @Success     200  {object} services.InteractionResult
// @Failure     400  {object} handlers.ErrorResponse "Self-interaction or inactive target"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Router      /users/{id}/like [post]
func (h *Handlers) LikeUser(c *gin.Context) {
	targetID, okID := requireUUIDParam(c, "id", "user id")
	if !okID {
		return
	}
	res, err := h.intSvc.Like(c.Request.Context(), userID(c), targetID)
	if err != nil {
		failFromErr(c, err, ErrCodeInteractionFailed)
		return
	}
	ok(c, http.StatusOK, res)
}

// RejectUser godoc
// @ID          rejectUser
// @Summary     Reject a profile
// @Description Records that the caller passes on the target. Rejecting a matched profile dissolves the match for both sides. Replaying a reject is a no-op.
// @Tags        Interactions
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Target user ID (UUID)"  format(uuid)
//
// @Success     200  {object} services.InteractionResult
// @Failure     400  {object} handlers.ErrorResponse "Self-interaction"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Router      /users/{id}/reject [post]
func (h *Handlers) RejectUser(c *gin.Context) {
	targetID, okID := requireUUIDParam(c, "id", "user id")
	if !okID {
		return
	}
	res, err := h.intSvc.Reject(c.Request.Context(), userID(c), targetID)
	if err != nil {
		failFromErr(c, err, ErrCodeInteractionFailed)
		return
	}
	ok(c, http.StatusOK, res)
}
