package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterUserRequest is the JSON payload for creating an account.
type RegisterUserRequest struct {
	// Handle is the unique, case-insensitive account name.
	Handle string `json:"handle" binding:"required" example:"daisy"`
	// DisplayName is the profile name shown in inboxes. Defaults to Handle.
	DisplayName string `json:"display_name,omitempty" example:"Daisy"`
	// Kind selects the persona: "human" (default) or "bot".
	Kind string `json:"kind,omitempty" example:"human"`
}

// RegisterUser godoc
// @ID          registerUser
// @Summary     Register an account
// @Description Creates a human or bot profile. Handles are lowercased and must be unique.
// @Tags        Users
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RegisterUserRequest  true  "Account payload"
//
// @Success     201  {object} domain.User
// @Failure     400  {object} handlers.ErrorResponse "Invalid handle or persona"
// @Failure     409  {object} handlers.ErrorResponse "Handle already taken"
// @Router      /users [post]
func (h *Handlers) RegisterUser(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "handle required")
		return
	}
	u, err := h.userSvc.Register(c.Request.Context(), req.Handle, req.DisplayName, req.Kind)
	if err != nil {
		failFromErr(c, err, ErrCodeRegisterFailed)
		return
	}
	ok(c, http.StatusCreated, u)
}

// GetUser godoc
// @ID          getUser
// @Summary     Fetch a profile
// @Description Returns a profile with its aggregate like, match, and reject counters.
// @Tags        Users
// @Produce     json
//
// @Param       id  path  string  true  "User ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.User
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Router      /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	id, okID := requireUUIDParam(c, "id", "user id")
	if !okID {
		return
	}
	u, err := h.userSvc.Get(c.Request.Context(), id)
	if err != nil {
		failFromErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, u)
}

// DeactivateUser godoc
// @ID          deactivateUser
// @Summary     Deactivate a profile
// @Description Marks the account inactive. Inactive profiles cannot receive new likes; existing threads stay readable.
// @Tags        Users
//
// @Param       id  path  string  true  "User ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Router      /users/{id} [delete]
func (h *Handlers) DeactivateUser(c *gin.Context) {
	id, okID := requireUUIDParam(c, "id", "user id")
	if !okID {
		return
	}
	if err := h.userSvc.Deactivate(c.Request.Context(), id); err != nil {
		failFromErr(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}
