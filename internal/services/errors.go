// Package services defines the business logic for interactions, conversations,
// and messages. This file centralizes common service-level error values so that
// they can be consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Interaction-related errors.
var (
	// ErrUserNotFound indicates that the acting or target user does not exist
	// or has been deactivated.
	ErrUserNotFound = errors.New("user not found")

	// ErrSelfInteraction is returned when a user attempts to like or reject
	// themselves.
	ErrSelfInteraction = errors.New("cannot interact with yourself")

	// ErrInvalidTarget is returned when the target of an interaction cannot
	// receive it, for example a like aimed at a deactivated profile.
	ErrInvalidTarget = errors.New("target cannot receive interactions")
)

// Chat-related errors.
var (
	// ErrChatNotFound indicates that the requested conversation does not exist
	// or is not accessible to the current user.
	ErrChatNotFound = errors.New("chat not found")

	// ErrNotParticipant is returned when a user references a conversation they
	// are not a side of.
	ErrNotParticipant = errors.New("not a participant of this chat")

	// ErrBlocked is returned when the sender has blocked the conversation and
	// therefore cannot post into it.
	ErrBlocked = errors.New("chat is blocked")
)

// Message-related errors.
var (
	// ErrEmptyBody is returned when a request to send a message contains an
	// empty or whitespace-only body.
	ErrEmptyBody = errors.New("message body is empty")

	// ErrBodyTooLong is returned when a message body exceeds the maximum
	// configured length limit.
	ErrBodyTooLong = errors.New("message body too long")

	// ErrMessageNotFound indicates that the requested message does not exist
	// or is not accessible to the current user.
	ErrMessageNotFound = errors.New("message not found")

	// ErrNotMessageSender is returned when a user attempts to delete a message
	// they did not send.
	ErrNotMessageSender = errors.New("cannot modify another user's message")

	// ErrInvalidReplyTo is returned when a reply references a message outside
	// the conversation or one that does not exist.
	ErrInvalidReplyTo = errors.New("reply target not found in this chat")
)
