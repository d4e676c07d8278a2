// Package services defines the relay engine: fanout of inbound messages,
// delivery dispatch, mirroring of actions onto delivered copies, expiry, and
// the moderation and directory operations that touch them.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into HTTP status codes is performed at the handler layer.
package services

import "errors"

var (
	// ErrMessageNotFound indicates that a (recipient, wire id) pair could not
	// be resolved to a logical message, neither in-process nor durably.
	ErrMessageNotFound = errors.New("message not found")

	// ErrUserNotFound indicates that the user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrSenderNotJoined is returned when the sender is unknown or has left.
	ErrSenderNotJoined = errors.New("sender is not joined")

	// ErrSenderBlacklisted is returned when the user has been banned.
	ErrSenderBlacklisted = errors.New("user is blacklisted")

	// ErrAlreadyWarned is returned when a message was already warned.
	ErrAlreadyWarned = errors.New("message already warned")

	// ErrForbidden is returned when the acting user lacks the required rank.
	ErrForbidden = errors.New("insufficient rank")

	// ErrInvalidEvent is returned for unknown event kinds.
	ErrInvalidEvent = errors.New("invalid event kind")

	// ErrInvalidReaction is returned when a reaction is not a single emoji.
	ErrInvalidReaction = errors.New("reaction must be a single emoji")
)
