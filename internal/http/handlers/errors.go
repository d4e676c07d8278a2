// Package handlers defines the error codes returned by the relay API.
//
// Codes are lowercase snake_case and stable; clients branch on them rather
// than on messages. Generic codes mirror HTTP status semantics, the relay
// specific ones name a refused engine operation.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	ErrCodeNotJoined       = "not_joined"
	ErrCodeBlacklisted     = "blacklisted"
	ErrCodeInvalidEvent    = "invalid_event"
	ErrCodeInvalidReaction = "invalid_reaction"
	ErrCodeRelayFailed     = "relay_failed"
)
