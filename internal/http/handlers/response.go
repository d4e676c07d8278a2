// Package handlers provides the HTTP handlers of the relay API.
//
// This file defines the response helpers shared by every endpoint: the error
// envelope, fail/Fail, the service error mapping in failFor, and the success
// helpers ok and noContent.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "message not found"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-relay-backend/internal/http/middleware"
	"github.com/tbourn/go-relay-backend/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Echo of X-Request-ID
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code    string `json:"code" example:"not_found"`
	Message string `json:"message" example:"message not found"`
}

// fail aborts the request with an ErrorResponse. 5xx responses are logged
// with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	resp := ErrorResponse{
		RequestID: reqID,
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail, used by the router fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failFor maps a service error onto a status and code. Unknown errors become
// a 500 carrying fallback as code; their text is not echoed to the client.
func failFor(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrMessageNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrSenderNotJoined):
		fail(c, http.StatusForbidden, ErrCodeNotJoined, err.Error())
	case errors.Is(err, services.ErrSenderBlacklisted):
		fail(c, http.StatusForbidden, ErrCodeBlacklisted, err.Error())
	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, services.ErrAlreadyWarned):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrInvalidEvent):
		fail(c, http.StatusBadRequest, ErrCodeInvalidEvent, err.Error())
	case errors.Is(err, services.ErrInvalidReaction):
		fail(c, http.StatusBadRequest, ErrCodeInvalidReaction, err.Error())
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, fallback, "internal error")
	}
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
