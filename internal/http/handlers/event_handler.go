// Event HTTP handler.
//
// POST /events is called by the bridge when a participant reacts to,
// deletes or pins their copy of a relayed message. The action is mirrored
// onto every other copy.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-relay-backend/internal/http/middleware"
	"github.com/tbourn/go-relay-backend/internal/transport"
)

// EventRequest is an action observed on one delivered copy.
type EventRequest struct {
	// RecipientID owns the copy the action was observed on.
	RecipientID int64 `json:"recipient_id" binding:"required,gt=0" example:"1002"`
	WireID      int64 `json:"wire_id"      binding:"required,gt=0" example:"71"`
	// Kind is one of reaction, delete, pin.
	Kind  string `json:"kind"  binding:"required" example:"reaction"`
	Emoji string `json:"emoji,omitempty" example:"👍"`
	// ActorID defaults to X-Actor-ID, then to RecipientID.
	ActorID int64 `json:"actor_id,omitempty" example:"1002"`
}

// PostEvent godoc
// @ID          mirrorEvent
// @Summary     Mirror an action
// @Description Replays a reaction, delete or pin onto every other copy of the same logical message.
// @Description Positive and negative reactions also adjust the sender's karma.
// @Tags        Relay
// @Accept      json
// @Produce     json
// @Param       X-Actor-ID  header  int                     false  "Acting participant"
// @Param       body        body    handlers.EventRequest   true   "Observed action"
// @Success     200  {object}  services.MirrorResult
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid event or reaction"
// @Failure     404  {object}  handlers.ErrorResponse  "Copy not resolvable"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /events [post]
func (h *Handlers) PostEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "recipient_id, wire_id and kind required")
		return
	}
	actor := req.ActorID
	if actor <= 0 {
		if id, okA := middleware.ActorFrom(c); okA {
			actor = id
		} else {
			actor = req.RecipientID
		}
	}
	ev := transport.Event{
		Kind:    transport.EventKind(strings.ToLower(strings.TrimSpace(req.Kind))),
		Emoji:   strings.TrimSpace(req.Emoji),
		ActorID: actor,
	}

	res, err := h.mirrorSvc.Mirror(c.Request.Context(), req.RecipientID, req.WireID, ev)
	if err != nil {
		failFor(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, res)
}
