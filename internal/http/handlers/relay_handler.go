// Relay HTTP handlers.
//
// This file exposes the inbound side of the chat bridge:
//   - POST /messages                          (relay a participant's message)
//   - GET  /messages/{id}                     (operator view of a logical message)
//   - GET  /recipients/{rid}/wires/{wid}      (resolve a delivered copy)
//
// Handlers are transport-thin: they bind and validate input, call the relay
// services and translate results and errors into HTTP responses.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-relay-backend/internal/domain"
	"github.com/tbourn/go-relay-backend/internal/http/middleware"
	"github.com/tbourn/go-relay-backend/internal/services"
	"github.com/tbourn/go-relay-backend/internal/transport"
	"github.com/tbourn/go-relay-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// RelayService fans an inbound message out to the channel.
type RelayService interface {
	Relay(ctx context.Context, senderID, wireID int64, payload json.RawMessage) (*services.RelayResult, error)
}

// MirrorService resolves delivered copies and mirrors actions onto them.
type MirrorService interface {
	Mirror(ctx context.Context, observerID, observerWire int64, ev transport.Event) (*services.MirrorResult, error)
	Resolve(ctx context.Context, recipientID, wireID int64) (int64, error)
	Describe(ctx context.Context, logicalID int64) (*services.MessageView, error)
}

// UserService manages channel membership.
type UserService interface {
	Join(ctx context.Context, id int64, username *string, realname string) (*domain.User, error)
	Leave(ctx context.Context, id int64) error
	Blacklist(ctx context.Context, modID, id int64, reason string) error
	Get(ctx context.Context, id int64) (*domain.User, error)
}

// ModerationService applies moderator actions.
type ModerationService interface {
	Warn(ctx context.Context, modID, recipientID, wireID int64) (*services.WarnResult, error)
	Remove(ctx context.Context, modID, recipientID, wireID int64) (*services.MirrorResult, error)
	Purge(ctx context.Context, modID, recipientID, wireID int64) (*services.PurgeResult, error)
}

// StatsService reports engine counters.
type StatsService interface {
	Snapshot(ctx context.Context) (*services.Stats, error)
}

//
// Handler wiring
//

// Handlers groups the relay endpoints. Every service is an interface so the
// handlers can be tested with stubs.
type Handlers struct {
	relaySvc  RelayService
	mirrorSvc MirrorService
	userSvc   UserService
	modSvc    ModerationService
	statsSvc  StatsService
}

// New binds the handlers to their services.
func New(relay RelayService, mirror MirrorService, users UserService, mod ModerationService, stats StatsService) *Handlers {
	return &Handlers{relaySvc: relay, mirrorSvc: mirror, userSvc: users, modSvc: mod, statsSvc: stats}
}

// requireActor returns the X-Actor-ID participant or answers 401.
func requireActor(c *gin.Context) (int64, bool) {
	id, ok := middleware.ActorFrom(c)
	if !ok {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "X-Actor-ID header required")
		return 0, false
	}
	return id, true
}

// pathID parses a positive id path parameter or answers 400.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

//
// DTOs
//

// RelayRequest is an inbound message as posted by the bridge.
type RelayRequest struct {
	// SenderID defaults to the X-Actor-ID participant when zero.
	SenderID int64 `json:"sender_id" example:"1001"`
	// WireID is the id the sender's own copy carries on the wire.
	WireID int64 `json:"wire_id" binding:"required,gt=0" example:"5000"`
	// Payload is opaque to the relay and forwarded verbatim.
	Payload json.RawMessage `json:"payload" binding:"required" swaggertype:"object"`
}

// ResolveResponse carries the logical id of a delivered copy.
type ResolveResponse struct {
	LogicalID int64 `json:"logical_id" example:"17"`
}

//
// Handlers
//

// PostMessage godoc
// @ID          relayMessage
// @Summary     Relay a message
// @Description Registers the message and queues one delivery per reachable participant.
// @Description A repeated (sender_id, wire_id) returns the original logical id with duplicate=true.
// @Tags        Relay
// @Accept      json
// @Produce     json
// @Param       X-Actor-ID  header  int                      false  "Acting participant (default sender)"
// @Param       body        body    handlers.RelayRequest    true   "Inbound message"
// @Success     202  {object}  services.RelayResult    "Queued"
// @Success     200  {object}  services.RelayResult    "Duplicate"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Sender not joined or blacklisted"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	var req RelayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "wire_id and payload required")
		return
	}
	if p := bytes.TrimSpace(req.Payload); len(p) == 0 || bytes.Equal(p, []byte("null")) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "payload required")
		return
	}
	if req.SenderID == 0 {
		req.SenderID, _ = middleware.ActorFrom(c)
	}
	if req.SenderID <= 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "sender_id required")
		return
	}

	res, err := h.relaySvc.Relay(c.Request.Context(), req.SenderID, req.WireID, req.Payload)
	if err != nil {
		failFor(c, err, ErrCodeRelayFailed)
		return
	}
	status := http.StatusAccepted
	if res.Duplicate {
		status = http.StatusOK
	}
	ok(c, status, res)
}

// GetMessage godoc
// @ID          getMessage
// @Summary     Describe a logical message
// @Description Returns vote counts, the warned flag and every known copy. Falls back to the durable store after expiry.
// @Tags        Relay
// @Produce     json
// @Param       id   path      int  true  "Logical message id"
// @Success     200  {object}  services.MessageView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Message not found"
// @Router      /messages/{id} [get]
func (h *Handlers) GetMessage(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	view, err := h.mirrorSvc.Describe(c.Request.Context(), id)
	if err != nil {
		failFor(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, view)
}

// ResolveWire godoc
// @ID          resolveWire
// @Summary     Resolve a delivered copy
// @Description Maps a recipient's wire id back to the logical message id.
// @Tags        Relay
// @Produce     json
// @Param       rid  path      int  true  "Recipient id"
// @Param       wid  path      int  true  "Wire id in the recipient's chat"
// @Success     200  {object}  handlers.ResolveResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Not resolvable"
// @Router      /recipients/{rid}/wires/{wid} [get]
func (h *Handlers) ResolveWire(c *gin.Context) {
	rid, okR := pathID(c, "rid")
	if !okR {
		return
	}
	wid, okW := pathID(c, "wid")
	if !okW {
		return
	}
	lid, err := h.mirrorSvc.Resolve(c.Request.Context(), rid, wid)
	if err != nil {
		failFor(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, ResolveResponse{LogicalID: lid})
}

// GetStats godoc
// @ID          getStats
// @Summary     Engine counters
// @Tags        Operations
// @Produce     json
// @Success     200  {object}  services.Stats
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /stats [get]
func (h *Handlers) GetStats(c *gin.Context) {
	st, err := h.statsSvc.Snapshot(c.Request.Context())
	if err != nil {
		failFor(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, st)
}
