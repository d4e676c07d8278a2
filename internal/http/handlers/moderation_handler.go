// Moderation HTTP handlers.
//
// Every endpoint acts on the message a moderator (X-Actor-ID) sees as
// (recipient_id, wire_id), typically their own copy:
//   - POST /moderation/warn
//   - POST /moderation/remove
//   - POST /moderation/purge
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ModerationRequest points at one delivered copy.
type ModerationRequest struct {
	RecipientID int64 `json:"recipient_id" binding:"required,gt=0" example:"1003"`
	WireID      int64 `json:"wire_id"      binding:"required,gt=0" example:"88"`
}

// bindModeration reads the actor and the target copy or answers 401/400.
func bindModeration(c *gin.Context) (int64, ModerationRequest, bool) {
	var req ModerationRequest
	modID, okA := requireActor(c)
	if !okA {
		return 0, req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "recipient_id and wire_id required")
		return 0, req, false
	}
	return modID, req, true
}

// Warn godoc
// @ID          warnMessage
// @Summary     Warn a message
// @Description Flags the message once and adds a warning to its (undisclosed) sender.
// @Tags        Moderation
// @Accept      json
// @Produce     json
// @Param       X-Actor-ID  header  int                           true  "Moderator"
// @Param       body        body    handlers.ModerationRequest    true  "Target copy"
// @Success     200  {object}  services.WarnResult
// @Failure     401  {object}  handlers.ErrorResponse  "Missing actor"
// @Failure     403  {object}  handlers.ErrorResponse  "Insufficient rank"
// @Failure     404  {object}  handlers.ErrorResponse  "Message not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Already warned"
// @Router      /moderation/warn [post]
func (h *Handlers) Warn(c *gin.Context) {
	modID, req, okB := bindModeration(c)
	if !okB {
		return
	}
	res, err := h.modSvc.Warn(c.Request.Context(), modID, req.RecipientID, req.WireID)
	if err != nil {
		failFor(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, res)
}

// Remove godoc
// @ID          removeMessage
// @Summary     Remove a message
// @Description Deletes every other copy of the message.
// @Tags        Moderation
// @Accept      json
// @Produce     json
// @Param       X-Actor-ID  header  int                           true  "Moderator"
// @Param       body        body    handlers.ModerationRequest    true  "Target copy"
// @Success     200  {object}  services.MirrorResult
// @Failure     401  {object}  handlers.ErrorResponse  "Missing actor"
// @Failure     403  {object}  handlers.ErrorResponse  "Insufficient rank"
// @Failure     404  {object}  handlers.ErrorResponse  "Message not found"
// @Router      /moderation/remove [post]
func (h *Handlers) Remove(c *gin.Context) {
	modID, req, okB := bindModeration(c)
	if !okB {
		return
	}
	res, err := h.modSvc.Remove(c.Request.Context(), modID, req.RecipientID, req.WireID)
	if err != nil {
		failFor(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, res)
}

// Purge godoc
// @ID          purgeSender
// @Summary     Purge a sender
// @Description Deletes every copy of every live message from the sender of the target message.
// @Tags        Moderation
// @Accept      json
// @Produce     json
// @Param       X-Actor-ID  header  int                           true  "Moderator"
// @Param       body        body    handlers.ModerationRequest    true  "Target copy"
// @Success     200  {object}  services.PurgeResult
// @Failure     401  {object}  handlers.ErrorResponse  "Missing actor"
// @Failure     403  {object}  handlers.ErrorResponse  "Insufficient rank"
// @Failure     404  {object}  handlers.ErrorResponse  "Message not found"
// @Router      /moderation/purge [post]
func (h *Handlers) Purge(c *gin.Context) {
	modID, req, okB := bindModeration(c)
	if !okB {
		return
	}
	res, err := h.modSvc.Purge(c.Request.Context(), modID, req.RecipientID, req.WireID)
	if err != nil {
		failFor(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, res)
}
