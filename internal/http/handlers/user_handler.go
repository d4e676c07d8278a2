// User HTTP handlers.
//
//   - POST   /users                 (join or re-join the channel)
//   - GET    /users/{id}            (directory entry)
//   - DELETE /users/{id}            (leave)
//   - POST   /users/{id}/blacklist  (ban; moderator only)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// JoinRequest adds a participant to the channel.
type JoinRequest struct {
	ID       int64   `json:"id"       binding:"required,gt=0" example:"1001"`
	Username *string `json:"username,omitempty" example:"@alice"`
	Realname string  `json:"realname" binding:"max=255" example:"Alice"`
}

// BlacklistRequest carries the reason shown to the banned participant.
type BlacklistRequest struct {
	Reason string `json:"reason" binding:"max=500" example:"spam"`
}

// JoinUser godoc
// @ID          joinUser
// @Summary     Join the channel
// @Description Creates the participant or re-joins one who left. Blacklisted participants are refused.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.JoinRequest  true  "Participant"
// @Success     201   {object}  domain.User
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403   {object}  handlers.ErrorResponse  "Blacklisted"
// @Router      /users [post]
func (h *Handlers) JoinUser(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id required")
		return
	}
	u, err := h.userSvc.Join(c.Request.Context(), req.ID, req.Username, req.Realname)
	if err != nil {
		failFor(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusCreated, u)
}

// GetUser godoc
// @ID          getUser
// @Summary     Get a participant
// @Tags        Users
// @Produce     json
// @Param       id   path      int  true  "Participant id"
// @Success     200  {object}  domain.User
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	u, err := h.userSvc.Get(c.Request.Context(), id)
	if err != nil {
		failFor(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, u)
}

// LeaveUser godoc
// @ID          leaveUser
// @Summary     Leave the channel
// @Description The participant stops receiving relayed messages. Copies already delivered stay resolvable.
// @Tags        Users
// @Param       id   path  int  true  "Participant id"
// @Success     204  "Left"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /users/{id} [delete]
func (h *Handlers) LeaveUser(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	if err := h.userSvc.Leave(c.Request.Context(), id); err != nil {
		failFor(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// BlacklistUser godoc
// @ID          blacklistUser
// @Summary     Ban a participant
// @Description The acting moderator must outrank the target.
// @Tags        Users
// @Accept      json
// @Param       X-Actor-ID  header  int                          true   "Moderator"
// @Param       id          path    int                          true   "Participant id"
// @Param       body        body    handlers.BlacklistRequest    false  "Reason"
// @Success     204  "Blacklisted"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing actor"
// @Failure     403  {object}  handlers.ErrorResponse  "Insufficient rank"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /users/{id}/blacklist [post]
func (h *Handlers) BlacklistUser(c *gin.Context) {
	modID, okA := requireActor(c)
	if !okA {
		return
	}
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	var req BlacklistRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid body")
			return
		}
	}
	if err := h.userSvc.Blacklist(c.Request.Context(), modID, id, strings.TrimSpace(req.Reason)); err != nil {
		failFor(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}
