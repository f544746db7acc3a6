package handler

import (
	"net/http"
	"strconv"
	"time"

	"Talk_Flow/internal/service"

	"github.com/gin-gonic/gin"
)

type PresenceHandler struct {
	svc   *service.PresenceService
	users *service.UserService
}

func NewPresenceHandler(svc *service.PresenceService, users *service.UserService) *PresenceHandler {
	return &PresenceHandler{svc: svc, users: users}
}

// Heartbeat marks the caller online and refreshes their last-seen time.
// Clients call this periodically while the app is in the foreground.
func (h *PresenceHandler) Heartbeat(c *gin.Context) {
	if err := h.svc.Heartbeat(c.Request.Context(), userIDFromCtx(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

type setStatusReq struct {
	Status string `json:"status" binding:"required"`
}

// SetStatus moves the caller to an explicit presence state.
func (h *PresenceHandler) SetStatus(c *gin.Context) {
	var req setStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	if err := h.svc.SetStatus(c.Request.Context(), userIDFromCtx(c), req.Status); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

// Get reports another user's presence with a display-ready last-seen label.
func (h *PresenceHandler) Get(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Query("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	u, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":   u.ID,
		"status":    u.Status,
		"last_seen": service.FormatLastSeen(u.LastSeen, time.Now()),
	})
}
