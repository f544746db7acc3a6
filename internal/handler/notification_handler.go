package handler

import (
	"net/http"

	"Talk_Flow/internal/service"
	"Talk_Flow/internal/ws"

	"github.com/gin-gonic/gin"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type NotificationHandler struct {
	svc *service.NotificationService
}

func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List returns the caller's current pending follow requests, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	list, err := h.svc.Derive(c.Request.Context(), userIDFromCtx(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

// Stream upgrades to a websocket, pushes the current notification list, then
// pushes a fresh list every time the caller's record changes.
func (h *NotificationHandler) Stream(c *gin.Context) {
	userID := userIDFromCtx(c)
	sub := h.svc.Subscribe(userID)

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		sub.Cancel()
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")
	defer sub.Cancel()

	ctx := c.Request.Context()
	send := func() bool {
		list, err := h.svc.Derive(ctx, userID)
		if err != nil {
			return false
		}
		ev, err := ws.NewEvent(ws.EventRelation, gin.H{"notifications": list})
		if err != nil {
			return false
		}
		return wsjson.Write(ctx, conn, ev) == nil
	}

	if !send() {
		return
	}

	// read side only detects disconnects
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case _, ok := <-sub.C:
			if !ok {
				return
			}
			if !send() {
				return
			}
		}
	}
}
