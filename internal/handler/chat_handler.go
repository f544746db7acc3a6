package handler

import (
	"io"
	"net/http"
	"strconv"

	"Talk_Flow/internal/service"
	"Talk_Flow/internal/ws"

	"github.com/gin-gonic/gin"
	"nhooyr.io/websocket"
)

// maxImageBytes caps uploaded chat images at 8 MiB.
const maxImageBytes = 8 << 20

type ChatHandler struct {
	svc *service.ChatService
}

func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type sendTextReq struct {
	PeerID uint64 `json:"peer_id" binding:"required"`
	Text   string `json:"text"`
}

// SendText appends a text message to the conversation with peer_id.
func (h *ChatHandler) SendText(c *gin.Context) {
	var req sendTextReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	msg, err := h.svc.Append(c.Request.Context(), userIDFromCtx(c), req.PeerID,
		service.MessagePayload{Text: req.Text})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// SendImage appends an image message from a multipart upload.
func (h *ChatHandler) SendImage(c *gin.Context) {
	peerID, err := strconv.ParseUint(c.PostForm("peer_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "image file required"})
		return
	}
	if fh.Size > maxImageBytes {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "image too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "image unreadable"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "image unreadable"})
		return
	}

	msg, err := h.svc.Append(c.Request.Context(), userIDFromCtx(c), peerID,
		service.MessagePayload{Image: data})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// History pages the conversation with peer_id, newest first. cursor is the
// sequence number to continue below; 0 starts from the latest message.
func (h *ChatHandler) History(c *gin.Context) {
	peerID, err := strconv.ParseUint(c.Query("peer_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	cursor, _ := strconv.ParseUint(c.Query("cursor"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))

	msgs, next, err := h.svc.History(c.Request.Context(), userIDFromCtx(c), peerID, cursor, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": msgs, "next_cursor": next})
}

// Stream upgrades to a websocket and pushes every new message in the
// conversation with peer_id until either side hangs up.
func (h *ChatHandler) Stream(c *gin.Context) {
	peerID, err := strconv.ParseUint(c.Query("peer_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}

	sub, err := h.svc.Subscribe(c.Request.Context(), userIDFromCtx(c), peerID)
	if err != nil {
		fail(c, err)
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		sub.Cancel()
		return
	}
	client := ws.NewClient(conn, sub)
	defer client.Close()
	client.Wait()
}
