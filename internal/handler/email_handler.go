package handler

import (
	"net/http"

	"Talk_Flow/internal/service"

	"github.com/gin-gonic/gin"
)

type EmailHandler struct {
	svc *service.EmailService
}

func NewEmailHandler(svc *service.EmailService) *EmailHandler {
	return &EmailHandler{svc: svc}
}

type sendCodeReq struct {
	Email string `json:"email" binding:"required,email"`
}

// SendCode mails a one-time verification code. The scope path segment names
// the flow the code is for (register or reset).
func (h *EmailHandler) SendCode(c *gin.Context) {
	var req sendCodeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	if err := h.svc.SendCode(c.Param("scope"), req.Email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to send code"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "code sent"})
}
