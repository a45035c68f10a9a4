package handler

import (
	"net/http"
	"strconv"

	"phlock_server/internal/service"

	"github.com/gin-gonic/gin"
)

type NudgeHandler struct {
	svc *service.NudgeService
}

func NewNudgeHandler() *NudgeHandler {
	return &NudgeHandler{svc: service.NewNudgeService()}
}

type nudgeReq struct {
	RecipientID uint64 `json:"recipient_id" binding:"required"`
}

// Send 催圈子里的人发歌
func (h *NudgeHandler) Send(c *gin.Context) {
	var req nudgeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	uid := userIDFromCtx(c)
	if err := h.svc.SendNudge(c.Request.Context(), uid, req.RecipientID); err != nil {
		c.JSON(http.StatusOK, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

// List 通知列表
func (h *NudgeHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	uid := userIDFromCtx(c)
	rows, err := h.svc.ListNotifications(c.Request.Context(), uid, limit)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": rows})
}
