package handler

import (
	"net/http"

	"phlock_server/internal/service"

	"github.com/gin-gonic/gin"
)

type PickHandler struct {
	pickSvc  *service.PickService
	reachSvc *service.ReachService
}

func NewPickHandler(resolve service.TrackResolver) *PickHandler {
	return &PickHandler{
		pickSvc:  service.NewPickService(resolve),
		reachSvc: service.NewReachService(),
	}
}

type pickReq struct {
	TrackRef string `json:"track_ref" binding:"required"`
	// 客户端缓存的歌名/歌手，曲库不可用时兜底
	CachedName   string `json:"cached_name"`
	CachedArtist string `json:"cached_artist"`
}

// Create 记录今天的歌。同一天重复提交只换歌不加连续天数
func (h *PickHandler) Create(c *gin.Context) {
	var req pickReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	uid := userIDFromCtx(c)
	created, err := h.pickSvc.RecordPick(c.Request.Context(), uid, req.TrackRef, req.CachedName, req.CachedArtist)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}

// Streak 当前有效连续天数
func (h *PickHandler) Streak(c *gin.Context) {
	uid := userIDFromCtx(c)
	streak, err := h.pickSvc.GetEffectiveStreak(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"streak": streak})
}

// Reach 终身触达数
func (h *PickHandler) Reach(c *gin.Context) {
	uid := userIDFromCtx(c)
	reach, err := h.reachSvc.GetReach(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reach": reach})
}
